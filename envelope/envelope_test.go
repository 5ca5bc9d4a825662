package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type greeting struct {
	Text string `json:"text"`
}

type count struct {
	N int `json:"n"`
}

func TestPackageUnpackageRoundTrip(t *testing.T) {
	env := Package(greeting{Text: "hi"})
	got, ok := Unpackage[greeting](env)
	require.True(t, ok)
	require.Equal(t, greeting{Text: "hi"}, got)
}

func TestUnpackageWrongTypeFails(t *testing.T) {
	env := Package(greeting{Text: "hi"})
	_, ok := Unpackage[count](env)
	require.False(t, ok)
}

func TestPackageWireRoundTrip(t *testing.T) {
	env, err := PackageWire(count{N: 42})
	require.NoError(t, err)
	require.True(t, env.IsWire())
	got, ok := Unpackage[count](env)
	require.True(t, ok)
	require.Equal(t, count{N: 42}, got)
}

func TestAsWireConvertsLocalEnvelope(t *testing.T) {
	local := Package(count{N: 7})
	require.False(t, local.IsWire())

	wire, err := local.AsWire()
	require.NoError(t, err)
	require.True(t, wire.IsWire())

	got, ok := Unpackage[count](wire)
	require.True(t, ok)
	require.Equal(t, count{N: 7}, got)
}

func TestAsWireIsIdempotentOnWireEnvelope(t *testing.T) {
	wire, err := PackageWire(count{N: 1})
	require.NoError(t, err)
	again, err := wire.AsWire()
	require.NoError(t, err)
	require.Same(t, wire, again)
}

func TestMarshalJSONFailsOnLocalEnvelope(t *testing.T) {
	local := Package(count{N: 1})
	_, err := json.Marshal(local)
	require.Error(t, err)
}

func TestMarshalUnmarshalJSONRoundTripsTag(t *testing.T) {
	wire, err := PackageWire(count{N: 9})
	require.NoError(t, err)
	wire.AddHop("sender")

	data, err := json.Marshal(wire)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Equal(t, wire.Tag, decoded.Tag)
	require.Equal(t, wire.TypeName, decoded.TypeName)
	require.Equal(t, wire.Route, decoded.Route)

	got, ok := Unpackage[count](&decoded)
	require.True(t, ok)
	require.Equal(t, count{N: 9}, got)
}

func TestAddHopAppendsRoute(t *testing.T) {
	env := Package(greeting{Text: "x"})
	env.AddHop("a")
	env.AddHop("b")
	require.Equal(t, 2, env.HopCount)
	require.Equal(t, []string{"a", "b"}, env.Route)
}

func TestCloneDivergesRouteIndependently(t *testing.T) {
	env := Package(greeting{Text: "x"})
	env.AddHop("a")

	clone := env.Clone()
	clone.AddHop("b")

	require.Equal(t, []string{"a"}, env.Route)
	require.Equal(t, []string{"a", "b"}, clone.Route)
}

func TestNewReplyCorrelatesToRequest(t *testing.T) {
	req := Package(greeting{Text: "ping"})
	reply := NewReply(req, count{N: 1})
	require.Equal(t, req.ID, reply.CorrelationID)
}
