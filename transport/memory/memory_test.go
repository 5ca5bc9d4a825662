package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tenzoki/actorrt/envelope"
	"github.com/tenzoki/actorrt/transport"
)

type ping struct{ N int }

func TestBroadcastReachesOtherJoinedEndpointsNotSender(t *testing.T) {
	n := New()
	a, err := n.Join()
	require.NoError(t, err)
	b, err := n.Join()
	require.NoError(t, err)

	require.NoError(t, a.Send(envelope.Package(ping{N: 1})))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := b.Receive(ctx)
	require.NoError(t, err)
	v, ok := envelope.Unpackage[ping](got)
	require.True(t, ok)
	require.Equal(t, 1, v.N)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err = a.Receive(ctx2)
	require.Error(t, err, "sender must not receive its own broadcast")
}

func TestCloseNetworkClosesEveryEndpoint(t *testing.T) {
	n := New()
	ep, err := n.Join()
	require.NoError(t, err)
	require.NoError(t, n.Close())

	_, err = ep.Receive(context.Background())
	require.ErrorIs(t, err, transport.ErrClosed)
}
