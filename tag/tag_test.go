package tag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleA struct{ X int }
type sampleB struct{ Y string }

func TestOfIsStableAndDistinct(t *testing.T) {
	require.Equal(t, Of[sampleA](), Of[sampleA]())
	require.NotEqual(t, Of[sampleA](), Of[sampleB]())
}

func TestOfValueMatchesOf(t *testing.T) {
	require.Equal(t, Of[sampleA](), OfValue(sampleA{X: 1}))
}

func TestFromNameRoundTrips(t *testing.T) {
	original := Of[sampleA]()
	reconstructed := FromName(original.String())
	require.Equal(t, original, reconstructed)
}

func TestIsValid(t *testing.T) {
	require.True(t, Of[sampleA]().IsValid())
	require.False(t, Tag{}.IsValid())
}

func TestStringOfZeroValue(t *testing.T) {
	require.Equal(t, "<invalid>", Tag{}.String())
}
