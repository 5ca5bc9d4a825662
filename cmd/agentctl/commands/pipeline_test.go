package commands

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tenzoki/actorrt/runtime"
)

func TestWireDemoPipelineSettlesWithNoPendingWork(t *testing.T) {
	r := runtime.New()
	producerID := wireDemoPipeline(r, zap.NewNop())

	_, err := r.StartAll()
	require.NoError(t, err)
	require.Equal(t, 2, r.Stats().Running)

	require.NoError(t, runtime.SendByID(r, producerID, Request{V: 5}))
	steps := r.ProcessAllPending()
	require.GreaterOrEqual(t, steps, 1)
	require.False(t, r.HasPendingWork())
}

func TestWireDemoPipelineRejectsDuplicateRegistration(t *testing.T) {
	r := runtime.New()
	wireDemoPipeline(r, zap.NewNop())
	require.Equal(t, 2, r.AgentCount())

	// Wiring the pipeline a second time on the same runtime must not
	// silently replace the existing agents under "producer"/"consumer".
	wireDemoPipeline(r, zap.NewNop())
	require.Equal(t, 2, r.AgentCount())
}
