package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenzoki/actorrt/agent"
	"github.com/tenzoki/actorrt/mailbox"
)

type producerState struct{}
type consumerState struct{ Total int }

type request struct{ V int }
type response struct{ R int }

func newProducer() *agent.Agent[producerState] {
	a := agent.New(producerState{}).WithName("producer")
	agent.RegisterHandler(a, func(_ *producerState, req request) any {
		return response{R: req.V * 2}
	})
	return a
}

func newConsumer() *agent.Agent[consumerState] {
	a := agent.New(consumerState{}).WithName("consumer")
	agent.RegisterHandler(a, func(s *consumerState, resp response) any {
		s.Total += resp.R
		return nil
	})
	return a
}

func TestProducerConsumerChain(t *testing.T) {
	r := New()
	producer := newProducer()
	consumer := newConsumer()

	producerID, err := r.RegisterNamed("producer", producer)
	require.NoError(t, err)
	_, err = r.RegisterNamed("consumer", consumer)
	require.NoError(t, err)

	_, err = r.StartAll()
	require.NoError(t, err)

	require.NoError(t, SendByID(r, producerID, request{V: 5}))

	result := r.Step()
	require.Equal(t, 1, result.Drained)
	require.Equal(t, 1, result.Replied)
	require.Equal(t, 0, consumer.Value().Total, "consumer hasn't drained yet")

	result = r.Step()
	require.Equal(t, 1, result.Drained)
	require.Equal(t, 10, consumer.Value().Total)

	require.False(t, r.HasPendingWork())
}

func TestBroadcastOnlyReachesAcceptingAgents(t *testing.T) {
	r := New()
	producer := newProducer()
	consumer := newConsumer()
	r.RegisterNamed("producer", producer)
	r.RegisterNamed("consumer", consumer)
	r.StartAll()

	delivered := Broadcast(r, request{V: 1})
	require.Equal(t, 1, delivered, "only producer accepts request")

	delivered = Broadcast(r, response{R: 1})
	require.Equal(t, 1, delivered, "only consumer accepts response")
}

func TestDuplicateNameRejectedWithoutPartialInsertion(t *testing.T) {
	r := New()
	first := agent.New(struct{}{}).WithName("dup")
	second := agent.New(struct{}{}).WithName("dup")

	_, err := r.RegisterNamed("dup", first)
	require.NoError(t, err)

	_, err = r.RegisterNamed("dup", second)
	require.Error(t, err)

	_, ok := r.LookupByName("dup")
	require.True(t, ok)
	require.Equal(t, 1, r.AgentCount())
}

func TestPauseDefersAndResumeDrainsImmediately(t *testing.T) {
	r := New()
	consumer := newConsumer()
	consumerID, err := r.RegisterNamed("consumer", consumer)
	require.NoError(t, err)
	r.StartByID(consumerID)
	r.PauseByID(consumerID)

	require.NoError(t, SendByID(r, consumerID, response{R: 4}))
	require.False(t, r.HasPendingWork(), "paused agent must not be drained by Step")

	ok, err := r.ResumeByID(consumerID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, consumer.Value().Total, "resume must drain the backlog immediately")
}

func TestStopClearsMailbox(t *testing.T) {
	r := New()
	consumer := newConsumer()
	consumerID, _ := r.RegisterNamed("consumer", consumer)
	r.StartByID(consumerID)
	SendByID(r, consumerID, response{R: 1})

	ok, err := r.StopByID(consumerID)
	require.NoError(t, err)
	require.True(t, ok)

	h, _ := r.handle(consumerID)
	require.Equal(t, mailbox.Stopped, h.State())
	require.False(t, h.NeedsDrain())
}

func TestProcessAllPendingRunsUntilDry(t *testing.T) {
	r := New()
	producer := newProducer()
	consumer := newConsumer()
	producerID, _ := r.RegisterNamed("producer", producer)
	r.RegisterNamed("consumer", consumer)
	r.StartAll()

	SendByID(r, producerID, request{V: 3})
	steps := r.ProcessAllPending()
	require.GreaterOrEqual(t, steps, 2)
	require.Equal(t, 6, consumer.Value().Total)
}

func TestStatsReflectsPopulation(t *testing.T) {
	r := New()
	producer := newProducer()
	consumer := newConsumer()
	r.RegisterNamed("producer", producer)
	r.RegisterNamed("consumer", consumer)

	stats := r.Stats()
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 2, stats.Stopped)

	r.StartAll()
	stats = r.Stats()
	require.Equal(t, 2, stats.Running)
}
