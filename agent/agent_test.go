package agent

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenzoki/actorrt/envelope"
)

type counterState struct {
	Total int
}

type addMsg struct{ N int }
type queryMsg struct{}
type totalMsg struct{ Total int }

func newCounter() *Agent[counterState] {
	a := New(counterState{}).WithName("counter")
	RegisterHandler(a, func(s *counterState, m addMsg) any {
		s.Total += m.N
		return nil
	})
	RegisterHandler(a, func(s *counterState, _ queryMsg) any {
		return totalMsg{Total: s.Total}
	})
	return a
}

func TestAgentAccumulatesWhileRunning(t *testing.T) {
	a := newCounter()
	require.True(t, a.Start())
	require.True(t, a.Enqueue(envelope.Package(addMsg{N: 5})))
	outcomes := a.Drain()
	require.Len(t, outcomes, 1)
	require.Equal(t, None, outcomes[0].Kind)
	require.Equal(t, 5, a.Value().Total)
}

func TestAgentIgnoresEnqueueWhenStopped(t *testing.T) {
	a := newCounter()
	require.False(t, a.Enqueue(envelope.Package(addMsg{N: 1})))
	require.Equal(t, 0, a.Value().Total)
}

func TestHandlerReturnCoercedToReply(t *testing.T) {
	a := newCounter()
	a.Start()
	a.Value().Total = 3
	a.Enqueue(envelope.Package(queryMsg{}))
	outcomes := a.Drain()
	require.Len(t, outcomes, 1)
	require.Equal(t, Reply, outcomes[0].Kind)
	got, ok := envelope.Unpackage[totalMsg](outcomes[0].Envel)
	require.True(t, ok)
	require.Equal(t, 3, got.Total)
}

func TestHandlerReturnStopAgentCoercedToStop(t *testing.T) {
	type stopMsg struct{}
	a := New(struct{}{})
	RegisterHandler(a, func(_ *struct{}, _ stopMsg) any { return StopAgent })
	a.Start()
	a.Enqueue(envelope.Package(stopMsg{}))
	outcomes := a.Drain()
	require.Len(t, outcomes, 1)
	require.Equal(t, Stop, outcomes[0].Kind)
}

func TestDrainStopsAtFirstStopOutcome(t *testing.T) {
	type stopMsg struct{}
	a := New(struct{}{})
	RegisterHandler(a, func(_ *struct{}, _ stopMsg) any { return StopAgent })
	RegisterHandler(a, func(_ *struct{}, _ addMsg) any { return nil })
	a.Start()
	a.Enqueue(envelope.Package(stopMsg{}))
	a.Enqueue(envelope.Package(addMsg{N: 1}))

	outcomes := a.Drain()
	require.Len(t, outcomes, 1)
	require.Equal(t, Stop, outcomes[0].Kind)
	require.Equal(t, 1, a.mb.Len(), "the envelope after Stop must remain queued")
}

func TestUndeliverableMessageIsDiscarded(t *testing.T) {
	a := newCounter()
	a.Start()
	type unknownMsg struct{}
	a.Enqueue(envelope.Package(unknownMsg{}))
	outcomes := a.Drain()
	require.Empty(t, outcomes)
}

func TestRegisterHandlerOverwritesOnDuplicateRegistration(t *testing.T) {
	a := New(counterState{})
	RegisterHandler(a, func(s *counterState, m addMsg) any {
		s.Total += m.N
		return nil
	})
	RegisterHandler(a, func(s *counterState, m addMsg) any {
		s.Total += 2 * m.N
		return nil
	})
	a.Start()
	a.Enqueue(envelope.Package(addMsg{N: 1}))
	a.Drain()
	require.Equal(t, 2, a.Value().Total, "second registration must replace the first")
}

func TestLifecycleCallbacksFireOnTransition(t *testing.T) {
	var started, paused, resumed, stopped bool
	a := New(struct{}{})
	a.OnStart(func(_ *struct{}) any { started = true; return nil })
	a.OnPause(func(_ *struct{}) any { paused = true; return nil })
	a.OnResume(func(_ *struct{}) any { resumed = true; return nil })
	a.OnStop(func(_ *struct{}) any { stopped = true; return nil })

	a.Start()
	require.True(t, started)
	a.Pause()
	require.True(t, paused)
	a.Resume()
	require.True(t, resumed)
	a.Stop()
	require.True(t, stopped)
}

func TestStartOutcomeReportsCoercedReply(t *testing.T) {
	type readyMsg struct{}
	a := New(struct{}{})
	a.OnStart(func(_ *struct{}) any { return readyMsg{} })
	ok, outcome := a.StartOutcome()
	require.True(t, ok)
	require.Equal(t, Reply, outcome.Kind)
	_, decoded := envelope.Unpackage[readyMsg](outcome.Envel)
	require.True(t, decoded)
}

func TestAcceptsReflectsHandlerTable(t *testing.T) {
	a := newCounter()
	require.True(t, a.Accepts(envelope.Package(addMsg{}).Tag))
	type unregistered struct{}
	require.False(t, a.Accepts(envelope.Package(unregistered{}).Tag))
}

func TestHandleOneAddsHop(t *testing.T) {
	a := newCounter().WithName("c1")
	a.Start()
	env := envelope.Package(addMsg{N: 1})
	_, handled := a.HandleOne(env)
	require.True(t, handled)
	require.Equal(t, []string{"c1"}, env.Route)
}
