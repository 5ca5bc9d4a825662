package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tenzoki/actorrt/agent"
	"github.com/tenzoki/actorrt/envelope"
	"github.com/tenzoki/actorrt/transport"
	"github.com/tenzoki/actorrt/transport/memory"
)

type request struct{ V int }
type response struct{ R int }

func TestRunnerDispatchesAndEmitsReplyOverEndpoint(t *testing.T) {
	net := memory.New()
	agentEp, err := net.Join()
	require.NoError(t, err)
	observerEp, err := net.Join()
	require.NoError(t, err)

	a := agent.New(struct{}{})
	agent.RegisterHandler(a, func(_ *struct{}, req request) any {
		return response{R: req.V * 2}
	})

	runner := transport.NewRunner(a, agentEp)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	runner.Control() <- transport.SigStart
	require.Eventually(t, func() bool { return a.IsActive() }, time.Second, time.Millisecond)

	require.NoError(t, observerEp.Send(envelope.Package(request{V: 4})))

	recvCtx, recvCancel := context.WithTimeout(context.Background(), time.Second)
	defer recvCancel()
	reply, err := observerEp.Receive(recvCtx)
	require.NoError(t, err)
	got, ok := envelope.Unpackage[response](reply)
	require.True(t, ok)
	require.Equal(t, 8, got.R)

	runner.Control() <- transport.SigStop
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after SigStop")
	}
}

func TestRunnerGetStateReportsCurrentLifecycleState(t *testing.T) {
	net := memory.New()
	ep, err := net.Join()
	require.NoError(t, err)

	a := agent.New(struct{}{})
	runner := transport.NewRunner(a, ep)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	runner.Control() <- transport.SigGetState
	select {
	case st := <-runner.States():
		require.Equal(t, "stopped", st.String())
	case <-time.After(time.Second):
		t.Fatal("no state reported")
	}

	runner.Control() <- transport.SigStop
}
