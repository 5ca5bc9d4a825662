package transport

import (
	"context"

	"go.uber.org/zap"

	"github.com/tenzoki/actorrt/agent"
	"github.com/tenzoki/actorrt/envelope"
	"github.com/tenzoki/actorrt/mailbox"
)

// Signal is a control message delivered to a Runner's cooperative task,
// alongside incoming envelopes, per §4.6.
type Signal int

const (
	// SigStart invokes onStart and emits its return via Send.
	SigStart Signal = iota
	// SigStop invokes onStop, emits its return, and terminates Run.
	SigStop
	// SigGetState requests the current lifecycle state be sent on the
	// Runner's state channel (see Runner.States).
	SigGetState
)

// Runner drives one agent's cooperative task against a joined Endpoint:
// it selects between control signals and incoming envelopes, dispatching
// each envelope through the agent's handler table and emitting any
// resulting outcome back onto the network instead of into a local
// mailbox — the transport variant has no mailbox to speak of.
type Runner[S any] struct {
	Agent *agent.Agent[S]
	Ep    Endpoint

	lg      *zap.Logger
	states  chan mailbox.State
	control chan Signal
}

// NewRunner builds a Runner for a, joined to ep. The agent starts
// Stopped, as constructed; send SigStart on Control() to begin.
func NewRunner[S any](a *agent.Agent[S], ep Endpoint) *Runner[S] {
	return &Runner[S]{
		Agent:   a,
		Ep:      ep,
		lg:      zap.NewNop(),
		states:  make(chan mailbox.State, 1),
		control: make(chan Signal, 4),
	}
}

// WithLogger attaches a structured logger for send/receive diagnostics.
func (r *Runner[S]) WithLogger(lg *zap.Logger) *Runner[S] {
	if lg != nil {
		r.lg = lg
	}
	return r
}

// Control returns the channel used to deliver Start/Stop/GetState
// signals to the running task.
func (r *Runner[S]) Control() chan<- Signal { return r.control }

// States returns the channel SigGetState responses are delivered on.
func (r *Runner[S]) States() <-chan mailbox.State { return r.states }

// Run executes the cooperative task until ctx is done, the endpoint
// closes, or a SigStop is processed. It is meant to be run in its own
// goroutine, the way the teacher's agent framework runs its message
// processing loop.
func (r *Runner[S]) Run(ctx context.Context) error {
	envCh := make(chan envOrErr)
	recvCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.receiveLoop(recvCtx, envCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case sig := <-r.control:
			if done, err := r.handleSignal(sig); done {
				return err
			}

		case item := <-envCh:
			if item.err != nil {
				r.lg.Debug("transport runner: receive ended", zap.Error(item.err))
				return item.err
			}
			r.dispatch(item.env)
		}
	}
}

type envOrErr struct {
	env *envelope.Envelope
	err error
}

func (r *Runner[S]) receiveLoop(ctx context.Context, out chan<- envOrErr) {
	for {
		env, err := r.Ep.Receive(ctx)
		select {
		case out <- envOrErr{env: env, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (r *Runner[S]) handleSignal(sig Signal) (done bool, err error) {
	switch sig {
	case SigStart:
		if ok, out := r.Agent.StartOutcome(); ok {
			r.emit(out)
		}
		return false, nil
	case SigStop:
		_, out := r.Agent.StopOutcome()
		r.emit(out)
		return true, nil
	case SigGetState:
		select {
		case r.states <- r.Agent.State():
		default:
		}
		return false, nil
	default:
		return false, nil
	}
}

func (r *Runner[S]) dispatch(env *envelope.Envelope) {
	if !r.Agent.IsActive() {
		return // only a Running agent invokes handlers
	}
	outcome, handled := r.Agent.HandleOne(env)
	if !handled {
		return
	}
	r.emit(outcome)
	if outcome.Kind == agent.Stop {
		r.Agent.Stop()
	}
}

func (r *Runner[S]) emit(out agent.Outcome) {
	if out.Kind != agent.Reply {
		return
	}
	if err := r.Ep.Send(out.Envel); err != nil {
		r.lg.Debug("transport runner: send failed", zap.Error(err))
	}
}
