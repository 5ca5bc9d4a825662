// Package agent implements the C4 agent object: user state bound to a
// handler table, a mailbox, and a lifecycle, exposed to the runtime
// behind a single erased interface so it can hold agents of many
// concrete state types.
//
// A single message type maps to at most one handler per agent;
// re-registration overwrites (see RegisterHandler).
package agent

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tenzoki/actorrt/envelope"
	"github.com/tenzoki/actorrt/mailbox"
	"github.com/tenzoki/actorrt/tag"
)

// ID is a process-wide unique, monotonically generated agent identifier.
// Stable for the lifetime of the process; never reused.
type ID uint64

func (id ID) String() string {
	return fmt.Sprintf("agent-%d", uint64(id))
}

var nextID uint64

func newID() ID {
	return ID(atomic.AddUint64(&nextID, 1))
}

// invoker is the type-erased handler entry: it downcasts state (which is
// always safe here, since the table lives inside the Agent[S] whose S
// was fixed at registration) and unpackages the envelope's payload.
type invoker[S any] func(state *S, env *envelope.Envelope) (Outcome, bool)

// Handle is the erased interface the Runtime holds. Agent[S] implements
// it for every S, letting the runtime manage heterogeneous agents
// without knowing their concrete state types.
type Handle interface {
	ID() ID
	Name() (string, bool)

	State() mailbox.State
	IsActive() bool
	Start() bool
	Pause() bool
	Resume() bool
	Stop() bool

	Enqueue(env *envelope.Envelope) bool
	NeedsDrain() bool
	Accepts(t tag.Tag) bool

	// Drain removes and handles every queued envelope in FIFO order,
	// stopping immediately if a handler outcome is Stop. It does not
	// itself transition lifecycle state on Stop; the caller (normally
	// the Runtime) is responsible for calling Stop() once it has
	// observed a Stop outcome.
	Drain() []Outcome
}

// Agent binds user state S to a handler table, a mailbox, and a
// lifecycle. Construct with New, register handlers with the package
// level RegisterHandler function (methods cannot introduce new type
// parameters in Go), then hand it to a Runtime via Register/RegisterNamed.
type Agent[S any] struct {
	id   ID
	name string

	state    *S
	handlers map[tag.Tag]invoker[S]

	mb *mailbox.Mailbox
	lg *zap.Logger

	// Lifecycle callbacks return `any`, coerced through the same rule as
	// a handler's return (see coerceOutcome). The in-process lifecycle
	// methods (Start/Pause/Resume/Stop) discard the coerced outcome; the
	// transport-variant runner uses the *Outcome counterparts to emit it
	// onto the network, per §4.6.
	onStart  func(*S) any
	onPause  func(*S) any
	onResume func(*S) any
	onStop   func(*S) any
}

// New constructs a Stopped agent wrapping state, with an empty handler
// table and mailbox. Use the With* builders to configure it before
// registering it with a Runtime.
func New[S any](state S) *Agent[S] {
	return &Agent[S]{
		id:       newID(),
		state:    &state,
		handlers: make(map[tag.Tag]invoker[S]),
		mb:       mailbox.New(),
		lg:       zap.NewNop(),
	}
}

// WithName sets the agent's optional human-readable label.
func (a *Agent[S]) WithName(name string) *Agent[S] {
	a.name = name
	return a
}

// WithLogger attaches a structured logger used for decode-failure
// diagnostics during drain. Defaults to a no-op logger.
func (a *Agent[S]) WithLogger(lg *zap.Logger) *Agent[S] {
	if lg != nil {
		a.lg = lg
	}
	return a
}

// OnStart registers the callback fired on Stopped -> Running. Its
// return is ignored by the in-process lifecycle methods and emitted as
// a reply by the transport-variant runner.
func (a *Agent[S]) OnStart(fn func(*S) any) *Agent[S] { a.onStart = fn; return a }

// OnPause registers the callback fired on Running -> Paused.
func (a *Agent[S]) OnPause(fn func(*S) any) *Agent[S] { a.onPause = fn; return a }

// OnResume registers the callback fired on Paused -> Running, before the
// backlog drain.
func (a *Agent[S]) OnResume(fn func(*S) any) *Agent[S] { a.onResume = fn; return a }

// OnStop registers the callback fired on any transition to Stopped.
func (a *Agent[S]) OnStop(fn func(*S) any) *Agent[S] { a.onStop = fn; return a }

// Value returns the concrete user state, for tests and callers that
// built the agent themselves and want to inspect it directly (the
// Runtime never needs this — it only ever sees the erased Handle).
func (a *Agent[S]) Value() *S { return a.state }

// RegisterHandler registers the handler for message type M on agent a,
// overwriting any previous handler for the same type. fn receives the
// agent's concrete state and the decoded message, and returns one of:
//   - nil, or a nil-valued pointer/interface: coerced to Outcome{Kind: None}
//   - agent.StopAgent: coerced to Outcome{Kind: Stop}
//   - any other value R: coerced to Outcome{Kind: Reply, Envel: Package(R)}
//
// Go does not allow a method to introduce a new type parameter, so this
// is a package-level function rather than a method on Agent[S].
func RegisterHandler[S any, M any](a *Agent[S], fn func(*S, M) any) *Agent[S] {
	want := tag.Of[M]()
	a.handlers[want] = func(state *S, env *envelope.Envelope) (Outcome, bool) {
		msg, ok := envelope.Unpackage[M](env)
		if !ok {
			return Outcome{}, false
		}
		out := coerceOutcome(fn(state, msg))
		if out.Kind == Reply {
			out.Envel.CorrelationID = env.ID
		}
		return out, true
	}
	return a
}

// coerceOutcome implements the return-value coercion rule from §4.2: a
// bare reply becomes Reply, nil (including a typed nil pointer/interface,
// which Go boxes as a non-nil `any` with a nil underlying value) becomes
// None, and the StopAgent sentinel becomes Stop.
func coerceOutcome(v any) Outcome {
	if v == nil {
		return Outcome{Kind: None}
	}
	if isStopSignal(v) {
		return Outcome{Kind: Stop}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		if rv.IsNil() {
			return Outcome{Kind: None}
		}
	}
	return Outcome{Kind: Reply, Envel: dynamicPackage(v)}
}

// dynamicPackage builds a local envelope for a reply whose concrete type
// is only known dynamically (the handler's return type is `any`). It
// derives the tag from the runtime type, matching what a statically
// typed envelope.Package[M] call with M == reflect.TypeOf(v) would
// produce.
func dynamicPackage(v any) *envelope.Envelope {
	return envelope.PackageDynamic(v)
}

// ID returns the agent's process-wide unique identifier.
func (a *Agent[S]) ID() ID { return a.id }

// Name returns the agent's optional label and whether one was set.
func (a *Agent[S]) Name() (string, bool) { return a.name, a.name != "" }

// State returns the agent's current lifecycle state.
func (a *Agent[S]) State() mailbox.State { return a.mb.State() }

// IsActive reports whether the agent is Running.
func (a *Agent[S]) IsActive() bool { return a.mb.State() == mailbox.Running }

// Start transitions Stopped -> Running, firing onStart if it did.
func (a *Agent[S]) Start() bool {
	ok, _ := a.StartOutcome()
	return ok
}

// StartOutcome is Start, additionally returning the coerced outcome of
// onStart for callers (the transport runner) that need to route it.
func (a *Agent[S]) StartOutcome() (bool, Outcome) {
	if !a.mb.Start() {
		return false, Outcome{}
	}
	return true, a.fire(a.onStart)
}

// Pause transitions Running -> Paused, firing onPause if it did.
func (a *Agent[S]) Pause() bool {
	ok, _ := a.PauseOutcome()
	return ok
}

// PauseOutcome is Pause, additionally returning onPause's coerced outcome.
func (a *Agent[S]) PauseOutcome() (bool, Outcome) {
	if !a.mb.Pause() {
		return false, Outcome{}
	}
	return true, a.fire(a.onPause)
}

// Resume transitions Paused -> Running, firing onResume if it did. The
// resume-drain rule (draining the backlog as part of resume) is the
// Runtime's responsibility: it calls Drain immediately after observing
// a successful Resume.
func (a *Agent[S]) Resume() bool {
	ok, _ := a.ResumeOutcome()
	return ok
}

// ResumeOutcome is Resume, additionally returning onResume's coerced outcome.
func (a *Agent[S]) ResumeOutcome() (bool, Outcome) {
	if !a.mb.Resume() {
		return false, Outcome{}
	}
	return true, a.fire(a.onResume)
}

// Stop transitions Running or Paused -> Stopped, clearing the mailbox
// and firing onStop if it did.
func (a *Agent[S]) Stop() bool {
	ok, _ := a.StopOutcome()
	return ok
}

// StopOutcome is Stop, additionally returning onStop's coerced outcome.
func (a *Agent[S]) StopOutcome() (bool, Outcome) {
	if !a.mb.Stop() {
		return false, Outcome{}
	}
	return true, a.fire(a.onStop)
}

func (a *Agent[S]) fire(cb func(*S) any) Outcome {
	if cb == nil {
		return Outcome{Kind: None}
	}
	return coerceOutcome(cb(a.state))
}

// Enqueue appends env to the mailbox, subject to the lifecycle's
// enqueue rules (dropped silently when Stopped).
func (a *Agent[S]) Enqueue(env *envelope.Envelope) bool {
	return a.mb.Enqueue(env)
}

// NeedsDrain reports whether the scheduler should drain this agent this
// step: Running with a non-empty mailbox.
func (a *Agent[S]) NeedsDrain() bool { return a.mb.NeedsDrain() }

// Accepts reports whether the handler table has an entry for t, used by
// the runtime to implement broadcast selectivity (P8).
func (a *Agent[S]) Accepts(t tag.Tag) bool {
	_, ok := a.handlers[t]
	return ok
}

// Drain removes and handles every queued envelope in FIFO order. An
// envelope with no registered handler is discarded (the undeliverable-
// message policy); a wire envelope that fails to decode is dropped with
// a logged diagnostic. A Stop outcome terminates the drain immediately;
// any envelopes still queued remain until the agent is actually
// transitioned to Stopped by the caller.
func (a *Agent[S]) Drain() []Outcome {
	var outcomes []Outcome
	for {
		env, ok := a.mb.PopFront()
		if !ok {
			break
		}
		outcome, handled := a.HandleOne(env)
		if !handled {
			continue
		}
		outcomes = append(outcomes, outcome)
		if outcome.Kind == Stop {
			break
		}
	}
	return outcomes
}

// HandleOne dispatches a single envelope through the handler table,
// bypassing the mailbox entirely. Used directly by the mailbox-less
// transport variant (§4.6); Drain uses it too, once per popped envelope.
// Returns handled == false for an undeliverable message (no handler) or
// a decode failure — both are discard cases, differing only in whether
// a diagnostic is logged.
func (a *Agent[S]) HandleOne(env *envelope.Envelope) (Outcome, bool) {
	env.AddHop(a.label())

	entry, ok := a.handlers[env.Tag]
	if !ok {
		return Outcome{}, false // undeliverable: silently discard
	}
	outcome, decoded := entry(a.state, env)
	if !decoded {
		a.lg.Debug("dropping envelope: payload decode failed",
			zap.String("agent", a.label()), zap.String("type", env.TypeName))
		return Outcome{}, false
	}
	return outcome, true
}

func (a *Agent[S]) label() string {
	if a.name != "" {
		return a.name
	}
	return a.id.String()
}

// compile-time check that Agent[S] satisfies Handle for any S.
var _ Handle = (*Agent[struct{}])(nil)
