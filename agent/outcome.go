package agent

import "github.com/tenzoki/actorrt/envelope"

// Kind distinguishes the three shapes a handler's return can take once
// coerced.
type Kind int

const (
	// None means the handler produced nothing to route.
	None Kind = iota
	// Reply carries a new envelope to be fanned out by the runtime.
	Reply
	// Stop requests that the producing agent terminate.
	Stop
)

// Outcome is the coerced result of one handler invocation.
type Outcome struct {
	Kind  Kind
	Envel *envelope.Envelope // set iff Kind == Reply
}

// stopSignal is the sentinel a handler returns to request termination.
// Compare by type, not value, so any zero-sized instance works.
type stopSignal struct{}

// StopAgent is the value a handler returns to terminate its agent. It is
// coerced into Outcome{Kind: Stop}; any reply data the handler might
// have produced alongside it is discarded, matching the spec's tagged
// union (a handler's return is one of Reply, None, or Stop, never more
// than one).
var StopAgent any = stopSignal{}

func isStopSignal(v any) bool {
	_, ok := v.(stopSignal)
	return ok
}
