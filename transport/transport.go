// Package transport defines the C6 contract: a pluggable carrier of
// opaque envelopes between agents over a network-like channel, used in
// place of the in-process mailbox. The scheduler (runtime package) does
// not implement reply fan-out for this variant — fan-out is a property
// of the network's own broadcast semantics (see the Open Question in
// DESIGN.md).
//
// Concrete implementations (transport/memory, transport/tcp,
// transport/ws) all satisfy Network/Endpoint with best-effort broadcast
// delivery: everything sent is seen by every other joined endpoint.
package transport

import (
	"context"
	"fmt"

	"github.com/tenzoki/actorrt/envelope"
)

// Address identifies an endpoint on a Network. It is a plain string so
// it is trivially comparable, hashable, and displayable, matching the
// spec's requirement for the associated Address type without Go needing
// generics-level associated types to express it.
type Address string

func (a Address) String() string { return string(a) }

// Network is a carrier of envelopes shared by every endpoint joined to
// it. Join obtains a second (or Nth) endpoint on an existing network;
// broadcast fan-out is a property of the Network, not of any one
// Endpoint or of the scheduler.
type Network interface {
	// Join returns a new endpoint attached to this network.
	Join() (Endpoint, error)
	// Close shuts the network down; joined endpoints observe Receive
	// returning ErrClosed from then on.
	Close() error
}

// Endpoint is one participant's view of a Network.
type Endpoint interface {
	// Address returns this endpoint's own address.
	Address() Address
	// Send delivers env asynchronously; delivery is best-effort
	// broadcast to every other joined endpoint.
	Send(env *envelope.Envelope) error
	// Receive blocks until an envelope arrives, ctx is done, or the
	// network closes. A closed network yields ErrClosed.
	Receive(ctx context.Context) (*envelope.Envelope, error)
	// Close detaches this endpoint from the network.
	Close() error
}

// ErrClosed is returned by Receive once the network (or this endpoint)
// has been closed and no further envelopes will arrive.
var ErrClosed = fmt.Errorf("transport: network closed")
