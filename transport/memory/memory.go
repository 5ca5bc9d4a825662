// Package memory implements transport.Network as an in-process
// broadcast hub: one buffered Go channel per joined endpoint, delivery
// best-effort (a slow or absent reader simply misses envelopes rather
// than blocking the sender). Grounded on the EventBus pattern used in
// the example pack's agent-swarm implementation.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tenzoki/actorrt/envelope"
	"github.com/tenzoki/actorrt/transport"
)

const inboxCapacity = 64

// Network is an in-memory transport.Network. The zero value is not
// useful; construct with New.
type Network struct {
	mu     sync.RWMutex
	joined map[*endpoint]struct{}
	next   int
	closed bool
}

// New returns an empty, open Network.
func New() *Network {
	return &Network{joined: make(map[*endpoint]struct{})}
}

// Join attaches a new endpoint to the hub.
func (n *Network) Join() (transport.Endpoint, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, transport.ErrClosed
	}
	n.next++
	ep := &endpoint{
		net:   n,
		addr:  transport.Address(fmt.Sprintf("mem-%d", n.next)),
		inbox: make(chan *envelope.Envelope, inboxCapacity),
	}
	n.joined[ep] = struct{}{}
	return ep, nil
}

// Close shuts the hub down; every joined endpoint's Receive returns
// transport.ErrClosed from then on.
func (n *Network) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	for ep := range n.joined {
		close(ep.inbox)
	}
	n.joined = nil
	return nil
}

func (n *Network) broadcast(from *endpoint, env *envelope.Envelope) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ep := range n.joined {
		if ep == from {
			continue
		}
		select {
		case ep.inbox <- env:
		default:
			// best-effort: a full inbox drops the envelope rather than
			// blocking the sender.
		}
	}
}

func (n *Network) leave(ep *endpoint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.joined[ep]; ok {
		delete(n.joined, ep)
		close(ep.inbox)
	}
}

type endpoint struct {
	net   *Network
	addr  transport.Address
	inbox chan *envelope.Envelope
}

func (e *endpoint) Address() transport.Address { return e.addr }

func (e *endpoint) Send(env *envelope.Envelope) error {
	e.net.broadcast(e, env)
	return nil
}

func (e *endpoint) Receive(ctx context.Context) (*envelope.Envelope, error) {
	select {
	case env, ok := <-e.inbox:
		if !ok {
			return nil, transport.ErrClosed
		}
		return env, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *endpoint) Close() error {
	e.net.leave(e)
	return nil
}
