// Package mailbox implements the per-agent FIFO envelope queue and the
// Stopped/Running/Paused lifecycle state machine that governs it.
package mailbox

import (
	"sync"

	"github.com/tenzoki/actorrt/envelope"
)

// State is one node of the agent lifecycle state machine.
type State int

const (
	// Stopped is the initial state: mailbox is empty, enqueues are
	// silently dropped.
	Stopped State = iota
	// Running drains and invokes handlers.
	Running
	// Paused accepts enqueues but does not drain.
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Mailbox is a FIFO queue of envelopes guarded by the lifecycle state
// machine. All methods are safe for concurrent use, though the runtime's
// cooperative single-threaded step never actually contends on the lock;
// it exists so an agent can be driven manually (outside a Runtime) from
// more than one goroutine without corrupting the queue.
type Mailbox struct {
	mu         sync.Mutex
	state      State
	queue      []*envelope.Envelope
	hasPending bool
}

// New returns a Mailbox in the Stopped state with an empty queue.
func New() *Mailbox {
	return &Mailbox{state: Stopped}
}

// State returns the current lifecycle state.
func (m *Mailbox) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HasPending reports whether the queue is non-empty, for O(1) "needs
// attention" checks during a scheduler sweep.
func (m *Mailbox) HasPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasPending
}

// Len returns the number of envelopes currently queued.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Enqueue appends env to the queue if the mailbox is Running or Paused,
// and reports whether it was accepted. A Stopped mailbox drops env
// silently: the caller observes no effect, never an error.
func (m *Mailbox) Enqueue(env *envelope.Envelope) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Stopped {
		return false
	}
	m.queue = append(m.queue, env)
	m.hasPending = true
	return true
}

// PopFront removes and returns the oldest queued envelope. Ordinarily
// only called by the scheduler while Running; any caller observing
// ok == false has drained the queue to empty.
func (m *Mailbox) PopFront() (*envelope.Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil, false
	}
	env := m.queue[0]
	m.queue = m.queue[1:]
	if len(m.queue) == 0 {
		m.hasPending = false
	}
	return env, true
}

// NeedsDrain reports whether the scheduler should drain this mailbox:
// Running with at least one queued envelope.
func (m *Mailbox) NeedsDrain() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Running && m.hasPending
}

// Start transitions Stopped -> Running and reports whether it did.
// Ignored from any other state (no-op, not an error).
func (m *Mailbox) Start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Stopped {
		return false
	}
	m.state = Running
	return true
}

// Pause transitions Running -> Paused and reports whether it did.
func (m *Mailbox) Pause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Running {
		return false
	}
	m.state = Paused
	return true
}

// Resume transitions Paused -> Running and reports whether it did. The
// caller is responsible for draining the backlog immediately afterward
// (the resume-drain rule): Mailbox only tracks state, it does not invoke
// handlers.
func (m *Mailbox) Resume() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Paused {
		return false
	}
	m.state = Running
	return true
}

// Stop transitions Running or Paused -> Stopped, clearing the queue, and
// reports whether it did.
func (m *Mailbox) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Stopped {
		return false
	}
	m.state = Stopped
	m.queue = nil
	m.hasPending = false
	return true
}
