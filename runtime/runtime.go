// Package runtime implements the C5 scheduler: it owns a heterogeneous
// collection of agents, mediates all routing into their mailboxes, and
// drives them forward in bounded cooperative steps.
//
// The scheduler is single-threaded cooperative: Step runs to completion
// on the caller's goroutine, invoking handlers synchronously. No handler
// runs concurrently with any other handler or with a routing call. A
// *Runtime itself is not safe for concurrent Step/routing calls from
// multiple goroutines — that would defeat the single-mutator model the
// spec requires — but registration bookkeeping is guarded so agents may
// be constructed (and thus assigned ids) from other goroutines.
package runtime

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/tenzoki/actorrt/agent"
	"github.com/tenzoki/actorrt/envelope"
	"github.com/tenzoki/actorrt/mailbox"
)

// Runtime owns an AgentId -> Agent mapping (insertion order not
// significant to lookups, but preserved in order for stable step
// iteration) and a Name -> AgentId secondary index. The transient
// per-step reply buffer is local to each Step call.
type Runtime struct {
	mu     sync.Mutex
	agents map[agent.ID]agent.Handle
	names  map[string]agent.ID
	order  []agent.ID

	lg *zap.Logger
}

// New returns an empty Runtime.
func New() *Runtime {
	return &Runtime{
		agents: make(map[agent.ID]agent.Handle),
		names:  make(map[string]agent.ID),
		lg:     zap.NewNop(),
	}
}

// WithLogger attaches a structured logger used for step diagnostics.
func (r *Runtime) WithLogger(lg *zap.Logger) *Runtime {
	if lg != nil {
		r.lg = lg
	}
	return r
}

// Register moves h into the runtime and returns its id. The agent
// starts Stopped, as constructed.
func (r *Runtime) Register(h agent.Handle) agent.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[h.ID()] = h
	r.order = append(r.order, h.ID())
	return h.ID()
}

// RegisterNamed registers h and additionally indexes it by name.
// Duplicate names are rejected: the agent is not inserted and an error
// is returned, matching the no-partial-insertion requirement.
func (r *Runtime) RegisterNamed(name string, h agent.Handle) (agent.ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.names[name]; exists {
		return 0, fmt.Errorf("runtime: name %q already registered", name)
	}
	r.agents[h.ID()] = h
	r.order = append(r.order, h.ID())
	r.names[name] = h.ID()
	return h.ID(), nil
}

// Spawn registers h and immediately starts it.
func (r *Runtime) Spawn(h agent.Handle) agent.ID {
	id := r.Register(h)
	h.Start()
	return id
}

// SpawnNamed registers h under name and immediately starts it. On a
// duplicate name, the agent is not registered or started.
func (r *Runtime) SpawnNamed(name string, h agent.Handle) (agent.ID, error) {
	id, err := r.RegisterNamed(name, h)
	if err != nil {
		return 0, err
	}
	h.Start()
	return id, nil
}

// RemoveByID removes and returns the agent, untouched (the caller may
// continue to drive it manually). Any name index entry is dropped too.
func (r *Runtime) RemoveByID(id agent.ID) (agent.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.agents[id]
	if !ok {
		return nil, false
	}
	delete(r.agents, id)
	r.removeFromOrder(id)
	for name, nid := range r.names {
		if nid == id {
			delete(r.names, name)
			break
		}
	}
	return h, true
}

// RemoveByName resolves name then delegates to RemoveByID.
func (r *Runtime) RemoveByName(name string) (agent.Handle, bool) {
	r.mu.Lock()
	id, ok := r.names[name]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	return r.RemoveByID(id)
}

func (r *Runtime) removeFromOrder(id agent.ID) {
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// LookupByName resolves a name to an agent id.
func (r *Runtime) LookupByName(name string) (agent.ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.names[name]
	return id, ok
}

// handle looks up a registered agent, reporting an "unknown id" error in
// the shape routing/lifecycle calls surface to callers.
func (r *Runtime) handle(id agent.ID) (agent.Handle, error) {
	h, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("runtime: unknown agent id %v", id)
	}
	return h, nil
}

// --- Lifecycle by id/name ---

// StartByID transitions the agent Stopped -> Running.
func (r *Runtime) StartByID(id agent.ID) (bool, error) {
	h, err := r.handle(id)
	if err != nil {
		return false, err
	}
	return h.Start(), nil
}

// PauseByID transitions the agent Running -> Paused.
func (r *Runtime) PauseByID(id agent.ID) (bool, error) {
	h, err := r.handle(id)
	if err != nil {
		return false, err
	}
	return h.Pause(), nil
}

// ResumeByID transitions the agent Paused -> Running and, per the
// resume-drain rule, immediately drains its backlog and fans any
// resulting replies into the rest of the runtime.
func (r *Runtime) ResumeByID(id agent.ID) (bool, error) {
	h, err := r.handle(id)
	if err != nil {
		return false, err
	}
	return r.resumeAndDrain(h), nil
}

// StopByID transitions the agent to Stopped, clearing its mailbox.
func (r *Runtime) StopByID(id agent.ID) (bool, error) {
	h, err := r.handle(id)
	if err != nil {
		return false, err
	}
	return h.Stop(), nil
}

func (r *Runtime) resumeAndDrain(h agent.Handle) bool {
	if !h.Resume() {
		return false
	}
	outcomes := safeDrain(h)
	r.processOutcomes(h, outcomes)
	return true
}

// safeDrain invokes h.Drain(), recovering a panicking handler only to
// attach the offending agent's identity before re-panicking. The spec
// makes no guarantee about mailbox state after a handler panic and this
// does not change that — it is a diagnostic aid, not isolation.
func safeDrain(h agent.Handle) (outcomes []agent.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			name, _ := h.Name()
			panic(fmt.Sprintf("runtime: handler panic in agent %v (%s): %v", h.ID(), name, rec))
		}
	}()
	return h.Drain()
}

// --- Lifecycle by name ---

// StartByName resolves name then delegates to StartByID.
func (r *Runtime) StartByName(name string) (bool, error) {
	id, ok := r.LookupByName(name)
	if !ok {
		return false, fmt.Errorf("runtime: unknown agent name %q", name)
	}
	return r.StartByID(id)
}

// PauseByName resolves name then delegates to PauseByID.
func (r *Runtime) PauseByName(name string) (bool, error) {
	id, ok := r.LookupByName(name)
	if !ok {
		return false, fmt.Errorf("runtime: unknown agent name %q", name)
	}
	return r.PauseByID(id)
}

// ResumeByName resolves name then delegates to ResumeByID.
func (r *Runtime) ResumeByName(name string) (bool, error) {
	id, ok := r.LookupByName(name)
	if !ok {
		return false, fmt.Errorf("runtime: unknown agent name %q", name)
	}
	return r.ResumeByID(id)
}

// StopByName resolves name then delegates to StopByID.
func (r *Runtime) StopByName(name string) (bool, error) {
	id, ok := r.LookupByName(name)
	if !ok {
		return false, fmt.Errorf("runtime: unknown agent name %q", name)
	}
	return r.StopByID(id)
}

// --- Bulk operations ---

// StartAll starts every registered agent, returning the number that
// actually transitioned. Panics from individual onStart callbacks are
// recovered and aggregated so one misbehaving agent cannot abort the
// sweep over the rest.
func (r *Runtime) StartAll() (int, error) {
	return r.bulk(func(h agent.Handle) bool { return h.Start() })
}

// PauseAll pauses every registered agent, returning the number that
// actually transitioned.
func (r *Runtime) PauseAll() (int, error) {
	return r.bulk(func(h agent.Handle) bool { return h.Pause() })
}

// ResumeAll resumes every registered agent (applying the resume-drain
// rule to each), returning the number that actually transitioned.
func (r *Runtime) ResumeAll() (int, error) {
	return r.bulk(r.resumeAndDrain)
}

// StopAll stops every registered agent, returning the number that
// actually transitioned.
func (r *Runtime) StopAll() (int, error) {
	return r.bulk(func(h agent.Handle) bool { return h.Stop() })
}

func (r *Runtime) bulk(transition func(agent.Handle) bool) (count int, rerr error) {
	var errs *multierror.Error
	for _, id := range r.order {
		h := r.agents[id]
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					errs = multierror.Append(errs, fmt.Errorf("agent %v: %v", id, rec))
				}
			}()
			if transition(h) {
				count++
			}
		}()
	}
	return count, errs.ErrorOrNil()
}

// --- Routing ---

// Broadcast packages msg once and enqueues it into every agent whose
// handler table accepts M, returning the number of agents it was
// delivered to. A package-level function, since a method cannot
// introduce the type parameter M.
func Broadcast[M any](r *Runtime, msg M) int {
	env := envelope.Package(msg)
	return r.broadcastEnvelope(env)
}

func (r *Runtime) broadcastEnvelope(env *envelope.Envelope) int {
	delivered := 0
	for _, id := range r.order {
		h := r.agents[id]
		if h.Accepts(env.Tag) {
			if h.Enqueue(env.Clone()) {
				delivered++
			}
		}
	}
	return delivered
}

// SendByID packages msg and enqueues it into the agent named by id,
// regardless of whether its handler table accepts M (the envelope is
// discarded at drain if not). Returns an error only if id is unknown.
func SendByID[M any](r *Runtime, id agent.ID, msg M) error {
	h, err := r.handle(id)
	if err != nil {
		return err
	}
	h.Enqueue(envelope.Package(msg))
	return nil
}

// SendByName resolves name then delegates to SendByID.
func SendByName[M any](r *Runtime, name string, msg M) error {
	id, ok := r.LookupByName(name)
	if !ok {
		return fmt.Errorf("runtime: unknown agent name %q", name)
	}
	return SendByID(r, id, msg)
}

// --- Stepping ---

// StepResult summarizes one Step call.
type StepResult struct {
	Drained int        // agents that were drained
	Handled int        // envelopes handled across all drained agents
	Replied int        // replies fanned out to recipient mailboxes
	Stopped []agent.ID // agents that transitioned to Stopped this step
}

// Step performs one cooperative tick: a drain pass over every agent
// with pending work, then a reply fan-out pass. The fan-out pass only
// enqueues replies into accepting mailboxes, it never invokes handlers,
// so those replies are never processed in the same step; they become
// work for the next Step. This bounded-step rule
// guarantees Step always returns even with self-sustaining reply
// cycles (P6).
func (r *Runtime) Step() StepResult {
	var result StepResult
	var produced []producedOutcome

	for _, id := range r.order {
		h := r.agents[id]
		if !h.NeedsDrain() {
			continue
		}
		result.Drained++
		outcomes := safeDrain(h)
		result.Handled += len(outcomes)
		for _, o := range outcomes {
			produced = append(produced, producedOutcome{producer: id, outcome: o})
		}
	}

	for _, p := range produced {
		switch p.outcome.Kind {
		case agent.Reply:
			result.Replied += r.broadcastEnvelope(p.outcome.Envel)
		case agent.Stop:
			if h, ok := r.agents[p.producer]; ok && h.Stop() {
				result.Stopped = append(result.Stopped, p.producer)
			}
		}
	}

	return result
}

type producedOutcome struct {
	producer agent.ID
	outcome  agent.Outcome
}

// processOutcomes applies the same Stop/Reply handling Step's fan-out
// pass does, to an outcome list produced outside of Step (by the
// resume-drain rule).
func (r *Runtime) processOutcomes(producer agent.Handle, outcomes []agent.Outcome) {
	for _, o := range outcomes {
		switch o.Kind {
		case agent.Reply:
			r.broadcastEnvelope(o.Envel)
		case agent.Stop:
			producer.Stop()
		}
	}
}

// HasPendingWork reports whether any registered agent currently needs a
// drain, i.e. whether a further Step would do anything.
func (r *Runtime) HasPendingWork() bool {
	for _, id := range r.order {
		if r.agents[id].NeedsDrain() {
			return true
		}
	}
	return false
}

// ProcessAllPending loops Step until no agent needs draining at the
// start of an iteration, returning the number of steps taken. This is
// the convenience the spec calls for in addition to (not instead of)
// Step's own bounded-per-call guarantee: a handler graph that keeps
// generating fresh replies forever will keep this loop running forever,
// exactly as a caller looping step manually would.
func (r *Runtime) ProcessAllPending() int {
	steps := 0
	for r.HasPendingWork() {
		r.Step()
		steps++
	}
	return steps
}

// --- Introspection ---

// Stats summarizes the runtime's agent population.
type Stats struct {
	Total   int
	Running int
	Paused  int
	Stopped int
	Pending int // agents with NeedsDrain() true
}

// Stats computes a fresh snapshot.
func (r *Runtime) Stats() Stats {
	var s Stats
	for _, id := range r.order {
		h := r.agents[id]
		s.Total++
		switch h.State() {
		case mailbox.Running:
			s.Running++
		case mailbox.Paused:
			s.Paused++
		case mailbox.Stopped:
			s.Stopped++
		}
		if h.NeedsDrain() {
			s.Pending++
		}
	}
	return s
}

// ListByState returns, in stable registration order, the ids of every
// agent currently in state st.
func (r *Runtime) ListByState(st mailbox.State) []agent.ID {
	var ids []agent.ID
	for _, id := range r.order {
		if r.agents[id].State() == st {
			ids = append(ids, id)
		}
	}
	return ids
}

// AgentCount returns the number of currently registered agents.
func (r *Runtime) AgentCount() int {
	return len(r.order)
}
