// Package envelope implements the carrier that moves a typed message
// from a sender to a handler without either side needing to agree on a
// concrete Go type at the call site.
//
// Two payload variants share the same struct: a local envelope shares a
// reference to the message value (no copy, no serialization — broadcast
// to many recipients is a pointer bump, not N allocations); a wire
// envelope carries the message pre-encoded as JSON for transports that
// cross a process boundary. Package/PackageWire choose the variant,
// Unpackage reads either one, and AsWire converts a local envelope to
// the wire form before it is JSON-encoded.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tenzoki/actorrt/tag"
)

// Envelope is the (type_tag, payload) pair that flows through mailboxes
// and transports. The zero value is not useful; construct with Package
// or PackageWire.
type Envelope struct {
	ID            string // unique per envelope, for tracing/logging
	CorrelationID string // set on replies, links back to the request

	Tag      tag.Tag // type tag of the carried message; always set
	TypeName string  // human-readable form of Tag, stable across wire hops

	Timestamp time.Time
	HopCount  int
	Route     []string // agent names/ids that have handled this envelope

	local any             // set for the local (shared-reference) variant
	wire  json.RawMessage // set for the wire (serialized) variant
}

// Package builds a local envelope sharing msg by reference. The value is
// never copied; recipients that unpackage it all observe the same
// underlying data, so handlers must treat it as read-only.
func Package[M any](msg M) *Envelope {
	t := tag.Of[M]()
	return &Envelope{
		ID:        uuid.New().String(),
		Tag:       t,
		TypeName:  t.String(),
		Timestamp: time.Now(),
		local:     msg,
	}
}

// PackageWire builds a wire envelope by JSON-encoding msg. Use this for
// transports that must cross a process boundary.
func PackageWire[M any](msg M) (*Envelope, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("envelope: encode payload: %w", err)
	}
	t := tag.Of[M]()
	return &Envelope{
		ID:        uuid.New().String(),
		Tag:       t,
		TypeName:  t.String(),
		Timestamp: time.Now(),
		wire:      data,
	}, nil
}

// PackageDynamic builds a local envelope whose type tag is derived from
// v's dynamic (runtime) type rather than a static type parameter. Used
// when coercing a handler's `any`-typed return value, whose concrete
// type is only known once the handler has actually run.
func PackageDynamic(v any) *Envelope {
	t := tag.OfValue(v)
	return &Envelope{
		ID:        uuid.New().String(),
		Tag:       t,
		TypeName:  t.String(),
		Timestamp: time.Now(),
		local:     v,
	}
}

// Unpackage recovers a typed value of M from env. It returns false when
// env carries a different type, or when a wire envelope fails to decode
// (a delivery fault, never a panic). Local envelopes return the shared
// value directly; wire envelopes are decoded fresh each call.
func Unpackage[M any](env *Envelope) (M, bool) {
	var zero M
	want := tag.Of[M]()

	if env.local != nil {
		if env.Tag != want {
			return zero, false
		}
		v, ok := env.local.(M)
		if !ok {
			return zero, false
		}
		return v, true
	}

	if env.wire != nil {
		if env.Tag != want {
			return zero, false
		}
		var v M
		if err := json.Unmarshal(env.wire, &v); err != nil {
			return zero, false
		}
		return v, true
	}

	return zero, false
}

// IsWire reports whether env carries a serialized (as opposed to shared
// local reference) payload.
func (e *Envelope) IsWire() bool {
	return e.wire != nil
}

// AsWire returns an envelope carrying a JSON-serialized payload,
// encoding the local value on demand if necessary. A wire envelope is
// returned unchanged. Transports that cross a process boundary (tcp, ws)
// call this at the send boundary so a handler can reply with a bare
// value (always coerced into a local envelope, see agent.coerceOutcome)
// without the caller needing to know in advance which transport will
// carry it.
func (e *Envelope) AsWire() (*Envelope, error) {
	if e.wire != nil {
		return e, nil
	}
	data, err := json.Marshal(e.local)
	if err != nil {
		return nil, fmt.Errorf("envelope: encode payload %s for wire transport: %w", e.TypeName, err)
	}
	w := e.Clone()
	w.local = nil
	w.wire = data
	return w, nil
}

// envelopeWire is the JSON wire format: unexported local/wire payload
// fields are not directly marshalable, so Envelope implements
// MarshalJSON/UnmarshalJSON explicitly rather than relying on the
// default struct encoding.
type envelopeWire struct {
	ID            string          `json:"id"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	TypeName      string          `json:"type"`
	Timestamp     time.Time       `json:"timestamp"`
	HopCount      int             `json:"hop_count,omitempty"`
	Route         []string        `json:"route,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the envelope for a wire transport. It fails for a
// local envelope — call AsWire first, which every wire transport in
// this module does at its send boundary.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	if e.wire == nil {
		return nil, fmt.Errorf("envelope: cannot JSON-encode local envelope %s; call AsWire first", e.TypeName)
	}
	return json.Marshal(envelopeWire{
		ID:            e.ID,
		CorrelationID: e.CorrelationID,
		TypeName:      e.TypeName,
		Timestamp:     e.Timestamp,
		HopCount:      e.HopCount,
		Route:         e.Route,
		Payload:       e.wire,
	})
}

// UnmarshalJSON decodes a wire envelope, reconstructing its Tag from the
// carried type name via tag.FromName.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w envelopeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.ID = w.ID
	e.CorrelationID = w.CorrelationID
	e.TypeName = w.TypeName
	e.Tag = tag.FromName(w.TypeName)
	e.Timestamp = w.Timestamp
	e.HopCount = w.HopCount
	e.Route = w.Route
	e.wire = w.Payload
	e.local = nil
	return nil
}

// WireBytes returns the raw wire payload and true, or nil/false for a
// local envelope, giving the encoded bytes without needing to know the
// concrete message type. The transports in this module do not use it:
// they call AsWire and JSON-encode the whole envelope.
func (e *Envelope) WireBytes() ([]byte, bool) {
	if e.wire == nil {
		return nil, false
	}
	return e.wire, true
}

// AddHop records that name processed this envelope, for observability
// only; it has no effect on routing or lifecycle semantics.
func (e *Envelope) AddHop(name string) {
	e.HopCount++
	e.Route = append(e.Route, name)
}

// Clone returns a cheap copy: the local payload is shared (not deep
// copied), the wire payload's byte slice is shared too, since envelopes
// are treated as immutable once built. Route history is copied so the
// clone can diverge independently as it travels to different recipients.
func (e *Envelope) Clone() *Envelope {
	clone := *e
	if e.Route != nil {
		clone.Route = make([]string, len(e.Route))
		copy(clone.Route, e.Route)
	}
	return &clone
}

// NewReply builds a local reply envelope for the given outgoing message,
// correlating it back to req. Handler dispatch in package agent does not
// call it: it packages a handler's return with PackageDynamic and sets
// the same CorrelationID itself.
func NewReply[M any](req *Envelope, msg M) *Envelope {
	reply := Package(msg)
	reply.CorrelationID = req.ID
	return reply
}
