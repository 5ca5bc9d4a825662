// Package tag derives stable type tags for messages flowing through the
// runtime. A tag identifies a Go type for the purposes of handler lookup
// and envelope routing; it is never user-assigned.
package tag

import "reflect"

// Tag is an opaque, comparable identifier for a Go type. Two tags are
// equal iff they were derived from types with the same reflect.Type
// name. Backed by a plain string (rather than reflect.Type itself) so a
// tag survives a JSON round-trip over a wire transport: the receiving
// process reconstructs the tag from the type name carried alongside the
// bytes (see FromName), without needing the sender's reflect.Type value.
type Tag struct {
	name string
}

// Of derives the tag for message type M. M must be a concrete type, not
// an interface; passing an interface type yields a tag for the interface
// itself, which is rarely what a handler wants.
func Of[M any]() Tag {
	return Tag{name: reflect.TypeOf((*M)(nil)).Elem().String()}
}

// OfValue derives the tag for the dynamic type of v. Used when packaging
// a message whose static type at the call site is already M but the
// generic form is inconvenient (e.g. reflection-driven dispatch).
func OfValue(v any) Tag {
	return Tag{name: reflect.TypeOf(v).String()}
}

// FromName reconstructs a tag from a previously observed Tag.String().
// Used when decoding an envelope that arrived over the wire: the type
// name travelled as a plain string, and the tag is rebuilt from it so
// the recipient's handler-table lookup still works by equality.
func FromName(name string) Tag {
	return Tag{name: name}
}

// String returns a human-readable name for the tag, stable across
// processes built from the same Go types, suitable for use as the
// wire-visible type name.
func (t Tag) String() string {
	if t.name == "" {
		return "<invalid>"
	}
	return t.name
}

// IsValid reports whether the tag was actually derived from a type.
func (t Tag) IsValid() bool {
	return t.name != ""
}
