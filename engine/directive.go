package engine

import "github.com/quartzui/quartz/part"

// SlotType distinguishes the two slot reconciliation strategies. Most
// directives are Strict; only the child-node insertion
// primitive (and directives that explicitly opt in) are Loose.
type SlotType uint8

const (
	// Strict requires a bound value to remain under the same directive for
	// the life of the part; a directive change at a Strict slot is an
	// error rather than a reconciliation.
	Strict SlotType = iota
	// Loose permits the underlying binding to be swapped when the
	// directive changes, used at ChildNode parts.
	Loose
)

// DirectiveType is a capability descriptor: a named thing that knows how to
// produce a Binding for a given Part. Two DirectiveTypes are considered the
// same directive across renders either by Go identity (the common case for
// primitives, which are package-level singletons) or via Equals, which lets
// a directive declare cross-instance identity (e.g. two different *Repeat
// values with the same key selector should be treated as "the same kind of
// repeat" for Memo's parking logic).
type DirectiveType interface {
	// Name identifies the directive in diagnostics and as the Memo parking
	// key (via Equals when two distinct instances should collide).
	Name() string

	// Equals reports whether other is the same directive identity as this
	// one, for directives that are not singletons. Returns false when not
	// applicable; callers fall back to pointer/interface equality.
	Equals(other DirectiveType) bool

	// ResolveBinding produces the Binding that will own value at part,
	// given the services exposed through ctx (the Backend, as described in
	// is reached through ctx.Backend()).
	ResolveBinding(value any, p part.Part, ctx *Runtime) (Binding, error)
}

// Primitive is a DirectiveType that is additionally eligible to be
// auto-resolved for raw, non-directive values by part kind. Its
// optional EnsureValue guard lets a primitive reject a raw value before a
// Binding is constructed (e.g. the Live primitive rejecting a value that
// isn't one of the property's accepted Go kinds).
type Primitive interface {
	DirectiveType
	// EnsureValue validates value against part before binding, returning a
	// possibly-coerced value and an error if the value cannot be bound
	// here at all. A nil EnsureValue (reported via HasEnsureValue) means
	// any value is accepted as-is.
	EnsureValue(value any, p part.Part) (any, error)
	HasEnsureValue() bool
}

// DirectiveElement is the triple produced by resolveDirective: the
// directive chosen for a raw value, the (possibly unwrapped) value itself,
// and an optional slotType override.
type DirectiveElement struct {
	Directive DirectiveType
	Value     any
	SlotType  *SlotType
}

// Bindable is implemented by user values that carry their own directive
// resolution rather than being dispatched by part kind: the mechanism
// extension authors use to hand-author custom binding behavior.
type Bindable interface {
	ResolveDirectiveElement(p part.Part) DirectiveElement
}

// SlotElement is implemented by values that wrap another bindable and want
// to propagate an outer slotType override through resolveDirective's
// recursion.
type SlotElement interface {
	Bindable
	Inner() any
}
