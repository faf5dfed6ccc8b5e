package engine

import "github.com/quartzui/quartz/part"

// Slot wraps a Binding with the attach/detach lifecycle plus reconciliation
// across directive-type changes. A Strict slot requires the
// bound value to remain under the same directive for the life of the
// part; a Loose slot (used at ChildNode parts) allows the underlying
// binding to be swapped out when a new value resolves to a different
// directive, while preserving the part's anchor-node invariant.
type Slot struct {
	kind    SlotType
	part    part.Part
	binding Binding
	runtime *Runtime

	connected bool
	committed bool
}

// NewSlot resolves value into a directive/binding pair at p and wraps it in
// a new Slot, using rt's backend to resolve primitives/slot type when value
// doesn't carry its own directive.
func NewSlot(value any, p part.Part, rt *Runtime) (*Slot, error) {
	elem, err := ResolveDirective(value, p, rt.Backend())
	if err != nil {
		return nil, err
	}
	binding, err := elem.Directive.ResolveBinding(elem.Value, p, rt)
	if err != nil {
		return nil, err
	}
	kind := rt.Backend().ResolveSlotType(elem.Value, p)
	if elem.SlotType != nil {
		kind = *elem.SlotType
	}
	s := &Slot{kind: kind, part: p, binding: binding, runtime: rt}
	return s, nil
}

// HydrateSlot mirrors NewSlot but marks the resulting slot as connected
// without a pending commit, per the hydration protocol: the
// binding exists and is attached, but the next commit should be a no-op if
// the live DOM already matches.
func HydrateSlot(value any, p part.Part, rt *Runtime) (*Slot, error) {
	s, err := NewSlot(value, p, rt)
	if err != nil {
		return nil, err
	}
	s.connected = true
	s.committed = true
	return s, nil
}

// Part returns the part this slot targets.
func (s *Slot) Part() part.Part { return s.part }

// Binding returns the slot's currently active binding.
func (s *Slot) Binding() Binding { return s.binding }

// IsConnected reports whether the slot has been attached to a live render
// tree (true for both freshly rendered and hydrated slots).
func (s *Slot) IsConnected() bool { return s.connected }

// IsCommitted reports whether the slot's current value has already been
// reflected in the host document (true immediately after a successful
// hydration, false for a freshly rendered slot awaiting its first commit).
func (s *Slot) IsCommitted() bool { return s.committed }

// Attach marks the slot connected and attaches its binding.
func (s *Slot) Attach(session *RenderSession) {
	s.connected = true
	s.binding.Attach(session)
}

// Detach detaches the slot's binding and marks it disconnected.
func (s *Slot) Detach(session *RenderSession) {
	s.binding.Detach(session)
	s.connected = false
}

// Bind reconciles a new value into this slot. For a Strict slot, value
// must resolve to the same directive as the current binding; a directive
// change is a fatal error. For a Loose slot, a directive change swaps the
// underlying binding, creating a fresh one while preserving this Slot's
// identity and the part's anchor invariants.
func (s *Slot) Bind(value any, session *RenderSession) error {
	elem, err := ResolveDirective(value, s.part, s.runtime.Backend())
	if err != nil {
		return err
	}

	if sameDirective(s.binding.Type(), elem.Directive) {
		if s.binding.ShouldBind(elem.Value) {
			s.binding.Bind(elem.Value)
			s.committed = false
		}
		return nil
	}

	if s.kind == Strict {
		fatal(ErrCodeDirectiveMisuse, "strict slot at %s part cannot rebind from directive %q to %q",
			s.part.Kind, s.binding.Type().Name(), elem.Directive.Name())
	}

	// Loose slot: swap bindings. Detach the old binding, create and attach
	// the new one; the part's anchor node identity is untouched because
	// only the binding, not the part, is replaced.
	s.binding.Detach(session)
	newBinding, err := elem.Directive.ResolveBinding(elem.Value, s.part, s.runtime)
	if err != nil {
		return err
	}
	s.binding = newBinding
	s.committed = false
	s.binding.Attach(session)
	return nil
}

func sameDirective(a, b DirectiveType) bool {
	if a == b {
		return true
	}
	if a.Equals(b) {
		return true
	}
	return b.Equals(a)
}

// Commit commits the slot's active binding and marks the slot committed.
func (s *Slot) Commit(ctx CommitContext) error {
	if s.committed {
		return nil
	}
	if err := s.binding.Commit(ctx); err != nil {
		return err
	}
	s.committed = true
	return nil
}
