package engine

import "github.com/quartzui/quartz/part"

// Effect is the minimal shape a unit of work must have to sit in a
// RenderFrame's commit queue: Bindings (DOM commits) and hook effect
// invokers (useEffect/useLayoutEffect/useInsertionEffect callbacks) both
// satisfy it, letting the three phase queues in RenderFrame stay
// homogeneous.
type Effect interface {
	Commit(ctx CommitContext) error
}

// CommitSequential runs each effect's Commit as a tight synchronous
// loop, stopping at the first error: errors during a commit phase are
// not recovered locally, they bubble out to the frame.
func CommitSequential(effects []Effect, ctx CommitContext) error {
	for _, e := range effects {
		if err := e.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CommitContext carries whatever a Binding needs to perform its DOM
// mutation during a commit phase: the Backend that actually touches the
// host document, plus the commit phase currently executing (a Binding may
// behave differently depending on whether it is being committed as part of
// Mutation, Layout, or Passive effects).
type CommitContext struct {
	Backend Backend
	Phase   Phase
}

// Binding holds a (directive, value, part) triple and the synchronous
// commit/rollback behavior that mutates the host document.
//
// Implementations must be idempotent under repeated Commit calls once
// ShouldBind has reported false for the candidate value.
type Binding interface {
	// Type returns the DirectiveType that produced this Binding.
	Type() DirectiveType

	// Value returns the currently bound value.
	Value() any

	// Part returns the part this binding targets.
	Part() part.Part

	// ShouldBind reports whether newValue differs from the currently bound
	// value under this binding's equality rule (identity for most
	// primitives, structural equality for directives that declare it).
	ShouldBind(newValue any) bool

	// Bind records newValue as the binding's pending value without
	// touching the DOM; the mutation happens at Commit.
	Bind(newValue any)

	// Attach notifies the binding that it has entered the render tree
	// under session, giving it the chance to enqueue itself into an
	// effect queue (most bindings that mutate the DOM enqueue themselves
	// as a mutation effect here).
	Attach(session *RenderSession)

	// Detach notifies the binding that it is leaving the render tree.
	Detach(session *RenderSession)

	// Commit performs the synchronous DOM mutation for the currently
	// pending value.
	Commit(ctx CommitContext) error

	// Rollback undoes the most recent Commit, used when a render frame is
	// abandoned after some but not all bindings have committed.
	Rollback(ctx CommitContext) error
}

// BaseBinding implements the bookkeeping every concrete binding needs
// (value/part storage, identity-based ShouldBind) so primitives only
// implement Commit/Rollback and, where needed, a structural ShouldBind.
type BaseBinding struct {
	directiveType DirectiveType
	value         any
	part          part.Part
	pending       any
	hasPending    bool
	committed     bool
}

// NewBaseBinding constructs the embeddable bookkeeping for a concrete
// binding type.
func NewBaseBinding(t DirectiveType, value any, p part.Part) BaseBinding {
	return BaseBinding{directiveType: t, value: value, part: p}
}

func (b *BaseBinding) Type() DirectiveType { return b.directiveType }
func (b *BaseBinding) Value() any          { return b.value }
func (b *BaseBinding) Part() part.Part     { return b.part }

// ShouldBind is the default identity/equality check: bindings whose values
// are comparable use ==; everything else is always considered changed so
// a directive with richer semantics must override ShouldBind itself.
func (b *BaseBinding) ShouldBind(newValue any) bool {
	if !b.hasPending && !b.committed {
		return true
	}
	current := b.value
	if b.hasPending {
		current = b.pending
	}
	return !comparable(current, newValue)
}

// Bind stages newValue as the pending value.
func (b *BaseBinding) Bind(newValue any) {
	b.pending = newValue
	b.hasPending = true
}

// TakePending returns the pending value (if any) and clears pending state,
// promoting it to the committed value. Concrete bindings call this from
// Commit.
func (b *BaseBinding) TakePending() (any, bool) {
	if !b.hasPending {
		b.committed = true
		return b.value, false
	}
	b.value = b.pending
	b.pending = nil
	b.hasPending = false
	b.committed = true
	return b.value, true
}

func comparable(a, b any) bool {
	defer func() { recover() }() //nolint:errcheck // values of uncomparable kinds fall through to "changed"
	return a == b
}
