package engine

import "github.com/quartzui/quartz/part"

// Repeat wraps a keyed or positional list so it resolves to the keyedList
// directive, reconciling a list of rows at a single
// ChildNode part.
func Repeat(items []any, keySelector func(item any) any, render func(item any) any) any {
	return repeatValue{items: items, keySelector: keySelector, render: render}
}

type repeatValue struct {
	items       []any
	keySelector func(item any) any
	render      func(item any) any
}

func (r repeatValue) ResolveDirectiveElement(part.Part) DirectiveElement {
	return DirectiveElement{Directive: RepeatDirective, Value: r}
}

type repeatDirectiveType struct{}

func (*repeatDirectiveType) Name() string { return "repeat" }
func (*repeatDirectiveType) Equals(other DirectiveType) bool {
	_, ok := other.(*repeatDirectiveType)
	return ok
}

func (t *repeatDirectiveType) ResolveBinding(value any, p part.Part, rt *Runtime) (Binding, error) {
	rv, ok := value.(repeatValue)
	if !ok {
		return nil, &DirectiveError{Directive: "repeat", Reason: "repeat binding requires a Repeat(...) value"}
	}
	if p.Kind != part.ChildNode {
		return nil, &DirectiveError{Directive: "repeat", Reason: "repeat requires a ChildNode part"}
	}
	b := &RepeatBinding{
		BaseBinding: NewBaseBinding(t, value, p),
		runtime:     rt,
	}
	b.reconcile(rv)
	return b, nil
}

// RepeatDirective is the DirectiveType every Repeat(...) value carries.
var RepeatDirective DirectiveType = &repeatDirectiveType{}

// repeatEntry is one live row: the key it was created under, its rendered
// slot, and the item value it was last bound to (for positional mode's
// value-only rebind).
type repeatEntry struct {
	key  any
	slot *Slot
	node part.Node
}

// RepeatBinding aligns a current list of entries to a
// new items array, either positionally (no key selector) or by key,
// issuing the minimal inserts/moves/removes to transform one into the
// other while preserving the ChildNode part's anchor-node invariant.
type RepeatBinding struct {
	BaseBinding
	runtime *Runtime
	entries []repeatEntry
	session *RenderSession
}

func (b *RepeatBinding) Attach(session *RenderSession) {
	b.session = session
	for _, e := range b.entries {
		e.slot.Attach(session)
	}
}

func (b *RepeatBinding) Detach(session *RenderSession) {
	for _, e := range b.entries {
		e.slot.Detach(session)
	}
	b.session = nil
}

func (b *RepeatBinding) Commit(ctx CommitContext) error {
	value, changed := b.TakePending()
	if changed {
		rv := value.(repeatValue)
		b.reconcile(rv)
	}
	for i := range b.entries {
		if err := b.entries[i].slot.Commit(ctx); err != nil {
			return err
		}
		if ab, ok := b.entries[i].slot.Binding().(interface{ FirstNode() part.Node }); ok {
			b.entries[i].node = ab.FirstNode()
		}
	}
	b.fixOrder()
	b.updateAnchor()
	return nil
}

func (b *RepeatBinding) Rollback(CommitContext) error { return nil }

func (b *RepeatBinding) updateAnchor() {
	if len(b.entries) == 0 {
		b.part.AnchorNode = nil
		return
	}
	b.part.AnchorNode = b.entries[0].node
}

// reconcile aligns b.entries to rv.items.
func (b *RepeatBinding) reconcile(rv repeatValue) {
	if rv.keySelector == nil {
		b.reconcilePositional(rv)
		return
	}
	b.reconcileKeyed(rv)
}

// reconcilePositional aligns by index: mutate entries whose index still
// exists, create entries for new tail indices, detach entries past the
// new length.
func (b *RepeatBinding) reconcilePositional(rv repeatValue) {
	next := make([]repeatEntry, 0, len(rv.items))

	for i, item := range rv.items {
		rendered := rv.render(item)
		if i < len(b.entries) {
			entry := b.entries[i]
			if err := entry.slot.Bind(rendered, b.session); err != nil {
				fatal(ErrCodeDirectiveMisuse, "repeat: %v", err)
			}
			next = append(next, entry)
			continue
		}
		next = append(next, b.newEntry(nil, rendered))
	}

	for i := len(rv.items); i < len(b.entries); i++ {
		b.detachEntry(b.entries[i])
	}

	b.entries = next
}

// reconcileKeyed builds a multiset of old entries keyed by rv.keySelector,
// then walks the new items in order, reusing the head of each key's queue.
// Unclaimed old entries are detached at the end. Final ordering is fixed
// up in one backward pass over the resulting list rather than tracked
// move-by-move during the forward walk, which is simpler to get right
// without a "next sibling of" query on part.Node and costs at most one
// redundant reinsertion per already-correctly-placed entry.
func (b *RepeatBinding) reconcileKeyed(rv repeatValue) {
	oldByKey := make(map[any][]repeatEntry, len(b.entries))
	order := make([]any, 0, len(b.entries))
	for _, e := range b.entries {
		if _, seen := oldByKey[e.key]; !seen {
			order = append(order, e.key)
		}
		oldByKey[e.key] = append(oldByKey[e.key], e)
	}

	next := make([]repeatEntry, 0, len(rv.items))

	for _, item := range rv.items {
		key := rv.keySelector(item)
		rendered := rv.render(item)

		queue := oldByKey[key]
		if len(queue) > 0 {
			entry := queue[0]
			oldByKey[key] = queue[1:]
			if err := entry.slot.Bind(rendered, b.session); err != nil {
				fatal(ErrCodeDirectiveMisuse, "repeat: %v", err)
			}
			next = append(next, entry)
			continue
		}

		next = append(next, b.newEntry(key, rendered))
	}

	for _, key := range order {
		for _, leftover := range oldByKey[key] {
			b.detachEntry(leftover)
		}
	}

	b.entries = next
}

// fixOrder walks b.entries back to front, reinserting each entry's node
// immediately before the node that is supposed to follow it (the part's
// terminal anchor comment for the last entry). A node already in the
// right place is reinserted as a no-op move; this keeps the algorithm
// simple at the cost of the "minimal moves" ideal. Runs after
// every entry has committed, since an entry's current node is only known
// once its own binding has actually inserted it.
func (b *RepeatBinding) fixOrder() {
	next := b.part.AnchorComment
	if next == nil {
		next = b.part.Anchor()
	}
	for i := len(b.entries) - 1; i >= 0; i-- {
		e := b.entries[i]
		if e.node == nil {
			continue
		}
		if inserter, ok := next.(part.SiblingInserter); ok {
			inserter.InsertBefore(e.node)
		}
		next = e.node
	}
}

// newEntry creates the Slot for a row not present in the previous
// reconciliation. Its ChildNode part shares the repeat's own anchor
// comment as the insertion reference; node is populated once this entry's
// first Commit runs (see Commit's FirstNode refresh above); until then it
// is nil, which fixOrder treats as "not yet positioned, skip".
func (b *RepeatBinding) newEntry(key any, rendered any) repeatEntry {
	childPart := part.Part{
		Kind:          part.ChildNode,
		AnchorComment: b.part.AnchorComment,
		NamespaceURI:  b.part.NamespaceURI,
	}
	slot, err := NewSlot(rendered, childPart, b.runtime)
	if err != nil {
		fatal(ErrCodeDirectiveMisuse, "repeat: %v", err)
	}
	if b.session != nil {
		slot.Attach(b.session)
	}
	return repeatEntry{key: key, slot: slot}
}

func (b *RepeatBinding) detachEntry(e repeatEntry) {
	if b.session != nil {
		e.slot.Detach(b.session)
	}
	if r, ok := e.node.(part.SiblingInserter); ok {
		r.Remove()
	}
}
