package engine

import (
	"reflect"
	"strings"
)

// HookKind tags the variant of a single ordered hook slot.
type HookKind uint8

const (
	HookFinalizer HookKind = iota
	HookEffect
	HookID
	HookMemo
	HookReducer
)

func (k HookKind) String() string {
	switch k {
	case HookFinalizer:
		return "Finalizer"
	case HookEffect:
		return "Effect"
	case HookID:
		return "Id"
	case HookMemo:
		return "Memo"
	case HookReducer:
		return "Reducer"
	default:
		return "Unknown"
	}
}

// EffectKind discriminates the three effect hooks, which map onto the
// three commit phases.
type EffectKind uint8

const (
	EffectPassive EffectKind = iota
	EffectLayout
	EffectInsertion
)

func (k EffectKind) phase() Phase {
	switch k {
	case EffectLayout:
		return Layout
	case EffectInsertion:
		return Mutation
	default:
		return Passive
	}
}

// hookSlot is the tagged union backing one entry of a component's ordered
// hook list. Only the fields relevant to Kind are meaningful.
type hookSlot struct {
	kind HookKind

	// Effect
	effectKind  EffectKind
	callback    func() func()
	pendingDeps []any
	memoDeps    []any
	depsSet     bool
	cleanup     func()

	// Id
	id string

	// Memo
	memoValue any

	// Reducer
	reducer       func(state, action any) any
	equals        func(a, b any) bool
	memoizedState any
	pendingState  any
	pendingLanes  Lanes
	dispatch      func(action any, opts UpdateOptions)
}

// HookList is the per-component-instance ordered slot array backing the
// hook API. A hook list, once a Finalizer is appended, must not grow;
// subsequent renders must encounter identical hook kinds at identical
// positions; a mismatch is a fatal, synchronous error.
type HookList struct {
	slots     []*hookSlot
	cursor    int
	finalized bool
}

// NewHookList returns an empty hook list, ready for a component's first
// render.
func NewHookList() *HookList { return &HookList{} }

// StartRender resets the cursor to 0 for a fresh render pass.
func (h *HookList) StartRender() { h.cursor = 0 }

// next returns the hook slot at the cursor, creating one of kind if the
// list hasn't grown this far yet, and advances the cursor. A kind
// mismatch against an existing slot is a fatal hook-order violation.
func (h *HookList) next(kind HookKind) *hookSlot {
	if h.finalized && h.cursor >= len(h.slots)-1 {
		fatal(ErrCodeHookListFrozen, "hook list grew after finalization: attempted to add a %s hook at index %d", kind, h.cursor)
	}

	idx := h.cursor
	h.cursor++

	if idx < len(h.slots) {
		slot := h.slots[idx]
		if slot.kind != kind {
			if DebugMode {
				fatal(ErrCodeHookOrder, "unexpected hook type at index %d: expected %s, got %s (full hook list: %s)", idx, slot.kind, kind, h.shape())
			}
			fatal(ErrCodeHookOrder, "unexpected hook type at index %d: expected %s, got %s", idx, slot.kind, kind)
		}
		return slot
	}

	slot := &hookSlot{kind: kind}
	h.slots = append(h.slots, slot)
	return slot
}

// shape renders the ordered kinds of every slot, assembled only for the
// DebugMode diagnostic so the mismatch hot path stays allocation-free.
func (h *HookList) shape() string {
	names := make([]string, len(h.slots))
	for i, slot := range h.slots {
		names[i] = slot.kind.String()
	}
	return strings.Join(names, " -> ")
}

// Finalize appends the Finalizer sentinel if absent (freezing the list
// against further growth) and returns the effect invokers due to run this
// frame, grouped by phase, in hook declaration order. Cross-component
// (ancestor-after-descendant) ordering is not this method's job: the
// scheduler finalizes the frame's sessions newest-first, so descendants
// deposit before ancestors without a reverse walk here.
func (h *HookList) Finalize() (mutation, layout, passive []Effect) {
	if !h.finalized || h.cursor >= len(h.slots) {
		h.slots = append(h.slots, &hookSlot{kind: HookFinalizer})
		h.finalized = true
	}

	for _, slot := range h.slots {
		if slot.kind != HookEffect {
			continue
		}
		if !effectDepsChanged(slot) {
			continue
		}
		inv := &effectInvoker{slot: slot}
		switch slot.effectKind {
		case EffectLayout:
			layout = append(layout, inv)
		case EffectInsertion:
			mutation = append(mutation, inv)
		default:
			passive = append(passive, inv)
		}
	}
	return mutation, layout, passive
}

func effectDepsChanged(slot *hookSlot) bool {
	if !slot.depsSet {
		return true
	}
	if slot.pendingDeps == nil || slot.memoDeps == nil {
		return true
	}
	if len(slot.pendingDeps) != len(slot.memoDeps) {
		return true
	}
	for i := range slot.pendingDeps {
		if !reflect.DeepEqual(slot.pendingDeps[i], slot.memoDeps[i]) && !isObjectIs(slot.pendingDeps[i], slot.memoDeps[i]) {
			return true
		}
	}
	return false
}

// isObjectIs approximates JS's Object.is for the primitive kinds dependency
// arrays realistically carry: identical values of comparable kinds compare
// equal without falling back to reflect.DeepEqual's slower structural walk.
func isObjectIs(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)
	if av.Type() != bv.Type() {
		return false
	}
	switch av.Kind() {
	case reflect.Func, reflect.Slice, reflect.Map, reflect.Chan:
		return false
	default:
		defer func() { recover() }() //nolint:errcheck
		return a == b
	}
}

// effectInvoker adapts a pending effect hook slot into the Effect
// interface the commit queues hold: running prior cleanup, then the
// callback, capturing its return as the new cleanup.
type effectInvoker struct {
	slot *hookSlot
}

func (e *effectInvoker) Commit(CommitContext) error {
	if e.slot.cleanup != nil {
		e.slot.cleanup()
		e.slot.cleanup = nil
	}
	if e.slot.callback != nil {
		e.slot.cleanup = e.slot.callback()
	}
	e.slot.memoDeps = e.slot.pendingDeps
	e.slot.depsSet = true
	return nil
}
