package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartzui/quartz/part"
)

type row struct {
	k int
	v string
}

func keyOf(item any) any     { return item.(row).k }
func renderRow(item any) any { return item.(row).v }

func rows(items ...row) []any {
	out := make([]any, len(items))
	for i, r := range items {
		out[i] = r
	}
	return out
}

// mountRepeat binds a Repeat directly at a fresh anchor and commits it,
// returning the container, the slot, and the backing RepeatBinding.
func mountRepeat(t *testing.T, rt *Runtime, items []any, key func(any) any) (*tparent, *Slot, *RepeatBinding) {
	t.Helper()
	container, anchor := newAnchor()
	slot, err := NewSlot(Repeat(items, key, renderRow), anchor, rt)
	require.NoError(t, err)
	slot.Attach(nil)
	ctx := CommitContext{Backend: rt.Backend(), Phase: Mutation}
	require.NoError(t, slot.Commit(ctx))
	return container, slot, slot.Binding().(*RepeatBinding)
}

func rebind(t *testing.T, rt *Runtime, slot *Slot, items []any, key func(any) any) {
	t.Helper()
	require.NoError(t, slot.Bind(Repeat(items, key, renderRow), nil))
	require.NoError(t, slot.Commit(CommitContext{Backend: rt.Backend(), Phase: Mutation}))
}

// rowNodes maps each current entry to its first rendered node.
func rowNodes(b *RepeatBinding) []part.Node {
	out := make([]part.Node, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.node
	}
	return out
}

func TestRepeatKeyedSwapReusesNodes(t *testing.T) {
	_, rt := newTestRuntime()
	container, slot, binding := mountRepeat(t, rt,
		rows(row{1, "a"}, row{2, "b"}, row{3, "c"}), keyOf)
	require.Equal(t, []string{"a", "b", "c"}, container.texts())
	before := rowNodes(binding)

	rebind(t, rt, slot, rows(row{3, "c"}, row{1, "a"}, row{2, "b"}), keyOf)

	assert.Equal(t, []string{"c", "a", "b"}, container.texts())
	after := rowNodes(binding)
	assert.Same(t, before[2], after[0], "key 3 keeps its node")
	assert.Same(t, before[0], after[1], "key 1 keeps its node")
	assert.Same(t, before[1], after[2], "key 2 keeps its node")
	assert.Same(t, after[0], binding.Part().AnchorNode, "anchorNode tracks the new first row")
}

func TestRepeatKeyedRoundTripCreatesOnlyMissing(t *testing.T) {
	_, rt := newTestRuntime()
	container, slot, binding := mountRepeat(t, rt,
		rows(row{1, "a"}, row{2, "b"}, row{3, "c"}), keyOf)
	original := rowNodes(binding)

	// B drops key 2 and adds key 4.
	rebind(t, rt, slot, rows(row{1, "a"}, row{4, "d"}, row{3, "c"}), keyOf)
	require.Equal(t, []string{"a", "d", "c"}, container.texts())

	// Back to A: keys 1 and 3 survive both reconciliations; key 2 was
	// detached and must be the only fresh slot.
	createdBefore := textCounter
	rebind(t, rt, slot, rows(row{1, "a"}, row{2, "b"}, row{3, "c"}), keyOf)

	assert.Equal(t, []string{"a", "b", "c"}, container.texts())
	after := rowNodes(binding)
	assert.Same(t, original[0], after[0])
	assert.Same(t, original[2], after[2])
	assert.NotSame(t, original[1], after[1], "the dropped key re-enters as a fresh slot")
	assert.Equal(t, 1, textCounter-createdBefore, "exactly one new node for the re-added key")
}

func TestRepeatPositionalReconciliation(t *testing.T) {
	_, rt := newTestRuntime()
	container, slot, binding := mountRepeat(t, rt,
		rows(row{0, "x"}, row{0, "y"}), nil)
	require.Equal(t, []string{"x", "y"}, container.texts())
	before := rowNodes(binding)

	// Grow: surviving indices mutate in place, the tail is created.
	rebind(t, rt, slot, rows(row{0, "x2"}, row{0, "y"}, row{0, "z"}), nil)
	assert.Equal(t, []string{"x2", "y", "z"}, container.texts())
	after := rowNodes(binding)
	assert.Same(t, before[0], after[0], "index 0 mutates in place")
	assert.Same(t, before[1], after[1])

	// Shrink: entries past the new length detach.
	rebind(t, rt, slot, rows(row{0, "only"}), nil)
	assert.Equal(t, []string{"only"}, container.texts())
	assert.Len(t, binding.entries, 1)
}

func TestRepeatDuplicateKeysReuseFIFO(t *testing.T) {
	_, rt := newTestRuntime()
	container, slot, binding := mountRepeat(t, rt,
		rows(row{7, "first"}, row{7, "second"}), keyOf)
	require.Equal(t, []string{"first", "second"}, container.texts())
	before := rowNodes(binding)

	rebind(t, rt, slot, rows(row{7, "first*"}, row{7, "second*"}), keyOf)

	assert.Equal(t, []string{"first*", "second*"}, container.texts())
	after := rowNodes(binding)
	assert.Same(t, before[0], after[0], "duplicate keys reuse old slots in FIFO order")
	assert.Same(t, before[1], after[1])
}

func TestRepeatClearAndAnchorInvariant(t *testing.T) {
	_, rt := newTestRuntime()
	container, slot, binding := mountRepeat(t, rt, rows(row{1, "a"}), keyOf)
	require.Equal(t, []string{"a"}, container.texts())

	rebind(t, rt, slot, rows(), keyOf)

	assert.Empty(t, container.texts())
	assert.Nil(t, binding.Part().AnchorNode, "empty list resets anchorNode so Anchor() falls back to the comment")
	if _, ok := binding.Part().Anchor().(*tnode); assert.True(t, ok) {
		assert.Equal(t, "anchor", binding.Part().Anchor().ID())
	}
}

func TestRepeatRequiresChildNodePart(t *testing.T) {
	_, rt := newTestRuntime()
	el := &tnode{id: "el", kind: "element"}
	p := part.Part{Kind: part.Attribute, Element: el, Name: "x"}

	_, err := RepeatDirective.ResolveBinding(Repeat(rows(row{1, "a"}), keyOf, renderRow), p, rt)
	require.Error(t, err)
	var de *DirectiveError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Error(), "ChildNode")
}

func TestRepeatRendersComponentsPerRow(t *testing.T) {
	// Rows whose render produces a value per item; the binding must keep
	// per-row slots independent so a single row rebind doesn't disturb
	// the rest.
	_, rt := newTestRuntime()
	container, slot, _ := mountRepeat(t, rt,
		rows(row{1, "a"}, row{2, "b"}), keyOf)

	rebind(t, rt, slot, rows(row{1, "A"}, row{2, "b"}), keyOf)
	assert.Equal(t, []string{"A", "b"}, container.texts())
}

func TestRepeatLargeShuffleKeepsAllNodes(t *testing.T) {
	_, rt := newTestRuntime()
	items := make([]row, 20)
	for i := range items {
		items[i] = row{i, fmt.Sprintf("v%d", i)}
	}
	container, slot, binding := mountRepeat(t, rt, rows(items...), keyOf)
	before := make(map[int]part.Node, len(items))
	for i, e := range binding.entries {
		before[items[i].k] = e.node
	}

	// Reverse the list.
	reversed := make([]row, len(items))
	for i := range items {
		reversed[i] = items[len(items)-1-i]
	}
	createdBefore := textCounter
	rebind(t, rt, slot, rows(reversed...), keyOf)

	want := make([]string, len(items))
	for i, r := range reversed {
		want[i] = r.v
	}
	assert.Equal(t, want, container.texts())
	assert.Equal(t, 0, textCounter-createdBefore, "a pure reorder allocates no nodes")
	for i, e := range binding.entries {
		assert.Same(t, before[reversed[i].k], e.node)
	}
}
