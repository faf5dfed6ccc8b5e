package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartzui/quartz/part"
)

func commitAt(t *testing.T, rt *Runtime, value any, p part.Part) Binding {
	t.Helper()
	slot, err := NewSlot(value, p, rt)
	require.NoError(t, err)
	require.NoError(t, slot.Commit(CommitContext{Backend: rt.Backend(), Phase: Mutation}))
	return slot.Binding()
}

func TestAttributeCommitSemantics(t *testing.T) {
	_, rt := newTestRuntime()

	t.Run("string value", func(t *testing.T) {
		el := &tnode{id: "el", kind: "element"}
		commitAt(t, rt, "v1", part.Part{Kind: part.Attribute, Element: el, Name: "href"})
		assert.Equal(t, "v1", el.attrs["href"])
	})

	t.Run("true renders empty attribute", func(t *testing.T) {
		el := &tnode{id: "el", kind: "element"}
		commitAt(t, rt, true, part.Part{Kind: part.Attribute, Element: el, Name: "disabled"})
		v, ok := el.attrs["disabled"]
		require.True(t, ok)
		assert.Equal(t, "", v)
	})

	t.Run("false removes", func(t *testing.T) {
		el := &tnode{id: "el", kind: "element", attrs: map[string]string{"disabled": ""}}
		commitAt(t, rt, false, part.Part{Kind: part.Attribute, Element: el, Name: "disabled"})
		_, ok := el.attrs["disabled"]
		assert.False(t, ok)
	})

	t.Run("nil removes", func(t *testing.T) {
		el := &tnode{id: "el", kind: "element", attrs: map[string]string{"href": "x"}}
		p := part.Part{Kind: part.Attribute, Element: el, Name: "href"}
		slot, err := NewSlot("x", p, rt)
		require.NoError(t, err)
		ctx := CommitContext{Backend: rt.Backend(), Phase: Mutation}
		require.NoError(t, slot.Commit(ctx))
		require.NoError(t, slot.Bind(nil, nil))
		require.NoError(t, slot.Commit(ctx))
		_, ok := el.attrs["href"]
		assert.False(t, ok)
	})
}

func TestClassListCommit(t *testing.T) {
	_, rt := newTestRuntime()

	el := &tnode{id: "el", kind: "element"}
	commitAt(t, rt, map[string]bool{"b": true, "a": true, "off": false},
		part.Part{Kind: part.Attribute, Element: el, Name: ":classlist"})
	assert.Equal(t, "a b", el.attrs["class"], "enabled classes render sorted")

	el2 := &tnode{id: "el2", kind: "element"}
	commitAt(t, rt, []string{"x", "y"},
		part.Part{Kind: part.Attribute, Element: el2, Name: ":classlist"})
	assert.Equal(t, "x y", el2.attrs["class"])
}

func TestStyleCommit(t *testing.T) {
	_, rt := newTestRuntime()
	el := &tnode{id: "el", kind: "element"}
	commitAt(t, rt, map[string]string{"color": "red", "background": "blue"},
		part.Part{Kind: part.Attribute, Element: el, Name: ":style"})
	assert.Equal(t, "background:blue;color:red;", el.attrs["style"])
}

func TestSpreadSkipsEventKeys(t *testing.T) {
	_, rt := newTestRuntime()
	el := &tnode{id: "el", kind: "element"}
	commitAt(t, rt, map[string]any{"id": "main", "onclick": "nope", "title": nil},
		part.Part{Kind: part.Element, Element: el})

	assert.Equal(t, "main", el.attrs["id"])
	_, hasOn := el.attrs["onclick"]
	assert.False(t, hasOn, "onX keys are events, not attributes")
	_, hasTitle := el.attrs["title"]
	assert.False(t, hasTitle, "nil entries remove")
}

func TestEventHandlerLifecycle(t *testing.T) {
	_, rt := newTestRuntime()
	el := &tnode{id: "el", kind: "element"}
	p := part.Part{Kind: part.Event, Element: el, Name: "click"}

	handler := func() {}
	slot, err := NewSlot(handler, p, rt)
	require.NoError(t, err)
	ctx := CommitContext{Backend: rt.Backend(), Phase: Mutation}
	require.NoError(t, slot.Commit(ctx))
	_, registered := el.handlers["click"]
	require.True(t, registered)

	slot.Detach(nil)
	_, registered = el.handlers["click"]
	assert.False(t, registered, "detach unregisters the handler")
}

func TestLiveBindingBaselineRollback(t *testing.T) {
	_, rt := newTestRuntime()
	el := &tnode{id: "el", kind: "element", props: map[string]any{"value": "typed"}}
	p := part.Part{Kind: part.Live, Element: el, Property: "value"}

	slot, err := NewSlot("server", p, rt)
	require.NoError(t, err)
	ctx := CommitContext{Backend: rt.Backend(), Phase: Mutation}
	require.NoError(t, slot.Commit(ctx))
	require.Equal(t, "server", el.props["value"])

	require.NoError(t, slot.Binding().Rollback(ctx))
	assert.Equal(t, "typed", el.props["value"], "rollback restores the pre-bind live value")
}

func TestLiveShouldBindReadsLiveValue(t *testing.T) {
	_, rt := newTestRuntime()
	el := &tnode{id: "el", kind: "element", props: map[string]any{"value": "abc"}}
	p := part.Part{Kind: part.Live, Element: el, Property: "value"}

	slot, err := NewSlot("abc", p, rt)
	require.NoError(t, err)
	assert.False(t, slot.Binding().ShouldBind("abc"), "matching live value needs no write")

	el.props["value"] = "user-typed"
	assert.True(t, slot.Binding().ShouldBind("abc"), "live drift forces a write")
}

func TestPropertyDefaultFallback(t *testing.T) {
	_, rt := newTestRuntime()
	el := &tnode{id: "el", kind: "element"}
	p := part.Part{Kind: part.Property, Element: el, Property: "tabIndex", Default: 0}

	slot, err := NewSlot(5, p, rt)
	require.NoError(t, err)
	ctx := CommitContext{Backend: rt.Backend(), Phase: Mutation}
	require.NoError(t, slot.Commit(ctx))
	require.Equal(t, 5, el.props["tabIndex"])

	require.NoError(t, slot.Bind(nil, nil))
	require.NoError(t, slot.Commit(ctx))
	assert.Equal(t, 0, el.props["tabIndex"], "nil falls back to the part default")
}

func TestTextSandwichCommit(t *testing.T) {
	_, rt := newTestRuntime()
	txt := &tnode{id: "t", kind: "text"}
	p := part.Part{Kind: part.Text, TextNode: txt, PrecedingText: "Count: ", FollowingText: "!"}

	commitAt(t, rt, 42, p)
	assert.Equal(t, "Count: 42!", txt.data)
}

func TestRefAssignAndClear(t *testing.T) {
	_, rt := newTestRuntime()
	el := &tnode{id: "el", kind: "element"}
	p := part.Part{Kind: part.Attribute, Element: el, Name: ":ref"}

	ref := &Ref{}
	slot, err := NewSlot(ref, p, rt)
	require.NoError(t, err)
	ctx := CommitContext{Backend: rt.Backend(), Phase: Mutation}
	require.NoError(t, slot.Commit(ctx))
	require.Same(t, el, ref.Current)

	slot.Detach(nil)
	assert.Nil(t, ref.Current, "detach clears the ref")
}

func TestBlackholeCommitsNothing(t *testing.T) {
	_, rt := newTestRuntime()
	container, anchor := newAnchor()

	slot, err := NewSlot(nil, anchor, rt)
	require.NoError(t, err)
	require.Equal(t, "blackhole", slot.Binding().Type().Name())
	require.NoError(t, slot.Commit(CommitContext{Backend: rt.Backend(), Phase: Mutation}))
	assert.Empty(t, container.texts())
	assert.False(t, slot.Binding().ShouldBind("anything"))
}
