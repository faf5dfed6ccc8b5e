package wsbackend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartzui/quartz/engine"
	"github.com/quartzui/quartz/part"
)

func newTestSession() (*Document, *Loop, *Backend, *engine.Runtime) {
	doc := NewDocument()
	loop := NewLoop()
	backend := New(doc, loop, BackendConfig{})
	rt := engine.NewRuntime(backend, engine.RuntimeConfig{})
	return doc, loop, backend, rt
}

// counterApp is the canonical test component: a count interpolated into a
// template plus a click handler that increments it.
func counterApp(s *engine.RenderSession) any {
	count, setCount, _ := s.UseState(0)
	result, err := s.HTML(part.Part{},
		[]string{`<div class="counter"><p>`, `</p><button @click=`, `>+1</button></div>`},
		count,
		func() { setCount(func(prev any) any { return prev.(int) + 1 }) },
	)
	if err != nil {
		panic(err)
	}
	return result
}

// findByTag walks the document tree for the first element with tag.
func findByTag(n *VNode, tag string) *VNode {
	if n.Tag() == tag {
		return n
	}
	for _, c := range n.Children() {
		if found := findByTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// textUnder collects the concatenated text data under n.
func textUnder(n *VNode) string {
	if n.IsText() {
		return n.Data()
	}
	out := ""
	for _, c := range n.Children() {
		out += textUnder(c)
	}
	return out
}

func TestMountTemplateEndToEnd(t *testing.T) {
	doc, loop, _, rt := newTestSession()

	engine.MountComponent(counterApp, doc.MountPart(), rt)
	loop.RunUntilIdle()

	div := findByTag(doc.Body, "div")
	require.NotNil(t, div)
	v, _ := div.Attr("class")
	assert.Equal(t, "counter", v)

	p := findByTag(doc.Body, "p")
	require.NotNil(t, p)
	assert.Equal(t, "0", textUnder(p))

	button := findByTag(doc.Body, "button")
	require.NotNil(t, button)
	_, registered := button.Handler("click")
	assert.True(t, registered, "the @click hole registered its handler")

	assert.NotEmpty(t, doc.Drain(), "the initial mount produced patches")
}

func TestEventDispatchUpdatesDocument(t *testing.T) {
	doc, loop, backend, rt := newTestSession()
	engine.MountComponent(counterApp, doc.MountPart(), rt)
	loop.RunUntilIdle()
	backend.SetLoaded()
	doc.Drain()

	button := findByTag(doc.Body, "button")
	handler, ok := button.Handler("click")
	require.True(t, ok)

	backend.WithAmbientEvent("click", func() {
		handler.(func())()
		loop.RunUntilIdle()
	})

	p := findByTag(doc.Body, "p")
	assert.Equal(t, "1", textUnder(p))
	assert.NotEmpty(t, doc.Drain(), "the update emitted patches")
}

func TestTemplateRenderReusesCompilation(t *testing.T) {
	doc, loop, _, rt := newTestSession()

	strs := []string{`<p>`, `</p>`}
	var rerender func(any)
	engine.MountComponent(func(s *engine.RenderSession) any {
		n, setN, _ := s.UseState(0)
		rerender = setN
		result, err := s.HTML(part.Part{}, strs, n)
		if err != nil {
			panic(err)
		}
		return result
	}, doc.MountPart(), rt)
	loop.RunUntilIdle()

	tpl1, ok := rt.Cache().Get(strs, engine.ModeHTML)
	require.True(t, ok, "the first render compiled and cached the template")

	rerender(1)
	loop.RunUntilIdle()

	tpl2, ok := rt.Cache().Get(strs, engine.ModeHTML)
	require.True(t, ok)
	assert.Same(t, tpl1, tpl2, "identity-keyed cache reuses the compilation")
	assert.Equal(t, "1", textUnder(findByTag(doc.Body, "p")))
}

func TestCurrentPriorityInference(t *testing.T) {
	_, _, backend, _ := newTestSession()

	assert.Equal(t, engine.PriorityUserBlocking, backend.CurrentPriority(),
		"no event, not loaded: user-blocking")

	backend.WithAmbientEvent("pointermove", func() {
		assert.Equal(t, engine.PriorityUserVisible, backend.CurrentPriority(),
			"continuous input events are user-visible")
	})
	backend.WithAmbientEvent("click", func() {
		assert.Equal(t, engine.PriorityUserBlocking, backend.CurrentPriority(),
			"discrete events are user-blocking")
	})

	backend.SetLoaded()
	assert.Equal(t, engine.PriorityBackground, backend.CurrentPriority(),
		"no event on a loaded document: background")
}

func TestHydrateCommitsNoPatches(t *testing.T) {
	doc, loop, backend, rt := newTestSession()

	app := func(s *engine.RenderSession) any {
		result, err := s.HTML(part.Part{},
			[]string{`<div>`, `<span>`, `</span></div>`},
			"foo", "bar",
		)
		if err != nil {
			panic(err)
		}
		return result
	}

	// First pass: an ordinary render, standing in for the server-rendered
	// document a client would hydrate against.
	engine.MountComponent(app, doc.MountPart(), rt)
	loop.RunUntilIdle()
	require.NotEmpty(t, doc.Drain())
	require.Equal(t, "foobar", textUnder(findByTag(doc.Body, "div")))

	// Second pass: a fresh runtime adopts the same document.
	rt2 := engine.NewRuntime(backend, engine.RuntimeConfig{})
	engine.MountHydrated(app, doc.MountPart(), NewWalker(doc.Body), rt2)
	loop.RunUntilIdle()

	assert.Empty(t, doc.Drain(), "hydrating matching DOM commits nothing")
	assert.Equal(t, "foobar", textUnder(findByTag(doc.Body, "div")))
}

func TestHydrateMismatchReturnsHydrationError(t *testing.T) {
	doc, _, backend, rt := newTestSession()

	tpl, err := backend.ParseTemplate([]string{`<div>`, `<span>`, `</span></div>`}, nil, ph, engine.ModeHTML)
	require.NoError(t, err)

	// A document of the wrong shape: the span is missing.
	wrong := doc.NewElement("section", "")
	divNode := doc.NewElement("div", "")
	divNode.appendChild(doc.NewText("foo"))
	divNode.appendChild(doc.NewComment(""))
	wrong.appendChild(divNode)

	_, err = tpl.Hydrate([]any{"foo", "bar"}, doc.MountPart(), NewWalker(wrong), rt)
	require.Error(t, err)
	var he *engine.HydrationError
	require.ErrorAs(t, err, &he)
}

func TestShouldYieldToMain(t *testing.T) {
	_, _, backend, _ := newTestSession()
	assert.False(t, backend.ShouldYieldToMain(1))
	assert.True(t, backend.ShouldYieldToMain(6))
}

func TestStartViewTransitionDegradesToInline(t *testing.T) {
	_, _, backend, _ := newTestSession()
	ran := false
	ch := backend.StartViewTransition(func() { ran = true })
	<-ch
	assert.True(t, ran)
}
