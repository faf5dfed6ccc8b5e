package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/quartzui/quartz/part"
)

// Test host: a flat node model just rich enough to back every primitive.
// The real host lives in backend/wsbackend; engine tests use this one so
// scheduler and binding semantics are exercised without a parser in the
// loop.

type tparent struct {
	children []part.Node
}

func (p *tparent) indexOf(n part.Node) int {
	for i, c := range p.children {
		if c == n {
			return i
		}
	}
	return -1
}

// texts returns the data of every text node currently in the container,
// in order.
func (p *tparent) texts() []string {
	var out []string
	for _, c := range p.children {
		if n, ok := c.(*tnode); ok && n.kind == "text" {
			out = append(out, n.data)
		}
	}
	return out
}

type tnode struct {
	id     string
	kind   string
	data   string
	parent *tparent

	attrs    map[string]string
	props    map[string]any
	handlers map[string]any

	textWrites int
}

func (n *tnode) ID() string { return n.id }

func (n *tnode) SetText(data string) {
	n.data = data
	n.textWrites++
}

func (n *tnode) SetAttr(name, value string) {
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[name] = value
}

func (n *tnode) RemoveAttr(name string) { delete(n.attrs, name) }

func (n *tnode) SetProp(name string, value any) {
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[name] = value
}

func (n *tnode) GetProp(name string) any { return n.props[name] }

func (n *tnode) SetHandler(name string, handler any) {
	if n.handlers == nil {
		n.handlers = make(map[string]any)
	}
	n.handlers[name] = handler
}

func (n *tnode) RemoveHandler(name string) { delete(n.handlers, name) }

// InsertBefore inserts (or moves) newNode immediately before n among n's
// parent's children.
func (n *tnode) InsertBefore(newNode part.Node) {
	nn := newNode.(*tnode)
	if nn.parent != nil {
		if idx := nn.parent.indexOf(nn); idx >= 0 {
			nn.parent.children = append(nn.parent.children[:idx], nn.parent.children[idx+1:]...)
		}
	}
	idx := n.parent.indexOf(n)
	n.parent.children = append(n.parent.children, nil)
	copy(n.parent.children[idx+1:], n.parent.children[idx:])
	n.parent.children[idx] = nn
	nn.parent = n.parent
}

func (n *tnode) Remove() {
	if n.parent == nil {
		return
	}
	if idx := n.parent.indexOf(n); idx >= 0 {
		n.parent.children = append(n.parent.children[:idx], n.parent.children[idx+1:]...)
	}
	n.parent = nil
}

var textCounter int

func (n *tnode) NewSiblingText(data string) part.Node {
	textCounter++
	return &tnode{id: fmt.Sprintf("t%d", textCounter), kind: "text", data: data}
}

// newAnchor builds a container with an anchor comment and the ChildNode
// part bound to it.
func newAnchor() (*tparent, part.Part) {
	container := &tparent{}
	anchor := &tnode{id: "anchor", kind: "comment", parent: container}
	container.children = append(container.children, anchor)
	return container, part.Part{Kind: part.ChildNode, AnchorComment: anchor}
}

// fakeBackend queues callbacks by priority and drains them on demand,
// standing in for the host scheduler the way wsbackend's Loop does in
// production.
type fbTask struct {
	fn   func()
	done chan struct{}
}

type fakeBackend struct {
	mu      sync.Mutex
	queues  map[TaskPriority][]*fbTask
	ambient TaskPriority

	vtCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{queues: make(map[TaskPriority][]*fbTask)}
}

func (b *fakeBackend) ResolvePrimitive(value any, p part.Part) (Primitive, error) {
	return nil, errors.New("fake backend: no host primitives")
}

func (b *fakeBackend) ResolveSlotType(value any, p part.Part) SlotType {
	if p.IsChildNode() {
		return Loose
	}
	return Strict
}

func (b *fakeBackend) CommitEffects(effects []Effect, phase Phase, ctx CommitContext) error {
	return CommitSequential(effects, ctx)
}

func (b *fakeBackend) RequestCallback(callback func(), opts RequestOptions) <-chan struct{} {
	t := &fbTask{fn: callback, done: make(chan struct{})}
	b.mu.Lock()
	b.queues[opts.Priority] = append(b.queues[opts.Priority], t)
	b.mu.Unlock()
	return t.done
}

func (b *fakeBackend) pop(priorities ...TaskPriority) *fbTask {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range priorities {
		if q := b.queues[p]; len(q) > 0 {
			b.queues[p] = q[1:]
			return q[0]
		}
	}
	return nil
}

// runAll drains every queue, highest priority first, until idle.
func (b *fakeBackend) runAll() {
	for {
		t := b.pop(PriorityUserBlocking, PriorityUserVisible, PriorityBackground)
		if t == nil {
			return
		}
		t.fn()
		close(t.done)
	}
}

// runPriority drains only the given queue, returning how many tasks ran.
func (b *fakeBackend) runPriority(p TaskPriority) int {
	ran := 0
	for {
		t := b.pop(p)
		if t == nil {
			return ran
		}
		t.fn()
		close(t.done)
		ran++
	}
}

func (b *fakeBackend) YieldToMain(opts YieldOptions) <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (b *fakeBackend) ShouldYieldToMain(elapsedMs float64) bool { return elapsedMs > 5 }

func (b *fakeBackend) StartViewTransition(callback func()) <-chan struct{} {
	b.vtCalls++
	callback()
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (b *fakeBackend) CurrentPriority() TaskPriority {
	if b.ambient != "" {
		return b.ambient
	}
	return PriorityUserBlocking
}

func (b *fakeBackend) ParseTemplate([]string, []any, string, TemplateMode) (*Template, error) {
	return nil, errors.New("fake backend: templates not supported")
}

func (b *fakeBackend) StdContext() context.Context { return context.Background() }

func newTestRuntime() (*fakeBackend, *Runtime) {
	b := newFakeBackend()
	return b, NewRuntime(b, RuntimeConfig{})
}
