package wsbackend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/quartzui/quartz/engine"
	"github.com/quartzui/quartz/part"
)

// yieldIntervalMs is how long the scheduler may run continuously before
// ShouldYieldToMain reports true, the usual host-scheduler convention.
const yieldIntervalMs = 5

// Continuous input events are inferred at user-visible priority; every
// other ambient event is user-blocking.
var continuousEvents = map[string]bool{
	"pointermove": true, "pointerenter": true, "pointerleave": true,
	"pointerover": true, "pointerout": true,
	"mousemove": true, "mouseenter": true, "mouseleave": true,
	"mouseover": true, "mouseout": true,
	"scroll": true, "drag": true, "dragover": true, "dragenter": true,
	"dragleave": true, "touchmove": true, "wheel": true,
}

// BackendConfig configures a Backend.
type BackendConfig struct {
	// Store, if set, is consulted before parsing a template and updated
	// after a parse, letting a fleet of instances share one compiled
	// template cache (see S3TemplateStore).
	Store TemplateStore

	// Context bounds the backend's lifetime; context.Background when nil.
	Context context.Context
}

// Backend implements engine.Backend against a server-side VNode Document,
// queueing host callbacks on a cooperative Loop and mirroring every
// committed mutation as patches for the websocket transport.
type Backend struct {
	doc  *Document
	loop *Loop
	ctx  context.Context

	store TemplateStore

	mu           sync.Mutex
	ambientEvent string
	loaded       bool
}

// New returns a Backend over doc driving loop.
func New(doc *Document, loop *Loop, cfg BackendConfig) *Backend {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Backend{doc: doc, loop: loop, ctx: ctx, store: cfg.Store}
}

// Document returns the VNode document this backend commits against.
func (b *Backend) Document() *Document { return b.doc }

// Loop returns the backend's task loop.
func (b *Backend) Loop() *Loop { return b.loop }

// SetLoaded marks the document fully loaded: with no ambient event, new
// work is inferred at background priority from here on. The Server
// calls this once the initial mount has flushed.
func (b *Backend) SetLoaded() {
	b.mu.Lock()
	b.loaded = true
	b.mu.Unlock()
}

// WithAmbientEvent runs fn with name as the ambient event for priority
// inference, restoring the previous ambient state afterward. The Server
// wraps client event dispatch in this.
func (b *Backend) WithAmbientEvent(name string, fn func()) {
	b.mu.Lock()
	prev := b.ambientEvent
	b.ambientEvent = name
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.ambientEvent = prev
		b.mu.Unlock()
	}()
	fn()
}

// CurrentPriority infers a priority from ambient state: continuous input events
// are user-visible, other events user-blocking, no event and a loaded
// document background, anything else user-blocking.
func (b *Backend) CurrentPriority() engine.TaskPriority {
	b.mu.Lock()
	event := b.ambientEvent
	loaded := b.loaded
	b.mu.Unlock()

	switch {
	case event != "" && continuousEvents[event]:
		return engine.PriorityUserVisible
	case event != "":
		return engine.PriorityUserBlocking
	case loaded:
		return engine.PriorityBackground
	default:
		return engine.PriorityUserBlocking
	}
}

// ResolvePrimitive is the fallback for part shapes the engine's own
// registry doesn't know. The registry covers every kind this host
// produces, so reaching here is a directive misuse.
func (b *Backend) ResolvePrimitive(value any, p part.Part) (engine.Primitive, error) {
	return nil, &engine.DirectiveError{Directive: "wsbackend", Reason: "no primitive for part kind " + p.Kind.String()}
}

// ResolveSlotType implements the default slot policy: only ChildNode
// parts reconcile loosely across directive changes.
func (b *Backend) ResolveSlotType(value any, p part.Part) engine.SlotType {
	if p.IsChildNode() {
		return engine.Loose
	}
	return engine.Strict
}

// CommitEffects runs one phase's effects as a tight synchronous loop
//; each binding's DOM writes land on the VNode tree and mirror
// into the document's patch queue as a side effect.
func (b *Backend) CommitEffects(effects []engine.Effect, phase engine.Phase, ctx engine.CommitContext) error {
	return engine.CommitSequential(effects, ctx)
}

// RequestCallback queues callback on the loop at the given priority.
func (b *Backend) RequestCallback(callback func(), opts engine.RequestOptions) <-chan struct{} {
	return b.loop.Enqueue(callback, opts.Priority)
}

// YieldToMain resolves immediately: the loop is drained by a single
// goroutine with nothing to interleave between tasks, so the next
// main-loop opportunity is now. Host work (incoming events) lands between
// RunUntilIdle calls instead.
func (b *Backend) YieldToMain(opts engine.YieldOptions) <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// ShouldYieldToMain reports true once the scheduler has run continuously
// past the host's yield interval.
func (b *Backend) ShouldYieldToMain(elapsedMs float64) bool {
	return elapsedMs > yieldIntervalMs
}

// StartViewTransition degrades to a plain synchronous invocation; the
// server-side host has no view-transition capability to offer beyond a
// plain microtask.
func (b *Backend) StartViewTransition(callback func()) <-chan struct{} {
	callback()
	ch := make(chan struct{})
	close(ch)
	return ch
}

// StdContext returns the backend's lifetime context.
func (b *Backend) StdContext() context.Context { return b.ctx }

// ParseTemplate compiles strings into a Template, consulting the shared
// template store (when configured) before parsing and publishing fresh
// compilations back to it.
func (b *Backend) ParseTemplate(strs []string, values []any, placeholder string, mode engine.TemplateMode) (*engine.Template, error) {
	key := templateKey(strs, placeholder, mode)

	var ct *compiledTemplate
	if b.store != nil {
		if stored, ok, err := b.store.Load(b.ctx, key); err == nil && ok {
			ct = stored
		}
	}

	if ct == nil {
		compiled, err := compileTemplate(strs, placeholder, mode)
		if err != nil {
			return nil, err
		}
		ct = compiled
		if b.store != nil {
			// Best-effort publish; a store outage never fails a render.
			_ = b.store.Store(b.ctx, key, ct)
		}
	}

	return &engine.Template{
		Mode:  mode,
		Holes: ct.Holes,
		Factory: func() (part.Node, func(path []int) part.Node) {
			return ct.instantiate(b.doc)
		},
	}, nil
}

// templateKey derives the shared store's content key: a digest of the
// static chunks and mode. Unlike the runtime's in-process cache, which is
// keyed by string-array identity, the cross-instance store has no
// identity to share, so contents are the key, with the coarser caching
// semantics that implies.
func templateKey(strs []string, placeholder string, mode engine.TemplateMode) string {
	h := sha256.New()
	h.Write([]byte{byte(mode)})
	h.Write([]byte(strings.Join(strs, placeholder)))
	return hex.EncodeToString(h.Sum(nil)[:16])
}
