package engine

import "github.com/quartzui/quartz/part"

// UpdateOptions configures a scheduled or forced update: an explicit
// priority (falling back to Backend.CurrentPriority when empty) plus the
// Sync/ViewTransition modifier lanes.
type UpdateOptions struct {
	Priority       TaskPriority
	Sync           bool
	ViewTransition bool
}

func lanesForOptions(opts UpdateOptions, backend Backend) Lanes {
	priority := opts.Priority
	if priority == "" {
		priority = backend.CurrentPriority()
	}
	lanes := LaneForPriority(priority)
	if opts.Sync {
		lanes = lanes.Merge(LaneSync)
	}
	if opts.ViewTransition {
		lanes = lanes.Merge(LaneViewTransition)
	}
	return lanes
}

// RenderSession is the per-render context a component runs against: its
// hook list, the frame being assembled, its coroutine, and a scope forked
// from its parent, bundled with the hook and lifecycle API components call
// through.
type RenderSession struct {
	runtime   *Runtime
	hooks     *HookList
	frame     *RenderFrame
	coroutine Coroutine
	scope     *Scope

	ownedSharedCtx map[any]*Boundary
}

// NewRenderSession constructs the session a coroutine's Resume passes to
// its component function for one render pass.
func NewRenderSession(rt *Runtime, hooks *HookList, frame *RenderFrame, co Coroutine, parentScope *Scope) *RenderSession {
	hooks.StartRender()
	return &RenderSession{
		runtime:   rt,
		hooks:     hooks,
		frame:     frame,
		coroutine: co,
		scope:     parentScope.Fork(),
	}
}

// Scope returns the scope forked for this render.
func (s *RenderSession) Scope() *Scope { return s.scope }

// Finalize freezes the hook list (appending the sentinel if needed) and
// deposits the render's effect invokers into the frame's commit queues
//. The scheduler calls it once per rendered component at the end
// of the frame's drain loop, newest session first, so descendants deposit
// before ancestors (see Runtime.finalizeSessions).
func (s *RenderSession) Finalize() {
	mutation, layout, passive := s.hooks.Finalize()
	for _, e := range mutation {
		s.frame.AddMutation(e)
	}
	for _, e := range layout {
		s.frame.AddLayout(e)
	}
	for _, e := range passive {
		s.frame.AddPassive(e)
	}
}

// UseState is UseReducer with a reducer that resolves function actions
// against the prior state.
func (s *RenderSession) UseState(initial any) (any, func(any), bool) {
	state, dispatch, pending := s.UseReducer(stateReducer, initial)
	return state, func(action any) { dispatch(action, UpdateOptions{}) }, pending
}

func stateReducer(state, action any) any {
	if fn, ok := action.(func(any) any); ok {
		return fn(state)
	}
	return action
}

// UseReducer is the reducer hook: a stable dispatch closure that
// computes the next state, schedules an update through the owning
// coroutine when it differs from the pending state under equals (default
// Object.is), and commits memoizedState := pendingState once the frame's
// lanes cover the hook's recorded pending lanes.
func (s *RenderSession) UseReducer(reducer func(state, action any) any, initial any, equals ...func(a, b any) bool) (any, func(action any, opts UpdateOptions), bool) {
	slot := s.hooks.next(HookReducer)

	if slot.reducer == nil {
		if fn, ok := initial.(func() any); ok {
			initial = fn()
		}
		slot.reducer = reducer
		slot.memoizedState = initial
		slot.pendingState = initial
		if len(equals) > 0 && equals[0] != nil {
			slot.equals = equals[0]
		} else {
			slot.equals = isObjectIs
		}

		co := s.coroutine
		rt := s.runtime
		slot.dispatch = func(action any, opts UpdateOptions) {
			next := slot.reducer(slot.pendingState, action)
			if slot.equals(next, slot.pendingState) {
				return
			}
			slot.pendingState = next
			lanes := lanesForOptions(opts, rt.Backend())
			slot.pendingLanes = slot.pendingLanes.Merge(lanes)
			rt.ScheduleUpdate(co, opts)
		}
	}

	if slot.pendingLanes != NoLanes && s.frame.Lanes.Has(slot.pendingLanes) {
		slot.memoizedState = slot.pendingState
		slot.pendingLanes = NoLanes
	}

	dispatch := slot.dispatch
	pending := slot.pendingLanes
	return slot.memoizedState, dispatch, pending != NoLanes
}

// UseMemo re-runs factory and updates the memoized value only when deps are
// sequentially non-equal to the previous call's deps under Object.is, or
// either deps array is nil ("always-changed").
func (s *RenderSession) UseMemo(factory func() any, deps []any) any {
	slot := s.hooks.next(HookMemo)
	if !slot.depsSet || depsChanged(deps, slot.memoDeps) {
		slot.memoValue = factory()
		slot.memoDeps = deps
		slot.depsSet = true
	}
	return slot.memoValue
}

func depsChanged(newDeps, oldDeps []any) bool {
	if newDeps == nil || oldDeps == nil {
		return true
	}
	if len(newDeps) != len(oldDeps) {
		return true
	}
	for i := range newDeps {
		if !isObjectIs(newDeps[i], oldDeps[i]) {
			return true
		}
	}
	return false
}

// RefObject is the sealed cell UseRef returns; only Current is meant to be
// mutated, never replaced by re-assigning the returned pointer. Distinct
// from the engine.Ref primitive target (the `:ref` directive's element
// handle) despite the shared name in spirit; this one holds arbitrary
// hook-local state, not necessarily a DOM node.
type RefObject struct {
	Current any
}

// UseRef is UseMemo(func() any { return &RefObject{initial} }, []any{})
//: the empty, non-nil deps slice compares equal to itself forever,
// so the factory runs exactly once.
func (s *RenderSession) UseRef(initial any) *RefObject {
	return s.UseMemo(func() any { return &RefObject{Current: initial} }, []any{}).(*RefObject)
}

func (s *RenderSession) useEffectHook(kind EffectKind, callback func() func(), deps []any) {
	slot := s.hooks.next(HookEffect)
	slot.effectKind = kind
	slot.callback = callback
	slot.pendingDeps = deps
}

// UseEffect records callback to run in the passive commit phase once its
// deps differ from the previous render's.
func (s *RenderSession) UseEffect(callback func() func(), deps []any) {
	s.useEffectHook(EffectPassive, callback, deps)
}

// UseLayoutEffect is UseEffect for the layout commit phase.
func (s *RenderSession) UseLayoutEffect(callback func() func(), deps []any) {
	s.useEffectHook(EffectLayout, callback, deps)
}

// UseInsertionEffect is UseEffect for the mutation commit phase, for
// effects (like injecting stylesheet rules) that must run before any
// layout effect observes the DOM.
func (s *RenderSession) UseInsertionEffect(callback func() func(), deps []any) {
	s.useEffectHook(EffectInsertion, callback, deps)
}

// UseID allocates an identifier once, from the runtime's monotonically
// increasing counter prefixed by a per-runtime random token.
func (s *RenderSession) UseID() string {
	slot := s.hooks.next(HookID)
	if slot.id == "" {
		slot.id = s.runtime.nextID()
	}
	return slot.id
}

// Usable is the interface a value passed to Use may implement to provide
// its own custom-hook composition.
type Usable interface {
	UseHook(s *RenderSession) any
}

// Use dispatches to a custom-hook method on usable, or invokes it directly
// if it is a plain function, composing further hook calls against this
// session.
func (s *RenderSession) Use(usable any) any {
	if h, ok := usable.(Usable); ok {
		return h.UseHook(s)
	}
	if fn, ok := usable.(func(*RenderSession) any); ok {
		return fn(s)
	}
	fatal(ErrCodeInvalidUsable, "use(): value of type %T is neither Usable nor func(*RenderSession) any", usable)
	panic("unreachable")
}

// ForceUpdate requests a re-render of this component: a no-op completed handle for a
// detached coroutine, same-frame coalescing when the in-progress frame
// already covers the request, else a fresh scheduled update.
func (s *RenderSession) ForceUpdate(opts UpdateOptions) *UpdateHandle {
	if s.coroutine.Scope().IsDetached() {
		return completedHandle()
	}

	requested := lanesForOptions(opts, s.runtime.Backend())
	if s.frame.Lanes.Has(requested) {
		s.runtime.mergeLanes(s.coroutine, requested)
		s.frame.PendingCoroutines = append(s.frame.PendingCoroutines, s.coroutine)
		return s.frame.handle()
	}
	return s.runtime.ScheduleUpdate(s.coroutine, opts)
}

// IsUpdatePending reports whether the owning coroutine has any lanes
// outstanding in the runtime's bookkeeping.
func (s *RenderSession) IsUpdatePending() bool {
	return s.runtime.IsUpdatePending(s.coroutine)
}

// WaitForUpdate returns a channel that closes once the frame currently
// being assembled for this session's coroutine finishes committing.
func (s *RenderSession) WaitForUpdate() <-chan struct{} {
	return s.frame.handle().Done()
}

// CatchError pushes an Error boundary onto this session's scope.
func (s *RenderSession) CatchError(handler func(err any) (recovered bool)) {
	s.scope.PushBoundary(&Boundary{Kind: BoundaryError, Handler: handler})
}

// SetSharedContext pushes a SharedContext boundary for key if this session
// hasn't already pushed one, otherwise updates the value in place.
func (s *RenderSession) SetSharedContext(key, value any) {
	if s.ownedSharedCtx == nil {
		s.ownedSharedCtx = make(map[any]*Boundary)
	}
	if b, ok := s.ownedSharedCtx[key]; ok {
		b.Value = value
		return
	}
	b := &Boundary{Kind: BoundarySharedContext, Key: key, Value: value}
	s.scope.PushBoundary(b)
	s.ownedSharedCtx[key] = b
}

// GetSharedContext walks this session's scope, then its ancestors, for a
// SharedContext boundary matching key.
func (s *RenderSession) GetSharedContext(key any) (any, bool) {
	return s.scope.FindSharedContext(key)
}

func (s *RenderSession) renderTemplate(mode TemplateMode, strings []string, values []any, hostPart part.Part) (*RenderResult, error) {
	backend := s.runtime.Backend()
	tpl, err := s.runtime.Cache().GetOrCompile(strings, values, mode, func() (*Template, error) {
		return backend.ParseTemplate(strings, values, templateHolePlaceholder, mode)
	})
	if err != nil {
		return nil, err
	}
	if walker, ok := s.scope.FindHydrationWalker(); ok && !s.hooks.finalized {
		return tpl.Hydrate(values, hostPart, walker, s.runtime)
	}
	return tpl.Render(values, hostPart, s.runtime)
}

// templateHolePlaceholder is the opaque marker the preprocessor leaves in
// a template's static string chunks at each interpolation site, letting a
// Backend.ParseTemplate implementation locate holes without a real
// tagged-template literal to lean on. It must survive an HTML
// tokenizer untouched in text, attribute-value, and attribute-name
// positions, so it is plain lowercase ASCII rather than a control-byte
// sentinel (a NUL would be replaced with U+FFFD by a conforming parser).
const templateHolePlaceholder = "qz--hole--61b3"

// HTML compiles (or reuses the cached compilation of) strings/values as an
// HTML-mode template and renders it under hostPart.
func (s *RenderSession) HTML(hostPart part.Part, strings []string, values ...any) (*RenderResult, error) {
	return s.renderTemplate(ModeHTML, strings, values, hostPart)
}

// SVG is HTML for SVG foreign content.
func (s *RenderSession) SVG(hostPart part.Part, strings []string, values ...any) (*RenderResult, error) {
	return s.renderTemplate(ModeSVG, strings, values, hostPart)
}

// MathML is HTML for MathML foreign content.
func (s *RenderSession) MathML(hostPart part.Part, strings []string, values ...any) (*RenderResult, error) {
	return s.renderTemplate(ModeMath, strings, values, hostPart)
}

// Text compiles strings/values under Textarea mode, used for raw-text
// element content (<textarea>, <title>) where child markup isn't parsed.
func (s *RenderSession) Text(hostPart part.Part, strings []string, values ...any) (*RenderResult, error) {
	return s.renderTemplate(ModeTextarea, strings, values, hostPart)
}

// DynamicHTML is HTML's counterpart for call sites whose interpolated
// values may include Literal splices: it runs (strings, values)
// through Preprocess first, which expands any Literal values into the
// static chunks and strips them from the bind list, then renders the
// expanded template exactly as HTML would. Repeated calls with the same
// literal positions/contents reuse the same expanded strings array (and
// so the same compiled Template) regardless of differing non-literal
// values.
func (s *RenderSession) DynamicHTML(hostPart part.Part, strings []string, values ...any) (*RenderResult, error) {
	expanded, nonLiteral := Preprocess(strings, values)
	return s.renderTemplate(ModeHTML, expanded, nonLiteral, hostPart)
}

// DynamicSVG is DynamicHTML for SVG foreign content.
func (s *RenderSession) DynamicSVG(hostPart part.Part, strings []string, values ...any) (*RenderResult, error) {
	expanded, nonLiteral := Preprocess(strings, values)
	return s.renderTemplate(ModeSVG, expanded, nonLiteral, hostPart)
}

// DynamicMathML is DynamicHTML for MathML foreign content.
func (s *RenderSession) DynamicMathML(hostPart part.Part, strings []string, values ...any) (*RenderResult, error) {
	expanded, nonLiteral := Preprocess(strings, values)
	return s.renderTemplate(ModeMath, expanded, nonLiteral, hostPart)
}

// DynamicText is DynamicHTML for Textarea mode.
func (s *RenderSession) DynamicText(hostPart part.Part, strings []string, values ...any) (*RenderResult, error) {
	expanded, nonLiteral := Preprocess(strings, values)
	return s.renderTemplate(ModeTextarea, expanded, nonLiteral, hostPart)
}
