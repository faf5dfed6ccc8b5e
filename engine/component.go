package engine

import "github.com/quartzui/quartz/part"

// ComponentFunc is a component's render body: given the RenderSession
// exposing the hook API, it returns the bindable value
// describing this render's output: typically a *RenderResult from one of
// the session's template-tag methods, another component invocation, or a
// scalar. A ComponentFunc is itself Bindable (see ResolveDirectiveElement
// below), so embedding one directly in template interpolation is enough to
// mount it.
type ComponentFunc func(s *RenderSession) any

// ResolveDirectiveElement makes ComponentFunc a Bindable: any value of this type bypasses the primitive
// registry and resolves straight to ComponentDirective.
func (f ComponentFunc) ResolveDirectiveElement(part.Part) DirectiveElement {
	return DirectiveElement{Directive: ComponentDirective, Value: f}
}

// componentDirectiveType is the singleton DirectiveType every
// ComponentFunc value carries.
type componentDirectiveType struct{}

func (*componentDirectiveType) Name() string { return "component" }
func (*componentDirectiveType) Equals(other DirectiveType) bool {
	_, ok := other.(*componentDirectiveType)
	return ok
}

func (t *componentDirectiveType) ResolveBinding(value any, p part.Part, rt *Runtime) (Binding, error) {
	fn, ok := value.(ComponentFunc)
	if !ok {
		return nil, &DirectiveError{Directive: t.Name(), Reason: "component binding requires a ComponentFunc value"}
	}
	if p.Kind != part.ChildNode {
		return nil, &DirectiveError{Directive: t.Name(), Reason: "component requires a ChildNode part"}
	}
	return NewComponent(fn, p, rt), nil
}

// ComponentDirective is the DirectiveType every ComponentFunc value
// carries.
var ComponentDirective DirectiveType = &componentDirectiveType{}

// Component is the concrete Coroutine: "an object with
// a resume(lanes, session) method that re-runs the component once." It
// owns the hook list across renders (stable identity so hook state
// survives from one render to the next), the scope it was mounted under,
// and the inner Slot its rendered output reconciles into at its host
// part. Component also implements Binding, so from its own parent's point
// of view it is simply the thing occupying a ChildNode part: mounting,
// rebinding (new props via a new closure), and unmounting a component are
// all expressed through the ordinary Binding lifecycle, while the actual
// render work happens on the scheduler's coroutine-resume path.
type Component struct {
	fn    ComponentFunc
	hooks *HookList
	scope *Scope

	part    part.Part
	runtime *Runtime
	inner   *Slot
}

// NewComponent constructs a Component bound at p. Its scope is set to the
// root scope until Attach supplies the real parent (ResolveBinding has no
// access to the render session that is about to attach it).
func NewComponent(fn ComponentFunc, p part.Part, rt *Runtime) *Component {
	return &Component{fn: fn, hooks: NewHookList(), scope: RootScope(), part: p, runtime: rt}
}

// Scope returns the scope a render of this component forks from.
func (c *Component) Scope() *Scope { return c.scope }

// Hooks returns this component's stable ordered hook list.
func (c *Component) Hooks() *HookList { return c.hooks }

// Resume re-renders the component once: runs fn against session, then
// reconciles the returned value into the component's inner slot (creating
// it on the first render, rebinding it on every subsequent one), and
// queues the inner slot for commit in this frame's mutation phase. Always
// returns NoLanes: a synchronous component body never produces a partial
// render that leaves lanes outstanding.
func (c *Component) Resume(lanes Lanes, session *RenderSession) Lanes {
	out := c.fn(session)

	if c.inner == nil {
		slot, err := NewSlot(out, c.part, c.runtime)
		if err != nil {
			fatal(ErrCodeDirectiveMisuse, "component: %v", err)
		}
		c.inner = slot
		c.inner.Attach(session)
	} else if err := c.inner.Bind(out, session); err != nil {
		fatal(ErrCodeDirectiveMisuse, "component: %v", err)
	}

	session.frame.AddMutation(c.inner)
	return NoLanes
}

// Type implements Binding.
func (c *Component) Type() DirectiveType { return ComponentDirective }

// Value implements Binding, returning the component's current render
// function (its "props" by closure capture).
func (c *Component) Value() any { return c.fn }

// Part implements Binding.
func (c *Component) Part() part.Part { return c.part }

// ShouldBind always reports true: a component's parent re-renders it by
// handing it a fresh closure every time, and the decision of whether
// anything actually changed is the hook/effect machinery's job, not the
// parent's.
func (c *Component) ShouldBind(any) bool { return true }

// Bind stages newValue as this component's render function and schedules
// a re-render through the normal coroutine machinery: a
// component is never rendered inline from Bind, only from a scheduled
// resume, so that ordering and effect-commit guarantees stay uniform
// whether the re-render was triggered by a parent rebind or by the
// component's own dispatch.
func (c *Component) Bind(newValue any) {
	fn, ok := newValue.(ComponentFunc)
	if !ok {
		fatal(ErrCodeDirectiveMisuse, "component: rebind requires a ComponentFunc value, got %T", newValue)
	}
	c.fn = fn
	c.runtime.ScheduleUpdate(c, UpdateOptions{})
}

// Attach mounts the component: adopts session's scope as its parent scope
// (the real parent, unavailable at ResolveBinding time) and schedules its
// first render. When session is non-nil (the common case: this component
// was resolved while its parent was itself rendering), the render is
// appended to that same in-flight frame so it resumes in the current
// flush's drain loop rather than waiting on a fresh scheduled callback
//. A nil session (a bare root mount, see Mount) has no
// enclosing frame to join, so it seeds and flushes one synchronously
// through the runtime directly.
func (c *Component) Attach(session *RenderSession) {
	if session != nil {
		c.scope = session.Scope()
		c.runtime.mergeLanes(c, session.frame.Lanes)
		session.frame.PendingCoroutines = append(session.frame.PendingCoroutines, c)
		return
	}
	c.runtime.MountRoot(c, UpdateOptions{})
}

// Detach tears the component down: marks its scope the detached sentinel
// so any in-flight dispatch becomes a no-op, drops the scheduler's
// bookkeeping for it, and detaches its inner slot.
func (c *Component) Detach(session *RenderSession) {
	c.scope = Detached()
	c.runtime.Forget(c)
	if c.inner != nil {
		c.inner.Detach(session)
	}
}

// Commit delegates to the inner slot. Ordinarily already committed by the
// scheduler's own mutation-phase walk (Resume queues c.inner directly),
// this exists so a parent walking its own nested slots depth-first (as
// nodeBinding does for a *RenderResult's Slots) also reaches a consistent
// state; Slot.Commit is idempotent once committed.
func (c *Component) Commit(ctx CommitContext) error {
	if c.inner == nil {
		return nil
	}
	return c.inner.Commit(ctx)
}

// Rollback delegates to the inner binding.
func (c *Component) Rollback(ctx CommitContext) error {
	if c.inner == nil {
		return nil
	}
	return c.inner.Binding().Rollback(ctx)
}

// FirstNode returns the first DOM node of this component's rendered
// output, if any, so Repeat can recover a row's position when the row's
// content is itself a component.
func (c *Component) FirstNode() part.Node {
	if c.inner == nil {
		return nil
	}
	if fn, ok := c.inner.Binding().(interface{ FirstNode() part.Node }); ok {
		return fn.FirstNode()
	}
	return nil
}

// Mount binds value at anchor as the root of a render tree and flushes it
// synchronously, returning once the initial commit (and anything it
// scheduled during that same flush) has completed. It is sugar for
// mounting a trivial Component whose body always returns value, the
// uniform entry point for mounting a value at a DOM anchor, whether
// value is a template result, a
// component invocation, or a plain scalar.
func Mount(value any, anchor part.Part, rt *Runtime) *Component {
	return MountComponent(func(*RenderSession) any { return value }, anchor, rt)
}

// MountComponent mounts fn as the root component at anchor and flushes it
// synchronously.
func MountComponent(fn ComponentFunc, anchor part.Part, rt *Runtime) *Component {
	comp := NewComponent(fn, anchor, rt)
	comp.Attach(nil)
	return comp
}

// MountHydrated mounts fn at anchor against pre-rendered DOM: a Hydration
// boundary carrying walker is installed on the root scope before the
// first flush, so every template rendered during the initial pass adopts
// the existing nodes instead of cloning fresh ones, and hydrated slots
// commit nothing when the DOM already matches. Renders after a component's first pass go through the
// ordinary Render path.
func MountHydrated(fn ComponentFunc, anchor part.Part, walker HydrationWalker, rt *Runtime) *Component {
	comp := NewComponent(fn, anchor, rt)
	comp.scope.PushBoundary(&Boundary{Kind: BoundaryHydration, Walker: walker})
	comp.Attach(nil)
	return comp
}
