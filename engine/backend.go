package engine

import (
	"context"

	"github.com/quartzui/quartz/part"
)

// Phase is one of the three fixed commit-phase buckets effects are sorted
// into.
type Phase uint8

const (
	Mutation Phase = iota
	Layout
	Passive
)

func (p Phase) String() string {
	switch p {
	case Mutation:
		return "mutation"
	case Layout:
		return "layout"
	case Passive:
		return "passive"
	default:
		return "unknown"
	}
}

// TaskPriority is the host scheduler's notion of priority, used both to
// request callbacks and to infer a lane when none is given explicitly
//.
type TaskPriority string

const (
	PriorityUserBlocking TaskPriority = "user-blocking"
	PriorityUserVisible  TaskPriority = "user-visible"
	PriorityBackground   TaskPriority = "background"
)

// RequestOptions configures a host callback request.
type RequestOptions struct {
	Priority TaskPriority
}

// YieldOptions configures a yield-to-main request.
type YieldOptions struct {
	Priority TaskPriority
}

// Backend is the sole abstraction over the host document and its event
// loop. A reference implementation lives in backend/wsbackend and
// drives a server-side VNode tree over a websocket; a browser/WASM host
// would implement the same contract against a real DOM.
type Backend interface {
	// ResolvePrimitive returns the Primitive that owns value at part when
	// no carried directive (Bindable/DirectiveElement) is present.
	ResolvePrimitive(value any, p part.Part) (Primitive, error)

	// ResolveSlotType returns the SlotType a part should use absent an
	// explicit override from resolveDirective.
	ResolveSlotType(value any, p part.Part) SlotType

	// CommitEffects performs the actual host mutation for a batch of
	// committable units collected for one commit phase. Each unit is
	// either a Binding attached during this frame or a hook effect
	// invoker; both satisfy Effect.
	CommitEffects(effects []Effect, phase Phase, ctx CommitContext) error

	// RequestCallback schedules callback to run at the given priority and
	// returns a handle resolved once it has run.
	RequestCallback(callback func(), opts RequestOptions) <-chan struct{}

	// YieldToMain returns a channel that closes at the next main-loop
	// opportunity at the given priority, letting the scheduler cooperate
	// with other host work.
	YieldToMain(opts YieldOptions) <-chan struct{}

	// ShouldYieldToMain reports whether the scheduler has been running
	// continuously long enough (elapsedMs) that it should yield.
	ShouldYieldToMain(elapsedMs float64) bool

	// StartViewTransition wraps callback in the host's view-transition
	// capability if supported, else degrades to a plain invocation
	//.
	StartViewTransition(callback func()) <-chan struct{}

	// CurrentPriority infers a priority from ambient host state (the
	// event currently being handled, document readiness) when a caller
	// does not supply one explicitly.
	CurrentPriority() TaskPriority

	// ParseTemplate compiles strings/values into a Template keyed by mode,
	// using placeholder as the opaque hole marker.
	ParseTemplate(strings []string, values []any, placeholder string, mode TemplateMode) (*Template, error)

	// StdContext returns a context.Context bound to the backend's
	// lifetime, used for cancellation of async work spawned by hooks.
	StdContext() context.Context
}
