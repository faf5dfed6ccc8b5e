package engine

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// RuntimeConfig configures a Runtime at construction.
type RuntimeConfig struct {
	// StormBudget bounds coroutine resumes per flush; nil disables the
	// check entirely.
	StormBudget *StormBudgetConfig

	// Metrics, if set, receives scheduler instrumentation; a nil Metrics
	// is a no-op.
	Metrics Metrics

	// Tracer, if set, wraps each flush and commit phase in a span.
	Tracer Tracer

	// PanicReporter, if set, receives panics that escaped every
	// ErrorBoundary. The coroutine's lanes are cleared and the frame
	// recorded failed before the reporter runs, so a reporter that itself
	// panics cannot wedge the scheduler's bookkeeping.
	PanicReporter PanicReporter
}

// coroutineState is the scheduler's per-coroutine bookkeeping: pending
// lanes plus one pending task per distinct priority currently in flight,
// keyed for the coalescing rule: two ScheduleUpdate calls on the same
// coroutine with the same priority return the same task handle. A map
// rather than a list since lookup is always by priority, never by
// position.
type coroutineState struct {
	lanes        Lanes
	pendingTasks map[TaskPriority]*UpdateHandle
}

// Runtime is the central scheduler: a monotonic frame id
// counter, a shared template cache, a per-runtime random id token, and the
// coroutine-state map, plus the Backend every flush ultimately drives.
type Runtime struct {
	backend Backend
	cache   *TemplateCache
	idToken string

	frameCounter uint64
	idCounter    uint32

	mu           sync.Mutex
	coroutines   map[Coroutine]*coroutineState
	currentFrame *RenderFrame

	storm    *StormBudgetConfig
	metrics  Metrics
	tracer   Tracer
	reporter PanicReporter
}

// NewRuntime constructs a Runtime driving backend, with a fresh template
// cache and a random per-runtime id token for UseID.
func NewRuntime(backend Backend, cfg RuntimeConfig) *Runtime {
	return &Runtime{
		backend:    backend,
		cache:      NewTemplateCache(),
		idToken:    randomToken(),
		coroutines: make(map[Coroutine]*coroutineState),
		storm:      cfg.StormBudget,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		reporter:   cfg.PanicReporter,
	}
}

func randomToken() string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "quartz"
	}
	return hex.EncodeToString(buf[:])
}

// Backend returns the backend this runtime drives.
func (rt *Runtime) Backend() Backend { return rt.backend }

// Cache returns the runtime's shared template cache.
func (rt *Runtime) Cache() *TemplateCache { return rt.cache }

// nextID returns the next useId value: the runtime's random token
// followed by a monotonically increasing counter.
func (rt *Runtime) nextID() string {
	n := atomic.AddUint32(&rt.idCounter, 1)
	return fmt.Sprintf("%s-%d", rt.idToken, n)
}

func (rt *Runtime) nextFrameID() uint64 {
	return atomic.AddUint64(&rt.frameCounter, 1)
}

func (rt *Runtime) stateFor(co Coroutine) *coroutineState {
	st, ok := rt.coroutines[co]
	if !ok {
		st = &coroutineState{pendingTasks: make(map[TaskPriority]*UpdateHandle)}
		rt.coroutines[co] = st
	}
	return st
}

// IsUpdatePending reports whether co has any lanes outstanding.
func (rt *Runtime) IsUpdatePending(co Coroutine) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	st, ok := rt.coroutines[co]
	return ok && !st.lanes.IsEmpty()
}

// PendingTaskCount reports how many distinct-priority tasks are currently
// in flight for co, exposed for tests asserting the coalescing rule.
func (rt *Runtime) PendingTaskCount(co Coroutine) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	st, ok := rt.coroutines[co]
	if !ok {
		return 0
	}
	return len(st.pendingTasks)
}

// mergeLanes folds lanes onto co's pending set without scheduling a
// task, used by the same-frame requeue paths (ForceUpdate's in-flight
// coalescing, a child component attaching mid-flush) where the coroutine
// is appended to an already-draining frame directly.
func (rt *Runtime) mergeLanes(co Coroutine, lanes Lanes) {
	rt.mu.Lock()
	st := rt.stateFor(co)
	st.lanes = st.lanes.Merge(lanes)
	rt.mu.Unlock()
}

// Forget drops a coroutine's scheduler bookkeeping once its scope is
// detached and no pending task references it, freeing the entry (called
// by the owning facade when a component unmounts).
func (rt *Runtime) Forget(co Coroutine) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.coroutines, co)
}

// priorityKey resolves the bookkeeping key scheduleUpdate coalesces
// pending tasks on: the explicit priority if given, else whatever the
// backend currently infers.
func (rt *Runtime) priorityKey(opts UpdateOptions) TaskPriority {
	if opts.Priority != "" {
		return opts.Priority
	}
	return rt.backend.CurrentPriority()
}

// ScheduleUpdate computes lanes from
// options, OR-merge them onto the coroutine's pending lanes, and either
// coalesce into an existing same-priority pending task or push a fresh one
// through the backend's requestCallback.
func (rt *Runtime) ScheduleUpdate(co Coroutine, opts UpdateOptions) *UpdateHandle {
	if co.Scope().IsDetached() {
		return completedHandle()
	}

	lanes := lanesForOptions(opts, rt.backend)
	priority := rt.priorityKey(opts)

	rt.mu.Lock()
	st := rt.stateFor(co)
	st.lanes = st.lanes.Merge(lanes)
	if Debug.LogLaneTransitions {
		slog.Debug("lanes merged", "lanes", st.lanes, "priority", priority)
	}
	if existing, ok := st.pendingTasks[priority]; ok {
		rt.mu.Unlock()
		return existing
	}

	frame := rt.activeFrameLocked()
	frame.Lanes = frame.Lanes.Merge(lanes)
	handle := frame.handleFor(priority)
	st.pendingTasks[priority] = handle
	rt.mu.Unlock()

	rt.backend.RequestCallback(func() {
		rt.runScheduledTask(co, priority, frame, opts)
	}, RequestOptions{Priority: priority})

	return handle
}

// MountRoot schedules co for an immediate synchronous render: merges the
// lanes opts implies onto it, seeds a frame with co as its sole pending
// coroutine, and flushes that frame synchronously end to end. Used for the
// root of a render tree (see Mount/MountComponent), where there is no
// enclosing frame for Attach to append to the way a nested component's
// Attach does.
func (rt *Runtime) MountRoot(co Coroutine, opts UpdateOptions) {
	lanes := lanesForOptions(opts, rt.backend)

	rt.mu.Lock()
	st := rt.stateFor(co)
	st.lanes = st.lanes.Merge(lanes)
	frame := rt.activeFrameLocked()
	frame.Lanes = frame.Lanes.Merge(lanes)
	frame.PendingCoroutines = append(frame.PendingCoroutines, co)
	rt.mu.Unlock()

	rt.FlushSync(opts, frame)
}

// TxNamed wraps fn (typically one or more ForceUpdate/dispatch calls) in
// an observability label surfaced as a trace span name. It carries no
// scheduling semantics of its own: fn runs inline; only the resulting
// schedule/commit work is attributed to name for tracing.
func (rt *Runtime) TxNamed(name string, fn func()) {
	_, span := rt.traceStart(name)
	defer span.End()
	fn()
}

// activeFrameLocked returns the frame currently being assembled, creating
// one if scheduleUpdate hasn't been called since the last commit. Callers
// must hold rt.mu.
func (rt *Runtime) activeFrameLocked() *RenderFrame {
	if rt.currentFrame == nil {
		rt.currentFrame = newFrame(rt.nextFrameID(), NoLanes)
	}
	return rt.currentFrame
}

// rotateFrameLocked detaches frame as the runtime's active frame so any
// scheduleUpdate triggered while frame is mid-commit lands on a fresh
// frame instead. Callers must hold rt.mu.
func (rt *Runtime) rotateFrameLocked(frame *RenderFrame) {
	if rt.currentFrame == frame {
		rt.currentFrame = nil
	}
}

func (rt *Runtime) runScheduledTask(co Coroutine, priority TaskPriority, frame *RenderFrame, opts UpdateOptions) {
	rt.mu.Lock()
	st := rt.stateFor(co)
	delete(st.pendingTasks, priority)
	lanesNow := st.lanes
	rt.mu.Unlock()

	if lanesNow.IsEmpty() {
		return
	}

	frame.PendingCoroutines = append(frame.PendingCoroutines, co)
	rt.FlushAsync(opts, frame)
}

// FlushAsync drains frame's pending
// coroutines, resuming each and folding back any remaining lanes, yielding
// to the backend between batches while resumption keeps appending more
// work, then committing all three phases.
func (rt *Runtime) FlushAsync(opts UpdateOptions, frame *RenderFrame) {
	_, span := rt.traceStart("flushAsync")
	defer span.End()

	tracker := NewStormBudgetTracker(rt.storm)

	for {
		batch := frame.drainCoroutines()
		if len(batch) == 0 {
			break
		}

		for _, co := range batch {
			if err := tracker.CheckResume(); err != nil {
				if tracker.tripBreaker() {
					frame.PendingCoroutines = nil
					break
				}
				continue
			}
			if err := rt.resumeOne(co, frame); err != nil {
				rt.abortFrame(frame, err)
				return
			}
		}

		if len(frame.PendingCoroutines) > 0 {
			<-rt.backend.YieldToMain(YieldOptions{Priority: opts.Priority})
			continue
		}
		break
	}

	rt.finalizeSessions(frame)
	rt.commit(opts, frame)
}

// finalizeSessions freezes each rendered component's hook list and
// deposits its effect invokers, walking the frame's sessions newest-first
// so descendants (created later) deposit before ancestors, per-component
// declaration order preserved by each Finalize. A component
// resumed more than once this frame finalizes only its latest session.
func (rt *Runtime) finalizeSessions(frame *RenderFrame) {
	seen := make(map[*HookList]bool, len(frame.sessions))
	for i := len(frame.sessions) - 1; i >= 0; i-- {
		s := frame.sessions[i]
		if seen[s.hooks] {
			continue
		}
		seen[s.hooks] = true
		s.Finalize()
	}
	frame.sessions = nil
}

// FlushSync is the same drain loop without
// yielding, committing all three phases inline once draining completes.
func (rt *Runtime) FlushSync(opts UpdateOptions, frame *RenderFrame) {
	tracker := NewStormBudgetTracker(rt.storm)

	for {
		batch := frame.drainCoroutines()
		if len(batch) == 0 {
			break
		}
		for _, co := range batch {
			if err := tracker.CheckResume(); err != nil {
				if tracker.tripBreaker() {
					frame.PendingCoroutines = nil
					break
				}
				continue
			}
			if err := rt.resumeOne(co, frame); err != nil {
				rt.abortFrame(frame, err)
				return
			}
		}
	}

	rt.finalizeSessions(frame)
	rt.commitInline(opts, frame)
}

// abortFrame applies the render-error policy: an error no boundary
// recovered aborts the frame: nothing commits, pending work is dropped,
// and every handle riding the frame resolves with the error.
func (rt *Runtime) abortFrame(frame *RenderFrame, err error) {
	frame.PendingCoroutines = nil
	frame.drainMutation()
	frame.drainLayout()
	frame.drainPassive()

	rt.mu.Lock()
	rt.rotateFrameLocked(frame)
	rt.mu.Unlock()

	frame.complete(err)
}

// resumeOne re-runs one coroutine. The coroutine's pending lanes are
// zeroed *before* Resume, so a dispatch issued during render merges fresh
// lanes and schedules a follow-up frame instead of being absorbed
// silently.
// A panic no ErrorBoundary in the scope chain recovers is converted to an
// error after the coroutine's lanes are cleared, reported through the
// configured PanicReporter, and returned so the caller aborts the frame.
func (rt *Runtime) resumeOne(co Coroutine, frame *RenderFrame) error {
	if co.Scope().IsDetached() {
		return nil
	}

	rt.mu.Lock()
	st := rt.stateFor(co)
	lanes := st.lanes
	st.lanes = NoLanes
	rt.mu.Unlock()

	if lanes.IsEmpty() {
		return nil
	}

	if rt.metrics != nil {
		rt.metrics.CoroutineResumed()
		rt.metrics.ObserveScopeMemory(co.Scope().MemoryUsage())
	}
	if Debug.LogFrameLifecycle {
		slog.Debug("resuming coroutine", "frame", frame.ID, "lanes", lanes)
	}

	session := NewRenderSession(rt, co.Hooks(), frame, co, co.Scope())
	frame.sessions = append(frame.sessions, session)

	var caught any
	remaining := func() (r Lanes) {
		defer func() {
			if perr := recover(); perr != nil {
				if !co.Scope().Recover(perr) {
					caught = perr
				}
				r = NoLanes
			}
		}()
		return co.Resume(lanes, session)
	}()

	rt.mu.Lock()
	st.lanes = st.lanes.Merge(remaining)
	if caught != nil {
		st.lanes = NoLanes
	}
	rt.mu.Unlock()

	if caught != nil {
		if rt.reporter != nil {
			rt.reporter.ReportPanic(caught)
		}
		if err, ok := caught.(error); ok {
			return err
		}
		return fmt.Errorf("render panic: %v", caught)
	}
	return nil
}

// commit is the async commit path: mutation then layout effects run
// as a tight synchronous loop inside a callback handed to the backend,
// via startViewTransition when the frame asked for one, else a
// user-blocking requestCallback. Remaining passive effects are scheduled
// separately at background priority. Nothing here blocks: the frame's
// handles resolve as each completion point is reached.
func (rt *Runtime) commit(opts UpdateOptions, frame *RenderFrame) {
	mutation := frame.drainMutation()
	layout := frame.drainLayout()
	passive := frame.drainPassive()

	rt.mu.Lock()
	rt.rotateFrameLocked(frame)
	rt.mu.Unlock()

	callback := func() {
		rt.runCommitPhase(mutation, Mutation, frame)
		rt.runCommitPhase(layout, Layout, frame)
		frame.completeCommit()

		if len(passive) > 0 {
			rt.backend.RequestCallback(func() {
				rt.runCommitPhase(passive, Passive, frame)
				rt.finishFrame(frame)
			}, RequestOptions{Priority: PriorityBackground})
		} else {
			rt.finishFrame(frame)
		}
	}

	if opts.ViewTransition {
		rt.backend.StartViewTransition(callback)
	} else {
		rt.backend.RequestCallback(callback, RequestOptions{Priority: PriorityUserBlocking})
	}
}

// commitInline is flushSync's commit: every phase runs synchronously, in
// order, before returning.
func (rt *Runtime) commitInline(opts UpdateOptions, frame *RenderFrame) {
	mutation := frame.drainMutation()
	layout := frame.drainLayout()
	passive := frame.drainPassive()

	rt.mu.Lock()
	rt.rotateFrameLocked(frame)
	rt.mu.Unlock()

	rt.runCommitPhase(mutation, Mutation, frame)
	rt.runCommitPhase(layout, Layout, frame)
	frame.completeCommit()
	rt.runCommitPhase(passive, Passive, frame)
	rt.finishFrame(frame)
}

func (rt *Runtime) finishFrame(frame *RenderFrame) {
	if rt.metrics != nil {
		rt.metrics.FrameCompleted(frame.Lanes)
	}
	if Debug.LogFrameLifecycle {
		slog.Debug("frame complete", "frame", frame.ID, "lanes", frame.Lanes, "err", frame.err)
	}
	frame.complete(frame.err)
}

func (rt *Runtime) runCommitPhase(effects []Effect, phase Phase, frame *RenderFrame) {
	if len(effects) == 0 {
		return
	}
	_, span := rt.traceStart("commit." + phase.String())
	started := time.Now()
	err := rt.backend.CommitEffects(effects, phase, CommitContext{Backend: rt.backend, Phase: phase})
	span.End()
	if rt.metrics != nil {
		rt.metrics.ObserveCommitPhase(phase, len(effects), time.Since(started).Seconds())
	}
	if err != nil && frame.err == nil {
		frame.err = err
	}
}

func (rt *Runtime) traceStart(name string) (any, TraceSpan) {
	if rt.tracer == nil {
		return nil, noopSpan{}
	}
	return rt.tracer.Start(name)
}
