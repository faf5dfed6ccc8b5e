package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter mounts a single-reducer component rendering its count as text
// content, returning the dispatch captured from the last render.
func mountCounter(t *testing.T, rt *Runtime) (*tparent, *Component, *func(any)) {
	t.Helper()
	container, anchor := newAnchor()
	var dispatch func(any)
	comp := MountComponent(func(s *RenderSession) any {
		n, setN, _ := s.UseState(0)
		dispatch = setN
		return n
	}, anchor, rt)
	require.Equal(t, []string{"0"}, container.texts())
	return container, comp, &dispatch
}

func TestReducerBatching(t *testing.T) {
	backend, rt := newTestRuntime()
	container, comp, dispatch := mountCounter(t, rt)

	inc := func(v any) any { return v.(int) + 1 }
	(*dispatch)(inc)
	(*dispatch)(inc)
	(*dispatch)(inc)

	require.Equal(t, 1, rt.PendingTaskCount(comp), "same-priority updates coalesce into one task")
	require.True(t, rt.IsUpdatePending(comp))

	backend.runAll()

	assert.Equal(t, []string{"3"}, container.texts())
	assert.False(t, rt.IsUpdatePending(comp), "lanes drain to zero after a covering resume")
	assert.Equal(t, 0, rt.PendingTaskCount(comp))
}

func TestReducerSingleRenderPerBatch(t *testing.T) {
	backend, rt := newTestRuntime()
	container, anchor := newAnchor()

	renders := 0
	var dispatch func(any)
	MountComponent(func(s *RenderSession) any {
		renders++
		n, setN, _ := s.UseState(0)
		dispatch = setN
		return n
	}, anchor, rt)
	require.Equal(t, 1, renders)

	dispatch(func(v any) any { return v.(int) + 1 })
	dispatch(func(v any) any { return v.(int) + 1 })
	backend.runAll()

	assert.Equal(t, 2, renders, "one batch, one render")
	assert.Equal(t, []string{"2"}, container.texts())
}

func TestDispatchNoOpSchedulesNothing(t *testing.T) {
	_, rt := newTestRuntime()
	_, comp, dispatch := mountCounter(t, rt)

	(*dispatch)(0) // reducer result equals pending state under Object.is

	assert.Equal(t, 0, rt.PendingTaskCount(comp))
	assert.False(t, rt.IsUpdatePending(comp))
}

func TestCoalescingReturnsSameHandle(t *testing.T) {
	_, rt := newTestRuntime()
	_, comp, _ := mountCounter(t, rt)

	h1 := rt.ScheduleUpdate(comp, UpdateOptions{Priority: PriorityUserBlocking})
	h2 := rt.ScheduleUpdate(comp, UpdateOptions{Priority: PriorityUserBlocking})
	h3 := rt.ScheduleUpdate(comp, UpdateOptions{Priority: PriorityBackground})

	assert.Same(t, h1, h2, "same priority coalesces to the same task handle")
	assert.NotSame(t, h1, h3, "a different priority is a distinct task")
	assert.Equal(t, 2, rt.PendingTaskCount(comp))
}

func TestPriorityPreemption(t *testing.T) {
	backend, rt := newTestRuntime()
	container, anchor := newAnchor()

	passiveRan := 0
	var setA, setB func(any, UpdateOptions)
	MountComponent(func(s *RenderSession) any {
		a, dispatchA, _ := s.UseReducer(stateReducer, "a")
		b, dispatchB, _ := s.UseReducer(stateReducer, "b")
		setA, setB = dispatchA, dispatchB
		s.UseEffect(func() func() {
			passiveRan++
			return nil
		}, []any{a, b})
		return a.(string) + b.(string)
	}, anchor, rt)
	backend.runPriority(PriorityBackground) // initial mount's passive effect
	require.Equal(t, []string{"ab"}, container.texts())
	require.Equal(t, 1, passiveRan)

	setB("x", UpdateOptions{Priority: PriorityBackground})
	setA("y", UpdateOptions{Priority: PriorityUserBlocking})

	// Drain only the user-blocking queue: the render plus its
	// mutation/layout commit run, passive does not.
	backend.runPriority(PriorityUserBlocking)

	assert.Equal(t, []string{"yx"}, container.texts(), "one render reflects both updates")
	assert.Equal(t, 1, passiveRan, "passive effects wait for the background queue")

	backend.runPriority(PriorityBackground)
	assert.Equal(t, 2, passiveRan)
}

// anchorOwner digs the sole registered coroutine back out for tests that
// need a handle to it.
func anchorOwner(rt *Runtime) Coroutine {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for co := range rt.coroutines {
		return co
	}
	return nil
}

func TestPriorityHandleOrdering(t *testing.T) {
	backend, rt := newTestRuntime()
	_, anchor := newAnchor()

	var setA, setB func(any, UpdateOptions)
	MountComponent(func(s *RenderSession) any {
		a, dispatchA, _ := s.UseReducer(stateReducer, "a")
		_, dispatchB, _ := s.UseReducer(stateReducer, "b")
		setA, setB = dispatchA, dispatchB
		s.UseEffect(func() func() { return nil }, nil)
		return a
	}, anchor, rt)
	backend.runAll()

	setB("x", UpdateOptions{Priority: PriorityBackground})
	setA("y", UpdateOptions{Priority: PriorityUserBlocking})

	co := anchorOwner(rt)
	hUB := rt.ScheduleUpdate(co, UpdateOptions{Priority: PriorityUserBlocking})
	hBG := rt.ScheduleUpdate(co, UpdateOptions{Priority: PriorityBackground})

	backend.runPriority(PriorityUserBlocking)

	select {
	case <-hUB.Done():
	default:
		t.Fatal("user-blocking handle should resolve once mutation/layout commit")
	}
	select {
	case <-hBG.Done():
		t.Fatal("background handle must not resolve before the passive phase runs")
	default:
	}

	backend.runPriority(PriorityBackground)
	select {
	case <-hBG.Done():
	default:
		t.Fatal("background handle should resolve after the passive phase")
	}
}

func TestDispatchDuringRenderSchedulesFollowUp(t *testing.T) {
	backend, rt := newTestRuntime()
	container, anchor := newAnchor()

	renders := 0
	var dispatch func(any)
	MountComponent(func(s *RenderSession) any {
		renders++
		n, setN, _ := s.UseState(0)
		dispatch = setN
		if n.(int) == 1 {
			// A dispatch issued mid-render must land in a follow-up
			// frame, not be absorbed by the in-flight one.
			setN(2)
		}
		return n
	}, anchor, rt)

	dispatch(1)
	backend.runAll()

	assert.Equal(t, []string{"2"}, container.texts())
	assert.Equal(t, 3, renders, "mount, render of 1, follow-up render of 2")
	assert.False(t, rt.IsUpdatePending(anchorOwner(rt)))
}

func TestDetachedCoroutineShortCircuits(t *testing.T) {
	backend, rt := newTestRuntime()
	container, comp, dispatch := mountCounter(t, rt)

	comp.Detach(nil)

	h := rt.ScheduleUpdate(comp, UpdateOptions{})
	select {
	case <-h.Done():
	default:
		t.Fatal("detached coroutine must return an already-completed handle")
	}

	(*dispatch)(func(v any) any { return v.(int) + 1 })
	backend.runAll()
	assert.Empty(t, container.texts(), "detach removed the rendered content and nothing re-renders")
}

func TestRenderPanicAbortsFrame(t *testing.T) {
	backend, rt := newTestRuntime()
	container, anchor := newAnchor()

	var dispatch func(any)
	MountComponent(func(s *RenderSession) any {
		n, setN, _ := s.UseState(0)
		dispatch = setN
		if n.(int) == 1 {
			panic(errors.New("boom"))
		}
		return n
	}, anchor, rt)

	dispatch(1)
	h := rt.ScheduleUpdate(anchorOwner(rt), UpdateOptions{Priority: PriorityUserBlocking})
	backend.runAll()

	require.Error(t, h.Err())
	assert.Contains(t, h.Err().Error(), "boom")
	assert.Equal(t, []string{"0"}, container.texts(), "aborted frame commits nothing")
	assert.False(t, rt.IsUpdatePending(anchorOwner(rt)), "lanes clear so future updates run")

	dispatch(5)
	backend.runAll()
	assert.Equal(t, []string{"5"}, container.texts())
}

type recordingReporter struct{ got []any }

func (r *recordingReporter) ReportPanic(recovered any) { r.got = append(r.got, recovered) }

func TestPanicReporterReceivesUnhandledPanics(t *testing.T) {
	backend := newFakeBackend()
	reporter := &recordingReporter{}
	rt := NewRuntime(backend, RuntimeConfig{PanicReporter: reporter})
	_, anchor := newAnchor()

	var dispatch func(any)
	MountComponent(func(s *RenderSession) any {
		n, setN, _ := s.UseState(0)
		dispatch = setN
		if n.(int) == 1 {
			panic("unreported")
		}
		return n
	}, anchor, rt)

	dispatch(1)
	backend.runAll()

	require.Len(t, reporter.got, 1)
	assert.Equal(t, "unreported", reporter.got[0])
}

func TestErrorBoundaryRecoversChildPanic(t *testing.T) {
	backend, rt := newTestRuntime()
	container, anchor := newAnchor()

	var caught []any
	var breakChild func(any)
	parent := func(s *RenderSession) any {
		s.CatchError(func(err any) bool {
			caught = append(caught, err)
			return true
		})
		return ComponentFunc(func(cs *RenderSession) any {
			n, setN, _ := cs.UseState(0)
			breakChild = setN
			if n.(int) == 1 {
				panic("child boom")
			}
			return n
		})
	}

	MountComponent(parent, anchor, rt)
	backend.runAll()
	require.Equal(t, []string{"0"}, container.texts())

	breakChild(1)
	backend.runAll()

	require.Len(t, caught, 1)
	assert.Equal(t, "child boom", caught[0])
	assert.Equal(t, []string{"0"}, container.texts(), "recovered frame keeps prior output")
}

func TestViewTransitionCommit(t *testing.T) {
	backend, rt := newTestRuntime()
	container, comp, dispatch := mountCounter(t, rt)

	// The view-transition task must exist before the dispatch so the
	// dispatch coalesces into it and the commit inherits the option.
	rt.ScheduleUpdate(comp, UpdateOptions{Priority: PriorityUserBlocking, ViewTransition: true})
	(*dispatch)(func(v any) any { return v.(int) + 1 })
	backend.runAll()

	assert.Equal(t, 1, backend.vtCalls, "commit routes through startViewTransition")
	assert.Equal(t, []string{"1"}, container.texts())
}

func TestStormBudgetTripBreakerStopsFlush(t *testing.T) {
	backend := newFakeBackend()
	rt := NewRuntime(backend, RuntimeConfig{
		StormBudget: &StormBudgetConfig{MaxResumesPerFlush: 3, OnExceeded: BudgetModeTripBreaker},
	})
	_, anchor := newAnchor()

	renders := 0
	MountComponent(func(s *RenderSession) any {
		renders++
		if renders < 50 {
			// Same-frame requeue: without a budget this loops until the
			// component stops asking.
			s.ForceUpdate(UpdateOptions{Priority: PriorityUserBlocking})
		}
		return renders
	}, anchor, rt)
	backend.runAll()

	assert.Equal(t, 3, renders, "breaker stops the flush at the budget")
}

func TestStormBudgetThrottleSkipsExcessResumes(t *testing.T) {
	backend := newFakeBackend()
	rt := NewRuntime(backend, RuntimeConfig{
		StormBudget: &StormBudgetConfig{MaxResumesPerFlush: 3, OnExceeded: BudgetModeThrottle},
	})
	_, anchor := newAnchor()

	renders := 0
	MountComponent(func(s *RenderSession) any {
		renders++
		if renders < 50 {
			s.ForceUpdate(UpdateOptions{Priority: PriorityUserBlocking})
		}
		return renders
	}, anchor, rt)
	backend.runAll()

	assert.Equal(t, 3, renders, "throttle skips resumes past the budget for this flush")
}

func TestTxNamedRunsInline(t *testing.T) {
	_, rt := newTestRuntime()
	ran := false
	rt.TxNamed("increment", func() { ran = true })
	assert.True(t, ran)
}

func TestUseIDStablePerHookUniquePerRuntime(t *testing.T) {
	backend, rt := newTestRuntime()
	_, anchor := newAnchor()

	var first, second string
	var rerender func(any)
	MountComponent(func(s *RenderSession) any {
		id1 := s.UseID()
		id2 := s.UseID()
		n, setN, _ := s.UseState(0)
		rerender = setN
		first, second = id1, id2
		return n
	}, anchor, rt)

	require.NotEqual(t, first, second, "distinct hooks allocate distinct ids")
	id1Mount, id2Mount := first, second

	rerender(1)
	backend.runAll()

	assert.Equal(t, id1Mount, first, "ids are stable across renders")
	assert.Equal(t, id2Mount, second)
}
