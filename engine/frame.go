package engine

import "sync"

// RenderFrame is the scratchpad for one update batch: the set of
// coroutines due to resume in this batch, plus the three commit-phase
// effect queues they (and the bindings they reconcile) deposit into as
// they render.
type RenderFrame struct {
	ID             uint64
	Lanes          Lanes
	ViewTransition bool

	PendingCoroutines []Coroutine

	MutationEffects []Effect
	LayoutEffects   []Effect
	PassiveEffects  []Effect

	// sessions records every render session created this frame, in
	// creation order. Finalization walks it in reverse once the drain
	// loop settles, so a child's effects are deposited before its
	// parent's even though the parent's coroutine resumed first.
	sessions []*RenderSession

	// commitDone closes once the mutation and layout phases have run;
	// done closes once the passive phase has too. An UpdateHandle issued
	// at background priority waits on done, everything else on
	// commitDone, so a user-blocking caller observes completion before a
	// background caller does even when both ride the same frame.
	commitDone chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	commitOnce sync.Once
	err        error
}

func newFrame(id uint64, lanes Lanes) *RenderFrame {
	return &RenderFrame{
		ID:         id,
		Lanes:      lanes,
		commitDone: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// handleFor returns an UpdateHandle resolving when this frame has
// committed as far as a caller at priority can observe: background
// callers wait out the passive phase, everyone else only mutation+layout.
func (f *RenderFrame) handleFor(priority TaskPriority) *UpdateHandle {
	ch := f.commitDone
	if priority == PriorityBackground {
		ch = f.done
	}
	return &UpdateHandle{done: ch, errPtr: &f.err}
}

// handle returns the frame's full-completion handle (all three phases).
func (f *RenderFrame) handle() *UpdateHandle {
	return &UpdateHandle{done: f.done, errPtr: &f.err}
}

// completeCommit marks the mutation+layout phases finished, waking
// non-background waiters.
func (f *RenderFrame) completeCommit() {
	f.commitOnce.Do(func() { close(f.commitDone) })
}

// complete marks the whole frame finished, recording err (if any) for
// UpdateHandle.Err and waking every remaining waiter.
func (f *RenderFrame) complete(err error) {
	if err != nil && f.err == nil {
		f.err = err
	}
	f.completeCommit()
	f.closeOnce.Do(func() { close(f.done) })
}

// AddMutation appends e to the frame's mutation-phase queue. Bindings call
// this from Attach; useInsertionEffect invokers deposit here at finalize.
func (f *RenderFrame) AddMutation(e Effect) { f.MutationEffects = append(f.MutationEffects, e) }

// AddLayout appends e to the frame's layout-phase queue (useLayoutEffect
// invokers, deposited at finalize).
func (f *RenderFrame) AddLayout(e Effect) { f.LayoutEffects = append(f.LayoutEffects, e) }

// AddPassive appends e to the frame's passive-phase queue (useEffect
// invokers, deposited at finalize).
func (f *RenderFrame) AddPassive(e Effect) { f.PassiveEffects = append(f.PassiveEffects, e) }

// drainMutation takes and clears the mutation queue.
func (f *RenderFrame) drainMutation() []Effect { e := f.MutationEffects; f.MutationEffects = nil; return e }
func (f *RenderFrame) drainLayout() []Effect   { e := f.LayoutEffects; f.LayoutEffects = nil; return e }
func (f *RenderFrame) drainPassive() []Effect  { e := f.PassiveEffects; f.PassiveEffects = nil; return e }

func (f *RenderFrame) drainCoroutines() []Coroutine {
	c := f.PendingCoroutines
	f.PendingCoroutines = nil
	return c
}
