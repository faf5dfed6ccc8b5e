package engine

import (
	"log/slog"
	"sync"
)

// BudgetExceededMode determines scheduler behavior once a storm budget
// trips: throttle drops the excess work silently, tripBreaker stops
// resuming coroutines in the current flush entirely until the next one.
type BudgetExceededMode int

const (
	BudgetModeThrottle BudgetExceededMode = iota
	BudgetModeTripBreaker
)

// StormBudgetConfig bounds the amplification a single flush can cause: a
// component whose effect reschedules itself (or a sibling) every render
// would otherwise starve the scheduler.
type StormBudgetConfig struct {
	MaxResumesPerFlush int
	OnExceeded         BudgetExceededMode
}

// StormBudgetTracker enforces a StormBudgetConfig across the coroutine
// resumes of one flushAsync/flushSync call. A nil tracker imposes no
// limit: zero means unlimited.
type StormBudgetTracker struct {
	max        int
	onExceeded BudgetExceededMode

	mu      sync.Mutex
	resumes int
}

// NewStormBudgetTracker returns a tracker enforcing cfg, or nil (no limit)
// if cfg is nil or MaxResumesPerFlush is zero.
func NewStormBudgetTracker(cfg *StormBudgetConfig) *StormBudgetTracker {
	if cfg == nil || cfg.MaxResumesPerFlush == 0 {
		return nil
	}
	return &StormBudgetTracker{max: cfg.MaxResumesPerFlush, onExceeded: cfg.OnExceeded}
}

// ErrBudgetExceeded is returned by CheckResume once the flush has resumed
// max coroutines.
var ErrBudgetExceeded = &FatalError{Code: ErrCodeStormBudget, Message: "storm budget exceeded: too many coroutine resumes in one flush"}

// CheckResume reports whether another coroutine resume is permitted this
// flush, incrementing the counter when it is.
func (t *StormBudgetTracker) CheckResume() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resumes >= t.max {
		if Debug.LogStormBudget {
			slog.Warn("storm budget exceeded", "limit", t.max, "mode", t.onExceeded)
		}
		return ErrBudgetExceeded
	}
	t.resumes++
	return nil
}

// tripBreaker reports whether CheckResume failures should stop the flush
// loop outright rather than merely skip the offending coroutine.
func (t *StormBudgetTracker) tripBreaker() bool {
	return t != nil && t.onExceeded == BudgetModeTripBreaker
}
