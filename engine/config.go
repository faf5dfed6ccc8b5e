package engine

// DebugMode enables the richer hook-order diagnostic message and extra
// consistency checks. The hook-order invariant itself is always
// enforced; DebugMode only controls how much detail the panic message
// carries, keeping the hot path allocation-free in production.
var DebugMode = false

// DebugConfig controls optional diagnostic logging, independent from
// DebugMode's hook-order checking.
type DebugConfig struct {
	// LogFrameLifecycle logs frame creation, coroutine resumption, and
	// commit-phase boundaries at slog.LevelDebug.
	LogFrameLifecycle bool

	// LogLaneTransitions logs every OR-merge of lanes onto a coroutine.
	LogLaneTransitions bool

	// LogStormBudget logs every storm-budget trip at slog.LevelWarn.
	LogStormBudget bool
}

// Debug is the global debug configuration. Set at application startup.
var Debug = DebugConfig{}
