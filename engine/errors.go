package engine

import "fmt"

// Error codes prefix fatal invariant violations so they are greppable
// across logs and issue reports.
const (
	ErrCodeHookOrder        = "E001"
	ErrCodeHookListFrozen   = "E002"
	ErrCodeDirectiveMisuse  = "E003"
	ErrCodeHydrationMismatch = "E004"
	ErrCodeCoroutineDetached = "E005"
	ErrCodePartMismatch     = "E006"
	ErrCodeInvalidUsable    = "E007"
	ErrCodeStormBudget      = "E008"
)

// FatalError is a programmer error that is not recoverable by an
// ErrorBoundary because it indicates the render tree itself is in an
// inconsistent state (hook order, hook-list growth, part/directive
// mismatch). It is always thrown synchronously by panic.
type FatalError struct {
	Code    string
	Message string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("[QUARTZ %s] %s", e.Code, e.Message)
}

func fatal(code, format string, args ...any) {
	panic(&FatalError{Code: code, Message: fmt.Sprintf(format, args...)})
}

// DirectiveError is raised when a directive is applied to an incompatible
// part type. Unlike FatalError it is raised at resolveBinding time and is
// catchable by an ErrorBoundary during render.
type DirectiveError struct {
	Directive string
	Reason    string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("directive %q: %s", e.Directive, e.Reason)
}

// HydrationError is raised by Template.Hydrate when the live DOM does not
// match the shape the template expects. Catchable by an ErrorBoundary.
type HydrationError struct {
	Expected string
	Reason   string
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("[QUARTZ %s] hydration mismatch: expected %s: %s", ErrCodeHydrationMismatch, e.Expected, e.Reason)
}
