package engine

// BoundaryKind discriminates the entries in a Scope's boundary list.
type BoundaryKind uint8

const (
	BoundaryError BoundaryKind = iota
	BoundaryHydration
	BoundarySharedContext
)

// Boundary is one entry in a Scope's linked list: an error handler, a
// hydration walker, or a shared-context key/value pair.
type Boundary struct {
	Kind    BoundaryKind
	Handler func(err any) (recovered bool)
	Walker  HydrationWalker
	Key     any
	Value   any
	next    *Boundary
}

// Scope is a frame in the linked context chain: a back-pointer to its
// parent plus a singly linked list of boundaries, inherited by child
// components unless a new frame is pushed.
type Scope struct {
	parent     *Scope
	boundaries *Boundary
}

// RootScope creates a fresh root Scope with no parent.
func RootScope() *Scope {
	return &Scope{}
}

// detachedScope is the single frozen sentinel marking a torn-down
// coroutine's scope; equality comparison (pointer identity) is sufficient
// to detect it.
var detachedScope = &Scope{}

// Detached returns the shared detached-scope sentinel.
func Detached() *Scope { return detachedScope }

// IsDetached reports whether s is the detached sentinel.
func (s *Scope) IsDetached() bool { return s == detachedScope }

// Fork returns a new child Scope of s. Used per component render so
// pushing a boundary (catchError, setSharedContext) during one component's
// render never mutates a sibling or ancestor's scope, reentrant-safe by
// construction.
func (s *Scope) Fork() *Scope {
	return &Scope{parent: s}
}

// Parent returns the parent Scope, or nil for a root scope.
func (s *Scope) Parent() *Scope { return s.parent }

// PushBoundary prepends a boundary to this scope's own boundary list,
// without touching the parent.
func (s *Scope) PushBoundary(b *Boundary) {
	b.next = s.boundaries
	s.boundaries = b
}

// FindSharedContext walks this scope's own boundaries, then its parent
// chain, looking for a SharedContext boundary with the given key.
func (s *Scope) FindSharedContext(key any) (any, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		for b := scope.boundaries; b != nil; b = b.next {
			if b.Kind == BoundarySharedContext && b.Key == key {
				return b.Value, true
			}
		}
	}
	return nil, false
}

// FindHydrationWalker walks up the scope chain for the nearest Hydration
// boundary.
func (s *Scope) FindHydrationWalker() (HydrationWalker, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		for b := scope.boundaries; b != nil; b = b.next {
			if b.Kind == BoundaryHydration {
				return b.Walker, true
			}
		}
	}
	return nil, false
}

// Recover walks up the scope chain from s looking for an Error boundary
// whose Handler reports it recovered from err. Returns true if some
// boundary recovered, false if err should keep propagating.
func (s *Scope) Recover(err any) bool {
	for scope := s; scope != nil; scope = scope.parent {
		for b := scope.boundaries; b != nil; b = b.next {
			if b.Kind == BoundaryError && b.Handler != nil {
				if b.Handler(err) {
					return true
				}
			}
		}
	}
	return false
}

// MemoryUsage estimates the byte footprint of this scope's own boundary
// list (not including parents), a cheap diagnostic gauge exposed through
// the metrics backend.
func (s *Scope) MemoryUsage() int64 {
	var n int64
	for b := s.boundaries; b != nil; b = b.next {
		n += 64
	}
	return n + 32
}
