package engine

import "github.com/quartzui/quartz/part"

// Memo wraps value so the slot it is bound to memoizes bindings by
// directive identity instead of discarding the old binding whenever the
// directive changes. It is the explicit opt-in for conditional
// rendering that toggles between directive kinds at one part (e.g. a
// dialog that alternates between a <form> template and a loading
// spinner) where the toggled-away binding's local state (the one built
// on its own reactive hook list, not raw DOM identity) should survive
// the round trip.
func Memo(value any) any {
	return memoValue{value: value}
}

type memoValue struct{ value any }

func (m memoValue) ResolveDirectiveElement(part.Part) DirectiveElement {
	return DirectiveElement{Directive: MemoDirective, Value: m.value}
}

// memoDirectiveType is the singleton DirectiveType every Memo(...) value
// resolves to; MemoBinding does the actual per-directive parking.
type memoDirectiveType struct{}

func (*memoDirectiveType) Name() string { return "memo" }

func (*memoDirectiveType) Equals(other DirectiveType) bool {
	_, ok := other.(*memoDirectiveType)
	return ok
}

func (t *memoDirectiveType) ResolveBinding(value any, p part.Part, rt *Runtime) (Binding, error) {
	elem, err := ResolveDirective(value, p, rt.Backend())
	if err != nil {
		return nil, err
	}
	inner, err := elem.Directive.ResolveBinding(elem.Value, p, rt)
	if err != nil {
		return nil, err
	}
	return &MemoBinding{
		inner:   inner,
		parked:  make(map[DirectiveType]Binding),
		part:    p,
		runtime: rt,
	}, nil
}

// MemoDirective is the DirectiveType every Memo(...) value carries.
var MemoDirective DirectiveType = &memoDirectiveType{}

// MemoBinding is the directive-preserving cache behind Memo: exactly
// one parked binding is kept per distinct directive type seen at this
// part, and re-entry into a prior directive reuses the parked instance
// instead of constructing a fresh one.
type MemoBinding struct {
	inner   Binding
	parked  map[DirectiveType]Binding
	part    part.Part
	runtime *Runtime
	session *RenderSession
}

func (m *MemoBinding) Type() DirectiveType { return MemoDirective }
func (m *MemoBinding) Value() any          { return m.inner.Value() }
func (m *MemoBinding) Part() part.Part     { return m.part }

// ShouldBind always reports true: the real decision (delegate, reuse a
// parked binding, or create a fresh one) happens in Bind, since it depends
// on which directive the candidate value resolves to.
func (m *MemoBinding) ShouldBind(any) bool { return true }

func (m *MemoBinding) Bind(newValue any) {
	elem, err := ResolveDirective(newValue, m.part, m.runtime.Backend())
	if err != nil {
		fatal(ErrCodeDirectiveMisuse, "memo: %v", err)
	}

	if sameDirective(m.inner.Type(), elem.Directive) {
		if m.inner.ShouldBind(elem.Value) {
			m.inner.Bind(elem.Value)
		}
		return
	}

	// Directive changed: park the outgoing binding under its own type so
	// a later return to that directive reuses it, then either reuse a
	// previously parked binding for the incoming directive or create a
	// fresh one.
	m.parked[m.inner.Type()] = m.inner
	if m.session != nil {
		m.inner.Detach(m.session)
	}

	if reused, ok := m.parked[elem.Directive]; ok {
		delete(m.parked, elem.Directive)
		reused.Bind(elem.Value)
		m.inner = reused
	} else {
		fresh, err := elem.Directive.ResolveBinding(elem.Value, m.part, m.runtime)
		if err != nil {
			fatal(ErrCodeDirectiveMisuse, "memo: %v", err)
		}
		m.inner = fresh
	}

	if m.session != nil {
		m.inner.Attach(m.session)
	}
}

func (m *MemoBinding) Attach(session *RenderSession) {
	m.session = session
	m.inner.Attach(session)
}

func (m *MemoBinding) Detach(session *RenderSession) {
	m.inner.Detach(session)
}

func (m *MemoBinding) Commit(ctx CommitContext) error {
	return m.inner.Commit(ctx)
}

func (m *MemoBinding) Rollback(ctx CommitContext) error {
	return m.inner.Rollback(ctx)
}

// ParkedCount returns the number of bindings currently parked, one per
// distinct directive type seen and not currently active. Exposed for
// tests asserting that exactly one binding stays parked per distinct
// directive type seen.
func (m *MemoBinding) ParkedCount() int { return len(m.parked) }

// Inner returns the currently active inner binding.
func (m *MemoBinding) Inner() Binding { return m.inner }
