package engine

import "github.com/quartzui/quartz/part"

// ResolveDirective is the single entry point that turns any user value
// into a DirectiveElement. A SlotElement is unwrapped and recursed
// into, propagating its own slotType override onto the result; a plain
// Bindable's resolution is used as-is; anything else falls through to the
// primitive registry (and, failing that, the backend's own resolution for
// host-specific part shapes).
func ResolveDirective(value any, p part.Part, backend Backend) (DirectiveElement, error) {
	if se, ok := value.(SlotElement); ok {
		outer := se.ResolveDirectiveElement(p)
		elem, err := ResolveDirective(se.Inner(), p, backend)
		if err != nil {
			return DirectiveElement{}, err
		}
		if outer.SlotType != nil {
			elem.SlotType = outer.SlotType
		}
		return elem, nil
	}

	if b, ok := value.(Bindable); ok {
		return b.ResolveDirectiveElement(p), nil
	}

	prim, err := DefaultRegistry.Resolve(value, p)
	if err != nil {
		prim, err = backend.ResolvePrimitive(value, p)
		if err != nil {
			return DirectiveElement{}, err
		}
	}

	if prim.HasEnsureValue() {
		coerced, err := prim.EnsureValue(value, p)
		if err != nil {
			return DirectiveElement{}, err
		}
		value = coerced
	}

	return DirectiveElement{Directive: prim, Value: value}, nil
}
