package engine

import (
	"strings"

	"github.com/quartzui/quartz/part"
)

// Registry resolves a raw value and a Part into the Primitive that will
// own the binding, applying a fixed resolution table. Its zero value is
// ready to use; DefaultRegistry is the package-wide instance used before
// falling back to a Backend's own resolution (for host-specific part
// shapes the registry doesn't know about).
type Registry struct{}

// DefaultRegistry is consulted first by ResolveDirective.
var DefaultRegistry = &Registry{}

// Resolve applies the resolution table:
//
//   - Attribute parts whose name begins with a reserved sigil map to the
//     corresponding structural primitive (:classlist, :ref, :style); any
//     other leading ":" is a blackhole; anything else is a plain attribute.
//   - ChildNode parts with a nil value map to a blackhole that commits
//     nothing; any other value maps to the node-insertion primitive.
//   - Element, Event, Live, Property, and Text parts map one-to-one to
//     their structural primitive.
func (r *Registry) Resolve(value any, p part.Part) (Primitive, error) {
	switch p.Kind {
	case part.Attribute:
		switch {
		case p.Name == ":classlist":
			return ClassListPrimitive, nil
		case p.Name == ":ref":
			return RefPrimitive, nil
		case p.Name == ":style":
			return StylePrimitive, nil
		case strings.HasPrefix(p.Name, ":"):
			return BlackholePrimitive, nil
		default:
			return AttributePrimitive, nil
		}
	case part.ChildNode:
		if value == nil {
			return BlackholePrimitive, nil
		}
		return NodePrimitive, nil
	case part.Element:
		return SpreadPrimitive, nil
	case part.Event:
		return EventPrimitive, nil
	case part.Live:
		return LivePrimitive, nil
	case part.Property:
		return PropertyPrimitive, nil
	case part.Text:
		return TextPrimitive, nil
	default:
		return nil, &DirectiveError{Directive: "registry", Reason: "unknown part kind " + p.Kind.String()}
	}
}
