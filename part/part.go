// Package part defines the tagged union of DOM insertion sites that values
// are bound against. A Part never carries behavior of its own; it is a
// coordinate, not a directive. See the directive and binding types in
// package engine for the code that interprets a Part.
package part

// Kind discriminates the variant of a Part.
type Kind uint8

const (
	// Attribute binds to a named string attribute on an element.
	Attribute Kind = iota
	// ChildNode binds to a position in a parent's child list, anchored by a
	// marker comment node.
	ChildNode
	// Element spreads a value across an entire element (e.g. a props map).
	Element
	// Event binds a handler to a named DOM event.
	Event
	// Live binds to a live DOM property, reading the current value as the
	// baseline so a binding can be reversible.
	Live
	// Property binds to a plain DOM property with a static default.
	Property
	// Text binds to the interpolated slice of a text node sandwiched
	// between two literal strings.
	Text
)

// String returns a human-readable name for the Kind, used in diagnostics.
func (k Kind) String() string {
	switch k {
	case Attribute:
		return "Attribute"
	case ChildNode:
		return "ChildNode"
	case Element:
		return "Element"
	case Event:
		return "Event"
	case Live:
		return "Live"
	case Property:
		return "Property"
	case Text:
		return "Text"
	default:
		return "Unknown"
	}
}

// Node is the minimal DOM-node contract a Part needs: something that can be
// addressed for a later patch and, for ChildNode parts, something that can
// report/replace its next sibling. Concrete hosts (a browser DOM, or a
// server-driven VNode tree as in the reference wsbackend) implement it.
type Node interface {
	// ID is the host's stable address for this node (an HID in the
	// reference backend, an element handle in a browser host).
	ID() string
}

// Part identifies where a value is bound in the host document. Exactly
// one of the variant-specific fields is meaningful, selected by Kind.
type Part struct {
	Kind Kind

	// Element is set for Attribute, Element, Event, Live, and Property
	// parts: the node the mutation targets.
	Element Node

	// Name is the attribute name (Attribute) or event name (Event).
	Name string

	// Property is the DOM property name for Live and Property parts.
	Property string

	// Default is the static default value recorded for a Property part
	// before any binding has committed to it.
	Default any

	// Baseline is the value read back from the live DOM property before the
	// first write, recorded for a Live part so a binding can roll back.
	Baseline any

	// AnchorComment is the marker comment node for a ChildNode part. Its
	// identity must never change across rebindings at this part.
	AnchorComment Node

	// AnchorNode is the first rendered child of a ChildNode part, or either
	// nil or AnchorComment when no content is rendered (Anchor treats the
	// two alike). It is mutable: Repeat and Slot reconciliation update it
	// as content changes.
	AnchorNode Node

	// NamespaceURI is the XML namespace new child nodes should be created
	// in (e.g. SVG/MathML), set for ChildNode parts only.
	NamespaceURI string

	// PrecedingText and FollowingText sandwich the interpolated value of a
	// Text part: the committed text-node data is always
	// PrecedingText + value + FollowingText.
	PrecedingText string
	FollowingText string

	// TextNode is the text node a Text part writes into.
	TextNode Node
}

// IsChildNode reports whether p is a ChildNode part, the only variant that
// permits Loose slot reconciliation.
func (p Part) IsChildNode() bool {
	return p.Kind == ChildNode
}

// Anchor returns the node new siblings should be inserted before: the
// AnchorNode if content has been rendered, otherwise the anchor comment
// itself. This is the invariant Repeat relies on.
func (p Part) Anchor() Node {
	if p.AnchorNode != nil {
		return p.AnchorNode
	}
	return p.AnchorComment
}

// The interfaces below are the narrow mutation/read capabilities a
// concrete host Node implements. A Binding type-asserts the Node it holds
// to the capability it needs rather than calling back through Backend,
// keeping primitive commit logic host-agnostic: any host (a real DOM, the
// reference server-driven VNode host) that implements the right capability
// interfaces for its node types can back every primitive in package engine.

// TextWriter is implemented by text nodes.
type TextWriter interface {
	SetText(data string)
}

// AttrWriter is implemented by elements that accept attribute writes.
type AttrWriter interface {
	SetAttr(name, value string)
	RemoveAttr(name string)
}

// PropWriter is implemented by elements that accept DOM property writes.
type PropWriter interface {
	SetProp(name string, value any)
}

// PropReader is implemented by elements whose live property value can be
// read back, used by the Live primitive to capture a reversible baseline.
type PropReader interface {
	GetProp(name string) any
}

// EventWriter is implemented by elements that accept event handler
// registration.
type EventWriter interface {
	SetHandler(name string, handler any)
	RemoveHandler(name string)
}

// SiblingInserter is implemented by ChildNode anchor nodes, letting a
// binding insert or remove content immediately before this node without a
// separate parent-element reference.
type SiblingInserter interface {
	InsertBefore(newNode Node)
	Remove()
}

// TextCreator is implemented by nodes whose owning document can mint
// fresh detached text nodes, letting the child-node primitive coerce a
// scalar value into renderable content without a document handle of its
// own.
type TextCreator interface {
	NewSiblingText(data string) Node
}
