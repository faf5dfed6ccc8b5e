package engine

import "github.com/quartzui/quartz/part"

// TemplateMode selects the parsing/namespace rules a tagged template
// string is compiled under.
type TemplateMode uint8

const (
	ModeHTML TemplateMode = iota
	ModeSVG
	ModeMath
	ModeTextarea
)

// Hole is a single part descriptor inside a compiled Template: the part
// kind/shape it will produce, plus the path used to locate the
// corresponding node inside a freshly cloned fragment or an in-progress
// hydration walk.
type Hole struct {
	// Path is the sequence of child indices from the fragment root to the
	// node this hole targets (e.g. [0, 2] means "root's first child's
	// third child").
	Path []int

	// Kind is the Part.Kind this hole will produce.
	Kind part.Kind

	// Name is the attribute or event name for Attribute/Event holes.
	Name string

	// Property is the DOM property name for Live/Property holes.
	Property string

	// Default is the static default recorded for a Property hole.
	Default any

	// NamespaceURI is set for ChildNode holes under foreign content (SVG,
	// MathML).
	NamespaceURI string

	// PrecedingText/FollowingText sandwich a Text hole's interpolation.
	PrecedingText string
	FollowingText string
}

// FragmentFactory produces a fresh clone of the template's compiled DOM
// fragment, and must visit nodes in the exact same document order every
// call so Hole.Path stays valid. Supplied by the Backend that parsed the
// template.
type FragmentFactory func() (root part.Node, nodeAt func(path []int) part.Node)

// HydrationWalker iterates a pre-rendered DOM in document order, handing
// back the node expected at each hole's path, or an error if the document
// shape diverges from what the template compiled.
type HydrationWalker interface {
	// NodeAt returns the node the walker has reached for the hole at
	// path, consuming exactly the nodes/attributes that one hole shape
	// requires. A HydrationError is returned on any mismatch.
	NodeAt(path []int, hole Hole) (part.Node, error)
}

// Template is an immutable compiled skeleton: a
// fragment factory plus an ordered hole list. It is produced once per
// distinct tagged-template string array and cached for the runtime's
// lifetime.
type Template struct {
	Mode    TemplateMode
	Holes   []Hole
	Factory FragmentFactory

	// rootNamespaceURI is the namespace new top-level children are
	// created under (propagated to ChildNode holes that don't declare
	// their own).
	rootNamespaceURI string
}

// RenderResult is what Template.Render and Template.Hydrate both produce:
// the instantiated child nodes plus the slot list created for each hole,
// in hole order.
type RenderResult struct {
	ChildNodes []part.Node
	Slots      []*Slot
}

// Render deep-clones the template's fragment, walks to each hole using its
// stored path, wraps each corresponding bind value in a Slot resolved
// through rt, and returns the fragment's child nodes plus the slot list.
func (t *Template) Render(binds []any, hostPart part.Part, rt *Runtime) (*RenderResult, error) {
	if len(binds) != len(t.Holes) {
		fatal(ErrCodePartMismatch, "template render: %d binds for %d holes", len(binds), len(t.Holes))
	}

	root, nodeAt := t.Factory()
	result := &RenderResult{Slots: make([]*Slot, 0, len(t.Holes))}

	for i, hole := range t.Holes {
		node := nodeAt(hole.Path)
		p := t.partForHole(hole, node, hostPart)
		slot, err := NewSlot(binds[i], p, rt)
		if err != nil {
			return nil, err
		}
		result.Slots = append(result.Slots, slot)
	}

	result.ChildNodes = collectChildren(root)
	return result, nil
}

// Hydrate walks the pre-rendered DOM reachable from walker, asserting it
// visits exactly the same node sequence Render would have produced. Slots
// created this way are marked connected and already committed, so the next
// commit is a no-op when the DOM already matches.
func (t *Template) Hydrate(binds []any, hostPart part.Part, walker HydrationWalker, rt *Runtime) (*RenderResult, error) {
	if len(binds) != len(t.Holes) {
		fatal(ErrCodePartMismatch, "template hydrate: %d binds for %d holes", len(binds), len(t.Holes))
	}

	result := &RenderResult{Slots: make([]*Slot, 0, len(t.Holes)), ChildNodes: nil}

	for i, hole := range t.Holes {
		node, err := walker.NodeAt(hole.Path, hole)
		if err != nil {
			return nil, err
		}
		p := t.partForHole(hole, node, hostPart)
		slot, err := HydrateSlot(binds[i], p, rt)
		if err != nil {
			return nil, err
		}
		result.Slots = append(result.Slots, slot)
	}

	return result, nil
}

func (t *Template) partForHole(h Hole, node part.Node, hostPart part.Part) part.Part {
	p := part.Part{
		Kind:          h.Kind,
		Name:          h.Name,
		Property:      h.Property,
		Default:       h.Default,
		PrecedingText: h.PrecedingText,
		FollowingText: h.FollowingText,
		NamespaceURI:  h.NamespaceURI,
	}
	if p.NamespaceURI == "" {
		p.NamespaceURI = t.rootNamespaceURI
	}
	switch h.Kind {
	case part.Text:
		p.TextNode = node
	case part.ChildNode:
		p.AnchorComment = node
		p.AnchorNode = node
	default:
		p.Element = node
	}
	return p
}

// FragmentRoot is implemented by host fragment roots whose children, not
// the root itself, are a template's top-level nodes. A host that wraps a
// multi-rooted template in a synthetic container returns the real children
// here so ChildNode bindings insert them individually.
type FragmentRoot interface {
	FragmentChildren() []part.Node
}

func collectChildren(root part.Node) []part.Node {
	if root == nil {
		return nil
	}
	if f, ok := root.(FragmentRoot); ok {
		return f.FragmentChildren()
	}
	return []part.Node{root}
}
