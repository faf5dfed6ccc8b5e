package wsbackend

import (
	"fmt"

	"github.com/quartzui/quartz/part"
)

// nodeKind discriminates the three host node shapes a server-driven VNode
// tree needs: elements (attributes/properties/events/children), text nodes
// (a single mutable data string), and comments (used as ChildNode anchors,
// per part.Part.AnchorComment).
type nodeKind uint8

const (
	kindElement nodeKind = iota
	kindText
	kindComment
	kindFragment
)

// VNode is the reference host node: a plain server-side tree node that
// implements every capability interface in package part, so the engine's
// built-in primitives can commit directly against it with no backend
// involvement beyond ResolvePrimitive/ResolveSlotType. Every mutation that
// would touch a real DOM instead both updates this struct's own fields and
// appends a Patch describing the same change to its owning Document, which
// is what actually reaches the browser over the websocket connection.
type VNode struct {
	kind nodeKind
	id   string
	doc  *Document

	tag string
	ns  string

	attrs    map[string]string
	props    map[string]any
	handlers map[string]any

	data string

	parent   *VNode
	children []*VNode
}

// ID implements part.Node.
func (n *VNode) ID() string { return n.id }

// Tag returns the element's tag name, or "" for text/comment nodes.
func (n *VNode) Tag() string { return n.tag }

// Data returns a text or comment node's current character data.
func (n *VNode) Data() string { return n.data }

// Attr returns the current value of the named attribute.
func (n *VNode) Attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// Children returns the node's current child list.
func (n *VNode) Children() []*VNode { return n.children }

// IsComment reports whether n is a comment node.
func (n *VNode) IsComment() bool { return n.kind == kindComment }

// IsText reports whether n is a text node.
func (n *VNode) IsText() bool { return n.kind == kindText }

// IsElement reports whether n is an element node.
func (n *VNode) IsElement() bool { return n.kind == kindElement }

// FragmentChildren implements engine.FragmentRoot for the synthetic
// fragment container a template clone produces: its children, not the
// fragment itself, are the template's top-level nodes.
func (n *VNode) FragmentChildren() []part.Node {
	if n.kind != kindFragment {
		return nil
	}
	out := make([]part.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// --- part.AttrWriter -------------------------------------------------------

func (n *VNode) SetAttr(name, value string) {
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[name] = value
	n.doc.emit(Patch{Op: PatchSetAttr, NodeID: n.id, Key: name, Value: value})
}

func (n *VNode) RemoveAttr(name string) {
	delete(n.attrs, name)
	n.doc.emit(Patch{Op: PatchRemoveAttr, NodeID: n.id, Key: name})
}

// --- part.PropWriter / part.PropReader --------------------------------------

func (n *VNode) SetProp(name string, value any) {
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[name] = value
	n.doc.emit(Patch{Op: PatchSetProp, NodeID: n.id, Key: name, Value: fmt.Sprint(value)})
}

func (n *VNode) GetProp(name string) any {
	if n.props == nil {
		return nil
	}
	return n.props[name]
}

// --- part.EventWriter --------------------------------------------------------

func (n *VNode) SetHandler(name string, handler any) {
	if n.handlers == nil {
		n.handlers = make(map[string]any)
	}
	n.handlers[name] = handler
	n.doc.emit(Patch{Op: PatchSetHandler, NodeID: n.id, Key: name})
}

func (n *VNode) RemoveHandler(name string) {
	delete(n.handlers, name)
	n.doc.emit(Patch{Op: PatchRemoveHandler, NodeID: n.id, Key: name})
}

// Handler returns the handler currently registered for name, for a server
// dispatching an incoming client event back to the user callback that
// SetHandler recorded.
func (n *VNode) Handler(name string) (any, bool) {
	h, ok := n.handlers[name]
	return h, ok
}

// --- part.TextWriter ---------------------------------------------------------

func (n *VNode) SetText(data string) {
	n.data = data
	n.doc.emit(Patch{Op: PatchSetText, NodeID: n.id, Value: data})
}

// NewSiblingText implements part.TextCreator: a detached text node minted
// from this node's owning document, for the child-node primitive's scalar
// coercion.
func (n *VNode) NewSiblingText(data string) part.Node {
	return n.doc.NewText(data)
}

// --- part.SiblingInserter ----------------------------------------------------

// InsertBefore inserts newNode as n's previous sibling under n's parent,
// emitting an InsertNode patch the client applies the same way.
func (n *VNode) InsertBefore(newNode part.Node) {
	child, ok := newNode.(*VNode)
	if !ok {
		panic(fmt.Sprintf("wsbackend: InsertBefore given a foreign node type %T", newNode))
	}
	if n.parent == nil {
		panic("wsbackend: InsertBefore on a node with no parent")
	}
	idx := n.parent.indexOf(n)
	n.parent.children = append(n.parent.children, nil)
	copy(n.parent.children[idx+1:], n.parent.children[idx:])
	n.parent.children[idx] = child
	child.parent = n.parent

	n.doc.emit(Patch{
		Op:       PatchInsertNode,
		NodeID:   child.id,
		ParentID: n.parent.id,
		BeforeID: n.id,
		Node:     child,
	})
}

// Remove detaches n from its parent, emitting a RemoveNode patch.
func (n *VNode) Remove() {
	if n.parent == nil {
		return
	}
	idx := n.parent.indexOf(n)
	if idx < 0 {
		return
	}
	n.parent.children = append(n.parent.children[:idx], n.parent.children[idx+1:]...)
	n.doc.emit(Patch{Op: PatchRemoveNode, NodeID: n.id})
	n.parent = nil
}

func (n *VNode) indexOf(child *VNode) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// appendChild is used at construction time (building a freshly parsed
// template fragment) where no patch needs to be emitted yet: the fragment
// is inserted as a whole by whatever ChildNode binding hosts it.
func (n *VNode) appendChild(child *VNode) {
	child.parent = n
	n.children = append(n.children, child)
}
