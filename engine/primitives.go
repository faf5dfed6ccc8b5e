package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quartzui/quartz/part"
)

// basePrimitive factors the Name/Equals/EnsureValue bookkeeping shared by
// every built-in primitive. Primitives are package-level singletons, so
// Equals is never needed beyond pointer identity and simply returns false
// (sameDirective already checks pointer identity first).
type basePrimitive struct {
	name        string
	ensureValue func(value any, p part.Part) (any, error)
}

func (b *basePrimitive) Name() string                        { return b.name }
func (b *basePrimitive) Equals(DirectiveType) bool            { return false }
func (b *basePrimitive) HasEnsureValue() bool                 { return b.ensureValue != nil }
func (b *basePrimitive) EnsureValue(v any, p part.Part) (any, error) {
	if b.ensureValue == nil {
		return v, nil
	}
	return b.ensureValue(v, p)
}

// --- Attribute ---------------------------------------------------------

type attributeBinding struct {
	BaseBinding
}

var attributePrimitiveType = &basePrimitive{name: "attribute"}

// AttributePrimitive commits value as a plain string attribute, removing
// the attribute entirely when value is nil.
var AttributePrimitive Primitive = &attributePrimitiveDirective{attributePrimitiveType}

type attributePrimitiveDirective struct{ *basePrimitive }

func (d *attributePrimitiveDirective) ResolveBinding(value any, p part.Part, _ *Runtime) (Binding, error) {
	if p.Kind != part.Attribute {
		return nil, &DirectiveError{Directive: d.name, Reason: "attribute primitive requires an Attribute part"}
	}
	return &attributeBinding{NewBaseBinding(d, value, p)}, nil
}

func (b *attributeBinding) Attach(*RenderSession) {}
func (b *attributeBinding) Detach(*RenderSession) {}

func (b *attributeBinding) Commit(ctx CommitContext) error {
	value, _ := b.TakePending()
	w, ok := b.part.Element.(part.AttrWriter)
	if !ok {
		return fmt.Errorf("attribute: element does not implement AttrWriter")
	}
	if value == nil {
		w.RemoveAttr(b.part.Name)
		return nil
	}
	if on, ok := value.(bool); ok {
		if !on {
			w.RemoveAttr(b.part.Name)
			return nil
		}
		w.SetAttr(b.part.Name, "")
		return nil
	}
	w.SetAttr(b.part.Name, toAttrString(value))
	return nil
}

func (b *attributeBinding) Rollback(CommitContext) error { return nil }

func toAttrString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// --- ClassList -----------------------------------------------------------

// ClassListPrimitive renders a map[string]bool or []string value as the
// "class" attribute, bound at the reserved ":classlist" attribute name.
var ClassListPrimitive Primitive = &classListDirective{&basePrimitive{name: "classlist"}}

type classListDirective struct{ *basePrimitive }

type classListBinding struct{ BaseBinding }

func (d *classListDirective) ResolveBinding(value any, p part.Part, _ *Runtime) (Binding, error) {
	return &classListBinding{NewBaseBinding(d, value, p)}, nil
}

func (b *classListBinding) Attach(*RenderSession) {}
func (b *classListBinding) Detach(*RenderSession) {}
func (b *classListBinding) Rollback(CommitContext) error { return nil }

func (b *classListBinding) Commit(CommitContext) error {
	value, _ := b.TakePending()
	w, ok := b.part.Element.(part.AttrWriter)
	if !ok {
		return fmt.Errorf("classlist: element does not implement AttrWriter")
	}
	classes := classNamesOf(value)
	if len(classes) == 0 {
		w.RemoveAttr("class")
		return nil
	}
	w.SetAttr("class", strings.Join(classes, " "))
	return nil
}

func classNamesOf(value any) []string {
	switch v := value.(type) {
	case map[string]bool:
		names := make([]string, 0, len(v))
		for name, on := range v {
			if on {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		return names
	case []string:
		return v
	case string:
		return strings.Fields(v)
	default:
		return nil
	}
}

// --- Style -----------------------------------------------------------------

// StylePrimitive renders a map[string]string as the "style" attribute,
// bound at the reserved ":style" attribute name.
var StylePrimitive Primitive = &styleDirective{&basePrimitive{name: "style"}}

type styleDirective struct{ *basePrimitive }
type styleBinding struct{ BaseBinding }

func (d *styleDirective) ResolveBinding(value any, p part.Part, _ *Runtime) (Binding, error) {
	return &styleBinding{NewBaseBinding(d, value, p)}, nil
}

func (b *styleBinding) Attach(*RenderSession) {}
func (b *styleBinding) Detach(*RenderSession) {}
func (b *styleBinding) Rollback(CommitContext) error { return nil }

func (b *styleBinding) Commit(CommitContext) error {
	value, _ := b.TakePending()
	w, ok := b.part.Element.(part.AttrWriter)
	if !ok {
		return fmt.Errorf("style: element does not implement AttrWriter")
	}
	decls, ok := value.(map[string]string)
	if !ok || len(decls) == 0 {
		w.RemoveAttr("style")
		return nil
	}
	names := make([]string, 0, len(decls))
	for k := range decls {
		names = append(names, k)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte(':')
		sb.WriteString(decls[name])
		sb.WriteByte(';')
	}
	w.SetAttr("style", sb.String())
	return nil
}

// --- Ref ---------------------------------------------------------------

// Ref is a stable handle a component can pass through html`<div :ref=${r}>`
// to observe the bound element.
type Ref struct {
	Current part.Node
}

// RefPrimitive assigns the element to the Ref's Current field on commit
// and clears it on rollback/unbind.
var RefPrimitive Primitive = &refDirective{&basePrimitive{name: "ref"}}

type refDirective struct{ *basePrimitive }
type refBinding struct{ BaseBinding }

func (d *refDirective) ResolveBinding(value any, p part.Part, _ *Runtime) (Binding, error) {
	if _, ok := value.(*Ref); !ok && value != nil {
		return nil, &DirectiveError{Directive: d.name, Reason: "ref value must be *engine.Ref"}
	}
	return &refBinding{NewBaseBinding(d, value, p)}, nil
}

func (b *refBinding) Attach(*RenderSession) {}
func (b *refBinding) Detach(*RenderSession) {
	if ref, ok := b.value.(*Ref); ok && ref != nil {
		ref.Current = nil
	}
}

func (b *refBinding) Commit(CommitContext) error {
	value, _ := b.TakePending()
	if ref, ok := value.(*Ref); ok && ref != nil {
		ref.Current = b.part.Element
	}
	return nil
}

func (b *refBinding) Rollback(CommitContext) error {
	if ref, ok := b.value.(*Ref); ok && ref != nil {
		ref.Current = nil
	}
	return nil
}

// --- Blackhole -----------------------------------------------------------

// BlackholePrimitive accepts any value and commits nothing: the home for
// a reserved-sigil attribute Quartz doesn't recognize, and for a nil
// ChildNode value.
var BlackholePrimitive Primitive = &blackholeDirective{&basePrimitive{name: "blackhole"}}

type blackholeDirective struct{ *basePrimitive }
type blackholeBinding struct{ BaseBinding }

func (d *blackholeDirective) ResolveBinding(value any, p part.Part, _ *Runtime) (Binding, error) {
	return &blackholeBinding{NewBaseBinding(d, value, p)}, nil
}

func (b *blackholeBinding) ShouldBind(any) bool          { return false }
func (b *blackholeBinding) Attach(*RenderSession)        {}
func (b *blackholeBinding) Detach(*RenderSession)        {}
func (b *blackholeBinding) Commit(CommitContext) error   { return nil }
func (b *blackholeBinding) Rollback(CommitContext) error { return nil }

// --- Element spread --------------------------------------------------------

// SpreadPrimitive writes every entry of a map[string]any across an Element
// part's attributes, skipping entries whose key names an event (leading
// "on", case-insensitively).
var SpreadPrimitive Primitive = &spreadDirective{&basePrimitive{name: "spread"}}

type spreadDirective struct{ *basePrimitive }
type spreadBinding struct{ BaseBinding }

func (d *spreadDirective) ResolveBinding(value any, p part.Part, _ *Runtime) (Binding, error) {
	return &spreadBinding{NewBaseBinding(d, value, p)}, nil
}

func (b *spreadBinding) Attach(*RenderSession) {}
func (b *spreadBinding) Detach(*RenderSession) {}
func (b *spreadBinding) Rollback(CommitContext) error { return nil }

func (b *spreadBinding) Commit(CommitContext) error {
	value, _ := b.TakePending()
	props, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	w, ok := b.part.Element.(part.AttrWriter)
	if !ok {
		return fmt.Errorf("spread: element does not implement AttrWriter")
	}
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		if len(name) > 2 && strings.EqualFold(name[:2], "on") {
			continue
		}
		v := props[name]
		if v == nil {
			w.RemoveAttr(name)
			continue
		}
		w.SetAttr(name, toAttrString(v))
	}
	return nil
}

// --- Event ---------------------------------------------------------------

// EventPrimitive registers/unregisters a handler for a named DOM event.
var EventPrimitive Primitive = &eventDirective{&basePrimitive{name: "event"}}

type eventDirective struct{ *basePrimitive }
type eventBinding struct{ BaseBinding }

func (d *eventDirective) ResolveBinding(value any, p part.Part, _ *Runtime) (Binding, error) {
	return &eventBinding{NewBaseBinding(d, value, p)}, nil
}

func (b *eventBinding) Attach(*RenderSession) {}
func (b *eventBinding) Detach(*RenderSession) {
	if w, ok := b.part.Element.(part.EventWriter); ok {
		w.RemoveHandler(b.part.Name)
	}
}

func (b *eventBinding) Commit(CommitContext) error {
	value, _ := b.TakePending()
	w, ok := b.part.Element.(part.EventWriter)
	if !ok {
		return fmt.Errorf("event: element does not implement EventWriter")
	}
	if value == nil {
		w.RemoveHandler(b.part.Name)
		return nil
	}
	w.SetHandler(b.part.Name, value)
	return nil
}

func (b *eventBinding) Rollback(CommitContext) error { return nil }

// --- Live ---------------------------------------------------------------

// LivePrimitive writes a DOM property and records the value read back from
// the live property as the rollback baseline, letting a binding be
// reversed to what the host actually had rather than to a stale Go-side
// copy.
var LivePrimitive Primitive = &liveDirective{&basePrimitive{name: "live"}}

type liveDirective struct{ *basePrimitive }
type liveBinding struct {
	BaseBinding
	baseline any
	hasBaseline bool
}

func (d *liveDirective) ResolveBinding(value any, p part.Part, _ *Runtime) (Binding, error) {
	b := &liveBinding{BaseBinding: NewBaseBinding(d, value, p)}
	if reader, ok := p.Element.(part.PropReader); ok {
		b.baseline = reader.GetProp(p.Property)
		b.hasBaseline = true
	}
	return b, nil
}

// ShouldBind compares against the live value, not a stale Go copy: a live
// property can change out from under the binding (e.g. user typing into an
// <input>), so committing unconditionally would clobber in-flight input.
func (b *liveBinding) ShouldBind(newValue any) bool {
	if reader, ok := b.part.Element.(part.PropReader); ok {
		return !comparable(reader.GetProp(b.part.Property), newValue)
	}
	return b.BaseBinding.ShouldBind(newValue)
}

func (b *liveBinding) Attach(*RenderSession) {}
func (b *liveBinding) Detach(*RenderSession) {}

func (b *liveBinding) Commit(CommitContext) error {
	value, _ := b.TakePending()
	w, ok := b.part.Element.(part.PropWriter)
	if !ok {
		return fmt.Errorf("live: element does not implement PropWriter")
	}
	w.SetProp(b.part.Property, value)
	return nil
}

func (b *liveBinding) Rollback(CommitContext) error {
	if !b.hasBaseline {
		return nil
	}
	if w, ok := b.part.Element.(part.PropWriter); ok {
		w.SetProp(b.part.Property, b.baseline)
	}
	return nil
}

// --- Property -----------------------------------------------------------

// PropertyPrimitive writes a plain DOM property, falling back to the
// part's static Default when bound with a nil value.
var PropertyPrimitive Primitive = &propertyDirective{&basePrimitive{name: "property"}}

type propertyDirective struct{ *basePrimitive }
type propertyBinding struct{ BaseBinding }

func (d *propertyDirective) ResolveBinding(value any, p part.Part, _ *Runtime) (Binding, error) {
	return &propertyBinding{NewBaseBinding(d, value, p)}, nil
}

func (b *propertyBinding) Attach(*RenderSession) {}
func (b *propertyBinding) Detach(*RenderSession) {}
func (b *propertyBinding) Rollback(CommitContext) error { return nil }

func (b *propertyBinding) Commit(CommitContext) error {
	value, _ := b.TakePending()
	w, ok := b.part.Element.(part.PropWriter)
	if !ok {
		return fmt.Errorf("property: element does not implement PropWriter")
	}
	if value == nil {
		value = b.part.Default
	}
	w.SetProp(b.part.Property, value)
	return nil
}

// --- Text -----------------------------------------------------------------

// TextPrimitive writes PrecedingText + String(value) + FollowingText into
// the bound text node's data.
var TextPrimitive Primitive = &textDirective{&basePrimitive{name: "text"}}

type textDirective struct{ *basePrimitive }
type textBinding struct{ BaseBinding }

func (d *textDirective) ResolveBinding(value any, p part.Part, _ *Runtime) (Binding, error) {
	return &textBinding{NewBaseBinding(d, value, p)}, nil
}

func (b *textBinding) Attach(*RenderSession) {}
func (b *textBinding) Detach(*RenderSession) {}
func (b *textBinding) Rollback(CommitContext) error { return nil }

func (b *textBinding) Commit(CommitContext) error {
	value, _ := b.TakePending()
	w, ok := b.part.TextNode.(part.TextWriter)
	if !ok {
		return fmt.Errorf("text: node does not implement TextWriter")
	}
	w.SetText(b.part.PrecedingText + fmt.Sprint(value) + b.part.FollowingText)
	return nil
}

// --- ChildNode insertion ---------------------------------------------------

// NodePrimitive binds arbitrary renderable content (scalars, nested
// Templates already rendered to a RenderResult, or a single part.Node) at
// a ChildNode part, inserting it immediately before the part's anchor and
// updating AnchorNode to track the first rendered child.
var NodePrimitive Primitive = &nodeDirective{&basePrimitive{name: "node"}}

type nodeDirective struct{ *basePrimitive }
type nodeBinding struct {
	BaseBinding
	inserted []part.Node
	// slots holds the nested per-hole slots of a bound *RenderResult, kept
	// alive so this binding can attach/commit/detach them alongside the
	// literal nodes it inserts. A bound value that isn't a *RenderResult
	// (a bare node, or pre-rendered content with no holes) leaves this
	// nil.
	slots   []*Slot
	session *RenderSession
}

func (d *nodeDirective) ResolveBinding(value any, p part.Part, _ *Runtime) (Binding, error) {
	if p.Kind != part.ChildNode {
		return nil, &DirectiveError{Directive: d.name, Reason: "node primitive requires a ChildNode part"}
	}
	return &nodeBinding{BaseBinding: NewBaseBinding(d, value, p)}, nil
}

func (b *nodeBinding) Attach(session *RenderSession) {
	b.session = session
}

func (b *nodeBinding) Detach(session *RenderSession) {
	b.detachSlots(session)
	b.removeInserted()
	b.session = nil
}

func (b *nodeBinding) detachSlots(session *RenderSession) {
	for _, s := range b.slots {
		s.Detach(session)
	}
	b.slots = nil
}

func (b *nodeBinding) removeInserted() {
	for _, n := range b.inserted {
		if r, ok := n.(part.SiblingInserter); ok {
			r.Remove()
		}
	}
	b.inserted = nil
	b.part.AnchorNode = b.part.AnchorComment
}

func (b *nodeBinding) Commit(ctx CommitContext) error {
	value, _ := b.TakePending()

	nodes, slots := contentOf(value)
	scalar := nodes == nil && slots == nil && value != nil
	if scalar && len(b.slots) == 0 && len(b.inserted) == 1 {
		// Rebinding scalar over scalar mutates the existing text node in
		// place, preserving node identity for reconcilers tracking it.
		if w, ok := b.inserted[0].(part.TextWriter); ok {
			w.SetText(fmt.Sprint(value))
			return nil
		}
	}

	b.detachSlots(b.session)
	b.removeInserted()

	anchor, ok := b.part.Anchor().(part.SiblingInserter)
	if !ok {
		return fmt.Errorf("node: anchor does not implement SiblingInserter")
	}

	if scalar {
		tc, ok := b.part.Anchor().(part.TextCreator)
		if !ok {
			return fmt.Errorf("node: anchor cannot create text content for %T", value)
		}
		nodes = []part.Node{tc.NewSiblingText(fmt.Sprint(value))}
	}
	for _, n := range nodes {
		anchor.InsertBefore(n)
	}
	b.inserted = nodes
	if len(nodes) > 0 {
		b.part.AnchorNode = nodes[0]
	}

	b.slots = slots
	if b.session != nil {
		for _, s := range slots {
			s.Attach(b.session)
		}
	}
	for _, s := range slots {
		if err := s.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *nodeBinding) Rollback(CommitContext) error {
	b.detachSlots(b.session)
	b.removeInserted()
	return nil
}

// FirstNode returns the first node this binding last inserted, or nil if
// it has never committed non-empty content. Repeat uses this to recover a
// row's current DOM position for reordering after a keyed reconciliation
//; it is the only caller that needs to see past the Binding
// interface to a concrete primitive's tracked state.
func (b *nodeBinding) FirstNode() part.Node {
	if len(b.inserted) == 0 {
		return nil
	}
	return b.inserted[0]
}

// contentOf flattens a renderable ChildNode value into the concrete nodes
// to insert plus the nested per-hole slots (if any) that must be attached
// and committed alongside them. *RenderResult (produced by
// Template.Render/Hydrate) contributes its ChildNodes and its Slots; the
// slots are exactly what makes an interpolated value inside a child
// template actually commit, since a template's own Render/Hydrate only
// constructs them without attaching them. A bare part.Node is
// inserted as-is with no nested slots; everything else is scalar content,
// which Commit coerces into a single text node through the anchor's
// part.TextCreator capability.
func contentOf(value any) ([]part.Node, []*Slot) {
	switch v := value.(type) {
	case *RenderResult:
		return v.ChildNodes, v.Slots
	case part.Node:
		return []part.Node{v}, nil
	case []part.Node:
		return v, nil
	default:
		return nil, nil
	}
}
