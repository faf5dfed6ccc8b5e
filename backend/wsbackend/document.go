package wsbackend

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/quartzui/quartz/part"
)

// Document owns one server-side VNode tree and the patch queue that
// mirrors every mutation committed against it. One Document exists per
// connected session (see Server), matching the reference host's
// session-per-connection model.
type Document struct {
	idCounter uint64

	mu      sync.Mutex
	patches []Patch
	nodes   map[string]*VNode

	// Body is the root element a mounted tree renders into; Anchor is the
	// comment child of Body a Runtime uses as its top-level ChildNode
	// anchor (content is inserted immediately before it).
	Body   *VNode
	Anchor *VNode
}

// NewDocument returns a Document with a body element holding the mount
// anchor comment.
func NewDocument() *Document {
	d := &Document{nodes: make(map[string]*VNode)}
	d.Body = d.NewElement("body", "")
	d.Anchor = d.NewComment("quartz")
	d.Body.appendChild(d.Anchor)
	return d
}

// MountPart returns the ChildNode part a Runtime mounts the root of a
// render tree at: anchored on the document's mount comment.
func (d *Document) MountPart() part.Part {
	return part.Part{Kind: part.ChildNode, AnchorComment: d.Anchor}
}

func (d *Document) nextID() string {
	n := atomic.AddUint64(&d.idCounter, 1)
	return fmt.Sprintf("n%d", n)
}

// NewElement creates a detached element node in the given namespace (""
// for HTML, an SVG/MathML URI for foreign content).
func (d *Document) NewElement(tag, ns string) *VNode {
	return d.register(&VNode{kind: kindElement, id: d.nextID(), doc: d, tag: tag, ns: ns})
}

// NewText creates a detached text node with the given initial data.
func (d *Document) NewText(data string) *VNode {
	return d.register(&VNode{kind: kindText, id: d.nextID(), doc: d, data: data})
}

// NewComment creates a detached comment node, used as a ChildNode anchor.
func (d *Document) NewComment(data string) *VNode {
	return d.register(&VNode{kind: kindComment, id: d.nextID(), doc: d, data: data})
}

// newFragment creates the synthetic container a multi-rooted template
// clone hangs off. Fragments never reach the document tree: their
// children are spliced out individually by whatever ChildNode binding
// hosts the template (engine.FragmentRoot).
func (d *Document) newFragment() *VNode {
	return &VNode{kind: kindFragment, id: d.nextID(), doc: d}
}

func (d *Document) register(n *VNode) *VNode {
	d.mu.Lock()
	d.nodes[n.id] = n
	d.mu.Unlock()
	return n
}

// ByID returns the node with the given host id, used by the server to
// route an incoming client event to the handler registered on it.
func (d *Document) ByID(id string) (*VNode, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[id]
	return n, ok
}

// emit appends a patch to the document's outgoing queue. Called by VNode's
// capability-interface methods as the engine commits bindings against it.
func (d *Document) emit(p Patch) {
	d.mu.Lock()
	d.patches = append(d.patches, p)
	d.mu.Unlock()
}

// Drain takes and clears the document's pending patch queue, the unit a
// Server flushes to the client after each commit.
func (d *Document) Drain() []Patch {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.patches) == 0 {
		return nil
	}
	p := d.patches
	d.patches = nil
	return p
}
