package wsbackend

import (
	"fmt"
	"strings"

	"github.com/quartzui/quartz/engine"
	"github.com/quartzui/quartz/part"
)

// Walker iterates a pre-rendered VNode tree in document order,
// implementing engine.HydrationWalker. Pre-rendered markup
// contains one extra wrinkle a plain path walk can't absorb: the content
// a ChildNode hole committed sits *before* its anchor comment among the
// same siblings, shifting every later index. Because templates hand out
// holes in document order, the walker keeps one cursor per parent mapping
// prototype child indices to live ones: static siblings advance 1:1, and
// consuming a ChildNode hole scans forward to the next comment, skipping
// the hole's own rendered content.
type Walker struct {
	root    *VNode
	cursors map[*VNode]*hydrationCursor
}

type hydrationCursor struct {
	protoIdx int
	liveIdx  int
}

// NewWalker returns a Walker over container's children: the nodes a
// prior render of the same template inserted, in order.
func NewWalker(container *VNode) *Walker {
	return &Walker{root: container, cursors: make(map[*VNode]*hydrationCursor)}
}

// NodeAt implements engine.HydrationWalker.
func (w *Walker) NodeAt(path []int, hole engine.Hole) (part.Node, error) {
	if len(path) == 0 {
		return nil, &engine.HydrationError{Expected: hole.Kind.String(), Reason: "empty hole path"}
	}

	parent := w.root
	for _, idx := range path[:len(path)-1] {
		n, err := w.childAt(parent, idx, false, hole)
		if err != nil {
			return nil, err
		}
		parent = n
	}
	return w.childAt(parent, path[len(path)-1], true, hole)
}

// childAt resolves prototype child index want under parent. When consume
// is true this is the hole's own target: the cursor advances past it and
// the node's shape is checked against the hole kind.
func (w *Walker) childAt(parent *VNode, want int, consume bool, hole engine.Hole) (*VNode, error) {
	cur, ok := w.cursors[parent]
	if !ok {
		cur = &hydrationCursor{}
		w.cursors[parent] = cur
	}

	// Static siblings between the cursor and the target map 1:1; any
	// anchor comment before the target was already consumed by an earlier
	// hole (holes arrive in document order).
	for cur.protoIdx < want {
		cur.protoIdx++
		cur.liveIdx++
	}
	if cur.protoIdx > want {
		// Revisiting an already-passed position: several attribute holes
		// share one element, or a descent re-enters a consumed subtree.
		// The live position trails the cursor by its accumulated offset.
		offset := cur.liveIdx - cur.protoIdx
		n, err := w.liveChild(parent, want+offset, hole)
		if err != nil {
			return nil, err
		}
		if consume && hole.Kind != part.ChildNode {
			return n, w.checkShape(n, hole)
		}
		return n, nil
	}

	if !consume {
		return w.liveChild(parent, cur.liveIdx, hole)
	}

	if hole.Kind == part.ChildNode {
		// Skip the hole's own rendered content: everything up to the next
		// comment belongs to it.
		for {
			n, err := w.liveChild(parent, cur.liveIdx, hole)
			if err != nil {
				return nil, err
			}
			cur.liveIdx++
			if n.kind == kindComment {
				cur.protoIdx++
				return n, nil
			}
		}
	}

	n, err := w.liveChild(parent, cur.liveIdx, hole)
	if err != nil {
		return nil, err
	}
	cur.liveIdx++
	cur.protoIdx++
	return n, w.checkShape(n, hole)
}

func (w *Walker) liveChild(parent *VNode, idx int, hole engine.Hole) (*VNode, error) {
	if parent.kind != kindElement && parent != w.root {
		return nil, &engine.HydrationError{Expected: "element", Reason: fmt.Sprintf("node %s is not an element", parent.id)}
	}
	if idx < 0 || idx >= len(parent.children) {
		return nil, &engine.HydrationError{
			Expected: hole.Kind.String(),
			Reason:   fmt.Sprintf("node %s has %d children, need index %d", parent.id, len(parent.children), idx),
		}
	}
	return parent.children[idx], nil
}

// checkShape validates that a consumed node has the kind the hole's part
// demands. Text holes additionally verify the static sandwich: the
// interpolated value between PrecedingText and FollowingText is the
// server's to choose, so only the literals are compared.
func (w *Walker) checkShape(n *VNode, hole engine.Hole) error {
	switch hole.Kind {
	case part.Text:
		if n.kind != kindText {
			return &engine.HydrationError{Expected: "text node", Reason: fmt.Sprintf("found %s node %s", kindName(n.kind), n.id)}
		}
		if !strings.HasPrefix(n.data, hole.PrecedingText) || !strings.HasSuffix(n.data, hole.FollowingText) {
			return &engine.HydrationError{
				Expected: fmt.Sprintf("text %q…%q", hole.PrecedingText, hole.FollowingText),
				Reason:   fmt.Sprintf("found %q", n.data),
			}
		}
	default:
		if n.kind != kindElement {
			return &engine.HydrationError{Expected: "element", Reason: fmt.Sprintf("found %s node %s", kindName(n.kind), n.id)}
		}
	}
	return nil
}

func kindName(k nodeKind) string {
	switch k {
	case kindElement:
		return "element"
	case kindText:
		return "text"
	case kindComment:
		return "comment"
	default:
		return "fragment"
	}
}
