package wsbackend

import "encoding/json"

// PatchOp is the type of patch operation sent to the client: the usual
// vdom patch set widened with SetProp, SetHandler, and RemoveHandler for
// the property and event primitives.
type PatchOp uint8

const (
	PatchSetText PatchOp = iota + 1
	PatchSetAttr
	PatchRemoveAttr
	PatchSetProp
	PatchSetHandler
	PatchRemoveHandler
	PatchInsertNode
	PatchRemoveNode
)

// String returns the patch operation's name, used in diagnostics and debug
// logging.
func (op PatchOp) String() string {
	switch op {
	case PatchSetText:
		return "SetText"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchSetProp:
		return "SetProp"
	case PatchSetHandler:
		return "SetHandler"
	case PatchRemoveHandler:
		return "RemoveHandler"
	case PatchInsertNode:
		return "InsertNode"
	case PatchRemoveNode:
		return "RemoveNode"
	default:
		return "Unknown"
	}
}

// Patch is a single DOM operation queued for the client, accumulated on a
// Document as the engine commits bindings and flushed to the websocket
// connection at the end of a commit phase.
//
// Wire encoding is plain JSON. A length-prefixed binary codec is the
// kind of wire-compatibility surface a client build depends on
// byte-for-byte, and this reference backend has no client build to
// validate one against.
type Patch struct {
	Op       PatchOp `json:"op"`
	NodeID   string  `json:"nodeId"`
	ParentID string  `json:"parentId,omitempty"`
	BeforeID string  `json:"beforeId,omitempty"`
	Key      string  `json:"key,omitempty"`
	Value    string  `json:"value,omitempty"`
	Node     *VNode  `json:"node,omitempty"`
}

// snapshot is the JSON-serializable view of a VNode sent inline with an
// InsertNode patch, since the client has no other way to materialize a
// brand-new subtree it has never seen.
type snapshot struct {
	ID       string              `json:"id"`
	Kind     nodeKind            `json:"kind"`
	Tag      string              `json:"tag,omitempty"`
	Attrs    map[string]string   `json:"attrs,omitempty"`
	Data     string              `json:"data,omitempty"`
	Children []*snapshot         `json:"children,omitempty"`
}

// MarshalJSON flattens a VNode into its wire snapshot: handlers and props
// are registered server-side only, so only the attribute/text/tree shape
// the client needs to paint is sent.
func (n *VNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.snapshot())
}

func (n *VNode) snapshot() *snapshot {
	s := &snapshot{ID: n.id, Kind: n.kind, Tag: n.tag, Attrs: n.attrs, Data: n.data}
	for _, c := range n.children {
		s.Children = append(s.Children, c.snapshot())
	}
	return s
}

// EncodePatches serializes a batch of patches as a JSON array frame, the
// unit written to the websocket connection per flushed commit.
func EncodePatches(patches []Patch) ([]byte, error) {
	return json.Marshal(patches)
}
