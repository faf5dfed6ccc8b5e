package wsbackend

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/quartzui/quartz/engine"
	"github.com/quartzui/quartz/part"
)

// Namespace URIs propagated onto foreign-content nodes and ChildNode
// holes.
const (
	svgNamespaceURI  = "http://www.w3.org/2000/svg"
	mathNamespaceURI = "http://www.w3.org/1998/Math/MathML"
)

// Attribute-name sigils selecting the non-attribute part kinds:
// @name binds an event handler, .name a DOM property, $name a live
// property. A bare hole in attribute position is an element spread.
const (
	sigilEvent    = '@'
	sigilProperty = '.'
	sigilLive     = '$'
)

// protoAttr is one static attribute in a compiled prototype.
type protoAttr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// protoNode is one node of a compiled template's prototype tree: the
// immutable skeleton a Factory clones into fresh VNodes per render. The
// JSON tags exist for the shared template store (see TemplateStore),
// which persists prototypes so other instances skip the parse entirely.
type protoNode struct {
	Kind     nodeKind     `json:"kind"`
	Tag      string       `json:"tag,omitempty"`
	NS       string       `json:"ns,omitempty"`
	Attrs    []protoAttr  `json:"attrs,omitempty"`
	Data     string       `json:"data,omitempty"`
	Children []*protoNode `json:"children,omitempty"`
}

// compiledTemplate is the serializable compilation result: prototype
// roots plus the ordered hole list, in document order.
type compiledTemplate struct {
	Mode  engine.TemplateMode `json:"mode"`
	Holes []engine.Hole       `json:"holes"`
	Roots []*protoNode        `json:"roots"`
}

// compileTemplate parses the joined template source (static chunks with
// placeholder markers at each interpolation site) into a compiledTemplate.
// HTML/SVG/MathML modes go through the ecosystem HTML tokenizer with the
// matching fragment context; Textarea mode is raw text and is split
// directly.
func compileTemplate(strs []string, placeholder string, mode engine.TemplateMode) (*compiledTemplate, error) {
	source := strings.Join(strs, placeholder)

	if mode == engine.ModeTextarea {
		return compileRawText(source, placeholder, mode), nil
	}

	ctxNode := fragmentContext(mode)
	nodes, err := html.ParseFragment(strings.NewReader(source), ctxNode)
	if err != nil {
		return nil, fmt.Errorf("template parse: %w", err)
	}

	ct := &compiledTemplate{Mode: mode}
	roots, err := ct.convertSiblings(nodes, nil, placeholder, rootNamespace(mode))
	if err != nil {
		return nil, err
	}
	ct.Roots = roots
	return ct, nil
}

func rootNamespace(mode engine.TemplateMode) string {
	switch mode {
	case engine.ModeSVG:
		return svgNamespaceURI
	case engine.ModeMath:
		return mathNamespaceURI
	default:
		return ""
	}
}

func fragmentContext(mode engine.TemplateMode) *html.Node {
	switch mode {
	case engine.ModeSVG:
		return &html.Node{Type: html.ElementNode, Data: "svg", DataAtom: atom.Svg, Namespace: "svg"}
	case engine.ModeMath:
		return &html.Node{Type: html.ElementNode, Data: "math", DataAtom: atom.Math, Namespace: "math"}
	default:
		return &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	}
}

func namespaceURIOf(n *html.Node) string {
	switch n.Namespace {
	case "svg":
		return svgNamespaceURI
	case "math":
		return mathNamespaceURI
	default:
		return ""
	}
}

// compileRawText handles Textarea mode: the whole source is character
// data; each placeholder becomes its own text node carrying a Text hole
// whose Preceding/FollowingText sandwich reproduces the static chunks
// around it.
func compileRawText(source, placeholder string, mode engine.TemplateMode) *compiledTemplate {
	ct := &compiledTemplate{Mode: mode}
	segments := strings.Split(source, placeholder)
	if len(segments) == 1 {
		if segments[0] != "" {
			ct.Roots = append(ct.Roots, &protoNode{Kind: kindText, Data: segments[0]})
		}
		return ct
	}
	for i := 0; i < len(segments)-1; i++ {
		preceding := segments[i]
		following := ""
		if i == len(segments)-2 {
			following = segments[len(segments)-1]
		}
		idx := len(ct.Roots)
		ct.Roots = append(ct.Roots, &protoNode{Kind: kindText, Data: preceding + following})
		ct.Holes = append(ct.Holes, engine.Hole{
			Path:          []int{idx},
			Kind:          part.Text,
			PrecedingText: preceding,
			FollowingText: following,
		})
	}
	return ct
}

// convert turns one parsed html.Node into a protoNode at path, emitting
// holes in document order (attribute holes first, then children
// left-to-right). Text nodes are split on the placeholder by
// convertSiblings before recursing, so a text node reaching convert
// contains no interpolation.
func (ct *compiledTemplate) convert(n *html.Node, path []int, placeholder string) (*protoNode, error) {
	switch n.Type {
	case html.ElementNode:
		return ct.convertElement(n, path, placeholder)
	case html.TextNode:
		return &protoNode{Kind: kindText, Data: n.Data}, nil
	case html.CommentNode:
		return &protoNode{Kind: kindComment, Data: n.Data}, nil
	default:
		return nil, fmt.Errorf("template parse: unsupported node type %d", n.Type)
	}
}

func (ct *compiledTemplate) convertElement(n *html.Node, path []int, placeholder string) (*protoNode, error) {
	proto := &protoNode{Kind: kindElement, Tag: n.Data, NS: namespaceURIOf(n)}

	for _, a := range n.Attr {
		if a.Key == placeholder {
			ct.Holes = append(ct.Holes, engine.Hole{Path: clonePath(path), Kind: part.Element})
			continue
		}
		if !strings.Contains(a.Val, placeholder) {
			proto.Attrs = append(proto.Attrs, protoAttr{Name: a.Key, Value: a.Val})
			continue
		}
		if a.Val != placeholder {
			return nil, fmt.Errorf("template parse: attribute %q mixes static text with an interpolation; interpolate the whole value", a.Key)
		}
		hole := engine.Hole{Path: clonePath(path)}
		switch {
		case strings.HasPrefix(a.Key, string(sigilEvent)):
			hole.Kind = part.Event
			hole.Name = a.Key[1:]
		case strings.HasPrefix(a.Key, string(sigilProperty)):
			hole.Kind = part.Property
			hole.Property = a.Key[1:]
		case strings.HasPrefix(a.Key, string(sigilLive)):
			hole.Kind = part.Live
			hole.Property = a.Key[1:]
		default:
			hole.Kind = part.Attribute
			hole.Name = a.Key
		}
		ct.Holes = append(ct.Holes, hole)
	}

	var kids []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		kids = append(kids, c)
	}
	children, err := ct.convertSiblings(kids, path, placeholder, namespaceURIOf(n))
	if err != nil {
		return nil, err
	}
	proto.Children = children
	return proto, nil
}

// convertSiblings walks one level of parsed siblings, splitting text
// nodes on the placeholder: each split point becomes an anchor comment
// child carrying a ChildNode hole.
func (ct *compiledTemplate) convertSiblings(siblings []*html.Node, parentPath []int, placeholder, ns string) ([]*protoNode, error) {
	var children []*protoNode

	appendChild := func(p *protoNode) int {
		children = append(children, p)
		return len(children) - 1
	}

	for _, c := range siblings {
		if c.Type == html.TextNode && strings.Contains(c.Data, placeholder) {
			segments := strings.Split(c.Data, placeholder)
			for i, seg := range segments {
				if seg != "" {
					appendChild(&protoNode{Kind: kindText, Data: seg})
				}
				if i < len(segments)-1 {
					idx := appendChild(&protoNode{Kind: kindComment, Data: ""})
					ct.Holes = append(ct.Holes, engine.Hole{
						Path:         childPath(parentPath, idx),
						Kind:         part.ChildNode,
						NamespaceURI: ns,
					})
				}
			}
			continue
		}

		idx := len(children)
		proto, err := ct.convert(c, childPath(parentPath, idx), placeholder)
		if err != nil {
			return nil, err
		}
		appendChild(proto)
	}
	return children, nil
}

func clonePath(path []int) []int {
	out := make([]int, len(path))
	copy(out, path)
	return out
}

func childPath(parent []int, idx int) []int {
	out := make([]int, len(parent)+1)
	copy(out, parent)
	out[len(parent)] = idx
	return out
}

// instantiate clones the prototype into fresh VNodes owned by doc,
// returning the synthetic fragment root plus the path resolver
// engine.Template.Render walks holes with. Cloning mutates struct fields
// directly rather than going through the patch-emitting writers: a
// template instance reaches the document as a whole via whatever
// ChildNode binding hosts it.
func (ct *compiledTemplate) instantiate(doc *Document) (part.Node, func(path []int) part.Node) {
	root := doc.newFragment()
	for _, p := range ct.Roots {
		root.appendChild(cloneProto(p, doc))
	}

	nodeAt := func(path []int) part.Node {
		n := root
		for _, idx := range path {
			if idx < 0 || idx >= len(n.children) {
				return nil
			}
			n = n.children[idx]
		}
		return n
	}
	return root, nodeAt
}

func cloneProto(p *protoNode, doc *Document) *VNode {
	var n *VNode
	switch p.Kind {
	case kindElement:
		n = doc.NewElement(p.Tag, p.NS)
		for _, a := range p.Attrs {
			if n.attrs == nil {
				n.attrs = make(map[string]string, len(p.Attrs))
			}
			n.attrs[a.Name] = a.Value
		}
	case kindText:
		n = doc.NewText(p.Data)
	default:
		n = doc.NewComment(p.Data)
	}
	for _, c := range p.Children {
		n.appendChild(cloneProto(c, doc))
	}
	return n
}
