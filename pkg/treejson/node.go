package treejson

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Node is the document form of a vdom.Node. Text is set only on text nodes.
type Node struct {
	Tag       string         `json:"tag,omitempty" yaml:"tag,omitempty"`
	Namespace string         `json:"ns,omitempty" yaml:"ns,omitempty"`
	Text      *string        `json:"text,omitempty" yaml:"text,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	On        []string       `json:"on,omitempty" yaml:"on,omitempty"`
	Children  []*Node        `json:"children,omitempty" yaml:"children,omitempty"`
}

// Document is the top-level document. Root sits at TreePath [0].
type Document struct {
	Root *Node `json:"root,omitempty" yaml:"root,omitempty"`
}

// FromVDOM converts a virtual tree to its document form.
func FromVDOM(n *vdom.Node) *Node {
	if n == nil {
		return nil
	}
	if n.IsText() {
		text := n.Text
		return &Node{Text: &text}
	}

	out := &Node{Tag: n.Tag, Namespace: n.Namespace}
	for _, a := range vdom.MergeAttributes(n.Attrs) {
		if a.IsListener() {
			out.On = append(out.On, a.Name)
			continue
		}
		v, ok := attrValue(a)
		if !ok {
			continue
		}
		if out.Attrs == nil {
			out.Attrs = make(map[string]any)
		}
		out.Attrs[a.QualifiedName()] = v
	}
	sort.Strings(out.On)

	for _, c := range n.Children {
		if c != nil {
			out.Children = append(out.Children, FromVDOM(c))
		}
	}
	return out
}

// attrValue returns the document value of a. A single plain value is a
// scalar, a single style value an object, anything else an array.
func attrValue(a vdom.Attribute) (any, bool) {
	values := make([]any, 0, len(a.Values))
	for _, v := range a.Values {
		switch v.Kind {
		case vdom.ValuePlain:
			values = append(values, v.Plain)
		case vdom.ValueStyle:
			style := make(map[string]any, len(v.Styles))
			for _, s := range v.Styles {
				style[s.Property] = s.Value
			}
			values = append(values, style)
		}
	}
	switch len(values) {
	case 0:
		return nil, false
	case 1:
		return values[0], true
	default:
		return values, true
	}
}

// VDOM converts the document form back to a virtual tree. Attributes are
// added in name order; style properties in property order.
func (n *Node) VDOM() (*vdom.Node, error) {
	return n.vdom("root")
}

func (n *Node) vdom(where string) (*vdom.Node, error) {
	if n == nil {
		return nil, fmt.Errorf("treejson: %s: null node", where)
	}
	if n.Text != nil {
		if n.Tag != "" || len(n.Children) > 0 || len(n.Attrs) > 0 {
			return nil, fmt.Errorf("treejson: %s: text node with element fields", where)
		}
		return vdom.Text(*n.Text), nil
	}
	if n.Tag == "" {
		return nil, fmt.Errorf("treejson: %s: node has neither tag nor text", where)
	}

	names := make([]string, 0, len(n.Attrs))
	for name := range n.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]any, 0, len(names)+len(n.On)+len(n.Children))
	for _, name := range names {
		a, err := attribute(name, n.Attrs[name])
		if err != nil {
			return nil, fmt.Errorf("treejson: %s: attribute %q: %w", where, name, err)
		}
		args = append(args, a)
	}
	for _, event := range n.On {
		args = append(args, vdom.On(event, nil))
	}
	for i, c := range n.Children {
		child, err := c.vdom(fmt.Sprintf("%s/children/%d", where, i))
		if err != nil {
			return nil, err
		}
		args = append(args, child)
	}

	if n.Namespace != "" {
		return vdom.NSElement(n.Namespace, n.Tag, args...), nil
	}
	return vdom.Element(n.Tag, args...), nil
}

func attribute(qualified string, raw any) (vdom.Attribute, error) {
	a := vdom.Attribute{Name: qualified}
	if i := strings.LastIndexByte(qualified, ':'); i > 0 && i < len(qualified)-1 {
		a.Namespace, a.Name = qualified[:i], qualified[i+1:]
	}

	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}
	for _, item := range items {
		v, err := value(item)
		if err != nil {
			return vdom.Attribute{}, err
		}
		a.Values = append(a.Values, v)
	}
	return a, nil
}

func value(raw any) (vdom.AttrValue, error) {
	switch v := raw.(type) {
	case map[string]any:
		props := make([]string, 0, len(v))
		for p := range v {
			props = append(props, p)
		}
		sort.Strings(props)
		styles := make([]vdom.Style, 0, len(v))
		for _, p := range props {
			styles = append(styles, vdom.Style{Property: p, Value: fmt.Sprint(v[p])})
		}
		return vdom.StyleValue(styles...), nil
	case []any:
		return vdom.AttrValue{}, fmt.Errorf("nested arrays are not allowed")
	default:
		return vdom.PlainValue(normalize(v)), nil
	}
}

// normalize maps decoded numbers onto the plain types vdom compares: whole
// numbers become int, everything else float64.
func normalize(v any) any {
	switch n := v.(type) {
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int(n)
		}
		return n
	case float32:
		return normalize(float64(n))
	case int64:
		return int(n)
	case uint64:
		if n <= math.MaxInt64 {
			return int(n)
		}
		return float64(n)
	case int32:
		return int(n)
	case uint32:
		return int(n)
	case uint:
		return int(n)
	}
	return v
}

// DecodeJSON parses a JSON tree. The input may be a bare node or a Document.
func DecodeJSON(data []byte) (*vdom.Node, error) {
	var doc struct {
		Document
		Node
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("treejson: decode json: %w", err)
	}
	return pick(&doc.Document, &doc.Node)
}

// DecodeYAML parses a YAML tree. The input may be a bare node or a Document.
func DecodeYAML(data []byte) (*vdom.Node, error) {
	j, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("treejson: decode yaml: %w", err)
	}
	return DecodeJSON(j)
}

func pick(doc *Document, n *Node) (*vdom.Node, error) {
	if doc.Root != nil {
		return doc.Root.VDOM()
	}
	return n.VDOM()
}

// EncodeJSON writes n as an indented JSON Document.
func EncodeJSON(n *vdom.Node) ([]byte, error) {
	return json.MarshalIndent(Document{Root: FromVDOM(n)}, "", "  ")
}

// EncodeYAML writes n as a YAML Document.
func EncodeYAML(n *vdom.Node) ([]byte, error) {
	j, err := json.Marshal(Document{Root: FromVDOM(n)})
	if err != nil {
		return nil, err
	}
	out, err := yaml.JSONToYAML(j)
	if err != nil {
		return nil, fmt.Errorf("treejson: encode yaml: %w", err)
	}
	return out, nil
}
