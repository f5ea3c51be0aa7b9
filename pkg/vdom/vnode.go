package vdom

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement Kind = iota // <div>, <button>, etc.
	KindText                // Plain text node
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	default:
		return "Unknown"
	}
}

// Node is a virtual tree node. A Node must not be modified once it has been
// handed to Diff or to a backend.
type Node struct {
	Kind        Kind        // Node type
	Namespace   string      // Element namespace (e.g. SVG), empty for HTML
	Tag         string      // Element tag name (e.g., "div")
	Attrs       []Attribute // Declared attributes, possibly repeating a name
	Children    []*Node     // Child nodes
	SelfClosing bool        // Rendered without a closing tag
	Text        string      // For KindText
}

// IsElement reports whether n is an element node.
func (n *Node) IsElement() bool {
	return n != nil && n.Kind == KindElement
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool {
	return n != nil && n.Kind == KindText
}

// Key returns the reconciliation key of the node, if it has one.
func (n *Node) Key() (string, bool) {
	if !n.IsElement() {
		return "", false
	}
	for _, a := range n.Attrs {
		if a.Name == KeyAttr && a.Namespace == "" && len(a.Values) > 0 {
			return a.String(), true
		}
	}
	return "", false
}

// Attribute returns the merged attribute with the given name.
func (n *Node) Attribute(name string) (Attribute, bool) {
	if !n.IsElement() {
		return Attribute{}, false
	}
	for _, a := range MergeAttributes(n.Attrs) {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// IsInteractive returns true if this node has event listeners.
func (n *Node) IsInteractive() bool {
	if !n.IsElement() {
		return false
	}
	for _, a := range n.Attrs {
		if a.IsListener() {
			return true
		}
	}
	return false
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	count := 1
	for _, c := range n.Children {
		count += c.Count()
	}
	return count
}

// Find returns the descendant addressed by path, where path[0] selects n.
func (n *Node) Find(path TreePath) (*Node, bool) {
	if n == nil || len(path) == 0 || path[0] != 0 {
		return nil, false
	}
	cur := n
	for _, idx := range path[1:] {
		if idx < 0 || idx >= len(cur.Children) {
			return nil, false
		}
		cur = cur.Children[idx]
	}
	return cur, true
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(path TreePath, node *Node) bool) {
	n.walk(RootPath(), fn)
}

func (n *Node) walk(path TreePath, fn func(path TreePath, node *Node) bool) {
	if n == nil {
		return
	}
	if !fn(path, n) {
		return
	}
	for i, c := range n.Children {
		c.walk(path.Child(i), fn)
	}
}
