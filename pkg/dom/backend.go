package dom

import "github.com/vango-dev/vtree/pkg/vdom"

// Handle identifies a live node. Handles are owned by the backend and must be
// comparable; two handles are equal only if they name the same live node.
type Handle any

// ListenerHandle identifies an attached listener. It must be comparable.
type ListenerHandle any

// Attachment is a listener the backend attached while materializing a node.
type Attachment struct {
	Node     Handle
	Event    string
	Listener *vdom.Listener
	Handle   ListenerHandle
}

// Backend owns the live tree. Implementations are not required to be safe for
// concurrent use; Apply never calls a backend from more than one goroutine.
type Backend interface {
	// Materialize builds a detached live subtree for n and attaches its
	// listeners, returning one Attachment per attached listener.
	Materialize(n *vdom.Node) (Handle, []Attachment, error)

	// SetAttribute sets or overwrites a non-listener attribute.
	SetAttribute(node Handle, attr vdom.Attribute) error

	// UnsetAttribute removes the attribute with the given qualified name.
	UnsetAttribute(node Handle, name string) error

	// AttachListener binds l to event on node.
	AttachListener(node Handle, event string, l *vdom.Listener) (ListenerHandle, error)

	// DetachListener unbinds a listener attached to node.
	DetachListener(node Handle, h ListenerHandle) error

	// Replace substitutes with for old in old's parent. old is discarded.
	Replace(old, with Handle) error

	// AppendChild appends child to parent's children.
	AppendChild(parent, child Handle) error

	// Remove detaches node from its parent and discards it.
	Remove(node Handle) error

	// SetText sets the content of a text node.
	SetText(node Handle, content string) error

	// Resolve walks path from root; path[0] selects root itself. It returns
	// an error wrapping ErrNotFound when the path has no live node.
	Resolve(root Handle, path vdom.TreePath) (Handle, error)

	// Children returns the live children of node in order.
	Children(node Handle) ([]Handle, error)

	// Focus moves host focus to node.
	Focus(node Handle) error

	// IsFocused reports whether node currently holds host focus.
	IsFocused(node Handle) bool
}
