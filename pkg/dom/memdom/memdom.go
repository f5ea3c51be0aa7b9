// Package memdom is an in-memory live tree implementing dom.Backend.
//
// It is used by tests, by the vtree CLI and by the watch server. A Document
// starts with an empty <body> container to mount trees into. Failures can be
// injected per operation with FailOn.
package memdom

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vango-dev/vtree/pkg/dom"
	"github.com/vango-dev/vtree/pkg/render"
	"github.com/vango-dev/vtree/pkg/vdom"
	"github.com/xlab/treeprint"
)

// Operation names accepted by FailOn and Calls.
const (
	OpMaterialize    = "Materialize"
	OpSetAttribute   = "SetAttribute"
	OpUnsetAttribute = "UnsetAttribute"
	OpAttach         = "AttachListener"
	OpDetach         = "DetachListener"
	OpReplace        = "Replace"
	OpAppendChild    = "AppendChild"
	OpRemove         = "Remove"
	OpSetText        = "SetText"
	OpResolve        = "Resolve"
	OpFocus          = "Focus"
)

// ErrForeignHandle is returned for handles not created by the document.
var ErrForeignHandle = errors.New("memdom: foreign handle")

// Node is a live node. It is the dom.Handle type of this backend.
type Node struct {
	id          int
	kind        vdom.Kind
	namespace   string
	tag         string
	attrs       []vdom.Attribute
	text        string
	selfClosing bool
	children    []*Node
	parent      *Node
	listeners   []*Listener
	discarded   bool
}

// Listener is an attached listener. It is the dom.ListenerHandle type.
type Listener struct {
	id       int
	event    string
	listener *vdom.Listener
}

// Tag returns the element tag, empty for text nodes.
func (n *Node) Tag() string { return n.tag }

// Text returns the content of a text node.
func (n *Node) Text() string { return n.text }

// Parent returns the parent node, nil when detached.
func (n *Node) Parent() *Node { return n.parent }

// Discarded reports whether the node was removed or replaced.
func (n *Node) Discarded() bool { return n.discarded }

// Attr returns the rendered value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.QualifiedName() == name {
			return a.String(), true
		}
	}
	return "", false
}

// Events returns the events with an attached listener, sorted.
func (n *Node) Events() []string {
	out := make([]string, 0, len(n.listeners))
	for _, l := range n.listeners {
		out = append(out, l.event)
	}
	sort.Strings(out)
	return out
}

// Document is an in-memory live tree. It is safe for concurrent use.
type Document struct {
	mu       sync.Mutex
	nextID   int
	body     *Node
	focused  *Node
	attached int
	failures map[string]error
	calls    map[string]int
}

// New creates a document with an empty body.
func New() *Document {
	d := &Document{
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
	d.body = d.newNode(vdom.KindElement, "", "body")
	return d
}

// Body returns the mount container.
func (d *Document) Body() *Node { return d.body }

// FailOn makes every call of op fail with err until ClearFailures.
func (d *Document) FailOn(op string, err error) {
	d.mu.Lock()
	d.failures[op] = err
	d.mu.Unlock()
}

// ClearFailures removes all injected failures.
func (d *Document) ClearFailures() {
	d.mu.Lock()
	d.failures = make(map[string]error)
	d.mu.Unlock()
}

// Calls returns how many times op was called.
func (d *Document) Calls(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

// Attached returns the number of listeners attached and not yet detached,
// including listeners of discarded nodes.
func (d *Document) Attached() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attached
}

// Focused returns the focused node, if any.
func (d *Document) Focused() *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.focused
}

// enter counts a call and returns the injected failure. Callers hold d.mu.
func (d *Document) enter(op string) error {
	d.calls[op]++
	if err := d.failures[op]; err != nil {
		return fmt.Errorf("memdom: %s: %w", op, err)
	}
	return nil
}

func (d *Document) newNode(kind vdom.Kind, namespace, tag string) *Node {
	d.nextID++
	return &Node{id: d.nextID, kind: kind, namespace: namespace, tag: tag}
}

func node(h dom.Handle) (*Node, error) {
	n, ok := h.(*Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignHandle, h)
	}
	return n, nil
}

// Materialize implements dom.Backend.
func (d *Document) Materialize(v *vdom.Node) (dom.Handle, []dom.Attachment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enter(OpMaterialize); err != nil {
		return nil, nil, err
	}
	if v == nil {
		return nil, nil, errors.New("memdom: materialize nil node")
	}
	var attachments []dom.Attachment
	n := d.build(v, &attachments)
	return n, attachments, nil
}

func (d *Document) build(v *vdom.Node, attachments *[]dom.Attachment) *Node {
	if v.IsText() {
		n := d.newNode(vdom.KindText, "", "")
		n.text = v.Text
		return n
	}

	n := d.newNode(vdom.KindElement, v.Namespace, v.Tag)
	n.selfClosing = v.SelfClosing
	for _, attr := range vdom.MergeAttributes(v.Attrs) {
		plain := vdom.Attribute{Namespace: attr.Namespace, Name: attr.Name}
		for _, val := range attr.Values {
			if val.Kind != vdom.ValueListener {
				plain.Values = append(plain.Values, val)
				continue
			}
			if val.Listener == nil {
				continue
			}
			l := d.attach(n, attr.Name, val.Listener)
			*attachments = append(*attachments, dom.Attachment{
				Node:     n,
				Event:    attr.Name,
				Listener: val.Listener,
				Handle:   l,
			})
		}
		if len(plain.Values) > 0 {
			n.attrs = append(n.attrs, plain)
		}
	}
	for _, c := range v.Children {
		if c == nil {
			continue
		}
		child := d.build(c, attachments)
		child.parent = n
		n.children = append(n.children, child)
	}
	return n
}

func (d *Document) attach(n *Node, event string, l *vdom.Listener) *Listener {
	d.nextID++
	h := &Listener{id: d.nextID, event: event, listener: l}
	n.listeners = append(n.listeners, h)
	d.attached++
	return h
}

// SetAttribute implements dom.Backend.
func (d *Document) SetAttribute(h dom.Handle, attr vdom.Attribute) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enter(OpSetAttribute); err != nil {
		return err
	}
	n, err := d.element(h)
	if err != nil {
		return err
	}
	for i, a := range n.attrs {
		if a.QualifiedName() == attr.QualifiedName() {
			n.attrs[i] = attr
			return nil
		}
	}
	n.attrs = append(n.attrs, attr)
	return nil
}

// UnsetAttribute implements dom.Backend.
func (d *Document) UnsetAttribute(h dom.Handle, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enter(OpUnsetAttribute); err != nil {
		return err
	}
	n, err := d.element(h)
	if err != nil {
		return err
	}
	for i, a := range n.attrs {
		if a.QualifiedName() == name {
			n.attrs = append(n.attrs[:i:i], n.attrs[i+1:]...)
			return nil
		}
	}
	return nil
}

// AttachListener implements dom.Backend.
func (d *Document) AttachListener(h dom.Handle, event string, l *vdom.Listener) (dom.ListenerHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enter(OpAttach); err != nil {
		return nil, err
	}
	n, err := d.element(h)
	if err != nil {
		return nil, err
	}
	return d.attach(n, event, l), nil
}

// DetachListener implements dom.Backend.
func (d *Document) DetachListener(h dom.Handle, lh dom.ListenerHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enter(OpDetach); err != nil {
		return err
	}
	n, err := node(h)
	if err != nil {
		return err
	}
	l, ok := lh.(*Listener)
	if !ok {
		return fmt.Errorf("%w: listener %T", ErrForeignHandle, lh)
	}
	for i, cur := range n.listeners {
		if cur == l {
			n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
			d.attached--
			return nil
		}
	}
	return fmt.Errorf("memdom: listener %d not attached to node %d", l.id, n.id)
}

// Replace implements dom.Backend.
func (d *Document) Replace(oldH, withH dom.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enter(OpReplace); err != nil {
		return err
	}
	old, err := node(oldH)
	if err != nil {
		return err
	}
	with, err := node(withH)
	if err != nil {
		return err
	}
	parent := old.parent
	if parent == nil {
		return fmt.Errorf("memdom: replace detached node %d", old.id)
	}
	if with.parent != nil {
		return fmt.Errorf("memdom: node %d already attached", with.id)
	}
	for i, c := range parent.children {
		if c == old {
			parent.children[i] = with
			break
		}
	}
	with.parent = parent
	d.discard(old)
	return nil
}

// AppendChild implements dom.Backend.
func (d *Document) AppendChild(parentH, childH dom.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enter(OpAppendChild); err != nil {
		return err
	}
	parent, err := d.element(parentH)
	if err != nil {
		return err
	}
	child, err := node(childH)
	if err != nil {
		return err
	}
	if child.parent != nil {
		return fmt.Errorf("memdom: node %d already attached", child.id)
	}
	child.parent = parent
	parent.children = append(parent.children, child)
	return nil
}

// Remove implements dom.Backend.
func (d *Document) Remove(h dom.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enter(OpRemove); err != nil {
		return err
	}
	n, err := node(h)
	if err != nil {
		return err
	}
	parent := n.parent
	if parent == nil {
		return fmt.Errorf("memdom: remove detached node %d", n.id)
	}
	for i, c := range parent.children {
		if c == n {
			parent.children = append(parent.children[:i:i], parent.children[i+1:]...)
			break
		}
	}
	d.discard(n)
	return nil
}

// discard detaches n and drops host focus if it was inside. Callers hold d.mu.
func (d *Document) discard(n *Node) {
	n.parent = nil
	var mark func(*Node)
	mark = func(x *Node) {
		x.discarded = true
		if d.focused == x {
			d.focused = nil
		}
		for _, c := range x.children {
			mark(c)
		}
	}
	mark(n)
}

// SetText implements dom.Backend.
func (d *Document) SetText(h dom.Handle, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enter(OpSetText); err != nil {
		return err
	}
	n, err := node(h)
	if err != nil {
		return err
	}
	if n.kind != vdom.KindText {
		return fmt.Errorf("memdom: set text on <%s>", n.tag)
	}
	n.text = content
	return nil
}

// Resolve implements dom.Backend.
func (d *Document) Resolve(rootH dom.Handle, path vdom.TreePath) (dom.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enter(OpResolve); err != nil {
		return nil, err
	}
	root, err := node(rootH)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 || path[0] != 0 {
		return nil, fmt.Errorf("memdom: path %s: %w", path, dom.ErrNotFound)
	}
	cur := root
	for _, idx := range path[1:] {
		if idx < 0 || idx >= len(cur.children) {
			return nil, fmt.Errorf("memdom: path %s: %w", path, dom.ErrNotFound)
		}
		cur = cur.children[idx]
	}
	return cur, nil
}

// Children implements dom.Backend.
func (d *Document) Children(h dom.Handle) ([]dom.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := node(h)
	if err != nil {
		return nil, err
	}
	out := make([]dom.Handle, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out, nil
}

// Focus implements dom.Backend.
func (d *Document) Focus(h dom.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enter(OpFocus); err != nil {
		return err
	}
	n, err := d.element(h)
	if err != nil {
		return err
	}
	d.focused = n
	return nil
}

// IsFocused implements dom.Backend.
func (d *Document) IsFocused(h dom.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := h.(*Node)
	return ok && n != nil && d.focused == n
}

// Blur drops host focus without touching any focus slot, as a host would
// when the user clicks elsewhere.
func (d *Document) Blur() {
	d.mu.Lock()
	d.focused = nil
	d.mu.Unlock()
}

func (d *Document) element(h dom.Handle) (*Node, error) {
	n, err := node(h)
	if err != nil {
		return nil, err
	}
	if n.kind != vdom.KindElement {
		return nil, fmt.Errorf("memdom: node %d is not an element", n.id)
	}
	return n, nil
}

// Dispatch calls the listeners bound to event on node and returns how many
// ran. Handlers of type func() and func(string) are invoked.
func (d *Document) Dispatch(h dom.Handle, event string) int {
	d.mu.Lock()
	n, ok := h.(*Node)
	if !ok || n == nil {
		d.mu.Unlock()
		return 0
	}
	var handlers []any
	for _, l := range n.listeners {
		if l.event == event && l.listener != nil {
			handlers = append(handlers, l.listener.Handler)
		}
	}
	d.mu.Unlock()

	// Handlers run unlocked so they may call back into the document
	ran := 0
	for _, fn := range handlers {
		switch f := fn.(type) {
		case func():
			f()
			ran++
		case func(string):
			f(event)
			ran++
		}
	}
	return ran
}

// Stats counts the reachable listener state of a subtree.
type Stats struct {
	Nodes         int // Reachable nodes
	Listeners     int // Listeners attached to reachable nodes
	ListenerNodes int // Reachable nodes with at least one listener
}

// Stats walks the subtree rooted at h.
func (d *Document) Stats(h dom.Handle) Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	var s Stats
	n, ok := h.(*Node)
	if !ok || n == nil {
		return s
	}
	var walk func(*Node)
	walk = func(x *Node) {
		s.Nodes++
		s.Listeners += len(x.listeners)
		if len(x.listeners) > 0 {
			s.ListenerNodes++
		}
		for _, c := range x.children {
			walk(c)
		}
	}
	walk(n)
	return s
}

// HTML renders the subtree rooted at h in canonical form: attributes sorted by
// name, listeners shown as @event markers.
func (d *Document) HTML(h dom.Handle) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := h.(*Node)
	if !ok || n == nil {
		return ""
	}
	var b strings.Builder
	writeHTML(&b, n)
	return b.String()
}

func writeHTML(b *strings.Builder, n *Node) {
	if n.kind == vdom.KindText {
		b.WriteString(render.EscapeText(n.text))
		return
	}
	b.WriteByte('<')
	b.WriteString(n.tag)
	attrs := append([]vdom.Attribute(nil), n.attrs...)
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].QualifiedName() < attrs[j].QualifiedName() })
	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.QualifiedName())
		b.WriteString(`="`)
		b.WriteString(render.EscapeAttr(a.String()))
		b.WriteByte('"')
	}
	for _, e := range n.Events() {
		b.WriteString(" @")
		b.WriteString(e)
	}
	if n.selfClosing {
		b.WriteString(">")
		return
	}
	b.WriteByte('>')
	for _, c := range n.children {
		writeHTML(b, c)
	}
	b.WriteString("</")
	b.WriteString(n.tag)
	b.WriteByte('>')
}

// Dump renders the subtree rooted at h as an indented tree.
func (d *Document) Dump(h dom.Handle) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := h.(*Node)
	if !ok || n == nil {
		return ""
	}
	tree := treeprint.NewWithRoot(label(n))
	for _, c := range n.children {
		dumpNode(tree, c)
	}
	return tree.String()
}

func dumpNode(branch treeprint.Tree, n *Node) {
	if len(n.children) == 0 {
		branch.AddNode(label(n))
		return
	}
	sub := branch.AddBranch(label(n))
	for _, c := range n.children {
		dumpNode(sub, c)
	}
}

func label(n *Node) string {
	if n.kind == vdom.KindText {
		return fmt.Sprintf("%q", n.text)
	}
	var b strings.Builder
	b.WriteString("<" + n.tag)
	for _, a := range n.attrs {
		fmt.Fprintf(&b, " %s=%q", a.QualifiedName(), a.String())
	}
	for _, e := range n.Events() {
		b.WriteString(" @" + e)
	}
	b.WriteString(">")
	return b.String()
}
