package vdom

import "fmt"

// Text returns a text node.
func Text(content string) *Node {
	return &Node{Kind: KindText, Text: content}
}

// Textf returns a text node with fmt.Sprintf(format, args...).
func Textf(format string, args ...any) *Node {
	return Text(fmt.Sprintf(format, args...))
}

// If returns node when cond holds. Element constructors skip the nil.
func If(cond bool, node *Node) *Node {
	if !cond {
		return nil
	}
	return node
}

// Repeat builds n children with fn, dropping nils.
func Repeat(n int, fn func(i int) *Node) []*Node {
	if n <= 0 {
		return nil
	}
	out := make([]*Node, 0, n)
	for i := range n {
		if c := fn(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Keyed builds one keyed child per item. Elements returned by render get
// a key attribute from key unless they already carry one; text nodes and
// nils are dropped, since only keyed elements take part in keyed matching.
func Keyed[T any](items []T, key func(T) any, render func(T) *Node) []*Node {
	out := make([]*Node, 0, len(items))
	for _, item := range items {
		n := render(item)
		if n == nil || n.Kind != KindElement {
			continue
		}
		if _, ok := n.Key(); !ok {
			n.Attrs = append(n.Attrs, Key(key(item)))
		}
		out = append(out, n)
	}
	return out
}
