package treejson

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// HTML parse errors.
var (
	ErrNoRoot        = errors.New("treejson: html fragment has no root element")
	ErrMultipleRoots = errors.New("treejson: html fragment has more than one root element")
)

// listenerPrefix marks an event binding, as written by render with Listeners
// enabled.
const listenerPrefix = "data-on-"

// ParseHTML parses an HTML fragment with exactly one root element.
// Whitespace-only text and comments are dropped. class becomes one value per
// class name, style becomes a style value and data-on-EVENT a listener.
func ParseHTML(r io.Reader) (*vdom.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, context)
	if err != nil {
		return nil, fmt.Errorf("treejson: parse html: %w", err)
	}

	var root *vdom.Node
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			if root != nil {
				return nil, ErrMultipleRoots
			}
			root = fromHTML(n)
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return nil, ErrMultipleRoots
			}
		}
	}
	if root == nil {
		return nil, ErrNoRoot
	}
	return root, nil
}

func fromHTML(n *html.Node) *vdom.Node {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil
		}
		return vdom.Text(n.Data)
	case html.ElementNode:
	default:
		return nil
	}

	args := make([]any, 0, len(n.Attr))
	for _, a := range n.Attr {
		args = append(args, htmlAttr(a))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if child := fromHTML(c); child != nil {
			args = append(args, child)
		}
	}

	switch n.Namespace {
	case "svg":
		return vdom.NSElement(vdom.SVGNamespace, n.Data, args...)
	case "":
		return vdom.Element(n.Data, args...)
	default:
		return vdom.NSElement(n.Namespace, n.Data, args...)
	}
}

func htmlAttr(a html.Attribute) vdom.Attribute {
	switch {
	case a.Namespace != "":
		return vdom.NSAttr(a.Namespace, a.Key, a.Val)
	case strings.HasPrefix(a.Key, listenerPrefix):
		return vdom.On(strings.TrimPrefix(a.Key, listenerPrefix), nil)
	case a.Key == "class":
		return vdom.Class(strings.Fields(a.Val)...)
	case a.Key == "style":
		return vdom.Styles(parseStyle(a.Val)...)
	default:
		return vdom.Attr(a.Key, a.Val)
	}
}

// parseStyle splits "a: b; c: d" into property, value pairs.
func parseStyle(s string) []string {
	var pairs []string
	for _, decl := range strings.Split(s, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop, val = strings.TrimSpace(prop), strings.TrimSpace(val)
		if prop == "" {
			continue
		}
		pairs = append(pairs, prop, val)
	}
	return pairs
}
