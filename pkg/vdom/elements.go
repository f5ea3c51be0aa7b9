package vdom

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// Element creates an element with the given tag.
// Arguments can be: nil, Attribute, []Attribute, *Node, []*Node, string.
func Element(tag string, args ...any) *Node {
	return createElement("", tag, args)
}

// NSElement creates an element in the given namespace.
func NSElement(namespace, tag string, args ...any) *Node {
	return createElement(namespace, tag, args)
}

// createElement creates a new Node with the given tag and arguments.
func createElement(namespace, tag string, args []any) *Node {
	node := &Node{
		Kind:        KindElement,
		Namespace:   namespace,
		Tag:         tag,
		SelfClosing: IsVoidElement(tag),
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			// Ignore nil (allows conditional attributes)
			continue

		case Attribute:
			if v.Name != "" {
				node.Attrs = append(node.Attrs, v)
			}

		case []Attribute:
			for _, a := range v {
				if a.Name != "" {
					node.Attrs = append(node.Attrs, a)
				}
			}

		case *Node:
			if v != nil {
				node.Children = append(node.Children, v)
			}

		case []*Node:
			for _, child := range v {
				if child != nil {
					node.Children = append(node.Children, child)
				}
			}

		case string:
			// Shorthand for text node
			node.Children = append(node.Children, Text(v))
		}
	}

	return node
}

// Document structure elements

func Html(args ...any) *Node { return Element("html", args...) }
func Head(args ...any) *Node { return Element("head", args...) }
func Body(args ...any) *Node { return Element("body", args...) }

// Content sectioning elements

func Header(args ...any) *Node  { return Element("header", args...) }
func Footer(args ...any) *Node  { return Element("footer", args...) }
func Main(args ...any) *Node    { return Element("main", args...) }
func Nav(args ...any) *Node     { return Element("nav", args...) }
func Section(args ...any) *Node { return Element("section", args...) }
func Article(args ...any) *Node { return Element("article", args...) }
func Aside(args ...any) *Node   { return Element("aside", args...) }
func H1(args ...any) *Node      { return Element("h1", args...) }
func H2(args ...any) *Node      { return Element("h2", args...) }
func H3(args ...any) *Node      { return Element("h3", args...) }

// Text content elements

func Div(args ...any) *Node  { return Element("div", args...) }
func P(args ...any) *Node    { return Element("p", args...) }
func Span(args ...any) *Node { return Element("span", args...) }
func Pre(args ...any) *Node  { return Element("pre", args...) }
func Ul(args ...any) *Node   { return Element("ul", args...) }
func Ol(args ...any) *Node   { return Element("ol", args...) }
func Li(args ...any) *Node   { return Element("li", args...) }
func Hr(args ...any) *Node   { return Element("hr", args...) }

// Inline text semantics

func A(args ...any) *Node      { return Element("a", args...) }
func Strong(args ...any) *Node { return Element("strong", args...) }
func Em(args ...any) *Node     { return Element("em", args...) }
func B(args ...any) *Node      { return Element("b", args...) }
func I(args ...any) *Node      { return Element("i", args...) }
func Code(args ...any) *Node   { return Element("code", args...) }
func Br(args ...any) *Node     { return Element("br", args...) }

// Forms

func Form(args ...any) *Node     { return Element("form", args...) }
func Input(args ...any) *Node    { return Element("input", args...) }
func Button(args ...any) *Node   { return Element("button", args...) }
func Label(args ...any) *Node    { return Element("label", args...) }
func Textarea(args ...any) *Node { return Element("textarea", args...) }
func Select(args ...any) *Node   { return Element("select", args...) }
func Option(args ...any) *Node   { return Element("option", args...) }

// Embedded content

func Img(args ...any) *Node { return Element("img", args...) }

// SVG

// SVGNamespace is the namespace of SVG elements.
const SVGNamespace = "http://www.w3.org/2000/svg"

func Svg(args ...any) *Node    { return NSElement(SVGNamespace, "svg", args...) }
func Circle(args ...any) *Node { return NSElement(SVGNamespace, "circle", args...) }
