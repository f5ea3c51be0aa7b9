package render

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// Pretty enables pretty-printed HTML output with indentation.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces if not specified.
	Indent string

	// Canonical sorts attributes by qualified name.
	Canonical bool

	// Listeners renders a data-on-<event> marker for each bound event.
	Listeners bool

	// Keys renders the reconciliation key attribute.
	Keys bool
}

// Renderer renders virtual trees to HTML. A Renderer holds no per-render
// state and may be reused.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// RenderToString renders a tree to an HTML string.
func (r *Renderer) RenderToString(node *vdom.Node) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams a tree to the given writer.
func (r *Renderer) RenderToWriter(w io.Writer, node *vdom.Node) error {
	return r.renderNode(w, node, 0, !r.config.Pretty)
}

// renderNode dispatches rendering based on node kind. Inline nodes are
// written without indentation or trailing newline.
func (r *Renderer) renderNode(w io.Writer, node *vdom.Node, depth int, inline bool) error {
	if node == nil {
		return nil
	}

	switch node.Kind {
	case vdom.KindElement:
		return r.renderElement(w, node, depth, inline)
	case vdom.KindText:
		if !inline {
			r.writeIndent(w, depth)
		}
		if err := r.renderText(w, node); err != nil {
			return err
		}
		if !inline {
			io.WriteString(w, "\n")
		}
		return nil
	default:
		return fmt.Errorf("unknown node kind: %d", node.Kind)
	}
}

// renderElement renders an element with its attributes and children.
func (r *Renderer) renderElement(w io.Writer, node *vdom.Node, depth int, inline bool) error {
	if !inline {
		r.writeIndent(w, depth)
	}

	if _, err := fmt.Fprintf(w, "<%s", node.Tag); err != nil {
		return err
	}
	if err := r.renderAttributes(w, node); err != nil {
		return err
	}
	if _, err := w.Write([]byte{'>'}); err != nil {
		return err
	}

	if node.SelfClosing {
		if !inline {
			io.WriteString(w, "\n")
		}
		return nil
	}

	// Block children go on their own lines
	block := !inline && len(node.Children) > 0 && !isInlineElement(node.Tag) && !onlyText(node)
	if block {
		io.WriteString(w, "\n")
	}

	for _, child := range node.Children {
		if err := r.renderNode(w, child, depth+1, !block); err != nil {
			return err
		}
	}

	if block {
		r.writeIndent(w, depth)
	}

	if _, err := fmt.Fprintf(w, "</%s>", node.Tag); err != nil {
		return err
	}
	if !inline {
		io.WriteString(w, "\n")
	}
	return nil
}

// renderText renders a text node with HTML escaping.
func (r *Renderer) renderText(w io.Writer, node *vdom.Node) error {
	_, err := io.WriteString(w, EscapeText(node.Text))
	return err
}

// renderAttributes renders the merged attributes of an element.
func (r *Renderer) renderAttributes(w io.Writer, node *vdom.Node) error {
	attrs := vdom.MergeAttributes(node.Attrs)
	if r.config.Canonical {
		attrs = append([]vdom.Attribute(nil), attrs...)
		sort.SliceStable(attrs, func(i, j int) bool {
			return attrs[i].QualifiedName() < attrs[j].QualifiedName()
		})
	}

	var events []string
	for _, attr := range attrs {
		if attr.IsListener() {
			events = append(events, attr.Name)
			continue
		}
		if attr.HasFunc() {
			continue
		}
		if attr.Name == vdom.KeyAttr && attr.Namespace == "" && !r.config.Keys {
			continue
		}

		name := attr.QualifiedName()

		// Boolean attributes
		if isBooleanAttr(name) && len(attr.Values) == 1 {
			if b, ok := attr.Values[0].Plain.(bool); ok {
				if b {
					if _, err := fmt.Fprintf(w, " %s", name); err != nil {
						return err
					}
				}
				continue
			}
		}

		if _, err := fmt.Fprintf(w, ` %s="%s"`, name, EscapeAttr(attr.String())); err != nil {
			return err
		}
	}

	// Event markers
	if r.config.Listeners {
		sort.Strings(events)
		for _, event := range events {
			if _, err := fmt.Fprintf(w, ` data-on-%s="true"`, event); err != nil {
				return err
			}
		}
	}
	return nil
}

func onlyText(node *vdom.Node) bool {
	for _, c := range node.Children {
		if !c.IsText() {
			return false
		}
	}
	return true
}

// writeIndent writes indentation for pretty printing.
func (r *Renderer) writeIndent(w io.Writer, depth int) {
	for i := 0; i < depth; i++ {
		io.WriteString(w, r.config.Indent)
	}
}
