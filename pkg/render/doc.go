// Package render renders virtual trees to HTML.
//
// The renderer handles:
//
//   - Text and attribute escaping
//   - Void elements (input, br, img, etc.)
//   - Boolean attributes (disabled, checked, etc.)
//   - Merged multi-valued attributes (class, style)
//   - Optional listener markers and canonical attribute order
//
// # Basic Usage
//
//	renderer := render.NewRenderer(render.RendererConfig{})
//	html, err := renderer.RenderToString(node)
//
// Pretty output indents block elements, which makes rendered trees suitable
// for line-based diffs:
//
//	renderer := render.NewRenderer(render.RendererConfig{Pretty: true})
//
// # Pages
//
// RenderPage wraps a tree in a complete HTML document. When the writer is
// an http.ResponseWriter the head is flushed before the tree is rendered.
//
// # Security
//
// All text content and attribute values are escaped. Listener and function
// values are never rendered as attribute values.
package render
