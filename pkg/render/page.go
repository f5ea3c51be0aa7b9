package render

import (
	"fmt"
	"io"
	"net/http"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// PageData describes a standalone document around a tree.
type PageData struct {
	Body        *vdom.Node
	Title       string
	StyleSheets []string // Linked in order from <head>
	Script      string   // Inline, after the tree
	Lang        string   // Defaults to "en"
}

// pageWriter remembers the first write error so the document can be
// emitted without a check per line.
type pageWriter struct {
	w   io.Writer
	err error
}

func (pw *pageWriter) printf(format string, args ...any) {
	if pw.err == nil {
		_, pw.err = fmt.Fprintf(pw.w, format, args...)
	}
}

// flush pushes what was written so far when w is an http.ResponseWriter,
// so a browser can start on the head before the tree is rendered.
func (pw *pageWriter) flush() {
	if f, ok := pw.w.(http.Flusher); ok && pw.err == nil {
		f.Flush()
	}
}

// RenderPage writes page as a complete HTML document. Writers that
// implement http.Flusher are flushed after the head and at the end.
func (r *Renderer) RenderPage(w io.Writer, page PageData) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}
	pw := &pageWriter{w: w}

	pw.printf("<!DOCTYPE html>\n<html lang=\"%s\">\n<head>\n<meta charset=\"utf-8\">\n", EscapeAttr(lang))
	if page.Title != "" {
		pw.printf("<title>%s</title>\n", EscapeText(page.Title))
	}
	for _, href := range page.StyleSheets {
		pw.printf("<link rel=\"stylesheet\" href=\"%s\">\n", EscapeAttr(href))
	}
	pw.printf("</head>\n<body>\n")
	pw.flush()

	if pw.err == nil {
		pw.err = r.RenderToWriter(w, page.Body)
	}
	if !r.config.Pretty && page.Body != nil {
		pw.printf("\n")
	}
	if page.Script != "" {
		pw.printf("<script>%s</script>\n", page.Script)
	}
	pw.printf("</body>\n</html>\n")
	pw.flush()
	return pw.err
}
