package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var colorEnabled = true

// DisableColors turns ANSI colors off for every formatter in this package.
func DisableColors() { colorEnabled = false }

// EnableColors turns ANSI colors back on.
func EnableColors() { colorEnabled = true }

func paint(text string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if colorEnabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(text)
}

func red(text string) string   { return paint(text, color.FgRed) }
func blue(text string) string  { return paint(text, color.FgBlue) }
func cyan(text string) string  { return paint(text, color.FgCyan) }
func white(text string) string { return paint(text, color.FgWhite) }
func gray(text string) string  { return paint(text, color.FgHiBlack) }
func bold(text string) string  { return paint(text, color.Bold) }

const detailWidth = 70

// Format renders the error for a terminal: header, source excerpt with a
// caret under the column, then detail, cause, hint, example and docs link.
func (e *VTreeError) Format() string {
	var b strings.Builder
	b.WriteString("\n")
	e.formatHeader(&b)
	e.formatSource(&b)

	for _, line := range wrapText(e.Detail, detailWidth) {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	if e.Detail != "" {
		b.WriteString("\n")
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  %s%s\n\n", gray("Cause: "), e.Wrapped.Error())
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", cyan("Hint: "), e.Suggestion)
	}
	if e.Example != "" {
		fmt.Fprintf(&b, "  %s\n", cyan("Example:"))
		for _, line := range strings.Split(e.Example, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
		b.WriteString("\n")
	}
	if e.DocURL != "" {
		fmt.Fprintf(&b, "  %s%s\n", gray("Learn more: "), blue(e.DocURL))
	}
	return b.String()
}

func (e *VTreeError) formatHeader(b *strings.Builder) {
	if e.Code == "" {
		fmt.Fprintf(b, "%s%s\n\n", red(bold("ERROR: ")), white(e.Message))
		return
	}
	fmt.Fprintf(b, "%s%s%s\n\n", red(bold("ERROR ")), white(bold(e.Code+": ")), white(e.Message))
}

func (e *VTreeError) formatSource(b *strings.Builder) {
	loc := e.Location
	if loc == nil {
		return
	}
	fmt.Fprintf(b, "  %s\n\n", cyan(loc.String()))
	if len(e.Context) == 0 {
		return
	}

	first := e.contextStart
	if first == 0 {
		first = max(loc.Line-len(e.Context)/2, 1)
	}
	bar := gray(" │ ")
	for i, line := range e.Context {
		n := first + i
		if n != loc.Line {
			fmt.Fprintf(b, "    %4d%s%s\n", n, bar, line)
			continue
		}
		fmt.Fprintf(b, "  %s%4d%s%s\n", red("→ "), n, bar, line)
		if loc.Column > 0 {
			fmt.Fprintf(b, "       %s%s%s\n", gray("│ "), strings.Repeat(" ", loc.Column-1), red("^"))
		}
	}
	b.WriteString("\n")
}

// FormatCompact renders "file:line:col: CODE: message" for logs and
// editors.
func (e *VTreeError) FormatCompact() string {
	var parts []string
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	return strings.Join(append(parts, e.Message), ": ")
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Cause      string        `json:"cause,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	DocURL     string        `json:"docUrl,omitempty"`
}

// FormatJSON renders the error as one JSON object.
func (e *VTreeError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	if l := e.Location; l != nil {
		out.Location = &jsonLocation{File: l.File, Line: l.Line, Column: l.Column}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText breaks text at spaces into lines of at most width bytes. A word
// longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) > width:
			lines = append(lines, line)
			line = word
		default:
			line += " " + word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// PrintError writes the formatted error to stderr.
func PrintError(err error) {
	FprintError(os.Stderr, err)
}

// FprintError classifies err and writes its terminal format to w.
func FprintError(w io.Writer, err error) {
	if ve := Classify(err); ve != nil {
		fmt.Fprint(w, ve.Format())
	}
}
