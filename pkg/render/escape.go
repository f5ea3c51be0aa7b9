package render

import "strings"

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)

	// Attribute values also keep their whitespace control characters, so a
	// rendered tree stays on one line per element.
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)
)

// EscapeText escapes s for use as element content.
func EscapeText(s string) string { return textEscaper.Replace(s) }

// EscapeAttr escapes s for use inside a double-quoted attribute value.
func EscapeAttr(s string) string { return attrEscaper.Replace(s) }
