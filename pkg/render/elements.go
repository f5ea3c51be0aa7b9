package render

import "strings"

func wordSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

// Phrasing elements stay on their parent's line in pretty output.
var phrasing = wordSet(`a abbr b br cite code em i kbd label mark q s
	small span strong sub sup time u`)

// Attributes whose presence is their value. A lone true renders as the
// bare name.
var booleanAttrs = wordSet(`autofocus checked disabled hidden multiple open
	readonly required selected`)

func isInlineElement(tag string) bool {
	_, ok := phrasing[strings.ToLower(tag)]
	return ok
}

func isBooleanAttr(name string) bool {
	_, ok := booleanAttrs[name]
	return ok
}
