package treejson

import (
	"encoding/json"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Patch is the document form of a vdom.Patch.
type Patch struct {
	Op       string         `json:"op"`
	Tag      string         `json:"tag,omitempty"`
	Path     []int          `json:"path"`
	Attrs    map[string]any `json:"attrs,omitempty"`
	Node     *Node          `json:"node,omitempty"`
	Children []*Node        `json:"children,omitempty"`
	Text     *string        `json:"text,omitempty"`
}

// FromPatch converts a patch to its document form.
func FromPatch(p vdom.Patch) Patch {
	out := Patch{Op: p.Op.String(), Tag: p.Tag, Path: []int(p.Path)}
	switch p.Op {
	case vdom.PatchAddAttributes, vdom.PatchRemoveAttributes:
		out.Attrs = make(map[string]any, len(p.Attrs))
		for _, a := range vdom.MergeAttributes(p.Attrs) {
			if v, ok := attrValue(a); ok {
				out.Attrs[a.QualifiedName()] = v
			}
		}
	case vdom.PatchReplaceNode:
		out.Node = FromVDOM(p.Node)
	case vdom.PatchAppendChildren:
		for _, c := range p.Children {
			if c != nil {
				out.Children = append(out.Children, FromVDOM(c))
			}
		}
	case vdom.PatchChangeText:
		text := p.Text
		out.Text = &text
	}
	return out
}

// FromPatches converts a patch list to its document form.
func FromPatches(patches []vdom.Patch) []Patch {
	out := make([]Patch, len(patches))
	for i, p := range patches {
		out[i] = FromPatch(p)
	}
	return out
}

// EncodePatches writes a patch list as indented JSON.
func EncodePatches(patches []vdom.Patch) ([]byte, error) {
	return json.MarshalIndent(FromPatches(patches), "", "  ")
}
