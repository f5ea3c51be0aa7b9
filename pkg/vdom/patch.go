package vdom

import (
	"fmt"
	"strings"
)

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchAddAttributes    PatchOp = 0x01 // Set changed or added attributes
	PatchRemoveAttributes PatchOp = 0x02 // Unset removed attributes
	PatchReplaceNode      PatchOp = 0x03 // Replace node entirely
	PatchAppendChildren   PatchOp = 0x04 // Append new trailing children
	PatchRemoveNode       PatchOp = 0x05 // Remove node
	PatchChangeText       PatchOp = 0x06 // Update text content
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchAddAttributes:
		return "AddAttributes"
	case PatchRemoveAttributes:
		return "RemoveAttributes"
	case PatchReplaceNode:
		return "ReplaceNode"
	case PatchAppendChildren:
		return "AppendChildren"
	case PatchRemoveNode:
		return "RemoveNode"
	case PatchChangeText:
		return "ChangeText"
	default:
		return "Unknown"
	}
}

// ParsePatchOp returns the op named s.
func ParsePatchOp(s string) (PatchOp, bool) {
	for op := PatchAddAttributes; op <= PatchChangeText; op++ {
		if strings.EqualFold(op.String(), s) {
			return op, true
		}
	}
	return 0, false
}

// Patch is a single mutation of the live tree. Patches are created by Diff
// and must not be modified afterwards.
type Patch struct {
	Op       PatchOp     // Operation type
	Tag      string      // Tag of the addressed element, empty for text
	Path     TreePath    // Target, addressed in the old tree
	Attrs    []Attribute // For AddAttributes/RemoveAttributes
	Node     *Node       // For ReplaceNode
	Children []*Node     // For AppendChildren
	Text     string      // For ChangeText
}

// AddAttributes creates an AddAttributes patch.
func AddAttributes(tag string, path TreePath, attrs ...Attribute) Patch {
	return Patch{Op: PatchAddAttributes, Tag: tag, Path: path, Attrs: attrs}
}

// RemoveAttributes creates a RemoveAttributes patch.
func RemoveAttributes(tag string, path TreePath, attrs ...Attribute) Patch {
	return Patch{Op: PatchRemoveAttributes, Tag: tag, Path: path, Attrs: attrs}
}

// ReplaceNode creates a ReplaceNode patch. tag is the tag of the replaced node.
func ReplaceNode(tag string, path TreePath, node *Node) Patch {
	return Patch{Op: PatchReplaceNode, Tag: tag, Path: path, Node: node}
}

// AppendChildren creates an AppendChildren patch.
func AppendChildren(tag string, path TreePath, children ...*Node) Patch {
	return Patch{Op: PatchAppendChildren, Tag: tag, Path: path, Children: children}
}

// RemoveNode creates a RemoveNode patch. tag is the tag of the removed node.
func RemoveNode(tag string, path TreePath) Patch {
	return Patch{Op: PatchRemoveNode, Tag: tag, Path: path}
}

// ChangeText creates a ChangeText patch.
func ChangeText(path TreePath, text string) Patch {
	return Patch{Op: PatchChangeText, Path: path, Text: text}
}

// String returns a one-line description of the patch.
func (p Patch) String() string {
	var b strings.Builder
	b.WriteString(p.Op.String())
	b.WriteByte(' ')
	b.WriteString(p.Path.String())
	if p.Tag != "" {
		fmt.Fprintf(&b, " <%s>", p.Tag)
	}
	switch p.Op {
	case PatchAddAttributes, PatchRemoveAttributes:
		for _, a := range p.Attrs {
			fmt.Fprintf(&b, " %s=%q", a.QualifiedName(), a.String())
		}
	case PatchReplaceNode:
		b.WriteString(" with ")
		b.WriteString(describe(p.Node))
	case PatchAppendChildren:
		for _, c := range p.Children {
			b.WriteByte(' ')
			b.WriteString(describe(c))
		}
	case PatchChangeText:
		fmt.Fprintf(&b, " %q", p.Text)
	}
	return b.String()
}

func describe(n *Node) string {
	switch {
	case n == nil:
		return "<nil>"
	case n.IsText():
		return fmt.Sprintf("%q", n.Text)
	default:
		return "<" + n.Tag + ">"
	}
}
