package treejson

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Operation is one RFC 6902 operation.
type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// shadow tracks the document shape while operations are emitted, so that
// patch paths, which address the old tree, can be turned into pointers into
// the document as it is after the earlier operations.
type shadow struct {
	parent   *shadow
	children []*shadow
	attrs    map[string]bool
}

func newShadow(n *Node, parent *shadow) *shadow {
	s := &shadow{parent: parent, attrs: make(map[string]bool, len(n.Attrs))}
	for k := range n.Attrs {
		s.attrs[k] = true
	}
	for _, c := range n.Children {
		s.children = append(s.children, newShadow(c, s))
	}
	return s
}

func (s *shadow) index() int {
	for i, c := range s.parent.children {
		if c == s {
			return i
		}
	}
	return -1
}

// pointer returns the JSON pointer of s, or false once s is detached.
func (s *shadow) pointer(doc *shadow) (string, bool) {
	var parts []string
	for cur := s; cur != doc; cur = cur.parent {
		if cur.parent == nil {
			return "", false
		}
		i := cur.index()
		if i < 0 {
			return "", false
		}
		if cur.parent == doc {
			parts = append(parts, "root")
		} else {
			parts = append(parts, strconv.Itoa(i), "children")
		}
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String(), true
}

func (s *shadow) resolve(path vdom.TreePath) *shadow {
	cur := s
	for _, idx := range path {
		if idx < 0 || idx >= len(cur.children) {
			return nil
		}
		cur = cur.children[idx]
	}
	return cur
}

func escapePointer(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

// JSONPatch translates patches, computed against old, into RFC 6902
// operations against the Document of old. Applying them yields the Document
// of the new tree.
func JSONPatch(old *vdom.Node, patches []vdom.Patch) ([]Operation, error) {
	doc := &shadow{}
	if root := FromVDOM(old); root != nil {
		doc.children = []*shadow{newShadow(root, doc)}
	}

	// Resolve every path before anything moves.
	targets := make([]*shadow, len(patches))
	for i, p := range patches {
		if targets[i] = doc.resolve(p.Path); targets[i] == nil {
			return nil, fmt.Errorf("treejson: patch %d (%s): path %v does not resolve", i, p.Op, p.Path)
		}
	}

	var ops []Operation
	for i, p := range patches {
		s := targets[i]
		ptr, ok := s.pointer(doc)
		if !ok {
			return nil, fmt.Errorf("treejson: patch %d (%s): target %v was removed", i, p.Op, p.Path)
		}

		switch p.Op {
		case vdom.PatchAddAttributes:
			ops = append(ops, addAttrs(s, ptr, p.Attrs)...)

		case vdom.PatchRemoveAttributes:
			ops = append(ops, removeAttrs(s, ptr, p.Attrs)...)

		case vdom.PatchReplaceNode:
			n := FromVDOM(p.Node)
			ops = append(ops, Operation{Op: "replace", Path: ptr, Value: n})
			repl := newShadow(n, s.parent)
			s.parent.children[s.index()] = repl

		case vdom.PatchAppendChildren:
			nodes := make([]*Node, 0, len(p.Children))
			for _, c := range p.Children {
				if c != nil {
					nodes = append(nodes, FromVDOM(c))
				}
			}
			if len(nodes) == 0 {
				continue
			}
			if len(s.children) == 0 {
				ops = append(ops, Operation{Op: "add", Path: ptr + "/children", Value: nodes})
			} else {
				for _, n := range nodes {
					ops = append(ops, Operation{Op: "add", Path: ptr + "/children/-", Value: n})
				}
			}
			for _, n := range nodes {
				s.children = append(s.children, newShadow(n, s))
			}

		case vdom.PatchRemoveNode:
			parent := s.parent
			switch {
			case parent == doc:
				ops = append(ops, Operation{Op: "remove", Path: ptr})
			case len(parent.children) == 1:
				pp, _ := parent.pointer(doc)
				ops = append(ops, Operation{Op: "remove", Path: pp + "/children"})
			default:
				ops = append(ops, Operation{Op: "remove", Path: ptr})
			}
			idx := s.index()
			parent.children = append(parent.children[:idx:idx], parent.children[idx+1:]...)
			s.parent = nil

		case vdom.PatchChangeText:
			ops = append(ops, Operation{Op: "replace", Path: ptr + "/text", Value: p.Text})

		default:
			return nil, fmt.Errorf("treejson: patch %d: unknown op %s", i, p.Op)
		}
	}
	return ops, nil
}

func addAttrs(s *shadow, ptr string, attrs []vdom.Attribute) []Operation {
	values := make(map[string]any)
	for _, a := range vdom.MergeAttributes(attrs) {
		if a.IsListener() {
			continue
		}
		if v, ok := attrValue(a); ok {
			values[a.QualifiedName()] = v
		}
	}
	if len(values) == 0 {
		return nil
	}

	var ops []Operation
	if len(s.attrs) == 0 {
		ops = append(ops, Operation{Op: "add", Path: ptr + "/attrs", Value: values})
	} else {
		for _, name := range sortedKeys(values) {
			ops = append(ops, Operation{Op: "add", Path: ptr + "/attrs/" + escapePointer(name), Value: values[name]})
		}
	}
	for name := range values {
		s.attrs[name] = true
	}
	return ops
}

func removeAttrs(s *shadow, ptr string, attrs []vdom.Attribute) []Operation {
	var names []string
	for _, a := range attrs {
		name := a.QualifiedName()
		if s.attrs[name] {
			names = append(names, name)
			delete(s.attrs, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	if len(s.attrs) == 0 {
		return []Operation{{Op: "remove", Path: ptr + "/attrs"}}
	}
	sort.Strings(names)
	ops := make([]Operation, 0, len(names))
	for _, name := range names {
		ops = append(ops, Operation{Op: "remove", Path: ptr + "/attrs/" + escapePointer(name)})
	}
	return ops
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CompileJSONPatch translates patches like JSONPatch and decodes the result
// into an applicable jsonpatch.Patch.
func CompileJSONPatch(old *vdom.Node, patches []vdom.Patch) (jsonpatch.Patch, error) {
	ops, err := JSONPatch(old, patches)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(ops)
	if err != nil {
		return nil, err
	}
	return jsonpatch.DecodePatch(data)
}

// VerifyJSONPatch applies the JSON Patch form of patches to the Document of
// old and checks that the result is the Document of new.
func VerifyJSONPatch(old, new *vdom.Node, patches []vdom.Patch) error {
	p, err := CompileJSONPatch(old, patches)
	if err != nil {
		return err
	}
	oldDoc, err := json.Marshal(Document{Root: FromVDOM(old)})
	if err != nil {
		return err
	}
	newDoc, err := json.Marshal(Document{Root: FromVDOM(new)})
	if err != nil {
		return err
	}
	got, err := p.Apply(oldDoc)
	if err != nil {
		return fmt.Errorf("treejson: apply json patch: %w", err)
	}

	var want, have any
	if err := json.Unmarshal(newDoc, &want); err != nil {
		return err
	}
	if err := json.Unmarshal(got, &have); err != nil {
		return err
	}
	if !reflect.DeepEqual(want, have) {
		return fmt.Errorf("treejson: patched document differs from the new tree:\n got  %s\n want %s", got, newDoc)
	}
	return nil
}
