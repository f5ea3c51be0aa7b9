package vdom

// Diff compares two trees and returns the patches needed to transform old into
// new. Paths in the result address the old tree and start at RootPath.
// Neither tree is modified.
//
// old must be the tree that is live. A nil old means nothing is mounted yet
// and yields no patches; materialize new instead (Updater.Mount does). A nil
// new yields a RemoveNode of the root.
func Diff(old, new *Node) []Patch {
	var patches []Patch
	diff(old, new, RootPath(), &patches)
	return patches
}

// diff recursively compares nodes and appends patches.
func diff(old, new *Node, path TreePath, patches *[]Patch) {
	// Both nil - nothing to do
	if old == nil && new == nil {
		return
	}

	// Node added (handled by parent via AppendChildren)
	if old == nil {
		return
	}

	// Node removed
	if new == nil {
		*patches = append(*patches, RemoveNode(old.Tag, path))
		return
	}

	// Different kind, tag or namespace - nothing of the old subtree is reusable
	if old.Kind != new.Kind || old.Tag != new.Tag || old.Namespace != new.Namespace || old.SelfClosing != new.SelfClosing {
		*patches = append(*patches, ReplaceNode(old.Tag, path, new))
		return
	}

	if old.Kind == KindText {
		diffText(old, new, path, patches)
		return
	}
	diffElement(old, new, path, patches)
}

// diffText compares text nodes.
func diffText(old, new *Node, path TreePath, patches *[]Patch) {
	if old.Text != new.Text {
		*patches = append(*patches, ChangeText(path, new.Text))
	}
}

// diffElement compares two elements with the same tag.
func diffElement(old, new *Node, path TreePath, patches *[]Patch) {
	oldAttrs := MergeAttributes(old.Attrs)
	newAttrs := MergeAttributes(new.Attrs)

	// Listener handles cannot be compared; any change in the set of bound
	// events replaces the node so the new set is attached exactly.
	if !sameNames(listenerNames(oldAttrs), listenerNames(newAttrs)) {
		*patches = append(*patches, ReplaceNode(old.Tag, path, new))
		return
	}

	diffAttrs(old.Tag, path, oldAttrs, newAttrs, patches)
	diffChildren(old, new, path, patches)
}

// diffAttrs emits at most one AddAttributes and one RemoveAttributes patch.
func diffAttrs(tag string, path TreePath, oldAttrs, newAttrs []Attribute, patches *[]Patch) {
	var added, removed []Attribute

	for _, na := range newAttrs {
		if na.IsListener() {
			continue
		}
		oa, exists := findAttr(oldAttrs, na)
		if !exists || !oa.Equal(na) {
			added = append(added, na)
		}
	}

	for _, oa := range oldAttrs {
		if oa.IsListener() {
			continue
		}
		if _, exists := findAttr(newAttrs, oa); !exists {
			removed = append(removed, oa)
		}
	}

	if len(added) > 0 {
		*patches = append(*patches, AddAttributes(tag, path, added...))
	}
	if len(removed) > 0 {
		*patches = append(*patches, RemoveAttributes(tag, path, removed...))
	}
}

// diffChildren compares and patches child nodes.
func diffChildren(old, new *Node, path TreePath, patches *[]Patch) {
	// Key presence is decided per child list, not per tree
	if hasKeys(old.Children) || hasKeys(new.Children) {
		if plan, ok := planKeyed(old.Children, new.Children); ok {
			diffKeyedChildren(old, new, path, plan, patches)
			return
		}
	}
	diffUnkeyedChildren(old, new, path, patches)
}

// diffUnkeyedChildren handles children without keys using positional matching.
func diffUnkeyedChildren(old, new *Node, path TreePath, patches *[]Patch) {
	oldLen, newLen := len(old.Children), len(new.Children)

	for i := 0; i < min(oldLen, newLen); i++ {
		diff(old.Children[i], new.Children[i], path.Child(i), patches)
	}

	if newLen > oldLen {
		*patches = append(*patches, AppendChildren(old.Tag, path, new.Children[oldLen:]...))
		return
	}

	// One RemoveNode per dropped child, each at its own old path
	for i := newLen; i < oldLen; i++ {
		*patches = append(*patches, RemoveNode(old.Children[i].Tag, path.Child(i)))
	}
}

// keyedPlan maps each new child to its old index (-1 when the key is new).
type keyedPlan struct {
	oldIndex []int
	matched  []bool // indexed by old position
	appended int    // first new index of the trailing new-only run
}

// planKeyed matches children by key. The plan is only usable when it can be
// expressed with the available patch operations: every child on both sides
// has a unique key, matched keys keep their relative order and keys that are
// new in the list only appear after the last matched child.
func planKeyed(old, new []*Node) (keyedPlan, bool) {
	oldKeys := make(map[string]int, len(old))
	for i, child := range old {
		key, ok := child.Key()
		if !ok {
			return keyedPlan{}, false
		}
		if _, dup := oldKeys[key]; dup {
			return keyedPlan{}, false
		}
		oldKeys[key] = i
	}

	plan := keyedPlan{
		oldIndex: make([]int, len(new)),
		matched:  make([]bool, len(old)),
		appended: len(new),
	}
	newKeys := make(map[string]struct{}, len(new))
	lastOld := -1
	for j, child := range new {
		key, ok := child.Key()
		if !ok {
			return keyedPlan{}, false
		}
		if _, dup := newKeys[key]; dup {
			return keyedPlan{}, false
		}
		newKeys[key] = struct{}{}

		i, exists := oldKeys[key]
		if !exists {
			if plan.appended == len(new) {
				plan.appended = j
			}
			plan.oldIndex[j] = -1
			continue
		}
		// A reorder or an insertion before a matched child cannot be
		// expressed without moves
		if i < lastOld || plan.appended < j {
			return keyedPlan{}, false
		}
		lastOld = i
		plan.oldIndex[j] = i
		plan.matched[i] = true
	}
	return plan, true
}

// diffKeyedChildren emits the recursion for matched pairs at their old
// positions, then removals of unmatched old children, then one append batch.
func diffKeyedChildren(old, new *Node, path TreePath, plan keyedPlan, patches *[]Patch) {
	for j, child := range new.Children {
		i := plan.oldIndex[j]
		if i < 0 {
			continue
		}
		diff(old.Children[i], child, path.Child(i), patches)
	}

	for i, child := range old.Children {
		if !plan.matched[i] {
			*patches = append(*patches, RemoveNode(child.Tag, path.Child(i)))
		}
	}

	if plan.appended < len(new.Children) {
		*patches = append(*patches, AppendChildren(old.Tag, path, new.Children[plan.appended:]...))
	}
}

// hasKeys returns true if any child has a key.
func hasKeys(children []*Node) bool {
	for _, child := range children {
		if _, ok := child.Key(); ok {
			return true
		}
	}
	return false
}

func sameNames(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for name := range a {
		if _, ok := b[name]; !ok {
			return false
		}
	}
	return true
}
