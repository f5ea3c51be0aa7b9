package vdom

import (
	"strconv"
	"strings"
)

// TreePath addresses a node by child ordinals. The first element is always
// 0 and selects the compared root itself; each following element is the index
// of a child among its parent's children (elements and text share one index
// space).
type TreePath []int

// RootPath returns the path of the compared root.
func RootPath() TreePath {
	return TreePath{0}
}

// NewPath creates a path from indexes.
func NewPath(idx ...int) TreePath {
	p := make(TreePath, len(idx))
	copy(p, idx)
	return p
}

// Child returns a new path addressing the i-th child of p.
// The receiver is never aliased by the result.
func (p TreePath) Child(i int) TreePath {
	c := make(TreePath, len(p), len(p)+1)
	copy(c, p)
	return append(c, i)
}

// Parent returns the path of the parent node, or nil for the root.
func (p TreePath) Parent() TreePath {
	if len(p) <= 1 {
		return nil
	}
	return NewPath(p[:len(p)-1]...)
}

// Last returns the last index of the path, or -1 if empty.
func (p TreePath) Last() int {
	if len(p) == 0 {
		return -1
	}
	return p[len(p)-1]
}

// IsRoot reports whether p addresses the compared root.
func (p TreePath) IsRoot() bool {
	return len(p) == 1 && p[0] == 0
}

// Depth returns the number of edges between the root and the addressed node.
func (p TreePath) Depth() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Equal reports whether both paths address the same position.
func (p TreePath) Equal(o TreePath) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is an ancestor-or-self of p.
func (p TreePath) HasPrefix(prefix TreePath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Rel returns p relative to the ancestor path base, rooted again at 0.
// It returns false if base is not a prefix of p.
func (p TreePath) Rel(base TreePath) (TreePath, bool) {
	if !p.HasPrefix(base) {
		return nil, false
	}
	rel := make(TreePath, 0, len(p)-len(base)+1)
	rel = append(rel, 0)
	return append(rel, p[len(base):]...), true
}

// Compare orders paths lexicographically; a prefix sorts first.
func (p TreePath) Compare(o TreePath) int {
	for i := 0; i < len(p) && i < len(o); i++ {
		if p[i] != o[i] {
			if p[i] < o[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(p) < len(o):
		return -1
	case len(p) > len(o):
		return 1
	}
	return 0
}

// String returns the path as "[0,1,2]".
func (p TreePath) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, idx := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(idx))
	}
	b.WriteByte(']')
	return b.String()
}
