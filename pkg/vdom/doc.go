// Package vdom provides the virtual tree model and the diff engine of vtree.
//
// A virtual tree is an immutable, declarative snapshot of the desired UI
// structure. Diffing two snapshots produces an ordered list of Patch values
// that a live backend (see package dom) applies to bring a mutable tree from
// the old snapshot to the new one.
//
// # Core Types
//
// Node is either an element (tag, attributes, ordered children) or a text
// leaf. Attribute is a named, possibly multi-valued property; its values are
// plain scalars, style declarations, event listeners or function values.
// Listener and function values are opaque: they compare by handle identity,
// never by behaviour.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1(Text("Title")),
//	    P(Text("Content")),
//	    OnClick(handler),
//	)
//
// Multiple declarations of the same attribute are folded together by
// MergeAttributes before comparison, so Class("a") followed by Class("b")
// is the same as Class("a", "b").
//
// # Addressing
//
// A TreePath names a node by child ordinals. The two roots passed to Diff
// are treated as the only child of an invisible wrapper, so every path starts
// with 0. Paths in a patch list always address the old tree.
//
// # Diffing
//
// Diff compares two trees and returns patches in pre-order. A tag change or
// a change in the set of listener names replaces the node wholesale. Keyed
// reconciliation is used for a child list when any child has a Key attribute
// and the keyed plan is exact; otherwise children are matched by position.
package vdom
