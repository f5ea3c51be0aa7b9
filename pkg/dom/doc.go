// Package dom applies patch lists produced by vdom.Diff to a live tree.
//
// The live tree is owned by a Backend. Apply resolves every patch path
// against the live tree before the first mutation, then performs the patches
// in order while keeping a listener Registry and a FocusSlot consistent:
//
//	patches := vdom.Diff(old, new)
//	res, err := dom.Apply(ctx, backend, root, registry, focus, patches)
//	if err != nil {
//	    // live tree may be partially patched; remount from new
//	}
//	root = res.Root
//
// Updater wraps the cycle for callers that keep the current virtual tree
// around: it diffs, applies, restores focus and swaps in the new tree.
//
// # Listener ownership
//
// Every listener attached to a live node is recorded in the Registry under
// that node's handle. Replacing or removing a node releases the entries of
// the node and all of its live descendants, detaching each handle exactly
// once.
//
// # Concurrency
//
// Apply is single-writer. Updater rejects overlapping cycles with
// ErrApplyInFlight and holds no lock across backend calls, so listener
// callbacks may call back into it without deadlocking.
package dom
