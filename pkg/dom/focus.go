package dom

import "sync"

// FocusSlot remembers which live node should hold focus across patches.
// The zero value is an empty slot.
type FocusSlot struct {
	mu   sync.Mutex
	node Handle
	set  bool
}

// NewFocusSlot returns an empty focus slot.
func NewFocusSlot() *FocusSlot {
	return &FocusSlot{}
}

// Get returns the focused node, if any.
func (f *FocusSlot) Get() (Handle, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.node, f.set
}

// Set records node as focused.
func (f *FocusSlot) Set(node Handle) {
	f.mu.Lock()
	f.node, f.set = node, true
	f.mu.Unlock()
}

// Clear empties the slot.
func (f *FocusSlot) Clear() {
	f.mu.Lock()
	f.node, f.set = nil, false
	f.mu.Unlock()
}

// Holds reports whether the slot references node.
func (f *FocusSlot) Holds(node Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set && f.node == node
}
