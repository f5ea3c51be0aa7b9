package dom

import (
	"fmt"
	"log/slog"
	"sync"
)

type binding struct {
	event  string
	handle ListenerHandle
}

// Registry owns the listener handles attached to a live tree, keyed by the
// handle of the live node they are attached to.
type Registry struct {
	mu      sync.Mutex
	entries map[Handle][]binding
	count   int
	strict  bool
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. WithStrictRegistry and WithLogger
// apply; other options are ignored.
func NewRegistry(opts ...Option) *Registry {
	c := newConfig(opts)
	return &Registry{
		entries: make(map[Handle][]binding),
		strict:  c.strict,
		logger:  c.logger,
	}
}

// Register records h as attached to node for event.
func (r *Registry) Register(node Handle, event string, h ListenerHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.entries[node] {
		if b.handle == h {
			return r.inconsistent("duplicate register", node, event)
		}
	}
	r.entries[node] = append(r.entries[node], binding{event: event, handle: h})
	r.count++
	return nil
}

// Release forgets h. It does not detach the listener.
func (r *Registry) Release(node Handle, h ListenerHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[node]
	for i, b := range list {
		if b.handle != h {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(r.entries, node)
		} else {
			r.entries[node] = list
		}
		r.count--
		return nil
	}
	return r.inconsistent("release of unregistered handle", node, "")
}

// Lookup returns the handles attached to node for event.
func (r *Registry) Lookup(node Handle, event string) []ListenerHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ListenerHandle
	for _, b := range r.entries[node] {
		if b.event == event {
			out = append(out, b.handle)
		}
	}
	return out
}

// ReleaseAll releases the entries of node and all of its live descendants,
// detaching every handle through b. Entries are dropped before detaching, so a
// failed detach never leaves a handle registered twice.
func (r *Registry) ReleaseAll(b Backend, node Handle) error {
	var nodes []Handle
	if err := collect(b, node, &nodes); err != nil {
		return err
	}

	type pending struct {
		node     Handle
		bindings []binding
	}
	var detach []pending

	r.mu.Lock()
	for _, n := range nodes {
		if list, ok := r.entries[n]; ok {
			detach = append(detach, pending{node: n, bindings: list})
			delete(r.entries, n)
			r.count -= len(list)
		}
	}
	r.mu.Unlock()

	// No lock is held while calling into the backend
	for _, p := range detach {
		for _, bd := range p.bindings {
			if err := b.DetachListener(p.node, bd.handle); err != nil {
				return fmt.Errorf("detach %s listener: %w", bd.event, err)
			}
		}
	}
	return nil
}

// Count returns the number of registered listener handles.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Nodes returns the number of live nodes holding at least one handle.
func (r *Registry) Nodes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reset drops every entry without detaching.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.entries = make(map[Handle][]binding)
	r.count = 0
	r.mu.Unlock()
}

// inconsistent reports a contract violation. Callers hold r.mu.
func (r *Registry) inconsistent(what string, node Handle, event string) error {
	if r.strict {
		return fmt.Errorf("%w: %s", ErrRegistryInconsistency, what)
	}
	r.logger.Warn("listener registry inconsistency ignored",
		"reason", what,
		"node", fmt.Sprintf("%v", node),
		"event", event,
	)
	return nil
}

// collect appends node and its live descendants in pre-order.
func collect(b Backend, node Handle, out *[]Handle) error {
	*out = append(*out, node)
	children, err := b.Children(node)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := collect(b, c, out); err != nil {
			return err
		}
	}
	return nil
}
