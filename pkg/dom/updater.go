package dom

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vango-dev/vtree/pkg/telemetry"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Measurements describes the last update cycle.
type Measurements struct {
	NodeCount     int           // Nodes in the new virtual tree
	PatchCount    int           // Patches produced by the diff
	DiffDuration  time.Duration // Time spent diffing
	ApplyDuration time.Duration // Time spent applying
	Total         time.Duration // Whole cycle
}

// Updater keeps a live tree in sync with successive virtual trees. It owns
// the listener registry and the focus slot of that live tree.
type Updater struct {
	backend  Backend
	applier  *Applier
	cfg      config
	logger   *slog.Logger
	id       string
	registry *Registry
	focus    *FocusSlot

	inFlight atomic.Bool

	mu       sync.Mutex
	current  *vdom.Node
	root     Handle
	mounted  bool
	measured Measurements
}

// NewUpdater creates an Updater for current. Nothing is materialized until
// Mount is called.
func NewUpdater(b Backend, current *vdom.Node, opts ...Option) *Updater {
	cfg := newConfig(opts)
	id := uuid.NewString()
	cfg.logger = cfg.logger.With("tree_id", id)

	return &Updater{
		backend:  b,
		applier:  &Applier{backend: b, cfg: cfg},
		cfg:      cfg,
		logger:   cfg.logger,
		id:       id,
		registry: NewRegistry(WithLogger(cfg.logger), WithStrictRegistry(cfg.strict)),
		focus:    NewFocusSlot(),
		current:  current,
	}
}

// ID returns the tree id attached to log records and spans.
func (u *Updater) ID() string { return u.id }

// Mount materializes the current tree. With replace the live tree takes the
// place of mount; otherwise it is appended to mount's children.
func (u *Updater) Mount(ctx context.Context, mount Handle, replace bool) error {
	if !u.inFlight.CompareAndSwap(false, true) {
		return &ApplyError{Kind: ErrApplyInFlight, Index: -1}
	}
	defer u.inFlight.Store(false)

	_, span := telemetry.Start(ctx, u.cfg.tracer, "vtree.mount", telemetry.PatchAttrs(u.id, 0)...)
	err := u.mount(mount, replace)
	telemetry.End(span, err)
	if err != nil {
		u.logger.Error("mount failed", "error", err)
		return err
	}

	u.restoreFocus()
	u.cfg.metrics.SetLiveNodes(u.Current().Count())
	u.cfg.metrics.SetListeners(u.registry.Count())
	u.logger.Debug("tree mounted", "replace", replace, "listeners", u.registry.Count())
	return nil
}

func (u *Updater) mount(mount Handle, replace bool) error {
	u.mu.Lock()
	current := u.current
	u.mu.Unlock()

	h, err := u.applier.materializeInto(current, u.registry, func(h Handle) error {
		if replace {
			return u.backend.Replace(mount, h)
		}
		return u.backend.AppendChild(mount, h)
	})
	if err != nil {
		return &ApplyError{Kind: ErrBackendMutation, Index: -1, Err: err}
	}
	if err := u.applier.claimAutofocus(h, current, u.focus); err != nil {
		return &ApplyError{Kind: ErrBackendMutation, Index: -1, Err: err}
	}

	u.mu.Lock()
	u.root = h
	u.mounted = true
	u.mu.Unlock()
	return nil
}

// Update diffs the current tree against next, applies the patches and makes
// next current. It returns the number of patches. On failure the current tree
// is kept and the live tree may be partially patched.
func (u *Updater) Update(ctx context.Context, next *vdom.Node) (int, error) {
	if !u.inFlight.CompareAndSwap(false, true) {
		return 0, &ApplyError{Kind: ErrApplyInFlight, Index: -1}
	}
	defer u.inFlight.Store(false)

	u.mu.Lock()
	current, root, mounted := u.current, u.root, u.mounted
	u.mu.Unlock()
	if !mounted {
		return 0, ErrNotMounted
	}

	ctx, span := telemetry.Start(ctx, u.cfg.tracer, "vtree.update", telemetry.PatchAttrs(u.id, 0)...)
	start := time.Now()

	_, diffSpan := telemetry.Start(ctx, u.cfg.tracer, "vtree.diff")
	patches := vdom.Diff(current, next)
	diffDuration := time.Since(start)
	telemetry.End(diffSpan, nil)
	u.cfg.metrics.ObserveDiff(diffDuration)

	applyStart := time.Now()
	res, err := u.applier.Apply(ctx, root, u.registry, u.focus, patches)
	applyDuration := time.Since(applyStart)

	u.mu.Lock()
	u.root = res.Root
	if err == nil {
		u.current = next
	}
	u.mu.Unlock()

	if err == nil {
		u.restoreFocus()
	}

	m := Measurements{
		NodeCount:     next.Count(),
		PatchCount:    len(patches),
		DiffDuration:  diffDuration,
		ApplyDuration: applyDuration,
		Total:         time.Since(start),
	}
	u.record(m, err)
	telemetry.End(span, err)

	if err != nil {
		return res.Applied, err
	}
	if u.cfg.onUpdate != nil {
		u.cfg.onUpdate(next, patches)
	}
	return len(patches), nil
}

// Patch applies patches directly without changing the current tree. It is
// meant for debugging and replaying recorded patch lists.
func (u *Updater) Patch(ctx context.Context, patches []vdom.Patch) (int, error) {
	if !u.inFlight.CompareAndSwap(false, true) {
		return 0, &ApplyError{Kind: ErrApplyInFlight, Index: -1}
	}
	defer u.inFlight.Store(false)

	u.mu.Lock()
	root, mounted := u.root, u.mounted
	u.mu.Unlock()
	if !mounted {
		return 0, ErrNotMounted
	}

	res, err := u.applier.Apply(ctx, root, u.registry, u.focus, patches)
	u.mu.Lock()
	u.root = res.Root
	u.mu.Unlock()
	if err == nil {
		u.restoreFocus()
	}
	return res.Applied, err
}

// Unmount releases every listener and removes the live tree.
func (u *Updater) Unmount(ctx context.Context) error {
	if !u.inFlight.CompareAndSwap(false, true) {
		return &ApplyError{Kind: ErrApplyInFlight, Index: -1}
	}
	defer u.inFlight.Store(false)

	u.mu.Lock()
	root, mounted := u.root, u.mounted
	u.mu.Unlock()
	if !mounted {
		return ErrNotMounted
	}

	_, span := telemetry.Start(ctx, u.cfg.tracer, "vtree.unmount", telemetry.PatchAttrs(u.id, 0)...)
	err := u.applier.removeNode(root, u.registry, u.focus)
	telemetry.End(span, err)
	if err != nil {
		return &ApplyError{Kind: ErrBackendMutation, Index: -1, Err: err}
	}

	u.mu.Lock()
	u.root = nil
	u.mounted = false
	u.mu.Unlock()
	u.cfg.metrics.SetListeners(u.registry.Count())
	return nil
}

// restoreFocus gives host focus back to the slot's node after a cycle.
func (u *Updater) restoreFocus() {
	h, ok := u.focus.Get()
	if !ok || u.backend.IsFocused(h) {
		return
	}
	if err := u.backend.Focus(h); err != nil {
		u.logger.Warn("focus restore failed", "error", err)
	}
}

func (u *Updater) record(m Measurements, err error) {
	u.mu.Lock()
	u.measured = m
	u.mu.Unlock()

	slow := m.Total > u.cfg.slowUpdate
	u.cfg.metrics.ObserveUpdate(err, slow)
	u.cfg.metrics.SetListeners(u.registry.Count())

	if err != nil {
		u.logger.Error("update failed", "patches", m.PatchCount, "error", err)
		return
	}
	u.cfg.metrics.SetLiveNodes(m.NodeCount)
	if slow {
		u.logger.Warn("slow update",
			"duration", m.Total,
			"diff", m.DiffDuration,
			"apply", m.ApplyDuration,
			"patches", m.PatchCount,
			"nodes", m.NodeCount,
		)
		return
	}
	u.logger.Debug("tree updated", "patches", m.PatchCount, "nodes", m.NodeCount, "duration", m.Total)
}

// Root returns the live root, nil before Mount.
func (u *Updater) Root() Handle {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.root
}

// Current returns the virtual tree the live tree was last synced to.
func (u *Updater) Current() *vdom.Node {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.current
}

// ListenerCount returns the number of registered listener handles.
func (u *Updater) ListenerCount() int {
	return u.registry.Count()
}

// Registry returns the listener registry of the live tree.
func (u *Updater) Registry() *Registry { return u.registry }

// Focus returns the focus slot of the live tree.
func (u *Updater) Focus() *FocusSlot { return u.focus }

// Measurements returns the measurements of the last update.
func (u *Updater) Measurements() Measurements {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.measured
}
