package dom

import (
	"context"
	"errors"
	"time"

	"github.com/vango-dev/vtree/pkg/telemetry"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Result is the outcome of an apply call.
type Result struct {
	// Root is the live root after the call. It differs from the root passed
	// in when the root itself was replaced, and is nil when it was removed.
	Root Handle

	// Applied is the number of patches performed, including on failure.
	Applied int
}

// Applier applies patch lists to the live tree owned by a Backend.
type Applier struct {
	backend Backend
	cfg     config
}

// NewApplier creates an Applier for b.
func NewApplier(b Backend, opts ...Option) *Applier {
	return &Applier{backend: b, cfg: newConfig(opts)}
}

// Apply is a convenience wrapper for NewApplier(b, opts...).Apply.
func Apply(ctx context.Context, b Backend, root Handle, reg *Registry, focus *FocusSlot, patches []vdom.Patch, opts ...Option) (Result, error) {
	return NewApplier(b, opts...).Apply(ctx, root, reg, focus, patches)
}

// Apply performs patches against the live tree rooted at root.
//
// Every patch path is resolved before the first mutation; a path that does
// not resolve fails the call with ErrPathResolution and leaves the live tree
// untouched. A backend failure stops the call with ErrBackendMutation; the
// patches before it stay applied and Result reports how many there were.
// A nil reg or focus is replaced by an empty one.
func (a *Applier) Apply(ctx context.Context, root Handle, reg *Registry, focus *FocusSlot, patches []vdom.Patch) (res Result, err error) {
	res.Root = root
	if len(patches) == 0 {
		return res, nil
	}
	if reg == nil {
		reg = NewRegistry(WithLogger(a.cfg.logger), WithStrictRegistry(a.cfg.strict))
	}
	if focus == nil {
		focus = NewFocusSlot()
	}

	_, span := telemetry.Start(ctx, a.cfg.tracer, "vtree.apply", telemetry.PatchAttrs("", len(patches))...)
	start := time.Now()
	defer func() {
		telemetry.End(span, err)
		a.cfg.metrics.ObserveApply(time.Since(start), patches, res.Applied, KindName(err), err)
		a.cfg.metrics.SetListeners(reg.Count())
	}()

	targets := make([]Handle, len(patches))
	for i, p := range patches {
		h, rerr := a.backend.Resolve(root, p.Path)
		if rerr != nil {
			err = patchError(ErrPathResolution, i, p, rerr)
			a.cfg.logger.Error("patch path did not resolve",
				"index", i,
				"op", p.Op.String(),
				"path", p.Path.String(),
				"error", rerr,
			)
			return res, err
		}
		targets[i] = h
	}

	for i, p := range patches {
		replaced, perr := a.applyPatch(root, targets[i], reg, focus, p)
		if perr != nil {
			err = a.fail(i, p, perr)
			a.cfg.logger.Error("patch failed",
				"index", i,
				"op", p.Op.String(),
				"path", p.Path.String(),
				"applied", res.Applied,
				"error", perr,
			)
			return res, err
		}
		if p.Path.IsRoot() && (p.Op == vdom.PatchReplaceNode || p.Op == vdom.PatchRemoveNode) {
			res.Root = replaced
		}
		res.Applied++
	}

	a.cfg.logger.Debug("patches applied", "count", res.Applied, "listeners", reg.Count())
	return res, nil
}

func (a *Applier) fail(i int, p vdom.Patch, err error) error {
	if errors.Is(err, ErrRegistryInconsistency) {
		return patchError(ErrRegistryInconsistency, i, p, err)
	}
	return patchError(ErrBackendMutation, i, p, err)
}

// applyPatch performs one patch on its resolved target. For ReplaceNode it
// returns the new live node.
func (a *Applier) applyPatch(root, target Handle, reg *Registry, focus *FocusSlot, p vdom.Patch) (Handle, error) {
	switch p.Op {
	case vdom.PatchAddAttributes:
		return nil, a.addAttributes(target, reg, p.Attrs)
	case vdom.PatchRemoveAttributes:
		return nil, a.removeAttributes(target, reg, p.Attrs)
	case vdom.PatchReplaceNode:
		return a.replaceNode(target, reg, focus, p.Node)
	case vdom.PatchAppendChildren:
		return nil, a.appendChildren(target, reg, focus, p.Children)
	case vdom.PatchRemoveNode:
		return nil, a.removeNode(target, reg, focus)
	case vdom.PatchChangeText:
		return nil, a.backend.SetText(target, p.Text)
	default:
		return nil, errors.New("unknown patch op " + p.Op.String())
	}
}

func (a *Applier) addAttributes(node Handle, reg *Registry, attrs []vdom.Attribute) error {
	for _, attr := range attrs {
		plain, listeners := splitListeners(attr)
		if len(plain.Values) > 0 {
			if err := a.backend.SetAttribute(node, plain); err != nil {
				return err
			}
		}
		for _, l := range listeners {
			h, err := a.backend.AttachListener(node, attr.Name, l)
			if err != nil {
				return err
			}
			if err := reg.Register(node, attr.Name, h); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Applier) removeAttributes(node Handle, reg *Registry, attrs []vdom.Attribute) error {
	for _, attr := range attrs {
		plain, listeners := splitListeners(attr)
		if len(listeners) > 0 {
			for _, h := range reg.Lookup(node, attr.Name) {
				if err := a.backend.DetachListener(node, h); err != nil {
					return err
				}
				if err := reg.Release(node, h); err != nil {
					return err
				}
			}
		}
		if len(plain.Values) > 0 || len(listeners) == 0 {
			if err := a.backend.UnsetAttribute(node, attr.QualifiedName()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Applier) replaceNode(target Handle, reg *Registry, focus *FocusSlot, n *vdom.Node) (Handle, error) {
	rel, hadFocus, err := a.focusWithin(target, focus)
	if err != nil {
		return nil, err
	}
	if err := reg.ReleaseAll(a.backend, target); err != nil {
		return nil, err
	}
	h, err := a.materializeInto(n, reg, func(h Handle) error {
		return a.backend.Replace(target, h)
	})
	if err != nil {
		return nil, err
	}

	if hadFocus {
		focus.Clear()
		// Refocus only when the new subtree has an element at the same spot
		if equiv, ok := n.Find(rel); ok && equiv.IsElement() {
			if fh, err := a.backend.Resolve(h, rel); err == nil {
				if err := a.focus(focus, fh); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := a.claimAutofocus(h, n, focus); err != nil {
		return nil, err
	}
	return h, nil
}

func (a *Applier) appendChildren(parent Handle, reg *Registry, focus *FocusSlot, children []*vdom.Node) error {
	for _, c := range children {
		if c == nil {
			continue
		}
		h, err := a.materializeInto(c, reg, func(h Handle) error {
			return a.backend.AppendChild(parent, h)
		})
		if err != nil {
			return err
		}
		if err := a.claimAutofocus(h, c, focus); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) removeNode(target Handle, reg *Registry, focus *FocusSlot) error {
	_, hadFocus, err := a.focusWithin(target, focus)
	if err != nil {
		return err
	}
	if err := reg.ReleaseAll(a.backend, target); err != nil {
		return err
	}
	if err := a.backend.Remove(target); err != nil {
		return err
	}
	if hadFocus {
		focus.Clear()
	}
	return nil
}

// materialize builds a live subtree and registers its listeners.
func (a *Applier) materialize(n *vdom.Node, reg *Registry) (Handle, error) {
	h, attachments, err := a.backend.Materialize(n)
	if err != nil {
		return nil, err
	}
	for _, att := range attachments {
		if err := reg.Register(att.Node, att.Event, att.Handle); err != nil {
			return nil, a.discard(h, reg, err)
		}
	}
	return h, nil
}

// materializeInto materializes n and hands the new subtree to insert. A
// subtree that never goes live gives its listeners back to the registry.
func (a *Applier) materializeInto(n *vdom.Node, reg *Registry, insert func(Handle) error) (Handle, error) {
	h, err := a.materialize(n, reg)
	if err != nil {
		return nil, err
	}
	if err := insert(h); err != nil {
		return nil, a.discard(h, reg, err)
	}
	return h, nil
}

// discard releases the listeners of a detached subtree and returns cause,
// joined with any release failure.
func (a *Applier) discard(h Handle, reg *Registry, cause error) error {
	if err := reg.ReleaseAll(a.backend, h); err != nil {
		a.cfg.logger.Warn("releasing listeners of a discarded subtree failed", "error", err)
		return errors.Join(cause, err)
	}
	return cause
}

// focusWithin reports whether the focused node is target or one of its live
// descendants, and its path relative to target.
func (a *Applier) focusWithin(target Handle, focus *FocusSlot) (vdom.TreePath, bool, error) {
	focused, ok := focus.Get()
	if !ok {
		return nil, false, nil
	}
	return findLive(a.backend, target, focused, vdom.RootPath())
}

func findLive(b Backend, node, want Handle, path vdom.TreePath) (vdom.TreePath, bool, error) {
	if node == want {
		return path, true, nil
	}
	children, err := b.Children(node)
	if err != nil {
		return nil, false, err
	}
	for i, c := range children {
		if p, ok, err := findLive(b, c, want, path.Child(i)); err != nil || ok {
			return p, ok, err
		}
	}
	return nil, false, nil
}

// claimAutofocus focuses the first element of n declaring autofocus.
func (a *Applier) claimAutofocus(h Handle, n *vdom.Node, focus *FocusSlot) error {
	var target vdom.TreePath
	n.Walk(func(path vdom.TreePath, node *vdom.Node) bool {
		if target != nil {
			return false
		}
		if vdom.HasAutofocus(node) {
			target = path
			return false
		}
		return true
	})
	if target == nil {
		return nil
	}
	fh, err := a.backend.Resolve(h, target)
	if err != nil {
		return err
	}
	return a.focus(focus, fh)
}

func (a *Applier) focus(focus *FocusSlot, h Handle) error {
	focus.Set(h)
	return a.backend.Focus(h)
}

// splitListeners separates listener values from the rest of an attribute.
func splitListeners(attr vdom.Attribute) (vdom.Attribute, []*vdom.Listener) {
	if !attr.IsListener() {
		return attr, nil
	}
	plain := vdom.Attribute{Namespace: attr.Namespace, Name: attr.Name}
	var listeners []*vdom.Listener
	for _, v := range attr.Values {
		if v.Kind == vdom.ValueListener {
			if v.Listener != nil {
				listeners = append(listeners, v.Listener)
			}
			continue
		}
		plain.Values = append(plain.Values, v)
	}
	return plain, listeners
}
