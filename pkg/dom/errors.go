package dom

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vtree/pkg/vdom"
)

var (
	// ErrPathResolution is returned when a patch path does not resolve in the
	// live tree. The live tree and the patch list have desynchronized.
	ErrPathResolution = errors.New("dom: path resolution failed")

	// ErrBackendMutation is returned when the backend refused or failed an
	// operation.
	ErrBackendMutation = errors.New("dom: backend mutation failed")

	// ErrRegistryInconsistency is returned in strict mode when a listener
	// handle is registered twice or released without being registered.
	ErrRegistryInconsistency = errors.New("dom: listener registry inconsistency")

	// ErrApplyInFlight is returned when an update starts while another one
	// is still applying to the same live tree.
	ErrApplyInFlight = errors.New("dom: apply already in flight")

	// ErrNotFound is reported by backends when a path has no live node.
	ErrNotFound = errors.New("dom: node not found")

	// ErrNotMounted is returned by Updater before Mount.
	ErrNotMounted = errors.New("dom: tree not mounted")
)

// ApplyError describes a failed apply call.
type ApplyError struct {
	Kind  error         // One of the sentinel errors above
	Index int           // Index of the failing patch, -1 if not patch specific
	Op    vdom.PatchOp  // Operation of the failing patch
	Path  vdom.TreePath // Path of the failing patch
	Err   error         // Underlying cause
}

// Error implements the error interface.
func (e *ApplyError) Error() string {
	msg := e.Kind.Error()
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s: patch %d (%s %s)", msg, e.Index, e.Op, e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the kind and the cause so errors.Is matches both.
func (e *ApplyError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns a short label for the error kind, suitable for metrics.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPathResolution):
		return "path_resolution"
	case errors.Is(err, ErrRegistryInconsistency):
		return "registry_inconsistency"
	case errors.Is(err, ErrApplyInFlight):
		return "in_flight"
	case errors.Is(err, ErrBackendMutation):
		return "backend_mutation"
	default:
		return "internal"
	}
}

func patchError(kind error, i int, p vdom.Patch, err error) *ApplyError {
	return &ApplyError{Kind: kind, Index: i, Op: p.Op, Path: p.Path, Err: err}
}
