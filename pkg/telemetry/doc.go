// Package telemetry provides Prometheus metrics and OpenTelemetry spans for
// tree reconciliation.
//
// # Prometheus Metrics
//
// NewMetrics registers the reconciliation metrics on a registry:
//   - vtree_updates_total: Updates by status
//   - vtree_diff_duration_seconds: Diff duration histogram
//   - vtree_apply_duration_seconds: Apply duration histogram
//   - vtree_patches_applied_total: Applied patches by operation
//   - vtree_apply_errors_total: Failed applies by error kind
//   - vtree_slow_updates_total: Updates exceeding the frame budget
//   - vtree_live_nodes: Nodes in the last committed virtual tree
//   - vtree_listeners: Listener handles held by the registry
//   - vtree_frames_broadcast_total: Encoded patch frames sent to watchers
//   - vtree_watch_clients: Connected watch clients
//
//	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
//	u := dom.NewUpdater(backend, tree, dom.WithMetrics(m))
//
// All methods are safe to call on a nil *Metrics.
//
// # OpenTelemetry
//
// Spans are created from the global tracer provider unless a tracer is
// supplied:
//
//	ctx, span := telemetry.Start(ctx, tracer, "vtree.apply",
//	    attribute.Int("vtree.patch_count", len(patches)))
//	defer telemetry.End(span, err)
package telemetry
