package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTracerName is the tracer name used when none is configured.
const DefaultTracerName = "vtree"

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = DefaultTracerName
	}
	return otel.Tracer(name)
}

// Start opens an internal span. A nil tracer resolves the default tracer.
func Start(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		tracer = Tracer(DefaultTracerName)
	}
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End records err on the span, sets its status and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// PatchAttrs returns the span attributes describing a patch list.
func PatchAttrs(treeID string, patches int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int("vtree.patch_count", patches)}
	if treeID != "" {
		attrs = append(attrs, attribute.String("vtree.tree_id", treeID))
	}
	return attrs
}
