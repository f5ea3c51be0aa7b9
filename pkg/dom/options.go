package dom

import (
	"log/slog"
	"time"

	"github.com/vango-dev/vtree/pkg/telemetry"
	"github.com/vango-dev/vtree/pkg/vdom"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSlowUpdate is the update duration above which Updater logs a warning.
const DefaultSlowUpdate = 16 * time.Millisecond

// config holds the settings shared by Registry, Applier and Updater.
type config struct {
	logger     *slog.Logger
	strict     bool
	metrics    *telemetry.Metrics
	tracer     trace.Tracer
	slowUpdate time.Duration
	onUpdate   func(next *vdom.Node, patches []vdom.Patch)
}

// Option configures a Registry, Applier or Updater.
type Option func(*config)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStrictRegistry makes registry inconsistencies fatal instead of logging
// and ignoring them.
func WithStrictRegistry(strict bool) Option {
	return func(c *config) {
		c.strict = strict
	}
}

// WithMetrics records apply and update metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for diff and apply spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		c.tracer = tracer
	}
}

// WithSlowUpdate sets the threshold for slow update warnings.
func WithSlowUpdate(d time.Duration) Option {
	return func(c *config) {
		c.slowUpdate = d
	}
}

// WithOnUpdate registers fn to run after every successful Updater.Update with
// the new tree and the patches that were applied.
func WithOnUpdate(fn func(next *vdom.Node, patches []vdom.Patch)) Option {
	return func(c *config) {
		c.onUpdate = fn
	}
}

func newConfig(opts []Option) config {
	c := config{
		logger:     slog.Default(),
		slowUpdate: DefaultSlowUpdate,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.tracer == nil {
		c.tracer = telemetry.Tracer(telemetry.DefaultTracerName)
	}
	return c
}
