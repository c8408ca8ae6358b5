package gyro

import (
	"log/slog"

	"github.com/gyrodb/gyro/kernel"
	"github.com/gyrodb/gyro/query"
)

type options struct {
	m          int
	efSearch   int
	kernelName string
	randomSeed *int64

	kernels *kernel.Registry
	storage query.Storage

	vectorized bool

	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures the Gyro constructor.
type Option func(*options)

// WithM configures the maximum number of graph connections per node per
// layer.
func WithM(m int) Option {
	return func(o *options) {
		o.m = m
	}
}

// WithEFSearch configures the default size of the bounded candidate list
// used during base-layer beam search.
func WithEFSearch(ef int) Option {
	return func(o *options) {
		o.efSearch = ef
	}
}

// WithKernelName selects the distance kernel used by the index. The name
// must be registered; construction fails otherwise instead of substituting
// another metric.
func WithKernelName(name string) Option {
	return func(o *options) {
		o.kernelName = name
	}
}

// WithRandomSeed seeds the layer generator for reproducible graph builds.
func WithRandomSeed(seed int64) Option {
	return func(o *options) {
		o.randomSeed = &seed
	}
}

// WithKernelRegistry injects a pre-populated kernel registry. Register all
// custom kernels before any concurrent index or executor use begins.
func WithKernelRegistry(r *kernel.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.kernels = r
		}
	}
}

// WithStorage configures the table storage collaborator the query executor
// scans. Defaults to an empty in-memory storage.
func WithStorage(s query.Storage) Option {
	return func(o *options) {
		if s != nil {
			o.storage = s
		}
	}
}

// WithVectorization toggles the batched geodesic-join path (enabled by
// default). Disabled, every join runs the scalar nested loop.
func WithVectorization(enabled bool) Option {
	return func(o *options) {
		o.vectorized = enabled
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithLogger configures structured logging for operations.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		efSearch:         0, // Index default applies.
		kernelName:       kernel.Default,
		vectorized:       true,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	if o.kernels == nil {
		o.kernels = kernel.NewRegistry()
	}

	if o.storage == nil {
		o.storage = query.NewMemStorage()
	}

	return o
}
