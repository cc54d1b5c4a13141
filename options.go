package pairspec

import (
	"log/slog"

	"github.com/pairspec/pairspec/atomdata"
	"github.com/pairspec/pairspec/eigen"
)

type options struct {
	logger       *Logger
	metrics      MetricsCollector
	provider     atomdata.Provider
	diagonalizer eigen.Diagonalizer
	workers      int
}

// Option configures a System at construction time.
type Option func(*options)

// WithLogger routes operational logging through the given logger. nil
// restores the silent default.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel is shorthand for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector wires a collector into every operation of the
// system. nil restores the discarding default.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(o *options) {
		if collector == nil {
			collector = NoopMetricsCollector{}
		}
		o.metrics = collector
	}
}

// WithProvider overrides the source of level energies and radial matrix
// elements. nil restores the built-in alkali model backed by the system's
// cache. Systems created with a custom provider skip the built-in species
// check, and their energies are not written to the cache; wrap expensive
// providers in atomdata.NewMemo or atomdata.NewCached as needed.
func WithProvider(provider atomdata.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithDiagonalizer selects the eigensolver used by Diagonalize. nil
// restores the dense solver.
func WithDiagonalizer(d eigen.Diagonalizer) Option {
	return func(o *options) {
		if d == nil {
			d = eigen.Dense{}
		}
		o.diagonalizer = d
	}
}

// WithAssembleWorkers bounds the number of goroutines used during
// interaction assembly. Values below one select GOMAXPROCS.
func WithAssembleWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{
		logger:       NoopLogger(),
		metrics:      NoopMetricsCollector{},
		diagonalizer: eigen.Dense{},
	}
	for _, fn := range opts {
		if fn == nil {
			continue
		}
		fn(o)
	}
	return o
}
