package pairspec

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives timing and outcome information for the
// expensive operations of a System. Implementations must be safe for
// concurrent use; a single collector may serve many systems.
type MetricsCollector interface {
	// RecordBasisBuild is called after every basis construction with the
	// number of states enumerated.
	RecordBasisBuild(states int, duration time.Duration, err error)

	// RecordAssemble is called after every interaction assembly with the
	// operator dimension.
	RecordAssemble(dim int, duration time.Duration, err error)

	// RecordDiagonalize is called after every diagonalization with the
	// operator dimension.
	RecordDiagonalize(dim int, duration time.Duration, err error)

	// RecordOverlap is called after every overlap analysis with the number
	// of eigenpairs projected.
	RecordOverlap(pairs int, duration time.Duration, err error)
}

var (
	_ MetricsCollector = NoopMetricsCollector{}
	_ MetricsCollector = (*BasicMetricsCollector)(nil)
)

// NoopMetricsCollector discards every measurement.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBasisBuild(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordAssemble(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordDiagonalize(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordOverlap(int, time.Duration, error)     {}

// BasicMetricsCollector keeps lock-free counters and running durations for
// every operation. Read a consistent snapshot through GetStats.
type BasicMetricsCollector struct {
	basisBuilds   atomic.Int64
	basisErrors   atomic.Int64
	basisNanos    atomic.Int64
	assemblies    atomic.Int64
	assemblyErrs  atomic.Int64
	assemblyNanos atomic.Int64
	diags         atomic.Int64
	diagErrors    atomic.Int64
	diagNanos     atomic.Int64
	overlaps      atomic.Int64
	overlapErrs   atomic.Int64
	overlapNanos  atomic.Int64
}

// NewBasicMetricsCollector creates a zeroed collector.
func NewBasicMetricsCollector() *BasicMetricsCollector {
	return &BasicMetricsCollector{}
}

// RecordBasisBuild implements MetricsCollector.
func (c *BasicMetricsCollector) RecordBasisBuild(states int, duration time.Duration, err error) {
	c.basisBuilds.Add(1)
	c.basisNanos.Add(int64(duration))
	if err != nil {
		c.basisErrors.Add(1)
	}
}

// RecordAssemble implements MetricsCollector.
func (c *BasicMetricsCollector) RecordAssemble(dim int, duration time.Duration, err error) {
	c.assemblies.Add(1)
	c.assemblyNanos.Add(int64(duration))
	if err != nil {
		c.assemblyErrs.Add(1)
	}
}

// RecordDiagonalize implements MetricsCollector.
func (c *BasicMetricsCollector) RecordDiagonalize(dim int, duration time.Duration, err error) {
	c.diags.Add(1)
	c.diagNanos.Add(int64(duration))
	if err != nil {
		c.diagErrors.Add(1)
	}
}

// RecordOverlap implements MetricsCollector.
func (c *BasicMetricsCollector) RecordOverlap(pairs int, duration time.Duration, err error) {
	c.overlaps.Add(1)
	c.overlapNanos.Add(int64(duration))
	if err != nil {
		c.overlapErrs.Add(1)
	}
}

// BasicMetricsStats is a point-in-time snapshot of a BasicMetricsCollector.
type BasicMetricsStats struct {
	BasisBuilds        int64
	BasisErrors        int64
	AvgBasisBuild      time.Duration
	Assemblies         int64
	AssemblyErrors     int64
	AvgAssembly        time.Duration
	Diagonalizations   int64
	DiagonalizeErrors  int64
	AvgDiagonalization time.Duration
	Overlaps           int64
	OverlapErrors      int64
	AvgOverlap         time.Duration
}

// GetStats returns a snapshot of all counters with per-operation averages.
func (c *BasicMetricsCollector) GetStats() BasicMetricsStats {
	builds := c.basisBuilds.Load()
	assemblies := c.assemblies.Load()
	diags := c.diags.Load()
	overlaps := c.overlaps.Load()
	return BasicMetricsStats{
		BasisBuilds:        builds,
		BasisErrors:        c.basisErrors.Load(),
		AvgBasisBuild:      avgDuration(c.basisNanos.Load(), builds),
		Assemblies:         assemblies,
		AssemblyErrors:     c.assemblyErrs.Load(),
		AvgAssembly:        avgDuration(c.assemblyNanos.Load(), assemblies),
		Diagonalizations:   diags,
		DiagonalizeErrors:  c.diagErrors.Load(),
		AvgDiagonalization: avgDuration(c.diagNanos.Load(), diags),
		Overlaps:           overlaps,
		OverlapErrors:      c.overlapErrs.Load(),
		AvgOverlap:         avgDuration(c.overlapNanos.Load(), overlaps),
	}
}

func avgDuration(totalNanos, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNanos / count)
}
