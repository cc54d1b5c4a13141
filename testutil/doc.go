// Package testutil provides testing utilities for pairspec.
//
// This package is intended for use in tests and benchmarks only. It builds
// small deterministic systems around the Rb 69s seed and computes exact
// reference spectra for verifying iterative solvers.
//
// # Fixtures
//
//	mc := cache.New()
//	one := testutil.MustSystemOne(mc, 69, 69, 1)
//	two := testutil.MustSystemTwo(mc, 68, 70, 1, 6)
//
// # Exact Spectra (Ground Truth)
//
//	values := testutil.ExactSpectrum(op)
//	diff := testutil.SpectrumDistance(values, approx)
package testutil
