package testutil

import (
	"context"
	"math"

	"github.com/pairspec/pairspec"
	"github.com/pairspec/pairspec/cache"
	"github.com/pairspec/pairspec/eigen"
	"github.com/pairspec/pairspec/operator"
	"github.com/pairspec/pairspec/state"
)

// Seed returns the reference single-atom state every fixture is built
// around.
func Seed() state.Single {
	return state.MustSingle("Rb", 69, 0, 0.5, 0.5)
}

// SeedPair returns the unrotated reference pair of two seed states.
func SeedPair() state.Pair {
	return state.NewPair(Seed(), Seed())
}

// MustSystemOne builds a rubidium system over the given n and l windows
// with its basis frozen. It panics on error; fixtures are for tests only.
func MustSystemOne(mc *cache.Cache, minN, maxN, maxL int, opts ...pairspec.Option) *pairspec.SystemOne {
	sys, err := pairspec.NewSystemOne("Rb", mc, opts...)
	if err != nil {
		panic(err)
	}
	must(sys.RestrictN(minN, maxN))
	must(sys.RestrictL(0, maxL))
	must(sys.BuildBasis(context.Background(), Seed()))
	return sys
}

// MustSystemTwo builds a pair system through its diagonal stage, sharing
// one single-atom system for both halves, with the given interatomic
// distance staged for the next BuildInteraction.
func MustSystemTwo(mc *cache.Cache, minN, maxN, maxL int, distanceUm float64, opts ...pairspec.Option) *pairspec.SystemTwo {
	one := MustSystemOne(mc, minN, maxN, maxL)
	two, err := pairspec.NewSystemTwo(one, one, opts...)
	if err != nil {
		panic(err)
	}
	must(two.BuildBasis(context.Background()))
	must(two.BuildDiagonal())
	two.SetDistance(distanceUm)
	return two
}

// ExactSpectrum computes the full spectrum of an operator with the dense
// solver, as ground truth for iterative methods.
func ExactSpectrum(op *operator.Operator) []float64 {
	res, err := eigen.Dense{}.Diagonalize(context.Background(), op, 0)
	if err != nil {
		panic(err)
	}
	return res.Values
}

// SpectrumDistance returns the largest absolute difference between
// corresponding entries. The slices must have equal length.
func SpectrumDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("testutil: spectra differ in length")
	}
	maxDiff := 0.0
	for i := range a {
		maxDiff = math.Max(maxDiff, math.Abs(a[i]-b[i]))
	}
	return maxDiff
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
