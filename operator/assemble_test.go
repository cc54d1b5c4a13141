package operator

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/pairspec/pairspec/atomdata"
	"github.com/pairspec/pairspec/basis"
	"github.com/pairspec/pairspec/cache"
	"github.com/pairspec/pairspec/state"
)

var testProvider = atomdata.Alkali{}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c := cache.New()
	t.Cleanup(func() { c.Close() })
	return c
}

func buildSingleBasis(t *testing.T, restrictions ...basis.Restriction) *basis.Single {
	t.Helper()
	seed := state.MustSingle("Rb", 69, 0, 0.5, 0.5)
	b, err := basis.BuildSingle(context.Background(), seed, testProvider, restrictions...)
	require.NoError(t, err)
	return b
}

// buildPairBasis returns the n = 69, l <= 1 rubidium pair basis: 8 single
// states, 64 ordered pairs.
func buildPairBasis(t *testing.T) *basis.Pair {
	t.Helper()
	single := buildSingleBasis(t, basis.NRange(69, 69), basis.LRange(0, 1))
	pair, err := basis.BuildPair(context.Background(), single, single)
	require.NoError(t, err)
	return pair
}

func pairM(b *basis.Pair, k int) float64 {
	ps := b.State(k)
	return ps.First().M() + ps.Second().M()
}

type failingProvider struct{}

func (failingProvider) Energy(string, int, int, float64) (float64, error) {
	return 0, errors.New("provider offline")
}

func (failingProvider) RadialMatrixElement(string, int, state.Orbital, state.Orbital) (float64, error) {
	return 0, errors.New("provider offline")
}

func TestAssembleDisabledIsZero(t *testing.T) {
	b := buildPairBasis(t)
	for _, distance := range []float64{0, math.Inf(1)} {
		op, err := AssembleInteraction(context.Background(), b, Geometry{Distance: distance}, newTestCache(t), testProvider)
		require.NoError(t, err)
		assert.Equal(t, KindInteraction, op.Kind())
		require.Equal(t, b.Size(), op.Dim())
		for i := 0; i < op.Dim(); i++ {
			for k := i; k < op.Dim(); k++ {
				assert.Zero(t, op.At(i, k))
			}
		}
	}
}

func TestAssembleEmptyBasis(t *testing.T) {
	single := buildSingleBasis(t, basis.NRange(69, 69), basis.LRange(0, 1))
	empty, err := basis.BuildPair(context.Background(), single, single, basis.PairEnergyRange(1, 2))
	require.NoError(t, err)
	require.Zero(t, empty.Size())

	op, err := AssembleInteraction(context.Background(), empty, Geometry{Distance: 2}, newTestCache(t), testProvider)
	require.NoError(t, err)
	assert.Zero(t, op.Dim())
	assert.Nil(t, op.Raw())
}

func TestAssembleRejectsBadGeometry(t *testing.T) {
	b := buildPairBasis(t)
	geom := Geometry{Distance: 6, SurfaceEnabled: true, SurfaceDistance: 2}

	op, err := AssembleInteraction(context.Background(), b, geom, newTestCache(t), testProvider)
	require.Nil(t, op)
	var gerr *ErrGeometry
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "atom below the surface plane", gerr.Reason)
}

func TestAssembleOnAxisConservesTotalM(t *testing.T) {
	b := buildPairBasis(t)
	op, err := AssembleInteraction(context.Background(), b, Geometry{Distance: 2}, newTestCache(t), testProvider)
	require.NoError(t, err)

	nonzero := 0
	for i := 0; i < op.Dim(); i++ {
		for k := i; k < op.Dim(); k++ {
			if math.Abs(op.At(i, k)) < 1e-9 {
				continue
			}
			nonzero++
			assert.InDelta(t, pairM(b, i), pairM(b, k), 1e-9,
				"coupling between %s and %s", b.State(i), b.State(k))
		}
	}
	assert.Greater(t, nonzero, 0)
}

func TestAssembleTiltedAxisBreaksTotalM(t *testing.T) {
	b := buildPairBasis(t)
	op, err := AssembleInteraction(context.Background(), b, Geometry{Distance: 2, Angle: math.Pi / 4}, newTestCache(t), testProvider)
	require.NoError(t, err)

	mixed := 0
	for i := 0; i < op.Dim(); i++ {
		for k := i; k < op.Dim(); k++ {
			if math.Abs(op.At(i, k)) > 1e-6 && math.Abs(pairM(b, i)-pairM(b, k)) > 0.5 {
				mixed++
			}
		}
	}
	assert.Greater(t, mixed, 0)
}

func TestAssembleScalesAsInverseCube(t *testing.T) {
	b := buildPairBasis(t)
	mc := newTestCache(t)
	near, err := AssembleInteraction(context.Background(), b, Geometry{Distance: 2, Angle: 0.9}, mc, testProvider)
	require.NoError(t, err)
	far, err := AssembleInteraction(context.Background(), b, Geometry{Distance: 4, Angle: 0.9}, mc, testProvider)
	require.NoError(t, err)

	checked := 0
	for i := 0; i < near.Dim(); i++ {
		for k := i; k < near.Dim(); k++ {
			if math.Abs(far.At(i, k)) < 1e-12 {
				continue
			}
			checked++
			assert.InEpsilon(t, 8*far.At(i, k), near.At(i, k), 1e-9)
		}
	}
	assert.Greater(t, checked, 0)
}

func TestAssembleHigherOrderAddsQuadrupoleCoupling(t *testing.T) {
	b := buildPairBasis(t)
	mc := newTestCache(t)
	p := state.MustSingle("Rb", 69, 1, 1.5, 0.5)
	idx, ok := b.StateIndex(state.NewPair(p, p))
	require.True(t, ok)

	dd, err := AssembleInteraction(context.Background(), b, Geometry{Distance: 0.5}, mc, testProvider)
	require.NoError(t, err)
	full, err := AssembleInteraction(context.Background(), b, Geometry{Distance: 0.5, MaxMultipole: 5}, mc, testProvider)
	require.NoError(t, err)

	// Dipole-dipole cannot couple a state to itself, the quadrupole-
	// quadrupole term can.
	assert.Zero(t, dd.At(idx, idx))
	assert.Greater(t, math.Abs(full.At(idx, idx)), 1e-9)
}

func TestAssembleWarmCacheServesFailingProvider(t *testing.T) {
	b := buildPairBasis(t)
	mc := newTestCache(t)
	geom := Geometry{Distance: 2, Angle: 0.3}

	// 1. Cold assembly computes radial elements through the provider.
	first, err := AssembleInteraction(context.Background(), b, geom, mc, testProvider)
	require.NoError(t, err)
	require.Greater(t, mc.Len(), 0)

	// 2. With the cache warm the provider is never consulted again, even
	// for a different geometry.
	second, err := AssembleInteraction(context.Background(), b, geom, mc, failingProvider{})
	require.NoError(t, err)
	assert.True(t, mat.Equal(first.Raw(), second.Raw()))

	farther, err := AssembleInteraction(context.Background(), b, Geometry{Distance: 3, Angle: 0.3}, mc, failingProvider{})
	require.NoError(t, err)
	assert.Equal(t, b.Size(), farther.Dim())
}

func TestAssembleColdCacheNeedsProvider(t *testing.T) {
	b := buildPairBasis(t)

	_, err := AssembleInteraction(context.Background(), b, Geometry{Distance: 2}, newTestCache(t), failingProvider{})
	require.ErrorContains(t, err, "provider offline")
}

func TestAssembleSurfaceTerm(t *testing.T) {
	b := buildPairBasis(t)
	mc := newTestCache(t)
	free, err := AssembleInteraction(context.Background(), b, Geometry{Distance: 2, Angle: math.Pi / 2}, mc, testProvider)
	require.NoError(t, err)

	// A nearby surface changes the interaction.
	near, err := AssembleInteraction(context.Background(), b, Geometry{
		Distance: 2, Angle: math.Pi / 2,
		SurfaceEnabled: true, SurfaceDistance: 1,
	}, mc, testProvider)
	require.NoError(t, err)
	assert.Greater(t, maxAbsDiff(free, near), 1e-6)

	// A surface far away does not.
	far, err := AssembleInteraction(context.Background(), b, Geometry{
		Distance: 2, Angle: math.Pi / 2,
		SurfaceEnabled: true, SurfaceDistance: 1e6,
	}, mc, testProvider)
	require.NoError(t, err)
	assert.Less(t, maxAbsDiff(free, far), 1e-6)
}

func maxAbsDiff(a, b *Operator) float64 {
	most := 0.0
	for i := 0; i < a.Dim(); i++ {
		for k := i; k < a.Dim(); k++ {
			if d := math.Abs(a.At(i, k) - b.At(i, k)); d > most {
				most = d
			}
		}
	}
	return most
}

func TestAssembleDeterministicAcrossWorkers(t *testing.T) {
	b := buildPairBasis(t)
	mc := newTestCache(t)
	geom := Geometry{Distance: 2, Angle: 0.6}

	serial, err := AssembleInteraction(context.Background(), b, geom, mc, testProvider, WithWorkers(1))
	require.NoError(t, err)
	parallel, err := AssembleInteraction(context.Background(), b, geom, mc, testProvider, WithWorkers(4))
	require.NoError(t, err)

	assert.True(t, mat.Equal(serial.Raw(), parallel.Raw()))
}

func TestAssembleHeteronuclear(t *testing.T) {
	rb := buildSingleBasis(t, basis.NRange(69, 69), basis.LRange(0, 1))
	csSeed := state.MustSingle("Cs", 60, 0, 0.5, 0.5)
	cs, err := basis.BuildSingle(context.Background(), csSeed, testProvider, basis.NRange(60, 60), basis.LRange(0, 1))
	require.NoError(t, err)
	pair, err := basis.BuildPair(context.Background(), rb, cs)
	require.NoError(t, err)

	op, err := AssembleInteraction(context.Background(), pair, Geometry{Distance: 2}, newTestCache(t), testProvider)
	require.NoError(t, err)

	nonzero := 0
	for i := 0; i < op.Dim(); i++ {
		for k := i; k < op.Dim(); k++ {
			if math.Abs(op.At(i, k)) > 1e-9 {
				nonzero++
				assert.InDelta(t, pairM(pair, i), pairM(pair, k), 1e-9)
			}
		}
	}
	assert.Greater(t, nonzero, 0)
}

func TestAssembleCanceledContext(t *testing.T) {
	b := buildPairBasis(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AssembleInteraction(ctx, b, Geometry{Distance: 2}, newTestCache(t), testProvider)
	require.ErrorIs(t, err, context.Canceled)
}
