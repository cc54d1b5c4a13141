package basis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairspec/pairspec/state"
)

func buildRbBasis(t *testing.T, restrictions ...Restriction) *Single {
	t.Helper()
	b, err := BuildSingle(context.Background(), rbSeed(), provider, restrictions...)
	require.NoError(t, err)
	return b
}

func TestBuildPairProduct(t *testing.T) {
	ctx := context.Background()
	// Two sublevels per atom: 69s_1/2 with m = -1/2, +1/2.
	single := buildRbBasis(t, NRange(69, 69), LRange(0, 0))
	require.Equal(t, 2, single.Size())

	p, err := BuildPair(ctx, single, single)
	require.NoError(t, err)

	assert.Equal(t, 4, p.Size())

	// Ordered pairs: both (0,1) and (1,0) appear.
	k01, ok := p.Index(0, 1)
	require.True(t, ok)
	k10, ok := p.Index(1, 0)
	require.True(t, ok)
	assert.NotEqual(t, k01, k10)
}

func TestBuildPairEnergies(t *testing.T) {
	ctx := context.Background()
	single := buildRbBasis(t, NRange(68, 70), LRange(0, 1))

	p, err := BuildPair(ctx, single, single)
	require.NoError(t, err)
	require.Equal(t, single.Size()*single.Size(), p.Size())

	for k := 0; k < p.Size(); k++ {
		ai, bi := p.At(k)
		assert.InDelta(t, single.Energy(ai)+single.Energy(bi), p.Energy(k), 1e-9)
	}
	for k := 1; k < p.Size(); k++ {
		assert.LessOrEqual(t, p.Energy(k-1), p.Energy(k))
	}
}

func TestBuildPairEnergyPruning(t *testing.T) {
	ctx := context.Background()
	single := buildRbBasis(t, NRange(69, 69), LRange(0, 1))

	sEnergy, err := provider.Energy("Rb", 69, 0, 0.5)
	require.NoError(t, err)

	// Keep only s+s pairs: both constituents at the s level energy.
	p, err := BuildPair(ctx, single, single,
		PairEnergyRange(2*sEnergy-0.1, 2*sEnergy+0.1))
	require.NoError(t, err)

	assert.Equal(t, 4, p.Size())
	for k := 0; k < p.Size(); k++ {
		ps := p.State(k)
		assert.Equal(t, 0, ps.First().L())
		assert.Equal(t, 0, ps.Second().L())
	}
}

func TestBuildPairEmptyIsValid(t *testing.T) {
	ctx := context.Background()
	single := buildRbBasis(t, NRange(69, 69), LRange(0, 0))

	p, err := BuildPair(ctx, single, single, PairEnergyRange(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, p.Size())
}

func TestBuildPairRejectsSingleRestrictions(t *testing.T) {
	ctx := context.Background()
	single := buildRbBasis(t, NRange(69, 69), LRange(0, 0))

	_, err := BuildPair(ctx, single, single, NRange(69, 69))
	assert.ErrorIs(t, err, ErrPairRestriction)
}

func TestBuildPairIndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	single := buildRbBasis(t, NRange(69, 70), LRange(0, 1))

	p, err := BuildPair(ctx, single, single)
	require.NoError(t, err)

	for k := 0; k < p.Size(); k++ {
		ai, bi := p.At(k)
		got, ok := p.Index(ai, bi)
		require.True(t, ok)
		assert.Equal(t, k, got)

		got, ok = p.StateIndex(p.State(k))
		require.True(t, ok)
		assert.Equal(t, k, got)
	}

	_, ok := p.Index(single.Size(), 0)
	assert.False(t, ok)
}

func TestBuildPairHeteronuclear(t *testing.T) {
	ctx := context.Background()
	rb := buildRbBasis(t, NRange(69, 69), LRange(0, 0))

	csSeed := state.MustSingle("Cs", 60, 0, 0.5, 0.5)
	cs, err := BuildSingle(ctx, csSeed, provider, NRange(60, 60), LRange(0, 0))
	require.NoError(t, err)

	p, err := BuildPair(ctx, rb, cs)
	require.NoError(t, err)
	assert.Equal(t, rb.Size()*cs.Size(), p.Size())

	ps := p.State(0)
	assert.Equal(t, "Rb", ps.First().Species())
	assert.Equal(t, "Cs", ps.Second().Species())
}

func TestBuildPairCanceledContext(t *testing.T) {
	single := buildRbBasis(t, NRange(69, 69), LRange(0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildPair(ctx, single, single)
	assert.ErrorIs(t, err, context.Canceled)
}
