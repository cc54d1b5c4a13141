package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairspec/pairspec/cache"
)

func TestMustSystemOne(t *testing.T) {
	mc := cache.New()
	defer mc.Close()

	sys := MustSystemOne(mc, 69, 69, 1)
	b, err := sys.Basis()
	require.NoError(t, err)
	assert.Equal(t, 8, b.Size())
}

func TestMustSystemTwoExactSpectrum(t *testing.T) {
	mc := cache.New()
	defer mc.Close()

	two := MustSystemTwo(mc, 69, 69, 1, 6)
	require.NoError(t, two.BuildInteraction(context.Background()))

	h, err := two.Hamiltonian()
	require.NoError(t, err)

	values := ExactSpectrum(h)
	require.Len(t, values, 64)
	for i := 1; i < len(values); i++ {
		assert.LessOrEqual(t, values[i-1], values[i])
	}
	assert.Zero(t, SpectrumDistance(values, values))
}
