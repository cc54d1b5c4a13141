package atomdata

import (
	"context"

	"github.com/pairspec/pairspec/cache"
	"github.com/pairspec/pairspec/state"
)

// Cached wraps a Provider and routes level energies through a matrix
// element cache, so with a durable store attached they survive the process
// like radial elements do. Radial elements pass through unchanged; the
// operator layer fetches those through the cache itself. Lookups use a
// background context.
type Cached struct {
	mc    *cache.Cache
	inner Provider
}

// NewCached returns a cache-backed wrapper around p.
func NewCached(mc *cache.Cache, p Provider) *Cached {
	return &Cached{mc: mc, inner: p}
}

// Energy implements Provider.
func (c *Cached) Energy(species string, n, l int, j float64) (float64, error) {
	key := cache.EnergyKey(species, state.Orbital{N: n, L: l, J: j})
	return c.mc.GetOrCompute(context.Background(), key, func(context.Context) (float64, error) {
		return c.inner.Energy(species, n, l, j)
	})
}

// RadialMatrixElement implements Provider.
func (c *Cached) RadialMatrixElement(species string, kappa int, a, b state.Orbital) (float64, error) {
	return c.inner.RadialMatrixElement(species, kappa, a, b)
}
