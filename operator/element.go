package operator

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/pairspec/pairspec/atomdata"
	"github.com/pairspec/pairspec/basis"
	"github.com/pairspec/pairspec/cache"
	"github.com/pairspec/pairspec/state"
	"github.com/pairspec/pairspec/wigner"
)

// kq identifies one spherical tensor component r^kappa C^kappa_q.
type kq struct {
	kappa int
	q     int
}

// partner is one selection-rule-allowed coupling out of a single-atom basis
// state: the target index within the same basis and the full matrix element
// value, radial times angular.
type partner struct {
	to  int
	val float64
}

// atomElements holds, per tensor component and per basis row, the couplings
// of that row within its single-atom basis.
type atomElements map[kq][][]partner

const elementBlock = 32

// buildAtomElements computes the single-atom matrix elements for every
// requested tensor component over the whole basis. Radial integrals go
// through the matrix element cache, so concurrent workers and later
// assemblies share them.
func buildAtomElements(ctx context.Context, b *basis.Single, kqs []kq, mc *cache.Cache, provider atomdata.Provider, workers int) (atomElements, error) {
	out := make(atomElements, len(kqs))
	for _, c := range kqs {
		out[c] = make([][]partner, b.Size())
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < b.Size(); lo += elementBlock {
		hi := min(lo+elementBlock, b.Size())
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				bra := b.State(i)
				for _, c := range kqs {
					ps, err := rowPartners(ctx, b, bra, c, mc, provider)
					if err != nil {
						return err
					}
					out[c][i] = ps
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// rowPartners walks the (l, j) posting lists the selection rules allow for
// one bra state and one tensor component and evaluates the surviving
// elements.
func rowPartners(ctx context.Context, b *basis.Single, bra state.Single, c kq, mc *cache.Cache, provider atomdata.Provider) ([]partner, error) {
	var out []partner
	for lk := bra.L() - c.kappa; lk <= bra.L()+c.kappa; lk++ {
		// Parity: l + l' + kappa must be even.
		if lk < 0 || (bra.L()+lk+c.kappa)%2 != 0 {
			continue
		}
		for _, jk := range [2]float64{float64(lk) - state.Spin, float64(lk) + state.Spin} {
			if jk < 0 || !wigner.Triangle(bra.J(), float64(c.kappa), jk) {
				continue
			}
			pl := b.Postings(lk, jk)
			if pl == nil {
				continue
			}
			mk := bra.M() - float64(c.q)
			it := pl.Iterator()
			for it.HasNext() {
				idx := int(it.Next())
				ket := b.State(idx)
				if math.Abs(ket.M()-mk) > 1e-9 {
					continue
				}
				ang := angular(bra, c.kappa, c.q, ket)
				if ang == 0 {
					continue
				}
				rad, err := radialElement(ctx, b.Species(), c.kappa, bra, ket, mc, provider)
				if err != nil {
					return nil, err
				}
				if rad == 0 {
					continue
				}
				out = append(out, partner{to: idx, val: rad * ang})
			}
		}
	}
	return out, nil
}

// radialElement fetches <bra| r^kappa |ket> through the cache, computing and
// inserting it on a miss.
func radialElement(ctx context.Context, species string, kappa int, bra, ket state.Single, mc *cache.Cache, provider atomdata.Provider) (float64, error) {
	key := cache.RadialKey(species, kappa, bra.Orbital(), ket.Orbital())
	return mc.GetOrCompute(ctx, key, func(context.Context) (float64, error) {
		return provider.RadialMatrixElement(species, kappa, bra.Orbital(), ket.Orbital())
	})
}

// angular returns the angular factor of <bra| r^kappa C^kappa_q |ket> for
// fine-structure states, the full matrix element divided by the radial
// integral. The spin is a spectator: the tensor acts on the orbital part
// and the reduced element is recoupled through j.
func angular(bra state.Single, kappa, q int, ket state.Single) float64 {
	w3m := wigner.ThreeJ(bra.J(), float64(kappa), ket.J(), -bra.M(), float64(q), ket.M())
	if w3m == 0 {
		return 0
	}
	w3l := wigner.ThreeJ(float64(bra.L()), float64(kappa), float64(ket.L()), 0, 0, 0)
	if w3l == 0 {
		return 0
	}
	w6 := wigner.SixJ(float64(bra.L()), bra.J(), state.Spin, ket.J(), float64(ket.L()), float64(kappa))
	if w6 == 0 {
		return 0
	}
	norm := math.Sqrt((2*bra.J() + 1) * (2*ket.J() + 1) * float64((2*bra.L()+1)*(2*ket.L()+1)))
	return phase(bra.J()-bra.M()+ket.J()+state.Spin+float64(kappa)) * w3m * w3l * w6 * norm
}

// phase is (-1)^x for integer-valued x.
func phase(x float64) float64 {
	if int(math.Round(x))%2 == 0 {
		return 1
	}
	return -1
}
