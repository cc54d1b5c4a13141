package operator

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/pairspec/pairspec/atomdata"
	"github.com/pairspec/pairspec/basis"
	"github.com/pairspec/pairspec/cache"
)

// AssembleOption customizes interaction assembly.
type AssembleOption func(*assembleConfig)

type assembleConfig struct {
	workers int
}

// WithWorkers bounds the number of concurrent assembly workers. The default
// is GOMAXPROCS.
func WithWorkers(n int) AssembleOption {
	return func(c *assembleConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// triplet is one accumulated contribution to the upper triangle. Workers
// collect triplets privately and the merge into the matrix happens on one
// goroutine afterwards.
type triplet struct {
	i, k int
	v    float64
}

type rowBlock struct {
	lo, hi int
}

func rowBlocks(n, workers int) []rowBlock {
	size := (n + workers - 1) / workers
	if size < 1 {
		size = 1
	}
	var out []rowBlock
	for lo := 0; lo < n; lo += size {
		out = append(out, rowBlock{lo: lo, hi: min(lo+size, n)})
	}
	return out
}

// termComponents collects the distinct tensor components each atom needs.
func termComponents(terms []coupling) (a, b []kq) {
	seenA := make(map[kq]bool)
	seenB := make(map[kq]bool)
	for _, t := range terms {
		ka := kq{kappa: t.k1, q: t.q1}
		if !seenA[ka] {
			seenA[ka] = true
			a = append(a, ka)
		}
		kb := kq{kappa: t.k2, q: t.q2}
		if !seenB[kb] {
			seenB[kb] = true
			b = append(b, kb)
		}
	}
	return a, b
}

func unionKQ(a, b []kq) []kq {
	seen := make(map[kq]bool, len(a))
	out := append([]kq(nil), a...)
	for _, c := range a {
		seen[c] = true
	}
	for _, c := range b {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// AssembleInteraction builds the pair interaction operator for the given
// geometry. Radial matrix elements are read through mc and computed by
// provider on a miss, so a warm cache makes reassembly at a new distance
// or angle cheap. The geometry is validated before any work starts; a
// disabled interaction yields the zero operator.
//
// Assembly happens in two phases. First the single-atom elements of every
// needed tensor component are evaluated over each atom's basis, walking
// only the (l, j) posting lists the selection rules allow. Then the pair
// matrix is filled row by row from products of those per-atom elements,
// in parallel over row blocks.
func AssembleInteraction(ctx context.Context, b *basis.Pair, geom Geometry, mc *cache.Cache, provider atomdata.Provider, opts ...AssembleOption) (*Operator, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	cfg := assembleConfig{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	n := b.Size()
	op := &Operator{kind: KindInteraction, dim: n}
	if n == 0 {
		return op, nil
	}
	op.m = mat.NewSymDense(n, nil)
	terms := couplings(geom)
	if len(terms) == 0 {
		return op, nil
	}

	kqsA, kqsB := termComponents(terms)
	shared := b.A() == b.B()
	if shared {
		kqsA = unionKQ(kqsA, kqsB)
	}
	elemsA, err := buildAtomElements(ctx, b.A(), kqsA, mc, provider, cfg.workers)
	if err != nil {
		return nil, err
	}
	elemsB := elemsA
	if !shared {
		elemsB, err = buildAtomElements(ctx, b.B(), kqsB, mc, provider, cfg.workers)
		if err != nil {
			return nil, err
		}
	}

	blocks := rowBlocks(n, cfg.workers)
	results := make([][]triplet, len(blocks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for w, blk := range blocks {
		g.Go(func() error {
			var local []triplet
			for i := blk.lo; i < blk.hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				ra, rb := b.At(i)
				for _, t := range terms {
					ea := elemsA[kq{kappa: t.k1, q: t.q1}][ra]
					if len(ea) == 0 {
						continue
					}
					eb := elemsB[kq{kappa: t.k2, q: t.q2}][rb]
					for _, pa := range ea {
						for _, pb := range eb {
							k, ok := b.Index(pa.to, pb.to)
							if !ok || k < i {
								continue
							}
							local = append(local, triplet{i: i, k: k, v: t.coeff * pa.val * pb.val})
						}
					}
				}
			}
			results[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, local := range results {
		for _, tr := range local {
			op.m.SetSym(tr.i, tr.k, op.m.At(tr.i, tr.k)+tr.v)
		}
	}
	return op, nil
}
