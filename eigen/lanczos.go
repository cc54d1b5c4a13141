package eigen

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/pairspec/pairspec/operator"
)

const (
	defaultCount    = 8
	defaultKrylov   = 64
	defaultRestarts = 50
	breakdownTol    = 1e-14
)

// Lanczos is a restarted Lanczos solver with full reorthogonalization and
// deflation of converged pairs. Without a target it finds the lowest Count
// eigenpairs of the spectrum; with one it folds the spectrum around the
// target energy and finds the Count pairs nearest to it, which needs no
// linear solves, only matrix-vector products.
//
// Degenerate eigenvalues are handled by deflation: each restart works in
// the orthogonal complement of the pairs locked so far, so repeated copies
// of the same eigenvalue are found one restart at a time. The solve only
// finishes once a restart certifies that no eigenvalue preferable to the
// chosen Count remains.
type Lanczos struct {
	count     int
	krylov    int
	restarts  int
	target    float64
	hasTarget bool
}

var _ Diagonalizer = (*Lanczos)(nil)

// LanczosOption configures a Lanczos solver.
type LanczosOption func(*Lanczos)

// WithCount sets how many eigenpairs to compute. It is clamped to the
// operator dimension.
func WithCount(k int) LanczosOption {
	return func(l *Lanczos) {
		if k > 0 {
			l.count = k
		}
	}
}

// WithKrylovDim sets the Krylov subspace dimension built per restart.
func WithKrylovDim(m int) LanczosOption {
	return func(l *Lanczos) {
		if m > 0 {
			l.krylov = m
		}
	}
}

// WithMaxRestarts bounds the restart cycles before the solve is reported
// as not converged.
func WithMaxRestarts(n int) LanczosOption {
	return func(l *Lanczos) {
		if n > 0 {
			l.restarts = n
		}
	}
}

// WithTarget centers the search on an energy in GHz instead of the bottom
// of the spectrum.
func WithTarget(energyGHz float64) LanczosOption {
	return func(l *Lanczos) {
		l.target = energyGHz
		l.hasTarget = true
	}
}

// NewLanczos returns a solver with the given options applied over the
// defaults: 8 pairs, Krylov dimension 64, 50 restarts, no target.
func NewLanczos(opts ...LanczosOption) *Lanczos {
	l := &Lanczos{count: defaultCount, krylov: defaultKrylov, restarts: defaultRestarts}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type eigenpair struct {
	value  float64
	vector *mat.VecDense
}

// Diagonalize implements Diagonalizer. A pair is accepted once its explicit
// residual |A x - lambda x| drops to tol or below; exhausting the restart
// budget before Count pairs are accepted yields an ErrConvergence, never a
// partial result.
func (l *Lanczos) Diagonalize(ctx context.Context, op *operator.Operator, tol float64) (*Result, error) {
	n := op.Dim()
	if n == 0 {
		return &Result{}, nil
	}
	a := op.Raw()
	count := min(l.count, n)
	m := l.krylov
	if m < count+2 {
		m = count + 2
	}
	if m > n {
		m = n
	}
	if tol <= 0 {
		tol = 1e-10
	}

	// Folded spectrum: the top eigenpairs of -(A - t)^2 are the pairs of A
	// nearest the target t.
	scratch := mat.NewVecDense(n, nil)
	apply := func(dst, src *mat.VecDense) {
		if !l.hasTarget {
			dst.MulVec(a, src)
			return
		}
		scratch.MulVec(a, src)
		dst.MulVec(a, scratch)
		dst.AddScaledVec(dst, -2*l.target, scratch)
		dst.AddScaledVec(dst, l.target*l.target, src)
		dst.ScaleVec(-1, dst)
	}

	rng := rand.New(rand.NewSource(1))
	start := mat.NewVecDense(n, nil)
	randomize := func() {
		for i := 0; i < n; i++ {
			start.SetVec(i, rng.NormFloat64())
		}
	}
	randomize()

	var locked []eigenpair
	worst := math.Inf(1)
	for restart := 0; restart < l.restarts; restart++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, alpha, beta := l.process(apply, start, m, locked)
		mEff := len(alpha)
		if mEff == 0 {
			// The locked pairs span everything the start vector reaches.
			// With enough of them the spectrum is exhausted, otherwise try
			// a fresh random direction.
			if len(locked) >= count {
				return l.finish(locked, count, n), nil
			}
			randomize()
			continue
		}
		tri := mat.NewSymDense(mEff, nil)
		for i := 0; i < mEff; i++ {
			tri.SetSym(i, i, alpha[i])
			if i+1 < mEff {
				tri.SetSym(i, i+1, beta[i])
			}
		}
		var es mat.EigenSym
		if !es.Factorize(tri, true) {
			return nil, &ErrConvergence{}
		}
		thetas := es.Values(nil)
		var ritz mat.Dense
		es.VectorsTo(&ritz)

		// Walk the Ritz pairs in preference order, locking converged ones.
		// Once Count pairs are locked the walk keeps going as long as a
		// candidate could still displace one of them, which is how extra
		// copies of a degenerate eigenvalue are picked up.
		progressed := false
		var next *mat.VecDense
		for _, c := range l.candidates(mEff) {
			if thr, full := l.threshold(locked, count); full && l.prefRitz(thetas[c]) >= thr {
				break
			}
			x := mat.NewVecDense(n, nil)
			x.MulVec(v.Slice(0, n, 0, mEff), ritz.ColView(c))
			orthogonalize(x, locked, nil, 0)
			nrm := mat.Norm(x, 2)
			if nrm < breakdownTol {
				continue
			}
			x.ScaleVec(1/nrm, x)
			lambda, res := rayleighResidual(a, x)
			if res <= tol {
				locked = append(locked, eigenpair{value: lambda, vector: x})
				progressed = true
				continue
			}
			worst = res
			next = x
			break
		}
		if _, full := l.threshold(locked, count); full && next == nil && !progressed {
			// A whole deflated restart produced nothing preferable to the
			// chosen pairs, so they are complete.
			return l.finish(locked, count, n), nil
		}
		if next != nil {
			start.CopyVec(next)
		} else {
			randomize()
		}
	}
	return nil, &ErrConvergence{Iterations: l.restarts, Residual: worst, Tolerance: tol}
}

// pref maps an eigenvalue to the quantity being minimized: the value itself
// without a target, the distance to the target with one.
func (l *Lanczos) pref(value float64) float64 {
	if l.hasTarget {
		return math.Abs(value - l.target)
	}
	return value
}

// prefRitz estimates the preference of a Ritz value of the applied
// operator, undoing the spectral fold when a target is set.
func (l *Lanczos) prefRitz(theta float64) float64 {
	if l.hasTarget {
		return math.Sqrt(math.Max(0, -theta))
	}
	return theta
}

// threshold returns the preference of the count-th best locked pair, or
// false while fewer than count pairs are locked.
func (l *Lanczos) threshold(locked []eigenpair, count int) (float64, bool) {
	if len(locked) < count {
		return 0, false
	}
	prefs := make([]float64, len(locked))
	for i, p := range locked {
		prefs[i] = l.pref(p.value)
	}
	sort.Float64s(prefs)
	return prefs[count-1], true
}

// candidates orders the Ritz indices by preference: ascending without a
// target, descending with one since the fold puts the nearest pairs on top.
func (l *Lanczos) candidates(mEff int) []int {
	out := make([]int, mEff)
	for i := range out {
		if l.hasTarget {
			out[i] = mEff - 1 - i
		} else {
			out[i] = i
		}
	}
	return out
}

// process builds a Krylov basis of up to m vectors from start, fully
// reorthogonalized against the locked pairs and all previous basis vectors.
// It returns early on breakdown, which means the reachable invariant
// subspace is exhausted.
func (l *Lanczos) process(apply func(dst, src *mat.VecDense), start *mat.VecDense, m int, locked []eigenpair) (*mat.Dense, []float64, []float64) {
	n := start.Len()
	v := mat.NewDense(n, m, nil)
	var alpha, beta []float64

	cur := mat.NewVecDense(n, nil)
	cur.CopyVec(start)
	orthogonalize(cur, locked, nil, 0)
	orthogonalize(cur, locked, nil, 0)
	nrm := mat.Norm(cur, 2)
	if nrm < breakdownTol {
		return v, nil, nil
	}
	cur.ScaleVec(1/nrm, cur)

	w := mat.NewVecDense(n, nil)
	prev := mat.NewVecDense(n, nil)
	for j := 0; j < m; j++ {
		v.SetCol(j, cur.RawVector().Data)
		apply(w, cur)
		aj := mat.Dot(w, cur)
		alpha = append(alpha, aj)
		w.AddScaledVec(w, -aj, cur)
		if j > 0 {
			w.AddScaledVec(w, -beta[j-1], prev)
		}
		// Two reorthogonalization passes keep the basis orthogonal to
		// machine precision.
		orthogonalize(w, locked, v, j+1)
		orthogonalize(w, locked, v, j+1)
		if j == m-1 {
			break
		}
		bj := mat.Norm(w, 2)
		if bj < breakdownTol {
			break
		}
		beta = append(beta, bj)
		prev.CopyVec(cur)
		cur.ScaleVec(1/bj, w)
	}
	return v, alpha, beta
}

// orthogonalize removes from w its components along the locked vectors and
// the first cols columns of v.
func orthogonalize(w *mat.VecDense, locked []eigenpair, v *mat.Dense, cols int) {
	for i := range locked {
		u := locked[i].vector
		w.AddScaledVec(w, -mat.Dot(w, u), u)
	}
	for i := 0; i < cols; i++ {
		u := v.ColView(i)
		w.AddScaledVec(w, -mat.Dot(w, u), u)
	}
}

// rayleighResidual returns the Rayleigh quotient of a normalized vector and
// the 2-norm of its eigenresidual.
func rayleighResidual(a mat.Symmetric, x *mat.VecDense) (float64, float64) {
	n := x.Len()
	ax := mat.NewVecDense(n, nil)
	ax.MulVec(a, x)
	lambda := mat.Dot(ax, x)
	r := mat.NewVecDense(n, nil)
	r.AddScaledVec(ax, -lambda, x)
	return lambda, mat.Norm(r, 2)
}

// finish keeps the count most preferable locked pairs and returns them in
// ascending eigenvalue order.
func (l *Lanczos) finish(locked []eigenpair, count, n int) *Result {
	sort.SliceStable(locked, func(i, k int) bool { return l.pref(locked[i].value) < l.pref(locked[k].value) })
	kept := locked[:count]
	sort.Slice(kept, func(i, k int) bool { return kept[i].value < kept[k].value })
	values := make([]float64, count)
	vectors := mat.NewDense(n, count, nil)
	for i, p := range kept {
		values[i] = p.value
		vectors.SetCol(i, p.vector.RawVector().Data)
	}
	return &Result{Values: values, Vectors: vectors}
}
