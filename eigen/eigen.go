// Package eigen diagonalizes assembled operators. Dense is the exact
// reference solver for small bases; Lanczos trades exactness for
// tractability on large ones and targets a fixed number of eigenpairs,
// optionally nearest a given energy.
//
// Eigenvalues come back sorted ascending with eigenvector columns in basis
// ordering. Degenerate eigenvalues are not disambiguated: ties are broken
// arbitrarily by the solver, and downstream overlap analysis has to
// tolerate that.
package eigen

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/pairspec/pairspec/operator"
)

// ErrConvergence reports an iterative solve that exhausted its restart
// budget before meeting the tolerance. Partial spectra are never returned.
type ErrConvergence struct {
	Iterations int
	Residual   float64
	Tolerance  float64
}

func (e *ErrConvergence) Error() string {
	if e.Iterations == 0 {
		return "eigen: factorization did not converge"
	}
	return fmt.Sprintf("eigen: no convergence within %d restarts (residual %.3g above tolerance %.3g)",
		e.Iterations, e.Residual, e.Tolerance)
}

// Result holds a diagonalization outcome. Values are ascending; column k of
// Vectors is the eigenvector of Values[k], expressed over the basis the
// operator was assembled in. Both are nil for an empty operator.
type Result struct {
	Values  []float64
	Vectors *mat.Dense
}

// Len returns the number of eigenpairs.
func (r *Result) Len() int { return len(r.Values) }

// Diagonalizer solves the symmetric eigenproblem of an operator. tol bounds
// the acceptable 2-norm residual |A x - lambda x| per returned pair;
// solvers that are exact to machine precision ignore it.
type Diagonalizer interface {
	Diagonalize(ctx context.Context, op *operator.Operator, tol float64) (*Result, error)
}

// Dense is the full symmetric eigensolver. It computes the complete
// spectrum to machine precision and ignores tol.
type Dense struct{}

var _ Diagonalizer = Dense{}

// Diagonalize implements Diagonalizer.
func (Dense) Diagonalize(ctx context.Context, op *operator.Operator, _ float64) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if op.Dim() == 0 {
		return &Result{}, nil
	}
	var es mat.EigenSym
	if !es.Factorize(op.Raw(), true) {
		return nil, &ErrConvergence{}
	}
	var vectors mat.Dense
	es.VectorsTo(&vectors)
	return &Result{Values: es.Values(nil), Vectors: &vectors}, nil
}
