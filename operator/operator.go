// Package operator assembles Hamiltonian matrices over frozen bases: the
// diagonal of unperturbed energies and, for pair bases, the
// geometry-dependent multipole interaction.
//
// Matrices are real and symmetric. Interaction geometries keep the
// interatomic axis in the xz-plane, which makes every coupling coefficient
// real, so operators live in a *mat.SymDense throughout.
package operator

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Kind tags what an operator contains.
type Kind uint8

const (
	// KindDiagonal is the diagonal of unperturbed energies.
	KindDiagonal Kind = iota + 1
	// KindInteraction is the geometry-dependent pair interaction.
	KindInteraction
	// KindTotal is the sum of diagonal and interaction.
	KindTotal
)

func (k Kind) String() string {
	switch k {
	case KindDiagonal:
		return "diagonal"
	case KindInteraction:
		return "interaction"
	case KindTotal:
		return "total"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Levels is the slice of a basis the diagonal builder needs. Both
// *basis.Single and *basis.Pair satisfy it.
type Levels interface {
	Size() int
	Energy(i int) float64
}

// Operator is a real symmetric matrix over a frozen basis, in GHz. A zero
// dimension is valid and represents the operator over an empty basis.
type Operator struct {
	kind Kind
	dim  int
	m    *mat.SymDense // nil when dim == 0
}

// BuildDiagonal builds the diagonal operator of unperturbed energies. It is
// cheap and needs no geometry or matrix element data.
func BuildDiagonal(levels Levels) *Operator {
	n := levels.Size()
	op := &Operator{kind: KindDiagonal, dim: n}
	if n == 0 {
		return op
	}
	op.m = mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		op.m.SetSym(i, i, levels.Energy(i))
	}
	return op
}

// Add returns the element-wise sum of a and b as a new operator of the
// given kind.
func Add(kind Kind, a, b *Operator) (*Operator, error) {
	if a.dim != b.dim {
		return nil, fmt.Errorf("operator: dimension mismatch, %d != %d", a.dim, b.dim)
	}
	out := &Operator{kind: kind, dim: a.dim}
	if a.dim == 0 {
		return out, nil
	}
	out.m = mat.NewSymDense(a.dim, nil)
	out.m.AddSym(a.m, b.m)
	return out, nil
}

// Kind returns what the operator contains.
func (o *Operator) Kind() Kind { return o.kind }

// Dim returns the basis dimension.
func (o *Operator) Dim() int { return o.dim }

// At returns the matrix element in GHz at row i, column k. It panics
// outside [0, Dim).
func (o *Operator) At(i, k int) float64 { return o.m.At(i, k) }

// Raw exposes the backing matrix for solvers. It is nil for a
// zero-dimensional operator and must not be modified.
func (o *Operator) Raw() *mat.SymDense { return o.m }
