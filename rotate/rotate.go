// Package rotate computes overlap weights between diagonalization results
// and reference pair states expressed in a rotated quantization frame.
//
// The Euler angles follow the zyz convention and describe a rotation of
// the coordinate frame. A reference state defined on the rotated
// quantization axis is therefore expanded in the unrotated basis through
// the Wigner D matrix at the negated angles. All complex arithmetic stays
// inside this package; only real weights leave it.
package rotate

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/pairspec/pairspec/basis"
	"github.com/pairspec/pairspec/eigen"
	"github.com/pairspec/pairspec/state"
	"github.com/pairspec/pairspec/wigner"
)

// ErrNotInBasis reports a reference state whose magnetic multiplet has no
// member in the basis, which makes every overlap trivially zero and almost
// always means the wrong basis or reference was passed.
var ErrNotInBasis = errors.New("rotate: reference pair state not in basis")

// Overlap returns |<rotated ref | v_k>|^2 for every eigenvector column of
// res, indexed like res.Values. The reference keeps its fixed magnetic
// quantum numbers; multiplet members dropped by the basis restrictions
// simply do not contribute, so the weights over a complete eigenbasis sum
// to at most one.
//
// The result is a pure function of its inputs; neither the basis nor the
// result is mutated.
func Overlap(res *eigen.Result, b *basis.Pair, ref state.Pair, alpha, beta, gamma float64) ([]float64, error) {
	if err := checkArgs(res, b, alpha, beta, gamma); err != nil {
		return nil, err
	}
	if res.Len() == 0 {
		return []float64{}, nil
	}
	amps, err := rotatedReference(b, ref, alpha, beta, gamma)
	if err != nil {
		return nil, err
	}
	return weights(res, amps), nil
}

// OverlapSublevels is Overlap summed over the complete magnetic multiplet
// of both reference atoms. The magnetic quantum numbers carried by ref are
// ignored; only its species and (n, l, j) matter.
func OverlapSublevels(res *eigen.Result, b *basis.Pair, ref state.Pair, alpha, beta, gamma float64) ([]float64, error) {
	if err := checkArgs(res, b, alpha, beta, gamma); err != nil {
		return nil, err
	}
	if res.Len() == 0 {
		return []float64{}, nil
	}
	first, second := ref.First(), ref.Second()
	na := multipletSize(first.J())
	nb := multipletSize(second.J())

	total := make([]float64, res.Len())
	found := false
	for ia := 0; ia < na; ia++ {
		fa, err := first.WithM(-first.J() + float64(ia))
		if err != nil {
			return nil, err
		}
		for ib := 0; ib < nb; ib++ {
			fb, err := second.WithM(-second.J() + float64(ib))
			if err != nil {
				return nil, err
			}
			amps, err := rotatedReference(b, state.NewPair(fa, fb), alpha, beta, gamma)
			if errors.Is(err, ErrNotInBasis) {
				continue
			}
			if err != nil {
				return nil, err
			}
			found = true
			for k, w := range weights(res, amps) {
				total[k] += w
			}
		}
	}
	if !found {
		return nil, ErrNotInBasis
	}
	return total, nil
}

// amplitude is one basis-entry coefficient of the rotated reference vector.
type amplitude struct {
	index int
	c     complex128
}

// rotatedReference expands the reference pair state, quantized along the
// rotated axis, over the unrotated pair basis. The expansion runs over the
// magnetic multiplets of both atoms with one Wigner D factor each, at the
// negated angles.
func rotatedReference(b *basis.Pair, ref state.Pair, alpha, beta, gamma float64) ([]amplitude, error) {
	first, second := ref.First(), ref.Second()
	na := multipletSize(first.J())
	nb := multipletSize(second.J())

	var amps []amplitude
	found := false
	for ia := 0; ia < na; ia++ {
		ma := -first.J() + float64(ia)
		fa, err := first.WithM(ma)
		if err != nil {
			return nil, err
		}
		da := wigner.D(first.J(), ma, first.M(), -alpha, -beta, -gamma)
		for ib := 0; ib < nb; ib++ {
			mb := -second.J() + float64(ib)
			fb, err := second.WithM(mb)
			if err != nil {
				return nil, err
			}
			k, ok := b.StateIndex(state.NewPair(fa, fb))
			if !ok {
				continue
			}
			found = true
			db := wigner.D(second.J(), mb, second.M(), -alpha, -beta, -gamma)
			if c := da * db; c != 0 {
				amps = append(amps, amplitude{index: k, c: c})
			}
		}
	}
	if !found {
		return nil, ErrNotInBasis
	}
	return amps, nil
}

// weights projects every eigenvector column onto the rotated reference.
func weights(res *eigen.Result, amps []amplitude) []float64 {
	out := make([]float64, res.Len())
	for k := range out {
		var dot complex128
		for _, a := range amps {
			dot += cmplx.Conj(a.c) * complex(res.Vectors.At(a.index, k), 0)
		}
		out[k] = real(dot)*real(dot) + imag(dot)*imag(dot)
	}
	return out
}

func multipletSize(j float64) int {
	return int(math.Round(2*j)) + 1
}

func checkArgs(res *eigen.Result, b *basis.Pair, alpha, beta, gamma float64) error {
	for _, a := range [3]float64{alpha, beta, gamma} {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return fmt.Errorf("rotate: euler angles must be finite, got (%g, %g, %g)", alpha, beta, gamma)
		}
	}
	if res.Len() == 0 {
		return nil
	}
	if res.Vectors == nil {
		return errors.New("rotate: result carries no eigenvectors")
	}
	rows, _ := res.Vectors.Dims()
	if rows != b.Size() {
		return fmt.Errorf("rotate: eigenvectors have %d rows, basis has %d states", rows, b.Size())
	}
	return nil
}
