package eigen

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/pairspec/pairspec/operator"
)

func TestLanczosMatchesDenseLowest(t *testing.T) {
	b := buildPairBasis(t)
	op := buildTotalOperator(t, b, 4.0)

	dense, err := Dense{}.Diagonalize(context.Background(), op, 0)
	require.NoError(t, err)

	res, err := NewLanczos(WithCount(5)).Diagonalize(context.Background(), op, 1e-8)
	require.NoError(t, err)
	require.Equal(t, 5, res.Len())
	assert.True(t, sort.Float64sAreSorted(res.Values))

	for i, lambda := range res.Values {
		assert.InDelta(t, dense.Values[i], lambda, 1e-6)
		assert.Less(t, eigenResidual(op, lambda, res.Vectors.ColView(i)), 1e-7)
	}

	// Each computed vector lies in the span of the matching part of the
	// dense eigenbasis. Individual vectors are compared through the span
	// because degenerate pairs mix freely.
	for i, lambda := range res.Values {
		var inSpan float64
		for k, dv := range dense.Values {
			if math.Abs(dv-lambda) < 1e-4 {
				d := mat.Dot(res.Vectors.ColView(i), dense.Vectors.ColView(k))
				inSpan += d * d
			}
		}
		assert.InDelta(t, 1.0, inSpan, 1e-6)
	}
}

func TestLanczosFindsDegenerateCopies(t *testing.T) {
	// The bare pair energies carry only six distinct values over the 64
	// entries, so the lowest six eigenvalues repeat. A single Krylov pass
	// surfaces each value once; the restarts must dig out the copies.
	b := buildPairBasis(t)
	op := operator.BuildDiagonal(b)

	dense, err := Dense{}.Diagonalize(context.Background(), op, 0)
	require.NoError(t, err)

	res, err := NewLanczos(WithCount(6), WithKrylovDim(12)).Diagonalize(context.Background(), op, 1e-8)
	require.NoError(t, err)
	require.Equal(t, 6, res.Len())
	for i, lambda := range res.Values {
		assert.InDelta(t, dense.Values[i], lambda, 1e-7)
	}
	assert.InDelta(t, res.Values[0], res.Values[3], 1e-7)
}

func TestLanczosTarget(t *testing.T) {
	b := buildPairBasis(t)
	op := buildTotalOperator(t, b, 4.0)

	dense, err := Dense{}.Diagonalize(context.Background(), op, 0)
	require.NoError(t, err)
	target := dense.Values[20] + 1e-3

	const count = 4
	res, err := NewLanczos(WithCount(count), WithTarget(target)).Diagonalize(context.Background(), op, 1e-8)
	require.NoError(t, err)
	require.Equal(t, count, res.Len())
	assert.True(t, sort.Float64sAreSorted(res.Values))

	dists := make([]float64, len(dense.Values))
	for k, dv := range dense.Values {
		dists[k] = math.Abs(dv - target)
	}
	sort.Float64s(dists)
	bound := dists[count-1]

	for i, lambda := range res.Values {
		assert.Less(t, eigenResidual(op, lambda, res.Vectors.ColView(i)), 1e-7)

		// Every returned value is a true eigenvalue no farther from the
		// target than the count-th nearest one.
		nearest := math.Inf(1)
		for _, dv := range dense.Values {
			nearest = math.Min(nearest, math.Abs(dv-lambda))
		}
		assert.Less(t, nearest, 1e-6)
		assert.LessOrEqual(t, math.Abs(lambda-target), bound+1e-5)
	}

	// Every eigenvalue strictly inside the distance bound was found.
	for _, dv := range dense.Values {
		if math.Abs(dv-target) >= bound-1e-5 {
			continue
		}
		found := false
		for _, lambda := range res.Values {
			if math.Abs(dv-lambda) < 1e-6 {
				found = true
				break
			}
		}
		assert.True(t, found, "eigenvalue %g near target %g missing", dv, target)
	}
}

func TestLanczosCountClampedToDimension(t *testing.T) {
	b := buildPairBasis(t)
	op := operator.BuildDiagonal(b)

	dense, err := Dense{}.Diagonalize(context.Background(), op, 0)
	require.NoError(t, err)

	res, err := NewLanczos(WithCount(500)).Diagonalize(context.Background(), op, 1e-8)
	require.NoError(t, err)
	require.Equal(t, 64, res.Len())
	for i, lambda := range res.Values {
		assert.InDelta(t, dense.Values[i], lambda, 1e-7)
	}
}

func TestLanczosEmptyOperator(t *testing.T) {
	op := buildEmptyOperator(t)

	res, err := NewLanczos().Diagonalize(context.Background(), op, 1e-8)
	require.NoError(t, err)
	assert.Zero(t, res.Len())
}

func TestLanczosConvergenceFailure(t *testing.T) {
	b := buildPairBasis(t)
	op := buildTotalOperator(t, b, 4.0)

	// No residual can reach 1e-300, so the restart budget runs out.
	res, err := NewLanczos(WithCount(2), WithMaxRestarts(3)).Diagonalize(context.Background(), op, 1e-300)
	require.Error(t, err)
	assert.Nil(t, res)

	var conv *ErrConvergence
	require.ErrorAs(t, err, &conv)
	assert.Equal(t, 3, conv.Iterations)
	assert.Equal(t, 1e-300, conv.Tolerance)
	assert.Greater(t, conv.Residual, 0.0)
	assert.False(t, math.IsInf(conv.Residual, 1))
}

func TestLanczosDeterministic(t *testing.T) {
	b := buildPairBasis(t)
	op := buildTotalOperator(t, b, 4.0)

	first, err := NewLanczos(WithCount(4)).Diagonalize(context.Background(), op, 1e-8)
	require.NoError(t, err)
	second, err := NewLanczos(WithCount(4)).Diagonalize(context.Background(), op, 1e-8)
	require.NoError(t, err)

	assert.Equal(t, first.Values, second.Values)
	assert.True(t, mat.Equal(first.Vectors, second.Vectors))
}

func TestLanczosCanceledContext(t *testing.T) {
	b := buildPairBasis(t)
	op := operator.BuildDiagonal(b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewLanczos().Diagonalize(ctx, op, 1e-8)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}
