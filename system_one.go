package pairspec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/pairspec/pairspec/atomdata"
	"github.com/pairspec/pairspec/basis"
	"github.com/pairspec/pairspec/cache"
	"github.com/pairspec/pairspec/eigen"
	"github.com/pairspec/pairspec/operator"
	"github.com/pairspec/pairspec/state"
)

// SystemOne is a single-atom system: the fine-structure basis of one
// species together with the diagonal Hamiltonian of its unperturbed level
// energies.
//
// A SystemOne walks a fixed pipeline. Restrictions are staged first, then
// BuildBasis enumerates the basis, BuildDiagonal assembles the Hamiltonian
// and Diagonalize solves it. Calling an operation before its stage fails
// with a NotReadyError. Methods are not safe for concurrent use; share the
// cache between systems instead of sharing a system between goroutines.
type SystemOne struct {
	species string
	cache   *cache.Cache

	logger       *Logger
	metrics      MetricsCollector
	provider     atomdata.Provider
	diagonalizer eigen.Diagonalizer
	workers      int

	stage        Stage
	restrictions []basis.Restriction

	basis    *basis.Single
	diagonal *operator.Operator
	result   *eigen.Result
}

// NewSystemOne creates a single-atom system for the given species. The
// cache backs the radial matrix element lookups of any pair system derived
// from it and must not be nil.
func NewSystemOne(species string, mc *cache.Cache, opts ...Option) (*SystemOne, error) {
	if mc == nil {
		return nil, errors.New("pairspec: cache must not be nil")
	}
	o := applyOptions(opts...)
	if o.provider == nil {
		if !atomdata.Known(species) {
			return nil, &InvalidStateError{Label: species, Reason: "unknown species"}
		}
		o.provider = atomdata.NewCached(mc, atomdata.NewAlkali())
	}
	return &SystemOne{
		species:      species,
		cache:        mc,
		logger:       o.logger,
		metrics:      o.metrics,
		provider:     o.provider,
		diagonalizer: o.diagonalizer,
		workers:      o.workers,
	}, nil
}

// Species returns the species the system was created for.
func (s *SystemOne) Species() string { return s.species }

// Stage returns the current lifecycle stage.
func (s *SystemOne) Stage() Stage { return s.stage }

// RestrictEnergy keeps only states whose unperturbed energy lies within
// [min, max] GHz. Restrictions accumulate and apply to the next BuildBasis
// call; they cannot be changed once the basis is built.
func (s *SystemOne) RestrictEnergy(min, max float64) error {
	return s.restrict("restrict energy", basis.EnergyRange(min, max))
}

// RestrictN keeps only states with principal quantum number in [min, max].
// The n window, together with the l window, bounds the enumeration and is
// required before BuildBasis.
func (s *SystemOne) RestrictN(min, max int) error {
	return s.restrict("restrict n", basis.NRange(min, max))
}

// RestrictL keeps only states with orbital angular momentum in [min, max].
func (s *SystemOne) RestrictL(min, max int) error {
	return s.restrict("restrict l", basis.LRange(min, max))
}

// RestrictJ keeps only states with total angular momentum in [min, max].
func (s *SystemOne) RestrictJ(min, max float64) error {
	return s.restrict("restrict j", basis.JRange(min, max))
}

// RestrictM keeps only states with magnetic quantum number in [min, max].
func (s *SystemOne) RestrictM(min, max float64) error {
	return s.restrict("restrict m", basis.MRange(min, max))
}

func (s *SystemOne) restrict(op string, r basis.Restriction) error {
	if s.stage != StageNew {
		return notReady(op, s.stage, StageNew)
	}
	s.restrictions = append(s.restrictions, r)
	return nil
}

// BuildBasis enumerates the basis around the seed state under every staged
// restriction and freezes it. The seed species must match the system.
func (s *SystemOne) BuildBasis(ctx context.Context, seed state.Single) error {
	start := time.Now()
	b, err := s.buildBasis(ctx, seed)
	err = translateError(err)
	s.metrics.RecordBasisBuild(singleSize(b), time.Since(start), err)
	s.logger.LogBuildBasis(ctx, s.species, singleSize(b), err)
	if err != nil {
		return err
	}
	s.basis = b
	s.stage = StageBasisBuilt
	return nil
}

func (s *SystemOne) buildBasis(ctx context.Context, seed state.Single) (*basis.Single, error) {
	if s.stage != StageNew {
		return nil, notReady("build basis", s.stage, StageNew)
	}
	if seed.Species() != s.species {
		return nil, &InvalidStateError{
			Label:  seed.Label(),
			Reason: fmt.Sprintf("seed species does not match system species %s", s.species),
		}
	}
	return basis.BuildSingle(ctx, seed, s.provider, s.restrictions...)
}

// BuildDiagonal assembles the diagonal Hamiltonian of unperturbed level
// energies over the built basis. Rebuilding drops any eigenresults.
func (s *SystemOne) BuildDiagonal() error {
	if s.stage < StageBasisBuilt {
		return notReady("build diagonal", s.stage, StageBasisBuilt)
	}
	s.diagonal = operator.BuildDiagonal(s.basis)
	s.result = nil
	s.stage = StageDiagonalBuilt
	return nil
}

// Diagonalize solves the eigenproblem of the diagonal Hamiltonian. tol
// bounds the acceptable residual per eigenpair for iterative solvers; the
// dense default is exact and ignores it.
func (s *SystemOne) Diagonalize(ctx context.Context, tol float64) error {
	start := time.Now()
	res, err := s.diagonalize(ctx, tol)
	err = translateError(err)
	s.metrics.RecordDiagonalize(s.dim(), time.Since(start), err)
	s.logger.LogDiagonalize(ctx, s.dim(), resultLen(res), err)
	if err != nil {
		return err
	}
	s.result = res
	s.stage = StageDiagonalized
	return nil
}

func (s *SystemOne) diagonalize(ctx context.Context, tol float64) (*eigen.Result, error) {
	if s.stage < StageDiagonalBuilt {
		return nil, notReady("diagonalize", s.stage, StageDiagonalBuilt)
	}
	return s.diagonalizer.Diagonalize(ctx, s.diagonal, tol)
}

// Basis returns the frozen basis.
func (s *SystemOne) Basis() (*basis.Single, error) {
	if s.stage < StageBasisBuilt {
		return nil, notReady("basis", s.stage, StageBasisBuilt)
	}
	return s.basis, nil
}

// Hamiltonian returns the diagonal Hamiltonian.
func (s *SystemOne) Hamiltonian() (*operator.Operator, error) {
	if s.stage < StageDiagonalBuilt {
		return nil, notReady("hamiltonian", s.stage, StageDiagonalBuilt)
	}
	return s.diagonal, nil
}

// Eigenvalues returns the ascending eigenvalues of the last Diagonalize
// call. The slice is shared with the system and must not be modified.
func (s *SystemOne) Eigenvalues() ([]float64, error) {
	if s.stage < StageDiagonalized {
		return nil, notReady("eigenvalues", s.stage, StageDiagonalized)
	}
	return s.result.Values, nil
}

// Eigenvectors returns the eigenvector matrix of the last Diagonalize
// call, one column per eigenvalue, rows ordered like the basis.
func (s *SystemOne) Eigenvectors() (*mat.Dense, error) {
	if s.stage < StageDiagonalized {
		return nil, notReady("eigenvectors", s.stage, StageDiagonalized)
	}
	return s.result.Vectors, nil
}

func (s *SystemOne) dim() int {
	if s.diagonal == nil {
		return 0
	}
	return s.diagonal.Dim()
}

func singleSize(b *basis.Single) int {
	if b == nil {
		return 0
	}
	return b.Size()
}

func resultLen(r *eigen.Result) int {
	if r == nil {
		return 0
	}
	return r.Len()
}
