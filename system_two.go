package pairspec

import (
	"context"
	"errors"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/pairspec/pairspec/atomdata"
	"github.com/pairspec/pairspec/basis"
	"github.com/pairspec/pairspec/cache"
	"github.com/pairspec/pairspec/eigen"
	"github.com/pairspec/pairspec/operator"
	"github.com/pairspec/pairspec/rotate"
	"github.com/pairspec/pairspec/state"
)

// SystemTwo is a two-atom system: the product basis of two built
// single-atom systems, the diagonal pair Hamiltonian and the multipole
// interaction of the pair at a fixed geometry.
//
// The pipeline extends the single-atom one by an interaction stage:
// restrictions, BuildBasis, BuildDiagonal, BuildInteraction, Diagonalize,
// Overlap. Geometry setters may be called at any time; once the
// interaction is built they drop the system back to the diagonal stage, so
// a sweep rebuilds the interaction per geometry while basis and diagonal
// are reused. Methods are not safe for concurrent use.
type SystemTwo struct {
	a, b  *SystemOne
	cache *cache.Cache

	logger       *Logger
	metrics      MetricsCollector
	provider     atomdata.Provider
	diagonalizer eigen.Diagonalizer
	workers      int

	stage        Stage
	restrictions []basis.Restriction

	distance        float64
	angle           float64
	maxMultipole    int
	surfaceEnabled  bool
	surfaceDistance float64
	disabled        bool

	basis       *basis.Pair
	diagonal    *operator.Operator
	interaction *operator.Operator
	total       *operator.Operator
	result      *eigen.Result
}

// NewSystemTwo combines two single-atom systems into a pair system. Both
// constituents must have built their bases; the same system may serve as
// both halves. The pair shares the first system's cache, and its provider
// unless WithProvider overrides it.
func NewSystemTwo(a, b *SystemOne, opts ...Option) (*SystemTwo, error) {
	if a == nil || b == nil {
		return nil, errors.New("pairspec: both single-atom systems must not be nil")
	}
	if a.stage < StageBasisBuilt {
		return nil, notReady("new pair system", a.stage, StageBasisBuilt)
	}
	if b.stage < StageBasisBuilt {
		return nil, notReady("new pair system", b.stage, StageBasisBuilt)
	}
	o := applyOptions(opts...)
	if o.provider == nil {
		o.provider = a.provider
	}
	return &SystemTwo{
		a:            a,
		b:            b,
		cache:        a.cache,
		logger:       o.logger,
		metrics:      o.metrics,
		provider:     o.provider,
		diagonalizer: o.diagonalizer,
		workers:      o.workers,
	}, nil
}

// Stage returns the current lifecycle stage.
func (s *SystemTwo) Stage() Stage { return s.stage }

// RestrictPairEnergy keeps only pair states whose summed unperturbed
// energy lies within [min, max] GHz. Like single-atom restrictions it must
// be staged before the basis is built.
func (s *SystemTwo) RestrictPairEnergy(min, max float64) error {
	if s.stage != StageNew {
		return notReady("restrict pair energy", s.stage, StageNew)
	}
	s.restrictions = append(s.restrictions, basis.PairEnergyRange(min, max))
	return nil
}

// SetDistance sets the interatomic distance in micrometers. Zero disables
// the interaction.
func (s *SystemTwo) SetDistance(um float64) {
	s.distance = um
	s.invalidate()
}

// SetAngle sets the angle in radians between the interatomic axis and the
// quantization axis.
func (s *SystemTwo) SetAngle(rad float64) {
	s.angle = rad
	s.invalidate()
}

// SetMaxMultipole bounds the multipole expansion order, the exponent of
// the leading 1/R^k falloff. Zero selects dipole-dipole.
func (s *SystemTwo) SetMaxMultipole(k int) {
	s.maxMultipole = k
	s.invalidate()
}

// SetSurfaceDistance sets the distance in micrometers from the conducting
// surface plane to the midpoint of the pair.
func (s *SystemTwo) SetSurfaceDistance(um float64) {
	s.surfaceDistance = um
	s.invalidate()
}

// EnableSurfaceInteraction toggles the image interaction of a perfectly
// conducting plane perpendicular to the quantization axis.
func (s *SystemTwo) EnableSurfaceInteraction(on bool) {
	s.surfaceEnabled = on
	s.invalidate()
}

// DisableInteraction switches the interaction off regardless of geometry.
// BuildInteraction then assembles an all-zero operator and the total
// Hamiltonian equals the diagonal.
func (s *SystemTwo) DisableInteraction(off bool) {
	s.disabled = off
	s.invalidate()
}

// invalidate drops the stages that depend on the geometry.
func (s *SystemTwo) invalidate() {
	if s.stage > StageDiagonalBuilt {
		s.stage = StageDiagonalBuilt
		s.interaction = nil
		s.total = nil
		s.result = nil
	}
}

// BuildBasis forms the pair basis as the product of the two single-atom
// bases, filtered by the staged pair restrictions, and freezes it.
func (s *SystemTwo) BuildBasis(ctx context.Context) error {
	start := time.Now()
	pb, err := s.buildBasis(ctx)
	err = translateError(err)
	s.metrics.RecordBasisBuild(pairSize(pb), time.Since(start), err)
	s.logger.LogBuildBasis(ctx, s.pairLabel(), pairSize(pb), err)
	if err != nil {
		return err
	}
	s.basis = pb
	s.stage = StageBasisBuilt
	return nil
}

func (s *SystemTwo) buildBasis(ctx context.Context) (*basis.Pair, error) {
	if s.stage != StageNew {
		return nil, notReady("build pair basis", s.stage, StageNew)
	}
	return basis.BuildPair(ctx, s.a.basis, s.b.basis, s.restrictions...)
}

// BuildDiagonal assembles the diagonal Hamiltonian of summed unperturbed
// pair energies. Rebuilding drops the interaction and any eigenresults.
func (s *SystemTwo) BuildDiagonal() error {
	if s.stage < StageBasisBuilt {
		return notReady("build diagonal", s.stage, StageBasisBuilt)
	}
	s.diagonal = operator.BuildDiagonal(s.basis)
	s.interaction = nil
	s.total = nil
	s.result = nil
	s.stage = StageDiagonalBuilt
	return nil
}

// BuildInteraction validates the configured geometry, assembles the
// multipole interaction over the pair basis and forms the total
// Hamiltonian. An inconsistent geometry fails with a GeometryError before
// any matrix element is touched.
func (s *SystemTwo) BuildInteraction(ctx context.Context) error {
	start := time.Now()
	inter, total, err := s.buildInteraction(ctx)
	err = translateError(err)
	s.metrics.RecordAssemble(s.dim(), time.Since(start), err)
	s.logger.LogAssemble(ctx, s.distance, s.angle, s.dim(), err)
	if err != nil {
		return err
	}
	s.interaction = inter
	s.total = total
	s.result = nil
	s.stage = StageInteractionBuilt
	return nil
}

func (s *SystemTwo) buildInteraction(ctx context.Context) (inter, total *operator.Operator, err error) {
	if s.stage < StageDiagonalBuilt {
		return nil, nil, notReady("build interaction", s.stage, StageDiagonalBuilt)
	}
	var opts []operator.AssembleOption
	if s.workers > 0 {
		opts = append(opts, operator.WithWorkers(s.workers))
	}
	inter, err = operator.AssembleInteraction(ctx, s.basis, s.geometry(), s.cache, s.provider, opts...)
	if err != nil {
		return nil, nil, err
	}
	total, err = operator.Add(operator.KindTotal, s.diagonal, inter)
	if err != nil {
		return nil, nil, err
	}
	return inter, total, nil
}

// geometry collects the staged setters into an operator geometry. A
// disabled interaction maps to the zero-distance geometry.
func (s *SystemTwo) geometry() operator.Geometry {
	if s.disabled {
		return operator.Geometry{}
	}
	return operator.Geometry{
		Distance:        s.distance,
		Angle:           s.angle,
		MaxMultipole:    s.maxMultipole,
		SurfaceEnabled:  s.surfaceEnabled,
		SurfaceDistance: s.surfaceDistance,
	}
}

// Diagonalize solves the eigenproblem of the total Hamiltonian. tol bounds
// the acceptable residual per eigenpair for iterative solvers; the dense
// default is exact and ignores it.
func (s *SystemTwo) Diagonalize(ctx context.Context, tol float64) error {
	start := time.Now()
	res, err := s.diagonalizeTotal(ctx, tol)
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

func (s *SystemTwo) diagonalizeTotal(ctx context.Context, tol float64) (*eigen.Result, error) {
	if s.stage < StageInteractionBuilt {
		return nil, notReady("diagonalize", s.stage, StageInteractionBuilt)
	}
	return s.diagonalizer.Diagonalize(ctx, s.total, tol)
}

// Overlap projects every eigenvector onto the reference pair state as seen
// from a frame rotated by the zyz Euler angles, returning one weight per
// eigenpair in eigenvalue order.
func (s *SystemTwo) Overlap(ref state.Pair, alpha, beta, gamma float64) ([]float64, error) {
	start := time.Now()
	w, err := s.overlapWeights(ref, alpha, beta, gamma, false)
	err = translateError(err)
	s.metrics.RecordOverlap(len(w), time.Since(start), err)
	s.logger.LogOverlap(ref.Label(), len(w), err)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// OverlapSublevels sums Overlap weights over every magnetic sublevel
// combination of the reference fine-structure levels. The magnetic
// quantum numbers carried by ref are ignored.
func (s *SystemTwo) OverlapSublevels(ref state.Pair, alpha, beta, gamma float64) ([]float64, error) {
	start := time.Now()
	w, err := s.overlapWeights(ref, alpha, beta, gamma, true)
	err = translateError(err)
	s.metrics.RecordOverlap(len(w), time.Since(start), err)
	s.logger.LogOverlap(ref.Label(), len(w), err)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *SystemTwo) overlapWeights(ref state.Pair, alpha, beta, gamma float64, sublevels bool) ([]float64, error) {
	if s.stage < StageDiagonalized {
		return nil, notReady("overlap", s.stage, StageDiagonalized)
	}
	if sublevels {
		return rotate.OverlapSublevels(s.result, s.basis, ref, alpha, beta, gamma)
	}
	return rotate.Overlap(s.result, s.basis, ref, alpha, beta, gamma)
}

// Basis returns the frozen pair basis.
func (s *SystemTwo) Basis() (*basis.Pair, error) {
	if s.stage < StageBasisBuilt {
		return nil, notReady("basis", s.stage, StageBasisBuilt)
	}
	return s.basis, nil
}

// Hamiltonian returns the most complete Hamiltonian built so far: the
// total operator once the interaction is assembled, the bare diagonal
// before that.
func (s *SystemTwo) Hamiltonian() (*operator.Operator, error) {
	switch {
	case s.stage >= StageInteractionBuilt:
		return s.total, nil
	case s.stage >= StageDiagonalBuilt:
		return s.diagonal, nil
	default:
		return nil, notReady("hamiltonian", s.stage, StageDiagonalBuilt)
	}
}

// Interaction returns the assembled interaction operator for the current
// geometry.
func (s *SystemTwo) Interaction() (*operator.Operator, error) {
	if s.stage < StageInteractionBuilt {
		return nil, notReady("interaction", s.stage, StageInteractionBuilt)
	}
	return s.interaction, nil
}

// Eigenvalues returns the ascending eigenvalues of the last Diagonalize
// call. The slice is shared with the system and must not be modified.
func (s *SystemTwo) Eigenvalues() ([]float64, error) {
	if s.stage < StageDiagonalized {
		return nil, notReady("eigenvalues", s.stage, StageDiagonalized)
	}
	return s.result.Values, nil
}

// Eigenvectors returns the eigenvector matrix of the last Diagonalize
// call, one column per eigenvalue, rows ordered like the pair basis.
func (s *SystemTwo) Eigenvectors() (*mat.Dense, error) {
	if s.stage < StageDiagonalized {
		return nil, notReady("eigenvectors", s.stage, StageDiagonalized)
	}
	return s.result.Vectors, nil
}

func (s *SystemTwo) dim() int {
	if s.diagonal == nil {
		return 0
	}
	return s.diagonal.Dim()
}

func (s *SystemTwo) pairLabel() string {
	return s.a.species + "+" + s.b.species
}

func pairSize(b *basis.Pair) int {
	if b == nil {
		return 0
	}
	return b.Size()
}
