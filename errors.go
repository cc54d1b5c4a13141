package pairspec

import (
	"context"
	"errors"
	"fmt"

	"github.com/pairspec/pairspec/basis"
	"github.com/pairspec/pairspec/cache"
	"github.com/pairspec/pairspec/eigen"
	"github.com/pairspec/pairspec/operator"
	"github.com/pairspec/pairspec/rotate"
	"github.com/pairspec/pairspec/state"
)

// Sentinel errors for the public taxonomy. Every error returned by a System
// matches exactly one of these under errors.Is; the concrete types below
// carry the details.
var (
	// ErrInvalidState reports a malformed quantum state or an unusable
	// system configuration.
	ErrInvalidState = errors.New("invalid state")

	// ErrGeometry reports a physically inconsistent spatial configuration.
	ErrGeometry = errors.New("invalid geometry")

	// ErrNotReady reports an operation invoked outside its lifecycle stage.
	ErrNotReady = errors.New("not ready")

	// ErrConvergence reports a diagonalization that missed its tolerance
	// within the allowed attempts.
	ErrConvergence = errors.New("no convergence")

	// ErrCacheIO reports an unusable matrix element cache.
	ErrCacheIO = errors.New("cache unavailable")
)

// InvalidStateError is returned when a quantum state cannot serve its role,
// for example a seed of the wrong species, a reference state missing from
// the basis, or a basis request without the required windows.
type InvalidStateError struct {
	// Label names the offending state, if there is one.
	Label string
	// Reason says what is wrong with it.
	Reason string

	cause error
}

func (e *InvalidStateError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("pairspec: invalid state: %s", e.Reason)
	}
	return fmt.Sprintf("pairspec: invalid state %s: %s", e.Label, e.Reason)
}

func (e *InvalidStateError) Unwrap() error { return e.cause }

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// GeometryError is returned before any assembly starts when the configured
// geometry is physically inconsistent, for example a surface plane that
// would cut through one of the atoms.
type GeometryError struct {
	Distance        float64
	Angle           float64
	SurfaceDistance float64
	Reason          string

	cause error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("pairspec: %s (distance %g um, angle %g rad, surface distance %g um)",
		e.Reason, e.Distance, e.Angle, e.SurfaceDistance)
}

func (e *GeometryError) Unwrap() error { return e.cause }

func (e *GeometryError) Is(target error) bool { return target == ErrGeometry }

// NotReadyError is returned when an operation runs outside the stage the
// pipeline requires, either before its inputs exist or, for restrictions,
// after the basis is already built.
type NotReadyError struct {
	// Operation is the rejected call.
	Operation string
	// Stage is where the system currently stands.
	Stage Stage
	// Required is the stage the operation needs.
	Required Stage
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("pairspec: %s requires stage %q, system is at %q",
		e.Operation, e.Required, e.Stage)
}

func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }

func notReady(op string, at, required Stage) error {
	return &NotReadyError{Operation: op, Stage: at, Required: required}
}

// ConvergenceError is returned by Diagonalize when the iterative solver
// exhausts its restart budget above the tolerance. The basis and operators
// stay intact, so the call can be retried with a looser tolerance.
type ConvergenceError struct {
	Iterations int
	Residual   float64
	Tolerance  float64

	cause error
}

func (e *ConvergenceError) Error() string {
	if e.Iterations == 0 {
		return "pairspec: diagonalization did not converge"
	}
	return fmt.Sprintf("pairspec: diagonalization did not converge within %d restarts (residual %.3g above tolerance %.3g)",
		e.Iterations, e.Residual, e.Tolerance)
}

func (e *ConvergenceError) Unwrap() error { return e.cause }

func (e *ConvergenceError) Is(target error) bool { return target == ErrConvergence }

// CacheIOError is returned when the matrix element cache cannot serve
// lookups at all. Failures of individual persistent tiers are recovered
// inside the cache and never reach this level.
type CacheIOError struct {
	Op string

	cause error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("pairspec: cache unavailable during %s", e.Op)
}

func (e *CacheIOError) Unwrap() error { return e.cause }

func (e *CacheIOError) Is(target error) bool { return target == ErrCacheIO }

// translateError maps errors from the inner packages onto the public
// taxonomy. Context cancellation passes through untouched so callers can
// keep testing against context.Canceled and context.DeadlineExceeded.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var geomErr *operator.ErrGeometry
	if errors.As(err, &geomErr) {
		return &GeometryError{
			Distance:        geomErr.Distance,
			Angle:           geomErr.Angle,
			SurfaceDistance: geomErr.SurfaceDistance,
			Reason:          geomErr.Reason,
			cause:           err,
		}
	}

	var convErr *eigen.ErrConvergence
	if errors.As(err, &convErr) {
		return &ConvergenceError{
			Iterations: convErr.Iterations,
			Residual:   convErr.Residual,
			Tolerance:  convErr.Tolerance,
			cause:      err,
		}
	}

	var stateErr *state.ErrInvalidState
	if errors.As(err, &stateErr) {
		return &InvalidStateError{Label: stateErr.Label, Reason: stateErr.Reason, cause: err}
	}

	var windowErr *basis.ErrWindowRequired
	if errors.As(err, &windowErr) {
		return &InvalidStateError{
			Reason: fmt.Sprintf("%s window required before the basis can be built", windowErr.Window),
			cause:  err,
		}
	}

	if errors.Is(err, rotate.ErrNotInBasis) {
		return &InvalidStateError{Reason: "reference pair state not in the basis", cause: err}
	}

	if errors.Is(err, cache.ErrClosed) {
		return &CacheIOError{Op: "matrix element lookup", cause: err}
	}

	return err
}
