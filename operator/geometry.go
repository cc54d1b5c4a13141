package operator

import (
	"fmt"
	"math"
)

// DipoleDipole is the lowest interaction order, 1/R^3. Higher orders add
// dipole-quadrupole (4), quadrupole-quadrupole and dipole-octupole (5) and
// so on, each order k contributing terms that fall off as 1/R^k.
const DipoleDipole = 3

// ErrGeometry reports a physically inconsistent spatial configuration. It is
// returned before any matrix assembly starts, never from inside the
// assembly loop.
type ErrGeometry struct {
	Distance        float64
	Angle           float64
	SurfaceDistance float64
	Reason          string
}

func (e *ErrGeometry) Error() string {
	return fmt.Sprintf("operator: %s (distance %g um, angle %g rad, surface distance %g um)",
		e.Reason, e.Distance, e.Angle, e.SurfaceDistance)
}

// Geometry fixes the spatial configuration of an atom pair.
//
// Distance is the interatomic distance in micrometers. Zero or +Inf disables
// the interaction entirely: the assembled interaction operator is zero and
// the pair Hamiltonian reduces to its diagonal.
//
// Angle is the angle in radians between the interatomic axis and the
// quantization axis; the axis lies in the xz-plane, which keeps every
// coupling coefficient real.
//
// MaxMultipole bounds the expansion order (the exponent k of the leading
// 1/R^k falloff); zero means DipoleDipole. Orders beyond DipoleDipole are
// only available on the symmetry axis (Angle == 0) and without the surface
// term.
//
// SurfaceEnabled adds the image interaction of a perfectly conducting plane
// perpendicular to the quantization axis. SurfaceDistance is the distance in
// micrometers from the plane to the midpoint of the pair; both atoms must
// stay above the plane.
type Geometry struct {
	Distance        float64
	Angle           float64
	SurfaceDistance float64
	SurfaceEnabled  bool
	MaxMultipole    int
}

// Enabled reports whether the geometry produces an interaction at all.
func (g Geometry) Enabled() bool {
	return g.Distance > 0 && !math.IsInf(g.Distance, 1)
}

func (g Geometry) order() int {
	if g.MaxMultipole == 0 {
		return DipoleDipole
	}
	return g.MaxMultipole
}

func (g Geometry) fail(reason string) error {
	return &ErrGeometry{
		Distance:        g.Distance,
		Angle:           g.Angle,
		SurfaceDistance: g.SurfaceDistance,
		Reason:          reason,
	}
}

// Validate checks the configuration for physical consistency. Assembly
// refuses to start on an invalid geometry.
func (g Geometry) Validate() error {
	if g.Distance < 0 || math.IsNaN(g.Distance) {
		return g.fail("interatomic distance must not be negative")
	}
	if math.IsNaN(g.Angle) {
		return g.fail("interatomic angle must be a number")
	}
	if g.MaxMultipole != 0 && g.MaxMultipole < DipoleDipole {
		return g.fail("multipole order is below dipole-dipole")
	}
	if !g.Enabled() {
		return nil
	}
	if g.order() > DipoleDipole && g.Angle != 0 {
		return g.fail("multipole orders beyond dipole-dipole require a zero angle")
	}
	if g.SurfaceEnabled {
		if g.order() > DipoleDipole {
			return g.fail("the surface term supports dipole-dipole only")
		}
		if g.SurfaceDistance <= 0 || math.IsNaN(g.SurfaceDistance) {
			return g.fail("surface distance must be positive")
		}
		// The atoms sit at SurfaceDistance +- Distance*cos(Angle)/2 above
		// the plane. The lower one must not cross it.
		if g.SurfaceDistance < g.Distance*math.Abs(math.Cos(g.Angle))/2 {
			return g.fail("atom below the surface plane")
		}
	}
	return nil
}
