package basis

import (
	"errors"
	"fmt"
	"math"
)

// ErrPairRestriction is returned by BuildPair for restrictions that only
// make sense on a single-atom basis.
var ErrPairRestriction = errors.New("basis: restriction not applicable to a pair basis")

// ErrWindowRequired reports a missing enumeration window. The basis over
// (n, l, j, m) is unbounded until both the n and l windows are given.
type ErrWindowRequired struct {
	Window string
}

func (e *ErrWindowRequired) Error() string {
	return fmt.Sprintf("basis: %s window required before the basis can be built", e.Window)
}

type restrictionKind uint8

const (
	restrictEnergy restrictionKind = iota + 1
	restrictN
	restrictL
	restrictJ
	restrictM
	restrictPairEnergy
)

func (k restrictionKind) String() string {
	switch k {
	case restrictEnergy:
		return "energy"
	case restrictN:
		return "n"
	case restrictL:
		return "l"
	case restrictJ:
		return "j"
	case restrictM:
		return "m"
	case restrictPairEnergy:
		return "pair energy"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Restriction is one half-open constraint on basis enumeration. Restrictions
// compose conjunctively: a state survives only if it satisfies all of them.
type Restriction struct {
	kind     restrictionKind
	min, max float64
}

// EnergyRange keeps states with unperturbed energy in [min, max] GHz. On a
// pair basis it constrains the pair energy.
func EnergyRange(min, max float64) Restriction {
	return Restriction{kind: restrictEnergy, min: min, max: max}
}

// NRange keeps states with principal quantum number in [min, max].
func NRange(min, max int) Restriction {
	return Restriction{kind: restrictN, min: float64(min), max: float64(max)}
}

// LRange keeps states with orbital quantum number in [min, max].
func LRange(min, max int) Restriction {
	return Restriction{kind: restrictL, min: float64(min), max: float64(max)}
}

// JRange keeps states with total angular momentum in [min, max].
func JRange(min, max float64) Restriction {
	return Restriction{kind: restrictJ, min: min, max: max}
}

// MRange keeps states with magnetic quantum number in [min, max].
func MRange(min, max float64) Restriction {
	return Restriction{kind: restrictM, min: min, max: max}
}

// PairEnergyRange keeps pair states whose summed unperturbed energy lies in
// [min, max] GHz. Only meaningful for BuildPair.
func PairEnergyRange(min, max float64) Restriction {
	return Restriction{kind: restrictPairEnergy, min: min, max: max}
}

func (r Restriction) String() string {
	return fmt.Sprintf("%s in [%g, %g]", r.kind, r.min, r.max)
}

// span is the intersection of all windows of one kind.
type span struct {
	min, max float64
}

func (s *span) contains(x float64) bool {
	return s == nil || (x >= s.min-1e-9 && x <= s.max+1e-9)
}

func (s *span) intersect(min, max float64) *span {
	if s == nil {
		return &span{min: min, max: max}
	}
	return &span{min: math.Max(s.min, min), max: math.Min(s.max, max)}
}

// windows is the digested form of a restriction list.
type windows struct {
	energy     *span
	n          *span
	l          *span
	j          *span
	m          *span
	pairEnergy *span
}

func digestRestrictions(restrictions []Restriction) windows {
	var w windows
	for _, r := range restrictions {
		switch r.kind {
		case restrictEnergy:
			w.energy = w.energy.intersect(r.min, r.max)
		case restrictN:
			w.n = w.n.intersect(r.min, r.max)
		case restrictL:
			w.l = w.l.intersect(r.min, r.max)
		case restrictJ:
			w.j = w.j.intersect(r.min, r.max)
		case restrictM:
			w.m = w.m.intersect(r.min, r.max)
		case restrictPairEnergy:
			w.pairEnergy = w.pairEnergy.intersect(r.min, r.max)
		}
	}
	return w
}
