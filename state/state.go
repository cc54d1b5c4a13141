// Package state defines the identity model for single-atom and pair-atom
// quantum states. States are immutable value types, comparable with ==, and
// usable directly as map keys.
//
// Quantum numbers follow the usual alkali conventions: principal quantum
// number n, orbital angular momentum l, total angular momentum j and its
// projection m, with the electron spin fixed at s = 1/2.
package state

import (
	"fmt"
	"math"
)

// Spin is the electron spin carried by every non-artificial state.
const Spin = 0.5

// ErrInvalidState indicates physically inconsistent quantum numbers.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidState struct {
	Label  string
	Reason string
	cause  error
}

func (e *ErrInvalidState) Error() string {
	return fmt.Sprintf("invalid state %q: %s", e.Label, e.Reason)
}

func (e *ErrInvalidState) Unwrap() error { return e.cause }

// Orbital identifies a fine-structure level (n, l, j) without the magnetic
// quantum number. It is the key granularity for cached radial quantities,
// which do not depend on m.
type Orbital struct {
	N int
	L int
	J float64
}

// String renders the orbital in spectroscopic notation, e.g. "69 S_1/2".
func (o Orbital) String() string {
	return fmt.Sprintf("%d %s_%s", o.N, OrbitalLetter(o.L), fraction(o.J))
}

// Less orders orbitals by (n, l, j).
func (o Orbital) Less(other Orbital) bool {
	if o.N != other.N {
		return o.N < other.N
	}
	if o.L != other.L {
		return o.L < other.L
	}
	return o.J < other.J
}

// Single is a single-atom quantum state. The zero value is not valid; use
// NewSingle or NewArtificial.
type Single struct {
	species    string
	n          int
	l          int
	j          float64
	m          float64
	s          float64
	artificial bool
}

// NewSingle constructs a single-atom state from a species identifier and
// quantum numbers, validating their mutual consistency. The spin is fixed
// at 1/2.
func NewSingle(species string, n, l int, j, m float64) (Single, error) {
	st := Single{species: species, n: n, l: l, j: j, m: m, s: Spin}
	if err := st.validate(); err != nil {
		return Single{}, err
	}
	return st, nil
}

// MustSingle is like NewSingle but panics on invalid quantum numbers.
// Intended for tests and compile-time-known states.
func MustSingle(species string, n, l int, j, m float64) Single {
	st, err := NewSingle(species, n, l, j, m)
	if err != nil {
		panic(err)
	}
	return st
}

// NewArtificial constructs a placeholder state carrying only a label. Its
// quantum numbers are all zero and its unperturbed energy is zero. Artificial
// states take part in basis bookkeeping but never couple to anything.
func NewArtificial(label string) (Single, error) {
	if label == "" {
		return Single{}, &ErrInvalidState{Label: label, Reason: "artificial state requires a non-empty label"}
	}
	return Single{species: label, artificial: true}, nil
}

func (s Single) validate() error {
	if s.species == "" {
		return &ErrInvalidState{Label: s.Label(), Reason: "species must not be empty"}
	}
	if s.n < 1 {
		return &ErrInvalidState{Label: s.Label(), Reason: fmt.Sprintf("n must be >= 1, got %d", s.n)}
	}
	if s.l < 0 || s.l > s.n-1 {
		return &ErrInvalidState{Label: s.Label(), Reason: fmt.Sprintf("l must satisfy 0 <= l <= n-1, got l=%d n=%d", s.l, s.n)}
	}
	if !isHalfStep(s.j) {
		return &ErrInvalidState{Label: s.Label(), Reason: fmt.Sprintf("j must be integer or half-integer, got %v", s.j)}
	}
	lo := math.Abs(float64(s.l) - s.s)
	hi := float64(s.l) + s.s
	if s.j < lo-1e-9 || s.j > hi+1e-9 || !isInteger(s.j-lo) {
		return &ErrInvalidState{Label: s.Label(), Reason: fmt.Sprintf("j must lie in |l-s|..l+s in integer steps, got j=%v l=%d", s.j, s.l)}
	}
	if !isHalfStep(s.m) {
		return &ErrInvalidState{Label: s.Label(), Reason: fmt.Sprintf("m must be integer or half-integer, got %v", s.m)}
	}
	if math.Abs(s.m) > s.j+1e-9 {
		return &ErrInvalidState{Label: s.Label(), Reason: fmt.Sprintf("|m| must not exceed j, got m=%v j=%v", s.m, s.j)}
	}
	if !isInteger(s.j - s.m) {
		return &ErrInvalidState{Label: s.Label(), Reason: fmt.Sprintf("j-m must be integral, got j=%v m=%v", s.j, s.m)}
	}
	return nil
}

// Species returns the species identifier (or the label for artificial states).
func (s Single) Species() string { return s.species }

// N returns the principal quantum number.
func (s Single) N() int { return s.n }

// L returns the orbital angular momentum quantum number.
func (s Single) L() int { return s.l }

// J returns the total angular momentum quantum number.
func (s Single) J() float64 { return s.j }

// M returns the magnetic quantum number.
func (s Single) M() float64 { return s.m }

// S returns the spin quantum number.
func (s Single) S() float64 { return s.s }

// IsArtificial reports whether the state is a label-only placeholder.
func (s Single) IsArtificial() bool { return s.artificial }

// Orbital returns the (n, l, j) triple of the state.
func (s Single) Orbital() Orbital { return Orbital{N: s.n, L: s.l, J: s.j} }

// WithM returns a copy of the state with the magnetic quantum number
// replaced. Returns an error when |m| > j or j-m is not integral.
func (s Single) WithM(m float64) (Single, error) {
	if s.artificial {
		return Single{}, &ErrInvalidState{Label: s.Label(), Reason: "artificial states have no magnetic sublevels"}
	}
	return NewSingle(s.species, s.n, s.l, s.j, m)
}

// Compare orders states by (species, n, l, j, m). It ignores energies; the
// basis package orders by energy and uses Compare only to break ties
// deterministically.
func Compare(a, b Single) int {
	if a.species != b.species {
		if a.species < b.species {
			return -1
		}
		return 1
	}
	if a.n != b.n {
		return a.n - b.n
	}
	if a.l != b.l {
		return a.l - b.l
	}
	if a.j != b.j {
		if a.j < b.j {
			return -1
		}
		return 1
	}
	if a.m != b.m {
		if a.m < b.m {
			return -1
		}
		return 1
	}
	return 0
}

func isHalfStep(x float64) bool {
	return math.Abs(2*x-math.Round(2*x)) < 1e-9
}

func isInteger(x float64) bool {
	return math.Abs(x-math.Round(x)) < 1e-9
}
