package state

import "fmt"

// Pair is an ordered two-atom quantum state. Identity is the ordered tuple
// of its constituents; whether (A,B) and (B,A) are treated as one basis
// entry or two is a basis-construction policy, not a property of the state.
type Pair struct {
	first  Single
	second Single
}

// NewPair constructs a pair state from two single-atom states.
func NewPair(first, second Single) Pair {
	return Pair{first: first, second: second}
}

// NewPairFromArrays constructs a pair state from parallel per-atom quantum
// number arrays, index 0 for the first atom and index 1 for the second.
func NewPairFromArrays(species [2]string, n, l [2]int, j, m [2]float64) (Pair, error) {
	first, err := NewSingle(species[0], n[0], l[0], j[0], m[0])
	if err != nil {
		return Pair{}, fmt.Errorf("first atom: %w", err)
	}
	second, err := NewSingle(species[1], n[1], l[1], j[1], m[1])
	if err != nil {
		return Pair{}, fmt.Errorf("second atom: %w", err)
	}
	return Pair{first: first, second: second}, nil
}

// NewPairArtificial constructs a pair of artificial states sharing one label,
// prefixed "0_" and "1_" to keep the two atoms distinguishable.
func NewPairArtificial(label string) (Pair, error) {
	first, err := NewArtificial("0_" + label)
	if err != nil {
		return Pair{}, err
	}
	second, err := NewArtificial("1_" + label)
	if err != nil {
		return Pair{}, err
	}
	return Pair{first: first, second: second}, nil
}

// First returns the state of the first atom.
func (p Pair) First() Single { return p.first }

// Second returns the state of the second atom.
func (p Pair) Second() Single { return p.second }

// Swapped returns the pair with the two atoms exchanged.
func (p Pair) Swapped() Pair { return Pair{first: p.second, second: p.first} }

// Label renders both constituents, for example
// "Rb 69 S_1/2, m=1/2; Rb 69 S_1/2, m=-1/2".
func (p Pair) Label() string {
	return p.first.Label() + "; " + p.second.Label()
}

// String implements fmt.Stringer.
func (p Pair) String() string { return p.Label() }

// ComparePair orders pairs by the first then the second constituent.
func ComparePair(a, b Pair) int {
	if c := Compare(a.first, b.first); c != 0 {
		return c
	}
	return Compare(a.second, b.second)
}
