// Package atomdata supplies atomic species data: unperturbed level energies
// from modified Rydberg-Ritz quantum defects and radial matrix elements from
// Numerov integration of the radial equation.
//
// The Provider interface is the seam for plugging in external data sources;
// Alkali is the built-in implementation covering the common alkali species.
package atomdata

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pairspec/pairspec/state"
)

// ErrUnknownSpecies is returned when a species has no tabulated data.
var ErrUnknownSpecies = errors.New("atomdata: unknown species")

// Provider supplies per-species level energies and radial matrix elements.
// Implementations must be pure: the same arguments always yield the same
// values. Memoization is the caller's concern (see Memo).
type Provider interface {
	// Energy returns the unperturbed level energy in GHz for the
	// fine-structure level (n, l, j).
	Energy(species string, n, l int, j float64) (float64, error)

	// RadialMatrixElement returns <a| r^kappa |b> in units of the Bohr
	// radius to the power kappa. It is symmetric in a and b.
	RadialMatrixElement(species string, kappa int, a, b state.Orbital) (float64, error)
}

// StateEnergy returns the unperturbed energy of a single-atom state in GHz.
// Artificial states have zero energy.
func StateEnergy(p Provider, s state.Single) (float64, error) {
	if s.IsArtificial() {
		return 0, nil
	}
	return p.Energy(s.Species(), s.N(), s.L(), s.J())
}

// PairEnergy returns the summed unperturbed energy of a pair state in GHz.
func PairEnergy(p Provider, pr state.Pair) (float64, error) {
	first, err := StateEnergy(p, pr.First())
	if err != nil {
		return 0, fmt.Errorf("first atom: %w", err)
	}
	second, err := StateEnergy(p, pr.Second())
	if err != nil {
		return 0, fmt.Errorf("second atom: %w", err)
	}
	return first + second, nil
}

type energyKey struct {
	species string
	n, l    int
	j       float64
}

type radialKey struct {
	species string
	kappa   int
	a, b    state.Orbital
}

// Memo wraps a Provider with concurrency-safe memoization of every lookup.
// Safe for use from multiple goroutines.
type Memo struct {
	inner Provider

	mu       sync.RWMutex
	energies map[energyKey]float64
	radials  map[radialKey]float64
}

// NewMemo returns a memoizing wrapper around p.
func NewMemo(p Provider) *Memo {
	return &Memo{
		inner:    p,
		energies: make(map[energyKey]float64),
		radials:  make(map[radialKey]float64),
	}
}

// Energy implements Provider.
func (m *Memo) Energy(species string, n, l int, j float64) (float64, error) {
	key := energyKey{species: species, n: n, l: l, j: j}

	m.mu.RLock()
	v, ok := m.energies[key]
	m.mu.RUnlock()
	if ok {
		return v, nil
	}

	v, err := m.inner.Energy(species, n, l, j)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.energies[key] = v
	m.mu.Unlock()
	return v, nil
}

// RadialMatrixElement implements Provider. The (a, b) order is canonicalized
// before lookup, exploiting the symmetry of the element.
func (m *Memo) RadialMatrixElement(species string, kappa int, a, b state.Orbital) (float64, error) {
	if b.Less(a) {
		a, b = b, a
	}
	key := radialKey{species: species, kappa: kappa, a: a, b: b}

	m.mu.RLock()
	v, ok := m.radials[key]
	m.mu.RUnlock()
	if ok {
		return v, nil
	}

	v, err := m.inner.RadialMatrixElement(species, kappa, a, b)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.radials[key] = v
	m.mu.Unlock()
	return v, nil
}
