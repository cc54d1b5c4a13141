package atomdata

import (
	"fmt"

	"github.com/pairspec/pairspec/state"
)

// Alkali is the built-in Provider for the tabulated alkali species (and
// hydrogen). Energies come from the modified Rydberg-Ritz quantum defect
// series with mass-corrected Rydberg constants; radial matrix elements come
// from Numerov integration of the quantum defect wavefunctions.
//
// The zero value is ready to use and safe for concurrent use.
type Alkali struct{}

// NewAlkali returns the built-in alkali data provider. Wrap it in a Memo
// when the same states are queried repeatedly.
func NewAlkali() Alkali { return Alkali{} }

// Energy implements Provider. The returned energy is negative and
// approaches zero for high Rydberg states.
func (Alkali) Energy(speciesName string, n, l int, j float64) (float64, error) {
	data, ok := speciesTable[speciesName]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSpecies, speciesName)
	}
	if err := checkLevel(speciesName, n, l, j); err != nil {
		return 0, err
	}
	nu := data.effectiveN(n, l, j)
	return -rydbergGHz(data.massU) / (nu * nu), nil
}

// RadialMatrixElement implements Provider.
func (Alkali) RadialMatrixElement(speciesName string, kappa int, x, y state.Orbital) (float64, error) {
	data, ok := speciesTable[speciesName]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSpecies, speciesName)
	}
	if kappa < 0 {
		return 0, fmt.Errorf("atomdata: multipole order must be non-negative, got %d", kappa)
	}
	if err := checkLevel(speciesName, x.N, x.L, x.J); err != nil {
		return 0, err
	}
	if err := checkLevel(speciesName, y.N, y.L, y.J); err != nil {
		return 0, err
	}
	nu1 := data.effectiveN(x.N, x.L, x.J)
	nu2 := data.effectiveN(y.N, y.L, y.J)
	return radialElement(nu1, x.L, nu2, y.L, kappa), nil
}

func checkLevel(speciesName string, n, l int, j float64) error {
	if n < 1 || l < 0 || l > n-1 {
		return fmt.Errorf("atomdata: invalid level %s n=%d l=%d", speciesName, n, l)
	}
	if j < float64(l)-0.5-1e-9 || j > float64(l)+0.5+1e-9 || j < 0 {
		return fmt.Errorf("atomdata: invalid level %s n=%d l=%d j=%v", speciesName, n, l, j)
	}
	return nil
}
