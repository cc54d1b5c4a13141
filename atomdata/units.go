package atomdata

// Physical constants used for unit conversion. Public API values are GHz for
// energies and micrometers for distances; matrix element assembly works in
// Hartree atomic units internally.
const (
	// RydbergInfGHz is the Rydberg constant times c for infinite nuclear
	// mass, in GHz.
	RydbergInfGHz = 3.2898419602500e6

	// HartreeGHz converts Hartree energies to GHz.
	HartreeGHz = 2 * RydbergInfGHz

	// BohrRadiusUm is the Bohr radius in micrometers.
	BohrRadiusUm = 5.29177210544e-5

	// electronMassU is the electron mass in unified atomic mass units.
	electronMassU = 5.48579909065e-4
)

// UmToBohr converts a distance from micrometers to Bohr radii.
func UmToBohr(um float64) float64 { return um / BohrRadiusUm }

// HartreeToGHz converts an energy from Hartree to GHz.
func HartreeToGHz(e float64) float64 { return e * HartreeGHz }

// GHzToHartree converts an energy from GHz to Hartree.
func GHzToHartree(e float64) float64 { return e / HartreeGHz }

// rydbergGHz returns the mass-corrected Rydberg constant in GHz for a
// nucleus of the given mass in unified atomic mass units.
func rydbergGHz(massU float64) float64 {
	return RydbergInfGHz / (1 + electronMassU/massU)
}
