package pairspec

import "fmt"

// Stage tracks how far a System has progressed through its build pipeline.
// Stages only move forward through the build calls; changing the geometry
// of a SystemTwo is the one transition backwards, from InteractionBuilt or
// Diagonalized down to DiagonalBuilt.
type Stage uint8

const (
	// StageNew is a freshly constructed system; restrictions are staged
	// here and nothing is built yet.
	StageNew Stage = iota

	// StageBasisBuilt means the basis is enumerated and frozen.
	StageBasisBuilt

	// StageDiagonalBuilt means the diagonal Hamiltonian of unperturbed
	// energies exists over the basis.
	StageDiagonalBuilt

	// StageInteractionBuilt means the interaction operator and the total
	// Hamiltonian exist for the current geometry. SystemOne skips this
	// stage.
	StageInteractionBuilt

	// StageDiagonalized means eigenvalues and eigenvectors of the latest
	// Hamiltonian are available.
	StageDiagonalized
)

func (s Stage) String() string {
	switch s {
	case StageNew:
		return "new"
	case StageBasisBuilt:
		return "basis built"
	case StageDiagonalBuilt:
		return "diagonal built"
	case StageInteractionBuilt:
		return "interaction built"
	case StageDiagonalized:
		return "diagonalized"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}
