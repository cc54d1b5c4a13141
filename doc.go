// Package pairspec computes pair interaction potentials of Rydberg atoms.
//
// A calculation proceeds through two staged systems. SystemOne enumerates
// the fine-structure basis of a single atom around a seed state and carries
// the diagonal Hamiltonian of its unperturbed level energies. SystemTwo
// forms the product basis of two such systems, assembles the multipole
// interaction of the pair at a fixed geometry, and diagonalizes the total
// Hamiltonian:
//
//	mc := cache.OpenLocal(dir)
//	defer mc.Close()
//
//	one, err := pairspec.NewSystemOne("Rb", mc)
//	if err != nil { ... }
//	one.RestrictN(67, 71)
//	one.RestrictL(0, 2)
//	err = one.BuildBasis(ctx, state.MustSingle("Rb", 69, 0, 0.5, 0.5))
//
//	two, err := pairspec.NewSystemTwo(one, one)
//	if err != nil { ... }
//	two.RestrictPairEnergy(ref-25, ref+25)
//	err = two.BuildBasis(ctx)
//	err = two.BuildDiagonal()
//	two.SetDistance(6)
//	two.SetAngle(math.Pi / 2)
//	err = two.BuildInteraction(ctx)
//	err = two.Diagonalize(ctx, 1e-9)
//	values, err := two.Eigenvalues()
//
// Each System walks a fixed pipeline of stages. Calling an operation before
// its stage fails with a NotReadyError, and changing the geometry of a
// SystemTwo after the interaction is built drops the later stages, so stale
// eigenresults can never be read. Radial matrix elements are served through
// a content-addressed cache shared by every system of a sweep; see the
// cache package for the persistent tiers.
//
// Energies are in GHz, distances in micrometers, angles in radians.
package pairspec
