package operator

import (
	"math"

	"github.com/pairspec/pairspec/atomdata"
)

// coupling is one tensor term of the interaction expansion: the rank k1
// component q1 on the first atom times the rank k2 component q2 on the
// second, weighted by a geometric coefficient. Coefficients are in GHz for
// matrix elements given in Bohr radii to the power of the rank.
type coupling struct {
	k1, k2 int
	q1, q2 int
	coeff  float64
}

// couplings expands a validated geometry into the term list the assembler
// evaluates. Off the symmetry axis only dipole-dipole terms appear; on the
// axis the expansion runs up to the configured multipole order.
func couplings(g Geometry) []coupling {
	if !g.Enabled() {
		return nil
	}
	r := atomdata.UmToBohr(g.Distance)
	if g.Angle == 0 && !g.SurfaceEnabled {
		var out []coupling
		for k1 := 1; k1+2 <= g.order(); k1++ {
			for k2 := 1; k1+k2+1 <= g.order(); k2++ {
				scale := atomdata.HartreeGHz / math.Pow(r, float64(k1+k2+1))
				for q := -min(k1, k2); q <= min(k1, k2); q++ {
					out = append(out, coupling{
						k1: k1, k2: k2,
						q1: q, q2: -q,
						coeff: multipoleCoeff(k1, k2, q) * scale,
					})
				}
			}
		}
		return out
	}
	free := dipoleTable(g.Angle)
	scale := atomdata.HartreeGHz / (r * r * r)
	var image [3][3]float64
	if g.SurfaceEnabled {
		image = imageTable(r, g.Angle, atomdata.UmToBohr(g.SurfaceDistance))
	}
	var out []coupling
	for q1 := -1; q1 <= 1; q1++ {
		for q2 := -1; q2 <= 1; q2++ {
			c := free[q1+1][q2+1] * scale
			if g.SurfaceEnabled {
				c += image[q1+1][q2+1] * atomdata.HartreeGHz
			}
			if c == 0 {
				continue
			}
			out = append(out, coupling{k1: 1, k2: 1, q1: q1, q2: q2, coeff: c})
		}
	}
	return out
}

// dipoleTable returns the free-space dipole-dipole coupling coefficients
// A[q1+1][q2+1] for an interatomic axis tilted by theta in the xz-plane,
// without the 1/R^3 falloff. At theta = 0 only the q1 = -q2 entries
// survive, so the total magnetic quantum number is conserved.
func dipoleTable(theta float64) [3][3]float64 {
	s, c := math.Sin(theta), math.Cos(theta)
	cross := 3 * s * c / math.Sqrt2
	var a [3][3]float64
	a[1][1] = 1 - 3*c*c
	a[0][2] = -1 + 1.5*s*s
	a[2][0] = -1 + 1.5*s*s
	a[0][0] = -1.5 * s * s
	a[2][2] = -1.5 * s * s
	a[0][1] = -cross
	a[1][0] = -cross
	a[2][1] = cross
	a[1][2] = cross
	return a
}

// multipoleCoeff is the on-axis expansion coefficient linking the rank k1
// tensor on one atom to the rank k2 tensor on the other at spherical
// component q, without the 1/R^(k1+k2+1) falloff. For k1 = k2 = 1 it
// reproduces dipoleTable(0).
func multipoleCoeff(k1, k2, q int) float64 {
	sign := 1.0
	if k2%2 != 0 {
		sign = -1
	}
	return sign * fact(k1+k2) / math.Sqrt(fact(k1+q)*fact(k1-q)*fact(k2+q)*fact(k2-q))
}

func fact(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

// imageTable returns the spherical coupling coefficients of the image-dipole
// interaction with a perfectly conducting plane. r and surface are in Bohr
// radii; the returned entries carry the full 1/R'^3 falloff of the image
// distance, unlike dipoleTable.
func imageTable(r, angle, surface float64) [3][3]float64 {
	// Vector from the first atom to the image of the second. The pair
	// midpoint sits at height surface, so the z span to the image is twice
	// that regardless of the tilt.
	rx := r * math.Sin(angle)
	rz := -2 * surface
	rp := math.Hypot(rx, rz)
	nx, nz := rx/rp, rz/rp
	inv := 1 / (rp * rp * rp)
	// K = (M - 3 n n^T M) / R'^3 with M = diag(-1, -1, 1), the mirror map
	// a conducting plane applies to a dipole.
	var k [3][3]float64
	k[0][0] = (-1 + 3*nx*nx) * inv
	k[1][1] = -inv
	k[2][2] = (1 - 3*nz*nz) * inv
	k[0][2] = -3 * nx * nz * inv
	k[2][0] = 3 * nx * nz * inv
	return sphericalFromCartesian(k)
}

// sphericalFromCartesian rewrites a Cartesian rank-2 coupling tensor in the
// spherical dipole basis, A[q1+1][q2+1]. The xy and yz entries must vanish
// (axis in the xz-plane), which is what keeps the result real.
func sphericalFromCartesian(k [3][3]float64) [3][3]float64 {
	// d_x = (d_{-1} - d_{+1})/sqrt2, d_y = i (d_{-1} + d_{+1})/sqrt2,
	// d_z = d_0. The two i factors of a yy term multiply to -1.
	ux := [3]float64{1 / math.Sqrt2, 0, -1 / math.Sqrt2}
	uy := [3]float64{1, 0, 1}
	uz := [3]float64{0, 1, 0}
	var a [3][3]float64
	for i1 := 0; i1 < 3; i1++ {
		for i2 := 0; i2 < 3; i2++ {
			a[i1][i2] = k[0][0]*ux[i1]*ux[i2] +
				k[0][2]*ux[i1]*uz[i2] +
				k[2][0]*uz[i1]*ux[i2] +
				k[2][2]*uz[i1]*uz[i2] -
				k[1][1]*uy[i1]*uy[i2]/2
		}
	}
	return a
}
