package atomdata

import "math"

// The radial equation is integrated on a square-root-scaled grid x = sqrt(r)
// with y(x) = u(x^2) / sqrt(x), which turns u'' = f(r) u into y'' = G(x) y
// with G(x) = 4 x^2 f(x^2) + 3/(4 x^2). The substitution concentrates grid
// points near the core where the wavefunction oscillates fastest, so a fixed
// step works across the whole range of principal quantum numbers.
const (
	numerovStep = 0.01
	gridFloor   = 0.01
)

// gridSize returns the number of grid points covering [gridFloor, xMax].
func gridSize(xMax float64) int {
	return int((xMax-gridFloor)/numerovStep) + 2
}

// outerX returns the outer grid boundary for an effective principal quantum
// number, well past the classical outer turning point at r = 2 nu^2.
func outerX(nu float64) float64 {
	return math.Sqrt(2 * nu * (nu + 15))
}

// innerTurningPoint returns the classical inner turning point in r for a
// Coulomb potential, nu^2 - nu*sqrt(nu^2 - l(l+1)). Zero for s states.
func innerTurningPoint(nu float64, l int) float64 {
	ll := float64(l * (l + 1))
	disc := nu*nu - ll
	if disc <= 0 {
		return nu * nu
	}
	return nu*nu - nu*math.Sqrt(disc)
}

// integrateRadial integrates y'' = G y inward from the outer boundary on a
// grid of n points starting at gridFloor. The solution is truncated to zero
// inside the classical inner turning point, where inward integration would
// pick up the irregular solution, and normalized to unit radial norm.
func integrateRadial(nu float64, l int, n int) []float64 {
	h := numerovStep
	y := make([]float64, n)

	g := func(x float64) float64 {
		r := x * x
		f := -2/r + 1/(nu*nu) + float64(l*(l+1))/(r*r)
		return 4*r*f + 3/(4*r)
	}

	p := func(i int) float64 {
		x := gridFloor + float64(i)*h
		return 1 - h*h*g(x)/12
	}

	y[n-1] = 0
	y[n-2] = 1e-10
	pNext := p(n - 1)
	pCur := p(n - 2)
	for i := n - 2; i > 0; i-- {
		pPrev := p(i - 1)
		y[i-1] = ((12-10*pCur)*y[i] - pNext*y[i+1]) / pPrev
		pNext, pCur = pCur, pPrev
	}

	// Zero out the classically forbidden core region.
	xCut := math.Sqrt(innerTurningPoint(nu, l))
	cut := int((xCut - gridFloor) / h)
	for i := 0; i < cut && i < n; i++ {
		y[i] = 0
	}

	norm := math.Sqrt(moment(y, y, 0))
	if norm > 0 {
		for i := range y {
			y[i] /= norm
		}
	}
	return y
}

// moment computes 2 * integral of y1 y2 x^(2k+2) dx by the trapezoidal rule,
// which is the radial expectation value <r^k> for normalized solutions.
func moment(y1, y2 []float64, kappa int) float64 {
	n := len(y1)
	if len(y2) < n {
		n = len(y2)
	}
	var sum float64
	for i := 0; i < n; i++ {
		x := gridFloor + float64(i)*numerovStep
		w := 1.0
		if i == 0 || i == n-1 {
			w = 0.5
		}
		sum += w * y1[i] * y2[i] * math.Pow(x, float64(2*kappa+2))
	}
	return 2 * sum * numerovStep
}

// radialElement computes <nu1 l1 | r^kappa | nu2 l2> in Bohr radii to the
// kappa, integrating both states on a shared grid.
func radialElement(nu1 float64, l1 int, nu2 float64, l2 int, kappa int) float64 {
	nuMax := nu1
	if nu2 > nuMax {
		nuMax = nu2
	}
	n := gridSize(outerX(nuMax))
	y1 := integrateRadial(nu1, l1, n)
	y2 := integrateRadial(nu2, l2, n)
	return moment(y1, y2, kappa)
}
