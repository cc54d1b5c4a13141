// Package wigner provides angular momentum coupling coefficients: Wigner 3j
// and 6j symbols and Wigner rotation matrix elements for integer and
// half-integer angular momenta.
//
// All functions accept quantum numbers as float64 values that must be
// integers or half-integers. Inputs violating a selection rule yield 0
// rather than an error, matching how the symbols behave algebraically.
package wigner

import (
	"math"
	"math/cmplx"
)

// maxFact bounds the factorial table. Large enough for the angular momenta
// reachable with Rydberg states (j up to a few hundred).
const maxFact = 1024

var lnFact [maxFact]float64

func init() {
	for n := 2; n < maxFact; n++ {
		lnFact[n] = lnFact[n-1] + math.Log(float64(n))
	}
}

// doubled returns 2*x as an exact integer.
// The second result is false when x is neither integer nor half-integer.
func doubled(x float64) (int, bool) {
	d := math.Round(2 * x)
	if math.Abs(2*x-d) > 1e-9 {
		return 0, false
	}
	return int(d), true
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// triangleDoubled checks the triangle condition on doubled angular momenta,
// including integrality of the triad sum.
func triangleDoubled(ta, tb, tc int) bool {
	if (ta+tb+tc)%2 != 0 {
		return false
	}
	return tc >= absInt(ta-tb) && tc <= ta+tb
}

// lnDeltaDoubled returns the log of the triangle coefficient
// Delta(a,b,c) = (a+b-c)!(a-b+c)!(-a+b+c)!/(a+b+c+1)!
// for doubled inputs. Caller must have verified the triangle condition.
func lnDeltaDoubled(ta, tb, tc int) float64 {
	return lnFact[(ta+tb-tc)/2] + lnFact[(ta-tb+tc)/2] + lnFact[(-ta+tb+tc)/2] - lnFact[(ta+tb+tc)/2+1]
}

// Triangle reports whether (a, b, c) satisfy the triangle condition with an
// integral sum, i.e. whether they can couple.
func Triangle(a, b, c float64) bool {
	ta, ok1 := doubled(a)
	tb, ok2 := doubled(b)
	tc, ok3 := doubled(c)
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	return triangleDoubled(ta, tb, tc)
}

// ThreeJ computes the Wigner 3j symbol
//
//	( j1 j2 j3 )
//	( m1 m2 m3 )
//
// using the Racah formula with log factorials. Returns 0 when any selection
// rule (triangle condition, m1+m2+m3 = 0, |mi| <= ji) is violated.
func ThreeJ(j1, j2, j3, m1, m2, m3 float64) float64 {
	tj1, ok1 := doubled(j1)
	tj2, ok2 := doubled(j2)
	tj3, ok3 := doubled(j3)
	tm1, ok4 := doubled(m1)
	tm2, ok5 := doubled(m2)
	tm3, ok6 := doubled(m3)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return 0
	}
	if tm1+tm2+tm3 != 0 {
		return 0
	}
	if !triangleDoubled(tj1, tj2, tj3) {
		return 0
	}
	if absInt(tm1) > tj1 || absInt(tm2) > tj2 || absInt(tm3) > tj3 {
		return 0
	}
	// j-m must be integral for each column.
	if (tj1+tm1)%2 != 0 || (tj2+tm2)%2 != 0 || (tj3+tm3)%2 != 0 {
		return 0
	}

	logPre := 0.5 * (lnDeltaDoubled(tj1, tj2, tj3) +
		lnFact[(tj1+tm1)/2] + lnFact[(tj1-tm1)/2] +
		lnFact[(tj2+tm2)/2] + lnFact[(tj2-tm2)/2] +
		lnFact[(tj3+tm3)/2] + lnFact[(tj3-tm3)/2])

	k1 := (tj1 + tj2 - tj3) / 2
	k2 := (tj1 - tm1) / 2
	k3 := (tj2 + tm2) / 2
	c1 := (tj3 - tj2 + tm1) / 2
	c2 := (tj3 - tj1 - tm2) / 2

	kMin := 0
	if -c1 > kMin {
		kMin = -c1
	}
	if -c2 > kMin {
		kMin = -c2
	}
	kMax := k1
	if k2 < kMax {
		kMax = k2
	}
	if k3 < kMax {
		kMax = k3
	}

	var sum float64
	sign := 1.0
	if kMin%2 != 0 {
		sign = -1
	}
	for k := kMin; k <= kMax; k++ {
		logTerm := logPre - lnFact[k] - lnFact[k1-k] - lnFact[k2-k] - lnFact[k3-k] -
			lnFact[c1+k] - lnFact[c2+k]
		sum += sign * math.Exp(logTerm)
		sign = -sign
	}

	if (tj1-tj2-tm3)/2%2 != 0 {
		sum = -sum
	}
	return sum
}

// SixJ computes the Wigner 6j symbol
//
//	{ j1 j2 j3 }
//	{ j4 j5 j6 }
//
// using the Racah sum formula. Returns 0 when any of the four triads
// (j1 j2 j3), (j1 j5 j6), (j4 j2 j6), (j4 j5 j3) fails the triangle
// condition.
func SixJ(j1, j2, j3, j4, j5, j6 float64) float64 {
	tj1, ok1 := doubled(j1)
	tj2, ok2 := doubled(j2)
	tj3, ok3 := doubled(j3)
	tj4, ok4 := doubled(j4)
	tj5, ok5 := doubled(j5)
	tj6, ok6 := doubled(j6)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return 0
	}
	if !triangleDoubled(tj1, tj2, tj3) || !triangleDoubled(tj1, tj5, tj6) ||
		!triangleDoubled(tj4, tj2, tj6) || !triangleDoubled(tj4, tj5, tj3) {
		return 0
	}

	logPre := 0.5 * (lnDeltaDoubled(tj1, tj2, tj3) + lnDeltaDoubled(tj1, tj5, tj6) +
		lnDeltaDoubled(tj4, tj2, tj6) + lnDeltaDoubled(tj4, tj5, tj3))

	t1 := (tj1 + tj2 + tj3) / 2
	t2 := (tj1 + tj5 + tj6) / 2
	t3 := (tj4 + tj2 + tj6) / 2
	t4 := (tj4 + tj5 + tj3) / 2
	q1 := (tj1 + tj2 + tj4 + tj5) / 2
	q2 := (tj2 + tj3 + tj5 + tj6) / 2
	q3 := (tj3 + tj1 + tj6 + tj4) / 2

	kMin := t1
	for _, t := range [...]int{t2, t3, t4} {
		if t > kMin {
			kMin = t
		}
	}
	kMax := q1
	for _, q := range [...]int{q2, q3} {
		if q < kMax {
			kMax = q
		}
	}

	var sum float64
	sign := 1.0
	if kMin%2 != 0 {
		sign = -1
	}
	for k := kMin; k <= kMax; k++ {
		logTerm := logPre + lnFact[k+1] -
			lnFact[k-t1] - lnFact[k-t2] - lnFact[k-t3] - lnFact[k-t4] -
			lnFact[q1-k] - lnFact[q2-k] - lnFact[q3-k]
		sum += sign * math.Exp(logTerm)
		sign = -sign
	}
	return sum
}

// SmallD computes the Wigner small-d rotation matrix element d^j_{mp,m}(beta)
// for a rotation by beta about the y axis, following the sign conventions of
// Varshalovich. d^j_{mp,m}(0) is the identity.
func SmallD(j, mp, m, beta float64) float64 {
	tj, ok1 := doubled(j)
	tmp, ok2 := doubled(mp)
	tm, ok3 := doubled(m)
	if !ok1 || !ok2 || !ok3 {
		return 0
	}
	if absInt(tmp) > tj || absInt(tm) > tj {
		return 0
	}
	if (tj+tm)%2 != 0 || (tj+tmp)%2 != 0 {
		return 0
	}

	a := (tj + tm) / 2  // j+m
	b := (tj - tmp) / 2 // j-mp
	c := (tmp - tm) / 2 // mp-m

	logPre := 0.5 * (lnFact[(tj+tmp)/2] + lnFact[(tj-tmp)/2] +
		lnFact[(tj+tm)/2] + lnFact[(tj-tm)/2])

	sMin := 0
	if -c > sMin {
		sMin = -c
	}
	sMax := a
	if b < sMax {
		sMax = b
	}

	cosHalf := math.Cos(beta / 2)
	sinHalf := math.Sin(beta / 2)

	var sum float64
	for s := sMin; s <= sMax; s++ {
		logTerm := logPre - lnFact[a-s] - lnFact[s] - lnFact[c+s] - lnFact[b-s]
		term := math.Exp(logTerm) *
			math.Pow(cosHalf, float64(a+b-2*s)) *
			math.Pow(sinHalf, float64(c+2*s))
		if (c+s)%2 != 0 {
			term = -term
		}
		sum += term
	}
	return sum
}

// D computes the full Wigner rotation matrix element
// D^j_{mp,m}(alpha, beta, gamma) = exp(-i*mp*alpha) d^j_{mp,m}(beta) exp(-i*m*gamma)
// for Euler angles in the zyz convention.
func D(j, mp, m, alpha, beta, gamma float64) complex128 {
	d := SmallD(j, mp, m, beta)
	if d == 0 {
		return 0
	}
	return cmplx.Rect(1, -(mp*alpha+m*gamma)) * complex(d, 0)
}

// ClebschGordan computes the Clebsch-Gordan coefficient
// <j1 m1 j2 m2 | j3 m3> from the corresponding 3j symbol.
func ClebschGordan(j1, m1, j2, m2, j3, m3 float64) float64 {
	w := ThreeJ(j1, j2, j3, m1, m2, -m3)
	if w == 0 {
		return 0
	}
	phase := 1.0
	if t, ok := doubled(j1 - j2 + m3); ok && (t/2)%2 != 0 {
		phase = -1
	}
	return phase * math.Sqrt(2*j3+1) * w
}
