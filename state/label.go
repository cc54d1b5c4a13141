package state

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// orbitalLetters maps l = 0..6 to spectroscopic notation. Higher l is
// rendered numerically.
const orbitalLetters = "SPDFGHI"

// OrbitalLetter returns the spectroscopic letter for an orbital angular
// momentum, falling back to the decimal value for l > 6.
func OrbitalLetter(l int) string {
	if l >= 0 && l < len(orbitalLetters) {
		return string(orbitalLetters[l])
	}
	return strconv.Itoa(l)
}

// ParseOrbitalLetter resolves a spectroscopic letter (case-insensitive) or a
// decimal number back to l. Returns -1 when the token is not recognized.
func ParseOrbitalLetter(tok string) int {
	if tok == "" {
		return -1
	}
	if len(tok) == 1 {
		if i := strings.IndexByte(orbitalLetters, strings.ToUpper(tok)[0]); i >= 0 {
			return i
		}
	}
	l, err := strconv.Atoi(tok)
	if err != nil || l < 0 {
		return -1
	}
	return l
}

// fraction renders an integer or half-integer as "3" or "3/2".
func fraction(x float64) string {
	twice := int(math.Round(2 * x))
	if twice%2 == 0 {
		return strconv.Itoa(twice / 2)
	}
	return fmt.Sprintf("%d/2", twice)
}

// Label renders the state in human-readable spectroscopic form, for example
// "Rb 69 S_1/2, m=1/2". Artificial states render as their bare label.
func (s Single) Label() string {
	if s.artificial {
		return s.species
	}
	return fmt.Sprintf("%s %d %s_%s, m=%s", s.species, s.n, OrbitalLetter(s.l), fraction(s.j), fraction(s.m))
}

// String implements fmt.Stringer.
func (s Single) String() string { return s.Label() }

// ParseLabel resolves a label produced by Label back into a state. The
// magnetic part is optional; when absent, m defaults to j (the stretched
// sublevel).
func ParseLabel(label string) (Single, error) {
	text := strings.TrimSpace(label)
	main, mPart, hasM := strings.Cut(text, ",")

	fields := strings.Fields(main)
	if len(fields) != 3 {
		return Single{}, &ErrInvalidState{Label: label, Reason: "expected \"<species> <n> <l>_<j>\""}
	}
	species := fields[0]
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return Single{}, &ErrInvalidState{Label: label, Reason: "principal quantum number is not an integer", cause: err}
	}
	lTok, jTok, ok := strings.Cut(fields[2], "_")
	if !ok {
		return Single{}, &ErrInvalidState{Label: label, Reason: "missing _ between orbital letter and j"}
	}
	l := ParseOrbitalLetter(lTok)
	if l < 0 {
		return Single{}, &ErrInvalidState{Label: label, Reason: fmt.Sprintf("unknown orbital token %q", lTok)}
	}
	j, err := parseFraction(jTok)
	if err != nil {
		return Single{}, &ErrInvalidState{Label: label, Reason: "malformed j", cause: err}
	}

	m := j
	if hasM {
		mTok := strings.TrimSpace(mPart)
		mTok = strings.TrimPrefix(mTok, "m=")
		m, err = parseFraction(mTok)
		if err != nil {
			return Single{}, &ErrInvalidState{Label: label, Reason: "malformed m", cause: err}
		}
	}
	return NewSingle(species, n, l, j, m)
}

// parseFraction parses "3", "-3", "3/2" or "-3/2".
func parseFraction(tok string) (float64, error) {
	num, den, ok := strings.Cut(tok, "/")
	if !ok {
		v, err := strconv.Atoi(strings.TrimSpace(num))
		return float64(v), err
	}
	nv, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return 0, err
	}
	dv, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil {
		return 0, err
	}
	if dv == 0 {
		return 0, fmt.Errorf("zero denominator in %q", tok)
	}
	return float64(nv) / float64(dv), nil
}
