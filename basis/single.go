// Package basis builds ordered, indexed bases of atomic states under
// composable restrictions.
//
// Enumeration is driven by windows on the quantum numbers: n and l bound the
// candidate loops and are therefore mandatory, while j, m and energy windows
// filter. Integer predicates run before any energy evaluation so the
// provider is only consulted for levels that survive the cheap checks. Built
// bases are frozen; every accessor is safe for concurrent use.
package basis

import (
	"context"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/pairspec/pairspec/atomdata"
	"github.com/pairspec/pairspec/state"
)

type postingKey struct {
	l    int
	twoJ int
}

// Single is a frozen basis of single-atom states, sorted ascending by
// unperturbed energy with quantum-number order breaking ties.
type Single struct {
	species  string
	states   []state.Single
	energies []float64
	index    map[state.Single]int
	postings map[postingKey]*roaring.Bitmap
}

// BuildSingle enumerates all states of the seed's species inside the given
// windows. The n and l windows are mandatory; without them the candidate
// set is unbounded and ErrWindowRequired is returned.
func BuildSingle(ctx context.Context, seed state.Single, provider atomdata.Provider, restrictions ...Restriction) (*Single, error) {
	w := digestRestrictions(restrictions)
	if w.n == nil {
		return nil, &ErrWindowRequired{Window: "n"}
	}
	if w.l == nil {
		return nil, &ErrWindowRequired{Window: "l"}
	}

	species := seed.Species()

	nMin := int(math.Ceil(w.n.min - 1e-9))
	if nMin < 1 {
		nMin = 1
	}
	nMax := int(math.Floor(w.n.max + 1e-9))
	lMin := int(math.Ceil(w.l.min - 1e-9))
	if lMin < 0 {
		lMin = 0
	}
	lMax := int(math.Floor(w.l.max + 1e-9))

	type candidate struct {
		st     state.Single
		energy float64
	}
	var list []candidate

	for n := nMin; n <= nMax; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for l := lMin; l <= lMax && l < n; l++ {
			for _, j := range []float64{float64(l) - state.Spin, float64(l) + state.Spin} {
				if j < 0 {
					continue
				}
				if !w.j.contains(j) {
					continue
				}

				// Energy is m-independent, so one provider call covers the
				// whole sublevel ladder.
				energy, err := provider.Energy(species, n, l, j)
				if err != nil {
					return nil, err
				}
				if !w.energy.contains(energy) {
					continue
				}

				for m := -j; m <= j+1e-9; m++ {
					if !w.m.contains(m) {
						continue
					}
					st, err := state.NewSingle(species, n, l, j, m)
					if err != nil {
						return nil, err
					}
					list = append(list, candidate{st: st, energy: energy})
				}
			}
		}
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].energy != list[j].energy {
			return list[i].energy < list[j].energy
		}
		return state.Compare(list[i].st, list[j].st) < 0
	})

	b := &Single{
		species:  species,
		states:   make([]state.Single, len(list)),
		energies: make([]float64, len(list)),
		index:    make(map[state.Single]int, len(list)),
		postings: make(map[postingKey]*roaring.Bitmap),
	}
	for i, c := range list {
		b.states[i] = c.st
		b.energies[i] = c.energy
		b.index[c.st] = i

		pk := postingKey{l: c.st.L(), twoJ: int(math.Round(2 * c.st.J()))}
		pb := b.postings[pk]
		if pb == nil {
			pb = roaring.New()
			b.postings[pk] = pb
		}
		pb.Add(uint32(i))
	}
	return b, nil
}

// Size returns the number of basis states.
func (b *Single) Size() int { return len(b.states) }

// Species returns the species the basis was built for.
func (b *Single) Species() string { return b.species }

// State returns the i-th basis state.
func (b *Single) State(i int) state.Single { return b.states[i] }

// Energy returns the unperturbed energy of the i-th basis state in GHz.
func (b *Single) Energy(i int) float64 { return b.energies[i] }

// Index returns the position of st in the basis.
func (b *Single) Index(st state.Single) (int, bool) {
	i, ok := b.index[st]
	return i, ok
}

// States returns a copy of the basis states in order.
func (b *Single) States() []state.Single {
	out := make([]state.Single, len(b.states))
	copy(out, b.states)
	return out
}

// Postings returns the set of basis indices with the given (l, j), or nil
// when the basis has none. The returned bitmap must not be modified.
func (b *Single) Postings(l int, j float64) *roaring.Bitmap {
	return b.postings[postingKey{l: l, twoJ: int(math.Round(2 * j))}]
}
