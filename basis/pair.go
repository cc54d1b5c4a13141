package basis

import (
	"context"
	"fmt"
	"sort"

	"github.com/pairspec/pairspec/state"
)

type pairEntry struct {
	ai, bi int
	energy float64
}

// Pair is a frozen basis of two-atom product states, sorted ascending by
// pair energy. Pairs are ordered: (x, y) and (y, x) are distinct entries
// when both survive the windows.
type Pair struct {
	a, b    *Single
	entries []pairEntry
	index   map[[2]int]int
}

// BuildPair forms the cartesian product of two single-atom bases, pruning
// by pair energy before materializing anything. EnergyRange and
// PairEnergyRange both constrain the pair energy here; quantum-number
// restrictions belong on the constituent bases and are rejected.
func BuildPair(ctx context.Context, a, b *Single, restrictions ...Restriction) (*Pair, error) {
	for _, r := range restrictions {
		switch r.kind {
		case restrictEnergy, restrictPairEnergy:
		default:
			return nil, fmt.Errorf("%w: %s", ErrPairRestriction, r)
		}
	}
	w := digestRestrictions(restrictions)
	window := w.pairEnergy
	if w.energy != nil {
		if window == nil {
			window = w.energy
		} else {
			window = window.intersect(w.energy.min, w.energy.max)
		}
	}

	var entries []pairEntry
	for ai := 0; ai < a.Size(); ai++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ea := a.Energy(ai)
		for bi := 0; bi < b.Size(); bi++ {
			energy := ea + b.Energy(bi)
			if !window.contains(energy) {
				continue
			}
			entries = append(entries, pairEntry{ai: ai, bi: bi, energy: energy})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].energy != entries[j].energy {
			return entries[i].energy < entries[j].energy
		}
		if entries[i].ai != entries[j].ai {
			return entries[i].ai < entries[j].ai
		}
		return entries[i].bi < entries[j].bi
	})

	p := &Pair{
		a:       a,
		b:       b,
		entries: entries,
		index:   make(map[[2]int]int, len(entries)),
	}
	for k, e := range entries {
		p.index[[2]int{e.ai, e.bi}] = k
	}
	return p, nil
}

// Size returns the number of pair states.
func (p *Pair) Size() int { return len(p.entries) }

// A returns the basis of the first atom.
func (p *Pair) A() *Single { return p.a }

// B returns the basis of the second atom.
func (p *Pair) B() *Single { return p.b }

// Energy returns the unperturbed pair energy of entry k in GHz.
func (p *Pair) Energy(k int) float64 { return p.entries[k].energy }

// At returns the constituent single-basis indices of entry k.
func (p *Pair) At(k int) (ai, bi int) {
	e := p.entries[k]
	return e.ai, e.bi
}

// State materializes entry k as a pair state.
func (p *Pair) State(k int) state.Pair {
	e := p.entries[k]
	return state.NewPair(p.a.State(e.ai), p.b.State(e.bi))
}

// Index returns the entry position for the given constituent indices.
func (p *Pair) Index(ai, bi int) (int, bool) {
	k, ok := p.index[[2]int{ai, bi}]
	return k, ok
}

// StateIndex returns the entry position of a pair state.
func (p *Pair) StateIndex(ps state.Pair) (int, bool) {
	ai, ok := p.a.Index(ps.First())
	if !ok {
		return 0, false
	}
	bi, ok := p.b.Index(ps.Second())
	if !ok {
		return 0, false
	}
	return p.Index(ai, bi)
}
