// Package cache implements the persistent matrix element cache: a two-tier,
// content-addressed store mapping (species, quantity kind, multipole order,
// bra orbital, ket orbital) keys to scalar values.
//
// An in-memory tier fronts a durable Store. Entries are immutable once
// written; the only mutations are insert-if-absent and lookup, and write
// races on the same key resolve as first writer wins. When the durable tier
// fails, the cache degrades to memory-only operation for the session instead
// of failing the computation that needed the element.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pairspec/pairspec/state"
)

// Kind enumerates the cached quantity kinds.
type Kind uint8

const (
	// KindEnergy is an unperturbed level energy in GHz. Energy keys carry
	// the level in Bra with Ket zeroed and Kappa zero.
	KindEnergy Kind = 1
	// KindRadial is a radial matrix element <bra| r^kappa |ket> in Bohr
	// radii to the power kappa.
	KindRadial Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindEnergy:
		return "energy"
	case KindRadial:
		return "radial"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Key identifies one cached matrix element. Magnetic quantum numbers do not
// appear: the cached quantities are radial, and all m dependence is
// closed-form angular algebra applied at assembly time.
type Key struct {
	Species string
	Kind    Kind
	Kappa   int
	Bra     state.Orbital
	Ket     state.Orbital
}

// EnergyKey builds the cache key for an unperturbed level energy.
func EnergyKey(species string, level state.Orbital) Key {
	return Key{Species: species, Kind: KindEnergy, Bra: level}
}

// RadialKey builds the cache key for a radial matrix element, with the
// orbital order canonicalized.
func RadialKey(species string, kappa int, bra, ket state.Orbital) Key {
	return Key{Species: species, Kind: KindRadial, Kappa: kappa, Bra: bra, Ket: ket}.Canonical()
}

// Canonical returns the key with Bra <= Ket. Radial elements are symmetric
// in the two orbitals, so both orders address the same entry. Energy keys
// carry the level in Bra and are canonical as built.
func (k Key) Canonical() Key {
	if k.Kind != KindEnergy && k.Ket.Less(k.Bra) {
		k.Bra, k.Ket = k.Ket, k.Bra
	}
	return k
}

// String renders the key for logs.
func (k Key) String() string {
	if k.Kind == KindEnergy {
		return fmt.Sprintf("%s %s %s", k.Species, k.Kind, k.Bra)
	}
	return fmt.Sprintf("%s %s k=%d %s ~ %s", k.Species, k.Kind, k.Kappa, k.Bra, k.Ket)
}

// appendEncoded appends the deterministic binary encoding of the key. The
// encoding feeds both the content digest and the on-disk record format.
func (k Key) appendEncoded(b []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(len(k.Species)))
	b = append(b, k.Species...)
	b = append(b, byte(k.Kind), byte(k.Kappa))
	for _, o := range [2]state.Orbital{k.Bra, k.Ket} {
		b = binary.LittleEndian.AppendUint16(b, uint16(o.N))
		b = binary.LittleEndian.AppendUint16(b, uint16(o.L))
		b = binary.LittleEndian.AppendUint16(b, uint16(math.Round(2*o.J)))
	}
	return b
}

// decodeKey parses an encoded key, returning the remaining bytes.
func decodeKey(b []byte) (Key, []byte, error) {
	if len(b) < 2 {
		return Key{}, nil, fmt.Errorf("cache: truncated key")
	}
	sLen := int(binary.LittleEndian.Uint16(b))
	b = b[2:]
	if len(b) < sLen+2+12 {
		return Key{}, nil, fmt.Errorf("cache: truncated key")
	}
	k := Key{Species: string(b[:sLen])}
	b = b[sLen:]
	k.Kind = Kind(b[0])
	k.Kappa = int(b[1])
	b = b[2:]
	for _, o := range [2]*state.Orbital{&k.Bra, &k.Ket} {
		o.N = int(binary.LittleEndian.Uint16(b))
		o.L = int(binary.LittleEndian.Uint16(b[2:]))
		o.J = float64(binary.LittleEndian.Uint16(b[4:])) / 2
		b = b[6:]
	}
	return k, b, nil
}

// Digest returns the SHA-256 content digest of the key encoding. It names
// the entry in content-addressed stores.
func (k Key) Digest() [sha256.Size]byte {
	return sha256.Sum256(k.appendEncoded(nil))
}

// ShortDigest returns the first 8 digest bytes as an integer, used for pack
// file indices.
func (k Key) ShortDigest() uint64 {
	d := k.Digest()
	return binary.LittleEndian.Uint64(d[:8])
}
