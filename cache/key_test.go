package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairspec/pairspec/state"
)

func testRadialKey(n int) Key {
	return RadialKey("Rb", 1,
		state.Orbital{N: n, L: 0, J: 0.5},
		state.Orbital{N: n + 1, L: 1, J: 1.5})
}

func TestRadialKeyCanonicalOrder(t *testing.T) {
	a := state.Orbital{N: 69, L: 0, J: 0.5}
	b := state.Orbital{N: 70, L: 1, J: 1.5}

	forward := RadialKey("Rb", 1, a, b)
	reverse := RadialKey("Rb", 1, b, a)

	assert.Equal(t, forward, reverse)
	assert.Equal(t, forward.Digest(), reverse.Digest())
}

func TestEnergyKey(t *testing.T) {
	k := EnergyKey("Cs", state.Orbital{N: 50, L: 2, J: 2.5})

	assert.Equal(t, KindEnergy, k.Kind)
	assert.Equal(t, 0, k.Kappa)
	assert.Equal(t, state.Orbital{}, k.Ket)

	// The zero Ket must not be swapped in front of the level.
	assert.Equal(t, k, k.Canonical())
}

func TestKeyEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		key  Key
	}{
		{
			name: "Radial",
			key:  testRadialKey(69),
		},
		{
			name: "Energy",
			key:  EnergyKey("Rb", state.Orbital{N: 69, L: 0, J: 0.5}),
		},
		{
			name: "HighMultipole",
			key: RadialKey("Sr88_singlet", 3,
				state.Orbital{N: 40, L: 2, J: 2.5},
				state.Orbital{N: 42, L: 5, J: 4.5}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.key.appendEncoded(nil)

			decoded, rest, err := decodeKey(encoded)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.Equal(t, tt.key, decoded)
		})
	}
}

func TestKeyDecodeTruncated(t *testing.T) {
	encoded := testRadialKey(69).appendEncoded(nil)

	for cut := 0; cut < len(encoded); cut++ {
		_, _, err := decodeKey(encoded[:cut])
		assert.Error(t, err, "cut at %d bytes", cut)
	}
}

func TestKeyDigestDistinguishesKeys(t *testing.T) {
	seen := make(map[uint64]bool)
	for n := 10; n < 110; n++ {
		d := testRadialKey(n).ShortDigest()
		assert.False(t, seen[d])
		seen[d] = true
	}

	radial := testRadialKey(69)
	energy := EnergyKey("Rb", radial.Bra)
	assert.NotEqual(t, radial.Digest(), energy.Digest())
}

func TestKeyString(t *testing.T) {
	radial := testRadialKey(69)
	assert.Contains(t, radial.String(), "Rb")
	assert.Contains(t, radial.String(), "radial")

	energy := EnergyKey("Rb", state.Orbital{N: 69, L: 0, J: 0.5})
	assert.Contains(t, energy.String(), "energy")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "energy", KindEnergy.String())
	assert.Equal(t, "radial", KindRadial.String())
	assert.Contains(t, Kind(99).String(), "unknown")
}
