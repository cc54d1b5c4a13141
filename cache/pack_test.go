package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPackEntries(n int) []PackEntry {
	entries := make([]PackEntry, n)
	for i := range entries {
		entries[i] = PackEntry{Key: testRadialKey(10 + i), Value: float64(i) * 1.5}
	}
	return entries
}

func TestPackRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		codec CompressionType
	}{
		{name: "None", codec: CompressionNone},
		{name: "LZ4", codec: CompressionLZ4},
		{name: "ZSTD", codec: CompressionZSTD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.pack")
			entries := testPackEntries(100)
			require.NoError(t, writePack(path, entries, tt.codec))

			r, err := openPack(path)
			require.NoError(t, err)
			defer r.Close()

			assert.Equal(t, len(entries), r.Len())
			for _, e := range entries {
				value, found, err := r.Lookup(e.Key)
				require.NoError(t, err)
				require.True(t, found)
				assert.Equal(t, e.Value, value)
			}

			_, found, err := r.Lookup(testRadialKey(5000))
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestPackRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pack")
	entries := testPackEntries(50)
	require.NoError(t, writePack(path, entries, CompressionZSTD))

	r, err := openPack(path)
	require.NoError(t, err)
	defer r.Close()

	got := make(map[Key]float64)
	require.NoError(t, r.Range(func(key Key, value float64) bool {
		got[key] = value
		return true
	}))

	assert.Len(t, got, len(entries))
	for _, e := range entries {
		assert.Equal(t, e.Value, got[e.Key])
	}
}

func TestPackMultipleBlocks(t *testing.T) {
	// Enough entries that the writer has to cut several blocks.
	path := filepath.Join(t.TempDir(), "test.pack")
	entries := testPackEntries(4000)
	require.NoError(t, writePack(path, entries, CompressionZSTD))

	r, err := openPack(path)
	require.NoError(t, err)
	defer r.Close()

	require.Greater(t, len(r.blockStarts), 1)
	assert.Equal(t, 4000, r.Len())

	for _, i := range []int{0, 1999, 3999} {
		value, found, err := r.Lookup(entries[i].Key)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, entries[i].Value, value)
	}
}

func TestPackEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pack")
	require.NoError(t, writePack(path, nil, CompressionZSTD))

	r, err := openPack(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 0, r.Len())
	_, found, err := r.Lookup(testRadialKey(69))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPackCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pack")
	require.NoError(t, writePack(path, testPackEntries(10), CompressionZSTD))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-10] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = openPack(path)
	assert.Error(t, err)
}

func TestPackTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.pack")
	require.NoError(t, writePack(path, testPackEntries(10), CompressionZSTD))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:12], 0644))

	_, err = openPack(path)
	assert.ErrorIs(t, err, ErrInvalidPack)
}
