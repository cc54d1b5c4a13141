package cache

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportedArchive(t *testing.T, n int, codec CompressionType) *bytes.Buffer {
	t.Helper()
	ctx := context.Background()

	src := NewMemoryStore()
	for i := 0; i < n; i++ {
		require.NoError(t, src.Insert(ctx, testRadialKey(10+i), float64(i)))
	}

	var buf bytes.Buffer
	count, err := Export(ctx, &buf, src, codec)
	require.NoError(t, err)
	require.Equal(t, n, count)
	return &buf
}

func TestArchiveRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		codec CompressionType
		n     int
	}{
		{name: "SmallZSTD", codec: CompressionZSTD, n: 100},
		{name: "SmallLZ4", codec: CompressionLZ4, n: 100},
		{name: "SmallNone", codec: CompressionNone, n: 100},
		{name: "MultiBlock", codec: CompressionZSTD, n: 3000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			buf := exportedArchive(t, tt.n, tt.codec)

			dst := NewMemoryStore()
			count, err := Import(ctx, buf, dst)
			require.NoError(t, err)
			assert.Equal(t, tt.n, count)
			assert.Equal(t, tt.n, dst.Len())

			value, found, err := dst.Load(ctx, testRadialKey(10))
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, 0.0, value)
		})
	}
}

func TestArchiveEmpty(t *testing.T) {
	ctx := context.Background()
	buf := exportedArchive(t, 0, CompressionZSTD)

	dst := NewMemoryStore()
	count, err := Import(ctx, buf, dst)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, dst.Len())
}

func TestArchiveKeepsExistingValues(t *testing.T) {
	ctx := context.Background()
	buf := exportedArchive(t, 5, CompressionZSTD)

	dst := NewMemoryStore()
	require.NoError(t, dst.Insert(ctx, testRadialKey(10), -1.0))

	_, err := Import(ctx, buf, dst)
	require.NoError(t, err)

	value, _, err := dst.Load(ctx, testRadialKey(10))
	require.NoError(t, err)
	assert.Equal(t, -1.0, value)
}

func TestArchiveFooterChecksum(t *testing.T) {
	buf := exportedArchive(t, 5, CompressionZSTD)
	data := buf.Bytes()
	data[len(data)-1] ^= 0xFF

	_, err := Import(context.Background(), bytes.NewReader(data), NewMemoryStore())
	var mismatch *ChecksumMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestArchiveCorruptBody(t *testing.T) {
	buf := exportedArchive(t, 50, CompressionNone)
	data := buf.Bytes()
	data[archiveHeaderSize+blockHeaderSize+20] ^= 0xFF

	_, err := Import(context.Background(), bytes.NewReader(data), NewMemoryStore())
	assert.Error(t, err)
}

func TestArchiveBadMagic(t *testing.T) {
	_, err := Import(context.Background(), bytes.NewReader([]byte("not an archive at all")), NewMemoryStore())
	assert.ErrorIs(t, err, ErrInvalidArchive)
}

func TestArchiveTruncated(t *testing.T) {
	buf := exportedArchive(t, 50, CompressionZSTD)
	data := buf.Bytes()

	_, err := Import(context.Background(), bytes.NewReader(data[:len(data)-6]), NewMemoryStore())
	assert.Error(t, err)
}

func TestArchiveFromLocalStore(t *testing.T) {
	ctx := context.Background()

	src, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	defer src.Close()
	for n := 60; n < 70; n++ {
		require.NoError(t, src.Insert(ctx, testRadialKey(n), float64(n)))
	}
	require.NoError(t, src.Compact(ctx))

	var buf bytes.Buffer
	count, err := Export(ctx, &buf, src, CompressionZSTD)
	require.NoError(t, err)
	assert.Equal(t, 10, count)

	dst := NewMemoryStore()
	count, err = Import(ctx, &buf, dst)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	assert.Equal(t, 10, dst.Len())
}
