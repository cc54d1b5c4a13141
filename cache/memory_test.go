package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	key := testRadialKey(69)
	require.NoError(t, s.Insert(ctx, key, 1.0))
	require.NoError(t, s.Insert(ctx, key, 2.0))

	value, found, err := s.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1.0, value)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreEnumerate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	for n := 0; n < 10; n++ {
		require.NoError(t, s.Insert(ctx, testRadialKey(n), float64(n)))
	}

	count := 0
	require.NoError(t, s.Enumerate(ctx, func(Key, float64) bool {
		count++
		return true
	}))
	assert.Equal(t, 10, count)

	// Early stop.
	count = 0
	require.NoError(t, s.Enumerate(ctx, func(Key, float64) bool {
		count++
		return count < 3
	}))
	assert.Equal(t, 3, count)
}

func TestMemoryStoreClosed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, _, err := s.Load(ctx, testRadialKey(69))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Insert(ctx, testRadialKey(69), 1.0), ErrClosed)
}
