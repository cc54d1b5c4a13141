package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairspec/pairspec/state"
)

var errStoreBroken = errors.New("store broken")

// failingStore errors on every operation, standing in for an unreachable
// backend.
type failingStore struct {
	loads   atomic.Int32
	inserts atomic.Int32
}

func (s *failingStore) Load(context.Context, Key) (float64, bool, error) {
	s.loads.Add(1)
	return 0, false, errStoreBroken
}

func (s *failingStore) Insert(context.Context, Key, float64) error {
	s.inserts.Add(1)
	return errStoreBroken
}

func (s *failingStore) Close() error { return nil }

func TestCacheMemoryOnly(t *testing.T) {
	ctx := context.Background()
	c := New()
	defer c.Close()

	key := testRadialKey(69)
	_, found := c.Get(ctx, key)
	assert.False(t, found)

	c.Put(ctx, key, 4302.8)
	value, found := c.Get(ctx, key)
	require.True(t, found)
	assert.Equal(t, 4302.8, value)
	assert.Equal(t, 1, c.Len())
	assert.False(t, c.Degraded())
}

func TestCacheFillsMemoryFromStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := testRadialKey(69)
	require.NoError(t, store.Insert(ctx, key, 7.5))

	c := New(WithStore(store))
	defer c.Close()

	require.Equal(t, 0, c.Len())
	value, found := c.Get(ctx, key)
	require.True(t, found)
	assert.Equal(t, 7.5, value)
	assert.Equal(t, 1, c.Len())
}

func TestCachePutWritesThrough(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := New(WithStore(store))
	defer c.Close()

	key := testRadialKey(69)
	c.Put(ctx, key, 1.25)

	value, found, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1.25, value)
}

func TestCacheCanonicalizesKeys(t *testing.T) {
	ctx := context.Background()
	c := New()
	defer c.Close()

	a := state.Orbital{N: 69, L: 0, J: 0.5}
	b := state.Orbital{N: 70, L: 1, J: 1.5}
	c.Put(ctx, Key{Species: "Rb", Kind: KindRadial, Kappa: 1, Bra: b, Ket: a}, 3.0)

	value, found := c.Get(ctx, RadialKey("Rb", 1, a, b))
	require.True(t, found)
	assert.Equal(t, 3.0, value)
	assert.Equal(t, 1, c.Len())
}

func TestCacheGetOrComputeComputesOnce(t *testing.T) {
	ctx := context.Background()
	c := New()
	defer c.Close()

	computes := 0
	compute := func(context.Context) (float64, error) {
		computes++
		return 42.0, nil
	}

	key := testRadialKey(69)
	for i := 0; i < 3; i++ {
		value, err := c.GetOrCompute(ctx, key, compute)
		require.NoError(t, err)
		assert.Equal(t, 42.0, value)
	}
	assert.Equal(t, 1, computes)
}

func TestCacheGetOrComputeSharesFlight(t *testing.T) {
	ctx := context.Background()
	c := New()
	defer c.Close()

	var computes atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	compute := func(context.Context) (float64, error) {
		computes.Add(1)
		close(entered)
		<-release
		return 42.0, nil
	}

	key := testRadialKey(69)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		value, err := c.GetOrCompute(ctx, key, compute)
		assert.NoError(t, err)
		assert.Equal(t, 42.0, value)
	}()

	// Once the first caller is inside compute, pile more callers onto the
	// same key; they must join the in-flight computation.
	<-entered
	for i := 0; i < 7; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := c.GetOrCompute(ctx, key, compute)
			assert.NoError(t, err)
			assert.Equal(t, 42.0, value)
		}()
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), computes.Load())
}

func TestCacheGetOrComputeError(t *testing.T) {
	ctx := context.Background()
	c := New()
	defer c.Close()

	wantErr := errors.New("integration diverged")
	_, err := c.GetOrCompute(ctx, testRadialKey(69), func(context.Context) (float64, error) {
		return 0, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, c.Len())

	value, err := c.GetOrCompute(ctx, testRadialKey(69), func(context.Context) (float64, error) {
		return 1.0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, value)
}

func TestCacheDegradesOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	c := New(WithStore(store))
	defer c.Close()

	// 1. The first miss hits the broken store and flips degraded mode.
	_, found := c.Get(ctx, testRadialKey(69))
	assert.False(t, found)
	assert.True(t, c.Degraded())
	assert.Equal(t, int32(1), store.loads.Load())

	// 2. Computation keeps working from memory.
	value, err := c.GetOrCompute(ctx, testRadialKey(69), func(context.Context) (float64, error) {
		return 9.0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 9.0, value)

	value, found = c.Get(ctx, testRadialKey(69))
	require.True(t, found)
	assert.Equal(t, 9.0, value)

	// 3. The store is left alone once degraded.
	assert.Equal(t, int32(1), store.loads.Load())
	assert.Equal(t, int32(0), store.inserts.Load())
}

func TestCacheOpenLocalBadDirectory(t *testing.T) {
	ctx := context.Background()

	// A file where the directory should be makes the open fail.
	path := filepath.Join(t.TempDir(), "blocking")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	c := OpenLocal(filepath.Join(path, "cache"))
	defer c.Close()

	assert.True(t, c.Degraded())
	c.Put(ctx, testRadialKey(69), 1.0)
	value, found := c.Get(ctx, testRadialKey(69))
	require.True(t, found)
	assert.Equal(t, 1.0, value)
}

func TestCacheOpenLocalPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c := OpenLocal(dir)
	c.Put(ctx, testRadialKey(69), 5.0)
	require.NoError(t, c.Close())

	c = OpenLocal(dir)
	defer c.Close()
	value, found := c.Get(ctx, testRadialKey(69))
	require.True(t, found)
	assert.Equal(t, 5.0, value)
	assert.False(t, c.Degraded())
}

func TestCacheCloseIdempotent(t *testing.T) {
	c := New(WithStore(NewMemoryStore()))
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
