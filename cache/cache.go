package cache

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache is the front door to matrix element storage. Lookups hit a
// process-local memory tier first, then the durable store; values found in
// the store are pulled into memory, and computed values are written through
// to both tiers.
//
// A failing store never fails a lookup. The first store error flips the
// cache into degraded mode for the rest of the session: it keeps answering
// from memory and computing misses, logs one warning, and leaves the store
// alone. Degraded runs are slower, never wrong.
type Cache struct {
	logger   *slog.Logger
	memory   *MemoryStore
	store    Store
	group    singleflight.Group
	degraded atomic.Bool
	closed   atomic.Bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore attaches a durable second tier. The Cache takes ownership and
// closes the store on Close.
func WithStore(store Store) Option {
	return func(c *Cache) {
		c.store = store
	}
}

// WithLogger sets the logger for store failure warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Cache. Without options it is memory-only, which is the
// right mode for one-off scripts; long-lived work wants WithStore so that
// radial integrals survive the process.
func New(opts ...Option) *Cache {
	c := &Cache{
		memory: NewMemoryStore(),
		logger: noopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenLocal is New with a LocalStore at dir attached. When the directory
// cannot be opened the cache starts in degraded, memory-only mode instead
// of failing, and the error is reported through the logger.
func OpenLocal(dir string, opts ...Option) *Cache {
	c := New(opts...)
	store, err := NewLocalStore(dir)
	if err != nil {
		c.logger.Warn("cache directory unusable, running in memory only",
			"dir", dir, "error", err)
		c.degraded.Store(true)
		return c
	}
	c.store = store
	return c
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

func (c *Cache) failStore(err error) {
	if c.degraded.CompareAndSwap(false, true) {
		c.logger.Warn("cache store failed, continuing in memory only", "error", err)
	}
}

func (c *Cache) storeUsable() bool {
	return c.store != nil && !c.degraded.Load()
}

// Degraded reports whether the durable store has been abandoned for this
// session.
func (c *Cache) Degraded() bool {
	return c.degraded.Load()
}

// Len returns the number of entries in the memory tier.
func (c *Cache) Len() int {
	return c.memory.Len()
}

// Get looks up a key in the memory tier, then the store.
func (c *Cache) Get(ctx context.Context, key Key) (float64, bool) {
	key = key.Canonical()
	if value, found, err := c.memory.Load(ctx, key); err == nil && found {
		return value, true
	}
	if !c.storeUsable() {
		return 0, false
	}
	value, found, err := c.store.Load(ctx, key)
	if err != nil {
		c.failStore(err)
		return 0, false
	}
	if found {
		_ = c.memory.Insert(ctx, key, value)
	}
	return value, found
}

// Put writes an entry through both tiers. The first writer wins in each.
func (c *Cache) Put(ctx context.Context, key Key, value float64) {
	key = key.Canonical()
	_ = c.memory.Insert(ctx, key, value)
	if !c.storeUsable() {
		return
	}
	if err := c.store.Insert(ctx, key, value); err != nil {
		c.failStore(err)
	}
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. Concurrent callers for the same key share one compute call; other
// keys proceed independently. Errors from compute are returned to every
// waiting caller and nothing is stored.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, compute func(ctx context.Context) (float64, error)) (float64, error) {
	key = key.Canonical()
	if value, found, err := c.memory.Load(ctx, key); err == nil && found {
		return value, nil
	}

	flightKey := string(key.appendEncoded(nil))
	v, err, _ := c.group.Do(flightKey, func() (any, error) {
		if value, found, err := c.memory.Load(ctx, key); err == nil && found {
			return value, nil
		}
		if c.storeUsable() {
			value, found, err := c.store.Load(ctx, key)
			if err != nil {
				c.failStore(err)
			} else if found {
				_ = c.memory.Insert(ctx, key, value)
				return value, nil
			}
		}

		value, err := compute(ctx)
		if err != nil {
			return 0.0, err
		}
		c.Put(ctx, key, value)
		return value, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Close releases both tiers. The cache must not be used afterwards.
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = c.memory.Close()
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
