package cache

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottledStore wraps a Store with a request rate limit. Shared backends
// (network object stores, a community cache directory on NFS) stay usable
// for other tenants while a large assembly floods them with lookups.
type ThrottledStore struct {
	inner   Store
	limiter *rate.Limiter
}

// NewThrottledStore limits calls into inner to opsPerSec operations per
// second with the given burst. An opsPerSec of 0 disables limiting.
func NewThrottledStore(inner Store, opsPerSec float64, burst int) *ThrottledStore {
	var limiter *rate.Limiter
	if opsPerSec > 0 {
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opsPerSec), burst)
	}
	return &ThrottledStore{inner: inner, limiter: limiter}
}

func (s *ThrottledStore) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// Load implements Store.
func (s *ThrottledStore) Load(ctx context.Context, key Key) (float64, bool, error) {
	if err := s.wait(ctx); err != nil {
		return 0, false, err
	}
	return s.inner.Load(ctx, key)
}

// Insert implements Store.
func (s *ThrottledStore) Insert(ctx context.Context, key Key, value float64) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.inner.Insert(ctx, key, value)
}

// Close implements Store.
func (s *ThrottledStore) Close() error {
	return s.inner.Close()
}
