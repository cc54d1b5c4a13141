package cache

import (
	"context"
	"errors"
)

// ErrClosed is returned by store operations after Close.
var ErrClosed = errors.New("cache: store closed")

// Store is the durable tier behind the in-memory cache. Implementations must
// be safe for concurrent use and must give insert-if-absent semantics: when
// several writers race on one key, exactly one value becomes visible and the
// losers' inserts are silently discarded.
//
// A missing entry is reported as found == false, not as an error; errors mean
// the store itself misbehaved.
type Store interface {
	// Load looks up a key.
	Load(ctx context.Context, key Key) (value float64, found bool, err error)

	// Insert writes the entry unless the key is already present. Inserting
	// an existing key is a no-op regardless of value.
	Insert(ctx context.Context, key Key, value float64) error

	// Close releases store resources.
	Close() error
}

// Enumerator is implemented by stores whose entries can be listed, which is
// what Export needs. Iteration stops early when fn returns false.
type Enumerator interface {
	Enumerate(ctx context.Context, fn func(key Key, value float64) bool) error
}
