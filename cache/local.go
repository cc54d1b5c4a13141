package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	recordSuffix = ".rec"
	packSuffix   = ".pack"
	packsDirName = "packs"
)

// LocalStore is a content-addressed on-disk Store. Every entry lives under
// a path derived from the SHA-256 digest of its key, so independent worker
// processes sharing the directory address the same entry identically.
//
// Entries are written as loose record files first; Compact folds loose
// records into compressed, memory-mapped pack files. Insertion uses
// link-into-place, which cannot replace an existing file: when two processes
// race on one key, the first writer wins and the loser's write is discarded.
type LocalStore struct {
	dir   string
	codec CompressionType

	mu     sync.RWMutex
	packs  []*packReader
	closed bool
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithPackCompression selects the compression for pack files written by
// Compact. The default is ZSTD.
func WithPackCompression(c CompressionType) LocalOption {
	return func(s *LocalStore) {
		s.codec = c
	}
}

// NewLocalStore opens (creating if needed) a cache directory. Existing pack
// files are memory-mapped; a corrupt pack fails the open, and the caller
// decides whether to degrade to memory-only operation.
func NewLocalStore(dir string, opts ...LocalOption) (*LocalStore, error) {
	s := &LocalStore{dir: dir, codec: CompressionZSTD}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Join(dir, packsDirName), 0755); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}

	paths, err := filepath.Glob(filepath.Join(dir, packsDirName, "*"+packSuffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	for _, path := range paths {
		r, err := openPack(path)
		if err != nil {
			for _, p := range s.packs {
				_ = p.Close()
			}
			return nil, err
		}
		s.packs = append(s.packs, r)
	}
	return s, nil
}

// Dir returns the cache directory.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) recordPath(key Key) string {
	d := key.Digest()
	name := hex.EncodeToString(d[:])
	return filepath.Join(s.dir, name[:2], name[2:]+recordSuffix)
}

// Load implements Store. Loose records shadow packs, but both hold the same
// value for a key by construction.
func (s *LocalStore) Load(_ context.Context, key Key) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, false, ErrClosed
	}

	data, err := os.ReadFile(s.recordPath(key))
	switch {
	case err == nil:
		gotKey, value, _, err := DecodeRecord(data)
		if err != nil {
			return 0, false, fmt.Errorf("cache: read %s: %w", s.recordPath(key), err)
		}
		if gotKey != key {
			return 0, false, fmt.Errorf("cache: record key mismatch at %s", s.recordPath(key))
		}
		return value, true, nil
	case errors.Is(err, fs.ErrNotExist):
	default:
		return 0, false, err
	}

	for _, p := range s.packs {
		value, found, err := p.Lookup(key)
		if err != nil {
			return 0, false, err
		}
		if found {
			return value, true, nil
		}
	}
	return 0, false, nil
}

// Enumerate implements Enumerator. A key present both as a loose record and
// in a pack is reported once.
func (s *LocalStore) Enumerate(ctx context.Context, fn func(key Key, value float64) bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	seen := make(map[Key]struct{})
	stopped := false
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.dir && d.Name() == packsDirName {
				return fs.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != recordSuffix {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		key, value, _, err := DecodeRecord(data)
		if err != nil {
			return fmt.Errorf("cache: read %s: %w", path, err)
		}
		seen[key] = struct{}{}
		if !fn(key, value) {
			stopped = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil || stopped {
		return err
	}

	for _, p := range s.packs {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := p.Range(func(key Key, value float64) bool {
			if _, ok := seen[key]; ok {
				return true
			}
			seen[key] = struct{}{}
			if !fn(key, value) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		if stopped {
			return nil
		}
	}
	return nil
}

// Insert implements Store. The record is written to a temp file and linked
// into place; a losing racer hits EEXIST and discards its copy.
func (s *LocalStore) Insert(_ context.Context, key Key, value float64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	// Linking refuses to replace a loose record, but a key that was folded
	// into a pack no longer has one, so check the packs explicitly.
	for _, p := range s.packs {
		if _, found, err := p.Lookup(key); err == nil && found {
			return nil
		}
	}

	final := s.recordPath(key)
	shard := filepath.Dir(final)
	if err := os.MkdirAll(shard, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(shard, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	_ = tmp.Chmod(0644)
	if _, err := tmp.Write(EncodeRecord(key, value)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Link(tmpName, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil // first writer won
		}
		return err
	}

	if d, err := os.Open(shard); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// Compact folds all loose records into a new pack file and removes them.
// Concurrent readers keep working throughout: loose records stay in place
// until the pack is durably visible.
func (s *LocalStore) Compact(ctx context.Context) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	var entries []PackEntry
	var loose []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.dir && d.Name() == packsDirName {
				return fs.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != recordSuffix {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		key, value, _, err := DecodeRecord(data)
		if err != nil {
			return fmt.Errorf("cache: compact %s: %w", path, err)
		}
		entries = append(entries, PackEntry{Key: key, Value: value})
		loose = append(loose, path)
		return nil
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.ShortDigest() < entries[j].Key.ShortDigest()
	})

	path := filepath.Join(s.dir, packsDirName, fmt.Sprintf("%020d%s", time.Now().UnixNano(), packSuffix))
	if err := writePack(path, entries, s.codec); err != nil {
		return err
	}
	r, err := openPack(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = r.Close()
		return ErrClosed
	}
	s.packs = append(s.packs, r)
	s.mu.Unlock()

	for _, path := range loose {
		_ = os.Remove(path)
	}
	return nil
}

// Packs returns the number of open pack files.
func (s *LocalStore) Packs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.packs)
}

// Close implements Store.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	for _, p := range s.packs {
		if closeErr := p.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	s.packs = nil
	return err
}
