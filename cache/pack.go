package cache

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pairspec/pairspec/internal/mmap"
)

const (
	// packMagic identifies compacted record pack files (ASCII: "MEPK").
	packMagic = 0x4D45504B
	// packVersion is the current pack format version.
	packVersion = 0x00010000

	packHeaderSize     = 20 // magic u32, version u32, codec u8, pad [3]u8, blockCount u32, entryCount u32
	packIndexEntrySize = 16 // digest u64, block u32, offset u32
	packFooterSize     = 4  // crc32 u32

	// packBlockTarget is the raw size at which a block is cut.
	packBlockTarget = 64 * 1024
)

var ErrInvalidPack = errors.New("invalid pack file")

// PackEntry is one record destined for a pack file.
type PackEntry struct {
	Key   Key
	Value float64
}

type packIndexEntry struct {
	digest uint64
	block  uint32
	offset uint32
}

// writePack writes entries into a pack file at path, atomically via a temp
// file and rename. Entries are grouped into compressed blocks and addressed
// by a digest-sorted index at the tail of the file.
//
// Layout, little-endian:
//
//	[header][block]...[block][index entry]...[index entry][crc32]
//
// The CRC32 (IEEE) covers everything before the checksum field.
func writePack(path string, entries []PackEntry, codec CompressionType) error {
	// Assemble blocks and the index in memory first; packs are bounded by
	// the loose record population, which is small compared to RAM.
	var blocks [][]byte
	index := make([]packIndexEntry, 0, len(entries))

	var raw []byte
	flush := func() error {
		if len(raw) == 0 {
			return nil
		}
		block, err := compressBlock(raw, codec)
		if err != nil {
			return err
		}
		blocks = append(blocks, block)
		raw = raw[:0]
		return nil
	}

	for _, e := range entries {
		if len(raw) >= packBlockTarget {
			if err := flush(); err != nil {
				return err
			}
		}
		index = append(index, packIndexEntry{
			digest: e.Key.ShortDigest(),
			block:  uint32(len(blocks)),
			offset: uint32(len(raw)),
		})
		raw = append(raw, EncodeRecord(e.Key, e.Value)...)
	}
	if err := flush(); err != nil {
		return err
	}

	sort.Slice(index, func(i, j int) bool { return index[i].digest < index[j].digest })

	return saveToFile(path, func(w io.Writer) error {
		crc := crc32.NewIEEE()
		out := io.MultiWriter(w, crc)

		var header [packHeaderSize]byte
		binary.LittleEndian.PutUint32(header[0:], packMagic)
		binary.LittleEndian.PutUint32(header[4:], packVersion)
		header[8] = byte(codec)
		binary.LittleEndian.PutUint32(header[12:], uint32(len(blocks)))
		binary.LittleEndian.PutUint32(header[16:], uint32(len(index)))
		if _, err := out.Write(header[:]); err != nil {
			return err
		}

		for _, block := range blocks {
			if _, err := out.Write(block); err != nil {
				return err
			}
		}

		var entry [packIndexEntrySize]byte
		for _, ie := range index {
			binary.LittleEndian.PutUint64(entry[0:], ie.digest)
			binary.LittleEndian.PutUint32(entry[8:], ie.block)
			binary.LittleEndian.PutUint32(entry[12:], ie.offset)
			if _, err := out.Write(entry[:]); err != nil {
				return err
			}
		}

		var footer [packFooterSize]byte
		binary.LittleEndian.PutUint32(footer[:], crc.Sum32())
		_, err := w.Write(footer[:])
		return err
	})
}

// saveToFile writes a file atomically: temp file in the target directory,
// flush, sync, rename, then a best-effort directory sync.
func saveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// packReader serves lookups from one memory-mapped pack file.
type packReader struct {
	f     *mmap.File
	codec CompressionType
	// blockStarts[i] is the file offset of block i.
	blockStarts []int
	index       []packIndexEntry

	mu        sync.Mutex
	lastBlock int
	lastData  []byte
}

// openPack memory-maps and validates a pack file.
func openPack(path string) (*packReader, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := parsePack(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPack, filepath.Base(path), err)
	}
	return r, nil
}

func parsePack(f *mmap.File) (*packReader, error) {
	data := f.Data
	if len(data) < packHeaderSize+packFooterSize {
		return nil, fmt.Errorf("too small (%d bytes)", len(data))
	}
	if got := binary.LittleEndian.Uint32(data); got != packMagic {
		return nil, fmt.Errorf("%w: %08x", ErrInvalidMagic, got)
	}
	if got := binary.LittleEndian.Uint32(data[4:]); got != packVersion {
		return nil, fmt.Errorf("%w: %08x", ErrInvalidVersion, got)
	}

	crcOffset := len(data) - packFooterSize
	wantCRC := binary.LittleEndian.Uint32(data[crcOffset:])
	if gotCRC := crc32.ChecksumIEEE(data[:crcOffset]); gotCRC != wantCRC {
		return nil, &ChecksumMismatchError{Expected: wantCRC, Actual: gotCRC}
	}

	r := &packReader{
		f:         f,
		codec:     CompressionType(data[8]),
		lastBlock: -1,
	}
	blockCount := int(binary.LittleEndian.Uint32(data[12:]))
	entryCount := int(binary.LittleEndian.Uint32(data[16:]))

	off := packHeaderSize
	r.blockStarts = make([]int, blockCount)
	for i := 0; i < blockCount; i++ {
		r.blockStarts[i] = off
		size, err := blockSize(data[off:crcOffset])
		if err != nil {
			return nil, err
		}
		off += size
	}

	indexBytes := crcOffset - off
	if indexBytes != entryCount*packIndexEntrySize {
		return nil, fmt.Errorf("index size mismatch: %d bytes for %d entries", indexBytes, entryCount)
	}
	r.index = make([]packIndexEntry, entryCount)
	for i := range r.index {
		e := data[off+i*packIndexEntrySize:]
		r.index[i] = packIndexEntry{
			digest: binary.LittleEndian.Uint64(e[0:]),
			block:  binary.LittleEndian.Uint32(e[8:]),
			offset: binary.LittleEndian.Uint32(e[12:]),
		}
	}
	return r, nil
}

// Len returns the number of entries in the pack.
func (r *packReader) Len() int { return len(r.index) }

// Lookup returns the value stored for key, if present.
func (r *packReader) Lookup(key Key) (float64, bool, error) {
	digest := key.ShortDigest()
	i := sort.Search(len(r.index), func(i int) bool { return r.index[i].digest >= digest })
	for ; i < len(r.index) && r.index[i].digest == digest; i++ {
		gotKey, value, err := r.decodeAt(r.index[i])
		if err != nil {
			return 0, false, err
		}
		// Short digests can collide; confirm the full key.
		if gotKey == key {
			return value, true, nil
		}
	}
	return 0, false, nil
}

// Range calls fn for every entry in the pack until fn returns false.
func (r *packReader) Range(fn func(key Key, value float64) bool) error {
	for _, ie := range r.index {
		key, value, err := r.decodeAt(ie)
		if err != nil {
			return err
		}
		if !fn(key, value) {
			return nil
		}
	}
	return nil
}

func (r *packReader) decodeAt(ie packIndexEntry) (Key, float64, error) {
	block, err := r.block(int(ie.block))
	if err != nil {
		return Key{}, 0, err
	}
	if int(ie.offset) >= len(block) {
		return Key{}, 0, fmt.Errorf("cache: pack offset %d beyond block of %d bytes", ie.offset, len(block))
	}
	key, value, _, err := DecodeRecord(block[ie.offset:])
	return key, value, err
}

// block returns the decompressed contents of block i, caching the most
// recently used block.
func (r *packReader) block(i int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i == r.lastBlock {
		return r.lastData, nil
	}
	if i < 0 || i >= len(r.blockStarts) {
		return nil, fmt.Errorf("cache: pack block %d out of range", i)
	}
	data, err := decompressBlock(r.f.Data[r.blockStarts[i]:], r.codec)
	if err != nil {
		return nil, err
	}
	r.lastBlock, r.lastData = i, data
	return data, nil
}

// Close unmaps the pack file.
func (r *packReader) Close() error {
	return r.f.Close()
}
