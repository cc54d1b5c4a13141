package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
)

const (
	// recordMagic identifies matrix element record data (ASCII: "MERC").
	recordMagic = 0x4D455243
	// recordVersion is the current record format version.
	recordVersion = 0x00010000

	recordHeaderSize  = 12 // magic u32, version u32, key length u32
	recordTrailerSize = 12 // value f64, crc32 u32
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported record version")
)

// ChecksumMismatchError reports record corruption detected by the CRC32
// trailer.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("record checksum mismatch: expected %08x, got %08x", e.Expected, e.Actual)
}

// EncodeRecord serializes one cache entry. Layout, little-endian:
//
//	[magic u32][version u32][keyLen u32][key bytes][value f64][crc32 u32]
//
// The CRC32 (IEEE) covers everything before the checksum field, so a record
// read back is either bit-identical to what was written or rejected.
func EncodeRecord(key Key, value float64) []byte {
	keyBytes := key.appendEncoded(nil)

	buf := make([]byte, 0, recordHeaderSize+len(keyBytes)+recordTrailerSize)
	buf = binary.LittleEndian.AppendUint32(buf, recordMagic)
	buf = binary.LittleEndian.AppendUint32(buf, recordVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(keyBytes)))
	buf = append(buf, keyBytes...)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(value))
	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	return buf
}

// DecodeRecord parses and verifies one record, returning the number of bytes
// consumed so that concatenated records can be walked sequentially.
func DecodeRecord(data []byte) (Key, float64, int, error) {
	if len(data) < recordHeaderSize+recordTrailerSize {
		return Key{}, 0, 0, fmt.Errorf("cache: record truncated at %d bytes", len(data))
	}
	if got := binary.LittleEndian.Uint32(data); got != recordMagic {
		return Key{}, 0, 0, fmt.Errorf("%w: %08x", ErrInvalidMagic, got)
	}
	if got := binary.LittleEndian.Uint32(data[4:]); got != recordVersion {
		return Key{}, 0, 0, fmt.Errorf("%w: %08x", ErrInvalidVersion, got)
	}
	keyLen := int(binary.LittleEndian.Uint32(data[8:]))
	total := recordHeaderSize + keyLen + recordTrailerSize
	if keyLen < 0 || len(data) < total {
		return Key{}, 0, 0, fmt.Errorf("cache: record truncated, need %d bytes have %d", total, len(data))
	}

	crcOffset := total - 4
	wantCRC := binary.LittleEndian.Uint32(data[crcOffset:])
	if gotCRC := crc32.ChecksumIEEE(data[:crcOffset]); gotCRC != wantCRC {
		return Key{}, 0, 0, &ChecksumMismatchError{Expected: wantCRC, Actual: gotCRC}
	}

	key, rest, err := decodeKey(data[recordHeaderSize : recordHeaderSize+keyLen])
	if err != nil {
		return Key{}, 0, 0, err
	}
	if len(rest) != 0 {
		return Key{}, 0, 0, fmt.Errorf("cache: %d trailing key bytes", len(rest))
	}

	value := math.Float64frombits(binary.LittleEndian.Uint64(data[recordHeaderSize+keyLen:]))
	return key, value, total, nil
}
