package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

const (
	// archiveMagic identifies a matrix element archive (ASCII: "MEAR").
	archiveMagic   = 0x4D454152
	archiveVersion = 1

	archiveHeaderSize = 8 // magic u32, version u8, codec u8, reserved u16

	// archiveBlockTarget is the uncompressed size a block aims for.
	archiveBlockTarget = 64 * 1024
)

// ErrInvalidArchive is returned when an archive stream fails validation.
var ErrInvalidArchive = errors.New("cache: invalid archive")

// Export writes every entry of src into a portable archive stream. Teams
// share precomputed matrix elements this way: one machine computes and
// exports, the others import into their own cache directories.
//
// Layout, little-endian: an 8-byte header, then self-describing compressed
// blocks of concatenated records (records never straddle blocks), an
// all-zero block header as terminator, and a CRC32 of everything before it.
func Export(ctx context.Context, w io.Writer, src Enumerator, codec CompressionType) (int, error) {
	hash := crc32.NewIEEE()
	out := io.MultiWriter(w, hash)

	var header [archiveHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:], archiveMagic)
	header[4] = archiveVersion
	header[5] = uint8(codec)
	if _, err := out.Write(header[:]); err != nil {
		return 0, err
	}

	var buf []byte
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		block, err := compressBlock(buf, codec)
		if err != nil {
			return err
		}
		if _, err := out.Write(block); err != nil {
			return err
		}
		buf = buf[:0]
		return nil
	}

	count := 0
	var exportErr error
	err := src.Enumerate(ctx, func(key Key, value float64) bool {
		buf = append(buf, EncodeRecord(key, value)...)
		count++
		if len(buf) >= archiveBlockTarget {
			if exportErr = flush(); exportErr != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return count, err
	}
	if exportErr != nil {
		return count, exportErr
	}
	if err := flush(); err != nil {
		return count, err
	}

	var terminator [blockHeaderSize]byte
	if _, err := out.Write(terminator[:]); err != nil {
		return count, err
	}
	var footer [4]byte
	binary.LittleEndian.PutUint32(footer[:], hash.Sum32())
	if _, err := w.Write(footer[:]); err != nil {
		return count, err
	}
	return count, nil
}

// Import reads an archive stream and inserts its entries into dst. Entries
// already present in dst keep their stored value. The returned count is the
// number of records carried by the archive.
func Import(ctx context.Context, r io.Reader, dst Store) (int, error) {
	hash := crc32.NewIEEE()
	tee := io.TeeReader(r, hash)

	var header [archiveHeaderSize]byte
	if _, err := io.ReadFull(tee, header[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if got := binary.LittleEndian.Uint32(header[0:]); got != archiveMagic {
		return 0, fmt.Errorf("%w: magic %08x", ErrInvalidArchive, got)
	}
	if header[4] != archiveVersion {
		return 0, fmt.Errorf("%w: version %d", ErrInvalidArchive, header[4])
	}
	codec := CompressionType(header[5])

	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		var blockHeader [blockHeaderSize]byte
		if _, err := io.ReadFull(tee, blockHeader[:]); err != nil {
			return count, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		rawLen := binary.LittleEndian.Uint32(blockHeader[0:])
		compLen := binary.LittleEndian.Uint32(blockHeader[4:])
		if rawLen == 0 && compLen == 0 {
			break
		}

		payloadLen := compLen
		if payloadLen == 0 {
			payloadLen = rawLen
		}
		block := make([]byte, blockHeaderSize+payloadLen)
		copy(block, blockHeader[:])
		if _, err := io.ReadFull(tee, block[blockHeaderSize:]); err != nil {
			return count, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}

		records, err := decompressBlock(block, codec)
		if err != nil {
			return count, err
		}
		for len(records) > 0 {
			key, value, consumed, err := DecodeRecord(records)
			if err != nil {
				return count, err
			}
			if err := dst.Insert(ctx, key, value); err != nil {
				return count, err
			}
			count++
			records = records[consumed:]
		}
	}

	want := hash.Sum32()
	var footer [4]byte
	if _, err := io.ReadFull(r, footer[:]); err != nil {
		return count, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if got := binary.LittleEndian.Uint32(footer[:]); got != want {
		return count, &ChecksumMismatchError{Expected: got, Actual: want}
	}
	return count, nil
}
