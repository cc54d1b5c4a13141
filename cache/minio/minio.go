// Package minio backs the matrix element cache with a MinIO or other
// S3-compatible bucket, which is how a cluster shares one cache without a
// common filesystem.
package minio

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/pairspec/pairspec/cache"
)

var errKeyMismatch = errors.New("minio: record key mismatch")

// Store implements cache.Store on a MinIO bucket. Objects are named by the
// key's content digest with a two-hex-digit fan-out, the same layout the
// local directory store uses.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a MinIO-backed store. rootPrefix is prepended to all
// object names (e.g. "elements/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) objectName(key cache.Key) string {
	digest := key.Digest()
	name := hex.EncodeToString(digest[:])
	return path.Join(s.prefix, name[:2], name[2:]+".rec")
}

func isNotFound(err error) bool {
	errResp := minio.ToErrorResponse(err)
	return errResp.Code == "NoSuchKey" || errResp.Code == "NotFound"
}

// Load implements cache.Store.
func (s *Store) Load(ctx context.Context, key cache.Key) (float64, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	defer obj.Close()

	record, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}

	gotKey, value, _, err := cache.DecodeRecord(record)
	if err != nil {
		return 0, false, err
	}
	if gotKey != key {
		return 0, false, errKeyMismatch
	}
	return value, true, nil
}

// Insert implements cache.Store. An existing object is left untouched; when
// two writers race past the existence check, both upload the same record
// bytes, so either winner leaves the correct value in place.
func (s *Store) Insert(ctx context.Context, key cache.Key, value float64) error {
	name := s.objectName(key)

	_, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	record := cache.EncodeRecord(key, value)
	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(record),
		int64(len(record)), minio.PutObjectOptions{ContentType: "application/octet-stream"})
	return err
}

// Close implements cache.Store. The minio client is owned by the caller.
func (s *Store) Close() error {
	return nil
}
