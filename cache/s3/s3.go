// Package s3 backs the matrix element cache with an S3 bucket and publishes
// cache archives through the S3 upload manager.
package s3

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/pairspec/pairspec/cache"
)

// Client is the subset of the S3 API the store uses. *s3.Client satisfies
// it; tests substitute an in-memory fake.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	manager.UploadAPIClient
}

var errKeyMismatch = errors.New("s3: record key mismatch")

// Store implements cache.Store on an S3 bucket. Objects are named by the
// key's content digest with a two-hex-digit fan-out, and insert-if-absent
// uses conditional writes (If-None-Match: *), so the first writer wins even
// across machines.
type Store struct {
	client Client
	bucket string
	prefix string
}

// NewStore creates an S3-backed store. rootPrefix is prepended to all
// object keys (e.g. "elements/").
func NewStore(client Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) objectKey(key cache.Key) string {
	digest := key.Digest()
	name := hex.EncodeToString(digest[:])
	return path.Join(s.prefix, name[:2], name[2:]+".rec")
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed"
}

// Load implements cache.Store.
func (s *Store) Load(ctx context.Context, key cache.Key) (float64, bool, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	defer resp.Body.Close()

	record, err := io.ReadAll(resp.Body)
	if err != nil {
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

// Insert implements cache.Store. The conditional put succeeds only when the
// object does not exist yet; a precondition failure means another writer got
// there first, which is fine.
func (s *Store) Insert(ctx context.Context, key cache.Key, value float64) error {
	record := cache.EncodeRecord(key, value)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(record),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil && !isPreconditionFailed(err) {
		return err
	}
	return nil
}

// ExportArchive streams an archive of src to s3://bucket/prefix/name using
// the upload manager, so large caches do not need to be buffered in memory.
func (s *Store) ExportArchive(ctx context.Context, name string, src cache.Enumerator, codec cache.CompressionType) (int, error) {
	pr, pw := io.Pipe()
	uploader := manager.NewUploader(s.client)

	done := make(chan error, 1)
	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(path.Join(s.prefix, name)),
			Body:   pr,
		})
		_ = pr.CloseWithError(err)
		done <- err
	}()

	count, exportErr := cache.Export(ctx, pw, src, codec)
	_ = pw.CloseWithError(exportErr)
	uploadErr := <-done

	if exportErr != nil {
		return count, exportErr
	}
	return count, uploadErr
}

// ImportArchive fetches s3://bucket/prefix/name and inserts its entries
// into dst.
func (s *Store) ImportArchive(ctx context.Context, name string, dst cache.Store) (int, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path.Join(s.prefix, name)),
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return cache.Import(ctx, resp.Body, dst)
}

// Close implements cache.Store. The S3 client is owned by the caller.
func (s *Store) Close() error {
	return nil
}
