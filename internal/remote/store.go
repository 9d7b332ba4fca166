// Package remote provides the path-addressed JSON document store used as the sync target.
// Any gocloud.dev/blob bucket can back it: mem://, file://, s3://, gs:// or azblob://.
package remote

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	apperrors "github.com/allisson/ledgersync/internal/errors"

	// Register all bucket provider drivers
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

const jsonContentType = "application/json"

// ErrNotFound indicates the remote object does not exist.
var ErrNotFound = apperrors.Wrap(apperrors.ErrNotFound, "remote object not found")

// Store is a remote document store without transactions and with eventual visibility.
type Store interface {
	// List returns every object path below folder, recursively, in lexical order.
	List(ctx context.Context, folder string) ([]string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	// PutJSON fully overwrites the object at path and returns its new ETag when the
	// provider reports one.
	PutJSON(ctx context.Context, path string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
}

// BucketStore implements Store on top of a gocloud.dev/blob bucket.
type BucketStore struct {
	bucket *blob.Bucket
}

// NewBucketStore creates a BucketStore over an already opened bucket.
func NewBucketStore(bucket *blob.Bucket) *BucketStore {
	return &BucketStore{bucket: bucket}
}

// OpenBucketStore opens the bucket at bucketURL. A non-empty prefix scopes every path
// below it, so several devices or tenants can share one bucket.
func OpenBucketStore(ctx context.Context, bucketURL, prefix string) (*BucketStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote bucket: %w", err)
	}
	if prefix != "" {
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		bucket = blob.PrefixedBucket(bucket, prefix)
	}
	return NewBucketStore(bucket), nil
}

// List returns every object path below folder.
func (s *BucketStore) List(ctx context.Context, folder string) ([]string, error) {
	prefix := strings.TrimSuffix(folder, "/") + "/"
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})

	var paths []string
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, unavailable("list", folder, err)
		}
		if obj.IsDir {
			continue
		}
		paths = append(paths, obj.Key)
	}

	sort.Strings(paths)
	return paths, nil
}

// Get reads the object at path.
func (s *BucketStore) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, path)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrNotFound
		}
		return nil, unavailable("get", path, err)
	}
	return data, nil
}

// PutJSON overwrites the object at path with data.
func (s *BucketStore) PutJSON(ctx context.Context, path string, data []byte) (string, error) {
	err := s.bucket.WriteAll(ctx, path, data, &blob.WriterOptions{ContentType: jsonContentType})
	if err != nil {
		return "", unavailable("put", path, err)
	}

	attrs, err := s.bucket.Attributes(ctx, path)
	if err != nil {
		return "", nil
	}
	return attrs.ETag, nil
}

// Delete removes the object at path.
func (s *BucketStore) Delete(ctx context.Context, path string) error {
	if err := s.bucket.Delete(ctx, path); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return ErrNotFound
		}
		return unavailable("delete", path, err)
	}
	return nil
}

// Online reports whether the bucket can currently be reached.
func (s *BucketStore) Online(ctx context.Context) bool {
	ok, err := s.bucket.IsAccessible(ctx)
	return err == nil && ok
}

// Close releases the bucket.
func (s *BucketStore) Close() error {
	return s.bucket.Close()
}

func unavailable(op, path string, err error) error {
	return fmt.Errorf("%w: remote %s %s: %w", apperrors.ErrUnavailable, op, path, err)
}
