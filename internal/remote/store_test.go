package remote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"

	apperrors "github.com/allisson/ledgersync/internal/errors"
)

func newMemStore(t *testing.T) *BucketStore {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { _ = bucket.Close() })
	return NewBucketStore(bucket)
}

func TestOpenBucketStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_MemURL", func(t *testing.T) {
		store, err := OpenBucketStore(ctx, "mem://", "")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		assert.True(t, store.Online(ctx))
	})

	t.Run("Success_WithPrefix", func(t *testing.T) {
		dir := t.TempDir()
		store, err := OpenBucketStore(ctx, "file://"+dir, "store-42")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		_, err = store.PutJSON(ctx, "payments/p1.json", []byte(`{"id":"p1"}`))
		require.NoError(t, err)

		paths, err := store.List(ctx, "payments")
		require.NoError(t, err)
		assert.Equal(t, []string{"payments/p1.json"}, paths)

		// a second, unprefixed view of the same directory sees the scoped key
		raw, err := fileblob.OpenBucket(dir, nil)
		require.NoError(t, err)
		defer func() { _ = raw.Close() }()

		exists, err := raw.Exists(ctx, "store-42/payments/p1.json")
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = raw.Exists(ctx, "payments/p1.json")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Error_UnknownScheme", func(t *testing.T) {
		store, err := OpenBucketStore(ctx, "unknown://bucket", "")
		assert.Error(t, err)
		assert.Nil(t, store)
		assert.Contains(t, err.Error(), "failed to open remote bucket")
	})
}

func TestBucketStore_PutJSONAndGet(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(t)

	_, err := store.PutJSON(ctx, "customers/c1/profile.json", []byte(`{"id":"c1","updatedAt":1}`))
	require.NoError(t, err)

	data, err := store.Get(ctx, "customers/c1/profile.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1","updatedAt":1}`, string(data))

	// Full overwrite
	_, err = store.PutJSON(ctx, "customers/c1/profile.json", []byte(`{"id":"c1","updatedAt":2}`))
	require.NoError(t, err)

	data, err = store.Get(ctx, "customers/c1/profile.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1","updatedAt":2}`, string(data))
}

func TestBucketStore_Get_NotFound(t *testing.T) {
	store := newMemStore(t)

	data, err := store.Get(context.Background(), "customers/missing/profile.json")
	assert.Nil(t, data)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestBucketStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(t)

	t.Run("Success", func(t *testing.T) {
		_, err := store.PutJSON(ctx, "payments/p1.json", []byte(`{}`))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "payments/p1.json"))

		_, err = store.Get(ctx, "payments/p1.json")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		err := store.Delete(ctx, "payments/missing.json")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBucketStore_List(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(t)

	for _, path := range []string{
		"customers/c2/profile.json",
		"customers/c1/orders/o1.json",
		"customers/c1/profile.json",
		"payments/p1.json",
	} {
		_, err := store.PutJSON(ctx, path, []byte(`{}`))
		require.NoError(t, err)
	}

	t.Run("Recursive", func(t *testing.T) {
		paths, err := store.List(ctx, "customers")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"customers/c1/orders/o1.json",
			"customers/c1/profile.json",
			"customers/c2/profile.json",
		}, paths)
	})

	t.Run("TrailingSlash", func(t *testing.T) {
		paths, err := store.List(ctx, "payments/")
		require.NoError(t, err)
		assert.Equal(t, []string{"payments/p1.json"}, paths)
	})

	t.Run("EmptyFolder", func(t *testing.T) {
		paths, err := store.List(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, paths)
	})
}

func TestBucketStore_Online_Closed(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	store := NewBucketStore(bucket)
	require.NoError(t, store.Close())

	assert.False(t, store.Online(context.Background()))
}

func TestRateLimitedStore(t *testing.T) {
	ctx := context.Background()
	inner := newMemStore(t)

	t.Run("Success_DelegatesCalls", func(t *testing.T) {
		store := NewRateLimitedStore(inner, 1000, 10)

		_, err := store.PutJSON(ctx, "payments/p1.json", []byte(`{"id":"p1"}`))
		require.NoError(t, err)

		data, err := store.Get(ctx, "payments/p1.json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"p1"}`, string(data))

		paths, err := store.List(ctx, "payments")
		require.NoError(t, err)
		assert.Equal(t, []string{"payments/p1.json"}, paths)

		require.NoError(t, store.Delete(ctx, "payments/p1.json"))
	})

	t.Run("Error_ContextDeadline", func(t *testing.T) {
		store := NewRateLimitedStore(inner, 0.001, 1)

		// Consume the only token
		_, err := store.List(ctx, "payments")
		require.NoError(t, err)

		timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err = store.Get(timeoutCtx, "payments/p1.json")
		assert.Error(t, err)
	})
}
