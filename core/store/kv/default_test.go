package kv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/internal/testing/fake"
)

func TestBoltDB_UpdateAndView(t *testing.T) {
	db := newTestDB(t)

	committed := false

	err := db.Update(func(tx WritableTx) error {
		bucket, err := tx.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)

		tx.OnCommit(func() { committed = true })

		return bucket.Set([]byte("ping"), []byte("pong"))
	})
	require.NoError(t, err)
	require.True(t, committed)

	err = db.View(func(tx ReadableTx) error {
		bucket := tx.GetBucket([]byte("bucket"))
		require.NotNil(t, bucket)
		require.Equal(t, []byte("pong"), bucket.Get([]byte("ping")))
		require.Nil(t, bucket.Get([]byte("unknown")))

		require.Nil(t, tx.GetBucket([]byte("unknown")))

		return nil
	})
	require.NoError(t, err)
}

func TestBoltDB_UpdateRollback(t *testing.T) {
	db := newTestDB(t)

	committed := false

	err := db.Update(func(tx WritableTx) error {
		bucket, err := tx.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)

		tx.OnCommit(func() { committed = true })

		require.NoError(t, bucket.Set([]byte("ping"), []byte("pong")))

		return fake.GetError()
	})
	require.EqualError(t, err, fake.GetError().Error())
	require.False(t, committed)

	err = db.View(func(tx ReadableTx) error {
		require.Nil(t, tx.GetBucket([]byte("bucket")))
		return nil
	})
	require.NoError(t, err)
}

func TestBoltDB_GetBucketOrCreate(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(func(tx WritableTx) error {
		_, err := tx.GetBucketOrCreate(nil)
		return err
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "create bucket failed: ")
}

func TestBoltBucket_Delete(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(func(tx WritableTx) error {
		bucket, err := tx.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)

		require.NoError(t, bucket.Set([]byte("ping"), []byte("pong")))
		require.NoError(t, bucket.Delete([]byte("ping")))
		require.Nil(t, bucket.Get([]byte("ping")))

		return nil
	})
	require.NoError(t, err)
}

func TestBoltBucket_ForEachAndScan(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(func(tx WritableTx) error {
		bucket, err := tx.GetBucketOrCreate([]byte("bucket"))
		require.NoError(t, err)

		require.NoError(t, bucket.Set([]byte("a1"), []byte{1}))
		require.NoError(t, bucket.Set([]byte("a2"), []byte{2}))
		require.NoError(t, bucket.Set([]byte("b1"), []byte{3}))

		return nil
	})
	require.NoError(t, err)

	err = db.View(func(tx ReadableTx) error {
		bucket := tx.GetBucket([]byte("bucket"))

		count := 0
		err := bucket.ForEach(func(k, v []byte) error {
			count++
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, count)

		var keys []string
		err = bucket.Scan([]byte("a"), func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, []string{"a1", "a2"}, keys)

		err = bucket.Scan([]byte("b"), func(k, v []byte) error {
			return fake.GetError()
		})
		require.EqualError(t, err, fake.Err("callback failed"))

		return nil
	})
	require.NoError(t, err)
}

func TestBoltDB_Close(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	require.NoError(t, db.Close())

	err = db.View(func(ReadableTx) error { return nil })
	require.Error(t, err)
}

func TestNew_Failure(t *testing.T) {
	_, err := New(t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to open db: ")
}

// -----------------------------------------------------------------------------
// Utility functions

func newTestDB(t *testing.T) DB {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}
