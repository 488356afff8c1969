package driven

import (
	"context"
	"errors"

	"go.etcd.io/bbolt"
)

const (
	kvBucket = "kv"
)

// KVBoltDBCache implements the KeyValueCache port using BoltDB.
type KVBoltDBCache struct {
	db *bbolt.DB
}

// NewKVBoltDBCache creates a new BoltDB-backed key-value cache.
// It initializes the required bucket if it doesn't exist.
func NewKVBoltDBCache(db *bbolt.DB) (*KVBoltDBCache, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(kvBucket))
		return err
	})
	if err != nil {
		return nil, err
	}

	return &KVBoltDBCache{db: db}, nil
}

// Get returns the value stored under key.
func (c *KVBoltDBCache) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(kvBucket))
		if bucket == nil {
			return errors.New("kv bucket not found")
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return nil
		}
		// data is only valid for the life of the transaction
		value = string(data)
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

// Set stores value under key, replacing any previous value.
func (c *KVBoltDBCache) Set(key, value string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(kvBucket))
		if bucket == nil {
			return errors.New("kv bucket not found")
		}
		return bucket.Put([]byte(key), []byte(value))
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (c *KVBoltDBCache) Delete(key string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(kvBucket))
		if bucket == nil {
			return errors.New("kv bucket not found")
		}
		return bucket.Delete([]byte(key))
	})
}

// Ping checks if the BoltDB database is accessible and operational.
func (c *KVBoltDBCache) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(kvBucket)) == nil {
			return errors.New("kv bucket not found")
		}
		return nil
	})
}
