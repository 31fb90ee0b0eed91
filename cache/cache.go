package cache

import (
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const BUCKET_NAME = "credentials"

// BoltCache is a persistent cache that uses BoltDB as the backend.
type BoltCache struct {
	db *bolt.DB
}

// NewBoltCache creates a new BoltCache instance with the given path.
// It is up to the caller to close the database when it is no longer needed.
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}

	// Create the bucket if it doesn't exist
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BUCKET_NAME))
		return err
	})

	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create default bucket")
	}

	return &BoltCache{
		db: db,
	}, nil
}

func (c *BoltCache) Get(key string) (value string, exists bool) {
	c.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket([]byte(BUCKET_NAME)).Get([]byte(key))
		if val != nil {
			value = string(val)
			exists = true
		}

		return nil
	})

	return
}

func (c *BoltCache) Put(key, value string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BUCKET_NAME)).Put([]byte(key), []byte(value))
	})
}

// Save stores value under key.
func (c *BoltCache) Save(key, value string) error {
	if err := c.Put(key, value); err != nil {
		return errors.Wrapf(err, "failed to save %s", key)
	}

	return nil
}

// Load returns the value stored under key, if any.
func (c *BoltCache) Load(key string) (string, bool) {
	return c.Get(key)
}

// Close closes the database.
func (c *BoltCache) Close() error {
	return c.db.Close()
}
