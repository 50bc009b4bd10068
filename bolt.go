package userstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// valuesBucket is the single bucket holding every entry. The composite
// key space above it already partitions users, so no nesting is needed.
var valuesBucket = []byte("values")

// Bolt implements Driver on a bbolt file. Every Set and Delete runs in
// its own write transaction, so the write is fsynced before the call
// returns and reads from other goroutines never observe a torn value.
type Bolt struct {
	db   *bolt.DB
	path string

	// removeOnClose holds the temp directory of an ephemeral store,
	// empty for persistent stores.
	removeOnClose string
}

// NewBolt opens a persistent disk-backed Driver at path, creating the
// file if it is absent.
func NewBolt(path string) (Driver, error) {
	return openBolt(path, "")
}

// newTempBolt creates an ephemeral store under a private temp directory.
// Closing the driver removes the directory again.
func newTempBolt() (Driver, error) {
	dir, err := os.MkdirTemp("", "userstore-")
	if err != nil {
		return nil, fmt.Errorf("userstore: create temp dir: %w", err)
	}
	store, err := openBolt(filepath.Join(dir, uuid.NewString()+".db"), dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return store, nil
}

func openBolt(path, removeOnClose string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("userstore: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(valuesBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("userstore: ensure bucket in %s: %w", path, err)
	}
	return &Bolt{db: db, path: path, removeOnClose: removeOnClose}, nil
}

func (b *Bolt) update(fn func(bk *bolt.Bucket) error) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(valuesBucket))
	})
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

func (b *Bolt) view(fn func(bk *bolt.Bucket) error) error {
	err := b.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(valuesBucket))
	})
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

func (b *Bolt) Set(ctx context.Context, key string, value []byte) error {
	return b.update(func(bk *bolt.Bucket) error {
		return bk.Put([]byte(key), value)
	})
}

func (b *Bolt) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.view(func(bk *bolt.Bucket) error {
		stored := bk.Get([]byte(key))
		if stored == nil {
			return ErrNotFound
		}
		// Copy out: bbolt values are only valid inside the transaction.
		value = clone(stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *Bolt) Delete(ctx context.Context, key string) error {
	return b.update(func(bk *bolt.Bucket) error {
		return bk.Delete([]byte(key))
	})
}

func (b *Bolt) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := b.view(func(bk *bolt.Bucket) error {
		exists = bk.Get([]byte(key)) != nil
		return nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Keys returns all keys starting with prefix via a cursor seek.
func (b *Bolt) Keys(ctx context.Context, prefix string) ([]string, error) {
	var result []string
	err := b.view(func(bk *bolt.Bucket) error {
		c := bk.Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			result = append(result, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Clear removes all keys starting with prefix in one write transaction.
func (b *Bolt) Clear(ctx context.Context, prefix string) error {
	return b.update(func(bk *bolt.Bucket) error {
		c := bk.Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Bolt) Location() string {
	return b.path
}

func (b *Bolt) Close() error {
	err := b.db.Close()
	if b.removeOnClose != "" {
		if rmErr := os.RemoveAll(b.removeOnClose); err == nil {
			err = rmErr
		}
	}
	return err
}
