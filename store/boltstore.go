package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/rentshare/pool"
)

// lockTimeout bounds the wait for another process holding the database.
const lockTimeout = 2 * time.Second

var (
	bucketMeta      = []byte("meta")
	bucketOutpoints = []byte("outpoints")

	keySnapshot = []byte("snapshot")
)

// BoltStore persists ledger state in a bbolt database.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketOutpoints} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("store: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Commit replaces the stored pool state and records ops in a single
// transaction.
func (s *BoltStore) Commit(snap *pool.Snapshot, ops ...Outpoint) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	for _, op := range ops {
		if err := op.validate(); err != nil {
			return err
		}
	}
	data, err := pool.SerializeSnapshot(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketMeta).Put(keySnapshot, data); err != nil {
			return fmt.Errorf("store: put snapshot: %w", err)
		}
		b := tx.Bucket(bucketOutpoints)
		for _, op := range ops {
			if err := b.Put([]byte(op.String()), []byte{1}); err != nil {
				return fmt.Errorf("store: put outpoint: %w", err)
			}
		}
		return nil
	})
}

// LoadSnapshot returns the stored pool state.
func (s *BoltStore) LoadSnapshot() (*pool.Snapshot, error) {
	var snap *pool.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySnapshot)
		if data == nil {
			return ErrNotFound
		}
		// data is only valid inside the transaction; the decoder copies it.
		var err error
		snap, err = pool.DeserializeSnapshot(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// HasOutpoint reports whether op was recorded.
func (s *BoltStore) HasOutpoint(op Outpoint) (bool, error) {
	if err := op.validate(); err != nil {
		return false, err
	}
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketOutpoints).Get([]byte(op.String())) != nil
		return nil
	})
	return found, err
}
