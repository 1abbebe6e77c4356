// Package store persists the pool ledger and the set of chain outputs the
// ledger has already accounted for.
package store

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bitfsorg/rentshare/pool"
)

// Store persists ledger state.
type Store interface {
	// Commit replaces the stored pool state and records outputs that must
	// not be credited as rent again, in one atomic write.
	Commit(s *pool.Snapshot, ops ...Outpoint) error

	// LoadSnapshot returns the last saved pool state, or ErrNotFound.
	LoadSnapshot() (*pool.Snapshot, error)

	// HasOutpoint reports whether op has been recorded.
	HasOutpoint(op Outpoint) (bool, error)

	// Close releases resources.
	Close() error
}

// Outpoint identifies a transaction output by hex txid and output index.
type Outpoint struct {
	TxID string
	Vout uint32
}

// String renders the outpoint as "txid:vout".
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", strings.ToLower(o.TxID), o.Vout)
}

// ParseOutpoint parses the "txid:vout" form produced by String.
func ParseOutpoint(s string) (Outpoint, error) {
	txid, vout, ok := strings.Cut(s, ":")
	if !ok {
		return Outpoint{}, fmt.Errorf("%w: %q is not txid:vout", ErrInvalidOutpoint, s)
	}
	n, err := strconv.ParseUint(vout, 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf("%w: vout %q: %w", ErrInvalidOutpoint, vout, err)
	}
	op := Outpoint{TxID: strings.ToLower(txid), Vout: uint32(n)}
	if err := op.validate(); err != nil {
		return Outpoint{}, err
	}
	if _, err := hex.DecodeString(op.TxID); err != nil {
		return Outpoint{}, fmt.Errorf("%w: txid: %w", ErrInvalidOutpoint, err)
	}
	return op, nil
}

func (o Outpoint) validate() error {
	if len(o.TxID) != 64 {
		return fmt.Errorf("%w: txid must be 64 hex chars, got %d", ErrInvalidOutpoint, len(o.TxID))
	}
	return nil
}

// MemStore is an in-memory implementation of Store for testing.
type MemStore struct {
	mu        sync.RWMutex
	snapshot  []byte
	outpoints map[string]struct{}
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{outpoints: make(map[string]struct{})}
}

// Commit stores an encoded copy of s and records ops.
func (m *MemStore) Commit(s *pool.Snapshot, ops ...Outpoint) error {
	if s == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	for _, op := range ops {
		if err := op.validate(); err != nil {
			return err
		}
	}
	data, err := pool.SerializeSnapshot(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = data
	for _, op := range ops {
		m.outpoints[op.String()] = struct{}{}
	}
	return nil
}

// LoadSnapshot decodes the stored snapshot.
func (m *MemStore) LoadSnapshot() (*pool.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return nil, ErrNotFound
	}
	return pool.DeserializeSnapshot(m.snapshot)
}

// HasOutpoint reports whether op was recorded.
func (m *MemStore) HasOutpoint(op Outpoint) (bool, error) {
	if err := op.validate(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.outpoints[op.String()]
	return ok, nil
}

// Close is a no-op.
func (m *MemStore) Close() error { return nil }
