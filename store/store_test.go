package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/rentshare/pool"
)

func testOutpoint(seed string, vout uint32) Outpoint {
	return Outpoint{TxID: strings.Repeat(seed, 64/len(seed)), Vout: vout}
}

func testSnapshot(t *testing.T) *pool.Snapshot {
	t.Helper()
	p := pool.New(pool.PayerFunc(func(context.Context, []pool.Payout) error { return nil }))
	var owner, alice pool.Address
	owner[0], alice[0] = 0x01, 0xA1
	require.NoError(t, p.Issue(owner))
	require.NoError(t, p.Move(context.Background(), owner, alice, 20))
	require.NoError(t, p.Deposit(100_000_000))
	return p.Snapshot()
}

// runStoreSuite exercises the Store contract against any implementation.
func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	t.Run("load empty", func(t *testing.T) {
		s := open(t)
		_, err := s.LoadSnapshot()
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("commit and load", func(t *testing.T) {
		s := open(t)
		snap := testSnapshot(t)
		require.NoError(t, s.Commit(snap))

		got, err := s.LoadSnapshot()
		require.NoError(t, err)
		assert.Equal(t, snap, got)
	})

	t.Run("commit replaces", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Commit(testSnapshot(t)))
		empty := pool.New(nil).Snapshot()
		require.NoError(t, s.Commit(empty))

		got, err := s.LoadSnapshot()
		require.NoError(t, err)
		assert.False(t, got.Issued)
	})

	t.Run("commit nil", func(t *testing.T) {
		s := open(t)
		assert.ErrorIs(t, s.Commit(nil), ErrNilParam)
	})

	t.Run("outpoints", func(t *testing.T) {
		s := open(t)
		a, b := testOutpoint("ab", 0), testOutpoint("ab", 1)
		require.NoError(t, s.Commit(testSnapshot(t), a))

		has, err := s.HasOutpoint(a)
		require.NoError(t, err)
		assert.True(t, has)

		has, err = s.HasOutpoint(b)
		require.NoError(t, err)
		assert.False(t, has)

		// Hex case does not matter.
		has, err = s.HasOutpoint(Outpoint{TxID: strings.ToUpper(a.TxID), Vout: 0})
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("invalid outpoint leaves state untouched", func(t *testing.T) {
		s := open(t)
		err := s.Commit(testSnapshot(t), Outpoint{TxID: "short"})
		assert.ErrorIs(t, err, ErrInvalidOutpoint)

		_, err = s.LoadSnapshot()
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.HasOutpoint(Outpoint{TxID: "short"})
		assert.ErrorIs(t, err, ErrInvalidOutpoint)
	})
}

func TestMemStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemStore()
	})
}

func TestBoltStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := OpenBoltStore(filepath.Join(t.TempDir(), "ledger.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	op := testOutpoint("cd", 3)
	snap := testSnapshot(t)

	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Commit(snap, op))
	require.NoError(t, s.Close())

	s, err = OpenBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	has, err := s.HasOutpoint(op)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestOutpointString(t *testing.T) {
	op := Outpoint{TxID: strings.Repeat("AB", 32), Vout: 7}
	assert.Equal(t, strings.Repeat("ab", 32)+":7", op.String())
}

func TestParseOutpoint(t *testing.T) {
	txid := strings.Repeat("ab", 32)
	op, err := ParseOutpoint(strings.ToUpper(txid) + ":3")
	require.NoError(t, err)
	assert.Equal(t, Outpoint{TxID: txid, Vout: 3}, op)

	for _, in := range []string{
		txid,
		txid + ":",
		txid + ":-1",
		txid + ":4294967296",
		"abcd:0",
		strings.Repeat("zz", 32) + ":0",
	} {
		_, err := ParseOutpoint(in)
		assert.ErrorIs(t, err, ErrInvalidOutpoint, in)
	}
}
