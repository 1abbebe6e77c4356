package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bitfsorg/rentshare/network"
	"github.com/bitfsorg/rentshare/payout"
	"github.com/bitfsorg/rentshare/pool"
	"github.com/bitfsorg/rentshare/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	owner = pool.Address{0x01}
	alice = pool.Address{0xA1}
)

func txid(c byte) string {
	return strings.Repeat(string([]byte{c}), 64)
}

// recordingPayer records payouts and optionally fails.
type recordingPayer struct {
	paid []pool.Payout
	err  error
	hook func([]pool.Payout)
}

func (r *recordingPayer) Pay(_ context.Context, payouts []pool.Payout) error {
	if r.err != nil {
		return r.err
	}
	r.paid = append(r.paid, payouts...)
	if r.hook != nil {
		r.hook(payouts)
	}
	return nil
}

func openIssued(t *testing.T, st store.Store, opts ...Option) *Ledger {
	t.Helper()
	l, err := Open(st, opts...)
	require.NoError(t, err)
	require.NoError(t, l.Issue(owner))
	return l
}

func TestOpen_EmptyStore(t *testing.T) {
	l, err := Open(store.NewMemStore())
	require.NoError(t, err)
	assert.False(t, l.Issued())
	assert.Zero(t, l.PoolBalance())

	_, err = Open(nil)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestLedger_PersistsEveryMutation(t *testing.T) {
	st := store.NewMemStore()
	payer := &recordingPayer{}
	l := openIssued(t, st, WithPayer(payer))

	require.NoError(t, l.Deposit(1_000_000))
	require.NoError(t, l.Transfer(context.Background(), owner, alice, 25))
	require.NoError(t, l.Deposit(400_000))

	paid, err := l.Withdraw(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), paid)

	reopened, err := Open(st, WithPayer(payer))
	require.NoError(t, err)
	assert.True(t, reopened.Issued())
	assert.Equal(t, uint64(75), reopened.BalanceOf(owner))
	assert.Equal(t, uint64(25), reopened.BalanceOf(alice))
	assert.Equal(t, uint64(300_000), reopened.PendingOf(owner))
	assert.Zero(t, reopened.PendingOf(alice))
	assert.Equal(t, l.PoolBalance(), reopened.PoolBalance())
	assert.Equal(t, l.Holders(), reopened.Holders())
}

func TestLedger_RejectedPayoutLeavesStoreUntouched(t *testing.T) {
	st := store.NewMemStore()
	payer := &recordingPayer{}
	l := openIssued(t, st, WithPayer(payer))
	require.NoError(t, l.Deposit(1_000_000))

	before, err := st.LoadSnapshot()
	require.NoError(t, err)

	payer.err = errors.New("node offline")
	_, err = l.Withdraw(context.Background(), owner)
	assert.ErrorIs(t, err, pool.ErrPayoutFailed)
	assert.ErrorIs(t, l.Transfer(context.Background(), owner, alice, 10), pool.ErrPayoutFailed)

	after, err := st.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, uint64(1_000_000), l.PendingOf(owner))
	assert.Zero(t, l.BalanceOf(alice))
}

func TestLedger_NoPayer(t *testing.T) {
	l := openIssued(t, store.NewMemStore())
	require.NoError(t, l.Deposit(1_000))

	_, err := l.Withdraw(context.Background(), owner)
	assert.ErrorIs(t, err, ErrNoPayer)
	assert.ErrorIs(t, err, pool.ErrPayoutFailed)

	l.SetPayer(&recordingPayer{})
	paid, err := l.Withdraw(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), paid)
}

func TestLedger_RecordPayoutMarksChange(t *testing.T) {
	st := store.NewMemStore()
	var l *Ledger
	payer := &recordingPayer{}
	payer.hook = func([]pool.Payout) {
		l.RecordPayout(&payout.Receipt{
			TxID:       txid('c'),
			PoolChange: &payout.Outpoint{TxID: txid('c'), Vout: 1, Amount: 500},
		})
	}
	l = openIssued(t, st, WithPayer(payer))
	require.NoError(t, l.Deposit(1_000))

	_, err := l.Withdraw(context.Background(), owner)
	require.NoError(t, err)

	seen, err := st.HasOutpoint(store.Outpoint{TxID: txid('c'), Vout: 1})
	require.NoError(t, err)
	assert.True(t, seen)

	ok, err := l.Spendable(context.Background(), &network.UTXO{TxID: txid('c'), Vout: 1})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_DepositErrors(t *testing.T) {
	l, err := Open(store.NewMemStore())
	require.NoError(t, err)
	assert.ErrorIs(t, l.Deposit(1), pool.ErrNotIssued)

	require.NoError(t, l.Issue(owner))
	assert.ErrorIs(t, l.Issue(owner), pool.ErrAlreadyIssued)
	assert.ErrorIs(t, l.Deposit(0), pool.ErrZeroDeposit)
}

func TestLedger_NoChain(t *testing.T) {
	l := openIssued(t, store.NewMemStore())
	_, err := l.SyncDeposits(context.Background())
	assert.ErrorIs(t, err, ErrNoChain)
	assert.ErrorIs(t, l.Watch(context.Background()), ErrNoChain)
	assert.ErrorIs(t, l.StartSync(context.Background(), "@every 1m"), ErrNoChain)
}

// flakyStore fails the next n commits.
type flakyStore struct {
	*store.MemStore
	fail int
}

func (f *flakyStore) Commit(s *pool.Snapshot, ops ...store.Outpoint) error {
	if f.fail > 0 {
		f.fail--
		return errors.New("disk full")
	}
	return f.MemStore.Commit(s, ops...)
}

func TestLedger_FailedCommitRevertsPool(t *testing.T) {
	st := &flakyStore{MemStore: store.NewMemStore()}
	l, err := Open(st)
	require.NoError(t, err)

	st.fail = 1
	assert.ErrorIs(t, l.Issue(owner), ErrPersist)
	assert.False(t, l.Issued())
	require.NoError(t, l.Issue(owner))

	require.NoError(t, l.Deposit(1_000))
	st.fail = 1
	assert.ErrorIs(t, l.Deposit(500), ErrPersist)
	assert.Equal(t, uint64(1_000), l.PoolBalance())
	assert.Equal(t, uint64(1_000), l.PendingOf(owner))

	saved, err := st.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, l.pool.Snapshot(), saved)
}

func TestLedger_TransferCarriesSubDustEntitlements(t *testing.T) {
	st := store.NewMemStore()
	payer := &recordingPayer{}
	l := openIssued(t, st, WithPayer(payer))

	require.NoError(t, l.Deposit(100_000))
	require.NoError(t, l.Transfer(context.Background(), owner, alice, 40))
	require.Len(t, payer.paid, 1)

	require.NoError(t, l.Deposit(300))
	require.NoError(t, l.Transfer(context.Background(), owner, alice, 10))
	assert.Len(t, payer.paid, 1, "entitlements below the dust limit are not paid")
	assert.Equal(t, uint64(50), l.BalanceOf(alice))

	reopened, err := Open(st, WithPayer(payer))
	require.NoError(t, err)
	assert.Equal(t, uint64(180), reopened.PendingOf(owner))
	assert.Equal(t, uint64(120), reopened.PendingOf(alice))
}
