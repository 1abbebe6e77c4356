// Package ledger runs a rent pool against durable storage and the chain.
// Every successful pool mutation is persisted before the call returns, and
// payout transactions are recorded so their change is never mistaken for rent.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bitfsorg/rentshare/network"
	"github.com/bitfsorg/rentshare/payout"
	"github.com/bitfsorg/rentshare/pool"
	"github.com/bitfsorg/rentshare/store"
)

// DefaultMinConfirmations is the depth a custody output needs before it is credited.
const DefaultMinConfirmations = 1

// Ledger wraps a pool with persistence and on-chain deposit discovery.
type Ledger struct {
	mu sync.Mutex

	pool   *pool.Pool
	store  store.Store
	payer  pool.Payer
	logger *slog.Logger

	chain       network.BlockchainService
	custodyAddr string
	minConf     int64
	minPayout   uint64

	rmu      sync.Mutex
	receipts []*payout.Receipt
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger for the ledger and its pool.
func WithLogger(l *slog.Logger) Option {
	return func(lg *Ledger) {
		if l != nil {
			lg.logger = l
		}
	}
}

// WithPayer sets the payer used for withdrawals and transfers.
func WithPayer(p pool.Payer) Option {
	return func(lg *Ledger) { lg.payer = p }
}

// WithChain enables deposit discovery on custodyAddr.
func WithChain(chain network.BlockchainService, custodyAddr string) Option {
	return func(lg *Ledger) {
		lg.chain = chain
		lg.custodyAddr = custodyAddr
	}
}

// WithMinConfirmations sets how deep a custody output must be before it is credited.
func WithMinConfirmations(n int64) Option {
	return func(lg *Ledger) {
		if n >= 0 {
			lg.minConf = n
		}
	}
}

// WithMinPayout sets the smallest entitlement a transfer pays out; smaller
// ones stay with the holder. Defaults to payout.DustLimit.
func WithMinPayout(sat uint64) Option {
	return func(lg *Ledger) { lg.minPayout = sat }
}

// Open restores the pool saved in st, or starts an empty unissued pool.
func Open(st store.Store, opts ...Option) (*Ledger, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: store", ErrNilParam)
	}
	l := &Ledger{
		store:   st,
		logger:  slog.New(slog.DiscardHandler),
		minConf:   DefaultMinConfirmations,
		minPayout: payout.DustLimit,
	}
	for _, opt := range opts {
		opt(l)
	}

	payer := pool.PayerFunc(l.pay)
	popts := []pool.Option{pool.WithLogger(l.logger), pool.WithMinPayout(l.minPayout)}
	snap, err := st.LoadSnapshot()
	switch {
	case errors.Is(err, store.ErrNotFound):
		l.pool = pool.New(payer, popts...)
	case err != nil:
		return nil, fmt.Errorf("ledger: load snapshot: %w", err)
	default:
		l.pool, err = pool.Restore(snap, payer, popts...)
		if err != nil {
			return nil, fmt.Errorf("ledger: restore snapshot: %w", err)
		}
		l.logger.Info("ledger restored",
			"holders", len(snap.Holders),
			"deposited", snap.TotalDeposited,
			"withdrawn", snap.TotalWithdrawn)
	}
	return l, nil
}

// SetPayer replaces the payer used for withdrawals and transfers.
func (l *Ledger) SetPayer(p pool.Payer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payer = p
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Close()
}

// pay runs inside a pool operation, which runs under l.mu.
func (l *Ledger) pay(ctx context.Context, payouts []pool.Payout) error {
	if l.payer == nil {
		return ErrNoPayer
	}
	return l.payer.Pay(ctx, payouts)
}

// RecordPayout collects a broadcast receipt so the next commit marks its
// change output as already accounted for. It is meant to be registered
// with payout.WithOnBroadcast.
func (l *Ledger) RecordPayout(r *payout.Receipt) {
	if r == nil {
		return
	}
	l.rmu.Lock()
	defer l.rmu.Unlock()
	l.receipts = append(l.receipts, r)
}

// Spendable reports whether a custody output has been credited to the pool.
// Uncredited outputs must not fund payouts or their rent would be lost.
// It is meant to be registered with payout.WithSpendable.
func (l *Ledger) Spendable(_ context.Context, u *network.UTXO) (bool, error) {
	return l.store.HasOutpoint(store.Outpoint{TxID: u.TxID, Vout: u.Vout})
}

func (l *Ledger) takeReceipts() []*payout.Receipt {
	l.rmu.Lock()
	defer l.rmu.Unlock()
	rs := l.receipts
	l.receipts = nil
	return rs
}

// commit persists the pool together with ops and the change outputs of any
// payouts broadcast during the current operation.
func (l *Ledger) commit(ops ...store.Outpoint) error {
	receipts := l.takeReceipts()
	for _, r := range receipts {
		if r.PoolChange != nil {
			ops = append(ops, store.Outpoint{TxID: r.PoolChange.TxID, Vout: r.PoolChange.Vout})
		}
	}
	if err := l.store.Commit(l.pool.Snapshot(), ops...); err != nil {
		for _, r := range receipts {
			l.logger.Error("payout broadcast but ledger state not saved", "txid", r.TxID, "error", err)
		}
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// apply runs mutate and persists the result together with ops. If the
// write fails the pool is reverted to its state before mutate, so memory
// never runs ahead of the store. Only for mutations that move no funds.
func (l *Ledger) apply(mutate func() error, ops ...store.Outpoint) error {
	prev := l.pool.Snapshot()
	if err := mutate(); err != nil {
		return err
	}
	if err := l.commit(ops...); err != nil {
		if rerr := l.pool.Revert(prev); rerr != nil {
			l.logger.Error("ledger revert failed", "error", rerr)
		}
		return err
	}
	return nil
}

// logPayoutError warns when the payer refused an operation's payouts.
func (l *Ledger) logPayoutError(op string, err error) {
	if errors.Is(err, pool.ErrPayoutFailed) {
		l.logger.Warn("payout rejected", "op", op, "error", err)
	}
}
