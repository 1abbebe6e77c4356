package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/bitfsorg/rentshare/network"
	"github.com/bitfsorg/rentshare/pool"
	"github.com/bitfsorg/rentshare/store"
)

// SyncResult summarises one deposit discovery pass.
type SyncResult struct {
	Height   uint64
	Credited uint64
	Outputs  int
	Waiting  int
}

// Watch imports the custody address into the node's wallet so that its
// outputs are listed.
func (l *Ledger) Watch(ctx context.Context) error {
	if l.chain == nil {
		return ErrNoChain
	}
	if err := l.chain.ImportAddress(ctx, l.custodyAddr); err != nil {
		return fmt.Errorf("ledger: import custody address: %w", err)
	}
	return nil
}

// SyncDeposits credits every custody output not yet accounted for as a rent
// deposit. Outputs with fewer than the minimum confirmations are left for a
// later pass. Each credit is persisted with its outpoint in one write.
func (l *Ledger) SyncDeposits(ctx context.Context) (*SyncResult, error) {
	if l.chain == nil {
		return nil, ErrNoChain
	}

	height, err := l.chain.GetBestBlockHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: best block height: %w", err)
	}
	utxos, err := l.chain.ListUnspent(ctx, l.custodyAddr)
	if err != nil {
		return nil, fmt.Errorf("ledger: list custody outputs: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	res := &SyncResult{Height: height}
	for _, u := range utxos {
		if u == nil {
			continue
		}
		op := store.Outpoint{TxID: u.TxID, Vout: u.Vout}
		seen, err := l.store.HasOutpoint(op)
		if err != nil {
			return res, fmt.Errorf("ledger: check %s: %w", op, err)
		}
		if seen {
			continue
		}
		if u.Confirmations < l.minConf {
			res.Waiting++
			continue
		}
		if err := l.credit(op, u.Amount); err != nil {
			return res, err
		}
		if u.Amount == 0 {
			continue
		}
		res.Credited += u.Amount
		res.Outputs++
		l.logger.Info("deposit", "outpoint", op.String(), "amount", u.Amount, "balance", l.pool.Balance())
	}

	l.logger.Debug("deposit sync",
		"height", height,
		"credited", res.Credited,
		"outputs", res.Outputs,
		"waiting", res.Waiting)
	return res, nil
}

// Credit credits a single custody output named by the operator without
// waiting for the next sync. The output must be unspent at the custody
// address, confirmed to the minimum depth and not yet accounted for.
func (l *Ledger) Credit(ctx context.Context, op store.Outpoint) (uint64, error) {
	if l.chain == nil {
		return 0, ErrNoChain
	}
	utxos, err := l.chain.ListUnspent(ctx, l.custodyAddr)
	if err != nil {
		return 0, fmt.Errorf("ledger: list custody outputs: %w", err)
	}
	var found *network.UTXO
	for _, u := range utxos {
		if u != nil && strings.EqualFold(u.TxID, op.TxID) && u.Vout == op.Vout {
			found = u
			break
		}
	}
	if found == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownOutput, op)
	}
	if found.Confirmations < l.minConf {
		return 0, fmt.Errorf("%w: %s has %d of %d confirmations",
			ErrUnconfirmed, op, found.Confirmations, l.minConf)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seen, err := l.store.HasOutpoint(op)
	if err != nil {
		return 0, fmt.Errorf("ledger: check %s: %w", op, err)
	}
	if seen {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyCredited, op)
	}
	if err := l.credit(op, found.Amount); err != nil {
		return 0, err
	}
	l.logger.Info("deposit", "outpoint", op.String(), "amount", found.Amount, "balance", l.pool.Balance())
	return found.Amount, nil
}

// credit deposits amount and records op in one write. Empty outputs are
// only recorded. Caller holds l.mu.
func (l *Ledger) credit(op store.Outpoint, amount uint64) error {
	if amount == 0 {
		return l.commit(op)
	}
	return l.apply(func() error {
		if err := l.pool.Deposit(amount); err != nil {
			return fmt.Errorf("ledger: credit %s: %w", op, err)
		}
		return nil
	}, op)
}

// StartSync runs SyncDeposits once and then on schedule until ctx is done.
// Failed passes are logged and retried on the next tick.
func (l *Ledger) StartSync(ctx context.Context, schedule string) error {
	if l.chain == nil {
		return ErrNoChain
	}
	c := cron.New(
		cron.WithLogger(cronLogger{l.logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{l.logger})),
	)
	if _, err := c.AddFunc(schedule, func() { l.syncOnce(ctx) }); err != nil {
		return fmt.Errorf("ledger: sync schedule %q: %w", schedule, err)
	}

	l.syncOnce(ctx)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (l *Ledger) syncOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := l.SyncDeposits(ctx); err != nil {
		level := slog.LevelError
		if errors.Is(err, pool.ErrNotIssued) || errors.Is(err, context.Canceled) {
			level = slog.LevelWarn
		}
		l.logger.Log(ctx, level, "deposit sync failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
