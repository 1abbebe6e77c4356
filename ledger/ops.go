package ledger

import (
	"context"

	"github.com/bitfsorg/rentshare/pool"
)

// Issue mints all shares to owner and persists the pool.
func (l *Ledger) Issue(owner pool.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.apply(func() error { return l.pool.Issue(owner) }); err != nil {
		return err
	}
	l.logger.Info("shares issued", "owner", owner.String(), "shares", pool.TotalShares)
	return nil
}

// Deposit credits amount satoshis of rent to every holder pro rata. The
// funds are not tied to a custody output, so a ledger that pays out on
// chain should credit rent through SyncDeposits or Credit instead.
func (l *Ledger) Deposit(amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.apply(func() error { return l.pool.Deposit(amount) }); err != nil {
		return err
	}
	l.logger.Info("deposit", "amount", amount, "balance", l.pool.Balance())
	return nil
}

// Transfer moves amount shares from one holder to another after paying
// both their accrued dividends. Once a payout is broadcast the pool is not
// reverted even if saving fails, since the funds have already left.
func (l *Ledger) Transfer(ctx context.Context, from, to pool.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.takeReceipts()
	if err := l.pool.Move(ctx, from, to, amount); err != nil {
		l.logPayoutError("transfer", err)
		return err
	}
	l.logger.Info("transfer", "from", from.String(), "to", to.String(), "shares", amount)
	return l.commit()
}

// Withdraw pays caller their accrued dividends and returns the amount.
func (l *Ledger) Withdraw(ctx context.Context, caller pool.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.takeReceipts()
	paid, err := l.pool.Withdraw(ctx, caller)
	if err != nil {
		l.logPayoutError("withdraw", err)
		return 0, err
	}
	l.logger.Info("withdraw", "holder", caller.String(), "amount", paid)
	if err := l.commit(); err != nil {
		return paid, err
	}
	return paid, nil
}

// BalanceOf returns the shares held by addr.
func (l *Ledger) BalanceOf(addr pool.Address) uint64 {
	return l.pool.BalanceOf(addr)
}

// PoolBalance returns the satoshis deposited and not yet paid out.
func (l *Ledger) PoolBalance() uint64 {
	return l.pool.Balance()
}

// PendingOf returns the satoshis addr may withdraw now.
func (l *Ledger) PendingOf(addr pool.Address) uint64 {
	return l.pool.PendingOf(addr)
}

// Holders lists every known holder ordered by address.
func (l *Ledger) Holders() []pool.HolderInfo {
	return l.pool.Holders()
}

// Issued reports whether shares have been minted.
func (l *Ledger) Issued() bool {
	return l.pool.Issued()
}

// Dust returns satoshis lost to rounding that no holder can claim.
func (l *Ledger) Dust() uint64 {
	return l.pool.Dust()
}
