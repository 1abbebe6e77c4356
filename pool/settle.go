package pool

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
)

// PendingOf returns the satoshis addr may withdraw right now.
func (p *Pool) PendingOf(addr Address) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.holders[addr]
	if !ok {
		return 0
	}
	return p.pendingOf(h)
}

// accrued computes shares * (accPerShare - settledAcc) / Precision.
func (p *Pool) accrued(h *holder) *uint256.Int {
	delta := new(uint256.Int)
	if h.shares == 0 || !h.settledAcc.Lt(&p.accPerShare) {
		return delta
	}
	delta.Sub(&p.accPerShare, &h.settledAcc)
	delta.Mul(delta, uint256.NewInt(h.shares))
	return delta.Div(delta, Precision)
}

// pendingOf is the carried entitlement plus everything accrued since the
// watermark. validate guarantees the sum fits.
func (p *Pool) pendingOf(h *holder) uint64 {
	return h.carried + p.accrued(h).Uint64()
}

// Withdraw pays the caller everything accrued since their last settlement
// and returns the amount paid.
func (p *Pool) Withdraw(ctx context.Context, caller Address) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.holders[caller]
	if !ok || h.shares == 0 {
		return 0, ErrUnauthorized
	}
	pending := p.pendingOf(h)
	if pending == 0 {
		return 0, ErrNoFundsToWithdraw
	}

	if err := p.settle(ctx, []claim{{addr: caller, h: h}}, 0); err != nil {
		return 0, err
	}

	p.logger.Debug("withdraw", "holder", caller.String(), "amount", pending, "balance", p.balance())
	return pending, nil
}

// claim is one holder taking part in a settlement.
type claim struct {
	addr Address
	h    *holder
}

// settle advances the watermark of every claimant to the current
// accumulator. Pending amounts of at least minPayout are debited from the
// pool and handed to the payer in one call; smaller ones are carried on the
// holder. State is committed before the payer runs and restored if it fails.
func (p *Pool) settle(ctx context.Context, claims []claim, minPayout uint64) error {
	type saved struct {
		acc     uint256.Int
		carried uint64
	}
	prev := make([]saved, len(claims))

	var payouts []Payout
	var total uint64
	for i, c := range claims {
		prev[i].acc.Set(&c.h.settledAcc)
		prev[i].carried = c.h.carried

		pending := p.pendingOf(c.h)
		c.h.settledAcc.Set(&p.accPerShare)
		switch {
		case pending == 0:
		case pending < minPayout:
			c.h.carried = pending
		default:
			c.h.carried = 0
			payouts = append(payouts, Payout{To: c.addr, Amount: pending})
			total += pending
		}
	}

	restore := func() {
		for i, c := range claims {
			c.h.settledAcc.Set(&prev[i].acc)
			c.h.carried = prev[i].carried
		}
	}
	if total > p.balance() {
		restore()
		return fmt.Errorf("%w: owed %d, balance %d", ErrInsolvent, total, p.balance())
	}
	p.totalWithdrawn += total

	if len(payouts) == 0 {
		return nil
	}
	if err := p.payer.Pay(ctx, payouts); err != nil {
		p.totalWithdrawn -= total
		restore()
		p.logger.Debug("payout rolled back", "amount", total, "error", err)
		return fmt.Errorf("%w: %w", ErrPayoutFailed, err)
	}
	return nil
}
