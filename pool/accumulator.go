package pool

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"
)

// Deposit credits amount satoshis of rent to the pool. The income per share
// is added to the accumulator with truncating division; the remainder stays
// in the pool balance as dust that no holder can ever withdraw.
func (p *Pool) Deposit(amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if amount == 0 {
		return ErrZeroDeposit
	}
	if !p.issued {
		return ErrNotIssued
	}
	if amount > math.MaxUint64-p.totalDeposited {
		return fmt.Errorf("%w: total deposited", ErrOverflow)
	}

	inc := incrementFor(amount)
	next, overflow := new(uint256.Int).AddOverflow(&p.accPerShare, inc)
	if overflow {
		return fmt.Errorf("%w: accumulator", ErrOverflow)
	}

	p.accPerShare.Set(next)
	p.totalDeposited += amount

	p.logger.Debug("deposit", "amount", amount, "balance", p.balance(), "acc", p.accPerShare.Dec())
	return nil
}

// incrementFor returns amount * Precision / TotalShares.
func incrementFor(amount uint64) *uint256.Int {
	inc := new(uint256.Int).Mul(uint256.NewInt(amount), Precision)
	return inc.Div(inc, uint256.NewInt(TotalShares))
}

// Dust returns the part of the balance that is not owed to any holder.
func (p *Pool) Dust() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var owed uint64
	for _, h := range p.holders {
		owed += p.pendingOf(h)
	}
	return p.balance() - owed
}
