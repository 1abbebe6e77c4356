package pool

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"
)

// Validate checks the ledger invariants: shares are conserved, no watermark
// is ahead of the accumulator, the accumulator never credits more than was
// deposited, and the pool can pay every pending amount. It walks all
// holders and is meant for audits and tests, not for the operations
// themselves.
func (p *Pool) Validate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.validate()
}

func (p *Pool) validate() error {
	if p.totalWithdrawn > p.totalDeposited {
		return fmt.Errorf("%w: withdrawn %d > deposited %d", ErrInsolvent, p.totalWithdrawn, p.totalDeposited)
	}

	// Each deposit adds floor(amount*Precision/TotalShares), so
	// accPerShare*TotalShares can never exceed totalDeposited*Precision.
	credited, overflow := new(uint256.Int).MulOverflow(&p.accPerShare, uint256.NewInt(TotalShares))
	limit := new(uint256.Int).Mul(uint256.NewInt(p.totalDeposited), Precision)
	if overflow || credited.Gt(limit) {
		return fmt.Errorf("%w: accumulator exceeds deposits", ErrInvalidSnapshot)
	}

	var shares, owed uint64
	for addr, h := range p.holders {
		if h.shares > TotalShares {
			return fmt.Errorf("%w: %s holds %d shares", ErrConservationViolation, addr, h.shares)
		}
		if p.accPerShare.Lt(&h.settledAcc) {
			return fmt.Errorf("%w: watermark of %s ahead of accumulator", ErrInvalidSnapshot, addr)
		}
		acc := p.accrued(h)
		if !acc.IsUint64() || acc.Uint64() > math.MaxUint64-h.carried {
			return fmt.Errorf("%w: pending of %s overflows", ErrInvalidSnapshot, addr)
		}
		pending := h.carried + acc.Uint64()
		if pending > math.MaxUint64-owed {
			return fmt.Errorf("%w: total pending overflows", ErrInsolvent)
		}
		shares += h.shares
		owed += pending
	}

	want := uint64(0)
	if p.issued {
		want = TotalShares
	}
	if shares != want {
		return fmt.Errorf("%w: holders=%d total=%d", ErrConservationViolation, shares, want)
	}
	if owed > p.balance() {
		return fmt.Errorf("%w: owed %d, balance %d", ErrInsolvent, owed, p.balance())
	}
	return nil
}
