package pool

import (
	"context"
	"fmt"
	"sort"
)

// Issue assigns all TotalShares to owner. It may be called only once.
func (p *Pool) Issue(owner Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.issued {
		return ErrAlreadyIssued
	}
	h := p.touch(owner)
	h.shares = TotalShares
	h.settledAcc.Set(&p.accPerShare)
	p.issued = true

	p.logger.Debug("shares issued", "owner", owner.String(), "shares", TotalShares)
	return nil
}

// BalanceOf returns the number of shares held by addr.
func (p *Pool) BalanceOf(addr Address) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.holders[addr]; ok {
		return h.shares
	}
	return 0
}

// Move transfers amount shares from one holder to another. Both parties are
// settled first, in a single payout, so that the new share counts only
// affect income deposited after the move. Entitlements below the minimum
// payout are carried rather than paid.
func (p *Pool) Move(ctx context.Context, from, to Address, amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.issued {
		return ErrNotIssued
	}
	if amount == 0 {
		return ErrZeroShares
	}
	if from == to {
		return ErrSelfTransfer
	}
	src, ok := p.holders[from]
	if !ok || src.shares < amount {
		var have uint64
		if ok {
			have = src.shares
		}
		return fmt.Errorf("%w: have %d, want %d", ErrInsufficientShares, have, amount)
	}

	_, dstExisted := p.holders[to]
	dst := p.touch(to)

	claims := []claim{{addr: from, h: src}, {addr: to, h: dst}}
	if err := p.settle(ctx, claims, p.minPayout); err != nil {
		if !dstExisted {
			delete(p.holders, to)
		}
		return err
	}

	src.shares -= amount
	dst.shares += amount

	p.logger.Debug("shares moved",
		"from", from.String(), "to", to.String(), "amount", amount,
		"carried_from", src.carried, "carried_to", dst.carried)
	return nil
}

// Holders returns every known holder, including zero-share ones, ordered by
// address.
func (p *Pool) Holders() []HolderInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]HolderInfo, 0, len(p.holders))
	for addr, h := range p.holders {
		out = append(out, HolderInfo{Address: addr, Shares: h.shares, Pending: p.pendingOf(h)})
	}
	sort.Slice(out, func(i, j int) bool {
		return lessAddress(out[i].Address, out[j].Address)
	})
	return out
}

func lessAddress(a, b Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
