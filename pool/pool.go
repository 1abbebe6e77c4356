package pool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/holiman/uint256"
)

// Payer transfers funds out of the pool. Pay is called while the pool is
// locked, so implementations must not call back into the Pool. A non-nil
// error means no funds left the pool; the pool then rolls back the
// settlement that preceded the call.
type Payer interface {
	Pay(ctx context.Context, payouts []Payout) error
}

// PayerFunc adapts an ordinary function to the Payer interface.
type PayerFunc func(ctx context.Context, payouts []Payout) error

// Pay calls f(ctx, payouts).
func (f PayerFunc) Pay(ctx context.Context, payouts []Payout) error {
	return f(ctx, payouts)
}

var errNoPayer = errors.New("no payer configured")

// Pool is the ledger of one property. All methods are safe for concurrent
// use; operations are applied strictly one at a time.
type Pool struct {
	mu sync.Mutex

	payer     Payer
	logger    *slog.Logger
	minPayout uint64

	issued         bool
	totalDeposited uint64
	totalWithdrawn uint64
	accPerShare    uint256.Int
	holders        map[Address]*holder
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for per-operation debug output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMinPayout makes Move carry any entitlement smaller than sat on the
// holder instead of paying it, so that share transfers never trip over a
// payment rail's minimum output. Withdraw always pays the full amount.
func WithMinPayout(sat uint64) Option {
	return func(p *Pool) { p.minPayout = sat }
}

// New creates an empty, unissued pool that pays out through payer.
func New(payer Payer, opts ...Option) *Pool {
	p := &Pool{
		payer:   payer,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		holders: make(map[Address]*holder),
	}
	if p.payer == nil {
		p.payer = PayerFunc(func(context.Context, []Payout) error { return errNoPayer })
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Balance returns the funds currently held by the pool, in satoshis.
func (p *Pool) Balance() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance()
}

// TotalDeposited returns the sum of all deposits ever received.
func (p *Pool) TotalDeposited() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalDeposited
}

// AccPerShare returns a copy of the income-per-share accumulator.
func (p *Pool) AccPerShare() *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accPerShare.Clone()
}

// Issued reports whether Issue has been called.
func (p *Pool) Issued() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issued
}

func (p *Pool) balance() uint64 {
	return p.totalDeposited - p.totalWithdrawn
}

// touch returns the holder record for addr, creating it with a watermark at
// the current accumulator value.
func (p *Pool) touch(addr Address) *holder {
	h, ok := p.holders[addr]
	if !ok {
		h = &holder{}
		h.settledAcc.Set(&p.accPerShare)
		p.holders[addr] = h
	}
	return h
}
