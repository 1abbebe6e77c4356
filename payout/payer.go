// Package payout settles pool dividends on chain. Each Pay call becomes one
// BSV transaction spending custody outputs to the holders' P2PKH addresses,
// with network fees funded from a separate fee key.
package payout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bitfsorg/rentshare/network"
	"github.com/bitfsorg/rentshare/pool"
	"github.com/bitfsorg/rentshare/wallet"
)

// Compile-time interface check.
var _ pool.Payer = (*Payer)(nil)

// Outpoint identifies an output created by a payout transaction.
type Outpoint struct {
	TxID   string
	Vout   uint32
	Amount uint64
}

// Receipt describes a broadcast payout transaction.
type Receipt struct {
	TxID    string
	RawTx   string
	Payouts []pool.Payout
	Fee     uint64

	// PoolChange is the custody change output, nil if none.
	PoolChange *Outpoint
	// FeeChange is the fee-key change output, nil if none.
	FeeChange *Outpoint
	// TopUp is what the fee key added to raise custody change to the dust limit.
	TopUp uint64
	// Spent lists the custody outputs consumed by the transaction.
	Spent []Outpoint
}

// SpendableFunc reports whether a custody output may fund payouts.
type SpendableFunc func(ctx context.Context, u *network.UTXO) (bool, error)

// BroadcastFunc is invoked after a successful broadcast, before Pay returns.
type BroadcastFunc func(r *Receipt)

// Payer pays pool dividends from the custody key. It implements pool.Payer.
type Payer struct {
	chain   network.BlockchainService
	custody *wallet.KeyPair
	fee     *wallet.KeyPair
	net     *wallet.NetworkConfig
	feeRate uint64

	custodyAddr string
	feeAddr     string

	spendable   SpendableFunc
	onBroadcast BroadcastFunc
	logger      *slog.Logger
}

// Option configures a Payer.
type Option func(*Payer)

// WithFeeRate sets the fee rate in sat/KB.
func WithFeeRate(rate uint64) Option {
	return func(p *Payer) { p.feeRate = rate }
}

// WithNetwork sets the address network. Defaults to mainnet.
func WithNetwork(net *wallet.NetworkConfig) Option {
	return func(p *Payer) {
		if net != nil {
			p.net = net
		}
	}
}

// WithSpendable restricts which custody outputs may be spent.
// By default every custody output is spendable.
func WithSpendable(fn SpendableFunc) Option {
	return func(p *Payer) { p.spendable = fn }
}

// WithOnBroadcast registers a hook receiving every broadcast receipt.
func WithOnBroadcast(fn BroadcastFunc) Option {
	return func(p *Payer) { p.onBroadcast = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Payer) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Payer spending custody outputs and paying fees from fee.
func New(chain network.BlockchainService, custody, fee *wallet.KeyPair, opts ...Option) (*Payer, error) {
	if chain == nil {
		return nil, fmt.Errorf("%w: blockchain service", ErrNilParam)
	}
	if custody == nil || custody.PrivateKey == nil {
		return nil, fmt.Errorf("%w: custody key", ErrNilParam)
	}
	if fee == nil || fee.PrivateKey == nil {
		return nil, fmt.Errorf("%w: fee key", ErrNilParam)
	}
	p := &Payer{
		chain:   chain,
		custody: custody,
		fee:     fee,
		net:     &wallet.MainNet,
		feeRate: DefaultFeeRate,
		spendable: func(context.Context, *network.UTXO) (bool, error) {
			return true, nil
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}

	var err error
	if p.custodyAddr, err = wallet.FormatAddress(custody.Address(), p.net); err != nil {
		return nil, err
	}
	if p.feeAddr, err = wallet.FormatAddress(fee.Address(), p.net); err != nil {
		return nil, err
	}
	return p, nil
}

// CustodyAddress returns the address holding pool funds.
func (p *Payer) CustodyAddress() string { return p.custodyAddr }

// FeeAddress returns the address funding payout fees.
func (p *Payer) FeeAddress() string { return p.feeAddr }

// Pay builds, signs and broadcasts one transaction covering all payouts.
// Nothing is broadcast when any step before broadcasting fails.
func (p *Payer) Pay(ctx context.Context, payouts []pool.Payout) error {
	if len(payouts) == 0 {
		return ErrNoPayouts
	}
	for _, po := range payouts {
		if po.Amount < DustLimit {
			return fmt.Errorf("%w: %d sat to %s", ErrBelowDust, po.Amount, po.To)
		}
	}

	custodyUTXOs, err := p.chain.ListUnspent(ctx, p.custodyAddr)
	if err != nil {
		return fmt.Errorf("payout: list custody outputs: %w", err)
	}
	custodyUTXOs, err = p.filterSpendable(ctx, custodyUTXOs)
	if err != nil {
		return err
	}
	feeUTXOs, err := p.chain.ListUnspent(ctx, p.feeAddr)
	if err != nil {
		return fmt.Errorf("payout: list fee outputs: %w", err)
	}

	plan, err := p.plan(payouts, custodyUTXOs, feeUTXOs)
	if err != nil {
		return err
	}
	sdkTx, err := p.build(plan)
	if err != nil {
		return err
	}

	rawHex := sdkTx.Hex()
	txid, err := p.chain.BroadcastTx(ctx, rawHex)
	if err != nil {
		return fmt.Errorf("payout: broadcast: %w", err)
	}
	if want := sdkTx.TxID().String(); txid != want {
		p.logger.WarnContext(ctx, "node returned unexpected txid", "got", txid, "want", want)
		txid = want
	}

	r := plan.receipt(txid, rawHex)
	p.logger.InfoContext(ctx, "payout broadcast",
		"txid", r.TxID,
		"payouts", len(r.Payouts),
		"fee", r.Fee,
		"top_up", r.TopUp)
	if p.onBroadcast != nil {
		p.onBroadcast(r)
	}
	return nil
}

func (p *Payer) filterSpendable(ctx context.Context, utxos []*network.UTXO) ([]*network.UTXO, error) {
	out := utxos[:0:0]
	for _, u := range utxos {
		if u == nil {
			continue
		}
		ok, err := p.spendable(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("payout: check custody output %s:%d: %w", u.TxID, u.Vout, err)
		}
		if ok {
			out = append(out, u)
		}
	}
	return out, nil
}
