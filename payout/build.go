package payout

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"

	"github.com/bitfsorg/rentshare/network"
	"github.com/bitfsorg/rentshare/pool"
	"github.com/bitfsorg/rentshare/wallet"
)

// plan is a funded but unsigned payout transaction.
//
// Output layout:
//
//	[0..n-1] P2PKH -> payouts[i]
//	[n]      P2PKH -> custody change (if any)
//	[last]   P2PKH -> fee change (if any)
type plan struct {
	payouts    []pool.Payout
	custodyIn  []*network.UTXO
	feeIn      []*network.UTXO
	poolChange uint64
	feeChange  uint64
	topUp      uint64
	fee        uint64
}

// plan selects inputs, largest first, and sizes both change outputs.
// Custody change below the dust limit is raised to the limit from the fee
// inputs, so custody always keeps every satoshi the pool still counts.
func (p *Payer) plan(payouts []pool.Payout, custody, fees []*network.UTXO) (*plan, error) {
	var total uint64
	for _, po := range payouts {
		total += po.Amount
	}

	pl := &plan{payouts: payouts}

	var custodySum uint64
	for _, u := range largestFirst(custody) {
		if custodySum >= total {
			break
		}
		pl.custodyIn = append(pl.custodyIn, u)
		custodySum += u.Amount
	}
	if custodySum < total {
		return nil, fmt.Errorf("%w: custody has %d sat, payouts need %d sat",
			ErrInsufficientFunds, custodySum, total)
	}

	pl.poolChange = custodySum - total
	if pl.poolChange > 0 && pl.poolChange < DustLimit {
		pl.topUp = DustLimit - pl.poolChange
		pl.poolChange = DustLimit
	}

	numOutputs := len(payouts) + 1 // fee change
	if pl.poolChange > 0 {
		numOutputs++
	}

	var feeSum, needed uint64
	sortedFees := largestFirst(fees)
	for i := 0; ; i++ {
		est := EstimateFee(EstimateTxSize(len(pl.custodyIn)+len(pl.feeIn), numOutputs), p.feeRate)
		needed = est + pl.topUp
		if feeSum >= needed {
			break
		}
		if i >= len(sortedFees) {
			return nil, fmt.Errorf("%w: fee key has %d sat, fee and change top-up need %d sat",
				ErrInsufficientFunds, feeSum, needed)
		}
		pl.feeIn = append(pl.feeIn, sortedFees[i])
		feeSum += sortedFees[i].Amount
	}

	pl.feeChange = feeSum - needed
	if pl.feeChange < DustLimit {
		pl.feeChange = 0
	}
	pl.fee = custodySum + feeSum - total - pl.poolChange - pl.feeChange
	return pl, nil
}

// build assembles and signs the planned transaction.
func (p *Payer) build(pl *plan) (*transaction.Transaction, error) {
	custodyLock, err := lockFor(p.custody.Address())
	if err != nil {
		return nil, err
	}
	feeLock, err := lockFor(p.fee.Address())
	if err != nil {
		return nil, err
	}

	sdkTx := transaction.NewTransaction()

	addInputs := func(utxos []*network.UTXO, kp *wallet.KeyPair, lock *script.Script) error {
		unlocker, err := p2pkh.Unlock(kp.PrivateKey, nil)
		if err != nil {
			return fmt.Errorf("%w: unlocker: %w", ErrSigningFailed, err)
		}
		for _, u := range utxos {
			if u.ScriptPubKey != "" && !strings.EqualFold(u.ScriptPubKey, hex.EncodeToString(*lock)) {
				return fmt.Errorf("%w: %s:%d is not locked to %s", ErrInvalidUTXO, u.TxID, u.Vout, kp.Path)
			}
			hash, err := chainhash.NewHashFromHex(u.TxID)
			if err != nil {
				return fmt.Errorf("%w: txid %q: %w", ErrInvalidUTXO, u.TxID, err)
			}
			sdkTx.AddInput(&transaction.TransactionInput{
				SourceTXID:       hash,
				SourceTxOutIndex: u.Vout,
				SequenceNumber:   transaction.DefaultSequenceNumber,
			})
			in := sdkTx.Inputs[len(sdkTx.Inputs)-1]
			in.SetSourceTxOutput(&transaction.TransactionOutput{
				Satoshis:      u.Amount,
				LockingScript: lock,
			})
			in.UnlockingScriptTemplate = unlocker
		}
		return nil
	}
	if err := addInputs(pl.custodyIn, p.custody, custodyLock); err != nil {
		return nil, err
	}
	if err := addInputs(pl.feeIn, p.fee, feeLock); err != nil {
		return nil, err
	}

	for _, po := range pl.payouts {
		lock, err := lockFor(po.To)
		if err != nil {
			return nil, err
		}
		sdkTx.Outputs = append(sdkTx.Outputs, &transaction.TransactionOutput{Satoshis: po.Amount, LockingScript: lock})
	}
	if pl.poolChange > 0 {
		sdkTx.Outputs = append(sdkTx.Outputs, &transaction.TransactionOutput{Satoshis: pl.poolChange, LockingScript: custodyLock})
	}
	if pl.feeChange > 0 {
		sdkTx.Outputs = append(sdkTx.Outputs, &transaction.TransactionOutput{Satoshis: pl.feeChange, LockingScript: feeLock})
	}

	if err := sdkTx.Sign(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return sdkTx, nil
}

// receipt reports the planned outputs under the broadcast txid.
func (pl *plan) receipt(txid, rawHex string) *Receipt {
	r := &Receipt{
		TxID:    txid,
		RawTx:   rawHex,
		Payouts: pl.payouts,
		Fee:     pl.fee,
		TopUp:   pl.topUp,
	}
	vout := uint32(len(pl.payouts))
	if pl.poolChange > 0 {
		r.PoolChange = &Outpoint{TxID: txid, Vout: vout, Amount: pl.poolChange}
		vout++
	}
	if pl.feeChange > 0 {
		r.FeeChange = &Outpoint{TxID: txid, Vout: vout, Amount: pl.feeChange}
	}
	for _, u := range pl.custodyIn {
		r.Spent = append(r.Spent, Outpoint{TxID: u.TxID, Vout: u.Vout, Amount: u.Amount})
	}
	return r
}

// lockFor builds a P2PKH locking script paying the pubkey hash a.
func lockFor(a pool.Address) (*script.Script, error) {
	addr, err := script.NewAddressFromPublicKeyHash(a[:], true)
	if err != nil {
		return nil, fmt.Errorf("%w: address from hash: %w", ErrScriptBuild, err)
	}
	lock, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: P2PKH lock: %w", ErrScriptBuild, err)
	}
	return lock, nil
}

// largestFirst returns a copy of utxos sorted by descending amount.
func largestFirst(utxos []*network.UTXO) []*network.UTXO {
	out := make([]*network.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u != nil {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out
}
