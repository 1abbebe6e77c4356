package payout

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("payout: required parameter is nil")

	// ErrNoPayouts indicates Pay was called with nothing to pay.
	ErrNoPayouts = errors.New("payout: no payouts")

	// ErrBelowDust indicates a payout is smaller than the dust limit.
	ErrBelowDust = errors.New("payout: amount below dust limit")

	// ErrInsufficientFunds indicates custody or fee UTXOs cannot cover the transaction.
	ErrInsufficientFunds = errors.New("payout: insufficient funds")

	// ErrScriptBuild indicates script construction failed.
	ErrScriptBuild = errors.New("payout: script build failed")

	// ErrSigningFailed indicates transaction signing failed.
	ErrSigningFailed = errors.New("payout: signing failed")

	// ErrInvalidUTXO indicates the node returned an unusable output.
	ErrInvalidUTXO = errors.New("payout: invalid UTXO")
)
