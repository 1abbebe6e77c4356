package ledger

import "errors"

var (
	// ErrNoChain indicates an operation needs a blockchain service but none was configured.
	ErrNoChain = errors.New("ledger: no blockchain service configured")

	// ErrNoPayer indicates a payout was attempted before a payer was set.
	ErrNoPayer = errors.New("ledger: no payer configured")

	// ErrPersist indicates the pool changed but the new state could not be saved.
	ErrPersist = errors.New("ledger: failed to persist state")

	// ErrUnknownOutput indicates an outpoint is not an unspent custody output.
	ErrUnknownOutput = errors.New("ledger: not an unspent custody output")

	// ErrUnconfirmed indicates a custody output lacks the required confirmations.
	ErrUnconfirmed = errors.New("ledger: custody output not confirmed")

	// ErrAlreadyCredited indicates a custody output was already accounted for.
	ErrAlreadyCredited = errors.New("ledger: custody output already credited")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("ledger: required parameter is nil")
)
