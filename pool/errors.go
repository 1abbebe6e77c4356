package pool

import "errors"

var (
	// ErrInsufficientShares indicates a transfer exceeds the sender's holding.
	ErrInsufficientShares = errors.New("pool: insufficient shares")

	// ErrUnauthorized indicates a withdrawal by an address holding no shares.
	ErrUnauthorized = errors.New("pool: unauthorized")

	// ErrNoFundsToWithdraw indicates the caller has nothing pending.
	ErrNoFundsToWithdraw = errors.New("pool: 0 funds to withdraw")

	// ErrZeroShares indicates a share amount of zero.
	ErrZeroShares = errors.New("pool: zero share amount")

	// ErrZeroDeposit indicates a deposit of zero satoshis.
	ErrZeroDeposit = errors.New("pool: zero deposit")

	// ErrSelfTransfer indicates sender and recipient are the same address.
	ErrSelfTransfer = errors.New("pool: sender and recipient are the same")

	// ErrAlreadyIssued indicates Issue was called more than once.
	ErrAlreadyIssued = errors.New("pool: shares already issued")

	// ErrNotIssued indicates an operation that requires issued shares.
	ErrNotIssued = errors.New("pool: shares not issued")

	// ErrPayoutFailed indicates the external transfer of funds failed.
	ErrPayoutFailed = errors.New("pool: payout failed")

	// ErrOverflow indicates a counter would exceed its representable range.
	ErrOverflow = errors.New("pool: arithmetic overflow")

	// ErrConservationViolation indicates shares were created or destroyed.
	ErrConservationViolation = errors.New("pool: share conservation violated")

	// ErrInsolvent indicates pending entitlements exceed the pool balance.
	ErrInsolvent = errors.New("pool: pending entitlements exceed balance")

	// ErrInvalidSnapshot indicates snapshot data is malformed or inconsistent.
	ErrInvalidSnapshot = errors.New("pool: invalid snapshot")
)
