// Package pool implements the rent distribution ledger of a property split
// into a fixed number of indivisible shares.
//
// Rent deposited into the pool is credited to a global accumulator of income
// per share. Each holder keeps a watermark into that accumulator; the
// difference, multiplied by the holder's share count, is what the holder may
// withdraw. Deposits are O(1) regardless of how many holders exist.
package pool

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	// TotalShares is the number of shares issued for a property.
	TotalShares uint64 = 100

	// AddressSize is the length of a P2PKH public key hash.
	AddressSize = 20
)

// Precision scales the per-share accumulator (10^18).
var Precision = uint256.NewInt(1_000_000_000_000_000_000)

// Address identifies a shareholder by P2PKH public key hash.
type Address [AddressSize]byte

// String returns the hex encoding of the address hash.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// ParseAddress decodes a 40-character hex public key hash.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("pool: parse address: %w", err)
	}
	if len(b) != AddressSize {
		return a, fmt.Errorf("pool: address must be %d bytes, got %d", AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Payout is a single external transfer of funds to a holder.
type Payout struct {
	To     Address
	Amount uint64 // satoshis
}

// HolderInfo is a read-only view of one holder.
type HolderInfo struct {
	Address Address
	Shares  uint64
	Pending uint64
}

// holder is the per-address ledger record. carried holds an entitlement
// that was settled by a move but was too small to pay out.
type holder struct {
	shares     uint64
	settledAcc uint256.Int
	carried    uint64
}
