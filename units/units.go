// Package units converts between satoshi amounts and decimal BSV strings.
package units

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// SatoshisPerBSV is the number of satoshis in one BSV.
const SatoshisPerBSV = 100_000_000

var (
	// ErrInvalidAmount indicates the amount string is not a decimal number.
	ErrInvalidAmount = errors.New("units: invalid amount")

	// ErrNegativeAmount indicates a negative amount.
	ErrNegativeAmount = errors.New("units: amount must not be negative")

	// ErrTooPrecise indicates more than eight decimal places.
	ErrTooPrecise = errors.New("units: amount has more than 8 decimal places")

	// ErrAmountOverflow indicates the amount does not fit in a uint64.
	ErrAmountOverflow = errors.New("units: amount overflows")
)

var maxSatoshis = decimal.NewFromUint64(math.MaxUint64)

// ParseBSV parses a decimal BSV amount such as "0.2" into satoshis.
func ParseBSV(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s", ErrNegativeAmount, s)
	}
	sat := d.Shift(8)
	if !sat.Equal(sat.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s", ErrTooPrecise, s)
	}
	if sat.GreaterThan(maxSatoshis) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOverflow, s)
	}
	return sat.BigInt().Uint64(), nil
}

// FormatBSV renders satoshis as a BSV amount with eight decimal places.
func FormatBSV(sat uint64) string {
	return decimal.NewFromUint64(sat).Shift(-8).StringFixed(8)
}
