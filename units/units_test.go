package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBSV(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"1", 100_000_000},
		{"0.2", 20_000_000},
		{"1.8", 180_000_000},
		{"0.00000001", 1},
		{"0", 0},
		{"21000000", 2_100_000_000_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBSV(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBSV_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"abc", ErrInvalidAmount},
		{"", ErrInvalidAmount},
		{"-1", ErrNegativeAmount},
		{"0.000000001", ErrTooPrecise},
		{"200000000000", ErrAmountOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseBSV(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFormatBSV(t *testing.T) {
	assert.Equal(t, "0.20000000", FormatBSV(20_000_000))
	assert.Equal(t, "1.00000000", FormatBSV(SatoshisPerBSV))
	assert.Equal(t, "0.00000001", FormatBSV(1))
	assert.Equal(t, "0.00000000", FormatBSV(0))
}
