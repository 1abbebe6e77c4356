package payout

const (
	// DustLimit is the minimum output value the network relays.
	DustLimit = uint64(546)

	// DefaultFeeRate is the default fee rate in sat/KB.
	DefaultFeeRate = uint64(1)

	p2pkhInputSize  = 148
	p2pkhOutputSize = 34
	txOverhead      = 10
)

// EstimateFee estimates the transaction fee for a given size and fee rate.
// Returns ceil(txSizeBytes * feeRate / 1000).
func EstimateFee(txSizeBytes int, feeRate uint64) uint64 {
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	fee := uint64(txSizeBytes) * feeRate
	return (fee + 999) / 1000
}

// EstimateTxSize estimates the size of a transaction made only of P2PKH
// inputs and outputs.
//
//	input:  prevhash(32) + index(4) + scriptlen(1) + sig+pubkey(~107) + sequence(4) = 148
//	output: value(8) + scriptlen(1) + script(25) = 34
func EstimateTxSize(numInputs, numOutputs int) int {
	return txOverhead + numInputs*p2pkhInputSize + numOutputs*p2pkhOutputSize
}
