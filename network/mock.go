package network

import "context"

// MockBlockchainService is a test double for BlockchainService.
// All function fields must be set before the corresponding method is called.
type MockBlockchainService struct {
	ListUnspentFn        func(ctx context.Context, address string) ([]*UTXO, error)
	BroadcastTxFn        func(ctx context.Context, rawTxHex string) (string, error)
	GetBestBlockHeightFn func(ctx context.Context) (uint64, error)
	ImportAddressFn      func(ctx context.Context, address string) error
}

var _ BlockchainService = (*MockBlockchainService)(nil)

func (m *MockBlockchainService) ListUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	return m.ListUnspentFn(ctx, address)
}
func (m *MockBlockchainService) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	return m.BroadcastTxFn(ctx, rawTxHex)
}
func (m *MockBlockchainService) GetBestBlockHeight(ctx context.Context) (uint64, error) {
	return m.GetBestBlockHeightFn(ctx)
}
func (m *MockBlockchainService) ImportAddress(ctx context.Context, address string) error {
	return m.ImportAddressFn(ctx, address)
}
