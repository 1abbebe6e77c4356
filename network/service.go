package network

import "context"

// BlockchainService is the node surface the ledger needs to watch the
// custody address and publish payout transactions.
type BlockchainService interface {
	// ListUnspent returns all unspent transaction outputs for the given address.
	ListUnspent(ctx context.Context, address string) ([]*UTXO, error)

	// BroadcastTx submits a raw transaction hex to the network and returns the txid.
	BroadcastTx(ctx context.Context, rawTxHex string) (string, error)

	// GetBestBlockHeight returns the height of the current chain tip.
	GetBestBlockHeight(ctx context.Context) (uint64, error)

	// ImportAddress imports a watch-only address into the node's wallet so that
	// ListUnspent can find its UTXOs. Safe to call multiple times.
	ImportAddress(ctx context.Context, address string) error
}

// UTXO represents an unspent transaction output.
type UTXO struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Amount        uint64 `json:"amount"`
	ScriptPubKey  string `json:"script_pubkey"`
	Address       string `json:"address"`
	Confirmations int64  `json:"confirmations"`
}
