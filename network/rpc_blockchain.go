package network

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bitfsorg/rentshare/units"
)

// Compile-time interface check.
var _ BlockchainService = (*RPCClient)(nil)

// listUnspentResult maps the JSON fields returned by the listunspent call.
type listUnspentResult struct {
	TxID          string  `json:"txid"`
	Vout          uint32  `json:"vout"`
	Amount        json.Number `json:"amount"`
	ScriptPubKey  string  `json:"scriptPubKey"`
	Address       string  `json:"address"`
	Confirmations int64   `json:"confirmations"`
}

// ListUnspent returns all unspent transaction outputs for the given address.
// It calls `listunspent 0 9999999 ["address"]`. Amounts are decoded from
// their decimal text, never through a float.
func (c *RPCClient) ListUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	params := []interface{}{0, 9999999, []string{address}}
	var results []listUnspentResult
	if err := c.Call(ctx, "listunspent", params, &results); err != nil {
		return nil, err
	}

	utxos := make([]*UTXO, len(results))
	for i, r := range results {
		sat, err := units.ParseBSV(r.Amount.String())
		if err != nil {
			return nil, fmt.Errorf("%w: amount of %s:%d: %w", ErrInvalidResponse, r.TxID, r.Vout, err)
		}
		utxos[i] = &UTXO{
			TxID:          r.TxID,
			Vout:          r.Vout,
			Amount:        sat,
			ScriptPubKey:  r.ScriptPubKey,
			Address:       r.Address,
			Confirmations: r.Confirmations,
		}
	}
	return utxos, nil
}

// BroadcastTx submits a raw transaction hex to the network and returns the txid.
// It calls `sendrawtransaction "hex"`. RPC errors are wrapped with ErrBroadcastRejected.
func (c *RPCClient) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	params := []interface{}{rawTxHex}
	var txid string
	if err := c.Call(ctx, "sendrawtransaction", params, &txid); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcastRejected, err)
	}
	return txid, nil
}

// GetBestBlockHeight returns the height of the current chain tip.
// It calls `getblockcount` which returns an integer block height.
func (c *RPCClient) GetBestBlockHeight(ctx context.Context) (uint64, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "getblockcount", []interface{}{}, &raw); err != nil {
		return 0, err
	}
	var height float64
	if err := json.Unmarshal(raw, &height); err != nil {
		return 0, fmt.Errorf("%w: invalid block height: %v", ErrInvalidResponse, err)
	}
	if height < 0 {
		return 0, fmt.Errorf("%w: negative block height %v", ErrInvalidResponse, height)
	}
	return uint64(height), nil
}

// ImportAddress calls `importaddress "address" "" true` so the node tracks
// the address as watch-only and rescans for existing outputs.
func (c *RPCClient) ImportAddress(ctx context.Context, address string) error {
	params := []interface{}{address, "", true}
	return c.Call(ctx, "importaddress", params, nil)
}
