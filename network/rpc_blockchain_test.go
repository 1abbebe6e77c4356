package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcHandler func(params []interface{}) (interface{}, *rpcError)

// rpcTestServer serves JSON-RPC requests by dispatching on method name.
func rpcTestServer(t *testing.T, handlers map[string]rpcHandler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler, ok := handlers[req.Method]
		if !ok {
			t.Errorf("unexpected RPC method: %s", req.Method)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		result, rpcErr := handler(req.Params)
		resp := rpcResponse{ID: req.ID}
		if rpcErr != nil {
			resp.Error = rpcErr
			w.WriteHeader(http.StatusInternalServerError)
		} else {
			resp.Result, _ = json.Marshal(result)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestListUnspent(t *testing.T) {
	const addr = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	srv := rpcTestServer(t, map[string]rpcHandler{
		"listunspent": func(params []interface{}) (interface{}, *rpcError) {
			require.Len(t, params, 3)
			assert.Equal(t, float64(0), params[0])
			assert.Equal(t, float64(9999999), params[1])
			assert.Equal(t, []interface{}{addr}, params[2])
			return []map[string]interface{}{
				{"txid": "aa", "vout": 0, "amount": 0.001, "scriptPubKey": "76a9", "address": addr, "confirmations": 6},
				{"txid": "bb", "vout": 2, "amount": 1.23456789, "scriptPubKey": "76a9", "address": addr, "confirmations": 0},
			}, nil
		},
	})

	utxos, err := NewRPCClient(RPCConfig{URL: srv.URL}).ListUnspent(context.Background(), addr)
	require.NoError(t, err)
	require.Len(t, utxos, 2)
	assert.Equal(t, uint64(100000), utxos[0].Amount)
	assert.Equal(t, int64(6), utxos[0].Confirmations)
	assert.Equal(t, uint64(123456789), utxos[1].Amount)
	assert.Equal(t, uint32(2), utxos[1].Vout)
}

func TestBroadcastTx(t *testing.T) {
	srv := rpcTestServer(t, map[string]rpcHandler{
		"sendrawtransaction": func(params []interface{}) (interface{}, *rpcError) {
			assert.Equal(t, "0100", params[0])
			return "txid-1", nil
		},
	})
	txid, err := NewRPCClient(RPCConfig{URL: srv.URL}).BroadcastTx(context.Background(), "0100")
	require.NoError(t, err)
	assert.Equal(t, "txid-1", txid)
}

func TestBroadcastTxRejected(t *testing.T) {
	srv := rpcTestServer(t, map[string]rpcHandler{
		"sendrawtransaction": func(params []interface{}) (interface{}, *rpcError) {
			return nil, &rpcError{Code: -26, Message: "dust"}
		},
	})
	_, err := NewRPCClient(RPCConfig{URL: srv.URL}).BroadcastTx(context.Background(), "0100")
	assert.ErrorIs(t, err, ErrBroadcastRejected)
	assert.Contains(t, err.Error(), "dust")
}

func TestGetBestBlockHeight(t *testing.T) {
	srv := rpcTestServer(t, map[string]rpcHandler{
		"getblockcount": func(params []interface{}) (interface{}, *rpcError) {
			return 812345, nil
		},
	})
	h, err := NewRPCClient(RPCConfig{URL: srv.URL}).GetBestBlockHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(812345), h)
}

func TestImportAddress(t *testing.T) {
	var got []interface{}
	srv := rpcTestServer(t, map[string]rpcHandler{
		"importaddress": func(params []interface{}) (interface{}, *rpcError) {
			got = params
			return nil, nil
		},
	})
	err := NewRPCClient(RPCConfig{URL: srv.URL}).ImportAddress(context.Background(), "mfoo")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"mfoo", "", true}, got)
}

func TestListUnspent_Amounts(t *testing.T) {
	tests := []struct {
		amount json.Number
		want   uint64
		err    bool
	}{
		{"0.00000001", 1, false},
		{"1e-08", 1, false},
		{"0.29", 29_000_000, false},
		{"21000000", 2_100_000_000_000_000, false},
		{"0.000000001", 0, true},
		{"-0.5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.amount.String(), func(t *testing.T) {
			srv := rpcTestServer(t, map[string]rpcHandler{
				"listunspent": func([]interface{}) (interface{}, *rpcError) {
					return []map[string]interface{}{{"txid": "aa", "vout": 0, "amount": tt.amount}}, nil
				},
			})
			utxos, err := NewRPCClient(RPCConfig{URL: srv.URL}).ListUnspent(context.Background(), "mfoo")
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			require.Len(t, utxos, 1)
			assert.Equal(t, tt.want, utxos[0].Amount)
		})
	}
}
