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

func TestRPCClientCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rentshare", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req rpcRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getblockcount", req.Method)
		assert.Equal(t, []interface{}{}, req.Params)

		_ = json.NewEncoder(w).Encode(rpcResponse{ID: req.ID, Result: json.RawMessage(`100`)})
	}))
	defer server.Close()

	client := NewRPCClient(RPCConfig{URL: server.URL, User: "rentshare", Password: "secret"})
	var height int
	require.NoError(t, client.Call(context.Background(), "getblockcount", nil, &height))
	assert.Equal(t, 100, height)
}

func TestRPCClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  error
		message string
	}{
		{
			name: "rpc error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(rpcResponse{Error: &rpcError{Code: -5, Message: "No such mempool transaction"}})
			},
			message: "No such mempool",
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			target: ErrAuthFailed,
		},
		{
			name: "bad gateway",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			target: ErrConnectionFailed,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			target: ErrInvalidResponse,
		},
		{
			name: "id mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(rpcResponse{ID: 999, Result: json.RawMessage(`1`)})
			},
			target: ErrInvalidResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			var out int
			err := NewRPCClient(RPCConfig{URL: server.URL}).Call(context.Background(), "getblockcount", nil, &out)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestRPCClientConnectionError(t *testing.T) {
	var result int
	err := NewRPCClient(RPCConfig{URL: "http://127.0.0.1:1"}).Call(context.Background(), "getblockcount", nil, &result)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestRPCClientSequentialIDs(t *testing.T) {
	var ids []int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		ids = append(ids, req.ID)
		_ = json.NewEncoder(w).Encode(rpcResponse{ID: req.ID, Result: json.RawMessage(`0`)})
	}))
	defer server.Close()

	client := NewRPCClient(RPCConfig{URL: server.URL}, WithHTTPClient(server.Client()))
	for i := 0; i < 3; i++ {
		var n int
		require.NoError(t, client.Call(context.Background(), "getblockcount", nil, &n))
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
}
