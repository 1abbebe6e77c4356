package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds a single JSON-RPC round trip.
const DefaultTimeout = 30 * time.Second

// RPCClient is a JSON-RPC 1.0 client for a BSV node.
// All high-level blockchain methods are built on top of Call.
type RPCClient struct {
	url    string
	user   string
	pass   string
	client *http.Client
	logger *slog.Logger
	nextID atomic.Int64
}

// ClientOption configures an RPCClient.
type ClientOption func(*RPCClient)

// WithHTTPClient replaces the default pooled HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *RPCClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithLogger logs every RPC method and its latency at debug level.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *RPCClient) {
		if l != nil {
			c.logger = l
		}
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewRPCClient creates a JSON-RPC client for cfg. Basic Auth is sent when
// User is non-empty.
func NewRPCClient(cfg RPCConfig, opts ...ClientOption) *RPCClient {
	c := &RPCClient{
		url:  cfg.URL,
		user: cfg.User,
		pass: cfg.Password,
		client: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call invokes method on the node and decodes the result into result.
//
// A nil params sends an empty array; a nil result discards the response.
// Transport failures wrap ErrConnectionFailed and undecodable bodies wrap
// ErrInvalidResponse. RPC-level errors carry the node's code and message.
func (c *RPCClient) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	err := c.call(ctx, method, params, result)
	c.logger.DebugContext(ctx, "rpc call",
		"method", method,
		"elapsed", time.Since(start),
		"err", err)
	return err
}

func (c *RPCClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	reqBody := rpcRequest{
		JSONRPC: "1.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("network: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("network: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusInternalServerError:
		// Bitcoin-style nodes report RPC errors with a 500 and a JSON body.
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: HTTP %d: %s", ErrConnectionFailed, resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrInvalidResponse, err)
	}

	if rpcResp.Error != nil {
		return fmt.Errorf("network: rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if rpcResp.ID != reqBody.ID {
		return fmt.Errorf("%w: response ID mismatch: expected %d, got %d",
			ErrInvalidResponse, reqBody.ID, rpcResp.ID)
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: unmarshal result: %w", ErrInvalidResponse, err)
		}
	}

	return nil
}
