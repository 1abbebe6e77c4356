package network

import (
	"fmt"
	"os"

	"github.com/bitfsorg/rentshare/config"
)

// RPCConfig holds the connection parameters for a node's JSON-RPC interface.
type RPCConfig struct {
	URL      string
	User     string
	Password string
}

// Environment variables overriding the node connection of a preset.
const (
	EnvRPCURL  = "RENTSHARE_RPC_URL"
	EnvRPCUser = "RENTSHARE_RPC_USER"
	EnvRPCPass = "RENTSHARE_RPC_PASS"
)

// presets are local development nodes. Mainnet has none so that a ledger
// holding real rent never talks to a node by accident.
var presets = map[string]RPCConfig{
	"regtest": {URL: "http://localhost:18443", User: "rentshare", Password: "rentshare"},
	"testnet": {URL: "http://localhost:18332", User: "rentshare", Password: "rentshare"},
}

// ResolveConfig returns the node connection for cfg.Network. Values in cfg,
// from the config file or flags, win over RENTSHARE_RPC_* variables, which
// win over the regtest and testnet presets.
func ResolveConfig(cfg config.Config) (*RPCConfig, error) {
	return resolve(cfg, os.LookupEnv)
}

func resolve(cfg config.Config, lookupEnv func(string) (string, bool)) (*RPCConfig, error) {
	rc := presets[cfg.Network]
	layer := func(dst *string, vals ...string) {
		for _, v := range vals {
			if v != "" {
				*dst = v
			}
		}
	}
	env := func(key string) string {
		v, _ := lookupEnv(key)
		return v
	}
	layer(&rc.URL, env(EnvRPCURL), cfg.RPCURL)
	layer(&rc.User, env(EnvRPCUser), cfg.RPCUser)
	layer(&rc.Password, env(EnvRPCPass), cfg.RPCPassword)

	if rc.URL == "" {
		return nil, fmt.Errorf("%w: %s has no default node, set --rpc-url or %s",
			ErrNoRPCEndpoint, cfg.Network, EnvRPCURL)
	}
	return &rc, nil
}
