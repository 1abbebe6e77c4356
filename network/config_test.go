package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/rentshare/config"
)

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestResolveConfig_Layers(t *testing.T) {
	env := map[string]string{
		EnvRPCURL:  "http://env-node:18332",
		EnvRPCUser: "envuser",
	}

	tests := []struct {
		name string
		cfg  config.Config
		env  map[string]string
		want RPCConfig
	}{
		{
			name: "regtest preset",
			cfg:  config.Config{Network: "regtest"},
			want: RPCConfig{URL: "http://localhost:18443", User: "rentshare", Password: "rentshare"},
		},
		{
			name: "testnet preset",
			cfg:  config.Config{Network: "testnet"},
			want: RPCConfig{URL: "http://localhost:18332", User: "rentshare", Password: "rentshare"},
		},
		{
			name: "env over preset",
			cfg:  config.Config{Network: "regtest"},
			env:  env,
			want: RPCConfig{URL: "http://env-node:18332", User: "envuser", Password: "rentshare"},
		},
		{
			name: "config over env",
			cfg:  config.Config{Network: "regtest", RPCURL: "http://flag:1", RPCPassword: "pw"},
			env:  env,
			want: RPCConfig{URL: "http://flag:1", User: "envuser", Password: "pw"},
		},
		{
			name: "empty env ignored",
			cfg:  config.Config{Network: "regtest"},
			env:  map[string]string{EnvRPCURL: ""},
			want: RPCConfig{URL: "http://localhost:18443", User: "rentshare", Password: "rentshare"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolve(tt.cfg, envOf(tt.env))
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestResolveConfig_MainnetRequiresEndpoint(t *testing.T) {
	_, err := resolve(config.Config{Network: "mainnet"}, envOf(nil))
	assert.ErrorIs(t, err, ErrNoRPCEndpoint)
	assert.Contains(t, err.Error(), "mainnet")

	got, err := resolve(config.Config{Network: "mainnet"}, envOf(map[string]string{EnvRPCURL: "http://node:8332"}))
	require.NoError(t, err)
	assert.Equal(t, RPCConfig{URL: "http://node:8332"}, *got)
}

func TestResolveConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv(EnvRPCURL, "http://from-env:9")
	got, err := ResolveConfig(config.Config{Network: "regtest"})
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:9", got.URL)
}
