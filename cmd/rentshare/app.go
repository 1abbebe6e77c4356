package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bitfsorg/rentshare/config"
	"github.com/bitfsorg/rentshare/ledger"
	"github.com/bitfsorg/rentshare/logging"
	"github.com/bitfsorg/rentshare/network"
	"github.com/bitfsorg/rentshare/payout"
	"github.com/bitfsorg/rentshare/pool"
	"github.com/bitfsorg/rentshare/store"
	"github.com/bitfsorg/rentshare/wallet"
)

const (
	ledgerFileName = "ledger.db"
	passwordEnv    = "RENTSHARE_PASSWORD"
)

var errNoPassword = errors.New("wallet password not set (export " + passwordEnv + ")")

// app carries the resolved configuration shared by all commands.
type app struct {
	dataDir  string
	network  string
	logLevel string
	rpc      network.RPCConfig
	minConf  int64

	cfg     config.Config
	logger  *slog.Logger
	closeLg func() error
}

// load reads the config file under dataDir and applies flag overrides.
func (a *app) load() error {
	if a.dataDir == "" {
		a.dataDir = config.DefaultDataDir()
	}
	cfg, err := config.LoadConfig(config.ConfigPath(a.dataDir))
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return err
	}
	cfg.DataDir = a.dataDir
	if a.network != "" {
		cfg.Network = a.network
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.rpc.URL != "" {
		cfg.RPCURL = a.rpc.URL
	}
	if a.rpc.User != "" {
		cfg.RPCUser = a.rpc.User
	}
	if a.rpc.Password != "" {
		cfg.RPCPassword = a.rpc.Password
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, a.closeLg, err = logging.Setup(cfg.LogLevel, cfg.LogFile)
	return err
}

func (a *app) close() {
	if a.closeLg != nil {
		_ = a.closeLg()
	}
}

func (a *app) netConfig() (*wallet.NetworkConfig, error) {
	return wallet.GetNetwork(a.cfg.Network)
}

// keys decrypts the wallet and derives the custody and fee keys.
func (a *app) keys() (custody, fee *wallet.KeyPair, err error) {
	password, ok := os.LookupEnv(passwordEnv)
	if !ok {
		return nil, nil, errNoPassword
	}
	seed, err := wallet.LoadSeed(a.cfg.DataDir, password)
	if err != nil {
		return nil, nil, err
	}
	net, err := a.netConfig()
	if err != nil {
		return nil, nil, err
	}
	w, err := wallet.NewWallet(seed, net)
	if err != nil {
		return nil, nil, err
	}
	if custody, err = w.PoolKey(); err != nil {
		return nil, nil, err
	}
	if fee, err = w.FeeKey(); err != nil {
		return nil, nil, err
	}
	return custody, fee, nil
}

// chain connects to the node named by config, env and flags.
func (a *app) chain() (*network.RPCClient, error) {
	rpcCfg, err := network.ResolveConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return network.NewRPCClient(*rpcCfg, network.WithLogger(a.logger)), nil
}

// openOffline opens the ledger without wallet or node access.
func (a *app) openOffline() (*ledger.Ledger, error) {
	st, err := store.OpenBoltStore(filepath.Join(a.cfg.DataDir, ledgerFileName))
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(st, ledger.WithLogger(a.logger))
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return l, nil
}

// openOnline opens the ledger wired to the node and the custody wallet.
func (a *app) openOnline() (*ledger.Ledger, *payout.Payer, error) {
	custody, fee, err := a.keys()
	if err != nil {
		return nil, nil, err
	}
	rpc, err := a.chain()
	if err != nil {
		return nil, nil, err
	}
	net, err := a.netConfig()
	if err != nil {
		return nil, nil, err
	}
	custodyAddr, err := wallet.FormatAddress(custody.Address(), net)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.OpenBoltStore(filepath.Join(a.cfg.DataDir, ledgerFileName))
	if err != nil {
		return nil, nil, err
	}
	l, err := ledger.Open(st,
		ledger.WithLogger(a.logger),
		ledger.WithChain(rpc, custodyAddr),
		ledger.WithMinConfirmations(a.minConf))
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	payer, err := payout.New(rpc, custody, fee,
		payout.WithNetwork(net),
		payout.WithFeeRate(a.cfg.FeeRate),
		payout.WithSpendable(l.Spendable),
		payout.WithOnBroadcast(l.RecordPayout),
		payout.WithLogger(a.logger))
	if err != nil {
		_ = l.Close()
		return nil, nil, err
	}
	l.SetPayer(payer)
	return l, payer, nil
}

// watch imports the custody address, logging rather than failing when the
// node is unreachable.
func (a *app) watch(ctx context.Context, l *ledger.Ledger) {
	if err := l.Watch(ctx); err != nil {
		a.logger.Warn("custody address not imported", "error", err)
	}
}

func (a *app) formatAddr(addr pool.Address) string {
	net, err := a.netConfig()
	if err != nil {
		return fmt.Sprintf("%x", addr)
	}
	s, err := wallet.FormatAddress(addr, net)
	if err != nil {
		return fmt.Sprintf("%x", addr)
	}
	return s
}
