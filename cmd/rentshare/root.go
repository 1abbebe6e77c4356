package main

import (
	"github.com/spf13/cobra"

	"github.com/bitfsorg/rentshare/ledger"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "rentshare",
		Short: "Fractional ownership ledger for one rental property",
		Long: `rentshare tracks 100 ownership shares of a property and splits every
rent payment received at the custody address pro rata between holders.

Holders are identified by P2PKH addresses. Dividends are paid on chain when a
holder withdraws or transfers shares.

The wallet password is read from $RENTSHARE_PASSWORD.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.dataDir, "datadir", "", "data directory (default ~/.rentshare)")
	pf.StringVar(&a.network, "network", "", "mainnet, testnet or regtest")
	pf.StringVar(&a.logLevel, "loglevel", "", "debug, info, warn or error")
	pf.StringVar(&a.rpc.URL, "rpc-url", "", "node JSON-RPC URL")
	pf.StringVar(&a.rpc.User, "rpc-user", "", "node JSON-RPC user")
	pf.StringVar(&a.rpc.Password, "rpc-pass", "", "node JSON-RPC password")
	pf.Int64Var(&a.minConf, "min-conf", ledger.DefaultMinConfirmations, "confirmations before a deposit is credited")

	root.AddCommand(
		newInitCmd(a),
		newDepositCmd(a),
		newTransferCmd(a),
		newWithdrawCmd(a),
		newBalanceCmd(a),
		newPendingCmd(a),
		newSyncCmd(a),
		newServeCmd(a),
	)
	return root
}
