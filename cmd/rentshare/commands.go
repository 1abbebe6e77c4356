package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/rentshare/config"
	"github.com/bitfsorg/rentshare/pool"
	"github.com/bitfsorg/rentshare/store"
	"github.com/bitfsorg/rentshare/units"
	"github.com/bitfsorg/rentshare/wallet"
)

func newInitCmd(a *app) *cobra.Command {
	var (
		owner    string
		mnemonic string
		watch    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the custody wallet and issue all shares to the owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerAddr, err := wallet.ParseAddress(owner)
			if err != nil {
				return err
			}
			password, ok := os.LookupEnv(passwordEnv)
			if !ok {
				return errNoPassword
			}

			generated := mnemonic == ""
			if generated {
				if mnemonic, err = wallet.NewMnemonic(); err != nil {
					return err
				}
			}
			seed, err := wallet.MnemonicSeed(mnemonic)
			if err != nil {
				return err
			}
			if err := wallet.SaveSeed(a.cfg.DataDir, seed, password); err != nil {
				return err
			}
			if err := config.SaveConfig(config.ConfigPath(a.cfg.DataDir), a.cfg); err != nil {
				return err
			}

			l, err := a.openOffline()
			if err != nil {
				return err
			}
			err = l.Issue(ownerAddr)
			if cerr := l.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			custody, fee, err := a.keys()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if generated {
				fmt.Fprintf(out, "Mnemonic (write it down): %s\n", mnemonic)
			}
			fmt.Fprintf(out, "Owner:   %s (%d shares)\n", a.formatAddr(ownerAddr), pool.TotalShares)
			fmt.Fprintf(out, "Custody: %s (send rent here)\n", a.formatAddr(custody.Address()))
			fmt.Fprintf(out, "Fees:    %s (fund payout fees here)\n", a.formatAddr(fee.Address()))

			if watch {
				l, _, err := a.openOnline()
				if err != nil {
					return err
				}
				defer func() { _ = l.Close() }()
				a.watch(cmd.Context(), l)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "address receiving all 100 shares")
	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "restore from an existing BIP39 mnemonic")
	cmd.Flags().BoolVar(&watch, "watch", true, "import the custody address into the node")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newDepositCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <txid:vout>",
		Short: "Credit one rent payment to the custody address without waiting for sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := store.ParseOutpoint(args[0])
			if err != nil {
				return err
			}
			l, _, err := a.openOnline()
			if err != nil {
				return err
			}
			defer func() { _ = l.Close() }()

			amount, err := l.Credit(cmd.Context(), op)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credited %s BSV from %s, pool balance %s BSV\n",
				units.FormatBSV(amount), op, units.FormatBSV(l.PoolBalance()))
			return nil
		},
	}
}

func newTransferCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <from> <to> <shares>",
		Short: "Move shares, paying both parties their accrued rent",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := wallet.ParseAddress(args[0])
			if err != nil {
				return err
			}
			to, err := wallet.ParseAddress(args[1])
			if err != nil {
				return err
			}
			shares, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid share amount %q: %w", args[2], err)
			}

			l, _, err := a.openOnline()
			if err != nil {
				return err
			}
			defer func() { _ = l.Close() }()

			if err := l.Transfer(cmd.Context(), from, to, shares); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %d shares: %s now holds %d, %s holds %d\n",
				shares, a.formatAddr(from), l.BalanceOf(from), a.formatAddr(to), l.BalanceOf(to))
			return nil
		},
	}
}

func newWithdrawCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <holder>",
		Short: "Pay a holder everything accrued since their last settlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := wallet.ParseAddress(args[0])
			if err != nil {
				return err
			}
			l, _, err := a.openOnline()
			if err != nil {
				return err
			}
			defer func() { _ = l.Close() }()

			paid, err := l.Withdraw(cmd.Context(), holder)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paid %s BSV to %s\n", units.FormatBSV(paid), a.formatAddr(holder))
			return nil
		},
	}
}

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [holder]",
		Short: "Show share balances and the pool balance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.openOffline()
			if err != nil {
				return err
			}
			defer func() { _ = l.Close() }()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				holder, err := wallet.ParseAddress(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d\n", l.BalanceOf(holder))
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "HOLDER\tSHARES\tPENDING (BSV)")
			for _, h := range l.Holders() {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", a.formatAddr(h.Address), h.Shares, units.FormatBSV(h.Pending))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nPool balance: %s BSV (unclaimable dust %d sat)\n",
				units.FormatBSV(l.PoolBalance()), l.Dust())
			return nil
		},
	}
}

func newPendingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pending <holder>",
		Short: "Show the rent a holder can withdraw now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder, err := wallet.ParseAddress(args[0])
			if err != nil {
				return err
			}
			l, err := a.openOffline()
			if err != nil {
				return err
			}
			defer func() { _ = l.Close() }()

			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", units.FormatBSV(l.PendingOf(holder)))
			return nil
		},
	}
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Credit new payments to the custody address once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, err := a.openOnline()
			if err != nil {
				return err
			}
			defer func() { _ = l.Close() }()

			res, err := l.SyncDeposits(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Height %d: credited %s BSV from %d outputs, %d awaiting confirmation\n",
				res.Height, units.FormatBSV(res.Credited), res.Outputs, res.Waiting)
			return nil
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Credit rent continuously on the configured schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			l, payer, err := a.openOnline()
			if err != nil {
				return err
			}
			defer func() { _ = l.Close() }()

			a.logger.Info("serving",
				"network", a.cfg.Network,
				"custody", payer.CustodyAddress(),
				"fees", payer.FeeAddress(),
				"schedule", a.cfg.SyncSchedule)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.watch(gctx, l)
				return nil
			})
			g.Go(func() error {
				return l.StartSync(gctx, a.cfg.SyncSchedule)
			})
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.logger.Info("stopped")
			return nil
		},
	}
}
