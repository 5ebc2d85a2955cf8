package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/employee-portal/internal/ethunit"
	"github.com/frahmantamala/employee-portal/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	withdrawAmount     string
	withdrawPrivateKey string
	logsFrom           string
	logsTo             string
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "ETH balance, history and withdrawals",
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the wallet balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			if _, err := deps.Sessions.RequireUser(); err != nil {
				return err
			}
			b, err := deps.Wallet.Balance(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s ETH\n%s\n", b.Balance, b.Address)
			return nil
		})
	},
}

var walletWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw ETH from the wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := ethunit.Parse(withdrawAmount)
		if err != nil {
			return err
		}

		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			receipt, err := deps.Wallet.Withdraw(ctx, wallet.WithdrawInput{Amount: amount, PrivateKey: withdrawPrivateKey})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), receipt.Raw)
		})
	},
}

var walletLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the transaction history",
	RunE: func(cmd *cobra.Command, args []string) error {
		var r wallet.DateRange
		if logsFrom != "" {
			d, err := wallet.ParseDate(logsFrom)
			if err != nil {
				return err
			}
			r.Start = &d
		}
		if logsTo != "" {
			d, err := wallet.ParseDate(logsTo)
			if err != nil {
				return err
			}
			r.End = &d
		}

		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			ov, err := deps.Wallet.Overview(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Balance: %s ETH  Book balance: %s ETH  Entries: %d\n\n", ov.Balance.Balance, ov.Logs.BookBalance, ov.Logs.LogCount)
			tw := newTable(out, "TIME", "ACTION", "AMOUNT (ETH)")
			for _, e := range wallet.FilterLogs(ov.Logs.Logs, r, time.Local) {
				amount := e.SignedAmount().String()
				if !e.IsDebit() {
					amount = "+" + amount
				}
				row(tw, e.Time().Local().Format("2006-01-02 15:04:05"), e.Action, amount)
			}
			return tw.Flush()
		})
	},
}

func init() {
	walletWithdrawCmd.Flags().StringVar(&withdrawAmount, "amount", "", "amount in ETH")
	walletWithdrawCmd.Flags().StringVar(&withdrawPrivateKey, "private-key", "", "signing key; defaults to the key stored with the session")
	_ = walletWithdrawCmd.MarkFlagRequired("amount")

	walletLogsCmd.Flags().StringVar(&logsFrom, "from", "", "first day, YYYY-MM-DD")
	walletLogsCmd.Flags().StringVar(&logsTo, "to", "", "last day, YYYY-MM-DD")

	walletCmd.AddCommand(walletBalanceCmd, walletWithdrawCmd, walletLogsCmd)
}
