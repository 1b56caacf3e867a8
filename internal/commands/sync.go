package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/nimasrn/co2-estimator/internal/services"
	"github.com/spf13/cobra"
)

func newSyncCommand(open Opener) *cobra.Command {
	var accountID int64
	var at string
	var format string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch and reconcile an account's changed transactions now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			eventTime := time.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				eventTime = t
			}

			app, err := open()
			if err != nil {
				return err
			}
			defer app.Close() //nolint

			res, err := app.Sync.Refresh(cmd.Context(), accountID, eventTime)
			if res != nil {
				if perr := printSyncResult(cmd.OutOrStdout(), format, res); perr != nil {
					return perr
				}
			}
			return err
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&at, "at", "", "event time (RFC3339), defaults to now")
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, yaml or json")

	return cmd
}

func newScratchCommand(open Opener) *cobra.Command {
	var accountID int64
	var format string

	cmd := &cobra.Command{
		Use:   "scratch",
		Short: "Delete an account's transactions and resync them from the beginning",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			app, err := open()
			if err != nil {
				return err
			}
			defer app.Close() //nolint

			res, err := app.Sync.Scratch(cmd.Context(), accountID)
			if res != nil {
				if perr := printSyncResult(cmd.OutOrStdout(), format, res); perr != nil {
					return perr
				}
			}
			return err
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, yaml or json")

	return cmd
}

func newReclassifyCommand(open Opener) *cobra.Command {
	var accountID int64

	cmd := &cobra.Command{
		Use:   "reclassify",
		Short: "Rerun classification over every stored transaction of an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open()
			if err != nil {
				return err
			}
			defer app.Close() //nolint

			changed, err := app.Transaction.ReclassifyAccount(cmd.Context(), accountID)
			fmt.Fprintf(cmd.OutOrStdout(), "account %d: %d transactions changed kind\n", accountID, changed)
			return err
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account id (required)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newPristineCommand(open Opener) *cobra.Command {
	var transactionID int64

	cmd := &cobra.Command{
		Use:   "pristine",
		Short: "Discard user edits on a transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open()
			if err != nil {
				return err
			}
			defer app.Close() //nolint

			view, err := app.Transaction.SetPristine(cmd.Context(), transactionID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Display)
			return nil
		},
	}

	cmd.Flags().Int64Var(&transactionID, "transaction", 0, "transaction id (required)")
	_ = cmd.MarkFlagRequired("transaction")

	return cmd
}

func printSyncResult(w io.Writer, format string, res *services.SyncResult) error {
	if format != formatText {
		return encode(w, format, res)
	}
	watermark := "unchanged"
	if res.Watermark != nil {
		watermark = res.Watermark.UTC().Format(time.RFC3339)
	}
	_, err := fmt.Fprintf(w, "account %d (%s): fetched %d, created %d, updated %d, protected %d, unchanged %d, failed %d\nwatermark: %s\n",
		res.AccountID, res.Mode, res.Fetched, res.Created, res.Updated, res.Protected, res.Unchanged, res.Failed, watermark)
	if err == nil && res.Wiped > 0 {
		_, err = fmt.Fprintf(w, "wiped: %d\n", res.Wiped)
	}
	return err
}
