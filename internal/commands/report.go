package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/internal/services"
	"github.com/spf13/cobra"
)

func newReportCommand(open Opener) *cobra.Command {
	var userID int64
	var since string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a user's estimated footprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			var sinceAt *time.Time
			if since != "" {
				t, err := time.Parse(model.DateLayout, since)
				if err != nil {
					return fmt.Errorf("--since must be YYYY-MM-DD: %w", err)
				}
				sinceAt = &t
			}

			app, err := open()
			if err != nil {
				return err
			}
			defer app.Close() //nolint
			app.WarmCategories(cmd.Context())

			sum, err := app.Reports.UserReport(cmd.Context(), userID, sinceAt)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), format, sum)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&since, "since", "", "only count transactions dated on or after YYYY-MM-DD")
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, yaml or json")

	return cmd
}

func printSummary(w io.Writer, format string, sum *model.Summary) error {
	if format != formatText {
		return encode(w, format, sum)
	}
	for _, line := range services.ReportLines(sum) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	for _, b := range sum.Breakdown {
		if b.Count == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %-22s %4d  %10.2fkg\n", b.Kind, b.Count, b.CO2Kg); err != nil {
			return err
		}
	}
	return nil
}
