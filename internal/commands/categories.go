package commands

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newCategoriesCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect and refresh the category taxonomy cache",
	}
	cmd.AddCommand(newCategoriesRefreshCommand(open))
	return cmd
}

func newCategoriesRefreshCommand(open Opener) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Drop the cached taxonomy, shared snapshot included, and fetch it again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			app, err := open()
			if err != nil {
				return err
			}
			defer app.Close() //nolint

			if err := app.Categories.Invalidate(cmd.Context()); err != nil {
				return errors.Wrap(err, "invalidate categories")
			}
			if err := app.Categories.Load(cmd.Context()); err != nil {
				return err
			}
			return printCategories(cmd.OutOrStdout(), format, app.Categories.All())
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, yaml or json")
	return cmd
}

func printCategories(w io.Writer, format string, categories []model.Category) error {
	if format != formatText {
		return encode(w, format, categories)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPARENT\tNAME")
	for _, c := range categories {
		parent := "-"
		if c.ParentID != nil {
			parent = strconv.FormatInt(*c.ParentID, 10)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, parent, c.Name)
	}
	fmt.Fprintf(tw, "%d categories\n", len(categories))
	return tw.Flush()
}
