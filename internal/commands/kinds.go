package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nimasrn/co2-estimator/internal/estimator"
	"github.com/spf13/cobra"
)

type kindInfo struct {
	Name        string `json:"name"                  yaml:"name"`
	Rank        int    `json:"rank"                  yaml:"rank"`
	Refines     string `json:"refines,omitempty"     yaml:"refines,omitempty"`
	Estimates   bool   `json:"estimates"             yaml:"estimates"`
	Icon        string `json:"icon"                  yaml:"icon"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

func newKindsCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the built-in estimator kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return printKinds(cmd.OutOrStdout(), format, estimator.Default())
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, yaml or json")
	return cmd
}

func printKinds(w io.Writer, format string, registry *estimator.Registry) error {
	kinds := registry.Kinds()
	infos := make([]kindInfo, len(kinds))
	for i, k := range kinds {
		infos[i] = kindInfo{
			Name:        k.Name.String(),
			Rank:        k.Rank,
			Refines:     k.Refines.String(),
			Estimates:   k.HasEstimate(),
			Icon:        k.Icon,
			Explanation: k.Explanation,
		}
	}
	if format != formatText {
		return encode(w, format, infos)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tRANK\tREFINES\tICON")
	for _, k := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", k.Name, k.Rank, k.Refines, k.Icon)
	}
	return tw.Flush()
}
