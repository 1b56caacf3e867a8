package commands

import (
	"fmt"

	"github.com/nimasrn/co2-estimator/internal/bootstrap"
	"github.com/nimasrn/co2-estimator/internal/config"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Opener builds the wired services a command runs against.
type Opener func() (*bootstrap.App, error)

// NewRootCommand creates the co2ctl command tree against the configured database.
func NewRootCommand() *cobra.Command {
	var envPath string
	var withRedis bool
	open := func() (*bootstrap.App, error) {
		if err := config.Load(envPath); err != nil {
			return nil, err
		}
		return bootstrap.Open(config.Get(), withRedis)
	}
	root := newRootCommand(open)
	root.PersistentFlags().StringVar(&envPath, "env", "", "env file to load before reading configuration")
	root.PersistentFlags().BoolVar(&withRedis, "redis", false, "connect to redis so shared caches are read and invalidated too")
	return root
}

func newRootCommand(open Opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "co2ctl",
		Short:   "Operate the CO2 transaction estimator",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newSyncCommand(open))
	rootCmd.AddCommand(newScratchCommand(open))
	rootCmd.AddCommand(newReclassifyCommand(open))
	rootCmd.AddCommand(newPristineCommand(open))
	rootCmd.AddCommand(newReportCommand(open))
	rootCmd.AddCommand(newKindsCommand())
	rootCmd.AddCommand(newCategoriesCommand(open))

	return rootCmd
}
