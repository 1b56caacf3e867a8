package main

import (
	"os"

	"github.com/nimasrn/co2-estimator/internal/commands"
	"github.com/nimasrn/co2-estimator/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version, commands.Commit, commands.Date = version, commit, date

	err := commands.NewRootCommand().Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
