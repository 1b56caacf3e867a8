package main

import (
	"context"
	"os"

	"github.com/nimasrn/co2-estimator/internal/bootstrap"
	"github.com/nimasrn/co2-estimator/internal/config"
	"github.com/nimasrn/co2-estimator/internal/repository"
	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/nimasrn/co2-estimator/pkg/pg"
)

// main.go --dir=./migrations [--env=.env] [--status]
func main() {
	defer logger.Sync()

	envPath := bootstrap.EnvPath(os.Args)
	if envPath == "" {
		if _, err := os.Stat(".env"); err == nil {
			envPath = ".env"
		}
	}
	if err := config.Load(envPath); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dir := bootstrap.ArgValue(os.Args, "dir")
	if dir == "" {
		dir = "./migrations"
	}
	if _, err := os.Stat(dir); err != nil && config.Get().DBDriver != pg.DriverSQLite {
		logger.Error("migration: directory not found", "dir", dir, "error", err)
		os.Exit(1)
	}

	_, write := bootstrap.DBConfigs(config.Get())
	if write.Driver == pg.DriverSQLite {
		// the SQL files target postgres; sqlite gets its schema from the entities
		if err := autoMigrate(); err != nil {
			logger.Error("migration: sqlite auto-migrate failed", "error", err)
			os.Exit(1)
		}
		logger.Info("sqlite schema migrated", "path", write.Path)
		return
	}

	for _, arg := range os.Args[1:] {
		if arg == "--status" {
			if err := pg.MigrationStatus(write, dir); err != nil {
				logger.Error("migration: status failed", "error", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := pg.Migrate(write, dir); err != nil {
		logger.Error("migration: error running migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations applied", "dir", dir, "driver", write.Driver)
}

func autoMigrate() error {
	db, err := bootstrap.OpenDB(config.Get())
	if err != nil {
		return err
	}
	defer db.Close() //nolint
	return repository.AutoMigrate(db.Write(context.Background()))
}
