// Package bootstrap wires configuration into connections and services for the binaries.
package bootstrap

import (
	"context"
	"os"
	"strings"

	"github.com/nimasrn/co2-estimator/internal/bridgeapi"
	"github.com/nimasrn/co2-estimator/internal/category"
	"github.com/nimasrn/co2-estimator/internal/config"
	"github.com/nimasrn/co2-estimator/internal/estimator"
	"github.com/nimasrn/co2-estimator/internal/queue"
	"github.com/nimasrn/co2-estimator/internal/repository"
	"github.com/nimasrn/co2-estimator/internal/services"
	xhttp "github.com/nimasrn/co2-estimator/pkg/http"
	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/nimasrn/co2-estimator/pkg/pg"
	"github.com/nimasrn/co2-estimator/pkg/redis"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// App holds the wired services shared by the api, the processor and co2ctl.
type App struct {
	Config *config.Config
	DB     *pg.DB
	// Redis is nil for tools that run without it; the category cache then
	// skips its shared snapshot.
	Redis      redis.RedisAdapter
	Bridge     *bridgeapi.Client
	Source     *bridgeapi.Source
	Categories *category.Cache
	Registry   *estimator.Registry

	Users        *repository.UserRepository
	Items        *repository.ItemRepository
	Accounts     *repository.AccountRepository
	Transactions *repository.TransactionRepository

	Sync        *services.SyncService
	Transaction *services.TransactionService
	Reports     *services.ReportService
	ItemInfo    *services.ItemService
}

// NewApp wires repositories and services over already opened connections.
func NewApp(c *config.Config, db *pg.DB, rds redis.RedisAdapter, client *bridgeapi.Client) *App {
	a := &App{
		Config:       c,
		DB:           db,
		Redis:        rds,
		Bridge:       client,
		Registry:     estimator.Default(),
		Users:        repository.NewUserRepository(db),
		Items:        repository.NewItemRepository(db),
		Accounts:     repository.NewAccountRepository(db),
		Transactions: repository.NewTransactionRepository(db),
	}
	a.Source = bridgeapi.NewSource(client, a.Users)

	var opts []category.Option
	if rds != nil {
		opts = append(opts, category.WithSnapshot(rds, c.CategoryCacheTTL))
	}
	a.Categories = category.NewCache(a.Source, opts...)

	a.Sync = services.NewSyncService(a.Accounts, a.Transactions, a.Source, a.Registry,
		services.WithWatermarkMargin(c.SyncWatermarkMargin))
	a.Transaction = services.NewTransactionService(a.Transactions, a.Accounts, a.Registry, a.Categories)
	a.Reports = services.NewReportService(a.Transactions, a.Registry, a.Categories)
	a.ItemInfo = services.NewItemService(a.Items, a.Source)
	return a
}

// Open connects to the database, to redis when withRedis is set, and builds the
// aggregation API client.
func Open(c *config.Config, withRedis bool) (*App, error) {
	db, err := OpenDB(c)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	var rds redis.RedisAdapter
	if withRedis {
		rds, err = OpenRedis(c)
		if err != nil {
			db.Close() //nolint
			return nil, errors.Wrap(err, "connect redis")
		}
	}

	client, err := bridgeapi.NewClient(BridgeConfig(c))
	if err != nil {
		db.Close() //nolint
		return nil, errors.Wrap(err, "bridge api client")
	}
	return NewApp(c, db, rds, client), nil
}

// WarmCategories loads category names. Failure only degrades names to placeholders.
func (a *App) WarmCategories(ctx context.Context) {
	if err := a.Categories.EnsureLoaded(ctx); err != nil {
		logger.Warn("category names unavailable, using placeholders", "error", err)
	}
}

func (a *App) Close() error {
	var err error
	if a.DB != nil {
		err = multierr.Append(err, a.DB.Close())
	}
	if a.Redis != nil {
		err = multierr.Append(err, a.Redis.Close())
	}
	return err
}

// DBConfigs splits the configuration into read and write connection settings.
func DBConfigs(c *config.Config) (read pg.Config, write pg.Config) {
	read = pg.Config{
		Driver:   c.DBDriver,
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
		Path:     c.SQLitePath,
	}
	write = pg.Config{
		Driver:   c.DBDriver,
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
		Path:     c.SQLitePath,
	}
	return read, write
}

// OpenDB opens the read/write pair. SQLite gets a single handle for both.
func OpenDB(c *config.Config) (*pg.DB, error) {
	read, write := DBConfigs(c)
	debug := c.AppEnv == "dev" && c.AppDebug

	if c.DBDriver == pg.DriverSQLite {
		db, err := pg.Create(write, debug)
		if err != nil {
			return nil, err
		}
		return pg.New(db, db), nil
	}
	return pg.CreateReadWrite(read, write, debug)
}

func OpenRedis(c *config.Config) (redis.RedisAdapter, error) {
	return redis.NewRedisAdapter("default", c.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{c.RedisAddr},
		ClientName: c.AppName,
		DB:         c.RedisDatabase,
		Username:   c.RedisUsername,
		Password:   c.RedisPassword,
	})
}

func BridgeConfig(c *config.Config) bridgeapi.Config {
	return bridgeapi.Config{
		BaseURL:      c.BridgeApiUrl,
		Version:      c.BridgeApiVersion,
		ClientID:     c.BridgeClientID,
		ClientSecret: c.BridgeClientSecret,
		Timeout:      c.BridgeTimeout,
		MaxConns:     c.BridgeMaxConns,
		PageLimit:    c.BridgePageLimit,
		Breaker: bridgeapi.BreakerConfig{
			Interval:         c.BridgeBreakerInterval,
			Timeout:          c.BridgeBreakerTimeout,
			FailureThreshold: uint32(c.BridgeBreakerFailures),
		},
	}
}

func QueueConfig(c *config.Config) queue.QueueConfig {
	return queue.QueueConfig{
		Name:              c.QueueName,
		ConsumerGroup:     c.QueueConsumerGroup,
		ConsumerName:      c.QueueConsumerName,
		MaxRetries:        c.QueueMaxRetries,
		VisibilityTimeout: c.QueueVisibilityTimeout,
		PollInterval:      c.QueuePollInterval,
		BatchSize:         c.QueueBatchSize,
		MaxLen:            c.QueueMaxLen,
		EnableDLQ:         c.QueueEnableDLQ,
	}
}

// ServerOption maps the HTTP settings onto the api server.
func ServerOption(c *config.Config) xhttp.ServerOption {
	o := xhttp.DefaultServerOption
	o.Name = c.AppName
	o.ReadTimeout = c.HttpReadTimeout
	o.WriteTimeout = c.HttpWriteTimeout
	o.IdleTimeout = c.HttpIdleTimeout
	o.ReadBufferSize = c.HttpBufferSize
	o.WriteBufferSize = c.HttpBufferSize
	o.MaxRequestBodySize = c.HttpMaxBodySize
	return o
}

// ArgValue returns the value of a --name=value argument, or "".
func ArgValue(args []string, name string) string {
	prefix := "--" + name + "="
	for _, v := range args {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return ""
}

// EnvPath returns the --env= file when it exists, otherwise "".
func EnvPath(args []string) string {
	path := ArgValue(args, "env")
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		logger.Error("failed to open the passed env file", "path", path, "error", err)
		return ""
	}
	return path
}
