package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nimasrn/co2-estimator/internal/bootstrap"
	"github.com/nimasrn/co2-estimator/internal/config"
	"github.com/nimasrn/co2-estimator/internal/handlers"
	"github.com/nimasrn/co2-estimator/internal/queue"
	"github.com/nimasrn/co2-estimator/internal/services"
	xhttp "github.com/nimasrn/co2-estimator/pkg/http"
	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/nimasrn/co2-estimator/pkg/prom"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer logger.Sync()

	err := config.Load(bootstrap.EnvPath(os.Args))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting api", "version", version, "commit", commit, "built", date)

	app, err := bootstrap.Open(cfg, true)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return
	}
	defer app.Close() //nolint

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	if cfg.AppDebugMetricsAddr != "" {
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	// the api only publishes; consumers live in the processor
	q, err := queue.NewQueue(app.Redis, bootstrap.QueueConfig(cfg))
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	app.WarmCategories(context.Background())

	// transport (tcp for now)
	s := xhttp.NewServer(bootstrap.ServerOption(cfg))
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)

	trigger := services.NewTriggerService(app.Accounts, q)

	g := s.Router.Group(cfg.HttpBaseRequestUrl)
	handlers.RegisterTransactionRoutes(g, handlers.NewTransactionHandler(app.Transaction))
	handlers.RegisterAccountRoutes(g, handlers.NewAccountHandler(trigger, app.Transaction))
	handlers.RegisterReportRoutes(g, handlers.NewReportHandler(app.Reports, app.ItemInfo))
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(map[string]handlers.HealthChecker{
		"database": app.DB,
		"redis":    app.Redis,
	}))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
			c <- syscall.SIGTERM
		}
	}()

	<-c
	s.Shutdown()
}
