package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/nimasrn/co2-estimator/internal/bootstrap"
	"github.com/nimasrn/co2-estimator/internal/config"
	"github.com/nimasrn/co2-estimator/internal/processor"
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
	logger.Info("starting processor", "version", version, "commit", commit, "built", date)

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
	metricsAddr := cfg.AppDebugMetricsAddr
	if metricsAddr == "" {
		metricsAddr = ":9100"
	}
	go prom.ListenAndServer(metricsAddr, cfg.AppDebugMetricsURI)

	lockCfg := processor.DefaultLockConfig()
	lockCfg.LockTTL = cfg.SyncLockTTL
	lockCfg.MaxRetries = cfg.SyncMaxRetries
	locker := processor.NewAccountLocker(app.Redis, lockCfg)

	qcfg := bootstrap.QueueConfig(cfg)
	if qcfg.ConsumerName == "" {
		qcfg.ConsumerName = hostname
	}
	service := processor.NewProcessorService(app.Redis, processor.NewSyncProcessor(app.Sync, locker), processor.ServiceConfig{
		Queue:             qcfg,
		Consumers:         cfg.ProcessorConsumers,
		Workers:           cfg.ProcessorWorkers,
		ProcessingTimeout: cfg.ProcessorProcessingTimeout,
		LagWarning:        cfg.ProcessorLagWarning,
	})

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err := service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}

	<-c
	service.Stop()
}
