package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/co2-estimator/internal/queue"
	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/nimasrn/co2-estimator/pkg/redis"
	"github.com/nimasrn/co2-estimator/pkg/worker"
	"github.com/pkg/errors"
)

const HealthInterval = time.Second * 30
const ShutdownTimeout = time.Minute

// Processor handles one kind of queue message.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

type ServiceConfig struct {
	Queue queue.QueueConfig
	// Consumers is the number of stream consumers, each named after Queue.ConsumerName.
	Consumers int
	Workers   int
	// ProcessingTimeout bounds one sync pass.
	ProcessingTimeout time.Duration
	// LagWarning is the pending count above which health checks warn.
	LagWarning int64
}

func (c *ServiceConfig) defaults() {
	if c.Consumers <= 0 {
		c.Consumers = 1
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.ProcessingTimeout <= 0 {
		c.ProcessingTimeout = 2 * time.Minute
	}
	if c.LagWarning <= 0 {
		c.LagWarning = 1000
	}
}

// ProcessorService consumes the sync stream and hands messages to a worker pool.
type ProcessorService struct {
	adapter   redis.RedisAdapter
	config    ServiceConfig
	queues    []*queue.Queue
	processor Processor
	metrics   *ServiceMetrics
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	worker    *worker.WorkerManager
}

func NewProcessorService(adapter redis.RedisAdapter, processor Processor, config ServiceConfig) *ProcessorService {
	config.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &ProcessorService{
		adapter:   adapter,
		config:    config,
		processor: processor,
		metrics:   NewServiceMetrics(),
		ctx:       ctx,
		cancel:    cancel,
		worker:    worker.NewWorkerManager(config.Workers*2, config.Workers, nil),
	}
}

func (s *ProcessorService) Metrics() *ServiceMetrics { return s.metrics }

func (s *ProcessorService) Start() error {
	logger.Info("starting processor service", "type", s.processor.GetType())

	s.worker.SetWorker(s.workerHandler)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil && !errors.Is(err, worker.ErrStopped) {
			logger.Error("worker manager stopped", "error", err)
		}
	}()

	for i := 0; i < s.config.Consumers; i++ {
		cfg := s.config.Queue
		cfg.ConsumerName = fmt.Sprintf("%s-%d", cfg.ConsumerName, i)

		q, err := queue.NewQueue(s.adapter, cfg)
		if err != nil {
			return errors.Wrapf(err, "create consumer %d", i)
		}
		if err := q.Consume(s.messageHandler); err != nil {
			return errors.Wrapf(err, "start consumer %d", i)
		}
		s.queues = append(s.queues, q)
	}

	s.wg.Add(2)
	go s.every(HealthInterval, s.performHealthCheck)
	go s.every(HealthInterval, s.reportMetrics)

	logger.Info("processor service started", "consumers", len(s.queues), "workers", s.config.Workers)
	return nil
}

func (s *ProcessorService) every(d time.Duration, fn func()) {
	defer s.wg.Done()

	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fn()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) reportMetrics() {
	st := s.metrics.GetStats()
	logger.Info("processor metrics",
		"total_processed", st.Processed, "total_failed", st.Failed,
		"rate_per_second", st.RatePerSecond, "avg_duration_ms", st.AvgDuration.Milliseconds(),
		"busy_workers", s.worker.Busy(), "waiting_jobs", s.worker.GetUnreadCount())
}

func (s *ProcessorService) performHealthCheck() {
	if err := s.adapter.Ping(s.ctx); err != nil {
		logger.Error("health check failed: redis unreachable", "error", err)
		return
	}
	if len(s.queues) == 0 {
		return
	}
	stats, err := s.queues[0].GetStats(s.ctx)
	if err != nil {
		logger.Warn("health check: queue stats unavailable", "error", err)
		return
	}
	if stats.PendingMessages > s.config.LagWarning {
		logger.Warn("health check: sync stream lagging", "pending_messages", stats.PendingMessages)
	}
	if stats.DeadLetters > 0 {
		logger.Warn("health check: dead letters waiting", "count", stats.DeadLetters)
	}
}

// Stop drains the consumers, then the worker pool.
func (s *ProcessorService) Stop() {
	logger.Info("shutting down processor service")
	s.cancel()

	var qwg sync.WaitGroup
	for i, q := range s.queues {
		qwg.Add(1)
		go func(index int, q *queue.Queue) {
			defer qwg.Done()
			if err := q.Stop(ShutdownTimeout); err != nil {
				logger.Error("error stopping consumer", "consumer", index, "error", err)
			}
		}(i, q)
	}
	qwg.Wait()

	s.worker.Exit()
	s.wg.Wait()
	s.reportMetrics()
	logger.Info("processor service stopped")
}

type job struct {
	msg    *queue.Message
	ctx    context.Context
	result chan error
}

// messageHandler hands the message to the pool and waits for its outcome.
func (s *ProcessorService) messageHandler(ctx context.Context, msg *queue.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ProcessingTimeout)
	defer cancel()

	j := &job{msg: msg, ctx: ctx, result: make(chan error, 1)}
	if err := s.worker.Enqueue(ctx, j); err != nil {
		return errors.Wrap(err, "enqueue sync job")
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for sync job")
	}
}

func (s *ProcessorService) workerHandler(workerIndex int, payload interface{}) {
	j, ok := payload.(*job)
	if !ok {
		logger.Error("invalid job type in worker", "worker", workerIndex)
		return
	}
	if j.ctx.Err() != nil {
		logger.Warn("job expired before processing", "worker", workerIndex, "message", j.msg.ID)
		return
	}

	start := time.Now()
	err := s.processor.Process(j.ctx, j.msg)
	if err != nil {
		s.metrics.RecordFailure()
		logger.Error("failed to process message", "worker", workerIndex, "message", j.msg.ID, "error", err)
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}

	// result is buffered, the handler may already have given up
	j.result <- err
}
