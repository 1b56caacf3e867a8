package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/nimasrn/co2-estimator/pkg/logger"
)

var ErrStopped = errors.New("workers terminated")

type WorkerHandler = func(workerIndex int, job interface{})

// WorkerManager runs a fixed pool of goroutines reading jobs from one channel.
// The channel may be shared with other producers and is never closed here.
type WorkerManager struct {
	jobChannel     chan interface{}
	numberOfWorker int
	quit           chan struct{}
	quitOnce       sync.Once
	do             WorkerHandler
	waiter         sync.WaitGroup
	busy           atomic.Int64
}

func NewWorkerManager(bufferSize, numberOfWorkers int, jobChannel chan interface{}) *WorkerManager {
	if jobChannel == nil {
		jobChannel = make(chan interface{}, bufferSize)
	}
	if numberOfWorkers <= 0 {
		numberOfWorkers = 1
	}
	return &WorkerManager{
		numberOfWorker: numberOfWorkers,
		jobChannel:     jobChannel,
		quit:           make(chan struct{}),
	}
}

// GetUnreadCount is the number of jobs waiting for a worker.
func (w *WorkerManager) GetUnreadCount() int64 {
	return int64(len(w.jobChannel))
}

// Busy is the number of jobs being handled right now.
func (w *WorkerManager) Busy() int64 {
	return w.busy.Load()
}

func (w *WorkerManager) JobEvents() chan interface{} {
	return w.jobChannel
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue blocks until a slot is free, ctx ends or the pool stops.
func (w *WorkerManager) Enqueue(ctx context.Context, val interface{}) error {
	select {
	case w.jobChannel <- val:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.quit:
		return ErrStopped
	}
}

// Start runs the workers and blocks until Exit is called.
func (w *WorkerManager) Start() error {
	if w.do == nil {
		return errors.New("worker handler is not set")
	}

	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job := <-w.jobChannel:
					w.run(index, job)
				case <-w.quit:
					return
				}
			}
		}(i)
	}
	w.waiter.Wait()

	return ErrStopped
}

func (w *WorkerManager) run(index int, job interface{}) {
	w.busy.Add(1)
	defer w.busy.Add(-1)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("worker recovered from panic", "worker", index, "panic", rec)
		}
	}()
	w.do(index, job)
}

// Exit stops every worker after its current job. Safe to call more than once.
func (w *WorkerManager) Exit() {
	w.quitOnce.Do(func() {
		logger.Info("worker manager is shutting down", "workers", w.numberOfWorker)
		close(w.quit)
	})
}
