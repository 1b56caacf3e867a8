package processor

import (
	"context"
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/internal/queue"
	"github.com/nimasrn/co2-estimator/internal/services"
	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/nimasrn/co2-estimator/pkg/prom"
	"github.com/pkg/errors"
)

var ErrInvalidEvent = errors.New("invalid sync event")

// Syncer runs sync passes.
type Syncer interface {
	Refresh(ctx context.Context, accountID int64, eventTime time.Time) (*services.SyncResult, error)
	Scratch(ctx context.Context, accountID int64) (*services.SyncResult, error)
}

type SyncProcessor struct {
	syncer Syncer
	locker *AccountLocker
}

func NewSyncProcessor(syncer Syncer, locker *AccountLocker) *SyncProcessor {
	return &SyncProcessor{
		syncer: syncer,
		locker: locker,
	}
}

func (p *SyncProcessor) GetType() string {
	return "sync"
}

// Process runs the pass an event asks for. A nil return acknowledges the
// message; an error leaves it on the stream for another attempt.
func (p *SyncProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var ev model.SyncEvent
	if err := msg.Decode(&ev); err != nil {
		prom.IncEventProcessed("unknown", "invalid")
		return errors.Wrapf(ErrInvalidEvent, "message %s: %v", msg.ID, err)
	}
	if err := ev.Validate(); err != nil {
		prom.IncEventProcessed(string(ev.Type), "invalid")
		return errors.Wrapf(ErrInvalidEvent, "message %s: %v", msg.ID, err)
	}
	if ev.ID == "" {
		ev.ID = msg.ID
	}
	eventType := string(ev.Type)

	lease, err := p.locker.Acquire(ctx, ev.AccountID, ev.Key())
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		logger.Info("sync event already processed, skipping", "event", ev.Key(), "account_id", ev.AccountID)
		prom.IncEventProcessed(eventType, "duplicate")
		return nil
	case errors.Is(err, ErrMaxRetriesExceeded):
		logger.Error("sync event dropped after retries", "event", ev.Key(), "account_id", ev.AccountID)
		prom.IncEventProcessed(eventType, "dropped")
		return nil
	case errors.Is(err, ErrAccountBusy):
		prom.IncEventProcessed(eventType, "busy")
		return err
	case err != nil:
		return err
	}
	defer p.locker.Release(ctx, lease) //nolint

	logger.Info("running sync pass", "event", ev.Key(), "type", eventType, "account_id", ev.AccountID, "retry_count", lease.RetryCount)

	var res *services.SyncResult
	if ev.Type == model.SyncEventScratch {
		res, err = p.syncer.Scratch(ctx, ev.AccountID)
	} else {
		res, err = p.syncer.Refresh(ctx, ev.AccountID, ev.EventTime())
	}

	if errors.Is(err, services.ErrNotFound) {
		// account removed since the event was published, retrying cannot help
		logger.Warn("sync event for unknown account", "event", ev.Key(), "account_id", ev.AccountID)
		prom.IncEventProcessed(eventType, "gone")
		return p.locker.MarkSuccess(ctx, lease)
	}
	if err != nil {
		prom.IncEventProcessed(eventType, "failed")
		if markErr := p.locker.MarkFailure(ctx, lease, err); markErr != nil {
			logger.Error("failed to record failure", "event", ev.Key(), "error", markErr)
		}
		return err
	}

	prom.IncEventProcessed(eventType, "ok")
	if err := p.locker.MarkSuccess(ctx, lease); err != nil {
		logger.Error("failed to mark event processed", "event", ev.Key(), "error", err)
	}
	if res != nil {
		logger.Debug("sync event done", "event", ev.Key(), "created", res.Created, "updated", res.Updated, "protected", res.Protected)
	}
	return nil
}
