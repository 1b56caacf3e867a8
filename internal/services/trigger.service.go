package services

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/pkg/errors"
)

// Webhook types that mean an account has new or changed transactions.
const (
	WebhookItemRefreshed  = "item.refreshed"
	WebhookAccountUpdated = "item.account.updated"
)

// EventPublisher appends a sync event to the stream the processor consumes.
type EventPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type AccountLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	GetByExternalID(ctx context.Context, externalID int64) (*model.Account, error)
}

// TriggerResult identifies a queued sync event.
type TriggerResult struct {
	EventID   string `json:"event_id"`
	MessageID string `json:"message_id"`
	AccountID int64  `json:"account_id"`
	Type      string `json:"type"`
}

// TriggerService queues sync passes instead of running them inline.
type TriggerService struct {
	accounts  AccountLookup
	publisher EventPublisher
}

func NewTriggerService(accounts AccountLookup, publisher EventPublisher) *TriggerService {
	return &TriggerService{
		accounts:  accounts,
		publisher: publisher,
	}
}

// Trigger queues a refresh or scratch pass for a known account.
func (s *TriggerService) Trigger(ctx context.Context, accountID int64, eventType model.SyncEventType) (*TriggerResult, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, notFound(err)
	}
	ev := model.SyncEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		AccountID:   accountID,
		TimestampMs: 0,
	}
	return s.publish(ctx, ev, "api")
}

// FromWebhook queues a refresh for the account a callback names. Callbacks
// of other types, or for accounts this instance does not track, return nil.
func (s *TriggerService) FromWebhook(ctx context.Context, hook model.BridgeWebhook) (*TriggerResult, error) {
	switch hook.Type {
	case WebhookItemRefreshed, WebhookAccountUpdated:
	default:
		logger.Debug("ignoring webhook", "type", hook.Type)
		return nil, nil
	}
	if hook.Content.AccountID == 0 {
		return nil, &ValidationError{Err: errors.Wrap(model.ErrValidation, "webhook content.account_id is required")}
	}

	account, err := s.accounts.GetByExternalID(ctx, hook.Content.AccountID)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			logger.Warn("webhook for unknown account", "external_account_id", hook.Content.AccountID, "type", hook.Type)
			return nil, nil
		}
		return nil, err
	}

	// no ID: redelivered callbacks collapse onto the same dedup key
	ev := model.SyncEvent{
		Type:        model.SyncEventRefresh,
		AccountID:   account.ID,
		TimestampMs: hook.Timestamp,
	}
	return s.publish(ctx, ev, "webhook")
}

func (s *TriggerService) publish(ctx context.Context, ev model.SyncEvent, origin string) (*TriggerResult, error) {
	if err := ev.Validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}
	msgID, err := s.publisher.PublishJSON(ctx, ev, map[string]string{
		"origin":     origin,
		"account_id": strconv.FormatInt(ev.AccountID, 10),
	})
	if err != nil {
		return nil, errors.Wrap(err, "publish sync event")
	}

	logger.Info("sync event queued", "event", ev.Key(), "type", ev.Type, "account_id", ev.AccountID, "origin", origin)
	return &TriggerResult{
		EventID:   ev.Key(),
		MessageID: msgID,
		AccountID: ev.AccountID,
		Type:      string(ev.Type),
	}, nil
}
