package model

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type SyncEventType string

const (
	SyncEventRefresh SyncEventType = "refresh"
	SyncEventScratch SyncEventType = "scratch"
)

// SyncEvent asks the processor to run one sync pass for an account.
type SyncEvent struct {
	ID          string        `json:"id"`
	Type        SyncEventType `json:"type"`
	AccountID   int64         `json:"account_id"`
	TimestampMs int64         `json:"timestamp_ms"`
}

func (e SyncEvent) Validate() error {
	if e.AccountID <= 0 {
		return errors.Wrap(ErrValidation, "account_id must be positive")
	}
	switch e.Type {
	case SyncEventRefresh, SyncEventScratch:
	default:
		return errors.Wrapf(ErrValidation, "unknown sync event type %q", e.Type)
	}
	return nil
}

// EventTime is the source-side time of the change, used to place the watermark.
func (e SyncEvent) EventTime() time.Time {
	if e.TimestampMs == 0 {
		return time.Now()
	}
	return time.UnixMilli(e.TimestampMs)
}

// Key identifies the event for deduplication.
func (e SyncEvent) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return string(e.Type) + ":" + strconv.FormatInt(e.AccountID, 10) + ":" + strconv.FormatInt(e.TimestampMs, 10)
}

// BridgeWebhook is the callback payload the aggregation API posts on account changes.
type BridgeWebhook struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Content   struct {
		AccountID int64  `json:"account_id"`
		ItemID    int64  `json:"item_id"`
		UserUUID  string `json:"user_uuid"`
	} `json:"content"`
}
