package processor

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/nimasrn/co2-estimator/pkg/redis"
	"github.com/pkg/errors"
)

var (
	ErrAlreadyProcessed   = errors.New("event already processed")
	ErrAccountBusy        = errors.New("account is being synced by another consumer")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type LockConfig struct {
	// LockTTL bounds how long a crashed consumer can hold an account.
	LockTTL time.Duration

	ProcessedTTL time.Duration

	MaxRetries int

	RetryKeyPrefix     string
	LockKeyPrefix      string
	ProcessedKeyPrefix string
}

func DefaultLockConfig() LockConfig {
	return LockConfig{
		LockTTL:            5 * time.Minute,
		ProcessedTTL:       24 * time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "sync:retry:",
		LockKeyPrefix:      "sync:lock:account:",
		ProcessedKeyPrefix: "sync:processed:",
	}
}

// AccountLocker serialises sync passes per account and deduplicates events.
type AccountLocker struct {
	redis  redis.RedisAdapter
	config LockConfig
}

func NewAccountLocker(adapter redis.RedisAdapter, config LockConfig) *AccountLocker {
	return &AccountLocker{
		redis:  adapter,
		config: config,
	}
}

// Lease is a held account lock for one event.
type Lease struct {
	AccountID  int64
	EventKey   string
	RetryCount int
	token      []byte
	held       bool
}

func (l *AccountLocker) lockKey(accountID int64) string {
	return l.config.LockKeyPrefix + strconv.FormatInt(accountID, 10)
}

// Acquire takes the account lock for the event. It fails with ErrAlreadyProcessed,
// ErrMaxRetriesExceeded or ErrAccountBusy without taking the lock.
func (l *AccountLocker) Acquire(ctx context.Context, accountID int64, eventKey string) (*Lease, error) {
	processed, err := l.IsProcessed(ctx, eventKey)
	if err != nil {
		// a duplicate pass is harmless, a blocked queue is not
		logger.Warn("processed marker check failed", "event", eventKey, "error", err)
	} else if processed {
		return nil, ErrAlreadyProcessed
	}

	retries, err := l.RetryCount(ctx, eventKey)
	if err != nil {
		logger.Warn("retry counter read failed", "event", eventKey, "error", err)
	}
	if retries >= l.config.MaxRetries {
		return nil, errors.Wrapf(ErrMaxRetriesExceeded, "event=%s retries=%d", eventKey, retries)
	}

	token := []byte(uuid.NewString())
	acquired, err := l.redis.SetNX(ctx, l.lockKey(accountID), token, l.config.LockTTL)
	if err != nil {
		return nil, errors.Wrap(err, "acquire account lock")
	}
	if !acquired {
		return nil, ErrAccountBusy
	}

	logger.Debug("account lock acquired", "account_id", accountID, "event", eventKey, "retry_count", retries)
	return &Lease{
		AccountID:  accountID,
		EventKey:   eventKey,
		RetryCount: retries,
		token:      token,
		held:       true,
	}, nil
}

// MarkSuccess records the event as done and releases the lock.
func (l *AccountLocker) MarkSuccess(ctx context.Context, lease *Lease) error {
	if err := l.redis.Set(ctx, l.config.ProcessedKeyPrefix+lease.EventKey, []byte("1"), l.config.ProcessedTTL); err != nil {
		return errors.Wrap(err, "mark event processed")
	}
	if err := l.redis.Del(ctx, l.config.RetryKeyPrefix+lease.EventKey); err != nil {
		logger.Warn("retry counter cleanup failed", "event", lease.EventKey, "error", err)
	}
	return l.Release(ctx, lease)
}

// MarkFailure counts a failed attempt and releases the lock for a retry.
func (l *AccountLocker) MarkFailure(ctx context.Context, lease *Lease, reason error) error {
	n, err := l.redis.Incr(ctx, l.config.RetryKeyPrefix+lease.EventKey, l.config.ProcessedTTL)
	if err != nil {
		logger.Error("retry counter increment failed", "event", lease.EventKey, "error", err)
	}
	logger.Warn("sync pass failed, will retry",
		"account_id", lease.AccountID, "event", lease.EventKey,
		"retry_count", n, "max_retries", l.config.MaxRetries, "reason", reason)
	return l.Release(ctx, lease)
}

// Release drops the lock if this lease still owns it.
func (l *AccountLocker) Release(ctx context.Context, lease *Lease) error {
	if lease == nil || !lease.held {
		return nil
	}
	lease.held = false

	owned, err := l.redis.CompareAndDelete(ctx, l.lockKey(lease.AccountID), lease.token)
	if err != nil {
		return errors.Wrap(err, "release account lock")
	}
	if !owned {
		logger.Warn("account lock expired before release", "account_id", lease.AccountID, "event", lease.EventKey)
	}
	return nil
}

func (l *AccountLocker) RetryCount(ctx context.Context, eventKey string) (int, error) {
	b, err := l.redis.Get(ctx, l.config.RetryKeyPrefix+eventKey)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, errors.Wrap(err, "parse retry counter")
	}
	return n, nil
}

func (l *AccountLocker) IsProcessed(ctx context.Context, eventKey string) (bool, error) {
	n, err := l.redis.Exist(ctx, l.config.ProcessedKeyPrefix+eventKey)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
