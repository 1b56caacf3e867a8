package services

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/nimasrn/co2-estimator/internal/estimator"
	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/internal/repository"
	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/nimasrn/co2-estimator/pkg/prom"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const DefaultWatermarkMargin = time.Hour

const (
	ModeRefresh = "refresh"
	ModeScratch = "scratch"
)

// SyncResult counts what one pass did to an account.
type SyncResult struct {
	AccountID int64      `json:"account_id"    yaml:"account_id"`
	Mode      string     `json:"mode"          yaml:"mode"`
	Fetched   int        `json:"fetched"       yaml:"fetched"`
	Created   int        `json:"created"       yaml:"created"`
	Updated   int        `json:"updated"       yaml:"updated"`
	Protected int        `json:"protected"     yaml:"protected"`
	Unchanged int        `json:"unchanged"     yaml:"unchanged"`
	Failed    int        `json:"failed"        yaml:"failed"`
	Wiped     int64      `json:"wiped"         yaml:"wiped"`
	Watermark *time.Time `json:"watermark"     yaml:"watermark"`
}

type SyncService struct {
	accounts     AccountRepository
	transactions TransactionRepository
	source       DataSource
	registry     *estimator.Registry
	margin       time.Duration
	now          func() time.Time
}

type SyncOption func(*SyncService)

// WithWatermarkMargin sets how far behind the event time the watermark is kept.
func WithWatermarkMargin(d time.Duration) SyncOption {
	return func(s *SyncService) {
		if d >= 0 {
			s.margin = d
		}
	}
}

func WithClock(now func() time.Time) SyncOption {
	return func(s *SyncService) { s.now = now }
}

func NewSyncService(accounts AccountRepository, transactions TransactionRepository, source DataSource, registry *estimator.Registry, opts ...SyncOption) *SyncService {
	s := &SyncService{
		accounts:     accounts,
		transactions: transactions,
		source:       source,
		registry:     registry,
		margin:       DefaultWatermarkMargin,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh pulls every record changed since the account watermark and merges it
// into storage. A fetch failure aborts before anything is written. Record
// failures, malformed records included, are collected; the watermark only
// advances when none occurred.
func (s *SyncService) Refresh(ctx context.Context, accountID int64, eventTime time.Time) (*SyncResult, error) {
	start := s.now()
	res, err := s.refresh(ctx, accountID, eventTime, ModeRefresh)
	s.observe(ModeRefresh, start, res, err)
	return res, err
}

// Scratch wipes the account's transactions, resets its watermark to the epoch
// and runs a full refresh.
func (s *SyncService) Scratch(ctx context.Context, accountID int64) (*SyncResult, error) {
	start := s.now()

	var wiped int64
	err := s.accounts.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.accounts.Lock(ctx, accountID); err != nil {
			return err
		}
		n, err := s.transactions.DeleteByAccount(ctx, accountID)
		if err != nil {
			return errors.Wrap(err, "delete transactions")
		}
		wiped = n
		return s.accounts.UpdateWatermark(ctx, accountID, time.Unix(0, 0).UTC())
	})
	if err != nil {
		err = notFound(err)
		s.observe(ModeScratch, start, nil, err)
		return nil, err
	}
	logger.Info("account wiped for resync", "account_id", accountID, "deleted", wiped)

	res, err := s.refresh(ctx, accountID, s.now(), ModeScratch)
	if res != nil {
		res.Wiped = wiped
	}
	s.observe(ModeScratch, start, res, err)
	return res, err
}

func (s *SyncService) refresh(ctx context.Context, accountID int64, eventTime time.Time, mode string) (*SyncResult, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, notFound(err)
	}

	since := account.Watermark()
	records, err := s.source.UpdatedTransactions(ctx, account, since)
	if err != nil && !errors.Is(err, model.ErrMalformedRecord) {
		return nil, errors.Wrapf(err, "fetch transactions of account %d since %s", accountID, since.Format(time.RFC3339))
	}

	// malformed records count as failed ones: the rest still lands, the watermark stays
	errs := err
	malformed := len(multierr.Errors(err))
	res := &SyncResult{AccountID: accountID, Mode: mode, Fetched: len(records) + malformed, Failed: malformed}
	for _, raw := range records {
		if err := s.merge(ctx, account, raw, res); err != nil {
			res.Failed++
			errs = multierr.Append(errs, errors.Wrapf(err, "transaction %d", raw.ExternalID))
		}
	}

	if errs != nil {
		logger.Error("sync pass incomplete, watermark kept",
			"account_id", accountID, "fetched", res.Fetched, "failed", res.Failed, "error", errs)
		return res, errs
	}

	mark, err := s.advanceWatermark(ctx, accountID, eventTime.Add(-s.margin))
	if err != nil {
		return res, errors.Wrap(err, "advance watermark")
	}
	res.Watermark = &mark

	logger.Info("sync pass done",
		"account_id", accountID, "mode", mode, "fetched", res.Fetched, "created", res.Created,
		"updated", res.Updated, "protected", res.Protected, "unchanged", res.Unchanged, "watermark", mark)
	return res, nil
}

// merge applies one incoming record atomically.
func (s *SyncService) merge(ctx context.Context, account *model.Account, raw model.RawTransaction, res *SyncResult) error {
	return s.accounts.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.transactions.FindByExternalID(ctx, account.ID, raw.ExternalID)
		switch {
		case errors.Is(err, repository.ErrTransactionNotFound):
			tx := &model.Transaction{AccountID: account.ID}
			tx.Hydrate(raw)
			s.registry.Reclassify(tx)
			if _, err := s.transactions.Create(ctx, tx); err != nil {
				return err
			}
			prom.IncClassified(tx.Kind.String())
			res.Created++
			return nil
		case err != nil:
			return err
		}

		samePayload := sameJSON(existing.OriginalPayload, raw.Payload)
		if existing.UserEdited() {
			if samePayload {
				res.Protected++
				return nil
			}
			logger.Debug("transaction edited by user, keeping displayed fields",
				"transaction_id", existing.ID, "external_id", raw.ExternalID)
			if err := s.transactions.UpdatePayload(ctx, existing.ID, raw.Payload); err != nil {
				return err
			}
			res.Protected++
			return nil
		}

		existing.Hydrate(raw)
		if !s.registry.Reclassify(existing) && samePayload {
			res.Unchanged++
			return nil
		}
		if err := s.transactions.Save(ctx, existing); err != nil {
			return err
		}
		prom.IncClassified(existing.Kind.String())
		res.Updated++
		return nil
	})
}

// advanceWatermark moves the watermark forward to mark, never backward.
func (s *SyncService) advanceWatermark(ctx context.Context, accountID int64, mark time.Time) (time.Time, error) {
	var out time.Time
	err := s.accounts.WithinTransaction(ctx, func(ctx context.Context) error {
		account, err := s.accounts.Lock(ctx, accountID)
		if err != nil {
			return err
		}
		out = account.Watermark()
		if !mark.After(out) {
			return nil
		}
		out = mark
		return s.accounts.UpdateWatermark(ctx, accountID, mark)
	})
	return out, err
}

func (s *SyncService) observe(mode string, start time.Time, res *SyncResult, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	prom.ObserveSyncPass(mode, outcome, s.now().Sub(start).Seconds())
	if res == nil {
		return
	}
	prom.AddSyncRecords("created", res.Created)
	prom.AddSyncRecords("updated", res.Updated)
	prom.AddSyncRecords("protected", res.Protected)
	prom.AddSyncRecords("failed", res.Failed)
}

// notFound maps repository misses to ErrNotFound.
func notFound(err error) error {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound),
		errors.Is(err, repository.ErrTransactionNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return errors.Wrap(ErrNotFound, err.Error())
	}
	return err
}

// sameJSON compares two documents ignoring formatting and key order,
// since postgres jsonb does not keep the bytes it was given.
func sameJSON(a, b []byte) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}
