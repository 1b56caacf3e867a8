package services

import (
	"context"

	"github.com/nimasrn/co2-estimator/internal/estimator"
	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/nimasrn/co2-estimator/pkg/prom"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type TransactionService struct {
	transactions TransactionRepository
	accounts     AccountRepository
	registry     *estimator.Registry
	categories   CategoryNamer
}

func NewTransactionService(transactions TransactionRepository, accounts AccountRepository, registry *estimator.Registry, categories CategoryNamer) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		accounts:     accounts,
		registry:     registry,
		categories:   categories,
	}
}

func (s *TransactionService) Get(ctx context.Context, id int64) (*model.TransactionView, error) {
	tx, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return s.view(tx), nil
}

// List returns the account's transactions, newest first unless the filter says otherwise.
func (s *TransactionService) List(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionView, error) {
	txs, err := s.transactions.List(ctx, f)
	if err != nil {
		return nil, err
	}
	views := make([]*model.TransactionView, len(txs))
	for i, tx := range txs {
		views[i] = s.view(tx)
	}
	return views, nil
}

// Update applies a user edit and reclassifies in the same database transaction.
func (s *TransactionService) Update(ctx context.Context, id int64, req model.TransactionUpdateRequest) (*model.TransactionView, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}

	var updated *model.Transaction
	err := s.accounts.WithinTransaction(ctx, func(ctx context.Context) error {
		tx, err := s.transactions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		req.Apply(tx)
		s.registry.Reclassify(tx)
		if err := s.transactions.Save(ctx, tx); err != nil {
			return errors.Wrap(err, "save transaction")
		}
		updated = tx
		return nil
	})
	if err != nil {
		return nil, notFound(err)
	}

	prom.IncClassified(updated.Kind.String())
	logger.Info("transaction edited", "transaction_id", id, "kind", updated.Kind)
	return s.view(updated), nil
}

// SetPristine discards user edits by re-hydrating from the stored payload.
func (s *TransactionService) SetPristine(ctx context.Context, id int64) (*model.TransactionView, error) {
	var restored *model.Transaction
	err := s.accounts.WithinTransaction(ctx, func(ctx context.Context) error {
		tx, err := s.transactions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Pristine(); err != nil {
			return &ValidationError{Err: errors.Wrap(err, "cannot restore transaction")}
		}
		s.registry.Reclassify(tx)
		if err := s.transactions.Save(ctx, tx); err != nil {
			return errors.Wrap(err, "save transaction")
		}
		restored = tx
		return nil
	})
	if err != nil {
		return nil, notFound(err)
	}

	logger.Info("transaction restored", "transaction_id", id, "kind", restored.Kind)
	return s.view(restored), nil
}

// ReclassifyAccount reruns classification over every stored transaction of
// the account and returns how many changed kind. Failures do not stop the batch.
func (s *TransactionService) ReclassifyAccount(ctx context.Context, accountID int64) (int, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return 0, notFound(err)
	}

	txs, err := s.transactions.List(ctx, model.TransactionFilter{AccountID: &accountID})
	if err != nil {
		return 0, err
	}

	changed := 0
	var errs []error
	for _, tx := range txs {
		if !s.registry.Reclassify(tx) {
			continue
		}
		if err := s.transactions.Save(ctx, tx); err != nil {
			errs = append(errs, errors.Wrapf(err, "transaction %d", tx.ID))
			continue
		}
		prom.IncClassified(tx.Kind.String())
		changed++
	}

	logger.Info("account reclassified", "account_id", accountID, "transactions", len(txs), "changed", changed, "failed", len(errs))
	return changed, multierr.Combine(errs...)
}

func (s *TransactionService) view(tx *model.Transaction) *model.TransactionView {
	return s.registry.View(tx, categoryName(s.categories, tx.CategoryID))
}
