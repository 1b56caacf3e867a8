package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/pkg/pg"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, t *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(t)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

// Save writes every column of t, including nil and zero values.
func (r *TransactionRepository) Save(ctx context.Context, t *model.Transaction) error {
	entity := toTransactionEntity(t)

	res := r.Write(ctx).Model(&TransactionEntity{ID: entity.ID}).
		Select("description", "full_description", "amount", "currency_code", "date", "category_id", "original_payload", "kind").
		Updates(entity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// UpdatePayload replaces only the stored source payload.
func (r *TransactionRepository) UpdatePayload(ctx context.Context, id int64, payload []byte) error {
	res := r.Write(ctx).Model(&TransactionEntity{}).
		Where("id = ?", id).
		Update("original_payload", datatypes.JSON(payload))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) UpdateKind(ctx context.Context, id int64, kind model.EstimatorKind) error {
	return r.Write(ctx).Model(&TransactionEntity{}).
		Where("id = ?", id).
		Update("kind", string(kind)).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

func (r *TransactionRepository) FindByExternalID(ctx context.Context, accountID, externalID int64) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

func (r *TransactionRepository) DeleteByAccount(ctx context.Context, accountID int64) (int64, error) {
	res := r.Write(ctx).Where("account_id = ?", accountID).Delete(&TransactionEntity{})
	return res.RowsAffected, res.Error
}

func (r *TransactionRepository) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	var n int64
	err := r.Read(ctx).Model(&TransactionEntity{}).Where("account_id = ?", accountID).Count(&n).Error
	return n, err
}

func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, error) {
	q := r.Read(ctx).Model(&TransactionEntity{})

	if f.AccountID != nil {
		q = q.Where("account_id = ?", *f.AccountID)
	}
	if f.AccountIDs != nil {
		q = q.Where("account_id IN ?", f.AccountIDs)
	}
	if f.Kind != nil {
		q = q.Where("kind = ?", string(*f.Kind))
	}
	if f.Since != nil {
		q = q.Where("date >= ?", *f.Since)
	}

	order := "date"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}
	q = q.Order(order).Order("id ASC")

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var entities []*TransactionEntity
	if err := q.Find(&entities).Error; err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

// ListByUser returns every transaction of every account of every item of the user.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64, since *time.Time) ([]*model.Transaction, error) {
	q := r.Read(ctx).Model(&TransactionEntity{}).
		Joins("JOIN accounts ON accounts.id = transactions.account_id").
		Joins("JOIN items ON items.id = accounts.item_id").
		Where("items.user_id = ?", userID)
	if since != nil {
		q = q.Where("transactions.date >= ?", *since)
	}

	var entities []*TransactionEntity
	if err := q.Order("transactions.date ASC").Order("transactions.id ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}
