package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	*pg.DB
}

func NewAccountRepository(db *pg.DB) *AccountRepository {
	return &AccountRepository{
		db,
	}
}

func (r *AccountRepository) Create(ctx context.Context, a *model.Account) (*model.Account, error) {
	entity := toAccountEntity(a)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toAccountModel(entity), nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	return r.first(r.Read(ctx).Where("id = ?", id))
}

func (r *AccountRepository) GetByExternalID(ctx context.Context, externalID int64) (*model.Account, error) {
	return r.first(r.Read(ctx).Where("external_id = ?", externalID))
}

// Lock reads the account holding a row lock until the surrounding transaction ends.
func (r *AccountRepository) Lock(ctx context.Context, id int64) (*model.Account, error) {
	return r.first(r.Write(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *AccountRepository) first(q *gorm.DB) (*model.Account, error) {
	var entity AccountEntity
	if err := q.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return toAccountModel(&entity), nil
}

func (r *AccountRepository) UpdateWatermark(ctx context.Context, id int64, watermark time.Time) error {
	res := r.Write(ctx).Model(&AccountEntity{}).
		Where("id = ?", id).
		Update("last_successful_fetch", watermark)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) ListByItem(ctx context.Context, itemID int64) ([]*model.Account, error) {
	var entities []*AccountEntity
	if err := r.Read(ctx).Where("item_id = ?", itemID).Order("id").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toAccountModels(entities), nil
}

func (r *AccountRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Account, error) {
	var entities []*AccountEntity
	err := r.Read(ctx).
		Joins("JOIN items ON items.id = accounts.item_id").
		Where("items.user_id = ?", userID).
		Order("accounts.id").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toAccountModels(entities), nil
}

// Delete removes the account and its transactions.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.Write(ctx).Where("account_id = ?", id).Delete(&TransactionEntity{}).Error; err != nil {
			return err
		}
		res := r.Write(ctx).Where("id = ?", id).Delete(&AccountEntity{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		return nil
	})
}
