package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/pkg/pg"
	"gorm.io/gorm"
)

type ItemRepository struct {
	*pg.DB
}

func NewItemRepository(db *pg.DB) *ItemRepository {
	return &ItemRepository{
		db,
	}
}

func (r *ItemRepository) Create(ctx context.Context, i *model.Item) (*model.Item, error) {
	entity := toItemEntity(i)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toItemModel(entity), nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*model.Item, error) {
	var entity ItemEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return toItemModel(&entity), nil
}

// Delete removes the item, its accounts and their transactions.
func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		accounts := r.Write(ctx).Model(&AccountEntity{}).Select("id").Where("item_id = ?", id)
		if err := r.Write(ctx).Where("account_id IN (?)", accounts).Delete(&TransactionEntity{}).Error; err != nil {
			return err
		}
		if err := r.Write(ctx).Where("item_id = ?", id).Delete(&AccountEntity{}).Error; err != nil {
			return err
		}
		res := r.Write(ctx).Where("id = ?", id).Delete(&ItemEntity{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrItemNotFound
		}
		return nil
	})
}
