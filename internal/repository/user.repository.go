package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/pkg/pg"
	"gorm.io/gorm"
)

type UserRepository struct {
	*pg.DB
}

func NewUserRepository(db *pg.DB) *UserRepository {
	return &UserRepository{
		db,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	entity := toUserEntity(u)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toUserModel(entity), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.first(r.Read(ctx).Where("id = ?", id))
}

func (r *UserRepository) OwnerOfItem(ctx context.Context, itemID int64) (*model.User, error) {
	return r.first(r.Read(ctx).
		Joins("JOIN items ON items.user_id = users.id").
		Where("items.id = ?", itemID))
}

func (r *UserRepository) OwnerOfAccount(ctx context.Context, accountID int64) (*model.User, error) {
	return r.first(r.Read(ctx).
		Joins("JOIN items ON items.user_id = users.id").
		Joins("JOIN accounts ON accounts.item_id = items.id").
		Where("accounts.id = ?", accountID))
}

func (r *UserRepository) first(q *gorm.DB) (*model.User, error) {
	var entity UserEntity
	if err := q.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toUserModel(&entity), nil
}
