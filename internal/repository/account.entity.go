package repository

import (
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
)

type UserEntity struct {
	ID             int64         `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	Username       string        `db:"username"        gorm:"column:username;not null;uniqueIndex"`
	Email          string        `db:"email"           gorm:"column:email"`
	BridgePassword string        `db:"bridge_password" gorm:"column:bridge_password"`
	BridgeUUID     string        `db:"bridge_uuid"     gorm:"column:bridge_uuid"`
	CreatedAt      time.Time     `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
	Items          []*ItemEntity `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (UserEntity) TableName() string { return "users" }

type ItemEntity struct {
	ID         int64            `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	UserID     int64            `db:"user_id"     gorm:"column:user_id;not null;index"`
	ExternalID int64            `db:"external_id" gorm:"column:external_id;not null;uniqueIndex"`
	BankID     int64            `db:"bank_id"     gorm:"column:bank_id"`
	CreatedAt  time.Time        `db:"created_at"  gorm:"column:created_at;autoCreateTime"`
	Accounts   []*AccountEntity `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
}

func (ItemEntity) TableName() string { return "items" }

type AccountEntity struct {
	ID                  int64                `db:"id"                    gorm:"primaryKey;autoIncrement;column:id"`
	ItemID              int64                `db:"item_id"               gorm:"column:item_id;not null;index"`
	ExternalID          int64                `db:"external_id"           gorm:"column:external_id;not null;uniqueIndex"`
	Name                string               `db:"name"                  gorm:"column:name"`
	LastSuccessfulFetch *time.Time           `db:"last_successful_fetch" gorm:"column:last_successful_fetch"`
	CreatedAt           time.Time            `db:"created_at"            gorm:"column:created_at;autoCreateTime"`
	Transactions        []*TransactionEntity `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

func (AccountEntity) TableName() string { return "accounts" }

func toUserEntity(u *model.User) *UserEntity {
	if u == nil {
		return nil
	}
	return &UserEntity{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		BridgePassword: u.BridgePassword,
		BridgeUUID:     u.BridgeUUID,
		CreatedAt:      u.CreatedAt,
	}
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	return &model.User{
		ID:             e.ID,
		Username:       e.Username,
		Email:          e.Email,
		BridgePassword: e.BridgePassword,
		BridgeUUID:     e.BridgeUUID,
		CreatedAt:      e.CreatedAt,
	}
}

func toItemEntity(i *model.Item) *ItemEntity {
	if i == nil {
		return nil
	}
	return &ItemEntity{
		ID:         i.ID,
		UserID:     i.UserID,
		ExternalID: i.ExternalID,
		BankID:     i.BankID,
		CreatedAt:  i.CreatedAt,
	}
}

func toItemModel(e *ItemEntity) *model.Item {
	if e == nil {
		return nil
	}
	return &model.Item{
		ID:         e.ID,
		UserID:     e.UserID,
		ExternalID: e.ExternalID,
		BankID:     e.BankID,
		CreatedAt:  e.CreatedAt,
	}
}

func toAccountEntity(a *model.Account) *AccountEntity {
	if a == nil {
		return nil
	}
	return &AccountEntity{
		ID:                  a.ID,
		ItemID:              a.ItemID,
		ExternalID:          a.ExternalID,
		Name:                a.Name,
		LastSuccessfulFetch: a.LastSuccessfulFetch,
		CreatedAt:           a.CreatedAt,
	}
}

func toAccountModel(e *AccountEntity) *model.Account {
	if e == nil {
		return nil
	}
	return &model.Account{
		ID:                  e.ID,
		ItemID:              e.ItemID,
		ExternalID:          e.ExternalID,
		Name:                e.Name,
		LastSuccessfulFetch: e.LastSuccessfulFetch,
		CreatedAt:           e.CreatedAt,
	}
}

func toAccountModels(entities []*AccountEntity) []*model.Account {
	if entities == nil {
		return nil
	}
	models := make([]*model.Account, len(entities))
	for i, e := range entities {
		models[i] = toAccountModel(e)
	}
	return models
}
