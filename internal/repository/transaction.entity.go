package repository

import (
	"encoding/json"
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TransactionEntity struct {
	ID              int64           `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	AccountID       int64           `db:"account_id"       gorm:"column:account_id;not null;uniqueIndex:idx_transactions_account_external"`
	ExternalID      int64           `db:"external_id"      gorm:"column:external_id;not null;uniqueIndex:idx_transactions_account_external"`
	Description     string          `db:"description"      gorm:"column:description"`
	FullDescription string          `db:"full_description" gorm:"column:full_description"`
	Amount          decimal.Decimal `db:"amount"           gorm:"column:amount;type:numeric;not null;default:0"`
	CurrencyCode    string          `db:"currency_code"    gorm:"column:currency_code"`
	Date            *time.Time      `db:"date"             gorm:"column:date;type:date;index"`
	CategoryID      *int64          `db:"category_id"      gorm:"column:category_id"`
	OriginalPayload datatypes.JSON  `db:"original_payload" gorm:"column:original_payload"`
	Kind            string          `db:"kind"             gorm:"column:kind;not null;default:'unclassified';index"`
	CreatedAt       time.Time       `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `db:"updated_at"       gorm:"column:updated_at;autoUpdateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(t *model.Transaction) *TransactionEntity {
	if t == nil {
		return nil
	}
	kind := t.Kind
	if kind == "" {
		kind = model.KindUnclassified
	}
	return &TransactionEntity{
		ID:              t.ID,
		AccountID:       t.AccountID,
		ExternalID:      t.ExternalID,
		Description:     t.Description,
		FullDescription: t.FullDescription,
		Amount:          t.Amount,
		CurrencyCode:    t.CurrencyCode,
		Date:            t.Date,
		CategoryID:      t.CategoryID,
		OriginalPayload: datatypes.JSON(t.OriginalPayload),
		Kind:            string(kind),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:              e.ID,
		AccountID:       e.AccountID,
		ExternalID:      e.ExternalID,
		Description:     e.Description,
		FullDescription: e.FullDescription,
		Amount:          e.Amount,
		CurrencyCode:    e.CurrencyCode,
		Date:            e.Date,
		CategoryID:      e.CategoryID,
		OriginalPayload: json.RawMessage(e.OriginalPayload),
		Kind:            model.EstimatorKind(e.Kind),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
