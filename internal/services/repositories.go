package services

import (
	"context"
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
)

type TransactionRepository interface {
	Create(ctx context.Context, t *model.Transaction) (*model.Transaction, error)
	Save(ctx context.Context, t *model.Transaction) error
	UpdatePayload(ctx context.Context, id int64, payload []byte) error
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
	FindByExternalID(ctx context.Context, accountID, externalID int64) (*model.Transaction, error)
	DeleteByAccount(ctx context.Context, accountID int64) (int64, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, error)
	ListByUser(ctx context.Context, userID int64, since *time.Time) ([]*model.Transaction, error)
}

type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	Lock(ctx context.Context, id int64) (*model.Account, error)
	UpdateWatermark(ctx context.Context, id int64, watermark time.Time) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ItemRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Item, error)
}

// DataSource is the aggregation API as seen by the services.
type DataSource interface {
	UpdatedTransactions(ctx context.Context, account *model.Account, since time.Time) ([]model.RawTransaction, error)
	Item(ctx context.Context, item *model.Item) (*model.ItemInfo, error)
	Bank(ctx context.Context, bankID int64) (*model.BankInfo, error)
}

// CategoryNamer resolves category ids to display names, never failing.
type CategoryNamer interface {
	Name(id *int64) string
}
