package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nimasrn/co2-estimator/internal/estimator"
	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/internal/repository"
	"github.com/nimasrn/co2-estimator/pkg/pg"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type env struct {
	db           *pg.DB
	accounts     *repository.AccountRepository
	transactions *repository.TransactionRepository
	source       *MockDataSource
	account      *model.Account
	item         *model.Item
	user         *model.User
}

func setupEnv(t *testing.T) *env {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.AutoMigrate(gdb))

	db := pg.New(gdb, gdb)
	ctx := context.Background()

	user, err := repository.NewUserRepository(db).Create(ctx, &model.User{Username: "alice"})
	require.NoError(t, err)
	item, err := repository.NewItemRepository(db).Create(ctx, &model.Item{UserID: user.ID, ExternalID: 7, BankID: 408})
	require.NoError(t, err)
	accounts := repository.NewAccountRepository(db)
	account, err := accounts.Create(ctx, &model.Account{ItemID: item.ID, ExternalID: 99, Name: "checking"})
	require.NoError(t, err)

	return &env{
		db:           db,
		accounts:     accounts,
		transactions: repository.NewTransactionRepository(db),
		source:       new(MockDataSource),
		account:      account,
		item:         item,
		user:         user,
	}
}

func (e *env) syncService(now time.Time) *SyncService {
	return NewSyncService(e.accounts, e.transactions, e.source, estimator.Default(), WithClock(func() time.Time { return now }))
}

func (e *env) transactionService() *TransactionService {
	return NewTransactionService(e.transactions, e.accounts, estimator.Default(), stubCategories{87: "Carburant", 197: "Train"})
}

type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) UpdatedTransactions(ctx context.Context, account *model.Account, since time.Time) ([]model.RawTransaction, error) {
	args := m.Called(ctx, account, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RawTransaction), args.Error(1)
}

func (m *MockDataSource) Item(ctx context.Context, item *model.Item) (*model.ItemInfo, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ItemInfo), args.Error(1)
}

func (m *MockDataSource) Bank(ctx context.Context, bankID int64) (*model.BankInfo, error) {
	args := m.Called(ctx, bankID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BankInfo), args.Error(1)
}

type stubCategories map[int64]string

func (s stubCategories) Name(id *int64) string {
	if id == nil {
		return "unknown category"
	}
	if name, ok := s[*id]; ok {
		return name
	}
	return fmt.Sprintf("unknown category %d", *id)
}

func raw(t *testing.T, id int64, description string, amount string, category int64, date string) model.RawTransaction {
	t.Helper()
	payload := fmt.Sprintf(`{"id":%d,"account_id":99,"clean_description":%q,"bank_description":%q,"amount":%s,"currency_code":"EUR","date":%q,"category_id":%d,"is_deleted":false}`,
		id, description, "CB "+description, amount, date, category)
	r, err := model.ParseRawTransaction([]byte(payload))
	require.NoError(t, err)
	return r
}

func ptr[T any](v T) *T { return &v }
