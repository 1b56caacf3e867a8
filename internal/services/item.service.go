package services

import (
	"context"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/pkg/errors"
)

type ItemService struct {
	items  ItemRepository
	source DataSource
}

func NewItemService(items ItemRepository, source DataSource) *ItemService {
	return &ItemService{items: items, source: source}
}

// Describe combines the stored item with its bank and live connection status.
func (s *ItemService) Describe(ctx context.Context, itemID int64) (*model.ItemDescription, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, notFound(err)
	}

	info, err := s.source.Item(ctx, item)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch item %d", item.ExternalID)
	}

	bankID := info.BankID
	if bankID == 0 {
		bankID = item.BankID
	}
	bank, err := s.source.Bank(ctx, bankID)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch bank %d", bankID)
	}

	return &model.ItemDescription{
		Item:     item,
		BankName: bank.Name,
		LogoURL:  bank.LogoURL,
		Status:   *info,
	}, nil
}
