package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrNoOriginalPayload = errors.New("transaction has no original payload")
	ErrValidation        = errors.New("validation failed")
)

type Transaction struct {
	ID              int64           `json:"id"`
	AccountID       int64           `json:"account_id"`
	ExternalID      int64           `json:"external_id"`
	Description     string          `json:"description"`
	FullDescription string          `json:"full_description"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyCode    string          `json:"currency_code"`
	Date            *time.Time      `json:"date"`
	CategoryID      *int64          `json:"category_id"`
	OriginalPayload json.RawMessage `json:"-"`
	Kind            EstimatorKind   `json:"kind"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Hydrate overwrites the displayed fields and the stored payload from raw.
func (t *Transaction) Hydrate(raw RawTransaction) {
	t.ExternalID = raw.ExternalID
	t.Description = raw.Description
	t.FullDescription = raw.FullDescription
	t.Amount = raw.Amount
	t.CurrencyCode = raw.CurrencyCode
	t.Date = raw.Date
	t.CategoryID = raw.CategoryID
	t.OriginalPayload = append(json.RawMessage(nil), raw.Payload...)
}

// UserEdited reports whether any displayed field diverges from the stored payload.
// A transaction without payload is compared against an empty record.
func (t *Transaction) UserEdited() bool {
	var original RawTransaction
	if len(t.OriginalPayload) > 0 {
		parsed, err := ParseRawTransaction(t.OriginalPayload)
		if err != nil {
			return true
		}
		original = parsed
	}

	switch {
	case t.Description != original.Description:
		return true
	case t.FullDescription != original.FullDescription:
		return true
	case !t.Amount.Equal(original.Amount):
		return true
	case t.CurrencyCode != original.CurrencyCode:
		return true
	case !sameDay(t.Date, original.Date):
		return true
	case !sameCategory(t.CategoryID, original.CategoryID):
		return true
	}
	return false
}

// Pristine re-hydrates the displayed fields from the stored payload.
func (t *Transaction) Pristine() error {
	if len(t.OriginalPayload) == 0 {
		return ErrNoOriginalPayload
	}
	raw, err := ParseRawTransaction(t.OriginalPayload)
	if err != nil {
		return err
	}
	t.Hydrate(raw)
	return nil
}

// AmountFloat is the amount as an IEEE double, the unit every CO2 formula works in.
func (t *Transaction) AmountFloat() float64 {
	return t.Amount.InexactFloat64()
}

// FullAmount renders the amount with its currency, EUR shown as €.
func (t *Transaction) FullAmount() string {
	currency := t.CurrencyCode
	if currency == "EUR" {
		currency = "€"
	}
	return t.Amount.String() + currency
}

// DateString is the YYYY-MM-DD date or an empty string.
func (t *Transaction) DateString() string {
	if t.Date == nil {
		return ""
	}
	return t.Date.Format(DateLayout)
}

func (t *Transaction) ShortString() string {
	return strings.TrimSpace(t.DateString() + ": " + t.Description + " " + t.FullAmount())
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(DateLayout) == b.Format(DateLayout)
}

func sameCategory(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// TransactionUpdateRequest is the set of fields a user may edit.
type TransactionUpdateRequest struct {
	CategoryID  *int64  `json:"category_id"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

func (p TransactionUpdateRequest) Validate() error {
	if p.CategoryID == nil && p.Description == nil && p.Date == nil {
		return errors.Wrap(ErrValidation, "at least one of category_id, description, date is required")
	}
	if p.CategoryID != nil && *p.CategoryID <= 0 {
		return errors.Wrap(ErrValidation, "category_id must be positive")
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return errors.Wrap(ErrValidation, "description must not be empty")
	}
	if p.Date != nil {
		if _, err := time.Parse(DateLayout, *p.Date); err != nil {
			return errors.Wrap(ErrValidation, "date must be formatted as YYYY-MM-DD")
		}
	}
	return nil
}

// Apply copies the requested edits onto t. Validate must have passed.
func (p TransactionUpdateRequest) Apply(t *Transaction) {
	if p.CategoryID != nil {
		id := *p.CategoryID
		t.CategoryID = &id
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		d, _ := time.Parse(DateLayout, *p.Date)
		t.Date = &d
	}
}

// TransactionFilter controls List queries.
type TransactionFilter struct {
	AccountID  *int64
	AccountIDs []int64
	Kind       *EstimatorKind
	Since      *time.Time
	Limit      int // 0 means no limit
	Offset     int
	Desc       bool // order by date
}
