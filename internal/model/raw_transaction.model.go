package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// RawTransaction is a transaction as reported by the aggregation API.
// Payload keeps the exact bytes received so later edits can be diffed against them.
type RawTransaction struct {
	ExternalID        int64
	ExternalAccountID int64
	Description       string
	FullDescription   string
	Amount            decimal.Decimal
	CurrencyCode      string
	Date              *time.Time
	CategoryID        *int64
	Deleted           bool
	Payload           json.RawMessage
}

type rawTransactionWire struct {
	ID               int64            `json:"id"`
	AccountID        int64            `json:"account_id"`
	CleanDescription string           `json:"clean_description"`
	BankDescription  string           `json:"bank_description"`
	Amount           *decimal.Decimal `json:"amount"`
	CurrencyCode     string           `json:"currency_code"`
	Date             string           `json:"date"`
	CategoryID       *int64           `json:"category_id"`
	IsDeleted        bool             `json:"is_deleted"`
}

// ParseRawTransaction decodes one aggregation API transaction object.
func ParseRawTransaction(payload []byte) (RawTransaction, error) {
	var w rawTransactionWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return RawTransaction{}, errors.Wrap(err, "decode transaction payload")
	}

	raw := RawTransaction{
		ExternalID:        w.ID,
		ExternalAccountID: w.AccountID,
		Description:       w.CleanDescription,
		FullDescription:   w.BankDescription,
		CurrencyCode:      w.CurrencyCode,
		CategoryID:        w.CategoryID,
		Deleted:           w.IsDeleted,
		Payload:           append(json.RawMessage(nil), payload...),
	}
	if w.Amount != nil {
		raw.Amount = *w.Amount
	}
	if w.Date != "" {
		d, err := time.Parse(DateLayout, w.Date)
		if err != nil {
			return RawTransaction{}, errors.Wrapf(err, "parse transaction date %q", w.Date)
		}
		raw.Date = &d
	}
	return raw, nil
}

// ErrMalformedRecord matches a single transaction that could not be decoded
// while the rest of its page could.
var ErrMalformedRecord = errors.New("malformed transaction record")

// RecordError carries what could still be read from a malformed record.
// ExternalAccountID is zero when the owning account is unknown.
type RecordError struct {
	ExternalID        int64
	ExternalAccountID int64
	Err               error
}

// NewRecordError wraps a decode failure of payload, keeping its ids when readable.
func NewRecordError(payload []byte, err error) *RecordError {
	var ids struct {
		ID        int64 `json:"id"`
		AccountID int64 `json:"account_id"`
	}
	_ = json.Unmarshal(payload, &ids)
	return &RecordError{ExternalID: ids.ID, ExternalAccountID: ids.AccountID, Err: err}
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("transaction %d of account %d: %v", e.ExternalID, e.ExternalAccountID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

func (e *RecordError) Is(target error) bool { return target == ErrMalformedRecord }
