package model

import "time"

// Account is a bank account known to the aggregation API.
// LastSuccessfulFetch is the sync watermark; nil means never synced.
type Account struct {
	ID                  int64      `json:"id"`
	ItemID              int64      `json:"item_id"`
	ExternalID          int64      `json:"external_id"`
	Name                string     `json:"name"`
	LastSuccessfulFetch *time.Time `json:"last_successful_fetch"`
	CreatedAt           time.Time  `json:"created_at"`
}

// Watermark returns the sync watermark, the epoch when unset.
func (a *Account) Watermark() time.Time {
	if a.LastSuccessfulFetch == nil {
		return time.Unix(0, 0).UTC()
	}
	return *a.LastSuccessfulFetch
}

// Item is a bank connection holding one or more accounts.
type Item struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ExternalID int64     `json:"external_id"`
	BankID     int64     `json:"bank_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ItemInfo is the live connection status of an item.
type ItemInfo struct {
	ID                    int64  `json:"id"`
	Status                int    `json:"status"`
	StatusCodeInfo        string `json:"status_code_info"`
	StatusCodeDescription string `json:"status_code_description"`
	BankID                int64  `json:"bank_id"`
}

type BankInfo struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url"`
}

// ItemDescription joins an item with its bank and status.
type ItemDescription struct {
	Item     *Item    `json:"item"`
	BankName string   `json:"bank_name"`
	LogoURL  string   `json:"logo_url"`
	Status   ItemInfo `json:"status"`
}

// User owns items. The aggregation API credentials authenticate user-scoped calls.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	BridgePassword string    `json:"-"`
	BridgeUUID     string    `json:"bridge_uuid"`
	CreatedAt      time.Time `json:"created_at"`
}

type Category struct {
	ID       int64  `json:"id"                  yaml:"id"`
	Name     string `json:"name"                yaml:"name"`
	ParentID *int64 `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
}
