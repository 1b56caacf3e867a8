package bridgeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type page struct {
	Resources  []json.RawMessage `json:"resources"`
	Pagination struct {
		NextURI *string `json:"next_uri"`
	} `json:"pagination"`
}

// Authenticate opens a user session.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, request{method: "POST", path: "/v2/authenticate", endpoint: "authenticate", body: body})
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	return &s, nil
}

// UpdatedTransactions lists every transaction of the user changed since the given time,
// following pagination to the end. Records that fail to decode are skipped and
// reported together as *model.RecordError values next to the decoded ones.
func (c *Client) UpdatedTransactions(ctx context.Context, token string, since time.Time) ([]model.RawTransaction, error) {
	q := url.Values{}
	q.Set("since", since.UTC().Format(time.RFC3339))
	q.Set("limit", strconv.Itoa(c.config.PageLimit))
	path := "/v2/transactions/updated?" + q.Encode()

	var out []model.RawTransaction
	var malformed error
	err := c.paginate(ctx, path, "transactions_updated", token, func(resource json.RawMessage) error {
		raw, err := model.ParseRawTransaction(resource)
		if err != nil {
			malformed = multierr.Append(malformed, model.NewRecordError(resource, err))
			return nil
		}
		out = append(out, raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, malformed
}

func (c *Client) Item(ctx context.Context, token string, itemID int64) (*model.ItemInfo, error) {
	raw, err := c.do(ctx, request{method: "GET", path: fmt.Sprintf("/v2/items/%d", itemID), endpoint: "item", token: token})
	if err != nil {
		return nil, err
	}
	var info model.ItemInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, errors.Wrap(err, "decode item")
	}
	return &info, nil
}

func (c *Client) Bank(ctx context.Context, bankID int64) (*model.BankInfo, error) {
	raw, err := c.do(ctx, request{method: "GET", path: fmt.Sprintf("/v2/banks/%d", bankID), endpoint: "bank"})
	if err != nil {
		return nil, err
	}
	var wire struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Logo string `json:"logo_url"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, errors.Wrap(err, "decode bank")
	}
	return &model.BankInfo{ID: wire.ID, Name: wire.Name, LogoURL: wire.Logo}, nil
}

type categoryWire struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Categories []categoryWire `json:"categories"`
}

// Categories returns the taxonomy flattened: top-level entries followed by their children.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	err := c.paginate(ctx, "/v2/categories?limit="+strconv.Itoa(c.config.PageLimit), "categories", "", func(resource json.RawMessage) error {
		var top categoryWire
		if err := json.Unmarshal(resource, &top); err != nil {
			return errors.Wrap(err, "decode category")
		}
		out = append(out, model.Category{ID: top.ID, Name: top.Name})
		for _, child := range top.Categories {
			parent := top.ID
			out = append(out, model.Category{ID: child.ID, Name: child.Name, ParentID: &parent})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) paginate(ctx context.Context, path, endpoint, token string, each func(json.RawMessage) error) error {
	for path != "" {
		raw, err := c.do(ctx, request{method: "GET", path: path, endpoint: endpoint, token: token})
		if err != nil {
			return err
		}
		var p page
		if err := json.Unmarshal(raw, &p); err != nil {
			return errors.Wrapf(err, "decode %s page", endpoint)
		}
		for _, r := range p.Resources {
			if err := each(r); err != nil {
				return err
			}
		}
		path = ""
		if p.Pagination.NextURI != nil {
			path = *p.Pagination.NextURI
		}
	}
	return nil
}
