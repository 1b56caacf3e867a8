package bridgeapi

import (
	"context"
	"sync"
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Owners resolves the user whose credentials authorise calls for an account or item.
type Owners interface {
	OwnerOfAccount(ctx context.Context, accountID int64) (*model.User, error)
	OwnerOfItem(ctx context.Context, itemID int64) (*model.User, error)
}

// Source adapts the client to per-account and per-item calls, caching
// user sessions until shortly before they expire.
type Source struct {
	client *Client
	owners Owners

	mu       sync.Mutex
	sessions map[int64]*Session
	now      func() time.Time
}

func NewSource(client *Client, owners Owners) *Source {
	return &Source{
		client:   client,
		owners:   owners,
		sessions: map[int64]*Session{},
		now:      time.Now,
	}
}

// UpdatedTransactions returns the account's transactions changed since the given time.
func (s *Source) UpdatedTransactions(ctx context.Context, account *model.Account, since time.Time) ([]model.RawTransaction, error) {
	user, err := s.owners.OwnerOfAccount(ctx, account.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve owner of account %d", account.ID)
	}
	token, err := s.token(ctx, user)
	if err != nil {
		return nil, err
	}

	all, err := s.client.UpdatedTransactions(ctx, token, since)
	if err != nil && !errors.Is(err, model.ErrMalformedRecord) {
		return nil, err
	}

	out := all[:0]
	for _, raw := range all {
		if raw.ExternalAccountID == account.ExternalID {
			out = append(out, raw)
		}
	}
	return out, ownMalformed(err, account.ExternalID)
}

// ownMalformed keeps the record errors that belong to the account or whose
// account could not be read.
func ownMalformed(err error, externalAccountID int64) error {
	var kept error
	for _, e := range multierr.Errors(err) {
		var rec *model.RecordError
		if errors.As(e, &rec) && rec.ExternalAccountID != 0 && rec.ExternalAccountID != externalAccountID {
			continue
		}
		kept = multierr.Append(kept, e)
	}
	return kept
}

func (s *Source) Item(ctx context.Context, item *model.Item) (*model.ItemInfo, error) {
	user, err := s.owners.OwnerOfItem(ctx, item.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve owner of item %d", item.ID)
	}
	token, err := s.token(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.client.Item(ctx, token, item.ExternalID)
}

func (s *Source) Bank(ctx context.Context, bankID int64) (*model.BankInfo, error) {
	return s.client.Bank(ctx, bankID)
}

func (s *Source) Categories(ctx context.Context) ([]model.Category, error) {
	return s.client.Categories(ctx)
}

func (s *Source) token(ctx context.Context, user *model.User) (string, error) {
	s.mu.Lock()
	cached, ok := s.sessions[user.ID]
	s.mu.Unlock()
	if ok && s.now().Add(time.Minute).Before(cached.ExpiresAt) {
		return cached.AccessToken, nil
	}

	session, err := s.client.Authenticate(ctx, user.Email, user.BridgePassword)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.sessions[user.ID] = session
	s.mu.Unlock()
	return session.AccessToken, nil
}
