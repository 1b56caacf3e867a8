package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimasrn/co2-estimator/internal/bridgeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, data *Dataset) (*Bridge, *httptest.Server) {
	b := NewBridge(data)
	srv := httptest.NewServer(SetupRouter(b))
	t.Cleanup(srv.Close)
	return b, srv
}

func newClient(t *testing.T, srv *httptest.Server, pageLimit int) *bridgeapi.Client {
	client, err := bridgeapi.NewClient(bridgeapi.Config{
		BaseURL:      srv.URL,
		Version:      "2021-06-01",
		ClientID:     "client",
		ClientSecret: "secret",
		Timeout:      2 * time.Second,
		PageLimit:    pageLimit,
	})
	require.NoError(t, err)
	return client
}

func TestBridgeMock_ClientRoundTrip(t *testing.T) {
	_, srv := newTestServer(t, DefaultDataset(time.Now()))
	client := newClient(t, srv, 2)
	ctx := context.Background()

	session, err := client.Authenticate(ctx, "demo@example.com", "demo-password")
	require.NoError(t, err)
	require.NotEmpty(t, session.AccessToken)

	txs, err := client.UpdatedTransactions(ctx, session.AccessToken, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Len(t, txs, 6, "pagination is followed to the end")
	assert.Equal(t, int64(1001), txs[0].ExternalAccountID)

	cats, err := client.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 9)

	item, err := client.Item(ctx, session.AccessToken, 501)
	require.NoError(t, err)
	assert.Equal(t, int64(408), item.BankID)

	bank, err := client.Bank(ctx, 408)
	require.NoError(t, err)
	assert.Equal(t, "Demo Bank", bank.Name)
}

func TestBridgeMock_Auth(t *testing.T) {
	_, srv := newTestServer(t, DefaultDataset(time.Now()))
	client := newClient(t, srv, 0)
	ctx := context.Background()

	_, err := client.Authenticate(ctx, "demo@example.com", "wrong")
	assert.ErrorIs(t, err, bridgeapi.ErrTransport)

	_, err = client.UpdatedTransactions(ctx, "not-a-session", time.Unix(0, 0))
	var te *bridgeapi.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)

	resp, err := http.Get(srv.URL + "/v2/categories")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "client credentials are required")
}

func TestBridgeMock_UpdatedSince(t *testing.T) {
	start := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	b, srv := newTestServer(t, DefaultDataset(start))
	b.now = func() time.Time { return start.Add(time.Hour) }
	client := newClient(t, srv, 0)
	ctx := context.Background()

	body, _ := json.Marshal(Transaction{ID: 9003, AccountID: 1001, CleanDescription: "SNCF", Amount: -14, Date: "2022-02-26"})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/mock/transactions", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	session, err := client.Authenticate(ctx, "demo@example.com", "demo-password")
	require.NoError(t, err)

	txs, err := client.UpdatedTransactions(ctx, session.AccessToken, start.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(9003), txs[0].ExternalID)
	assert.Equal(t, "-14", txs[0].Amount.String())
	assert.Equal(t, "EUR", txs[0].CurrencyCode)
}

func TestBridgeMock_FailureRate(t *testing.T) {
	_, srv := newTestServer(t, DefaultDataset(time.Now()))

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/mock/config", bytes.NewBufferString(`{"failure_rate":1}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	_, err = newClient(t, srv, 0).Bank(context.Background(), 408)
	var te *bridgeapi.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
}

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - email: a@example.com
    password: pw
categories:
  - id: 1
    name: Transport
    categories:
      - id: 87
        name: Fuel
transactions:
  - id: 1
    account_id: 7
    clean_description: Total
    amount: -20
    currency_code: EUR
    date: "2022-03-01"
    category_id: 87
`), 0o600))

	d, err := LoadDataset(path)
	require.NoError(t, err)
	require.Len(t, d.Transactions, 1)
	assert.Equal(t, int64(87), *d.Transactions[0].CategoryID)
	assert.Len(t, d.Categories[0].Categories, 1)

	_, err = LoadDataset(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
