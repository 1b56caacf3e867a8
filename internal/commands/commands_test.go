package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/nimasrn/co2-estimator/internal/bootstrap"
	"github.com/nimasrn/co2-estimator/internal/bridgeapi"
	"github.com/nimasrn/co2-estimator/internal/config"
	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"gopkg.in/yaml.v3"
)

// fakeBridge serves the aggregation API endpoints co2ctl reaches.
func fakeBridge(t *testing.T, transactions []map[string]any) *bridgeapi.Client {
	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		var body any
		switch string(ctx.Path()) {
		case "/v2/authenticate":
			body = map[string]any{"access_token": "tok", "expires_at": time.Now().Add(time.Hour)}
		case "/v2/transactions/updated":
			body = map[string]any{"resources": transactions, "pagination": map[string]any{"next_uri": nil}}
		case "/v2/categories":
			body = map[string]any{
				"resources": []map[string]any{
					{"id": 1, "name": "Transport", "categories": []map[string]any{{"id": 87, "name": "Carburant"}, {"id": 197, "name": "Train"}}},
				},
				"pagination": map[string]any{"next_uri": nil},
			}
		default:
			ctx.SetStatusCode(404)
			return
		}
		b, _ := json.Marshal(body)
		ctx.SetContentType("application/json")
		ctx.SetBody(b)
	}}
	go server.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { _ = ln.Close() })

	client, err := bridgeapi.NewClient(bridgeapi.Config{
		BaseURL:      "http://bridge.test",
		ClientID:     "id",
		ClientSecret: "secret",
	}, bridgeapi.WithHTTPClient(&fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}))
	require.NoError(t, err)
	return client
}

type fixture struct {
	app     *bootstrap.App
	user    *model.User
	account *model.Account
}

func setupFixture(t *testing.T, transactions []map[string]any) *fixture {
	c := &config.Config{
		AppEnv:              "test",
		DBDriver:            "sqlite",
		SQLitePath:          ":memory:",
		SyncWatermarkMargin: time.Hour,
	}
	db, err := bootstrap.OpenDB(c)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, repository.AutoMigrate(db.Write(ctx)))

	app := bootstrap.NewApp(c, db, nil, fakeBridge(t, transactions))

	user, err := app.Users.Create(ctx, &model.User{Username: "alice", Email: "alice@example.com", BridgePassword: "pw"})
	require.NoError(t, err)
	item, err := app.Items.Create(ctx, &model.Item{UserID: user.ID, ExternalID: 7, BankID: 408})
	require.NoError(t, err)
	account, err := app.Accounts.Create(ctx, &model.Account{ItemID: item.ID, ExternalID: 99, Name: "checking"})
	require.NoError(t, err)

	return &fixture{app: app, user: user, account: account}
}

// run executes co2ctl with args against the fixture. The app is closed by
// the command, so each fixture serves a single run.
func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(func() (*bootstrap.App, error) { return f.app, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func sampleTransactions() []map[string]any {
	return []map[string]any{
		{"id": 1, "account_id": 99, "clean_description": "Total", "bank_description": "CB Total", "amount": -60.0, "currency_code": "EUR", "date": "2022-03-01", "category_id": 87},
		{"id": 2, "account_id": 99, "clean_description": "SNCF", "bank_description": "CB SNCF", "amount": -25.0, "currency_code": "EUR", "date": "2022-03-02", "category_id": 197},
		{"id": 3, "account_id": 55, "clean_description": "Other account", "amount": -5.0, "currency_code": "EUR", "date": "2022-03-02", "category_id": 87},
	}
}

func TestSyncCommand(t *testing.T) {
	f := setupFixture(t, sampleTransactions())

	out, err := f.run(t, "sync", "--account", "1", "--at", "2022-03-20T12:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "fetched 2, created 2")
	assert.Contains(t, out, "watermark: 2022-03-20T11:00:00Z")
}

func TestSyncCommand_YAML(t *testing.T) {
	f := setupFixture(t, sampleTransactions())

	out, err := f.run(t, "sync", "--account", "1", "-o", "yaml")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res["created"])
	assert.Equal(t, "refresh", res["mode"])
}

func TestScratchCommand(t *testing.T) {
	f := setupFixture(t, sampleTransactions())
	ctx := context.Background()
	_, err := f.app.Sync.Refresh(ctx, f.account.ID, time.Now())
	require.NoError(t, err)

	out, err := f.run(t, "scratch", "--account", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "(scratch)")
	assert.Contains(t, out, "wiped: 2")
}

func TestSyncCommand_UnknownAccount(t *testing.T) {
	f := setupFixture(t, nil)

	_, err := f.run(t, "sync", "--account", "42")
	assert.Error(t, err)
}

func TestReportCommand(t *testing.T) {
	f := syncedFixture(t)

	out, err := f.run(t, "report", "--user", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Estimated CO2 footprint:")
	assert.Contains(t, out, "100% of expenses")
	assert.Contains(t, out, "vehicle_fuel")
}

func TestReportCommand_YAML(t *testing.T) {
	f := syncedFixture(t)

	out, err := f.run(t, "report", "--user", "1", "--since", "2022-03-02", "-o", "yaml")
	require.NoError(t, err)

	var sum model.Summary
	require.NoError(t, yaml.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 1, sum.TransactionCount)
}

func TestReportCommand_BadFlags(t *testing.T) {
	f := setupFixture(t, nil)

	_, err := f.run(t, "report", "--user", "1", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")

	_, err = f.run(t, "report", "--user", "1", "--since", "March")
	assert.ErrorContains(t, err, "YYYY-MM-DD")

	_, err = f.run(t, "report")
	assert.Error(t, err, "--user is required")
}

func syncedFixture(t *testing.T) *fixture {
	f := setupFixture(t, sampleTransactions())
	_, err := f.app.Sync.Refresh(context.Background(), f.account.ID, time.Now())
	require.NoError(t, err)
	return f
}

func TestReclassifyCommand(t *testing.T) {
	f := syncedFixture(t)

	out, err := f.run(t, "reclassify", "--account", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "account 1: 0 transactions changed kind")
}

func TestPristineCommand(t *testing.T) {
	f := syncedFixture(t)

	out, err := f.run(t, "pristine", "--transaction", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Total (")
}

func TestKindsCommand(t *testing.T) {
	root := newRootCommand(nil)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"kinds"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "KIND")
	assert.Contains(t, out.String(), "vehicle_fuel")
	assert.Contains(t, out.String(), "ter")

	out.Reset()
	root = newRootCommand(nil)
	root.SetOut(&out)
	root.SetArgs([]string{"kinds", "-o", "json"})
	require.NoError(t, root.Execute())

	var kinds []kindInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &kinds))
	require.NotEmpty(t, kinds)
	for _, k := range kinds {
		if k.Name == "ter" {
			assert.Equal(t, "train", k.Refines)
		}
	}
}
