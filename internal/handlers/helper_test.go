package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/internal/services"
	xhttp "github.com/nimasrn/co2-estimator/pkg/http"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

// serve routes one request through a router built by register.
func serve(t *testing.T, register func(r *xhttp.Router), method, uri string, body []byte) *fasthttp.RequestCtx {
	t.Helper()
	r := xhttp.CreateDefaultRouter()
	register(r)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	r.Handler(ctx)
	return ctx
}

func decode(t *testing.T, ctx *fasthttp.RequestCtx, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), v), string(ctx.Response.Body()))
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) Get(ctx context.Context, id int64) (*model.TransactionView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TransactionView), args.Error(1)
}

func (m *MockTransactionService) List(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionView, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TransactionView), args.Error(1)
}

func (m *MockTransactionService) Update(ctx context.Context, id int64, req model.TransactionUpdateRequest) (*model.TransactionView, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TransactionView), args.Error(1)
}

func (m *MockTransactionService) SetPristine(ctx context.Context, id int64) (*model.TransactionView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TransactionView), args.Error(1)
}

type MockSyncTrigger struct {
	mock.Mock
}

func (m *MockSyncTrigger) Trigger(ctx context.Context, accountID int64, eventType model.SyncEventType) (*services.TriggerResult, error) {
	args := m.Called(ctx, accountID, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TriggerResult), args.Error(1)
}

func (m *MockSyncTrigger) FromWebhook(ctx context.Context, hook model.BridgeWebhook) (*services.TriggerResult, error) {
	args := m.Called(ctx, hook)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TriggerResult), args.Error(1)
}

type MockReclassifier struct {
	mock.Mock
}

func (m *MockReclassifier) ReclassifyAccount(ctx context.Context, accountID int64) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) UserReport(ctx context.Context, userID int64, since *time.Time) (*model.Summary, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Summary), args.Error(1)
}

type MockItemService struct {
	mock.Mock
}

func (m *MockItemService) Describe(ctx context.Context, itemID int64) (*model.ItemDescription, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ItemDescription), args.Error(1)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }
