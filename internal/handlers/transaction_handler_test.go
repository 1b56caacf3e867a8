package handlers

import (
	"testing"

	"github.com/nimasrn/co2-estimator/internal/bridgeapi"
	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/internal/services"
	xhttp "github.com/nimasrn/co2-estimator/pkg/http"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func transactionRoutes(svc TransactionService) func(r *xhttp.Router) {
	return func(r *xhttp.Router) {
		RegisterTransactionRoutes(r.Group("/api/v1"), NewTransactionHandler(svc))
	}
}

func TestTransactionHandler_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockTransactionService)
		kg := 12.5
		svc.On("Get", mock.Anything, int64(5)).Return(&model.TransactionView{
			Transaction: &model.Transaction{ID: 5, Description: "Total", Kind: "vehicle_fuel"},
			Icon:        "⛽",
			CO2Kg:       &kg,
		}, nil)

		ctx := serve(t, transactionRoutes(svc), "GET", "/api/v1/transactions/5", nil)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var body map[string]any
		decode(t, ctx, &body)
		assert.Equal(t, "vehicle_fuel", body["kind"])
		assert.Equal(t, 12.5, body["co2_kg"])
		svc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("Get", mock.Anything, int64(6)).Return(nil, errors.Wrap(services.ErrNotFound, "transaction 6"))

		ctx := serve(t, transactionRoutes(svc), "GET", "/api/v1/transactions/6", nil)
		assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
	})

	t.Run("bad id", func(t *testing.T) {
		svc := new(MockTransactionService)
		ctx := serve(t, transactionRoutes(svc), "GET", "/api/v1/transactions/abc", nil)
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestTransactionHandler_List(t *testing.T) {
	svc := new(MockTransactionService)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f model.TransactionFilter) bool {
		return f.AccountID != nil && *f.AccountID == 3 &&
			f.Kind != nil && *f.Kind == "train" &&
			f.Since != nil && f.Since.Format(model.DateLayout) == "2022-03-01" &&
			f.Limit == 10 && f.Desc
	})).Return([]*model.TransactionView{{Transaction: &model.Transaction{ID: 1}}}, nil)

	ctx := serve(t, transactionRoutes(svc), "GET", "/api/v1/transactions?account_id=3&kind=train&since=2022-03-01&limit=10&order=desc", nil)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	var body listResponse
	decode(t, ctx, &body)
	assert.Equal(t, 1, body.Count)
	svc.AssertExpectations(t)

	ctx = serve(t, transactionRoutes(svc), "GET", "/api/v1/transactions?since=yesterday", nil)
	assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestTransactionHandler_Update(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("Update", mock.Anything, int64(9), mock.MatchedBy(func(req model.TransactionUpdateRequest) bool {
			return req.CategoryID != nil && *req.CategoryID == 87 && req.Description == nil
		})).Return(&model.TransactionView{Transaction: &model.Transaction{ID: 9}, UserEdited: true}, nil)

		ctx := serve(t, transactionRoutes(svc), "PATCH", "/api/v1/transactions/9", []byte(`{"category_id":87}`))

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var body map[string]any
		decode(t, ctx, &body)
		assert.Equal(t, true, body["user_edited"])
		svc.AssertExpectations(t)
	})

	t.Run("invalid json", func(t *testing.T) {
		svc := new(MockTransactionService)
		ctx := serve(t, transactionRoutes(svc), "PATCH", "/api/v1/transactions/9", []byte(`{`))
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("validation error", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("Update", mock.Anything, int64(9), mock.Anything).
			Return(nil, &services.ValidationError{Err: errors.Wrap(model.ErrValidation, "description must not be empty")})

		ctx := serve(t, transactionRoutes(svc), "PATCH", "/api/v1/transactions/9", []byte(`{"description":" "}`))

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), "description must not be empty")
	})

	t.Run("unexpected error", func(t *testing.T) {
		svc := new(MockTransactionService)
		svc.On("Update", mock.Anything, int64(9), mock.Anything).Return(nil, errors.New("disk full"))

		ctx := serve(t, transactionRoutes(svc), "PATCH", "/api/v1/transactions/9", []byte(`{"description":"x"}`))

		assert.Equal(t, xhttp.StatusInternalServerError, ctx.Response.StatusCode())
		assert.NotContains(t, string(ctx.Response.Body()), "disk full")
	})
}

func TestTransactionHandler_SetPristine(t *testing.T) {
	svc := new(MockTransactionService)
	svc.On("SetPristine", mock.Anything, int64(4)).Return(&model.TransactionView{Transaction: &model.Transaction{ID: 4}}, nil)

	ctx := serve(t, transactionRoutes(svc), "POST", "/api/v1/transactions/4/pristine", nil)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	svc.AssertExpectations(t)
}

func TestWriteServiceError_Transport(t *testing.T) {
	svc := new(MockTransactionService)
	svc.On("Get", mock.Anything, int64(1)).Return(nil, &bridgeapi.TransportError{Method: "GET", Path: "/v2/items/1", StatusCode: 503})

	ctx := serve(t, transactionRoutes(svc), "GET", "/api/v1/transactions/1", nil)

	assert.Equal(t, xhttp.StatusBadGateway, ctx.Response.StatusCode())
}
