package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/fasthttp/router"
	"github.com/nimasrn/co2-estimator/internal/model"
	xhttp "github.com/nimasrn/co2-estimator/pkg/http"
)

type TransactionService interface {
	Get(ctx context.Context, id int64) (*model.TransactionView, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionView, error)
	Update(ctx context.Context, id int64, req model.TransactionUpdateRequest) (*model.TransactionView, error)
	SetPristine(ctx context.Context, id int64) (*model.TransactionView, error)
}

type TransactionHandler struct {
	svc TransactionService
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler) {
	e.GET("/transactions", h.ListTransactions)
	e.GET("/transactions/{id}", h.GetTransaction)
	e.PATCH("/transactions/{id}", h.UpdateTransaction)
	e.POST("/transactions/{id}/pristine", h.SetPristine)
}

func NewTransactionHandler(svc TransactionService) *TransactionHandler {
	return &TransactionHandler{
		svc: svc,
	}
}

type listResponse struct {
	Items []*model.TransactionView `json:"items"`
	Count int                      `json:"count"`
}

func (h *TransactionHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	var f model.TransactionFilter

	if v := query(ctx, "account_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "account_id must be an integer")
			return
		}
		f.AccountID = &id
	}
	if v := query(ctx, "kind"); v != "" {
		kind := model.EstimatorKind(v)
		f.Kind = &kind
	}
	if v := query(ctx, "since"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "since must be YYYY-MM-DD or RFC3339")
			return
		}
		f.Since = &t
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse{Items: items, Count: len(items)})
}

func (h *TransactionHandler) GetTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	view, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, view)
}

func (h *TransactionHandler) UpdateTransaction(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	var req model.TransactionUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	view, err := h.svc.Update(ctx, id, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, view)
}

func (h *TransactionHandler) SetPristine(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	view, err := h.svc.SetPristine(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, view)
}
