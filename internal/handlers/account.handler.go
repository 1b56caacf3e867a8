package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/internal/services"
	xhttp "github.com/nimasrn/co2-estimator/pkg/http"
)

type SyncTrigger interface {
	Trigger(ctx context.Context, accountID int64, eventType model.SyncEventType) (*services.TriggerResult, error)
	FromWebhook(ctx context.Context, hook model.BridgeWebhook) (*services.TriggerResult, error)
}

type Reclassifier interface {
	ReclassifyAccount(ctx context.Context, accountID int64) (int, error)
}

type AccountHandler struct {
	trigger    SyncTrigger
	reclassify Reclassifier
}

func RegisterAccountRoutes(e *router.Group, h *AccountHandler) {
	e.POST("/accounts/{id}/refresh", h.Refresh)
	e.POST("/accounts/{id}/scratch", h.Scratch)
	e.POST("/accounts/{id}/reclassify", h.Reclassify)
	e.POST("/webhooks/bridge", h.BridgeWebhook)
}

func NewAccountHandler(trigger SyncTrigger, reclassify Reclassifier) *AccountHandler {
	return &AccountHandler{
		trigger:    trigger,
		reclassify: reclassify,
	}
}

func (h *AccountHandler) Refresh(ctx *xhttp.RequestCtx) {
	h.enqueue(ctx, model.SyncEventRefresh)
}

// Scratch wipes the account's transactions and resyncs them from the epoch.
func (h *AccountHandler) Scratch(ctx *xhttp.RequestCtx) {
	h.enqueue(ctx, model.SyncEventScratch)
}

func (h *AccountHandler) enqueue(ctx *xhttp.RequestCtx, eventType model.SyncEventType) {
	id, err := pathID(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	res, err := h.trigger.Trigger(ctx, id, eventType)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusAccepted, res)
}

type reclassifyResponse struct {
	AccountID int64  `json:"account_id"`
	Changed   int    `json:"changed"`
	Error     string `json:"error,omitempty"`
}

func (h *AccountHandler) Reclassify(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	changed, err := h.reclassify.ReclassifyAccount(ctx, id)
	if err != nil && changed == 0 {
		writeServiceError(ctx, err)
		return
	}
	resp := reclassifyResponse{AccountID: id, Changed: changed}
	if err != nil {
		// partial: some rows were saved before the failures
		resp.Error = err.Error()
	}
	writeJSON(ctx, xhttp.StatusOK, resp)
}

// BridgeWebhook always acknowledges callbacks it understands, queued or not,
// so the aggregation API does not redeliver them.
func (h *AccountHandler) BridgeWebhook(ctx *xhttp.RequestCtx) {
	var hook model.BridgeWebhook
	if err := readJSON(ctx, &hook); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.trigger.FromWebhook(ctx, hook)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if res == nil {
		writeJSON(ctx, xhttp.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	writeJSON(ctx, xhttp.StatusAccepted, res)
}
