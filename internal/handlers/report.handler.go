package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/internal/services"
	xhttp "github.com/nimasrn/co2-estimator/pkg/http"
)

type ReportService interface {
	UserReport(ctx context.Context, userID int64, since *time.Time) (*model.Summary, error)
}

type ItemService interface {
	Describe(ctx context.Context, itemID int64) (*model.ItemDescription, error)
}

type ReportHandler struct {
	reports ReportService
	items   ItemService
}

func RegisterReportRoutes(e *router.Group, h *ReportHandler) {
	e.GET("/users/{id}/report", h.UserReport)
	e.GET("/items/{id}", h.DescribeItem)
}

func NewReportHandler(reports ReportService, items ItemService) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		items:   items,
	}
}

// UserReport returns the footprint summary as JSON, or as plain lines with ?format=text.
func (h *ReportHandler) UserReport(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	var since *time.Time
	if v := query(ctx, "since"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "since must be YYYY-MM-DD or RFC3339")
			return
		}
		since = &t
	}

	sum, err := h.reports.UserReport(ctx, id, since)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	if query(ctx, "format") == "text" {
		ctx.Response.Header.Set("Content-Type", "text/plain; charset=utf-8")
		ctx.Response.SetStatusCode(xhttp.StatusOK)
		ctx.Response.SetBodyString(strings.Join(services.ReportLines(sum), "\n") + "\n")
		return
	}
	writeJSON(ctx, xhttp.StatusOK, sum)
}

func (h *ReportHandler) DescribeItem(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	desc, err := h.items.Describe(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, desc)
}
