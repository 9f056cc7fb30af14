package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/orderdesk/pkg/httpcontext"
	summaryUC "github.com/fastygo/orderdesk/usecase/summary"
)

type ReportHandler struct {
	baseHandler
	uc *summaryUC.UseCase
}

func NewReportHandler(uc *summaryUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Order summary over a date range
// @Tags reports
// @Router /api/v1/reports/summary [get]
func (h *ReportHandler) Summary(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	by, err := summaryUC.ParseDimension(queryString(ctx, "by"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	report, err := h.uc.Summary(stdCtx, summaryUC.Query{
		From:    queryString(ctx, "from"),
		To:      queryString(ctx, "to"),
		StoreID: queryString(ctx, "storeId"),
		By:      by,
	})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, report)
}

// @Summary Store participation for one day
// @Tags reports
// @Router /api/v1/reports/dashboard [get]
func (h *ReportHandler) Dashboard(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	dashboard, err := h.uc.Dashboard(stdCtx, queryString(ctx, "date"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, dashboard)
}
