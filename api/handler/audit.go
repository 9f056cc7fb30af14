package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/orderdesk/api/transport"
	"github.com/fastygo/orderdesk/pkg/httpcontext"
	auditUC "github.com/fastygo/orderdesk/usecase/audit"
)

type AuditHandler struct {
	baseHandler
	coordinator *auditUC.Coordinator
}

func NewAuditHandler(coordinator *auditUC.Coordinator, adapter *httpcontext.Adapter, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		baseHandler: newBaseHandler(adapter, logger),
		coordinator: coordinator,
	}
}

// @Summary Acquire the audit lock
// @Tags audit
// @Router /api/v1/orders/{id}/lock [post]
func (h *AuditHandler) AcquireLock(ctx *fasthttp.RequestCtx) {
	var req transport.LockRequest
	if !h.decode(ctx, &req) {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	order, err := h.coordinator.AcquireLock(stdCtx, pathParam(ctx, "id"), req.AuditorName)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, order)
}

// @Summary Current lock holder
// @Tags audit
// @Router /api/v1/orders/{id}/lock [get]
func (h *AuditHandler) LockHolder(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id := pathParam(ctx, "id")
	holder, locked, err := h.coordinator.CurrentLockHolder(stdCtx, id)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.LockStatus{OrderID: id, Locked: locked, Holder: holder})
}

// @Summary Release the audit lock
// @Tags audit
// @Router /api/v1/orders/{id}/lock [delete]
func (h *AuditHandler) ReleaseLock(ctx *fasthttp.RequestCtx) {
	var req transport.LockRequest
	if !h.decode(ctx, &req) {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	order, err := h.coordinator.Release(stdCtx, pathParam(ctx, "id"), req.AuditorName)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, order)
}

// @Summary Adjust an item's approved quantity
// @Tags audit
// @Router /api/v1/orders/{id}/items/{productId} [patch]
func (h *AuditHandler) AdjustItem(ctx *fasthttp.RequestCtx) {
	var req transport.AdjustItemRequest
	if !h.decode(ctx, &req) {
		return
	}
	if req.QuantityApproved == nil {
		h.badRequest(ctx, "quantityApproved is required")
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	order, err := h.coordinator.AdjustItemQuantity(stdCtx,
		pathParam(ctx, "id"),
		req.AuditorName,
		pathParam(ctx, "productId"),
		*req.QuantityApproved,
		req.Remark,
	)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, order)
}

// @Summary Approve order
// @Tags audit
// @Router /api/v1/orders/{id}/approve [post]
func (h *AuditHandler) Approve(ctx *fasthttp.RequestCtx) {
	var req transport.ApproveRequest
	if !h.decode(ctx, &req) {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	order, err := h.coordinator.Approve(stdCtx, pathParam(ctx, "id"), req.AuditorName)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, order)
}

// @Summary Reject order
// @Tags audit
// @Router /api/v1/orders/{id}/reject [post]
func (h *AuditHandler) Reject(ctx *fasthttp.RequestCtx) {
	var req transport.RejectRequest
	if !h.decode(ctx, &req) {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	order, err := h.coordinator.Reject(stdCtx, pathParam(ctx, "id"), req.AuditorName, req.Reason)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, order)
}
