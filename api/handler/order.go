package handler

import (
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/orderdesk/api/transport"
	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/pkg/httpcontext"
	"github.com/fastygo/orderdesk/repository"
	orderUC "github.com/fastygo/orderdesk/usecase/order"
)

type OrderHandler struct {
	baseHandler
	uc *orderUC.UseCase
}

func NewOrderHandler(uc *orderUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Submit the store's order for today
// @Tags orders
// @Router /api/v1/stores/{id}/orders [post]
func (h *OrderHandler) Submit(ctx *fasthttp.RequestCtx) {
	var req transport.SubmitOrderRequest
	if !h.decode(ctx, &req) {
		return
	}
	input := orderUC.SubmitInput{
		Items:       make([]orderUC.ItemInput, 0, len(req.Items)),
		SubmittedBy: req.SubmittedBy,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, orderUC.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	order, err := h.uc.Submit(stdCtx, pathParam(ctx, "id"), input)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, order)
}

// @Summary Open (or fetch) the store's order for today
// @Tags orders
// @Router /api/v1/stores/{id}/orders/open [post]
func (h *OrderHandler) Open(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	order, err := h.uc.Open(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, order)
}

// @Summary Get order
// @Tags orders
// @Router /api/v1/orders/{id} [get]
func (h *OrderHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	order, err := h.uc.Get(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, order)
}

// @Summary Journaled events of an order
// @Tags orders
// @Router /api/v1/orders/{id}/events [get]
func (h *OrderHandler) History(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	events, err := h.uc.History(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, events)
}

// @Summary List orders
// @Tags orders
// @Router /api/v1/orders [get]
func (h *OrderHandler) List(ctx *fasthttp.RequestCtx) {
	filter := repository.OrderFilter{
		StoreID: queryString(ctx, "storeId"),
		From:    queryString(ctx, "from"),
		To:      queryString(ctx, "to"),
		Limit:   parseInt(queryString(ctx, "limit"), 50),
		Offset:  parseInt(queryString(ctx, "offset"), 0),
	}
	if raw := queryString(ctx, "status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, domain.OrderStatus(s))
			}
		}
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	orders, err := h.uc.List(stdCtx, filter)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	h.respondPage(ctx, orders, transport.Page{Limit: filter.Limit, Offset: filter.Offset, Count: len(orders)})
}
