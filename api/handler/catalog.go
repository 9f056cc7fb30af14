package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/pkg/httpcontext"
	"github.com/fastygo/orderdesk/repository"
	catalogUC "github.com/fastygo/orderdesk/usecase/catalog"
)

type CatalogHandler struct {
	baseHandler
	uc *catalogUC.UseCase
}

func NewCatalogHandler(uc *catalogUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List products
// @Tags catalog
// @Router /api/v1/products [get]
func (h *CatalogHandler) ListProducts(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	products, err := h.uc.ListProducts(stdCtx, repository.ProductFilter{
		Category:   queryString(ctx, "category"),
		ActiveOnly: queryString(ctx, "active") == "true",
	})
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	h.respondSuccess(ctx, http.StatusOK, products)
}

// @Summary Get product
// @Tags catalog
// @Router /api/v1/products/{id} [get]
func (h *CatalogHandler) GetProduct(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	product, err := h.uc.GetProduct(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, product)
}

// @Summary Category tree
// @Tags catalog
// @Router /api/v1/categories [get]
func (h *CatalogHandler) ListCategories(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tree, err := h.uc.ListCategories(stdCtx)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tree)
}

// @Summary List stores
// @Tags stores
// @Router /api/v1/stores [get]
func (h *CatalogHandler) ListStores(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	stores, err := h.uc.ListStores(stdCtx)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	if stores == nil {
		stores = []domain.Store{}
	}
	h.respondSuccess(ctx, http.StatusOK, stores)
}

// @Summary Get store
// @Tags stores
// @Router /api/v1/stores/{id} [get]
func (h *CatalogHandler) GetStore(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	store, err := h.uc.GetStore(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, store)
}
