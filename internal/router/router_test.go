package router_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/orderdesk/api/handler"
	"github.com/fastygo/orderdesk/internal/infrastructure/monitor"
	"github.com/fastygo/orderdesk/internal/middleware"
	"github.com/fastygo/orderdesk/internal/router"
	"github.com/fastygo/orderdesk/internal/services"
	"github.com/fastygo/orderdesk/pkg/httpcontext"
	"github.com/fastygo/orderdesk/repository/memory"
	auditUC "github.com/fastygo/orderdesk/usecase/audit"
	catalogUC "github.com/fastygo/orderdesk/usecase/catalog"
	orderUC "github.com/fastygo/orderdesk/usecase/order"
	summaryUC "github.com/fastygo/orderdesk/usecase/summary"
)

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Meta   map[string]any  `json:"meta"`
}

func newServer(t *testing.T) fasthttp.RequestHandler {
	t.Helper()
	catalog := memory.NewCatalog()
	require.NoError(t, catalog.LoadSeed("../../testdata/seed.json"))
	orders := memory.NewOrderRepository()
	events := memory.NewEventRepository()

	processor, err := services.NewJournalProcessor(nil, nil, events, nil, services.JournalConfig{})
	require.NoError(t, err)
	recorder := services.NewEventRecorder(processor)

	mon := monitor.New("memory", nil, nil, nil, time.Minute, nil)
	mon.Refresh()

	adapter := httpcontext.NewAdapter(time.Second)
	handlers := router.Handlers{
		Order: apiHandler.NewOrderHandler(
			orderUC.New(orders, catalog, catalog, recorder, nil, orderUC.Options{Location: time.UTC, Events: events}),
			adapter, nil),
		Audit: apiHandler.NewAuditHandler(
			auditUC.New(orders, catalog, memory.NewLeaseRepository(), recorder, nil, auditUC.Config{}),
			adapter, nil),
		Report: apiHandler.NewReportHandler(
			summaryUC.New(orders, catalog, catalog, nil, time.UTC, nil),
			adapter, nil),
		Catalog: apiHandler.NewCatalogHandler(catalogUC.New(catalog, catalog, nil), adapter, nil),
		Health:  apiHandler.NewHealthHandler(mon, adapter, nil),
	}
	return router.New(handlers, middleware.Recover(nil), middleware.AccessLog(nil)).Handler
}

func call(t *testing.T, h fasthttp.RequestHandler, method, uri, body string) (int, envelope) {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.Header.SetContentType("application/json")
		ctx.Request.SetBodyString(body)
	}
	h(&ctx)

	var env envelope
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &env), "body: %s", ctx.Response.Body())
	return ctx.Response.StatusCode(), env
}

func TestOrderAuditFlow(t *testing.T) {
	h := newServer(t)

	status, env := call(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Status)

	submit := `{"items":[{"productId":"P001","quantity":20},{"productId":"P002","quantity":10}]}`
	status, env = call(t, h, http.MethodPost, "/api/v1/stores/S001/orders", submit)
	require.Equal(t, http.StatusCreated, status, env.Error)
	var order struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		TotalQuantity int    `json:"totalQuantity"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "Submitted", order.Status)
	assert.Equal(t, 30, order.TotalQuantity)

	status, env = call(t, h, http.MethodPost, "/api/v1/stores/S001/orders", submit)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Code)

	base := "/api/v1/orders/" + order.ID
	status, _ = call(t, h, http.MethodPost, base+"/lock", `{"auditorName":"李审核"}`)
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, h, http.MethodPost, base+"/lock", `{"auditorName":"张审核"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "LOCK_CONFLICT", env.Code)
	assert.Equal(t, "李审核", env.Meta["holder"])

	status, env = call(t, h, http.MethodGet, base+"/lock", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, fmt.Sprintf(`{"orderId":%q,"locked":true,"holder":"李审核"}`, order.ID), string(env.Data))

	status, env = call(t, h, http.MethodPatch, base+"/items/P002", `{"auditorName":"张审核","quantityApproved":8}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Code)

	status, env = call(t, h, http.MethodPatch, base+"/items/P002", `{"auditorName":"李审核"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)

	status, _ = call(t, h, http.MethodPatch, base+"/items/P002", `{"auditorName":"李审核","quantityApproved":8,"remark":"库存不足"}`)
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, h, http.MethodPost, base+"/approve", `{"auditorName":"李审核"}`)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "Approved", order.Status)
	assert.Equal(t, 28, order.TotalQuantity)

	status, env = call(t, h, http.MethodPost, base+"/approve", `{"auditorName":"李审核"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_TRANSITION", env.Code)
	assert.Equal(t, "Approved", env.Meta["current"])

	status, env = call(t, h, http.MethodGet, base+"/events", "")
	require.Equal(t, http.StatusOK, status)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 3)

	status, env = call(t, h, http.MethodGet, "/api/v1/orders?status=Approved", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, env.Meta["count"])

	status, env = call(t, h, http.MethodGet, "/api/v1/reports/summary?by=store", "")
	require.Equal(t, http.StatusOK, status)
	var report struct {
		Stores []struct {
			StoreID       string `json:"storeId"`
			TotalQuantity int    `json:"totalQuantity"`
		} `json:"stores"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	require.Len(t, report.Stores, 1)
	assert.Equal(t, 28, report.Stores[0].TotalQuantity)
}

func TestErrorMapping(t *testing.T) {
	h := newServer(t)

	cases := []struct {
		name   string
		method string
		uri    string
		body   string
		status int
		code   string
	}{
		{"malformed body", http.MethodPost, "/api/v1/stores/S001/orders", `{"items":`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"empty order", http.MethodPost, "/api/v1/stores/S001/orders", `{"items":[]}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"quantity above max", http.MethodPost, "/api/v1/stores/S001/orders", `{"items":[{"productId":"P002","quantity":99}]}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown store", http.MethodPost, "/api/v1/stores/S999/orders", `{"items":[{"productId":"P001","quantity":1}]}`, http.StatusNotFound, "NOT_FOUND"},
		{"unknown order", http.MethodGet, "/api/v1/orders/O2025011599", "", http.StatusNotFound, "NOT_FOUND"},
		{"unknown status filter", http.MethodGet, "/api/v1/orders?status=shipped", "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown dimension", http.MethodGet, "/api/v1/reports/summary?by=region", "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad date", http.MethodGet, "/api/v1/reports/dashboard?date=yesterday", "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown product", http.MethodGet, "/api/v1/products/P999", "", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := call(t, h, tc.method, tc.uri, tc.body)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, tc.code, env.Code)
		})
	}
}

func TestCatalogRoutes(t *testing.T) {
	h := newServer(t)

	status, env := call(t, h, http.MethodGet, "/api/v1/categories", "")
	require.Equal(t, http.StatusOK, status)
	var tree []struct {
		Code         string `json:"code"`
		ProductCount int    `json:"productCount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tree))
	require.Len(t, tree, 2)
	assert.Equal(t, "grain-oil", tree[0].Code)
	assert.Equal(t, 3, tree[0].ProductCount)

	status, env = call(t, h, http.MethodGet, "/api/v1/products?active=true", "")
	require.Equal(t, http.StatusOK, status)
	var products []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &products))
	assert.Len(t, products, 3)

	status, _ = call(t, h, http.MethodGet, "/api/v1/stores/S002", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestEmptySummaryKeepsRollupKey(t *testing.T) {
	h := newServer(t)

	for by, key := range map[string]string{"product": "products", "store": "stores", "category": "categories"} {
		t.Run(by, func(t *testing.T) {
			status, env := call(t, h, http.MethodGet, "/api/v1/reports/summary?from=2020-01-01&to=2020-01-07&by="+by, "")
			require.Equal(t, http.StatusOK, status)
			var data map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(env.Data, &data))
			assert.Equal(t, "[]", string(data[key]))
		})
	}

	status, env := call(t, h, http.MethodGet, "/api/v1/reports/summary?from=2020-01-01&to=2020-01-07&by=trend", "")
	require.Equal(t, http.StatusOK, status)
	var trend struct {
		Trend []map[string]any `json:"trend"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &trend))
	assert.Len(t, trend.Trend, 7)
}
