package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/orderdesk/api/handler"
	"github.com/fastygo/orderdesk/internal/middleware"
)

type Handlers struct {
	Order   *apiHandler.OrderHandler
	Audit   *apiHandler.AuditHandler
	Report  *apiHandler.ReportHandler
	Catalog *apiHandler.CatalogHandler
	Health  *apiHandler.HealthHandler
}

// New registers every route. Middlewares wrap each API handler, the first
// listed running outermost.
func New(handlers Handlers, mws ...middleware.Middleware) *router.Router {
	r := router.New()
	wrap := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return middleware.Chain(h, mws...)
	}

	r.GET("/health", handlers.Health.Check)

	v1 := r.Group("/api/v1")

	// Store ordering
	v1.POST("/stores/{id}/orders", wrap(handlers.Order.Submit))
	v1.POST("/stores/{id}/orders/open", wrap(handlers.Order.Open))
	v1.GET("/orders", wrap(handlers.Order.List))
	v1.GET("/orders/{id}", wrap(handlers.Order.Get))
	v1.GET("/orders/{id}/events", wrap(handlers.Order.History))

	// Audit
	v1.POST("/orders/{id}/lock", wrap(handlers.Audit.AcquireLock))
	v1.GET("/orders/{id}/lock", wrap(handlers.Audit.LockHolder))
	v1.DELETE("/orders/{id}/lock", wrap(handlers.Audit.ReleaseLock))
	v1.PATCH("/orders/{id}/items/{productId}", wrap(handlers.Audit.AdjustItem))
	v1.POST("/orders/{id}/approve", wrap(handlers.Audit.Approve))
	v1.POST("/orders/{id}/reject", wrap(handlers.Audit.Reject))

	// Reports
	v1.GET("/reports/summary", wrap(handlers.Report.Summary))
	v1.GET("/reports/dashboard", wrap(handlers.Report.Dashboard))

	// Catalog and store directory
	v1.GET("/products", wrap(handlers.Catalog.ListProducts))
	v1.GET("/products/{id}", wrap(handlers.Catalog.GetProduct))
	v1.GET("/categories", wrap(handlers.Catalog.ListCategories))
	v1.GET("/stores", wrap(handlers.Catalog.ListStores))
	v1.GET("/stores/{id}", wrap(handlers.Catalog.GetStore))

	return r
}
