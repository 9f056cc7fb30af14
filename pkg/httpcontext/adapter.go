package httpcontext

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/orderdesk/pkg/logger"
)

const HeaderRequestID = "X-Request-ID"

var orderPrefix = []byte("/api/v1/orders/")

// Adapter turns a fasthttp request into a deadline-bound context.Context
// that carries the ids used for log correlation.
type Adapter struct {
	timeout time.Duration
}

func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{timeout: timeout}
}

// Attach echoes the request id header back to the caller. Order routes
// additionally tag the context with the order id from the path.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	reqID := RequestID(ctx)
	ctx.Response.Header.Set(HeaderRequestID, reqID)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)

	if id, ok := ctx.UserValue("id").(string); ok && id != "" && bytes.HasPrefix(ctx.Path(), orderPrefix) {
		stdCtx = appLogger.ContextWithOrder(stdCtx, id)
	}
	return stdCtx, cancel
}

// RequestID returns the caller's X-Request-ID, generating and caching a
// uuid on the request when none was sent.
func RequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if id, ok := ctx.UserValue(HeaderRequestID).(string); ok && id != "" {
		return id
	}
	id := strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderRequestID)))
	if id == "" {
		id = uuid.NewString()
	}
	ctx.SetUserValue(HeaderRequestID, id)
	return id
}
