package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/orderdesk/api/transport"
	"github.com/fastygo/orderdesk/pkg/httpcontext"
)

// Middleware wraps a fasthttp handler.
type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// Chain applies middlewares so the first one listed runs outermost.
func Chain(h fasthttp.RequestHandler, mws ...Middleware) fasthttp.RequestHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// AccessLog logs one line per request with its status and latency.
func AccessLog(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			reqID := httpcontext.RequestID(ctx)
			next(ctx)

			status := ctx.Response.StatusCode()
			fields := []zap.Field{
				zap.String("request_id", reqID),
				zap.ByteString("method", ctx.Method()),
				zap.ByteString("path", ctx.Path()),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("request failed", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn("request rejected", fields...)
			default:
				logger.Info("request served", fields...)
			}
		}
	}
}

// Recover turns a handler panic into a 500 envelope.
func Recover(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			defer func() {
				if rec := recover(); rec != nil {
					reqID := httpcontext.RequestID(ctx)
					logger.Error("handler panic",
						zap.String("request_id", reqID),
						zap.String("panic", fmt.Sprint(rec)),
						zap.Stack("stack"),
					)
					ctx.ResetBody()
					ctx.Response.Header.SetContentType("application/json")
					ctx.SetStatusCode(http.StatusInternalServerError)
					ctx.SetBody(transport.NewError("INTERNAL", "internal server error", nil).WithRequestID(reqID).Bytes())
				}
			}()
			next(ctx)
		}
	}
}
