package middleware

import (
	"context"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/catalog/api/transport"
	"github.com/fastygo/catalog/internal/session"
	"github.com/fastygo/catalog/pkg/httpcontext"
	appLogger "github.com/fastygo/catalog/pkg/logger"
)

// Session resolves the request's session before next runs and finalizes it
// afterwards, also when next panics. A failed resolve answers the request
// without calling next; a failed write-back replaces the response.
func Session(manager *session.Manager, adapter *httpcontext.Adapter, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(rc *fasthttp.RequestCtx) {
			ctx, cancel := attach(adapter, rc)
			h, err := manager.Resolve(ctx, rc)
			cancel()
			if err != nil {
				appLogger.WithRequestID(ctx, logger).Error("session resolve failed", zap.Error(err))
				transport.WriteError(rc, err)
				return
			}
			session.WithHandle(rc, h)

			defer func() {
				// write-back gets its own deadline; the handler may have used up the request's
				fctx, fcancel := attach(adapter, rc)
				defer fcancel()
				if err := manager.Finalize(fctx, rc, h); err != nil {
					appLogger.WithRequestID(fctx, logger).Error("session finalize failed",
						zap.String("session_id", h.ID().String()),
						zap.Error(err))
					transport.WriteError(rc, err)
				}
			}()

			next(rc)
		}
	}
}

func attach(adapter *httpcontext.Adapter, rc *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if adapter != nil {
		return adapter.Attach(rc)
	}
	return context.WithCancel(context.Background())
}
