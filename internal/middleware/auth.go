package middleware

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/catalog/api/transport"
	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/internal/session"
	"github.com/fastygo/catalog/pkg/httpcontext"
	"github.com/fastygo/catalog/repository"
)

// RequireAuth rejects requests whose session is not authenticated. It must run
// inside Session.
func RequireAuth(logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(rc *fasthttp.RequestCtx) {
			h, ok := session.FromRequest(rc)
			if !ok || !h.IsAuthenticated() {
				logger.Debug("unauthenticated request", zap.ByteString("path", rc.Path()))
				transport.WriteError(rc, domain.ErrUnauthorized)
				return
			}
			next(rc)
		}
	}
}

// RequireRole admits authenticated users whose current account has one of
// roles. The role is looked up per request so demotions apply immediately.
func RequireRole(users repository.UserRepository, adapter *httpcontext.Adapter, logger *zap.Logger, roles ...domain.Role) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return RequireAuth(logger)(func(rc *fasthttp.RequestCtx) {
			h, _ := session.FromRequest(rc)
			ctx, cancel := attach(adapter, rc)
			user, err := users.GetByID(ctx, h.OwnerID())
			cancel()
			if err != nil {
				if domain.IsDomainError(err, domain.ErrCodeNotFound) {
					err = domain.ErrUnauthorized
				}
				transport.WriteError(rc, err)
				return
			}
			if _, ok := allowed[user.Role]; !ok || !user.IsActive() {
				transport.WriteError(rc, domain.ErrForbidden)
				return
			}
			next(rc)
		})
	}
}
