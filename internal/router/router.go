package router

import (
	"net/http"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/catalog/api/handler"
	"github.com/fastygo/catalog/api/transport"
	"github.com/fastygo/catalog/domain"
)

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

type Handlers struct {
	Auth    *apiHandler.AuthHandler
	Session *apiHandler.SessionHandler
	Account *apiHandler.AccountHandler
	Product *apiHandler.ProductHandler
	Health  *apiHandler.HealthHandler
}

// Middlewares wrap the route table. Session must be set; the others gate
// access and run inside it.
type Middlewares struct {
	Session     Middleware
	RequireAuth Middleware
	Staff       Middleware
	Admin       Middleware
}

func New(handlers Handlers, mw Middlewares, logger *zap.Logger) *router.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := router.New()
	r.PanicHandler = func(ctx *fasthttp.RequestCtx, rcv interface{}) {
		logger.Error("handler panic", zap.ByteString("path", ctx.Path()), zap.Any("panic", rcv))
		transport.WriteJSON(ctx, http.StatusInternalServerError,
			transport.NewError(string(domain.ErrCodeInternal), "internal error", nil))
	}

	r.GET("/health", handlers.Health.Check)

	s := func(h fasthttp.RequestHandler, gates ...Middleware) fasthttp.RequestHandler {
		for i := len(gates) - 1; i >= 0; i-- {
			h = gates[i](h)
		}
		return mw.Session(h)
	}

	// Session
	r.GET("/api/v1/session", s(handlers.Session.Get))
	r.PUT("/api/v1/session", s(handlers.Session.Update))

	// Auth
	r.POST("/api/v1/auth/register", s(handlers.Auth.Register))
	r.POST("/api/v1/auth/login", s(handlers.Auth.Login))
	r.POST("/api/v1/auth/logout", s(handlers.Auth.Logout, mw.RequireAuth))

	// Account
	r.POST("/api/v1/account/restore", s(handlers.Account.Restore))
	r.GET("/api/v1/account", s(handlers.Account.Get, mw.RequireAuth))
	r.DELETE("/api/v1/account", s(handlers.Account.Delete, mw.RequireAuth))
	r.POST("/api/v1/account/activate", s(handlers.Account.Activate, mw.RequireAuth))
	r.PUT("/api/v1/account/password", s(handlers.Account.ChangePassword, mw.RequireAuth))
	r.PUT("/api/v1/account/username", s(handlers.Account.ChangeUsername, mw.RequireAuth))
	r.PUT("/api/v1/account/email", s(handlers.Account.ChangeEmail, mw.RequireAuth))

	// User administration
	r.POST("/api/v1/users/{username}/suspend", s(handlers.Account.Suspend, mw.Admin))
	r.POST("/api/v1/users/{username}/unsuspend", s(handlers.Account.Unsuspend, mw.Admin))
	r.PUT("/api/v1/users/{username}/role", s(handlers.Account.ChangeRole, mw.Staff))

	// Products
	r.GET("/api/v1/products", s(handlers.Product.List))
	r.GET("/api/v1/products/{id}", s(handlers.Product.Get))
	r.POST("/api/v1/products", s(handlers.Product.Create, mw.Staff))
	r.PUT("/api/v1/products/{id}", s(handlers.Product.Update, mw.Staff))
	r.DELETE("/api/v1/products/{id}", s(handlers.Product.Delete, mw.Staff))

	return r
}
