package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/catalog/api/transport"
	"github.com/fastygo/catalog/internal/session"
	"github.com/fastygo/catalog/pkg/httpcontext"
	authUC "github.com/fastygo/catalog/usecase/auth"
)

type AuthHandler struct {
	baseHandler
	uc       *authUC.UseCase
	sessions *session.Manager
}

func NewAuthHandler(uc *authUC.UseCase, sessions *session.Manager, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		sessions:    sessions,
	}
}

// @Summary Register a client account and sign the session in
// @Tags auth
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.RegisterRequest
	if err := decode(ctx, &req); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}

	user, err := h.uc.Register(stdCtx, req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	if err := signIn(stdCtx, ctx, h.sessions, user.ID); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, user)
}

// @Summary Log in with username or email
// @Tags auth
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.LoginRequest
	if err := decode(ctx, &req); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}

	user, err := h.uc.Authenticate(stdCtx, req.Login(), req.Password)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	if err := signIn(stdCtx, ctx, h.sessions, user.ID); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary End the authenticated session
// @Tags auth
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sess, err := currentSession(ctx)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	if err := h.sessions.Destroy(stdCtx, sess); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}
