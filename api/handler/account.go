package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/catalog/api/transport"
	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/internal/session"
	"github.com/fastygo/catalog/pkg/httpcontext"
	accountUC "github.com/fastygo/catalog/usecase/account"
)

type AccountHandler struct {
	baseHandler
	uc       *accountUC.UseCase
	sessions *session.Manager
}

func NewAccountHandler(uc *accountUC.UseCase, sessions *session.Manager, adapter *httpcontext.Adapter, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		sessions:    sessions,
	}
}

// @Summary Current account
// @Tags account
// @Router /api/v1/account [get]
func (h *AccountHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	userID, err := currentUserID(ctx)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	user, err := h.uc.GetProfile(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary Activate a pending account
// @Tags account
// @Router /api/v1/account/activate [post]
func (h *AccountHandler) Activate(ctx *fasthttp.RequestCtx) {
	h.withUser(ctx, func(stdCtx context.Context, userID string) (*domain.User, error) {
		return h.uc.Activate(stdCtx, userID)
	})
}

// @Summary Delete the current account and end its session
// @Tags account
// @Router /api/v1/account [delete]
func (h *AccountHandler) Delete(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sess, err := currentSession(ctx)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	if err := h.uc.Delete(stdCtx, sess.OwnerID()); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	if err := h.sessions.Destroy(stdCtx, sess); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Restore a soft-deleted client account
// @Tags account
// @Router /api/v1/account/restore [post]
func (h *AccountHandler) Restore(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.LoginRequest
	if err := decode(ctx, &req); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	user, err := h.uc.Restore(stdCtx, req.Login(), req.Password)
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

// @Summary Change password
// @Tags account
// @Router /api/v1/account/password [put]
func (h *AccountHandler) ChangePassword(ctx *fasthttp.RequestCtx) {
	var req transport.ChangePasswordRequest
	h.withBody(ctx, &req, func(stdCtx context.Context, userID string) (*domain.User, error) {
		return h.uc.ChangePassword(stdCtx, userID, req.OldPassword, req.NewPassword)
	})
}

// @Summary Change username
// @Tags account
// @Router /api/v1/account/username [put]
func (h *AccountHandler) ChangeUsername(ctx *fasthttp.RequestCtx) {
	var req transport.ChangeUsernameRequest
	h.withBody(ctx, &req, func(stdCtx context.Context, userID string) (*domain.User, error) {
		return h.uc.ChangeUsername(stdCtx, userID, req.Username)
	})
}

// @Summary Change email
// @Tags account
// @Router /api/v1/account/email [put]
func (h *AccountHandler) ChangeEmail(ctx *fasthttp.RequestCtx) {
	var req transport.ChangeEmailRequest
	h.withBody(ctx, &req, func(stdCtx context.Context, userID string) (*domain.User, error) {
		return h.uc.ChangeEmail(stdCtx, userID, req.Email)
	})
}

// @Summary Suspend an account (admin)
// @Tags users
// @Router /api/v1/users/{username}/suspend [post]
func (h *AccountHandler) Suspend(ctx *fasthttp.RequestCtx) {
	username := pathParam(ctx, "username")
	h.withUser(ctx, func(stdCtx context.Context, userID string) (*domain.User, error) {
		return h.uc.Suspend(stdCtx, userID, username)
	})
}

// @Summary Lift a suspension (admin)
// @Tags users
// @Router /api/v1/users/{username}/unsuspend [post]
func (h *AccountHandler) Unsuspend(ctx *fasthttp.RequestCtx) {
	username := pathParam(ctx, "username")
	h.withUser(ctx, func(stdCtx context.Context, userID string) (*domain.User, error) {
		return h.uc.Unsuspend(stdCtx, userID, username)
	})
}

// @Summary Change an account's role (staff)
// @Tags users
// @Router /api/v1/users/{username}/role [put]
func (h *AccountHandler) ChangeRole(ctx *fasthttp.RequestCtx) {
	username := pathParam(ctx, "username")
	var req transport.ChangeRoleRequest
	h.withBody(ctx, &req, func(stdCtx context.Context, userID string) (*domain.User, error) {
		return h.uc.ChangeRole(stdCtx, userID, username, domain.Role(req.Role))
	})
}

// withUser runs fn for the authenticated caller and renders the account it returns.
func (h *AccountHandler) withUser(ctx *fasthttp.RequestCtx, fn func(stdCtx context.Context, userID string) (*domain.User, error)) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	userID, err := currentUserID(ctx)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	user, err := fn(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

func (h *AccountHandler) withBody(ctx *fasthttp.RequestCtx, req request, fn func(stdCtx context.Context, userID string) (*domain.User, error)) {
	if err := decode(ctx, req); err != nil {
		stdCtx, cancel := h.requestContext(ctx)
		defer cancel()
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.withUser(ctx, fn)
}
