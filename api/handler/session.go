package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/catalog/api/transport"
	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/pkg/httpcontext"
)

type SessionHandler struct {
	baseHandler
}

func NewSessionHandler(adapter *httpcontext.Adapter, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{baseHandler: newBaseHandler(adapter, logger)}
}

type sessionView struct {
	ID            string                 `json:"id"`
	Kind          domain.SessionKind     `json:"kind"`
	Authenticated bool                   `json:"authenticated"`
	Values        map[string]interface{} `json:"values"`
}

// @Summary Read the current session payload
// @Tags session
// @Router /api/v1/session [get]
func (h *SessionHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sess, err := currentSession(ctx)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, sessionView{
		ID:            sess.ID().String(),
		Kind:          sess.Kind(),
		Authenticated: sess.IsAuthenticated(),
		Values:        sess.Values(),
	})
}

// @Summary Merge keys into the current session payload
// @Tags session
// @Router /api/v1/session [put]
func (h *SessionHandler) Update(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sess, err := currentSession(ctx)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	var req transport.SessionUpdateRequest
	if err := decode(ctx, &req); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	for key, value := range req.Values {
		if err := sess.Set(key, value); err != nil {
			h.respondError(ctx, stdCtx, err)
			return
		}
	}
	h.respondSuccess(ctx, http.StatusOK, sessionView{
		ID:            sess.ID().String(),
		Kind:          sess.Kind(),
		Authenticated: sess.IsAuthenticated(),
		Values:        sess.Values(),
	})
}
