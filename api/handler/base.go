package handler

import (
	"context"
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/catalog/api/transport"
	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/internal/session"
	"github.com/fastygo/catalog/pkg/httpcontext"
	appLogger "github.com/fastygo/catalog/pkg/logger"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	transport.WriteJSON(ctx, status, payload)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, stdCtx context.Context, err error) {
	status, _ := transport.ErrorStatus(err)
	if status >= fasthttp.StatusInternalServerError {
		appLogger.WithRequestID(stdCtx, h.logger).Error("request failed",
			zap.ByteString("path", ctx.Path()),
			zap.Error(err))
	}
	transport.WriteError(ctx, err)
}

// request is implemented by transport payloads.
type request interface {
	Validate() error
}

type normalizer interface {
	Normalize()
}

// decode unmarshals the body into req, normalizes and validates it.
func decode(ctx *fasthttp.RequestCtx, req request) error {
	if err := json.Unmarshal(ctx.PostBody(), req); err != nil {
		return domain.ErrInvalidPayload
	}
	if n, ok := req.(normalizer); ok {
		n.Normalize()
	}
	return req.Validate()
}

// currentSession returns the handle installed by the session middleware.
func currentSession(ctx *fasthttp.RequestCtx) (*session.Handle, error) {
	h, ok := session.FromRequest(ctx)
	if !ok {
		return nil, session.ErrNotResolved
	}
	return h, nil
}

// currentUserID returns the owner of the authenticated session.
func currentUserID(ctx *fasthttp.RequestCtx) (string, error) {
	h, err := currentSession(ctx)
	if err != nil {
		return "", err
	}
	if !h.IsAuthenticated() {
		return "", domain.ErrUnauthorized
	}
	return h.OwnerID(), nil
}

func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	value, _ := ctx.UserValue(name).(string)
	return value
}

// signIn promotes the request's session to an authenticated one for userID.
func signIn(stdCtx context.Context, ctx *fasthttp.RequestCtx, sessions *session.Manager, userID string) error {
	sess, err := currentSession(ctx)
	if err != nil {
		return err
	}
	return sessions.Authenticate(stdCtx, sess, userID)
}
