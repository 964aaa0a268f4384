package session

import "github.com/valyala/fasthttp"

const handleKey = "session.handle"

// WithHandle stores h on the request so downstream handlers can reach it.
func WithHandle(rc *fasthttp.RequestCtx, h *Handle) {
	rc.SetUserValue(handleKey, h)
}

// FromRequest returns the handle resolved for rc by the session middleware.
func FromRequest(rc *fasthttp.RequestCtx) (*Handle, bool) {
	if rc == nil {
		return nil, false
	}
	h, ok := rc.UserValue(handleKey).(*Handle)
	return h, ok && h != nil
}
