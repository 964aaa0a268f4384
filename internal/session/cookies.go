package session

import (
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/catalog/pkg/sessionid"
)

// Slot names one of the two session cookies. A browser holds at most one of
// them once a response has been committed.
type Slot string

const (
	SlotAuth  Slot = "auth_session"
	SlotGuest Slot = "guest_session"
)

// CookieOptions carries the deployment-specific cookie attributes. HttpOnly,
// SameSite=Strict and Path=/ are always set.
type CookieOptions struct {
	Secure bool
	Domain string
}

// Correlator maps session identifiers to and from request/response cookies.
type Correlator struct {
	secure bool
	domain string
}

func NewCorrelator(opts CookieOptions) *Correlator {
	return &Correlator{secure: opts.Secure, domain: opts.Domain}
}

// Extract returns the candidate identifier, preferring the auth slot.
func (c *Correlator) Extract(rc *fasthttp.RequestCtx) (string, bool) {
	if v, ok := c.Value(rc, SlotAuth); ok {
		return v, true
	}
	return c.Value(rc, SlotGuest)
}

// Value returns the raw value of one slot.
func (c *Correlator) Value(rc *fasthttp.RequestCtx, slot Slot) (string, bool) {
	raw := rc.Request.Header.Cookie(string(slot))
	if len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}

// Attach sets the slot to id for ttl.
func (c *Correlator) Attach(rc *fasthttp.RequestCtx, slot Slot, id sessionid.ID, ttl time.Duration) {
	cookie := c.cookie(slot)
	defer fasthttp.ReleaseCookie(cookie)

	cookie.SetValue(id.String())
	cookie.SetMaxAge(int(ttl / time.Second))
	cookie.SetExpire(time.Now().Add(ttl))
	rc.Response.Header.SetCookie(cookie)
}

// Clear instructs the client to drop the slot.
func (c *Correlator) Clear(rc *fasthttp.RequestCtx, slot Slot) {
	cookie := c.cookie(slot)
	defer fasthttp.ReleaseCookie(cookie)

	cookie.SetValue("")
	cookie.SetExpire(fasthttp.CookieExpireDelete)
	rc.Response.Header.SetCookie(cookie)
}

func (c *Correlator) cookie(slot Slot) *fasthttp.Cookie {
	cookie := fasthttp.AcquireCookie()
	cookie.SetKey(string(slot))
	cookie.SetPath("/")
	cookie.SetHTTPOnly(true)
	cookie.SetSameSite(fasthttp.CookieSameSiteStrictMode)
	cookie.SetSecure(c.secure)
	if c.domain != "" {
		cookie.SetDomain(c.domain)
	}
	return cookie
}
