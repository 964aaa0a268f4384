// Package session resolves, mutates and commits the guest or authenticated
// session bound to each request.
//
// A request walks Unresolved → Resolving → Resolved → Finalizing → Committed.
// Resolve picks the record named by the request cookies or mints a guest one,
// handlers work on the returned Handle, and Finalize writes the changes back
// and emits the cookie headers exactly once.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/catalog/domain"
	appLogger "github.com/fastygo/catalog/pkg/logger"
	"github.com/fastygo/catalog/pkg/sessionid"
	"github.com/fastygo/catalog/repository"
)

const (
	DefaultGuestTTL = 30 * time.Minute
	DefaultAuthTTL  = 60 * time.Minute
)

// Options carries the namespace lifetimes used for cookie expiry. They must
// match the TTLs the repositories were built with.
type Options struct {
	GuestTTL time.Duration
	AuthTTL  time.Duration
}

type Manager struct {
	guests  repository.SessionRepository
	auths   repository.SessionRepository
	cookies *Correlator
	ids     *sessionid.Generator
	opts    Options
	logger  *zap.Logger
}

func NewManager(
	guests repository.SessionRepository,
	auths repository.SessionRepository,
	cookies *Correlator,
	ids *sessionid.Generator,
	opts Options,
	logger *zap.Logger,
) *Manager {
	if opts.GuestTTL <= 0 {
		opts.GuestTTL = DefaultGuestTTL
	}
	if opts.AuthTTL <= 0 {
		opts.AuthTTL = DefaultAuthTTL
	}
	if cookies == nil {
		cookies = NewCorrelator(CookieOptions{})
	}
	if ids == nil {
		ids = sessionid.NewGenerator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		guests:  guests,
		auths:   auths,
		cookies: cookies,
		ids:     ids,
		opts:    opts,
		logger:  logger,
	}
}

// Resolve binds the request to a session. Malformed or unknown identifiers
// fall through to a fresh guest session; only store failures are returned.
func (m *Manager) Resolve(ctx context.Context, rc *fasthttp.RequestCtx) (*Handle, error) {
	h := newHandle()

	authRaw, hasAuth := m.cookies.Value(rc, SlotAuth)
	guestRaw, hasGuest := m.cookies.Value(rc, SlotGuest)

	if hasAuth {
		if id, err := sessionid.Parse(authRaw); err == nil {
			s, err := m.auths.Get(ctx, id)
			switch {
			case err == nil:
				// a leftover guest cookie next to a live auth one is dropped
				h.clearGuest = hasGuest
				h.resolve(s, false)
				return h, nil
			case !errors.Is(err, domain.ErrSessionNotFound):
				return nil, err
			}
		}
		h.clearAuth = true
	}

	candidate, hasCandidate := m.cookies.Extract(rc)
	if hasGuest {
		candidate = guestRaw
	}
	if hasCandidate {
		if id, err := sessionid.Parse(candidate); err == nil {
			s, err := m.guests.Get(ctx, id)
			switch {
			case err == nil:
				// found through the auth slot: move it to the guest slot
				h.attachGuest = !hasGuest
				h.resolve(s, false)
				return h, nil
			case !errors.Is(err, domain.ErrSessionNotFound):
				return nil, err
			}
		}
	}

	s := domain.NewSession(m.ids.New(), domain.SessionGuest, "")
	if _, err := m.guests.Create(ctx, s); err != nil {
		return nil, err
	}
	h.resolve(s, true)
	appLogger.WithSession(appLogger.WithRequestID(ctx, m.logger), s.ID.String(), string(s.Kind)).
		Debug("guest session created")
	return h, nil
}

// Finalize writes pending changes back and emits the cookie headers. Only the
// first call for a handle does anything. A write against an expired record
// returns domain.ErrStaleSession and clears that record's cookie.
func (m *Manager) Finalize(ctx context.Context, rc *fasthttp.RequestCtx, h *Handle) error {
	if h == nil || !h.beginFinalize() {
		return nil
	}
	defer h.commit()

	plan := h.cookiePlan()
	var err error
	if !plan.destroyed && plan.kind != "" {
		err = m.flush(ctx, h)
	}
	stale := errors.Is(err, domain.ErrStaleSession)

	if plan.clearAuth {
		m.cookies.Clear(rc, SlotAuth)
	}
	if plan.clearGuest {
		m.cookies.Clear(rc, SlotGuest)
	}

	switch {
	case plan.kind == "":
	case plan.destroyed, stale:
		m.cookies.Clear(rc, slotFor(plan.kind))
	case plan.kind == domain.SessionGuest && (plan.created || plan.attachGuest):
		m.cookies.Attach(rc, SlotGuest, plan.id, m.opts.GuestTTL)
	case plan.kind == domain.SessionAuth && plan.established:
		m.cookies.Attach(rc, SlotAuth, plan.id, m.opts.AuthTTL)
	}

	if err != nil {
		appLogger.WithSession(appLogger.WithRequestID(ctx, m.logger), plan.id.String(), string(plan.kind)).
			Warn("session write-back failed", zap.Error(err))
	}
	return err
}

// Authenticate promotes the handle to an authenticated session owned by
// ownerID. Pending guest writes are flushed and merged into the new record;
// an already authenticated handle gets a fresh identifier carrying its payload.
func (m *Manager) Authenticate(ctx context.Context, h *Handle, ownerID string) error {
	if ownerID == "" {
		return domain.ErrInvalidPayload
	}
	if h == nil || !h.isResolved() {
		return ErrNotResolved
	}

	prev, _ := h.snapshot()
	next := domain.NewSession(m.ids.New(), domain.SessionAuth, ownerID)
	log := appLogger.WithRequestID(ctx, m.logger)

	switch prev.Kind {
	case domain.SessionGuest:
		if err := m.flush(ctx, h); err != nil {
			if !errors.Is(err, domain.ErrStaleSession) {
				return err
			}
			// the guest record expired mid-request; keep what the handle saw
			next.Payload = prev.Payload
		}
	case domain.SessionAuth:
		next.Payload = prev.Payload
		if err := m.auths.Delete(ctx, prev.ID); err != nil {
			return err
		}
	}

	if _, err := m.auths.Create(ctx, next); err != nil {
		return err
	}

	if prev.Kind == domain.SessionGuest {
		merged, err := m.Merge(ctx, prev.ID, next.ID)
		if err != nil {
			if delErr := m.auths.Delete(ctx, next.ID); delErr != nil {
				log.Warn("failed to drop unmerged auth session", zap.Error(delErr))
			}
			return err
		}
		next = merged
	}

	h.promote(next)
	appLogger.WithSession(log, next.ID.String(), string(next.Kind)).
		Info("session authenticated", zap.String("user_id", ownerID))
	return nil
}

// Merge unions the guest payload into the auth record, auth values winning on
// conflict, then deletes the guest record. A missing guest record is a no-op.
func (m *Manager) Merge(ctx context.Context, guestID, authID sessionid.ID) (*domain.Session, error) {
	auth, err := m.auths.Get(ctx, authID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrStaleSession
		}
		return nil, err
	}

	guest, err := m.guests.Get(ctx, guestID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return auth, nil
	}
	if err != nil {
		return nil, err
	}

	for k, v := range guest.Payload {
		if _, taken := auth.Payload[k]; !taken {
			auth.Payload[k] = v
		}
	}
	if err := m.auths.Update(ctx, auth); err != nil {
		return nil, err
	}
	if err := m.guests.Delete(ctx, guestID); err != nil {
		return nil, err
	}
	return auth, nil
}

// Destroy deletes the handle's record; Finalize then clears its cookie.
func (m *Manager) Destroy(ctx context.Context, h *Handle) error {
	if h == nil || !h.isResolved() {
		return ErrNotResolved
	}
	s, _ := h.snapshot()
	if err := m.repoFor(s.Kind).Delete(ctx, s.ID); err != nil {
		return err
	}
	h.markDestroyed()
	return nil
}

// flush persists the handle's dirty keys: guest records receive only those
// keys, auth records are replaced whole.
func (m *Manager) flush(ctx context.Context, h *Handle) error {
	s, changed := h.snapshot()
	if s == nil || len(changed) == 0 {
		return nil
	}

	var err error
	switch s.Kind {
	case domain.SessionGuest:
		err = m.guests.Update(ctx, &domain.Session{ID: s.ID, Kind: s.Kind, Payload: changed, CreatedAt: s.CreatedAt})
	default:
		err = m.auths.Update(ctx, s)
	}
	if err != nil {
		return err
	}
	h.markClean()
	return nil
}

func (m *Manager) repoFor(kind domain.SessionKind) repository.SessionRepository {
	if kind == domain.SessionAuth {
		return m.auths
	}
	return m.guests
}

func slotFor(kind domain.SessionKind) Slot {
	if kind == domain.SessionAuth {
		return SlotAuth
	}
	return SlotGuest
}
