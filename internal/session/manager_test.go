package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/pkg/sessionid"
	"github.com/fastygo/catalog/repository"
	redisrepo "github.com/fastygo/catalog/repository/redis"
)

type fixture struct {
	mr      *miniredis.Miniredis
	guests  repository.SessionRepository
	auths   repository.SessionRepository
	manager *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	guests := redisrepo.NewGuestSessionRepository(client, redisrepo.SessionOptions{OpTimeout: 200 * time.Millisecond})
	auths := redisrepo.NewAuthSessionRepository(client, redisrepo.SessionOptions{OpTimeout: 200 * time.Millisecond})
	return &fixture{
		mr:      mr,
		guests:  guests,
		auths:   auths,
		manager: NewManager(guests, auths, NewCorrelator(CookieOptions{}), nil, Options{}, nil),
	}
}

func newRequest(cookies map[Slot]string) *fasthttp.RequestCtx {
	rc := &fasthttp.RequestCtx{}
	for slot, value := range cookies {
		rc.Request.Header.SetCookie(string(slot), value)
	}
	return rc
}

func responseCookies(rc *fasthttp.RequestCtx) map[string]*fasthttp.Cookie {
	out := map[string]*fasthttp.Cookie{}
	rc.Response.Header.VisitAllCookie(func(key, value []byte) {
		c := &fasthttp.Cookie{}
		if err := c.ParseBytes(value); err == nil {
			out[string(key)] = c
		}
	})
	return out
}

func isCleared(c *fasthttp.Cookie) bool {
	return c != nil && len(c.Value()) == 0 && c.Expire().Before(time.Now())
}

// roundTrip runs one request through Resolve, fn and Finalize.
func (f *fixture) roundTrip(t *testing.T, cookies map[Slot]string, fn func(h *Handle)) (*Handle, map[string]*fasthttp.Cookie, error) {
	t.Helper()
	ctx := context.Background()
	rc := newRequest(cookies)

	h, err := f.manager.Resolve(ctx, rc)
	require.NoError(t, err)
	if fn != nil {
		fn(h)
	}
	err = f.manager.Finalize(ctx, rc, h)
	return h, responseCookies(rc), err
}

func TestResolve_NoCookiesCreatesExactlyOneGuest(t *testing.T) {
	f := newFixture(t)

	h, cookies, err := f.roundTrip(t, nil, nil)
	require.NoError(t, err)

	assert.True(t, h.IsNew())
	assert.Equal(t, domain.SessionGuest, h.Kind())
	assert.False(t, h.IsAuthenticated())
	assert.Equal(t, StateCommitted, h.State())

	require.Len(t, cookies, 1)
	guest := cookies[string(SlotGuest)]
	require.NotNil(t, guest)
	assert.Equal(t, h.ID().String(), string(guest.Value()))
	assert.True(t, guest.HTTPOnly())
	assert.Equal(t, fasthttp.CookieSameSiteStrictMode, guest.SameSite())
	assert.False(t, guest.Secure())
	assert.Equal(t, "/", string(guest.Path()))
	assert.Equal(t, int(DefaultGuestTTL/time.Second), guest.MaxAge())

	_, err = f.guests.Get(context.Background(), h.ID())
	assert.NoError(t, err)
	assert.Len(t, f.mr.Keys(), 1)
}

func TestResolve_ExistingGuestIsReused(t *testing.T) {
	f := newFixture(t)
	first, _, err := f.roundTrip(t, nil, func(h *Handle) {
		require.NoError(t, h.Set("locale", "en"))
	})
	require.NoError(t, err)

	second, cookies, err := f.roundTrip(t, map[Slot]string{SlotGuest: first.ID().String()}, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID(), second.ID())
	assert.False(t, second.IsNew())
	assert.Empty(t, cookies, "a known guest needs no Set-Cookie")
	v, ok := second.Get("locale")
	assert.True(t, ok)
	assert.Equal(t, "en", v)
}

func TestResolve_ExpiredCookieYieldsNewGuest(t *testing.T) {
	f := newFixture(t)
	first, _, err := f.roundTrip(t, nil, nil)
	require.NoError(t, err)

	f.mr.FastForward(DefaultGuestTTL + time.Second)

	second, cookies, err := f.roundTrip(t, map[Slot]string{SlotGuest: first.ID().String()}, nil)
	require.NoError(t, err)
	assert.True(t, second.IsNew())
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, second.ID().String(), string(cookies[string(SlotGuest)].Value()))
}

func TestResolve_MalformedIdentifierIsTreatedAsAbsent(t *testing.T) {
	valid := sessionid.New().String()
	for name, raw := range map[string]string{
		"short":     "abc",
		"uppercase": strings.ToUpper(valid),
		"hyphens":   sessionid.New().UUID().String(),
		"garbage":   strings.Repeat("z", 32),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			h, cookies, err := f.roundTrip(t, map[Slot]string{SlotGuest: raw, SlotAuth: raw}, nil)
			require.NoError(t, err)
			assert.True(t, h.IsNew())
			assert.Equal(t, h.ID().String(), string(cookies[string(SlotGuest)].Value()))
			assert.True(t, isCleared(cookies[string(SlotAuth)]))
		})
	}
}

func TestResolve_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.mr.Close()

	_, err := f.manager.Resolve(context.Background(), newRequest(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestResolve_AuthCookieTakesPriority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authID, err := f.auths.Create(ctx, domain.NewSession(sessionid.New(), domain.SessionAuth, "user-1"))
	require.NoError(t, err)
	guestID, err := f.guests.Create(ctx, domain.NewSession(sessionid.New(), domain.SessionGuest, ""))
	require.NoError(t, err)

	h, cookies, err := f.roundTrip(t, map[Slot]string{SlotAuth: authID.String(), SlotGuest: guestID.String()}, nil)
	require.NoError(t, err)

	assert.Equal(t, authID, h.ID())
	assert.True(t, h.IsAuthenticated())
	assert.Equal(t, "user-1", h.OwnerID())
	assert.NotContains(t, cookies, string(SlotAuth))
	assert.True(t, isCleared(cookies[string(SlotGuest)]))
}

func TestResolve_StaleAuthCookieFallsBackToGuest(t *testing.T) {
	f := newFixture(t)
	guestID, err := f.guests.Create(context.Background(), domain.NewSession(sessionid.New(), domain.SessionGuest, ""))
	require.NoError(t, err)

	h, cookies, err := f.roundTrip(t, map[Slot]string{
		SlotAuth:  sessionid.New().String(),
		SlotGuest: guestID.String(),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, guestID, h.ID())
	assert.False(t, h.IsNew())
	assert.True(t, isCleared(cookies[string(SlotAuth)]))
	assert.NotContains(t, cookies, string(SlotGuest))
}

func TestResolve_GuestIdentifierInAuthSlotMovesToGuestSlot(t *testing.T) {
	f := newFixture(t)
	guestID, err := f.guests.Create(context.Background(), domain.NewSession(sessionid.New(), domain.SessionGuest, ""))
	require.NoError(t, err)

	h, cookies, err := f.roundTrip(t, map[Slot]string{SlotAuth: guestID.String()}, nil)
	require.NoError(t, err)

	assert.Equal(t, guestID, h.ID())
	assert.True(t, isCleared(cookies[string(SlotAuth)]))
	assert.Equal(t, guestID.String(), string(cookies[string(SlotGuest)].Value()))
}

func TestFinalize_GuestWritesMergeIntoStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, _, err := f.roundTrip(t, nil, func(h *Handle) {
		require.NoError(t, h.Set("x", 1))
	})
	require.NoError(t, err)

	// a concurrent writer adds a key the next handle never touches
	require.NoError(t, f.guests.Update(ctx, &domain.Session{ID: first.ID(), Payload: map[string]any{"other": true}}))

	_, _, err = f.roundTrip(t, map[Slot]string{SlotGuest: first.ID().String()}, func(h *Handle) {
		require.NoError(t, h.Set("y", 2))
	})
	require.NoError(t, err)

	stored, err := f.guests.Get(ctx, first.ID())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(1), "y": float64(2), "other": true}, stored.Payload)
}

func TestFinalize_RunsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rc := newRequest(nil)

	h, err := f.manager.Resolve(ctx, rc)
	require.NoError(t, err)
	assert.Equal(t, StateResolved, h.State())
	require.NoError(t, h.Set("cart", []any{"sku1"}))

	require.NoError(t, f.manager.Finalize(ctx, rc, h))
	assert.Equal(t, StateCommitted, h.State())

	f.mr.FlushAll()
	rc.Response.Header.DelAllCookies()

	require.NoError(t, f.manager.Finalize(ctx, rc, h))
	assert.Empty(t, responseCookies(rc), "second finalize must not emit cookies")
	assert.Empty(t, f.mr.Keys(), "second finalize must not write")

	assert.ErrorIs(t, h.Set("late", true), ErrNotResolved)
	assert.NoError(t, f.manager.Finalize(ctx, rc, nil))
}

func TestFinalize_ExpiredRecordIsNotResurrected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, _, err := f.roundTrip(t, nil, nil)
	require.NoError(t, err)

	rc := newRequest(map[Slot]string{SlotGuest: first.ID().String()})
	h, err := f.manager.Resolve(ctx, rc)
	require.NoError(t, err)
	require.NoError(t, h.Set("cart", []any{"sku1"}))

	f.mr.FastForward(DefaultGuestTTL + time.Second)

	err = f.manager.Finalize(ctx, rc, h)
	assert.ErrorIs(t, err, domain.ErrStaleSession)
	assert.True(t, isCleared(responseCookies(rc)[string(SlotGuest)]))

	_, err = f.guests.Get(ctx, first.ID())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMerge_AuthValuesWinAndGuestIsDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	guest := domain.NewSession(sessionid.New(), domain.SessionGuest, "")
	guest.Payload["cart"] = []any{"sku1"}
	guest.Payload["locale"] = "de"
	guestID, err := f.guests.Create(ctx, guest)
	require.NoError(t, err)

	auth := domain.NewSession(sessionid.New(), domain.SessionAuth, "user-1")
	auth.Payload["locale"] = "en"
	authID, err := f.auths.Create(ctx, auth)
	require.NoError(t, err)

	merged, err := f.manager.Merge(ctx, guestID, authID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"cart": []any{"sku1"}, "locale": "en"}, merged.Payload)

	stored, err := f.auths.Get(ctx, authID)
	require.NoError(t, err)
	assert.Equal(t, merged.Payload, stored.Payload)

	_, err = f.guests.Get(ctx, guestID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	again, err := f.manager.Merge(ctx, guestID, authID)
	require.NoError(t, err, "merging a consumed guest is a no-op")
	assert.Equal(t, stored.Payload, again.Payload)

	_, err = f.manager.Merge(ctx, guestID, sessionid.New())
	assert.ErrorIs(t, err, domain.ErrStaleSession)
}

func TestAuthenticate_PromotesGuestAndSwapsCookies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest, _, err := f.roundTrip(t, nil, func(h *Handle) {
		require.NoError(t, h.Set("cart", []any{"sku1"}))
	})
	require.NoError(t, err)

	rc := newRequest(map[Slot]string{SlotGuest: guest.ID().String()})
	h, err := f.manager.Resolve(ctx, rc)
	require.NoError(t, err)
	require.NoError(t, h.Set("locale", "en"))

	require.NoError(t, f.manager.Authenticate(ctx, h, "user-1"))
	assert.True(t, h.IsAuthenticated())
	assert.NotEqual(t, guest.ID(), h.ID())
	assert.Equal(t, map[string]any{"cart": []any{"sku1"}, "locale": "en"}, h.Values())

	require.NoError(t, f.manager.Finalize(ctx, rc, h))
	cookies := responseCookies(rc)
	assert.Equal(t, h.ID().String(), string(cookies[string(SlotAuth)].Value()))
	assert.Equal(t, int(DefaultAuthTTL/time.Second), cookies[string(SlotAuth)].MaxAge())
	assert.True(t, isCleared(cookies[string(SlotGuest)]))

	_, err = f.guests.Get(ctx, guest.ID())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	stored, err := f.auths.Get(ctx, h.ID())
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.OwnerID)
	assert.Equal(t, map[string]any{"cart": []any{"sku1"}, "locale": "en"}, stored.Payload)
}

func TestAuthenticate_ReloginRotatesIdentifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := domain.NewSession(sessionid.New(), domain.SessionAuth, "user-1")
	old.Payload["locale"] = "en"
	oldID, err := f.auths.Create(ctx, old)
	require.NoError(t, err)

	rc := newRequest(map[Slot]string{SlotAuth: oldID.String()})
	h, err := f.manager.Resolve(ctx, rc)
	require.NoError(t, err)

	require.NoError(t, f.manager.Authenticate(ctx, h, "user-2"))
	require.NoError(t, f.manager.Finalize(ctx, rc, h))

	assert.NotEqual(t, oldID, h.ID())
	assert.Equal(t, "user-2", h.OwnerID())
	_, err = f.auths.Get(ctx, oldID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	stored, err := f.auths.Get(ctx, h.ID())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"locale": "en"}, stored.Payload)
	assert.Equal(t, h.ID().String(), string(responseCookies(rc)[string(SlotAuth)].Value()))
}

func TestAuthenticate_RequiresResolvedHandle(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.manager.Authenticate(context.Background(), newHandle(), "user-1"), ErrNotResolved)

	h, _, err := f.roundTrip(t, nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, f.manager.Authenticate(context.Background(), h, "user-1"), ErrNotResolved)
	assert.ErrorIs(t, f.manager.Authenticate(context.Background(), h, ""), domain.ErrInvalidPayload)
}

func TestDestroy_ClearsRecordAndCookie(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	authID, err := f.auths.Create(ctx, domain.NewSession(sessionid.New(), domain.SessionAuth, "user-1"))
	require.NoError(t, err)

	h, cookies, err := f.roundTrip(t, map[Slot]string{SlotAuth: authID.String()}, func(h *Handle) {
		require.NoError(t, f.manager.Destroy(ctx, h))
		assert.False(t, h.IsAuthenticated())
		assert.ErrorIs(t, h.Set("k", "v"), ErrNotResolved)
	})
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, h.State())
	assert.True(t, isCleared(cookies[string(SlotAuth)]))

	_, err = f.auths.Get(ctx, authID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestCorrelator_SecureInProduction(t *testing.T) {
	c := NewCorrelator(CookieOptions{Secure: true, Domain: "shop.example"})
	rc := newRequest(nil)
	c.Attach(rc, SlotAuth, sessionid.New(), time.Hour)

	cookie := responseCookies(rc)[string(SlotAuth)]
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure())
	assert.True(t, cookie.HTTPOnly())
	assert.Equal(t, "shop.example", string(cookie.Domain()))

	value, ok := c.Extract(newRequest(map[Slot]string{SlotGuest: "g", SlotAuth: "a"}))
	assert.True(t, ok)
	assert.Equal(t, "a", value)
	_, ok = c.Extract(newRequest(nil))
	assert.False(t, ok)
}

func TestFromRequest(t *testing.T) {
	rc := newRequest(nil)
	_, ok := FromRequest(rc)
	assert.False(t, ok)

	h := newHandle()
	WithHandle(rc, h)
	got, ok := FromRequest(rc)
	assert.True(t, ok)
	assert.Same(t, h, got)
}
