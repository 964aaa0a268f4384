package transport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/catalog/domain"
)

func TestRegisterRequest_NormalizeAndValidate(t *testing.T) {
	req := RegisterRequest{Username: "  alice.b ", Email: " Alice@Example.COM ", Password: "long-enough"}
	req.Normalize()
	require.NoError(t, req.Validate())
	assert.Equal(t, "alice.b", req.Username)
	assert.Equal(t, "alice@example.com", req.Email)

	cases := map[string]RegisterRequest{
		"short username": {Username: "al", Email: "a@b.io", Password: "long-enough"},
		"long username":  {Username: strings.Repeat("a", 33), Email: "a@b.io", Password: "long-enough"},
		"bad characters": {Username: "al ice", Email: "a@b.io", Password: "long-enough"},
		"bad email":      {Username: "alice", Email: "not-an-email", Password: "long-enough"},
		"display name":   {Username: "alice", Email: "Alice <a@b.io>", Password: "long-enough"},
		"short password": {Username: "alice", Email: "a@b.io", Password: "short"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
		})
	}
}

func TestLoginRequest(t *testing.T) {
	req := LoginRequest{Email: " Bob@Example.com ", Password: "x"}
	req.Normalize()
	require.NoError(t, req.Validate())
	assert.Equal(t, "bob@example.com", req.Login())

	req = LoginRequest{Username: "bob", Email: "bob@example.com", Password: "x"}
	assert.Equal(t, "bob", req.Login())

	assert.Error(t, (&LoginRequest{Password: "x"}).Validate())
	assert.Error(t, (&LoginRequest{Username: "bob"}).Validate())
}

func TestParseProductListQuery(t *testing.T) {
	args := &fasthttp.Args{}
	q, err := ParseProductListQuery(args)
	require.NoError(t, err)
	assert.Equal(t, ProductListQuery{Page: 1, PageSize: 20, SortBy: domain.SortByCreatedAt}, q)

	args.Parse("page=3&page_size=10&sort_by=PRICE&descending=true")
	q, err = ParseProductListQuery(args)
	require.NoError(t, err)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, domain.SortByPrice, q.SortBy)
	assert.True(t, q.Descending)
	assert.Equal(t, 20, q.Offset())

	for _, raw := range []string{"page=0", "page_size=500", "sort_by=stock", "descending=maybe"} {
		args.Parse(raw)
		_, err := ParseProductListQuery(args)
		assert.Error(t, err, raw)
	}
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInvalidCredentials, fasthttp.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.ErrLocked, fasthttp.StatusForbidden, "LOCKED"},
		{domain.ErrAccountSuspended, fasthttp.StatusForbidden, "LOCKED"},
		{domain.ErrForbidden, fasthttp.StatusForbidden, "FORBIDDEN"},
		{domain.ErrProductNotFound, fasthttp.StatusNotFound, "NOT_FOUND"},
		{domain.ErrConflict, fasthttp.StatusConflict, "CONFLICT"},
		{domain.ErrStaleSession, fasthttp.StatusConflict, "STALE_SESSION"},
		{domain.ErrStoreUnavailable, fasthttp.StatusServiceUnavailable, "UNAVAILABLE"},
		{assert.AnError, fasthttp.StatusInternalServerError, "INTERNAL"},
	}
	for _, c := range cases {
		status, code := ErrorStatus(c.err)
		assert.Equal(t, c.status, status, c.err.Error())
		assert.Equal(t, c.code, code)
	}
}

func TestWriteError_HidesInternalMessages(t *testing.T) {
	rc := &fasthttp.RequestCtx{}
	WriteError(rc, assert.AnError)
	assert.Equal(t, fasthttp.StatusInternalServerError, rc.Response.StatusCode())
	assert.NotContains(t, string(rc.Response.Body()), assert.AnError.Error())

	rc = &fasthttp.RequestCtx{}
	WriteError(rc, domain.ErrLocked)
	assert.JSONEq(t, `{"status":"error","code":"LOCKED","error":"account temporarily locked"}`, string(rc.Response.Body()))
}
