package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

type fakeAuth struct {
	users map[string]domain.User
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (domain.User, error) {
	u, ok := f.users[token]
	if !ok {
		return domain.User{}, domain.ErrUnauthorized
	}
	return u, nil
}

func TestSessionAnonymousPassthrough(t *testing.T) {
	mw := Session(&fakeAuth{})

	var called bool
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := UserFrom(r.Context())
		assert.False(t, ok, "no user on anonymous request")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/polls", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionResolvesUser(t *testing.T) {
	auth := &fakeAuth{users: map[string]domain.User{
		"tok-1": {ID: "u-1", Username: "satoshi"},
	}}
	mw := Session(auth)

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		require.True(t, ok)
		assert.Equal(t, "u-1", user.ID)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/polls", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionRejectsBadToken(t *testing.T) {
	mw := Session(&fakeAuth{})

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run on a bad token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/polls", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid or expired session"}`, rec.Body.String())
}

func TestRequireUser(t *testing.T) {
	h := RequireUser(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/trades", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/trades", nil)
	ctx := context.WithValue(req.Context(), userKey, domain.User{ID: "u-1"})
	rec = httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/polls", nil)
	ctx := context.WithValue(req.Context(), userKey, domain.User{ID: "u-1"})
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"admin access required"}`, rec.Body.String())

	ctx = context.WithValue(req.Context(), userKey, domain.User{ID: "u-2", IsAdmin: true})
	rec = httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestExtractToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, extractToken(req))

	req.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", extractToken(req))

	req.Header.Set("Authorization", "bearer abc123")
	assert.Equal(t, "abc123", extractToken(req), "scheme match is case insensitive")

	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Empty(t, extractToken(req), "only the Bearer scheme is accepted")
}
