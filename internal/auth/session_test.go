package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tunishield/internal/auth"
	"tunishield/internal/auth/authtest"
)

func newManager(store auth.SessionStore, clock *authtest.Clock, secure bool) *auth.SessionManager {
	return auth.NewSessionManager(store, zap.NewNop(), nil, auth.SessionOptions{
		Secret:       "test-secret",
		TTL:          7 * 24 * time.Hour,
		SecureCookie: secure,
		Now:          clock.Now,
	})
}

func TestSessionIssueAndValidate(t *testing.T) {
	store := authtest.NewStore()
	clock := authtest.NewClock(time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC))
	m := newManager(store, clock, true)

	token, expires, err := m.Issue(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(7*24*time.Hour), expires)
	assert.Equal(t, 1, store.SessionCount())

	userID, ok := m.Validate(context.Background(), token)
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["userId"])
	assert.EqualValues(t, clock.Now().Unix(), claims["iat"])
	assert.EqualValues(t, expires.Unix(), claims["exp"])
}

func TestSessionTokensAreDistinct(t *testing.T) {
	store := authtest.NewStore()
	m := newManager(store, authtest.NewClock(time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)), true)

	a, _, err := m.Issue(context.Background(), "user-1")
	require.NoError(t, err)
	b, _, err := m.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, store.SessionCount())
}

func TestSessionValidateRejects(t *testing.T) {
	store := authtest.NewStore()
	clock := authtest.NewClock(time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC))
	m := newManager(store, clock, true)

	token, _, err := m.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	now := clock.Now()
	forge := func(method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	validClaims := jwt.MapClaims{"userId": "user-1", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := map[string]string{
		"empty":           "",
		"malformed":       "not.a.token",
		"tampered":        tampered,
		"wrong secret":    forge(jwt.SigningMethodHS256, []byte("other-secret"), validClaims),
		"alg none":        forge(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims),
		"hs512":           forge(jwt.SigningMethodHS512, []byte("test-secret"), validClaims),
		"no mirror":       forge(jwt.SigningMethodHS256, []byte("test-secret"), validClaims),
		"missing expiry":  forge(jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{"userId": "user-1"}),
		"missing user id": forge(jwt.SigningMethodHS256, []byte("test-secret"), jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}),
	}

	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok := m.Validate(context.Background(), tok)
			assert.False(t, ok)
		})
	}
}

func TestSessionValidateExpired(t *testing.T) {
	store := authtest.NewStore()
	clock := authtest.NewClock(time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC))
	m := newManager(store, clock, true)

	token, _, err := m.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	clock.Advance(7*24*time.Hour - time.Second)
	_, ok := m.Validate(context.Background(), token)
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = m.Validate(context.Background(), token)
	assert.False(t, ok)
}

func TestSessionValidateStoreError(t *testing.T) {
	store := authtest.NewStore()
	clock := authtest.NewClock(time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC))
	m := newManager(store, clock, true)

	token, _, err := m.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	store.FailNext = errors.New("connection refused")
	_, ok := m.Validate(context.Background(), token)
	assert.False(t, ok)
}

func TestSessionRevoke(t *testing.T) {
	store := authtest.NewStore()
	m := newManager(store, authtest.NewClock(time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)), true)

	token, _, err := m.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	require.NoError(t, m.Revoke(context.Background(), token))
	_, ok := m.Validate(context.Background(), token)
	assert.False(t, ok)

	assert.NoError(t, m.Revoke(context.Background(), ""))
	assert.NoError(t, m.Revoke(context.Background(), token))
}

func TestSessionCookies(t *testing.T) {
	clock := authtest.NewClock(time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC))

	t.Run("secure outside development", func(t *testing.T) {
		m := newManager(authtest.NewStore(), clock, true)
		rec := httptest.NewRecorder()
		m.SetCookie(rec, "tok", clock.Now().Add(7*24*time.Hour))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		c := cookies[0]
		assert.Equal(t, auth.SessionCookieName, c.Name)
		assert.Equal(t, "tok", c.Value)
		assert.Equal(t, "/", c.Path)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, 7*24*60*60, c.MaxAge)
	})

	t.Run("insecure in development", func(t *testing.T) {
		m := newManager(authtest.NewStore(), clock, false)
		rec := httptest.NewRecorder()
		m.SetCookie(rec, "tok", clock.Now().Add(time.Hour))
		assert.False(t, rec.Result().Cookies()[0].Secure)
	})

	t.Run("clear", func(t *testing.T) {
		m := newManager(authtest.NewStore(), clock, true)
		rec := httptest.NewRecorder()
		m.ClearCookie(rec)
		c := rec.Result().Cookies()[0]
		assert.Equal(t, auth.SessionCookieName, c.Name)
		assert.Empty(t, c.Value)
		assert.Less(t, c.MaxAge, 0)
	})
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	assert.Empty(t, auth.TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", auth.TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "cookie-token"})
	assert.Equal(t, "cookie-token", auth.TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Empty(t, auth.TokenFromRequest(r))
}
