package server

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunishield/internal/auth"
)

func startGoogle(t *testing.T, e *env, returnTo string) string {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/api/auth/google/start?returnTo="+url.QueryEscape(returnTo), nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", loc.Host)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestGoogleStartStoresState(t *testing.T) {
	e := newEnv(t)
	state := startGoogle(t, e, "/community?tab=new")

	st, err := e.states.Consume(t.Context(), state)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "/community?tab=new", st.ReturnTo)
}

func TestGoogleCallbackSignsIn(t *testing.T) {
	e := newEnv(t)
	state := startGoogle(t, e, "")

	rec := e.do(t, http.MethodGet, "/api/auth/google/callback?code=good-code&state="+state, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, baseURL+"/scan", rec.Header().Get("Location"))

	cookie := sessionCookie(t, rec)
	rec = e.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "nour@example.tn", user["email"])
	assert.Equal(t, "Nour", user["name"])
	assert.Contains(t, e.audit.types(), auth.EventGoogleLogin)

	rec = e.do(t, http.MethodGet, "/api/auth/google/callback?code=good-code&state="+state, nil)
	assert.Equal(t, baseURL+"/login?error=state_invalid", rec.Header().Get("Location"), "state is single use")
}

func TestGoogleCallbackReturnTo(t *testing.T) {
	e := newEnv(t)
	state := startGoogle(t, e, "/quiz")

	rec := e.do(t, http.MethodGet, "/api/auth/google/callback?code=good-code&state="+state, nil)
	assert.Equal(t, baseURL+"/quiz", rec.Header().Get("Location"))
}

func TestGoogleCallbackErrors(t *testing.T) {
	tests := []struct {
		name  string
		query func(state string) string
		want  string
	}{
		{"denied", func(s string) string { return "error=access_denied&state=" + s }, "google_denied"},
		{"no code", func(s string) string { return "state=" + s }, "no_code"},
		{"unknown state", func(string) string { return "code=good-code&state=forged" }, "state_invalid"},
		{"bad grant", func(s string) string { return "code=bad-code&state=" + s }, "token_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			state := startGoogle(t, e, "/")

			rec := e.do(t, http.MethodGet, "/api/auth/google/callback?"+tt.query(state), nil)
			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, baseURL+"/login?error="+tt.want, rec.Header().Get("Location"))
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestGoogleDisabled(t *testing.T) {
	e := newEnv(t, withoutGoogle())

	rec := e.do(t, http.MethodGet, "/api/auth/google/start", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, baseURL+"/login?error=provider_unavailable", rec.Header().Get("Location"))

	rec = e.do(t, http.MethodGet, "/api/auth/google/callback?code=good-code&state=x", nil)
	assert.Equal(t, baseURL+"/login?error=provider_unavailable", rec.Header().Get("Location"))
}

func TestSanitizeReturnTo(t *testing.T) {
	tests := map[string]string{
		"":                         "/",
		"/scan":                    "/scan",
		"/community?tab=new":       "/community?tab=new",
		"//evil.example/x":         "/",
		`/\evil.example`:           "/",
		"https://evil.example/x":   "/",
		"quiz":                     "/quiz",
		"quiz?day=today":           "/quiz?day=today",
		"javascript:alert(1)":      "/",
		"http://tunishield.tn/app": "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeReturnTo(in), in)
	}
}
