package server

import (
	"crypto/rand"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"tunishield/internal/auth"
	"tunishield/internal/errutil"
)

const (
	defaultReturnTo = "/scan"
	loginPath       = "/login"
)

func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	if !s.Google.Enabled() || s.States == nil {
		s.Logger.Warn("google start: provider not configured")
		s.loginErrorRedirect(w, r, "provider_unavailable")
		return
	}

	state := rand.Text()
	returnTo := sanitizeReturnTo(r.URL.Query().Get("returnTo"))
	if err := s.States.Save(r.Context(), state, auth.OAuthState{ReturnTo: returnTo}); err != nil {
		s.Logger.Error("google start: failed to persist state", zap.Error(err))
		s.loginErrorRedirect(w, r, "provider_unavailable")
		return
	}

	http.Redirect(w, r, s.Google.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !s.Google.Enabled() || s.States == nil {
		s.loginErrorRedirect(w, r, "provider_unavailable")
		return
	}
	if reason := q.Get("error"); reason != "" {
		s.Logger.Info("google callback: consent denied", zap.String("reason", reason))
		s.loginErrorRedirect(w, r, "google_denied")
		return
	}
	code := q.Get("code")
	if code == "" {
		s.loginErrorRedirect(w, r, "no_code")
		return
	}

	ctx := r.Context()
	st, err := s.States.Consume(ctx, q.Get("state"))
	if err != nil || st == nil {
		if err != nil {
			s.Logger.Error("google callback: state lookup failed", zap.Error(err))
		}
		s.loginErrorRedirect(w, r, "state_invalid")
		return
	}

	accessToken, err := s.Google.Exchange(ctx, code)
	if err != nil {
		s.Logger.Warn("google callback: token exchange failed", zap.Error(err))
		s.loginErrorRedirect(w, r, "token_failed")
		return
	}
	profile, err := s.Google.FetchProfile(ctx, accessToken)
	if err != nil {
		s.Logger.Warn("google callback: fetch profile failed", zap.Error(err))
		s.loginErrorRedirect(w, r, "callback_failed")
		return
	}
	if strings.TrimSpace(profile.Email) == "" {
		s.loginErrorRedirect(w, r, "no_email")
		return
	}

	result, err := s.Auth.FederatedLogin(ctx, *profile)
	if err != nil {
		errutil.LogError(s.Logger, "google callback: sign-in failed", err)
		s.loginErrorRedirect(w, r, "callback_failed")
		return
	}

	s.Sessions.SetCookie(w, result.Token, result.ExpiresAt)
	s.audit(r, auth.AuditEvent{EventType: auth.EventGoogleLogin, UserID: result.User.ID})

	target := st.ReturnTo
	if target == "" || target == "/" {
		target = defaultReturnTo
	}
	http.Redirect(w, r, s.Config.BaseURL+target, http.StatusFound)
}

func (s *Server) loginErrorRedirect(w http.ResponseWriter, r *http.Request, reason string) {
	target := s.Config.BaseURL + loginPath + "?" + url.Values{"error": {reason}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

// sanitizeReturnTo keeps only same-origin relative paths.
func sanitizeReturnTo(raw string) string {
	if raw == "" || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, `/\`) {
		return "/"
	}
	if strings.HasPrefix(raw, "/") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}

	path := "/" + strings.TrimPrefix(u.Path, "/")
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}
