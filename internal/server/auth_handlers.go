package server

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"tunishield/internal/auth"
	"tunishield/internal/errutil"
	"tunishield/internal/i18n"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

type userView struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
	Role      string  `json:"role"`
}

func newUserView(u *auth.User) *userView {
	if u == nil {
		return nil
	}
	return &userView{ID: u.ID, Email: u.Email, Name: u.Name, AvatarURL: u.AvatarURL, Role: u.Role}
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var in auth.RequestCodeInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.Locale = i18n.LocaleFromRequest(r)
	if err := in.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.Auth.RequestCode(r.Context(), in); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.audit(r, auth.AuditEvent{
		EventType: auth.EventCodeRequested,
		Email:     in.Email,
		Meta:      map[string]any{"type": in.Type},
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Code sent"})
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var in auth.VerifyCodeInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.Auth.VerifyCode(r.Context(), in)
	if err != nil {
		if errutil.HTTPStatus(err) < http.StatusInternalServerError {
			s.audit(r, auth.AuditEvent{
				EventType: auth.EventLoginFailed,
				Email:     in.Email,
				Meta:      map[string]any{"reason": errutil.Code(err)},
			})
		}
		s.writeError(w, r, err)
		return
	}

	s.Sessions.SetCookie(w, result.Token, result.ExpiresAt)
	s.audit(r, auth.AuditEvent{
		EventType: auth.EventLogin,
		UserID:    result.User.ID,
		Meta:      map[string]any{"method": "email_code"},
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": newUserView(result.User)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _, err := s.authenticate(r)
	if err != nil {
		if errutil.Is(err, errutil.CodeUnauthenticated) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"user": nil})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserView(user)})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	current := userFromContext(r.Context())

	var in auth.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.Auth.UpdateProfile(r.Context(), current.ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.audit(r, auth.AuditEvent{EventType: auth.EventProfileUpdate, UserID: user.ID})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": newUserView(user)})
}

// handleLogout always clears the cookie. A valid token also has its session
// record revoked.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token != "" {
		userID, _ := s.Sessions.Validate(r.Context(), token)
		if err := s.Auth.Logout(r.Context(), token); err != nil {
			errutil.LogError(s.Logger, "revoke session failed", err)
		} else if userID != "" {
			s.audit(r, auth.AuditEvent{EventType: auth.EventLogout, UserID: userID})
		}
	}

	s.Sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxActivityLimit)
		}
	}

	events := []auth.AuditEvent{}
	if s.Audit != nil {
		recent, err := s.Audit.Recent(r.Context(), user.ID, int64(limit))
		if err != nil {
			s.writeError(w, r, errutil.Internal(err, "read activity"))
			return
		}
		events = append(events, recent...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// audit records an event on a best-effort basis.
func (s *Server) audit(r *http.Request, e auth.AuditEvent) {
	if s.Audit == nil {
		return
	}
	e.IP = clientIP(r, s.trustedProxies)
	e.UserAgent = r.UserAgent()
	e.Timestamp = time.Now().UTC()
	if err := s.Audit.Log(r.Context(), e); err != nil {
		s.Logger.Warn("audit log failed", zap.String("event", e.EventType), zap.Error(err))
	}
}
