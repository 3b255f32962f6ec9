package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tunishield/internal/auth"
	"tunishield/internal/errutil"
)

type ctxKey string

const (
	userContextKey  ctxKey = "user"
	tokenContextKey ctxKey = "token"
)

// authenticate resolves the caller from the session token. It returns
// UNAUTHENTICATED for a missing, invalid or revoked token and for a user
// that no longer exists.
func (s *Server) authenticate(r *http.Request) (*auth.User, string, error) {
	token := auth.TokenFromRequest(r)
	userID, ok := s.Sessions.Validate(r.Context(), token)
	if !ok {
		return nil, "", errutil.New(errutil.CodeUnauthenticated, "Unauthorized")
	}
	user, err := s.Auth.CurrentUser(r.Context(), userID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, token, err := s.authenticate(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireRoles(roles []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicAccess(roles) {
				next.ServeHTTP(w, r)
				return
			}

			user := userFromContext(r.Context())
			if user == nil {
				s.writeError(w, r, errutil.New(errutil.CodeUnauthenticated, "Unauthorized"))
				return
			}
			if !roleAllowed(roles, user.Role) {
				writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func userFromContext(ctx context.Context) *auth.User {
	if val, ok := ctx.Value(userContextKey).(*auth.User); ok {
		return val
	}
	return nil
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
