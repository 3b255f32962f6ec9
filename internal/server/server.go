package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tunishield/internal/auth"
	"tunishield/internal/community"
	"tunishield/internal/config"
	"tunishield/internal/quiz"
)

const serviceName = "tunishield-api"

// AuditTrail records authentication events and reads them back.
type AuditTrail interface {
	auth.Auditor
	Recent(ctx context.Context, userID string, n int64) ([]auth.AuditEvent, error)
}

type Deps struct {
	Auth      *auth.Service
	Google    *auth.GoogleProvider
	States    auth.StateStore
	Audit     AuditTrail
	Quiz      *quiz.Service
	Community *community.Service
	Registry  *prometheus.Registry
	Logger    *zap.Logger
}

type Server struct {
	Auth      *auth.Service
	Sessions  *auth.SessionManager
	Google    *auth.GoogleProvider
	States    auth.StateStore
	Audit     AuditTrail
	Quiz      *quiz.Service
	Community *community.Service
	Registry  *prometheus.Registry
	Logger    *zap.Logger
	Config    config.Config

	trustedProxies []net.IPNet
	httpMetrics    *httpMetrics
}

func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Server{
		Auth:           deps.Auth,
		Sessions:       deps.Auth.Sessions(),
		Google:         deps.Google,
		States:         deps.States,
		Audit:          deps.Audit,
		Quiz:           deps.Quiz,
		Community:      deps.Community,
		Registry:       registry,
		Logger:         logger,
		Config:         cfg,
		trustedProxies: parseProxyCIDRs(cfg.TrustedProxies),
		httpMetrics:    newHTTPMetrics(registry),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware(s.Logger))
	r.Use(s.httpMetrics.middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.Config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Accept-Language"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(secureHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Endpoint not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		s.route(r, http.MethodPost, "/api/auth/send-otp", s.handleSendCode)
		s.route(r, http.MethodPost, "/api/auth/verify-otp", s.handleVerifyCode)
		s.route(r, http.MethodGet, "/api/auth/me", s.handleMe)
		s.route(r, http.MethodPatch, "/api/auth/profile", s.handleUpdateProfile)
		s.route(r, http.MethodPost, "/api/auth/logout", s.handleLogout)
		s.route(r, http.MethodGet, "/api/auth/activity", s.handleActivity)
		s.route(r, http.MethodGet, "/api/auth/google/start", s.handleGoogleStart)
		s.route(r, http.MethodGet, "/api/auth/google/callback", s.handleGoogleCallback)

		s.route(r, http.MethodGet, "/api/quiz/attempt", s.handleQuizStatus)
		s.route(r, http.MethodPost, "/api/quiz/attempt", s.handleQuizAttempt)

		s.route(r, http.MethodGet, "/api/community/posts", s.handleListPosts)
		s.route(r, http.MethodPost, "/api/community/posts", s.handleCreatePost)
		s.route(r, http.MethodPost, "/api/community/posts/{id}/like", s.handleToggleLike)
		s.route(r, http.MethodGet, "/api/community/posts/{id}/comment", s.handleListComments)
		s.route(r, http.MethodPost, "/api/community/posts/{id}/comment", s.handleAddComment)
	})

	return r
}

// route mounts a handler behind the session and role checks from the access
// table.
func (s *Server) route(r chi.Router, method, pattern string, h http.HandlerFunc) {
	roles := accessRoles(method, pattern)
	if isPublicAccess(roles) {
		r.Method(method, pattern, h)
		return
	}
	r.With(s.requireSession, s.requireRoles(roles)).Method(method, pattern, h)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
}
