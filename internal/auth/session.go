package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tunishield/internal/errutil"
)

type sessionClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type SessionOptions struct {
	Secret       string
	TTL          time.Duration
	SecureCookie bool
	Now          func() time.Time
}

// SessionManager issues HS256 session tokens and keeps a hashed mirror of
// each one in the store. A token is only honoured while its mirror exists,
// which is what makes logout effective before expiry.
type SessionManager struct {
	store   SessionStore
	secret  []byte
	ttl     time.Duration
	secure  bool
	now     func() time.Time
	logger  *zap.Logger
	metrics *Metrics
}

func NewSessionManager(store SessionStore, logger *zap.Logger, metrics *Metrics, opts SessionOptions) *SessionManager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionManager{
		store:   store,
		secret:  []byte(opts.Secret),
		ttl:     ttl,
		secure:  opts.SecureCookie,
		now:     now,
		logger:  logger,
		metrics: metrics,
	}
}

func (m *SessionManager) Issue(ctx context.Context, userID string) (string, time.Time, error) {
	now := m.now().Truncate(time.Second)
	expires := now.Add(m.ttl)
	id := uuid.NewString()

	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, errutil.Internal(err, "sign session token")
	}

	err = m.store.CreateSession(ctx, Session{
		ID:        id,
		UserID:    userID,
		TokenHash: HashString(token),
		ExpiresAt: expires,
		CreatedAt: now,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	m.metrics.session("issued")
	return token, expires, nil
}

// Validate returns the user id bound to token. Any failure, including a
// store error, yields ok == false.
func (m *SessionManager) Validate(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid || claims.UserID == "" {
		m.metrics.session("rejected")
		return "", false
	}

	sess, err := m.store.FindSessionByTokenHash(ctx, HashString(token))
	if err != nil {
		m.logger.Warn("session lookup failed", zap.Error(err))
		return "", false
	}
	if sess == nil || sess.UserID != claims.UserID || m.now().After(sess.ExpiresAt) {
		m.metrics.session("rejected")
		return "", false
	}

	return claims.UserID, true
}

// Revoke removes the persisted mirror of token. Unknown tokens are ignored.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.DeleteSessionByTokenHash(ctx, HashString(token)); err != nil {
		return err
	}
	m.metrics.session("revoked")
	return nil
}

func (m *SessionManager) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	setSessionCookie(w, token, expires, expires.Sub(m.now()), m.secure)
}

func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	clearSessionCookie(w, m.secure)
}

func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpiredSessions(ctx, m.now())
}
