package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	oauthStatePrefix  = "oauth_state:"
	DefaultOAuthState = 10 * time.Minute
)

type OAuthState struct {
	ReturnTo string `json:"returnTo"`
}

type StateStore interface {
	Save(ctx context.Context, state string, st OAuthState) error
	// Consume returns and deletes the state. It returns (nil, nil) when the
	// state is unknown or has expired.
	Consume(ctx context.Context, state string) (*OAuthState, error)
}

// RedisStateStore keeps OAuth CSRF states in Redis with a TTL.
type RedisStateStore struct {
	Redis *redis.Client
	TTL   time.Duration
}

func (s *RedisStateStore) Save(ctx context.Context, state string, st OAuthState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultOAuthState
	}
	return s.Redis.Set(ctx, oauthStatePrefix+state, raw, ttl).Err()
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (*OAuthState, error) {
	raw, err := s.Redis.GetDel(ctx, oauthStatePrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st OAuthState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
