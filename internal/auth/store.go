package auth

import (
	"context"
	"time"
)

// Lookups return (nil, nil) when the record does not exist.

type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	// CreateUser inserts a user or returns the existing row for the email.
	CreateUser(ctx context.Context, email string, name, avatarURL *string) (*User, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error)
	// FillMissingProfile sets name and avatar only where they are empty.
	FillMissingProfile(ctx context.Context, id string, name, avatarURL *string) (*User, error)
}

type CodeStore interface {
	UpsertCode(ctx context.Context, code OneTimeCode) error
	FindCode(ctx context.Context, email string) (*OneTimeCode, error)
	IncrementAttempts(ctx context.Context, email string) error
	// DeleteCode reports whether a record was removed.
	DeleteCode(ctx context.Context, email string) (bool, error)
	DeleteExpiredCodes(ctx context.Context, before time.Time) (int64, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, sess Session) error
	FindSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}
