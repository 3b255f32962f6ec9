package auth

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID        string
	Email     string
	Name      *string
	AvatarURL *string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OneTimeCode is the single outstanding login code for an email address.
// Only the SHA-256 of the code is persisted.
type OneTimeCode struct {
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	CreatedAt time.Time
}

// Session mirrors an issued session token so that it can be revoked.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ProfileUpdate changes the fields that are non-nil. An empty AvatarURL
// clears the avatar.
type ProfileUpdate struct {
	Name      *string
	AvatarURL *string
}

// FederatedProfile is the identity returned by an external provider.
type FederatedProfile struct {
	Email     string
	Name      string
	AvatarURL string
}

// LoginResult is returned after a successful sign-in.
type LoginResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}
