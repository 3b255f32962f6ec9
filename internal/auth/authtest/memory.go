// Package authtest provides in-memory doubles for the auth stores and
// mailer.
package authtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"tunishield/internal/auth"
)

// Store is an in-memory UserStore, CodeStore and SessionStore.
type Store struct {
	mu       sync.Mutex
	users    map[string]*auth.User
	codes    map[string]*auth.OneTimeCode
	sessions map[string]*auth.Session

	// FailNext makes the next store call return this error.
	FailNext error
}

func NewStore() *Store {
	return &Store{
		users:    map[string]*auth.User{},
		codes:    map[string]*auth.OneTimeCode{},
		sessions: map[string]*auth.Session{},
	}
}

func (s *Store) fail() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

// AddUser seeds a user and returns it.
func (s *Store) AddUser(email string) *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	u := &auth.User{ID: uuid.NewString(), Email: email, Role: auth.RoleUser, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	return cloneUser(u)
}

// Code returns a copy of the stored code record for email.
func (s *Store) Code(email string) (auth.OneTimeCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[email]
	if !ok {
		return auth.OneTimeCode{}, false
	}
	return *c, true
}

// SetCode overwrites the stored code record.
func (s *Store) SetCode(c auth.OneTimeCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[c.Email] = &c
}

func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (s *Store) CreateUser(_ context.Context, email string, name, avatarURL *string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	now := time.Now()
	u := &auth.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      copyString(name),
		AvatarURL: copyString(avatarURL),
		Role:      auth.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *Store) UpdateProfile(_ context.Context, id string, upd auth.ProfileUpdate) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	if upd.Name != nil {
		u.Name = copyString(upd.Name)
	}
	if upd.AvatarURL != nil {
		if *upd.AvatarURL == "" {
			u.AvatarURL = nil
		} else {
			u.AvatarURL = copyString(upd.AvatarURL)
		}
	}
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (s *Store) FillMissingProfile(_ context.Context, id string, name, avatarURL *string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	if (u.Name == nil || *u.Name == "") && name != nil {
		u.Name = copyString(name)
	}
	if (u.AvatarURL == nil || *u.AvatarURL == "") && avatarURL != nil {
		u.AvatarURL = copyString(avatarURL)
	}
	return cloneUser(u), nil
}

func (s *Store) UpsertCode(_ context.Context, c auth.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	c.Attempts = 0
	s.codes[c.Email] = &c
	return nil
}

func (s *Store) FindCode(_ context.Context, email string) (*auth.OneTimeCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	c, ok := s.codes[email]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *Store) IncrementAttempts(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	if c, ok := s.codes[email]; ok {
		c.Attempts++
	}
	return nil
}

func (s *Store) DeleteCode(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return false, err
	}
	_, ok := s.codes[email]
	delete(s.codes, email)
	return ok, nil
}

func (s *Store) DeleteExpiredCodes(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for email, c := range s.codes {
		if c.ExpiresAt.Before(before) {
			delete(s.codes, email)
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateSession(_ context.Context, sess auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	if _, exists := s.sessions[sess.TokenHash]; exists {
		return errors.New("duplicate token hash")
	}
	s.sessions[sess.TokenHash] = &sess
	return nil
}

func (s *Store) FindSessionByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) DeleteSessionByTokenHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	delete(s.sessions, tokenHash)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, sess := range s.sessions {
		if sess.ExpiresAt.Before(before) {
			delete(s.sessions, hash)
			n++
		}
	}
	return n, nil
}

func cloneUser(u *auth.User) *auth.User {
	cp := *u
	cp.Name = copyString(u.Name)
	cp.AvatarURL = copyString(u.AvatarURL)
	return &cp
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// Mailer is a testify mock for auth.Mailer.
type Mailer struct {
	mock.Mock
}

func (m *Mailer) Send(ctx context.Context, to, subject, text, html string) error {
	args := m.Called(ctx, to, subject, text, html)
	return args.Error(0)
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
