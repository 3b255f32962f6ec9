package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"tunishield/internal/errutil"
	"tunishield/internal/i18n"
)

const (
	msgAccountNotFound = "Account not found. Please sign up first."
	msgAccountExists   = "Account already exists. Please log in instead."
	msgNoCode          = "No code found. Please request a new one."
	msgTooManyAttempts = "Too many attempts. Please request a new code."
	msgCodeExpired     = "Code expired. Please request a new one."
	msgInvalidCode     = "Invalid code"
	msgUserNotFound    = "User not found"
	msgNotSignedIn     = "Not authenticated"
	msgEmailRequired   = "Email is required"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

type Options struct {
	CodeTTL     time.Duration
	MaxAttempts int
	// LogCodes writes issued codes to the debug log. Development only.
	LogCodes     bool
	Now          func() time.Time
	GenerateCode func() (string, error)
}

// Service implements email one-time-code sign-in, profile management and
// federated sign-in on top of the stores and the session manager.
type Service struct {
	users    UserStore
	codes    CodeStore
	sessions *SessionManager
	mailer   Mailer
	metrics  *Metrics
	logger   *zap.Logger
	opts     Options
}

func NewService(users UserStore, codes CodeStore, sessions *SessionManager, mailer Mailer, metrics *Metrics, logger *zap.Logger, opts Options) *Service {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 10 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.GenerateCode == nil {
		opts.GenerateCode = GenerateCode
	}
	return &Service{
		users:    users,
		codes:    codes,
		sessions: sessions,
		mailer:   mailer,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
	}
}

func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// RequestCode issues a fresh code for the email and mails it. Delivery
// failures are logged and do not fail the request.
func (s *Service) RequestCode(ctx context.Context, in RequestCodeInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	user, err := s.users.FindUserByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	switch {
	case in.Type == IntentLogin && user == nil:
		return errutil.New(errutil.CodeNotFound, msgAccountNotFound)
	case in.Type == IntentSignup && user != nil:
		return errutil.New(errutil.CodeConflict, msgAccountExists)
	}

	code, err := s.opts.GenerateCode()
	if err != nil {
		return errutil.Internal(err, "generate code")
	}

	now := s.opts.Now()
	err = s.codes.UpsertCode(ctx, OneTimeCode{
		Email:     in.Email,
		CodeHash:  HashString(code),
		ExpiresAt: now.Add(s.opts.CodeTTL),
		CreatedAt: now,
	})
	if err != nil {
		return err
	}
	s.metrics.codeIssued(in.Type)

	if s.opts.LogCodes {
		s.logger.Debug("login code issued", zap.String("email", in.Email), zap.String("code", code))
	}

	content := i18n.LoginCodeEmail(in.Locale, code, int(s.opts.CodeTTL.Minutes()))
	if err := s.mailer.Send(ctx, in.Email, content.Subject, content.Text, content.HTML); err != nil {
		s.metrics.mailFailed()
		s.logger.Warn("login code email failed", zap.String("email", in.Email), zap.Error(err))
	}
	return nil
}

// VerifyCode checks a submitted code. The attempt cap is enforced before
// expiry and before the code is compared. A matching code is consumed
// before the user and session are provisioned, so it can succeed once.
func (s *Service) VerifyCode(ctx context.Context, in VerifyCodeInput) (*LoginResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.codes.FindCode(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		s.metrics.verification(OutcomeNotFound)
		return nil, errutil.New(errutil.CodeNotFound, msgNoCode)
	}
	if rec.Attempts >= s.opts.MaxAttempts {
		s.metrics.verification(OutcomeTooManyAttempts)
		return nil, errutil.New(errutil.CodeTooManyAttempts, msgTooManyAttempts)
	}
	if s.opts.Now().After(rec.ExpiresAt) {
		s.metrics.verification(OutcomeExpired)
		return nil, errutil.New(errutil.CodeExpired, msgCodeExpired)
	}
	if !codeMatches(in.Code, rec.CodeHash) {
		if err := s.codes.IncrementAttempts(ctx, in.Email); err != nil {
			return nil, err
		}
		s.metrics.verification(OutcomeInvalidCode)
		return nil, errutil.New(errutil.CodeInvalidCode, msgInvalidCode)
	}

	consumed, err := s.codes.DeleteCode(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if !consumed {
		s.metrics.verification(OutcomeNotFound)
		return nil, errutil.New(errutil.CodeNotFound, msgNoCode)
	}

	result, err := s.provisionSession(ctx, in.Email)
	if err != nil {
		// Put the consumed code back so a failed provisioning does not
		// force the user to request a new one.
		if restoreErr := s.codes.UpsertCode(ctx, *rec); restoreErr != nil {
			s.logger.Warn("restore consumed code failed", zap.String("email", in.Email), zap.Error(restoreErr))
		}
		return nil, err
	}
	s.metrics.verification(OutcomeSuccess)
	return result, nil
}

func (s *Service) provisionSession(ctx context.Context, email string) (*LoginResult, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.users.CreateUser(ctx, email, nil, nil)
		if err != nil {
			return nil, err
		}
		s.logger.Info("user created", zap.String("userId", user.ID))
	}
	return s.startSession(ctx, user)
}

// FederatedLogin signs in with an identity asserted by an external
// provider. New users are created with the provider's name and avatar;
// existing users only get those fields filled where they are empty.
func (s *Service) FederatedLogin(ctx context.Context, p FederatedProfile) (*LoginResult, error) {
	email, ok := normalizeEmail(p.Email)
	if !ok {
		return nil, errutil.New(errutil.CodeBadRequest, msgEmailRequired)
	}
	name := optionalString(p.Name)
	avatar := optionalString(p.AvatarURL)

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	switch {
	case user == nil:
		user, err = s.users.CreateUser(ctx, email, name, avatar)
	case (isBlank(user.Name) && name != nil) || (isBlank(user.AvatarURL) && avatar != nil):
		user, err = s.users.FillMissingProfile(ctx, user.ID, name, avatar)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errutil.New(errutil.CodeNotFound, msgUserNotFound)
	}

	return s.startSession(ctx, user)
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errutil.New(errutil.CodeUnauthenticated, msgNotSignedIn)
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	user, err := s.users.UpdateProfile(ctx, userID, in.update())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errutil.New(errutil.CodeNotFound, msgUserNotFound)
	}
	return user, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// PurgeExpired removes expired codes and sessions.
func (s *Service) PurgeExpired(ctx context.Context) (codes, sessions int64, err error) {
	codes, err = s.codes.DeleteExpiredCodes(ctx, s.opts.Now())
	if err != nil {
		return 0, 0, err
	}
	sessions, err = s.sessions.PurgeExpired(ctx)
	if err != nil {
		return codes, 0, err
	}
	return codes, sessions, nil
}

func (s *Service) startSession(ctx context.Context, user *User) (*LoginResult, error) {
	token, expires, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expires}, nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func isBlank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}
