// Package quiz gates the daily awareness quiz to one attempt per user in a
// rolling window and records scores.
package quiz

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tunishield/internal/errutil"
)

const (
	AttemptWindow   = 24 * time.Hour
	DefaultLanguage = "tn"

	msgAlreadyPlayed = "You have already played today. Come back later."
)

type Attempt struct {
	ID        string
	UserID    string
	QuizID    string
	Score     int
	CreatedAt time.Time
}

// Status tells the client whether a new attempt is allowed. RemainingMs and
// LastScore are only set while the window is closed.
type Status struct {
	CanPlay     bool  `json:"canPlay"`
	RemainingMs int64 `json:"remainingMs,omitempty"`
	LastScore   *int  `json:"lastScore,omitempty"`
}

type Store interface {
	LastAttempt(ctx context.Context, userID string) (*Attempt, error)
	// EnsureQuiz returns the id of the quiz for the given day, creating it
	// when missing.
	EnsureQuiz(ctx context.Context, day time.Time, language string) (string, error)
	// CreateAttempt inserts the attempt unless the user already has one
	// newer than since. It reports whether a row was written. Concurrent
	// calls for one user write at most one row.
	CreateAttempt(ctx context.Context, a Attempt, since time.Time) (bool, error)
}

type AttemptInput struct {
	Score *int `json:"score"`
}

func (in AttemptInput) Validate() error {
	switch {
	case in.Score == nil:
		return errutil.Validation(map[string]string{"score": "Score is required"})
	case *in.Score < 0 || *in.Score > 100:
		return errutil.Validation(map[string]string{"score": "Score must be between 0 and 100"})
	}
	return nil
}

type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(store Store, logger *zap.Logger, now func() time.Time, newID func() string) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, logger: logger, now: now, newID: newID}
}

func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	last, err := s.store.LastAttempt(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return statusAt(last, s.now()), nil
}

func statusAt(last *Attempt, now time.Time) Status {
	if last == nil {
		return Status{CanPlay: true}
	}
	elapsed := now.Sub(last.CreatedAt)
	if elapsed >= AttemptWindow {
		return Status{CanPlay: true}
	}
	score := last.Score
	return Status{
		CanPlay:     false,
		RemainingMs: (AttemptWindow - elapsed).Milliseconds(),
		LastScore:   &score,
	}
}

// Record stores a finished attempt. A second attempt inside the window is a
// CONFLICT.
func (s *Service) Record(ctx context.Context, userID string, in AttemptInput) (*Attempt, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	last, err := s.store.LastAttempt(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !statusAt(last, now).CanPlay {
		return nil, errutil.New(errutil.CodeConflict, msgAlreadyPlayed)
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	quizID, err := s.store.EnsureQuiz(ctx, day, DefaultLanguage)
	if err != nil {
		return nil, err
	}

	a := Attempt{
		ID:        s.newID(),
		UserID:    userID,
		QuizID:    quizID,
		Score:     *in.Score,
		CreatedAt: now,
	}
	written, err := s.store.CreateAttempt(ctx, a, now.Add(-AttemptWindow))
	if err != nil {
		return nil, err
	}
	if !written {
		return nil, errutil.New(errutil.CodeConflict, msgAlreadyPlayed)
	}

	s.logger.Info("quiz attempt recorded",
		zap.String("user_id", userID),
		zap.String("quiz_id", quizID),
		zap.Int("score", a.Score))
	return &a, nil
}
