package quiz

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"tunishield/internal/database"
	"tunishield/internal/errutil"
)

type Repository struct {
	DB    database.DB
	NewID func() string
}

func NewRepository(db database.DB, newID func() string) *Repository {
	return &Repository{DB: db, NewID: newID}
}

func (r *Repository) LastAttempt(ctx context.Context, userID string) (*Attempt, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, user_id, quiz_id, score, created_at
		FROM quiz_attempts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)

	var a Attempt
	if err := row.Scan(&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errutil.Internal(err, "find last quiz attempt")
	}
	return &a, nil
}

func (r *Repository) EnsureQuiz(ctx context.Context, day time.Time, language string) (string, error) {
	var id string
	err := r.DB.QueryRow(ctx, `
		INSERT INTO quizzes (id, quiz_date, language)
		VALUES ($1, $2, $3)
		ON CONFLICT (quiz_date) DO UPDATE SET quiz_date = EXCLUDED.quiz_date
		RETURNING id
	`, r.NewID(), day, language).Scan(&id)
	if err != nil {
		return "", errutil.Internal(err, "ensure daily quiz")
	}
	return id, nil
}

// CreateAttempt holds a per-user advisory lock for the transaction so a
// concurrent attempt waits and then sees the committed row in its window
// check.
func (r *Repository) CreateAttempt(ctx context.Context, a Attempt, since time.Time) (bool, error) {
	var written bool
	err := pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, a.UserID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO quiz_attempts (id, user_id, quiz_id, score, created_at)
			SELECT $1::text, $2::text, $3::text, $4::int, $5::timestamptz
			WHERE NOT EXISTS (
				SELECT 1 FROM quiz_attempts WHERE user_id = $2 AND created_at > $6::timestamptz
			)
		`, a.ID, a.UserID, a.QuizID, a.Score, a.CreatedAt, since)
		if err != nil {
			return err
		}
		written = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, errutil.Internal(err, "create quiz attempt")
	}
	return written, nil
}
