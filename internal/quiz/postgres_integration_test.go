//go:build integration

package quiz_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunishield/internal/database/dbtest"
	"tunishield/internal/quiz"
)

func TestRepositoryAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.NewPool(t)
	repo := quiz.NewRepository(pool, uuid.NewString)

	addUser := func(t *testing.T, email string) string {
		t.Helper()
		id := uuid.NewString()
		_, err := pool.Exec(ctx, `INSERT INTO users (id, email) VALUES ($1, $2)`, id, email)
		require.NoError(t, err)
		return id
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	t.Run("daily quiz is created once", func(t *testing.T) {
		first, err := repo.EnsureQuiz(ctx, day, quiz.DefaultLanguage)
		require.NoError(t, err)
		second, err := repo.EnsureQuiz(ctx, day, quiz.DefaultLanguage)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("attempt window", func(t *testing.T) {
		userID := addUser(t, "window@example.tn")
		quizID, err := repo.EnsureQuiz(ctx, day, quiz.DefaultLanguage)
		require.NoError(t, err)

		ok, err := repo.CreateAttempt(ctx, quiz.Attempt{ID: uuid.NewString(), UserID: userID, QuizID: quizID, Score: 70, CreatedAt: now}, now.Add(-quiz.AttemptWindow))
		require.NoError(t, err)
		assert.True(t, ok)

		later := now.Add(time.Hour)
		ok, err = repo.CreateAttempt(ctx, quiz.Attempt{ID: uuid.NewString(), UserID: userID, QuizID: quizID, Score: 90, CreatedAt: later}, later.Add(-quiz.AttemptWindow))
		require.NoError(t, err)
		assert.False(t, ok)

		last, err := repo.LastAttempt(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, 70, last.Score)
	})

	t.Run("concurrent attempts write one row", func(t *testing.T) {
		userID := addUser(t, "race@example.tn")
		quizID, err := repo.EnsureQuiz(ctx, day, quiz.DefaultLanguage)
		require.NoError(t, err)

		var written atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.CreateAttempt(ctx, quiz.Attempt{
					ID:        fmt.Sprintf("race-%d", i),
					UserID:    userID,
					QuizID:    quizID,
					Score:     i * 10,
					CreatedAt: now,
				}, now.Add(-quiz.AttemptWindow))
				assert.NoError(t, err)
				if ok {
					written.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), written.Load())
		var rows int
		require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM quiz_attempts WHERE user_id = $1`, userID).Scan(&rows))
		assert.Equal(t, 1, rows)
	})
}
