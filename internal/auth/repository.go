package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tunishield/internal/database"
	"tunishield/internal/errutil"
)

const userColumns = `id, email, name, avatar_url, role, created_at, updated_at`

// Repository is the PostgreSQL implementation of UserStore, CodeStore and
// SessionStore.
type Repository struct {
	DB database.DB
}

func NewRepository(db database.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return r.scanOptionalUser(row, "find user by email")
}

func (r *Repository) FindUserByID(ctx context.Context, id string) (*User, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.scanOptionalUser(row, "find user by id")
}

func (r *Repository) CreateUser(ctx context.Context, email string, name, avatarURL *string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO users (id, email, name, avatar_url, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING `+userColumns,
		uuid.NewString(), email, name, avatarURL, RoleUser)

	user, err := scanUser(row)
	if err != nil {
		return nil, errutil.Internal(err, "create user")
	}
	return user, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	sets := []string{}
	args := []any{}
	idx := 1

	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.AvatarURL != nil {
		var avatar *string
		if *upd.AvatarURL != "" {
			avatar = upd.AvatarURL
		}
		sets = append(sets, fmt.Sprintf("avatar_url = $%d", idx))
		args = append(args, avatar)
		idx++
	}

	if len(sets) == 0 {
		return r.FindUserByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), idx, userColumns)

	row := r.DB.QueryRow(ctx, query, args...)
	return r.scanOptionalUser(row, "update profile")
}

func (r *Repository) FillMissingProfile(ctx context.Context, id string, name, avatarURL *string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE users
		SET name = COALESCE(NULLIF(name, ''), $2),
		    avatar_url = COALESCE(NULLIF(avatar_url, ''), $3),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, name, avatarURL)
	return r.scanOptionalUser(row, "fill missing profile")
}

func (r *Repository) scanOptionalUser(row pgx.Row, operation string) (*User, error) {
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errutil.Internal(err, operation)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
