package community

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"tunishield/internal/database"
	"tunishield/internal/errutil"
)

const postColumns = `p.id, p.author_id, p.title, p.body, p.category, p.tags, p.created_at, u.name,
	(SELECT count(*) FROM post_likes l WHERE l.post_id = p.id),
	(SELECT count(*) FROM comments c WHERE c.post_id = p.id)`

type Repository struct {
	DB database.DB
}

func NewRepository(db database.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) ListPosts(ctx context.Context, q ListQuery) ([]Post, int, error) {
	where, args := postFilter(q)

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT count(*) FROM posts p`+where, args...).Scan(&total); err != nil {
		return nil, 0, errutil.Internal(err, "count posts")
	}

	args = append(args, q.Limit, q.Offset())
	query := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		JOIN users u ON u.id = p.author_id%s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d`, postColumns, where, len(args)-1, len(args))

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errutil.Internal(err, "list posts")
	}
	defer rows.Close()

	posts := make([]Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, errutil.Internal(err, "scan post")
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errutil.Internal(err, "list posts")
	}
	return posts, total, nil
}

func postFilter(q ListQuery) (string, []any) {
	conds := []string{}
	args := []any{}

	if q.Category != "" && q.Category != CategoryAll {
		args = append(args, q.Category)
		conds = append(conds, fmt.Sprintf("p.category = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		conds = append(conds, fmt.Sprintf("(p.title ILIKE $%d OR p.body ILIKE $%d)", len(args), len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *Repository) CreatePost(ctx context.Context, post Post) (*Post, error) {
	row := r.DB.QueryRow(ctx, `
		WITH p AS (
			INSERT INTO posts (id, author_id, title, body, category, tags, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING *
		)
		SELECT `+postColumns+`
		FROM p
		JOIN users u ON u.id = p.author_id
	`, post.ID, post.AuthorID, post.Title, post.Body, post.Category, post.Tags, post.CreatedAt)

	created, err := scanPost(row)
	if err != nil {
		return nil, errutil.Internal(err, "create post")
	}
	return created, nil
}

func (r *Repository) PostExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.DB.QueryRow(ctx, `SELECT 1 FROM posts WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errutil.Internal(err, "find post")
	}
	return true, nil
}

func (r *Repository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, errutil.Internal(err, "unlike post")
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO post_likes (post_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID)
	if err != nil {
		return false, errutil.Internal(err, "like post")
	}
	return true, nil
}

func (r *Repository) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT c.id, c.post_id, c.author_id, c.content, c.created_at, u.name
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1
		ORDER BY c.created_at DESC
	`, postID)
	if err != nil {
		return nil, errutil.Internal(err, "list comments")
	}
	defer rows.Close()

	comments := make([]Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, errutil.Internal(err, "scan comment")
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errutil.Internal(err, "list comments")
	}
	return comments, nil
}

func (r *Repository) CreateComment(ctx context.Context, c Comment) (*Comment, error) {
	row := r.DB.QueryRow(ctx, `
		WITH c AS (
			INSERT INTO comments (id, post_id, author_id, content, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		)
		SELECT c.id, c.post_id, c.author_id, c.content, c.created_at, u.name
		FROM c
		JOIN users u ON u.id = c.author_id
	`, c.ID, c.PostID, c.AuthorID, c.Content, c.CreatedAt)

	created, err := scanComment(row)
	if err != nil {
		return nil, errutil.Internal(err, "create comment")
	}
	return created, nil
}

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &p.Category, &p.Tags, &p.CreatedAt,
		&p.Author.Name, &p.Count.Likes, &p.Count.Comments); err != nil {
		return nil, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func scanComment(row pgx.Row) (*Comment, error) {
	var c Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.Author.Name); err != nil {
		return nil, err
	}
	return &c, nil
}
