// Package community serves the public scam-report forum: posts, likes and
// comments.
package community

import (
	"context"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"tunishield/internal/errutil"
)

const (
	CategoryAll  = "All"
	DefaultLimit = 10
	MaxLimit     = 50

	msgPostNotFound = "Post not found"
)

var Categories = []string{"D17", "Phishing", "Phone", "WhatsApp", "Other"}

type Author struct {
	Name *string `json:"name"`
}

type Counts struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
}

type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	Author    Author    `json:"author"`
	Count     Counts    `json:"_count"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Author    Author    `json:"author"`
}

type ListQuery struct {
	Page     int
	Limit    int
	Search   string
	Category string
}

// Normalize clamps paging and defaults the category filter.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	if q.Category == "" {
		q.Category = CategoryAll
	}
	return q
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type Pagination struct {
	Total int `json:"total"`
	Pages int `json:"pages"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Page struct {
	Posts      []Post     `json:"posts"`
	Pagination Pagination `json:"pagination"`
}

type PostInput struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
}

func (in *PostInput) Validate() error {
	fields := map[string]string{}
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)

	switch n := utf8.RuneCountInString(in.Title); {
	case n < 3:
		fields["title"] = "Title too short"
	case n > 100:
		fields["title"] = "Title too long"
	}
	if utf8.RuneCountInString(in.Body) < 10 {
		fields["body"] = "Content too short"
	}
	if !slices.Contains(Categories, in.Category) {
		fields["category"] = "Category must be one of " + strings.Join(Categories, ", ")
	}

	if len(fields) > 0 {
		return errutil.Validation(fields)
	}
	return nil
}

type CommentInput struct {
	Content string `json:"content"`
}

func (in *CommentInput) Validate() error {
	in.Content = strings.TrimSpace(in.Content)
	switch n := utf8.RuneCountInString(in.Content); {
	case n == 0:
		return errutil.Validation(map[string]string{"content": "Comment cannot be empty"})
	case n > 500:
		return errutil.Validation(map[string]string{"content": "Comment too long"})
	}
	return nil
}

type Store interface {
	ListPosts(ctx context.Context, q ListQuery) ([]Post, int, error)
	CreatePost(ctx context.Context, p Post) (*Post, error)
	PostExists(ctx context.Context, id string) (bool, error)
	// ToggleLike removes the user's like when present and adds it otherwise.
	// It returns the resulting state.
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)
	ListComments(ctx context.Context, postID string) ([]Comment, error)
	CreateComment(ctx context.Context, c Comment) (*Comment, error)
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

func (s *Service) ListPosts(ctx context.Context, q ListQuery) (*Page, error) {
	q = q.Normalize()
	posts, total, err := s.store.ListPosts(ctx, q)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []Post{}
	}
	return &Page{
		Posts: posts,
		Pagination: Pagination{
			Total: total,
			Pages: int(math.Ceil(float64(total) / float64(q.Limit))),
			Page:  q.Page,
			Limit: q.Limit,
		},
	}, nil
}

func (s *Service) CreatePost(ctx context.Context, authorID string, in PostInput) (*Post, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	post, err := s.store.CreatePost(ctx, Post{
		ID:        s.newID(),
		AuthorID:  authorID,
		Title:     in.Title,
		Body:      in.Body,
		Category:  in.Category,
		Tags:      []string{},
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("community post created",
		zap.String("post_id", post.ID),
		zap.String("author_id", authorID),
		zap.String("category", post.Category))
	return post, nil
}

func (s *Service) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return false, err
	}
	return s.store.ToggleLike(ctx, postID, userID)
}

// ListComments returns the newest comments first. Unknown posts simply have
// no comments.
func (s *Service) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	comments, err := s.store.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []Comment{}
	}
	return comments, nil
}

func (s *Service) AddComment(ctx context.Context, postID, authorID string, in CommentInput) (*Comment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.CreateComment(ctx, Comment{
		ID:        s.newID(),
		PostID:    postID,
		AuthorID:  authorID,
		Content:   in.Content,
		CreatedAt: s.now().UTC(),
	})
}

func (s *Service) requirePost(ctx context.Context, postID string) error {
	ok, err := s.store.PostExists(ctx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return errutil.New(errutil.CodeNotFound, msgPostNotFound)
	}
	return nil
}
