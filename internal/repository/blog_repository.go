package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studybridge/studybridge-api/internal/models"
)

const blogColumns = "id, slug, title, excerpt, body, cover_url, tags, author_id, published, created_at, updated_at"

// BlogRepository manages persistence for blog posts.
type BlogRepository struct {
	db *sqlx.DB
}

// NewBlogRepository constructs a BlogRepository.
func NewBlogRepository(db *sqlx.DB) *BlogRepository {
	return &BlogRepository{db: db}
}

// List returns blog posts matching filters along with total count.
func (r *BlogRepository) List(ctx context.Context, filter models.BlogFilter) ([]models.BlogPost, int, error) {
	base := "FROM blog_posts WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.PublishedOnly {
		conditions = append(conditions, "published = TRUE")
	}
	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)+1))
		args = append(args, filter.Tag)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(excerpt) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", blogColumns, base, size, offset)
	var posts []models.BlogPost
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list blog posts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count blog posts: %w", err)
	}

	return posts, total, nil
}

// FindBySlug fetches a post by its URL slug.
func (r *BlogRepository) FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	query := fmt.Sprintf("SELECT %s FROM blog_posts WHERE slug = $1", blogColumns)
	var post models.BlogPost
	if err := r.db.GetContext(ctx, &post, query, slug); err != nil {
		return nil, err
	}
	return &post, nil
}

// FindByID fetches a post by ID.
func (r *BlogRepository) FindByID(ctx context.Context, id string) (*models.BlogPost, error) {
	query := fmt.Sprintf("SELECT %s FROM blog_posts WHERE id = $1", blogColumns)
	var post models.BlogPost
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		return nil, err
	}
	return &post, nil
}

// ExistsBySlug checks if another post uses the same slug.
func (r *BlogRepository) ExistsBySlug(ctx context.Context, slug string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM blog_posts WHERE slug = $1"
	args := []interface{}{slug}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check blog slug: %w", err)
	}
	return true, nil
}

// Create inserts a new blog post.
func (r *BlogRepository) Create(ctx context.Context, post *models.BlogPost) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	if post.Tags == nil {
		post.Tags = []string{}
	}

	const query = `INSERT INTO blog_posts (id, slug, title, excerpt, body, cover_url, tags, author_id, published, created_at, updated_at)
		VALUES (:id, :slug, :title, :excerpt, :body, :cover_url, :tags, :author_id, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create blog post: %w", err)
	}
	return nil
}

// Update modifies an existing blog post.
func (r *BlogRepository) Update(ctx context.Context, post *models.BlogPost) error {
	post.UpdatedAt = time.Now().UTC()
	const query = `UPDATE blog_posts SET slug = :slug, title = :title, excerpt = :excerpt, body = :body, cover_url = :cover_url, tags = :tags, published = :published, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("update blog post: %w", err)
	}
	return nil
}

// Delete removes a blog post.
func (r *BlogRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM blog_posts WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete blog post: %w", err)
	}
	return nil
}
