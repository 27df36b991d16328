package service

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studybridge/studybridge-api/internal/models"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
)

type blogRepository interface {
	List(ctx context.Context, filter models.BlogFilter) ([]models.BlogPost, int, error)
	FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	FindByID(ctx context.Context, id string) (*models.BlogPost, error)
	ExistsBySlug(ctx context.Context, slug string, excludeID string) (bool, error)
	Create(ctx context.Context, post *models.BlogPost) error
	Update(ctx context.Context, post *models.BlogPost) error
	Delete(ctx context.Context, id string) error
}

// CreateBlogPostRequest holds payload for authoring a post.
type CreateBlogPostRequest struct {
	Title     string   `json:"title" validate:"required"`
	Excerpt   string   `json:"excerpt"`
	Body      string   `json:"body" validate:"required"`
	CoverURL  string   `json:"cover_url" validate:"omitempty,url"`
	Tags      []string `json:"tags"`
	Published bool     `json:"published"`
	AuthorID  *string  `json:"author_id,omitempty"`
}

// UpdateBlogPostRequest holds payload for editing a post.
type UpdateBlogPostRequest struct {
	Title     string   `json:"title" validate:"required"`
	Excerpt   string   `json:"excerpt"`
	Body      string   `json:"body" validate:"required"`
	CoverURL  string   `json:"cover_url" validate:"omitempty,url"`
	Tags      []string `json:"tags"`
	Published bool     `json:"published"`
}

// BlogService handles the knowledge hub articles.
type BlogService struct {
	repo      blogRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBlogService constructs the blog service.
func NewBlogService(repo blogRepository, validate *validator.Validate, logger *zap.Logger) *BlogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlogService{repo: repo, validator: validate, logger: logger}
}

// List returns posts and pagination metadata.
func (s *BlogService) List(ctx context.Context, filter models.BlogFilter) ([]models.BlogPost, *models.Pagination, error) {
	posts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return posts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetBySlug returns a single post. Unpublished posts are only visible to
// staff; the handler decides whether to allow them.
func (s *BlogService) GetBySlug(ctx context.Context, slug string, includeDrafts bool) (*models.BlogPost, error) {
	post, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	if !post.Published && !includeDrafts {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
	}
	return post, nil
}

// Create authors a new post.
func (s *BlogService) Create(ctx context.Context, req CreateBlogPostRequest) (*models.BlogPost, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}

	slug, err := s.uniqueSlug(ctx, req.Title, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate slug")
	}

	post := &models.BlogPost{
		Slug:      slug,
		Title:     req.Title,
		Excerpt:   req.Excerpt,
		Body:      req.Body,
		CoverURL:  req.CoverURL,
		Tags:      req.Tags,
		AuthorID:  req.AuthorID,
		Published: req.Published,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}
	return post, nil
}

// Update edits a post. Retitling reallocates the slug.
func (s *BlogService) Update(ctx context.Context, id string, req UpdateBlogPostRequest) (*models.BlogPost, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}

	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}

	if req.Title != post.Title {
		slug, err := s.uniqueSlug(ctx, req.Title, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate slug")
		}
		post.Slug = slug
	}

	post.Title = req.Title
	post.Excerpt = req.Excerpt
	post.Body = req.Body
	post.CoverURL = req.CoverURL
	post.Tags = req.Tags
	post.Published = req.Published

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update post")
	}
	return post, nil
}

// Delete removes a post.
func (s *BlogService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete post")
	}
	return nil
}

func (s *BlogService) uniqueSlug(ctx context.Context, title, excludeID string) (string, error) {
	base := Slugify(title)
	slug := base
	for attempt := 2; ; attempt++ {
		taken, err := s.repo.ExistsBySlug(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(attempt)
	}
}
