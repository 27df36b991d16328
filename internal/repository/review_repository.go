package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studybridge/studybridge-api/internal/models"
)

const reviewColumns = "id, agency_id, author_id, author_name, rating, comment, status, created_at, updated_at"

// ReviewRepository manages persistence for reviews and owner responses.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs a ReviewRepository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// List returns reviews matching filters along with total count.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error) {
	base := "FROM reviews WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.AgencyID != "" {
		conditions = append(conditions, fmt.Sprintf("agency_id = $%d", len(args)+1))
		args = append(args, filter.AgencyID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", reviewColumns, base, size, offset)
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	return reviews, total, nil
}

// ListApprovedByAgency returns every approved review for an agency.
func (r *ReviewRepository) ListApprovedByAgency(ctx context.Context, agencyID string) ([]models.Review, error) {
	query := fmt.Sprintf("SELECT %s FROM reviews WHERE agency_id = $1 AND status = $2 ORDER BY created_at DESC", reviewColumns)
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, agencyID, models.ReviewStatusApproved); err != nil {
		return nil, fmt.Errorf("list approved reviews: %w", err)
	}
	return reviews, nil
}

// FindByID fetches a review by ID.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	query := fmt.Sprintf("SELECT %s FROM reviews WHERE id = $1", reviewColumns)
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		return nil, err
	}
	return &review, nil
}

// Create inserts a new review record.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	const query = `INSERT INTO reviews (id, agency_id, author_id, author_name, rating, comment, status, created_at, updated_at)
		VALUES (:id, :agency_id, :author_id, :author_name, :rating, :comment, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// UpdateStatus moves a review through moderation.
func (r *ReviewRepository) UpdateStatus(ctx context.Context, id string, status models.ReviewStatus) error {
	const query = `UPDATE reviews SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	return nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM reviews WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// ListResponses returns owner responses for a review.
func (r *ReviewRepository) ListResponses(ctx context.Context, reviewID string) ([]models.ReviewResponse, error) {
	const query = `SELECT id, review_id, author_id, body, created_at FROM review_responses WHERE review_id = $1 ORDER BY created_at`
	var responses []models.ReviewResponse
	if err := r.db.SelectContext(ctx, &responses, query, reviewID); err != nil {
		return nil, fmt.Errorf("list review responses: %w", err)
	}
	return responses, nil
}

// CreateResponse inserts an owner response to a review.
func (r *ReviewRepository) CreateResponse(ctx context.Context, resp *models.ReviewResponse) error {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO review_responses (id, review_id, author_id, body, created_at) VALUES (:id, :review_id, :author_id, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, resp); err != nil {
		return fmt.Errorf("create review response: %w", err)
	}
	return nil
}
