package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studybridge/studybridge-api/internal/models"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
)

type reviewRepository interface {
	List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, int, error)
	ListApprovedByAgency(ctx context.Context, agencyID string) ([]models.Review, error)
	FindByID(ctx context.Context, id string) (*models.Review, error)
	Create(ctx context.Context, review *models.Review) error
	UpdateStatus(ctx context.Context, id string, status models.ReviewStatus) error
	Delete(ctx context.Context, id string) error
	ListResponses(ctx context.Context, reviewID string) ([]models.ReviewResponse, error)
	CreateResponse(ctx context.Context, response *models.ReviewResponse) error
}

type reviewAgencyRepository interface {
	FindByID(ctx context.Context, id string) (*models.Agency, error)
	UpdateRating(ctx context.Context, id string, rating float64) error
}

// SubmitReviewRequest holds payload for a public review submission.
type SubmitReviewRequest struct {
	AgencyID   string  `json:"agency_id" validate:"required"`
	AuthorName string  `json:"author_name" validate:"required"`
	AuthorID   *string `json:"author_id,omitempty"`
	Rating     int     `json:"rating" validate:"required,gte=1,lte=5"`
	Comment    string  `json:"comment" validate:"required"`
}

// RespondToReviewRequest holds payload for an owner reply.
type RespondToReviewRequest struct {
	Body string `json:"body" validate:"required"`
}

// ReviewService handles review submission, moderation and owner responses.
// Any status change feeds back into the agency's derived rating and trust
// score.
type ReviewService struct {
	repo      reviewRepository
	agencies  reviewAgencyRepository
	trust     trustRecomputer
	listing   listingInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReviewService constructs the review service.
func NewReviewService(repo reviewRepository, agencies reviewAgencyRepository, trust trustRecomputer, listing listingInvalidator, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{repo: repo, agencies: agencies, trust: trust, listing: listing, validator: validate, logger: logger}
}

// List returns reviews for the moderation queue.
func (s *ReviewService) List(ctx context.Context, filter models.ReviewFilter) ([]models.Review, *models.Pagination, error) {
	reviews, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return reviews, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListApproved returns the public reviews shown on an agency page.
func (s *ReviewService) ListApproved(ctx context.Context, agencyID string) ([]models.Review, error) {
	reviews, err := s.repo.ListApprovedByAgency(ctx, agencyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, nil
}

// Submit stores a new review in pending status awaiting moderation.
func (s *ReviewService) Submit(ctx context.Context, req SubmitReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	if _, err := s.agencies.FindByID(ctx, req.AgencyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "agency not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agency")
	}

	review := &models.Review{
		AgencyID:   req.AgencyID,
		AuthorID:   req.AuthorID,
		AuthorName: req.AuthorName,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Status:     models.ReviewStatusPending,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}
	return review, nil
}

// Moderate approves or rejects a review, then refreshes the agency's derived
// rating and trust score.
func (s *ReviewService) Moderate(ctx context.Context, id string, status models.ReviewStatus) (*models.Review, error) {
	if status != models.ReviewStatusApproved && status != models.ReviewStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown review status")
	}

	review, err := s.mustLoad(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update review status")
	}
	review.Status = status

	if err := s.refreshDerived(ctx, review.AgencyID); err != nil {
		return nil, err
	}
	return review, nil
}

// Delete removes a review and refreshes the agency's derived fields.
func (s *ReviewService) Delete(ctx context.Context, id string) error {
	review, err := s.mustLoad(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}
	return s.refreshDerived(ctx, review.AgencyID)
}

// ListResponses returns owner replies for a review.
func (s *ReviewService) ListResponses(ctx context.Context, reviewID string) ([]models.ReviewResponse, error) {
	responses, err := s.repo.ListResponses(ctx, reviewID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list responses")
	}
	return responses, nil
}

// Respond records an owner reply to a review.
func (s *ReviewService) Respond(ctx context.Context, reviewID, authorID string, req RespondToReviewRequest) (*models.ReviewResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}
	if _, err := s.mustLoad(ctx, reviewID); err != nil {
		return nil, err
	}
	response := &models.ReviewResponse{ReviewID: reviewID, AuthorID: authorID, Body: req.Body}
	if err := s.repo.CreateResponse(ctx, response); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create response")
	}
	return response, nil
}

func (s *ReviewService) mustLoad(ctx context.Context, id string) (*models.Review, error) {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	return review, nil
}

func (s *ReviewService) refreshDerived(ctx context.Context, agencyID string) error {
	approved, err := s.repo.ListApprovedByAgency(ctx, agencyID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approved reviews")
	}

	var rating float64
	if len(approved) > 0 {
		var sum int
		for _, review := range approved {
			sum += review.Rating
		}
		rating = float64(sum) / float64(len(approved))
	}

	if err := s.agencies.UpdateRating(ctx, agencyID, rating); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update agency rating")
	}

	if _, err := s.trust.Recompute(ctx, agencyID); err != nil {
		return err
	}

	if s.listing != nil {
		s.listing.Invalidate(ctx)
	}
	return nil
}
