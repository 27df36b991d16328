package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/studybridge/studybridge-api/internal/models"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
)

type trustAgencyRepository interface {
	FindByID(ctx context.Context, id string) (*models.Agency, error)
	CountServices(ctx context.Context, agencyID string) (int, error)
	UpdateTrustScore(ctx context.Context, id string, score int) error
}

type trustReviewRepository interface {
	ListApprovedByAgency(ctx context.Context, agencyID string) ([]models.Review, error)
}

// TrustScoreService derives the 0-100 trust score from an agency's approved
// reviews, service count and verification flag, and persists the result.
type TrustScoreService struct {
	agencies trustAgencyRepository
	reviews  trustReviewRepository
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewTrustScoreService constructs the trust score service.
func NewTrustScoreService(agencies trustAgencyRepository, reviews trustReviewRepository, metrics *MetricsService, logger *zap.Logger) *TrustScoreService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrustScoreService{agencies: agencies, reviews: reviews, metrics: metrics, logger: logger}
}

// Compute returns the trust score for the given inputs. Rating contributes up
// to 50 points, services 5 points each capped at 30, verification a flat 20.
func (s *TrustScoreService) Compute(averageRating float64, serviceCount int, verified bool) int {
	ratingScore := (averageRating / 5) * 50
	servicesScore := float64(serviceCount * 5)
	if servicesScore > 30 {
		servicesScore = 30
	}
	verificationScore := 0.0
	if verified {
		verificationScore = 20
	}
	return int(math.Round(ratingScore + servicesScore + verificationScore))
}

// Recompute reloads an agency's inputs, computes a fresh score and writes it
// back. A persist failure keeps the previous stored score; the error is
// logged and counted rather than propagated so the triggering mutation still
// succeeds.
func (s *TrustScoreService) Recompute(ctx context.Context, agencyID string) (int, error) {
	agency, err := s.agencies.FindByID(ctx, agencyID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agency for trust score")
	}

	reviews, err := s.reviews.ListApprovedByAgency(ctx, agencyID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviews for trust score")
	}

	serviceCount, err := s.agencies.CountServices(ctx, agencyID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count services for trust score")
	}

	var average float64
	if len(reviews) > 0 {
		var sum int
		for _, review := range reviews {
			sum += review.Rating
		}
		average = float64(sum) / float64(len(reviews))
	}

	score := s.Compute(average, serviceCount, agency.IsVerified)

	if err := s.agencies.UpdateTrustScore(ctx, agencyID, score); err != nil {
		s.logger.Warn("trust score persist failed",
			zap.String("agency_id", agencyID),
			zap.Int("score", score),
			zap.Error(err))
		s.metrics.RecordTrustRecomputeFailure()
		return agency.TrustScore, nil
	}

	return score, nil
}
