package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studybridge/studybridge-api/internal/models"
)

type mockTrustAgencyRepo struct {
	agency       models.Agency
	serviceCount int
	updatedScore *int
	updateErr    error
}

func (m *mockTrustAgencyRepo) FindByID(ctx context.Context, id string) (*models.Agency, error) {
	a := m.agency
	return &a, nil
}

func (m *mockTrustAgencyRepo) CountServices(ctx context.Context, agencyID string) (int, error) {
	return m.serviceCount, nil
}

func (m *mockTrustAgencyRepo) UpdateTrustScore(ctx context.Context, id string, score int) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updatedScore = &score
	return nil
}

type mockTrustReviewRepo struct {
	reviews []models.Review
}

func (m *mockTrustReviewRepo) ListApprovedByAgency(ctx context.Context, agencyID string) ([]models.Review, error) {
	return m.reviews, nil
}

func TestTrustScoreCompute(t *testing.T) {
	svc := NewTrustScoreService(nil, nil, nil, zap.NewNop())

	tests := []struct {
		name     string
		rating   float64
		services int
		verified bool
		want     int
	}{
		{"no signals", 0, 0, false, 0},
		{"perfect", 5, 6, true, 100},
		{"rating only", 4, 0, false, 40},
		{"services saturate", 0, 10, false, 30},
		{"verified only", 0, 0, true, 20},
		{"mixed rounds", 4.3, 2, true, 73},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.Compute(tt.rating, tt.services, tt.verified))
		})
	}
}

func TestTrustScoreRecompute(t *testing.T) {
	agencies := &mockTrustAgencyRepo{
		agency:       models.Agency{ID: "a1", IsVerified: true, TrustScore: 10},
		serviceCount: 4,
	}
	reviews := &mockTrustReviewRepo{reviews: []models.Review{
		{Rating: 5, Status: models.ReviewStatusApproved},
		{Rating: 4, Status: models.ReviewStatusApproved},
	}}
	svc := NewTrustScoreService(agencies, reviews, nil, zap.NewNop())

	score, err := svc.Recompute(context.Background(), "a1")
	require.NoError(t, err)
	// (4.5/5)*50 + 20 + 20 = 85
	assert.Equal(t, 85, score)
	require.NotNil(t, agencies.updatedScore)
	assert.Equal(t, 85, *agencies.updatedScore)
}

func TestTrustScoreRecomputeNoReviews(t *testing.T) {
	agencies := &mockTrustAgencyRepo{agency: models.Agency{ID: "a1"}}
	svc := NewTrustScoreService(agencies, &mockTrustReviewRepo{}, nil, zap.NewNop())

	score, err := svc.Recompute(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 0, score)
}

func TestTrustScoreRecomputePersistFailureKeepsPrevious(t *testing.T) {
	agencies := &mockTrustAgencyRepo{
		agency:    models.Agency{ID: "a1", TrustScore: 42, IsVerified: true},
		updateErr: errors.New("connection reset"),
	}
	svc := NewTrustScoreService(agencies, &mockTrustReviewRepo{}, nil, zap.NewNop())

	score, err := svc.Recompute(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 42, score)
	assert.Nil(t, agencies.updatedScore)
}
