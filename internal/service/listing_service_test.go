package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studybridge/studybridge-api/internal/models"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
)

type mockListingRepo struct {
	agencies []models.Agency
	calls    int
}

func (m *mockListingRepo) ListApproved(ctx context.Context) ([]models.Agency, error) {
	m.calls++
	return m.agencies, nil
}

type mockListingCache struct {
	store map[string][]models.Agency
}

func (m *mockListingCache) Get(ctx context.Context, key string, dest interface{}) error {
	if cached, ok := m.store[key]; ok {
		*dest.(*[]models.Agency) = cached
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (m *mockListingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]models.Agency)
	}
	m.store[key] = value.([]models.Agency)
	return nil
}

func (m *mockListingCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.store = nil
	return nil
}

func directoryFixture() []models.Agency {
	return []models.Agency{
		{Name: "Zenith Overseas", Location: "Delhi", Rating: 3.2, Price: 20000, Specializations: []string{"USA"}, IsVerified: false},
		{Name: "Apex Study Abroad", Location: "Mumbai", Rating: 4.8, Price: 60000, Specializations: []string{"UK", "Canada"}, IsVerified: true},
		{Name: "1st Choice Consultants", Location: "Pune", Rating: 4.1, Price: 30000, Specializations: []string{"Australia"}, IsVerified: true},
		{Name: "Meridian Education", Location: "Mumbai", Rating: 4.5, Price: 45000, Specializations: []string{"UK"}, IsVerified: false},
	}
}

func TestFilterAgenciesSearch(t *testing.T) {
	filtered := FilterAgencies(directoryFixture(), models.ListingFilter{SearchQuery: "mumbai"})
	require.Len(t, filtered, 2)

	filtered = FilterAgencies(directoryFixture(), models.ListingFilter{SearchQuery: "canada"})
	require.Len(t, filtered, 1)
	assert.Equal(t, "Apex Study Abroad", filtered[0].Name)
}

func TestFilterAgenciesRatingAndPrice(t *testing.T) {
	filtered := FilterAgencies(directoryFixture(), models.ListingFilter{MinRating: 4.0})
	assert.Len(t, filtered, 3)

	filtered = FilterAgencies(directoryFixture(), models.ListingFilter{MaxPrice: "30000"})
	assert.Len(t, filtered, 2)

	// non-numeric price string disables the filter
	filtered = FilterAgencies(directoryFixture(), models.ListingFilter{MaxPrice: "cheap"})
	assert.Len(t, filtered, 4)
}

func TestFilterAgenciesSpecializationsAndVerified(t *testing.T) {
	filtered := FilterAgencies(directoryFixture(), models.ListingFilter{Specializations: []string{"UK"}})
	assert.Len(t, filtered, 2)

	filtered = FilterAgencies(directoryFixture(), models.ListingFilter{VerifiedOnly: true})
	assert.Len(t, filtered, 2)

	filtered = FilterAgencies(directoryFixture(), models.ListingFilter{Specializations: []string{"UK"}, VerifiedOnly: true})
	require.Len(t, filtered, 1)
	assert.Equal(t, "Apex Study Abroad", filtered[0].Name)
}

func TestSortAgenciesByNameDigitsLast(t *testing.T) {
	agencies := directoryFixture()
	SortAgenciesByName(agencies)

	names := make([]string, 0, len(agencies))
	for _, a := range agencies {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Apex Study Abroad", "Meridian Education", "Zenith Overseas", "1st Choice Consultants"}, names)
}

func TestListingServicePagination(t *testing.T) {
	agencies := make([]models.Agency, 0, 30)
	for i := 0; i < 30; i++ {
		agencies = append(agencies, models.Agency{Name: "Agency " + string(rune('A'+i))})
	}
	repo := &mockListingRepo{agencies: agencies}
	svc := NewListingService(repo, nil, time.Minute, nil, zap.NewNop())

	page1, err := svc.List(context.Background(), models.ListingFilter{Page: 1})
	require.NoError(t, err)
	assert.Len(t, page1.Agencies, 12)
	assert.Equal(t, 30, page1.Pagination.TotalCount)
	assert.Equal(t, 12, page1.Pagination.PageSize)

	page3, err := svc.List(context.Background(), models.ListingFilter{Page: 3})
	require.NoError(t, err)
	assert.Len(t, page3.Agencies, 6)

	page9, err := svc.List(context.Background(), models.ListingFilter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, page9.Agencies)
}

func TestListingServiceUsesCache(t *testing.T) {
	repo := &mockListingRepo{agencies: directoryFixture()}
	cache := &mockListingCache{}
	svc := NewListingService(repo, cache, time.Minute, nil, zap.NewNop())

	_, err := svc.List(context.Background(), models.ListingFilter{})
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.ListingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	svc.Invalidate(context.Background())
	_, err = svc.List(context.Background(), models.ListingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}
