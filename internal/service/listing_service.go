package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/studybridge/studybridge-api/internal/models"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
)

const (
	listingPageSize     = 12
	listingCacheKey     = "listing:agencies"
	listingCachePattern = "listing:*"
)

type listingAgencyRepository interface {
	ListApproved(ctx context.Context) ([]models.Agency, error)
}

type listingCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ListingResult is one page of the public directory.
type ListingResult struct {
	Agencies   []models.Agency   `json:"agencies"`
	Pagination models.Pagination `json:"pagination"`
}

// ListingService serves the public agency directory. The full approved set is
// loaded (through a Redis cache) and filtered, sorted and paginated in memory.
type ListingService struct {
	repo     listingAgencyRepository
	cache    listingCache
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewListingService constructs the listing service.
func NewListingService(repo listingAgencyRepository, cache listingCache, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *ListingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &ListingService{repo: repo, cache: cache, metrics: metrics, logger: logger, cacheTTL: cacheTTL}
}

// List returns the filtered, sorted page of the directory described by the
// filter state.
func (s *ListingService) List(ctx context.Context, filter models.ListingFilter) (*ListingResult, error) {
	agencies, err := s.loadApproved(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load directory")
	}

	filtered := FilterAgencies(agencies, filter)
	SortAgenciesByName(filtered)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	total := len(filtered)
	start := (page - 1) * listingPageSize
	if start > total {
		start = total
	}
	end := start + listingPageSize
	if end > total {
		end = total
	}

	return &ListingResult{
		Agencies:   filtered[start:end],
		Pagination: models.Pagination{Page: page, PageSize: listingPageSize, TotalCount: total},
	}, nil
}

// Invalidate drops every cached directory entry. Called after any mutation
// that changes what the public listing shows.
func (s *ListingService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, listingCachePattern); err != nil {
		s.logger.Warn("listing cache invalidation failed", zap.Error(err))
	}
}

func (s *ListingService) loadApproved(ctx context.Context) ([]models.Agency, error) {
	if s.cache != nil {
		var cached []models.Agency
		err := s.cache.Get(ctx, listingCacheKey, &cached)
		if err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("listing cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	agencies, err := s.repo.ListApproved(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, listingCacheKey, agencies, s.cacheTTL); err != nil {
			s.logger.Warn("listing cache write failed", zap.Error(err))
		}
	}
	return agencies, nil
}

// FilterAgencies applies the directory filter state to an in-memory set.
func FilterAgencies(agencies []models.Agency, filter models.ListingFilter) []models.Agency {
	query := strings.ToLower(strings.TrimSpace(filter.SearchQuery))
	location := strings.ToLower(strings.TrimSpace(filter.Location))
	maxPrice, priceFilter := parseMaxPrice(filter.MaxPrice)

	result := make([]models.Agency, 0, len(agencies))
	for _, agency := range agencies {
		if query != "" && !matchesQuery(agency, query) {
			continue
		}
		if filter.MinRating > 0 && agency.Rating < filter.MinRating {
			continue
		}
		if priceFilter && agency.Price > maxPrice {
			continue
		}
		if len(filter.Specializations) > 0 && !intersects(agency.Specializations, filter.Specializations) {
			continue
		}
		if filter.VerifiedOnly && !agency.IsVerified {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(agency.Location), location) {
			continue
		}
		result = append(result, agency)
	}
	return result
}

// SortAgenciesByName orders agencies alphabetically with locale-aware
// comparison; names beginning with a digit always sort after alphabetic
// names.
func SortAgenciesByName(agencies []models.Agency) {
	collator := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(agencies, func(i, j int) bool {
		a, b := agencies[i].Name, agencies[j].Name
		aDigit, bDigit := startsWithDigit(a), startsWithDigit(b)
		if aDigit != bDigit {
			return !aDigit
		}
		return collator.CompareString(a, b) < 0
	})
}

func matchesQuery(agency models.Agency, query string) bool {
	if strings.Contains(strings.ToLower(agency.Name), query) ||
		strings.Contains(strings.ToLower(agency.Location), query) ||
		strings.Contains(strings.ToLower(agency.Description), query) {
		return true
	}
	for _, spec := range agency.Specializations {
		if strings.Contains(strings.ToLower(spec), query) {
			return true
		}
	}
	return false
}

func parseMaxPrice(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	price, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return price, true
}

func intersects(have []string, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func startsWithDigit(s string) bool {
	if s == "" {
		return false
	}
	return s[0] >= '0' && s[0] <= '9'
}
