package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/studybridge/studybridge-api/internal/ingest"
	"github.com/studybridge/studybridge-api/internal/models"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
)

type importCourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
}

type importAgencyRepository interface {
	Create(ctx context.Context, agency *models.Agency) error
	ExistsBySlug(ctx context.Context, slug string, excludeID string) (bool, error)
}

type importCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ImportService runs bulk CSV imports. Records are attempted one at a time in
// input order; a failed insert is counted and logged but never aborts the
// batch.
type ImportService struct {
	courseRepo importCourseRepository
	agencyRepo importAgencyRepository
	cache      importCacheInvalidator
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewImportService constructs the import service.
func NewImportService(courseRepo importCourseRepository, agencyRepo importAgencyRepository, cache importCacheInvalidator, metrics *MetricsService, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		courseRepo: courseRepo,
		agencyRepo: agencyRepo,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
	}
}

// ImportCourses parses the CSV content and inserts each course record.
// A parse error aborts before any insert is attempted.
func (s *ImportService) ImportCourses(ctx context.Context, content string) (*models.UploadStatus, error) {
	records, err := ingest.Parse(content, ingest.CourseSchema())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidCSV.Code, appErrors.ErrInvalidCSV.Status, err.Error())
	}

	status := &models.UploadStatus{Total: len(records)}
	for i, record := range records {
		course := &models.Course{
			CourseName:     record[ingest.ColCourseName],
			UniversityName: record[ingest.ColUniversityName],
			Location:       record[ingest.ColLocation],
			TuitionFee:     record[ingest.ColTuitionFee],
			Duration:       record[ingest.ColDuration],
			DegreeType:     record[ingest.ColDegreeType],
			Description:    record[ingest.ColDescription],
		}
		insertErr := s.courseRepo.Create(ctx, course)
		if insertErr != nil {
			status.Failed++
			s.logger.Error("course import insert failed",
				zap.Int("row", i+2),
				zap.String("course_name", course.CourseName),
				zap.Error(insertErr))
		} else {
			status.Success++
		}
		status.Processed++
		s.metrics.RecordImportRecord("course", insertErr == nil)
	}

	s.invalidateListings(ctx)
	return status, nil
}

// ImportAgencies parses the CSV content and inserts each agency as a pending
// listing. Slugs are derived from names and deduplicated with a numeric
// suffix.
func (s *ImportService) ImportAgencies(ctx context.Context, content string) (*models.UploadStatus, error) {
	records, err := ingest.Parse(content, ingest.AgencySchema())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidCSV.Code, appErrors.ErrInvalidCSV.Status, err.Error())
	}

	status := &models.UploadStatus{Total: len(records)}
	for i, record := range records {
		agency := &models.Agency{
			Name:          record[ingest.ColAgencyName],
			Location:      record[ingest.ColLocation],
			Description:   record[ingest.ColDescription],
			ContactEmail:  record[ingest.ColContactEmail],
			ContactPhone:  record[ingest.ColContactPhone],
			Website:       record[ingest.ColWebsite],
			BusinessHours: record[ingest.ColBusinessHrs],
			Status:        models.AgencyStatusPending,
		}
		if raw := record[ingest.ColPrice]; raw != "" {
			if price, convErr := strconv.Atoi(raw); convErr == nil {
				agency.Price = price
			}
		}
		if raw := record["specializations"]; raw != "" {
			for _, spec := range strings.Split(raw, ";") {
				if spec = strings.TrimSpace(spec); spec != "" {
					agency.Specializations = append(agency.Specializations, spec)
				}
			}
		}

		insertErr := s.insertAgency(ctx, agency)
		if insertErr != nil {
			status.Failed++
			s.logger.Error("agency import insert failed",
				zap.Int("row", i+2),
				zap.String("name", agency.Name),
				zap.Error(insertErr))
		} else {
			status.Success++
		}
		status.Processed++
		s.metrics.RecordImportRecord("agency", insertErr == nil)
	}

	s.invalidateListings(ctx)
	return status, nil
}

func (s *ImportService) insertAgency(ctx context.Context, agency *models.Agency) error {
	slug, err := s.uniqueSlug(ctx, agency.Name)
	if err != nil {
		return err
	}
	agency.Slug = slug
	return s.agencyRepo.Create(ctx, agency)
}

func (s *ImportService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := Slugify(name)
	slug := base
	for attempt := 2; ; attempt++ {
		taken, err := s.agencyRepo.ExistsBySlug(ctx, slug, "")
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(attempt)
	}
}

func (s *ImportService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, listingCachePattern); err != nil {
		s.logger.Warn("listing cache invalidation failed", zap.Error(err))
	}
}

// Slugify converts a display name to a lowercase hyphenated URL slug.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
