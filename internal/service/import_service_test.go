package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studybridge/studybridge-api/internal/models"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
)

type mockImportCourseRepo struct {
	created []models.Course
	failOn  map[string]bool
}

func (m *mockImportCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.failOn[course.CourseName] {
		return errors.New("insert rejected")
	}
	m.created = append(m.created, *course)
	return nil
}

type mockImportAgencyRepo struct {
	created []models.Agency
	slugs   map[string]bool
}

func (m *mockImportAgencyRepo) Create(ctx context.Context, agency *models.Agency) error {
	if m.slugs == nil {
		m.slugs = make(map[string]bool)
	}
	m.slugs[agency.Slug] = true
	m.created = append(m.created, *agency)
	return nil
}

func (m *mockImportAgencyRepo) ExistsBySlug(ctx context.Context, slug string, excludeID string) (bool, error) {
	return m.slugs[slug], nil
}

func TestImportCourses(t *testing.T) {
	repo := &mockImportCourseRepo{}
	svc := NewImportService(repo, nil, nil, nil, zap.NewNop())

	csv := "course_name,university_name,location,degree_type\n" +
		"Computer Science,Oxford,UK,Master\n" +
		"Economics,LSE,UK,\n"

	status, err := svc.ImportCourses(context.Background(), csv)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Total)
	assert.Equal(t, 2, status.Processed)
	assert.Equal(t, 2, status.Success)
	assert.Equal(t, 0, status.Failed)
	assert.True(t, status.Done())

	require.Len(t, repo.created, 2)
	assert.Equal(t, "Master", repo.created[0].DegreeType)
	assert.Equal(t, "Bachelor", repo.created[1].DegreeType)
}

func TestImportCoursesBadRecordContinues(t *testing.T) {
	repo := &mockImportCourseRepo{failOn: map[string]bool{"Economics": true}}
	svc := NewImportService(repo, nil, nil, nil, zap.NewNop())

	csv := "course_name,university_name,location\n" +
		"Computer Science,Oxford,UK\n" +
		"Economics,LSE,UK\n" +
		"History,Cambridge,UK\n"

	status, err := svc.ImportCourses(context.Background(), csv)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Total)
	assert.Equal(t, 3, status.Processed)
	assert.Equal(t, 2, status.Success)
	assert.Equal(t, 1, status.Failed)
	require.Len(t, repo.created, 2)
	assert.Equal(t, "History", repo.created[1].CourseName)
}

func TestImportCoursesParseErrorAbortsBatch(t *testing.T) {
	repo := &mockImportCourseRepo{}
	svc := NewImportService(repo, nil, nil, nil, zap.NewNop())

	status, err := svc.ImportCourses(context.Background(), "course_name,location\nCS,UK\n")
	require.Error(t, err)
	assert.Nil(t, status)
	assert.Empty(t, repo.created)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCSV.Code, appErr.Code)
}

func TestImportAgencies(t *testing.T) {
	repo := &mockImportAgencyRepo{}
	svc := NewImportService(nil, repo, nil, nil, zap.NewNop())

	csv := "name,location,description,contact_email,price,specializations\n" +
		"Global Education Partners,Mumbai,Full service,info@globaledu.example,50000,UK;USA\n" +
		"Global Education Partners,Delhi,Branch office,delhi@globaledu.example,,\n"

	status, err := svc.ImportAgencies(context.Background(), csv)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Success)

	require.Len(t, repo.created, 2)
	first, second := repo.created[0], repo.created[1]
	assert.Equal(t, "global-education-partners", first.Slug)
	assert.Equal(t, "global-education-partners-2", second.Slug)
	assert.Equal(t, models.AgencyStatusPending, first.Status)
	assert.Equal(t, 50000, first.Price)
	assert.Equal(t, []string{"UK", "USA"}, []string(first.Specializations))
	assert.Equal(t, 0, second.Price)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "global-education-partners", Slugify("  Global Education Partners "))
	assert.Equal(t, "a-b-c", Slugify("A & B / C!"))
	assert.Equal(t, "1st-choice", Slugify("1st Choice"))
}
