package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studybridge/studybridge-api/internal/models"
)

func newAgencyMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func agencyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "slug", "name", "location", "description", "rating", "trust_score", "price", "specializations", "is_verified", "status", "contact_email", "contact_phone", "website", "business_hours", "image_url", "brochure_url", "owner_id", "created_at", "updated_at"}).
		AddRow("a1", "global-edu", "Global Education Partners", "Mumbai", "Full service consultancy", 4.5, 87, 50000, "{UK,USA}", true, "approved", "info@globaledu.example", "+91 22 1234", "https://globaledu.example", "Mon-Fri 9-6", "", nil, nil, time.Now(), time.Now())
}

func TestAgencyRepositoryList(t *testing.T) {
	db, mock, cleanup := newAgencyMock(t)
	defer cleanup()
	repo := NewAgencyRepository(db)

	status := models.AgencyStatusApproved
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + agencyColumns + " FROM agencies WHERE 1=1 AND status = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(status).
		WillReturnRows(agencyRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM agencies WHERE 1=1 AND status = $1")).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	agencies, total, err := repo.List(context.Background(), models.AgencyFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, agencies, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Global Education Partners", agencies[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgencyRepositoryListSearch(t *testing.T) {
	db, mock, cleanup := newAgencyMock(t)
	defer cleanup()
	repo := NewAgencyRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + agencyColumns + " FROM agencies WHERE 1=1 AND (LOWER(name) LIKE $1 OR LOWER(location) LIKE $1 OR LOWER(contact_email) LIKE $1) ORDER BY trust_score ASC LIMIT 20 OFFSET 0")).
		WithArgs("%global%").
		WillReturnRows(agencyRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM agencies WHERE 1=1 AND (LOWER(name) LIKE $1 OR LOWER(location) LIKE $1 OR LOWER(contact_email) LIKE $1)")).
		WithArgs("%global%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	agencies, total, err := repo.List(context.Background(), models.AgencyFilter{Search: "Global", SortBy: "trust_score", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Len(t, agencies, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgencyRepositoryListApproved(t *testing.T) {
	db, mock, cleanup := newAgencyMock(t)
	defer cleanup()
	repo := NewAgencyRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + agencyColumns + " FROM agencies WHERE status = $1 ORDER BY created_at DESC")).
		WithArgs(models.AgencyStatusApproved).
		WillReturnRows(agencyRows())

	agencies, err := repo.ListApproved(context.Background())
	require.NoError(t, err)
	assert.Len(t, agencies, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgencyRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAgencyMock(t)
	defer cleanup()
	repo := NewAgencyRepository(db)

	mock.ExpectExec("INSERT INTO agencies").
		WillReturnResult(sqlmock.NewResult(1, 1))

	agency := &models.Agency{Name: "Global Education Partners", Slug: "global-edu", Location: "Mumbai", ContactEmail: "info@globaledu.example", Status: models.AgencyStatusPending}
	err := repo.Create(context.Background(), agency)
	require.NoError(t, err)
	assert.NotEmpty(t, agency.ID)
	assert.NotNil(t, agency.Specializations)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgencyRepositoryUpdateTrustScore(t *testing.T) {
	db, mock, cleanup := newAgencyMock(t)
	defer cleanup()
	repo := NewAgencyRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE agencies SET trust_score = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("a1", 87, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateTrustScore(context.Background(), "a1", 87)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgencyRepositoryExistsBySlug(t *testing.T) {
	db, mock, cleanup := newAgencyMock(t)
	defer cleanup()
	repo := NewAgencyRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM agencies WHERE slug = $1 LIMIT 1")).
		WithArgs("global-edu").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	exists, err := repo.ExistsBySlug(context.Background(), "global-edu", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM agencies WHERE slug = $1 AND id <> $2 LIMIT 1")).
		WithArgs("global-edu", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}))

	exists, err = repo.ExistsBySlug(context.Background(), "global-edu", "a1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgencyRepositoryServices(t *testing.T) {
	db, mock, cleanup := newAgencyMock(t)
	defer cleanup()
	repo := NewAgencyRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, agency_id, name, description, created_at FROM agency_services WHERE agency_id = $1 ORDER BY created_at")).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "agency_id", "name", "description", "created_at"}).
			AddRow("s1", "a1", "Visa Assistance", "", time.Now()).
			AddRow("s2", "a1", "IELTS Coaching", "", time.Now()))

	services, err := repo.ListServices(context.Background(), "a1")
	require.NoError(t, err)
	assert.Len(t, services, 2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM agency_services WHERE agency_id = $1")).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountServices(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
