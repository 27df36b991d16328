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

func newReviewMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func reviewRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "agency_id", "author_id", "author_name", "rating", "comment", "status", "created_at", "updated_at"}).
		AddRow("r1", "a1", nil, "Priya", 5, "Excellent guidance", "approved", time.Now(), time.Now())
}

func TestReviewRepositoryList(t *testing.T) {
	db, mock, cleanup := newReviewMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	status := models.ReviewStatusPending
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + reviewColumns + " FROM reviews WHERE 1=1 AND agency_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("a1", status).
		WillReturnRows(reviewRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reviews WHERE 1=1 AND agency_id = $1 AND status = $2")).
		WithArgs("a1", status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	reviews, total, err := repo.List(context.Background(), models.ReviewFilter{AgencyID: "a1", Status: &status})
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryListApprovedByAgency(t *testing.T) {
	db, mock, cleanup := newReviewMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + reviewColumns + " FROM reviews WHERE agency_id = $1 AND status = $2 ORDER BY created_at DESC")).
		WithArgs("a1", models.ReviewStatusApproved).
		WillReturnRows(reviewRows())

	reviews, err := repo.ListApprovedByAgency(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newReviewMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec("INSERT INTO reviews").
		WillReturnResult(sqlmock.NewResult(1, 1))

	review := &models.Review{AgencyID: "a1", AuthorName: "Priya", Rating: 5, Comment: "Excellent guidance", Status: models.ReviewStatusPending}
	err := repo.Create(context.Background(), review)
	require.NoError(t, err)
	assert.NotEmpty(t, review.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newReviewMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("r1", models.ReviewStatusApproved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "r1", models.ReviewStatusApproved)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
