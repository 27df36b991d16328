package service

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studybridge/studybridge-api/internal/models"
	"github.com/studybridge/studybridge-api/internal/repository"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
	"github.com/studybridge/studybridge-api/pkg/jobs"
	"github.com/studybridge/studybridge-api/pkg/storage"
)

type mockExportJobStore struct {
	jobs   map[string]*models.ExportJob
	nextID string
}

func newMockExportJobStore() *mockExportJobStore {
	return &mockExportJobStore{jobs: map[string]*models.ExportJob{}, nextID: "job-1"}
}

func (m *mockExportJobStore) Create(_ context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = m.nextID
	}
	job.CreatedAt = time.Now().UTC()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockExportJobStore) FindByID(_ context.Context, id string) (*models.ExportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (m *mockExportJobStore) Update(_ context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *mockExportJobStore) ListQueued(_ context.Context, _ int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range m.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (m *mockExportJobStore) ListFinishedBefore(_ context.Context, cutoff time.Time, _ int) ([]models.ExportJob, error) {
	var finished []models.ExportJob
	for _, job := range m.jobs {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			finished = append(finished, *job)
		}
	}
	return finished, nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	fail     bool
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.fail {
		return assert.AnError
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockDirectorySource struct {
	agencies []models.Agency
	err      error
}

func (m *mockDirectorySource) ListApproved(_ context.Context) ([]models.Agency, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.agencies, nil
}

func newTestExportService(t *testing.T, source *mockDirectorySource) (*ExportService, *mockExportJobStore, *mockDispatcher) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newMockExportJobStore()
	queue := &mockDispatcher{}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportService(repo, source, queue, store, signer, nil, ExportConfig{MaxRetries: 2}, nil)
	return svc, repo, queue
}

func exportDirectoryFixture() *mockDirectorySource {
	return &mockDirectorySource{agencies: []models.Agency{
		{
			ID:              "a1",
			Name:            "Meridian Education",
			Location:        "Jakarta",
			Rating:          4.5,
			TrustScore:      88,
			Price:           1200,
			Specializations: []string{"UK", "Australia"},
			IsVerified:      true,
			ContactEmail:    "hello@meridian.example",
			Website:         "https://meridian.example",
		},
		{ID: "a2", Name: "Apex Study", Location: "Surabaya", Rating: 3.9, TrustScore: 64, Price: 800},
	}}
}

func TestExportServiceCreateJob(t *testing.T) {
	svc, repo, queue := newTestExportService(t, exportDirectoryFixture())

	job, err := svc.CreateJob(context.Background(), models.ExportFormatCSV, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)

	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatCSV, stored.Format)
	assert.Equal(t, "u1", stored.CreatedBy)
}

func TestExportServiceCreateJobRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := newTestExportService(t, exportDirectoryFixture())

	_, err := svc.CreateJob(context.Background(), models.ExportFormat("xlsx"), "u1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportServiceHandleFinishesJob(t *testing.T) {
	svc, repo, queue := newTestExportService(t, exportDirectoryFixture())

	job, err := svc.CreateJob(context.Background(), models.ExportFormatCSV, "u1")
	require.NoError(t, err)

	require.NoError(t, svc.Handle(context.Background(), queue.enqueued[0]))

	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	require.NotNil(t, stored.ResultURL)
	assert.True(t, strings.HasPrefix(*stored.ResultURL, "/api/v1/export/"))
	require.NotNil(t, stored.FinishedAt)
}

func TestExportServiceResolveDownload(t *testing.T) {
	svc, repo, queue := newTestExportService(t, exportDirectoryFixture())

	job, err := svc.CreateJob(context.Background(), models.ExportFormatCSV, "u1")
	require.NoError(t, err)
	require.NoError(t, svc.Handle(context.Background(), queue.enqueued[0]))

	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	token := (*stored.ResultURL)[strings.LastIndex(*stored.ResultURL, "/")+1:]

	download, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()

	assert.Equal(t, models.ExportFormatCSV, download.Format)
	assert.Equal(t, ".csv", filepath.Ext(download.Filename))

	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Meridian Education")
	assert.Contains(t, string(content), "UK; Australia")
}

func TestExportServiceResolveDownloadRejectsGarbageToken(t *testing.T) {
	svc, _, _ := newTestExportService(t, exportDirectoryFixture())

	_, err := svc.ResolveDownload(context.Background(), "not-a-token")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestExportServiceHandleFailsAfterRetries(t *testing.T) {
	source := &mockDirectorySource{err: os.ErrDeadlineExceeded}
	svc, repo, queue := newTestExportService(t, source)

	job, err := svc.CreateJob(context.Background(), models.ExportFormatPDF, "u1")
	require.NoError(t, err)

	queued := queue.enqueued[0]
	queued.Attempt = 2
	require.Error(t, svc.Handle(context.Background(), queued))

	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
}

func TestExportServiceHandleRequeuesBeforeRetryLimit(t *testing.T) {
	source := &mockDirectorySource{err: os.ErrDeadlineExceeded}
	svc, repo, queue := newTestExportService(t, source)

	job, err := svc.CreateJob(context.Background(), models.ExportFormatCSV, "u1")
	require.NoError(t, err)

	require.Error(t, svc.Handle(context.Background(), queue.enqueued[0]))

	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, stored.Status)
}

func TestExportServiceGetStatusOwnership(t *testing.T) {
	svc, _, _ := newTestExportService(t, exportDirectoryFixture())

	job, err := svc.CreateJob(context.Background(), models.ExportFormatCSV, "owner")
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), job.ID, "owner", models.RoleAgencyOwner)
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), job.ID, "someone-else", models.RoleStudent)
	require.Error(t, err)

	_, err = svc.GetStatus(context.Background(), job.ID, "someone-else", models.RoleAdmin)
	require.NoError(t, err)
}
