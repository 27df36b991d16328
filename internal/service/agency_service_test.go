package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studybridge/studybridge-api/internal/models"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
)

type mockAgencyRepo struct {
	agencies map[string]models.Agency
	services map[string][]models.AgencyService
	photos   map[string][]models.AgencyPhoto
	statuses map[string]models.AgencyStatus
	verified map[string]bool
	deleted  []string
}

func newMockAgencyRepo() *mockAgencyRepo {
	return &mockAgencyRepo{
		agencies: make(map[string]models.Agency),
		services: make(map[string][]models.AgencyService),
		photos:   make(map[string][]models.AgencyPhoto),
		statuses: make(map[string]models.AgencyStatus),
		verified: make(map[string]bool),
	}
}

func (m *mockAgencyRepo) List(ctx context.Context, filter models.AgencyFilter) ([]models.Agency, int, error) {
	out := make([]models.Agency, 0, len(m.agencies))
	for _, a := range m.agencies {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (m *mockAgencyRepo) FindByID(ctx context.Context, id string) (*models.Agency, error) {
	if a, ok := m.agencies[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAgencyRepo) FindBySlug(ctx context.Context, slug string) (*models.Agency, error) {
	for _, a := range m.agencies {
		if a.Slug == slug {
			return &a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAgencyRepo) ExistsBySlug(ctx context.Context, slug string, excludeID string) (bool, error) {
	for _, a := range m.agencies {
		if a.Slug == slug && a.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAgencyRepo) Create(ctx context.Context, agency *models.Agency) error {
	if agency.ID == "" {
		agency.ID = "generated"
	}
	m.agencies[agency.ID] = *agency
	return nil
}

func (m *mockAgencyRepo) Update(ctx context.Context, agency *models.Agency) error {
	m.agencies[agency.ID] = *agency
	return nil
}

func (m *mockAgencyRepo) UpdateStatus(ctx context.Context, id string, status models.AgencyStatus) error {
	m.statuses[id] = status
	a := m.agencies[id]
	a.Status = status
	m.agencies[id] = a
	return nil
}

func (m *mockAgencyRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	m.verified[id] = verified
	a := m.agencies[id]
	a.IsVerified = verified
	m.agencies[id] = a
	return nil
}

func (m *mockAgencyRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.agencies, id)
	return nil
}

func (m *mockAgencyRepo) ListServices(ctx context.Context, agencyID string) ([]models.AgencyService, error) {
	return m.services[agencyID], nil
}

func (m *mockAgencyRepo) CreateService(ctx context.Context, svc *models.AgencyService) error {
	if svc.ID == "" {
		svc.ID = "svc-generated"
	}
	m.services[svc.AgencyID] = append(m.services[svc.AgencyID], *svc)
	return nil
}

func (m *mockAgencyRepo) DeleteService(ctx context.Context, agencyID, serviceID string) error {
	kept := m.services[agencyID][:0]
	for _, svc := range m.services[agencyID] {
		if svc.ID != serviceID {
			kept = append(kept, svc)
		}
	}
	m.services[agencyID] = kept
	return nil
}

func (m *mockAgencyRepo) ListPhotos(ctx context.Context, agencyID string) ([]models.AgencyPhoto, error) {
	return m.photos[agencyID], nil
}

func (m *mockAgencyRepo) CreatePhoto(ctx context.Context, photo *models.AgencyPhoto) error {
	m.photos[photo.AgencyID] = append(m.photos[photo.AgencyID], *photo)
	return nil
}

func (m *mockAgencyRepo) DeletePhoto(ctx context.Context, agencyID, photoID string) error {
	return nil
}

func newAgencyServiceFixture() (*AgencyService, *mockAgencyRepo, *mockTrust, *mockInvalidator) {
	repo := newMockAgencyRepo()
	trust := &mockTrust{}
	listing := &mockInvalidator{}
	svc := NewAgencyService(repo, trust, listing, nil, zap.NewNop())
	return svc, repo, trust, listing
}

func TestAgencyCreate(t *testing.T) {
	svc, repo, _, _ := newAgencyServiceFixture()

	agency, err := svc.Create(context.Background(), CreateAgencyRequest{
		Name:         "Global Education Partners",
		Location:     "Mumbai",
		Description:  "Full service consultancy",
		ContactEmail: "info@globaledu.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "global-education-partners", agency.Slug)
	assert.Equal(t, models.AgencyStatusPending, agency.Status)
	assert.Contains(t, repo.agencies, agency.ID)
}

func TestAgencyCreateDuplicateNameGetsSuffixedSlug(t *testing.T) {
	svc, repo, _, _ := newAgencyServiceFixture()
	repo.agencies["a1"] = models.Agency{ID: "a1", Slug: "global-education-partners"}

	agency, err := svc.Create(context.Background(), CreateAgencyRequest{
		Name:         "Global Education Partners",
		Location:     "Delhi",
		Description:  "Branch office",
		ContactEmail: "delhi@globaledu.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "global-education-partners-2", agency.Slug)
}

func TestAgencyCreateValidation(t *testing.T) {
	svc, _, _, _ := newAgencyServiceFixture()

	_, err := svc.Create(context.Background(), CreateAgencyRequest{Name: "X"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAgencyUpdateStatusInvalidatesListing(t *testing.T) {
	svc, repo, _, listing := newAgencyServiceFixture()
	repo.agencies["a1"] = models.Agency{ID: "a1", Status: models.AgencyStatusPending}

	err := svc.UpdateStatus(context.Background(), "a1", models.AgencyStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.AgencyStatusApproved, repo.statuses["a1"])
	assert.Equal(t, 1, listing.count)
}

func TestAgencySetVerifiedRecomputesTrust(t *testing.T) {
	svc, repo, trust, listing := newAgencyServiceFixture()
	repo.agencies["a1"] = models.Agency{ID: "a1"}

	_, err := svc.SetVerified(context.Background(), "a1", true)
	require.NoError(t, err)
	assert.True(t, repo.verified["a1"])
	assert.Equal(t, []string{"a1"}, trust.recomputed)
	assert.Equal(t, 1, listing.count)
}

func TestAgencyAddRemoveServiceRecomputesTrust(t *testing.T) {
	svc, repo, trust, _ := newAgencyServiceFixture()
	repo.agencies["a1"] = models.Agency{ID: "a1"}

	created, err := svc.AddService(context.Background(), "a1", AddAgencyServiceRequest{Name: "Visa Assistance"}, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, repo.services["a1"], 1)

	err = svc.RemoveService(context.Background(), "a1", created.ID, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, repo.services["a1"])
	assert.Equal(t, []string{"a1", "a1"}, trust.recomputed)
}

func TestAgencyMutationOwnerScoping(t *testing.T) {
	svc, repo, _, _ := newAgencyServiceFixture()
	ownerID := "owner-1"
	repo.agencies["a1"] = models.Agency{ID: "a1", OwnerID: &ownerID}

	_, err := svc.AddService(context.Background(), "a1", AddAgencyServiceRequest{Name: "Visa Assistance"}, "owner-2", models.RoleAgencyOwner)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	_, err = svc.AddService(context.Background(), "a1", AddAgencyServiceRequest{Name: "Visa Assistance"}, ownerID, models.RoleAgencyOwner)
	require.NoError(t, err)
}

func TestAgencyGetNotFound(t *testing.T) {
	svc, _, _, _ := newAgencyServiceFixture()

	_, err := svc.Get(context.Background(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
