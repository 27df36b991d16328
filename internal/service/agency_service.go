package service

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studybridge/studybridge-api/internal/models"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
)

type agencyRepository interface {
	List(ctx context.Context, filter models.AgencyFilter) ([]models.Agency, int, error)
	FindByID(ctx context.Context, id string) (*models.Agency, error)
	FindBySlug(ctx context.Context, slug string) (*models.Agency, error)
	ExistsBySlug(ctx context.Context, slug string, excludeID string) (bool, error)
	Create(ctx context.Context, agency *models.Agency) error
	Update(ctx context.Context, agency *models.Agency) error
	UpdateStatus(ctx context.Context, id string, status models.AgencyStatus) error
	SetVerified(ctx context.Context, id string, verified bool) error
	Delete(ctx context.Context, id string) error
	ListServices(ctx context.Context, agencyID string) ([]models.AgencyService, error)
	CreateService(ctx context.Context, svc *models.AgencyService) error
	DeleteService(ctx context.Context, agencyID, serviceID string) error
	ListPhotos(ctx context.Context, agencyID string) ([]models.AgencyPhoto, error)
	CreatePhoto(ctx context.Context, photo *models.AgencyPhoto) error
	DeletePhoto(ctx context.Context, agencyID, photoID string) error
}

type trustRecomputer interface {
	Recompute(ctx context.Context, agencyID string) (int, error)
}

type listingInvalidator interface {
	Invalidate(ctx context.Context)
}

// AgencyDetail bundles an agency with its sub-resources for detail views.
type AgencyDetail struct {
	models.Agency
	Services []models.AgencyService `json:"services"`
	Photos   []models.AgencyPhoto   `json:"photos"`
}

// CreateAgencyRequest holds payload for registering an agency.
type CreateAgencyRequest struct {
	Name            string   `json:"name" validate:"required"`
	Location        string   `json:"location" validate:"required"`
	Description     string   `json:"description" validate:"required"`
	ContactEmail    string   `json:"contact_email" validate:"required,email"`
	ContactPhone    string   `json:"contact_phone"`
	Website         string   `json:"website" validate:"omitempty,url"`
	BusinessHours   string   `json:"business_hours"`
	Price           int      `json:"price" validate:"gte=0"`
	Specializations []string `json:"specializations"`
	ImageURL        string   `json:"image_url"`
	OwnerID         *string  `json:"owner_id,omitempty"`
}

// UpdateAgencyRequest holds payload for editing an agency profile.
type UpdateAgencyRequest struct {
	Name            string   `json:"name" validate:"required"`
	Location        string   `json:"location" validate:"required"`
	Description     string   `json:"description" validate:"required"`
	ContactEmail    string   `json:"contact_email" validate:"required,email"`
	ContactPhone    string   `json:"contact_phone"`
	Website         string   `json:"website" validate:"omitempty,url"`
	BusinessHours   string   `json:"business_hours"`
	Price           int      `json:"price" validate:"gte=0"`
	Specializations []string `json:"specializations"`
	ImageURL        string   `json:"image_url"`
}

// AddAgencyServiceRequest holds payload for attaching a service.
type AddAgencyServiceRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// AddAgencyPhotoRequest holds payload for attaching a gallery image.
type AddAgencyPhotoRequest struct {
	URL     string `json:"url" validate:"required,url"`
	Caption string `json:"caption"`
	IsCover bool   `json:"is_cover"`
}

// AgencyService handles agency profile use-cases and the moderation workflow.
type AgencyService struct {
	repo      agencyRepository
	trust     trustRecomputer
	listing   listingInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAgencyService constructs the agency service.
func NewAgencyService(repo agencyRepository, trust trustRecomputer, listing listingInvalidator, validate *validator.Validate, logger *zap.Logger) *AgencyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgencyService{repo: repo, trust: trust, listing: listing, validator: validate, logger: logger}
}

// List returns agencies and pagination metadata for the admin console.
func (s *AgencyService) List(ctx context.Context, filter models.AgencyFilter) ([]models.Agency, *models.Pagination, error) {
	agencies, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list agencies")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return agencies, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an agency with its services and photos.
func (s *AgencyService) Get(ctx context.Context, id string) (*AgencyDetail, error) {
	agency, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "agency not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agency")
	}
	return s.buildDetail(ctx, agency)
}

// GetBySlug returns an agency detail addressed by URL slug.
func (s *AgencyService) GetBySlug(ctx context.Context, slug string) (*AgencyDetail, error) {
	agency, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "agency not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agency")
	}
	return s.buildDetail(ctx, agency)
}

func (s *AgencyService) buildDetail(ctx context.Context, agency *models.Agency) (*AgencyDetail, error) {
	services, err := s.repo.ListServices(ctx, agency.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agency services")
	}
	photos, err := s.repo.ListPhotos(ctx, agency.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agency photos")
	}
	return &AgencyDetail{Agency: *agency, Services: services, Photos: photos}, nil
}

// Create registers a new agency in pending status.
func (s *AgencyService) Create(ctx context.Context, req CreateAgencyRequest) (*models.Agency, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid agency payload")
	}

	slug, err := s.uniqueSlug(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate slug")
	}

	agency := &models.Agency{
		Slug:            slug,
		Name:            req.Name,
		Location:        req.Location,
		Description:     req.Description,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		Website:         req.Website,
		BusinessHours:   req.BusinessHours,
		Price:           req.Price,
		Specializations: req.Specializations,
		ImageURL:        req.ImageURL,
		OwnerID:         req.OwnerID,
		Status:          models.AgencyStatusPending,
	}
	if err := s.repo.Create(ctx, agency); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create agency")
	}
	return agency, nil
}

// Update edits an agency profile. Renaming reallocates the slug.
func (s *AgencyService) Update(ctx context.Context, id string, req UpdateAgencyRequest, actorID string, role models.UserRole) (*models.Agency, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid agency payload")
	}

	agency, err := s.mustLoadOwned(ctx, id, actorID, role)
	if err != nil {
		return nil, err
	}

	if req.Name != agency.Name {
		slug, err := s.uniqueSlug(ctx, req.Name, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate slug")
		}
		agency.Slug = slug
	}

	agency.Name = req.Name
	agency.Location = req.Location
	agency.Description = req.Description
	agency.ContactEmail = req.ContactEmail
	agency.ContactPhone = req.ContactPhone
	agency.Website = req.Website
	agency.BusinessHours = req.BusinessHours
	agency.Price = req.Price
	agency.Specializations = req.Specializations
	agency.ImageURL = req.ImageURL

	if err := s.repo.Update(ctx, agency); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update agency")
	}

	s.invalidateListing(ctx)
	return agency, nil
}

// UpdateStatus moves an agency through the moderation workflow.
func (s *AgencyService) UpdateStatus(ctx context.Context, id string, status models.AgencyStatus) error {
	if status != models.AgencyStatusApproved && status != models.AgencyStatusRejected && status != models.AgencyStatusPending {
		return appErrors.Clone(appErrors.ErrValidation, "unknown agency status")
	}
	if _, err := s.mustLoad(ctx, id); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update agency status")
	}
	s.invalidateListing(ctx)
	return nil
}

// SetVerified toggles the verification badge and recomputes the trust score.
func (s *AgencyService) SetVerified(ctx context.Context, id string, verified bool) (int, error) {
	if _, err := s.mustLoad(ctx, id); err != nil {
		return 0, err
	}
	if err := s.repo.SetVerified(ctx, id, verified); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update verification")
	}
	score, err := s.trust.Recompute(ctx, id)
	if err != nil {
		return 0, err
	}
	s.invalidateListing(ctx)
	return score, nil
}

// Delete removes an agency and everything attached to it.
func (s *AgencyService) Delete(ctx context.Context, id string) error {
	if _, err := s.mustLoad(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete agency")
	}
	s.invalidateListing(ctx)
	return nil
}

// AddService attaches a service offering and recomputes the trust score.
func (s *AgencyService) AddService(ctx context.Context, agencyID string, req AddAgencyServiceRequest, actorID string, role models.UserRole) (*models.AgencyService, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service payload")
	}
	if _, err := s.mustLoadOwned(ctx, agencyID, actorID, role); err != nil {
		return nil, err
	}
	svc := &models.AgencyService{AgencyID: agencyID, Name: req.Name, Description: req.Description}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add service")
	}
	if _, err := s.trust.Recompute(ctx, agencyID); err != nil {
		return nil, err
	}
	return svc, nil
}

// RemoveService detaches a service offering and recomputes the trust score.
func (s *AgencyService) RemoveService(ctx context.Context, agencyID, serviceID, actorID string, role models.UserRole) error {
	if _, err := s.mustLoadOwned(ctx, agencyID, actorID, role); err != nil {
		return err
	}
	if err := s.repo.DeleteService(ctx, agencyID, serviceID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove service")
	}
	if _, err := s.trust.Recompute(ctx, agencyID); err != nil {
		return err
	}
	return nil
}

// AddPhoto attaches a gallery image.
func (s *AgencyService) AddPhoto(ctx context.Context, agencyID string, req AddAgencyPhotoRequest, actorID string, role models.UserRole) (*models.AgencyPhoto, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid photo payload")
	}
	if _, err := s.mustLoadOwned(ctx, agencyID, actorID, role); err != nil {
		return nil, err
	}
	photo := &models.AgencyPhoto{AgencyID: agencyID, URL: req.URL, Caption: req.Caption, IsCover: req.IsCover}
	if err := s.repo.CreatePhoto(ctx, photo); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add photo")
	}
	return photo, nil
}

// RemovePhoto detaches a gallery image.
func (s *AgencyService) RemovePhoto(ctx context.Context, agencyID, photoID, actorID string, role models.UserRole) error {
	if _, err := s.mustLoadOwned(ctx, agencyID, actorID, role); err != nil {
		return err
	}
	if err := s.repo.DeletePhoto(ctx, agencyID, photoID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove photo")
	}
	return nil
}

func (s *AgencyService) mustLoad(ctx context.Context, id string) (*models.Agency, error) {
	agency, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "agency not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agency")
	}
	return agency, nil
}

// mustLoadOwned loads an agency and enforces that AGENCY_OWNER actors only
// touch their own agency. Admin roles pass through.
func (s *AgencyService) mustLoadOwned(ctx context.Context, id, actorID string, role models.UserRole) (*models.Agency, error) {
	agency, err := s.mustLoad(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == models.RoleAgencyOwner {
		if agency.OwnerID == nil || *agency.OwnerID != actorID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "agency belongs to another owner")
		}
	}
	return agency, nil
}

func (s *AgencyService) uniqueSlug(ctx context.Context, name, excludeID string) (string, error) {
	base := Slugify(name)
	slug := base
	for attempt := 2; ; attempt++ {
		taken, err := s.repo.ExistsBySlug(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(attempt)
	}
}

func (s *AgencyService) invalidateListing(ctx context.Context) {
	if s.listing != nil {
		s.listing.Invalidate(ctx)
	}
}
