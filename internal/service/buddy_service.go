package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studybridge/studybridge-api/internal/models"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
)

type buddyRepository interface {
	Search(ctx context.Context, criteria models.BuddySearch) ([]models.Buddy, error)
	FindByEmail(ctx context.Context, email string) (*models.Buddy, error)
	Create(ctx context.Context, buddy *models.Buddy) error
	Delete(ctx context.Context, id string) error
	ListFormFields(ctx context.Context) ([]models.BuddyFormField, error)
	UpsertFormField(ctx context.Context, field *models.BuddyFormField) error
	DeleteFormField(ctx context.Context, id string) error
}

// RegisterBuddyRequest holds payload for joining the buddy network.
type RegisterBuddyRequest struct {
	FullName           string `json:"full_name" validate:"required"`
	Email              string `json:"email" validate:"required,email"`
	DestinationCountry string `json:"destination_country" validate:"required"`
	University         string `json:"university"`
	FieldOfStudy       string `json:"field_of_study"`
	Intake             string `json:"intake"`
	Interests          string `json:"interests"`
	Bio                string `json:"bio"`
}

// SaveFormFieldRequest holds payload for an admin-managed form field.
type SaveFormFieldRequest struct {
	FieldName  string `json:"field_name" validate:"required"`
	FieldLabel string `json:"field_label" validate:"required"`
	FieldType  string `json:"field_type" validate:"required,oneof=text email select textarea date"`
	IsRequired bool   `json:"is_required"`
	Position   int    `json:"position" validate:"gte=0"`
}

// BuddyService handles the study buddy network and its configurable
// registration form.
type BuddyService struct {
	repo      buddyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBuddyService constructs the buddy service.
func NewBuddyService(repo buddyRepository, validate *validator.Validate, logger *zap.Logger) *BuddyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BuddyService{repo: repo, validator: validate, logger: logger}
}

// Search returns buddies matching the criteria.
func (s *BuddyService) Search(ctx context.Context, criteria models.BuddySearch) ([]models.Buddy, error) {
	buddies, err := s.repo.Search(ctx, criteria)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search buddies")
	}
	return buddies, nil
}

// Register adds a student to the buddy network. One registration per email.
func (s *BuddyService) Register(ctx context.Context, req RegisterBuddyRequest) (*models.Buddy, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid buddy payload")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}

	buddy := &models.Buddy{
		FullName:           req.FullName,
		Email:              req.Email,
		DestinationCountry: req.DestinationCountry,
		University:         req.University,
		FieldOfStudy:       req.FieldOfStudy,
		Intake:             req.Intake,
		Interests:          req.Interests,
		Bio:                req.Bio,
	}
	if err := s.repo.Create(ctx, buddy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register buddy")
	}
	return buddy, nil
}

// Remove deletes a buddy registration.
func (s *BuddyService) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove buddy")
	}
	return nil
}

// FormFields returns the registration form definition in display order.
func (s *BuddyService) FormFields(ctx context.Context) ([]models.BuddyFormField, error) {
	fields, err := s.repo.ListFormFields(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load form fields")
	}
	return fields, nil
}

// SaveFormField creates or updates a form field definition.
func (s *BuddyService) SaveFormField(ctx context.Context, req SaveFormFieldRequest) (*models.BuddyFormField, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid form field payload")
	}
	field := &models.BuddyFormField{
		FieldName:  req.FieldName,
		FieldLabel: req.FieldLabel,
		FieldType:  req.FieldType,
		IsRequired: req.IsRequired,
		Position:   req.Position,
	}
	if err := s.repo.UpsertFormField(ctx, field); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save form field")
	}
	return field, nil
}

// DeleteFormField removes a form field definition.
func (s *BuddyService) DeleteFormField(ctx context.Context, id string) error {
	if err := s.repo.DeleteFormField(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete form field")
	}
	return nil
}
