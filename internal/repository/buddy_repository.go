package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studybridge/studybridge-api/internal/models"
)

const buddyColumns = "id, full_name, email, destination_country, university, field_of_study, intake, interests, bio, created_at, updated_at"

// BuddyRepository manages persistence for buddies and the registration form fields.
type BuddyRepository struct {
	db *sqlx.DB
}

// NewBuddyRepository constructs a BuddyRepository.
func NewBuddyRepository(db *sqlx.DB) *BuddyRepository {
	return &BuddyRepository{db: db}
}

// Search returns buddies matching the provided criteria, newest first.
func (r *BuddyRepository) Search(ctx context.Context, criteria models.BuddySearch) ([]models.Buddy, error) {
	base := "FROM buddies WHERE 1=1"
	var conditions []string
	var args []interface{}

	if criteria.DestinationCountry != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(destination_country) = LOWER($%d)", len(args)+1))
		args = append(args, criteria.DestinationCountry)
	}
	if criteria.University != "" {
		search := "%" + strings.ToLower(criteria.University) + "%"
		conditions = append(conditions, fmt.Sprintf("LOWER(university) LIKE $%d", len(args)+1))
		args = append(args, search)
	}
	if criteria.FieldOfStudy != "" {
		search := "%" + strings.ToLower(criteria.FieldOfStudy) + "%"
		conditions = append(conditions, fmt.Sprintf("LOWER(field_of_study) LIKE $%d", len(args)+1))
		args = append(args, search)
	}
	if criteria.Intake != "" {
		conditions = append(conditions, fmt.Sprintf("intake = $%d", len(args)+1))
		args = append(args, criteria.Intake)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT 100", buddyColumns, base)
	var buddies []models.Buddy
	if err := r.db.SelectContext(ctx, &buddies, query, args...); err != nil {
		return nil, fmt.Errorf("search buddies: %w", err)
	}
	return buddies, nil
}

// FindByEmail fetches a buddy registration by email.
func (r *BuddyRepository) FindByEmail(ctx context.Context, email string) (*models.Buddy, error) {
	query := fmt.Sprintf("SELECT %s FROM buddies WHERE LOWER(email) = LOWER($1)", buddyColumns)
	var buddy models.Buddy
	if err := r.db.GetContext(ctx, &buddy, query, email); err != nil {
		return nil, err
	}
	return &buddy, nil
}

// Create inserts a new buddy registration.
func (r *BuddyRepository) Create(ctx context.Context, buddy *models.Buddy) error {
	if buddy.ID == "" {
		buddy.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if buddy.CreatedAt.IsZero() {
		buddy.CreatedAt = now
	}
	buddy.UpdatedAt = now

	const query = `INSERT INTO buddies (id, full_name, email, destination_country, university, field_of_study, intake, interests, bio, created_at, updated_at)
		VALUES (:id, :full_name, :email, :destination_country, :university, :field_of_study, :intake, :interests, :bio, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, buddy); err != nil {
		return fmt.Errorf("create buddy: %w", err)
	}
	return nil
}

// Delete removes a buddy registration.
func (r *BuddyRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM buddies WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete buddy: %w", err)
	}
	return nil
}

// ListFormFields returns the registration form fields ordered by position.
func (r *BuddyRepository) ListFormFields(ctx context.Context) ([]models.BuddyFormField, error) {
	const query = `SELECT id, field_name, field_label, field_type, is_required, position, created_at FROM buddy_form_fields ORDER BY position`
	var fields []models.BuddyFormField
	if err := r.db.SelectContext(ctx, &fields, query); err != nil {
		return nil, fmt.Errorf("list buddy form fields: %w", err)
	}
	return fields, nil
}

// UpsertFormField creates or replaces a form field definition by name.
func (r *BuddyRepository) UpsertFormField(ctx context.Context, field *models.BuddyFormField) error {
	if field.ID == "" {
		field.ID = uuid.NewString()
	}
	if field.CreatedAt.IsZero() {
		field.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO buddy_form_fields (id, field_name, field_label, field_type, is_required, position, created_at)
		VALUES (:id, :field_name, :field_label, :field_type, :is_required, :position, :created_at)
		ON CONFLICT (field_name) DO UPDATE SET field_label = EXCLUDED.field_label, field_type = EXCLUDED.field_type, is_required = EXCLUDED.is_required, position = EXCLUDED.position`
	if _, err := r.db.NamedExecContext(ctx, query, field); err != nil {
		return fmt.Errorf("upsert buddy form field: %w", err)
	}
	return nil
}

// DeleteFormField removes a form field definition.
func (r *BuddyRepository) DeleteFormField(ctx context.Context, id string) error {
	const query = `DELETE FROM buddy_form_fields WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete buddy form field: %w", err)
	}
	return nil
}
