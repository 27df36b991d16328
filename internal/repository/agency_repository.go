package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studybridge/studybridge-api/internal/models"
)

const agencyColumns = "id, slug, name, location, description, rating, trust_score, price, specializations, is_verified, status, contact_email, contact_phone, website, business_hours, image_url, brochure_url, owner_id, created_at, updated_at"

// AgencyRepository manages persistence for agencies and their sub-resources.
type AgencyRepository struct {
	db *sqlx.DB
}

// NewAgencyRepository constructs an AgencyRepository.
func NewAgencyRepository(db *sqlx.DB) *AgencyRepository {
	return &AgencyRepository{db: db}
}

// List returns agencies matching filters along with total count.
func (r *AgencyRepository) List(ctx context.Context, filter models.AgencyFilter) ([]models.Agency, int, error) {
	base := "FROM agencies WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(location) LIKE $%d OR LOWER(contact_email) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]string{
		"name":        "name",
		"location":    "location",
		"trust_score": "trust_score",
		"created_at":  "created_at",
		"updated_at":  "updated_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", agencyColumns, base, column, order, size, offset)
	var agencies []models.Agency
	if err := r.db.SelectContext(ctx, &agencies, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list agencies: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count agencies: %w", err)
	}

	return agencies, total, nil
}

// ListApproved fetches every approved agency, the working set for the public
// directory listing.
func (r *AgencyRepository) ListApproved(ctx context.Context) ([]models.Agency, error) {
	query := fmt.Sprintf("SELECT %s FROM agencies WHERE status = $1 ORDER BY created_at DESC", agencyColumns)
	var agencies []models.Agency
	if err := r.db.SelectContext(ctx, &agencies, query, models.AgencyStatusApproved); err != nil {
		return nil, fmt.Errorf("list approved agencies: %w", err)
	}
	return agencies, nil
}

// FindByID fetches an agency by ID.
func (r *AgencyRepository) FindByID(ctx context.Context, id string) (*models.Agency, error) {
	query := fmt.Sprintf("SELECT %s FROM agencies WHERE id = $1", agencyColumns)
	var agency models.Agency
	if err := r.db.GetContext(ctx, &agency, query, id); err != nil {
		return nil, err
	}
	return &agency, nil
}

// FindBySlug fetches an agency by its URL slug.
func (r *AgencyRepository) FindBySlug(ctx context.Context, slug string) (*models.Agency, error) {
	query := fmt.Sprintf("SELECT %s FROM agencies WHERE slug = $1", agencyColumns)
	var agency models.Agency
	if err := r.db.GetContext(ctx, &agency, query, slug); err != nil {
		return nil, err
	}
	return &agency, nil
}

// ExistsBySlug checks if another agency uses the same slug.
func (r *AgencyRepository) ExistsBySlug(ctx context.Context, slug string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM agencies WHERE slug = $1"
	args := []interface{}{slug}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check agency slug: %w", err)
	}
	return true, nil
}

// Create inserts a new agency record.
func (r *AgencyRepository) Create(ctx context.Context, agency *models.Agency) error {
	if agency.ID == "" {
		agency.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if agency.CreatedAt.IsZero() {
		agency.CreatedAt = now
	}
	agency.UpdatedAt = now
	if agency.Specializations == nil {
		agency.Specializations = []string{}
	}

	const query = `INSERT INTO agencies (id, slug, name, location, description, rating, trust_score, price, specializations, is_verified, status, contact_email, contact_phone, website, business_hours, image_url, brochure_url, owner_id, created_at, updated_at)
		VALUES (:id, :slug, :name, :location, :description, :rating, :trust_score, :price, :specializations, :is_verified, :status, :contact_email, :contact_phone, :website, :business_hours, :image_url, :brochure_url, :owner_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, agency); err != nil {
		return fmt.Errorf("create agency: %w", err)
	}
	return nil
}

// Update modifies an existing agency record.
func (r *AgencyRepository) Update(ctx context.Context, agency *models.Agency) error {
	agency.UpdatedAt = time.Now().UTC()
	const query = `UPDATE agencies SET slug = :slug, name = :name, location = :location, description = :description, price = :price, specializations = :specializations, contact_email = :contact_email, contact_phone = :contact_phone, website = :website, business_hours = :business_hours, image_url = :image_url, brochure_url = :brochure_url, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, agency); err != nil {
		return fmt.Errorf("update agency: %w", err)
	}
	return nil
}

// UpdateStatus moves an agency through the moderation workflow.
func (r *AgencyRepository) UpdateStatus(ctx context.Context, id string, status models.AgencyStatus) error {
	const query = `UPDATE agencies SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update agency status: %w", err)
	}
	return nil
}

// SetVerified toggles the verification flag.
func (r *AgencyRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	const query = `UPDATE agencies SET is_verified = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, verified, time.Now().UTC()); err != nil {
		return fmt.Errorf("set agency verified: %w", err)
	}
	return nil
}

// UpdateTrustScore overwrites the derived trust score.
func (r *AgencyRepository) UpdateTrustScore(ctx context.Context, id string, score int) error {
	const query = `UPDATE agencies SET trust_score = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, score, time.Now().UTC()); err != nil {
		return fmt.Errorf("update trust score: %w", err)
	}
	return nil
}

// UpdateRating overwrites the derived average rating.
func (r *AgencyRepository) UpdateRating(ctx context.Context, id string, rating float64) error {
	const query = `UPDATE agencies SET rating = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, rating, time.Now().UTC()); err != nil {
		return fmt.Errorf("update agency rating: %w", err)
	}
	return nil
}

// Delete removes an agency and cascades to its sub-resources.
func (r *AgencyRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM agencies WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete agency: %w", err)
	}
	return nil
}

// ListServices returns the offerings for an agency.
func (r *AgencyRepository) ListServices(ctx context.Context, agencyID string) ([]models.AgencyService, error) {
	const query = `SELECT id, agency_id, name, description, created_at FROM agency_services WHERE agency_id = $1 ORDER BY created_at`
	var services []models.AgencyService
	if err := r.db.SelectContext(ctx, &services, query, agencyID); err != nil {
		return nil, fmt.Errorf("list agency services: %w", err)
	}
	return services, nil
}

// CountServices returns the number of services attached to an agency.
func (r *AgencyRepository) CountServices(ctx context.Context, agencyID string) (int, error) {
	const query = `SELECT COUNT(*) FROM agency_services WHERE agency_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, agencyID); err != nil {
		return 0, fmt.Errorf("count agency services: %w", err)
	}
	return count, nil
}

// CreateService inserts a new agency service.
func (r *AgencyRepository) CreateService(ctx context.Context, svc *models.AgencyService) error {
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO agency_services (id, agency_id, name, description, created_at) VALUES (:id, :agency_id, :name, :description, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, svc); err != nil {
		return fmt.Errorf("create agency service: %w", err)
	}
	return nil
}

// DeleteService removes an agency service.
func (r *AgencyRepository) DeleteService(ctx context.Context, agencyID, serviceID string) error {
	const query = `DELETE FROM agency_services WHERE id = $1 AND agency_id = $2`
	if _, err := r.db.ExecContext(ctx, query, serviceID, agencyID); err != nil {
		return fmt.Errorf("delete agency service: %w", err)
	}
	return nil
}

// ListPhotos returns the gallery for an agency, cover first.
func (r *AgencyRepository) ListPhotos(ctx context.Context, agencyID string) ([]models.AgencyPhoto, error) {
	const query = `SELECT id, agency_id, url, caption, is_cover, created_at FROM agency_photos WHERE agency_id = $1 ORDER BY is_cover DESC, created_at`
	var photos []models.AgencyPhoto
	if err := r.db.SelectContext(ctx, &photos, query, agencyID); err != nil {
		return nil, fmt.Errorf("list agency photos: %w", err)
	}
	return photos, nil
}

// CreatePhoto inserts a gallery image.
func (r *AgencyRepository) CreatePhoto(ctx context.Context, photo *models.AgencyPhoto) error {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO agency_photos (id, agency_id, url, caption, is_cover, created_at) VALUES (:id, :agency_id, :url, :caption, :is_cover, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, photo); err != nil {
		return fmt.Errorf("create agency photo: %w", err)
	}
	return nil
}

// DeletePhoto removes a gallery image.
func (r *AgencyRepository) DeletePhoto(ctx context.Context, agencyID, photoID string) error {
	const query = `DELETE FROM agency_photos WHERE id = $1 AND agency_id = $2`
	if _, err := r.db.ExecContext(ctx, query, photoID, agencyID); err != nil {
		return fmt.Errorf("delete agency photo: %w", err)
	}
	return nil
}
