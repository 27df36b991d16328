package models

import (
	"time"

	"github.com/lib/pq"
)

// AgencyStatus tracks the moderation state of a listing.
type AgencyStatus string

const (
	AgencyStatusPending  AgencyStatus = "pending"
	AgencyStatusApproved AgencyStatus = "approved"
	AgencyStatusRejected AgencyStatus = "rejected"
)

// Agency represents a consultancy listed in the directory.
type Agency struct {
	ID              string         `db:"id" json:"id"`
	Slug            string         `db:"slug" json:"slug"`
	Name            string         `db:"name" json:"name"`
	Location        string         `db:"location" json:"location"`
	Description     string         `db:"description" json:"description"`
	Rating          float64        `db:"rating" json:"rating"`
	TrustScore      int            `db:"trust_score" json:"trust_score"`
	Price           int            `db:"price" json:"price"`
	Specializations pq.StringArray `db:"specializations" json:"specializations"`
	IsVerified      bool           `db:"is_verified" json:"is_verified"`
	Status          AgencyStatus   `db:"status" json:"status"`
	ContactEmail    string         `db:"contact_email" json:"contact_email"`
	ContactPhone    string         `db:"contact_phone" json:"contact_phone"`
	Website         string         `db:"website" json:"website"`
	BusinessHours   string         `db:"business_hours" json:"business_hours"`
	ImageURL        string         `db:"image_url" json:"image_url"`
	BrochureURL     *string        `db:"brochure_url" json:"brochure_url,omitempty"`
	OwnerID         *string        `db:"owner_id" json:"owner_id,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// AgencyService is a single offering attached to an agency.
type AgencyService struct {
	ID          string    `db:"id" json:"id"`
	AgencyID    string    `db:"agency_id" json:"agency_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AgencyPhoto is a gallery image attached to an agency.
type AgencyPhoto struct {
	ID        string    `db:"id" json:"id"`
	AgencyID  string    `db:"agency_id" json:"agency_id"`
	URL       string    `db:"url" json:"url"`
	Caption   string    `db:"caption" json:"caption"`
	IsCover   bool      `db:"is_cover" json:"is_cover"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AgencyFilter captures admin-side listing criteria.
type AgencyFilter struct {
	Status    *AgencyStatus
	OwnerID   string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ListingFilter mirrors the public directory filter controls.
type ListingFilter struct {
	SearchQuery     string   `json:"search_query"`
	MinRating       float64  `json:"min_rating"`
	MaxPrice        string   `json:"max_price"`
	Specializations []string `json:"specializations"`
	VerifiedOnly    bool     `json:"verified_only"`
	Location        string   `json:"location"`
	Page            int      `json:"page"`
}
