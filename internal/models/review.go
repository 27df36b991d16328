package models

import "time"

// ReviewStatus tracks moderation state for a review.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// Review is a student-submitted rating for an agency.
type Review struct {
	ID         string       `db:"id" json:"id"`
	AgencyID   string       `db:"agency_id" json:"agency_id"`
	AuthorID   *string      `db:"author_id" json:"author_id,omitempty"`
	AuthorName string       `db:"author_name" json:"author_name"`
	Rating     int          `db:"rating" json:"rating"`
	Comment    string       `db:"comment" json:"comment"`
	Status     ReviewStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// ReviewResponse is an agency owner's reply to a review.
type ReviewResponse struct {
	ID        string    `db:"id" json:"id"`
	ReviewID  string    `db:"review_id" json:"review_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReviewFilter captures listing criteria for reviews.
type ReviewFilter struct {
	AgencyID string
	Status   *ReviewStatus
	Page     int
	PageSize int
}
