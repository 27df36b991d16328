package models

import "time"

// Buddy is a student looking for travel or study companions.
type Buddy struct {
	ID                 string    `db:"id" json:"id"`
	FullName           string    `db:"full_name" json:"full_name"`
	Email              string    `db:"email" json:"email"`
	DestinationCountry string    `db:"destination_country" json:"destination_country"`
	University         string    `db:"university" json:"university"`
	FieldOfStudy       string    `db:"field_of_study" json:"field_of_study"`
	Intake             string    `db:"intake" json:"intake"`
	Interests          string    `db:"interests" json:"interests"`
	Bio                string    `db:"bio" json:"bio"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// BuddyFormField describes one input on the buddy registration form.
// Admins manage the set; the form renders fields ordered by Position.
type BuddyFormField struct {
	ID         string    `db:"id" json:"id"`
	FieldName  string    `db:"field_name" json:"field_name"`
	FieldLabel string    `db:"field_label" json:"field_label"`
	FieldType  string    `db:"field_type" json:"field_type"`
	IsRequired bool      `db:"is_required" json:"is_required"`
	Position   int       `db:"position" json:"position"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// BuddySearch captures the buddy matching criteria.
type BuddySearch struct {
	DestinationCountry string `json:"destination_country"`
	University         string `json:"university"`
	FieldOfStudy       string `json:"field_of_study"`
	Intake             string `json:"intake"`
}
