package models

import "time"

// Course is a program offered by a partner university.
type Course struct {
	ID             string    `db:"id" json:"id"`
	CourseName     string    `db:"course_name" json:"course_name"`
	UniversityName string    `db:"university_name" json:"university_name"`
	Location       string    `db:"location" json:"location"`
	TuitionFee     string    `db:"tuition_fee" json:"tuition_fee"`
	Duration       string    `db:"duration" json:"duration"`
	DegreeType     string    `db:"degree_type" json:"degree_type"`
	Description    string    `db:"description" json:"description"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures listing criteria for courses.
type CourseFilter struct {
	Search     string
	DegreeType string
	Location   string
	Page       int
	PageSize   int
}
