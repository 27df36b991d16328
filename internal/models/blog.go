package models

import (
	"time"

	"github.com/lib/pq"
)

// BlogPost is an editorial article on the knowledge hub.
type BlogPost struct {
	ID        string         `db:"id" json:"id"`
	Slug      string         `db:"slug" json:"slug"`
	Title     string         `db:"title" json:"title"`
	Excerpt   string         `db:"excerpt" json:"excerpt"`
	Body      string         `db:"body" json:"body"`
	CoverURL  string         `db:"cover_url" json:"cover_url"`
	Tags      pq.StringArray `db:"tags" json:"tags"`
	AuthorID  *string        `db:"author_id" json:"author_id,omitempty"`
	Published bool           `db:"published" json:"published"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// BlogFilter captures listing criteria for blog posts.
type BlogFilter struct {
	Tag           string
	PublishedOnly bool
	Search        string
	Page          int
	PageSize      int
}
