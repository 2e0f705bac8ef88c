package database

import (
	"time"
)

type Feed struct {
	Name          string // Subscription identifier derived from config filename
	FeedURL       string
	Title         string
	Description   *string
	HomePageURL   *string
	Language      *string
	AuthorName    *string
	AuthorEmail   *string
	AuthorURL     *string
	LastUpdated   *time.Time
	Extensions    []byte // JSON object of "_"-prefixed fields, nil when none
	ETag          string // Conditional request validators from the last fetch
	LastModified  string
	LastError     string
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Entry struct {
	ID           int64
	FeedName     string
	EntryID      string // Protocol-level entry id, unique per feed
	Title        string
	URL          string
	Published    time.Time
	Content      *string
	Summary      *string
	Updated      *time.Time
	AuthorName   *string
	AuthorEmail  *string
	AuthorURL    *string
	Tags         []byte // JSON array, nil when none
	Category     *string
	Image        *string
	ReadingTime  *int
	Extensions   []byte // JSON object of "_"-prefixed fields, nil when none
	ContentHash  string
	IsFiltered   bool
	FilterReason string
	Position     int // Order within the source document
	CreatedAt    time.Time
}
