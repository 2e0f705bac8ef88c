// Package beam implements the BEAM blog syndication format: the feed
// model, structural validation, and the JSON codec. All operations are
// pure and perform no I/O; fetching and serving live in the layers above.
package beam

import (
	"encoding/json"
	"time"
)

// Version is the protocol revision this package implements. A document
// declaring any other version is rejected outright.
const Version = "1.0"

type Feed struct {
	Version     string
	Title       string
	FeedURL     string
	Description *string
	HomePageURL *string
	Language    *string
	Author      *Author
	LastUpdated *time.Time
	Items       []Entry

	// Extensions holds "_"-prefixed top-level fields verbatim. They are
	// never interpreted, only carried through decode/encode round trips.
	Extensions map[string]json.RawMessage
}

type Entry struct {
	ID          string
	Title       string
	URL         string
	Published   time.Time
	Content     *string
	Summary     *string
	Updated     *time.Time
	Author      *Author
	Tags        []string
	Category    *string
	Image       *string
	ReadingTime *int // minutes, 0 is valid

	Extensions map[string]json.RawMessage
}

// Author is a plain value type, usable at both feed and entry level.
type Author struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	URL   *string `json:"url,omitempty"`
}
