package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/beam-comb/app/beam"
)

// Converter imports RSS and Atom sources into the BEAM model so they can
// be archived and re-served alongside native BEAM subscriptions.
type Converter struct {
	gofeedParser *gofeed.Parser
}

func NewConverter() *Converter {
	return &Converter{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses RSS/Atom bytes and maps them onto a BEAM feed. feedURL is
// the subscription URL, which becomes the feed's required feed_url since
// XML feeds carry no equivalent.
func (c *Converter) Run(data []byte, feedURL string) (*beam.Feed, error) {
	parsed, err := c.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	converted := &beam.Feed{
		Version: beam.Version,
		Title:   cmp.Or(strings.TrimSpace(parsed.Title), feedURL),
		FeedURL: feedURL,
	}

	if parsed.Description != "" {
		converted.Description = ptr(parsed.Description)
	}
	if parsed.Link != "" {
		converted.HomePageURL = ptr(parsed.Link)
	}
	if parsed.Language != "" {
		converted.Language = ptr(parsed.Language)
	}
	converted.Author = convertAuthor(parsed.Authors)
	if parsed.UpdatedParsed != nil {
		converted.LastUpdated = parsed.UpdatedParsed
	}

	converted.Items = make([]beam.Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entry, ok := c.convertItem(item)
		if !ok {
			slog.Debug("Skipping unconvertible item", "feed_url", feedURL, "guid", item.GUID, "link", item.Link)
			continue
		}
		converted.Items = append(converted.Items, entry)
	}

	return converted, nil
}

// convertItem maps one gofeed item onto a BEAM entry. Items lacking any
// of the required fields (id, title, url, published) cannot be expressed
// in BEAM and are dropped.
func (c *Converter) convertItem(item *gofeed.Item) (beam.Entry, bool) {
	entry := beam.Entry{
		ID:    cmp.Or(item.GUID, item.Link),
		Title: strings.TrimSpace(item.Title),
		URL:   item.Link,
	}

	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}
	if entry.ID == "" || entry.Title == "" || entry.URL == "" || published == nil {
		return beam.Entry{}, false
	}
	entry.Published = *published

	if item.Content != "" {
		entry.Content = ptr(item.Content)
	}
	if item.Description != "" {
		entry.Summary = ptr(item.Description)
	}
	if item.UpdatedParsed != nil && item.PublishedParsed != nil {
		entry.Updated = item.UpdatedParsed
	}
	entry.Author = convertAuthor(item.Authors)
	if item.Categories != nil {
		entry.Tags = item.Categories
	}
	if item.Image != nil && item.Image.URL != "" {
		entry.Image = ptr(item.Image.URL)
	}

	return entry, true
}

func convertAuthor(authors []*gofeed.Person) *beam.Author {
	for _, person := range authors {
		if person == nil {
			continue
		}
		name := strings.TrimSpace(person.Name)
		email := strings.TrimSpace(person.Email)
		if name == "" && email == "" {
			continue
		}
		author := &beam.Author{Name: cmp.Or(name, email)}
		if email != "" {
			author.Email = &email
		}
		return author
	}
	return nil
}

// ContentHash is used for archive deduplication. Only title and url feed
// the hash so that description-only updates do not look like new entries.
func ContentHash(entry beam.Entry) string {
	content := fmt.Sprintf("%s|%s", entry.Title, entry.URL)

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func ptr(s string) *string {
	return &s
}
