package database

import (
	"encoding/json"
	"fmt"

	"github.com/lysyi3m/beam-comb/app/beam"
)

// Mapping between archive rows and the protocol model. JSON-shaped
// columns (tags, extensions) are stored as raw JSON text so extension
// payloads survive the archive byte-for-byte.

func NewFeedRow(feed *beam.Feed) (Feed, error) {
	row := Feed{
		FeedURL:     feed.FeedURL,
		Title:       feed.Title,
		Description: feed.Description,
		HomePageURL: feed.HomePageURL,
		Language:    feed.Language,
		LastUpdated: feed.LastUpdated,
	}
	row.AuthorName, row.AuthorEmail, row.AuthorURL = flattenAuthor(feed.Author)

	ext, err := marshalExtensions(feed.Extensions)
	if err != nil {
		return Feed{}, fmt.Errorf("failed to encode feed extensions: %w", err)
	}
	row.Extensions = ext

	return row, nil
}

func NewEntryRow(entry beam.Entry, position int) (Entry, error) {
	row := Entry{
		EntryID:     entry.ID,
		Title:       entry.Title,
		URL:         entry.URL,
		Published:   entry.Published,
		Content:     entry.Content,
		Summary:     entry.Summary,
		Updated:     entry.Updated,
		Category:    entry.Category,
		Image:       entry.Image,
		ReadingTime: entry.ReadingTime,
		Position:    position,
	}
	row.AuthorName, row.AuthorEmail, row.AuthorURL = flattenAuthor(entry.Author)

	if entry.Tags != nil {
		tags, err := json.Marshal(entry.Tags)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to encode tags: %w", err)
		}
		row.Tags = tags
	}

	ext, err := marshalExtensions(entry.Extensions)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode entry extensions: %w", err)
	}
	row.Extensions = ext

	return row, nil
}

// ToBeam reconstructs the protocol feed from archive rows. Entry order
// follows the rows as given, which the repositories return by position.
func (f Feed) ToBeam(entries []Entry) (*beam.Feed, error) {
	feed := &beam.Feed{
		Version:     beam.Version,
		Title:       f.Title,
		FeedURL:     f.FeedURL,
		Description: f.Description,
		HomePageURL: f.HomePageURL,
		Language:    f.Language,
		Author:      unflattenAuthor(f.AuthorName, f.AuthorEmail, f.AuthorURL),
		LastUpdated: f.LastUpdated,
		Items:       make([]beam.Entry, 0, len(entries)),
	}

	ext, err := unmarshalExtensions(f.Extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to decode feed extensions: %w", err)
	}
	feed.Extensions = ext

	for _, row := range entries {
		entry, err := row.ToBeam()
		if err != nil {
			return nil, err
		}
		feed.Items = append(feed.Items, entry)
	}

	return feed, nil
}

func (e Entry) ToBeam() (beam.Entry, error) {
	entry := beam.Entry{
		ID:          e.EntryID,
		Title:       e.Title,
		URL:         e.URL,
		Published:   e.Published,
		Content:     e.Content,
		Summary:     e.Summary,
		Updated:     e.Updated,
		Author:      unflattenAuthor(e.AuthorName, e.AuthorEmail, e.AuthorURL),
		Category:    e.Category,
		Image:       e.Image,
		ReadingTime: e.ReadingTime,
	}

	if e.Tags != nil {
		if err := json.Unmarshal(e.Tags, &entry.Tags); err != nil {
			return beam.Entry{}, fmt.Errorf("failed to decode tags for entry %s: %w", e.EntryID, err)
		}
	}

	ext, err := unmarshalExtensions(e.Extensions)
	if err != nil {
		return beam.Entry{}, fmt.Errorf("failed to decode extensions for entry %s: %w", e.EntryID, err)
	}
	entry.Extensions = ext

	return entry, nil
}

func flattenAuthor(author *beam.Author) (name, email, url *string) {
	if author == nil {
		return nil, nil, nil
	}
	name = &author.Name
	return name, author.Email, author.URL
}

func unflattenAuthor(name, email, url *string) *beam.Author {
	if name == nil || *name == "" {
		return nil
	}
	return &beam.Author{Name: *name, Email: email, URL: url}
}

func marshalExtensions(ext map[string]json.RawMessage) ([]byte, error) {
	if len(ext) == 0 {
		return nil, nil
	}
	return json.Marshal(ext)
}

func unmarshalExtensions(data []byte) (map[string]json.RawMessage, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var ext map[string]json.RawMessage
	if err := json.Unmarshal(data, &ext); err != nil {
		return nil, err
	}
	return ext, nil
}
