package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ FeedRepository = (*FeedRepositoryImpl)(nil)

type FeedRepositoryImpl struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedRepositoryImpl {
	return &FeedRepositoryImpl{db: db}
}

func (r *FeedRepositoryImpl) GetFeed(feedName string) (*Feed, error) {
	row := r.db.QueryRow(`
		SELECT name, feed_url, title, description, home_page_url, language,
		       author_name, author_email, author_url, last_updated, extensions,
		       etag, last_modified, last_error, last_fetched_at, next_fetch_at,
		       created_at, updated_at
		FROM feeds
		WHERE name = ?
	`, feedName)

	feed, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return feed, nil
}

func (r *FeedRepositoryImpl) GetFeeds() ([]Feed, error) {
	rows, err := r.db.Query(`
		SELECT name, feed_url, title, description, home_page_url, language,
		       author_name, author_email, author_url, last_updated, extensions,
		       etag, last_modified, last_error, last_fetched_at, next_fetch_at,
		       created_at, updated_at
		FROM feeds
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, *feed)
	}
	return feeds, rows.Err()
}

func (r *FeedRepositoryImpl) GetFeedCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM feeds`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}

// UpsertFeed registers a subscription, updating the URL if the
// configuration changed. Metadata columns are left for the fetch cycle.
func (r *FeedRepositoryImpl) UpsertFeed(feedName, feedURL string) error {
	_, err := r.db.Exec(`
		INSERT INTO feeds (name, feed_url)
		VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET
			feed_url = excluded.feed_url,
			updated_at = CURRENT_TIMESTAMP
	`, feedName, feedURL)
	if err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}
	return nil
}

// UpdateFeedMetadata stores the feed-level fields of a successfully
// decoded document.
func (r *FeedRepositoryImpl) UpdateFeedMetadata(feedName string, feed Feed) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET title = ?, description = ?, home_page_url = ?, language = ?,
		    author_name = ?, author_email = ?, author_url = ?,
		    last_updated = ?, extensions = ?, last_error = '',
		    updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, feed.Title, feed.Description, feed.HomePageURL, feed.Language,
		feed.AuthorName, feed.AuthorEmail, feed.AuthorURL,
		feed.LastUpdated, feed.Extensions, feedName)
	if err != nil {
		return fmt.Errorf("failed to update feed metadata: %w", err)
	}
	return nil
}

// UpdateFetchState records conditional request validators and schedules
// the next fetch.
func (r *FeedRepositoryImpl) UpdateFetchState(feedName, etag, lastModified string, nextFetchAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET etag = ?, last_modified = ?, last_fetched_at = CURRENT_TIMESTAMP,
		    next_fetch_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, etag, lastModified, nextFetchAt.UTC(), feedName)
	if err != nil {
		return fmt.Errorf("failed to update fetch state: %w", err)
	}
	return nil
}

func (r *FeedRepositoryImpl) RecordFeedError(feedName, message string, nextFetchAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET last_error = ?, last_fetched_at = CURRENT_TIMESTAMP,
		    next_fetch_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, message, nextFetchAt.UTC(), feedName)
	if err != nil {
		return fmt.Errorf("failed to record feed error: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var feed Feed
	err := row.Scan(
		&feed.Name, &feed.FeedURL, &feed.Title, &feed.Description,
		&feed.HomePageURL, &feed.Language, &feed.AuthorName,
		&feed.AuthorEmail, &feed.AuthorURL, &feed.LastUpdated,
		&feed.Extensions, &feed.ETag, &feed.LastModified, &feed.LastError,
		&feed.LastFetchedAt, &feed.NextFetchAt, &feed.CreatedAt, &feed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &feed, nil
}
