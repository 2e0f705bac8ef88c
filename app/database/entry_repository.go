package database

import (
	"database/sql"
	"fmt"
)

var _ EntryRepository = (*EntryRepositoryImpl)(nil)

type EntryRepositoryImpl struct {
	db *DB
}

func NewEntryRepository(db *DB) *EntryRepositoryImpl {
	return &EntryRepositoryImpl{db: db}
}

const entryColumns = `
	id, feed_name, entry_id, title, url, published, content, summary,
	updated, author_name, author_email, author_url, tags, category, image,
	reading_time, extensions, content_hash, is_filtered, filter_reason,
	position, created_at`

func (r *EntryRepositoryImpl) GetVisibleEntries(feedName string, limit int) ([]Entry, error) {
	rows, err := r.db.Query(`
		SELECT `+entryColumns+`
		FROM entries
		WHERE feed_name = ? AND is_filtered = 0
		ORDER BY position
		LIMIT ?
	`, feedName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get visible entries: %w", err)
	}
	return collectEntries(rows)
}

func (r *EntryRepositoryImpl) GetAllEntries(feedName string) ([]Entry, error) {
	rows, err := r.db.Query(`
		SELECT `+entryColumns+`
		FROM entries
		WHERE feed_name = ?
		ORDER BY position
	`, feedName)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	return collectEntries(rows)
}

func (r *EntryRepositoryImpl) GetEntryCount(feedName string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE feed_name = ?`, feedName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

func (r *EntryRepositoryImpl) GetEntryStats(feedName string) (total, visible, filtered int, err error) {
	err = r.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_filtered = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN is_filtered = 1 THEN 1 ELSE 0 END), 0)
		FROM entries
		WHERE feed_name = ?
	`, feedName).Scan(&total, &visible, &filtered)
	if err != nil {
		err = fmt.Errorf("failed to get entry stats: %w", err)
	}
	return total, visible, filtered, err
}

func (r *EntryRepositoryImpl) UpsertEntry(feedName string, entry Entry) error {
	_, err := r.db.Exec(`
		INSERT INTO entries (
			feed_name, entry_id, title, url, published, content, summary,
			updated, author_name, author_email, author_url, tags, category,
			image, reading_time, extensions, content_hash, is_filtered,
			filter_reason, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed_name, entry_id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			published = excluded.published,
			content = excluded.content,
			summary = excluded.summary,
			updated = excluded.updated,
			author_name = excluded.author_name,
			author_email = excluded.author_email,
			author_url = excluded.author_url,
			tags = excluded.tags,
			category = excluded.category,
			image = excluded.image,
			reading_time = excluded.reading_time,
			extensions = excluded.extensions,
			content_hash = excluded.content_hash,
			is_filtered = excluded.is_filtered,
			filter_reason = excluded.filter_reason,
			position = excluded.position
	`, feedName, entry.EntryID, entry.Title, entry.URL, entry.Published.UTC(),
		entry.Content, entry.Summary, entry.Updated, entry.AuthorName,
		entry.AuthorEmail, entry.AuthorURL, entry.Tags, entry.Category,
		entry.Image, entry.ReadingTime, entry.Extensions, entry.ContentHash,
		entry.IsFiltered, entry.FilterReason, entry.Position)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

func (r *EntryRepositoryImpl) UpdateEntryFilterStatus(entryID int64, isFiltered bool, filterReason string) error {
	_, err := r.db.Exec(`
		UPDATE entries SET is_filtered = ?, filter_reason = ? WHERE id = ?
	`, isFiltered, filterReason, entryID)
	if err != nil {
		return fmt.Errorf("failed to update entry filter status: %w", err)
	}
	return nil
}

func (r *EntryRepositoryImpl) CheckDuplicate(feedName, contentHash string) (bool, error) {
	var id int64
	err := r.db.QueryRow(`
		SELECT id FROM entries WHERE feed_name = ? AND content_hash = ? LIMIT 1
	`, feedName, contentHash).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	return true, nil
}

func collectEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		err := rows.Scan(
			&entry.ID, &entry.FeedName, &entry.EntryID, &entry.Title,
			&entry.URL, &entry.Published, &entry.Content, &entry.Summary,
			&entry.Updated, &entry.AuthorName, &entry.AuthorEmail,
			&entry.AuthorURL, &entry.Tags, &entry.Category, &entry.Image,
			&entry.ReadingTime, &entry.Extensions, &entry.ContentHash,
			&entry.IsFiltered, &entry.FilterReason, &entry.Position,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
