package database

import (
	"time"
)

type FeedRepository interface {
	GetFeed(feedName string) (*Feed, error)
	GetFeeds() ([]Feed, error)
	GetFeedCount() (int, error)

	UpsertFeed(feedName, feedURL string) error
	UpdateFeedMetadata(feedName string, feed Feed) error
	UpdateFetchState(feedName, etag, lastModified string, nextFetchAt time.Time) error
	RecordFeedError(feedName, message string, nextFetchAt time.Time) error
}

type EntryRepository interface {
	GetVisibleEntries(feedName string, limit int) ([]Entry, error)
	GetAllEntries(feedName string) ([]Entry, error)
	GetEntryCount(feedName string) (int, error)
	GetEntryStats(feedName string) (total, visible, filtered int, err error)

	UpsertEntry(feedName string, entry Entry) error
	UpdateEntryFilterStatus(entryID int64, isFiltered bool, filterReason string) error
	CheckDuplicate(feedName, contentHash string) (bool, error)
}
