package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/beam-comb/app/beam"
	"github.com/lysyi3m/beam-comb/app/database"
	"github.com/lysyi3m/beam-comb/app/feed"
)

type ProcessFeedTask struct {
	Task
	FeedConfig *feed.Config
	httpClient *http.Client
	converter  *feed.Converter
	estimator  *feed.ReadingTimeEstimator
	filterer   *feed.Filterer
	feedRepo   database.FeedRepository
	entryRepo  database.EntryRepository
	userAgent  string
}

type fetchResult struct {
	data         []byte
	notModified  bool
	etag         string
	lastModified string
	maxAge       time.Duration
}

func NewProcessFeedTask(feedName string, feedConfig *feed.Config, httpClient *http.Client, converter *feed.Converter, estimator *feed.ReadingTimeEstimator, filterer *feed.Filterer, feedRepo database.FeedRepository, entryRepo database.EntryRepository, userAgent string) *ProcessFeedTask {
	return &ProcessFeedTask{
		Task:       NewTask(TaskTypeProcessFeed, feedName),
		FeedConfig: feedConfig,
		httpClient: httpClient,
		converter:  converter,
		estimator:  estimator,
		filterer:   filterer,
		feedRepo:   feedRepo,
		entryRepo:  entryRepo,
		userAgent:  userAgent,
	}
}

func (t *ProcessFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.FeedConfig.Settings.Enabled {
		slog.Debug("Feed disabled, skipping", "feed", t.FeedName)
		return nil
	}

	stored, err := t.feedRepo.GetFeed(t.FeedName)
	if err != nil {
		return fmt.Errorf("failed to load feed state: %w", err)
	}

	var etag, lastModified string
	if stored != nil {
		etag = stored.ETag
		lastModified = stored.LastModified
	}

	result, err := t.fetchFeed(ctx, t.FeedConfig.URL, etag, lastModified)
	if err != nil {
		t.recordError(err)
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	if result.notModified {
		err = t.feedRepo.UpdateFetchState(t.FeedName, etag, lastModified, t.nextFetchAt(result.maxAge))
		if err != nil {
			return fmt.Errorf("failed to update fetch state: %w", err)
		}

		slog.Info("Task completed",
			"type", "ProcessFeed",
			"feed", t.FeedName,
			"duration", t.GetDuration(),
			"not_modified", true)
		return nil
	}

	beamFeed, err := t.decodeFeed(result.data)
	if err != nil {
		t.recordError(err)
		return fmt.Errorf("failed to decode feed: %w", err)
	}

	err = t.storeFeedMetadata(beamFeed)
	if err != nil {
		return fmt.Errorf("failed to store feed metadata: %w", err)
	}

	duplicateCount := 0
	filteredCount := 0
	newCount := 0

	if len(beamFeed.Items) > 0 {
		var freshEntries []feed.Entry
		position := make(map[string]int, len(beamFeed.Items))

		for i, item := range beamFeed.Items {
			if t.FeedConfig.Settings.EstimateReadingTime {
				t.estimator.Run(&item)
			}

			entry := feed.Entry{
				Entry:       item,
				ContentHash: feed.ContentHash(item),
			}
			position[item.ID] = i

			isDuplicate, err := t.entryRepo.CheckDuplicate(t.FeedName, entry.ContentHash)
			if err != nil {
				return fmt.Errorf("failed to check for duplicates: %w", err)
			}

			if isDuplicate {
				duplicateCount++
			} else {
				freshEntries = append(freshEntries, entry)
			}
		}

		if len(freshEntries) > 0 {
			filteredEntries := t.filterer.Run(freshEntries, t.FeedConfig)

			for _, entry := range filteredEntries {
				if entry.IsFiltered {
					filteredCount++
				} else {
					newCount++
				}
			}

			err = t.storeFilteredEntries(filteredEntries, position)
			if err != nil {
				return fmt.Errorf("failed to store entries: %w", err)
			}
		}
	}

	err = t.feedRepo.UpdateFetchState(t.FeedName, result.etag, result.lastModified, t.nextFetchAt(result.maxAge))
	if err != nil {
		return fmt.Errorf("failed to update fetch state: %w", err)
	}

	slog.Info("Task completed",
		"type", "ProcessFeed",
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"total", len(beamFeed.Items),
		"duplicates", duplicateCount,
		"filtered", filteredCount,
		"new", newCount)

	return nil
}

func (t *ProcessFeedTask) fetchFeed(ctx context.Context, url, etag, lastModified string) (*fetchResult, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.FeedConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)
	if t.FeedConfig.Format == feed.FormatBEAM {
		req.Header.Set("Accept", "application/json")
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	result := &fetchResult{
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		maxAge:       parseMaxAge(resp.Header.Get("Cache-Control")),
	}

	if resp.StatusCode == http.StatusNotModified {
		result.notModified = true
		return result, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	result.data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return result, nil
}

func (t *ProcessFeedTask) decodeFeed(data []byte) (*beam.Feed, error) {
	if t.FeedConfig.Format == feed.FormatRSS {
		return t.converter.Run(data, t.FeedConfig.URL)
	}

	if t.FeedConfig.Settings.Lenient {
		beamFeed, violations, err := beam.DecodeLenient(data)
		if err != nil {
			return nil, err
		}
		for _, v := range violations {
			slog.Debug("Feed violation tolerated", "feed", t.FeedName, "code", string(v.Code), "field", v.Field)
		}
		if len(violations) > 0 {
			slog.Warn("Feed decoded leniently", "feed", t.FeedName, "violations", len(violations))
		}
		return beamFeed, nil
	}

	return beam.Decode(data)
}

func (t *ProcessFeedTask) storeFeedMetadata(beamFeed *beam.Feed) error {
	row, err := database.NewFeedRow(beamFeed)
	if err != nil {
		return fmt.Errorf("failed to map feed: %w", err)
	}

	err = t.feedRepo.UpdateFeedMetadata(t.FeedName, row)
	if err != nil {
		return fmt.Errorf("failed to update feed metadata: %w", err)
	}

	return nil
}

func (t *ProcessFeedTask) storeFilteredEntries(entries []feed.Entry, position map[string]int) error {
	for _, entry := range entries {
		row, err := database.NewEntryRow(entry.Entry, position[entry.ID])
		if err != nil {
			return fmt.Errorf("failed to map entry %q: %w", entry.ID, err)
		}
		row.ContentHash = entry.ContentHash
		row.IsFiltered = entry.IsFiltered
		row.FilterReason = entry.FilterReason

		err = t.entryRepo.UpsertEntry(t.FeedName, row)
		if err != nil {
			return fmt.Errorf("failed to upsert entry: %w", err)
		}
	}

	return nil
}

func (t *ProcessFeedTask) nextFetchAt(maxAge time.Duration) time.Time {
	ttl := time.Duration(t.FeedConfig.Settings.RefreshInterval) * time.Second
	if maxAge > ttl {
		ttl = maxAge
	}
	return time.Now().UTC().Add(ttl)
}

func (t *ProcessFeedTask) recordError(taskErr error) {
	var decodeErr *beam.DecodeError
	message := taskErr.Error()
	if errors.As(taskErr, &decodeErr) && len(decodeErr.Violations) > 0 {
		message = decodeErr.Violations.Error()
	}

	nextFetch := time.Now().UTC().Add(time.Duration(t.FeedConfig.Settings.RefreshInterval) * time.Second)
	if err := t.feedRepo.RecordFeedError(t.FeedName, message, nextFetch); err != nil {
		slog.Error("Failed to record feed error", "feed", t.FeedName, "error", err)
	}
}

func parseMaxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)

		if directive == "no-cache" || directive == "no-store" {
			return 0
		}

		value, ok := strings.CutPrefix(directive, "max-age=")
		if !ok {
			continue
		}
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	return 0
}
