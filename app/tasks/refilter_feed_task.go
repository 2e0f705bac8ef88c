package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/beam-comb/app/database"
	"github.com/lysyi3m/beam-comb/app/feed"
)

type RefilterFeedTask struct {
	Task
	FeedConfig *feed.Config
	filterer   *feed.Filterer
	entryRepo  database.EntryRepository
}

func NewRefilterFeedTask(feedName string, feedConfig *feed.Config, filterer *feed.Filterer, entryRepo database.EntryRepository) *RefilterFeedTask {
	return &RefilterFeedTask{
		Task:       NewTask(TaskTypeRefilterFeed, feedName),
		FeedConfig: feedConfig,
		filterer:   filterer,
		entryRepo:  entryRepo,
	}
}

func (t *RefilterFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	rows, err := t.entryRepo.GetAllEntries(t.FeedName)
	if err != nil {
		return fmt.Errorf("failed to get feed entries: %w", err)
	}

	feedEntries := make([]feed.Entry, len(rows))
	for i, row := range rows {
		beamEntry, err := row.ToBeam()
		if err != nil {
			return fmt.Errorf("failed to restore entry %q: %w", row.EntryID, err)
		}
		feedEntries[i] = feed.Entry{
			Entry:       beamEntry,
			ContentHash: row.ContentHash,
		}
	}

	filteredEntries := t.filterer.Run(feedEntries, t.FeedConfig)

	updatedCount := 0
	errorCount := 0

	for i, filteredEntry := range filteredEntries {
		row := rows[i]

		if row.IsFiltered != filteredEntry.IsFiltered || row.FilterReason != filteredEntry.FilterReason {
			err := t.entryRepo.UpdateEntryFilterStatus(row.ID, filteredEntry.IsFiltered, filteredEntry.FilterReason)
			if err != nil {
				slog.Error("Failed to update entry filter status", "entry_id", row.ID, "error", err)
				errorCount++
			} else {
				updatedCount++
			}
		}
	}

	slog.Info("Task completed",
		"type", "RefilterFeed",
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"success", updatedCount,
		"errors", errorCount)

	return nil
}
