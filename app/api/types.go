package api

import (
	"github.com/lysyi3m/beam-comb/app/database"
	"github.com/lysyi3m/beam-comb/app/feed"
	"github.com/lysyi3m/beam-comb/app/tasks"
)

type Handler struct {
	feedRepo    database.FeedRepository
	entryRepo   database.EntryRepository
	configCache *feed.ConfigCache
	filterer    *feed.Filterer
	scheduler   tasks.TaskSchedulerInterface
	baseURL     string
}
