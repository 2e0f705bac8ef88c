package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/beam-comb/app/beam"
	"github.com/lysyi3m/beam-comb/app/cfg"
	"github.com/lysyi3m/beam-comb/app/database"
	"github.com/lysyi3m/beam-comb/app/feed"
	"github.com/lysyi3m/beam-comb/app/tasks"
)

func NewHandler(configCache *feed.ConfigCache, feedRepo database.FeedRepository,
	entryRepo database.EntryRepository, filterer *feed.Filterer,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		feedRepo:    feedRepo,
		entryRepo:   entryRepo,
		configCache: configCache,
		filterer:    filterer,
		scheduler:   scheduler,
		baseURL:     cfg.Get().BaseUrl,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	feedRow, err := h.feedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if feedRow == nil {
		slog.Error("Feed not found in database", "feed", name)
		c.Status(http.StatusNotFound)
		return
	}

	entries, err := h.entryRepo.GetVisibleEntries(name, feedConfig.Settings.MaxEntries)
	if err != nil {
		slog.Error("Database error", "operation", "get_entries", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	beamFeed, err := feedRow.ToBeam(entries)
	if err != nil {
		slog.Error("Feed reconstruction error", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	// The re-served document points at this service, not the upstream.
	if h.baseURL != "" {
		beamFeed.FeedURL = strings.TrimRight(h.baseURL, "/") + "/feeds/" + name
	}

	body, err := beam.Encode(beamFeed)
	if err != nil {
		slog.Error("Feed encoding error", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	sum := sha256.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`

	c.Header("ETag", etag)
	c.Header("Last-Modified", feedRow.UpdatedAt.UTC().Format(http.TimeFormat))
	c.Header("Cache-Control", "max-age="+strconv.Itoa(feedConfig.Settings.RefreshInterval))
	c.Header("X-Feed-Entries", strconv.Itoa(len(entries)))
	c.Header("X-Feed-Name", name)

	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (h *Handler) ValidateFeed(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	beamFeed, err := beam.Decode(data)
	if err != nil {
		var decodeErr *beam.DecodeError
		if !errors.As(err, &decodeErr) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Validation failed"})
			return
		}

		if decodeErr.Malformed() {
			c.JSON(http.StatusBadRequest, gin.H{
				"valid": false,
				"errors": []gin.H{
					{"code": string(beam.CodeMalformedJSON), "message": decodeErr.Error()},
				},
			})
			return
		}

		violations := make([]gin.H, 0, len(decodeErr.Violations))
		for _, v := range decodeErr.Violations {
			violations = append(violations, gin.H{
				"code":  string(v.Code),
				"field": v.Field,
				"value": v.Value,
			})
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"valid":  false,
			"errors": violations,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"version": beamFeed.Version,
		"entries": len(beamFeed.Items),
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	feedRows, err := h.feedRepo.GetFeeds()
	if err != nil {
		slog.Error("Database error", "operation", "get_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	feeds := make([]map[string]interface{}, 0, len(feedRows))
	totalEntries := 0

	for _, row := range feedRows {
		stats := map[string]interface{}{
			"name":            row.Name,
			"title":           row.Title,
			"last_error":      row.LastError,
			"last_fetched_at": row.LastFetchedAt,
			"next_fetch_at":   row.NextFetchAt,
		}

		if feedConfig, err := h.configCache.GetConfig(row.Name); err == nil {
			stats["enabled"] = feedConfig.Settings.Enabled
		}

		if total, visible, filtered, err := h.entryRepo.GetEntryStats(row.Name); err == nil {
			stats["entries"] = map[string]int{
				"total":    total,
				"visible":  visible,
				"filtered": filtered,
			}
			totalEntries += total
		}

		feeds = append(feeds, stats)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds":         feeds,
		"total_feeds":   len(feeds),
		"total_entries": totalEntries,
	})
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	feeds := make([]map[string]interface{}, 0, len(configs))

	for _, feedConfig := range configs {
		feedInfo := map[string]interface{}{
			"name":             feedConfig.Name,
			"url":              feedConfig.URL,
			"format":           feedConfig.Format,
			"title":            "",
			"enabled":          feedConfig.Settings.Enabled,
			"max_entries":      feedConfig.Settings.MaxEntries,
			"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
			"filters":          len(feedConfig.Filters),
		}

		if feedRow, err := h.feedRepo.GetFeed(feedConfig.Name); err == nil && feedRow != nil {
			feedInfo["title"] = feedRow.Title
			feedInfo["last_fetched_at"] = feedRow.LastFetchedAt
			feedInfo["next_fetch_at"] = feedRow.NextFetchAt
			feedInfo["updated_at"] = feedRow.UpdatedAt
		}

		if entryCount, err := h.entryRepo.GetEntryCount(feedConfig.Name); err == nil {
			feedInfo["entry_count"] = entryCount
		}

		feeds = append(feeds, feedInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIGetFeedDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed name parameter"})
		return
	}

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	feedRow, err := h.feedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if feedRow == nil {
		slog.Error("Feed not found in database", "feed", name)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found in database"})
		return
	}

	details := map[string]interface{}{
		"name":             name,
		"url":              feedConfig.URL,
		"format":           feedConfig.Format,
		"title":            feedRow.Title,
		"enabled":          feedConfig.Settings.Enabled,
		"lenient":          feedConfig.Settings.Lenient,
		"max_entries":      feedConfig.Settings.MaxEntries,
		"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
		"timeout":          (time.Duration(feedConfig.Settings.Timeout) * time.Second).String(),
		"filters":          feedConfig.Filters,
	}

	details["database"] = map[string]interface{}{
		"name":            feedRow.Name,
		"last_error":      feedRow.LastError,
		"last_fetched_at": feedRow.LastFetchedAt,
		"next_fetch_at":   feedRow.NextFetchAt,
		"created_at":      feedRow.CreatedAt,
		"updated_at":      feedRow.UpdatedAt,
	}

	if total, visible, filtered, err := h.entryRepo.GetEntryStats(name); err == nil {
		details["entries"] = map[string]interface{}{
			"total":    total,
			"visible":  visible,
			"filtered": filtered,
		}
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIReloadFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed name parameter"})
		return
	}

	feedRow, err := h.feedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if feedRow == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found in database"})
		return
	}

	feedConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	syncFeedTask := tasks.NewSyncFeedConfigTask(name, feedConfig, h.feedRepo)
	err = h.scheduler.EnqueueTask(syncFeedTask)
	if err != nil {
		slog.Error("Error enqueueing sync task", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	refilterFeedTask := tasks.NewRefilterFeedTask(name, feedConfig, h.filterer, h.entryRepo)
	err = h.scheduler.EnqueueTask(refilterFeedTask)
	if err != nil {
		slog.Error("Error enqueueing refilter task", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue refilter task",
			"details": err.Error(),
		})
		return
	}

	response := gin.H{
		"success": true,
		"message": "Configuration reloaded and tasks enqueued successfully",
		"feed": gin.H{
			"name":  name,
			"title": feedRow.Title,
			"url":   feedConfig.URL,
		},
		"tasks": []gin.H{
			{
				"id":   syncFeedTask.ID,
				"type": syncFeedTask.Type,
			},
			{
				"id":   refilterFeedTask.ID,
				"type": refilterFeedTask.Type,
			},
		},
	}

	c.JSON(http.StatusOK, response)
}
