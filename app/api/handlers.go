package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trailmark/city-enrichment/app/database"
	"github.com/trailmark/city-enrichment/app/enrichment"
	"github.com/trailmark/city-enrichment/app/geodata"
	"github.com/trailmark/city-enrichment/app/tasks"
)

func NewHandler(placeCache *geodata.Cache, placeRepo database.PlaceRepository,
	enricher EnricherInterface, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		placeRepo:  placeRepo,
		enricher:   enricher,
		placeCache: placeCache,
		scheduler:  scheduler,
	}
}

func (h *Handler) GetEnrichmentStatus(c *gin.Context) {
	placeID := c.Param("id")
	if placeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing place id parameter"})
		return
	}

	report, err := h.enricher.CheckStatus(placeID)
	if err != nil {
		if errors.Is(err, enrichment.ErrPlaceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Place not found"})
			return
		}
		slog.Error("Database error", "operation", "check_status", "place_id", placeID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := gin.H{
		"place_id":         placeID,
		"status":           string(report.Status),
		"needs_enrichment": report.NeedsEnrichment,
	}
	if report.LastEnrichedAt != nil {
		response["last_enriched_at"] = report.LastEnrichedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetEnrichmentContent(c *gin.Context) {
	placeID := c.Param("id")
	if placeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing place id parameter"})
		return
	}

	content, err := h.enricher.GetContent(placeID)
	if err != nil {
		if errors.Is(err, enrichment.ErrPlaceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Place not found"})
			return
		}
		slog.Error("Database error", "operation", "get_content", "place_id", placeID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if content == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Place has no enrichment content yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"place_id":           placeID,
		"description":        content.Description,
		"history":            content.History,
		"geography":          content.Geography,
		"culture":            content.Culture,
		"points_of_interest": content.PointsOfInterest,
		"media":              content.Media,
		"source_url":         content.SourceURL,
		"scraped_at":         content.ScrapedAt.Format(time.RFC3339),
	})
}

func (h *Handler) GetEnrichmentHistory(c *gin.Context) {
	placeID := c.Param("id")
	if placeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing place id parameter"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	entries, err := h.enricher.GetHistory(placeID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_history", "place_id", placeID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	history := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		record := map[string]interface{}{
			"id":           entry.ID,
			"success":      entry.Success,
			"started_at":   entry.StartedAt.Format(time.RFC3339),
			"completed_at": entry.CompletedAt.Format(time.RFC3339),
			"duration_ms":  entry.DurationMs,
			"initiated_by": entry.InitiatedBy,
		}
		if entry.Success {
			record["fields_populated"] = entry.FieldsPopulated
		} else {
			record["error_code"] = entry.ErrorCode
			record["error_message"] = entry.ErrorMessage
		}
		if entry.SourceURL != "" {
			record["source_url"] = entry.SourceURL
		}
		history = append(history, record)
	}

	c.JSON(http.StatusOK, gin.H{
		"place_id": placeID,
		"history":  history,
		"total":    len(history),
	})
}

func (h *Handler) GetEnrichmentStats(c *gin.Context) {
	windowHours, _ := strconv.Atoi(c.DefaultQuery("window_hours", "24"))

	stats, err := h.enricher.GetStats(windowHours)
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window_hours":    windowHours,
		"total":           stats.Total,
		"successful":      stats.Successful,
		"failed":          stats.Failed,
		"avg_duration_ms": stats.AvgDurationMs,
		"success_rate":    stats.SuccessRate,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if placeCount, err := h.placeRepo.GetPlaceCount(); err == nil {
		health["places"] = placeCount
	}

	health["loaded_definitions"] = h.placeCache.GetDefinitionCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListPlaces(c *gin.Context) {
	places, err := h.placeRepo.ListPlaces()
	if err != nil {
		slog.Error("Database error", "operation", "list_places", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	now := time.Now().UTC()
	result := make([]map[string]interface{}, 0, len(places))

	for _, place := range places {
		info := map[string]interface{}{
			"id":      place.ID,
			"slug":    place.Slug,
			"name":    place.Name,
			"country": place.Country,
			"status":  string(enrichment.ResolveStatus(&place, now)),
		}
		if place.LastEnrichedAt != nil {
			info["last_enriched_at"] = place.LastEnrichedAt.Format(time.RFC3339)
		}
		result = append(result, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"places": result,
		"total":  len(result),
	})
}

// APITriggerEnrichment enqueues an enrichment attempt and returns
// immediately. The attempt itself runs on the worker pool; its outcome lands
// in the enrichment history.
func (h *Handler) APITriggerEnrichment(c *gin.Context) {
	placeID := c.Param("id")
	if placeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing place id parameter"})
		return
	}

	place, err := h.placeRepo.GetPlace(placeID)
	if err != nil {
		slog.Error("Database error", "operation", "get_place", "place_id", placeID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if place == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Place not found"})
		return
	}

	enrichTask := tasks.NewEnrichPlaceTask(place.ID, place.Slug, enrichment.TriggerVisit, h.enricher)
	if err := h.scheduler.EnqueueTask(enrichTask); err != nil {
		slog.Error("Error enqueueing enrichment task", "place", place.Slug, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue enrichment task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Enrichment task enqueued",
		"place": gin.H{
			"id":   place.ID,
			"slug": place.Slug,
			"name": place.Name,
		},
		"task": gin.H{
			"id":   enrichTask.ID,
			"type": enrichTask.Type,
		},
	})
}

func (h *Handler) APISweepLocks(c *gin.Context) {
	cleared, err := h.enricher.SweepStaleLocks()
	if err != nil {
		slog.Error("Database error", "operation", "sweep_locks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cleared": cleared,
	})
}
