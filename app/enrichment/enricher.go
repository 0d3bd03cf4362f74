package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/trailmark/city-enrichment/app/database"
)

// ErrPlaceNotFound is returned by read operations for unknown place IDs
var ErrPlaceNotFound = errors.New("place not found")

// FetcherInterface retrieves raw article data for a target URL
type FetcherInterface interface {
	Run(ctx context.Context, pageURL string) ([]byte, error)
}

// ExtractorInterface turns raw article data into the structured payload
type ExtractorInterface interface {
	Run(data []byte) (*ExtractedContent, error)
}

var (
	_ FetcherInterface   = (*PageFetcher)(nil)
	_ ExtractorInterface = (*Extractor)(nil)
)

// Enricher is the top-level enrichment workflow: resolve status, acquire the
// per-place lock, fetch, extract, validate, merge, persist, log, release.
// Failures never escape as errors; every attempt resolves to a Result.
type Enricher struct {
	placeRepo   database.PlaceRepository
	contentRepo database.ContentRepository
	logRepo     database.LogRepository
	urlBuilder  *URLBuilder
	fetcher     FetcherInterface
	extractor   ExtractorInterface
	now         func() time.Time
}

func NewEnricher(placeRepo database.PlaceRepository, contentRepo database.ContentRepository,
	logRepo database.LogRepository, urlBuilder *URLBuilder, fetcher FetcherInterface,
	extractor ExtractorInterface) *Enricher {
	return &Enricher{
		placeRepo:   placeRepo,
		contentRepo: contentRepo,
		logRepo:     logRepo,
		urlBuilder:  urlBuilder,
		fetcher:     fetcher,
		extractor:   extractor,
		now:         time.Now,
	}
}

// Enrich runs the full workflow for one place. Safe to call redundantly: a
// concurrent attempt for the same place fails fast on the lock instead of
// waiting, and a failed attempt simply leaves the place stale for the next
// trigger. No retries happen here.
func (e *Enricher) Enrich(ctx context.Context, placeID string, trigger Trigger) Result {
	startedAt := e.now()

	place, err := e.placeRepo.GetPlace(placeID)
	if err != nil {
		return e.fail(placeID, "", trigger, startedAt, WithCode(CodeDatabaseError, err))
	}
	if place == nil {
		return e.fail(placeID, "", trigger, startedAt, WithCode(CodeCityNotFound, fmt.Errorf("place %s does not exist", placeID)))
	}

	acquired, err := e.placeRepo.TryAcquireLock(placeID, startedAt, startedAt.Add(-LockTimeout))
	if err != nil {
		return e.fail(placeID, "", trigger, startedAt, WithCode(CodeDatabaseError, err))
	}
	if !acquired {
		return e.fail(placeID, "", trigger, startedAt,
			WithCode(CodeLockAcquisitionFailed, fmt.Errorf("enrichment already in progress for place %s", placeID)))
	}

	sourceURL := e.urlBuilder.Run(place.Name, place.Country, place.WikipediaTitle)

	// The lock is released no matter how the attempt ends
	defer func() {
		if err := e.placeRepo.ReleaseLock(placeID); err != nil {
			slog.Error("Failed to release enrichment lock", "place_id", placeID, "error", err)
		}
	}()

	fieldsPopulated, err := e.runLocked(ctx, place, sourceURL)
	if err != nil {
		return e.fail(placeID, sourceURL, trigger, startedAt, err)
	}

	completedAt := e.now()
	duration := completedAt.Sub(startedAt)

	e.appendLog(database.EnrichmentLogEntry{
		PlaceID:         placeID,
		Success:         true,
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
		DurationMs:      duration.Milliseconds(),
		FieldsPopulated: fieldsPopulated,
		SourceURL:       sourceURL,
		InitiatedBy:     string(trigger),
	})

	slog.Info("Enrichment completed",
		"place", place.Slug,
		"duration", duration,
		"fields_populated", fieldsPopulated,
		"initiated_by", string(trigger))

	return Result{
		Success:         true,
		Duration:        duration,
		DurationMs:      duration.Milliseconds(),
		FieldsPopulated: fieldsPopulated,
	}
}

// runLocked executes the fetch-extract-validate-merge-persist sequence while
// the lock is held
func (e *Enricher) runLocked(ctx context.Context, place *database.Place, sourceURL string) (int, error) {
	data, err := e.fetcher.Run(ctx, sourceURL)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch article: %w", err)
	}

	extracted, err := e.extractor.Run(data)
	if err != nil {
		return 0, fmt.Errorf("failed to extract content: %w", err)
	}

	if err := ValidatePayload(extracted); err != nil {
		return 0, err
	}

	existing, err := e.contentRepo.GetContent(place.ID)
	if err != nil {
		return 0, WithCode(CodeDatabaseError, err)
	}

	scrapedAt := e.now()
	fields := Merge(existing, extracted, sourceURL, scrapedAt)

	if err := e.contentRepo.UpsertContent(place.ID, fields); err != nil {
		return 0, WithCode(CodeDatabaseError, err)
	}

	if err := e.placeRepo.MarkEnriched(place.ID, scrapedAt); err != nil {
		return 0, WithCode(CodeDatabaseError, err)
	}

	return extracted.PopulatedFieldCount(), nil
}

// fail converts an attempt failure into a structured result and records it
func (e *Enricher) fail(placeID, sourceURL string, trigger Trigger, startedAt time.Time, err error) Result {
	completedAt := e.now()
	duration := completedAt.Sub(startedAt)
	code := Classify(err)

	e.appendLog(database.EnrichmentLogEntry{
		PlaceID:      placeID,
		Success:      false,
		StartedAt:    startedAt,
		CompletedAt:  completedAt,
		DurationMs:   duration.Milliseconds(),
		ErrorMessage: err.Error(),
		ErrorCode:    string(code),
		SourceURL:    sourceURL,
		InitiatedBy:  string(trigger),
	})

	slog.Warn("Enrichment failed",
		"place_id", placeID,
		"error_code", string(code),
		"duration", duration,
		"error", err)

	return Result{
		Success:    false,
		Duration:   duration,
		DurationMs: duration.Milliseconds(),
		Error:      err.Error(),
		ErrorCode:  code,
	}
}

// appendLog writes an attempt record. Logging is best-effort: its failures
// are reported locally and swallowed so a logging outage can never abort or
// fail an enrichment.
func (e *Enricher) appendLog(entry database.EnrichmentLogEntry) {
	if err := e.logRepo.AppendEntry(entry); err != nil {
		slog.Error("Failed to append enrichment log entry", "place_id", entry.PlaceID, "error", err)
	}
}

// CheckStatus resolves the current enrichment status of a place. Read-only.
func (e *Enricher) CheckStatus(placeID string) (*StatusReport, error) {
	place, err := e.placeRepo.GetPlace(placeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load place: %w", err)
	}
	if place == nil {
		return nil, ErrPlaceNotFound
	}

	status := ResolveStatus(place, e.now())
	return &StatusReport{
		Status:          status,
		NeedsEnrichment: status.NeedsEnrichment(),
		LastEnrichedAt:  place.LastEnrichedAt,
	}, nil
}

// GetContent returns the stored enrichment content, or nil when the place
// was never successfully enriched
func (e *Enricher) GetContent(placeID string) (*database.PlaceContent, error) {
	place, err := e.placeRepo.GetPlace(placeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load place: %w", err)
	}
	if place == nil {
		return nil, ErrPlaceNotFound
	}

	return e.contentRepo.GetContent(placeID)
}

// GetHistory returns the most recent enrichment attempts for a place
func (e *Enricher) GetHistory(placeID string, limit int) ([]database.EnrichmentLogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.logRepo.GetHistory(placeID, limit)
}

// GetStats aggregates attempts over the trailing window
func (e *Enricher) GetStats(windowHours int) (database.EnrichmentStats, error) {
	if windowHours <= 0 {
		windowHours = 24
	}
	since := e.now().Add(-time.Duration(windowHours) * time.Hour)
	return e.logRepo.GetStats(since)
}

// SweepStaleLocks force-releases locks whose lease expired. This is the
// safety net for crashed workers on places that are never visited again
// while locked.
func (e *Enricher) SweepStaleLocks() (int, error) {
	return e.placeRepo.SweepStaleLocks(e.now().Add(-LockTimeout))
}
