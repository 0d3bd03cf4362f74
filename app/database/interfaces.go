package database

import (
	"time"
)

// ContentFields carries the full set of merged content values to persist.
// The merge decision happens before this struct is built; the repository
// writes it as-is in a single statement.
type ContentFields struct {
	Description      string
	History          string
	Geography        string
	Culture          string
	PointsOfInterest map[string][]PointOfInterest
	Media            []string
	SourceURL        string
	ScrapedAt        time.Time
}

type PlaceRepository interface {
	GetPlace(placeID string) (*Place, error)
	GetPlaceBySlug(slug string) (*Place, error)
	ListPlaces() ([]Place, error)
	GetPlaceCount() (int, error)

	UpsertPlace(slug, name, country, wikipediaTitle string) (string, bool, error)
	MarkEnriched(placeID string, enrichedAt time.Time) error

	// TryAcquireLock is a single compare-and-swap: it succeeds when the place
	// is unlocked or its lease timestamp is older than staleBefore.
	TryAcquireLock(placeID string, now time.Time, staleBefore time.Time) (bool, error)
	ReleaseLock(placeID string) error
	SweepStaleLocks(staleBefore time.Time) (int, error)

	GetPlacesDueForEnrichment(staleBefore time.Time, limit int) ([]Place, error)
}

type ContentRepository interface {
	GetContent(placeID string) (*PlaceContent, error)
	UpsertContent(placeID string, fields ContentFields) error
}

type LogRepository interface {
	AppendEntry(entry EnrichmentLogEntry) error
	GetHistory(placeID string, limit int) ([]EnrichmentLogEntry, error)
	GetStats(since time.Time) (EnrichmentStats, error)
}
