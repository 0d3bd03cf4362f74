package database

import (
	"time"
)

type Place struct {
	ID                   string // Database UUID
	Slug                 string // Seed identifier derived from filename
	Name                 string
	Country              string
	WikipediaTitle       string // Optional explicit article title override
	IsEnriched           bool
	LastEnrichedAt       *time.Time
	EnrichmentInProgress bool
	LockAcquiredAt       *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// PointOfInterest is a single named attraction inside a category group
type PointOfInterest struct {
	Name string `json:"name"`
	Link string `json:"link,omitempty"`
}

type PlaceContent struct {
	ID               string
	PlaceID          string
	Description      string
	History          string
	Geography        string
	Culture          string
	PointsOfInterest map[string][]PointOfInterest
	Media            []string
	SourceURL        string
	ScrapedAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type EnrichmentLogEntry struct {
	ID              string
	PlaceID         string
	Success         bool
	StartedAt       time.Time
	CompletedAt     time.Time
	DurationMs      int64
	FieldsPopulated int
	ErrorMessage    string
	ErrorCode       string
	SourceURL       string
	InitiatedBy     string // "visit" or "staleness_refresh"
}

type EnrichmentStats struct {
	Total         int
	Successful    int
	Failed        int
	AvgDurationMs float64
	SuccessRate   float64
}
