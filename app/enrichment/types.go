package enrichment

import (
	"time"

	"github.com/trailmark/city-enrichment/app/database"
)

// Trigger identifies what initiated an enrichment attempt
type Trigger string

const (
	TriggerVisit            Trigger = "visit"
	TriggerStalenessRefresh Trigger = "staleness_refresh"
)

// ExtractedContent is the structured payload produced by one extraction run.
// Empty strings, empty slices and empty maps mean "not extracted"; the merge
// never lets them overwrite stored values.
type ExtractedContent struct {
	Description      string
	History          string
	Geography        string
	Culture          string
	PointsOfInterest map[string][]database.PointOfInterest
	Media            []string
}

// PopulatedFieldCount walks the payload structurally: non-empty strings,
// non-empty slices and non-empty group maps each count as one populated field.
func (c *ExtractedContent) PopulatedFieldCount() int {
	if c == nil {
		return 0
	}

	count := 0
	for _, text := range []string{c.Description, c.History, c.Geography, c.Culture} {
		if text != "" {
			count++
		}
	}

	for _, pois := range c.PointsOfInterest {
		if len(pois) > 0 {
			count++
			break
		}
	}

	if len(c.Media) > 0 {
		count++
	}

	return count
}

// Result is the structured outcome of one enrichment attempt. The orchestrator
// never lets a failure escape as an error; callers inspect this instead.
type Result struct {
	Success         bool          `json:"success"`
	Duration        time.Duration `json:"-"`
	DurationMs      int64         `json:"duration_ms"`
	FieldsPopulated int           `json:"fields_populated,omitempty"`
	Error           string        `json:"error,omitempty"`
	ErrorCode       Code          `json:"error_code,omitempty"`
}

// StatusReport is the read-only answer to a status check
type StatusReport struct {
	Status          Status     `json:"status"`
	NeedsEnrichment bool       `json:"needs_enrichment"`
	LastEnrichedAt  *time.Time `json:"last_enriched_at,omitempty"`
}
