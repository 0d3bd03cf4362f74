package enrichment

import (
	"time"

	"github.com/trailmark/city-enrichment/app/database"
)

// Status is the derived enrichment state of a place. It is recomputed on
// every check, never stored.
type Status string

const (
	StatusNeverEnriched Status = "never_enriched"
	StatusInProgress    Status = "in_progress"
	StatusStaleData     Status = "stale_data"
	StatusUpToDate      Status = "up_to_date"
)

// NeedsEnrichment reports whether a new enrichment attempt is warranted
func (s Status) NeedsEnrichment() bool {
	return s != StatusUpToDate
}

// ResolveStatus derives the enrichment status of a place. An in-flight
// enrichment masks staleness so that a running attempt cannot trigger a
// duplicate staleness-driven one.
func ResolveStatus(place *database.Place, now time.Time) Status {
	if place.EnrichmentInProgress {
		return StatusInProgress
	}
	if !place.IsEnriched || place.LastEnrichedAt == nil {
		return StatusNeverEnriched
	}
	if IsStale(place.LastEnrichedAt, now) {
		return StatusStaleData
	}
	return StatusUpToDate
}
