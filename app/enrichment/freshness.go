package enrichment

import (
	"time"
)

// StaleThreshold is the age beyond which enriched content is considered stale
const StaleThreshold = 7 * 24 * time.Hour

// LockTimeout is the lease age beyond which a held enrichment lock is
// presumed abandoned by a crashed worker
const LockTimeout = 5 * time.Minute

// IsStale reports whether content enriched at lastEnrichedAt needs a refresh.
// Content that was never enriched is always stale.
func IsStale(lastEnrichedAt *time.Time, now time.Time) bool {
	if lastEnrichedAt == nil {
		return true
	}
	return now.Sub(*lastEnrichedAt) > StaleThreshold
}
