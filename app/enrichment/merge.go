package enrichment

import (
	"errors"
	"time"

	"github.com/trailmark/city-enrichment/app/database"
)

var (
	errMissingDescription = errors.New("extracted payload is missing the mandatory description field")
	errEmptyPayload       = errors.New("extracted payload has no populated fields")
)

// ValidatePayload is the gate in front of the merge: the payload must carry a
// non-empty description and at least one populated field, otherwise the whole
// attempt is rejected and nothing is written.
func ValidatePayload(extracted *ExtractedContent) error {
	if extracted == nil || extracted.PopulatedFieldCount() == 0 {
		return WithCode(CodeValidationError, errEmptyPayload)
	}
	if extracted.Description == "" {
		return WithCode(CodeValidationError, errMissingDescription)
	}
	return nil
}

// Merge reconciles freshly extracted content with the stored record field by
// field. Gaps are filled unconditionally; present values are only replaced by
// a non-empty incoming value from a newer harvest. The sourceURL/scrapedAt
// metadata always describes the latest harvest; history lives in the log.
func Merge(existing *database.PlaceContent, extracted *ExtractedContent, sourceURL string, scrapedAt time.Time) database.ContentFields {
	fields := database.ContentFields{
		SourceURL: sourceURL,
		ScrapedAt: scrapedAt,
	}

	if existing == nil {
		fields.Description = extracted.Description
		fields.History = extracted.History
		fields.Geography = extracted.Geography
		fields.Culture = extracted.Culture
		fields.PointsOfInterest = extracted.PointsOfInterest
		fields.Media = extracted.Media
		return fields
	}

	fields.Description = mergeText(existing.Description, extracted.Description, existing.ScrapedAt, scrapedAt)
	fields.History = mergeText(existing.History, extracted.History, existing.ScrapedAt, scrapedAt)
	fields.Geography = mergeText(existing.Geography, extracted.Geography, existing.ScrapedAt, scrapedAt)
	fields.Culture = mergeText(existing.Culture, extracted.Culture, existing.ScrapedAt, scrapedAt)

	if shouldUpdate(len(existing.PointsOfInterest) > 0, len(extracted.PointsOfInterest) > 0, existing.ScrapedAt, scrapedAt) {
		fields.PointsOfInterest = extracted.PointsOfInterest
	} else {
		fields.PointsOfInterest = existing.PointsOfInterest
	}

	if shouldUpdate(len(existing.Media) > 0, len(extracted.Media) > 0, existing.ScrapedAt, scrapedAt) {
		fields.Media = extracted.Media
	} else {
		fields.Media = existing.Media
	}

	return fields
}

func mergeText(existing, incoming string, existingScrapedAt, incomingScrapedAt time.Time) string {
	if shouldUpdate(existing != "", incoming != "", existingScrapedAt, incomingScrapedAt) {
		return incoming
	}
	return existing
}

// shouldUpdate applies the per-field decision rule: fill gaps unconditionally,
// otherwise replace only when the incoming value is present and strictly newer.
// An absent incoming value never regresses known-good content.
func shouldUpdate(existingPresent, incomingPresent bool, existingScrapedAt, incomingScrapedAt time.Time) bool {
	if !existingPresent {
		return true
	}
	if !incomingPresent {
		return false
	}
	return existingScrapedAt.IsZero() || incomingScrapedAt.After(existingScrapedAt)
}
