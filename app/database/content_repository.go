package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type contentRepository struct {
	db *DB
}

var _ ContentRepository = (*contentRepository)(nil)

// NewContentRepository creates a new place content repository
func NewContentRepository(db *DB) ContentRepository {
	return &contentRepository{db: db}
}

// GetContent retrieves the enrichment content for a place, or nil if the
// place was never successfully enriched
func (r *contentRepository) GetContent(placeID string) (*PlaceContent, error) {
	var content PlaceContent
	var poisRaw []byte

	err := r.db.QueryRow(`
		SELECT id, place_id, COALESCE(description, ''), COALESCE(history, ''),
		       COALESCE(geography, ''), COALESCE(culture, ''),
		       points_of_interest, COALESCE(media, '{}'),
		       COALESCE(source_url, ''), scraped_at, created_at, updated_at
		FROM place_contents
		WHERE place_id = $1
	`, placeID).Scan(
		&content.ID, &content.PlaceID, &content.Description, &content.History,
		&content.Geography, &content.Culture,
		&poisRaw, pq.Array(&content.Media),
		&content.SourceURL, &content.ScrapedAt, &content.CreatedAt, &content.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place content: %w", err)
	}

	if len(poisRaw) > 0 {
		if err := json.Unmarshal(poisRaw, &content.PointsOfInterest); err != nil {
			return nil, fmt.Errorf("failed to decode points of interest: %w", err)
		}
	}

	return &content, nil
}

// UpsertContent writes the merged content fields in a single statement.
// The first successful enrichment inserts the row; later ones update it
// in place.
func (r *contentRepository) UpsertContent(placeID string, fields ContentFields) error {
	pois := fields.PointsOfInterest
	if pois == nil {
		pois = map[string][]PointOfInterest{}
	}
	poisRaw, err := json.Marshal(pois)
	if err != nil {
		return fmt.Errorf("failed to encode points of interest: %w", err)
	}

	media := fields.Media
	if media == nil {
		media = []string{}
	}

	_, err = r.db.Exec(`
		INSERT INTO place_contents (
			id, place_id, description, history, geography, culture,
			points_of_interest, media, source_url, scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (place_id) DO UPDATE SET
			description = EXCLUDED.description,
			history = EXCLUDED.history,
			geography = EXCLUDED.geography,
			culture = EXCLUDED.culture,
			points_of_interest = EXCLUDED.points_of_interest,
			media = EXCLUDED.media,
			source_url = EXCLUDED.source_url,
			scraped_at = EXCLUDED.scraped_at,
			updated_at = NOW()
	`, uuid.NewString(), placeID, fields.Description, fields.History,
		fields.Geography, fields.Culture, poisRaw, pq.Array(media),
		fields.SourceURL, fields.ScrapedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert place content: %w", err)
	}

	return nil
}
