package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type placeRepository struct {
	db *DB
}

var _ PlaceRepository = (*placeRepository)(nil)

// NewPlaceRepository creates a new place repository
func NewPlaceRepository(db *DB) PlaceRepository {
	return &placeRepository{db: db}
}

const placeColumns = `id, slug, name, country, COALESCE(wikipedia_title, ''),
	       is_enriched, last_enriched_at, enrichment_in_progress, lock_acquired_at,
	       created_at, updated_at`

func scanPlace(row interface{ Scan(...interface{}) error }) (*Place, error) {
	var place Place
	err := row.Scan(
		&place.ID, &place.Slug, &place.Name, &place.Country, &place.WikipediaTitle,
		&place.IsEnriched, &place.LastEnrichedAt, &place.EnrichmentInProgress, &place.LockAcquiredAt,
		&place.CreatedAt, &place.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &place, nil
}

// GetPlace retrieves a place by its database ID
func (r *placeRepository) GetPlace(placeID string) (*Place, error) {
	place, err := scanPlace(r.db.QueryRow(`
		SELECT `+placeColumns+`
		FROM places
		WHERE id = $1
	`, placeID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}

	return place, nil
}

// GetPlaceBySlug retrieves a place by its seed identifier
func (r *placeRepository) GetPlaceBySlug(slug string) (*Place, error) {
	place, err := scanPlace(r.db.QueryRow(`
		SELECT `+placeColumns+`
		FROM places
		WHERE slug = $1
	`, slug))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place by slug: %w", err)
	}

	return place, nil
}

// ListPlaces returns all registered places ordered by name
func (r *placeRepository) ListPlaces() ([]Place, error) {
	rows, err := r.db.Query(`
		SELECT ` + placeColumns + `
		FROM places
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	var places []Place
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		places = append(places, *place)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}

	return places, nil
}

// GetPlaceCount returns the total number of registered places
func (r *placeRepository) GetPlaceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM places").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get place count: %w", err)
	}
	return count, nil
}

// UpsertPlace inserts or updates a place definition with change detection.
// Returns the database ID and whether an existing record was modified.
func (r *placeRepository) UpsertPlace(slug, name, country, wikipediaTitle string) (string, bool, error) {
	existing, err := r.GetPlaceBySlug(slug)
	if err != nil {
		return "", false, fmt.Errorf("failed to check existing place: %w", err)
	}

	if existing != nil {
		changed := existing.Name != name || existing.Country != country ||
			existing.WikipediaTitle != wikipediaTitle

		if changed {
			_, err = r.db.Exec(`
				UPDATE places
				SET name = $2, country = $3, wikipedia_title = $4, updated_at = NOW()
				WHERE slug = $1
			`, slug, name, country, wikipediaTitle)
			if err != nil {
				return "", false, fmt.Errorf("failed to update place: %w", err)
			}
		}
		return existing.ID, changed, nil
	}

	id := uuid.NewString()
	_, err = r.db.Exec(`
		INSERT INTO places (id, slug, name, country, wikipedia_title)
		VALUES ($1, $2, $3, $4, $5)
	`, id, slug, name, country, wikipediaTitle)
	if err != nil {
		return "", false, fmt.Errorf("failed to insert place: %w", err)
	}

	return id, false, nil
}

// MarkEnriched records a successful enrichment on the place record
func (r *placeRepository) MarkEnriched(placeID string, enrichedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE places
		SET is_enriched = TRUE, last_enriched_at = $2, updated_at = NOW()
		WHERE id = $1
	`, placeID, enrichedAt)

	if err != nil {
		return fmt.Errorf("failed to mark place enriched: %w", err)
	}

	return nil
}

// TryAcquireLock attempts to take the per-place enrichment lock in a single
// atomic statement. A held lock whose lease is older than staleBefore is
// treated as abandoned and reacquired.
func (r *placeRepository) TryAcquireLock(placeID string, now time.Time, staleBefore time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE places
		SET enrichment_in_progress = TRUE, lock_acquired_at = $2, updated_at = $2
		WHERE id = $1
		  AND (enrichment_in_progress = FALSE
		       OR lock_acquired_at IS NULL
		       OR lock_acquired_at < $3)
	`, placeID, now, staleBefore)
	if err != nil {
		return false, fmt.Errorf("failed to acquire enrichment lock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read lock acquisition result: %w", err)
	}

	return affected == 1, nil
}

// ReleaseLock unconditionally clears the enrichment lock. Releasing an
// already-released lock is a no-op.
func (r *placeRepository) ReleaseLock(placeID string) error {
	_, err := r.db.Exec(`
		UPDATE places
		SET enrichment_in_progress = FALSE, lock_acquired_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, placeID)

	if err != nil {
		return fmt.Errorf("failed to release enrichment lock: %w", err)
	}

	return nil
}

// SweepStaleLocks force-releases locks whose lease expired before staleBefore
// and returns the number of locks cleared
func (r *placeRepository) SweepStaleLocks(staleBefore time.Time) (int, error) {
	result, err := r.db.Exec(`
		UPDATE places
		SET enrichment_in_progress = FALSE, lock_acquired_at = NULL, updated_at = NOW()
		WHERE enrichment_in_progress = TRUE
		  AND lock_acquired_at < $1
	`, staleBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale locks: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read sweep result: %w", err)
	}

	return int(affected), nil
}

// GetPlacesDueForEnrichment returns unlocked places that were never enriched
// or whose content is older than staleBefore
func (r *placeRepository) GetPlacesDueForEnrichment(staleBefore time.Time, limit int) ([]Place, error) {
	rows, err := r.db.Query(`
		SELECT `+placeColumns+`
		FROM places
		WHERE enrichment_in_progress = FALSE
		  AND (is_enriched = FALSE
		       OR last_enriched_at IS NULL
		       OR last_enriched_at < $1)
		ORDER BY COALESCE(last_enriched_at, '1970-01-01'::timestamptz)
		LIMIT $2
	`, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get places due for enrichment: %w", err)
	}
	defer rows.Close()

	var places []Place
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		places = append(places, *place)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}

	return places, nil
}
