package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type logRepository struct {
	db *DB
}

var _ LogRepository = (*logRepository)(nil)

// NewLogRepository creates a new enrichment log repository
func NewLogRepository(db *DB) LogRepository {
	return &logRepository{db: db}
}

// AppendEntry writes a single immutable enrichment attempt record
func (r *logRepository) AppendEntry(entry EnrichmentLogEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.db.Exec(`
		INSERT INTO enrichment_logs (
			id, place_id, success, started_at, completed_at, duration_ms,
			fields_populated, error_message, error_code, source_url, initiated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, id, entry.PlaceID, entry.Success, entry.StartedAt, entry.CompletedAt,
		entry.DurationMs, entry.FieldsPopulated, entry.ErrorMessage,
		entry.ErrorCode, entry.SourceURL, entry.InitiatedBy)

	if err != nil {
		return fmt.Errorf("failed to append enrichment log entry: %w", err)
	}

	return nil
}

// GetHistory returns the most recent enrichment attempts for a place
func (r *logRepository) GetHistory(placeID string, limit int) ([]EnrichmentLogEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, place_id, success, started_at, completed_at, duration_ms,
		       fields_populated, COALESCE(error_message, ''), COALESCE(error_code, ''),
		       COALESCE(source_url, ''), COALESCE(initiated_by, '')
		FROM enrichment_logs
		WHERE place_id = $1
		ORDER BY completed_at DESC
		LIMIT $2
	`, placeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get enrichment history: %w", err)
	}
	defer rows.Close()

	var entries []EnrichmentLogEntry
	for rows.Next() {
		var entry EnrichmentLogEntry
		err := rows.Scan(
			&entry.ID, &entry.PlaceID, &entry.Success, &entry.StartedAt,
			&entry.CompletedAt, &entry.DurationMs, &entry.FieldsPopulated,
			&entry.ErrorMessage, &entry.ErrorCode, &entry.SourceURL, &entry.InitiatedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log rows: %w", err)
	}

	return entries, nil
}

// GetStats aggregates enrichment attempts completed since the given time
func (r *logRepository) GetStats(since time.Time) (EnrichmentStats, error) {
	var stats EnrichmentStats

	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE success),
		       COUNT(*) FILTER (WHERE NOT success),
		       COALESCE(AVG(duration_ms), 0)
		FROM enrichment_logs
		WHERE completed_at >= $1
	`, since).Scan(&stats.Total, &stats.Successful, &stats.Failed, &stats.AvgDurationMs)
	if err != nil {
		return EnrichmentStats{}, fmt.Errorf("failed to get enrichment stats: %w", err)
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.Total)
	}

	return stats, nil
}
