package tasks

import (
	"context"
	"log/slog"

	"github.com/trailmark/city-enrichment/app/enrichment"
)

type EnrichPlaceTask struct {
	Task
	PlaceID  string
	Trigger  enrichment.Trigger
	enricher EnricherInterface
}

func NewEnrichPlaceTask(placeID, placeSlug string, trigger enrichment.Trigger, enricher EnricherInterface) *EnrichPlaceTask {
	task := &EnrichPlaceTask{
		Task:     NewTask(TaskTypeEnrichPlace, placeSlug),
		PlaceID:  placeID,
		Trigger:  trigger,
		enricher: enricher,
	}
	// An enrichment attempt is never retried by the queue: every outcome is
	// recorded by the enricher itself, and a failed place is simply picked up
	// again by the next staleness scan or visit
	task.MaxRetries = 0
	return task
}

func (t *EnrichPlaceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result := t.enricher.Enrich(ctx, t.PlaceID, t.Trigger)

	if !result.Success {
		slog.Warn("Task completed with enrichment failure",
			"type", "EnrichPlace",
			"place", t.PlaceSlug,
			"duration", t.GetDuration(),
			"error_code", string(result.ErrorCode))
		return nil
	}

	slog.Info("Task completed",
		"type", "EnrichPlace",
		"place", t.PlaceSlug,
		"duration", t.GetDuration(),
		"fields_populated", result.FieldsPopulated)

	return nil
}
