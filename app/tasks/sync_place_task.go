package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trailmark/city-enrichment/app/database"
	"github.com/trailmark/city-enrichment/app/geodata"
)

type SyncPlaceTask struct {
	Task
	Definition *geodata.PlaceDefinition
	placeRepo  database.PlaceRepository
}

func NewSyncPlaceTask(definition *geodata.PlaceDefinition, placeRepo database.PlaceRepository) *SyncPlaceTask {
	return &SyncPlaceTask{
		Task:       NewTask(TaskTypeSyncPlace, definition.Slug),
		Definition: definition,
		placeRepo:  placeRepo,
	}
}

func (t *SyncPlaceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, changed, err := t.placeRepo.UpsertPlace(
		t.Definition.Slug,
		t.Definition.Name,
		t.Definition.Country,
		t.Definition.WikipediaTitle)
	if err != nil {
		slog.Error("Task failed", "type", "SyncPlace", "place", t.PlaceSlug, "error", err)
		return fmt.Errorf("failed to sync place definition to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncPlace",
		"place", t.PlaceSlug,
		"duration", t.GetDuration(),
		"changed", changed)

	return nil
}
