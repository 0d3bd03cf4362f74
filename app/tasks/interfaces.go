package tasks

import (
	"context"

	"github.com/trailmark/city-enrichment/app/enrichment"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API layer to manage background task
// processing.
// Example usage:
//
//	scheduler := NewScheduler(placeCache, placeRepo, enricher)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewEnrichPlaceTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// EnricherInterface covers the enrichment operations the background tasks
// drive
type EnricherInterface interface {
	Enrich(ctx context.Context, placeID string, trigger enrichment.Trigger) enrichment.Result
	SweepStaleLocks() (int, error)
}

var _ EnricherInterface = (*enrichment.Enricher)(nil)
