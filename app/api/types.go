package api

import (
	"github.com/trailmark/city-enrichment/app/database"
	"github.com/trailmark/city-enrichment/app/enrichment"
	"github.com/trailmark/city-enrichment/app/geodata"
	"github.com/trailmark/city-enrichment/app/tasks"
)

// EnricherInterface covers the enrichment operations the HTTP layer exposes
type EnricherInterface interface {
	tasks.EnricherInterface
	CheckStatus(placeID string) (*enrichment.StatusReport, error)
	GetContent(placeID string) (*database.PlaceContent, error)
	GetHistory(placeID string, limit int) ([]database.EnrichmentLogEntry, error)
	GetStats(windowHours int) (database.EnrichmentStats, error)
}

var _ EnricherInterface = (*enrichment.Enricher)(nil)

type Handler struct {
	placeRepo  database.PlaceRepository
	enricher   EnricherInterface
	placeCache *geodata.Cache
	scheduler  tasks.TaskSchedulerInterface
}
