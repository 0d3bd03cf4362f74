package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trailmark/city-enrichment/app/cfg"
	"github.com/trailmark/city-enrichment/app/database"
	"github.com/trailmark/city-enrichment/app/enrichment"
	"github.com/trailmark/city-enrichment/app/geodata"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// enrichmentBatchSize caps how many stale places a single scan enqueues
const enrichmentBatchSize = 50

type Scheduler struct {
	placeRepo     database.PlaceRepository
	placeCache    *geodata.Cache
	enricher      EnricherInterface
	interval      time.Duration
	sweepInterval time.Duration
	workerCount   int
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	taskQueue     chan TaskInterface
}

func NewScheduler(placeCache *geodata.Cache, placeRepo database.PlaceRepository,
	enricher EnricherInterface) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		placeRepo:     placeRepo,
		placeCache:    placeCache,
		enricher:      enricher,
		interval:      time.Duration(cfg.SchedulerInterval) * time.Second,
		sweepInterval: time.Duration(cfg.LockSweepInterval) * time.Second,
		workerCount:   cfg.WorkerCount,
		ctx:           ctx,
		cancel:        cancel,
		taskQueue:     make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		sweepTicker := time.NewTicker(s.sweepInterval)
		defer sweepTicker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueStalenessTasks()
			case <-sweepTicker.C:
				s.enqueueSweepTask()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	definitions := s.placeCache.GetDefinitions()
	if len(definitions) == 0 {
		slog.Debug("No place definitions found")
		return
	}

	slog.Debug("Syncing place definitions", "count", len(definitions))

	for _, definition := range definitions {
		if !definition.IsEnabled() {
			slog.Debug("Place disabled, skipping sync", "place", definition.Slug)
			continue
		}

		syncTask := NewSyncPlaceTask(definition, s.placeRepo)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncPlaceTask", "place", definition.Slug, "error", err)
		}
	}
}

func (s *Scheduler) enqueueStalenessTasks() {
	staleBefore := time.Now().UTC().Add(-enrichment.StaleThreshold)

	places, err := s.placeRepo.GetPlacesDueForEnrichment(staleBefore, enrichmentBatchSize)
	if err != nil {
		slog.Warn("Failed to query places due for enrichment", "error", err)
		return
	}
	if len(places) == 0 {
		slog.Debug("No places due for enrichment")
		return
	}

	slog.Debug("Scheduling enrichment for stale places", "count", len(places))

	for _, place := range places {
		enrichTask := NewEnrichPlaceTask(place.ID, place.Slug, enrichment.TriggerStalenessRefresh, s.enricher)
		if err := s.EnqueueTask(enrichTask); err != nil {
			slog.Warn("Failed to enqueue EnrichPlaceTask", "place", place.Slug, "error", err)
		}
	}
}

func (s *Scheduler) enqueueSweepTask() {
	if err := s.EnqueueTask(NewSweepLocksTask(s.enricher)); err != nil {
		slog.Warn("Failed to enqueue SweepLocksTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "place", task.GetPlaceSlug(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
