package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type SweepLocksTask struct {
	Task
	enricher EnricherInterface
}

func NewSweepLocksTask(enricher EnricherInterface) *SweepLocksTask {
	return &SweepLocksTask{
		Task:     NewTask(TaskTypeSweepLocks, ""),
		enricher: enricher,
	}
}

func (t *SweepLocksTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cleared, err := t.enricher.SweepStaleLocks()
	if err != nil {
		slog.Error("Task failed", "type", "SweepLocks", "error", err)
		return fmt.Errorf("failed to sweep stale locks: %w", err)
	}

	if cleared > 0 {
		slog.Warn("Stale enrichment locks cleared", "count", cleared)
	}

	slog.Info("Task completed",
		"type", "SweepLocks",
		"duration", t.GetDuration(),
		"cleared", cleared)

	return nil
}
