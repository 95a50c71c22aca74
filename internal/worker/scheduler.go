package worker

import (
	"context"
	"log"
	"time"
)

// ArchiveFlusher writes changed compositions to the durable archive
type ArchiveFlusher interface {
	FlushArchive(ctx context.Context) error
}

// SessionSweeper evicts idle editor sessions
type SessionSweeper interface {
	Sweep(idle time.Duration) int
}

// StartAllWorkers initializes and starts all background workers. They stop
// when ctx is cancelled.
func StartAllWorkers(ctx context.Context, archive ArchiveFlusher, sessions SessionSweeper) {
	log.Println("Starting all workers...")

	if archive != nil {
		StartArchiveWorker(ctx, archive)
	}
	StartSessionWorker(ctx, sessions)

	log.Println("All workers started")
}

// every runs fn on each tick until ctx is done
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}
