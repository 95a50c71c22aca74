package worker

import (
	"context"
	"log"

	"mapworkbench/internal/config"
)

// StartArchiveWorker periodically flushes changed compositions to PostgreSQL
func StartArchiveWorker(ctx context.Context, archive ArchiveFlusher) {
	every(ctx, config.ArchiveFlushInterval, func() {
		if err := archive.FlushArchive(ctx); err != nil {
			log.Printf("[ARCHIVE] Flush failed: %v", err)
		}
	})

	log.Println("Archive worker started with interval:", config.ArchiveFlushInterval)
}

// FlushOnShutdown runs a final flush with its own context
func FlushOnShutdown(ctx context.Context, archive ArchiveFlusher) {
	if archive == nil {
		return
	}
	if err := archive.FlushArchive(ctx); err != nil {
		log.Printf("[ARCHIVE] Final flush failed: %v", err)
	}
}
