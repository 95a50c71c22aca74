package worker

import (
	"context"
	"log"

	"mapworkbench/internal/config"
)

// StartSessionWorker periodically evicts editor sessions idle for longer
// than config.SessionIdleTTL
func StartSessionWorker(ctx context.Context, sessions SessionSweeper) {
	every(ctx, config.SessionSweepInterval, func() {
		sessions.Sweep(config.SessionIdleTTL)
	})

	log.Println("Session worker started with interval:", config.SessionSweepInterval)
}
