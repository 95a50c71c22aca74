package config

import "time"

// Worker intervals
const (
	// ArchiveFlushInterval defines how often changed compositions are written to PostgreSQL
	ArchiveFlushInterval = 60 * time.Second

	// SessionSweepInterval defines how often idle editor sessions are evicted
	SessionSweepInterval = 5 * time.Minute

	// SessionIdleTTL is how long an editor session may go unused
	SessionIdleTTL = 2 * time.Hour
)
