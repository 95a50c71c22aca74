package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"mapworkbench/internal/api"
	routes "mapworkbench/internal/api/handlers"
	"mapworkbench/internal/config"
	"mapworkbench/internal/postgres"
	"mapworkbench/internal/redis"
	"mapworkbench/internal/service/composition"
	"mapworkbench/internal/service/geocode"
	"mapworkbench/internal/service/session"
	"mapworkbench/internal/service/upload"
	"mapworkbench/internal/sqlite"
	"mapworkbench/internal/taxonomy"
	"mapworkbench/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploads := upload.NewStore(cfg.UploadsDir, cfg.MaxUploadBytes)
	if err := uploads.EnsureDir(); err != nil {
		log.Fatalf("Failed to create uploads directory: %v", err)
	}

	backend, closeBackend := initializeBackend(ctx, cfg)
	defer closeBackend()

	var archive composition.Archive
	if cfg.DBUrl != "" {
		archive = postgres.NewArchive(postgres.Init(cfg.DBUrl))
		defer closePostgres()
	}

	compositions := composition.NewService(backend, uploads, archive)
	if err := compositions.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize composition service: %v", err)
	}

	sessions := session.NewManager()
	worker.StartAllWorkers(ctx, compositions, sessions)

	reportMemoryStats(ctx)

	deps := routes.Deps{
		Compositions: compositions,
		Uploads:      uploads,
		Geocoder:     geocode.NewClient(cfg.PostcodeAPIURL, cfg.GeocodeTimeout),
		Sessions:     sessions,
		Taxonomy:     taxonomy.Load(cfg.RoomTypesCSV, cfg.RoomColorsCSV),
	}
	runAPIServer(ctx, cfg, deps)

	// final archive flush with a fresh context, the signal one is done
	flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	worker.FlushOnShutdown(flushCtx, compositions)
}

func setupLogging(path string) {
	// Set up logging to file and terminal
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)
}

// initializeBackend opens the store selected by STORE_BACKEND and returns
// its closer
func initializeBackend(ctx context.Context, cfg config.Config) (composition.Backend, func()) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		client := redis.Init(cfg.RedisUrl)
		log.Printf("Using Redis store (prefix %q)", cfg.RedisPrefix)
		return redis.NewStore(client, cfg.RedisPrefix), func() {
			if err := redis.Close(); err != nil {
				log.Printf("Error closing Redis connection: %v", err)
			}
		}

	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open SQLite database: %v", err)
		}
		store, err := sqlite.NewStore(ctx, db)
		if err != nil {
			log.Fatalf("Failed to prepare SQLite database: %v", err)
		}
		log.Printf("Using SQLite store at %s", cfg.SQLitePath)
		return store, func() {
			if err := db.Close(); err != nil {
				log.Printf("Error closing SQLite database: %v", err)
			}
		}

	default:
		log.Println("Using in-memory store; saved compositions are lost on exit")
		return composition.NewMemoryBackend(), func() {}
	}
}

func closePostgres() {
	if err := postgres.Close(); err != nil {
		log.Printf("Error closing PostgreSQL connection: %v", err)
	}
}

// runAPIServer serves until ctx is cancelled, then shuts down gracefully
func runAPIServer(ctx context.Context, cfg config.Config, deps routes.Deps) {
	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: api.NewEngine(deps),
	}

	go func() {
		log.Printf("Listening on %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received, stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}
}

func reportMemoryStats(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var m runtime.MemStats
				runtime.ReadMemStats(&m)
				log.Printf("Alloc = %v MiB, TotalAlloc = %v MiB, Sys = %v MiB, NumGC = %v",
					m.Alloc/1024/1024, m.TotalAlloc/1024/1024, m.Sys/1024/1024, m.NumGC)
			}
		}
	}()
}
