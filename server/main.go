package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/phambaophuc/image-compressor/internal/config"
	"github.com/phambaophuc/image-compressor/internal/http/handlers"
	"github.com/phambaophuc/image-compressor/internal/http/routes"
	"github.com/phambaophuc/image-compressor/internal/services/archive"
	"github.com/phambaophuc/image-compressor/internal/services/batch"
	"github.com/phambaophuc/image-compressor/internal/services/processor"
	"github.com/phambaophuc/image-compressor/internal/services/queue"
	"github.com/phambaophuc/image-compressor/internal/services/storage"
	"github.com/phambaophuc/image-compressor/internal/services/workspace"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const maxSweepInterval = time.Hour

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize services
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(cfg.Storage.WorkDir, 0o755); err != nil {
		logger.Fatal("Failed to create work directory", zap.String("dir", cfg.Storage.WorkDir), zap.Error(err))
	}
	workspaces := workspace.NewManager(fs, cfg.Storage.WorkDir, cfg.Storage.ArchiveName, logger)

	registry, err := storage.NewRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize batch registry", zap.Error(err))
	}
	if closer, ok := registry.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	opts := batch.PipelineOptions{
		Registry:   registry,
		Workspaces: workspaces,
		Timeout:    cfg.Compression.BatchTimeout,
	}

	var mirror *storage.SupabaseMirror
	if cfg.Supabase.Enabled() {
		mirror = storage.NewSupabaseMirror(cfg.Supabase, fs, logger)
		opts.Mirror = mirror
	}

	var events *queue.QueueService
	if cfg.RabbitMQ.URL != "" {
		events, err = queue.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName, logger)
		if err != nil {
			// Continue without batch events
			logger.Warn("Failed to initialize queue service", zap.Error(err))
		} else {
			opts.Publisher = events
			defer events.Close()
		}
	}

	runner := batch.NewRunner(fs, processor.NewImageProcessor(fs, logger), cfg.Compression.Workers, logger)
	pipeline := batch.NewPipeline(runner, archive.NewBuilder(fs, logger), opts, logger)

	// Initialize handlers
	imageHandler := handlers.NewImageHandler(pipeline, workspaces, registry, logger, cfg)
	if mirror != nil {
		imageHandler.WithMirror(mirror)
	}
	if events != nil {
		imageHandler.WithQueue(events)
	}

	router := routes.NewRouter(imageHandler, logger)

	go sweepExpiredBatches(ctx, workspaces, registry, cfg.Storage.BatchTTL, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		logger.Info("Starting server",
			zap.String("addr", server.Addr),
			zap.String("work_dir", cfg.Storage.WorkDir),
			zap.String("batch_store", cfg.Storage.BatchStore),
			zap.Int("workers", cfg.Compression.Workers))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	<-ctx.Done()

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// sweepExpiredBatches removes workspaces older than ttl until ctx is done.
func sweepExpiredBatches(ctx context.Context, workspaces *workspace.Manager, registry storage.Registry, ttl time.Duration, logger *zap.Logger) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(min(ttl, maxSweepInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := workspaces.Sweep(ttl)
			if err != nil {
				logger.Warn("Workspace sweep failed", zap.Error(err))
			}
			for _, id := range removed {
				if err := registry.Delete(ctx, id); err != nil {
					logger.Warn("Failed to forget expired batch", zap.String("batch_id", id), zap.Error(err))
				}
			}
			if pruner, ok := registry.(*storage.MemoryRegistry); ok {
				pruner.Prune()
			}
		}
	}
}
