package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"model-lifecycle/api/rest/routes"
	"model-lifecycle/config"
	"model-lifecycle/core/feedback"
	"model-lifecycle/core/logger"
	"model-lifecycle/core/models"
	"model-lifecycle/core/monitoring"
	"model-lifecycle/core/repository"
	"model-lifecycle/core/scheduler"
	"model-lifecycle/core/spec"
	"model-lifecycle/providers/aws"
	"model-lifecycle/storage"
	"model-lifecycle/training"

	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Feedback storage: Postgres when configured, otherwise in memory
	var feedbackRepo feedback.Repository = feedback.NewMemoryRepository()
	var eventRepo *repository.EventRepository
	if cfg.DatabaseURL != "" {
		db, err := repository.NewDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database", "error", err)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatal("Failed to prepare database schema", "error", err)
		}
		feedbackRepo = repository.NewFeedbackRepository(db)
		eventRepo = repository.NewEventRepository(db)
		log.Info("Database connected successfully")
	} else {
		log.Warn("DATABASE_URL not set, feedback is kept in memory")
	}

	collector := feedback.NewCollector(feedbackRepo, log)

	store, err := storage.NewModelStore(cfg.ModelsDir, log)
	if err != nil {
		log.Fatal("Failed to open model store", "dir", cfg.ModelsDir, "error", err)
	}
	if cfg.BackupS3Bucket != "" {
		mirror, err := aws.NewClient(ctx, cfg.AWSRegion, cfg.BackupS3Bucket, cfg.BackupS3Prefix)
		if err != nil {
			log.Fatal("Failed to create S3 backup client", "bucket", cfg.BackupS3Bucket, "error", err)
		}
		store.SetBackupMirror(mirror)
		log.Info("Backups mirrored to S3", "bucket", cfg.BackupS3Bucket, "prefix", cfg.BackupS3Prefix)
	}

	pipeline := training.NewPipeline(training.PipelineConfig{
		MinSamples: cfg.MinTrainingSamples,
		MinF1:      cfg.MinF1,
	}, collector, training.ThresholdFitter{}, store, log)

	sched := scheduler.NewScheduler(scheduler.Config{
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   cfg.RetryDelay,
		TickInterval: cfg.SchedulerTick,
	}, pipeline, store, log)
	if eventRepo != nil {
		sched.SetEventSink(eventRepo)
	}

	metrics := monitoring.NewMetricsExporter(sched)
	sched.SetObserver(metrics)
	collector.SetObserver(metrics)

	jobs := scheduler.DefaultJobs(cfg.DefaultModelID)
	if cfg.JobsFile != "" {
		jobs, err = spec.LoadJobsFile(cfg.JobsFile)
		if err != nil {
			log.Fatal("Failed to load jobs file", "path", cfg.JobsFile, "error", err)
		}
	}
	registerJobs(sched, jobs, log)

	go sched.Start(ctx)

	if cfg.MonitorInterval > 0 {
		monitor := monitoring.NewFeedbackMonitor(monitoring.MonitorConfig{
			ModelID:       cfg.DefaultModelID,
			Interval:      cfg.MonitorInterval,
			AccuracyFloor: cfg.MonitorAccuracyFloor,
			MinSamples:    cfg.MonitorMinSamples,
			Cooldown:      cfg.MonitorCooldown,
		}, collector, sched, log)
		go monitor.Start(ctx)
	}

	r := mux.NewRouter()
	routes.SetupRoutes(r, routes.Dependencies{
		Collector: collector,
		Store:     store,
		Scheduler: sched,
		Metrics:   metrics,
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	// let in-flight training runs finish before cancelling background loops
	sched.Stop()
	cancel()
	log.Info("Server exited")
}

func registerJobs(sched *scheduler.Scheduler, jobs []models.JobDefinition, log *logger.Logger) {
	n := sched.Register(jobs)
	log.Info("Training jobs registered", "count", n, "declared", len(jobs))
}
