// Package server provides the core application server and dependency wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/botlog/internal/api"
	"github.com/JakeFAU/botlog/internal/clock/system"
	"github.com/JakeFAU/botlog/internal/config"
	"github.com/JakeFAU/botlog/internal/dispatcher"
	"github.com/JakeFAU/botlog/internal/id/uuid"
	"github.com/JakeFAU/botlog/internal/importer"
	"github.com/JakeFAU/botlog/internal/ingest"
	"github.com/JakeFAU/botlog/internal/logging"
	"github.com/JakeFAU/botlog/internal/progress"
	progresssinks "github.com/JakeFAU/botlog/internal/progress/sinks"
	memorypublisher "github.com/JakeFAU/botlog/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/botlog/internal/publisher/pubsub"
	queuememory "github.com/JakeFAU/botlog/internal/queue/memory"
	gcssource "github.com/JakeFAU/botlog/internal/storage/gcs"
	"github.com/JakeFAU/botlog/internal/storage/local"
	memorystore "github.com/JakeFAU/botlog/internal/storage/memory"
	pgstore "github.com/JakeFAU/botlog/internal/storage/postgres"
	"github.com/JakeFAU/botlog/internal/store"
	"github.com/JakeFAU/botlog/internal/telemetry"
	"github.com/JakeFAU/botlog/internal/worker"
)

const shutdownTimeout = 30 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	telemetry *telemetry.Providers

	jobs     store.JobStore
	hits     store.HitStore
	pg       *pgstore.Store
	spool    *local.Spool
	tracker  *progress.Tracker
	hub      *progress.Hub
	pipeline *importer.Pipeline
	queue    *queuememory.Queue
	dispatch *dispatcher.Dispatcher
	api      *api.Server
	clock    ingest.Clock
	ids      *uuid.Generator

	closePublisher func() error
	gcs            *storage.Client
	registerer     prometheus.Registerer
}

// Build creates the application's dependencies. Nothing runs until Run.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	return build(ctx, cfg, prometheus.DefaultRegisterer)
}

func build(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
		Service:     cfg.Application.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app := &App{
		cfg:        cfg,
		logger:     logger,
		tracker:    progress.NewTracker(),
		clock:      system.New(),
		ids:        uuid.New(),
		registerer: reg,
	}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.Int("workers", cfg.Import.Workers),
		zap.Bool("postgres", cfg.Database.DSN != ""),
	)

	app.telemetry, err = telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.Application.ServiceName,
		Version:     cfg.Application.Version,
		ProjectID:   cfg.Application.ProjectID,
		Region:      cfg.Application.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry init failed: %w", err)
	}

	if err := app.setupStores(ctx); err != nil {
		app.closeInfrastructure(ctx)
		return nil, err
	}
	app.spool, err = local.New(local.Config{
		BaseDir:  cfg.Import.SpoolDir,
		MaxBytes: cfg.Import.MaxUploadBytes,
	})
	if err != nil {
		app.closeInfrastructure(ctx)
		return nil, fmt.Errorf("spool init failed: %w", err)
	}

	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		app.closeInfrastructure(ctx)
		return nil, err
	}
	events, err := app.setupProgress(ctx, publisher)
	if err != nil {
		app.closeInfrastructure(ctx)
		return nil, err
	}

	app.pipeline = importer.New(importer.Config{
		BatchSize:       cfg.Import.BatchSize,
		CountChunkBytes: cfg.Import.CountChunkBytes,
		ProgressEvery:   cfg.Import.ProgressEvery,
	}, importer.Deps{
		Hits:    app.hits,
		Jobs:    app.jobs,
		Tracker: app.tracker,
		Events:  events,
		Clock:   app.clock,
		Logger:  logger,
	})

	app.queue = queuememory.NewQueue(cfg.Import.QueueDepth)
	workers := make([]*worker.Worker, 0, cfg.Import.Workers)
	for i := range cfg.Import.Workers {
		workers = append(workers, worker.New(i+1, app.queue, app.pipeline, logger))
	}
	app.dispatch = dispatcher.New(app.queue, workers)

	app.api = api.NewServer(api.Options{
		AuthEnabled:    cfg.Auth.Enabled,
		APIKey:         cfg.Auth.APIKey,
		RequestTimeout: cfg.RequestTimeout(),
		MaxUploadBytes: cfg.Import.MaxUploadBytes,
	}, api.Deps{
		Jobs:       app.jobs,
		Tracker:    app.tracker,
		Spool:      app.spool,
		Queue:      app.dispatch,
		IDs:        app.ids,
		Clock:      app.clock,
		Ready:      app.ready,
		QueueDepth: app.queue.Len,
		Logger:     logger.Named("api"),
	})
	return app, nil
}

func (a *App) setupStores(ctx context.Context) error {
	if a.cfg.Database.DSN == "" {
		a.logger.Warn("no database DSN configured, using in-memory stores")
		a.jobs = memorystore.NewJobStore()
		a.hits = memorystore.NewHitStore()
		return nil
	}
	pg, err := pgstore.New(ctx, pgstore.Config{
		DSN:             a.cfg.Database.DSN,
		MaxConns:        a.cfg.Database.MaxConns,
		MinConns:        a.cfg.Database.MinConns,
		MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("postgres init failed: %w", err)
	}
	a.pg = pg
	if a.cfg.Database.AutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("postgres migrate failed: %w", err)
		}
		a.logger.Info("database schema applied")
	}
	a.jobs = pg
	a.hits = pg
	return nil
}

func (a *App) setupPublisher(ctx context.Context) (progresssinks.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	p, closeFn, err := gcppublisher.Dial(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
	if err != nil {
		return nil, fmt.Errorf("pubsub init failed: %w", err)
	}
	a.closePublisher = closeFn
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return p, nil
}

func (a *App) setupProgress(ctx context.Context, publisher progresssinks.Publisher) (progress.Emitter, error) {
	if !a.cfg.Progress.Enabled {
		a.logger.Info("progress events disabled")
		return nil, nil
	}
	sinkList := []progress.Sink{
		progresssinks.NewPublishSink(publisher, a.logger.Named("progress_publish")),
	}
	if a.cfg.Progress.LogEnabled {
		sinkList = append(sinkList, progresssinks.NewLogSink(a.logger.Named("progress_log")))
	}
	if a.cfg.Progress.MetricsEnabled {
		promSink, err := progresssinks.NewPrometheusSink(a.registerer)
		if err != nil {
			return nil, fmt.Errorf("progress metrics init failed: %w", err)
		}
		sinkList = append(sinkList, promSink)
	}
	hubCfg := progress.Config{
		BufferSize:     a.cfg.Progress.BufferSize,
		MaxBatchEvents: a.cfg.Progress.Batch.MaxEvents,
		MaxBatchWait:   time.Duration(a.cfg.Progress.Batch.MaxWaitMs) * time.Millisecond,
		SinkTimeout:    time.Duration(a.cfg.Progress.SinkTimeoutMs) * time.Millisecond,
		BaseContext:    context.WithoutCancel(ctx),
		Logger:         a.logger.Named("progress_hub"),
	}
	a.hub = progress.NewHub(hubCfg, sinkList...)
	a.logger.Info("progress hub initialized",
		zap.Int("sinks", len(sinkList)),
		zap.Int("buffer_size", hubCfg.BufferSize),
		zap.Duration("max_batch_wait", hubCfg.MaxBatchWait),
	)
	return a.hub, nil
}

func (a *App) ready(ctx context.Context) error {
	if a.pg == nil {
		return nil
	}
	return a.pg.Ping(ctx)
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Run starts the workers and the HTTP server and blocks until the context is
// canceled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workersCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		a.logger.Info("dispatcher started", zap.Int("workers", a.cfg.Import.Workers))
		a.dispatch.Run(workersCtx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	// Queued imports drain before the workers stop.
	a.queue.Close()
	for a.queue.Len() > 0 && shutdownCtx.Err() == nil {
		time.Sleep(50 * time.Millisecond)
	}
	stopWorkers()
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		a.logger.Warn("workers still running at shutdown deadline",
			zap.Strings("job_ids", a.unfinishedJobs()),
		)
	}

	closeErr := a.Close(shutdownCtx)
	select {
	case err := <-serveErr:
		return errors.Join(fmt.Errorf("http server: %w", err), closeErr)
	default:
		return closeErr
	}
}

// unfinishedJobs lists tracked jobs that have not reached a terminal status.
// Their persisted status stays at the last committed state.
func (a *App) unfinishedJobs() []string {
	var ids []string
	for _, p := range a.tracker.List() {
		if !p.Status.Terminal() {
			ids = append(ids, p.JobID.String())
		}
	}
	return ids
}

// Import runs one import synchronously, outside the worker pool. source is
// a local path or a gs://bucket/object URI; local files are copied into the
// spool first because the pipeline removes what it reads.
func (a *App) Import(ctx context.Context, tenant ingest.TenantID, kind ingest.SourceKind, source string) (ingest.Job, error) {
	path, name, err := a.spoolSource(ctx, source)
	if err != nil {
		return ingest.Job{}, err
	}
	id, err := a.ids.NewJobID()
	if err != nil {
		_ = os.Remove(path)
		return ingest.Job{}, err
	}
	job := ingest.Job{
		ID:        id,
		TenantID:  tenant,
		Filename:  name,
		Kind:      kind,
		Status:    ingest.StatusCounting,
		CreatedAt: a.clock.Now(),
	}
	if err := a.jobs.CreateJob(ctx, job); err != nil {
		_ = os.Remove(path)
		return ingest.Job{}, fmt.Errorf("create job: %w", err)
	}
	return a.pipeline.Run(ctx, job, path)
}

func (a *App) spoolSource(ctx context.Context, source string) (path, name string, err error) {
	if gcssource.IsURI(source) {
		if a.gcs == nil {
			a.gcs, err = storage.NewClient(ctx)
			if err != nil {
				return "", "", fmt.Errorf("gcs client init failed: %w", err)
			}
		}
		src, err := gcssource.New(a.gcs, a.spool)
		if err != nil {
			return "", "", err
		}
		return src.Fetch(ctx, source)
	}
	f, err := os.Open(filepath.Clean(source))
	if err != nil {
		return "", "", fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			a.logger.Warn("close source failed", zap.Error(cerr))
		}
	}()
	name = filepath.Base(source)
	path, err = a.spool.Save(ctx, name, f)
	if err != nil {
		return "", "", err
	}
	return path, name, nil
}

// Close releases infrastructure and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	a.closeInfrastructure(ctx)
	err := a.telemetry.Shutdown(ctx)
	if syncErr := a.logger.Sync(); syncErr != nil {
		a.logger.Debug("logger sync failed", zap.Error(syncErr))
	}
	a.logger.Info("shutdown complete")
	return err
}

func (a *App) closeInfrastructure(ctx context.Context) {
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.closePublisher != nil {
		if err := a.closePublisher(); err != nil {
			a.logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pg != nil {
		a.pg.Close()
	}
}
