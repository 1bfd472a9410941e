// Package importer runs one log file through detection, parsing,
// deduplication and batched persistence while publishing live progress.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/botlog/internal/ingest"
	"github.com/JakeFAU/botlog/internal/logparse"
	"github.com/JakeFAU/botlog/internal/progress"
	"github.com/JakeFAU/botlog/internal/store"
	"github.com/JakeFAU/botlog/internal/workbook"
)

const (
	// DefaultBatchSize is the number of staged rows per bulk insert.
	DefaultBatchSize = 5000
	// DefaultProgressEvery is how many lines pass between snapshot updates.
	DefaultProgressEvery = 1000

	finalizeTimeout = 30 * time.Second

	instrumentationName = "github.com/JakeFAU/botlog/internal/importer"
)

// Config tunes the pipeline.
type Config struct {
	BatchSize       int
	CountChunkBytes int
	ProgressEvery   int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.CountChunkBytes <= 0 {
		c.CountChunkBytes = logparse.DefaultCountChunk
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = DefaultProgressEvery
	}
	return c
}

// Deps are the collaborators of a Pipeline. Tracker, Events, Clock and
// Logger are optional.
type Deps struct {
	Hits    store.HitStore
	Jobs    store.JobStore
	Tracker *progress.Tracker
	Events  progress.Emitter
	Clock   ingest.Clock
	Logger  *zap.Logger
}

// Pipeline imports files. One Pipeline may run many jobs concurrently; all
// per-job state lives in the Run call.
type Pipeline struct {
	cfg     Config
	hits    store.HitStore
	jobs    store.JobStore
	tracker *progress.Tracker
	events  progress.Emitter
	clock   ingest.Clock
	logger  *zap.Logger
	tracer  trace.Tracer
	flushes metric.Float64Histogram

	removeFile func(string) error
}

// New constructs a Pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	p := &Pipeline{
		cfg:        cfg.withDefaults(),
		hits:       deps.Hits,
		jobs:       deps.Jobs,
		tracker:    deps.Tracker,
		events:     deps.Events,
		clock:      deps.Clock,
		logger:     deps.Logger,
		tracer:     otel.Tracer(instrumentationName),
		removeFile: os.Remove,
	}
	if p.tracker == nil {
		p.tracker = progress.NewTracker()
	}
	if p.events == nil {
		p.events = nopEmitter{}
	}
	if p.clock == nil {
		p.clock = utcClock{}
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.logger = p.logger.Named("importer")

	hist, err := otel.Meter(instrumentationName).Float64Histogram(
		"botlog.import.flush.duration",
		metric.WithDescription("Latency of one bulk insert of staged rows."),
		metric.WithUnit("s"),
	)
	if err != nil {
		p.logger.Warn("create flush histogram", zap.Error(err))
	}
	p.flushes = hist
	return p
}

// Tracker exposes the live progress map the pipeline writes to.
func (p *Pipeline) Tracker() *progress.Tracker {
	return p.tracker
}

// Run imports the file at path for job, which must already be stored in
// counting status. The file is removed when Run returns, whatever the
// outcome. The returned job carries the final status and counters; a non-nil
// error means the job ended in error status, including when the import
// panics.
func (p *Pipeline) Run(ctx context.Context, job ingest.Job, path string) (out ingest.Job, err error) {
	started := p.clock.Now()
	logger := p.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.Int64("client_id", int64(job.TenantID)),
		zap.String("filename", job.Filename),
	)
	ctx, span := p.tracer.Start(ctx, "import.run", trace.WithAttributes(
		attribute.String("import.job_id", job.ID.String()),
		attribute.Int64("import.client_id", int64(job.TenantID)),
	))
	defer span.End()
	defer p.removeSource(path, logger)
	defer func() {
		if r := recover(); r != nil {
			out, err = p.fail(ctx, job, started, fmt.Errorf("import panicked: %v", r), span, logger)
		}
	}()

	if job.Status != ingest.StatusCounting {
		err := fmt.Errorf("%w: job starts in %s", ingest.ErrInvalidTransition, job.Status)
		span.RecordError(err)
		return job, err
	}
	p.tracker.Start(job)
	p.emit(job, progress.StageJobStart, 0)
	logger.Info("import started")

	kind, err := resolveKind(job, path)
	if err != nil {
		return p.fail(ctx, job, started, err, span, logger)
	}
	job.Kind = kind

	total, err := p.count(kind, path)
	if err != nil {
		return p.fail(ctx, job, started, err, span, logger)
	}
	job.TotalLines = int64(total)
	if err := p.transition(ctx, &job, ingest.StatusImporting); err != nil {
		return p.fail(ctx, job, started, err, span, logger)
	}

	sc, closeFn, err := p.open(kind, path, logger)
	if err != nil {
		return p.fail(ctx, job, started, err, span, logger)
	}
	defer func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}()
	r := &run{p: p, job: &job, batch: make([]ingest.Row, 0, p.cfg.BatchSize), known: make(map[time.Time]map[ingest.DedupKey]struct{})}
	err = r.consume(ctx, sc)
	if cerr := closeFn(); cerr != nil {
		logger.Warn("close import source", zap.Error(cerr))
	}
	closeFn = nil
	if err != nil {
		return p.fail(ctx, job, started, err, span, logger)
	}

	if err := p.transition(ctx, &job, ingest.StatusCompleted); err != nil {
		return p.fail(ctx, job, started, err, span, logger)
	}
	dur := p.clock.Now().Sub(started)
	p.emit(job, progress.StageJobDone, dur)
	span.SetAttributes(
		attribute.Int64("import.imported", job.Imported),
		attribute.Int64("import.skipped_duplicates", job.SkippedDuplicates),
		attribute.Int64("import.skipped_filtered", job.SkippedFiltered),
	)
	logger.Info("import completed",
		zap.Int64("total_lines", job.TotalLines),
		zap.Int64("imported", job.Imported),
		zap.Int64("skipped_duplicates", job.SkippedDuplicates),
		zap.Int64("skipped_filtered", job.SkippedFiltered),
		zap.Duration("dur", dur),
	)
	return job, nil
}

// transition moves job along the state machine. The new state is adopted
// only once it has been persisted.
func (p *Pipeline) transition(ctx context.Context, job *ingest.Job, to ingest.Status) error {
	next := *job
	if err := next.Transition(to, p.clock.Now()); err != nil {
		return err
	}
	if err := p.jobs.UpdateJob(ctx, next); err != nil {
		return fmt.Errorf("persist %s status: %w", to, err)
	}
	*job = next
	p.tracker.Update(job.Progress())
	return nil
}

// fail records err on the job, persists the error status with a context
// that survives cancellation of ctx, and publishes the failure.
func (p *Pipeline) fail(
	ctx context.Context,
	job ingest.Job,
	started time.Time,
	cause error,
	span trace.Span,
	logger *zap.Logger,
) (ingest.Job, error) {
	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())

	job.Error = cause.Error()
	if err := job.Transition(ingest.StatusError, p.clock.Now()); err != nil {
		logger.Error("import failed in terminal state", zap.Error(cause))
		return job, cause
	}
	p.tracker.Update(job.Progress())

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := p.jobs.UpdateJob(persistCtx, job); err != nil {
		logger.Error("persist error status", zap.Error(err))
	}
	p.emit(job, progress.StageJobError, p.clock.Now().Sub(started))
	logger.Error("import failed", zap.Error(cause))
	return job, cause
}

func (p *Pipeline) emit(job ingest.Job, stage progress.Stage, dur time.Duration) {
	p.events.Emit(progress.Event{
		JobID:      progress.UUIDToBytes(job.ID),
		TenantID:   int64(job.TenantID),
		TS:         p.clock.Now(),
		Stage:      stage,
		Filename:   job.Filename,
		Imported:   job.Imported,
		Duplicates: job.SkippedDuplicates,
		Filtered:   job.SkippedFiltered,
		Dur:        dur,
		Note:       job.Error,
	})
}

// count sizes the source for the progress percentage only.
func (p *Pipeline) count(kind ingest.SourceKind, path string) (int, error) {
	if kind == ingest.KindWorkbook {
		n, err := workbook.CountRows(path)
		if err != nil {
			return 0, fmt.Errorf("count workbook rows: %w", err)
		}
		return n, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer f.Close() //nolint:errcheck

	return logparse.CountLines(f, p.cfg.CountChunkBytes)
}

// open returns a scanner over the source and a function releasing it. A
// tabular header without the required columns yields an empty scanner so the
// job completes with nothing imported.
func (p *Pipeline) open(kind ingest.SourceKind, path string, logger *zap.Logger) (logparse.Scanner, func() error, error) {
	if kind == ingest.KindWorkbook {
		sc, err := workbook.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return sc, sc.Close, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open source: %w", err)
	}
	sc, err := logparse.NewScanner(kind.Format(), f, kind.Policy())
	if errors.Is(err, logparse.ErrMissingColumns) {
		logger.Warn("tabular source has no user agent or url column; nothing to import")
		return emptyScanner{}, f.Close, nil
	}
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return sc, f.Close, nil
}

func (p *Pipeline) removeSource(path string, logger *zap.Logger) {
	if path == "" {
		return
	}
	if err := p.removeFile(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("remove import source", zap.String("path", path), zap.Error(err))
	}
}

// resolveKind settles KindAuto from the upload's name and first line.
func resolveKind(job ingest.Job, path string) (ingest.SourceKind, error) {
	if job.Kind != ingest.KindAuto && job.Kind != "" {
		return job.Kind, nil
	}
	switch strings.ToLower(filepath.Ext(job.Filename)) {
	case ".xlsx", ".xlsm":
		return ingest.KindWorkbook, nil
	}
	format, err := logparse.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect format: %w", err)
	}
	return ingest.KindForFormat(format), nil
}

// run is the per-job state of the import loop: the lazily loaded dedup keys
// for each date touched and the staged batch.
type run struct {
	p     *Pipeline
	job   *ingest.Job
	known map[time.Time]map[ingest.DedupKey]struct{}
	batch []ingest.Row

	// counters at the previous flush, for event deltas
	lastImported, lastDuplicates, lastFiltered int64
}

func (r *run) consume(ctx context.Context, sc logparse.Scanner) error {
	every := int64(r.p.cfg.ProgressEvery)
	for sc.Scan() {
		r.job.ProcessedLines++
		if err := r.accept(ctx, sc); err != nil {
			return err
		}
		if r.job.ProcessedLines%every == 0 {
			r.p.tracker.Update(r.job.Progress())
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	return r.flush(ctx)
}

func (r *run) accept(ctx context.Context, sc logparse.Scanner) error {
	hit, ok := sc.Hit()
	if !ok || !hit.HasTimestamp() {
		r.job.SkippedFiltered++
		return nil
	}
	keys, err := r.keysFor(ctx, hit.Date)
	if err != nil {
		return err
	}
	key := ingest.NewDedupKey(hit.Timestamp, hit.IP, hit.URL)
	if _, dup := keys[key]; dup {
		r.job.SkippedDuplicates++
		return nil
	}
	keys[key] = struct{}{}
	r.batch = append(r.batch, ingest.Row{TenantID: r.job.TenantID, JobID: r.job.ID, Hit: hit})
	if len(r.batch) >= r.p.cfg.BatchSize {
		return r.flush(ctx)
	}
	return nil
}

// keysFor loads the persisted keys for date on first use and caches them
// for the rest of the job.
func (r *run) keysFor(ctx context.Context, date time.Time) (map[ingest.DedupKey]struct{}, error) {
	if keys, ok := r.known[date]; ok {
		return keys, nil
	}
	keys, err := r.p.hits.ExistingKeys(ctx, r.job.TenantID, date)
	if err != nil {
		return nil, fmt.Errorf("load existing keys for %s: %w", date.Format(time.DateOnly), err)
	}
	if keys == nil {
		keys = make(map[ingest.DedupKey]struct{})
	}
	r.known[date] = keys
	return keys, nil
}

// flush inserts the staged rows, then yields so progress readers get
// scheduled.
func (r *run) flush(ctx context.Context) error {
	if len(r.batch) == 0 {
		return nil
	}
	start := time.Now()
	if err := r.p.hits.InsertBatch(ctx, r.batch); err != nil {
		return fmt.Errorf("insert batch of %d rows: %w", len(r.batch), err)
	}
	if r.p.flushes != nil {
		r.p.flushes.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("kind", string(r.job.Kind)),
		))
	}
	r.job.Imported += int64(len(r.batch))
	r.batch = r.batch[:0]

	r.p.tracker.Update(r.job.Progress())
	r.p.events.Emit(progress.Event{
		JobID:      progress.UUIDToBytes(r.job.ID),
		TenantID:   int64(r.job.TenantID),
		TS:         r.p.clock.Now(),
		Stage:      progress.StageBatchFlushed,
		Imported:   r.job.Imported - r.lastImported,
		Duplicates: r.job.SkippedDuplicates - r.lastDuplicates,
		Filtered:   r.job.SkippedFiltered - r.lastFiltered,
	})
	r.lastImported, r.lastDuplicates, r.lastFiltered = r.job.Imported, r.job.SkippedDuplicates, r.job.SkippedFiltered
	runtime.Gosched()
	return nil
}

type emptyScanner struct{}

func (emptyScanner) Scan() bool                { return false }
func (emptyScanner) Hit() (logparse.Hit, bool) { return logparse.Hit{}, false }
func (emptyScanner) Line() int                 { return 0 }
func (emptyScanner) Err() error                { return nil }

type nopEmitter struct{}

func (nopEmitter) Emit(progress.Event) {}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }
