package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/botlog/internal/botregistry"
	"github.com/JakeFAU/botlog/internal/ingest"
	"github.com/JakeFAU/botlog/internal/metrics"
	"github.com/JakeFAU/botlog/internal/progress"
	"github.com/JakeFAU/botlog/internal/store"
)

const (
	defaultRequestTimeout = 60 * time.Second
	defaultEnqueueTimeout = 5 * time.Second
)

// Spool stores an uploaded body and returns the path of the copy.
type Spool interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// Enqueuer hands a task to the background workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, task ingest.Task) error
}

// IDSource issues job and request identifiers.
type IDSource interface {
	NewJobID() (uuid.UUID, error)
	NewRequestID() string
}

// Options are the HTTP-level knobs.
type Options struct {
	AuthEnabled    bool
	APIKey         string
	RequestTimeout time.Duration
	EnqueueTimeout time.Duration
	// MaxUploadBytes caps a request body; zero means unlimited.
	MaxUploadBytes int64
}

// Deps are the collaborators the handlers use. Ready and QueueDepth are
// optional.
type Deps struct {
	Jobs       store.JobStore
	Tracker    *progress.Tracker
	Spool      Spool
	Queue      Enqueuer
	IDs        IDSource
	Clock      ingest.Clock
	Ready      func(ctx context.Context) error
	QueueDepth func() int
	Logger     *zap.Logger
}

// Server wires HTTP handlers to the job store, spool and queue.
type Server struct {
	router  chi.Router
	opts    Options
	jobs    store.JobStore
	tracker *progress.Tracker
	spool   Spool
	queue   Enqueuer
	ids     IDSource
	clock   ingest.Clock
	ready   func(ctx context.Context) error
	depth   func() int
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(opts Options, deps Deps) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.EnqueueTimeout <= 0 {
		opts.EnqueueTimeout = defaultEnqueueTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = progress.NewTracker()
	}
	clock := deps.Clock
	if clock == nil {
		clock = systemClock{}
	}
	s := &Server{
		opts:    opts,
		jobs:    deps.Jobs,
		tracker: tracker,
		spool:   deps.Spool,
		queue:   deps.Queue,
		ids:     deps.IDs,
		clock:   clock,
		ready:   deps.Ready,
		depth:   deps.QueueDepth,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(s.ids))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Get("/metrics", s.metrics)

	r.Route("/v1", func(r chi.Router) {
		if opts.AuthEnabled {
			r.Use(apiKeyMiddleware(opts.APIKey))
		}
		// Uploads stream for as long as the body takes; everything else is
		// bounded.
		r.Post("/clients/{client_id}/imports", s.createImport)
		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(opts.RequestTimeout))
			r.Get("/clients/{client_id}/imports", s.listImports)
			r.Get("/imports/{job_id}", s.getImport)
			r.Get("/imports/{job_id}/progress", s.getProgress)
			r.Delete("/imports/{job_id}/progress", s.clearProgress)
			r.Get("/bots", s.listBots)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	if s.depth != nil {
		metrics.SetQueueDepth(s.depth())
	}
	metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) listBots(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"families": botregistry.Families()})
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
