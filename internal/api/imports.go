package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/botlog/internal/ingest"
	"github.com/JakeFAU/botlog/internal/metrics"
	"github.com/JakeFAU/botlog/internal/storage/local"
	"github.com/JakeFAU/botlog/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type createImportResponse struct {
	JobID  uuid.UUID     `json:"job_id"`
	Status ingest.Status `json:"status"`
}

type listImportsResponse struct {
	Jobs   []ingest.Job `json:"jobs"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

func (s *Server) createImport(w http.ResponseWriter, r *http.Request) {
	tenant, err := parseTenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart/form-data body required")
		return
	}

	// "kind" may come from the query string or a form field that precedes
	// the file part.
	rawKind := r.URL.Query().Get("kind")
	var (
		path     string
		filename string
		size     int64
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.rejectUpload(w, err, path)
			return
		}
		switch part.FormName() {
		case "kind":
			b, err := io.ReadAll(io.LimitReader(part, 64))
			if err != nil {
				s.rejectUpload(w, err, path)
				return
			}
			rawKind = string(b)
		case "file":
			if path != "" {
				_ = part.Close()
				s.discard(path)
				writeError(w, http.StatusBadRequest, "only one file per upload")
				return
			}
			filename = filepath.Base(part.FileName())
			counted := &countingReader{r: part}
			path, err = s.spool.Save(r.Context(), filename, counted)
			size = counted.n
			if err != nil {
				s.rejectUpload(w, err, "")
				return
			}
		}
		_ = part.Close()
	}

	if path == "" {
		writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	kind, err := ingest.ParseSourceKind(rawKind)
	if err != nil {
		s.discard(path)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.ObserveUpload(size)

	job, err := s.newJob(tenant, filename, kind)
	if err != nil {
		s.discard(path)
		s.logger.Error("job id generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}
	if err := s.jobs.CreateJob(r.Context(), job); err != nil {
		s.discard(path)
		s.logger.Error("job create failed", zap.Error(err), zap.String("job_id", job.ID.String()))
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}
	s.tracker.Start(job)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.opts.EnqueueTimeout)
	defer cancel()
	if err := s.queue.Enqueue(ctx, ingest.Task{Job: job, Path: path}); err != nil {
		s.abandon(ctx, job, path, err)
		writeError(w, http.StatusServiceUnavailable, "import queue unavailable")
		return
	}

	s.logger.Info("import queued",
		zap.String("job_id", job.ID.String()),
		zap.Int64("client_id", int64(tenant)),
		zap.String("filename", filename),
		zap.String("kind", string(kind)),
		zap.Int64("bytes", size),
	)
	writeJSON(w, http.StatusAccepted, createImportResponse{JobID: job.ID, Status: job.Status})
}

func (s *Server) newJob(tenant ingest.TenantID, filename string, kind ingest.SourceKind) (ingest.Job, error) {
	id, err := s.ids.NewJobID()
	if err != nil {
		return ingest.Job{}, err
	}
	return ingest.Job{
		ID:        id,
		TenantID:  tenant,
		Filename:  filename,
		Kind:      kind,
		Status:    ingest.StatusCounting,
		CreatedAt: s.clock.Now().UTC(),
	}, nil
}

// abandon records a job that never reached a worker.
func (s *Server) abandon(ctx context.Context, job ingest.Job, path string, cause error) {
	s.discard(path)
	s.logger.Error("enqueue failed", zap.Error(cause), zap.String("job_id", job.ID.String()))
	if err := job.Transition(ingest.StatusError, s.clock.Now().UTC()); err != nil {
		return
	}
	job.Error = "import queue unavailable"
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		s.logger.Warn("job update failed", zap.Error(err), zap.String("job_id", job.ID.String()))
	}
	s.tracker.Update(job.Progress())
}

func (s *Server) rejectUpload(w http.ResponseWriter, err error, path string) {
	s.discard(path)
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr), errors.Is(err, local.ErrTooLarge), errors.Is(err, multipart.ErrMessageTooLarge):
		metrics.ObserveRejectedUpload("too_large")
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
	default:
		metrics.ObserveRejectedUpload("malformed")
		s.logger.Warn("upload failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "malformed upload")
	}
}

func (s *Server) discard(path string) {
	if path == "" {
		return
	}
	if err := removeFile(path); err != nil {
		s.logger.Warn("spool cleanup failed", zap.Error(err), zap.String("path", path))
	}
}

func (s *Server) getImport(w http.ResponseWriter, r *http.Request) {
	jobID, err := parseJobID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job_id")
		return
	}
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.logger.Error("get job failed", zap.Error(err), zap.String("job_id", jobID.String()))
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) listImports(w http.ResponseWriter, r *http.Request) {
	tenant, err := parseTenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultListLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobs, err := s.jobs.ListJobs(r.Context(), tenant, limit, offset)
	if err != nil {
		s.logger.Error("list jobs failed", zap.Error(err), zap.Int64("client_id", int64(tenant)))
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []ingest.Job{}
	}
	writeJSON(w, http.StatusOK, listImportsResponse{Jobs: jobs, Limit: limit, Offset: offset})
}

func parseTenantID(r *http.Request) (ingest.TenantID, error) {
	raw := chi.URLParam(r, "client_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid client_id")
	}
	return ingest.TenantID(id), nil
}

func parseJobID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "job_id"))
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = min(v, maxLimit)
	}
	offset := 0
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = v
	}
	return limit, offset, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
