package api

import (
	"errors"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/JakeFAU/botlog/internal/store"
)

var removeFile = os.Remove

// getProgress serves the live snapshot, falling back to the persisted job
// once the tracker entry has been acknowledged or lost to a restart.
func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	jobID, err := parseJobID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job_id")
		return
	}
	if p, ok := s.tracker.Get(jobID); ok {
		writeJSON(w, http.StatusOK, p)
		return
	}
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.logger.Error("get job failed", zap.Error(err), zap.String("job_id", jobID.String()))
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, job.Progress())
}

// clearProgress acknowledges a finished job and drops its tracker entry.
func (s *Server) clearProgress(w http.ResponseWriter, r *http.Request) {
	jobID, err := parseJobID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job_id")
		return
	}
	p, ok := s.tracker.Get(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "no progress for job")
		return
	}
	if !p.Status.Terminal() {
		writeError(w, http.StatusConflict, "job still running")
		return
	}
	s.tracker.Remove(jobID)
	w.WriteHeader(http.StatusNoContent)
}
