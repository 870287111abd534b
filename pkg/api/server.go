// Package api exposes the job orchestration HTTP surface.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/bimdev1/Cortex/pkg/models"
	"github.com/bimdev1/Cortex/pkg/orchestrator"
	"github.com/bimdev1/Cortex/pkg/poller"
	"github.com/bimdev1/Cortex/pkg/provider"
	"github.com/bimdev1/Cortex/pkg/store"
)

// Server handles the REST API for job orchestration.
type Server struct {
	orch     *orchestrator.Orchestrator
	registry *provider.Registry
	poller   *poller.Poller
	store    store.Store
	logger   *zap.Logger
}

// NewServer creates an API server
func NewServer(orch *orchestrator.Orchestrator, registry *provider.Registry, p *poller.Poller, s store.Store, logger *zap.Logger) *Server {
	return &Server{
		orch:     orch,
		registry: registry,
		poller:   p,
		store:    s,
		logger:   logger,
	}
}

// RegisterRoutes sets up the API routes
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/jobs", s.handleSubmitJob).Methods("POST")
	r.HandleFunc("/jobs", s.handleListJobs).Methods("GET")
	r.HandleFunc("/jobs/{id}", s.handleGetJob).Methods("GET")
	r.HandleFunc("/jobs/{id}", s.handleUpdateJob).Methods("PATCH")
	r.HandleFunc("/jobs/{id}", s.handleDeleteJob).Methods("DELETE")
	r.HandleFunc("/jobs/{id}/status", s.handleJobStatus).Methods("GET")
	r.HandleFunc("/jobs/{id}/logs", s.handleJobLogs).Methods("GET")
	r.HandleFunc("/networks", s.handleNetworks).Methods("GET")
	r.HandleFunc("/poller/status", s.handlePollerStatus).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req models.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	job, err := s.orch.Submit(r.Context(), &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.orch.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.orch.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	var update orchestrator.JobUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	job, err := s.orch.Update(r.Context(), mux.Vars(r)["id"], update)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := s.orch.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.orch.Poll(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     job.ID,
		"status": job.Status,
	})
}

func (s *Server) handleJobLogs(w http.ResponseWriter, r *http.Request) {
	job, err := s.orch.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	logs := job.Logs
	if logs == nil {
		logs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":   job.ID,
		"logs": logs,
	})
}

func (s *Server) handleNetworks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Status(r.Context()))
}

func (s *Server) handlePollerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.poller.GetStatus())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "storage unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"providers": s.registry.Names(),
	})
}

// writeError maps orchestration errors to HTTP responses. Internal
// failures return a correlation id instead of the underlying error.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error()})
		return
	}

	switch {
	case errors.Is(err, orchestrator.ErrJobNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
	case errors.Is(err, provider.ErrProviderUnavailable),
		errors.Is(err, provider.ErrNotConnected):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "provider unavailable"})
	case errors.Is(err, provider.ErrNotImplemented):
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "operation not supported by provider"})
	default:
		var perr *orchestrator.ProviderOperationError
		if errors.As(err, &perr) {
			s.logger.Error("provider operation failed",
				zap.String("provider", perr.Provider),
				zap.String("operation", perr.Op),
				zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "provider operation failed"})
			return
		}

		correlationID := uuid.NewString()
		s.logger.Error("internal error",
			zap.String("correlation_id", correlationID),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":          "internal error",
			"correlation_id": correlationID,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
