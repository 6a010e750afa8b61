package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/afttdata/aftt-sync/internal/config"
	"github.com/afttdata/aftt-sync/internal/driver"
	"github.com/afttdata/aftt-sync/internal/metrics"
	"github.com/afttdata/aftt-sync/internal/registry"
	"github.com/afttdata/aftt-sync/internal/scrape"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// JobStarter launches sync jobs. Satisfied by *driver.Driver.
type JobStarter interface {
	Start(family scrape.Family, trigger string, filters driver.Filters) (registry.Job, error)
}

// Server wires HTTP handlers to the driver and the job registry.
type Server struct {
	router   chi.Router
	starter  JobStarter
	registry *registry.Registry
	clock    scrape.Clock
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(starter JobStarter, reg *registry.Registry, clock scrape.Clock, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		starter:  starter,
		registry: reg,
		clock:    clock,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1/sync", func(r chi.Router) {
		r.Post("/{family}", s.startSync)
		r.Get("/active", s.activeJobs)
		r.Get("/history", s.history)
		r.Route("/jobs/{job_id}", func(r chi.Router) {
			r.Get("/", s.getJob)
			r.Get("/logs", s.getJobLogs)
			r.Post("/cancel", s.cancelJob)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type syncRequest struct {
	Trigger string `json:"trigger"`
	driver.Filters
}

func (s *Server) startSync(w http.ResponseWriter, r *http.Request) {
	family, err := scrape.ParseFamily(chi.URLParam(r, "family"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Trigger == "" {
		req.Trigger = "api"
	}

	job, err := s.starter.Start(family, req.Trigger, req.Filters)
	if err != nil {
		if errors.Is(err, registry.ErrJobRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("start sync failed",
			zap.String("family", string(family)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to start sync")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job": s.toJobDTO(job)})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseJobID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	job, err := s.registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": s.toJobDTO(job)})
}

func (s *Server) getJobLogs(w http.ResponseWriter, r *http.Request) {
	id, err := parseJobID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logs, err := s.registry.Logs(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseJobID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.registry.Cancel(id); err != nil {
		switch {
		case errors.Is(err, registry.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, registry.ErrNotRunning):
			writeError(w, http.StatusConflict, "job is not running")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"job_id": id.String(),
		"status": "cancel_requested",
	})
}

func (s *Server) activeJobs(w http.ResponseWriter, _ *http.Request) {
	active := make(map[string]jobDTO)
	for _, family := range []scrape.Family{
		scrape.FamilyRankings, scrape.FamilyRosters, scrape.FamilyTournaments,
	} {
		if job, ok := s.registry.Active(family); ok {
			active[string(family)] = s.toJobDTO(job)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": active})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if limStr := r.URL.Query().Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if val > maxHistoryLimit {
			val = maxHistoryLimit
		}
		limit = val
	}
	jobs := s.registry.History(limit)
	dtos := make([]jobDTO, 0, len(jobs))
	for _, job := range jobs {
		dtos = append(dtos, s.toJobDTO(job))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": dtos})
}

func parseJobID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "job_id")
	if raw == "" {
		return uuid.UUID{}, errors.New("job_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, errors.New("invalid job_id")
	}
	return id, nil
}

type jobDTO struct {
	ID              string     `json:"id"`
	Family          string     `json:"family"`
	Trigger         string     `json:"trigger"`
	Status          string     `json:"status"`
	CancelRequested bool       `json:"cancel_requested,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	ElapsedSeconds  float64    `json:"elapsed_seconds"`
	TotalUnits      int        `json:"total_units"`
	CompletedUnits  int        `json:"completed_units"`
	CurrentUnit     string     `json:"current_unit,omitempty"`
	LastSuccess     string     `json:"last_success,omitempty"`
	ErrorCount      int        `json:"error_count"`
	Errors          []string   `json:"errors,omitempty"`
}

func (s *Server) toJobDTO(job registry.Job) jobDTO {
	dto := jobDTO{
		ID:              job.ID.String(),
		Family:          string(job.Family),
		Trigger:         job.Trigger,
		Status:          string(job.Status),
		CancelRequested: job.CancelRequested,
		StartedAt:       job.StartedAt,
		FinishedAt:      job.FinishedAt,
		TotalUnits:      job.TotalUnits,
		CompletedUnits:  job.CompletedUnits,
		CurrentUnit:     job.CurrentUnit,
		LastSuccess:     job.LastSuccess,
		ErrorCount:      job.ErrorCount,
		Errors:          job.Errors,
	}
	end := s.clock.Now()
	if job.FinishedAt != nil {
		end = *job.FinishedAt
	}
	dto.ElapsedSeconds = end.Sub(job.StartedAt).Seconds()
	return dto
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
