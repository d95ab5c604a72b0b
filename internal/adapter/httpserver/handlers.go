package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rrronit/flash/internal/config"
	"github.com/rrronit/flash/internal/domain"
	"github.com/rrronit/flash/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Jobs       usecase.JobService
	Languages  domain.Registry
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers wired.
func NewServer(cfg config.Config, jobs usecase.JobService, langs domain.Registry, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Jobs: jobs, Languages: langs, RedisCheck: redisCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// submitRequest is the external submission shape. Limits are optional;
// zero values fall back to the defaults.
type submitRequest struct {
	Code        string  `json:"code" validate:"required"`
	Language    string  `json:"language" validate:"required"`
	Input       string  `json:"input"`
	Expected    string  `json:"expected"`
	TimeLimit   float64 `json:"time_limit" validate:"omitempty,gt=0,lte=20"`
	MemoryLimit uint64  `json:"memory_limit" validate:"omitempty,gte=2048,lte=1024000"`
	StackLimit  uint64  `json:"stack_limit" validate:"omitempty,gte=1024,lte=256000"`
}

// SubmitHandler accepts a source submission, stores it, and enqueues it.
func (s *Server) SubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		lang, ok := s.Languages.Lookup(req.Language)
		if !ok {
			writeError(w, r, fmt.Errorf("%w: unknown language %q", domain.ErrInvalidArgument, req.Language),
				map[string]any{"supported": s.Languages.Names()})
			return
		}

		job := domain.NewJob(req.Code, lang)
		job.Stdin = req.Input
		job.ExpectedOutput = req.Expected
		if req.TimeLimit > 0 {
			job.Settings.CPUTimeLimit = req.TimeLimit
		}
		if req.MemoryLimit > 0 {
			job.Settings.MemoryLimit = req.MemoryLimit
		}
		if req.StackLimit > 0 {
			job.Settings.StackLimit = req.StackLimit
		}

		id, err := s.Jobs.Submit(r.Context(), job)
		if err != nil {
			LoggerFrom(r).Error("submit failed", "error", err)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"status": "created",
			"id":     strconv.FormatUint(id, 10),
		})
	}
}

// CheckHandler returns the stored job projection by id.
func (s *Server) CheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "id")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: malformed job id %q", domain.ErrInvalidArgument, raw), nil)
			return
		}
		job, err := s.Jobs.Check(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, usecase.ViewOf(job))
	}
}

// HealthHandler is the liveness probe.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

// ReadyzHandler reports whether the store behind the queue is reachable.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.RedisCheck != nil {
			if err := s.RedisCheck(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ready": true})
	}
}
