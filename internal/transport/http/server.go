// Package http exposes the scheduling and billing operations over a JSON API.
// Handlers decode and validate requests, call the service layer and map
// apperrors sentinels to status codes.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/service"
	"github.com/YusovID/bim-delivery-service/internal/validation"
	"github.com/YusovID/bim-delivery-service/pkg/logger/sl"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	log *slog.Logger
	service.Services
	now func() time.Time
}

func NewServer(log *slog.Logger, services service.Services) *Server {
	return &Server{
		log:      log,
		Services: services,
		now:      time.Now,
	}
}

// Routes builds the router with middleware and every API endpoint.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.requestID)
	mux.Use(s.logRequest)
	mux.Use(s.metricsMiddleware)

	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/projects", func(r chi.Router) {
		r.Post("/", s.createProject)

		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", s.getProject)
			r.Delete("/", s.deleteProject)

			r.Post("/services", s.createService)
			r.Get("/services", s.listServices)

			r.Post("/templates/apply", s.applyTemplate)

			r.Get("/reviews", s.listReviewsDue)
			r.Post("/reviews/generate", s.generateProjectReviews)
			r.Post("/reviews/refresh", s.refreshStatuses)

			r.Get("/kpis", s.projectKPIs)

			r.Post("/claims", s.generateClaim)
			r.Get("/claims", s.listClaims)
		})
	})

	mux.Get("/templates", s.listTemplates)

	mux.Route("/services/{serviceID}", func(r chi.Router) {
		r.Get("/", s.getService)
		r.Patch("/", s.updateService)
		r.Delete("/", s.deleteService)

		r.Get("/completion", s.serviceCompletion)
		r.Post("/status", s.setServiceStatus)

		r.Post("/reviews/generate", s.generateServiceReviews)
		r.Post("/reviews/start-next", s.startNextCycle)
	})

	mux.Post("/reviews/{reviewID}/status", s.setReviewStatus)

	mux.Route("/claims/{claimID}", func(r chi.Router) {
		r.Get("/", s.getClaim)
		r.Post("/status", s.setClaimStatus)
		r.Get("/export", s.exportClaim)
	})

	return mux
}

// respond encodes data as JSON with the given status code.
func (s *Server) respond(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Error("failed to encode response", sl.Err(err))
		}
	}
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

const (
	codeValidation     = "VALIDATION_FAILED"
	codeInvalidRequest = "INVALID_REQUEST"
	codeNotFound       = "NOT_FOUND"
	codeConflict       = "CONFLICT"
	codeInternal       = "INTERNAL"
)

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string, details any) {
	s.respond(w, status, errorBody{Error: errorPayload{Code: code, Message: message, Details: details}})
}

// decodeAndValidate reads a JSON body into v and runs its validate tags.
func (s *Server) decodeAndValidate(r *http.Request, v any) error {
	if err := s.decode(r.Body, v); err != nil {
		return err
	}

	return validation.ValidateStruct(v)
}

func (s *Server) decode(body io.ReadCloser, v any) error {
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return nil
}

// decodeOptional is decode for endpoints whose body may be left out entirely.
func (s *Server) decodeOptional(r *http.Request, v any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return validation.ValidateStruct(v)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", apperrors.ErrInvalidRequest, name, raw)
	}

	return id, nil
}

func queryDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}

	t, err := parseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %w", apperrors.ErrInvalidRequest, name, err)
	}

	return t, nil
}

// handleServiceError logs err and maps it to an error response.
func (s *Server) handleServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := s.log.With(slog.String("op", op), slog.String("request_id", getRequestID(r.Context())))

	var (
		validationErr *apperrors.ValidationError
		protectedErr  *apperrors.ProtectedCyclesError
	)

	switch {
	case errors.As(err, &validationErr):
		log.Warn("request rejected", sl.Err(err))
		s.respondError(w, http.StatusBadRequest, codeValidation, apperrors.ErrValidation.Error(), validationErr.Errors)
	case errors.Is(err, apperrors.ErrInvalidRequest):
		log.Warn("request rejected", sl.Err(err))
		s.respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error(), nil)
	case errors.Is(err, apperrors.ErrNotFound):
		log.Info("resource not found", sl.Err(err))
		s.respondError(w, http.StatusNotFound, codeNotFound, apperrors.ErrNotFound.Error(), nil)
	case errors.As(err, &protectedErr):
		log.Warn("regeneration blocked", sl.Err(err))
		s.respondError(w, http.StatusConflict, codeConflict, protectedErr.Error(), protectedErr.Cycles)
	case errors.Is(err, apperrors.ErrConflict):
		log.Warn("conflicting request", sl.Err(err))
		s.respondError(w, http.StatusConflict, codeConflict, err.Error(), nil)
	default:
		log.Error("service error occurred", sl.Err(err))
		s.respondError(w, http.StatusInternalServerError, codeInternal, "internal server error", nil)
	}
}
