package http

import (
	"fmt"
	"net/http"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/domain"
)

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.createProject"

	var req createProjectRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	project, err := s.Catalog.CreateProject(r.Context(), domain.Project{Name: req.Name, Code: req.Code})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]*domain.Project{"project": project})
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getProject"

	id, err := pathID(r, "projectID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	project, err := s.Catalog.GetProject(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.Project{"project": project})
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.deleteProject"

	id, err := pathID(r, "projectID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	deleted, err := s.Catalog.DeleteProject(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if !deleted {
		s.handleServiceError(w, r, op, fmt.Errorf("%w: project %d", apperrors.ErrNotFound, id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createService(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.createService"

	projectID, err := pathID(r, "projectID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req createServiceRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	svc, err := req.toDomain(projectID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	id, err := s.Catalog.CreateService(r.Context(), svc)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	svc.ID = id

	s.respond(w, http.StatusCreated, map[string]*domain.Service{"service": svc})
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.listServices"

	projectID, err := pathID(r, "projectID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	services, err := s.Catalog.ListServices(r.Context(), projectID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]domain.Service{"services": services})
}

func (s *Server) getService(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getService"

	id, err := pathID(r, "serviceID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	svc, err := s.Catalog.GetService(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.Service{"service": svc})
}

func (s *Server) updateService(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.updateService"

	id, err := pathID(r, "serviceID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req updateServiceRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	changed, err := s.Catalog.UpdateService(r.Context(), id, patch)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	svc, err := s.Catalog.GetService(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"updated": changed, "service": svc})
}

func (s *Server) deleteService(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.deleteService"

	id, err := pathID(r, "serviceID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	deleted, err := s.Catalog.DeleteService(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if !deleted {
		s.handleServiceError(w, r, op, fmt.Errorf("%w: service %d", apperrors.ErrNotFound, id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serviceCompletion(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.serviceCompletion"

	id, err := pathID(r, "serviceID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	pct, err := s.Completion.ServiceCompletionPct(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"service_id": id, "completion_pct": pct})
}

func (s *Server) setServiceStatus(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.setServiceStatus"

	id, err := pathID(r, "serviceID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req serviceStatusRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	pct, err := s.Completion.SetNonReviewStatus(r.Context(), id, req.Status)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"service_id": id, "progress_pct": pct})
}

func (s *Server) projectKPIs(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.projectKPIs"

	id, err := pathID(r, "projectID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	today, err := queryDate(r, "today")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if today.IsZero() {
		today = s.now()
	}

	kpis, err := s.Completion.ProjectKPIs(r.Context(), id, today)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, kpis)
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.listTemplates"

	templates, err := s.Templates.ListTemplates(r.Context())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]domain.Template{"templates": templates})
}

func (s *Server) applyTemplate(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.applyTemplate"

	projectID, err := pathID(r, "projectID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req applyTemplateRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	overrides, err := req.toOverrides()
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	created, err := s.Templates.ApplyTemplate(r.Context(), projectID, req.Template, overrides)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string][]domain.Service{"services": created})
}
