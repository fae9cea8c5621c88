package http

import (
	"net/http"

	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/service"
)

func (s *Server) generateServiceReviews(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.generateServiceReviews"

	id, err := pathID(r, "serviceID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req generateReviewsRequest
	if err := s.decodeOptional(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.Cycles.Generate(r.Context(), id, req.toOptions())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, res)
}

func (s *Server) generateProjectReviews(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.generateProjectReviews"

	projectID, err := pathID(r, "projectID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req generateReviewsRequest
	if err := s.decodeOptional(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	results, err := s.Cycles.GenerateServiceReviews(r.Context(), projectID, req.toOptions())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]service.GenerateResult{"results": results})
}

func (s *Server) listReviewsDue(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.listReviewsDue"

	projectID, err := pathID(r, "projectID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	from, err := queryDate(r, "due_from")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	to, err := queryDate(r, "due_to")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	cycles, err := s.Cycles.ListDueBetween(r.Context(), projectID, from, to)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]domain.ReviewCycle{"reviews": cycles})
}

func (s *Server) setReviewStatus(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.setReviewStatus"

	id, err := pathID(r, "reviewID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req reviewStatusRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	ok, err := s.Status.SetReviewStatus(r.Context(), id, req.Status, req.EvidenceLink)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{"review_id": id, "updated": ok})
}

func (s *Server) refreshStatuses(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.refreshStatuses"

	projectID, err := pathID(r, "projectID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req refreshRequest
	if err := s.decodeOptional(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	today := s.now()
	if req.Today != nil {
		today = req.Today.Time
	}

	updated, err := s.Status.RefreshStatusesByDate(r.Context(), projectID, today)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]int{"updated_count": updated})
}

func (s *Server) startNextCycle(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.startNextCycle"

	id, err := pathID(r, "serviceID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	cycle, err := s.Status.StartNextCycle(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.ReviewCycle{"review": cycle})
}
