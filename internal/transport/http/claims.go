package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/export"
	"github.com/YusovID/bim-delivery-service/internal/service"
	"github.com/YusovID/bim-delivery-service/pkg/logger/sl"
	"github.com/shopspring/decimal"
)

type claimResponse struct {
	*domain.BillingClaim
	Total decimal.Decimal `json:"total"`
}

func newClaimResponse(c *domain.BillingClaim) claimResponse {
	return claimResponse{BillingClaim: c, Total: c.Total()}
}

func (s *Server) generateClaim(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.generateClaim"

	projectID, err := pathID(r, "projectID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req createClaimRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	claim, err := s.Billing.GenerateClaim(r.Context(), service.ClaimRequest{
		ProjectID:   projectID,
		PeriodStart: req.PeriodStart.Time,
		PeriodEnd:   req.PeriodEnd.Time,
		PORef:       req.PORef,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]claimResponse{"claim": newClaimResponse(claim)})
}

func (s *Server) listClaims(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.listClaims"

	projectID, err := pathID(r, "projectID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	claims, err := s.Billing.ListClaims(r.Context(), projectID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	resp := make([]claimResponse, len(claims))
	for i := range claims {
		resp[i] = newClaimResponse(&claims[i])
	}

	s.respond(w, http.StatusOK, map[string][]claimResponse{"claims": resp})
}

func (s *Server) getClaim(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getClaim"

	id, err := pathID(r, "claimID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	claim, err := s.Billing.GetClaim(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]claimResponse{"claim": newClaimResponse(claim)})
}

func (s *Server) setClaimStatus(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.setClaimStatus"

	id, err := pathID(r, "claimID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req claimStatusRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	claim, err := s.Billing.SetClaimStatus(r.Context(), id, req.Status, req.InvoiceRef)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]claimResponse{"claim": newClaimResponse(claim)})
}

func (s *Server) exportClaim(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.exportClaim"

	id, err := pathID(r, "claimID")
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.handleServiceError(w, r, op, fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err))
		return
	}

	claim, err := s.Billing.GetClaim(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteClaim(&buf, claim, format); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="claim-%d.%s"`, claim.ID, format.Extension()))
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		s.log.Error("failed to write claim export", sl.Err(err))
	}
}
