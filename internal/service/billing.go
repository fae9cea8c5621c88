package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/repository"
	"github.com/YusovID/bim-delivery-service/internal/schedule"
	"github.com/jmoiron/sqlx"
)

type BillingService interface {
	GenerateClaim(ctx context.Context, req ClaimRequest) (*domain.BillingClaim, error)
	GetClaim(ctx context.Context, claimID int64) (*domain.BillingClaim, error)
	ListClaims(ctx context.Context, projectID int64) ([]domain.BillingClaim, error)
	SetClaimStatus(ctx context.Context, claimID int64, status domain.ClaimStatus, invoiceRef *string) (*domain.BillingClaim, error)
}

type ClaimRequest struct {
	ProjectID   int64
	PeriodStart time.Time
	PeriodEnd   time.Time
	PORef       *string
}

func (r ClaimRequest) validate() error {
	var msgs []string

	if r.ProjectID <= 0 {
		msgs = append(msgs, "project_id must be positive")
	}

	if r.PeriodStart.IsZero() || r.PeriodEnd.IsZero() {
		msgs = append(msgs, "period_start and period_end are required")
	} else if r.PeriodEnd.Before(r.PeriodStart) {
		msgs = append(msgs, "period_end must not be before period_start")
	}

	if len(msgs) > 0 {
		return apperrors.NewValidationError(msgs...)
	}

	return nil
}

type BillingServiceImpl struct {
	BaseService
	progressTracker
	projects repository.ProjectRepository
	claims   repository.ClaimRepository
}

func NewBillingService(
	db DB,
	log *slog.Logger,
	projects repository.ProjectRepository,
	services repository.ServiceRepository,
	cycles repository.ReviewCycleRepository,
	claims repository.ClaimRepository,
) *BillingServiceImpl {
	return &BillingServiceImpl{
		BaseService:     NewBaseService(db, log),
		progressTracker: progressTracker{services: services, cycles: cycles},
		projects:        projects,
		claims:          claims,
	}
}

// GenerateClaim bills every active service for the progress made since its last claim line.
// Services without a positive delta get no line. The whole claim is written or nothing is.
func (s *BillingServiceImpl) GenerateClaim(ctx context.Context, req ClaimRequest) (*domain.BillingClaim, error) {
	const op = "internal.service.billing.GenerateClaim"
	log := s.log.With(slog.String("op", op), slog.Int64("project_id", req.ProjectID))

	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	claim := &domain.BillingClaim{
		ProjectID:   req.ProjectID,
		PeriodStart: schedule.Day(req.PeriodStart),
		PeriodEnd:   schedule.Day(req.PeriodEnd),
		PORef:       trimmedOrNil(req.PORef),
		Status:      domain.ClaimDraft,
		Lines:       []domain.BillingClaimLine{},
	}

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := s.projects.GetProject(ctx, tx, req.ProjectID); err != nil {
			return fmt.Errorf("%s: failed to get project: %w", op, err)
		}

		if err := s.claims.LockProject(ctx, tx, req.ProjectID); err != nil {
			return fmt.Errorf("%s: failed to lock project: %w", op, err)
		}

		prev, err := s.claims.LatestClaimedPct(ctx, tx, req.ProjectID)
		if err != nil {
			return fmt.Errorf("%s: failed to read previous claims: %w", op, err)
		}

		services, err := s.services.ListServices(ctx, tx, req.ProjectID)
		if err != nil {
			return fmt.Errorf("%s: failed to list services: %w", op, err)
		}

		for i := range services {
			svc := &services[i]
			if !svc.IsActive() {
				continue
			}

			pct, err := s.completionPct(ctx, tx, svc)
			if err != nil {
				return fmt.Errorf("%s: %w", op, &apperrors.CompletionLookupError{
					ServiceID:   svc.ID,
					ServiceCode: svc.Code,
					Err:         err,
				})
			}

			line := domain.NewClaimLine(svc, prev[svc.ID], svc.BillRule.Claimable(pct))
			if line.DeltaPct <= 0 {
				continue
			}

			claim.Lines = append(claim.Lines, line)
		}

		if err := s.claims.InsertClaim(ctx, tx, claim); err != nil {
			return fmt.Errorf("%s: failed to insert claim: %w", op, err)
		}

		if len(claim.Lines) > 0 {
			if err := s.claims.InsertLines(ctx, tx, claim.ID, claim.Lines); err != nil {
				return fmt.Errorf("%s: failed to insert claim lines: %w", op, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("claim generated",
		slog.Int64("claim_id", claim.ID),
		slog.Int("lines", len(claim.Lines)),
		slog.String("total", claim.Total().StringFixed(2)),
	)

	return claim, nil
}

func (s *BillingServiceImpl) GetClaim(ctx context.Context, claimID int64) (*domain.BillingClaim, error) {
	const op = "internal.service.billing.GetClaim"

	claim, err := s.claims.GetClaim(ctx, s.db, claimID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return claim, nil
}

func (s *BillingServiceImpl) ListClaims(ctx context.Context, projectID int64) ([]domain.BillingClaim, error) {
	const op = "internal.service.billing.ListClaims"

	if _, err := s.projects.GetProject(ctx, s.db, projectID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	claims, err := s.claims.ListClaims(ctx, s.db, projectID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list claims: %w", op, err)
	}

	return claims, nil
}

// SetClaimStatus moves a claim forward along draft, submitted, paid.
func (s *BillingServiceImpl) SetClaimStatus(ctx context.Context, claimID int64, status domain.ClaimStatus, invoiceRef *string) (*domain.BillingClaim, error) {
	const op = "internal.service.billing.SetClaimStatus"
	log := s.log.With(slog.String("op", op), slog.Int64("claim_id", claimID), slog.String("status", string(status)))

	if !status.Valid() {
		return nil, fmt.Errorf("%s: %w", op, apperrors.NewValidationError(
			fmt.Sprintf("unknown claim status %q", status)))
	}

	var claim *domain.BillingClaim

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error

		claim, err = s.claims.GetClaimForUpdate(ctx, tx, claimID)
		if err != nil {
			return fmt.Errorf("%s: failed to get claim: %w", op, err)
		}

		if !claim.Status.CanMoveTo(status) {
			return fmt.Errorf("%s: %w: %w: cannot move claim from %s to %s",
				op, apperrors.ErrConflict, apperrors.ErrClaimLocked, claim.Status, status)
		}

		ref := claim.InvoiceRef
		if r := trimmedOrNil(invoiceRef); r != nil {
			ref = r
		}

		if err := s.claims.UpdateClaimStatus(ctx, tx, claimID, status, ref); err != nil {
			return fmt.Errorf("%s: failed to update claim: %w", op, err)
		}

		claim.Status = status
		claim.InvoiceRef = ref

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("claim status changed")

	return claim, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}

	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}

	return &t
}
