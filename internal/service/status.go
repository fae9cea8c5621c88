package service

import (
	"context"
	"errors"
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

type StatusService interface {
	SetReviewStatus(ctx context.Context, reviewID int64, status domain.ReviewStatus, evidence *string) (bool, error)
	RefreshStatusesByDate(ctx context.Context, projectID int64, today time.Time) (int, error)
	StartNextCycle(ctx context.Context, serviceID int64) (*domain.ReviewCycle, error)
}

type StatusServiceImpl struct {
	BaseService
	progressTracker
	now func() time.Time
}

func NewStatusService(
	db DB,
	log *slog.Logger,
	services repository.ServiceRepository,
	cycles repository.ReviewCycleRepository,
) *StatusServiceImpl {
	return &StatusServiceImpl{
		BaseService:     NewBaseService(db, log),
		progressTracker: progressTracker{services: services, cycles: cycles},
		now:             time.Now,
	}
}

// SetReviewStatus moves a cycle to status and re-syncs the progress of its service.
// Moving to report_issued stamps actual_issued_at.
func (s *StatusServiceImpl) SetReviewStatus(ctx context.Context, reviewID int64, status domain.ReviewStatus, evidence *string) (bool, error) {
	const op = "internal.service.status.SetReviewStatus"
	log := s.log.With(slog.String("op", op), slog.Int64("review_id", reviewID), slog.String("status", string(status)))

	if !status.Valid() {
		return false, fmt.Errorf("%s: %w", op, apperrors.NewValidationError(
			fmt.Sprintf("unknown review status %q", status)))
	}

	var previous domain.ReviewStatus

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		cycle, err := s.cycles.GetForUpdate(ctx, tx, reviewID)
		if err != nil {
			return fmt.Errorf("%s: failed to get review cycle: %w", op, err)
		}

		previous = cycle.Status

		if !domain.IsValidTransition(cycle.Status, status) {
			return fmt.Errorf("%s: %w", op, apperrors.NewValidationError(
				fmt.Sprintf("cannot move review from %s to %s", cycle.Status, status)))
		}

		cycle.Status = status

		if status == domain.ReviewReportIssued {
			issued := s.now().UTC()
			cycle.ActualIssuedAt = &issued
		}

		if evidence != nil && strings.TrimSpace(*evidence) != "" {
			link := strings.TrimSpace(*evidence)
			cycle.EvidenceLinks = &link
		}

		if err := s.cycles.UpdateStatus(ctx, tx, cycle); err != nil {
			return fmt.Errorf("%s: failed to update review cycle: %w", op, err)
		}

		if err := s.syncByID(ctx, tx, cycle.ServiceID); err != nil {
			return fmt.Errorf("%s: failed to sync progress: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	log.Info("review status changed", slog.String("from", string(previous)))

	return true, nil
}

// RefreshStatusesByDate completes in_progress cycles whose due date is before today.
// Planned cycles are never advanced by date.
func (s *StatusServiceImpl) RefreshStatusesByDate(ctx context.Context, projectID int64, today time.Time) (int, error) {
	const op = "internal.service.status.RefreshStatusesByDate"
	log := s.log.With(slog.String("op", op), slog.Int64("project_id", projectID))

	if today.IsZero() {
		today = s.now()
	}

	today = schedule.Day(today)

	var updated int

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		serviceIDs, err := s.cycles.CompleteOverdue(ctx, tx, projectID, today)
		if err != nil {
			return fmt.Errorf("%s: failed to complete overdue cycles: %w", op, err)
		}

		updated = len(serviceIDs)

		seen := make(map[int64]struct{}, len(serviceIDs))
		for _, id := range serviceIDs {
			if _, ok := seen[id]; ok {
				continue
			}

			seen[id] = struct{}{}

			if err := s.syncByID(ctx, tx, id); err != nil {
				return fmt.Errorf("%s: failed to sync progress of service %d: %w", op, id, err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Info("statuses refreshed", slog.String("today", today.Format(time.DateOnly)), slog.Int("updated", updated))

	return updated, nil
}

// StartNextCycle puts the lowest-numbered planned cycle of a service in progress.
func (s *StatusServiceImpl) StartNextCycle(ctx context.Context, serviceID int64) (*domain.ReviewCycle, error) {
	const op = "internal.service.status.StartNextCycle"

	var next *domain.ReviewCycle

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		svc, err := s.services.GetServiceForUpdate(ctx, tx, serviceID)
		if err != nil {
			return fmt.Errorf("%s: failed to get service: %w", op, err)
		}

		next, err = s.cycles.NextPlanned(ctx, tx, serviceID)
		if errors.Is(err, apperrors.ErrNoPlannedCycle) {
			return fmt.Errorf("%s: %w: %w", op, apperrors.ErrNotFound, err)
		}

		if err != nil {
			return fmt.Errorf("%s: failed to get next planned cycle: %w", op, err)
		}

		next.Status = domain.ReviewInProgress

		if err := s.cycles.UpdateStatus(ctx, tx, next); err != nil {
			return fmt.Errorf("%s: failed to update review cycle: %w", op, err)
		}

		if err := s.sync(ctx, tx, svc); err != nil {
			return fmt.Errorf("%s: failed to sync progress: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("next review cycle started",
		slog.String("op", op),
		slog.Int64("service_id", serviceID),
		slog.Int("cycle_no", next.CycleNo),
	)

	return next, nil
}
