package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/repository"
	"github.com/YusovID/bim-delivery-service/internal/schedule"
	"github.com/YusovID/bim-delivery-service/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type CompletionService interface {
	ServiceCompletionPct(ctx context.Context, serviceID int64) (float64, error)
	SetNonReviewStatus(ctx context.Context, serviceID int64, status domain.ReviewStatus) (float64, error)
	ProjectKPIs(ctx context.Context, projectID int64, today time.Time) (*domain.ProjectKPIs, error)
}

// progressTracker derives completion from cycles and keeps services.progress_pct in step with it.
type progressTracker struct {
	services repository.ServiceRepository
	cycles   repository.ReviewCycleRepository
}

func (p progressTracker) completionPct(ctx context.Context, ext sqlx.ExtContext, svc *domain.Service) (float64, error) {
	if !svc.IsReview() {
		return svc.ProgressPct, nil
	}

	cycles, err := p.cycles.ListByService(ctx, ext, svc.ID)
	if err != nil {
		return 0, err
	}

	return roundTo(domain.CompletionPct(cycles), 2), nil
}

// sync recomputes and stores the progress of a review service; other services keep their manual value.
func (p progressTracker) sync(ctx context.Context, tx *sqlx.Tx, svc *domain.Service) error {
	if !svc.IsReview() {
		return nil
	}

	pct, err := p.completionPct(ctx, tx, svc)
	if err != nil {
		return err
	}

	if pct == svc.ProgressPct {
		return nil
	}

	if err := p.services.SetProgress(ctx, tx, svc.ID, pct); err != nil {
		return err
	}

	svc.ProgressPct = pct

	return nil
}

func (p progressTracker) syncByID(ctx context.Context, tx *sqlx.Tx, serviceID int64) error {
	svc, err := p.services.GetService(ctx, tx, serviceID)
	if err != nil {
		return err
	}

	return p.sync(ctx, tx, svc)
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

type CompletionServiceImpl struct {
	BaseService
	progressTracker
	projects          repository.ProjectRepository
	claims            repository.ClaimRepository
	upcomingLookahead int
}

func NewCompletionService(
	db DB,
	log *slog.Logger,
	projects repository.ProjectRepository,
	services repository.ServiceRepository,
	cycles repository.ReviewCycleRepository,
	claims repository.ClaimRepository,
	opts Options,
) *CompletionServiceImpl {
	return &CompletionServiceImpl{
		BaseService:       NewBaseService(db, log),
		progressTracker:   progressTracker{services: services, cycles: cycles},
		projects:          projects,
		claims:            claims,
		upcomingLookahead: opts.UpcomingLookahead,
	}
}

func (s *CompletionServiceImpl) ServiceCompletionPct(ctx context.Context, serviceID int64) (float64, error) {
	const op = "internal.service.completion.ServiceCompletionPct"

	svc, err := s.services.GetService(ctx, s.db, serviceID)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get service: %w", op, err)
	}

	pct, err := s.completionPct(ctx, s.db, svc)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to compute completion: %w", op, err)
	}

	return pct, nil
}

// SetNonReviewStatus stores the three-point progress of a service that has no cycles.
func (s *CompletionServiceImpl) SetNonReviewStatus(ctx context.Context, serviceID int64, status domain.ReviewStatus) (float64, error) {
	const op = "internal.service.completion.SetNonReviewStatus"
	log := s.log.With(slog.String("op", op), slog.Int64("service_id", serviceID), slog.String("status", string(status)))

	pct, ok := domain.NonReviewProgress(status)
	if !ok {
		return 0, fmt.Errorf("%s: %w", op, apperrors.NewValidationError(
			fmt.Sprintf("status must be one of planned, in_progress, completed; got %q", status)))
	}

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		svc, err := s.services.GetServiceForUpdate(ctx, tx, serviceID)
		if err != nil {
			return fmt.Errorf("%s: failed to get service: %w", op, err)
		}

		if svc.IsReview() {
			return fmt.Errorf("%s: %w", op, apperrors.NewValidationError(
				"review services derive progress from their cycles"))
		}

		if err := s.services.SetProgress(ctx, tx, serviceID, pct); err != nil {
			return fmt.Errorf("%s: failed to set progress: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Info("non-review progress set", slog.Float64("progress_pct", pct))

	return pct, nil
}

// ProjectKPIs aggregates the dashboard figures. Only a missing project is an error;
// any other failing sub-query is logged and leaves its figures at zero.
func (s *CompletionServiceImpl) ProjectKPIs(ctx context.Context, projectID int64, today time.Time) (*domain.ProjectKPIs, error) {
	const op = "internal.service.completion.ProjectKPIs"
	log := s.log.With(slog.String("op", op), slog.Int64("project_id", projectID))

	if _, err := s.projects.GetProject(ctx, s.db, projectID); err != nil {
		return nil, fmt.Errorf("%s: failed to get project: %w", op, err)
	}

	today = schedule.Day(today)

	kpis := &domain.ProjectKPIs{
		ProjectID:      projectID,
		StatusCounts:   make(map[domain.ReviewStatus]int, len(domain.ReviewStatuses)),
		TotalAgreedFee: decimal.Zero,
		TotalClaimed:   decimal.Zero,
	}

	for _, st := range domain.ReviewStatuses {
		kpis.StatusCounts[st] = 0
	}

	services, err := s.services.ListServices(ctx, s.db, projectID)
	if err != nil {
		log.Warn("failed to list services, service figures degrade to zero", sl.Err(err))
	}

	kpis.TotalServices = len(services)
	for _, svc := range services {
		kpis.TotalAgreedFee = kpis.TotalAgreedFee.Add(svc.AgreedFee)
	}

	cycles, err := s.cycles.ListByProject(ctx, s.db, projectID)
	if err != nil {
		log.Warn("failed to list review cycles, review figures degrade to zero", sl.Err(err))
	}

	horizon := today.AddDate(0, 0, s.upcomingLookahead)

	kpis.TotalReviews = len(cycles)
	for i := range cycles {
		c := &cycles[i]
		kpis.StatusCounts[c.Status]++

		if c.IsOverdue(today) {
			kpis.OverdueCount++
		}

		if c.Status.IsOpen() && !c.DueDate.Before(today) && !c.DueDate.After(horizon) {
			kpis.UpcomingCount++
		}
	}

	kpis.OverallCompletionPct = roundTo(domain.CompletionPct(cycles), 1)

	claimed, err := s.claims.SumClaimed(ctx, s.db, projectID)
	if err != nil {
		log.Warn("failed to sum claimed amounts, total claimed degrades to zero", sl.Err(err))
	} else {
		kpis.TotalClaimed = claimed
	}

	return kpis, nil
}
