package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/repository"
	"github.com/YusovID/bim-delivery-service/internal/schedule"
	"github.com/jmoiron/sqlx"
)

// CycleService creates and reconciles the review cycles of review services.
type CycleService interface {
	Generate(ctx context.Context, serviceID int64, opts GenerateOptions) (*GenerateResult, error)
	GenerateServiceReviews(ctx context.Context, projectID int64, opts GenerateOptions) ([]GenerateResult, error)
	ListDueBetween(ctx context.Context, projectID int64, from, to time.Time) ([]domain.ReviewCycle, error)
}

// CycleOverride replaces the inherited defaults of one cycle, addressed by cycle_no.
type CycleOverride struct {
	Disciplines  *string  `json:"disciplines"`
	Deliverables *string  `json:"deliverables"`
	WeightFactor *float64 `json:"weight_factor"`
}

// GenerateOptions controls how existing cycles are treated on regeneration.
type GenerateOptions struct {
	// Force drops every existing cycle and rebuilds the full set.
	Force bool
	// PreserveManual makes Force fail instead of discarding altered cycles.
	PreserveManual bool
	// Overrides shape the cycles this call creates. Kept cycles are never touched, so
	// overrides on a service whose schedule is unchanged are rejected unless Force is set.
	Overrides map[int]CycleOverride
}

// GenerateResult reports what one service's generation did to its cycles.
type GenerateResult struct {
	ServiceID  int64                      `json:"service_id"`
	Cycles     []domain.ReviewCycle       `json:"cycles"`
	Created    int                        `json:"created"`
	Removed    int                        `json:"removed"`
	Renumbered int                        `json:"renumbered"`
	Unchanged  int                        `json:"unchanged"`
	Protected  []apperrors.ProtectedCycle `json:"protected"`
	Skipped    bool                       `json:"skipped"`
}

// CycleServiceImpl is the database-backed CycleService.
type CycleServiceImpl struct {
	BaseService
	progressTracker
	turnaroundDays int
}

// NewCycleService builds a CycleService; opts.TurnaroundDays sets the due date offset.
func NewCycleService(
	db DB,
	log *slog.Logger,
	services repository.ServiceRepository,
	cycles repository.ReviewCycleRepository,
	opts Options,
) *CycleServiceImpl {
	return &CycleServiceImpl{
		BaseService:     NewBaseService(db, log),
		progressTracker: progressTracker{services: services, cycles: cycles},
		turnaroundDays:  opts.TurnaroundDays,
	}
}

// Generate reconciles one service's cycles with its schedule under a row lock on the service.
func (s *CycleServiceImpl) Generate(ctx context.Context, serviceID int64, opts GenerateOptions) (*GenerateResult, error) {
	const op = "internal.service.cycles.Generate"

	if err := validateOverrides(opts.Overrides); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var res *GenerateResult

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		svc, err := s.services.GetServiceForUpdate(ctx, tx, serviceID)
		if err != nil {
			return fmt.Errorf("%s: failed to get service: %w", op, err)
		}

		if !svc.IsReview() {
			return fmt.Errorf("%s: %w: %w", op, apperrors.ErrNotReviewService,
				apperrors.NewValidationError(fmt.Sprintf("service %d has unit type %s", svc.ID, svc.UnitType)))
		}

		if err := checkSchedule(svc); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		res, err = s.generate(ctx, tx, svc, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logResult(op, res)

	return res, nil
}

// GenerateServiceReviews regenerates every review service of a project in one transaction.
// Services without a schedule yet are skipped.
func (s *CycleServiceImpl) GenerateServiceReviews(ctx context.Context, projectID int64, opts GenerateOptions) ([]GenerateResult, error) {
	const op = "internal.service.cycles.GenerateServiceReviews"
	log := s.log.With(slog.String("op", op), slog.Int64("project_id", projectID))

	if err := validateOverrides(opts.Overrides); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	results := make([]GenerateResult, 0)

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		services, err := s.services.ListServices(ctx, tx, projectID)
		if err != nil {
			return fmt.Errorf("%s: failed to list services: %w", op, err)
		}

		for i := range services {
			if !services[i].IsReview() {
				continue
			}

			svc, err := s.services.GetServiceForUpdate(ctx, tx, services[i].ID)
			if err != nil {
				return fmt.Errorf("%s: failed to lock service %d: %w", op, services[i].ID, err)
			}

			if checkSchedule(svc) != nil {
				log.Warn("service has no schedule, skipping", slog.Int64("service_id", svc.ID))
				continue
			}

			res, err := s.generate(ctx, tx, svc, opts)
			if err != nil {
				return fmt.Errorf("%s: service %d: %w", op, svc.ID, err)
			}

			results = append(results, *res)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range results {
		s.logResult(op, &results[i])
	}

	return results, nil
}

// ListDueBetween lists a project's cycles due in [from, to]; a zero bound is open.
func (s *CycleServiceImpl) ListDueBetween(ctx context.Context, projectID int64, from, to time.Time) ([]domain.ReviewCycle, error) {
	const op = "internal.service.cycles.ListDueBetween"

	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%s: %w", op, apperrors.NewValidationError("due_to must not be before due_from"))
	}

	cycles, err := s.cycles.ListDueBetween(ctx, s.db, projectID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list cycles: %w", op, err)
	}

	return cycles, nil
}

func (s *CycleServiceImpl) logResult(op string, res *GenerateResult) {
	s.log.Info("review cycles generated",
		slog.String("op", op),
		slog.Int64("service_id", res.ServiceID),
		slog.Int("created", res.Created),
		slog.Int("removed", res.Removed),
		slog.Int("renumbered", res.Renumbered),
		slog.Int("unchanged", res.Unchanged),
		slog.Int("protected", len(res.Protected)),
		slog.Bool("skipped", res.Skipped),
	)
}

func checkSchedule(svc *domain.Service) error {
	var msgs []string

	if svc.ScheduleStart == nil || svc.ScheduleStart.IsZero() {
		msgs = append(msgs, "schedule_start is required to generate review cycles")
	}

	if svc.ScheduleFrequency == "" {
		msgs = append(msgs, "schedule_frequency is required to generate review cycles")
	}

	if len(msgs) > 0 {
		return apperrors.NewValidationError(msgs...)
	}

	return nil
}

func validateOverrides(overrides map[int]CycleOverride) error {
	var msgs []string

	for no, o := range overrides {
		if no < 1 {
			msgs = append(msgs, fmt.Sprintf("override cycle_no %d must be positive", no))
		}

		if o.WeightFactor != nil && *o.WeightFactor <= 0 {
			msgs = append(msgs, fmt.Sprintf("weight_factor of cycle %d must be greater than 0", no))
		}
	}

	if len(msgs) > 0 {
		return apperrors.NewValidationError(msgs...)
	}

	return nil
}

// generate reconciles the stored cycles of a locked review service with its current schedule.
func (s *CycleServiceImpl) generate(ctx context.Context, tx *sqlx.Tx, svc *domain.Service, opts GenerateOptions) (*GenerateResult, error) {
	res := &GenerateResult{ServiceID: svc.ID, Protected: []apperrors.ProtectedCycle{}}

	existing, err := s.cycles.ListByService(ctx, tx, svc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}

	if !svc.IsActive() {
		res.Skipped = true
		res.Cycles = existing
		res.Unchanged = len(existing)

		return res, nil
	}

	sig := schedule.ServiceSignature(svc)

	if !opts.Force && len(existing) > 0 && sharesSignature(existing, sig) {
		if len(opts.Overrides) > 0 {
			return nil, apperrors.NewValidationError(
				"schedule is unchanged so no cycles would be created; use force to apply overrides",
			)
		}

		res.Cycles = existing
		res.Unchanged = len(existing)

		return res, nil
	}

	var end time.Time
	if svc.ScheduleEnd != nil {
		end = *svc.ScheduleEnd
	}

	slots := schedule.DistributeWithTurnaround(*svc.ScheduleStart, end, svc.CycleCount(), svc.ScheduleFrequency, s.turnaroundDays)

	if opts.Force {
		err = s.rebuild(ctx, tx, svc, existing, slots, sig, opts, res)
	} else {
		err = s.reconcile(ctx, tx, svc, existing, slots, sig, opts, res)
	}

	if err != nil {
		return nil, err
	}

	if err := s.sync(ctx, tx, svc); err != nil {
		return nil, fmt.Errorf("failed to sync progress: %w", err)
	}

	res.Cycles, err = s.cycles.ListByService(ctx, tx, svc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}

	return res, nil
}

func (s *CycleServiceImpl) rebuild(
	ctx context.Context,
	tx *sqlx.Tx,
	svc *domain.Service,
	existing []domain.ReviewCycle,
	slots []schedule.Slot,
	sig string,
	opts GenerateOptions,
	res *GenerateResult,
) error {
	if opts.PreserveManual {
		var altered []apperrors.ProtectedCycle

		for i := range existing {
			if reason := existing[i].ProtectionReason(); reason != "" {
				altered = append(altered, apperrors.ProtectedCycle{
					ReviewID: existing[i].ID,
					CycleNo:  existing[i].CycleNo,
					Reason:   reason,
				})
			}
		}

		if len(altered) > 0 {
			return &apperrors.ProtectedCyclesError{ServiceID: svc.ID, Cycles: altered}
		}
	}

	removed, err := s.cycles.DeleteByService(ctx, tx, svc.ID)
	if err != nil {
		return fmt.Errorf("failed to delete cycles: %w", err)
	}

	res.Removed = removed

	fresh := make([]domain.ReviewCycle, len(slots))
	for i, slot := range slots {
		fresh[i] = newCycle(svc, slot, sig, opts.Overrides)
	}

	if _, err := s.cycles.InsertCycles(ctx, tx, fresh); err != nil {
		return fmt.Errorf("failed to insert cycles: %w", err)
	}

	res.Created = len(fresh)

	return nil
}

// reconcile replaces pristine cycles from an older schedule and keeps everything carrying manual work.
// Positions 1..N left free are filled from the new distribution; kept cycles past N move to N+1.. in order.
func (s *CycleServiceImpl) reconcile(
	ctx context.Context,
	tx *sqlx.Tx,
	svc *domain.Service,
	existing []domain.ReviewCycle,
	slots []schedule.Slot,
	sig string,
	opts GenerateOptions,
	res *GenerateResult,
) error {
	n := len(slots)
	occupied := make(map[int]bool, len(existing))

	var (
		stale    []int64
		overflow []domain.ReviewCycle
	)

	for _, c := range existing {
		reason := c.ProtectionReason()

		switch {
		case reason == "" && (c.Signature != sig || c.CycleNo > n):
			stale = append(stale, c.ID)
			continue
		case reason != "":
			res.Protected = append(res.Protected, apperrors.ProtectedCycle{
				ReviewID: c.ID,
				CycleNo:  c.CycleNo,
				Reason:   reason,
			})
		default:
			res.Unchanged++
		}

		if c.CycleNo > n {
			overflow = append(overflow, c)
		} else {
			occupied[c.CycleNo] = true
		}
	}

	if len(stale) > 0 {
		if err := s.cycles.DeleteCycles(ctx, tx, stale); err != nil {
			return fmt.Errorf("failed to delete stale cycles: %w", err)
		}

		res.Removed = len(stale)
	}

	for i, c := range overflow {
		no := n + i + 1
		if no == c.CycleNo {
			continue
		}

		if err := s.cycles.Renumber(ctx, tx, c.ID, no); err != nil {
			return fmt.Errorf("failed to renumber cycle %d: %w", c.ID, err)
		}

		res.Renumbered++
	}

	fresh := make([]domain.ReviewCycle, 0, n)
	for _, slot := range slots {
		if occupied[slot.CycleNo] {
			continue
		}

		fresh = append(fresh, newCycle(svc, slot, sig, opts.Overrides))
	}

	if len(fresh) > 0 {
		if _, err := s.cycles.InsertCycles(ctx, tx, fresh); err != nil {
			return fmt.Errorf("failed to insert cycles: %w", err)
		}
	}

	res.Created = len(fresh)

	return nil
}

func sharesSignature(cycles []domain.ReviewCycle, sig string) bool {
	for i := range cycles {
		if cycles[i].Signature != sig {
			return false
		}
	}

	return true
}

func newCycle(svc *domain.Service, slot schedule.Slot, sig string, overrides map[int]CycleOverride) domain.ReviewCycle {
	c := domain.ReviewCycle{
		ServiceID:    svc.ID,
		CycleNo:      slot.CycleNo,
		PlannedDate:  slot.PlannedDate,
		DueDate:      slot.DueDate,
		Disciplines:  svc.Disciplines,
		Deliverables: svc.Deliverables,
		Status:       domain.ReviewPlanned,
		WeightFactor: 1,
		Signature:    sig,
	}

	o, ok := overrides[slot.CycleNo]
	if !ok {
		return c
	}

	if o.Disciplines != nil {
		c.Disciplines = *o.Disciplines
	}

	if o.Deliverables != nil {
		c.Deliverables = *o.Deliverables
	}

	if o.WeightFactor != nil {
		c.WeightFactor = *o.WeightFactor
	}

	return c
}
