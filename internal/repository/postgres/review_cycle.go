package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

var cycleColumns = []string{
	"rc.id", "rc.service_id", "rc.cycle_no", "rc.planned_date", "rc.due_date",
	"rc.disciplines", "rc.deliverables", "rc.status", "rc.weight_factor",
	"rc.evidence_links", "rc.actual_issued_at", "rc.regeneration_signature",
}

type ReviewCycleRepository struct {
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewReviewCycleRepository(log *slog.Logger) *ReviewCycleRepository {
	return &ReviewCycleRepository{
		log: log,
		sq:  builder(),
	}
}

func (r *ReviewCycleRepository) selectCycles() sq.SelectBuilder {
	return r.sq.Select(cycleColumns...).From("review_cycles rc")
}

func (r *ReviewCycleRepository) ListByService(ctx context.Context, ext sqlx.ExtContext, serviceID int64) ([]domain.ReviewCycle, error) {
	const op = "internal.repository.postgres.ListCyclesByService"

	query, args, err := r.selectCycles().
		Where(sq.Eq{"rc.service_id": serviceID}).
		OrderBy("rc.cycle_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	return r.list(ctx, ext, op, query, args)
}

func (r *ReviewCycleRepository) ListByProject(ctx context.Context, ext sqlx.ExtContext, projectID int64) ([]domain.ReviewCycle, error) {
	const op = "internal.repository.postgres.ListCyclesByProject"

	query, args, err := r.selectCycles().
		Join("services s ON s.id = rc.service_id").
		Where(sq.Eq{"s.project_id": projectID}).
		OrderBy("rc.service_id", "rc.cycle_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	return r.list(ctx, ext, op, query, args)
}

func (r *ReviewCycleRepository) ListDueBetween(ctx context.Context, ext sqlx.ExtContext, projectID int64, from, to time.Time) ([]domain.ReviewCycle, error) {
	const op = "internal.repository.postgres.ListCyclesDueBetween"

	builder := r.selectCycles().
		Join("services s ON s.id = rc.service_id").
		Where(sq.Eq{"s.project_id": projectID})

	if !from.IsZero() {
		builder = builder.Where(sq.GtOrEq{"rc.due_date": from})
	}

	if !to.IsZero() {
		builder = builder.Where(sq.LtOrEq{"rc.due_date": to})
	}

	query, args, err := builder.OrderBy("rc.due_date", "rc.service_id", "rc.cycle_no").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	return r.list(ctx, ext, op, query, args)
}

func (r *ReviewCycleRepository) list(ctx context.Context, ext sqlx.ExtContext, op, query string, args []any) ([]domain.ReviewCycle, error) {
	cycles := []domain.ReviewCycle{}
	if err := sqlx.SelectContext(ctx, ext, &cycles, query, args...); err != nil {
		return nil, mapReadError(op, err, "review cycles")
	}

	return cycles, nil
}

func (r *ReviewCycleRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, reviewID int64) (*domain.ReviewCycle, error) {
	const op = "internal.repository.postgres.GetCycleForUpdate"

	query, args, err := r.selectCycles().
		Where(sq.Eq{"rc.id": reviewID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var cycle domain.ReviewCycle
	if err := tx.GetContext(ctx, &cycle, query, args...); err != nil {
		return nil, mapReadError(op, err, fmt.Sprintf("review with id %d", reviewID))
	}

	return &cycle, nil
}

func (r *ReviewCycleRepository) NextPlanned(ctx context.Context, tx *sqlx.Tx, serviceID int64) (*domain.ReviewCycle, error) {
	const op = "internal.repository.postgres.NextPlannedCycle"

	query, args, err := r.selectCycles().
		Where(sq.Eq{"rc.service_id": serviceID, "rc.status": domain.ReviewPlanned}).
		OrderBy("rc.cycle_no").
		Limit(1).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	cycles, err := r.list(ctx, tx, op, query, args)
	if err != nil {
		return nil, err
	}

	if len(cycles) == 0 {
		return nil, fmt.Errorf("%s: %w: service %d", op, apperrors.ErrNoPlannedCycle, serviceID)
	}

	return &cycles[0], nil
}

func (r *ReviewCycleRepository) InsertCycles(ctx context.Context, tx *sqlx.Tx, cycles []domain.ReviewCycle) ([]int64, error) {
	const op = "internal.repository.postgres.InsertCycles"

	if len(cycles) == 0 {
		return []int64{}, nil
	}

	builder := r.sq.Insert("review_cycles").
		Columns(
			"service_id", "cycle_no", "planned_date", "due_date", "disciplines", "deliverables",
			"status", "weight_factor", "evidence_links", "actual_issued_at", "regeneration_signature",
		)

	for _, c := range cycles {
		builder = builder.Values(
			c.ServiceID, c.CycleNo, c.PlannedDate, c.DueDate, c.Disciplines, c.Deliverables,
			c.Status, c.WeightFactor, c.EvidenceLinks, c.ActualIssuedAt, c.Signature,
		)
	}

	query, args, err := builder.Suffix("RETURNING id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	ids := make([]int64, 0, len(cycles))
	if err := tx.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, mapWriteError(op, err, "review cycle")
	}

	return ids, nil
}

func (r *ReviewCycleRepository) DeleteCycles(ctx context.Context, tx *sqlx.Tx, reviewIDs []int64) error {
	const op = "internal.repository.postgres.DeleteCycles"

	if len(reviewIDs) == 0 {
		return nil
	}

	query, args, err := r.sq.Delete("review_cycles").
		Where(sq.Eq{"id": reviewIDs}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return mapWriteError(op, err, "review cycle")
	}

	return nil
}

func (r *ReviewCycleRepository) DeleteByService(ctx context.Context, tx *sqlx.Tx, serviceID int64) (int, error) {
	const op = "internal.repository.postgres.DeleteCyclesByService"

	query, args, err := r.sq.Delete("review_cycles").
		Where(sq.Eq{"service_id": serviceID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	affected, err := execAffected(ctx, tx, query, args...)
	if err != nil {
		return 0, mapWriteError(op, err, "review cycle")
	}

	return int(affected), nil
}

// Renumber relies on the deferred (service_id, cycle_no) constraint so cycles can swap numbers.
func (r *ReviewCycleRepository) Renumber(ctx context.Context, tx *sqlx.Tx, reviewID int64, cycleNo int) error {
	const op = "internal.repository.postgres.RenumberCycle"

	query, args, err := r.sq.Update("review_cycles").
		Set("cycle_no", cycleNo).
		Where(sq.Eq{"id": reviewID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return mapWriteError(op, err, fmt.Sprintf("cycle number %d", cycleNo))
	}

	return nil
}

func (r *ReviewCycleRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, cycle *domain.ReviewCycle) error {
	const op = "internal.repository.postgres.UpdateCycleStatus"

	query, args, err := r.sq.Update("review_cycles").
		Set("status", cycle.Status).
		Set("evidence_links", cycle.EvidenceLinks).
		Set("actual_issued_at", cycle.ActualIssuedAt).
		Where(sq.Eq{"id": cycle.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	affected, err := execAffected(ctx, tx, query, args...)
	if err != nil {
		return mapWriteError(op, err, "review cycle")
	}

	if affected == 0 {
		return fmt.Errorf("%s: %w: review with id %d", op, apperrors.ErrNotFound, cycle.ID)
	}

	return nil
}

func (r *ReviewCycleRepository) CompleteOverdue(ctx context.Context, tx *sqlx.Tx, projectID int64, today time.Time) ([]int64, error) {
	const op = "internal.repository.postgres.CompleteOverdue"

	query, args, err := r.sq.Update("review_cycles").
		Set("status", domain.ReviewCompleted).
		Where(sq.Expr("service_id IN (SELECT id FROM services WHERE project_id = ?)", projectID)).
		Where(sq.Eq{"status": domain.ReviewInProgress}).
		Where(sq.Lt{"due_date": today}).
		Suffix("RETURNING service_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	serviceIDs := []int64{}
	if err := tx.SelectContext(ctx, &serviceIDs, query, args...); err != nil {
		return nil, mapWriteError(op, err, "review cycle")
	}

	return serviceIDs, nil
}
