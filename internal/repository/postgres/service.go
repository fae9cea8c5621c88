package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

var serviceColumns = []string{
	"id", "project_id", "phase", "service_code", "service_name", "unit_type",
	"unit_qty", "unit_rate", "lump_sum_fee", "agreed_fee", "bill_rule", "status",
	"progress_pct", "notes", "disciplines", "deliverables",
	"schedule_start", "schedule_end", "schedule_frequency", "created_at", "updated_at",
}

type ServiceRepository struct {
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewServiceRepository(log *slog.Logger) *ServiceRepository {
	return &ServiceRepository{
		log: log,
		sq:  builder(),
	}
}

func (r *ServiceRepository) CreateService(ctx context.Context, tx *sqlx.Tx, svc *domain.Service) (int64, error) {
	const op = "internal.repository.postgres.CreateService"

	query, args, err := r.sq.Insert("services").
		Columns(
			"project_id", "phase", "service_code", "service_name", "unit_type",
			"unit_qty", "unit_rate", "lump_sum_fee", "agreed_fee", "bill_rule", "status",
			"progress_pct", "notes", "disciplines", "deliverables",
			"schedule_start", "schedule_end", "schedule_frequency",
		).
		Values(
			svc.ProjectID, svc.Phase, svc.Code, svc.Name, svc.UnitType,
			svc.UnitQty, svc.UnitRate, svc.LumpSumFee, svc.AgreedFee, svc.BillRule, svc.Status,
			svc.ProgressPct, svc.Notes, svc.Disciplines, svc.Deliverables,
			svc.ScheduleStart, svc.ScheduleEnd, svc.ScheduleFrequency,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	err = tx.QueryRowxContext(ctx, query, args...).Scan(&svc.ID, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return 0, mapWriteError(op, err, fmt.Sprintf("service '%s' of project %d", svc.Code, svc.ProjectID))
	}

	return svc.ID, nil
}

func (r *ServiceRepository) UpdateService(ctx context.Context, tx *sqlx.Tx, svc *domain.Service) error {
	const op = "internal.repository.postgres.UpdateService"

	query, args, err := r.sq.Update("services").
		SetMap(map[string]any{
			"phase":              svc.Phase,
			"service_code":       svc.Code,
			"service_name":       svc.Name,
			"unit_type":          svc.UnitType,
			"unit_qty":           svc.UnitQty,
			"unit_rate":          svc.UnitRate,
			"lump_sum_fee":       svc.LumpSumFee,
			"agreed_fee":         svc.AgreedFee,
			"bill_rule":          svc.BillRule,
			"status":             svc.Status,
			"notes":              svc.Notes,
			"disciplines":        svc.Disciplines,
			"deliverables":       svc.Deliverables,
			"schedule_start":     svc.ScheduleStart,
			"schedule_end":       svc.ScheduleEnd,
			"schedule_frequency": svc.ScheduleFrequency,
			"updated_at":         sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"id": svc.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&svc.UpdatedAt); err != nil {
		return mapReadError(op, err, fmt.Sprintf("service with id %d", svc.ID))
	}

	return nil
}

func (r *ServiceRepository) DeleteService(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error) {
	const op = "internal.repository.postgres.DeleteService"

	query, args, err := r.sq.Delete("services").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	affected, err := execAffected(ctx, tx, query, args...)
	if err != nil {
		return false, mapWriteError(op, err, "service")
	}

	return affected > 0, nil
}

func (r *ServiceRepository) GetService(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.Service, error) {
	return r.getService(ctx, ext, id, "internal.repository.postgres.GetService", "")
}

func (r *ServiceRepository) GetServiceForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Service, error) {
	return r.getService(ctx, tx, id, "internal.repository.postgres.GetServiceForUpdate", "FOR UPDATE")
}

func (r *ServiceRepository) getService(ctx context.Context, ext sqlx.ExtContext, id int64, op, suffix string) (*domain.Service, error) {
	builder := r.sq.Select(serviceColumns...).
		From("services").
		Where(sq.Eq{"id": id})

	if suffix != "" {
		builder = builder.Suffix(suffix)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var svc domain.Service
	if err := sqlx.GetContext(ctx, ext, &svc, query, args...); err != nil {
		return nil, mapReadError(op, err, fmt.Sprintf("service with id %d", id))
	}

	return &svc, nil
}

func (r *ServiceRepository) ListServices(ctx context.Context, ext sqlx.ExtContext, projectID int64) ([]domain.Service, error) {
	const op = "internal.repository.postgres.ListServices"

	query, args, err := r.sq.Select(serviceColumns...).
		From("services").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("phase", "service_code", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	services := []domain.Service{}
	if err := sqlx.SelectContext(ctx, ext, &services, query, args...); err != nil {
		return nil, mapReadError(op, err, "services")
	}

	return services, nil
}

func (r *ServiceRepository) SetProgress(ctx context.Context, tx *sqlx.Tx, id int64, pct float64) error {
	const op = "internal.repository.postgres.SetProgress"

	query, args, err := r.sq.Update("services").
		Set("progress_pct", pct).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return mapWriteError(op, err, "service progress")
	}

	return nil
}

func (r *ServiceRepository) CountLockedClaimLines(ctx context.Context, tx *sqlx.Tx, serviceID int64) (int, error) {
	const op = "internal.repository.postgres.CountLockedClaimLines"

	query, args, err := r.sq.Select("COUNT(*)").
		From("billing_claim_lines l").
		Join("billing_claims c ON c.id = l.claim_id").
		Where(sq.Eq{"l.service_id": serviceID}).
		Where(sq.NotEq{"c.status": domain.ClaimDraft}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build count query: %w", op, err)
	}

	var count int
	if err := tx.GetContext(ctx, &count, query, args...); err != nil {
		return 0, mapReadError(op, err, "claim lines")
	}

	return count, nil
}
