package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

var templateItemColumns = []string{
	"id", "template_id", "position", "phase", "service_code", "service_name", "unit_type",
	"unit_qty", "unit_rate", "lump_sum_fee", "bill_rule", "schedule_frequency",
	"disciplines", "deliverables", "notes",
}

type TemplateRepository struct {
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewTemplateRepository(log *slog.Logger) *TemplateRepository {
	return &TemplateRepository{
		log: log,
		sq:  builder(),
	}
}

func (r *TemplateRepository) ListTemplates(ctx context.Context, ext sqlx.ExtContext) ([]domain.Template, error) {
	const op = "internal.repository.postgres.ListTemplates"

	query, args, err := r.sq.Select("id", "name", "version", "sector", "notes", "created_at").
		From("service_templates").
		OrderBy("name", "version DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	templates := []domain.Template{}
	if err := sqlx.SelectContext(ctx, ext, &templates, query, args...); err != nil {
		return nil, mapReadError(op, err, "templates")
	}

	if len(templates) == 0 {
		return templates, nil
	}

	itemsQuery, args, err := r.sq.Select(templateItemColumns...).
		From("service_template_items").
		OrderBy("template_id", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build items query: %w", op, err)
	}

	var items []domain.TemplateItem
	if err := sqlx.SelectContext(ctx, ext, &items, itemsQuery, args...); err != nil {
		return nil, mapReadError(op, err, "template items")
	}

	byTemplate := make(map[int64][]domain.TemplateItem, len(templates))
	for _, it := range items {
		byTemplate[it.TemplateID] = append(byTemplate[it.TemplateID], it)
	}

	for i := range templates {
		templates[i].Items = byTemplate[templates[i].ID]
	}

	return templates, nil
}

func (r *TemplateRepository) InsertTemplate(ctx context.Context, tx *sqlx.Tx, tpl *domain.Template) (bool, error) {
	const op = "internal.repository.postgres.InsertTemplate"
	log := r.log.With(slog.String("op", op), slog.String("template", tpl.Name), slog.Int("version", tpl.Version))

	query, args, err := r.sq.Insert("service_templates").
		Columns("name", "version", "sector", "notes").
		Values(tpl.Name, tpl.Version, tpl.Sector, tpl.Notes).
		Suffix("ON CONFLICT (name, version) DO NOTHING RETURNING id, created_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	err = tx.QueryRowxContext(ctx, query, args...).Scan(&tpl.ID, &tpl.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("template version already stored")

		existing, lookupArgs, err := r.sq.Select("id", "created_at").
			From("service_templates").
			Where(sq.Eq{"name": tpl.Name, "version": tpl.Version}).
			ToSql()
		if err != nil {
			return false, fmt.Errorf("%s: failed to build lookup query: %w", op, err)
		}

		if err := tx.QueryRowxContext(ctx, existing, lookupArgs...).Scan(&tpl.ID, &tpl.CreatedAt); err != nil {
			return false, mapReadError(op, err, "template")
		}

		return false, nil
	}

	if err != nil {
		return false, mapWriteError(op, err, "template")
	}

	if len(tpl.Items) == 0 {
		return true, nil
	}

	builder := r.sq.Insert("service_template_items").
		Columns(templateItemColumns[1:]...)

	for i := range tpl.Items {
		it := &tpl.Items[i]
		it.TemplateID = tpl.ID
		it.Position = i + 1

		builder = builder.Values(
			it.TemplateID, it.Position, it.Phase, it.ServiceCode, it.ServiceName, it.UnitType,
			it.UnitQty, it.UnitRate, it.LumpSumFee, it.BillRule, it.ScheduleFrequency,
			it.Disciplines, it.Deliverables, it.Notes,
		)
	}

	itemsQuery, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: failed to build items insert query: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, itemsQuery, args...); err != nil {
		return false, mapWriteError(op, err, "template item")
	}

	log.Info("template stored", slog.Int64("template_id", tpl.ID), slog.Int("items", len(tpl.Items)))

	return true, nil
}
