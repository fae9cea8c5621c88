package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

type ProjectRepository struct {
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewProjectRepository(log *slog.Logger) *ProjectRepository {
	return &ProjectRepository{
		log: log,
		sq:  builder(),
	}
}

func (r *ProjectRepository) CreateProject(ctx context.Context, tx *sqlx.Tx, p *domain.Project) (int64, error) {
	const op = "internal.repository.postgres.CreateProject"

	query, args, err := r.sq.Insert("projects").
		Columns("name", "code").
		Values(p.Name, p.Code).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt); err != nil {
		return 0, mapWriteError(op, err, fmt.Sprintf("project with code '%s'", p.Code))
	}

	return p.ID, nil
}

func (r *ProjectRepository) GetProject(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.Project, error) {
	const op = "internal.repository.postgres.GetProject"

	query, args, err := r.sq.Select("id", "name", "code", "created_at").
		From("projects").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var p domain.Project
	if err := sqlx.GetContext(ctx, ext, &p, query, args...); err != nil {
		return nil, mapReadError(op, err, fmt.Sprintf("project with id %d", id))
	}

	return &p, nil
}

func (r *ProjectRepository) DeleteProject(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error) {
	const op = "internal.repository.postgres.DeleteProject"

	query, args, err := r.sq.Delete("projects").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	affected, err := execAffected(ctx, tx, query, args...)
	if err != nil {
		return false, mapWriteError(op, err, "project")
	}

	return affected > 0, nil
}
