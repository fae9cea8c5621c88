package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

type Postgres struct {
	db  *sqlx.DB
	log *slog.Logger
}

func NewDB(cfg config.Postgres, log *slog.Logger) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	log.Info("connected to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	return &Postgres{
		db:  db,
		log: log,
	}, nil
}

func (p *Postgres) DB() *sqlx.DB {
	return p.db
}

// Repositories bundles every repository over one connection pool.
type Repositories struct {
	Projects  *ProjectRepository
	Services  *ServiceRepository
	Cycles    *ReviewCycleRepository
	Claims    *ClaimRepository
	Templates *TemplateRepository
}

func (p *Postgres) Repositories() Repositories {
	return Repositories{
		Projects:  NewProjectRepository(p.log),
		Services:  NewServiceRepository(p.log),
		Cycles:    NewReviewCycleRepository(p.log),
		Claims:    NewClaimRepository(p.log),
		Templates: NewTemplateRepository(p.log),
	}
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// mapWriteError translates constraint violations into apperrors sentinels.
func mapWriteError(op string, err error, what string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w: %s already exists", op, apperrors.ErrConflict, what)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %w: referenced row of %s does not exist", op, apperrors.ErrNotFound, what)
		case codeCheckViolation:
			return fmt.Errorf("%s: %w", op, apperrors.NewValidationError(pqErr.Message))
		}
	}

	return fmt.Errorf("%s: %w", op, apperrors.Persistence(err))
}

func mapReadError(op string, err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w: %s", op, apperrors.ErrNotFound, what)
	}

	return fmt.Errorf("%s: %w", op, apperrors.Persistence(err))
}

func execAffected(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
