package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/schedule"
	"github.com/YusovID/bim-delivery-service/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
)

type Transactor interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// DB opens transactions for writes and serves reads outside of them.
type DB interface {
	Transactor
	sqlx.ExtContext
}

// Options carries the engine settings taken from config.
type Options struct {
	TurnaroundDays    int
	UpcomingLookahead int
}

func DefaultOptions() Options {
	return Options{
		TurnaroundDays:    schedule.DefaultTurnaroundDays,
		UpcomingLookahead: 14,
	}
}

type BaseService struct {
	db  DB
	log *slog.Logger
}

func NewBaseService(db DB, log *slog.Logger) BaseService {
	return BaseService{
		db:  db,
		log: log,
	}
}

// transaction runs fn in one transaction; any error from fn rolls everything back.
func (s *BaseService) transaction(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, apperrors.Persistence(err))
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Error("failed to rollback transaction", slog.String("op", op), sl.Err(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, apperrors.Persistence(err))
	}

	return nil
}
