package service

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockDBAndTx(t *testing.T) (*sqlx.DB, *sqlx.Tx, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, smock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { mockDB.Close() })

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")

	smock.ExpectBegin()

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)

	return sqlxDB, tx, smock
}

// expectTx makes the next BeginTxx on db return a mocked transaction that must
// either commit or roll back.
func expectTx(t *testing.T, db *DBMock, commit bool) *sqlx.Tx {
	t.Helper()

	_, tx, smock := newMockDBAndTx(t)

	if commit {
		smock.ExpectCommit()
	} else {
		smock.ExpectRollback()
	}

	db.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(tx, nil).Once()

	t.Cleanup(func() {
		require.NoError(t, smock.ExpectationsWereMet())
	})

	return tx
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func weeklyReviewService(id, projectID int64, qty float64) *domain.Service {
	return &domain.Service{
		ID:                id,
		ProjectID:         projectID,
		Phase:             "Design",
		Code:              "DR-01",
		Name:              "Design reviews",
		UnitType:          domain.UnitReview,
		UnitQty:           ptr(qty),
		UnitRate:          decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		AgreedFee:         decimal.NewFromFloat(qty * 1000),
		BillRule:          domain.BillProgress,
		Status:            domain.ServiceActive,
		Disciplines:       "ARC, STR",
		Deliverables:      "Federated model",
		ScheduleStart:     ptr(date(2024, 1, 1)),
		ScheduleEnd:       ptr(date(2024, 1, 22)),
		ScheduleFrequency: domain.FrequencyWeekly,
	}
}

func lumpSumService(id, projectID int64, fee int64) *domain.Service {
	return &domain.Service{
		ID:         id,
		ProjectID:  projectID,
		Phase:      "Handover",
		Code:       "AIR",
		Name:       "Asset information audit",
		UnitType:   domain.UnitLumpSum,
		LumpSumFee: decimal.NewNullDecimal(decimal.NewFromInt(fee)),
		AgreedFee:  decimal.NewFromInt(fee),
		BillRule:   domain.BillProgress,
		Status:     domain.ServiceActive,
	}
}
