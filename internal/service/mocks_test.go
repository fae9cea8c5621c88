package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// DBMock hands out mocked transactions. Reads outside a transaction only pass it
// through to repository mocks, so the embedded ExtContext stays nil.
type DBMock struct {
	mock.Mock
	sqlx.ExtContext
}

var _ DB = (*DBMock)(nil)

func (m *DBMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	var tx *sqlx.Tx

	args := m.Called(ctx, opts)
	if args.Get(0) != nil {
		tx = args.Get(0).(*sqlx.Tx)
	}

	return tx, args.Error(1)
}

type ProjectRepositoryMock struct {
	mock.Mock
}

var _ repository.ProjectRepository = (*ProjectRepositoryMock)(nil)

func (m *ProjectRepositoryMock) CreateProject(ctx context.Context, tx *sqlx.Tx, p *domain.Project) (int64, error) {
	args := m.Called(ctx, tx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ProjectRepositoryMock) GetProject(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.Project, error) {
	args := m.Called(ctx, ext, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *ProjectRepositoryMock) DeleteProject(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

type ServiceRepositoryMock struct {
	mock.Mock
}

var _ repository.ServiceRepository = (*ServiceRepositoryMock)(nil)

func (m *ServiceRepositoryMock) CreateService(ctx context.Context, tx *sqlx.Tx, svc *domain.Service) (int64, error) {
	args := m.Called(ctx, tx, svc)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ServiceRepositoryMock) UpdateService(ctx context.Context, tx *sqlx.Tx, svc *domain.Service) error {
	args := m.Called(ctx, tx, svc)
	return args.Error(0)
}

func (m *ServiceRepositoryMock) DeleteService(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

func (m *ServiceRepositoryMock) GetService(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.Service, error) {
	args := m.Called(ctx, ext, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *ServiceRepositoryMock) GetServiceForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Service, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *ServiceRepositoryMock) ListServices(ctx context.Context, ext sqlx.ExtContext, projectID int64) ([]domain.Service, error) {
	args := m.Called(ctx, ext, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Service), args.Error(1)
}

func (m *ServiceRepositoryMock) SetProgress(ctx context.Context, tx *sqlx.Tx, id int64, pct float64) error {
	args := m.Called(ctx, tx, id, pct)
	return args.Error(0)
}

func (m *ServiceRepositoryMock) CountLockedClaimLines(ctx context.Context, tx *sqlx.Tx, serviceID int64) (int, error) {
	args := m.Called(ctx, tx, serviceID)
	return args.Int(0), args.Error(1)
}

type ReviewCycleRepositoryMock struct {
	mock.Mock
}

var _ repository.ReviewCycleRepository = (*ReviewCycleRepositoryMock)(nil)

func (m *ReviewCycleRepositoryMock) ListByService(ctx context.Context, ext sqlx.ExtContext, serviceID int64) ([]domain.ReviewCycle, error) {
	args := m.Called(ctx, ext, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ReviewCycle), args.Error(1)
}

func (m *ReviewCycleRepositoryMock) ListByProject(ctx context.Context, ext sqlx.ExtContext, projectID int64) ([]domain.ReviewCycle, error) {
	args := m.Called(ctx, ext, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ReviewCycle), args.Error(1)
}

func (m *ReviewCycleRepositoryMock) ListDueBetween(ctx context.Context, ext sqlx.ExtContext, projectID int64, from, to time.Time) ([]domain.ReviewCycle, error) {
	args := m.Called(ctx, ext, projectID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ReviewCycle), args.Error(1)
}

func (m *ReviewCycleRepositoryMock) GetForUpdate(ctx context.Context, tx *sqlx.Tx, reviewID int64) (*domain.ReviewCycle, error) {
	args := m.Called(ctx, tx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ReviewCycle), args.Error(1)
}

func (m *ReviewCycleRepositoryMock) NextPlanned(ctx context.Context, tx *sqlx.Tx, serviceID int64) (*domain.ReviewCycle, error) {
	args := m.Called(ctx, tx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ReviewCycle), args.Error(1)
}

func (m *ReviewCycleRepositoryMock) InsertCycles(ctx context.Context, tx *sqlx.Tx, cycles []domain.ReviewCycle) ([]int64, error) {
	args := m.Called(ctx, tx, cycles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]int64), args.Error(1)
}

func (m *ReviewCycleRepositoryMock) DeleteCycles(ctx context.Context, tx *sqlx.Tx, reviewIDs []int64) error {
	args := m.Called(ctx, tx, reviewIDs)
	return args.Error(0)
}

func (m *ReviewCycleRepositoryMock) DeleteByService(ctx context.Context, tx *sqlx.Tx, serviceID int64) (int, error) {
	args := m.Called(ctx, tx, serviceID)
	return args.Int(0), args.Error(1)
}

func (m *ReviewCycleRepositoryMock) Renumber(ctx context.Context, tx *sqlx.Tx, reviewID int64, cycleNo int) error {
	args := m.Called(ctx, tx, reviewID, cycleNo)
	return args.Error(0)
}

func (m *ReviewCycleRepositoryMock) UpdateStatus(ctx context.Context, tx *sqlx.Tx, cycle *domain.ReviewCycle) error {
	args := m.Called(ctx, tx, cycle)
	return args.Error(0)
}

func (m *ReviewCycleRepositoryMock) CompleteOverdue(ctx context.Context, tx *sqlx.Tx, projectID int64, today time.Time) ([]int64, error) {
	args := m.Called(ctx, tx, projectID, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]int64), args.Error(1)
}

type ClaimRepositoryMock struct {
	mock.Mock
}

var _ repository.ClaimRepository = (*ClaimRepositoryMock)(nil)

func (m *ClaimRepositoryMock) LockProject(ctx context.Context, tx *sqlx.Tx, projectID int64) error {
	args := m.Called(ctx, tx, projectID)
	return args.Error(0)
}

func (m *ClaimRepositoryMock) LatestClaimedPct(ctx context.Context, tx *sqlx.Tx, projectID int64) (map[int64]float64, error) {
	args := m.Called(ctx, tx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[int64]float64), args.Error(1)
}

func (m *ClaimRepositoryMock) InsertClaim(ctx context.Context, tx *sqlx.Tx, claim *domain.BillingClaim) error {
	args := m.Called(ctx, tx, claim)
	return args.Error(0)
}

func (m *ClaimRepositoryMock) InsertLines(ctx context.Context, tx *sqlx.Tx, claimID int64, lines []domain.BillingClaimLine) error {
	args := m.Called(ctx, tx, claimID, lines)
	return args.Error(0)
}

func (m *ClaimRepositoryMock) GetClaim(ctx context.Context, ext sqlx.ExtContext, claimID int64) (*domain.BillingClaim, error) {
	args := m.Called(ctx, ext, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.BillingClaim), args.Error(1)
}

func (m *ClaimRepositoryMock) GetClaimForUpdate(ctx context.Context, tx *sqlx.Tx, claimID int64) (*domain.BillingClaim, error) {
	args := m.Called(ctx, tx, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.BillingClaim), args.Error(1)
}

func (m *ClaimRepositoryMock) ListClaims(ctx context.Context, ext sqlx.ExtContext, projectID int64) ([]domain.BillingClaim, error) {
	args := m.Called(ctx, ext, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.BillingClaim), args.Error(1)
}

func (m *ClaimRepositoryMock) UpdateClaimStatus(ctx context.Context, tx *sqlx.Tx, claimID int64, status domain.ClaimStatus, invoiceRef *string) error {
	args := m.Called(ctx, tx, claimID, status, invoiceRef)
	return args.Error(0)
}

func (m *ClaimRepositoryMock) SumClaimed(ctx context.Context, ext sqlx.ExtContext, projectID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, ext, projectID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type TemplateRepositoryMock struct {
	mock.Mock
}

var _ repository.TemplateRepository = (*TemplateRepositoryMock)(nil)

func (m *TemplateRepositoryMock) ListTemplates(ctx context.Context, ext sqlx.ExtContext) ([]domain.Template, error) {
	args := m.Called(ctx, ext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Template), args.Error(1)
}

func (m *TemplateRepositoryMock) InsertTemplate(ctx context.Context, tx *sqlx.Tx, tpl *domain.Template) (bool, error) {
	args := m.Called(ctx, tx, tpl)
	return args.Bool(0), args.Error(1)
}
