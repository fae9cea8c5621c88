package http

import (
	"context"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/service"
	"github.com/stretchr/testify/mock"
)

type CatalogServiceMock struct {
	mock.Mock
}

func (m *CatalogServiceMock) CreateProject(ctx context.Context, project domain.Project) (*domain.Project, error) {
	args := m.Called(ctx, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *CatalogServiceMock) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *CatalogServiceMock) DeleteProject(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *CatalogServiceMock) CreateService(ctx context.Context, svc *domain.Service) (int64, error) {
	args := m.Called(ctx, svc)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CatalogServiceMock) UpdateService(ctx context.Context, id int64, patch domain.ServicePatch) (bool, error) {
	args := m.Called(ctx, id, patch)
	return args.Bool(0), args.Error(1)
}

func (m *CatalogServiceMock) DeleteService(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *CatalogServiceMock) ListServices(ctx context.Context, projectID int64) ([]domain.Service, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Service), args.Error(1)
}

func (m *CatalogServiceMock) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Service), args.Error(1)
}

type CycleServiceMock struct {
	mock.Mock
}

func (m *CycleServiceMock) Generate(ctx context.Context, serviceID int64, opts service.GenerateOptions) (*service.GenerateResult, error) {
	args := m.Called(ctx, serviceID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.GenerateResult), args.Error(1)
}

func (m *CycleServiceMock) GenerateServiceReviews(ctx context.Context, projectID int64, opts service.GenerateOptions) ([]service.GenerateResult, error) {
	args := m.Called(ctx, projectID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]service.GenerateResult), args.Error(1)
}

func (m *CycleServiceMock) ListDueBetween(ctx context.Context, projectID int64, from, to time.Time) ([]domain.ReviewCycle, error) {
	args := m.Called(ctx, projectID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ReviewCycle), args.Error(1)
}

type StatusServiceMock struct {
	mock.Mock
}

func (m *StatusServiceMock) SetReviewStatus(ctx context.Context, reviewID int64, status domain.ReviewStatus, evidence *string) (bool, error) {
	args := m.Called(ctx, reviewID, status, evidence)
	return args.Bool(0), args.Error(1)
}

func (m *StatusServiceMock) RefreshStatusesByDate(ctx context.Context, projectID int64, today time.Time) (int, error) {
	args := m.Called(ctx, projectID, today)
	return args.Int(0), args.Error(1)
}

func (m *StatusServiceMock) StartNextCycle(ctx context.Context, serviceID int64) (*domain.ReviewCycle, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ReviewCycle), args.Error(1)
}

type CompletionServiceMock struct {
	mock.Mock
}

func (m *CompletionServiceMock) ServiceCompletionPct(ctx context.Context, serviceID int64) (float64, error) {
	args := m.Called(ctx, serviceID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *CompletionServiceMock) SetNonReviewStatus(ctx context.Context, serviceID int64, status domain.ReviewStatus) (float64, error) {
	args := m.Called(ctx, serviceID, status)
	return args.Get(0).(float64), args.Error(1)
}

func (m *CompletionServiceMock) ProjectKPIs(ctx context.Context, projectID int64, today time.Time) (*domain.ProjectKPIs, error) {
	args := m.Called(ctx, projectID, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ProjectKPIs), args.Error(1)
}

type BillingServiceMock struct {
	mock.Mock
}

func (m *BillingServiceMock) GenerateClaim(ctx context.Context, req service.ClaimRequest) (*domain.BillingClaim, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.BillingClaim), args.Error(1)
}

func (m *BillingServiceMock) GetClaim(ctx context.Context, claimID int64) (*domain.BillingClaim, error) {
	args := m.Called(ctx, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.BillingClaim), args.Error(1)
}

func (m *BillingServiceMock) ListClaims(ctx context.Context, projectID int64) ([]domain.BillingClaim, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.BillingClaim), args.Error(1)
}

func (m *BillingServiceMock) SetClaimStatus(ctx context.Context, claimID int64, status domain.ClaimStatus, invoiceRef *string) (*domain.BillingClaim, error) {
	args := m.Called(ctx, claimID, status, invoiceRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.BillingClaim), args.Error(1)
}

type TemplateServiceMock struct {
	mock.Mock
}

func (m *TemplateServiceMock) ApplyTemplate(ctx context.Context, projectID int64, name string, overrides service.TemplateOverrides) ([]domain.Service, error) {
	args := m.Called(ctx, projectID, name, overrides)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Service), args.Error(1)
}

func (m *TemplateServiceMock) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Template), args.Error(1)
}

func (m *TemplateServiceMock) ImportCatalog(ctx context.Context, templates []domain.Template) (int, error) {
	args := m.Called(ctx, templates)
	return args.Int(0), args.Error(1)
}
