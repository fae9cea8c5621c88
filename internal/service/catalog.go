package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/repository"
	"github.com/YusovID/bim-delivery-service/internal/validation"
	"github.com/jmoiron/sqlx"
)

type CatalogService interface {
	CreateProject(ctx context.Context, project domain.Project) (*domain.Project, error)
	GetProject(ctx context.Context, id int64) (*domain.Project, error)
	DeleteProject(ctx context.Context, id int64) (bool, error)

	CreateService(ctx context.Context, svc *domain.Service) (int64, error)
	UpdateService(ctx context.Context, id int64, patch domain.ServicePatch) (bool, error)
	DeleteService(ctx context.Context, id int64) (bool, error)
	ListServices(ctx context.Context, projectID int64) ([]domain.Service, error)
	GetService(ctx context.Context, id int64) (*domain.Service, error)
}

type CatalogServiceImpl struct {
	BaseService
	projects repository.ProjectRepository
	services repository.ServiceRepository
}

func NewCatalogService(
	db DB,
	log *slog.Logger,
	projects repository.ProjectRepository,
	services repository.ServiceRepository,
) *CatalogServiceImpl {
	return &CatalogServiceImpl{
		BaseService: NewBaseService(db, log),
		projects:    projects,
		services:    services,
	}
}

func (s *CatalogServiceImpl) CreateProject(ctx context.Context, project domain.Project) (*domain.Project, error) {
	const op = "internal.service.catalog.CreateProject"
	log := s.log.With(slog.String("op", op), slog.String("code", project.Code))

	if err := validation.ValidateStruct(project); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := s.projects.CreateProject(ctx, tx, &project); err != nil {
			return fmt.Errorf("%s: failed to create project: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("project created", slog.Int64("project_id", project.ID))

	return &project, nil
}

func (s *CatalogServiceImpl) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	const op = "internal.service.catalog.GetProject"

	project, err := s.projects.GetProject(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return project, nil
}

func (s *CatalogServiceImpl) DeleteProject(ctx context.Context, id int64) (bool, error) {
	const op = "internal.service.catalog.DeleteProject"

	var deleted bool

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error

		deleted, err = s.projects.DeleteProject(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("%s: failed to delete project: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	s.log.Info("project delete finished", slog.String("op", op), slog.Int64("project_id", id), slog.Bool("deleted", deleted))

	return deleted, nil
}

// CreateService validates svc, derives its agreed fee and stores it. Review services always start at 0%.
func (s *CatalogServiceImpl) CreateService(ctx context.Context, svc *domain.Service) (int64, error) {
	const op = "internal.service.catalog.CreateService"

	svc.ApplyDefaults()

	if svc.IsReview() {
		svc.ProgressPct = 0
	}

	if err := svc.Validate(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	svc.AgreedFee = svc.ComputeAgreedFee()

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := s.services.CreateService(ctx, tx, svc); err != nil {
			return fmt.Errorf("%s: failed to create service: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("service created",
		slog.String("op", op),
		slog.Int64("service_id", svc.ID),
		slog.String("service_code", svc.Code),
		slog.String("agreed_fee", svc.AgreedFee.StringFixed(2)),
	)

	return svc.ID, nil
}

// UpdateService applies patch under a row lock. It reports false when the patch changes nothing.
func (s *CatalogServiceImpl) UpdateService(ctx context.Context, id int64, patch domain.ServicePatch) (bool, error) {
	const op = "internal.service.catalog.UpdateService"
	log := s.log.With(slog.String("op", op), slog.Int64("service_id", id))

	var changed bool

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		svc, err := s.services.GetServiceForUpdate(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("%s: failed to get service: %w", op, err)
		}

		changed = patch.Apply(svc)
		if !changed {
			return nil
		}

		if err := svc.Validate(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		svc.AgreedFee = svc.ComputeAgreedFee()

		if err := s.services.UpdateService(ctx, tx, svc); err != nil {
			return fmt.Errorf("%s: failed to update service: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	log.Info("service update finished", slog.Bool("changed", changed))

	return changed, nil
}

// DeleteService removes a service with its cycles and draft claim lines.
// Services already billed on submitted or paid claims are kept.
func (s *CatalogServiceImpl) DeleteService(ctx context.Context, id int64) (bool, error) {
	const op = "internal.service.catalog.DeleteService"
	log := s.log.With(slog.String("op", op), slog.Int64("service_id", id))

	var deleted bool

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		locked, err := s.services.CountLockedClaimLines(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("%s: failed to check claim lines: %w", op, err)
		}

		if locked > 0 {
			return fmt.Errorf("%s: %w: service %d is billed on %d submitted or paid claim lines",
				op, apperrors.ErrConflict, id, locked)
		}

		deleted, err = s.services.DeleteService(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("%s: failed to delete service: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	log.Info("service delete finished", slog.Bool("deleted", deleted))

	return deleted, nil
}

func (s *CatalogServiceImpl) ListServices(ctx context.Context, projectID int64) ([]domain.Service, error) {
	const op = "internal.service.catalog.ListServices"

	if _, err := s.projects.GetProject(ctx, s.db, projectID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	services, err := s.services.ListServices(ctx, s.db, projectID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list services: %w", op, err)
	}

	return services, nil
}

func (s *CatalogServiceImpl) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	const op = "internal.service.catalog.GetService"

	svc, err := s.services.GetService(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return svc, nil
}
