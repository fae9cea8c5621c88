package service

import (
	"log/slog"

	"github.com/YusovID/bim-delivery-service/internal/repository"
)

// Repositories are the persistence ports the services are built on.
type Repositories struct {
	Projects  repository.ProjectRepository
	Services  repository.ServiceRepository
	Cycles    repository.ReviewCycleRepository
	Claims    repository.ClaimRepository
	Templates repository.TemplateRepository
}

// Services is the full engine as seen by transports and the CLI.
type Services struct {
	Catalog    CatalogService
	Cycles     CycleService
	Status     StatusService
	Completion CompletionService
	Billing    BillingService
	Templates  TemplateService
}

// New wires every service onto one database handle.
func New(db DB, log *slog.Logger, repos Repositories, opts Options) Services {
	return Services{
		Catalog:    NewCatalogService(db, log, repos.Projects, repos.Services),
		Cycles:     NewCycleService(db, log, repos.Services, repos.Cycles, opts),
		Status:     NewStatusService(db, log, repos.Services, repos.Cycles),
		Completion: NewCompletionService(db, log, repos.Projects, repos.Services, repos.Cycles, repos.Claims, opts),
		Billing:    NewBillingService(db, log, repos.Projects, repos.Services, repos.Cycles, repos.Claims),
		Templates:  NewTemplateService(db, log, repos.Projects, repos.Services, repos.Templates),
	}
}
