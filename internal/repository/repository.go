// Package repository defines the persistence ports used by the service layer.
//
// Methods taking *sqlx.Tx must run inside the caller's transaction. Methods taking
// sqlx.ExtContext may run on either a transaction or the bare connection pool.
package repository

import (
	"context"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type ProjectRepository interface {
	// CreateProject returns apperrors.ErrConflict when the code is taken.
	CreateProject(ctx context.Context, tx *sqlx.Tx, p *domain.Project) (int64, error)

	// GetProject returns apperrors.ErrNotFound for an unknown id.
	GetProject(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.Project, error)

	// DeleteProject cascades to services, cycles and claims.
	DeleteProject(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error)
}

type ServiceRepository interface {
	// CreateService returns apperrors.ErrNotFound when the project does not exist.
	CreateService(ctx context.Context, tx *sqlx.Tx, svc *domain.Service) (int64, error)

	UpdateService(ctx context.Context, tx *sqlx.Tx, svc *domain.Service) error

	// DeleteService removes the service; cycles and claim lines go with it through FK cascades.
	DeleteService(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error)

	GetService(ctx context.Context, ext sqlx.ExtContext, id int64) (*domain.Service, error)

	// GetServiceForUpdate reads the service and holds a row lock ("FOR UPDATE") until the transaction ends.
	GetServiceForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Service, error)

	// ListServices returns the services of a project ordered by phase, code and id.
	ListServices(ctx context.Context, ext sqlx.ExtContext, projectID int64) ([]domain.Service, error)

	SetProgress(ctx context.Context, tx *sqlx.Tx, id int64, pct float64) error

	// CountLockedClaimLines counts lines of the service on claims that already left draft.
	CountLockedClaimLines(ctx context.Context, tx *sqlx.Tx, serviceID int64) (int, error)
}

type ReviewCycleRepository interface {
	// ListByService returns the cycles of a service ordered by cycle_no.
	ListByService(ctx context.Context, ext sqlx.ExtContext, serviceID int64) ([]domain.ReviewCycle, error)

	ListByProject(ctx context.Context, ext sqlx.ExtContext, projectID int64) ([]domain.ReviewCycle, error)

	// ListDueBetween returns project cycles with from <= due_date <= to; zero bounds are open.
	ListDueBetween(ctx context.Context, ext sqlx.ExtContext, projectID int64, from, to time.Time) ([]domain.ReviewCycle, error)

	// GetForUpdate reads a cycle under a row lock.
	// It returns apperrors.ErrNotFound if the cycle does not exist.
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, reviewID int64) (*domain.ReviewCycle, error)

	// NextPlanned locks and returns the lowest-numbered planned cycle of a service.
	// It returns apperrors.ErrNoPlannedCycle when none is left.
	NextPlanned(ctx context.Context, tx *sqlx.Tx, serviceID int64) (*domain.ReviewCycle, error)

	// InsertCycles writes the cycles in slice order and returns their new ids.
	InsertCycles(ctx context.Context, tx *sqlx.Tx, cycles []domain.ReviewCycle) ([]int64, error)

	DeleteCycles(ctx context.Context, tx *sqlx.Tx, reviewIDs []int64) error

	DeleteByService(ctx context.Context, tx *sqlx.Tx, serviceID int64) (int, error)

	Renumber(ctx context.Context, tx *sqlx.Tx, reviewID int64, cycleNo int) error

	// UpdateStatus persists status, evidence_links and actual_issued_at of the cycle.
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, cycle *domain.ReviewCycle) error

	// CompleteOverdue moves in_progress cycles of the project with due_date < today to completed.
	// It returns the service id of every updated cycle.
	CompleteOverdue(ctx context.Context, tx *sqlx.Tx, projectID int64, today time.Time) ([]int64, error)
}

type ClaimRepository interface {
	// LockProject serialises claim generation per project for the rest of the transaction.
	LockProject(ctx context.Context, tx *sqlx.Tx, projectID int64) error

	// LatestClaimedPct maps service id to curr_pct of its most recent claim line.
	LatestClaimedPct(ctx context.Context, tx *sqlx.Tx, projectID int64) (map[int64]float64, error)

	// InsertClaim writes the header and fills claim.ID and claim.CreatedAt.
	InsertClaim(ctx context.Context, tx *sqlx.Tx, claim *domain.BillingClaim) error

	// InsertLines writes the lines of a claim and fills their ids.
	InsertLines(ctx context.Context, tx *sqlx.Tx, claimID int64, lines []domain.BillingClaimLine) error

	// GetClaim returns the claim with its lines or apperrors.ErrNotFound.
	GetClaim(ctx context.Context, ext sqlx.ExtContext, claimID int64) (*domain.BillingClaim, error)

	GetClaimForUpdate(ctx context.Context, tx *sqlx.Tx, claimID int64) (*domain.BillingClaim, error)

	// ListClaims returns the project's claims, newest first, each with its lines.
	ListClaims(ctx context.Context, ext sqlx.ExtContext, projectID int64) ([]domain.BillingClaim, error)

	UpdateClaimStatus(ctx context.Context, tx *sqlx.Tx, claimID int64, status domain.ClaimStatus, invoiceRef *string) error

	// SumClaimed totals amount_this_claim over every claim of the project.
	SumClaimed(ctx context.Context, ext sqlx.ExtContext, projectID int64) (decimal.Decimal, error)
}

type TemplateRepository interface {
	// ListTemplates returns every template with its items in position order.
	ListTemplates(ctx context.Context, ext sqlx.ExtContext) ([]domain.Template, error)

	// InsertTemplate stores a template and its items unless the name and version already exist.
	// It reports whether a new row was written and fills tpl.ID either way.
	InsertTemplate(ctx context.Context, tx *sqlx.Tx, tpl *domain.Template) (bool, error)
}
