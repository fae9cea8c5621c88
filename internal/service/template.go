package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type TemplateService interface {
	ApplyTemplate(ctx context.Context, projectID int64, name string, overrides TemplateOverrides) ([]domain.Service, error)
	ListTemplates(ctx context.Context) ([]domain.Template, error)
	ImportCatalog(ctx context.Context, templates []domain.Template) (int, error)
}

// ItemOverride adjusts the service built from one template item.
type ItemOverride struct {
	UnitQty       *float64          `json:"unit_qty"`
	UnitRate      *decimal.Decimal  `json:"unit_rate"`
	LumpSumFee    *decimal.Decimal  `json:"lump_sum_fee"`
	Frequency     *domain.Frequency `json:"schedule_frequency"`
	ScheduleStart *time.Time        `json:"schedule_start"`
	ScheduleEnd   *time.Time        `json:"schedule_end"`
}

// TemplateOverrides holds project-wide schedule settings and per service_code adjustments.
// Per-item values win over project-wide ones.
type TemplateOverrides struct {
	ScheduleStart *time.Time              `json:"schedule_start"`
	ScheduleEnd   *time.Time              `json:"schedule_end"`
	Frequency     *domain.Frequency       `json:"schedule_frequency"`
	Items         map[string]ItemOverride `json:"items"`
}

func (o TemplateOverrides) apply(svc *domain.Service) {
	if o.ScheduleStart != nil {
		start := *o.ScheduleStart
		svc.ScheduleStart = &start
	}

	if o.ScheduleEnd != nil {
		end := *o.ScheduleEnd
		svc.ScheduleEnd = &end
	}

	if o.Frequency != nil && svc.IsReview() {
		svc.ScheduleFrequency = *o.Frequency
	}

	item, ok := o.itemFor(svc.Code)
	if !ok {
		return
	}

	if item.UnitQty != nil {
		qty := *item.UnitQty
		svc.UnitQty = &qty
	}

	if item.UnitRate != nil {
		svc.UnitRate = decimal.NewNullDecimal(*item.UnitRate)
	}

	if item.LumpSumFee != nil {
		svc.LumpSumFee = decimal.NewNullDecimal(*item.LumpSumFee)
	}

	if item.Frequency != nil {
		svc.ScheduleFrequency = *item.Frequency
	}

	if item.ScheduleStart != nil {
		start := *item.ScheduleStart
		svc.ScheduleStart = &start
	}

	if item.ScheduleEnd != nil {
		end := *item.ScheduleEnd
		svc.ScheduleEnd = &end
	}
}

func (o TemplateOverrides) itemFor(code string) (ItemOverride, bool) {
	if item, ok := o.Items[code]; ok {
		return item, true
	}

	for k, item := range o.Items {
		if strings.EqualFold(k, code) {
			return item, true
		}
	}

	return ItemOverride{}, false
}

type TemplateServiceImpl struct {
	BaseService
	projects  repository.ProjectRepository
	services  repository.ServiceRepository
	templates repository.TemplateRepository
}

func NewTemplateService(
	db DB,
	log *slog.Logger,
	projects repository.ProjectRepository,
	services repository.ServiceRepository,
	templates repository.TemplateRepository,
) *TemplateServiceImpl {
	return &TemplateServiceImpl{
		BaseService: NewBaseService(db, log),
		projects:    projects,
		services:    services,
		templates:   templates,
	}
}

// ApplyTemplate turns the items of the best matching template into services of the project.
// Every item is validated before the first insert. Review cycles are not generated here.
func (s *TemplateServiceImpl) ApplyTemplate(ctx context.Context, projectID int64, name string, overrides TemplateOverrides) ([]domain.Service, error) {
	const op = "internal.service.template.ApplyTemplate"
	log := s.log.With(slog.String("op", op), slog.Int64("project_id", projectID), slog.String("template", name))

	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%s: %w", op, apperrors.NewValidationError("template name is required"))
	}

	templates, err := s.templates.ListTemplates(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list templates: %w", op, err)
	}

	tpl, ok := MatchTemplate(templates, name)
	if !ok {
		return nil, fmt.Errorf("%s: %w: no template matches %q", op, apperrors.ErrNotFound, name)
	}

	services := make([]domain.Service, 0, len(tpl.Items))

	var msgs []string

	for i := range tpl.Items {
		svc := tpl.Items[i].ToService(projectID)
		overrides.apply(svc)
		svc.AgreedFee = svc.ComputeAgreedFee()

		if err := svc.Validate(); err != nil {
			msgs = append(msgs, fmt.Sprintf("item %s: %v", tpl.Items[i].ServiceCode, err))
			continue
		}

		services = append(services, *svc)
	}

	if len(msgs) > 0 {
		return nil, fmt.Errorf("%s: %w", op, apperrors.NewValidationError(msgs...))
	}

	err = s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := s.projects.GetProject(ctx, tx, projectID); err != nil {
			return fmt.Errorf("%s: failed to get project: %w", op, err)
		}

		for i := range services {
			if _, err := s.services.CreateService(ctx, tx, &services[i]); err != nil {
				return fmt.Errorf("%s: failed to create service %s: %w", op, services[i].Code, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("template applied",
		slog.String("matched", tpl.Name),
		slog.Int("version", tpl.Version),
		slog.Int("services", len(services)),
	)

	return services, nil
}

// MatchTemplate picks a template by name: case-insensitive exact match first, then
// case-insensitive substring. A substring hit on several names settles on the shortest
// name (alphabetical on ties). Among several versions of the chosen name the highest wins.
func MatchTemplate(templates []domain.Template, name string) (*domain.Template, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))

	chosen := ""
	found := false

	for i := range templates {
		n := strings.ToLower(templates[i].Name)
		if n == needle {
			chosen, found = n, true
			break
		}
	}

	if !found {
		for i := range templates {
			n := strings.ToLower(templates[i].Name)
			if !strings.Contains(n, needle) {
				continue
			}

			if !found || len(n) < len(chosen) || (len(n) == len(chosen) && n < chosen) {
				chosen, found = n, true
			}
		}
	}

	if !found {
		return nil, false
	}

	var best *domain.Template

	for i := range templates {
		t := &templates[i]
		if strings.ToLower(t.Name) != chosen {
			continue
		}

		if best == nil || t.Version > best.Version {
			best = t
		}
	}

	return best, true
}

func (s *TemplateServiceImpl) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	const op = "internal.service.template.ListTemplates"

	templates, err := s.templates.ListTemplates(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return templates, nil
}

// ImportCatalog stores the templates that are not known yet and returns how many were new.
// Re-importing the same name and version is a no-op.
func (s *TemplateServiceImpl) ImportCatalog(ctx context.Context, templates []domain.Template) (int, error) {
	const op = "internal.service.template.ImportCatalog"
	log := s.log.With(slog.String("op", op))

	if err := validateCatalog(templates); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var created int

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		for i := range templates {
			isNew, err := s.templates.InsertTemplate(ctx, tx, &templates[i])
			if err != nil {
				return fmt.Errorf("%s: failed to insert template %q: %w", op, templates[i].Name, err)
			}

			if isNew {
				created++
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Info("template catalog imported", slog.Int("templates", len(templates)), slog.Int("created", created))

	return created, nil
}

func validateCatalog(templates []domain.Template) error {
	var msgs []string

	seen := make(map[string]bool, len(templates))

	for i := range templates {
		t := &templates[i]

		if strings.TrimSpace(t.Name) == "" {
			msgs = append(msgs, fmt.Sprintf("template #%d: name is required", i+1))
			continue
		}

		if t.Version < 1 {
			msgs = append(msgs, fmt.Sprintf("template %q: version must be at least 1", t.Name))
		}

		key := fmt.Sprintf("%s@%d", strings.ToLower(t.Name), t.Version)
		if seen[key] {
			msgs = append(msgs, fmt.Sprintf("template %q version %d is listed twice", t.Name, t.Version))
		}

		seen[key] = true

		if len(t.Items) == 0 {
			msgs = append(msgs, fmt.Sprintf("template %q has no items", t.Name))
		}

		for j := range t.Items {
			if err := t.Items[j].Validate(); err != nil {
				msgs = append(msgs, fmt.Sprintf("template %q item %s: %v", t.Name, t.Items[j].ServiceCode, err))
			}
		}
	}

	if len(msgs) > 0 {
		return apperrors.NewValidationError(msgs...)
	}

	return nil
}
