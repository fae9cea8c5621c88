package http

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/service"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// date accepts "2006-01-02" as well as full RFC 3339 timestamps.
type date struct {
	time.Time
}

func (d *date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	t, err := parseDate(s)
	if err != nil {
		return err
	}

	d.Time = t

	return nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}

	return t, nil
}

func (d *date) ptr() *time.Time {
	if d == nil {
		return nil
	}

	t := d.Time

	return &t
}

func parseFrequencyPtr(s *string) (*domain.Frequency, error) {
	if s == nil {
		return nil, nil
	}

	f, err := domain.ParseFrequency(*s)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	return &f, nil
}

type createProjectRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Code string `json:"code" validate:"required,max=50,service_code"`
}

type createServiceRequest struct {
	Phase             string           `json:"phase" validate:"max=100"`
	Code              string           `json:"service_code" validate:"required,max=50,service_code"`
	Name              string           `json:"service_name" validate:"required,max=255"`
	UnitType          domain.UnitType  `json:"unit_type" validate:"required,oneof=review audit lump_sum hourly"`
	UnitQty           *float64         `json:"unit_qty" validate:"omitempty,gte=0"`
	UnitRate          *decimal.Decimal `json:"unit_rate" validate:"-"`
	LumpSumFee        *decimal.Decimal `json:"lump_sum_fee" validate:"-"`
	BillRule          domain.BillRule  `json:"bill_rule" validate:"omitempty,oneof=progress on_completion"`
	Notes             string           `json:"notes"`
	Disciplines       string           `json:"disciplines"`
	Deliverables      string           `json:"deliverables"`
	ScheduleStart     *date            `json:"schedule_start" validate:"-"`
	ScheduleEnd       *date            `json:"schedule_end" validate:"-"`
	ScheduleFrequency *string          `json:"schedule_frequency"`
}

func (r createServiceRequest) toDomain(projectID int64) (*domain.Service, error) {
	freq, err := parseFrequencyPtr(r.ScheduleFrequency)
	if err != nil {
		return nil, err
	}

	svc := &domain.Service{
		ProjectID:     projectID,
		Phase:         r.Phase,
		Code:          r.Code,
		Name:          r.Name,
		UnitType:      r.UnitType,
		UnitQty:       r.UnitQty,
		BillRule:      r.BillRule,
		Notes:         r.Notes,
		Disciplines:   r.Disciplines,
		Deliverables:  r.Deliverables,
		ScheduleStart: r.ScheduleStart.ptr(),
		ScheduleEnd:   r.ScheduleEnd.ptr(),
	}

	if freq != nil {
		svc.ScheduleFrequency = *freq
	}

	if r.UnitRate != nil {
		svc.UnitRate = decimal.NewNullDecimal(*r.UnitRate)
	}

	if r.LumpSumFee != nil {
		svc.LumpSumFee = decimal.NewNullDecimal(*r.LumpSumFee)
	}

	return svc, nil
}

type updateServiceRequest struct {
	Phase             *string               `json:"phase" validate:"omitempty,max=100"`
	Code              *string               `json:"service_code" validate:"omitempty,max=50,service_code"`
	Name              *string               `json:"service_name" validate:"omitempty,min=1,max=255"`
	UnitType          *domain.UnitType      `json:"unit_type" validate:"omitempty,oneof=review audit lump_sum hourly"`
	UnitQty           *float64              `json:"unit_qty" validate:"omitempty,gte=0"`
	UnitRate          *decimal.Decimal      `json:"unit_rate" validate:"-"`
	LumpSumFee        *decimal.Decimal      `json:"lump_sum_fee" validate:"-"`
	BillRule          *domain.BillRule      `json:"bill_rule" validate:"omitempty,oneof=progress on_completion"`
	Status            *domain.ServiceStatus `json:"status" validate:"omitempty,oneof=active cancelled"`
	Notes             *string               `json:"notes"`
	Disciplines       *string               `json:"disciplines"`
	Deliverables      *string               `json:"deliverables"`
	ScheduleStart     *date                 `json:"schedule_start" validate:"-"`
	ScheduleEnd       *date                 `json:"schedule_end" validate:"-"`
	ScheduleFrequency *string               `json:"schedule_frequency"`
}

func (r updateServiceRequest) toPatch() (domain.ServicePatch, error) {
	freq, err := parseFrequencyPtr(r.ScheduleFrequency)
	if err != nil {
		return domain.ServicePatch{}, err
	}

	return domain.ServicePatch{
		Phase:             r.Phase,
		Code:              r.Code,
		Name:              r.Name,
		UnitType:          r.UnitType,
		UnitQty:           r.UnitQty,
		UnitRate:          r.UnitRate,
		LumpSumFee:        r.LumpSumFee,
		BillRule:          r.BillRule,
		Status:            r.Status,
		Notes:             r.Notes,
		Disciplines:       r.Disciplines,
		Deliverables:      r.Deliverables,
		ScheduleStart:     r.ScheduleStart.ptr(),
		ScheduleEnd:       r.ScheduleEnd.ptr(),
		ScheduleFrequency: freq,
	}, nil
}

type generateReviewsRequest struct {
	Force          bool                          `json:"force"`
	PreserveManual bool                          `json:"preserve_manual"`
	Overrides      map[int]service.CycleOverride `json:"overrides" validate:"-"`
}

func (r generateReviewsRequest) toOptions() service.GenerateOptions {
	return service.GenerateOptions{
		Force:          r.Force,
		PreserveManual: r.PreserveManual,
		Overrides:      r.Overrides,
	}
}

type reviewStatusRequest struct {
	Status       domain.ReviewStatus `json:"status" validate:"required"`
	EvidenceLink *string             `json:"evidence_link" validate:"omitempty,max=2000"`
}

type serviceStatusRequest struct {
	Status domain.ReviewStatus `json:"status" validate:"required"`
}

type refreshRequest struct {
	Today *date `json:"today" validate:"-"`
}

type itemOverrideRequest struct {
	UnitQty       *float64         `json:"unit_qty" validate:"omitempty,gte=0"`
	UnitRate      *decimal.Decimal `json:"unit_rate" validate:"-"`
	LumpSumFee    *decimal.Decimal `json:"lump_sum_fee" validate:"-"`
	Frequency     *string          `json:"schedule_frequency"`
	ScheduleStart *date            `json:"schedule_start" validate:"-"`
	ScheduleEnd   *date            `json:"schedule_end" validate:"-"`
}

type applyTemplateRequest struct {
	Template      string                         `json:"template" validate:"required,max=255"`
	ScheduleStart *date                          `json:"schedule_start" validate:"-"`
	ScheduleEnd   *date                          `json:"schedule_end" validate:"-"`
	Frequency     *string                        `json:"schedule_frequency"`
	Items         map[string]itemOverrideRequest `json:"items" validate:"omitempty,dive"`
}

func (r applyTemplateRequest) toOverrides() (service.TemplateOverrides, error) {
	freq, err := parseFrequencyPtr(r.Frequency)
	if err != nil {
		return service.TemplateOverrides{}, err
	}

	overrides := service.TemplateOverrides{
		ScheduleStart: r.ScheduleStart.ptr(),
		ScheduleEnd:   r.ScheduleEnd.ptr(),
		Frequency:     freq,
	}

	if len(r.Items) == 0 {
		return overrides, nil
	}

	overrides.Items = make(map[string]service.ItemOverride, len(r.Items))

	for code, it := range r.Items {
		itemFreq, err := parseFrequencyPtr(it.Frequency)
		if err != nil {
			return service.TemplateOverrides{}, err
		}

		overrides.Items[code] = service.ItemOverride{
			UnitQty:       it.UnitQty,
			UnitRate:      it.UnitRate,
			LumpSumFee:    it.LumpSumFee,
			Frequency:     itemFreq,
			ScheduleStart: it.ScheduleStart.ptr(),
			ScheduleEnd:   it.ScheduleEnd.ptr(),
		}
	}

	return overrides, nil
}

type createClaimRequest struct {
	PeriodStart date    `json:"period_start" validate:"-"`
	PeriodEnd   date    `json:"period_end" validate:"-"`
	PORef       *string `json:"po_ref" validate:"omitempty,max=100"`
}

type claimStatusRequest struct {
	Status     domain.ClaimStatus `json:"status" validate:"required,oneof=draft submitted paid"`
	InvoiceRef *string            `json:"invoice_ref" validate:"omitempty,max=100"`
}
