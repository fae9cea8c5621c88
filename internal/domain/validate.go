package domain

import (
	"errors"

	"github.com/YusovID/bim-delivery-service/internal/apperrors"
	"github.com/YusovID/bim-delivery-service/internal/validation"
)

// ApplyDefaults fills the fields a freshly created service may leave blank.
func (s *Service) ApplyDefaults() {
	if s.BillRule == "" {
		s.BillRule = BillProgress
	}

	if s.Status == "" {
		s.Status = ServiceActive
	}
}

// Validate checks field rules and unit-type specific pricing requirements.
// All problems are reported together in one *apperrors.ValidationError.
func (s *Service) Validate() error {
	return s.validate()
}

func (s *Service) validate(skipFields ...string) error {
	var msgs []string

	if err := validation.ValidateStructExcept(s, skipFields...); err != nil {
		var verr *apperrors.ValidationError
		if !errors.As(err, &verr) {
			return err
		}

		msgs = append(msgs, verr.Errors...)
	}

	switch s.UnitType {
	case UnitLumpSum:
		if !s.LumpSumFee.Valid {
			msgs = append(msgs, "lump_sum services require lump_sum_fee")
		} else if s.LumpSumFee.Decimal.IsNegative() {
			msgs = append(msgs, "lump_sum_fee must not be negative")
		}
	case UnitReview, UnitAudit, UnitHourly:
		if s.UnitQty == nil {
			msgs = append(msgs, string(s.UnitType)+" services require unit_qty")
		}

		if !s.UnitRate.Valid {
			msgs = append(msgs, string(s.UnitType)+" services require unit_rate")
		} else if s.UnitRate.Decimal.IsNegative() {
			msgs = append(msgs, "unit_rate must not be negative")
		}
	}

	if s.ScheduleStart != nil && s.ScheduleEnd != nil && s.ScheduleEnd.Before(*s.ScheduleStart) {
		msgs = append(msgs, "schedule_end must not be before schedule_start")
	}

	if len(msgs) > 0 {
		return apperrors.NewValidationError(msgs...)
	}

	return nil
}

// Validate checks a template item the way the service built from it would be checked.
// Items are not bound to a project yet.
func (it *TemplateItem) Validate() error {
	return it.ToService(0).validate("ProjectID")
}

// ToService builds an unsaved service from the item.
func (it *TemplateItem) ToService(projectID int64) *Service {
	svc := &Service{
		ProjectID:         projectID,
		Phase:             it.Phase,
		Code:              it.ServiceCode,
		Name:              it.ServiceName,
		UnitType:          it.UnitType,
		UnitRate:          it.UnitRate,
		LumpSumFee:        it.LumpSumFee,
		BillRule:          it.BillRule,
		ScheduleFrequency: it.ScheduleFrequency,
		Disciplines:       it.Disciplines,
		Deliverables:      it.Deliverables,
		Notes:             it.Notes,
	}

	if it.UnitQty != nil {
		qty := *it.UnitQty
		svc.UnitQty = &qty
	}

	svc.ApplyDefaults()
	svc.AgreedFee = svc.ComputeAgreedFee()

	return svc
}
