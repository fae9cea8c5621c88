package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type Project struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name" validate:"required,max=255"`
	Code      string    `db:"code" json:"code" validate:"required,max=50,service_code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Service is a contracted scope-of-work line item of a project.
type Service struct {
	ID                int64               `db:"id" json:"id"`
	ProjectID         int64               `db:"project_id" json:"project_id" validate:"required,gt=0"`
	Phase             string              `db:"phase" json:"phase" validate:"max=100"`
	Code              string              `db:"service_code" json:"service_code" validate:"required,max=50,service_code"`
	Name              string              `db:"service_name" json:"service_name" validate:"required,max=255"`
	UnitType          UnitType            `db:"unit_type" json:"unit_type" validate:"required,oneof=review audit lump_sum hourly"`
	UnitQty           *float64            `db:"unit_qty" json:"unit_qty" validate:"omitempty,gte=0"`
	UnitRate          decimal.NullDecimal `db:"unit_rate" json:"unit_rate" validate:"-"`
	LumpSumFee        decimal.NullDecimal `db:"lump_sum_fee" json:"lump_sum_fee" validate:"-"`
	AgreedFee         decimal.Decimal     `db:"agreed_fee" json:"agreed_fee" validate:"-"`
	BillRule          BillRule            `db:"bill_rule" json:"bill_rule" validate:"oneof=progress on_completion"`
	Status            ServiceStatus       `db:"status" json:"status" validate:"oneof=active cancelled"`
	ProgressPct       float64             `db:"progress_pct" json:"progress_pct" validate:"gte=0,lte=100"`
	Notes             string              `db:"notes" json:"notes"`
	Disciplines       string              `db:"disciplines" json:"disciplines"`
	Deliverables      string              `db:"deliverables" json:"deliverables"`
	ScheduleStart     *time.Time          `db:"schedule_start" json:"schedule_start"`
	ScheduleEnd       *time.Time          `db:"schedule_end" json:"schedule_end"`
	ScheduleFrequency Frequency           `db:"schedule_frequency" json:"schedule_frequency" validate:"omitempty,oneof=weekly bi-weekly monthly one-off"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

func (s *Service) IsReview() bool { return s.UnitType == UnitReview }

func (s *Service) IsActive() bool { return s.Status == ServiceActive }

// CycleCount is the number of review cycles the contracted quantity asks for.
func (s *Service) CycleCount() int {
	if s.UnitQty == nil || *s.UnitQty <= 0 {
		return 0
	}

	return int(math.Round(*s.UnitQty))
}

// ComputeAgreedFee derives the fee from the unit type; it is never negative.
func (s *Service) ComputeAgreedFee() decimal.Decimal {
	var fee decimal.Decimal

	switch s.UnitType {
	case UnitLumpSum:
		if s.LumpSumFee.Valid {
			fee = s.LumpSumFee.Decimal
		}
	case UnitReview, UnitAudit, UnitHourly:
		if s.UnitQty != nil && s.UnitRate.Valid {
			fee = decimal.NewFromFloat(*s.UnitQty).Mul(s.UnitRate.Decimal)
		}
	}

	if fee.IsNegative() {
		return decimal.Zero
	}

	return fee.Round(2)
}

// ServicePatch carries the fields an update may change; nil means untouched.
type ServicePatch struct {
	Phase             *string          `json:"phase"`
	Code              *string          `json:"service_code"`
	Name              *string          `json:"service_name"`
	UnitType          *UnitType        `json:"unit_type"`
	UnitQty           *float64         `json:"unit_qty"`
	UnitRate          *decimal.Decimal `json:"unit_rate"`
	LumpSumFee        *decimal.Decimal `json:"lump_sum_fee"`
	BillRule          *BillRule        `json:"bill_rule"`
	Status            *ServiceStatus   `json:"status"`
	Notes             *string          `json:"notes"`
	Disciplines       *string          `json:"disciplines"`
	Deliverables      *string          `json:"deliverables"`
	ScheduleStart     *time.Time       `json:"schedule_start"`
	ScheduleEnd       *time.Time       `json:"schedule_end"`
	ScheduleFrequency *Frequency       `json:"schedule_frequency"`
}

// Apply copies the patch onto s and reports whether anything changed.
func (p ServicePatch) Apply(s *Service) bool {
	changed := false

	setString := func(dst *string, v *string) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = true
		}
	}

	setString(&s.Phase, p.Phase)
	setString(&s.Code, p.Code)
	setString(&s.Name, p.Name)
	setString(&s.Notes, p.Notes)
	setString(&s.Disciplines, p.Disciplines)
	setString(&s.Deliverables, p.Deliverables)

	if p.UnitType != nil && s.UnitType != *p.UnitType {
		s.UnitType = *p.UnitType
		changed = true
	}

	if p.UnitQty != nil && (s.UnitQty == nil || *s.UnitQty != *p.UnitQty) {
		qty := *p.UnitQty
		s.UnitQty = &qty
		changed = true
	}

	if p.UnitRate != nil && (!s.UnitRate.Valid || !s.UnitRate.Decimal.Equal(*p.UnitRate)) {
		s.UnitRate = decimal.NewNullDecimal(*p.UnitRate)
		changed = true
	}

	if p.LumpSumFee != nil && (!s.LumpSumFee.Valid || !s.LumpSumFee.Decimal.Equal(*p.LumpSumFee)) {
		s.LumpSumFee = decimal.NewNullDecimal(*p.LumpSumFee)
		changed = true
	}

	if p.BillRule != nil && s.BillRule != *p.BillRule {
		s.BillRule = *p.BillRule
		changed = true
	}

	if p.Status != nil && s.Status != *p.Status {
		s.Status = *p.Status
		changed = true
	}

	if p.ScheduleStart != nil && (s.ScheduleStart == nil || !s.ScheduleStart.Equal(*p.ScheduleStart)) {
		start := *p.ScheduleStart
		s.ScheduleStart = &start
		changed = true
	}

	if p.ScheduleEnd != nil && (s.ScheduleEnd == nil || !s.ScheduleEnd.Equal(*p.ScheduleEnd)) {
		end := *p.ScheduleEnd
		s.ScheduleEnd = &end
		changed = true
	}

	if p.ScheduleFrequency != nil && s.ScheduleFrequency != *p.ScheduleFrequency {
		s.ScheduleFrequency = *p.ScheduleFrequency
		changed = true
	}

	return changed
}

// ReviewCycle is one scheduled review of a review-type service.
type ReviewCycle struct {
	ID             int64        `db:"id" json:"review_id"`
	ServiceID      int64        `db:"service_id" json:"service_id"`
	CycleNo        int          `db:"cycle_no" json:"cycle_no"`
	PlannedDate    time.Time    `db:"planned_date" json:"planned_date"`
	DueDate        time.Time    `db:"due_date" json:"due_date"`
	Disciplines    string       `db:"disciplines" json:"disciplines"`
	Deliverables   string       `db:"deliverables" json:"deliverables"`
	Status         ReviewStatus `db:"status" json:"status"`
	WeightFactor   float64      `db:"weight_factor" json:"weight_factor"`
	EvidenceLinks  *string      `db:"evidence_links" json:"evidence_links"`
	ActualIssuedAt *time.Time   `db:"actual_issued_at" json:"actual_issued_at"`
	Signature      string       `db:"regeneration_signature" json:"regeneration_signature"`
}

// IsPristine reports whether the cycle is still exactly as the generator produced it.
func (c *ReviewCycle) IsPristine() bool {
	return c.ProtectionReason() == ""
}

// ProtectionReason explains why regeneration must keep the cycle; empty for pristine cycles.
func (c *ReviewCycle) ProtectionReason() string {
	switch {
	case c.Status != ReviewPlanned:
		return "status is " + string(c.Status)
	case c.EvidenceLinks != nil && *c.EvidenceLinks != "":
		return "evidence recorded"
	case c.ActualIssuedAt != nil:
		return "report issue date recorded"
	default:
		return ""
	}
}

type BillingClaim struct {
	ID          int64              `db:"id" json:"claim_id"`
	ProjectID   int64              `db:"project_id" json:"project_id"`
	PeriodStart time.Time          `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time          `db:"period_end" json:"period_end"`
	PORef       *string            `db:"po_ref" json:"po_ref"`
	InvoiceRef  *string            `db:"invoice_ref" json:"invoice_ref"`
	Status      ClaimStatus        `db:"status" json:"status"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	Lines       []BillingClaimLine `json:"lines"`
}

// Total sums the amounts of all lines.
func (c *BillingClaim) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Amount)
	}

	return total
}

type BillingClaimLine struct {
	ID         int64           `db:"id" json:"id"`
	ClaimID    int64           `db:"claim_id" json:"claim_id"`
	ServiceID  int64           `db:"service_id" json:"service_id"`
	StageLabel string          `db:"stage_label" json:"stage_label"`
	PrevPct    float64         `db:"prev_pct" json:"prev_pct"`
	CurrPct    float64         `db:"curr_pct" json:"curr_pct"`
	DeltaPct   float64         `db:"delta_pct" json:"delta_pct"`
	Amount     decimal.Decimal `db:"amount_this_claim" json:"amount_this_claim"`
	Note       string          `db:"note" json:"note"`
}

// NewClaimLine derives delta and amount; a regression yields a zero delta, never a negative one.
func NewClaimLine(svc *Service, prevPct, currPct float64) BillingClaimLine {
	delta := math.Max(currPct-prevPct, 0)
	amount := svc.AgreedFee.Mul(decimal.NewFromFloat(delta)).Div(decimal.NewFromInt(100)).Round(2)

	label := svc.Name
	if svc.Phase != "" {
		label = svc.Phase + ": " + svc.Name
	}

	return BillingClaimLine{
		ServiceID:  svc.ID,
		StageLabel: label,
		PrevPct:    prevPct,
		CurrPct:    currPct,
		DeltaPct:   delta,
		Amount:     amount,
	}
}

type Template struct {
	ID        int64          `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Version   int            `db:"version" json:"version"`
	Sector    string         `db:"sector" json:"sector"`
	Notes     string         `db:"notes" json:"notes"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	Items     []TemplateItem `json:"items"`
}

// TemplateItem is a blueprint for one service row.
type TemplateItem struct {
	ID                int64               `db:"id" json:"id"`
	TemplateID        int64               `db:"template_id" json:"template_id"`
	Position          int                 `db:"position" json:"position"`
	Phase             string              `db:"phase" json:"phase"`
	ServiceCode       string              `db:"service_code" json:"service_code"`
	ServiceName       string              `db:"service_name" json:"service_name"`
	UnitType          UnitType            `db:"unit_type" json:"unit_type"`
	UnitQty           *float64            `db:"unit_qty" json:"unit_qty"`
	UnitRate          decimal.NullDecimal `db:"unit_rate" json:"unit_rate"`
	LumpSumFee        decimal.NullDecimal `db:"lump_sum_fee" json:"lump_sum_fee"`
	BillRule          BillRule            `db:"bill_rule" json:"bill_rule"`
	ScheduleFrequency Frequency           `db:"schedule_frequency" json:"schedule_frequency"`
	Disciplines       string              `db:"disciplines" json:"disciplines"`
	Deliverables      string              `db:"deliverables" json:"deliverables"`
	Notes             string              `db:"notes" json:"notes"`
}

type ProjectKPIs struct {
	ProjectID            int64                `json:"project_id"`
	TotalServices        int                  `json:"total_services"`
	TotalReviews         int                  `json:"total_reviews"`
	StatusCounts         map[ReviewStatus]int `json:"status_counts"`
	OverdueCount         int                  `json:"overdue_count"`
	UpcomingCount        int                  `json:"upcoming_count"`
	OverallCompletionPct float64              `json:"overall_completion_percentage"`
	TotalAgreedFee       decimal.Decimal      `json:"total_agreed_fee"`
	TotalClaimed         decimal.Decimal      `json:"total_claimed"`
}
