package domain

import (
	"fmt"
	"strings"
)

type UnitType string

const (
	UnitReview  UnitType = "review"
	UnitAudit   UnitType = "audit"
	UnitLumpSum UnitType = "lump_sum"
	UnitHourly  UnitType = "hourly"
)

func (u UnitType) Valid() bool {
	switch u {
	case UnitReview, UnitAudit, UnitLumpSum, UnitHourly:
		return true
	default:
		return false
	}
}

// Frequency is the cadence used to spread review cycles over a schedule window.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiWeekly Frequency = "bi-weekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyOneOff   Frequency = "one-off"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiWeekly, FrequencyMonthly, FrequencyOneOff:
		return true
	default:
		return false
	}
}

// ParseFrequency normalises user input, including the aliases used in fee proposals.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly":
		return FrequencyWeekly, nil
	case "bi-weekly", "biweekly", "fortnightly":
		return FrequencyBiWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	case "one-off", "oneoff", "once":
		return FrequencyOneOff, nil
	default:
		return "", fmt.Errorf("unknown schedule frequency %q", s)
	}
}

type ServiceStatus string

const (
	ServiceActive    ServiceStatus = "active"
	ServiceCancelled ServiceStatus = "cancelled"
)

func (s ServiceStatus) Valid() bool {
	return s == ServiceActive || s == ServiceCancelled
}

type ReviewStatus string

const (
	ReviewPlanned      ReviewStatus = "planned"
	ReviewInProgress   ReviewStatus = "in_progress"
	ReviewCompleted    ReviewStatus = "completed"
	ReviewReportIssued ReviewStatus = "report_issued"
	ReviewClosed       ReviewStatus = "closed"
	ReviewCancelled    ReviewStatus = "cancelled"
)

// ReviewStatuses lists every status in lifecycle order.
var ReviewStatuses = []ReviewStatus{
	ReviewPlanned,
	ReviewInProgress,
	ReviewCompleted,
	ReviewReportIssued,
	ReviewClosed,
	ReviewCancelled,
}

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPlanned, ReviewInProgress, ReviewCompleted, ReviewReportIssued, ReviewClosed, ReviewCancelled:
		return true
	default:
		return false
	}
}

func (s ReviewStatus) IsTerminal() bool {
	switch s {
	case ReviewClosed, ReviewCancelled:
		return true
	case ReviewPlanned, ReviewInProgress, ReviewCompleted, ReviewReportIssued:
		return false
	default:
		return false
	}
}

// IsOpen reports whether work on the cycle is still outstanding.
func (s ReviewStatus) IsOpen() bool {
	return s == ReviewPlanned || s == ReviewInProgress
}

type ClaimStatus string

const (
	ClaimDraft     ClaimStatus = "draft"
	ClaimSubmitted ClaimStatus = "submitted"
	ClaimPaid      ClaimStatus = "paid"
)

func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimDraft, ClaimSubmitted, ClaimPaid:
		return true
	default:
		return false
	}
}

func (s ClaimStatus) rank() int {
	switch s {
	case ClaimDraft:
		return 0
	case ClaimSubmitted:
		return 1
	case ClaimPaid:
		return 2
	default:
		return -1
	}
}

// CanMoveTo allows only forward moves along draft -> submitted -> paid.
func (s ClaimStatus) CanMoveTo(next ClaimStatus) bool {
	return next.Valid() && next.rank() > s.rank()
}

// BillRule decides when a service's progress becomes claimable.
type BillRule string

const (
	BillProgress     BillRule = "progress"
	BillOnCompletion BillRule = "on_completion"
)

func (b BillRule) Valid() bool {
	return b == BillProgress || b == BillOnCompletion
}

// Claimable converts a completion percentage into the percentage that may be billed.
func (b BillRule) Claimable(pct float64) float64 {
	switch b {
	case BillOnCompletion:
		if pct >= 100 {
			return 100
		}

		return 0
	case BillProgress:
		return pct
	default:
		return pct
	}
}
