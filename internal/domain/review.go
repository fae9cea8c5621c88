package domain

import "time"

// IsValidTransition accepts any move between known statuses, retrograde corrections included.
// Unknown statuses on either side are rejected.
func IsValidTransition(current, next ReviewStatus) bool {
	return current.Valid() && next.Valid()
}

// StatusWeight is the share of a cycle counted as done for completion purposes.
func StatusWeight(c *ReviewCycle) float64 {
	switch c.Status {
	case ReviewCompleted, ReviewReportIssued:
		return 1.0
	case ReviewInProgress:
		return 0.5
	case ReviewClosed:
		if c.ActualIssuedAt != nil {
			return 1.0
		}

		return 0
	case ReviewPlanned, ReviewCancelled:
		return 0
	default:
		return 0
	}
}

// CompletionPct returns the weight-averaged completion of cycles on a 0..100 scale.
func CompletionPct(cycles []ReviewCycle) float64 {
	var done, total float64

	for i := range cycles {
		w := cycles[i].WeightFactor
		if w <= 0 {
			w = 1
		}

		done += w * StatusWeight(&cycles[i])
		total += w
	}

	if total == 0 {
		return 0
	}

	return done / total * 100
}

// NonReviewProgress maps a coarse status to the stored progress of a non-review service.
func NonReviewProgress(status ReviewStatus) (float64, bool) {
	switch status {
	case ReviewPlanned:
		return 0, true
	case ReviewInProgress:
		return 50, true
	case ReviewCompleted:
		return 100, true
	case ReviewReportIssued, ReviewClosed, ReviewCancelled:
		return 0, false
	default:
		return 0, false
	}
}

// IsOverdue reports whether an open cycle has passed its due date.
func (c *ReviewCycle) IsOverdue(today time.Time) bool {
	return c.Status.IsOpen() && c.DueDate.Before(today)
}
