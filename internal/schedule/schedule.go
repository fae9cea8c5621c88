// Package schedule spreads review cycles over a schedule window.
// Everything here is pure: no I/O and no clock reads.
package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/domain"
)

// DefaultTurnaroundDays is the gap between a cycle's planned date and its due date.
const DefaultTurnaroundDays = 7

const dateLayout = "2006-01-02"

// Slot is one planned review: its 1-based number, planned date and due date.
type Slot struct {
	CycleNo     int
	PlannedDate time.Time
	DueDate     time.Time
}

// Distribute places count cycles in [start, end] using the default turnaround.
func Distribute(start, end time.Time, count int, cadence domain.Frequency) []Slot {
	return DistributeWithTurnaround(start, end, count, cadence, DefaultTurnaroundDays)
}

// DistributeWithTurnaround places count cycles in [start, end].
//
// One-off cadence always yields exactly one slot at start. Otherwise cycles are
// spread evenly across the window, cycle i landing on start + round(i*interval)
// days with interval = (end-start)/(count-1). A zero end steps by the nominal cadence instead.
func DistributeWithTurnaround(start, end time.Time, count int, cadence domain.Frequency, turnaroundDays int) []Slot {
	if count <= 0 {
		return []Slot{}
	}

	if turnaroundDays < 0 {
		turnaroundDays = 0
	}

	start = Day(start)

	if cadence == domain.FrequencyOneOff || count == 1 {
		return []Slot{newSlot(1, start, turnaroundDays)}
	}

	slots := make([]Slot, 0, count)

	if end.IsZero() {
		for i := 0; i < count; i++ {
			slots = append(slots, newSlot(i+1, nominalStep(start, i, cadence), turnaroundDays))
		}

		return slots
	}

	end = Day(end)

	interval := float64(DaysBetween(start, end)) / float64(count-1)
	if interval < 0 {
		interval = 0
	}

	for i := 0; i < count; i++ {
		offset := int(math.RoundToEven(float64(i) * interval))
		slots = append(slots, newSlot(i+1, start.AddDate(0, 0, offset), turnaroundDays))
	}

	return slots
}

func newSlot(cycleNo int, planned time.Time, turnaroundDays int) Slot {
	return Slot{
		CycleNo:     cycleNo,
		PlannedDate: planned,
		DueDate:     planned.AddDate(0, 0, turnaroundDays),
	}
}

func nominalStep(start time.Time, i int, cadence domain.Frequency) time.Time {
	switch cadence {
	case domain.FrequencyWeekly:
		return start.AddDate(0, 0, 7*i)
	case domain.FrequencyBiWeekly:
		return start.AddDate(0, 0, 14*i)
	case domain.FrequencyMonthly:
		return start.AddDate(0, i, 0)
	case domain.FrequencyOneOff:
		return start
	default:
		return start
	}
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b; negative when b is earlier.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Day(b).Sub(Day(a)).Hours() / 24))
}

// Fingerprint is the canonical, human-readable form of the schedule parameters.
func Fingerprint(qty *float64, start, end *time.Time, cadence domain.Frequency) string {
	parts := []string{
		"qty=" + formatQty(qty),
		"start=" + formatDate(start),
		"end=" + formatDate(end),
		"freq=" + string(cadence),
	}

	return strings.Join(parts, "|")
}

// Signature hashes the fingerprint; equal signatures mean an unchanged schedule.
func Signature(qty *float64, start, end *time.Time, cadence domain.Frequency) string {
	sum := sha256.Sum256([]byte(Fingerprint(qty, start, end, cadence)))
	return hex.EncodeToString(sum[:])
}

// ServiceSignature is Signature over a service's schedule fields.
func ServiceSignature(svc *domain.Service) string {
	return Signature(svc.UnitQty, svc.ScheduleStart, svc.ScheduleEnd, svc.ScheduleFrequency)
}

func formatQty(qty *float64) string {
	if qty == nil {
		return ""
	}

	return strconv.FormatFloat(*qty, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}

	return Day(*t).Format(dateLayout)
}
