package schedule

import (
	"testing"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func plannedDates(slots []Slot) []time.Time {
	dates := make([]time.Time, len(slots))
	for i, s := range slots {
		dates[i] = s.PlannedDate
	}

	return dates
}

func TestDistribute(t *testing.T) {
	testCases := []struct {
		name     string
		start    time.Time
		end      time.Time
		count    int
		cadence  domain.Frequency
		expected []time.Time
	}{
		{
			name:    "Weekly across an exact window",
			start:   date(2024, 1, 1),
			end:     date(2024, 1, 22),
			count:   4,
			cadence: domain.FrequencyWeekly,
			expected: []time.Time{
				date(2024, 1, 1), date(2024, 1, 8), date(2024, 1, 15), date(2024, 1, 22),
			},
		},
		{
			name:    "Short window packs cycles closer than the cadence",
			start:   date(2024, 1, 1),
			end:     date(2024, 1, 6),
			count:   5,
			cadence: domain.FrequencyMonthly,
			expected: []time.Time{
				date(2024, 1, 1), date(2024, 1, 2), date(2024, 1, 3), date(2024, 1, 5), date(2024, 1, 6),
			},
		},
		{
			name:     "Single cycle lands on start",
			start:    date(2024, 3, 10),
			end:      date(2024, 12, 31),
			count:    1,
			cadence:  domain.FrequencyBiWeekly,
			expected: []time.Time{date(2024, 3, 10)},
		},
		{
			name:     "One-off ignores count and window",
			start:    date(2024, 2, 1),
			end:      date(2024, 9, 1),
			count:    6,
			cadence:  domain.FrequencyOneOff,
			expected: []time.Time{date(2024, 2, 1)},
		},
		{
			name:    "Open window steps bi-weekly",
			start:   date(2024, 1, 1),
			count:   3,
			cadence: domain.FrequencyBiWeekly,
			expected: []time.Time{
				date(2024, 1, 1), date(2024, 1, 15), date(2024, 1, 29),
			},
		},
		{
			name:    "Open window steps by calendar month",
			start:   date(2024, 1, 15),
			count:   3,
			cadence: domain.FrequencyMonthly,
			expected: []time.Time{
				date(2024, 1, 15), date(2024, 2, 15), date(2024, 3, 15),
			},
		},
		{
			name:    "End before start collapses onto start",
			start:   date(2024, 5, 1),
			end:     date(2024, 4, 1),
			count:   3,
			cadence: domain.FrequencyWeekly,
			expected: []time.Time{
				date(2024, 5, 1), date(2024, 5, 1), date(2024, 5, 1),
			},
		},
		{
			name:     "Zero count",
			start:    date(2024, 1, 1),
			end:      date(2024, 2, 1),
			count:    0,
			cadence:  domain.FrequencyWeekly,
			expected: []time.Time{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			slots := Distribute(tc.start, tc.end, tc.count, tc.cadence)

			require.NotNil(t, slots)
			assert.Equal(t, tc.expected, plannedDates(slots))

			for i, s := range slots {
				assert.Equal(t, i+1, s.CycleNo)
				assert.Equal(t, s.PlannedDate.AddDate(0, 0, DefaultTurnaroundDays), s.DueDate)
			}
		})
	}
}

func TestDistribute_CountAndOrderProperties(t *testing.T) {
	start := date(2024, 1, 1)
	ends := []time.Time{
		{},
		date(2023, 12, 1),
		date(2024, 1, 1),
		date(2024, 1, 3),
		date(2024, 2, 29),
		date(2025, 6, 30),
	}
	cadences := []domain.Frequency{
		domain.FrequencyWeekly,
		domain.FrequencyBiWeekly,
		domain.FrequencyMonthly,
	}

	for _, end := range ends {
		for _, cadence := range cadences {
			for count := 1; count <= 40; count++ {
				slots := Distribute(start, end, count, cadence)

				require.Len(t, slots, count)
				assert.Equal(t, start, slots[0].PlannedDate)

				for i := 1; i < len(slots); i++ {
					assert.False(t, slots[i].PlannedDate.Before(slots[i-1].PlannedDate),
						"cadence %s count %d: slot %d before slot %d", cadence, count, i+1, i)
				}
			}
		}
	}

	for count := 1; count <= 10; count++ {
		slots := Distribute(start, date(2030, 1, 1), count, domain.FrequencyOneOff)
		require.Len(t, slots, 1)
		assert.Equal(t, start, slots[0].PlannedDate)
	}
}

func TestDistributeWithTurnaround(t *testing.T) {
	start := time.Date(2024, 1, 1, 15, 30, 0, 0, time.FixedZone("AEST", 10*3600))

	slots := DistributeWithTurnaround(start, date(2024, 1, 29), 2, domain.FrequencyMonthly, 14)

	require.Len(t, slots, 2)
	assert.Equal(t, date(2024, 1, 1), slots[0].PlannedDate)
	assert.Equal(t, date(2024, 1, 15), slots[0].DueDate)
	assert.Equal(t, date(2024, 1, 29), slots[1].PlannedDate)
	assert.Equal(t, date(2024, 2, 12), slots[1].DueDate)
}

func TestSignature(t *testing.T) {
	qty := 4.0
	start := date(2024, 1, 1)
	end := date(2024, 1, 22)

	fp := Fingerprint(&qty, &start, &end, domain.FrequencyWeekly)
	assert.Equal(t, "qty=4|start=2024-01-01|end=2024-01-22|freq=weekly", fp)
	assert.Equal(t, "qty=|start=|end=|freq=", Fingerprint(nil, nil, nil, ""))

	sig := Signature(&qty, &start, &end, domain.FrequencyWeekly)
	assert.Len(t, sig, 64)

	sameDayLater := start.Add(9 * time.Hour)
	assert.Equal(t, sig, Signature(&qty, &sameDayLater, &end, domain.FrequencyWeekly))

	otherQty := 5.0
	assert.NotEqual(t, sig, Signature(&otherQty, &start, &end, domain.FrequencyWeekly))
	assert.NotEqual(t, sig, Signature(&qty, &start, nil, domain.FrequencyWeekly))
	assert.NotEqual(t, sig, Signature(&qty, &start, &end, domain.FrequencyBiWeekly))

	svc := &domain.Service{UnitQty: &qty, ScheduleStart: &start, ScheduleEnd: &end, ScheduleFrequency: domain.FrequencyWeekly}
	assert.Equal(t, sig, ServiceSignature(svc))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 21, DaysBetween(date(2024, 1, 1), date(2024, 1, 22)))
	assert.Equal(t, -31, DaysBetween(date(2024, 5, 1), date(2024, 3, 31)))
	assert.Equal(t, 0, DaysBetween(date(2024, 5, 1).Add(23*time.Hour), date(2024, 5, 1)))
}
