// Package usage turns raw usage sessions into day-bucketed, per-booth,
// gap-filled time series and derives utilization summaries from them.
//
// Everything here is a pure function of its inputs.
package usage

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/boothboard/pkg/models"
)

const secondsPerHour = 3600.0

// DayEntry is the usage of one calendar day. Hours only holds booths with
// recorded usage that day.
type DayEntry struct {
	Day        string                `json:"day"`
	Hours      map[uuid.UUID]float64 `json:"hours"`
	TotalHours float64               `json:"total_hours"`
}

// Result is the output of Aggregate.
type Result struct {
	Series []DayEntry `json:"series"`
	// BoothIDs lists every booth present in Series, in order of first
	// appearance (ties within a day ordered by id).
	BoothIDs []uuid.UUID `json:"booth_ids"`
	// Skipped counts selected sessions dropped for a missing start time or a
	// missing or negative duration.
	Skipped int `json:"skipped"`
}

type options struct {
	padToRange bool
}

// Option tunes Aggregate.
type Option func(*options)

// WithRangePadding makes a supplied date range a source of zero-filled days:
// the series covers the whole requested range even where no session was
// observed. Without it the range only narrows the observed span.
func WithRangePadding() Option {
	return func(o *options) { o.padToRange = true }
}

// Aggregate filters sessions to the selected booths (all booths when selected
// is empty), sums their durations per (UTC day, booth), fills every day between
// the first and last observed day, converts to hours and finally drops days
// outside rng when rng is non-nil.
func Aggregate(sessions []models.UsageSession, selected map[uuid.UUID]struct{}, rng *DateRange, opts ...Option) Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	seconds := make(map[string]map[uuid.UUID]int64)
	var first, last string
	skipped := 0

	for _, s := range sessions {
		if len(selected) > 0 {
			if _, ok := selected[s.PhoneBoothID]; !ok {
				continue
			}
		}
		if s.StartTime == nil || s.DurationSeconds == nil || *s.DurationSeconds < 0 {
			skipped++
			continue
		}

		day := Day(*s.StartTime)
		booths, ok := seconds[day]
		if !ok {
			booths = make(map[uuid.UUID]int64)
			seconds[day] = booths
		}
		booths[s.PhoneBoothID] += *s.DurationSeconds

		if first == "" || day < first {
			first = day
		}
		if day > last {
			last = day
		}
	}

	if o.padToRange && rng != nil && rng.Days() > 0 {
		if first == "" || rng.StartDay() < first {
			first = rng.StartDay()
		}
		if rng.EndDay() > last {
			last = rng.EndDay()
		}
	}

	result := Result{Series: []DayEntry{}, BoothIDs: []uuid.UUID{}, Skipped: skipped}
	if first == "" {
		return result
	}

	seen := make(map[uuid.UUID]struct{})
	for _, day := range DayRange(first, last) {
		if rng != nil && !rng.Contains(day) {
			continue
		}

		booths := seconds[day]
		ids := sortedIDs(booths)
		entry := DayEntry{Day: day, Hours: make(map[uuid.UUID]float64, len(booths))}
		for _, id := range ids {
			hours := float64(booths[id]) / secondsPerHour
			entry.Hours[id] = hours
			entry.TotalHours += hours

			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				result.BoothIDs = append(result.BoothIDs, id)
			}
		}
		result.Series = append(result.Series, entry)
	}

	return result
}

// BoothNames maps booth id to its display name, "{name} ({serial_number})".
func BoothNames(booths []models.Booth) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(booths))
	for _, b := range booths {
		names[b.ID] = b.DisplayName()
	}
	return names
}

func sortedIDs(m map[uuid.UUID]int64) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}
