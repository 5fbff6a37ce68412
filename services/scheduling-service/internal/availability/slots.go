package availability

import (
	"fmt"
	"time"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is a derived, non-persisted candidate booking interval. It is
// recomputed on every availability request.
type Slot struct {
	Start     time.Time
	Available bool
}

// Overlaps reports whether [start,end) intersects any busy interval.
// Half-open semantics: [start,end) overlaps [b.Start,b.End) iff
// start < b.End && b.Start < end.
func Overlaps(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

// DaySlots returns every full-length slot in [open, close) at steps of
// slotDuration, flagged available unless it intersects a busy interval.
// Slots whose start is already in the past are excluded entirely, not merely
// flagged. A final slot that would not fit before close is discarded.
//
// All times are expected to be UTC instants.
func DaySlots(open, close time.Time, slotDuration time.Duration, busy []Interval, now time.Time) []Slot {
	if slotDuration <= 0 {
		return nil
	}
	if !close.After(open) {
		return nil
	}

	var slots []Slot
	for t := open; !t.Add(slotDuration).After(close); t = t.Add(slotDuration) {
		if t.Before(now) {
			continue
		}
		slots = append(slots, Slot{
			Start:     t,
			Available: !Overlaps(t, t.Add(slotDuration), busy),
		})
	}
	return slots
}

// ByHour groups an ordered slot sequence into hour buckets keyed "09", "10",
// preserving order within each bucket. Bucket keys are UTC hours.
func ByHour(slots []Slot) map[string][]Slot {
	if len(slots) == 0 {
		return map[string][]Slot{}
	}
	buckets := make(map[string][]Slot)
	for _, s := range slots {
		key := fmt.Sprintf("%02d", s.Start.UTC().Hour())
		buckets[key] = append(buckets[key], s)
	}
	return buckets
}

// WindowOn resolves a working-hours window (minutes from midnight) onto a
// calendar day. The day's year/month/day are taken in UTC.
func WindowOn(day time.Time, openMinute, closeMinute int) (time.Time, time.Time) {
	day = day.UTC()
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(time.Duration(openMinute) * time.Minute),
		midnight.Add(time.Duration(closeMinute) * time.Minute)
}
