package availability

import (
	"testing"
	"time"
)

func day(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
}

func TestDaySlots_FullDay(t *testing.T) {
	d := day(t)
	open := d.Add(9 * time.Hour)
	close := d.Add(17 * time.Hour)

	slots := DaySlots(open, close, 30*time.Minute, nil, d)
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots for 09:00-17:00 at 30m, got %d", len(slots))
	}
	if !slots[0].Start.Equal(open) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Start.Format(time.RFC3339))
	}
	if !slots[15].Start.Equal(d.Add(16*time.Hour + 30*time.Minute)) {
		t.Fatalf("expected last slot 16:30, got %s", slots[15].Start.Format(time.RFC3339))
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("expected all slots available, %s is not", s.Start.Format(time.RFC3339))
		}
	}
}

func TestDaySlots_BusyIntervalFlagsSlot(t *testing.T) {
	d := day(t)
	open := d.Add(9 * time.Hour)
	close := d.Add(12 * time.Hour)
	busy := []Interval{
		{Start: d.Add(10 * time.Hour), End: d.Add(10*time.Hour + 30*time.Minute)},
	}

	slots := DaySlots(open, close, 30*time.Minute, busy, d)
	if len(slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(slots))
	}
	for _, s := range slots {
		wantAvailable := !s.Start.Equal(d.Add(10 * time.Hour))
		if s.Available != wantAvailable {
			t.Fatalf("slot %s: available=%v, want %v", s.Start.Format(time.RFC3339), s.Available, wantAvailable)
		}
	}
}

func TestDaySlots_AdjacentBookingDoesNotBlock(t *testing.T) {
	d := day(t)
	open := d.Add(9 * time.Hour)
	close := d.Add(10 * time.Hour)
	// Booking ends exactly when the 09:30 slot starts. Half-open intervals,
	// so 09:30 stays free.
	busy := []Interval{
		{Start: d.Add(9 * time.Hour), End: d.Add(9*time.Hour + 30*time.Minute)},
	}

	slots := DaySlots(open, close, 30*time.Minute, busy, d)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].Available {
		t.Fatal("09:00 should be taken")
	}
	if !slots[1].Available {
		t.Fatal("09:30 should be free")
	}
}

func TestDaySlots_SkipsPastStarts(t *testing.T) {
	d := day(t)
	open := d.Add(9 * time.Hour)
	close := d.Add(11 * time.Hour)
	now := d.Add(9*time.Hour + 45*time.Minute)

	slots := DaySlots(open, close, 30*time.Minute, nil, now)
	if len(slots) != 2 {
		t.Fatalf("expected 2 future slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(d.Add(10 * time.Hour)) {
		t.Fatalf("expected first slot 10:00, got %s", slots[0].Start.Format(time.RFC3339))
	}
}

func TestDaySlots_DiscardsTruncatedTail(t *testing.T) {
	d := day(t)
	open := d.Add(9 * time.Hour)
	close := d.Add(9*time.Hour + 50*time.Minute)

	slots := DaySlots(open, close, 30*time.Minute, nil, d)
	// 09:30 would run until 10:00, past close at 09:50.
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
}

func TestDaySlots_DegenerateInputs(t *testing.T) {
	d := day(t)
	if got := DaySlots(d.Add(9*time.Hour), d.Add(9*time.Hour), 30*time.Minute, nil, d); got != nil {
		t.Fatalf("empty window should yield no slots, got %d", len(got))
	}
	if got := DaySlots(d.Add(9*time.Hour), d.Add(10*time.Hour), 0, nil, d); got != nil {
		t.Fatalf("zero duration should yield no slots, got %d", len(got))
	}
}

func TestOverlaps(t *testing.T) {
	d := day(t)
	busy := []Interval{
		{Start: d.Add(10 * time.Hour), End: d.Add(11 * time.Hour)},
	}

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"before", d.Add(9 * time.Hour), d.Add(10 * time.Hour), false},
		{"after", d.Add(11 * time.Hour), d.Add(12 * time.Hour), false},
		{"inside", d.Add(10*time.Hour + 15*time.Minute), d.Add(10*time.Hour + 45*time.Minute), true},
		{"spanning", d.Add(9 * time.Hour), d.Add(12 * time.Hour), true},
		{"left edge", d.Add(9*time.Hour + 30*time.Minute), d.Add(10*time.Hour + 30*time.Minute), true},
	}
	for _, tc := range cases {
		if got := Overlaps(tc.start, tc.end, busy); got != tc.want {
			t.Errorf("%s: Overlaps=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestByHour(t *testing.T) {
	d := day(t)
	slots := DaySlots(d.Add(9*time.Hour), d.Add(11*time.Hour), 30*time.Minute, nil, d)

	buckets := ByHour(slots)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 hour buckets, got %d", len(buckets))
	}
	if len(buckets["09"]) != 2 || len(buckets["10"]) != 2 {
		t.Fatalf("expected 2 slots per bucket, got %d and %d", len(buckets["09"]), len(buckets["10"]))
	}
	if !buckets["09"][0].Start.Before(buckets["09"][1].Start) {
		t.Fatal("bucket order should follow slot order")
	}

	if got := ByHour(nil); got == nil || len(got) != 0 {
		t.Fatal("nil slots should yield an empty, non-nil map")
	}
}

func TestWindowOn(t *testing.T) {
	d := time.Date(2026, 9, 2, 13, 45, 0, 0, time.UTC)
	open, close := WindowOn(d, 9*60, 17*60+30)
	if !open.Equal(time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("open = %s", open.Format(time.RFC3339))
	}
	if !close.Equal(time.Date(2026, 9, 2, 17, 30, 0, 0, time.UTC)) {
		t.Fatalf("close = %s", close.Format(time.RFC3339))
	}
}
