package schedule

import (
	"testing"
	"time"
)

// 2026-03-02 is a Monday.
func monday(hhmm string, sec int) time.Time {
	tod := MustTimeOfDay(hhmm)
	return time.Date(2026, 3, 2, tod.Hour(), tod.Minute(), sec, 0, time.UTC)
}

func workdayPlan() Plan {
	return Plan{
		Start:    MustTimeOfDay("08:00"),
		End:      MustTimeOfDay("18:00"),
		Days:     Days(time.Monday),
		Interval: 60 * time.Second,
	}
}

func TestIsDue_WindowScenario(t *testing.T) {
	p := workdayPlan()

	cases := []struct {
		name string
		last time.Time
		now  time.Time
		want bool
	}{
		{"before window", time.Time{}, monday("07:59", 0), false},
		{"window opens inclusive", time.Time{}, monday("08:00", 0), true},
		{"window closes inclusive", time.Time{}, monday("18:00", 0), true},
		{"end minute still inside", time.Time{}, monday("18:00", 59), true},
		{"after window", time.Time{}, monday("18:01", 0), false},
		{"interval not elapsed", monday("08:00", 0), monday("08:00", 30), false},
		{"interval elapsed", monday("08:00", 0), monday("08:01", 0), true},
		{"inactive day", time.Time{}, monday("12:00", 0).AddDate(0, 0, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDue(p, tc.last, tc.now); got != tc.want {
				t.Fatalf("IsDue(%v, %v) = %v, want %v", tc.last, tc.now, got, tc.want)
			}
		})
	}
}

func TestIsDue_EmptyDaySet(t *testing.T) {
	p := workdayPlan()
	p.Days = 0

	if IsDue(p, time.Time{}, monday("12:00", 0)) {
		t.Fatal("empty day set must never be due")
	}
}

func TestNextEligible(t *testing.T) {
	p := workdayPlan()

	t.Run("within window returns now", func(t *testing.T) {
		now := monday("12:30", 17)
		next, ok := NextEligible(p, now)
		if !ok || !next.Equal(now) {
			t.Fatalf("got (%v, %v), want (%v, true)", next, ok, now)
		}
	})

	t.Run("before window returns today's start", func(t *testing.T) {
		next, ok := NextEligible(p, monday("06:15", 0))
		if !ok || !next.Equal(monday("08:00", 0)) {
			t.Fatalf("got (%v, %v), want monday 08:00", next, ok)
		}
	})

	t.Run("after window rolls to next active day", func(t *testing.T) {
		next, ok := NextEligible(p, monday("19:00", 0))
		want := monday("08:00", 0).AddDate(0, 0, 7)
		if !ok || !next.Equal(want) {
			t.Fatalf("got (%v, %v), want %v", next, ok, want)
		}
	})

	t.Run("empty day set is never", func(t *testing.T) {
		p := p
		p.Days = 0
		if _, ok := NextEligible(p, monday("12:00", 0)); ok {
			t.Fatal("expected never for empty day set")
		}
	})
}

func TestPlanValidate(t *testing.T) {
	p := workdayPlan()
	if err := p.Validate(); err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}

	bad := p
	bad.Start, bad.End = bad.End, bad.Start
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for inverted window")
	}

	bad = p
	bad.Interval = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", 0, false},
		{"08:00", 480, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tc.in, got, tc.want)
		}
		if got.String() != tc.in {
			t.Errorf("round-trip %q -> %q", tc.in, got.String())
		}
	}
}

func TestParseDays(t *testing.T) {
	s, err := ParseDays([]string{"Mon", "wednesday", "FRI"})
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []time.Weekday{time.Monday, time.Wednesday, time.Friday} {
		if !s.Has(d) {
			t.Errorf("expected %v in set", d)
		}
	}
	if s.Has(time.Sunday) {
		t.Error("sunday should not be in set")
	}
	if got := s.String(); got != "mon,wed,fri" {
		t.Errorf("canonical order: got %q", got)
	}

	if _, err := ParseDays([]string{"funday"}); err == nil {
		t.Fatal("expected error for unknown day name")
	}
}

func TestNextDue(t *testing.T) {
	p := workdayPlan()

	cases := []struct {
		name string
		last time.Time
		now  time.Time
		want time.Time
		ok   bool
	}{
		{"no prior capture, in window", time.Time{}, monday("12:00", 0), monday("12:00", 0), true},
		{"gate before window open", monday("17:59", 0), monday("18:02", 0), monday("08:00", 0).AddDate(0, 0, 7), true},
		{"gate inside window", monday("12:00", 0), monday("12:00", 30), monday("12:01", 0), true},
		{"gate already passed", monday("11:00", 0), monday("12:00", 0), monday("12:00", 0), true},
		{"gate spills past close", monday("18:00", 30), monday("18:00", 45), monday("08:00", 0).AddDate(0, 0, 7), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NextDue(p, tc.last, tc.now)
			if ok != tc.ok {
				t.Fatalf("NextDue ok = %v, want %v", ok, tc.ok)
			}
			if ok && !got.Equal(tc.want) {
				t.Fatalf("NextDue = %v, want %v", got, tc.want)
			}
		})
	}

	if _, ok := NextDue(Plan{Start: p.Start, End: p.End, Interval: p.Interval}, time.Time{}, monday("12:00", 0)); ok {
		t.Fatal("NextDue with empty day set should report never")
	}
}
