// CLAUDE:SUMMARY Pure schedule evaluator — daily window + weekday set + interval gate, no hidden state.
// Package schedule decides whether a capture is due at a given instant.
//
// The evaluator is pure: every function takes the plan and the clock reading
// as arguments and touches no global state, which is what makes the capture
// loop's temporal logic independently testable.
//
// A capture is due when the weekday is active, the time of day falls inside
// the [Start, End] window (both ends inclusive), and at least Interval has
// elapsed since the previous capture.
package schedule

import (
	"fmt"
	"time"
)

// Plan is the schedule-relevant slice of the service configuration.
type Plan struct {
	// Start and End bound the daily capture window. Start must be < End;
	// overnight windows are not supported.
	Start TimeOfDay
	End   TimeOfDay
	// Days is the set of weekdays on which the plan is active. An empty set
	// means the plan never fires.
	Days DaySet
	// Interval is the minimum spacing between consecutive captures.
	Interval time.Duration
}

// At truncates t to minute-of-day precision. Window boundaries are expressed
// as HH:MM, so an End of 18:00 admits every instant up to 18:00:59.
func At(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// InWindow reports whether now falls on an active day inside the daily window.
// It ignores the interval gate.
func InWindow(p Plan, now time.Time) bool {
	if !p.Days.Has(now.Weekday()) {
		return false
	}
	tod := At(now)
	return tod >= p.Start && tod <= p.End
}

// IsDue reports whether a capture should fire at now. last is the time of the
// previous successful capture; the zero time means no capture has happened yet.
func IsDue(p Plan, last, now time.Time) bool {
	if !InWindow(p, now) {
		return false
	}
	return last.IsZero() || now.Sub(last) >= p.Interval
}

// NextEligible returns the earliest instant >= now that satisfies the day and
// window constraints, independent of the interval gate. The second return is
// false when the day set is empty, meaning the plan is never eligible.
func NextEligible(p Plan, now time.Time) (time.Time, bool) {
	if p.Days.Empty() {
		return time.Time{}, false
	}
	if InWindow(p, now) {
		return now, true
	}
	if p.Days.Has(now.Weekday()) && At(now) < p.Start {
		return p.Start.On(now), true
	}
	for i := 1; i <= 7; i++ {
		d := now.AddDate(0, 0, i)
		if p.Days.Has(d.Weekday()) {
			return p.Start.On(d), true
		}
	}
	// Unreachable: a non-empty DaySet matches within 7 days.
	return time.Time{}, false
}

// NextDue returns the earliest instant >= now at which a capture can fire,
// taking both the window constraint and the interval gate into account. The
// second return is false when the plan never fires.
func NextDue(p Plan, last, now time.Time) (time.Time, bool) {
	next, ok := NextEligible(p, now)
	if !ok {
		return time.Time{}, false
	}
	if last.IsZero() {
		return next, true
	}
	gate := last.Add(p.Interval)
	if !gate.After(next) {
		return next, true
	}
	if InWindow(p, gate) {
		return gate, true
	}
	return NextEligible(p, gate)
}

// Validate checks the window ordering and interval positivity.
func (p Plan) Validate() error {
	if p.Start >= p.End {
		return fmt.Errorf("start %s must be before end %s", p.Start, p.End)
	}
	if p.Interval < time.Second {
		return fmt.Errorf("interval %s must be at least one second", p.Interval)
	}
	return nil
}
