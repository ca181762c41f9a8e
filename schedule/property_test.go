package schedule

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genInstant produces instants across a two-week span so every weekday and
// every minute of day gets exercised.
func genInstant() gopter.Gen {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return gen.Int64Range(0, 14*24*3600-1).Map(func(s int64) time.Time {
		return base.Add(time.Duration(s) * time.Second)
	})
}

func genPlan() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 1438),            // start minute
		gen.IntRange(1, 1439),            // window length in minutes, keeps start < end
		gen.UInt8Range(0, 127),           // day bits
		gen.Int64Range(1, 3600),          // interval seconds
	).Map(func(vs []any) Plan {
		start := vs[0].(int)
		end := start + vs[1].(int)
		if end > 1439 {
			end = 1439
		}
		if end <= start {
			start = end - 1
		}
		return Plan{
			Start:    TimeOfDay(start),
			End:      TimeOfDay(end),
			Days:     DaySet(vs[2].(uint8)),
			Interval: time.Duration(vs[3].(int64)) * time.Second,
		}
	})
}

func TestProperty_NeverDueOutsideWindow(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("is_due is false outside the window or on inactive days", prop.ForAll(
		func(p Plan, now time.Time) bool {
			if InWindow(p, now) {
				return true // only asserting the negative case
			}
			return !IsDue(p, time.Time{}, now)
		},
		genPlan(),
		genInstant(),
	))

	properties.TestingRun(t)
}

func TestProperty_IntervalGateBlocksDoubleCapture(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("no second capture within the interval", prop.ForAll(
		func(p Plan, t1 time.Time, gapSec int64) bool {
			if p.Interval <= time.Second {
				return true
			}
			gap := (time.Duration(gapSec) * time.Second) % p.Interval
			if gap <= 0 {
				gap = p.Interval - time.Second
			}
			t2 := t1.Add(gap)
			return !IsDue(p, t1, t2)
		},
		genPlan(),
		genInstant(),
		gen.Int64Range(1, 3600),
	))

	properties.TestingRun(t)
}

func TestProperty_NextEligibleNeverInPast(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("next_eligible >= now and finite for non-empty day sets", prop.ForAll(
		func(p Plan, now time.Time) bool {
			next, ok := NextEligible(p, now)
			if p.Days.Empty() {
				return !ok
			}
			if !ok {
				return false
			}
			if next.Before(now) {
				return false
			}
			// The returned instant must itself satisfy the window constraint.
			return InWindow(p, next)
		},
		genPlan(),
		genInstant(),
	))

	properties.TestingRun(t)
}
