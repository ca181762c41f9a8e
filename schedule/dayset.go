package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DaySet is a set of weekdays, one bit per time.Weekday. The zero value is the
// empty set, which is legal and means "never". Serialised as a list of
// lowercase day names in Monday-first order.
type DaySet uint8

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// canonicalOrder is Monday-first, matching the original schedule convention.
var canonicalOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

var shortName = map[time.Weekday]string{
	time.Sunday: "sun", time.Monday: "mon", time.Tuesday: "tue",
	time.Wednesday: "wed", time.Thursday: "thu", time.Friday: "fri",
	time.Saturday: "sat",
}

// Days builds a DaySet from the given weekdays.
func Days(ds ...time.Weekday) DaySet {
	var s DaySet
	for _, d := range ds {
		s |= 1 << uint(d)
	}
	return s
}

// AllDays is the full week.
func AllDays() DaySet { return Days(canonicalOrder...) }

// ParseDays parses a list of day names ("mon" or "monday", case-insensitive).
func ParseDays(names []string) (DaySet, error) {
	var s DaySet
	for _, n := range names {
		d, ok := dayNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return 0, fmt.Errorf("unknown weekday %q", n)
		}
		s |= 1 << uint(d)
	}
	return s, nil
}

// Has reports whether d is in the set.
func (s DaySet) Has(d time.Weekday) bool { return s&(1<<uint(d)) != 0 }

// Empty reports whether the set contains no days.
func (s DaySet) Empty() bool { return s == 0 }

// Count returns the number of active days.
func (s DaySet) Count() int {
	n := 0
	for _, d := range canonicalOrder {
		if s.Has(d) {
			n++
		}
	}
	return n
}

// Names returns the short day names in Monday-first order.
func (s DaySet) Names() []string {
	names := make([]string, 0, 7)
	for _, d := range canonicalOrder {
		if s.Has(d) {
			names = append(names, shortName[d])
		}
	}
	return names
}

func (s DaySet) String() string { return strings.Join(s.Names(), ",") }

// MarshalYAML implements yaml.Marshaler.
func (s DaySet) MarshalYAML() (any, error) { return s.Names(), nil }

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *DaySet) UnmarshalYAML(value *yaml.Node) error {
	var names []string
	if err := value.Decode(&names); err != nil {
		return err
	}
	parsed, err := ParseDays(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s DaySet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Names()) }

// UnmarshalJSON implements json.Unmarshaler.
func (s *DaySet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParseDays(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
