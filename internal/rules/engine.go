package rules

import (
	"fmt"
	"strings"
	"time"

	"oddeven-service/internal/domain/capture"
)

const dateLayout = "2006-01-02"

// Schedule is an immutable snapshot of the odd-even calendar: a
// day-of-week default plus an exception list that overrides matching
// dates to no restriction. Build a fresh snapshot after every
// configuration change; evaluation never mutates it.
type Schedule struct {
	version    string
	weekdays   map[time.Weekday]capture.RestrictionClass
	exceptions map[string]struct{}
}

// NewSchedule builds a snapshot from a weekday→class table (keys are
// lowercase English weekday names, values "odd"/"even"/"none") and a list
// of exception dates in YYYY-MM-DD form.
func NewSchedule(version string, weekdays map[string]string, exceptions []string) (*Schedule, error) {
	s := &Schedule{
		version:    version,
		weekdays:   make(map[time.Weekday]capture.RestrictionClass, 7),
		exceptions: make(map[string]struct{}, len(exceptions)),
	}

	for name, class := range weekdays {
		wd, err := parseWeekday(name)
		if err != nil {
			return nil, err
		}
		rc, err := parseClass(class)
		if err != nil {
			return nil, fmt.Errorf("weekday %s: %w", name, err)
		}
		s.weekdays[wd] = rc
	}

	for _, d := range exceptions {
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, fmt.Errorf("invalid exception date %q: %w", d, err)
		}
		s.exceptions[d] = struct{}{}
	}

	return s, nil
}

func (s *Schedule) Version() string { return s.version }

// RestrictedClassFor returns which parity class is restricted on the given
// date. Exception dates are always unrestricted; weekdays missing from the
// table default to unrestricted as well.
func (s *Schedule) RestrictedClassFor(date time.Time) capture.RestrictionClass {
	if _, ok := s.exceptions[date.Format(dateLayout)]; ok {
		return capture.NoRestriction
	}
	if rc, ok := s.weekdays[date.Weekday()]; ok {
		return rc
	}
	return capture.NoRestriction
}

// Evaluate decides the verdict for a parity against the class restricted
// that day. An unreadable plate can never be judged a violation, whatever
// the restriction.
func Evaluate(parity capture.Parity, restricted capture.RestrictionClass) capture.Verdict {
	if parity == capture.ParityIndeterminate {
		return capture.VerdictUndetermined
	}
	switch restricted {
	case capture.OddRestricted:
		if parity == capture.ParityOdd {
			return capture.VerdictViolation
		}
	case capture.EvenRestricted:
		if parity == capture.ParityEven {
			return capture.VerdictViolation
		}
	}
	return capture.VerdictCompliant
}

func parseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

func parseClass(class string) (capture.RestrictionClass, error) {
	switch strings.ToLower(strings.TrimSpace(class)) {
	case "odd":
		return capture.OddRestricted, nil
	case "even":
		return capture.EvenRestricted, nil
	case "none", "":
		return capture.NoRestriction, nil
	}
	return "", fmt.Errorf("unknown restriction class %q", class)
}
