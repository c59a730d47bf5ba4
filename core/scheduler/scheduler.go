package scheduler

import (
	"fmt"
	"time"

	"github.com/kilianp07/shuttlecast/core/model"
)

// TimeOfDay is a wall clock time expressed in minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// MustTimeOfDay is ParseTimeOfDay for constants.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On returns the instant of t on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, date.Location())
}

// Window bounds the departures of a service day.
type Window struct {
	Start    TimeOfDay
	End      TimeOfDay
	Interval time.Duration
}

// DefaultWindow is the timetable of the airport line: every 15 minutes from
// 06:00 to 23:30.
func DefaultWindow() Window {
	return Window{Start: MustTimeOfDay("06:00"), End: MustTimeOfDay("23:30"), Interval: 15 * time.Minute}
}

// Validate rejects inverted windows and non-positive intervals.
func (w Window) Validate() error {
	if w.Interval <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("slot interval must be positive, got %s", w.Interval)}
	}
	if w.Interval%time.Minute != 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("slot interval must be whole minutes, got %s", w.Interval)}
	}
	if w.Start > w.End {
		return &ConfigurationError{Reason: fmt.Sprintf("window start %s is after end %s", w.Start, w.End)}
	}
	if w.Start < 0 || w.End >= 24*60 {
		return &ConfigurationError{Reason: fmt.Sprintf("window %s-%s outside a single day", w.Start, w.End)}
	}
	return nil
}

// ConfigurationError reports an unusable slot window.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "slot window: " + e.Reason }

// Generate returns the departure slots of serviceDate: Start, Start+Interval,
// ... up to and including End when it falls on the cadence. Slot times are
// wall clock instants in serviceDate's location. The result only depends on
// its arguments.
func Generate(serviceDate time.Time, w Window) ([]model.DepartureSlot, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	step := int(w.Interval / time.Minute)
	slots := make([]model.DepartureSlot, 0, (int(w.End-w.Start))/step+1)
	var prev time.Time
	for t := w.Start; t <= w.End; t += TimeOfDay(step) {
		ts := t.On(serviceDate)
		// A repeated wall clock hour on a DST change would break ordering.
		if len(slots) > 0 && !ts.After(prev) {
			continue
		}
		slots = append(slots, model.DepartureSlot{Index: len(slots), Time: ts})
		prev = ts
	}
	return slots, nil
}
