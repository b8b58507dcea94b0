package responder

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Weekday names a day of the availability grid.
type Weekday string

// Days of the week, in grid order.
const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// HoursPerDay is the number of hourly slots of a day.
const HoursPerDay = 24

// Weekdays lists all days in grid order.
//
//nolint:gochecknoglobals // Read-only table.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var (
	// ErrUnknownDay is returned for a day outside Weekdays.
	ErrUnknownDay = errors.New("unknown weekday")
	// ErrHourOutOfRange is returned for an hour outside [0, 23].
	ErrHourOutOfRange = errors.New("hour out of range")
	// ErrIncompleteGrid is returned when decoded data misses days or hours.
	ErrIncompleteGrid = errors.New("availability grid must have 7 days of 24 hours")
)

// ParseWeekday accepts a day name in any case.
func ParseWeekday(s string) (Weekday, error) {
	day := Weekday(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := dayIndex(day); !ok {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownDay)
	}

	return day, nil
}

// Availability is a dense 7×24 grid of hourly flags. The zero value is a
// valid grid with every hour unavailable.
type Availability struct {
	days [7][HoursPerDay]bool
}

// NewAvailability returns an all-false grid.
func NewAvailability() Availability {
	return Availability{}
}

// ToggleHour flips exactly one hour of the day.
func (a *Availability) ToggleHour(day Weekday, hour int) error {
	i, err := slot(day, hour)
	if err != nil {
		return err
	}

	a.days[i][hour] = !a.days[i][hour]

	return nil
}

// SetDay overwrites all 24 hours of the day.
func (a *Availability) SetDay(day Weekday, available bool) error {
	i, ok := dayIndex(day)
	if !ok {
		return fmt.Errorf("%q: %w", day, ErrUnknownDay)
	}

	for h := range a.days[i] {
		a.days[i][h] = available
	}

	return nil
}

// Available reports the flag for one hour.
func (a *Availability) Available(day Weekday, hour int) (bool, error) {
	i, err := slot(day, hour)
	if err != nil {
		return false, err
	}

	return a.days[i][hour], nil
}

// Hours returns a copy of the day's flags.
func (a *Availability) Hours(day Weekday) ([]bool, error) {
	i, ok := dayIndex(day)
	if !ok {
		return nil, fmt.Errorf("%q: %w", day, ErrUnknownDay)
	}

	hours := make([]bool, HoursPerDay)
	copy(hours, a.days[i][:])

	return hours, nil
}

// Map returns the wire form: every day mapped to exactly 24 flags.
func (a *Availability) Map() map[Weekday][]bool {
	result := make(map[Weekday][]bool, len(Weekdays))
	for i, day := range Weekdays {
		hours := make([]bool, HoursPerDay)
		copy(hours, a.days[i][:])
		result[day] = hours
	}

	return result
}

// FromMap builds a grid from the wire form, rejecting missing days, unknown
// days and rows that are not exactly 24 long.
func FromMap(m map[Weekday][]bool) (Availability, error) {
	var a Availability

	if len(m) != len(Weekdays) {
		return a, fmt.Errorf("got %d days: %w", len(m), ErrIncompleteGrid)
	}

	for day, hours := range m {
		i, ok := dayIndex(day)
		if !ok {
			return a, fmt.Errorf("%q: %w", day, ErrUnknownDay)
		}

		if len(hours) != HoursPerDay {
			return a, fmt.Errorf("%s has %d hours: %w", day, len(hours), ErrIncompleteGrid)
		}

		copy(a.days[i][:], hours)
	}

	return a, nil
}

// MarshalJSON encodes the grid as {"monday": [24 flags], ...}.
func (a Availability) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Map())
}

// UnmarshalJSON decodes and validates the grid.
func (a *Availability) UnmarshalJSON(data []byte) error {
	var m map[Weekday][]bool
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	decoded, err := FromMap(m)
	if err != nil {
		return err
	}

	*a = decoded

	return nil
}

// MarshalYAML encodes the grid for the on-disk draft.
func (a Availability) MarshalYAML() (any, error) {
	return a.Map(), nil
}

// UnmarshalYAML decodes and validates the grid from the on-disk draft.
func (a *Availability) UnmarshalYAML(node *yaml.Node) error {
	var m map[Weekday][]bool
	if err := node.Decode(&m); err != nil {
		return err
	}

	decoded, err := FromMap(m)
	if err != nil {
		return err
	}

	*a = decoded

	return nil
}

// dayIndex returns the grid row of the day.
func dayIndex(day Weekday) (int, bool) {
	for i, d := range Weekdays {
		if d == day {
			return i, true
		}
	}

	return 0, false
}

// slot validates a (day, hour) pair and returns the row index.
func slot(day Weekday, hour int) (int, error) {
	i, ok := dayIndex(day)
	if !ok {
		return 0, fmt.Errorf("%q: %w", day, ErrUnknownDay)
	}

	if hour < 0 || hour >= HoursPerDay {
		return 0, fmt.Errorf("%d: %w", hour, ErrHourOutOfRange)
	}

	return i, nil
}
