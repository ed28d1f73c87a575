package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar day counted from 1970-01-01. It carries no time of day and no zone,
// so two instants in the same local day map to the same Day.
type Day int

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Day(midnight.Unix() / 86400)
}

// Today returns the calendar day of now in loc. A nil loc means UTC.
func Today(now time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return DayOf(now.In(loc))
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(raw string) (Day, error) {
	t, err := time.Parse(dayLayout, raw)
	if err != nil {
		return 0, fmt.Errorf("parse day %q: %w", raw, err)
	}
	return DayOf(t), nil
}

// Prev returns the day before d.
func (d Day) Prev() Day { return d - 1 }

// AddDays shifts d by n days.
func (d Day) AddDays(n int) Day { return d + Day(n) }

// Time returns midnight UTC of d.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// YearDay returns the 1-based day of the year.
func (d Day) YearDay() int {
	return d.Time().YearDay()
}

func (d Day) String() string {
	return d.Time().Format(dayLayout)
}

func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDay(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML keeps catalog files readable.
func (d Day) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Day) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseDay(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DayPtr is a helper for optional day fields.
func DayPtr(d Day) *Day {
	return &d
}
