package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Weekday enumerates the teaching days. Weekend days are intentionally
// absent: nothing in the timetable domain is scheduled on them.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
)

// Weekdays lists the teaching days in column order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// Valid reports whether the value is one of the five teaching days.
func (w Weekday) Valid() bool {
	switch w {
	case Monday, Tuesday, Wednesday, Thursday, Friday:
		return true
	}
	return false
}

// Column returns the timetable column index (Monday = 0), or -1 for an
// unknown value.
func (w Weekday) Column() int {
	for i, d := range Weekdays {
		if d == w {
			return i
		}
	}
	return -1
}

// WeekdayOf maps a calendar date to its Weekday. The second return value is
// false for Saturday and Sunday.
func WeekdayOf(date time.Time) (Weekday, bool) {
	switch date.Weekday() {
	case time.Monday:
		return Monday, true
	case time.Tuesday:
		return Tuesday, true
	case time.Wednesday:
		return Wednesday, true
	case time.Thursday:
		return Thursday, true
	case time.Friday:
		return Friday, true
	}
	return "", false
}

// ClockTime is a minute-precision time of day stored as minutes since
// midnight. Sub-minute precision is discarded at the boundary, so every
// comparison in the engine happens on whole minutes.
type ClockTime int

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("parse clock time %q: out of range", s)
	}
	return ClockTime(h*60 + m), nil
}

// String formats the time as "HH:MM".
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON renders the time as an "HH:MM" string.
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts an "HH:MM" string.
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeInterval is a weekly-recurring [Start, End) block on a teaching day.
// Invariant: Start < End.
type TimeInterval struct {
	Weekday Weekday   `db:"weekday" json:"weekday"`
	Start   ClockTime `db:"start_min" json:"start"`
	End     ClockTime `db:"end_min" json:"end"`
}

// Valid reports whether the interval satisfies its invariants.
func (iv TimeInterval) Valid() bool {
	return iv.Weekday.Valid() && iv.Start < iv.End
}

// Overlaps applies the half-open overlap rule: two intervals overlap iff
// they fall on the same weekday and a.Start < b.End && b.Start < a.End.
// Touching intervals (a.End == b.Start) never overlap.
func (iv TimeInterval) Overlaps(other TimeInterval) bool {
	return iv.Weekday == other.Weekday && iv.Start < other.End && other.Start < iv.End
}

// Label renders the interval span as "HH:MM-HH:MM".
func (iv TimeInterval) Label() string {
	return iv.Start.String() + "-" + iv.End.String()
}

// DatedInterval is a one-off [Start, End) block on a calendar date.
// Invariant: Start < End.
type DatedInterval struct {
	Date  time.Time `db:"res_date" json:"date"`
	Start ClockTime `db:"start_min" json:"start"`
	End   ClockTime `db:"end_min" json:"end"`
}

// Valid reports whether the interval satisfies its invariants.
func (iv DatedInterval) Valid() bool {
	return !iv.Date.IsZero() && iv.Start < iv.End
}

// SameDate reports whether both intervals fall on the same calendar date.
func (iv DatedInterval) SameDate(other DatedInterval) bool {
	ay, am, ad := iv.Date.Date()
	by, bm, bd := other.Date.Date()
	return ay == by && am == bm && ad == bd
}

// Overlaps applies the half-open overlap rule on dated intervals.
func (iv DatedInterval) Overlaps(other DatedInterval) bool {
	return iv.SameDate(other) && iv.Start < other.End && other.Start < iv.End
}

// OverlapsRecurring checks a dated interval against a weekly block: they
// overlap iff the date falls on the block's weekday and the spans overlap.
func (iv DatedInterval) OverlapsRecurring(block TimeInterval) bool {
	day, ok := WeekdayOf(iv.Date)
	if !ok || day != block.Weekday {
		return false
	}
	return iv.Start < block.End && block.Start < iv.End
}
