package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClock(t *testing.T, s string) ClockTime {
	t.Helper()
	c, err := ParseClockTime(s)
	require.NoError(t, err)
	return c
}

func TestParseClockTime(t *testing.T) {
	c, err := ParseClockTime("08:30")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(510), c)
	assert.Equal(t, "08:30", c.String())

	_, err = ParseClockTime("24:00")
	assert.Error(t, err)
	_, err = ParseClockTime("aa:bb")
	assert.Error(t, err)
}

func TestClockTimeJSONRoundTrip(t *testing.T) {
	payload, err := json.Marshal(ClockTime(605))
	require.NoError(t, err)
	assert.Equal(t, `"10:05"`, string(payload))

	var c ClockTime
	require.NoError(t, json.Unmarshal([]byte(`"21:00"`), &c))
	assert.Equal(t, ClockTime(1260), c)
}

func TestTimeIntervalOverlaps(t *testing.T) {
	base := TimeInterval{Weekday: Monday, Start: mustClock(t, "09:00"), End: mustClock(t, "11:00")}

	cases := []struct {
		name  string
		other TimeInterval
		want  bool
	}{
		{"partial overlap", TimeInterval{Weekday: Monday, Start: mustClock(t, "10:00"), End: mustClock(t, "12:00")}, true},
		{"contained", TimeInterval{Weekday: Monday, Start: mustClock(t, "09:30"), End: mustClock(t, "10:30")}, true},
		{"identical", base, true},
		{"touching end to start", TimeInterval{Weekday: Monday, Start: mustClock(t, "11:00"), End: mustClock(t, "12:00")}, false},
		{"touching start to end", TimeInterval{Weekday: Monday, Start: mustClock(t, "08:00"), End: mustClock(t, "09:00")}, false},
		{"other weekday", TimeInterval{Weekday: Tuesday, Start: mustClock(t, "09:00"), End: mustClock(t, "11:00")}, false},
		{"disjoint", TimeInterval{Weekday: Monday, Start: mustClock(t, "12:00"), End: mustClock(t, "13:00")}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, base.Overlaps(tc.other))
			assert.Equal(t, tc.want, tc.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestTimeIntervalValid(t *testing.T) {
	assert.True(t, TimeInterval{Weekday: Friday, Start: 60, End: 120}.Valid())
	assert.False(t, TimeInterval{Weekday: Friday, Start: 120, End: 120}.Valid())
	assert.False(t, TimeInterval{Weekday: Friday, Start: 180, End: 120}.Valid())
	assert.False(t, TimeInterval{Weekday: "SUNDAY", Start: 60, End: 120}.Valid())
}

func TestWeekdayOf(t *testing.T) {
	mon := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	day, ok := WeekdayOf(mon)
	require.True(t, ok)
	assert.Equal(t, Monday, day)

	sat := time.Date(2025, 3, 22, 0, 0, 0, 0, time.UTC)
	_, ok = WeekdayOf(sat)
	assert.False(t, ok)
}

func TestDatedIntervalOverlaps(t *testing.T) {
	date := time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC)
	a := DatedInterval{Date: date, Start: mustClock(t, "14:00"), End: mustClock(t, "16:00")}

	b := DatedInterval{Date: date, Start: mustClock(t, "15:00"), End: mustClock(t, "17:00")}
	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))

	touching := DatedInterval{Date: date, Start: mustClock(t, "16:00"), End: mustClock(t, "18:00")}
	assert.False(t, a.Overlaps(touching))

	otherDay := DatedInterval{Date: date.AddDate(0, 0, 1), Start: mustClock(t, "14:00"), End: mustClock(t, "16:00")}
	assert.False(t, a.Overlaps(otherDay))
}

func TestDatedIntervalOverlapsRecurring(t *testing.T) {
	tue := time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC)
	candidate := DatedInterval{Date: tue, Start: mustClock(t, "10:00"), End: mustClock(t, "12:00")}

	block := TimeInterval{Weekday: Tuesday, Start: mustClock(t, "11:00"), End: mustClock(t, "13:00")}
	assert.True(t, candidate.OverlapsRecurring(block))

	otherDay := TimeInterval{Weekday: Wednesday, Start: mustClock(t, "11:00"), End: mustClock(t, "13:00")}
	assert.False(t, candidate.OverlapsRecurring(otherDay))

	weekend := DatedInterval{Date: time.Date(2025, 3, 22, 0, 0, 0, 0, time.UTC), Start: mustClock(t, "10:00"), End: mustClock(t, "12:00")}
	assert.False(t, weekend.OverlapsRecurring(block))
}

func TestRecurringCommitmentDisplayCode(t *testing.T) {
	c := RecurringCommitment{CourseID: "CS2901", Section: "A"}
	assert.Equal(t, "CS2901-A", c.DisplayCode())

	noSection := RecurringCommitment{CourseID: "CS2901"}
	assert.Equal(t, "CS2901", noSection.DisplayCode())
}
