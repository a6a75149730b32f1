// README: Time ledger: minute cursor with break snapping and 12-hour display timestamps.
package route

import (
	"fmt"
	"math"
	"time"
)

const displayLayout = "3:04 PM"

// Clock is the shift cursor. Hour may reach 24 at the end of a shift.
type Clock struct {
	Hour   int
	Minute int
}

func At(hour int) Clock {
	return Clock{Hour: hour}
}

// Advance moves the cursor forward. Every carry into a new hour is checked
// against the break window; landing inside it snaps to w.End:00 and drops
// the remaining minutes.
func (c Clock) Advance(minutes int, w Window) Clock {
	c.Minute += max(0, minutes)
	for c.Minute >= 60 {
		c.Minute -= 60
		c.Hour++
		if w.Contains(c.Hour) {
			return At(w.End)
		}
	}
	return c
}

// SkipBreak jumps to the end of the break when the cursor is inside it.
func (c Clock) SkipBreak(w Window) (Clock, bool) {
	if w.Contains(c.Hour) {
		return At(w.End), true
	}
	return c, false
}

func (c Clock) Before(hour int) bool {
	return c.Hour < hour
}

func (c Clock) MinuteOfDay() int {
	return (c.Hour%24)*60 + c.Minute
}

func (c Clock) String() string {
	return time.Date(2000, 1, 1, c.Hour%24, c.Minute, 0, 0, time.UTC).Format(displayLayout)
}

// ParseClock reads a display timestamp such as "1:05 PM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(displayLayout, s)
	if err != nil {
		return Clock{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// TravelMinutes converts a travel duration to whole minutes, rounding up.
func TravelMinutes(seconds float64) int {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return int(math.Ceil(seconds / 60))
}

// TotalDrivingTime is the span between the first and last event in hours,
// rounded to one decimal. A last event earlier than the first wrapped past
// midnight.
func TotalDrivingTime(locations []Location) (float64, error) {
	if len(locations) < 2 {
		return 0, nil
	}
	first, err := ParseClock(locations[0].Time)
	if err != nil {
		return 0, err
	}
	last, err := ParseClock(locations[len(locations)-1].Time)
	if err != nil {
		return 0, err
	}
	diff := last.MinuteOfDay() - first.MinuteOfDay()
	if diff < 0 {
		diff += 24 * 60
	}
	return math.Round(float64(diff)/60*10) / 10, nil
}
