package timegate

import (
	"time"

	"github.com/pharmacore-hq/attendance-gate-go/internal/domain/attendance"
)

const timeOfDayLayout = "15:04:05"

// Flags are the three time-window gate conditions derived from a shift
// contract and the wall clock.
type Flags struct {
	BeforeCheckIn  bool // now is strictly earlier than today's expected check-in
	AfterCheckOut  bool // now is strictly later than today's expected check-out
	BeforeCheckOut bool // now is strictly earlier than today's expected check-out
}

// Evaluate compares now against today's expected check-in and check-out
// instants. The time-of-day fields are anchored to now's calendar date in
// now's location; comparisons are strict, so the exact expected instant is
// not blocked.
//
// A nil contract, or one whose check-in or check-out field is missing or
// unparsable, yields all-false flags: absence of a contract must never lock
// a user out. Windows where the check-out time-of-day sorts before the
// check-in (overnight shifts) are evaluated with the same plain comparison
// against today's date; no midnight spanning is applied.
func Evaluate(timings *attendance.ExpectedTimings, now time.Time) Flags {
	if timings == nil {
		return Flags{}
	}

	checkIn, err := atTimeOfDay(timings.ExpectedCheckIn, now)
	if err != nil {
		return Flags{}
	}
	checkOut, err := atTimeOfDay(timings.ExpectedCheckOut, now)
	if err != nil {
		return Flags{}
	}

	return Flags{
		BeforeCheckIn:  now.Before(checkIn),
		AfterCheckOut:  now.After(checkOut),
		BeforeCheckOut: now.Before(checkOut),
	}
}

// ExpectedCheckInAt resolves today's expected check-in instant, or false
// when no contract (or no parsable check-in time) is configured. The
// reminder scheduler keys off this.
func ExpectedCheckInAt(timings *attendance.ExpectedTimings, now time.Time) (time.Time, bool) {
	if timings == nil {
		return time.Time{}, false
	}
	at, err := atTimeOfDay(timings.ExpectedCheckIn, now)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

// FormatTimeOfDay renders an "15:04:05" contract field as HH:MM for user
// facing messages. Unparsable input is returned unchanged.
func FormatTimeOfDay(timeOfDay string) string {
	t, err := time.Parse(timeOfDayLayout, timeOfDay)
	if err != nil {
		return timeOfDay
	}
	return t.Format("15:04")
}

func atTimeOfDay(timeOfDay string, now time.Time) (time.Time, error) {
	t, err := time.Parse(timeOfDayLayout, timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(
		now.Year(), now.Month(), now.Day(),
		t.Hour(), t.Minute(), t.Second(), 0,
		now.Location(),
	), nil
}
