package gate

import (
	"fmt"
	"time"
)

// CalculateDuration returns the time worked on a record: a running duration
// against now while checkOut is unset, fixed once it is set. A nil checkIn
// yields zero.
func CalculateDuration(checkIn, checkOut *time.Time, now time.Time) time.Duration {
	if checkIn == nil {
		return 0
	}
	end := now
	if checkOut != nil {
		end = *checkOut
	}
	d := end.Sub(*checkIn)
	if d < 0 {
		return 0
	}
	return d
}

// FormatDuration renders a duration as H:MM:SS for the UI.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
