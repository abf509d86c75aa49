package attendance

import "errors"

// Attendance gating errors
var (
	// Check-in errors
	ErrAlreadyCheckedIn     = errors.New("you have already checked in today")
	ErrOutsideAllowedRadius = errors.New("you are outside the allowed radius")
	ErrLocationUnknown      = errors.New("your current location could not be determined")
	ErrTooEarlyToCheckIn    = errors.New("too early to check in")
	ErrCheckInWindowClosed  = errors.New("check-in window has closed")
	ErrSelfieRequired       = errors.New("a check-in selfie is required")

	// Check-out errors
	ErrNotCheckedIn       = errors.New("you have not checked in yet")
	ErrAlreadyCheckedOut  = errors.New("you have already checked out")
	ErrTooEarlyToCheckOut = errors.New("too early to check out")

	// Break errors
	ErrAlreadyOnBreak = errors.New("you are already on a break")
	ErrNotOnBreak     = errors.New("you are not currently on a break")

	// General errors
	ErrActionInFlight = errors.New("another attendance action is still in progress")
	ErrStillLoading   = errors.New("attendance data is still loading")
	ErrBackend        = errors.New("attendance backend rejected the request")
)
