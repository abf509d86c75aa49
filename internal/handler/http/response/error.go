package response

import (
	"errors"
	"net/http"

	"github.com/pharmacore-hq/attendance-gate-go/internal/backend"
	"github.com/pharmacore-hq/attendance-gate-go/internal/domain/attendance"
	"github.com/pharmacore-hq/attendance-gate-go/internal/pkg/validator"
)

// HandleError maps gate and backend errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Backend rejections carry their own status and wording
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		Upstream(w, apiErr.StatusCode, apiErr.Message)
		return
	}

	// Gate denials
	switch {
	case errors.Is(err, attendance.ErrStillLoading):
		ServiceUnavailable(w, err.Error())
	case errors.Is(err, attendance.ErrActionInFlight):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrAlreadyCheckedIn),
		errors.Is(err, attendance.ErrAlreadyCheckedOut),
		errors.Is(err, attendance.ErrNotCheckedIn),
		errors.Is(err, attendance.ErrAlreadyOnBreak),
		errors.Is(err, attendance.ErrNotOnBreak):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrOutsideAllowedRadius),
		errors.Is(err, attendance.ErrLocationUnknown),
		errors.Is(err, attendance.ErrTooEarlyToCheckIn),
		errors.Is(err, attendance.ErrCheckInWindowClosed),
		errors.Is(err, attendance.ErrTooEarlyToCheckOut),
		errors.Is(err, attendance.ErrSelfieRequired):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
