package attendance

import (
	"time"

	"github.com/pharmacore-hq/attendance-gate-go/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type CheckInRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SelfieURL string  `json:"selfie_url"`
}

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidLatitude(r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if !validator.IsValidLongitude(r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if validator.IsEmpty(r.SelfieURL) {
		errs = append(errs, validator.ValidationError{
			Field:   "selfie_url",
			Message: "check-in selfie is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// PositionUpdateRequest is one fix from the client's location watch.
type PositionUpdateRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (r *PositionUpdateRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidLatitude(r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if !validator.IsValidLongitude(r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// AmendRequest corrects a recorded check-in or check-out timestamp. This is
// the administrative override path; it bypasses gating and is forwarded
// upstream as-is.
type AmendRequest struct {
	Timestamp string `json:"timestamp"`

	parsed time.Time
}

func (r *AmendRequest) Validate() error {
	var errs validator.ValidationErrors

	t, ok := validator.IsValidDateTime(r.Timestamp)
	if !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "timestamp",
			Message: "timestamp must be a valid ISO8601 datetime",
		})
	}
	r.parsed = t

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ParsedTimestamp returns the timestamp parsed by Validate.
func (r *AmendRequest) ParsedTimestamp() time.Time {
	return r.parsed
}

// GateFlags mirrors the three time-window flags for clients.
type GateFlags struct {
	IsBeforeExpectedCheckIn  bool `json:"is_before_expected_check_in"`
	IsAfterExpectedCheckOut  bool `json:"is_after_expected_check_out"`
	IsBeforeExpectedCheckOut bool `json:"is_before_expected_check_out"`
}

// StatusResponse is the full gate snapshot for one user.
type StatusResponse struct {
	Flags          GateFlags      `json:"flags"`
	WithinGeofence *bool          `json:"within_geofence"` // nil when position unknown
	DistanceMeters *float64       `json:"distance_meters,omitempty"`
	Decisions      []GateDecision `json:"decisions"`
	Record         *Record        `json:"record,omitempty"`
	WorkedDuration string         `json:"worked_duration,omitempty"`
	StatusMessage  string         `json:"status_message,omitempty"`
}
