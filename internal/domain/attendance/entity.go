package attendance

import (
	"time"
)

// Coordinates is a WGS-84 position in degrees. Value type, never mutated.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// OfficeLocation is the configured check-in anchor. The radius is a local
// constant layered on top of the backend-provided coordinates.
type OfficeLocation struct {
	Coordinates
	RadiusMeters float64 `json:"radius_meters"`
}

// ExpectedTimings is the per-user shift contract. All fields are
// time-of-day strings ("15:04:05"); break fields are optional. A nil
// *ExpectedTimings means no contract is configured.
type ExpectedTimings struct {
	ExpectedCheckIn  string  `json:"expected_check_in"`
	ExpectedCheckOut string  `json:"expected_check_out"`
	ExpectedBreakIn  *string `json:"expected_break_in,omitempty"`
	ExpectedBreakOut *string `json:"expected_break_out,omitempty"`
}

// Record is today's attendance record as owned by the backend. The gate
// only ever reads it; the authoritative copy lives upstream.
type Record struct {
	AttendanceID string     `json:"attendance_id"`
	CheckInAt    *time.Time `json:"check_in_at"`
	CheckOutAt   *time.Time `json:"check_out_at"`
	BreakInAt    *time.Time `json:"break_in_at"`
	BreakOutAt   *time.Time `json:"break_out_at"`
	WorkDate     time.Time  `json:"work_date"`
}

// OnBreak reports whether a break has been started and not yet ended.
func (r Record) OnBreak() bool {
	return r.BreakInAt != nil && r.BreakOutAt == nil
}

// Action is one of the four gated attendance actions.
type Action string

const (
	ActionCheckIn  Action = "check_in"
	ActionCheckOut Action = "check_out"
	ActionBreakIn  Action = "break_in"
	ActionBreakOut Action = "break_out"
)

// AllActions returns the gated actions in evaluation order.
func AllActions() []Action {
	return []Action{ActionCheckIn, ActionCheckOut, ActionBreakIn, ActionBreakOut}
}

// GateDecision is the admission verdict for one action. Derived on every
// evaluation, never stored.
type GateDecision struct {
	Action  Action `json:"action"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
