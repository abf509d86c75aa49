package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/pharmacore-hq/attendance-gate-go/internal/config"
	"github.com/pharmacore-hq/attendance-gate-go/internal/domain/attendance"
	"github.com/pharmacore-hq/attendance-gate-go/internal/pkg/geo"
	"github.com/pharmacore-hq/attendance-gate-go/internal/pkg/sse"
	"github.com/pharmacore-hq/attendance-gate-go/internal/pkg/timegate"
	"github.com/pharmacore-hq/attendance-gate-go/internal/scheduler"
)

// BackendAPI is the slice of the attendance backend the gate consumes.
type BackendAPI interface {
	GetMyAttendance(ctx context.Context, userID string) (*attendance.Record, error)
	GetHistory(ctx context.Context, userID string) ([]attendance.Record, error)
	GetOfficeLocation(ctx context.Context, userID string) (attendance.Coordinates, error)
	GetExpectedTimings(ctx context.Context, userID string) (*attendance.ExpectedTimings, error)
	CheckIn(ctx context.Context, userID string, position attendance.Coordinates, selfieURL string) error
	CheckOut(ctx context.Context, userID string) error
	BreakIn(ctx context.Context, userID string) error
	BreakOut(ctx context.Context, userID string) error
	AmendCheckIn(ctx context.Context, userID, recordID, timestamp string) error
	AmendCheckOut(ctx context.Context, userID, recordID, timestamp string) error
}

// Session is the attendance gate for one user: it mirrors the backend's
// record, the shift contract and the office anchor, consumes the live
// position feed, and produces one admission decision per action. It owns
// the session's reminder scheduler; closing the session releases every
// timer.
type Session struct {
	userID string
	cfg    config.GateConfig
	api    BackendAPI
	hub    *sse.Hub
	sched  *scheduler.ReminderScheduler
	now    func() time.Time

	mu        sync.Mutex
	office    *attendance.OfficeLocation
	timings   *attendance.ExpectedTimings
	record    *attendance.Record
	position  *attendance.Coordinates
	fixedAt   time.Time // when the last position fix arrived
	loading   bool
	inFlight  bool
	statusMsg string
}

// NewSession builds an idle session. Start hydrates it and arms the
// scheduler.
func NewSession(userID string, cfg config.GateConfig, api BackendAPI, hub *sse.Hub) *Session {
	s := &Session{
		userID:  userID,
		cfg:     cfg,
		api:     api,
		hub:     hub,
		now:     time.Now,
		loading: true,
	}
	s.sched = scheduler.NewReminderScheduler(userID, cfg, s.dispatchReminder, s.evaluate)
	return s
}

// Start fetches the initial state and starts the evaluation cadence.
func (s *Session) Start(ctx context.Context) {
	s.Refresh(ctx)
	s.sched.Start()
}

// Close tears the session down. No timer survives it.
func (s *Session) Close() {
	s.sched.Close()
}

// Refresh re-fetches the record and shift contract (and the office anchor
// when not yet known) from the backend. Transient failures degrade: record
// and timings fall back to absent and a status message is surfaced; the
// gate keeps denying with an explanation instead of propagating the error.
func (s *Session) Refresh(ctx context.Context) {
	var statusMsg string

	record, err := s.api.GetMyAttendance(ctx, s.userID)
	recordFailed := err != nil
	if recordFailed {
		slog.Warn("Failed to fetch attendance record", "user_id", s.userID, "error", err)
		statusMsg = "Could not load today's attendance; actions are disabled until it loads."
		record = nil
	}

	timings, err := s.api.GetExpectedTimings(ctx, s.userID)
	if err != nil {
		slog.Warn("Failed to fetch expected timings", "user_id", s.userID, "error", err)
		timings = nil
	}

	s.mu.Lock()
	needOffice := s.office == nil
	s.mu.Unlock()

	var office *attendance.OfficeLocation
	if needOffice {
		coords, err := s.api.GetOfficeLocation(ctx, s.userID)
		if err != nil {
			slog.Warn("Failed to fetch office location", "user_id", s.userID, "error", err)
		} else {
			office = &attendance.OfficeLocation{
				Coordinates:  coords,
				RadiusMeters: s.cfg.OfficeRadiusMeters,
			}
		}
	}

	s.mu.Lock()
	if office != nil && s.office == nil {
		s.office = office
	}
	s.record = record
	s.timings = timings
	// A failed record fetch keeps the gate in the loading state: actions
	// stay disabled with an explanation until the record actually arrives.
	s.loading = recordFailed
	s.statusMsg = statusMsg
	checkedIn := record != nil && record.CheckInAt != nil
	s.mu.Unlock()

	s.sched.Apply(timings, checkedIn)
	s.broadcast()
}

// UpdatePosition ingests one fix from the client's location watch. Each fix
// independently recomputes the geofence state.
func (s *Session) UpdatePosition(coords attendance.Coordinates) {
	s.mu.Lock()
	c := coords
	s.position = &c
	s.fixedAt = s.now()
	s.mu.Unlock()

	s.broadcast()
}

// evaluate is the scheduler's cadence callback: recompute everything from
// current inputs and reconcile the reminder slot. Pure recomputation — a
// position update and a periodic tick must converge to the same answer.
func (s *Session) evaluate() {
	s.mu.Lock()
	timings := s.timings
	checkedIn := s.record != nil && s.record.CheckInAt != nil
	s.mu.Unlock()

	s.sched.Apply(timings, checkedIn)
	s.broadcast()
}

func (s *Session) dispatchReminder(title, body string) error {
	if s.hub == nil {
		return errors.New("no notification channel configured")
	}
	s.hub.Publish(s.userID, sse.Event{
		UserID: s.userID,
		Type:   sse.EventReminder,
		Data:   map[string]string{"title": title, "body": body},
	})
	return nil
}

func (s *Session) broadcast() {
	if s.hub == nil {
		return
	}
	s.hub.Publish(s.userID, sse.Event{
		UserID: s.userID,
		Type:   sse.EventGateState,
		Data:   s.Status(),
	})
}

// geofenceLocked classifies the live position against the office anchor.
// Returns (nil, nil) when the state is unknown: no office yet, no fix yet,
// a stale fix, or NaN arithmetic. Unknown always denies check-in.
func (s *Session) geofenceLocked(now time.Time) (within *bool, distance *float64) {
	if s.office == nil || s.position == nil {
		return nil, nil
	}
	if now.Sub(s.fixedAt) > s.cfg.LocationMaxAge {
		return nil, nil
	}
	d := geo.DistanceMeters(*s.position, s.office.Coordinates)
	if math.IsNaN(d) {
		return nil, nil
	}
	w := geo.WithinRadius(d, s.office.RadiusMeters)
	return &w, &d
}

// Decide evaluates one action against the current inputs. The first
// matching denial reason wins.
func (s *Session) Decide(action attendance.Action) attendance.GateDecision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decideLocked(action, s.now())
}

func (s *Session) decideLocked(action attendance.Action, now time.Time) attendance.GateDecision {
	if err := s.admitLocked(action, now); err != nil {
		return attendance.GateDecision{
			Action:  action,
			Allowed: false,
			Reason:  s.reasonLocked(err),
		}
	}
	return attendance.GateDecision{Action: action, Allowed: true}
}

// admitLocked applies the precedence-ordered denial rules and returns the
// first matching sentinel, or nil when the action is admitted.
func (s *Session) admitLocked(action attendance.Action, now time.Time) error {
	if s.inFlight {
		return attendance.ErrActionInFlight
	}
	if s.loading {
		return attendance.ErrStillLoading
	}

	flags := timegate.Evaluate(s.timings, now)

	switch action {
	case attendance.ActionCheckIn:
		within, _ := s.geofenceLocked(now)
		if within == nil {
			return attendance.ErrLocationUnknown
		}
		if !*within {
			return attendance.ErrOutsideAllowedRadius
		}
		if s.record != nil && s.record.CheckInAt != nil {
			return attendance.ErrAlreadyCheckedIn
		}
		if flags.BeforeCheckIn {
			return attendance.ErrTooEarlyToCheckIn
		}
		if flags.AfterCheckOut {
			return attendance.ErrCheckInWindowClosed
		}

	case attendance.ActionCheckOut:
		if s.record == nil || s.record.CheckInAt == nil {
			return attendance.ErrNotCheckedIn
		}
		if s.record.CheckOutAt != nil {
			return attendance.ErrAlreadyCheckedOut
		}
		if flags.BeforeCheckOut {
			return attendance.ErrTooEarlyToCheckOut
		}

	case attendance.ActionBreakIn:
		if s.record == nil || s.record.CheckInAt == nil {
			return attendance.ErrNotCheckedIn
		}
		if s.record.OnBreak() {
			return attendance.ErrAlreadyOnBreak
		}

	case attendance.ActionBreakOut:
		if s.record == nil || !s.record.OnBreak() {
			return attendance.ErrNotOnBreak
		}
	}

	return nil
}

// reasonLocked renders a denial sentinel as the user-facing reason,
// embedding the formatted expected time where the cause is the window.
func (s *Session) reasonLocked(err error) string {
	switch {
	case errors.Is(err, attendance.ErrTooEarlyToCheckIn):
		return fmt.Sprintf("Too early to check in. Your shift starts at %s.",
			timegate.FormatTimeOfDay(s.timings.ExpectedCheckIn))
	case errors.Is(err, attendance.ErrCheckInWindowClosed):
		return fmt.Sprintf("Check-in window closed at %s.",
			timegate.FormatTimeOfDay(s.timings.ExpectedCheckOut))
	case errors.Is(err, attendance.ErrTooEarlyToCheckOut):
		return fmt.Sprintf("You must wait until %s to check out.",
			timegate.FormatTimeOfDay(s.timings.ExpectedCheckOut))
	default:
		return err.Error()
	}
}

// Status assembles the full gate snapshot for the UI.
func (s *Session) Status() attendance.StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	flags := timegate.Evaluate(s.timings, now)
	within, distance := s.geofenceLocked(now)

	decisions := make([]attendance.GateDecision, 0, 4)
	for _, action := range attendance.AllActions() {
		decisions = append(decisions, s.decideLocked(action, now))
	}

	resp := attendance.StatusResponse{
		Flags: attendance.GateFlags{
			IsBeforeExpectedCheckIn:  flags.BeforeCheckIn,
			IsAfterExpectedCheckOut:  flags.AfterCheckOut,
			IsBeforeExpectedCheckOut: flags.BeforeCheckOut,
		},
		WithinGeofence: within,
		DistanceMeters: distance,
		Decisions:      decisions,
		Record:         s.record,
		StatusMessage:  s.statusMsg,
	}
	if s.record != nil && s.record.CheckInAt != nil {
		resp.WorkedDuration = FormatDuration(CalculateDuration(s.record.CheckInAt, s.record.CheckOutAt, now))
	}
	return resp
}

// History reads the attendance history through to the backend.
func (s *Session) History(ctx context.Context) ([]attendance.Record, error) {
	return s.api.GetHistory(ctx, s.userID)
}

// SubmitCheckIn gates and forwards a check-in. The fix carried on the
// request doubles as a position update, and a missing selfie or position is
// a hard precondition failure before any gate rule runs.
func (s *Session) SubmitCheckIn(ctx context.Context, req attendance.CheckInRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	s.UpdatePosition(attendance.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude})

	return s.submit(ctx, attendance.ActionCheckIn, func(ctx context.Context) error {
		s.mu.Lock()
		if s.position == nil {
			s.mu.Unlock()
			return attendance.ErrLocationUnknown
		}
		position := *s.position
		s.mu.Unlock()
		return s.api.CheckIn(ctx, s.userID, position, req.SelfieURL)
	})
}

// SubmitCheckOut gates and forwards a check-out.
func (s *Session) SubmitCheckOut(ctx context.Context) error {
	return s.submit(ctx, attendance.ActionCheckOut, func(ctx context.Context) error {
		return s.api.CheckOut(ctx, s.userID)
	})
}

// SubmitBreakIn gates and forwards a break start.
func (s *Session) SubmitBreakIn(ctx context.Context) error {
	return s.submit(ctx, attendance.ActionBreakIn, func(ctx context.Context) error {
		return s.api.BreakIn(ctx, s.userID)
	})
}

// SubmitBreakOut gates and forwards a break end.
func (s *Session) SubmitBreakOut(ctx context.Context) error {
	return s.submit(ctx, attendance.ActionBreakOut, func(ctx context.Context) error {
		return s.api.BreakOut(ctx, s.userID)
	})
}

// submit runs the gate for an action, forwards it upstream, and re-fetches
// the record afterwards. Read-after-write consistency comes from the
// re-fetch, never from mutating the mirrored record locally.
func (s *Session) submit(ctx context.Context, action attendance.Action, call func(ctx context.Context) error) error {
	s.mu.Lock()
	if err := s.admitLocked(action, s.now()); err != nil {
		s.mu.Unlock()
		return err
	}
	s.inFlight = true
	s.mu.Unlock()

	err := call(ctx)

	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		s.statusMsg = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		slog.Warn("Attendance action rejected", "user_id", s.userID, "action", action, "error", err)
		return err
	}

	slog.Info("Attendance action recorded", "user_id", s.userID, "action", action)
	s.Refresh(ctx)
	return nil
}
