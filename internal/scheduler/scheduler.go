package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pharmacore-hq/attendance-gate-go/internal/config"
	"github.com/pharmacore-hq/attendance-gate-go/internal/domain/attendance"
	"github.com/pharmacore-hq/attendance-gate-go/internal/pkg/timegate"
)

// DispatchFunc delivers the reminder notification. A delivery failure is
// logged and swallowed; gate flags never depend on delivery success.
type DispatchFunc func(title, body string) error

// EvaluateFunc re-runs the owning session's full gate evaluation.
type EvaluateFunc func()

// ReminderScheduler owns the "time to check in" reminder for one session.
// It holds the single armed-reminder slot: every re-arm cancels the previous
// timer first, so at most one reminder timer exists at any instant. The
// periodic and bootstrap timers are independent of the reminder and live
// until Close.
type ReminderScheduler struct {
	userID   string
	cfg      config.GateConfig
	dispatch DispatchFunc
	evaluate EvaluateFunc
	now      func() time.Time

	mu       sync.Mutex
	reminder *time.Timer // nil while idle
	fireAt   time.Time
	expected string // formatted expected check-in time for the message

	bootstrap *time.Timer
	periodic  *time.Ticker
	done      chan struct{}
	wg        sync.WaitGroup
	closed    bool
}

// NewReminderScheduler creates an idle scheduler. Start launches the
// bootstrap and periodic evaluation; Apply manages the reminder slot.
func NewReminderScheduler(userID string, cfg config.GateConfig, dispatch DispatchFunc, evaluate EvaluateFunc) *ReminderScheduler {
	return &ReminderScheduler{
		userID:   userID,
		cfg:      cfg,
		dispatch: dispatch,
		evaluate: evaluate,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start runs the initial evaluation after the bootstrap delay and then the
// periodic re-evaluation on a fixed cadence. The delay keeps the first
// evaluation from running before the session has hydrated its inputs.
func (s *ReminderScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.bootstrap = time.AfterFunc(s.cfg.BootstrapDelay, s.evaluate)

	s.periodic = time.NewTicker(s.cfg.PeriodicInterval)
	s.wg.Add(1)
	go s.runPeriodic()

	slog.Info("Reminder scheduler started",
		"user_id", s.userID,
		"interval", s.cfg.PeriodicInterval,
		"bootstrap_delay", s.cfg.BootstrapDelay)
}

func (s *ReminderScheduler) runPeriodic() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.periodic.C:
			s.evaluate()
		}
	}
}

// Apply reconciles the reminder slot with fresh inputs. It always cancels
// any armed timer first, then re-arms only when the expected check-in is
// still comfortably in the future and the user has not checked in. The
// buffer keeps imminent or past timings from arming a timer that would fire
// immediately.
func (s *ReminderScheduler) Apply(timings *attendance.ExpectedTimings, checkedIn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.cancelLocked()

	if checkedIn {
		return
	}
	fireAt, ok := timegate.ExpectedCheckInAt(timings, s.now())
	if !ok {
		return
	}
	if !s.now().Before(fireAt.Add(-s.cfg.ReminderBuffer)) {
		return
	}

	s.fireAt = fireAt
	s.expected = timegate.FormatTimeOfDay(timings.ExpectedCheckIn)
	s.reminder = time.AfterFunc(fireAt.Sub(s.now()), s.fire)
	slog.Debug("Reminder armed", "user_id", s.userID, "fire_at", fireAt)
}

// Cancel disarms any pending reminder. Cancelling an idle scheduler is a
// no-op.
func (s *ReminderScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *ReminderScheduler) cancelLocked() {
	if s.reminder == nil {
		return
	}
	s.reminder.Stop()
	s.reminder = nil
	s.fireAt = time.Time{}
	slog.Debug("Reminder cancelled", "user_id", s.userID)
}

// Armed reports whether a reminder timer is currently pending, and when it
// would fire.
func (s *ReminderScheduler) Armed() (bool, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reminder != nil, s.fireAt
}

func (s *ReminderScheduler) fire() {
	s.mu.Lock()
	if s.closed || s.reminder == nil {
		s.mu.Unlock()
		return
	}
	s.reminder = nil
	s.fireAt = time.Time{}
	expected := s.expected
	s.mu.Unlock()

	title := "Time to check in"
	body := fmt.Sprintf("Your shift starts at %s. Don't forget to check in.", expected)
	if err := s.dispatch(title, body); err != nil {
		slog.Warn("Reminder dispatch failed", "user_id", s.userID, "error", err)
	} else {
		slog.Info("Reminder dispatched", "user_id", s.userID, "expected_check_in", expected)
	}

	// Re-run the full evaluation so flags are fresh and the cadence can
	// keep going from a consistent state.
	s.evaluate()
}

// Close releases every timer the scheduler owns. Idempotent; nothing fires
// after Close returns.
func (s *ReminderScheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancelLocked()
	if s.bootstrap != nil {
		s.bootstrap.Stop()
	}
	if s.periodic != nil {
		s.periodic.Stop()
	}
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("Reminder scheduler stopped", "user_id", s.userID)
}
