package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/pharmacore-hq/attendance-gate-go/internal/config"
	"github.com/pharmacore-hq/attendance-gate-go/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGateConfig() config.GateConfig {
	return config.GateConfig{
		OfficeRadiusMeters: 100,
		ReminderBuffer:     500 * time.Millisecond,
		PeriodicInterval:   25 * time.Millisecond,
		BootstrapDelay:     10 * time.Millisecond,
		LocationMaxAge:     5 * time.Second,
	}
}

// schedulerNow pins the scheduler's clock between two whole seconds so that
// second-granularity shift times land at deterministic offsets:
// "09:00:01" is 300ms ahead (inside the 500ms buffer) and "09:00:02" is
// 1.3s ahead (armable, fires within the test's sleep).
var schedulerNow = time.Date(2025, time.March, 10, 9, 0, 0, 700_000_000, time.Local)

func newTestScheduler(dispatch DispatchFunc, evaluate EvaluateFunc) *ReminderScheduler {
	s := NewReminderScheduler("u1", testGateConfig(), dispatch, evaluate)
	s.now = func() time.Time { return schedulerNow }
	return s
}

func shiftTimings(checkIn string) *attendance.ExpectedTimings {
	return &attendance.ExpectedTimings{
		ExpectedCheckIn:  checkIn,
		ExpectedCheckOut: "18:00:00",
	}
}

func TestApply_ArmsForFutureCheckIn(t *testing.T) {
	s := newTestScheduler(func(title, body string) error { return nil }, func() {})
	defer s.Close()

	s.Apply(shiftTimings("10:00:00"), false)

	armed, fireAt := s.Armed()
	assert.True(t, armed)
	assert.Equal(t, time.Date(2025, time.March, 10, 10, 0, 0, 0, time.Local), fireAt)
}

func TestApply_SkipsImminentCheckIn(t *testing.T) {
	s := newTestScheduler(func(title, body string) error { return nil }, func() {})
	defer s.Close()

	// 300ms ahead is inside the buffer: arming would fire for a timing
	// that is effectively already due, so the slot stays idle.
	s.Apply(shiftTimings("09:00:01"), false)

	armed, _ := s.Armed()
	assert.False(t, armed)
}

func TestApply_SkipsPastCheckIn(t *testing.T) {
	s := newTestScheduler(func(title, body string) error { return nil }, func() {})
	defer s.Close()

	s.Apply(shiftTimings("08:00:00"), false)

	armed, _ := s.Armed()
	assert.False(t, armed)
}

func TestApply_SkipsWhenCheckedIn(t *testing.T) {
	s := newTestScheduler(func(title, body string) error { return nil }, func() {})
	defer s.Close()

	s.Apply(shiftTimings("10:00:00"), true)

	armed, _ := s.Armed()
	assert.False(t, armed)
}

func TestApply_NilTimingsStaysIdle(t *testing.T) {
	s := newTestScheduler(func(title, body string) error { return nil }, func() {})
	defer s.Close()

	s.Apply(nil, false)

	armed, _ := s.Armed()
	assert.False(t, armed)
}

func TestApply_RearmKeepsSingleTimer(t *testing.T) {
	var fired int32
	s := newTestScheduler(func(title, body string) error {
		atomic.AddInt32(&fired, 1)
		return nil
	}, func() {})
	defer s.Close()

	// Two consecutive input changes must leave exactly one pending timer.
	s.Apply(shiftTimings("09:00:02"), false)
	s.Apply(shiftTimings("09:00:02"), false)

	armed, _ := s.Armed()
	require.True(t, armed)

	time.Sleep(2 * time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestApply_CheckInCancelsPendingReminder(t *testing.T) {
	var fired int32
	s := newTestScheduler(func(title, body string) error {
		atomic.AddInt32(&fired, 1)
		return nil
	}, func() {})
	defer s.Close()

	s.Apply(shiftTimings("09:00:02"), false)
	armed, _ := s.Armed()
	require.True(t, armed)

	// User checks in before the reminder fires: the timer must be torn
	// down and never dispatch.
	s.Apply(shiftTimings("09:00:02"), true)

	time.Sleep(2 * time.Second)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestFire_DispatchesAndReevaluates(t *testing.T) {
	var fired, evaluated int32
	s := newTestScheduler(func(title, body string) error {
		atomic.AddInt32(&fired, 1)
		assert.Equal(t, "Time to check in", title)
		assert.Contains(t, body, "09:00")
		return nil
	}, func() { atomic.AddInt32(&evaluated, 1) })

	s.Apply(shiftTimings("09:00:02"), false)

	time.Sleep(2 * time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&evaluated), int32(1))

	armed, _ := s.Armed()
	assert.False(t, armed)
	s.Close()
}

func TestDispatchFailureIsSwallowed(t *testing.T) {
	var fired int32
	s := newTestScheduler(func(title, body string) error {
		atomic.AddInt32(&fired, 1)
		return assert.AnError
	}, func() {})
	defer s.Close()

	s.Apply(shiftTimings("09:00:02"), false)

	time.Sleep(2 * time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestCancel_IdempotentOnIdle(t *testing.T) {
	s := newTestScheduler(func(title, body string) error { return nil }, func() {})
	defer s.Close()

	s.Cancel()
	s.Cancel()

	armed, _ := s.Armed()
	assert.False(t, armed)
}

func TestClose_ReleasesPendingReminder(t *testing.T) {
	var fired int32
	s := newTestScheduler(func(title, body string) error {
		atomic.AddInt32(&fired, 1)
		return nil
	}, func() {})

	s.Apply(shiftTimings("09:00:02"), false)
	s.Close()
	s.Close() // idempotent

	time.Sleep(2 * time.Second)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestStart_BootstrapAndPeriodicEvaluation(t *testing.T) {
	var evaluated int32
	s := newTestScheduler(func(title, body string) error { return nil },
		func() { atomic.AddInt32(&evaluated, 1) })

	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Close()

	// Bootstrap plus several periodic ticks.
	count := atomic.LoadInt32(&evaluated)
	assert.GreaterOrEqual(t, count, int32(3))

	// Nothing keeps evaluating after teardown.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, count, atomic.LoadInt32(&evaluated))
}
