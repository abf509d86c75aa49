package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pharmacore-hq/attendance-gate-go/internal/config"
	"github.com/pharmacore-hq/attendance-gate-go/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coords(lat, long float64) attendance.Coordinates {
	return attendance.Coordinates{Latitude: lat, Longitude: long}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.BackendConfig{BaseURL: server.URL, Timeout: 2 * time.Second})
}

func TestGetMyAttendance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/attendance/my", r.URL.Path)
		assert.Equal(t, "user-1", r.Header.Get("X-User-ID"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"attendance_id":"att-1","check_in_at":"2025-03-10T09:01:00Z","check_out_at":null,"break_in_at":null,"break_out_at":null,"work_date":"2025-03-10T00:00:00Z"}`))
	})

	record, err := client.GetMyAttendance(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "att-1", record.AttendanceID)
	require.NotNil(t, record.CheckInAt)
	assert.Nil(t, record.CheckOutAt)
}

func TestGetMyAttendance_NoRecordYet(t *testing.T) {
	t.Run("404", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		record, err := client.GetMyAttendance(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("empty body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		record, err := client.GetMyAttendance(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Nil(t, record)
	})
}

func TestGetHistory_SortsNewestFirst(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"attendance_id":"a","work_date":"2025-03-08T00:00:00Z"},
			{"attendance_id":"c","work_date":"2025-03-10T00:00:00Z"},
			{"attendance_id":"b","work_date":"2025-03-09T00:00:00Z"}
		]`))
	})

	records, err := client.GetHistory(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].AttendanceID)
	assert.Equal(t, "b", records[1].AttendanceID)
	assert.Equal(t, "a", records[2].AttendanceID)
}

func TestGetExpectedTimings_NoContract(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	timings, err := client.GetExpectedTimings(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, timings)
}

func TestCheckIn_SendsPositionAndIdempotencyKey(t *testing.T) {
	var gotBody string
	var gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/attendance/check-in", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.WriteHeader(http.StatusCreated)
	})

	err := client.CheckIn(context.Background(), "user-1", coords(25.2048, 55.2708), "https://cdn.example.com/selfie.jpg")
	require.NoError(t, err)
	assert.NotEmpty(t, gotKey)
	assert.Contains(t, gotBody, `"userLat":25.2048`)
	assert.Contains(t, gotBody, `"userLong":55.2708`)
	assert.Contains(t, gotBody, `"selfieUrl":"https://cdn.example.com/selfie.jpg"`)
}

func TestCheckIn_SurfacesBackendMessageVerbatim(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"duplicate check-in for work date"}`))
	})

	err := client.CheckIn(context.Background(), "user-1", coords(0, 0), "selfie.jpg")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "duplicate check-in for work date", apiErr.Message)
}

func TestAmendCheckOut_PatchesRecordPath(t *testing.T) {
	var gotPath, gotMethod string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	})

	err := client.AmendCheckOut(context.Background(), "admin-1", "att-9", "2025-03-10T18:05:00Z")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/attendance/record/att-9/check-out", gotPath)
}

func TestReadErrorMessage_FallsBackToRawBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("something broke"))
	})

	err := client.CheckOut(context.Background(), "user-1")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "something broke", apiErr.Message)
}
