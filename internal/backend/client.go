package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pharmacore-hq/attendance-gate-go/internal/config"
	"github.com/pharmacore-hq/attendance-gate-go/internal/domain/attendance"
)

// Client talks to the authoritative attendance backend. The gate never
// stores attendance state itself; every read and write goes through here.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend API client.
func NewClient(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// APIError carries a non-2xx backend response. The message is surfaced to
// the user verbatim; the backend owns the wording.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend API error [%d]: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

type checkInPayload struct {
	UserLat   float64 `json:"userLat"`
	UserLong  float64 `json:"userLong"`
	SelfieURL string  `json:"selfieUrl"`
}

type amendPayload struct {
	Timestamp string `json:"timestamp"`
}

// GetMyAttendance fetches today's record for a user. An empty body or 404
// means no record yet and yields (nil, nil).
func (c *Client) GetMyAttendance(ctx context.Context, userID string) (*attendance.Record, error) {
	var record attendance.Record
	err := c.do(ctx, http.MethodGet, "/attendance/my", userID, nil, &record)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch today's attendance: %w", err)
	}
	if record.AttendanceID == "" {
		return nil, nil
	}
	return &record, nil
}

// GetHistory fetches the attendance history, sorted by work date descending.
// The backend makes no ordering promise, so sorting happens here.
func (c *Client) GetHistory(ctx context.Context, userID string) ([]attendance.Record, error) {
	var records []attendance.Record
	if err := c.do(ctx, http.MethodGet, "/attendance/history", userID, nil, &records); err != nil {
		return nil, fmt.Errorf("failed to fetch attendance history: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].WorkDate.After(records[j].WorkDate)
	})

	return records, nil
}

// GetOfficeLocation fetches the configured office coordinates. The geofence
// radius is a local constant, not part of this payload.
func (c *Client) GetOfficeLocation(ctx context.Context, userID string) (attendance.Coordinates, error) {
	var coords attendance.Coordinates
	if err := c.do(ctx, http.MethodGet, "/attendance/office/location", userID, nil, &coords); err != nil {
		return attendance.Coordinates{}, fmt.Errorf("failed to fetch office location: %w", err)
	}
	return coords, nil
}

// GetExpectedTimings fetches the user's shift contract. 404 or an empty
// payload means no contract is configured and yields (nil, nil).
func (c *Client) GetExpectedTimings(ctx context.Context, userID string) (*attendance.ExpectedTimings, error) {
	var timings attendance.ExpectedTimings
	err := c.do(ctx, http.MethodGet, "/users/"+userID+"/expected-timings", userID, nil, &timings)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch expected timings: %w", err)
	}
	if timings.ExpectedCheckIn == "" && timings.ExpectedCheckOut == "" {
		return nil, nil
	}
	return &timings, nil
}

// CheckIn submits a check-in with the user's position and selfie reference.
func (c *Client) CheckIn(ctx context.Context, userID string, position attendance.Coordinates, selfieURL string) error {
	payload := checkInPayload{
		UserLat:   position.Latitude,
		UserLong:  position.Longitude,
		SelfieURL: selfieURL,
	}
	return c.do(ctx, http.MethodPost, "/attendance/check-in", userID, payload, nil)
}

// CheckOut submits a check-out.
func (c *Client) CheckOut(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/attendance/check-out", userID, nil, nil)
}

// BreakIn starts a break.
func (c *Client) BreakIn(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/attendance/break-in", userID, nil, nil)
}

// BreakOut ends a break.
func (c *Client) BreakOut(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/attendance/break-out", userID, nil, nil)
}

// AmendCheckIn corrects a recorded check-in timestamp (administrative path).
func (c *Client) AmendCheckIn(ctx context.Context, userID, recordID, timestamp string) error {
	return c.do(ctx, http.MethodPatch, "/attendance/record/"+recordID+"/check-in", userID, amendPayload{Timestamp: timestamp}, nil)
}

// AmendCheckOut corrects a recorded check-out timestamp (administrative path).
func (c *Client) AmendCheckOut(ctx context.Context, userID, recordID, timestamp string) error {
	return c.do(ctx, http.MethodPatch, "/attendance/record/"+recordID+"/check-out", userID, amendPayload{Timestamp: timestamp}, nil)
}

func (c *Client) do(ctx context.Context, method, path, userID string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-User-ID", userID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPatch {
		// Writes carry an idempotency key so a retried submission after a
		// network cut cannot double-record.
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
	}

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// readErrorMessage pulls a human-readable message out of an error payload,
// falling back to the raw body.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no error detail provided"
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
