// Package calendarbridge is the HTTP client for the external calendar
// bridge: a local service fronting the OS calendar with a small JSON API
// (status, calendars, events, add, delete).
package calendarbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/sjson"
)

const (
	defaultBaseURL = "http://localhost:8787"

	// fetchTimeout bounds GET /events calls; writeTimeout bounds
	// GET /status, GET /calendars, POST /add, POST /delete.
	fetchTimeout = 20 * time.Second
	writeTimeout = 10 * time.Second

	// MaxDays is the cap the bridge enforces on GET /events?days=N.
	MaxDays = 365
)

// Client talks to the calendar bridge over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a bridge client rooted at baseURL. An empty baseURL uses
// the documented default local bridge address.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{baseURL: baseURL, http: &http.Client{}}
}

// Status is the GET /status response.
type Status struct {
	Authorized bool `json:"authorized"`
	StatusCode int  `json:"status_code"`
}

// Calendar is one entry of GET /calendars.
type Calendar struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	AllowsModifications bool   `json:"allows_modifications"`
	ColorHex            string `json:"color_hex"`
}

// Event is one entry of GET /events, and the shape returned by POST /add.
type Event struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartISO  string `json:"start_iso"`
	EndISO    string `json:"end_iso"`
	Calendar  string `json:"calendar"`
	Notes     string `json:"notes"`
}

// Status fetches GET /status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	err := c.get(ctx, writeTimeout, "/status", nil, &out)
	return out, err
}

// Calendars fetches GET /calendars.
func (c *Client) Calendars(ctx context.Context) ([]Calendar, error) {
	var out []Calendar
	err := c.get(ctx, writeTimeout, "/calendars", nil, &out)
	return out, err
}

// EventsQuery parameterizes GET /events.
type EventsQuery struct {
	Days            int
	CalendarID      string
	CalendarTitle   string
	ExcludeHolidays bool
}

// Events fetches GET /events for the given query. Days is clamped to
// MaxDays.
func (c *Client) Events(ctx context.Context, q EventsQuery) ([]Event, error) {
	days := q.Days
	if days > MaxDays {
		days = MaxDays
	}
	if days <= 0 {
		days = 1
	}

	params := url.Values{}
	params.Set("days", strconv.Itoa(days))
	if q.CalendarID != "" {
		params.Set("calendar_id", q.CalendarID)
	}
	if q.CalendarTitle != "" {
		params.Set("calendar_title", q.CalendarTitle)
	}
	if q.ExcludeHolidays {
		params.Set("exclude_holidays", "true")
	}

	var out []Event
	err := c.get(ctx, fetchTimeout, "/events", params, &out)
	return out, err
}

// AddRequest is the POST /add body.
type AddRequest struct {
	Title         string `json:"title"`
	StartISO      string `json:"start_iso"`
	EndISO        string `json:"end_iso"`
	Notes         string `json:"notes,omitempty"`
	CalendarID    string `json:"calendar_id,omitempty"`
	CalendarTitle string `json:"calendar_title,omitempty"`
}

// Add creates one external event. The request body is assembled field
// by field with sjson rather than struct-tag marshaling, since the
// notes field is itself a small hand-built "key:value, key:value"
// string the bridge expects verbatim, not a nested JSON value.
func (c *Client) Add(ctx context.Context, req AddRequest) (Event, error) {
	payload, err := encodeAddRequest(req)
	if err != nil {
		return Event{}, fmt.Errorf("encoding add request: %w", err)
	}
	var out Event
	err = c.postRaw(ctx, writeTimeout, "/add", payload, &out)
	return out, err
}

func encodeAddRequest(req AddRequest) ([]byte, error) {
	body := []byte("{}")
	var err error
	for _, set := range []struct {
		path string
		val  string
	}{
		{"title", req.Title},
		{"start_iso", req.StartISO},
		{"end_iso", req.EndISO},
	} {
		body, err = sjson.SetBytes(body, set.path, set.val)
		if err != nil {
			return nil, err
		}
	}
	if req.Notes != "" {
		if body, err = sjson.SetBytes(body, "notes", req.Notes); err != nil {
			return nil, err
		}
	}
	if req.CalendarID != "" {
		if body, err = sjson.SetBytes(body, "calendar_id", req.CalendarID); err != nil {
			return nil, err
		}
	}
	if req.CalendarTitle != "" {
		if body, err = sjson.SetBytes(body, "calendar_title", req.CalendarTitle); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// DeleteResult is the POST /delete response.
type DeleteResult struct {
	Deleted bool `json:"deleted"`
}

// StatusError carries the HTTP status code of a non-2xx bridge response
// so callers can distinguish transient (5xx) from permanent (4xx)
// failures without re-parsing the error string.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bridge returned status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a bridge 404, which the deletion
// flow treats as "already deleted" rather than an error.
func IsNotFound(err error) bool {
	var se *StatusError
	return asStatusError(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsTransient reports whether err is a 5xx or transport-level failure,
// which EC retries; IsTransient is false for 4xx (permanent) failures.
func IsTransient(err error) bool {
	var se *StatusError
	if asStatusError(err, &se) {
		return se.StatusCode >= 500
	}
	return err != nil // network/transport errors are always transient
}

func asStatusError(err error, target **StatusError) bool {
	for err != nil {
		if se, ok := err.(*StatusError); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Delete removes the external event identified by eventID. A 404 is
// reported through DeleteResult{Deleted:false} with a nil error — it is
// not a failure.
func (c *Client) Delete(ctx context.Context, eventID string) (DeleteResult, error) {
	params := url.Values{}
	params.Set("event_id", eventID)

	reqURL := c.baseURL + "/delete?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("building delete request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return DeleteResult{Deleted: false}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return DeleteResult{}, &StatusError{StatusCode: resp.StatusCode, Body: readBody(resp)}
	}

	var out DeleteResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return DeleteResult{}, fmt.Errorf("decoding delete response: %w", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, timeout time.Duration, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path
	if params != nil {
		reqURL += "?" + params.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: readBody(resp)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, timeout time.Duration, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return c.postRaw(ctx, timeout, path, payload, out)
}

// postRaw sends an already-encoded JSON payload, used by Add where the
// body is built field-by-field with sjson instead of struct tags.
func (c *Client) postRaw(ctx context.Context, timeout time.Duration, path string, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: readBody(resp)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func readBody(resp *http.Response) string {
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return buf.String()
}
