// Package record submits finalized attendance events to the collector and
// implements the collector's durable store.
package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TimestampLayout is the wire format for attendance timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// AttendanceEvent is the payload for one committed verification. Immutable
// once created.
type AttendanceEvent struct {
	Name      string `json:"name"`
	RFID      string `json:"rfid"`
	Timestamp string `json:"datetime"`
}

// NewAttendanceEvent builds an event with the timestamp formatted for the
// wire.
func NewAttendanceEvent(name, rfid string, at time.Time) AttendanceEvent {
	return AttendanceEvent{
		Name:      name,
		RFID:      rfid,
		Timestamp: at.Format(TimestampLayout),
	}
}

// Recorder submits attendance events to the remote record store. Submission
// is best-effort; the in-memory quota state is the only record if it fails.
type Recorder interface {
	Submit(ctx context.Context, event AttendanceEvent) error
}

// Client posts attendance events to the collector endpoint.
type Client struct {
	url    string
	client *http.Client
}

func NewClient(url string) *Client {
	return &Client{url: url, client: &http.Client{}}
}

// Submit posts the event as JSON and expects HTTP 200.
func (c *Client) Submit(ctx context.Context, event AttendanceEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("collector error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}
