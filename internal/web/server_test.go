package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"facegate/internal/config"
	"facegate/internal/record"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	store := record.NewCSVStore(filepath.Join(t.TempDir(), "attendance_log.csv"))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewServer(config.CollectorConfig{Addr: ":0"}, store, logger)
}

func postAttendance(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/attendance", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestHealthCheck(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestIngestAttendance(t *testing.T) {
	s := testServer(t)

	recorder := postAttendance(t, s, `{"name":"Alice","rfid":"123","datetime":"2025-03-10 08:30:00"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	rows, err := s.store.Records()
	if err != nil {
		t.Fatalf("reading store: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 stored row, got %d", len(rows))
	}
	if rows[0].Name != "Alice" || rows[0].RFID != "123" || rows[0].Date != "2025-03-10" || rows[0].Time != "08:30:00" {
		t.Errorf("unexpected stored row: %+v", rows[0])
	}
}

func TestIngestAttendanceRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing name", `{"rfid":"123","datetime":"2025-03-10 08:30:00"}`},
		{"missing rfid", `{"name":"Alice","datetime":"2025-03-10 08:30:00"}`},
		{"missing datetime", `{"name":"Alice","rfid":"123"}`},
		{"bad datetime", `{"name":"Alice","rfid":"123","datetime":"10/03/2025"}`},
	}

	s := testServer(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := postAttendance(t, s, tc.body)
			if recorder.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", recorder.Code)
			}
		})
	}

	rows, err := s.store.Records()
	if err != nil {
		t.Fatalf("reading store: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rejected events must not be stored, got %d rows", len(rows))
	}
}

func TestDashboardListsRows(t *testing.T) {
	s := testServer(t)
	at, _ := time.Parse(record.TimestampLayout, "2025-03-10 08:30:00")
	if err := s.store.Append(record.NewAttendanceEvent("Alice", "123", at)); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/?date=2025-03-10", nil)
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	body, _ := io.ReadAll(recorder.Body)
	if !strings.Contains(string(body), "Alice") {
		t.Error("expected the dashboard to list Alice")
	}
	if !strings.Contains(string(body), "08:30:00") {
		t.Error("expected the dashboard to show the check-in time")
	}
}

func TestDashboardFiltersByName(t *testing.T) {
	s := testServer(t)
	at, _ := time.Parse(record.TimestampLayout, "2025-03-10 08:30:00")
	_ = s.store.Append(record.NewAttendanceEvent("Alice", "123", at))
	_ = s.store.Append(record.NewAttendanceEvent("Bob", "456", at))

	req := httptest.NewRequest(http.MethodGet, "/?date=2025-03-10&name=ali", nil)
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)

	body := recorder.Body.String()
	if !strings.Contains(body, "Alice") {
		t.Error("expected Alice in the filtered dashboard")
	}
	if strings.Contains(body, "Bob") {
		t.Error("expected Bob filtered out")
	}
}

func TestDashboardEmptyDate(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/?date=2030-01-01", nil)
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "No attendance recorded") {
		t.Error("expected the empty state message")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "facegate_attendance_accepted_total") {
		t.Error("expected the attendance counter to be exported")
	}
}

func TestCORSPreflightOK(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/attendance", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected localhost origin allowed, got %q", got)
	}
}

func TestCORSUnknownOriginGetsNoAllowHeader(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header for unknown origin, got %q", got)
	}
}
