package record

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func tempStore(t *testing.T) *CSVStore {
	t.Helper()
	return NewCSVStore(filepath.Join(t.TempDir(), "attendance_log.csv"))
}

func mustAppend(t *testing.T, s *CSVStore, name, rfid, ts string) {
	t.Helper()
	at, err := time.Parse(TimestampLayout, ts)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", ts, err)
	}
	if err := s.Append(NewAttendanceEvent(name, rfid, at)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
}

func TestClientSubmit(t *testing.T) {
	var got AttendanceEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	event := NewAttendanceEvent("Alice", "123", time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC))
	if err := client.Submit(context.Background(), event); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if got.Name != "Alice" || got.RFID != "123" {
		t.Errorf("unexpected payload: %+v", got)
	}
	if got.Timestamp != "2025-03-10 08:30:00" {
		t.Errorf("expected wire timestamp '2025-03-10 08:30:00', got %q", got.Timestamp)
	}
}

func TestClientSubmitNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"missing fields"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	event := NewAttendanceEvent("Alice", "123", time.Now())
	if err := client.Submit(context.Background(), event); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func TestAppendCreatesHeader(t *testing.T) {
	s := tempStore(t)
	mustAppend(t, s, "Alice", "123", "2025-03-10 08:30:00")

	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != "Name,RFID,Date,Time" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "Alice,123,2025-03-10,08:30:00" {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestAppendOnlyWritesHeaderOnce(t *testing.T) {
	s := tempStore(t)
	mustAppend(t, s, "Alice", "123", "2025-03-10 08:30:00")
	mustAppend(t, s, "Bob", "456", "2025-03-10 09:00:00")

	rows, err := s.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Name != "Alice" || rows[1].Name != "Bob" {
		t.Errorf("rows out of append order: %+v", rows)
	}
}

func TestRecordsMissingFile(t *testing.T) {
	s := tempStore(t)
	rows, err := s.Records()
	if err != nil {
		t.Fatalf("Records on missing file failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected empty log, got %d rows", len(rows))
	}
}

func TestDates(t *testing.T) {
	s := tempStore(t)
	mustAppend(t, s, "Alice", "123", "2025-03-11 08:30:00")
	mustAppend(t, s, "Bob", "456", "2025-03-10 09:00:00")
	mustAppend(t, s, "Alice", "123", "2025-03-10 15:00:00")

	dates, err := s.Dates()
	if err != nil {
		t.Fatalf("Dates failed: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2025-03-10" || dates[1] != "2025-03-11" {
		t.Errorf("expected sorted distinct dates, got %v", dates)
	}
}

func TestFilter(t *testing.T) {
	s := tempStore(t)
	mustAppend(t, s, "Alice", "123", "2025-03-10 08:30:00")
	mustAppend(t, s, "Bob", "456", "2025-03-10 09:00:00")
	mustAppend(t, s, "Alice", "123", "2025-03-11 08:30:00")

	rows, err := s.Filter("2025-03-10", "")
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows for the date, got %d", len(rows))
	}

	rows, err = s.Filter("2025-03-10", "ali")
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Alice" {
		t.Errorf("expected Alice only, got %+v", rows)
	}
}

func TestFilterIgnoresDiacritics(t *testing.T) {
	s := tempStore(t)
	mustAppend(t, s, "Jiří", "789", "2025-03-10 08:30:00")

	rows, err := s.Filter("2025-03-10", "jiri")
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected diacritic-insensitive match, got %d rows", len(rows))
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Jiří", "jiri"},
		{"  Alice  ", "alice"},
		{"BOB", "bob"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := NormalizeName(tc.input); got != tc.expected {
			t.Errorf("NormalizeName(%q) = %q; want %q", tc.input, got, tc.expected)
		}
	}
}

func TestCountByName(t *testing.T) {
	rows := []Row{
		{Name: "Bob"},
		{Name: "Alice"},
		{Name: "Alice"},
	}

	names, values := CountByName(rows)
	if len(names) != 2 || names[0] != "Alice" || names[1] != "Bob" {
		t.Fatalf("expected sorted [Alice Bob], got %v", names)
	}
	if values[0] != 2 || values[1] != 1 {
		t.Errorf("expected counts [2 1], got %v", values)
	}
}
