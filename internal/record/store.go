package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Row is one committed attendance record in the durable log.
type Row struct {
	Name string
	RFID string
	Date string // YYYY-MM-DD
	Time string // HH:MM:SS
}

var csvHeader = []string{"Name", "RFID", "Date", "Time"}

// CSVStore is the collector's durable record: an append-only CSV log with
// one row per committed verification. Appends are serialized; readers see
// the file as written.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Append writes one row, creating the file with its header on first use.
func (s *CSVStore) Append(event AttendanceEvent) error {
	at, err := time.Parse(TimestampLayout, event.Timestamp)
	if err != nil {
		return fmt.Errorf("invalid event timestamp %q: %w", event.Timestamp, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, statErr := os.Stat(s.path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening attendance log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("writing attendance log header: %w", err)
		}
	}
	row := []string{event.Name, event.RFID, at.Format("2006-01-02"), at.Format("15:04:05")}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing attendance row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Records returns every row in the log, in append order. A missing file is
// an empty log.
func (s *CSVStore) Records() ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening attendance log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	raw, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading attendance log: %w", err)
	}

	var rows []Row
	for i, rec := range raw {
		if i == 0 || len(rec) != 4 {
			continue // header or malformed row
		}
		rows = append(rows, Row{Name: rec[0], RFID: rec[1], Date: rec[2], Time: rec[3]})
	}
	return rows, nil
}

// Dates returns the distinct dates present in the log, sorted ascending.
func (s *CSVStore) Dates() ([]string, error) {
	rows, err := s.Records()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var dates []string
	for _, row := range rows {
		if _, ok := seen[row.Date]; !ok {
			seen[row.Date] = struct{}{}
			dates = append(dates, row.Date)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// Filter returns the rows for a date, optionally narrowed by a name
// substring. Matching ignores case and diacritics so "jiri" finds "Jiří".
func (s *CSVStore) Filter(date, nameQuery string) ([]Row, error) {
	rows, err := s.Records()
	if err != nil {
		return nil, err
	}

	query := NormalizeName(nameQuery)
	var out []Row
	for _, row := range rows {
		if row.Date != date {
			continue
		}
		if query != "" && !strings.Contains(NormalizeName(row.Name), query) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// CountByName tallies rows per display name, for the dashboard chart.
// Names are returned sorted so output is stable.
func CountByName(rows []Row) ([]string, []int) {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.Name]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]int, len(names))
	for i, name := range names {
		values[i] = counts[name]
	}
	return names, values
}
