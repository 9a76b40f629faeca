package web

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"facegate/internal/record"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// chartBar is one row of the per-person tally on the dashboard.
type chartBar struct {
	Name    string
	Count   int
	Percent int // bar width relative to the busiest person
}

type dashboardData struct {
	Dates     []string
	Date      string
	NameQuery string
	Rows      []record.Row
	Chart     []chartBar
}

// dashboard renders the attendance overview for one date, optionally
// filtered by a name substring. Defaults to today.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	nameQuery := r.URL.Query().Get("name")

	dates, err := s.store.Dates()
	if err != nil {
		s.logger.Error("listing attendance dates", "error", err)
		http.Error(w, "failed to read attendance log", http.StatusInternalServerError)
		return
	}

	rows, err := s.store.Filter(date, nameQuery)
	if err != nil {
		s.logger.Error("filtering attendance log", "error", err)
		http.Error(w, "failed to read attendance log", http.StatusInternalServerError)
		return
	}

	data := dashboardData{
		Dates:     dates,
		Date:      date,
		NameQuery: nameQuery,
		Rows:      rows,
		Chart:     buildChart(rows),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.Error("rendering dashboard", "error", err)
	}
}

func buildChart(rows []record.Row) []chartBar {
	names, values := record.CountByName(rows)

	max := 0
	for _, v := range values {
		if v > max {
			max = v
		}
	}

	bars := make([]chartBar, len(names))
	for i := range names {
		bars[i] = chartBar{
			Name:    names[i],
			Count:   values[i],
			Percent: values[i] * 100 / max,
		}
	}
	return bars
}
