package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"facegate/internal/record"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

var (
	attendanceAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facegate_attendance_accepted_total",
		Help: "Attendance events accepted and appended to the log.",
	})
	attendanceRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facegate_attendance_rejected_total",
		Help: "Attendance submissions rejected as malformed.",
	})
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// healthCheck handles the health check endpoint.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// ingestAttendance accepts one attendance event from a device and appends it
// to the durable log. A malformed event is the submitter's fault (400); a
// failed append is ours (500).
func (s *Server) ingestAttendance(w http.ResponseWriter, r *http.Request) {
	var event record.AttendanceEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		attendanceRejected.Inc()
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if event.Name == "" || event.RFID == "" || event.Timestamp == "" {
		attendanceRejected.Inc()
		respondError(w, http.StatusBadRequest, "name, rfid and datetime are required")
		return
	}
	if _, err := time.Parse(record.TimestampLayout, event.Timestamp); err != nil {
		attendanceRejected.Inc()
		respondError(w, http.StatusBadRequest, "datetime must use the format 2006-01-02 15:04:05")
		return
	}

	if err := s.store.Append(event); err != nil {
		s.logger.Error("appending attendance event", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to record attendance")
		return
	}

	attendanceAccepted.Inc()
	s.logger.Info("attendance recorded",
		"name", sanitizeForLog(event.Name),
		"rfid", sanitizeForLog(event.RFID),
	)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Attendance recorded"})
}
