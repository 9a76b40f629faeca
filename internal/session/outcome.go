package session

import "time"

// OutcomeKind classifies how a session ended.
type OutcomeKind int

const (
	// OutcomeMatched: the live face matched and the verification was
	// honored.
	OutcomeMatched OutcomeKind = iota
	// OutcomeQuotaExceeded: the face matched but the daily cap was already
	// reached.
	OutcomeQuotaExceeded
	// OutcomeUnknownFace: live verification ended (frame or time bound)
	// without a match.
	OutcomeUnknownFace
	// OutcomeDenied: the credential had no usable enrollment, so live
	// verification never started.
	OutcomeDenied
	// OutcomeReadFailure: the credential reader failed; fatal for the run.
	OutcomeReadFailure
	// OutcomeCancelled: the process was asked to stop mid-session.
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeMatched:
		return "matched"
	case OutcomeQuotaExceeded:
		return "quota_exceeded"
	case OutcomeUnknownFace:
		return "unknown_face"
	case OutcomeDenied:
		return "denied"
	case OutcomeReadFailure:
		return "read_failure"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the single terminal result of a session.
type Outcome struct {
	Kind      OutcomeKind
	Timestamp time.Time
}
