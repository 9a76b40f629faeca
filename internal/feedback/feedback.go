// Package feedback drives the human-visible state of the device: the 16x2
// status display plus buzzer and LED pulses.
//
// The sink is a pure projection from abstract session state; it never makes
// decisions and its failures never propagate into the state machine.
package feedback

import "fmt"

// Event is an abstract session state worth showing to the person at the
// device.
type Event int

const (
	EventBoot Event = iota
	EventScanPrompt
	EventCardAccepted
	EventAccessDenied
	EventTraining
	EventVerifying
	EventLimitReached
	EventUnknownFace
	EventRetryPrompt
	EventReadError
	EventShutdown
)

func (e Event) String() string {
	switch e {
	case EventBoot:
		return "boot"
	case EventScanPrompt:
		return "scan_prompt"
	case EventCardAccepted:
		return "card_accepted"
	case EventAccessDenied:
		return "access_denied"
	case EventTraining:
		return "training"
	case EventVerifying:
		return "verifying"
	case EventLimitReached:
		return "limit_reached"
	case EventUnknownFace:
		return "unknown_face"
	case EventRetryPrompt:
		return "retry_prompt"
	case EventReadError:
		return "read_error"
	case EventShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Sink renders session state to the person at the device. Implementations
// are fire-and-forget: they log their own failures and always leave
// actuators in the rest (off) state before returning.
type Sink interface {
	// Show renders the display text and actuator pattern for an event.
	Show(e Event)
	// ShowMatched renders the welcome screen and pattern for a successful
	// verification.
	ShowMatched(displayName string)
	// Close returns actuators to rest and restores the idle banner.
	Close() error
}

// welcomeNameLen caps the name shown on the 16-char welcome line
// ("Welcome " is 8 chars, leaving room for 9 more minus the trailing cell).
const welcomeNameLen = 9

// Lines returns the two display lines for an event. Matched events go
// through MatchedLines instead, since they embed the display name.
func Lines(e Event) (string, string) {
	switch e {
	case EventBoot, EventShutdown:
		return "Welcome to", "AttendanceSystem"
	case EventScanPrompt:
		return "Scan your", "RFID Card..."
	case EventCardAccepted:
		return "RFID Found", "Processing..."
	case EventAccessDenied:
		return "No Data Found", "Access Denied"
	case EventTraining:
		return "Training Face", "Please Wait..."
	case EventVerifying:
		return "Look at Camera", "Verifying..."
	case EventLimitReached:
		return "2 Times Done", "Come Tomorrow"
	case EventUnknownFace:
		return "Unknown Face", "Access Denied"
	case EventRetryPrompt:
		return "Put Correct", "Face"
	case EventReadError:
		return "RFID Read Error", "Please Retry"
	default:
		return "", ""
	}
}

// MatchedLines returns the welcome screen for a matched person.
func MatchedLines(displayName string) (string, string) {
	name := displayName
	if len(name) > welcomeNameLen {
		name = name[:welcomeNameLen]
	}
	return "Your Attendance", "Welcome " + name
}
