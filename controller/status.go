package controller

import "fmt"

// State is where the controller is in a scan cycle.
type State int

// The controller states. Every cycle starts and ends in StateIdle.
const (
	StateIdle State = iota
	StateSampling
	StateDecoding
	StateGateCheck
	StateResolving
	StatePlacing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSampling:
		return "sampling"
	case StateDecoding:
		return "decoding"
	case StateGateCheck:
		return "gate_check"
	case StateResolving:
		return "resolving"
	case StatePlacing:
		return "placing"
	default:
		return "unknown"
	}
}

// Outcome says how a cycle ended, or OutcomeNone while it runs.
type Outcome int

// The cycle outcomes.
const (
	OutcomeNone Outcome = iota
	OutcomeBoardNotFound
	OutcomeAccessDenied
	OutcomeContentNotFound
	OutcomeResolveError
	OutcomeInvalidSelection
	OutcomeCancelled
	OutcomePlaced
	OutcomeReady
	OutcomeNetworkError
)

const (
	messageScanning        = "Scanning for the board..."
	messageVerifying       = "Board found! Checking access..."
	messageSearching       = "Searching for content..."
	messageBoardNotFound   = "No board found. Move closer."
	messageAccessDenied    = "Access denied: you are not inside an authorized campus."
	messageVerifyFailed    = "Access denied: could not verify your location."
	messageContentNotFound = "No content found for this subject."
	messageResolveError    = "Could not load content. Check your connection and try again."
	messageNetworkError    = "Could not reach the server. Check your connection and try again."
	messageDetectError     = "Detection failed. Try again."
	messageCancelled       = "Scan cancelled."
)

// Status is what the user is shown about the current cycle.
type Status struct {
	State    State
	Outcome  Outcome
	Message  string
	Progress float64
	CycleID  string
}

// A StatusSink displays status updates.
type StatusSink interface {
	SetStatus(Status)
}

// StatusFunc adapts a function to a StatusSink.
type StatusFunc func(Status)

// SetStatus calls f.
func (f StatusFunc) SetStatus(s Status) {
	f(s)
}

func downloadingMessage(progress float64) string {
	return fmt.Sprintf("Downloading... %d%%", int(progress*100))
}

func placedMessage(name string) string {
	return "Showing " + name
}
