package storage

import "time"

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeEmpty   Outcome = "empty"
	OutcomeError   Outcome = "error"
)

// Event is one audit line written per translate call.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	Email          string    `json:"email"`
	Kind           string    `json:"kind"`
	TargetLanguage string    `json:"targetLanguage"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	Outcome        Outcome   `json:"outcome"`
	ErrorKind      string    `json:"errorKind,omitempty"`
	ItemCount      int       `json:"itemCount"`
	RecordID       string    `json:"recordId,omitempty"`
	LatencyMs      int64     `json:"latencyMs"`
}

// Recorder persists audit events. LoadEvents returns them in append order.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendEvent(event Event) error
	LoadEvents() ([]Event, error)
}
