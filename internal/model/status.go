package model

// RequestState is the lifecycle state of one download submission
type RequestState string

const (
	// StateIdle means nothing has been submitted yet
	StateIdle RequestState = "idle"

	// StateInFlight means a request was sent and has not resolved
	StateInFlight RequestState = "in_flight"

	// StateSucceeded means the file was received and saved
	StateSucceeded RequestState = "succeeded"

	// StateFailed means the request ended with a user-facing error message
	StateFailed RequestState = "failed"
)

// String returns the string representation of RequestState
func (s RequestState) String() string {
	return string(s)
}

// RequestStatus is the status model rendered by the presentation layer.
// Message is only set for StateFailed.
type RequestStatus struct {
	State   RequestState `json:"state"`
	Message string       `json:"message,omitempty"`
	// SavedPath is where a successful download was written
	SavedPath string `json:"saved_path,omitempty"`
}

// Idle returns the initial status
func Idle() RequestStatus {
	return RequestStatus{State: StateIdle}
}

// InFlight returns the status of a pending submission
func InFlight() RequestStatus {
	return RequestStatus{State: StateInFlight}
}

// Succeeded returns a terminal success status
func Succeeded(savedPath string) RequestStatus {
	return RequestStatus{State: StateSucceeded, SavedPath: savedPath}
}

// Failed returns a terminal failure status carrying a user-facing message
func Failed(message string) RequestStatus {
	return RequestStatus{State: StateFailed, Message: message}
}

// IsActive returns true while a request is in flight
func (s RequestStatus) IsActive() bool {
	return s.State == StateInFlight
}

// IsFinished returns true for terminal states
func (s RequestStatus) IsFinished() bool {
	return s.State == StateSucceeded || s.State == StateFailed
}
