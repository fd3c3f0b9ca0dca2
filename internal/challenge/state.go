package challenge

// State is the verification state shown to the operator.
type State int

const (
	// Idle accepts input.
	Idle State = iota
	// Submitting has one validate request in flight. Input is refused.
	Submitting
	// Succeeded is terminal. The success callback has run.
	Succeeded
	// RecoverableFailure shows an inline error. The next keystroke returns to Idle.
	RecoverableFailure
	// UnavailableFailure means the service did not answer before the watchdog.
	// Only Retry leaves it.
	UnavailableFailure
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case RecoverableFailure:
		return "recoverable_failure"
	case UnavailableFailure:
		return "unavailable_failure"
	default:
		return "unknown"
	}
}

// Terminal reports whether no input is accepted in s.
func (s State) Terminal() bool {
	return s == Succeeded || s == UnavailableFailure
}

// Snapshot is an immutable view of the dialog.
type Snapshot struct {
	State   State
	Input   string
	Message string
}

const (
	// MessageInvalidCode is shown when the service rejects the code.
	MessageInvalidCode = "Invalid verification code. Please try again."
	// MessageTimeout is shown when a request exceeds the per-request timeout.
	MessageTimeout = "Verification timed out. Please try again."
	// MessageFailed is shown for service errors without a public message.
	MessageFailed = "Could not verify the code. Please try again."
	// MessageUnavailable is shown once the watchdog fires.
	MessageUnavailable = "Verification service is unavailable. Please try again later."
)
