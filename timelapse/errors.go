package timelapse

import "errors"

// ErrInvalidConfig marks configs rejected by validation. The current config
// is left untouched when a mutation fails with it.
var ErrInvalidConfig = errors.New("invalid config")

// Outcome classifies the most recent capture attempt.
type Outcome string

const (
	// OutcomeNone means no capture has been attempted since the loop started.
	OutcomeNone Outcome = ""
	// OutcomeSuccess means the frame was captured and published.
	OutcomeSuccess Outcome = "success"
	// OutcomeCaptureError means the camera failed; the interval gate is not
	// advanced so the next cycle retries promptly.
	OutcomeCaptureError Outcome = "capture_error"
	// OutcomeStorageError means the frame was captured but could not be
	// published.
	OutcomeStorageError Outcome = "storage_error"
)

// State is the scheduler lifecycle state.
type State string

const (
	StateStopped  State = "stopped"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)
