// CLAUDE:SUMMARY Camera capability boundary — Capture(ctx, resolution) -> frame bytes or CaptureError.
// Package camera is the capture capability boundary. The scheduler only ever
// sees "one frame at this resolution, or a CaptureError" — driver detail
// stays behind the interface.
package camera

import "context"

// Resolution is the requested frame size in pixels.
type Resolution struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Valid reports whether both dimensions are positive.
func (r Resolution) Valid() bool { return r.Width >= 1 && r.Height >= 1 }

// Camera acquires single still frames.
type Camera interface {
	// Capture returns one encoded frame at the given resolution. Hardware or
	// driver faults surface as *CaptureError.
	Capture(ctx context.Context, res Resolution) ([]byte, error)
}

// CaptureError is a camera-side failure. The capture loop records it and
// moves on; it never inspects Err beyond logging.
type CaptureError struct {
	Reason string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return "camera: " + e.Reason + ": " + e.Err.Error()
	}
	return "camera: " + e.Reason
}

func (e *CaptureError) Unwrap() error { return e.Err }
