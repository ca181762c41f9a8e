package camera

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Exec captures frames by running a still-capture command (rpicam-still,
// libcamera-still, fswebcam with compatible flags) and reading the encoded
// frame from stdout.
type Exec struct {
	binary  string
	args    []string
	timeout time.Duration
}

// ExecOption customises an Exec camera.
type ExecOption func(*Exec)

// WithArgs appends extra command-line arguments before the resolution flags.
func WithArgs(args ...string) ExecOption {
	return func(e *Exec) { e.args = append(e.args, args...) }
}

// WithTimeout bounds a single capture run. Default: 30s.
func WithTimeout(d time.Duration) ExecOption {
	return func(e *Exec) { e.timeout = d }
}

// NewExec creates an exec-backed camera. Default invocation:
//
//	<binary> [args...] --width W --height H --output -
func NewExec(binary string, opts ...ExecOption) *Exec {
	e := &Exec{
		binary:  binary,
		timeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Capture runs the capture command once. Any exec failure, timeout, or empty
// frame surfaces as *CaptureError.
func (e *Exec) Capture(ctx context.Context, res Resolution) ([]byte, error) {
	if !res.Valid() {
		return nil, &CaptureError{Reason: fmt.Sprintf("invalid resolution %dx%d", res.Width, res.Height)}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := append(append([]string{}, e.args...),
		"--width", strconv.Itoa(res.Width),
		"--height", strconv.Itoa(res.Height),
		"--output", "-",
	)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := "capture command failed"
		if ctx.Err() == context.DeadlineExceeded {
			reason = "capture timed out"
		}
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, &CaptureError{Reason: reason + ": " + string(msg), Err: err}
		}
		return nil, &CaptureError{Reason: reason, Err: err}
	}

	frame := stdout.Bytes()
	if len(frame) == 0 {
		return nil, &CaptureError{Reason: "capture produced an empty frame"}
	}
	return frame, nil
}
