// CLAUDE:SUMMARY Capture scheduler: a single goroutine that evaluates the schedule, drives the camera and storage, and exposes start/stop/status/reload control.
package timelapse

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/lapse/camera"
	"github.com/hazyhaar/lapse/index"
	"github.com/hazyhaar/lapse/schedule"
	"github.com/hazyhaar/lapse/storage"
)

// Status is a point-in-time snapshot of the scheduler. Optional fields are
// pointers so an unset value serializes as absent rather than a zero time.
type Status struct {
	Running         bool       `json:"running"`
	State           State      `json:"state"`
	LastCaptureTime *time.Time `json:"last_capture_time,omitempty"`
	LastOutcome     Outcome    `json:"last_capture_outcome,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	NextDue         *time.Time `json:"next_due,omitempty"`
}

type options struct {
	logger     *slog.Logger
	ix         *index.Index
	clock      func() time.Time
	maxSleep   time.Duration
	retryDelay time.Duration
}

func defaults() options {
	return options{
		logger:     slog.Default(),
		clock:      time.Now,
		maxSleep:   30 * time.Second,
		retryDelay: 5 * time.Second,
	}
}

// Option configures a Service.
type Option func(*options)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithIndex attaches a capture journal. Journal failures are logged and never
// block or fail a capture.
func WithIndex(ix *index.Index) Option {
	return func(o *options) { o.ix = ix }
}

// WithClock overrides the time source used for schedule evaluation.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithMaxSleep caps how long the loop sleeps between due-checks, which bounds
// how stale the schedule evaluation can get.
func WithMaxSleep(d time.Duration) Option {
	return func(o *options) { o.maxSleep = d }
}

// WithRetryDelay sets the pause after a failed capture before the next
// attempt, so a persistently broken camera does not spin the loop.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.retryDelay = d }
}

// Service owns the capture loop. All exported methods are safe for
// concurrent use.
type Service struct {
	cam   camera.Camera
	store *Store
	opts  options

	cfg atomic.Pointer[Config]

	// wake is poked after a config swap so the loop re-evaluates
	// immediately instead of finishing its current sleep.
	wake chan struct{}

	mu          sync.Mutex
	state       State
	lastCapture time.Time
	lastOutcome Outcome
	lastErr     error
	nextDue     time.Time
	cancel      context.CancelFunc
	done        chan struct{}
}

// New loads the persisted config (falling back to defaults when the file is
// missing) and returns a stopped Service.
func New(cam camera.Camera, store *Store, opts ...Option) (*Service, error) {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	cfg, err := store.Load()
	if err != nil {
		return nil, err
	}
	s := &Service{
		cam:   cam,
		store: store,
		opts:  o,
		wake:  make(chan struct{}, 1),
		state: StateStopped,
	}
	s.cfg.Store(&cfg)
	return s, nil
}

// Config returns the active configuration.
func (s *Service) Config() Config {
	return *s.cfg.Load()
}

// SetConfig validates, persists, and applies a new configuration. The
// running loop picks it up at its next due-check without restarting, and the
// interval gate carries over.
func (s *Service) SetConfig(cfg Config) error {
	if err := s.store.Save(cfg); err != nil {
		return err
	}
	s.apply(cfg)
	return nil
}

// Reload applies a configuration to the running loop without persisting it.
func (s *Service) Reload(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.apply(cfg)
	return nil
}

// ReloadFromDisk re-reads the persisted configuration and applies it. A
// no-op when the file content matches the active config.
func (s *Service) ReloadFromDisk() error {
	cfg, err := s.store.Load()
	if err != nil {
		return err
	}
	if cfg == *s.cfg.Load() {
		return nil
	}
	s.apply(cfg)
	return nil
}

func (s *Service) apply(cfg Config) {
	s.cfg.Store(&cfg)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	s.opts.logger.Info("config applied",
		"window", cfg.StartTime.String()+"-"+cfg.EndTime.String(),
		"interval_seconds", cfg.IntervalSeconds,
		"days", cfg.ActiveDays.String())
}

// Start launches the capture loop. Calling Start on a running service is a
// no-op that returns the current status.
func (s *Service) Start() Status {
	s.mu.Lock()
	if s.state != StateStopped {
		st := s.statusLocked()
		s.mu.Unlock()
		return st
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.state = StateRunning
	s.lastCapture = time.Time{}
	s.lastOutcome = OutcomeNone
	s.lastErr = nil
	s.nextDue = time.Time{}
	s.cancel = cancel
	s.done = done
	st := s.statusLocked()
	s.mu.Unlock()

	go s.run(ctx, done)
	s.opts.logger.Info("scheduler started")
	return st
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
// Stopping a stopped service is a no-op.
func (s *Service) Stop() Status {
	s.mu.Lock()
	if s.state != StateRunning {
		st := s.statusLocked()
		s.mu.Unlock()
		return st
	}
	s.state = StateStopping
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.state = StateStopped
	s.nextDue = time.Time{}
	st := s.statusLocked()
	s.mu.Unlock()
	s.opts.logger.Info("scheduler stopped")
	return st
}

// Status returns a snapshot of the scheduler state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Service) statusLocked() Status {
	st := Status{
		Running:     s.state == StateRunning,
		State:       s.state,
		LastOutcome: s.lastOutcome,
	}
	if !s.lastCapture.IsZero() {
		t := s.lastCapture
		st.LastCaptureTime = &t
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if !s.nextDue.IsZero() {
		t := s.nextDue
		st.NextDue = &t
	}
	return st
}

func (s *Service) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cfg := *s.cfg.Load()
		plan := cfg.Plan()
		now := s.opts.clock()

		s.mu.Lock()
		last := s.lastCapture
		s.mu.Unlock()

		var wait time.Duration
		if schedule.IsDue(plan, last, now) {
			if s.capture(ctx, cfg, now) {
				last = now
				wait = cfg.Interval()
			} else {
				wait = s.opts.retryDelay
			}
		} else if schedule.InWindow(plan, now) && !last.IsZero() {
			wait = cfg.Interval() - now.Sub(last)
		} else if next, ok := schedule.NextEligible(plan, now); ok {
			wait = next.Sub(now)
		} else {
			// Never eligible with this config. Sleep in bounded
			// slices so a reload still gets picked up.
			wait = s.opts.maxSleep
		}

		s.mu.Lock()
		if due, ok := schedule.NextDue(plan, last, s.opts.clock()); ok {
			s.nextDue = due
		} else {
			s.nextDue = time.Time{}
		}
		s.mu.Unlock()

		if wait > s.opts.maxSleep {
			wait = s.opts.maxSleep
		}
		if wait < 10*time.Millisecond {
			wait = 10 * time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// capture runs one camera-to-storage cycle. The interval gate only advances
// on success so a failed frame is retried after the retry delay rather than
// leaving a hole the length of the interval.
func (s *Service) capture(ctx context.Context, cfg Config, now time.Time) bool {
	data, err := s.cam.Capture(ctx, cfg.Resolution)
	if err != nil {
		s.opts.logger.Warn("capture failed", "error", err)
		s.record(OutcomeCaptureError, err, time.Time{})
		s.logEvent(ctx, "camera_error", err.Error(), false)
		return false
	}

	rec, err := storage.New(cfg.OutputRoot).Store(data, now)
	if err != nil {
		s.opts.logger.Error("store failed", "error", err)
		s.record(OutcomeStorageError, err, time.Time{})
		s.logEvent(ctx, "storage_error", err.Error(), false)
		return false
	}

	s.record(OutcomeSuccess, nil, now)
	s.opts.logger.Info("captured", "path", rec.Path, "size_bytes", rec.Size)
	if s.opts.ix != nil {
		if err := s.opts.ix.RecordCapture(ctx, rec); err != nil {
			s.opts.logger.Warn("index record failed", "error", err)
		}
		s.logEvent(ctx, "capture", rec.Path, true)
	}
	return true
}

// record updates the outcome fields. A zero at leaves lastCapture untouched.
func (s *Service) record(outcome Outcome, err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOutcome = outcome
	s.lastErr = err
	if !at.IsZero() {
		s.lastCapture = at
	}
}

func (s *Service) logEvent(ctx context.Context, typ, detail string, success bool) {
	if s.opts.ix == nil {
		return
	}
	s.opts.ix.LogEvent(ctx, index.Event{Type: typ, Detail: detail, Success: success})
}
