// CLAUDE:SUMMARY Schedule configuration — YAML persisted, validated, swapped wholesale on reload.
package timelapse

import (
	"fmt"
	"time"

	"github.com/hazyhaar/lapse/camera"
	"github.com/hazyhaar/lapse/schedule"
)

// Config is the schedule configuration. It is replaced wholesale on every
// reload — the capture loop only ever sees a complete, validated value.
type Config struct {
	StartTime       schedule.TimeOfDay `yaml:"start_time" json:"start_time"`
	EndTime         schedule.TimeOfDay `yaml:"end_time" json:"end_time"`
	ActiveDays      schedule.DaySet    `yaml:"active_days" json:"active_days"`
	IntervalSeconds int                `yaml:"interval_seconds" json:"interval_seconds"`
	OutputRoot      string             `yaml:"output_root" json:"output_root"`
	Resolution      camera.Resolution  `yaml:"resolution" json:"resolution"`
}

// DefaultConfig mirrors the defaults the service has always shipped with:
// every day, 08:00–18:00, one frame a minute, full sensor resolution.
func DefaultConfig() Config {
	return Config{
		StartTime:       schedule.MustTimeOfDay("08:00"),
		EndTime:         schedule.MustTimeOfDay("18:00"),
		ActiveDays:      schedule.AllDays(),
		IntervalSeconds: 60,
		OutputRoot:      "timelapse_images",
		Resolution:      camera.Resolution{Width: 9152, Height: 6944},
	}
}

// Validate rejects configs the scheduler cannot honour. All failures wrap
// ErrInvalidConfig so the control surface can map them to a 400.
func (c Config) Validate() error {
	if c.StartTime >= c.EndTime {
		return fmt.Errorf("%w: start_time %s must be before end_time %s (overnight windows are not supported)",
			ErrInvalidConfig, c.StartTime, c.EndTime)
	}
	if c.IntervalSeconds < 1 {
		return fmt.Errorf("%w: interval_seconds must be >= 1, got %d", ErrInvalidConfig, c.IntervalSeconds)
	}
	if c.OutputRoot == "" {
		return fmt.Errorf("%w: output_root is required", ErrInvalidConfig)
	}
	if !c.Resolution.Valid() {
		return fmt.Errorf("%w: resolution %dx%d must be positive",
			ErrInvalidConfig, c.Resolution.Width, c.Resolution.Height)
	}
	// An empty active_days set is legal: it means "never capture".
	return nil
}

// Interval returns the capture spacing as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Plan projects the config onto the schedule evaluator's input.
func (c Config) Plan() schedule.Plan {
	return schedule.Plan{
		Start:    c.StartTime,
		End:      c.EndTime,
		Days:     c.ActiveDays,
		Interval: c.Interval(),
	}
}
