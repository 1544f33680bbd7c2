package touch

import (
	"fmt"
	"log/slog"
	"time"
)

// Config holds the tunable parameters of the touch pipeline. Start from
// DefaultConfig and override; a zero Config does not validate.
type Config struct {
	// Signal conditioning
	TouchThreshold float64 // smoothed-above-baseline delta that counts as touched
	EMAAlpha       float64 // smoothing coefficient, in (0, 1]

	// Timing
	PollInterval     time.Duration // monitor loop tick
	DoubleClickDelay time.Duration // release-to-second-touch window
	LongPressTimeout time.Duration // continuous touch duration for a long press

	// Gestures
	DoubleClickEnabled bool // when false, every short touch is an immediate click

	// Calibration
	CalibrationSamples     int           // smoothed samples averaged per attempt
	CalibrationInterval    time.Duration // spacing between calibration samples
	CalibrationMaxAttempts int           // retry budget
	CalibrationMaxSpread   float64       // stability bound for the first attempt
	CalibrationRelax       float64       // spread allowance multiplier per retry, >= 1

	// Baseline maintenance, both off at zero
	BaselineDriftFactor float64       // per-poll pull of the baseline toward the idle signal
	StuckTouchTimeout   time.Duration // continuous touch duration after which the pad rebaselines

	// Monitoring
	SensorFailureLimit int // consecutive read failures before the monitor gives up

	// Diagnostics
	Debug    bool
	DebugLog func(format string, args ...interface{}) // used for debug output when set, else Logger
	Logger   *slog.Logger                             // optional structured logger, nil disables

	// Clock abstracts time for tests; nil means the system clock.
	Clock Clock
}

// DefaultConfig returns a Config with the stock tuning: 500-unit threshold,
// 0.1 alpha, 10ms polls, 300ms double-click window, 1s long press, and
// double clicks enabled.
func DefaultConfig() *Config {
	return &Config{
		TouchThreshold:         DefaultTouchThreshold,
		EMAAlpha:               DefaultEMAAlpha,
		PollInterval:           DefaultPollInterval,
		DoubleClickDelay:       DefaultDoubleClickDelay,
		LongPressTimeout:       DefaultLongPressTimeout,
		DoubleClickEnabled:     true,
		CalibrationSamples:     DefaultCalibrationSamples,
		CalibrationInterval:    DefaultCalibrationInterval,
		CalibrationMaxAttempts: DefaultCalibrationMaxAttempts,
		CalibrationMaxSpread:   DefaultCalibrationMaxSpread,
		CalibrationRelax:       DefaultCalibrationRelax,
		SensorFailureLimit:     DefaultSensorFailureLimit,
	}
}

// Validate checks parameter ranges.
func (c *Config) Validate() error {
	if c.TouchThreshold <= 0 {
		return fmt.Errorf("%w: %.1f, must be positive", ErrInvalidThreshold, c.TouchThreshold)
	}
	if c.EMAAlpha <= 0 || c.EMAAlpha > 1 {
		return fmt.Errorf("%w: %.3f, must be in (0, 1]", ErrInvalidAlpha, c.EMAAlpha)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval %v", ErrInvalidDuration, c.PollInterval)
	}
	if c.DoubleClickDelay <= 0 {
		return fmt.Errorf("%w: double-click delay %v", ErrInvalidDuration, c.DoubleClickDelay)
	}
	if c.LongPressTimeout <= 0 {
		return fmt.Errorf("%w: long-press timeout %v", ErrInvalidDuration, c.LongPressTimeout)
	}
	if c.CalibrationSamples < 1 {
		return fmt.Errorf("%w: sample count %d", ErrInvalidCalibration, c.CalibrationSamples)
	}
	if c.CalibrationInterval <= 0 {
		return fmt.Errorf("%w: sample interval %v", ErrInvalidCalibration, c.CalibrationInterval)
	}
	if c.CalibrationMaxAttempts < 1 {
		return fmt.Errorf("%w: attempt budget %d", ErrInvalidCalibration, c.CalibrationMaxAttempts)
	}
	if c.CalibrationMaxSpread <= 0 {
		return fmt.Errorf("%w: max spread %.1f", ErrInvalidCalibration, c.CalibrationMaxSpread)
	}
	if c.CalibrationRelax < 1 {
		return fmt.Errorf("%w: relax factor %.2f, must be >= 1", ErrInvalidCalibration, c.CalibrationRelax)
	}
	if c.BaselineDriftFactor < 0 || c.BaselineDriftFactor >= 1 {
		return fmt.Errorf("%w: %.3f, must be in [0, 1)", ErrInvalidDriftFactor, c.BaselineDriftFactor)
	}
	if c.StuckTouchTimeout < 0 {
		return fmt.Errorf("%w: stuck-touch timeout %v", ErrInvalidDuration, c.StuckTouchTimeout)
	}
	if c.SensorFailureLimit < 1 {
		return fmt.Errorf("%w: sensor failure limit %d", ErrInvalidLimit, c.SensorFailureLimit)
	}
	return nil
}

// clone returns a copy so callers can hand the same Config to several
// buttons without sharing mutable state.
func (c *Config) clone() *Config {
	dup := *c
	return &dup
}

// clock returns the configured clock, defaulting to the system clock.
func (c *Config) clock() Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return systemClock{}
}
