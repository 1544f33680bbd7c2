package touch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/herlein/captouch/pkg/sensor"
)

// Button runs the full pipeline for one capacitive pad: raw samples from a
// sensor.Reader are smoothed, compared against the calibrated baseline, and
// fed through the gesture state machine, which fires registered callbacks.
type Button struct {
	reader sensor.Reader

	// Configuration, handlers and the running flag, guarded by mu
	mu       sync.RWMutex
	config   *Config
	handlers map[Gesture]func()
	running  bool

	// Pipeline state, serialized by pollMu
	pollMu      sync.Mutex
	conditioner *Conditioner
	fsm         classifier
}

// pollParams is the per-poll snapshot of the mutable configuration, taken
// once per tick so setter calls never tear a poll in half.
type pollParams struct {
	threshold float64
	alpha     float64
	drift     float64
	stuck     time.Duration
	gesture   gestureParams
	interval  time.Duration
	failLimit int
	debug     bool
	clock     Clock
}

// New creates a Button reading from the given sensor. A nil config selects
// DefaultConfig. The button starts uncalibrated; run Calibrate before
// polling or monitoring.
func New(reader sensor.Reader, config *Config) (*Button, error) {
	if reader == nil {
		return nil, ErrNoSensor
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Button{
		reader:      reader,
		config:      config.clone(),
		handlers:    make(map[Gesture]func()),
		conditioner: NewConditioner(config.EMAAlpha),
	}, nil
}

// NewFromConfigFile creates a Button tuned from a JSON config file.
func NewFromConfigFile(reader sensor.Reader, configPath string) (*Button, error) {
	configFile, err := LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return New(reader, configFile.ToConfig())
}

// snapshot captures the configuration values one poll needs.
func (b *Button) snapshot() pollParams {
	b.mu.RLock()
	defer b.mu.RUnlock()

	c := b.config
	return pollParams{
		threshold: c.TouchThreshold,
		alpha:     c.EMAAlpha,
		drift:     c.BaselineDriftFactor,
		stuck:     c.StuckTouchTimeout,
		gesture: gestureParams{
			longPress:   c.LongPressTimeout,
			window:      c.DoubleClickDelay,
			doubleClick: c.DoubleClickEnabled,
		},
		interval:  c.PollInterval,
		failLimit: c.SensorFailureLimit,
		debug:     c.Debug,
		clock:     c.clock(),
	}
}

// Poll advances the pipeline one tick: read the sensor, smooth, classify
// touched/untouched, step the gesture machine, and dispatch any emitted
// gesture to its handler before returning.
func (b *Button) Poll() (PollResult, error) {
	b.pollMu.Lock()
	defer b.pollMu.Unlock()
	return b.poll(b.snapshot())
}

// poll is the tick body. Callers hold pollMu.
func (b *Button) poll(p pollParams) (PollResult, error) {
	if !b.conditioner.Calibrated() {
		return PollResult{}, ErrNotCalibrated
	}

	raw, err := b.reader.Read()
	if err != nil {
		return PollResult{}, fmt.Errorf("sensor read failed: %w", err)
	}

	now := p.clock.Now()
	b.conditioner.SetAlpha(p.alpha)
	touched := b.conditioner.Update(raw, p.threshold)
	b.conditioner.maintain(touched, now, p.drift, p.stuck)

	gesture, fired := b.fsm.step(touched, now, p.gesture)

	result := PollResult{
		Raw:       raw,
		Smoothed:  b.conditioner.Smoothed(),
		Baseline:  b.conditioner.Baseline(),
		Touched:   touched,
		State:     b.fsm.state,
		Gesture:   gesture,
		Fired:     fired,
		Timestamp: now,
	}

	if p.debug {
		b.debugf("poll: raw=%d smoothed=%.1f baseline=%.1f diff=%.1f touched=%v state=%s",
			raw, result.Smoothed, result.Baseline, result.Smoothed-result.Baseline,
			touched, result.State)
	}

	if fired {
		b.logDebug("gesture emitted", "gesture", gesture.String())
		b.dispatch(gesture)
	}

	return result, nil
}

// Monitor polls at the configured interval until ctx is cancelled, returning
// the context error. It refuses to start uncalibrated or while another
// Monitor is active. Individual sensor read failures are logged and skipped;
// hitting SensorFailureLimit consecutive failures aborts the loop. An
// interaction in progress at cancellation is discarded without a gesture.
func (b *Button) Monitor(ctx context.Context) error {
	if !b.conditioner.Calibrated() {
		return ErrNotCalibrated
	}

	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return ErrMonitorRunning
	}
	b.running = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()

		b.pollMu.Lock()
		b.fsm.reset()
		b.pollMu.Unlock()
	}()

	p := b.snapshot()
	b.logInfo("monitor started", "interval", p.interval)
	defer b.logInfo("monitor stopped")

	timer := p.clock.NewTimer(p.interval)
	defer timer.Stop()

	failures := 0
	for {
		// A cancelled context wins over a ready timer.
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C():
			b.pollMu.Lock()
			p = b.snapshot()
			_, err := b.poll(p)
			b.pollMu.Unlock()

			if err != nil {
				failures++
				b.logWarn("poll failed", "error", err, "consecutive", failures)
				if failures >= p.failLimit {
					return fmt.Errorf("%w: %d consecutive failures, last: %v",
						ErrSensorFailure, failures, err)
				}
			} else {
				failures = 0
			}

			timer.Reset(p.interval)
		}
	}
}

// dispatch invokes the handler registered for a gesture, if any. Handlers
// run synchronously on the polling goroutine, so the next poll waits for
// the handler to return.
func (b *Button) dispatch(g Gesture) {
	b.mu.RLock()
	handler := b.handlers[g]
	b.mu.RUnlock()

	if handler != nil {
		handler()
	}
}

// RegisterCallback installs the handler for one gesture kind, replacing any
// previous one. A nil handler deregisters the kind.
func (b *Button) RegisterCallback(g Gesture, handler func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handler == nil {
		delete(b.handlers, g)
		return
	}
	b.handlers[g] = handler
}

// SetConfig replaces the whole configuration. The baseline and smoothed
// value survive; recalibration is only needed when the pad itself changed.
func (b *Button) SetConfig(config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.config = config.clone()
	return nil
}

// Config returns a copy of the current configuration.
func (b *Button) Config() *Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.clone()
}

// SetTouchThreshold updates the touched decision level, effective from the
// next poll. In-flight interactions keep their timing rules but classify
// subsequent samples with the new threshold.
func (b *Button) SetTouchThreshold(threshold float64) error {
	if threshold <= 0 {
		return fmt.Errorf("%w: %.1f", ErrInvalidThreshold, threshold)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.config.TouchThreshold = threshold
	return nil
}

// SetEMAAlpha updates the smoothing coefficient, effective from the next
// poll. The smoothed value itself is carried over.
func (b *Button) SetEMAAlpha(alpha float64) error {
	if alpha <= 0 || alpha > 1 {
		return fmt.Errorf("%w: %.3f", ErrInvalidAlpha, alpha)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.config.EMAAlpha = alpha
	return nil
}

// SetPollInterval updates the monitor tick, effective from the next tick.
func (b *Button) SetPollInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: poll interval %v", ErrInvalidDuration, interval)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.config.PollInterval = interval
	return nil
}

// SetDoubleClickDelay updates the double-click window. An interaction
// already in progress finishes under the window it started with.
func (b *Button) SetDoubleClickDelay(delay time.Duration) error {
	if delay <= 0 {
		return fmt.Errorf("%w: double-click delay %v", ErrInvalidDuration, delay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.config.DoubleClickDelay = delay
	return nil
}

// SetLongPressTimeout updates the long-press hold duration. An interaction
// already in progress finishes under the timeout it started with.
func (b *Button) SetLongPressTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: long-press timeout %v", ErrInvalidDuration, timeout)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.config.LongPressTimeout = timeout
	return nil
}

// SetBaselineDriftFactor updates the per-poll baseline drift. Zero disables
// drift, the default.
func (b *Button) SetBaselineDriftFactor(factor float64) error {
	if factor < 0 || factor >= 1 {
		return fmt.Errorf("%w: %.3f", ErrInvalidDriftFactor, factor)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.config.BaselineDriftFactor = factor
	return nil
}

// EnableDoubleClick turns double-click detection on. Short touches wait out
// the double-click window before resolving to a single click.
func (b *Button) EnableDoubleClick() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config.DoubleClickEnabled = true
}

// DisableDoubleClick turns double-click detection off. Every short touch
// resolves to a single click immediately on release.
func (b *Button) DisableDoubleClick() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config.DoubleClickEnabled = false
}

// SetDebug toggles the per-poll diagnostic side channel. Classification is
// unaffected.
func (b *Button) SetDebug(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config.Debug = enabled
}

// Smoothed returns the current smoothed signal value.
func (b *Button) Smoothed() float64 {
	return b.conditioner.Smoothed()
}

// Baseline returns the calibrated untouched signal level.
func (b *Button) Baseline() float64 {
	return b.conditioner.Baseline()
}

// Calibrated reports whether calibration has assigned a baseline.
func (b *Button) Calibrated() bool {
	return b.conditioner.Calibrated()
}

// State returns the classifier state as of the last completed poll.
func (b *Button) State() State {
	b.pollMu.Lock()
	defer b.pollMu.Unlock()
	return b.fsm.state
}

// IsRunning reports whether a Monitor loop is active.
func (b *Button) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// debugf emits a line on the diagnostic side channel: the DebugLog callback
// when set, otherwise the structured logger at debug level.
func (b *Button) debugf(format string, args ...interface{}) {
	b.mu.RLock()
	debugLog := b.config.DebugLog
	logger := b.config.Logger
	b.mu.RUnlock()

	if debugLog != nil {
		debugLog(format, args...)
		return
	}
	if logger != nil {
		logger.Debug(fmt.Sprintf(format, args...))
	}
}

func (b *Button) logger() *slog.Logger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.Logger
}

func (b *Button) logDebug(msg string, args ...interface{}) {
	if l := b.logger(); l != nil {
		l.Debug(msg, args...)
	}
}

func (b *Button) logInfo(msg string, args ...interface{}) {
	if l := b.logger(); l != nil {
		l.Info(msg, args...)
	}
}

func (b *Button) logWarn(msg string, args ...interface{}) {
	if l := b.logger(); l != nil {
		l.Warn(msg, args...)
	}
}
