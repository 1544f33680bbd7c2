package touch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/herlein/captouch/pkg/sensor"
	"github.com/herlein/captouch/pkg/touch"
	"github.com/stretchr/testify/require"
)

// testConfig returns a default config on a fresh fake clock.
func testConfig(mutate func(*touch.Config)) *touch.Config {
	cfg := touch.DefaultConfig()
	cfg.Clock = newFakeClock()
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

// newTestButton wires a Button to a scripted reader and a fake clock.
func newTestButton(t *testing.T, samples []int, loop bool, mutate func(*touch.Config)) (*touch.Button, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	cfg := touch.DefaultConfig()
	cfg.Clock = clock
	if mutate != nil {
		mutate(cfg)
	}

	replay, err := sensor.NewReplay(samples, loop)
	require.NoError(t, err)

	btn, err := touch.New(replay, cfg)
	require.NoError(t, err)
	return btn, clock
}

// gestureConfig keeps scripts short: single-sample calibration, no smoothing
// lag, 300-unit threshold, 1s long press, 300ms double-click window.
func gestureConfig(c *touch.Config) {
	c.CalibrationSamples = 1
	c.EMAAlpha = 1
	c.TouchThreshold = 300
	c.LongPressTimeout = time.Second
	c.DoubleClickDelay = 300 * time.Millisecond
}

type counters struct {
	clicks, doubles, longs int
}

func countGestures(btn *touch.Button) *counters {
	c := &counters{}
	btn.RegisterCallback(touch.SingleClick, func() { c.clicks++ })
	btn.RegisterCallback(touch.DoubleClick, func() { c.doubles++ })
	btn.RegisterCallback(touch.LongPress, func() { c.longs++ })
	return c
}

// pollN advances the clock by step before each of n polls.
func pollN(t *testing.T, btn *touch.Button, clock *fakeClock, step time.Duration, n int) []touch.PollResult {
	t.Helper()

	results := make([]touch.PollResult, 0, n)
	for i := 0; i < n; i++ {
		clock.advance(step)
		res, err := btn.Poll()
		require.NoError(t, err)
		results = append(results, res)
	}
	return results
}

func TestNewRequiresReader(t *testing.T) {
	_, err := touch.New(nil, nil)
	require.ErrorIs(t, err, touch.ErrNoSensor)
}

func TestNewValidatesConfig(t *testing.T) {
	replay, err := sensor.NewReplay([]int{1000}, true)
	require.NoError(t, err)

	cfg := touch.DefaultConfig()
	cfg.TouchThreshold = -1
	_, err = touch.New(replay, cfg)
	require.ErrorIs(t, err, touch.ErrInvalidThreshold)
}

func TestNewDefaultsNilConfig(t *testing.T) {
	replay, err := sensor.NewReplay([]int{1000}, true)
	require.NoError(t, err)

	btn, err := touch.New(replay, nil)
	require.NoError(t, err)
	require.Equal(t, touch.DefaultTouchThreshold, btn.Config().TouchThreshold)
	require.True(t, btn.Config().DoubleClickEnabled)
}

func TestPollRequiresCalibration(t *testing.T) {
	btn, _ := newTestButton(t, []int{1000}, false, nil)
	_, err := btn.Poll()
	require.ErrorIs(t, err, touch.ErrNotCalibrated)
}

func TestConfigReturnsCopy(t *testing.T) {
	btn, _ := newTestButton(t, []int{1000}, false, nil)
	cfg := btn.Config()
	cfg.TouchThreshold = 123
	require.Equal(t, touch.DefaultTouchThreshold, btn.Config().TouchThreshold)
}

func TestNoGestureBelowThreshold(t *testing.T) {
	btn, clock := newTestButton(t, []int{1000, 1100, 1200, 1100, 1000}, false, gestureConfig)
	require.NoError(t, btn.Calibrate(context.Background()))
	counts := countGestures(btn)

	results := pollN(t, btn, clock, 100*time.Millisecond, 4)
	for _, res := range results {
		require.False(t, res.Touched)
		require.False(t, res.Fired)
		require.Equal(t, touch.StateIdle, res.State)
	}
	require.Zero(t, counts.clicks+counts.doubles+counts.longs)
}

func TestLongPressFiresOnceAtBoundary(t *testing.T) {
	btn, clock := newTestButton(t, []int{1000, 1400, 1400, 1400, 1000}, false, gestureConfig)
	require.NoError(t, btn.Calibrate(context.Background()))
	counts := countGestures(btn)

	results := pollN(t, btn, clock, 500*time.Millisecond, 4)

	require.Equal(t, touch.StatePressed, results[0].State)
	require.False(t, results[1].Fired) // 500ms held, below the 1s timeout

	// Held for exactly the timeout: fires.
	require.True(t, results[2].Fired)
	require.Equal(t, touch.LongPress, results[2].Gesture)
	require.Equal(t, touch.StateLongPressFired, results[2].State)

	// Release after a long press is silent.
	require.False(t, results[3].Fired)
	require.Equal(t, touch.StateIdle, results[3].State)

	require.Equal(t, 1, counts.longs)
	require.Zero(t, counts.clicks)
	require.Zero(t, counts.doubles)
}

func TestDoubleClick(t *testing.T) {
	btn, clock := newTestButton(t, []int{1000, 1400, 1000, 1400, 1000}, false, gestureConfig)
	require.NoError(t, btn.Calibrate(context.Background()))
	counts := countGestures(btn)

	results := pollN(t, btn, clock, 100*time.Millisecond, 4)

	require.Equal(t, touch.StatePressed, results[0].State)
	require.Equal(t, touch.StateWaitingSecondClick, results[1].State)
	require.Equal(t, touch.StatePressed, results[2].State)

	require.True(t, results[3].Fired)
	require.Equal(t, touch.DoubleClick, results[3].Gesture)
	require.Equal(t, touch.StateIdle, results[3].State) // finalized state folds to idle within the poll

	require.Equal(t, 1, counts.doubles)
	require.Zero(t, counts.clicks)
	require.Zero(t, counts.longs)
}

func TestSingleClickAfterWindowExpiry(t *testing.T) {
	btn, clock := newTestButton(t, []int{1000, 1400, 1000, 1000, 1000, 1000, 1000}, false, gestureConfig)
	require.NoError(t, btn.Calibrate(context.Background()))
	counts := countGestures(btn)

	results := pollN(t, btn, clock, 100*time.Millisecond, 6)

	require.Equal(t, touch.StateWaitingSecondClick, results[1].State)
	require.False(t, results[2].Fired)
	require.False(t, results[3].Fired)
	require.False(t, results[4].Fired) // at exactly the window the wait continues

	require.True(t, results[5].Fired)
	require.Equal(t, touch.SingleClick, results[5].Gesture)
	require.Equal(t, 1, counts.clicks)
	require.Zero(t, counts.doubles)
}

func TestSecondTouchAtWindowBoundary(t *testing.T) {
	btn, clock := newTestButton(t, []int{1000, 1400, 1000, 1000, 1000, 1400, 1000}, false, gestureConfig)
	require.NoError(t, btn.Calibrate(context.Background()))
	counts := countGestures(btn)

	results := pollN(t, btn, clock, 100*time.Millisecond, 6)

	// The second touch lands exactly at the window boundary and is accepted.
	require.Equal(t, touch.StatePressed, results[4].State)
	require.True(t, results[5].Fired)
	require.Equal(t, touch.DoubleClick, results[5].Gesture)
	require.Equal(t, 1, counts.doubles)
	require.Zero(t, counts.clicks)
}

func TestImmediateClickWhenDoubleClickDisabled(t *testing.T) {
	btn, clock := newTestButton(t, []int{1000, 1400, 1000}, false, func(c *touch.Config) {
		gestureConfig(c)
		c.DoubleClickEnabled = false
	})
	require.NoError(t, btn.Calibrate(context.Background()))
	counts := countGestures(btn)

	results := pollN(t, btn, clock, 100*time.Millisecond, 2)

	require.True(t, results[1].Fired)
	require.Equal(t, touch.SingleClick, results[1].Gesture)
	require.Equal(t, 1, counts.clicks)
}

func TestHeldSecondClickResolvesAsDoubleClick(t *testing.T) {
	samples := []int{1000, 1400, 1000, 1400, 1400, 1400, 1400, 1400, 1000}
	btn, clock := newTestButton(t, samples, false, func(c *touch.Config) {
		gestureConfig(c)
		c.LongPressTimeout = 300 * time.Millisecond
	})
	require.NoError(t, btn.Calibrate(context.Background()))
	counts := countGestures(btn)

	pollN(t, btn, clock, 100*time.Millisecond, 8)

	// The second touch was held far past the long-press timeout; it still
	// resolves as a double click on release and no long press fires.
	require.Equal(t, 1, counts.doubles)
	require.Zero(t, counts.longs)
	require.Zero(t, counts.clicks)
}

func TestNoThirdClickChaining(t *testing.T) {
	samples := []int{1000, 1400, 1000, 1400, 1000, 1400, 1000, 1000, 1000, 1000, 1000}
	btn, clock := newTestButton(t, samples, false, gestureConfig)
	require.NoError(t, btn.Calibrate(context.Background()))
	counts := countGestures(btn)

	pollN(t, btn, clock, 100*time.Millisecond, 10)

	// First two touch pairs make a double click; the third pair starts a
	// fresh interaction and resolves as a delayed single click.
	require.Equal(t, 1, counts.doubles)
	require.Equal(t, 1, counts.clicks)
	require.Zero(t, counts.longs)
}

func TestSmoothingDelaysTouchAssertion(t *testing.T) {
	samples := []int{1000, 1000, 1000, 1000, 1600, 1600, 1600}
	btn, clock := newTestButton(t, samples, false, func(c *touch.Config) {
		c.CalibrationSamples = 2
		c.EMAAlpha = 0.3
		c.TouchThreshold = 300
		c.LongPressTimeout = time.Second
	})
	require.NoError(t, btn.Calibrate(context.Background()))
	require.InDelta(t, 1000.0, btn.Baseline(), 1e-9)
	counts := countGestures(btn)

	results := pollN(t, btn, clock, 500*time.Millisecond, 6)

	// The raw step to 1600 crosses the threshold only once the average
	// catches up, one poll after the step.
	require.False(t, results[2].Touched)
	require.InDelta(t, 1180.0, results[2].Smoothed, 0.001)

	require.True(t, results[3].Touched)
	require.InDelta(t, 1306.0, results[3].Smoothed, 0.001)

	require.False(t, results[4].Fired)
	require.True(t, results[5].Fired)
	require.Equal(t, touch.LongPress, results[5].Gesture)
	require.Equal(t, 1, counts.longs)
}

func TestThresholdChangeAppliesNextPoll(t *testing.T) {
	btn, clock := newTestButton(t, []int{1000, 1400, 1400, 1400}, false, gestureConfig)
	require.NoError(t, btn.Calibrate(context.Background()))

	results := pollN(t, btn, clock, 100*time.Millisecond, 1)
	require.True(t, results[0].Touched)

	require.NoError(t, btn.SetTouchThreshold(500))
	results = pollN(t, btn, clock, 100*time.Millisecond, 1)
	require.False(t, results[0].Touched) // same signal, higher bar

	require.ErrorIs(t, btn.SetTouchThreshold(0), touch.ErrInvalidThreshold)
	require.Equal(t, 500.0, btn.Config().TouchThreshold)
}

func TestTimingLatchedAtTouchStart(t *testing.T) {
	samples := []int{1000, 1400, 1000, 1000, 1000, 1000, 1000, 1400, 1000, 1000, 1000}
	btn, clock := newTestButton(t, samples, false, gestureConfig)
	require.NoError(t, btn.Calibrate(context.Background()))
	counts := countGestures(btn)

	// First interaction latched the 300ms window at touch-down, so widening
	// the configured window mid-wait does not stretch it.
	pollN(t, btn, clock, 100*time.Millisecond, 2) // touch, release
	require.NoError(t, btn.SetDoubleClickDelay(10*time.Second))
	pollN(t, btn, clock, 100*time.Millisecond, 4)
	require.Equal(t, 1, counts.clicks)

	// The next interaction latches the widened window.
	pollN(t, btn, clock, 100*time.Millisecond, 2) // touch, release
	pollN(t, btn, clock, 100*time.Millisecond, 2) // 200ms into the 10s window
	require.Equal(t, touch.StateWaitingSecondClick, btn.State())
	require.Equal(t, 1, counts.clicks)

	clock.advance(11 * time.Second)
	res, err := btn.Poll()
	require.NoError(t, err)
	require.True(t, res.Fired)
	require.Equal(t, touch.SingleClick, res.Gesture)
	require.Equal(t, 2, counts.clicks)
}

func TestDispatchReplacesHandler(t *testing.T) {
	btn, clock := newTestButton(t, []int{1000, 1400, 1000}, false, func(c *touch.Config) {
		gestureConfig(c)
		c.DoubleClickEnabled = false
	})
	require.NoError(t, btn.Calibrate(context.Background()))

	first, second := 0, 0
	btn.RegisterCallback(touch.SingleClick, func() { first++ })
	btn.RegisterCallback(touch.SingleClick, func() { second++ })

	pollN(t, btn, clock, 100*time.Millisecond, 2)
	require.Zero(t, first)
	require.Equal(t, 1, second)
}

func TestDispatchWithoutHandler(t *testing.T) {
	btn, clock := newTestButton(t, []int{1000, 1400, 1000}, false, func(c *touch.Config) {
		gestureConfig(c)
		c.DoubleClickEnabled = false
	})
	require.NoError(t, btn.Calibrate(context.Background()))

	handled := 0
	btn.RegisterCallback(touch.SingleClick, func() { handled++ })
	btn.RegisterCallback(touch.SingleClick, nil) // deregister

	results := pollN(t, btn, clock, 100*time.Millisecond, 2)
	require.True(t, results[1].Fired) // the result still reports the gesture
	require.Zero(t, handled)
}

func TestStuckTouchRebaselines(t *testing.T) {
	samples := []int{1000, 1600, 1600, 1600, 1600, 1600, 1600, 1600}
	btn, clock := newTestButton(t, samples, false, func(c *touch.Config) {
		gestureConfig(c)
		c.LongPressTimeout = 300 * time.Millisecond
		c.StuckTouchTimeout = time.Second
	})
	require.NoError(t, btn.Calibrate(context.Background()))
	counts := countGestures(btn)

	results := pollN(t, btn, clock, 200*time.Millisecond, 7)

	require.Equal(t, 1, counts.longs) // fired while genuinely held

	// After a full second of continuous touch the level is adopted as the
	// new baseline and the phantom touch clears without a click.
	require.InDelta(t, 1600.0, results[5].Baseline, 1e-9)
	require.False(t, results[6].Touched)
	require.Equal(t, touch.StateIdle, results[6].State)
	require.Zero(t, counts.clicks)
}

func TestBaselineDrift(t *testing.T) {
	btn, clock := newTestButton(t, []int{1000, 1020, 990}, false, func(c *touch.Config) {
		gestureConfig(c)
		c.BaselineDriftFactor = 0.1
	})
	require.NoError(t, btn.Calibrate(context.Background()))

	results := pollN(t, btn, clock, 100*time.Millisecond, 2)

	// Upward creep is tracked slowly; a drop below baseline snaps down.
	require.InDelta(t, 1002.0, results[0].Baseline, 1e-9)
	require.InDelta(t, 990.0, results[1].Baseline, 1e-9)
}

func TestSetterValidation(t *testing.T) {
	btn, _ := newTestButton(t, []int{1000}, false, nil)

	require.ErrorIs(t, btn.SetEMAAlpha(0), touch.ErrInvalidAlpha)
	require.ErrorIs(t, btn.SetEMAAlpha(1.01), touch.ErrInvalidAlpha)
	require.ErrorIs(t, btn.SetPollInterval(0), touch.ErrInvalidDuration)
	require.ErrorIs(t, btn.SetDoubleClickDelay(0), touch.ErrInvalidDuration)
	require.ErrorIs(t, btn.SetLongPressTimeout(-time.Second), touch.ErrInvalidDuration)
	require.ErrorIs(t, btn.SetBaselineDriftFactor(1), touch.ErrInvalidDriftFactor)

	require.NoError(t, btn.SetEMAAlpha(0.5))
	require.NoError(t, btn.SetPollInterval(20*time.Millisecond))
	require.NoError(t, btn.SetDoubleClickDelay(250*time.Millisecond))
	require.NoError(t, btn.SetLongPressTimeout(2*time.Second))
	require.NoError(t, btn.SetBaselineDriftFactor(0.01))

	cfg := btn.Config()
	require.Equal(t, 0.5, cfg.EMAAlpha)
	require.Equal(t, 20*time.Millisecond, cfg.PollInterval)
	require.Equal(t, 250*time.Millisecond, cfg.DoubleClickDelay)
	require.Equal(t, 2*time.Second, cfg.LongPressTimeout)
	require.Equal(t, 0.01, cfg.BaselineDriftFactor)
}

func TestDoubleClickToggle(t *testing.T) {
	btn, _ := newTestButton(t, []int{1000}, false, nil)
	require.True(t, btn.Config().DoubleClickEnabled)

	btn.DisableDoubleClick()
	require.False(t, btn.Config().DoubleClickEnabled)

	btn.EnableDoubleClick()
	require.True(t, btn.Config().DoubleClickEnabled)
}

func TestSetConfigValidatesAndKeepsBaseline(t *testing.T) {
	btn, clock := newTestButton(t, []int{1000, 1000}, false, gestureConfig)
	require.NoError(t, btn.Calibrate(context.Background()))

	bad := touch.DefaultConfig()
	bad.EMAAlpha = 2
	require.ErrorIs(t, btn.SetConfig(bad), touch.ErrInvalidAlpha)

	next := touch.DefaultConfig()
	next.TouchThreshold = 50
	next.Clock = clock
	require.NoError(t, btn.SetConfig(next))

	require.True(t, btn.Calibrated())
	require.InDelta(t, 1000.0, btn.Baseline(), 1e-9)
	require.Equal(t, 50.0, btn.Config().TouchThreshold)
}

func TestDebugLogSideChannel(t *testing.T) {
	var lines []string
	btn, clock := newTestButton(t, []int{1000, 1000}, false, func(c *touch.Config) {
		gestureConfig(c)
		c.Debug = true
		c.DebugLog = func(format string, args ...interface{}) {
			lines = append(lines, fmt.Sprintf(format, args...))
		}
	})
	require.NoError(t, btn.Calibrate(context.Background()))

	pollN(t, btn, clock, 100*time.Millisecond, 1)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "raw=1000")

	btn.SetDebug(false)
	pollN(t, btn, clock, 100*time.Millisecond, 1)
	require.Len(t, lines, 1)
}

func TestLoggerRecordsCalibration(t *testing.T) {
	var buf bytes.Buffer
	btn, _ := newTestButton(t, []int{1000}, false, func(c *touch.Config) {
		gestureConfig(c)
		c.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	})

	require.NoError(t, btn.Calibrate(context.Background()))
	require.Contains(t, buf.String(), "calibrated")
}

func TestMonitorRequiresCalibration(t *testing.T) {
	btn, _ := newTestButton(t, []int{1000}, false, nil)
	require.ErrorIs(t, btn.Monitor(context.Background()), touch.ErrNotCalibrated)
}

func TestMonitorEmitsGesturesAndStopsOnCancel(t *testing.T) {
	btn, _ := newTestButton(t, []int{1000, 1400, 1000}, false, func(c *touch.Config) {
		gestureConfig(c)
		c.DoubleClickEnabled = false
	})
	require.NoError(t, btn.Calibrate(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clicks := 0
	btn.RegisterCallback(touch.SingleClick, func() {
		clicks++
		cancel()
	})

	require.ErrorIs(t, btn.Monitor(ctx), context.Canceled)
	require.Equal(t, 1, clicks)
	require.False(t, btn.IsRunning())
	require.Equal(t, touch.StateIdle, btn.State())
}

func TestMonitorRefusesSecondStart(t *testing.T) {
	btn, _ := newTestButton(t, []int{1000}, false, nil)
	require.NoError(t, btn.Calibrate(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- btn.Monitor(ctx) }()

	require.Eventually(t, btn.IsRunning, time.Second, time.Millisecond)
	require.ErrorIs(t, btn.Monitor(ctx), touch.ErrMonitorRunning)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	require.False(t, btn.IsRunning())
}

func TestMonitorAbortsOnPersistentSensorFailure(t *testing.T) {
	errDead := errors.New("sensor detached")
	reads := 0
	reader := sensor.ReaderFunc(func() (int, error) {
		reads++
		if reads == 1 {
			return 1000, nil // calibration sample
		}
		return 0, errDead
	})

	btn, err := touch.New(reader, testConfig(func(c *touch.Config) {
		c.CalibrationSamples = 1
		c.SensorFailureLimit = 3
	}))
	require.NoError(t, err)
	require.NoError(t, btn.Calibrate(context.Background()))

	err = btn.Monitor(context.Background())
	require.ErrorIs(t, err, touch.ErrSensorFailure)
	require.Equal(t, 4, reads) // one calibration read plus three failed polls
	require.False(t, btn.IsRunning())
}

func TestMonitorDiscardsSessionOnCancel(t *testing.T) {
	btn, _ := newTestButton(t, []int{1000, 1400}, false, func(c *touch.Config) {
		gestureConfig(c)
		c.PollInterval = time.Millisecond
		c.LongPressTimeout = time.Hour
	})
	require.NoError(t, btn.Calibrate(context.Background()))
	counts := countGestures(btn)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- btn.Monitor(ctx) }()

	require.Eventually(t, func() bool {
		return btn.State() == touch.StatePressed
	}, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// The in-flight press is dropped, not resolved.
	require.Equal(t, touch.StateIdle, btn.State())
	require.Zero(t, counts.clicks+counts.doubles+counts.longs)
}
