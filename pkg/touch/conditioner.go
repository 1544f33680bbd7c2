package touch

import (
	"sync"
	"time"
)

// Conditioner owns the smoothed signal value and the calibrated baseline, and
// classifies each raw sample as touched or not touched. It holds no history
// beyond the single smoothed scalar.
type Conditioner struct {
	mu         sync.RWMutex
	smoother   *Smoother
	baseline   float64
	calibrated bool

	// Stuck-touch tracking (zero time = touch not currently held)
	heldSince time.Time
}

// NewConditioner creates a conditioner with the given EMA coefficient.
// The baseline is unset until a calibration run assigns it.
func NewConditioner(alpha float64) *Conditioner {
	return &Conditioner{smoother: NewSmoother(alpha)}
}

// Update folds one raw sample into the moving average and returns the touch
// state: smoothed minus baseline at or above the threshold.
func (c *Conditioner) Update(raw int, threshold float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	smoothed := c.smoother.Update(float64(raw))
	return smoothed-c.baseline >= threshold
}

// feed runs the smoothing step only, without touch classification. Used while
// gathering calibration samples, before a baseline exists.
func (c *Conditioner) feed(raw int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.smoother.Update(float64(raw))
}

// maintain applies the optional baseline housekeeping after a poll: gradual
// drift toward the smoothed level while untouched, and a full rebaseline when
// touch has been asserted continuously for longer than stuckTimeout. Both are
// disabled by their zero values, keeping the baseline fixed between
// calibration runs.
func (c *Conditioner) maintain(touched bool, now time.Time, drift float64, stuckTimeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.calibrated {
		return
	}
	smoothed := c.smoother.Value()

	if touched {
		if c.heldSince.IsZero() {
			c.heldSince = now
		} else if stuckTimeout > 0 && now.Sub(c.heldSince) >= stuckTimeout {
			// Pad considered locked in the touched state: accept the
			// current level as the new untouched reference.
			c.baseline = smoothed
			c.heldSince = time.Time{}
		}
		return
	}
	c.heldSince = time.Time{}

	if drift <= 0 {
		return
	}
	if smoothed < c.baseline {
		c.baseline = smoothed
	} else {
		c.baseline = (1-drift)*c.baseline + drift*smoothed
	}
}

// setBaseline records the calibrated untouched signal level.
func (c *Conditioner) setBaseline(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseline = v
	c.calibrated = true
	c.heldSince = time.Time{}
}

// SetAlpha updates the smoothing coefficient.
func (c *Conditioner) SetAlpha(alpha float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.smoother.SetAlpha(alpha)
}

// Smoothed returns the current smoothed signal value.
func (c *Conditioner) Smoothed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.smoother.Value()
}

// Baseline returns the calibrated untouched signal level.
func (c *Conditioner) Baseline() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseline
}

// Calibrated reports whether a calibration run has assigned a baseline.
func (c *Conditioner) Calibrated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calibrated
}

// Reset clears the smoothed value and the baseline; the button must be
// recalibrated before it can poll again.
func (c *Conditioner) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.smoother.Reset()
	c.baseline = 0
	c.calibrated = false
	c.heldSince = time.Time{}
}
