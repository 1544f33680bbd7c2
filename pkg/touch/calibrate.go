package touch

import (
	"context"
	"fmt"
)

// Calibrate measures the untouched baseline. Each attempt takes
// CalibrationSamples smoothed readings CalibrationInterval apart and accepts
// their mean as the baseline when the max-minus-min spread stays within the
// allowance. The allowance starts at CalibrationMaxSpread and is multiplied
// by CalibrationRelax on every retry, so a pad that starts out disturbed
// still converges once its signal settles. Smoother state carries across
// attempts. Calibrate refuses to run while a Monitor loop is active, and can
// be called again at any time to rebaseline.
func (b *Button) Calibrate(ctx context.Context) error {
	b.mu.RLock()
	running := b.running
	c := b.config
	samples := c.CalibrationSamples
	interval := c.CalibrationInterval
	maxAttempts := c.CalibrationMaxAttempts
	allowance := c.CalibrationMaxSpread
	relax := c.CalibrationRelax
	alpha := c.EMAAlpha
	clock := c.clock()
	b.mu.RUnlock()

	if running {
		return ErrMonitorRunning
	}

	b.pollMu.Lock()
	defer b.pollMu.Unlock()

	b.conditioner.SetAlpha(alpha)

	var lastSpread, lastAllowance float64
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastAllowance = allowance
		b.logDebug("calibration attempt", "attempt", attempt, "allowance", allowance)

		series := make([]float64, 0, samples)
		for i := 0; i < samples; i++ {
			// A cancelled context wins over an elapsed interval.
			if err := ctx.Err(); err != nil {
				return err
			}
			if i > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-clock.After(interval):
				}
			}

			raw, err := b.reader.Read()
			if err != nil {
				return fmt.Errorf("calibration read failed: %w", err)
			}
			series = append(series, b.conditioner.feed(raw))
		}

		spread := spreadOf(series)
		lastSpread = spread
		if spread <= allowance {
			baseline := meanOf(series)
			b.conditioner.setBaseline(baseline)
			b.logInfo("calibrated", "baseline", baseline, "attempt", attempt, "spread", spread)
			return nil
		}

		b.logWarn("calibration attempt unstable", "attempt", attempt, "spread", spread, "allowance", allowance)
		allowance *= relax
	}

	return fmt.Errorf("%w after %d attempts: spread %.1f exceeds allowance %.1f",
		ErrCalibrationFailed, maxAttempts, lastSpread, lastAllowance)
}

// spreadOf returns max minus min of the series.
func spreadOf(series []float64) float64 {
	lo, hi := series[0], series[0]
	for _, v := range series[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// meanOf returns the arithmetic mean of the series.
func meanOf(series []float64) float64 {
	sum := 0.0
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}
