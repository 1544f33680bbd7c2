// Package touch turns a noisy capacitive-touch reading stream into discrete
// gesture events: single click, double click and long press.
package touch

import "time"

// Default signal conditioning parameters
const (
	// DefaultTouchThreshold is the smoothed-above-baseline delta (sensor
	// units) at which a poll is classified as touched
	DefaultTouchThreshold float64 = 500

	// DefaultEMAAlpha is the smoothing coefficient for the exponential
	// moving average applied to raw samples
	DefaultEMAAlpha float64 = 0.1

	// DefaultPollInterval is the delay between pipeline ticks
	DefaultPollInterval = 10 * time.Millisecond
)

// Default gesture timing parameters
const (
	// DefaultDoubleClickDelay is the maximum gap between the release of a
	// first touch and the start of a second touch that still counts as one
	// double click
	DefaultDoubleClickDelay = 300 * time.Millisecond

	// DefaultLongPressTimeout is the continuous touch duration at which a
	// long press fires
	DefaultLongPressTimeout = 1 * time.Second
)

// Default calibration parameters
const (
	// DefaultCalibrationSamples is the number of smoothed samples averaged
	// into the baseline per calibration attempt
	DefaultCalibrationSamples = 5

	// DefaultCalibrationInterval is the spacing between calibration samples
	DefaultCalibrationInterval = 50 * time.Millisecond

	// DefaultCalibrationMaxAttempts bounds the calibration retry loop
	DefaultCalibrationMaxAttempts = 3

	// DefaultCalibrationMaxSpread is the max-minus-min spread (sensor units)
	// a calibration sample series may have and still count as stable
	DefaultCalibrationMaxSpread float64 = 50

	// DefaultCalibrationRelax multiplies the spread allowance on each retry,
	// letting a sensor that is locked touched (or just noisy) converge
	DefaultCalibrationRelax float64 = 2.0
)

// Monitoring defaults
const (
	// DefaultSensorFailureLimit is the number of consecutive failed sensor
	// reads after which the monitor loop gives up
	DefaultSensorFailureLimit = 10
)
