package touch

import "errors"

// Engine errors
var (
	// ErrCalibrationFailed indicates the calibration retry budget was
	// exhausted without achieving a stable baseline
	ErrCalibrationFailed = errors.New("calibration failed")

	// ErrNotCalibrated indicates the button has no baseline yet; Calibrate
	// must succeed before polling or monitoring
	ErrNotCalibrated = errors.New("button is not calibrated")

	// ErrMonitorRunning indicates the monitor loop is already active
	ErrMonitorRunning = errors.New("monitor is already running")

	// ErrSensorFailure indicates the sensor failed too many polls in a row
	ErrSensorFailure = errors.New("sensor failed repeatedly")

	// ErrInvalidThreshold indicates a non-positive touch threshold
	ErrInvalidThreshold = errors.New("touch threshold must be positive")

	// ErrInvalidAlpha indicates an EMA coefficient outside (0, 1]
	ErrInvalidAlpha = errors.New("EMA alpha must be in (0, 1]")

	// ErrInvalidDuration indicates a non-positive timing parameter
	ErrInvalidDuration = errors.New("duration must be positive")

	// ErrInvalidCalibration indicates unusable calibration parameters
	ErrInvalidCalibration = errors.New("invalid calibration parameters")

	// ErrInvalidDriftFactor indicates a baseline drift factor outside [0, 1)
	ErrInvalidDriftFactor = errors.New("baseline drift factor must be in [0, 1)")

	// ErrInvalidLimit indicates a non-positive retry or failure limit
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrUnknownGesture indicates an unrecognized gesture name
	ErrUnknownGesture = errors.New("unknown gesture")

	// ErrConfigVersion indicates an unsupported config file version
	ErrConfigVersion = errors.New("unsupported configuration version")

	// ErrNoSensor indicates the button was constructed without a reader
	ErrNoSensor = errors.New("no sensor reader")
)
