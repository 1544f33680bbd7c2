package sensor

import "errors"

// Sensor errors
var (
	// ErrNoSamples indicates an empty replay script
	ErrNoSamples = errors.New("no samples")

	// ErrPinNotFound indicates the named GPIO pin is not registered
	ErrPinNotFound = errors.New("GPIO pin not found")

	// ErrNotResponding indicates the MPR121 did not come back after reset
	ErrNotResponding = errors.New("MPR121 not responding")
)
