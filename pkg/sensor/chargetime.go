package sensor

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Charge-time measurement defaults
const (
	DefaultChargeCycles  = 8
	DefaultDischargeTime = 100 * time.Microsecond
	DefaultChargeTimeout = 5 * time.Millisecond
)

// ChargeTimeConfig tunes the RC measurement. Zero fields take the package
// defaults.
type ChargeTimeConfig struct {
	Cycles    int           // measurement cycles summed per Read
	Discharge time.Duration // drive-low time to drain the pad before each cycle
	Timeout   time.Duration // per-cycle bound on the rise wait; slower reads as Timeout
	Pull      gpio.Pull     // pull applied while measuring; default leaves the pin as wired
}

// ChargeTime reads touch capacitance from a bare GPIO pin wired to a pad
// through a high-value resistor to the supply rail. Each cycle drives the
// pin low to drain the pad, releases it, and times the rise back to high;
// a finger's added capacitance slows the rise. Read returns the rise time
// in microseconds summed over the configured cycles, so a pad that never
// rises (or a missing resistor) simply reads full scale.
type ChargeTime struct {
	pin gpio.PinIO
	cfg ChargeTimeConfig
}

// NewChargeTime creates a charge-time reader on the given pin.
func NewChargeTime(pin gpio.PinIO, cfg ChargeTimeConfig) (*ChargeTime, error) {
	if pin == nil {
		return nil, ErrPinNotFound
	}

	if cfg.Cycles <= 0 {
		cfg.Cycles = DefaultChargeCycles
	}
	if cfg.Discharge <= 0 {
		cfg.Discharge = DefaultDischargeTime
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultChargeTimeout
	}

	return &ChargeTime{pin: pin, cfg: cfg}, nil
}

// Read performs the configured number of charge cycles and returns the
// summed rise time in microseconds.
func (c *ChargeTime) Read() (int, error) {
	total := time.Duration(0)
	for i := 0; i < c.cfg.Cycles; i++ {
		elapsed, err := c.cycle()
		if err != nil {
			return 0, err
		}
		total += elapsed
	}
	return int(total / time.Microsecond), nil
}

// cycle drains the pad and times one rise.
func (c *ChargeTime) cycle() (time.Duration, error) {
	if err := c.pin.Out(gpio.Low); err != nil {
		return 0, fmt.Errorf("failed to drive pin low: %w", err)
	}
	time.Sleep(c.cfg.Discharge)

	if err := c.pin.In(c.cfg.Pull, gpio.NoEdge); err != nil {
		return 0, fmt.Errorf("failed to release pin: %w", err)
	}

	start := time.Now()
	for c.pin.Read() == gpio.Low {
		if time.Since(start) >= c.cfg.Timeout {
			return c.cfg.Timeout, nil
		}
	}
	return time.Since(start), nil
}

// OpenPin initializes the host drivers and resolves a GPIO pin by name,
// e.g. "GPIO17".
func OpenPin(name string) (gpio.PinIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host: %w", err)
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
	}
	return pin, nil
}
