package sensor

import (
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// MPR121 register map (NXP MPR121 datasheet)
const (
	mprTouchStatusL = 0x00
	mprFiltDataL    = 0x04 // + 2*channel, 10-bit little-endian
	mprBaseline0    = 0x1E // + channel, upper 8 bits of the 10-bit value

	mprMHDR = 0x2B
	mprNHDR = 0x2C
	mprNCLR = 0x2D
	mprFDLR = 0x2E
	mprMHDF = 0x2F
	mprNHDF = 0x30
	mprNCLF = 0x31
	mprFDLF = 0x32
	mprNHDT = 0x33
	mprNCLT = 0x34
	mprFDLT = 0x35

	mprTouchTh0   = 0x41 // + 2*channel
	mprReleaseTh0 = 0x42 // + 2*channel
	mprDebounce   = 0x5B
	mprConfig1    = 0x5C
	mprConfig2    = 0x5D
	mprECR        = 0x5E
	mprSoftReset  = 0x80

	mprSoftResetMagic = 0x63
	mprConfig2Reset   = 0x24 // post-reset CONFIG2 value, used as liveness check
)

// DefaultMPR121Addr is the controller's I2C address with ADDR tied to ground.
const DefaultMPR121Addr = 0x5A

// MPR121Config selects the electrode and the on-chip thresholds. The chip
// thresholds only drive its status register, which this reader ignores;
// zero values take the datasheet-suggested 12/6.
type MPR121Config struct {
	Channel          int   // electrode index, 0-11
	TouchThreshold   uint8
	ReleaseThreshold uint8
}

// MPR121 reads filtered electrode data from the MPR121 capacitive touch
// controller. The chip's own touch detection keeps running but is not
// consulted; Read returns the raw 10-bit filtered signal so the pipeline
// applies its own baseline and threshold.
type MPR121 struct {
	dev     i2c.Dev
	channel int
	closer  io.Closer
}

// NewMPR121 initializes the controller on the given bus: soft reset,
// liveness check, baseline filter configuration, per-electrode thresholds,
// then run mode with electrodes 0 through the configured channel enabled.
func NewMPR121(bus i2c.Bus, addr uint16, cfg MPR121Config) (*MPR121, error) {
	if cfg.Channel < 0 || cfg.Channel > 11 {
		return nil, fmt.Errorf("invalid MPR121 channel %d, must be 0-11", cfg.Channel)
	}
	if cfg.TouchThreshold == 0 {
		cfg.TouchThreshold = 12
	}
	if cfg.ReleaseThreshold == 0 {
		cfg.ReleaseThreshold = 6
	}

	m := &MPR121{
		dev:     i2c.Dev{Bus: bus, Addr: addr},
		channel: cfg.Channel,
	}

	if err := m.writeReg(mprSoftReset, mprSoftResetMagic); err != nil {
		return nil, fmt.Errorf("failed to reset MPR121: %w", err)
	}
	time.Sleep(1 * time.Millisecond)

	if err := m.writeReg(mprECR, 0x00); err != nil {
		return nil, fmt.Errorf("failed to stop MPR121: %w", err)
	}

	config2, err := m.readReg(mprConfig2)
	if err != nil {
		return nil, fmt.Errorf("failed to probe MPR121: %w", err)
	}
	if config2 != mprConfig2Reset {
		return nil, fmt.Errorf("%w: CONFIG2=0x%02X, want 0x%02X",
			ErrNotResponding, config2, mprConfig2Reset)
	}

	// Baseline filter tuning: rising, falling, touched.
	setup := []struct{ reg, val uint8 }{
		{mprMHDR, 0x01}, {mprNHDR, 0x01}, {mprNCLR, 0x0E}, {mprFDLR, 0x00},
		{mprMHDF, 0x01}, {mprNHDF, 0x05}, {mprNCLF, 0x01}, {mprFDLF, 0x00},
		{mprNHDT, 0x00}, {mprNCLT, 0x00}, {mprFDLT, 0x00},
		{mprDebounce, 0x00}, {mprConfig1, 0x10}, {mprConfig2, 0x20},
	}
	for _, rv := range setup {
		if err := m.writeReg(rv.reg, rv.val); err != nil {
			return nil, fmt.Errorf("failed to configure MPR121: %w", err)
		}
	}

	for ch := 0; ch <= cfg.Channel; ch++ {
		if err := m.writeReg(uint8(mprTouchTh0+2*ch), cfg.TouchThreshold); err != nil {
			return nil, fmt.Errorf("failed to set touch threshold: %w", err)
		}
		if err := m.writeReg(uint8(mprReleaseTh0+2*ch), cfg.ReleaseThreshold); err != nil {
			return nil, fmt.Errorf("failed to set release threshold: %w", err)
		}
	}

	// Run mode: baseline tracking on, electrodes 0..channel enabled.
	if err := m.writeReg(mprECR, 0x80|uint8(cfg.Channel+1)); err != nil {
		return nil, fmt.Errorf("failed to start MPR121: %w", err)
	}

	return m, nil
}

// Read returns the 10-bit filtered signal of the configured electrode.
func (m *MPR121) Read() (int, error) {
	var data [2]byte
	reg := uint8(mprFiltDataL + 2*m.channel)
	if err := m.dev.Tx([]byte{reg}, data[:]); err != nil {
		return 0, fmt.Errorf("failed to read filtered data: %w", err)
	}
	return int(uint16(data[0]) | uint16(data[1])<<8), nil
}

// Close releases the underlying bus when this reader owns it, which is the
// case when it was built with OpenMPR121.
func (m *MPR121) Close() error {
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}

func (m *MPR121) writeReg(reg, val uint8) error {
	return m.dev.Tx([]byte{reg, val}, nil)
}

func (m *MPR121) readReg(reg uint8) (uint8, error) {
	var data [1]byte
	if err := m.dev.Tx([]byte{reg}, data[:]); err != nil {
		return 0, err
	}
	return data[0], nil
}

// OpenMPR121 initializes the host drivers, opens the named I2C bus ("" for
// the first available) and configures the controller on it.
func OpenMPR121(busName string, addr uint16, cfg MPR121Config) (*MPR121, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	m, err := NewMPR121(bus, addr, cfg)
	if err != nil {
		bus.Close()
		return nil, err
	}
	m.closer = bus
	return m, nil
}
