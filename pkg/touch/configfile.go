package touch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ConfigVersion is the tuning file format version this package writes.
const ConfigVersion = "1.0"

// ConfigFile is the on-disk representation of a button tuning. Sections
// mirror the pipeline stages. Fields left zero fall back to the package
// defaults when converted with ToConfig, so a file only needs the values
// it overrides.
type ConfigFile struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	Smoothing   SmoothingSettings   `json:"smoothing"`
	Detection   DetectionSettings   `json:"detection"`
	Gestures    GestureSettings     `json:"gestures"`
	Calibration CalibrationSettings `json:"calibration"`
}

// SmoothingSettings tunes the EMA stage.
type SmoothingSettings struct {
	Alpha float64 `json:"alpha,omitempty"`
}

// DetectionSettings tunes touch classification and baseline upkeep.
type DetectionSettings struct {
	TouchThreshold      float64 `json:"touch_threshold,omitempty"`
	PollIntervalMs      int     `json:"poll_interval_ms,omitempty"`
	DriftFactor         float64 `json:"baseline_drift_factor,omitempty"`
	StuckTouchTimeoutMs int     `json:"stuck_touch_timeout_ms,omitempty"`
}

// GestureSettings tunes the classifier timing. DisableDoubleClick is
// inverted so the zero value keeps double clicks enabled, the default.
type GestureSettings struct {
	DoubleClickDelayMs int  `json:"double_click_delay_ms,omitempty"`
	LongPressTimeoutMs int  `json:"long_press_timeout_ms,omitempty"`
	DisableDoubleClick bool `json:"disable_double_click,omitempty"`
}

// CalibrationSettings tunes the baseline acquisition loop.
type CalibrationSettings struct {
	Samples     int     `json:"samples,omitempty"`
	IntervalMs  int     `json:"interval_ms,omitempty"`
	MaxAttempts int     `json:"max_attempts,omitempty"`
	MaxSpread   float64 `json:"max_spread,omitempty"`
	Relax       float64 `json:"relax,omitempty"`
}

// LoadConfigFile reads and parses a tuning file. Files written by a newer
// format version are rejected; a missing version field is accepted.
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cf ConfigFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cf.Version != "" && cf.Version != ConfigVersion {
		return nil, fmt.Errorf("%w: %q", ErrConfigVersion, cf.Version)
	}

	return &cf, nil
}

// SaveConfigFile writes the tuning as indented JSON, stamping the current
// version and time and creating parent directories as needed.
func SaveConfigFile(cf *ConfigFile, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	out := *cf
	out.Version = ConfigVersion
	out.Timestamp = time.Now()

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ToConfig converts the file settings to a runtime Config, defaulting any
// field the file leaves zero.
func (cf *ConfigFile) ToConfig() *Config {
	c := DefaultConfig()

	if cf.Smoothing.Alpha != 0 {
		c.EMAAlpha = cf.Smoothing.Alpha
	}

	if cf.Detection.TouchThreshold != 0 {
		c.TouchThreshold = cf.Detection.TouchThreshold
	}
	if cf.Detection.PollIntervalMs != 0 {
		c.PollInterval = time.Duration(cf.Detection.PollIntervalMs) * time.Millisecond
	}
	if cf.Detection.DriftFactor != 0 {
		c.BaselineDriftFactor = cf.Detection.DriftFactor
	}
	if cf.Detection.StuckTouchTimeoutMs != 0 {
		c.StuckTouchTimeout = time.Duration(cf.Detection.StuckTouchTimeoutMs) * time.Millisecond
	}

	if cf.Gestures.DoubleClickDelayMs != 0 {
		c.DoubleClickDelay = time.Duration(cf.Gestures.DoubleClickDelayMs) * time.Millisecond
	}
	if cf.Gestures.LongPressTimeoutMs != 0 {
		c.LongPressTimeout = time.Duration(cf.Gestures.LongPressTimeoutMs) * time.Millisecond
	}
	c.DoubleClickEnabled = !cf.Gestures.DisableDoubleClick

	if cf.Calibration.Samples != 0 {
		c.CalibrationSamples = cf.Calibration.Samples
	}
	if cf.Calibration.IntervalMs != 0 {
		c.CalibrationInterval = time.Duration(cf.Calibration.IntervalMs) * time.Millisecond
	}
	if cf.Calibration.MaxAttempts != 0 {
		c.CalibrationMaxAttempts = cf.Calibration.MaxAttempts
	}
	if cf.Calibration.MaxSpread != 0 {
		c.CalibrationMaxSpread = cf.Calibration.MaxSpread
	}
	if cf.Calibration.Relax != 0 {
		c.CalibrationRelax = cf.Calibration.Relax
	}

	return c
}

// Validate checks that the merged settings form a usable Config.
func (cf *ConfigFile) Validate() error {
	return cf.ToConfig().Validate()
}
