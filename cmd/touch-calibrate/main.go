// touch-calibrate acquires a pad baseline and reports whether the pad is
// quiet enough to use
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/herlein/captouch/pkg/sensor"
	"github.com/herlein/captouch/pkg/touch"
)

var (
	replayFile = flag.String("replay", "", "Replay samples from a file instead of hardware")
	pinName    = flag.String("pin", "", "GPIO pin for charge-time sensing (e.g. GPIO17)")
	useMPR     = flag.Bool("mpr121", false, "Read from an MPR121 on the I2C bus")
	i2cBus     = flag.String("bus", "", "I2C bus name (empty = first available)")
	i2cAddr    = flag.Uint("addr", sensor.DefaultMPR121Addr, "MPR121 I2C address")
	channel    = flag.Int("channel", 0, "MPR121 electrode channel (0-11)")
	configPath = flag.String("config", "", "Load tuning from a JSON config file")
	samples    = flag.Int("samples", 0, "Calibration samples per attempt (0 = config value)")
	spread     = flag.Float64("spread", 0, "Max allowed sample spread (0 = config value)")
	attempts   = flag.Int("attempts", 0, "Retry budget (0 = config value)")
	timeout    = flag.Duration("timeout", 30*time.Second, "Overall calibration deadline")
	verbose    = flag.Bool("v", false, "Debug logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "One-shot baseline calibration check\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -pin GPIO17                 # Calibrate a charge-time pad\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -mpr121 -samples 20 -v      # Longer run with attempt logging\n", os.Args[0])
	}
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	reader, closer, err := openSensor()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	cfg := touch.DefaultConfig()
	if *configPath != "" {
		cf, err := touch.LoadConfigFile(*configPath)
		if err != nil {
			return err
		}
		cfg = cf.ToConfig()
	}
	if *samples > 0 {
		cfg.CalibrationSamples = *samples
	}
	if *spread > 0 {
		cfg.CalibrationMaxSpread = *spread
	}
	if *attempts > 0 {
		cfg.CalibrationMaxAttempts = *attempts
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	btn, err := touch.New(reader, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	fmt.Printf("Calibrating (%d samples, spread <= %.1f, %d attempts), do not touch the pad...\n",
		cfg.CalibrationSamples, cfg.CalibrationMaxSpread, cfg.CalibrationMaxAttempts)

	if err := btn.Calibrate(ctx); err != nil {
		return err
	}

	fmt.Printf("Baseline: %.1f\n", btn.Baseline())
	return nil
}

func openSensor() (sensor.Reader, io.Closer, error) {
	switch {
	case *replayFile != "":
		samples, err := sensor.ReadSampleFile(*replayFile)
		if err != nil {
			return nil, nil, err
		}
		r, err := sensor.NewReplay(samples, false)
		return r, nil, err

	case *pinName != "":
		pin, err := sensor.OpenPin(*pinName)
		if err != nil {
			return nil, nil, err
		}
		ct, err := sensor.NewChargeTime(pin, sensor.ChargeTimeConfig{})
		return ct, nil, err

	case *useMPR:
		m, err := sensor.OpenMPR121(*i2cBus, uint16(*i2cAddr), sensor.MPR121Config{Channel: *channel})
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	}
	return nil, nil, errors.New("no sensor selected, use -replay, -pin or -mpr121")
}
