// touch-demo runs the gesture pipeline against a capacitive pad and prints
// detected gestures
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
	"strings"
	"syscall"
	"time"

	"github.com/herlein/captouch/pkg/sensor"
	"github.com/herlein/captouch/pkg/touch"
)

var (
	replayFile = flag.String("replay", "", "Replay samples from a file instead of hardware")
	loop       = flag.Bool("loop", false, "Repeat the replay script from the start")
	pinName    = flag.String("pin", "", "GPIO pin for charge-time sensing (e.g. GPIO17)")
	useMPR     = flag.Bool("mpr121", false, "Read from an MPR121 on the I2C bus")
	i2cBus     = flag.String("bus", "", "I2C bus name (empty = first available)")
	i2cAddr    = flag.Uint("addr", sensor.DefaultMPR121Addr, "MPR121 I2C address")
	channel    = flag.Int("channel", 0, "MPR121 electrode channel (0-11)")
	configPath = flag.String("config", "", "Load tuning from a JSON config file")
	threshold  = flag.Float64("threshold", 0, "Touch threshold override (0 = config value)")
	gestures   = flag.String("gestures", "", "Comma-separated gestures to report (clk,dclk,lpr; default all)")
	verbose    = flag.Bool("v", false, "Verbose output - show every poll")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Capacitive touch gesture demo\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -pin GPIO17                      # Charge-time sensing on GPIO17\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -mpr121 -channel 3               # MPR121 electrode 3\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -replay pad.txt -loop            # Replay a recorded trace\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -pin GPIO17 -config button.json  # Use saved tuning\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -pin GPIO17 -gestures clk,lpr    # Only clicks and long presses\n", os.Args[0])
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
		fmt.Printf("Loaded tuning from %s\n", *configPath)
	}
	if *threshold > 0 {
		cfg.TouchThreshold = *threshold
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
		cfg.Debug = true
		cfg.DebugLog = func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	btn, err := touch.New(reader, cfg)
	if err != nil {
		return err
	}

	wanted, err := parseGestures(*gestures)
	if err != nil {
		return err
	}
	for _, g := range wanted {
		g := g
		btn.RegisterCallback(g, func() {
			fmt.Printf("%s  %s\n", time.Now().Format("15:04:05.000"), g)
		})
	}

	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Threshold:    %.1f\n", cfg.TouchThreshold)
	fmt.Printf("  Alpha:        %.2f\n", cfg.EMAAlpha)
	fmt.Printf("  Poll:         %v\n", cfg.PollInterval)
	fmt.Printf("  Long press:   %v\n", cfg.LongPressTimeout)
	if cfg.DoubleClickEnabled {
		fmt.Printf("  Double click: %v window\n", cfg.DoubleClickDelay)
	} else {
		fmt.Printf("  Double click: disabled\n")
	}
	fmt.Println()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sigChan
		fmt.Println("\nStopping...")
		cancel()
	}()

	fmt.Println("Calibrating, do not touch the pad...")
	if err := btn.Calibrate(ctx); err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}
	fmt.Printf("Baseline: %.1f\n\n", btn.Baseline())

	fmt.Println("Monitoring... (Press Ctrl+C to stop)")
	if err := btn.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openSensor() (sensor.Reader, io.Closer, error) {
	switch {
	case *replayFile != "":
		samples, err := sensor.ReadSampleFile(*replayFile)
		if err != nil {
			return nil, nil, err
		}
		fmt.Printf("Replaying %d samples from %s\n", len(samples), *replayFile)
		r, err := sensor.NewReplay(samples, *loop)
		return r, nil, err

	case *pinName != "":
		pin, err := sensor.OpenPin(*pinName)
		if err != nil {
			return nil, nil, err
		}
		fmt.Printf("Charge-time sensing on %s\n", pin)
		ct, err := sensor.NewChargeTime(pin, sensor.ChargeTimeConfig{})
		return ct, nil, err

	case *useMPR:
		m, err := sensor.OpenMPR121(*i2cBus, uint16(*i2cAddr), sensor.MPR121Config{Channel: *channel})
		if err != nil {
			return nil, nil, err
		}
		fmt.Printf("MPR121 at 0x%02X, electrode %d\n", *i2cAddr, *channel)
		return m, m, nil
	}
	return nil, nil, errors.New("no sensor selected, use -replay, -pin or -mpr121")
}

func parseGestures(list string) ([]touch.Gesture, error) {
	if list == "" {
		return []touch.Gesture{touch.SingleClick, touch.DoubleClick, touch.LongPress}, nil
	}

	var out []touch.Gesture
	for _, name := range strings.Split(list, ",") {
		g, err := touch.ParseGesture(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}
