// touch-tune streams conditioned pad readings to help pick a touch threshold
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
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
	configPath = flag.String("config", "", "Start from an existing JSON config file")
	interval   = flag.Duration("interval", 50*time.Millisecond, "Sample interval")
	duration   = flag.Duration("duration", 0, "Sampling duration (0 = until Ctrl+C)")
	outPath    = flag.String("out", "", "Write the suggested tuning to a JSON config file")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Touch threshold tuner: watch the conditioned signal while touching\n")
		fmt.Fprintf(os.Stderr, "and releasing the pad, then use the suggested threshold.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -pin GPIO17                     # Tune a charge-time pad\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -mpr121 -out button.json        # Save the result as tuning\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -replay pad.txt -duration 5s    # Analyze a recorded trace\n", os.Args[0])
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
	var base *touch.ConfigFile
	if *configPath != "" {
		base, err = touch.LoadConfigFile(*configPath)
		if err != nil {
			return err
		}
		cfg = base.ToConfig()
	}

	btn, err := touch.New(reader, cfg)
	if err != nil {
		return err
	}

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sigChan
		cancel()
	}()

	fmt.Println("Calibrating, do not touch the pad...")
	if err := btn.Calibrate(ctx); err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}
	fmt.Printf("Baseline: %.1f\n", btn.Baseline())

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
		fmt.Printf("Sampling for %v, touch and release the pad...\n", *duration)
	} else {
		fmt.Println("Touch and release the pad... (Press Ctrl+C to finish)")
	}

	fmt.Println("\n Sample |     Raw | Smoothed | Baseline |     Diff | State")
	fmt.Println("--------+---------+----------+----------+----------+-------")

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	count := 0
	touchedCount := 0
	quietMax := 0.0
	touchMin, touchMax := 0.0, 0.0

	for {
		select {
		case <-ctx.Done():
			goto done

		case <-deadline:
			goto done

		case <-ticker.C:
			res, err := btn.Poll()
			if err != nil {
				fmt.Printf("poll error: %v\n", err)
				continue
			}

			count++
			diff := res.Smoothed - res.Baseline
			marker := ""
			if res.Touched {
				marker = "  TOUCH"
				if touchedCount == 0 || diff < touchMin {
					touchMin = diff
				}
				if diff > touchMax {
					touchMax = diff
				}
				touchedCount++
			} else if diff > quietMax {
				quietMax = diff
			}

			fmt.Printf(" %6d | %7d | %8.1f | %8.1f | %+8.1f | %s%s\n",
				count, res.Raw, res.Smoothed, res.Baseline, diff, res.State, marker)
		}
	}

done:
	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Samples:        %d (%d touched)\n", count, touchedCount)
	fmt.Printf("Baseline:       %.1f\n", btn.Baseline())
	fmt.Printf("Untouched diff: <= %.1f\n", quietMax)

	var suggested float64
	switch {
	case touchedCount > 0:
		fmt.Printf("Touched diff:   %.1f - %.1f\n", touchMin, touchMax)
		suggested = (quietMax + touchMin) / 2
		fmt.Printf("Suggested threshold: %.0f (midway between the bands)\n", suggested)
	case quietMax >= 1:
		// Nothing crossed the current threshold; fall back to the peak rise.
		suggested = quietMax / 2
		fmt.Printf("Suggested threshold: %.0f (half of peak rise; nothing crossed the current %.0f)\n",
			suggested, cfg.TouchThreshold)
	default:
		fmt.Println("No signal rise observed; touch the pad while sampling.")
		return nil
	}

	if *outPath != "" {
		out := &touch.ConfigFile{}
		if base != nil {
			*out = *base
		}
		out.Detection.TouchThreshold = float64(int(suggested))
		if err := touch.SaveConfigFile(out, *outPath); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", *outPath)
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
