package sensor

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Replay yields a scripted sequence of samples. It backs tests and lets the
// demo tools run the full pipeline without hardware attached.
type Replay struct {
	samples []int
	pos     int
	loop    bool
}

// NewReplay creates a reader over the given samples. With loop set the
// script repeats from the start; otherwise the final sample repeats forever
// once the script runs out, like a pad nobody is touching anymore.
func NewReplay(samples []int, loop bool) (*Replay, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	return &Replay{samples: append([]int(nil), samples...), loop: loop}, nil
}

// Read returns the next scripted sample.
func (r *Replay) Read() (int, error) {
	v := r.samples[r.pos]
	if r.pos < len(r.samples)-1 {
		r.pos++
	} else if r.loop {
		r.pos = 0
	}
	return v, nil
}

// Rewind restarts the script from the first sample.
func (r *Replay) Rewind() {
	r.pos = 0
}

// ReadSampleFile loads a replay script from a text file: one integer sample
// per line, blank lines and '#' comments skipped.
func ReadSampleFile(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample file: %w", err)
	}
	defer f.Close()

	var samples []int
	line := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		v, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("bad sample at line %d: %w", line, err)
		}
		samples = append(samples, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sample file: %w", err)
	}

	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	return samples, nil
}
