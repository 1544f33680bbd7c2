package touch

import "time"

// PollResult is the full outcome of a single poll: the raw and conditioned
// signal values, the touch decision, the classifier state after the step,
// and the gesture emitted by it, if any.
type PollResult struct {
	Raw       int
	Smoothed  float64
	Baseline  float64
	Touched   bool
	State     State
	Gesture   Gesture
	Fired     bool
	Timestamp time.Time
}
