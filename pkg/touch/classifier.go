package touch

import (
	"fmt"
	"time"
)

// State identifies the classifier's position within the current interaction.
type State uint8

const (
	// StateIdle means no interaction is in progress
	StateIdle State = iota
	// StatePressed means touch is active and the long-press timer is running
	StatePressed
	// StateLongPressFired means the long press already fired and the
	// classifier is waiting for release, suppressing further gestures
	StateLongPressFired
	// StateWaitingSecondClick means one touch-release completed and the
	// double-click window is open
	StateWaitingSecondClick
	// StateDone marks a finalized interaction; it folds back to idle within
	// the same poll and is never observable between polls
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePressed:
		return "pressed"
	case StateLongPressFired:
		return "long-press-fired"
	case StateWaitingSecondClick:
		return "waiting-second-click"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// gestureParams is the timing snapshot a session is classified under. It is
// latched when a touch-down starts an interaction, so configuration changes
// apply from the next idle state and never rewrite an in-flight session.
type gestureParams struct {
	longPress   time.Duration
	window      time.Duration
	doubleClick bool
}

// classifier is the timing-driven state machine consuming the boolean touch
// signal over successive polls. It exclusively owns the session record
// (press/release timestamps, second-click marker) and emits at most one
// gesture per completed interaction.
type classifier struct {
	state       State
	params      gestureParams
	pressStart  time.Time
	releaseTime time.Time
	secondClick bool
}

// step advances the machine by one poll. touched is the conditioned touch
// state, now the monotonic poll time, p the current timing configuration
// (only consulted when a new interaction starts). Returns the emitted
// gesture, if any.
func (m *classifier) step(touched bool, now time.Time, p gestureParams) (Gesture, bool) {
	var g Gesture
	fired := false

	switch m.state {
	case StateIdle:
		if touched {
			m.params = p
			m.state = StatePressed
			m.pressStart = now
			m.secondClick = false
		}

	case StatePressed:
		switch {
		case !touched:
			switch {
			case m.secondClick:
				g, fired = DoubleClick, true
				m.state = StateDone
			case m.params.doubleClick:
				m.state = StateWaitingSecondClick
				m.releaseTime = now
			default:
				g, fired = SingleClick, true
				m.state = StateDone
			}
		case !m.secondClick && now.Sub(m.pressStart) >= m.params.longPress:
			// Edge-triggered: fires exactly once, and only for the first
			// touch of an interaction. A held second click resolves as a
			// double click on release no matter how long it lasts.
			g, fired = LongPress, true
			m.state = StateLongPressFired
		}

	case StateLongPressFired:
		if !touched {
			m.state = StateIdle
		}

	case StateWaitingSecondClick:
		switch {
		case now.Sub(m.releaseTime) > m.params.window:
			// Window expired: the first click stands alone. A touch seen on
			// this same poll starts a fresh interaction on a later poll,
			// keeping gesture emissions strictly ordered.
			g, fired = SingleClick, true
			m.state = StateDone
		case touched:
			m.state = StatePressed
			m.pressStart = now
			m.secondClick = true
		}
	}

	if m.state == StateDone {
		m.state = StateIdle
	}

	return g, fired
}

// reset discards any in-progress session without emitting a gesture.
func (m *classifier) reset() {
	m.state = StateIdle
	m.secondClick = false
}
