package touch

import "fmt"

// Gesture identifies one of the three gesture kinds a completed interaction
// can resolve to.
type Gesture uint8

const (
	// SingleClick is one short touch-release
	SingleClick Gesture = iota
	// DoubleClick is two touch-releases inside the double-click window
	DoubleClick
	// LongPress is a touch held to the long-press timeout
	LongPress
)

// String returns the human-readable gesture name.
func (g Gesture) String() string {
	switch g {
	case SingleClick:
		return "click"
	case DoubleClick:
		return "double-click"
	case LongPress:
		return "long-press"
	}
	return fmt.Sprintf("gesture(%d)", uint8(g))
}

// Code returns the short event code for the gesture ("clk", "dclk", "lpr").
func (g Gesture) Code() string {
	switch g {
	case SingleClick:
		return "clk"
	case DoubleClick:
		return "dclk"
	case LongPress:
		return "lpr"
	}
	return fmt.Sprintf("gesture(%d)", uint8(g))
}

// ParseGesture resolves a gesture from its short code or its full name.
func ParseGesture(s string) (Gesture, error) {
	switch s {
	case "clk", "click":
		return SingleClick, nil
	case "dclk", "double-click":
		return DoubleClick, nil
	case "lpr", "long-press":
		return LongPress, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGesture, s)
}
