package touch

import "time"

// Clock abstracts the monotonic time source driving gesture timing, so tests
// can interpose on apparent time.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	NewTimer(d time.Duration) Timer
}

// Timer abstracts the functionality of time.Timer.
type Timer interface {
	C() <-chan time.Time
	Reset(d time.Duration) bool
	Stop() bool
}

type systemClock struct{}

type systemTimer struct{ *time.Timer }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (systemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{Timer: time.NewTimer(d)}
}

func (t systemTimer) C() <-chan time.Time { return t.Timer.C }
