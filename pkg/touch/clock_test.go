package touch_test

import (
	"sync"
	"time"

	"github.com/herlein/captouch/pkg/touch"
)

// fakeClock drives the pipeline deterministically: Now returns a value the
// test advances by hand, and every After or timer receive advances it by the
// waited duration and fires immediately, so timing loops run as fast as the
// harness allows while observing exact simulated time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ touch.Clock = (*fakeClock)(nil)

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *fakeClock) NewTimer(d time.Duration) touch.Timer {
	return &fakeTimer{clock: c, d: d}
}

type fakeTimer struct {
	clock *fakeClock
	d     time.Duration
}

func (t *fakeTimer) C() <-chan time.Time {
	return t.clock.After(t.d)
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.d = d
	return true
}

func (t *fakeTimer) Stop() bool { return true }
