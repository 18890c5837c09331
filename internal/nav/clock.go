package nav

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Hosts with a single event loop can supply a Clock
// that runs fn on that loop.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Scheduler runs fn once on the host's next rendering frame.
type Scheduler interface {
	RequestFrame(fn func())
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }

// SystemClock is backed by time.AfterFunc.
func SystemClock() Clock { return systemClock{} }

// FrameScheduler approximates a rendering frame with a fixed interval on clock.
type FrameScheduler struct {
	Clock    Clock
	Interval time.Duration
}

func (f FrameScheduler) RequestFrame(fn func()) {
	c := f.Clock
	if c == nil {
		c = systemClock{}
	}
	d := f.Interval
	if d <= 0 {
		d = time.Second / 60
	}
	c.AfterFunc(d, fn)
}
