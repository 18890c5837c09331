package nav

import (
	"sort"
	"sync"
	"time"
)

type fakeTimer struct {
	c       *fakeClock
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{c: c, at: c.now + d, seq: c.seq, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool {
			if c.timers[i].at != c.timers[j].at {
				return c.timers[i].at < c.timers[j].at
			}
			return c.timers[i].seq < c.timers[j].seq
		})
		var next *fakeTimer
		for len(c.timers) > 0 {
			t := c.timers[0]
			if t.stopped {
				c.timers = c.timers[1:]
				continue
			}
			if t.at <= target {
				next = t
				c.timers = c.timers[1:]
				c.now = t.at
			}
			break
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.stopped = true
		c.mu.Unlock()
		next.fn()
	}
}

// manualFrames queues frame callbacks until Flush.
type manualFrames struct {
	mu      sync.Mutex
	pending []func()
	count   int
}

func (m *manualFrames) RequestFrame(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	m.pending = append(m.pending, fn)
}

func (m *manualFrames) Flush() {
	m.mu.Lock()
	fns := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type fakePage struct {
	offsets  map[string]float64
	viewport float64
}

func (p *fakePage) SectionOffset(id string) (float64, bool) {
	off, ok := p.offsets[id]
	return off, ok
}

func (p *fakePage) ViewportHeight() float64 { return p.viewport }

type recordingScroller struct {
	calls []string
}

func (r *recordingScroller) ScrollToTop()              { r.calls = append(r.calls, "top") }
func (r *recordingScroller) ScrollToSection(id string) { r.calls = append(r.calls, id) }

type fakeAddress struct {
	fragment string
	sets     []string
}

func (a *fakeAddress) Fragment() string { return a.fragment }
func (a *fakeAddress) SetFragment(f string) {
	a.fragment = f
	a.sets = append(a.sets, f)
}
