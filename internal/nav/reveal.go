package nav

import (
	"strings"
	"sync"
	"time"

	"folio/internal/bus"
)

type RevealOptions struct {
	// Ratio of the section that must be inside the viewport to count as visible.
	Ratio float64 `yaml:"ratio"`
	// BottomMargin shrinks the viewport from below before intersecting.
	// It is negative for no margin.
	BottomMargin float64 `yaml:"bottom_margin"`
	// ReplayDelay separates the hide and show halves of a replayed entrance.
	ReplayDelay time.Duration `yaml:"replay_delay"`
}

func DefaultRevealOptions() RevealOptions {
	return RevealOptions{Ratio: 0.2, BottomMargin: 50, ReplayDelay: 100 * time.Millisecond}
}

// Reveal tracks whether one section's entrance animation should be showing.
// Visibility follows viewport intersection and re-arms every time the section
// leaves; a click broadcast or fragment change for the section replays the
// entrance, and one for any other section hides it.
type Reveal struct {
	id    string
	opts  RevealOptions
	clock Clock

	mu      sync.Mutex
	visible bool
	gen     uint64
	timer   Timer
	closed  bool

	changes *bus.Bus[bool]
	unsub   func()
}

// WithDefaults fills zero fields from DefaultRevealOptions.
func (o RevealOptions) WithDefaults() RevealOptions {
	d := DefaultRevealOptions()
	if o.Ratio <= 0 {
		o.Ratio = d.Ratio
	}
	switch {
	case o.BottomMargin == 0:
		o.BottomMargin = d.BottomMargin
	case o.BottomMargin < 0:
		o.BottomMargin = 0
	}
	if o.ReplayDelay <= 0 {
		o.ReplayDelay = d.ReplayDelay
	}
	return o
}

func NewReveal(id string, sections *bus.Bus[SectionChange], clock Clock, opts RevealOptions) *Reveal {
	opts = opts.WithDefaults()
	if clock == nil {
		clock = SystemClock()
	}
	r := &Reveal{id: id, opts: opts, clock: clock, changes: bus.New[bool]()}
	if sections != nil {
		r.unsub = sections.SubscribeAll(r.onSectionChange)
	}
	return r
}

func (r *Reveal) ID() string { return r.id }

func (r *Reveal) Visible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible
}

// OnChange registers fn for visibility flips.
func (r *Reveal) OnChange(fn func(visible bool)) (cancel func()) {
	return r.changes.SubscribeAll(fn)
}

// Prime reveals the section shortly after load when the initial fragment names it.
func (r *Reveal) Prime(fragment string) {
	if strings.TrimPrefix(fragment, "#") != r.id {
		return
	}
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.scheduleShowLocked(gen)
	r.mu.Unlock()
}

// Observe feeds the section's current geometry, as an intersection observer would.
func (r *Reveal) Observe(top, height, viewportTop, viewportHeight float64) {
	ratio := IntersectionRatio(top, height, viewportTop, viewportHeight-r.opts.BottomMargin)
	r.set(ratio >= r.opts.Ratio)
}

// FragmentChanged handles external navigation to fragment: the named section
// replays its entrance and every other section hides.
func (r *Reveal) FragmentChanged(fragment string) {
	r.replay(strings.TrimPrefix(fragment, "#"))
}

func (r *Reveal) onSectionChange(ev SectionChange) {
	r.replay(ev.SectionID)
}

func (r *Reveal) replay(target string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.gen++
	gen := r.gen
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if target == r.id {
		r.scheduleShowLocked(gen)
	}
	r.mu.Unlock()
	r.set(false)
}

func (r *Reveal) scheduleShowLocked(gen uint64) {
	if r.closed {
		return
	}
	r.timer = r.clock.AfterFunc(r.opts.ReplayDelay, func() {
		r.mu.Lock()
		live := !r.closed && gen == r.gen
		r.mu.Unlock()
		if live {
			r.set(true)
		}
	})
}

func (r *Reveal) set(visible bool) {
	r.mu.Lock()
	if r.closed || r.visible == visible {
		r.mu.Unlock()
		return
	}
	r.visible = visible
	r.mu.Unlock()
	r.changes.Publish("", visible)
}

// Close drops the broadcast subscription and any pending replay.
func (r *Reveal) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	unsub := r.unsub
	r.unsub = nil
	r.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// IntersectionRatio is the fraction of [top, top+height) lying inside
// [viewportTop, viewportTop+viewportHeight).
func IntersectionRatio(top, height, viewportTop, viewportHeight float64) float64 {
	if height <= 0 || viewportHeight <= 0 {
		return 0
	}
	lo := max(top, viewportTop)
	hi := min(top+height, viewportTop+viewportHeight)
	if hi <= lo {
		return 0
	}
	return (hi - lo) / height
}
