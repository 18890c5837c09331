// Package nav keeps a single "active section" index consistent across explicit
// navigation clicks, scroll position and address-fragment changes.
package nav

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"folio/internal/bus"
	"folio/internal/model"
)

// SectionChange is broadcast when a navigation item is clicked so the target
// section can replay its entrance animation. It is published under SectionID.
type SectionChange struct {
	SectionID string
	Href      string
	Index     int
}

// Layout reports where sections sit on the page.
type Layout interface {
	SectionOffset(id string) (float64, bool)
	ViewportHeight() float64
}

// Scroller moves the host's scroll position.
type Scroller interface {
	ScrollToTop()
	ScrollToSection(id string)
}

// Address is the host's location fragment. SetFragment must not reload the page.
type Address interface {
	Fragment() string
	SetFragment(fragment string)
}

type Options struct {
	Items      []model.NavigationItem
	Thresholds Thresholds
	Layout     Layout
	Scroller   Scroller
	// Address is optional. When set, it is kept in sync through a bus
	// subscription and its fragment picks the initial active item.
	Address   Address
	Scheduler Scheduler
	Clock     Clock
	// Sections carries click broadcasts; a private bus is created when nil.
	Sections *bus.Bus[SectionChange]
	Logger   *zap.Logger
}

// Synchronizer owns the active-section register and the navigating flag.
// All methods are safe for concurrent use; collaborators are never called
// with the internal lock held.
type Synchronizer struct {
	items    []model.NavigationItem
	th       Thresholds
	layout   Layout
	scroller Scroller
	sched    Scheduler
	clock    Clock
	sections *bus.Bus[SectionChange]
	changes  *bus.Bus[int]
	log      *zap.Logger

	mu         sync.Mutex
	active     int
	navigating bool
	// gen identifies the current suppression window; timers from older
	// windows see a different value and do nothing.
	gen       uint64
	timers    []Timer
	initTimer Timer
	ticking   bool
	scrollY   float64
	closed    bool

	unsubAddress func()
}

func New(opts Options) (*Synchronizer, error) {
	if len(opts.Items) == 0 {
		return nil, errors.New("nav: at least one navigation item is required")
	}
	if opts.Layout == nil {
		return nil, errors.New("nav: layout is required")
	}
	s := &Synchronizer{
		items:    append([]model.NavigationItem(nil), opts.Items...),
		th:       opts.Thresholds.WithDefaults(),
		layout:   opts.Layout,
		scroller: opts.Scroller,
		sched:    opts.Scheduler,
		clock:    opts.Clock,
		sections: opts.Sections,
		changes:  bus.New[int](),
		log:      opts.Logger,
	}
	if s.clock == nil {
		s.clock = SystemClock()
	}
	if s.sched == nil {
		s.sched = FrameScheduler{Clock: s.clock}
	}
	if s.sections == nil {
		s.sections = bus.New[SectionChange]()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if opts.Address != nil {
		if i, ok := s.indexOf(opts.Address.Fragment()); ok {
			s.active = i
		}
		s.unsubAddress = SyncAddress(s.sections, opts.Address)
	}
	return s, nil
}

// SyncAddress mirrors click broadcasts into the address fragment.
func SyncAddress(sections *bus.Bus[SectionChange], addr Address) (cancel func()) {
	return sections.SubscribeAll(func(ev SectionChange) {
		addr.SetFragment(ev.Href)
	})
}

func (s *Synchronizer) Items() []model.NavigationItem { return s.items }

// Sections returns the bus click broadcasts are published on.
func (s *Synchronizer) Sections() *bus.Bus[SectionChange] { return s.sections }

func (s *Synchronizer) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Navigating reports whether a click-driven navigation is suppressing the
// scroll detector.
func (s *Synchronizer) Navigating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navigating
}

// OnChange registers fn to be called with the new index whenever the active
// item changes.
func (s *Synchronizer) OnChange(fn func(index int)) (cancel func()) {
	return s.changes.SubscribeAll(fn)
}

// Start schedules the first scroll check once the host has laid out its sections.
func (s *Synchronizer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.initTimer != nil {
		return
	}
	s.initTimer = s.clock.AfterFunc(s.th.InitialCheck, s.detect)
}

// Click handles an explicit selection of item i: it becomes active at once,
// the section-change broadcast goes out, and the section is scrolled into view
// while the scroll detector is suppressed. Clicking the active item only
// re-broadcasts.
func (s *Synchronizer) Click(i int) error {
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("nav: item index %d out of range [0,%d)", i, len(s.items))
	}
	item := s.items[i]

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	s.stopWindowLocked()
	s.navigating = true
	same := s.active == i
	s.active = i
	s.mu.Unlock()

	s.log.Debug("navigation click", zap.Int("index", i), zap.String("section", item.SectionID()), zap.Bool("same", same))

	if !same {
		s.changes.Publish("", i)
	}
	s.sections.Publish(item.SectionID(), SectionChange{SectionID: item.SectionID(), Href: item.Href, Index: i})

	if same {
		s.arm(gen, s.th.SettleHold, func() { s.endNavigation(gen) })
		return nil
	}
	s.arm(gen, s.th.ScrollDelay, func() {
		s.scrollTo(i)
		s.arm(gen, s.th.NavigatingHold, func() { s.endNavigation(gen) })
	})
	return nil
}

func (s *Synchronizer) scrollTo(i int) {
	if s.scroller == nil {
		return
	}
	if i == 0 {
		s.scroller.ScrollToTop()
		return
	}
	s.scroller.ScrollToSection(s.items[i].SectionID())
}

// Scroll records the current scroll offset and runs the detector on the next
// frame. Calls arriving while a frame is already pending are folded into it.
func (s *Synchronizer) Scroll(y float64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.scrollY = y
	if s.ticking {
		s.mu.Unlock()
		return
	}
	s.ticking = true
	s.mu.Unlock()

	s.sched.RequestFrame(func() {
		s.mu.Lock()
		s.ticking = false
		s.mu.Unlock()
		s.detect()
	})
}

func (s *Synchronizer) detect() {
	s.mu.Lock()
	if s.closed || s.navigating {
		s.mu.Unlock()
		return
	}
	y := s.scrollY
	current := s.active
	s.mu.Unlock()

	next, ok := Resolve(s.items, s.layout.SectionOffset, y, s.layout.ViewportHeight(), s.th)
	if !ok {
		s.log.Debug("no sections located; skipping scroll detection")
		return
	}
	if next == current {
		return
	}

	s.mu.Lock()
	// A click may have landed while offsets were being read.
	if s.closed || s.navigating || s.active != current {
		s.mu.Unlock()
		return
	}
	s.active = next
	s.mu.Unlock()

	s.log.Debug("scroll moved active section", zap.Float64("scroll", y), zap.Int("from", current), zap.Int("to", next))
	s.changes.Publish("", next)
}

// FragmentChanged handles external navigation (typed address, back/forward).
// It corrects the active index without scrolling or broadcasting.
func (s *Synchronizer) FragmentChanged(fragment string) {
	i, ok := s.indexOf(fragment)
	if !ok {
		return
	}
	s.mu.Lock()
	if s.closed || s.active == i {
		s.mu.Unlock()
		return
	}
	s.active = i
	s.mu.Unlock()

	s.log.Debug("fragment moved active section", zap.String("fragment", fragment), zap.Int("to", i))
	s.changes.Publish("", i)
}

func (s *Synchronizer) indexOf(fragment string) (int, bool) {
	id := strings.TrimPrefix(fragment, "#")
	if id == "" {
		return 0, false
	}
	for i, item := range s.items {
		if strings.HasPrefix(item.Href, "#") && item.SectionID() == id {
			return i, true
		}
	}
	return 0, false
}

// arm schedules fn for the suppression window gen. It is a no-op once a newer
// window has started.
func (s *Synchronizer) arm(gen uint64, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return
	}
	t := s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		live := !s.closed && gen == s.gen
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	s.timers = append(s.timers, t)
}

func (s *Synchronizer) endNavigation(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.navigating = false
	s.timers = nil
}

func (s *Synchronizer) stopWindowLocked() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// Close cancels pending timers and the address subscription.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopWindowLocked()
	if s.initTimer != nil {
		s.initTimer.Stop()
		s.initTimer = nil
	}
	unsub := s.unsubAddress
	s.unsubAddress = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}
