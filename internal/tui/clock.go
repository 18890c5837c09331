package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"folio/internal/nav"
)

// callbackMsg runs a timer callback on the Update goroutine.
type callbackMsg func()

// loopClock schedules nav timers so that their callbacks are delivered as
// messages and run inside Update, never concurrently with it.
type loopClock struct {
	send func(tea.Msg)
}

func (c *loopClock) AfterFunc(d time.Duration, fn func()) nav.Timer {
	return time.AfterFunc(d, func() {
		if send := c.send; send != nil {
			send(callbackMsg(fn))
		}
	})
}

// historyAddress is the browser's location fragment with back/forward history.
type historyAddress struct {
	entries []string
	pos     int
}

func newHistoryAddress(initial string) *historyAddress {
	return &historyAddress{entries: []string{initial}}
}

func (h *historyAddress) Fragment() string { return h.entries[h.pos] }

// SetFragment replaces the forward history with fragment.
func (h *historyAddress) SetFragment(fragment string) {
	if fragment == h.Fragment() {
		return
	}
	h.entries = append(h.entries[:h.pos+1], fragment)
	h.pos++
}

func (h *historyAddress) Back() (string, bool) {
	if h.pos == 0 {
		return "", false
	}
	h.pos--
	return h.Fragment(), true
}

func (h *historyAddress) Forward() (string, bool) {
	if h.pos >= len(h.entries)-1 {
		return "", false
	}
	h.pos++
	return h.Fragment(), true
}
