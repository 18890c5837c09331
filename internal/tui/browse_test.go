package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/config"
	"folio/internal/nav"
)

func browseSite(t *testing.T) *config.Site {
	t.Helper()
	site, err := config.LoadSite("")
	require.NoError(t, err)
	site.BrowseThresholds = nav.Thresholds{
		Buffer:         3,
		SecondBuffer:   2,
		NavigatingHold: 5 * time.Millisecond,
		SettleHold:     5 * time.Millisecond,
		ScrollDelay:    time.Millisecond,
		InitialCheck:   time.Millisecond,
	}
	site.BrowseReveal = nav.RevealOptions{Ratio: 0.2, BottomMargin: 1, ReplayDelay: time.Millisecond}
	return &site
}

// newBrowse wires the loop clock to a channel that pump drains.
func newBrowse(t *testing.T, fragment string) (*BrowseModel, chan tea.Msg) {
	t.Helper()
	m, err := NewBrowseModel(browseSite(t), fragment, nil)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	msgs := make(chan tea.Msg, 64)
	m.clock.send = func(msg tea.Msg) { msgs <- msg }
	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, msgs
}

// pump runs queued timer callbacks until cond holds.
func pump(t *testing.T, m *BrowseModel, msgs chan tea.Msg, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case msg := <-msgs:
			m.Update(msg)
		case <-deadline:
			t.Fatal("condition not reached")
		}
	}
}

// settle waits until click suppression has ended.
func settle(t *testing.T, m *BrowseModel, msgs chan tea.Msg) {
	t.Helper()
	pump(t, m, msgs, func() bool { return !m.sync.Navigating() })
}

func TestBrowseClickScrollsToSection(t *testing.T) {
	m, msgs := newBrowse(t, "#home")
	require.Equal(t, 0, m.Active())

	m.Update(keyRunes("3"))
	assert.Equal(t, 2, m.Active(), "click activates immediately")
	assert.Equal(t, "#projects", m.Fragment())

	want := m.offsets["projects"]
	require.Greater(t, want, 0)
	pump(t, m, msgs, func() bool { return m.page.YOffset == want })
	settle(t, m, msgs)
	assert.Equal(t, 2, m.Active())
}

func TestBrowseRevealReplaysOnClick(t *testing.T) {
	m, msgs := newBrowse(t, "#home")

	m.Update(keyRunes("4"))
	pump(t, m, msgs, func() bool { return m.reveals[3].Visible() })
	assert.False(t, m.reveals[0].Visible(), "other sections hide on broadcast")
}

func TestBrowseScrollMovesActive(t *testing.T) {
	m, msgs := newBrowse(t, "#home")

	m.Update(keyRunes("2"))
	settle(t, m, msgs)

	skills := m.offsets["skills"]
	m.scrollBy(skills - m.page.YOffset)
	pump(t, m, msgs, func() bool { return m.Active() == 3 })

	m.Update(tea.KeyMsg{Type: tea.KeyHome})
	pump(t, m, msgs, func() bool { return m.Active() == 0 })
}

func TestBrowseBackAndForward(t *testing.T) {
	m, msgs := newBrowse(t, "#home")

	m.Update(keyRunes("3"))
	settle(t, m, msgs)

	m.Update(keyRunes("["))
	assert.Equal(t, "#home", m.Fragment())
	assert.Equal(t, 0, m.Active())
	assert.Equal(t, 0, m.page.YOffset)

	m.Update(keyRunes("]"))
	assert.Equal(t, "#projects", m.Fragment())
	assert.Equal(t, 2, m.Active())
	assert.Equal(t, m.offsets["projects"], m.page.YOffset)
}

func TestBrowseBackReplaysEntrance(t *testing.T) {
	m, msgs := newBrowse(t, "#home")

	m.Update(keyRunes("3"))
	settle(t, m, msgs)

	m.Update(keyRunes("["))
	assert.False(t, m.reveals[0].Visible(), "entrance replays after a short delay")
	pump(t, m, msgs, func() bool { return m.reveals[0].Visible() })
	assert.False(t, m.reveals[2].Visible())
}

func TestBrowseGotoPrompt(t *testing.T) {
	m, _ := newBrowse(t, "")

	m.Update(keyRunes("g"))
	require.True(t, m.prompting)
	m.Update(keyRunes("contact"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.prompting)
	assert.Equal(t, "#contact", m.Fragment())
	assert.Equal(t, 4, m.Active())
}

func TestBrowseInitialFragment(t *testing.T) {
	m, _ := newBrowse(t, "#skills")
	assert.Equal(t, 3, m.Active())
	assert.Equal(t, m.offsets["skills"], m.page.YOffset)
}

func TestHistoryAddress(t *testing.T) {
	h := newHistoryAddress("#home")
	h.SetFragment("#about")
	h.SetFragment("#about")
	h.SetFragment("#skills")

	f, ok := h.Back()
	require.True(t, ok)
	assert.Equal(t, "#about", f)

	h.SetFragment("#contact")
	_, ok = h.Forward()
	assert.False(t, ok, "new entry drops forward history")

	f, _ = h.Back()
	assert.Equal(t, "#about", f)
	f, _ = h.Back()
	assert.Equal(t, "#home", f)
	_, ok = h.Back()
	assert.False(t, ok)
}
