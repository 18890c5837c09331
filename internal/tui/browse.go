package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"folio/internal/bus"
	"folio/internal/config"
	"folio/internal/nav"
)

var (
	navStyle       = lipgloss.NewStyle().Padding(0, 1)
	activeNavStyle = navStyle.Bold(true).Foreground(lipgloss.Color("39")).Underline(true)
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	hiddenStyle    = lipgloss.NewStyle().Faint(true)
)

// BrowseModel renders the portfolio as one scrollable page with a navigation
// bar whose highlight follows clicks, scrolling and address changes.
type BrowseModel struct {
	site    *config.Site
	sync    *nav.Synchronizer
	reveals []*nav.Reveal
	addr    *historyAddress
	clock   *loopClock
	log     *zap.Logger

	active int
	cancel []func()

	page    viewport.Model
	offsets map[string]int
	ready   bool

	prompting bool
	prompt    textinput.Model

	width, height int
}

// NewBrowseModel builds the page for site. fragment is the initial address
// ("#projects"), which may be empty.
func NewBrowseModel(site *config.Site, fragment string, log *zap.Logger) (*BrowseModel, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &BrowseModel{
		site:    site,
		addr:    newHistoryAddress(fragment),
		clock:   &loopClock{},
		log:     log,
		page:    viewport.New(0, 0),
		offsets: map[string]int{},
	}
	m.prompt = textinput.New()
	m.prompt.Prompt = "Go to #"
	m.prompt.CharLimit = 64

	sections := bus.New[nav.SectionChange]()
	sync, err := nav.New(nav.Options{
		Items:      site.Nav,
		Thresholds: site.BrowseThresholds,
		Layout:     pageLayout{m},
		Scroller:   pageScroller{m},
		Address:    m.addr,
		Clock:      m.clock,
		Scheduler:  nav.FrameScheduler{Clock: m.clock},
		Sections:   sections,
		Logger:     log.Named("nav"),
	})
	if err != nil {
		return nil, err
	}
	m.sync = sync
	m.active = sync.Active()
	m.cancel = append(m.cancel, sync.OnChange(func(i int) { m.active = i }))

	for _, sec := range site.Sections {
		r := nav.NewReveal(sec.ID, sections, m.clock, site.BrowseReveal)
		m.cancel = append(m.cancel, r.OnChange(func(bool) { m.render() }))
		m.reveals = append(m.reveals, r)
	}
	return m, nil
}

// SetProgram routes timer callbacks through p.
func (m *BrowseModel) SetProgram(p *tea.Program) {
	m.clock.send = p.Send
}

// Active is the index of the highlighted navigation item.
func (m *BrowseModel) Active() int { return m.active }

// Fragment is the current address fragment.
func (m *BrowseModel) Fragment() string { return m.addr.Fragment() }

func (m *BrowseModel) Init() tea.Cmd {
	m.sync.Start()
	for _, r := range m.reveals {
		r.Prime(m.addr.Fragment())
	}
	return nil
}

// Close stops timers and subscriptions.
func (m *BrowseModel) Close() {
	for _, c := range m.cancel {
		c()
	}
	m.cancel = nil
	for _, r := range m.reveals {
		r.Close()
	}
	m.sync.Close()
}

func (m *BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case callbackMsg:
		msg()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.page.Width = msg.Width
		m.page.Height = max(msg.Height-3, 1) // nav bar, status line
		first := !m.ready
		m.ready = true
		m.render()
		if first {
			if off, ok := m.offsets[strings.TrimPrefix(m.addr.Fragment(), "#")]; ok {
				m.page.SetYOffset(off)
			}
		}
		m.scrolled()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *BrowseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.prompting {
		switch key {
		case "esc":
			m.prompting = false
			m.prompt.Blur()
			return m, nil
		case "enter":
			m.prompting = false
			m.prompt.Blur()
			if v := strings.TrimPrefix(strings.TrimSpace(m.prompt.Value()), "#"); v != "" {
				m.addr.SetFragment("#" + v)
				m.jump(m.addr.Fragment())
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	n := len(m.site.Nav)
	switch key {
	case "q", "esc":
		return m, tea.Quit
	case "tab", "right", "l":
		m.click((m.active + 1) % n)
	case "shift+tab", "left", "h":
		m.click((m.active + n - 1) % n)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.click(int(key[0] - '1'))
	case "j", "down":
		m.scrollBy(1)
	case "k", "up":
		m.scrollBy(-1)
	case "pgdown", " ", "f":
		m.scrollBy(m.page.Height)
	case "pgup", "b":
		m.scrollBy(-m.page.Height)
	case "home":
		m.scrollBy(-m.page.YOffset)
	case "[":
		if f, ok := m.addr.Back(); ok {
			m.jump(f)
		}
	case "]":
		if f, ok := m.addr.Forward(); ok {
			m.jump(f)
		}
	case "g":
		m.prompting = true
		m.prompt.Reset()
		return m, m.prompt.Focus()
	}
	return m, nil
}

func (m *BrowseModel) click(i int) {
	if err := m.sync.Click(i); err != nil {
		m.log.Debug("ignoring navigation key", zap.Error(err))
	}
}

func (m *BrowseModel) scrollBy(n int) {
	m.page.SetYOffset(m.page.YOffset + n)
	m.scrolled()
}

// jump follows an external address change: the page moves to the anchor
// without a section broadcast, and the target section replays its entrance.
func (m *BrowseModel) jump(fragment string) {
	if off, ok := m.offsets[strings.TrimPrefix(fragment, "#")]; ok {
		m.page.SetYOffset(off)
		m.scrolled()
	}
	m.sync.FragmentChanged(fragment)
	for _, r := range m.reveals {
		r.FragmentChanged(fragment)
	}
}

// scrolled reports the new position to the detector and the reveals.
func (m *BrowseModel) scrolled() {
	y := m.page.YOffset
	m.sync.Scroll(float64(y))
	for _, r := range m.reveals {
		top, ok := m.offsets[r.ID()]
		if !ok {
			continue
		}
		r.Observe(float64(top), float64(m.sectionHeight(r.ID())), float64(y), float64(m.page.Height))
	}
}

func (m *BrowseModel) sectionHeight(id string) int {
	top := m.offsets[id]
	end := m.page.TotalLineCount()
	for _, sec := range m.site.Sections {
		if off, ok := m.offsets[sec.ID]; ok && off > top && off < end {
			end = off
		}
	}
	return end - top
}

// render lays the sections out on the page and records where each one starts.
// Every section is padded to most of a screen so that each can reach the
// detector's trigger point.
func (m *BrowseModel) render() {
	if !m.ready {
		return
	}
	width := max(m.page.Width-2, 20)
	minLines := max(m.page.Height*4/5, 1)
	body := lipgloss.NewStyle().Width(width)

	var lines []string
	offsets := make(map[string]int, len(m.site.Sections))
	for i, sec := range m.site.Sections {
		offsets[sec.ID] = len(lines)
		var block []string
		block = append(block, titleStyle.Render(sec.Title), "")
		for _, p := range sec.Body {
			block = append(block, strings.Split(body.Render(p), "\n")...)
			block = append(block, "")
		}
		for len(block) < minLines {
			block = append(block, "")
		}
		if !m.revealed(i) {
			for j := range block {
				block[j] = hiddenStyle.Render(block[j])
			}
		}
		lines = append(lines, block...)
	}
	lines = append(lines, make([]string, m.page.Height/2)...)
	m.offsets = offsets
	m.page.SetContent(strings.Join(lines, "\n"))
}

func (m *BrowseModel) revealed(i int) bool {
	return i < len(m.reveals) && m.reveals[i].Visible()
}

func (m *BrowseModel) View() string {
	var b strings.Builder
	items := make([]string, len(m.site.Nav))
	for i, item := range m.site.Nav {
		label := fmt.Sprintf("%d %s", i+1, item.Label)
		if i == m.active {
			items[i] = activeNavStyle.Render(label)
		} else {
			items[i] = navStyle.Render(label)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, items...))
	b.WriteString("\n")
	if !m.ready {
		b.WriteString("Loading...\n")
		return b.String()
	}
	b.WriteString(m.page.View())
	b.WriteString("\n")
	if m.prompting {
		b.WriteString(m.prompt.View())
	} else {
		b.WriteString(footerStyle.UnsetPaddingTop().Render(fmt.Sprintf("%s  1-9/tab: jump  j/k: scroll  [ ]: back/forward  g: go to  q: quit", m.addr.Fragment())))
	}
	return b.String()
}

// pageLayout reports section offsets in rows.
type pageLayout struct{ m *BrowseModel }

func (l pageLayout) SectionOffset(id string) (float64, bool) {
	off, ok := l.m.offsets[id]
	return float64(off), ok
}

func (l pageLayout) ViewportHeight() float64 { return float64(l.m.page.Height) }

type pageScroller struct{ m *BrowseModel }

func (s pageScroller) ScrollToTop() {
	s.m.page.GotoTop()
	s.m.scrolled()
}

func (s pageScroller) ScrollToSection(id string) {
	off, ok := s.m.offsets[id]
	if !ok {
		return
	}
	s.m.page.SetYOffset(off)
	s.m.scrolled()
}
