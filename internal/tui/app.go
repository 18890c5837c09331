// Package tui holds the terminal front ends: the contact-review dashboard
// and the portfolio browser.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"folio/internal/admin"
	"folio/internal/auth"
	"folio/internal/delivery"
	"folio/internal/model"
)

type viewState int

const (
	viewLogin   viewState = iota
	viewLoading           // waiting for the first load after sign-in
	viewList              // submissions list
	viewBody              // single submission
	viewReply             // composing a reply
	viewError             // store unreachable; dismissible with retry
)

type AppModel struct {
	// Core state
	dash    *admin.Dashboard
	auth    auth.Authenticator
	session *model.Session
	log     *zap.Logger
	status  string

	// Login form
	email    textinput.Model
	password textinput.Model
	focus    int

	// View state machine
	view     viewState
	prevView viewState
	filter   admin.Filter
	snap     admin.Snapshot
	selected *model.Submission

	// Error view
	err   error
	retry tea.Cmd

	// Sub-models
	list  list.Model
	body  viewport.Model
	reply textarea.Model

	// Layout
	width, height int

	program     *tea.Program
	unsubscribe func()
}

func NewAppModel(dash *admin.Dashboard, authn auth.Authenticator, log *zap.Logger) *AppModel {
	if log == nil {
		log = zap.NewNop()
	}
	email := textinput.New()
	email.Placeholder = "admin@example.com"
	email.Prompt = "Email:    "
	email.Focus()

	password := textinput.New()
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.KeyMap.Quit.SetKeys("q")
	l.SetShowTitle(false)

	ta := textarea.New()
	ta.Placeholder = "Write your reply..."
	ta.ShowLineNumbers = false

	return &AppModel{
		dash:     dash,
		auth:     authn,
		log:      log,
		email:    email,
		password: password,
		view:     viewLogin,
		filter:   admin.FilterAll,
		list:     l,
		body:     viewport.New(0, 0),
		reply:    ta,
	}
}

// SetProgram stores a reference to the tea.Program and subscribes to session
// changes, which are forwarded into the Update loop.
func (m *AppModel) SetProgram(p *tea.Program) {
	m.program = p
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.unsubscribe = m.auth.Subscribe(func(ev model.AuthEvent) {
		p.Send(sessionChangedMsg{event: ev})
	})
}

// Close drops the session subscription.
func (m *AppModel) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *AppModel) Init() tea.Cmd {
	return textinput.Blink
}

// ctx carries the session token so a hosted store sees the signed-in admin.
func (m *AppModel) ctx() context.Context {
	ctx := context.Background()
	if m.session != nil {
		ctx = auth.WithToken(ctx, m.session.Token)
	}
	return ctx
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-7) // stats, strip, tabs, footer
		m.body.Width = msg.Width
		m.body.Height = msg.Height - 8
		m.reply.SetWidth(msg.Width)
		m.reply.SetHeight(max(msg.Height-10, 3))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case loginResultMsg:
		if msg.err != nil {
			m.status = "Sign-in failed: " + msg.err.Error()
			return m, nil
		}
		sess := msg.session
		m.session = &sess
		m.password.Reset()
		m.view = viewLoading
		m.status = "Loading submissions..."
		return m, m.loadCmd()

	case sessionChangedMsg:
		if msg.event.Kind == model.SignedOut {
			m.signedOut()
		}
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.showError(msg.err, m.loadCmd())
			return m, nil
		}
		m.snap = msg.snap
		m.applyFilter()
		if m.view == viewLoading || m.view == viewError {
			m.view = viewList
		}
		m.status = ""
		return m, nil

	case actionResultMsg:
		if msg.err != nil {
			m.showError(fmt.Errorf("%s failed: %w", msg.action, msg.err), nil)
			return m, nil
		}
		m.status = msg.action + " complete"
		if msg.action == "Delete" && m.selected != nil && m.selected.ID == msg.id {
			m.selected = nil
			m.view = viewList
		}
		return m, tea.Batch(m.loadCmd(), clearStatusAfter(2*time.Second))

	case replyResultMsg:
		if msg.err != nil {
			m.status = "Failed to send reply: " + msg.err.Error()
			return m, nil
		}
		m.status = replyStatus(msg.res)
		if msg.res.Success {
			m.reply.Reset()
			m.view = viewBody
			if m.selected != nil && m.selected.Status == model.StatusNew {
				return m, tea.Batch(m.statusCmd("Mark read", m.selected.ID, model.StatusRead), clearStatusAfter(3*time.Second))
			}
		}
		return m, clearStatusAfter(3 * time.Second)

	case statusMsg:
		if string(msg) == "" {
			m.status = ""
		}
		return m, nil
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.view {
	case viewLogin:
		cmd = m.updateLoginInputs(msg)
	case viewList:
		m.list, cmd = m.list.Update(msg)
	case viewBody:
		m.body, cmd = m.body.Update(msg)
	case viewReply:
		m.reply, cmd = m.reply.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.view {
	case viewLogin:
		switch key {
		case "esc":
			return m, tea.Quit
		case "tab", "shift+tab", "up", "down":
			m.toggleFocus()
			return m, nil
		case "enter":
			if m.focus == 0 {
				m.toggleFocus()
				return m, nil
			}
			m.status = "Signing in..."
			return m, m.loginCmd(m.email.Value(), m.password.Value())
		}
		return m, m.updateLoginInputs(msg)

	case viewLoading:
		if key == "q" {
			return m, tea.Quit
		}
		return m, nil

	case viewError:
		switch key {
		case "q":
			return m, tea.Quit
		case "enter", "r":
			retry := m.retry
			m.dismissError()
			if retry != nil {
				m.status = "Retrying..."
			}
			return m, retry
		case "esc":
			m.dismissError()
			return m, nil
		}
		return m, nil

	case viewList:
		// When the list is filtering, let it handle all keys except ctrl+c
		if m.list.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}
		switch key {
		case "q":
			return m, tea.Quit
		case "tab":
			m.filter = m.filter.Next()
			m.applyFilter()
			return m, nil
		case "enter":
			return m.openSelected()
		case "r":
			return m.changeSelected("Mark read", model.StatusRead)
		case "u":
			return m.changeSelected("Mark unread", model.StatusNew)
		case "d":
			if sub, ok := m.current(); ok {
				m.status = "Deleting..."
				return m, m.deleteCmd(sub.ID)
			}
			return m, nil
		case "R":
			if sub, ok := m.current(); ok {
				m.selected = &sub
				return m.startReply()
			}
			return m, nil
		case "s":
			m.status = "Refreshing..."
			return m, m.loadCmd()
		case "L":
			return m, m.logoutCmd()
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd

	case viewBody:
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.view = viewList
			m.selected = nil
			return m, nil
		case "R":
			return m.startReply()
		case "r":
			return m.changeSelected("Mark read", model.StatusRead)
		case "u":
			return m.changeSelected("Mark unread", model.StatusNew)
		case "d":
			if m.selected != nil {
				m.status = "Deleting..."
				return m, m.deleteCmd(m.selected.ID)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.body, cmd = m.body.Update(msg)
		return m, cmd

	case viewReply:
		switch key {
		case "esc":
			m.view = viewBody
			m.reply.Blur()
			return m, nil
		case "ctrl+s":
			if m.selected == nil {
				return m, nil
			}
			m.status = "Sending reply..."
			return m, m.replyCmd(*m.selected, m.reply.Value())
		}
		var cmd tea.Cmd
		m.reply, cmd = m.reply.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *AppModel) updateLoginInputs(msg tea.Msg) tea.Cmd {
	var c1, c2 tea.Cmd
	m.email, c1 = m.email.Update(msg)
	m.password, c2 = m.password.Update(msg)
	return tea.Batch(c1, c2)
}

func (m *AppModel) toggleFocus() {
	if m.focus == 0 {
		m.focus = 1
		m.email.Blur()
		m.password.Focus()
		return
	}
	m.focus = 0
	m.password.Blur()
	m.email.Focus()
}

// current returns the highlighted submission in the list.
func (m *AppModel) current() (model.Submission, bool) {
	selected := m.list.SelectedItem()
	if selected == nil {
		return model.Submission{}, false
	}
	return selected.(submissionItem).Submission, true
}

func (m *AppModel) openSelected() (tea.Model, tea.Cmd) {
	sub, ok := m.current()
	if !ok {
		return m, nil
	}
	m.selected = &sub
	m.body.SetContent(bodyHeader(sub) + "\n\n" + sub.Message)
	m.body.GotoTop()
	m.view = viewBody
	if sub.Status == model.StatusNew {
		return m, m.statusCmd("Mark read", sub.ID, model.StatusRead)
	}
	return m, nil
}

func (m *AppModel) changeSelected(action string, status model.Status) (tea.Model, tea.Cmd) {
	var sub model.Submission
	if m.view == viewBody && m.selected != nil {
		sub = *m.selected
	} else if cur, ok := m.current(); ok {
		sub = cur
	} else {
		return m, nil
	}
	if sub.Status == status {
		return m, nil
	}
	m.status = action + "..."
	return m, m.statusCmd(action, sub.ID, status)
}

func (m *AppModel) startReply() (tea.Model, tea.Cmd) {
	m.prevView = m.view
	m.view = viewReply
	m.reply.Reset()
	return m, m.reply.Focus()
}

func (m *AppModel) applyFilter() {
	subs := m.filter.Apply(m.snap.Submissions)
	m.list.SetItems(submissionsToItems(subs))
	if m.selected != nil {
		for _, s := range m.snap.Submissions {
			if s.ID == m.selected.ID {
				sub := s
				m.selected = &sub
				if m.view == viewBody {
					m.body.SetContent(bodyHeader(sub) + "\n\n" + sub.Message)
				}
				break
			}
		}
	}
}

func (m *AppModel) showError(err error, retry tea.Cmd) {
	m.log.Warn("dashboard error", zap.Error(err))
	m.err = err
	m.retry = retry
	if m.view != viewError {
		m.prevView = m.view
	}
	m.view = viewError
	m.status = ""
}

func (m *AppModel) dismissError() {
	m.err = nil
	m.retry = nil
	m.view = m.prevView
	if m.view == viewLoading || m.view == viewError {
		m.view = viewList
	}
}

func (m *AppModel) signedOut() {
	m.session = nil
	m.snap = admin.Snapshot{}
	m.selected = nil
	m.list.SetItems(nil)
	m.view = viewLogin
	m.focus = 1
	m.toggleFocus()
	m.status = "Signed out"
}

// Commands

func (m *AppModel) loginCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		sess, err := m.auth.SignIn(context.Background(), email, password)
		return loginResultMsg{session: sess, err: err}
	}
}

func (m *AppModel) logoutCmd() tea.Cmd {
	if m.session == nil {
		return nil
	}
	token := m.session.Token
	return func() tea.Msg {
		if err := m.auth.SignOut(context.Background(), token); err != nil {
			return actionResultMsg{action: "Sign out", err: err}
		}
		// The subscription normally delivers this; returning it covers
		// authenticators that do not publish.
		return sessionChangedMsg{event: model.AuthEvent{Kind: model.SignedOut}}
	}
}

func (m *AppModel) loadCmd() tea.Cmd {
	ctx := m.ctx()
	return func() tea.Msg {
		snap, err := m.dash.Load(ctx)
		return loadedMsg{snap: snap, err: err}
	}
}

func (m *AppModel) statusCmd(action, id string, status model.Status) tea.Cmd {
	ctx := m.ctx()
	return func() tea.Msg {
		var err error
		if status == model.StatusRead {
			err = m.dash.MarkRead(ctx, id)
		} else {
			err = m.dash.MarkUnread(ctx, id)
		}
		return actionResultMsg{action: action, id: id, err: err}
	}
}

func (m *AppModel) deleteCmd(id string) tea.Cmd {
	ctx := m.ctx()
	return func() tea.Msg {
		return actionResultMsg{action: "Delete", id: id, err: m.dash.Delete(ctx, id)}
	}
}

func (m *AppModel) replyCmd(sub model.Submission, message string) tea.Cmd {
	ctx := m.ctx()
	return func() tea.Msg {
		res, err := m.dash.Reply(ctx, sub, message)
		return replyResultMsg{res: res, err: err}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMsg("")
	})
}

// replyStatus tells the admin what actually happened to a reply.
func replyStatus(res delivery.Result) string {
	if !res.Success {
		msg := res.Error
		if msg == "" && res.Err != nil {
			msg = res.Err.Error()
		}
		return "Failed to send reply: " + msg
	}
	switch res.Method {
	case delivery.MethodClient:
		return "Email client opened. Please send the email manually."
	case delivery.MethodDemo:
		return "Demo mode: reply logged, nothing was sent."
	default:
		return fmt.Sprintf("Reply sent via %s.", res.Method)
	}
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	var b strings.Builder

	switch m.view {
	case viewLogin:
		b.WriteString(headerStyle.Render("Contact admin sign-in"))
		b.WriteString("\n")
		b.WriteString(m.email.View())
		b.WriteString("\n")
		b.WriteString(m.password.View())
		b.WriteString("\n")
		b.WriteString(footerStyle.Render("tab: switch field  enter: sign in  esc: quit"))
	case viewLoading:
		if m.status != "" {
			return m.status + "\n"
		}
		return "Loading...\n"
	case viewError:
		b.WriteString("Error: " + m.err.Error() + "\n")
		hint := "esc: dismiss  q: quit"
		if m.retry != nil {
			hint = "enter: retry  " + hint
		}
		b.WriteString(footerStyle.Render(hint))
	case viewList:
		b.WriteString(statsLine(m.snap.Stats))
		b.WriteString("\n")
		b.WriteString(stripStyle.Render(admin.ActivityStrip(m.snap.Submissions, time.Now(), max(m.width-11, 24))))
		b.WriteString("\n")
		b.WriteString(filterTabs(m.filter, m.snap))
		b.WriteString("\n")
		b.WriteString(m.list.View())
		b.WriteString("\n")
		b.WriteString(listFooter())
	case viewBody:
		b.WriteString(m.body.View())
		b.WriteString("\n")
		b.WriteString(bodyFooter())
	case viewReply:
		if m.selected != nil {
			req := m.dash.ReplyRequest(*m.selected, "")
			b.WriteString(headerStyle.Render(fmt.Sprintf("To: %s <%s>\nSubject: %s", req.ToName, req.To, req.Subject)))
			b.WriteString("\n")
		}
		b.WriteString(m.reply.View())
		b.WriteString("\n")
		b.WriteString(replyFooter())
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}

	return b.String()
}

// Err reports a failure that ended the program, for the caller to print.
func (m *AppModel) Err() error {
	if m.view == viewError {
		return m.err
	}
	return nil
}

