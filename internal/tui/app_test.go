package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/admin"
	"folio/internal/auth"
	"folio/internal/delivery"
	"folio/internal/model"
	"folio/internal/store"
)

type stubSender struct {
	reqs []model.ReplyRequest
	res  delivery.Result
}

func (s *stubSender) Send(_ context.Context, req model.ReplyRequest) delivery.Result {
	s.reqs = append(s.reqs, req)
	return s.res
}

type fixture struct {
	m      *AppModel
	st     *store.SQLiteStore
	sender *stubSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "tui.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	_, err = st.CreateUser(ctx, "admin@example.com", "s3cret")
	require.NoError(t, err)
	_, err = st.InsertSubmission(ctx, model.NewSubmission{Name: "Ada", Email: "ada@example.com", Subject: "Hello", Message: "Hi there"})
	require.NoError(t, err)
	read, err := st.InsertSubmission(ctx, model.NewSubmission{Name: "Bob", Email: "bob@example.com", Subject: "Quote", Message: "How much?"})
	require.NoError(t, err)
	require.NoError(t, st.UpdateStatus(ctx, read.ID, model.StatusRead))

	svc, err := auth.NewService(st, "test-secret", time.Hour, nil)
	require.NoError(t, err)
	sender := &stubSender{res: delivery.Result{Success: true, Method: delivery.MethodWeb3Forms}}
	dash := admin.New(st, sender, admin.Owner{Name: "Owner", Email: "owner@example.com"}, nil)

	m := NewAppModel(dash, svc, nil)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return &fixture{m: m, st: st, sender: sender}
}

// step feeds msg to the model and returns the message its command produces.
func step(t *testing.T, m *AppModel, msg tea.Msg) tea.Msg {
	t.Helper()
	_, cmd := m.Update(msg)
	require.NotNil(t, cmd, "expected a command for %T", msg)
	return cmd()
}

func signIn(t *testing.T, f *fixture) {
	t.Helper()
	loaded := step(t, f.m, f.m.loginCmd("admin@example.com", "s3cret")())
	require.Equal(t, viewLoading, f.m.view)
	f.m.Update(loaded)
	require.Equal(t, viewList, f.m.view)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSignInLoadsSubmissions(t *testing.T) {
	f := newFixture(t)
	signIn(t, f)

	assert.NotNil(t, f.m.session)
	assert.Len(t, f.m.list.Items(), 2)
	assert.Equal(t, model.Stats{Total: 2, New: 1, Read: 1, Today: 2}, f.m.snap.Stats)
	assert.Contains(t, f.m.View(), "Total 2")
}

func TestSignInFailureStaysOnLogin(t *testing.T) {
	f := newFixture(t)
	f.m.Update(f.m.loginCmd("admin@example.com", "wrong")())

	assert.Equal(t, viewLogin, f.m.view)
	assert.Nil(t, f.m.session)
	assert.Contains(t, f.m.status, "Sign-in failed")
}

func TestFilterCycles(t *testing.T) {
	f := newFixture(t)
	signIn(t, f)

	f.m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, admin.FilterNew, f.m.filter)
	require.Len(t, f.m.list.Items(), 1)
	assert.Equal(t, "Ada", f.m.list.Items()[0].(submissionItem).Name)

	f.m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, admin.FilterRead, f.m.filter)
	require.Len(t, f.m.list.Items(), 1)
	assert.Equal(t, "Bob", f.m.list.Items()[0].(submissionItem).Name)

	f.m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, admin.FilterAll, f.m.filter)
}

func TestOpeningNewSubmissionMarksRead(t *testing.T) {
	f := newFixture(t)
	signIn(t, f)

	f.m.Update(tea.KeyMsg{Type: tea.KeyTab}) // only new
	res := step(t, f.m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, viewBody, f.m.view)
	require.NotNil(t, f.m.selected)
	assert.Equal(t, "Ada", f.m.selected.Name)

	action, ok := res.(actionResultMsg)
	require.True(t, ok, "got %T", res)
	require.NoError(t, action.err)

	got, err := f.st.GetSubmission(context.Background(), f.m.selected.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRead, got.Status)
}

func TestReplySendsThroughDashboard(t *testing.T) {
	f := newFixture(t)
	signIn(t, f)

	f.m.Update(tea.KeyMsg{Type: tea.KeyTab})
	f.m.Update(keyRunes("R"))
	require.Equal(t, viewReply, f.m.view)
	f.m.reply.SetValue("Thanks for reaching out")

	res := step(t, f.m, tea.KeyMsg{Type: tea.KeyCtrlS})
	f.m.Update(res)

	require.Len(t, f.sender.reqs, 1)
	req := f.sender.reqs[0]
	assert.Equal(t, "ada@example.com", req.To)
	assert.Equal(t, "Re: Hello", req.Subject)
	assert.Equal(t, "Thanks for reaching out", req.Message)
	assert.Equal(t, viewBody, f.m.view)
	assert.Equal(t, "Reply sent via web3forms.", f.m.status)
}

func TestEmptyReplyIsRejected(t *testing.T) {
	f := newFixture(t)
	signIn(t, f)

	f.m.Update(keyRunes("R"))
	f.m.Update(step(t, f.m, tea.KeyMsg{Type: tea.KeyCtrlS}))

	assert.Empty(t, f.sender.reqs)
	assert.Equal(t, viewReply, f.m.view)
	assert.Contains(t, f.m.status, admin.ErrEmptyReply.Error())
}

func TestLoadErrorIsDismissible(t *testing.T) {
	f := newFixture(t)
	signIn(t, f)

	f.m.Update(loadedMsg{err: errors.New("connection refused")})
	require.Equal(t, viewError, f.m.view)
	assert.Contains(t, f.m.View(), "connection refused")
	assert.Contains(t, f.m.View(), "enter: retry")

	f.m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, viewList, f.m.view)
	assert.Nil(t, f.m.err)
}

func TestSignOutReturnsToLogin(t *testing.T) {
	f := newFixture(t)
	signIn(t, f)

	f.m.Update(step(t, f.m, keyRunes("L")))

	assert.Equal(t, viewLogin, f.m.view)
	assert.Nil(t, f.m.session)
	assert.Empty(t, f.m.list.Items())
	assert.Equal(t, "Signed out", f.m.status)
}

func TestReplyStatus(t *testing.T) {
	cases := []struct {
		res  delivery.Result
		want string
	}{
		{delivery.Result{Success: true, Method: delivery.MethodClient}, "Email client opened. Please send the email manually."},
		{delivery.Result{Success: true, Method: delivery.MethodDemo}, "Demo mode: reply logged, nothing was sent."},
		{delivery.Result{Success: true, Method: delivery.MethodGmail}, "Reply sent via gmail."},
		{delivery.Result{Error: "all delivery methods failed"}, "Failed to send reply: all delivery methods failed"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, replyStatus(tc.res))
	}
}

func TestSubmissionItem(t *testing.T) {
	item := submissionItem{model.Submission{Name: "Ada", Status: model.StatusNew}}
	assert.True(t, strings.HasPrefix(item.Title(), "● "))
	assert.Contains(t, item.Title(), "(no subject)")

	item.Status = model.StatusRead
	item.Subject = "Hello"
	assert.Equal(t, "  Ada: Hello", item.Title())
}
