package delivery

import (
	"context"
	"net/url"
	"strings"

	"folio/internal/model"
)

// Launcher opens a URL with whatever the host uses for mailto links.
type Launcher interface {
	Open(url string) error
}

type LauncherFunc func(url string) error

func (f LauncherFunc) Open(url string) error { return f(url) }

// MailClient is the last resort: it prepares the message for the user's own
// mail program. It is always configured. Success here only means the client
// was opened, not that anything was sent.
type MailClient struct {
	// Launcher is nil when running server-side; the link is then only
	// returned to the caller.
	Launcher Launcher
}

func (m *MailClient) Method() Method { return MethodClient }

func (m *MailClient) Configured() bool { return true }

func (m *MailClient) Attempt(_ context.Context, req model.ReplyRequest) (Outcome, error) {
	link := MailtoLink(req.To, req.Subject, req.Message)
	if m.Launcher != nil {
		if err := m.Launcher.Open(link); err != nil {
			return Outcome{Link: link}, err
		}
	}
	return Outcome{
		Partial: true,
		Link:    link,
		Message: "Email client opened. Please send the email manually.",
	}, nil
}

// MailtoLink builds mailto:to?subject=..&body=.. with both values escaped the
// way encodeURIComponent does.
func MailtoLink(to, subject, body string) string {
	return "mailto:" + strings.ReplaceAll(escapeComponent(to), "%40", "@") +
		"?subject=" + escapeComponent(subject) +
		"&body=" + escapeComponent(body)
}

func escapeComponent(s string) string {
	e := strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
	// QueryEscape is stricter than encodeURIComponent for these.
	return strings.NewReplacer(
		"%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*",
	).Replace(e)
}
