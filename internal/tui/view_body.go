package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"folio/internal/model"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("39")).
	PaddingBottom(1)

func bodyHeader(s model.Submission) string {
	read := "unread"
	if s.ReadAt != nil {
		read = "read " + shortDate(*s.ReadAt)
	}
	return headerStyle.Render(fmt.Sprintf("From: %s <%s>\nSubject: %s\nDate: %s (%s)",
		s.Name, s.Email, s.Subject, shortDate(s.SubmittedAt), read))
}

func bodyFooter() string {
	return footerStyle.Render("R: reply  r: read  u: unread  d: delete  esc: back  q: quit")
}

func replyFooter() string {
	return footerStyle.Render("ctrl+s: send  esc: cancel")
}

func shortDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}
