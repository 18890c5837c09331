package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"folio/internal/admin"
	"folio/internal/model"
)

// submissionItem wraps Submission to customize list display.
type submissionItem struct {
	model.Submission
}

func (s submissionItem) Title() string {
	indicator := "  "
	if s.Status == model.StatusNew {
		indicator = "● "
	}
	subject := s.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	return fmt.Sprintf("%s%s: %s", indicator, s.Name, subject)
}

func (s submissionItem) Description() string {
	return fmt.Sprintf("%s  %s", s.Email, shortDate(s.SubmittedAt))
}

var (
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingTop(1)
	statsStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))
	tabStyle       = lipgloss.NewStyle().Padding(0, 1)
	activeTabStyle = tabStyle.Reverse(true)
	stripStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func listFooter() string {
	return footerStyle.Render("enter: open  tab: filter  r: read  u: unread  d: delete  R: reply  s: refresh  L: logout  q: quit  ●=new")
}

func submissionsToItems(subs []model.Submission) []list.Item {
	items := make([]list.Item, len(subs))
	for i, s := range subs {
		items[i] = submissionItem{s}
	}
	return items
}

func statsLine(st model.Stats) string {
	return statsStyle.Render(fmt.Sprintf("Total %d · New %d · Read %d · Today %d", st.Total, st.New, st.Read, st.Today))
}

func filterTabs(active admin.Filter, snap admin.Snapshot) string {
	counts := map[admin.Filter]int{
		admin.FilterAll:  snap.Stats.Total,
		admin.FilterNew:  snap.Stats.New,
		admin.FilterRead: snap.Stats.Read,
	}
	var tabs []string
	for _, f := range []admin.Filter{admin.FilterAll, admin.FilterNew, admin.FilterRead} {
		label := fmt.Sprintf("%s (%d)", strings.ToUpper(string(f[:1]))+string(f[1:]), counts[f])
		if f == active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}
