package admin

import (
	"strings"
	"time"

	"folio/internal/model"
)

const activityMark = '|'

// ActivityStrip draws day as a line of width cells, one cell per slice of
// the 24 hours, with a mark wherever a submission landed that day.
func ActivityStrip(subs []model.Submission, day time.Time, width int) string {
	if width < 1 {
		width = 1
	}
	line := []rune(strings.Repeat("-", width))
	y, m, d := day.Date()
	loc := day.Location()
	const minutesInDay = 24 * 60
	for _, s := range subs {
		t := s.SubmittedAt.In(loc)
		if ty, tm, td := t.Date(); ty != y || tm != m || td != d {
			continue
		}
		minutes := t.Hour()*60 + t.Minute()
		pos := int(float64(minutes) / float64(minutesInDay) * float64(width))
		line[min(pos, width-1)] = activityMark
	}
	return day.Format("2006-01-02") + " " + string(line)
}
