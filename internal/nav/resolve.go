package nav

import (
	"strings"

	"folio/internal/model"
)

// OffsetFunc returns the page offset of the section with the given id, or
// false when the section is not rendered.
type OffsetFunc func(id string) (float64, bool)

type located struct {
	index  int
	offset float64
}

// Resolve computes which navigation item is active at scrollY. The first item
// owns the top of the page up to a threshold derived from the second item's
// offset (or the viewport height when the second item is missing). Past that,
// sections are scanned from last to first and the first one whose offset minus
// its buffer has been reached wins. ok is false when no section could be
// located, in which case the caller must leave its state unchanged.
func Resolve(items []model.NavigationItem, offset OffsetFunc, scrollY, viewportHeight float64, th Thresholds) (index int, ok bool) {
	th = th.WithDefaults()

	var sections []located
	for i, item := range items {
		if !strings.HasPrefix(item.Href, "#") {
			continue
		}
		off, found := offset(item.SectionID())
		if !found {
			continue
		}
		sections = append(sections, located{index: i, offset: off})
	}
	if len(sections) == 0 {
		return 0, false
	}

	homeEnd := viewportHeight * th.ViewportRatio
	for _, s := range sections {
		if s.index == 1 {
			homeEnd = s.offset * th.HomeRatio
			break
		}
	}
	if scrollY < homeEnd {
		return 0, true
	}

	for i := len(sections) - 1; i >= 0; i-- {
		s := sections[i]
		if s.index == 0 {
			continue
		}
		buffer := th.Buffer
		if s.index == 1 {
			buffer = th.SecondBuffer
		}
		if scrollY >= s.offset-buffer {
			return s.index, true
		}
	}
	// Past the home threshold but short of every trigger point.
	return 0, true
}
