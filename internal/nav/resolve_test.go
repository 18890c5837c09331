package nav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"folio/internal/model"
)

var testItems = []model.NavigationItem{
	{Label: "Home", Href: "#home"},
	{Label: "About", Href: "#about"},
	{Label: "Projects", Href: "#projects"},
	{Label: "Skills", Href: "#skills"},
	{Label: "Contact", Href: "#contact"},
}

func offsets(m map[string]float64) OffsetFunc {
	return func(id string) (float64, bool) {
		v, ok := m[id]
		return v, ok
	}
}

func TestResolve(t *testing.T) {
	page := offsets(map[string]float64{"home": 0, "about": 1000, "projects": 2000})
	items := testItems[:3]

	tests := []struct {
		name   string
		scroll float64
		want   int
	}{
		{"top of page", 0, 0},
		{"below home threshold", 400, 0},
		{"at home threshold", 500, 0},
		{"about with smaller buffer", 900, 1},
		{"still about before projects buffer", 1849, 1},
		{"projects buffer reached", 1850, 2},
		{"far below", 5000, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Resolve(items, page, tc.scroll, 800, DefaultThresholds())
			assert.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveNoSections(t *testing.T) {
	_, ok := Resolve(testItems, offsets(nil), 300, 800, DefaultThresholds())
	assert.False(t, ok)
}

func TestResolveWithoutSecondSectionUsesViewport(t *testing.T) {
	page := offsets(map[string]float64{"home": 0, "projects": 2000})
	got, ok := Resolve(testItems[:3], page, 600, 800, DefaultThresholds())
	assert.True(t, ok)
	assert.Equal(t, 0, got, "600 < 0.8*800")

	got, _ = Resolve(testItems[:3], page, 1900, 800, DefaultThresholds())
	assert.Equal(t, 2, got)
}

func TestResolveSkipsNonFragmentItems(t *testing.T) {
	items := append([]model.NavigationItem{}, testItems[:2]...)
	items = append(items, model.NavigationItem{Label: "Blog", Href: "https://example.com/blog"})
	page := offsets(map[string]float64{"home": 0, "about": 1000, "https://example.com/blog": 10})
	got, ok := Resolve(items, page, 3000, 800, DefaultThresholds())
	assert.True(t, ok)
	assert.Equal(t, 1, got)
}

func TestResolveIsMonotonicInScroll(t *testing.T) {
	page := offsets(map[string]float64{"home": 0, "about": 900, "projects": 1700, "skills": 2600, "contact": 3100})
	prev := 0
	for y := 0.0; y <= 4000; y += 5 {
		got, ok := Resolve(testItems, page, y, 700, DefaultThresholds())
		assert.True(t, ok)
		if got < prev {
			t.Fatalf("index went backwards at %v: %d -> %d", y, prev, got)
		}
		assert.GreaterOrEqual(t, got, 0)
		assert.Less(t, got, len(testItems))
		prev = got
	}
	assert.Equal(t, 4, prev)
}

func TestThresholdDefaults(t *testing.T) {
	assert.Equal(t, DefaultThresholds(), Thresholds{}.WithDefaults())

	th := Thresholds{ScrollDelay: -1}.WithDefaults()
	assert.Zero(t, th.ScrollDelay, "negative delay scrolls at once")

	th = Thresholds{ScrollDelay: 20 * time.Millisecond}.WithDefaults()
	assert.Equal(t, 20*time.Millisecond, th.ScrollDelay)
}
