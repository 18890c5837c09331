package nav

import "time"

// Thresholds tune the scroll detector and the click suppression window.
// Distances are in the host's scroll units (pixels on a page, rows in a terminal).
type Thresholds struct {
	// HomeRatio of the second section's offset below which the first item is active.
	HomeRatio float64 `yaml:"home_ratio"`
	// ViewportRatio of the viewport height used instead when the second section is missing.
	ViewportRatio float64 `yaml:"viewport_ratio"`
	Buffer        float64 `yaml:"buffer"`
	SecondBuffer  float64 `yaml:"second_buffer"`

	NavigatingHold time.Duration `yaml:"navigating_hold"`
	SettleHold     time.Duration `yaml:"settle_hold"`

	// ScrollDelay is negative for an immediate scroll.
	ScrollDelay  time.Duration `yaml:"scroll_delay"`
	InitialCheck time.Duration `yaml:"initial_check"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		HomeRatio:      0.5,
		ViewportRatio:  0.8,
		Buffer:         150,
		SecondBuffer:   100,
		NavigatingHold: time.Second,
		SettleHold:     500 * time.Millisecond,
		ScrollDelay:    100 * time.Millisecond,
		InitialCheck:   time.Second,
	}
}

// WithDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.HomeRatio <= 0 {
		t.HomeRatio = d.HomeRatio
	}
	if t.ViewportRatio <= 0 {
		t.ViewportRatio = d.ViewportRatio
	}
	if t.Buffer == 0 {
		t.Buffer = d.Buffer
	}
	if t.SecondBuffer == 0 {
		t.SecondBuffer = d.SecondBuffer
	}
	if t.NavigatingHold <= 0 {
		t.NavigatingHold = d.NavigatingHold
	}
	if t.SettleHold <= 0 {
		t.SettleHold = d.SettleHold
	}
	switch {
	case t.ScrollDelay == 0:
		t.ScrollDelay = d.ScrollDelay
	case t.ScrollDelay < 0:
		t.ScrollDelay = 0
	}
	if t.InitialCheck <= 0 {
		t.InitialCheck = d.InitialCheck
	}
	return t
}
