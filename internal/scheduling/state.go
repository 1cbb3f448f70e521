package scheduling

import (
	"errors"
	"fmt"
)

// State is the widget lifecycle position.
type State int

// Lifecycle states. The zero value is Idle.
const (
	Idle State = iota
	Preloading
	Loaded
	Failed
)

// ErrNotLoaded is returned when the iframe is requested before a successful preload.
var ErrNotLoaded = errors.New("scheduling widget not loaded")

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preloading:
		return "preloading"
	case Loaded:
		return "loaded"
	case Failed:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ThemeVars are the CSS custom properties applied inside the widget for one theme.
type ThemeVars struct {
	BgMuted        string `json:"cal-bg-muted"`
	BorderEmphasis string `json:"cal-border-emphasis"`
	TextEmphasis   string `json:"cal-text-emphasis"`
}

// UIConfig is applied to the widget API once it initializes.
type UIConfig struct {
	HideEventTypeDetails bool      `json:"hideEventTypeDetails"`
	Layout               string    `json:"layout"`
	BrandColor           string    `json:"brandColor"`
	Light                ThemeVars `json:"light"`
	Dark                 ThemeVars `json:"dark"`
}

// DefaultUIConfig returns the house theme with the given brand color and layout.
// Empty arguments fall back to sky blue and the month view.
func DefaultUIConfig(brandColor, layout string) UIConfig {
	if brandColor == "" {
		brandColor = "#38bdf8"
	}
	if layout == "" {
		layout = "month_view"
	}
	return UIConfig{
		Layout:     layout,
		BrandColor: brandColor,
		Light: ThemeVars{
			BgMuted:        "#f5f5f5",
			BorderEmphasis: "#e0e0e0",
			TextEmphasis:   "#333333",
		},
		Dark: ThemeVars{
			BgMuted:        "#1a1a1a",
			BorderEmphasis: "#333333",
			TextEmphasis:   "#ffffff",
		},
	}
}
