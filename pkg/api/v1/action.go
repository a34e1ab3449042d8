package v1

import "fmt"

// RelPoint is a screen-independent coordinate pair in [0,1000]^2. The
// dispatcher maps it to pixels using the current screenshot dimensions:
// (floor(rx*W/1000), floor(ry*H/1000)).
type RelPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Clamp returns p with both components bounded to [0,1000].
func (p RelPoint) Clamp() RelPoint {
	return RelPoint{X: clampInt(p.X, 0, 1000), Y: clampInt(p.Y, 0, 1000)}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ToPixel maps a RelPoint to absolute pixel coordinates for a screen of the
// given width and height, clamping out-of-range inputs to the boundary.
func (p RelPoint) ToPixel(width, height int) (x, y int) {
	c := p.Clamp()
	x = (c.X * width) / 1000
	y = (c.Y * height) / 1000
	if x >= width {
		x = width - 1
	}
	if y >= height {
		y = height - 1
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y
}

// ActionVerb names the kind of a tagged Action variant.
type ActionVerb string

const (
	ActionLaunch    ActionVerb = "Launch"
	ActionTap       ActionVerb = "Tap"
	ActionDoubleTap ActionVerb = "DoubleTap"
	ActionLongPress ActionVerb = "LongPress"
	ActionSwipe     ActionVerb = "Swipe"
	ActionType      ActionVerb = "Type"
	ActionBack      ActionVerb = "Back"
	ActionHome      ActionVerb = "Home"
	ActionWait      ActionVerb = "Wait"
	ActionTakeOver  ActionVerb = "TakeOver"
	ActionFinish    ActionVerb = "Finish"
)

// Action is a tagged sum type over every action the model may request. Only
// the fields relevant to Verb are populated; callers should switch on Verb
// and treat the others as zero-valued.
type Action struct {
	Verb ActionVerb `json:"verb"`

	// Launch
	App string `json:"app,omitempty"`

	// Tap / DoubleTap / LongPress
	Point RelPoint `json:"point,omitempty"`
	// SensitiveMessage is non-empty iff the model flagged the tap for
	// human confirmation before it is issued to the device.
	SensitiveMessage string `json:"sensitiveMessage,omitempty"`

	// Swipe
	Start RelPoint `json:"start,omitempty"`
	End   RelPoint `json:"end,omitempty"`

	// Type
	Text string `json:"text,omitempty"`

	// Wait / LongPress / Swipe
	DurationMs int `json:"durationMs,omitempty"`

	// TakeOver / Finish
	Message string `json:"message,omitempty"`
}

func (a Action) String() string {
	switch a.Verb {
	case ActionLaunch:
		return fmt.Sprintf("Launch{app=%q}", a.App)
	case ActionTap:
		return fmt.Sprintf("Tap{point=%v, sensitive=%q}", a.Point, a.SensitiveMessage)
	case ActionDoubleTap:
		return fmt.Sprintf("DoubleTap{point=%v}", a.Point)
	case ActionLongPress:
		return fmt.Sprintf("LongPress{point=%v}", a.Point)
	case ActionSwipe:
		return fmt.Sprintf("Swipe{start=%v, end=%v}", a.Start, a.End)
	case ActionType:
		return fmt.Sprintf("Type{text=%q}", a.Text)
	case ActionBack, ActionHome:
		return string(a.Verb)
	case ActionWait:
		return fmt.Sprintf("Wait{durationMs=%d}", a.DurationMs)
	case ActionTakeOver:
		return fmt.Sprintf("TakeOver{message=%q}", a.Message)
	case ActionFinish:
		return fmt.Sprintf("Finish{message=%q}", a.Message)
	default:
		return fmt.Sprintf("Unknown{%s}", a.Verb)
	}
}

// Outcome is the tagged result of ActionDispatcher.Execute.
type Outcome struct {
	Success      bool   `json:"success"`
	ShouldFinish bool   `json:"shouldFinish"`
	UserMessage  string `json:"userMessage,omitempty"`
}
