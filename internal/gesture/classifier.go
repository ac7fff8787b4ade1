package gesture

import (
	"math"

	"github.com/ayusman/airmouse/internal/detector"
)

// Label is the gesture recognized in one frame.
type Label string

const (
	// LabelNone marks a frame that carries no actionable gesture, such as the
	// frame that only records the zoom baseline.
	LabelNone       Label = "none"
	LabelMove       Label = "move"
	LabelLeftClick  Label = "left_click"
	LabelRightClick Label = "right_click"
	LabelZoomIn     Label = "zoom_in"
	LabelZoomOut    Label = "zoom_out"
)

// IsClick reports whether the label is a discrete click.
func (l Label) IsClick() bool {
	return l == LabelLeftClick || l == LabelRightClick
}

// IsZoom reports whether the label is a zoom step.
func (l Label) IsZoom() bool {
	return l == LabelZoomIn || l == LabelZoomOut
}

// SpanAnchor selects what the zoom baseline follows while the open palm is held.
type SpanAnchor string

const (
	// AnchorFired keeps the baseline at the span of the last emitted zoom, so
	// slow drift below the threshold never zooms.
	AnchorFired SpanAnchor = "fired"
	// AnchorObserved moves the baseline to every observed span.
	AnchorObserved SpanAnchor = "observed"
)

// Default classifier thresholds, in source-frame pixels.
const (
	DefaultClickDistance = 40.0
	DefaultZoomDelta     = 10.0
)

// Config holds classifier tunables. Thresholds are in pixels of the frame
// the hand was converted with and must be retuned if the resolution changes.
type Config struct {
	ClickDistance float64
	ZoomDelta     float64
	// Mirrored reverses the thumb comparison so the thumb counts as up when
	// its tip is left of the IP joint. Leave it off for frames flipped at
	// capture.
	Mirrored   bool
	SpanAnchor SpanAnchor
	// BaselineLabel is emitted on the open-palm frame that records the first
	// pinch span. LabelNone unless set.
	BaselineLabel Label
}

// DefaultConfig returns the classifier defaults.
func DefaultConfig() Config {
	return Config{
		ClickDistance: DefaultClickDistance,
		ZoomDelta:     DefaultZoomDelta,
		SpanAnchor:    AnchorFired,
		BaselineLabel: LabelNone,
	}
}

// State is the classifier's cross-frame memory.
type State struct {
	// PinchSpan is the thumb to pinky distance used as the zoom baseline.
	// It is meaningful only while HasSpan is true.
	PinchSpan float64
	HasSpan   bool
}

// ClearSpan forgets the zoom baseline.
func (s *State) ClearSpan() {
	s.PinchSpan = 0
	s.HasSpan = false
}

// Result is the outcome of classifying one frame.
type Result struct {
	Found   bool
	Label   Label
	Cursor  detector.Point
	Fingers FingerState
}

// Classifier maps a pixel-space hand to a gesture. It holds configuration
// only; callers own and thread the State between frames.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier, filling zero tunables with defaults.
func NewClassifier(cfg Config) *Classifier {
	def := DefaultConfig()
	if cfg.ClickDistance <= 0 {
		cfg.ClickDistance = def.ClickDistance
	}
	if cfg.ZoomDelta <= 0 {
		cfg.ZoomDelta = def.ZoomDelta
	}
	if cfg.SpanAnchor == "" {
		cfg.SpanAnchor = def.SpanAnchor
	}
	if cfg.BaselineLabel == "" {
		cfg.BaselineLabel = def.BaselineLabel
	}
	return &Classifier{cfg: cfg}
}

// Config returns the effective configuration.
func (c *Classifier) Config() Config {
	return c.cfg
}

// Classify evaluates one hand against the prior state.
//
// Patterns are checked in priority order: pointing, pinch, open palm, then
// the two right-click poses. Leaving the open palm always clears the zoom
// baseline so re-entering it starts fresh. A hand with fewer than 21
// landmarks is reported as not found and the state is returned untouched.
func (c *Classifier) Classify(hand []detector.Point, state State) (Result, State) {
	if len(hand) < detector.NumLandmarks {
		return Result{}, state
	}

	fingers := Fingers(hand, c.cfg.Mirrored)
	res := Result{
		Found:   true,
		Label:   LabelMove,
		Cursor:  hand[detector.IndexTip],
		Fingers: fingers,
	}

	switch fingers {
	case PatternPoint:
		state.ClearSpan()

	case PatternPinch:
		state.ClearSpan()
		if d, _ := Distance(hand, detector.ThumbTip, detector.IndexTip); d < c.cfg.ClickDistance {
			res.Label = LabelLeftClick
		}

	case PatternOpen:
		res.Label, state = c.zoom(hand, state)

	case PatternThree, PatternThumbTwo:
		state.ClearSpan()
		res.Label = LabelRightClick

	default:
		state.ClearSpan()
	}

	return res, state
}

// zoom compares the current pinch span with the baseline.
func (c *Classifier) zoom(hand []detector.Point, state State) (Label, State) {
	span, _ := Distance(hand, detector.ThumbTip, detector.PinkyTip)

	if !state.HasSpan {
		state.PinchSpan = span
		state.HasSpan = true
		return c.cfg.BaselineLabel, state
	}

	diff := span - state.PinchSpan
	if math.Abs(diff) <= c.cfg.ZoomDelta {
		if c.cfg.SpanAnchor == AnchorObserved {
			state.PinchSpan = span
		}
		return LabelMove, state
	}

	state.PinchSpan = span
	if diff > 0 {
		return LabelZoomIn, state
	}
	return LabelZoomOut, state
}
