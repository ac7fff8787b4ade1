// Package dispatch turns per-frame gesture labels into pointer actions.
package dispatch

import (
	"github.com/ayusman/airmouse/internal/gesture"
)

// Defaults for frame-counted debouncing and zoom scrolling.
const (
	DefaultCooldown   = 15
	DefaultZoomScroll = 3
)

// Kind is the type of action emitted for a frame.
type Kind string

const (
	KindNone       Kind = "none"
	KindMove       Kind = "move"
	KindLeftClick  Kind = "left_click"
	KindRightClick Kind = "right_click"
	KindZoomIn     Kind = "zoom_in"
	KindZoomOut    Kind = "zoom_out"
)

// Action is the decision for one frame.
type Action struct {
	Kind Kind `json:"kind"`
	// Scroll is the wheel amount for zoom actions.
	Scroll int `json:"scroll,omitempty"`
}

// Discrete reports whether the action is a click.
func (a Action) Discrete() bool {
	return a.Kind == KindLeftClick || a.Kind == KindRightClick
}

// Fired reports whether the action is a click or zoom, the actions worth logging.
func (a Action) Fired() bool {
	return a.Discrete() || a.Kind == KindZoomIn || a.Kind == KindZoomOut
}

// State is the dispatcher's cross-frame memory.
type State struct {
	// CooldownRemaining counts frames until another click may fire.
	CooldownRemaining int           `json:"cooldown_remaining"`
	PreviousGesture   gesture.Label `json:"previous_gesture,omitempty"`
}

// Config holds dispatcher tunables.
type Config struct {
	// Cooldown is the number of frames a fired click blocks the next one.
	Cooldown int
	// SuppressZoomRepeat drops a zoom whose direction matches the previous
	// frame's gesture, so a held zoom fires once instead of every frame.
	SuppressZoomRepeat bool
	// ZoomScroll is the wheel amount per zoom step.
	ZoomScroll int
}

// DefaultConfig returns the dispatcher defaults.
func DefaultConfig() Config {
	return Config{
		Cooldown:   DefaultCooldown,
		ZoomScroll: DefaultZoomScroll,
	}
}

// Dispatcher decides which action a gesture triggers.
type Dispatcher struct {
	cfg Config
}

// NewDispatcher creates a dispatcher, filling zero tunables with defaults.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.ZoomScroll <= 0 {
		cfg.ZoomScroll = DefaultZoomScroll
	}
	return &Dispatcher{cfg: cfg}
}

// Config returns the effective configuration.
func (d *Dispatcher) Config() Config {
	return d.cfg
}

// Dispatch evaluates one frame's gesture.
//
// The cooldown ticks down before click eligibility is checked, so a counter
// at 1 reaches 0 and allows a click on the same frame. The gesture is
// recorded as the previous gesture regardless of the outcome.
func (d *Dispatcher) Dispatch(label gesture.Label, state State) (Action, State) {
	if state.CooldownRemaining > 0 {
		state.CooldownRemaining--
	}

	action := Action{Kind: KindNone}

	switch label {
	case gesture.LabelMove:
		action.Kind = KindMove

	case gesture.LabelLeftClick, gesture.LabelRightClick:
		if state.CooldownRemaining == 0 {
			action.Kind = KindLeftClick
			if label == gesture.LabelRightClick {
				action.Kind = KindRightClick
			}
			state.CooldownRemaining = d.cfg.Cooldown
		}

	case gesture.LabelZoomIn, gesture.LabelZoomOut:
		if d.cfg.SuppressZoomRepeat && state.PreviousGesture == label {
			break
		}
		if label == gesture.LabelZoomIn {
			action = Action{Kind: KindZoomIn, Scroll: d.cfg.ZoomScroll}
		} else {
			action = Action{Kind: KindZoomOut, Scroll: -d.cfg.ZoomScroll}
		}
	}

	state.PreviousGesture = label
	return action, state
}
