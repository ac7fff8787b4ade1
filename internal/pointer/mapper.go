// Package pointer maps camera-space cursor positions onto the screen.
package pointer

// Defaults for a 640x480 source frame.
const (
	DefaultInset     = 100.0
	DefaultSmoothing = 7.0
)

// State is the last smoothed screen target.
type State struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Config holds mapper tunables.
type Config struct {
	// Inset is the margin in frame pixels around the active rectangle.
	Inset        float64
	ScreenWidth  float64
	ScreenHeight float64
	// Smoothing is the filter divisor; larger values lag more and jitter less.
	Smoothing float64
	// MirrorOutput flips x when handing the target to the pointer adapter.
	// Leave it off when frames are already flipped upstream.
	MirrorOutput bool
}

// Mapper converts index fingertip positions into smoothed screen targets.
type Mapper struct {
	cfg Config
}

// NewMapper creates a mapper, filling zero tunables with defaults.
func NewMapper(cfg Config) *Mapper {
	if cfg.Inset < 0 {
		cfg.Inset = 0
	}
	if cfg.Smoothing < 1 {
		cfg.Smoothing = DefaultSmoothing
	}
	return &Mapper{cfg: cfg}
}

// Config returns the effective configuration.
func (m *Mapper) Config() Config {
	return m.cfg
}

// MapAndSmooth applies the mapper configuration to one raw position.
func (m *Mapper) MapAndSmooth(rawX, rawY float64, frameW, frameH int, state State) (State, State) {
	return MapAndSmooth(rawX, rawY, float64(frameW), float64(frameH),
		m.cfg.Inset, m.cfg.ScreenWidth, m.cfg.ScreenHeight, m.cfg.Smoothing, state)
}

// Output returns the coordinates to hand to the pointer adapter.
func (m *Mapper) Output(target State) (float64, float64) {
	if m.cfg.MirrorOutput {
		return m.cfg.ScreenWidth - target.X, target.Y
	}
	return target.X, target.Y
}

// MapAndSmooth remaps a raw frame position from the active rectangle onto the
// screen and low-pass filters it against the previous target. The returned
// target is also the new state.
//
// The remap is not clamped: positions outside the active rectangle
// extrapolate past the screen edges.
func MapAndSmooth(rawX, rawY, frameW, frameH, inset, screenW, screenH, smoothing float64, state State) (State, State) {
	mx := Remap(rawX, inset, frameW-inset, 0, screenW)
	my := Remap(rawY, inset, frameH-inset, 0, screenH)

	if smoothing < 1 {
		smoothing = 1
	}
	next := State{
		X: state.X + (mx-state.X)/smoothing,
		Y: state.Y + (my-state.Y)/smoothing,
	}
	return next, next
}

// Remap linearly maps v from [inLo, inHi] to [outLo, outHi] without clamping.
// A degenerate input interval maps everything to outLo.
func Remap(v, inLo, inHi, outLo, outHi float64) float64 {
	span := inHi - inLo
	if span == 0 {
		return outLo
	}
	return outLo + (v-inLo)*(outHi-outLo)/span
}
