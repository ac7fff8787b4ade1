// Package input injects pointer events into the operating system.
package input

import (
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Button is a mouse button name.
type Button string

const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)

// Fallback screen size when the display cannot be queried.
const (
	FallbackScreenWidth  = 800
	FallbackScreenHeight = 600
)

// Pointer is the platform pointer adapter. Calls are fire-and-forget.
type Pointer interface {
	MoveTo(x, y float64) error
	Click(button Button) error
	Scroll(amount int) error
	ScreenSize() (width, height int)
}

// HasDisplay reports whether a graphical session is available.
func HasDisplay() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// New returns the native pointer when a display is available, otherwise a
// headless pointer that only logs.
func New(logger *zap.Logger) Pointer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if HasDisplay() {
		return NewNative(logger)
	}
	logger.Info("no display found, pointer control is headless")
	return NewHeadless(logger, FallbackScreenWidth, FallbackScreenHeight)
}

// Headless is a Pointer that records nothing on screen and logs each call.
type Headless struct {
	logger        *zap.Logger
	width, height int
}

// NewHeadless creates a headless pointer reporting the given screen size.
func NewHeadless(logger *zap.Logger, width, height int) *Headless {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Headless{logger: logger, width: width, height: height}
}

func (h *Headless) MoveTo(x, y float64) error {
	h.logger.Debug("headless move", zap.Int("x", int(x)), zap.Int("y", int(y)))
	return nil
}

func (h *Headless) Click(button Button) error {
	h.logger.Debug("headless click", zap.String("button", string(button)))
	return nil
}

func (h *Headless) Scroll(amount int) error {
	h.logger.Debug("headless scroll", zap.Int("amount", amount))
	return nil
}

func (h *Headless) ScreenSize() (int, int) {
	return h.width, h.height
}

// Event is a pointer call captured by a Recorder.
type Event struct {
	Op     string
	X, Y   float64
	Button Button
	Amount int
}

// Recorder is a Pointer that stores every call, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Width  int
	Height int
	Err    error
}

// NewRecorder creates a recorder reporting the given screen size.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{Width: width, Height: height}
}

func (r *Recorder) MoveTo(x, y float64) error {
	r.record(Event{Op: "move", X: x, Y: y})
	return r.Err
}

func (r *Recorder) Click(button Button) error {
	r.record(Event{Op: "click", Button: button})
	return r.Err
}

func (r *Recorder) Scroll(amount int) error {
	r.record(Event{Op: "scroll", Amount: amount})
	return r.Err
}

func (r *Recorder) ScreenSize() (int, int) {
	return r.Width, r.Height
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded calls.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many calls of the given op were recorded.
func (r *Recorder) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Op == op {
			n++
		}
	}
	return n
}
