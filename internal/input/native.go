package input

import (
	"fmt"

	"github.com/go-vgo/robotgo"
	"go.uber.org/zap"
)

// Native drives the real system pointer through robotgo.
type Native struct {
	logger *zap.Logger
}

// NewNative creates a robotgo-backed pointer.
func NewNative(logger *zap.Logger) *Native {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Native{logger: logger}
}

// MoveTo moves the cursor to absolute screen coordinates.
func (n *Native) MoveTo(x, y float64) (err error) {
	defer n.recoverInto("move", &err)
	robotgo.Move(int(x), int(y))
	return nil
}

// Click presses and releases a mouse button.
func (n *Native) Click(button Button) (err error) {
	defer n.recoverInto("click", &err)
	robotgo.Click(string(button))
	return nil
}

// Scroll turns the wheel; positive amounts scroll up.
func (n *Native) Scroll(amount int) (err error) {
	defer n.recoverInto("scroll", &err)
	robotgo.Scroll(0, amount)
	return nil
}

// ScreenSize returns the main display size, or the fallback when unknown.
func (n *Native) ScreenSize() (width, height int) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("screen size query failed", zap.Any("panic", r))
			width, height = FallbackScreenWidth, FallbackScreenHeight
		}
	}()

	width, height = robotgo.GetScreenSize()
	if width <= 0 || height <= 0 {
		return FallbackScreenWidth, FallbackScreenHeight
	}
	return width, height
}

// recoverInto turns a panic from the native layer into an error.
func (n *Native) recoverInto(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("robotgo %s: %v", op, r)
	}
}
