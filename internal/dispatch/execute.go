package dispatch

import (
	"go.uber.org/zap"

	"github.com/ayusman/airmouse/internal/input"
)

// Execute performs a non-move action on the pointer adapter. Errors are
// logged and dropped; a failing adapter never stops the frame loop.
func Execute(p input.Pointer, a Action, logger *zap.Logger) {
	if p == nil {
		return
	}

	var err error
	switch a.Kind {
	case KindLeftClick:
		err = p.Click(input.ButtonLeft)
	case KindRightClick:
		err = p.Click(input.ButtonRight)
	case KindZoomIn, KindZoomOut:
		err = p.Scroll(a.Scroll)
	default:
		return
	}

	if err != nil && logger != nil {
		logger.Warn("pointer action failed", zap.String("action", string(a.Kind)), zap.Error(err))
	}
}
