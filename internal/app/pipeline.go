package app

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/airmouse/internal/capture"
	"github.com/ayusman/airmouse/internal/detector"
	"github.com/ayusman/airmouse/internal/overlay"
	"github.com/ayusman/airmouse/internal/session"
	"github.com/ayusman/airmouse/internal/store"
)

// runPipeline reads, processes and publishes frames at the camera rate until
// stop is closed or a finite source runs out.
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	fps := a.config.Camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		frame, err := a.config.Camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				a.logger.Info("video source ended")
				return
			}
			a.logger.Debug("error reading frame", zap.Error(err))
			continue
		}

		a.ProcessFrame(frame)
		frame.Close()
	}
}

// ProcessFrame runs one frame through detection, the local session, the
// overlay and publication. frame is drawn on but not closed.
func (a *App) ProcessFrame(frame *gocv.Mat) session.Result {
	w, h := frame.Cols(), frame.Rows()

	var hand *detector.HandLandmarks
	if a.config.Detector != nil {
		hands, err := a.config.Detector.Detect(frame)
		if err != nil {
			// Frame-local: the next frame gets a fresh attempt.
			a.logger.Debug("error detecting hands", zap.Error(err))
		} else {
			hand = detector.First(hands)
		}
	}

	s := a.Session()
	res := s.Process(hand, w, h, a.Pointer())

	data := HandData{Found: false, Gesture: "none"}
	if res.Found {
		data = HandData{
			Found:   true,
			CX:      int(res.Cursor.X),
			CY:      int(res.Cursor.Y),
			Gesture: string(res.Gesture),
			Width:   w,
			Height:  h,
		}
	}

	if res.Action.Fired() {
		a.logAction(res)
	}

	var jpeg []byte
	if a.config.Overlay {
		f := overlay.Frame{
			Inset:   int(a.currentInset()),
			Caption: data.Gesture,
		}
		if res.Found {
			f.Hand = hand.Pixels(w, h)
			f.Cursor = res.Cursor
		}
		overlay.Draw(frame, f)
	}
	if buf, err := gocv.IMEncode(".jpg", *frame); err == nil {
		jpeg = append([]byte(nil), buf.GetBytes()...)
		buf.Close()
	} else {
		a.logger.Debug("error encoding frame", zap.Error(err))
	}

	a.mu.Lock()
	a.hand = data
	if jpeg != nil {
		a.jpeg = jpeg
		a.seq++
	}
	a.mu.Unlock()

	a.publish(data)
	return res
}

func (a *App) currentInset() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config.Session.Pointer.Inset
}

func (a *App) logAction(res session.Result) {
	if a.config.Store == nil {
		return
	}
	e := &store.ActionEvent{
		SessionID: LocalSessionID,
		Gesture:   string(res.Gesture),
		Action:    string(res.Action.Kind),
		X:         res.Target.X,
		Y:         res.Target.Y,
	}
	if err := a.config.Store.Actions().Create(e); err != nil {
		a.logger.Warn("failed to record action", zap.Error(err))
	}
}
