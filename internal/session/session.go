// Package session runs the per-frame cursor pipeline for one tracked hand.
package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/airmouse/internal/detector"
	"github.com/ayusman/airmouse/internal/dispatch"
	"github.com/ayusman/airmouse/internal/gesture"
	"github.com/ayusman/airmouse/internal/input"
	"github.com/ayusman/airmouse/internal/pointer"
)

// Config holds the tunables of every pipeline stage.
type Config struct {
	Classifier gesture.Config
	Pointer    pointer.Config
	Dispatch   dispatch.Config
	// ClearSpanOnLoss drops the zoom baseline when a frame has no hand, so a
	// re-acquired open palm starts fresh. Frames with a truncated landmark set
	// never touch state. Off by default: a lost hand leaves every state
	// untouched.
	ClearSpanOnLoss bool
	// MoveOnNone keeps the pointer tracking on frames labeled none.
	MoveOnNone bool
}

// DefaultConfig returns defaults for a 640x480 source and the given screen.
func DefaultConfig(screenW, screenH int) Config {
	return Config{
		Classifier: gesture.DefaultConfig(),
		Pointer: pointer.Config{
			Inset:        pointer.DefaultInset,
			ScreenWidth:  float64(screenW),
			ScreenHeight: float64(screenH),
			Smoothing:    pointer.DefaultSmoothing,
		},
		Dispatch:   dispatch.DefaultConfig(),
		MoveOnNone: true,
	}
}

// State bundles the cross-frame memory of the three stages.
type State struct {
	Classifier gesture.State  `json:"classifier"`
	Pointer    pointer.State  `json:"pointer"`
	Dispatch   dispatch.State `json:"dispatch"`
}

// Result is the outcome of one processed frame.
type Result struct {
	Found   bool                `json:"found"`
	Gesture gesture.Label       `json:"gesture"`
	Fingers gesture.FingerState `json:"-"`
	// Cursor is the index fingertip in frame pixels.
	Cursor detector.Point `json:"cursor"`
	// Target is the smoothed screen position before output mirroring.
	Target pointer.State   `json:"target"`
	Moved  bool            `json:"moved"`
	Action dispatch.Action `json:"action"`
}

// Session owns one independent set of pipeline state. Frames must be fed in
// arrival order; the mutex keeps concurrent callers from interleaving them.
type Session struct {
	id         string
	cfg        Config
	classifier *gesture.Classifier
	mapper     *pointer.Mapper
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger

	mu     sync.Mutex
	state  State
	frames uint64
}

// New creates a session with fresh state.
func New(id string, cfg Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:         id,
		cfg:        cfg,
		classifier: gesture.NewClassifier(cfg.Classifier),
		mapper:     pointer.NewMapper(cfg.Pointer),
		dispatcher: dispatch.NewDispatcher(cfg.Dispatch),
		logger:     logger.With(zap.String("session", id)),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns a snapshot of the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Frames returns how many frames the session has processed.
func (s *Session) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Process runs one frame through the pipeline. hand may be nil when the
// detector found nothing. When p is non-nil the pointer is moved and the
// dispatched action is performed on it; state advances either way.
func (s *Session) Process(hand *detector.HandLandmarks, frameW, frameH int, p input.Pointer) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames++

	if !hand.Valid() {
		// A malformed landmark set is not a lost hand.
		if hand == nil && s.cfg.ClearSpanOnLoss {
			s.state.Classifier.ClearSpan()
		}
		return Result{Gesture: gesture.LabelNone, Action: dispatch.Action{Kind: dispatch.KindNone}}
	}

	px := hand.Pixels(frameW, frameH)

	cls, clsState := s.classifier.Classify(px, s.state.Classifier)
	if !cls.Found {
		return Result{Gesture: gesture.LabelNone, Action: dispatch.Action{Kind: dispatch.KindNone}}
	}
	s.state.Classifier = clsState

	res := Result{
		Found:   true,
		Gesture: cls.Label,
		Fingers: cls.Fingers,
		Cursor:  cls.Cursor,
		Target:  s.state.Pointer,
	}

	if cls.Label != gesture.LabelNone || s.cfg.MoveOnNone {
		res.Target, s.state.Pointer = s.mapper.MapAndSmooth(cls.Cursor.X, cls.Cursor.Y, frameW, frameH, s.state.Pointer)
		res.Moved = true
		if p != nil {
			x, y := s.mapper.Output(res.Target)
			if err := p.MoveTo(x, y); err != nil {
				s.logger.Debug("pointer move failed", zap.Error(err))
			}
		}
	}

	res.Action, s.state.Dispatch = s.dispatcher.Dispatch(cls.Label, s.state.Dispatch)
	if p != nil {
		dispatch.Execute(p, res.Action, s.logger)
	}

	if res.Action.Fired() {
		s.logger.Debug("action fired",
			zap.String("action", string(res.Action.Kind)),
			zap.String("fingers", cls.Fingers.String()))
	}

	return res
}
