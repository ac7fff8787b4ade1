// Package app runs the local camera loop that drives the pointer from hand gestures.
package app

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/airmouse/internal/capture"
	"github.com/ayusman/airmouse/internal/detector"
	"github.com/ayusman/airmouse/internal/input"
	"github.com/ayusman/airmouse/internal/session"
	"github.com/ayusman/airmouse/internal/store"
)

// LocalSessionID identifies the camera loop's session in the action log.
const LocalSessionID = "local"

// ErrNoCamera is returned by Start when no camera is configured.
var ErrNoCamera = errors.New("no camera configured")

// HandData is the latest tracking result published to the UI.
type HandData struct {
	Found   bool   `json:"found"`
	CX      int    `json:"cx"`
	CY      int    `json:"cy"`
	Gesture string `json:"gesture"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// Config holds configuration options for the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Pointer  input.Pointer
	Store    *store.Store
	Session  session.Config
	// Perform enables pointer control at startup.
	Perform bool
	// Overlay draws the skeleton and caption onto streamed frames.
	Overlay bool
	Logger  *zap.Logger
}

// App owns the local session and publishes its results.
type App struct {
	config  Config
	logger  *zap.Logger
	mu      sync.RWMutex
	session *session.Session
	perform bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	hand HandData
	jpeg []byte
	seq  uint64

	subMu sync.Mutex
	subs  map[chan HandData]struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		config:  config,
		logger:  logger,
		session: session.New(LocalSessionID, config.Session, logger),
		perform: config.Perform,
		hand:    HandData{Gesture: "none"},
		subs:    make(map[chan HandData]struct{}),
	}
}

// SetPerform enables or disables pointer control.
func (a *App) SetPerform(perform bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.perform != perform {
		a.logger.Info("pointer control changed", zap.Bool("perform", perform))
	}
	a.perform = perform
}

// Perform reports whether pointer control is enabled.
func (a *App) Perform() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.perform
}

// Pointer returns the adapter to drive, or nil while pointer control is off.
func (a *App) Pointer() input.Pointer {
	if !a.Perform() {
		return nil
	}
	return a.config.Pointer
}

// SetSessionConfig restarts the local session with new tunables.
func (a *App) SetSessionConfig(cfg session.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.config.Session = cfg
	a.session = session.New(LocalSessionID, cfg, a.logger)
}

// Session returns the local session.
func (a *App) Session() *session.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// HandPosition returns the latest tracking result.
func (a *App) HandPosition() HandData {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.hand
}

// LatestJPEG returns the most recent encoded frame and its sequence number.
// The sequence is zero until the first frame has been processed.
func (a *App) LatestJPEG() ([]byte, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.jpeg, a.seq
}

// Subscribe registers for HandData updates. The returned function
// unsubscribes; slow subscribers miss updates rather than block the loop.
func (a *App) Subscribe() (<-chan HandData, func()) {
	ch := make(chan HandData, 8)

	a.subMu.Lock()
	a.subs[ch] = struct{}{}
	a.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.subs, ch)
			a.subMu.Unlock()
		})
	}
}

func (a *App) publish(h HandData) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	for ch := range a.subs {
		select {
		case ch <- h:
		default:
		}
	}
}

// Start opens the camera and begins the frame loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if a.config.Camera == nil {
		return ErrNoCamera
	}

	if err := a.config.Camera.Open(); err != nil {
		return err
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	a.logger.Info("camera loop started", zap.Int("fps", a.config.Camera.FPS()))
	return nil
}

// Stop halts the frame loop and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if a.config.Camera != nil {
		if err := a.config.Camera.Close(); err != nil {
			a.logger.Warn("error closing camera", zap.Error(err))
		}
	}

	if a.config.Detector != nil {
		if err := a.config.Detector.Close(); err != nil {
			a.logger.Warn("error closing detector", zap.Error(err))
		}
	}

	a.logger.Info("camera loop stopped")
}

// Running reports whether the frame loop is active.
func (a *App) Running() bool {
	a.mu.RLock()
	done := a.doneCh
	a.mu.RUnlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}
