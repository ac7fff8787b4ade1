// Package server provides the HTTP server for the airmouse controller.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/airmouse/internal/app"
	"github.com/ayusman/airmouse/internal/config"
	"github.com/ayusman/airmouse/internal/detector"
	"github.com/ayusman/airmouse/internal/server/api"
	"github.com/ayusman/airmouse/internal/session"
	"github.com/ayusman/airmouse/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	// App provides the local loop's state and the pointer control flag.
	App      *app.App
	Detector detector.Detector
	// Sessions serves POST /frame callers.
	Sessions *session.Manager
	// MirrorFrames flips uploaded frames before detection. It must match the
	// local camera setting; output mirroring is disabled while it is set.
	MirrorFrames bool
	// Tunables are the values in effect at startup.
	Tunables     config.Tunables
	ScreenWidth  int
	ScreenHeight int
	// FrameSuppressZoomRepeat is forced onto /frame sessions when settings change.
	FrameSuppressZoomRepeat bool
	Logger                  *zap.Logger
}

// Server represents the HTTP server for the airmouse application.
type Server struct {
	config Config
	logger *zap.Logger
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config: config,
		logger: logger,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App != nil {
		s.mux.HandleFunc("/set_mouse", s.handleSetMouse)
		s.mux.HandleFunc("/hand_position", s.handleHandPosition)
		s.mux.Handle("/video_feed", NewStreamHandler(s.config.App))
		s.mux.Handle("/api/hand/ws", NewHandHandler(s.config.App, s.logger))
	}
	s.mux.HandleFunc("/set_hsv", s.handleSetHSV)

	if s.config.Detector != nil && s.config.Sessions != nil {
		s.mux.Handle("/frame", NewFrameHandler(FrameConfig{
			Detector: s.config.Detector,
			Sessions: s.config.Sessions,
			App:      s.config.App,
			Store:    s.config.Store,
			Mirror:   s.config.MirrorFrames,
			Logger:   s.logger,
		}))
	}

	if s.config.Store != nil {
		settings := api.NewSettingsHandler(s.config.Store, s.config.Tunables, s.applyTunables)
		s.mux.Handle("/api/settings", settings)
		s.mux.Handle("/api/actions", api.NewActionLogHandler(s.config.Store))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// applyTunables pushes new tunables to the local loop and future /frame sessions.
func (s *Server) applyTunables(t config.Tunables) {
	if s.config.MirrorFrames && t.MirrorOutput {
		s.logger.Warn("frames are mirrored at capture; ignoring mirror_output")
	}
	t = t.ForFrames(s.config.MirrorFrames)
	cfg := t.Session(s.config.ScreenWidth, s.config.ScreenHeight)

	if s.config.App != nil {
		s.config.App.SetSessionConfig(cfg)
	}
	if s.config.Sessions != nil {
		frameCfg := cfg
		frameCfg.Dispatch.SuppressZoomRepeat = s.config.FrameSuppressZoomRepeat || t.SuppressZoomRepeat
		s.config.Sessions.SetConfig(frameCfg)
	}
	s.logger.Info("tunables updated",
		zap.Float64("smoothing", t.Smoothing),
		zap.Int("cooldown", t.Cooldown))
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Sessions != nil {
		response["sessions"] = s.config.Sessions.Len()
	}
	if s.config.App != nil {
		response["perform"] = s.config.App.Perform()
		response["local"] = s.config.App.Running()
	}

	writeJSON(w, http.StatusOK, response)
}

type setMouseRequest struct {
	Perform bool `json:"perform"`
}

// handleSetMouse handles POST /set_mouse and toggles pointer control.
func (s *Server) handleSetMouse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req setMouseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}

	s.config.App.SetPerform(req.Perform)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "perform": req.Perform})
}

// handleSetHSV handles POST /set_hsv. Color tracking was replaced by hand
// tracking; the route answers so old clients keep working.
func (s *Server) handleSetHSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": "Hand tracking mode - HSV not applicable",
	})
}

// handleHandPosition handles GET /hand_position.
func (s *Server) handleHandPosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.App.HandPosition())
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
