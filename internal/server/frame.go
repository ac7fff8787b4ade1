package server

import (
	"io"
	"net/http"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/airmouse/internal/app"
	"github.com/ayusman/airmouse/internal/capture"
	"github.com/ayusman/airmouse/internal/detector"
	"github.com/ayusman/airmouse/internal/input"
	"github.com/ayusman/airmouse/internal/session"
	"github.com/ayusman/airmouse/internal/store"
)

// SessionHeader carries the caller's session ID on /frame requests and responses.
const SessionHeader = "X-Session-ID"

// maxFrameBytes caps the size of an uploaded frame.
const maxFrameBytes = 10 << 20

// FrameConfig configures the frame ingestion handler.
type FrameConfig struct {
	Detector detector.Detector
	Sessions *session.Manager
	// App supplies the pointer while pointer control is on; nil never drives it.
	App    *app.App
	Store  *store.Store
	Mirror bool
	Logger *zap.Logger
}

// FrameHandler runs uploaded frames through the caller's session.
type FrameHandler struct {
	config FrameConfig
	logger *zap.Logger
}

// NewFrameHandler creates a new FrameHandler.
func NewFrameHandler(config FrameConfig) *FrameHandler {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrameHandler{config: config, logger: logger}
}

// ServeHTTP handles POST /frame with an encoded image body.
func (h *FrameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFrameBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read image")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "could not decode image")
		return
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		if err == nil {
			mat.Close()
		}
		writeError(w, http.StatusBadRequest, "could not decode image")
		return
	}
	defer mat.Close()

	if h.config.Mirror {
		capture.Mirror(&mat)
	}

	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = r.URL.Query().Get("session")
	}
	sess, created := h.config.Sessions.GetOrCreate(id)
	if created {
		h.logger.Debug("frame session started", zap.String("session", sess.ID()))
	}
	w.Header().Set(SessionHeader, sess.ID())

	var hand *detector.HandLandmarks
	hands, err := h.config.Detector.Detect(&mat)
	if err != nil {
		h.logger.Warn("error detecting hands", zap.String("session", sess.ID()), zap.Error(err))
	} else {
		hand = detector.First(hands)
	}

	res := sess.Process(hand, mat.Cols(), mat.Rows(), h.pointer())

	if res.Action.Fired() && h.config.Store != nil {
		e := &store.ActionEvent{
			SessionID: sess.ID(),
			Gesture:   string(res.Gesture),
			Action:    string(res.Action.Kind),
			X:         res.Target.X,
			Y:         res.Target.Y,
		}
		if err := h.config.Store.Actions().Create(e); err != nil {
			h.logger.Warn("failed to record action", zap.Error(err))
		}
	}

	resp := map[string]interface{}{
		"found":   res.Found,
		"session": sess.ID(),
	}
	if res.Found {
		resp["cx"] = int(res.Cursor.X)
		resp["cy"] = int(res.Cursor.Y)
		resp["gesture"] = string(res.Gesture)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *FrameHandler) pointer() input.Pointer {
	if h.config.App == nil {
		return nil
	}
	return h.config.App.Pointer()
}
