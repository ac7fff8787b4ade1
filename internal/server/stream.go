package server

import (
	"fmt"
	"net/http"
	"time"
)

// streamPoll is how often the stream checks for a new frame.
const streamPoll = 33 * time.Millisecond

// FrameSource provides the latest encoded frame and its sequence number.
type FrameSource interface {
	LatestJPEG() ([]byte, uint64)
}

// StreamHandler serves MJPEG frames from the local loop.
type StreamHandler struct {
	source FrameSource
}

// NewStreamHandler creates a new StreamHandler for the given source.
func NewStreamHandler(source FrameSource) *StreamHandler {
	return &StreamHandler{source: source}
}

// ServeHTTP streams each new frame to the client until it disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamPoll)
	defer ticker.Stop()

	var last uint64
	for {
		jpeg, seq := h.source.LatestJPEG()
		if seq != last && len(jpeg) > 0 {
			last = seq
			if err := writePart(w, jpeg); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}
