package detector

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrNoScript is returned when the MediaPipe service script cannot be located.
var ErrNoScript = errors.New("mediapipe_service.py not found")

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect. Only the first hand
	// is ever tracked, so the default is 1.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinPresenceConf is the minimum hand presence confidence (0.0-1.0).
	MinPresenceConf float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the MediaPipe service script lookup.
	ScriptPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinPresenceConf: 0.5,
		MinTrackingConf: 0.5,
	}
}

// First returns the tracked hand from a detection result, or nil when no
// usable hand is present.
func First(hands []HandLandmarks) *HandLandmarks {
	if len(hands) == 0 {
		return nil
	}
	if !hands[0].Valid() {
		return nil
	}
	return &hands[0]
}
