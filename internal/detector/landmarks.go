// Package detector provides hand detection interfaces and types for cursor control.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Connections lists the landmark pairs that make up the drawn hand skeleton.
var Connections = [][2]int{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{Wrist, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{Wrist, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, RingMCP}, {RingMCP, PinkyMCP},
}

// Point3D is a landmark in normalized image coordinates.
// X and Y are fractions of the frame width and height, Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Point is a landmark position in frame pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HandLandmarks is one detected hand.
// Points normally holds NumLandmarks entries, but malformed detector output
// may carry fewer, so consumers must check Valid before indexing.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"` // "Left" or "Right"
	Score      float64   `json:"score"`
}

// Valid reports whether the hand carries the full landmark set.
func (h *HandLandmarks) Valid() bool {
	return h != nil && len(h.Points) >= NumLandmarks
}

// Pixels converts the normalized landmarks to pixel coordinates for a frame
// of the given size. Depth is dropped.
func (h *HandLandmarks) Pixels(width, height int) []Point {
	if h == nil {
		return nil
	}

	pixels := make([]Point, len(h.Points))
	for i, p := range h.Points {
		pixels[i] = Point{
			X: p.X * float64(width),
			Y: p.Y * float64(height),
		}
	}
	return pixels
}
