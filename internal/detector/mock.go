package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns either a fixed result or, when a sequence is set, one entry of
// the sequence per Detect call.
type MockDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	calls    int
	err      error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetSequence makes Detect return each entry in order. Once the sequence is
// exhausted Detect reports no hands.
func (m *MockDetector) SetSequence(seq [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = seq
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of Detect calls so far.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.calls
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if m.sequence != nil {
		if idx >= len(m.sequence) {
			return nil, nil
		}
		return m.sequence[idx], nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Preset hands are laid out in a 640x480 reference frame and stored normalized.
const (
	presetWidth  = 640.0
	presetHeight = 480.0
)

// fingerColumns are the x positions of the index, middle, ring and pinky columns.
var fingerColumns = [4]float64{300, 270, 240, 210}

// PoseLandmarks builds a right hand whose fingers are extended or curled per
// the given flags (thumb, index, middle, ring, pinky). The thumb is extended
// by placing its tip to the right of the IP joint, matching an unmirrored view.
func PoseLandmarks(up [5]bool) HandLandmarks {
	px := make([]Point, NumLandmarks)

	px[Wrist] = Point{X: 300, Y: 420}

	px[ThumbCMC] = Point{X: 340, Y: 390}
	px[ThumbMCP] = Point{X: 370, Y: 360}
	px[ThumbIP] = Point{X: 390, Y: 340}
	if up[0] {
		px[ThumbTip] = Point{X: 420, Y: 320}
	} else {
		px[ThumbTip] = Point{X: 360, Y: 340}
	}

	for f := 0; f < 4; f++ {
		base := IndexMCP + f*4
		x := fingerColumns[f]
		px[base] = Point{X: x, Y: 300}
		if up[f+1] {
			px[base+1] = Point{X: x, Y: 250}
			px[base+2] = Point{X: x, Y: 220}
			px[base+3] = Point{X: x, Y: 190}
		} else {
			px[base+1] = Point{X: x, Y: 270}
			px[base+2] = Point{X: x, Y: 290}
			px[base+3] = Point{X: x, Y: 300}
		}
	}

	return FromPixels(px, presetWidth, presetHeight)
}

// FromPixels normalizes pixel landmarks for a frame of the given size.
func FromPixels(px []Point, width, height float64) HandLandmarks {
	hand := HandLandmarks{
		Points:     make([]Point3D, len(px)),
		Handedness: "Right",
		Score:      0.95,
	}
	for i, p := range px {
		hand.Points[i] = Point3D{X: p.X / width, Y: p.Y / height}
	}
	return hand
}

// PointingLandmarks returns a hand with only the index finger extended.
func PointingLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{false, true, false, false, false})
}

// PinchLandmarks returns a thumb and index pose with the tips touching.
func PinchLandmarks() HandLandmarks {
	hand := PoseLandmarks([5]bool{true, true, false, false, false})
	hand.Points[ThumbIP] = Point3D{X: 290 / presetWidth, Y: 220 / presetHeight}
	hand.Points[ThumbTip] = Point3D{X: 310 / presetWidth, Y: 200 / presetHeight}
	return hand
}

// OpenPalmLandmarks returns a hand with all five fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{true, true, true, true, true})
}

// ThreeFingerLandmarks returns the index, middle and ring pose.
func ThreeFingerLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{false, true, true, true, false})
}

// FistLandmarks returns a hand with every finger curled.
func FistLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{})
}

// TruncatedLandmarks returns a malformed hand missing its last landmarks.
func TruncatedLandmarks() HandLandmarks {
	hand := PointingLandmarks()
	hand.Points = hand.Points[:NumLandmarks-5]
	return hand
}
