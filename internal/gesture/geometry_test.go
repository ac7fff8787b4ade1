package gesture

import (
	"math"
	"testing"

	"github.com/ayusman/airmouse/internal/detector"
)

// pixelHand builds a 640x480 pixel-space hand with the given fingers up.
func pixelHand(up FingerState) []detector.Point {
	lm := detector.PoseLandmarks(up)
	return lm.Pixels(640, 480)
}

func TestIsFingerExtended(t *testing.T) {
	tests := []struct {
		name string
		up   FingerState
	}{
		{name: "fist", up: FingerState{}},
		{name: "pointing", up: PatternPoint},
		{name: "pinch pose", up: PatternPinch},
		{name: "open palm", up: PatternOpen},
		{name: "three fingers", up: PatternThree},
		{name: "thumb index middle", up: PatternThumbTwo},
		{name: "pinky only", up: FingerState{false, false, false, false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := pixelHand(tt.up)
			for f := Thumb; f <= Pinky; f++ {
				if got := IsFingerExtended(hand, f, false); got != tt.up[f] {
					t.Errorf("finger %d: got %v, want %v", f, got, tt.up[f])
				}
			}
			if got := Fingers(hand, false); got != tt.up {
				t.Errorf("Fingers() = %s, want %s", got, tt.up)
			}
		})
	}
}

func TestIsFingerExtended_MirroredThumb(t *testing.T) {
	hand := pixelHand(PatternOpen)

	if !IsFingerExtended(hand, Thumb, false) {
		t.Fatal("thumb should be extended in the unmirrored view")
	}
	if IsFingerExtended(hand, Thumb, true) {
		t.Error("mirrored test should invert the thumb comparison")
	}

	// The long fingers do not depend on mirroring.
	for f := Index; f <= Pinky; f++ {
		if !IsFingerExtended(hand, f, true) {
			t.Errorf("finger %d should stay extended when mirrored", f)
		}
	}
}

func TestIsFingerExtended_EqualHeightIsDown(t *testing.T) {
	hand := pixelHand(PatternPoint)
	hand[detector.IndexTip].Y = hand[detector.IndexPIP].Y

	if IsFingerExtended(hand, Index, false) {
		t.Error("tip level with the PIP joint should not count as extended")
	}
}

func TestIsFingerExtended_ShortHand(t *testing.T) {
	hand := pixelHand(PatternOpen)[:detector.MiddleTip]

	if !IsFingerExtended(hand, Index, false) {
		t.Error("index is present and should still be evaluated")
	}
	if IsFingerExtended(hand, Middle, false) {
		t.Error("missing landmark should report not extended")
	}
	if IsFingerExtended(hand, Finger(7), false) {
		t.Error("unknown finger should report not extended")
	}
}

func TestDistance(t *testing.T) {
	hand := make([]detector.Point, detector.NumLandmarks)
	hand[detector.ThumbTip] = detector.Point{X: 0, Y: 0}
	hand[detector.IndexTip] = detector.Point{X: 3, Y: 4}

	d, ok := Distance(hand, detector.ThumbTip, detector.IndexTip)
	if !ok {
		t.Fatal("expected distance to be available")
	}
	if math.Abs(d-5) > 1e-9 {
		t.Errorf("expected distance 5, got %f", d)
	}

	d, ok = Distance(hand[:5], detector.ThumbTip, detector.IndexTip)
	if ok || d != 0 {
		t.Errorf("expected (0, false) for short hand, got (%f, %v)", d, ok)
	}

	if _, ok := Distance(hand, -1, 2); ok {
		t.Error("negative index should be unavailable")
	}
}

func TestFingerState_String(t *testing.T) {
	if got := PatternPoint.String(); got != "01000" {
		t.Errorf("String() = %q, want %q", got, "01000")
	}
	if got := PatternOpen.String(); got != "11111" {
		t.Errorf("String() = %q, want %q", got, "11111")
	}
}
