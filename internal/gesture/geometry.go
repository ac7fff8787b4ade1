// Package gesture classifies hand poses into cursor-control gestures.
package gesture

import (
	"math"

	"github.com/ayusman/airmouse/internal/detector"
)

// Finger identifies one of the five fingers.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

// tipIDs maps each finger to its tip landmark.
var tipIDs = [5]int{
	detector.ThumbTip,
	detector.IndexTip,
	detector.MiddleTip,
	detector.RingTip,
	detector.PinkyTip,
}

// FingerState holds the extended flag of each finger, thumb first.
type FingerState [5]bool

// Patterns recognized by the classifier.
var (
	PatternPoint    = FingerState{false, true, false, false, false}
	PatternPinch    = FingerState{true, true, false, false, false}
	PatternOpen     = FingerState{true, true, true, true, true}
	PatternThree    = FingerState{false, true, true, true, false}
	PatternThumbTwo = FingerState{true, true, true, false, false}
)

// String renders the state as a 0/1 pattern such as "01000".
func (s FingerState) String() string {
	b := make([]byte, len(s))
	for i, up := range s {
		if up {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

// IsFingerExtended reports whether a finger is up in a pixel-space hand.
//
// The four long fingers are up when the tip sits strictly higher on screen
// (smaller y) than the PIP joint two landmarks back. The thumb folds
// sideways, so it is compared on x against the IP joint: up when the tip is
// to the right of the joint (larger x), or to the left when mirrored is set.
// Frames flipped at capture use mirrored=false.
//
// A hand too short to contain the landmarks reports false.
func IsFingerExtended(hand []detector.Point, finger Finger, mirrored bool) bool {
	if finger < Thumb || finger > Pinky {
		return false
	}

	tip := tipIDs[finger]
	ref := tip - 2
	if finger == Thumb {
		ref = tip - 1
	}
	if len(hand) <= tip {
		return false
	}

	if finger == Thumb {
		if mirrored {
			return hand[tip].X < hand[ref].X
		}
		return hand[tip].X > hand[ref].X
	}
	return hand[tip].Y < hand[ref].Y
}

// Fingers returns the extended state of all five fingers.
func Fingers(hand []detector.Point, mirrored bool) FingerState {
	var s FingerState
	for f := Thumb; f <= Pinky; f++ {
		s[f] = IsFingerExtended(hand, f, mirrored)
	}
	return s
}

// Distance returns the planar distance between landmarks i and j.
// ok is false when the hand does not contain both landmarks.
func Distance(hand []detector.Point, i, j int) (dist float64, ok bool) {
	if i < 0 || j < 0 || len(hand) < max(i, j)+1 {
		return 0, false
	}
	return math.Hypot(hand[j].X-hand[i].X, hand[j].Y-hand[i].Y), true
}
