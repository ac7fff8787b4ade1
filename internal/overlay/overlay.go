// Package overlay draws tracking feedback onto video frames.
package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/airmouse/internal/detector"
)

var (
	boneColor   = color.RGBA{0, 255, 0, 0}
	jointColor  = color.RGBA{0, 0, 255, 0}
	cursorColor = color.RGBA{255, 0, 255, 0}
	areaColor   = color.RGBA{255, 0, 255, 0}
	textColor   = color.RGBA{255, 255, 255, 0}
	textBGColor = color.RGBA{40, 40, 40, 0}
)

// Frame describes what to draw for one frame.
type Frame struct {
	// Hand is the landmark set in pixels; nil when no hand was found.
	Hand []detector.Point
	// Cursor is the index fingertip in pixels.
	Cursor detector.Point
	// Inset outlines the active rectangle when positive.
	Inset int
	// Caption is shown in the top-left corner.
	Caption string
}

// Draw renders f onto mat in place.
func Draw(mat *gocv.Mat, f Frame) {
	if mat == nil || mat.Empty() {
		return
	}

	w, h := mat.Cols(), mat.Rows()
	if f.Inset > 0 && 2*f.Inset < w && 2*f.Inset < h {
		gocv.Rectangle(mat, image.Rect(f.Inset, f.Inset, w-f.Inset, h-f.Inset), areaColor, 2)
	}

	if len(f.Hand) >= detector.NumLandmarks {
		for _, c := range detector.Connections {
			gocv.Line(mat, toPt(f.Hand[c[0]]), toPt(f.Hand[c[1]]), boneColor, 2)
		}
		for _, p := range f.Hand {
			gocv.Circle(mat, toPt(p), 4, jointColor, -1)
		}
		gocv.Circle(mat, toPt(f.Cursor), 10, cursorColor, -1)
	}

	if f.Caption != "" {
		origin := image.Pt(10, 30)
		size := gocv.GetTextSize(f.Caption, gocv.FontHersheyPlain, 1.5, 2)
		bg := image.Rect(origin.X-5, origin.Y-size.Y-8, origin.X+size.X+5, origin.Y+8)
		gocv.Rectangle(mat, bg, textBGColor, -1) // filled
		gocv.PutText(mat, f.Caption, origin, gocv.FontHersheyPlain, 1.5, textColor, 2)
	}
}

func toPt(p detector.Point) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}
