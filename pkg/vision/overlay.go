package vision

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"keypad-hil/pkg/led"
)

// Overlay drawing constants, shared by every replay frame so clips stay
// visually consistent across runs.
const (
	overlayFontScale     = 0.5
	overlayFontThickness = 1
	overlayLineHeight    = 20
	overlayPadding       = 5

	ledDotRadius = 7

	keyWidth   = 45
	keyHeight  = 30
	keyPadding = 5

	keypadLeftOffset   = 10
	keypadBottomOffset = 50
)

var (
	overlayTextColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	overlayBGColor   = color.RGBA{R: 20, G: 20, B: 20, A: 0}
	keyBoxColor      = color.RGBA{R: 200, G: 200, B: 200, A: 0}
	keyTextPressed   = color.RGBA{A: 0}
	ledOffColor      = color.RGBA{R: 80, G: 80, B: 80, A: 0}
)

// DrawLabel draws text with an opaque background box so it stays readable on
// top of live video. pos is the text baseline.
func DrawLabel(frame *gocv.Mat, text string, pos image.Point) {
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, overlayFontScale, overlayFontThickness)
	bg := image.Rect(
		pos.X-overlayPadding, pos.Y-size.Y-overlayPadding,
		pos.X+size.X+overlayPadding, pos.Y+overlayPadding,
	)
	gocv.Rectangle(frame, bg, overlayBGColor, -1)
	gocv.PutText(frame, text, pos, gocv.FontHersheySimplex, overlayFontScale, overlayTextColor, overlayFontThickness)
}

// DrawContext stacks label lines down from the top-left corner and returns
// the y offset below the last line.
func DrawContext(frame *gocv.Mat, lines []string) int {
	y := overlayPadding
	for _, line := range lines {
		DrawLabel(frame, line, image.Pt(overlayPadding+5, y+overlayLineHeight))
		y += overlayLineHeight
	}
	return y + overlayLineHeight
}

// DrawKeypad renders the key grid near the bottom-left corner, filling the
// boxes of currently pressed keys.
func DrawKeypad(frame *gocv.Mat, layout [][]string, pressed map[string]bool) {
	if len(layout) == 0 {
		return
	}
	gridHeight := keyHeight*len(layout) + keyPadding*(len(layout)-1)
	startX := overlayPadding + keypadLeftOffset
	startY := frame.Rows() - gridHeight - overlayPadding - keypadBottomOffset

	for rowIdx, row := range layout {
		for colIdx, name := range row {
			x1 := startX + colIdx*(keyWidth+keyPadding)
			y1 := startY + rowIdx*(keyHeight+keyPadding)
			box := image.Rect(x1, y1, x1+keyWidth, y1+keyHeight)

			if pressed[name] {
				gocv.Rectangle(frame, box, keyBoxColor, -1)
				gocv.Rectangle(frame, box, overlayTextColor, 2)
				gocv.PutText(frame, name, image.Pt(x1+5, y1+20), gocv.FontHersheySimplex, 0.4, keyTextPressed, 1)
			} else {
				gocv.Rectangle(frame, box, keyBoxColor, 2)
				gocv.PutText(frame, name, image.Pt(x1+5, y1+20), gocv.FontHersheySimplex, 0.4, overlayTextColor, 1)
			}
		}
	}
}

// DrawLEDMarkers outlines each configured ROI and puts an on/off indicator
// dot above it.
func DrawLEDMarkers(frame *gocv.Mat, configs []led.Config, states led.State) {
	for _, cfg := range configs {
		box := image.Rect(cfg.ROI.X, cfg.ROI.Y, cfg.ROI.X+cfg.ROI.W, cfg.ROI.Y+cfg.ROI.H)
		boxColor := color.RGBA{
			B: uint8(cfg.DisplayBGR[0]),
			G: uint8(cfg.DisplayBGR[1]),
			R: uint8(cfg.DisplayBGR[2]),
		}
		gocv.Rectangle(frame, box, boxColor, 1)

		dot := image.Pt(cfg.ROI.X+cfg.ROI.W/2, cfg.ROI.Y-overlayLineHeight)
		if dot.Y < ledDotRadius+overlayPadding {
			dot.Y = ledDotRadius + overlayPadding
		}
		fill := ledOffColor
		if states[cfg.Name] == 1 {
			fill = overlayTextColor
		}
		gocv.Circle(frame, dot, ledDotRadius, fill, -1)
		gocv.Circle(frame, dot, ledDotRadius, overlayTextColor, 1)
	}
}

// ResizeTo returns frame resized to w x h when its dimensions differ,
// otherwise the frame itself. The caller owns the returned Mat only when
// resized is true.
func ResizeTo(frame gocv.Mat, w, h int) (out gocv.Mat, resized bool) {
	if frame.Cols() == w && frame.Rows() == h {
		return frame, false
	}
	dst := gocv.NewMat()
	gocv.Resize(frame, &dst, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	return dst, true
}
