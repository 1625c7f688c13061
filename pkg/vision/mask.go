// Package vision holds the OpenCV plumbing shared by the LED checker and the
// replay writer: HSV thresholding of ROIs and overlay drawing.
package vision

import (
	"image"

	"gocv.io/x/gocv"

	"keypad-hil/pkg/led"
)

// MaxHue is the top of OpenCV's 8-bit hue axis.
const MaxHue = 179

// HueRange is an inclusive [Lo, Hi] hue interval that does not wrap.
type HueRange struct {
	Lo, Hi float64
}

// SplitHueRange normalizes a possibly wrapping hue interval into one or two
// contiguous ranges. lo > hi means the interval crosses the top of the hue
// axis and is returned as [lo, MaxHue] and [0, hi].
func SplitHueRange(lo, hi float64) []HueRange {
	if lo > hi {
		return []HueRange{{Lo: lo, Hi: MaxHue}, {Lo: 0, Hi: hi}}
	}
	return []HueRange{{Lo: lo, Hi: hi}}
}

// ClampROI intersects the configured ROI with the frame bounds. The returned
// rectangle may be empty when the ROI lies outside the frame.
func ClampROI(roi led.ROI, frameW, frameH int) image.Rectangle {
	r := image.Rect(roi.X, roi.Y, roi.X+roi.W, roi.Y+roi.H)
	return r.Intersect(image.Rect(0, 0, frameW, frameH))
}

// MatchFraction computes the share of ROI pixels inside the config's HSV
// bounds. frame must be BGR. Returns 0 when the ROI is degenerate.
func MatchFraction(frame gocv.Mat, cfg led.Config) float64 {
	rect := ClampROI(cfg.ROI, frame.Cols(), frame.Rows())
	if rect.Empty() {
		return 0
	}

	roi := frame.Region(rect)
	defer roi.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(roi, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()

	for i, hr := range SplitHueRange(cfg.Lower.Hue, cfg.Upper.Hue) {
		lower := gocv.NewScalar(hr.Lo, cfg.Lower.Sat, cfg.Lower.Val, 0)
		upper := gocv.NewScalar(hr.Hi, cfg.Upper.Sat, cfg.Upper.Val, 0)
		if i == 0 {
			gocv.InRangeWithScalar(hsv, lower, upper, &mask)
			continue
		}
		part := gocv.NewMat()
		gocv.InRangeWithScalar(hsv, lower, upper, &part)
		gocv.BitwiseOr(mask, part, &mask)
		part.Close()
	}

	total := rect.Dx() * rect.Dy()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total)
}

// Lit reports whether the LED described by cfg is on in the given frame.
func Lit(frame gocv.Mat, cfg led.Config) bool {
	return MatchFraction(frame, cfg) >= cfg.MinMatch
}
