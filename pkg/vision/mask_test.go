package vision

import (
	"image"
	"testing"

	"gocv.io/x/gocv"

	"keypad-hil/pkg/led"
)

func TestSplitHueRangeNonWrapping(t *testing.T) {
	ranges := SplitHueRange(40, 85)
	if len(ranges) != 1 {
		t.Fatalf("expected 1 range, got %d", len(ranges))
	}
	if ranges[0].Lo != 40 || ranges[0].Hi != 85 {
		t.Fatalf("unexpected range: %+v", ranges[0])
	}
}

func TestSplitHueRangeWrapping(t *testing.T) {
	ranges := SplitHueRange(165, 15)
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(ranges))
	}
	if ranges[0].Lo != 165 || ranges[0].Hi != MaxHue {
		t.Fatalf("unexpected upper range: %+v", ranges[0])
	}
	if ranges[1].Lo != 0 || ranges[1].Hi != 15 {
		t.Fatalf("unexpected lower range: %+v", ranges[1])
	}
}

// The two-mask union over a wrapped range must cover exactly the hues a
// single contiguous mask would cover after rotating the hue axis so the
// range no longer wraps.
func TestSplitHueRangeRotationEquivalence(t *testing.T) {
	lo, hi := 165.0, 15.0
	shift := MaxHue + 1 - lo

	inSplit := func(h float64) bool {
		for _, r := range SplitHueRange(lo, hi) {
			if h >= r.Lo && h <= r.Hi {
				return true
			}
		}
		return false
	}
	rotated := func(h float64) float64 {
		rh := h + shift
		for rh > MaxHue {
			rh -= MaxHue + 1
		}
		return rh
	}
	rotatedHi := rotated(hi)

	for h := 0.0; h <= MaxHue; h++ {
		want := rotated(h) <= rotatedHi
		if got := inSplit(h); got != want {
			t.Fatalf("hue %v: split=%v rotated=%v", h, got, want)
		}
	}
}

// halfGreenFrame builds a 40x80 BGR frame whose left half is pure green and
// whose right half is black, so the green config below matches exactly half
// the ROI pixels.
func halfGreenFrame(t *testing.T) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 40, 80, gocv.MatTypeCV8UC3)
	green := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 255, 0, 0), 40, 40, gocv.MatTypeCV8UC3)
	defer green.Close()
	left := frame.Region(image.Rect(0, 0, 40, 40))
	defer left.Close()
	green.CopyTo(&left)
	return frame
}

func greenConfig(minMatch float64) led.Config {
	return led.Config{
		Name:     "green",
		ROI:      led.ROI{X: 0, Y: 0, W: 80, H: 40},
		Lower:    led.HSV{Hue: 40, Sat: 10, Val: 100},
		Upper:    led.HSV{Hue: 85, Sat: 255, Val: 255},
		MinMatch: minMatch,
	}
}

func TestMatchFractionHalfLitROI(t *testing.T) {
	frame := halfGreenFrame(t)
	defer frame.Close()

	got := MatchFraction(frame, greenConfig(0.5))
	if got < 0.49 || got > 0.51 {
		t.Fatalf("expected a match fraction of 0.5, got %v", got)
	}
}

// Raising minMatch over a fixed frame may only turn a lit verdict into an
// unlit one, never back.
func TestLitMonotonicInMinMatch(t *testing.T) {
	frame := halfGreenFrame(t)
	defer frame.Close()

	if !Lit(frame, greenConfig(0.25)) {
		t.Fatal("half-lit roi should pass a 0.25 threshold")
	}
	if Lit(frame, greenConfig(0.75)) {
		t.Fatal("half-lit roi should fail a 0.75 threshold")
	}

	wasLit := true
	for m := 0.05; m <= 0.96; m += 0.05 {
		lit := Lit(frame, greenConfig(m))
		if lit && !wasLit {
			t.Fatalf("verdict flipped back to lit at minMatch %v", m)
		}
		wasLit = lit
	}
}

// The red config's hue range wraps past 179; a pure red frame sits at hue 0
// and must land in the lower leg of the split range.
func TestMatchFractionWrappedRedHue(t *testing.T) {
	red := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), 40, 40, gocv.MatTypeCV8UC3)
	defer red.Close()
	blue := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 40, 40, gocv.MatTypeCV8UC3)
	defer blue.Close()

	cfg := led.Config{
		Name:     "red",
		ROI:      led.ROI{X: 0, Y: 0, W: 40, H: 40},
		Lower:    led.HSV{Hue: 165, Sat: 150, Val: 150},
		Upper:    led.HSV{Hue: 15, Sat: 255, Val: 255},
		MinMatch: 0.5,
	}

	if got := MatchFraction(red, cfg); got < 0.99 {
		t.Fatalf("pure red frame should fully match the wrapped range, got %v", got)
	}
	if got := MatchFraction(blue, cfg); got > 0.01 {
		t.Fatalf("pure blue frame should not match the red range, got %v", got)
	}
	if !Lit(red, cfg) || Lit(blue, cfg) {
		t.Fatal("lit verdicts should follow the fractions")
	}
}

func TestClampROI(t *testing.T) {
	r := ClampROI(led.ROI{X: 600, Y: 400, W: 100, H: 100}, 640, 480)
	if r.Dx() != 40 || r.Dy() != 80 {
		t.Fatalf("expected clamp to 40x80, got %dx%d", r.Dx(), r.Dy())
	}

	if r := ClampROI(led.ROI{X: 700, Y: 10, W: 40, H: 40}, 640, 480); !r.Empty() {
		t.Fatal("roi fully outside the frame should clamp to empty")
	}
}
