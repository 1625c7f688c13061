package led

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// ROI is the rectangular pixel region of a frame watched for one LED.
type ROI struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// HSV is an inclusive hue/saturation/value bound. OpenCV hue range, 0..179.
type HSV struct {
	Hue float64 `json:"hue"`
	Sat float64 `json:"sat"`
	Val float64 `json:"val"`
}

// Config describes how to decide whether a single LED is lit. Immutable
// after load. Lower.Hue > Upper.Hue means the hue range wraps past 179.
type Config struct {
	Name     string  `json:"name"`
	Label    string  `json:"label"`
	ROI      ROI     `json:"roi"`
	Lower    HSV     `json:"hsvLower"`
	Upper    HSV     `json:"hsvUpper"`
	MinMatch float64 `json:"minMatch"`
	// DisplayBGR colors the ROI box in replay overlays, {B, G, R}.
	DisplayBGR [3]int `json:"displayColorBGR"`
}

func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("led config missing name")
	}
	if c.ROI.W <= 0 || c.ROI.H <= 0 {
		return fmt.Errorf("led %q: roi must have positive width and height", c.Name)
	}
	for _, hsv := range []HSV{c.Lower, c.Upper} {
		if hsv.Hue < 0 || hsv.Hue > 179 {
			return fmt.Errorf("led %q: hue %v out of range [0, 179]", c.Name, hsv.Hue)
		}
		if hsv.Sat < 0 || hsv.Sat > 255 || hsv.Val < 0 || hsv.Val > 255 {
			return fmt.Errorf("led %q: sat/val out of range [0, 255]", c.Name)
		}
	}
	if c.MinMatch <= 0 || c.MinMatch > 1 {
		return fmt.Errorf("led %q: minMatch %v out of range (0, 1]", c.Name, c.MinMatch)
	}
	return nil
}

// DefaultConfigs matches the bench's tuned webcam placement: three 40x40
// regions across the keypad face at 640x480.
func DefaultConfigs() []Config {
	return []Config{
		{
			Name: "red", Label: "Red LED",
			ROI:        ROI{X: 187, Y: 165, W: 40, H: 40},
			Lower:      HSV{Hue: 165, Sat: 150, Val: 150},
			Upper:      HSV{Hue: 15, Sat: 255, Val: 255},
			MinMatch:   0.15,
			DisplayBGR: [3]int{0, 0, 255},
		},
		{
			Name: "green", Label: "Green LED",
			ROI:        ROI{X: 302, Y: 165, W: 40, H: 40},
			Lower:      HSV{Hue: 40, Sat: 10, Val: 100},
			Upper:      HSV{Hue: 85, Sat: 255, Val: 255},
			MinMatch:   0.25,
			DisplayBGR: [3]int{0, 255, 0},
		},
		{
			Name: "blue", Label: "Blue LED",
			ROI:        ROI{X: 417, Y: 165, W: 40, H: 40},
			Lower:      HSV{Hue: 0, Sat: 0, Val: 100},
			Upper:      HSV{Hue: 130, Sat: 255, Val: 255},
			MinMatch:   0.75,
			DisplayBGR: [3]int{255, 0, 0},
		},
	}
}

// LoadConfigs reads a calibration file produced by the tuning tool. The file
// holds a JSON array of Config; ROIs in it override the defaults per LED.
func LoadConfigs(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read led config: %w", err)
	}
	var list []Config
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse led config %s: %w", path, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("led config %s: no entries", path)
	}
	for _, c := range list {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return list, nil
}
