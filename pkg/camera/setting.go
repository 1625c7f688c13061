package camera

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/vladimirvivien/go4vl/v4l2"
)

// Settings maps V4L2 control IDs to the values a calibrated rig pins them to,
// typically manual exposure and white balance so LED colors stay stable.
type Settings map[v4l2.CtrlID]v4l2.CtrlValue

// DefaultSettings pins the controls that drift on the bench webcams: manual
// exposure, manual white balance, manual ISO.
func DefaultSettings() Settings {
	return Settings{
		10094849: 1,    // auto exposure off
		10094850: 3000, // absolute exposure time
		10094868: 0,    // white balance preset: manual
		10094872: 0,    // ISO sensitivity: manual
	}
}

// LoadSettings reads a settings file, a JSON object of control id to value.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read camera settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse camera settings %s: %w", path, err)
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("camera settings %s holds no controls", path)
	}
	return s, nil
}

// CtrlString renders one control for the tune tool listing.
func CtrlString(ctrl v4l2.Control) string {
	return fmt.Sprintf("control id (%d) name: %s\t[min: %d; max: %d; step: %d; default: %d; current: %d]",
		ctrl.ID, ctrl.Name, ctrl.Minimum, ctrl.Maximum, ctrl.Step, ctrl.Default, ctrl.Value)
}
