// Package rig holds the bench-level configuration shared by the service and
// the scenario runner: camera geometry, checker knobs, device identity and
// the relay box wiring.
package rig

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"keypad-hil/pkg/hardware"
)

type CameraConfig struct {
	Device       string  `toml:"device"`
	Width        int     `toml:"width"`
	Height       int     `toml:"height"`
	FPS          float64 `toml:"fps"`
	SettingsFile string  `toml:"settings_file"`
}

type CheckerConfig struct {
	Tolerance float64 `toml:"tolerance"`
	PreRoll   float64 `toml:"pre_roll"`
	PostRoll  float64 `toml:"post_roll"`
	LedFile   string  `toml:"led_file"`
	OutputDir string  `toml:"output_dir"`
}

type DeviceConfig struct {
	Name         string `toml:"name"`
	ProfilesFile string `toml:"profiles_file"`
	Profile      string `toml:"profile"`
	Battery      bool   `toml:"battery"`
	Serial       string `toml:"serial"`
}

type HardwareConfig struct {
	// Sim swaps the GPIO box for the journaling simulator, for dry runs.
	Sim bool `toml:"sim"`

	hardware.Config
}

type ServerConfig struct {
	Port       int    `toml:"port"`
	WebdavPort int    `toml:"webdav_port"`
	NTPServer  string `toml:"ntp_server"`
}

type StoreConfig struct {
	// BudgetBytes caps the replay directory; oldest clips are pruned past it.
	// Zero disables pruning.
	BudgetBytes int64 `toml:"budget_bytes"`
}

type Config struct {
	Camera   CameraConfig   `toml:"camera"`
	Checker  CheckerConfig  `toml:"checker"`
	Device   DeviceConfig   `toml:"device"`
	Hardware HardwareConfig `toml:"hardware"`
	Server   ServerConfig   `toml:"server"`
	Store    StoreConfig    `toml:"store"`
}

// Default is the single-rig bench setup.
func Default() Config {
	return Config{
		Camera: CameraConfig{
			Device: "/dev/video0",
			Width:  640,
			Height: 480,
			FPS:    15,
		},
		Checker: CheckerConfig{
			Tolerance: 0.1,
			PreRoll:   7,
			PostRoll:  5,
			OutputDir: "./replays",
		},
		Device: DeviceConfig{
			Name:   "unit-1",
			Serial: "0000000000",
		},
		Hardware: HardwareConfig{
			Sim:    false,
			Config: hardware.DefaultConfig(),
		},
		Server: ServerConfig{
			Port:       9999,
			WebdavPort: 9998,
			NTPServer:  "pool.ntp.org",
		},
	}
}

// Load reads a TOML config over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera size %dx%d is invalid", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera fps %v is invalid", c.Camera.FPS)
	}
	if c.Checker.PreRoll < 0 || c.Checker.PostRoll < 0 {
		return fmt.Errorf("replay roll windows must be non-negative")
	}
	if c.Server.Port == c.Server.WebdavPort {
		return fmt.Errorf("api and webdav ports collide on %d", c.Server.Port)
	}
	return nil
}
