package rig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Camera.Device != "/dev/video0" || cfg.Server.Port != 9999 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Hardware.Outputs["unlock"] != 11 {
		t.Fatalf("default wiring missing: %v", cfg.Hardware.Outputs)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.toml")
	content := `
[camera]
device = "/dev/video2"
fps = 30.0

[device]
name = "unit-7"
battery = true

[hardware]
sim = true

[store]
budget_bytes = 1048576
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Camera.Device != "/dev/video2" || cfg.Camera.FPS != 30 {
		t.Fatalf("camera overlay not applied: %+v", cfg.Camera)
	}
	// Unset fields keep their defaults.
	if cfg.Camera.Width != 640 {
		t.Fatalf("default width lost: %d", cfg.Camera.Width)
	}
	if !cfg.Device.Battery || cfg.Device.Name != "unit-7" {
		t.Fatalf("device overlay not applied: %+v", cfg.Device)
	}
	if !cfg.Hardware.Sim {
		t.Fatal("sim flag not applied")
	}
	if cfg.Store.BudgetBytes != 1<<20 {
		t.Fatalf("store budget not applied: %d", cfg.Store.BudgetBytes)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero fps":       "[camera]\nfps = 0.0\n",
		"negative size":  "[camera]\nwidth = -1\n",
		"port collision": "[server]\nport = 9998\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rig.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}
