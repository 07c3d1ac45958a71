package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	if c.Settings.LogLevel.Level() != slog.LevelInfo {
		t.Errorf("Default log level = %v, want info", c.Settings.LogLevel.Level())
	}
	if c.Disk.Inc != 59.1 || c.Disk.PA != 273 || c.Disk.Mstar != 0.62 {
		t.Errorf("Unexpected disk defaults %+v", c.Disk)
	}
	if c.Clean.RMSChannels != [2]int{0, 30} {
		t.Errorf("RMSChannels = %v, want [0 30]", c.Clean.RMSChannels)
	}
	if c.Clean.MaxIterations != 50000 {
		t.Errorf("MaxIterations = %d, want 50000", c.Clean.MaxIterations)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Default configuration must validate: %v", err)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
settings:
  logLevel: debug
paths:
  base: /data/aatau
engine:
  runtime: /opt/casa/bin/casa
disk:
  stellarMass: 0.8
clean:
  rmsMultiplier: 3
lines:
  - C18O
  - 13CO
`)

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if c.Settings.LogLevel.Level() != slog.LevelDebug {
		t.Errorf("Log level = %v, want debug", c.Settings.LogLevel.Level())
	}
	if c.Paths.Base != "/data/aatau" {
		t.Errorf("Base = %q", c.Paths.Base)
	}
	if c.Engine.Runtime != "/opt/casa/bin/casa" {
		t.Errorf("Runtime = %q", c.Engine.Runtime)
	}
	if c.Disk.Mstar != 0.8 {
		t.Errorf("Mstar = %g, want the override", c.Disk.Mstar)
	}
	if c.Clean.RMSMultiplier != 3 {
		t.Errorf("RMSMultiplier = %g, want the override", c.Clean.RMSMultiplier)
	}

	// Untouched sections keep their defaults.
	if c.Disk.Dist != 145 {
		t.Errorf("Dist = %g, default lost", c.Disk.Dist)
	}
	if c.Clean.DirtyThreshold != "5mJy" {
		t.Errorf("DirtyThreshold = %q, default lost", c.Clean.DirtyThreshold)
	}

	if len(c.Lines) != 2 || c.Lines[0] != "C18O" || c.Lines[1] != "13CO" {
		t.Errorf("Lines = %v", c.Lines)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad log level", "settings:\n  logLevel: loud\n"},
		{"zero stellar mass", "disk:\n  stellarMass: 0\n"},
		{"negative distance", "disk:\n  distance: -1\n"},
		{"inverted rms range", "clean:\n  rmsChannels: [20, 10]\n"},
		{"zero iterations", "clean:\n  maxIterations: 0\n"},
		{"not yaml", "{{{\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("Expected configuration error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestGeometry(t *testing.T) {
	c := DefaultConfig()
	g := c.Geometry()

	if g.Inc != c.Disk.Inc || g.PA != c.Disk.PA || g.Mstar != c.Disk.Mstar ||
		g.Dist != c.Disk.Dist || g.VLSR != c.Disk.VLSR ||
		g.DX0 != c.Disk.DX0 || g.DY0 != c.Disk.DY0 {
		t.Errorf("Geometry() = %+v does not mirror the disk section %+v", g, c.Disk)
	}
}
