package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != defaultAPIURL || cfg.UpdateIntervalHours != defaultUpdateHours {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
listen: ":9000"
update_interval_hours: 2
display:
  variant: 2in9d
  refresh_mode: sideways
  render_retries: -1
  pins:
    busy: GPIO5
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		got, want any
	}{
		{"listen", cfg.Listen, ":9000"},
		{"hours", cfg.UpdateIntervalHours, 2},
		{"refresh", cfg.RefreshCron, defaultRefreshCron},
		{"variant", cfg.Display.Variant, "2in9d"},
		{"refresh mode", cfg.Display.RefreshMode, "full"},
		{"retries", cfg.Display.RenderRetries, -1},
		{"busy pin", cfg.Display.Pins.Busy, "GPIO5"},
		{"reset pin", cfg.Display.Pins.Reset, defaultPinReset},
		{"busy timeout", cfg.Display.BusyTimeoutSec, defaultBusyTimeoutSec},
		{"battery addr", cfg.Battery.I2CAddr, uint16(defaultBatteryI2CAddr)},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.UpdateIntervalHours = 12
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.UpdateIntervalHours != 12 {
		t.Errorf("UpdateIntervalHours = %d, want 12", got.UpdateIntervalHours)
	}
	if got.BasicAuth == nil || got.BasicAuth.Username != "admin" {
		t.Errorf("BasicAuth = %+v", got.BasicAuth)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestLoadRejectsEmptyPathAndBadYAML(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("Load(\"\") succeeded")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed YAML")
	}
}
