package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "/etc/spacepanel/config.yaml"

const (
	defaultListen         = "127.0.0.1:8080"
	defaultRefreshCron    = "@every 1m"
	defaultUpdateHours    = 6
	defaultAPIURL         = "http://api.open-notify.org/astros.json"
	defaultFetchRetries   = 3
	defaultStateDir       = "/var/lib/spacepanel"
	defaultLogLevel       = "info"
	defaultVariant        = "2in9c"
	defaultRefreshMode    = "full"
	defaultSPIHz          = 4_000_000
	defaultBusyTimeoutSec = 30
	defaultRenderRetries  = 3
	defaultRetryBackoffMs = 500
	defaultBatteryI2CAddr = 0x57
	defaultPinReset       = "GPIO17"
	defaultPinDC          = "GPIO25"
	defaultPinBusy        = "GPIO24"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// PinsConfig names the panel control lines as periph gpioreg names.
type PinsConfig struct {
	Reset string `yaml:"reset" json:"reset"`
	DC    string `yaml:"dc" json:"dc"`
	// CS is left empty when the SPI port drives chip select.
	CS   string `yaml:"cs" json:"cs"`
	Busy string `yaml:"busy" json:"busy"`
}

// DisplayConfig selects and tunes the e-paper panel.
type DisplayConfig struct {
	// Variant is "2in9c" (black/white/red) or "2in9d" (black/white).
	Variant string `yaml:"variant" json:"variant"`
	// RefreshMode is "full" or "partial" (2in9d only).
	RefreshMode string     `yaml:"refresh_mode" json:"refresh_mode"`
	SPIPort     string     `yaml:"spi_port" json:"spi_port"`
	SPIHz       int64      `yaml:"spi_hz" json:"spi_hz"`
	Pins        PinsConfig `yaml:"pins" json:"pins"`

	// BusyTimeoutSec bounds every wait on the busy line.
	BusyTimeoutSec int `yaml:"busy_timeout_sec" json:"busy_timeout_sec"`
	// RenderRetries is how many times a timed out or failed render is
	// retried, with doubling backoff starting at RetryBackoffMs. A
	// negative value disables retries.
	RenderRetries  int `yaml:"render_retries" json:"render_retries"`
	RetryBackoffMs int `yaml:"retry_backoff_ms" json:"retry_backoff_ms"`
}

// BatteryConfig enables the PiSugar battery readout.
type BatteryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	I2CBus  string `yaml:"i2c_bus" json:"i2c_bus"`
	I2CAddr uint16 `yaml:"i2c_addr" json:"i2c_addr"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is the cron schedule of the data check
	// (e.g. "@every 1m", "*/5 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// UpdateIntervalHours forces a redraw after this many hours even when
	// the count did not change.
	UpdateIntervalHours int `yaml:"update_interval_hours" json:"update_interval_hours"`

	APIURL       string `yaml:"api_url" json:"api_url"`
	FetchRetries int    `yaml:"fetch_retries" json:"fetch_retries"`

	// StateDir holds state.yaml and the HTTP cache.
	StateDir string `yaml:"state_dir" json:"state_dir"`
	LogLevel string `yaml:"log_level" json:"log_level"`

	Display DisplayConfig `yaml:"display" json:"display"`
	Battery BatteryConfig `yaml:"battery" json:"battery"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.UpdateIntervalHours <= 0 {
		c.UpdateIntervalHours = defaultUpdateHours
	}
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.FetchRetries <= 0 {
		c.FetchRetries = defaultFetchRetries
	}
	if c.StateDir == "" {
		c.StateDir = defaultStateDir
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	d := &c.Display
	if d.Variant == "" {
		d.Variant = defaultVariant
	}
	switch d.RefreshMode {
	case "full", "partial":
	default:
		// Unknown value; full refresh works on every panel.
		d.RefreshMode = defaultRefreshMode
	}
	if d.SPIHz <= 0 {
		d.SPIHz = defaultSPIHz
	}
	if d.Pins.Reset == "" {
		d.Pins.Reset = defaultPinReset
	}
	if d.Pins.DC == "" {
		d.Pins.DC = defaultPinDC
	}
	if d.Pins.Busy == "" {
		d.Pins.Busy = defaultPinBusy
	}
	if d.BusyTimeoutSec <= 0 {
		d.BusyTimeoutSec = defaultBusyTimeoutSec
	}
	if d.RenderRetries == 0 {
		d.RenderRetries = defaultRenderRetries
	}
	if d.RetryBackoffMs <= 0 {
		d.RetryBackoffMs = defaultRetryBackoffMs
	}

	if c.Battery.I2CAddr == 0 {
		c.Battery.I2CAddr = defaultBatteryI2CAddr
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data next to path and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".spacepanel-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
