package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // timezone names must resolve on minimal hosts

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"salondesk/internal/scheduler"
)

// NOTE: first run writes a default config with 0600 permissions; env
// overrides are applied on top of the file but never written back.

// BasicAuthConfig holds optional HTTP Basic Auth credentials placed in front
// of the whole console.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// AxisConfig is the hourly axis of the day/week time grid.
type AxisConfig struct {
	StartHour   int `yaml:"start_hour" json:"start_hour"`
	EndHour     int `yaml:"end_hour" json:"end_hour"`
	RowHeightPx int `yaml:"row_height_px" json:"row_height_px"`
}

// DisplayConfig drives the unattended front-desk display snapshot.
type DisplayConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Cron is a 5-field cron expression (e.g. "*/15 * * * *").
	Cron string `yaml:"cron" json:"cron"`

	// Username/Password are the service account used to read the calendar.
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`

	// Output is where the PNG snapshot is written.
	Output string `yaml:"output" json:"output"`

	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address of the console.
	Listen string `yaml:"listen" json:"listen"`

	// APIBaseURL is the salon API root, e.g. "http://127.0.0.1:8000".
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"`

	// Timezone is the IANA zone used for "today" and ICS export.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	Axis AxisConfig `yaml:"axis" json:"axis"`

	// MonthCellLimit is how many appointments a month cell lists before
	// showing "+N more".
	MonthCellLimit int `yaml:"month_cell_limit" json:"month_cell_limit"`

	// Closures are RRULE strings marking days the salon is closed.
	Closures []string `yaml:"closures" json:"closures"`

	// SessionTTL bounds console sessions whose token carries no exp claim.
	SessionTTL time.Duration `yaml:"session_ttl" json:"session_ttl"`

	// CSRFKey is a 32-byte key for CSRF tokens. If empty, one is generated
	// per process, which invalidates open forms on restart.
	CSRFKey string `yaml:"csrf_key" json:"-"`

	// SecureCookies sets the Secure flag on session and CSRF cookies.
	SecureCookies bool `yaml:"secure_cookies" json:"secure_cookies"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if set, guards every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Display DisplayConfig `yaml:"display" json:"display"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:     "127.0.0.1:3000",
		APIBaseURL: "http://127.0.0.1:8000",
		Timezone:   "Asia/Kolkata",
		WeekStart:  "sunday",
		Axis: AxisConfig{
			StartHour:   scheduler.DefaultStartHour,
			EndHour:     scheduler.DefaultEndHour,
			RowHeightPx: scheduler.DefaultRowHeightPx,
		},
		MonthCellLimit: scheduler.DefaultMonthCellLimit,
		Closures:       []string{},
		SessionTTL:     8 * time.Hour,
		LogLevel:       "info",
		Display: DisplayConfig{
			Enabled: false,
			Cron:    "*/15 * * * *",
			Output:  "/var/lib/salondesk/preview.png",
			Width:   1280,
			Height:  1600,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = def.APIBaseURL
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "sunday", "monday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		c.WeekStart = def.WeekStart
	}

	if c.Axis.RowHeightPx <= 0 {
		c.Axis.RowHeightPx = def.Axis.RowHeightPx
	}
	if c.Axis.StartHour < 0 || c.Axis.StartHour > 23 || c.Axis.EndHour < c.Axis.StartHour || c.Axis.EndHour > 23 ||
		(c.Axis.StartHour == 0 && c.Axis.EndHour == 0) {
		c.Axis.StartHour = def.Axis.StartHour
		c.Axis.EndHour = def.Axis.EndHour
	}
	if c.MonthCellLimit <= 0 {
		c.MonthCellLimit = def.MonthCellLimit
	}
	if c.Closures == nil {
		c.Closures = []string{}
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = def.SessionTTL
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	if c.Display.Cron == "" {
		c.Display.Cron = def.Display.Cron
	}
	if c.Display.Output == "" {
		c.Display.Output = def.Display.Output
	}
	if c.Display.Width <= 0 {
		c.Display.Width = def.Display.Width
	}
	if c.Display.Height <= 0 {
		c.Display.Height = def.Display.Height
	}
}

// Validate reports settings that cannot be defaulted away.
func (c *Config) Validate() error {
	if _, err := scheduler.ParseClosures(c.Closures); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		return fmt.Errorf("csrf_key must be exactly 32 bytes, got %d", len(c.CSRFKey))
	}
	if c.Display.Enabled && (c.Display.Username == "" || c.Display.Password == "") {
		return errors.New("display.enabled requires display.username and display.password")
	}
	if _, err := cron.ParseStandard(c.Display.Cron); err != nil {
		return fmt.Errorf("display.cron %q: %w", c.Display.Cron, err)
	}
	return nil
}

// SchedulerAxis converts the configured axis for the scheduler.
func (c *Config) SchedulerAxis() scheduler.Axis {
	return scheduler.Axis{
		StartHour:   c.Axis.StartHour,
		EndHour:     c.Axis.EndHour,
		RowHeightPx: c.Axis.RowHeightPx,
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     permissions and returned.
//   - Otherwise the YAML is decoded and normalized.
//
// Environment overrides (ApplyEnv) are applied in both cases.
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
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnv overlays SALONDESK_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SALONDESK_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("SALONDESK_API_URL"); v != "" {
		c.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("SALONDESK_CSRF_KEY"); v != "" {
		c.CSRFKey = v
	}
	if v := os.Getenv("SALONDESK_DISPLAY_USERNAME"); v != "" {
		c.Display.Username = v
	}
	if v := os.Getenv("SALONDESK_DISPLAY_PASSWORD"); v != "" {
		c.Display.Password = v
	}
	if v := os.Getenv("SALONDESK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".salondesk-config-*.tmp")
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

// Save is a convenience wrapper around the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
