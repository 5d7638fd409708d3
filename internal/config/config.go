package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CalDAVConfig describes the calendar approved events are published to.
type CalDAVConfig struct {
	// URL is the CalDAV server endpoint, e.g. "https://caldav.example.com/".
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Calendar is the display name of the target calendar.
	Calendar string `yaml:"calendar"`
	// StateFile remembers which occurrences were published. Empty disables it.
	StateFile string `yaml:"state_file"`
}

// Config is the top-level application configuration.
type Config struct {
	// BackendURL is the root of the event review API.
	BackendURL string `yaml:"backend_url"`

	// APIToken, when set, is sent as a bearer token on every backend request.
	APIToken string `yaml:"api_token"`

	// Listen is the address the dashboard server binds to.
	Listen string `yaml:"listen"`

	// Timezone is the IANA zone used to derive event dates and "today".
	Timezone string `yaml:"timezone"`

	// Refresh is a cron spec for reloading events while serving.
	Refresh string `yaml:"refresh"`

	// StatusFilter is the initial status filter: "", "pending", "approved" or "rejected".
	StatusFilter string `yaml:"status_filter"`

	// HideSingleEvents hides dates that have exactly one event.
	HideSingleEvents bool `yaml:"hide_single_events"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	CalDAV CalDAVConfig `yaml:"caldav"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		BackendURL: "http://localhost:8080",
		Listen:     "127.0.0.1:8090",
		Timezone:   "UTC",
		Refresh:    "*/5 * * * *",
		LogLevel:   "info",
		CalDAV: CalDAVConfig{
			StateFile: "publish-state.json",
		},
	}
}

// Normalize fills in missing values with defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.BackendURL == "" {
		c.BackendURL = d.BackendURL
	}
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.Refresh == "" {
		c.Refresh = d.Refresh
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	c.BackendURL = strings.TrimSuffix(c.BackendURL, "/")
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads path (if it exists), applies environment overrides and
// normalizes the result. A missing file is not an error; an empty path skips
// the file entirely.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg as YAML with 0600 permissions, since it may hold credentials.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"EVENTREVIEW_BACKEND_URL":   &cfg.BackendURL,
		"EVENTREVIEW_API_TOKEN":     &cfg.APIToken,
		"EVENTREVIEW_LISTEN":        &cfg.Listen,
		"EVENTREVIEW_TIMEZONE":      &cfg.Timezone,
		"EVENTREVIEW_REFRESH":       &cfg.Refresh,
		"EVENTREVIEW_STATUS_FILTER": &cfg.StatusFilter,
		"LOG_LEVEL":                 &cfg.LogLevel,
		"CALDAV_URL":                &cfg.CalDAV.URL,
		"CALDAV_USERNAME":           &cfg.CalDAV.Username,
		"CALDAV_PASSWORD":           &cfg.CalDAV.Password,
		"CALDAV_CALENDAR":           &cfg.CalDAV.Calendar,
		"CALDAV_STATE_FILE":         &cfg.CalDAV.StateFile,
	}
	for name, dst := range strs {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	if v := getenv("EVENTREVIEW_HIDE_SINGLE_EVENTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid EVENTREVIEW_HIDE_SINGLE_EVENTS %q: %w", v, err)
		}
		cfg.HideSingleEvents = b
	}
	return nil
}
