// Package config provides configuration loading for sitenav using TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/andybalholm/cascadia"
)

// Fetch modes
const (
	ModeHTTP    = "http"
	ModeBrowser = "browser"
)

// Site describes the layout shared by every page of the site.
type Site struct {
	ContentSelector string `toml:"content_selector"`
	PageExtension   string `toml:"page_extension"`
	RootPage        string `toml:"root_page"`
}

// Fetcher settings
type Fetcher struct {
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxBodyBytes   int64  `toml:"max_body_bytes"`
	Mode           string `toml:"mode"` // "http" or "browser"
	ChromePath     string `toml:"chrome_path"`
}

// Navigation settings
type Navigation struct {
	TimeoutSeconds int `toml:"timeout_seconds"` // negative disables the timeout
}

// Session settings
type Session struct {
	Restore bool   `toml:"restore"`
	Path    string `toml:"path"` // empty means the default session file
}

// Config is the main configuration struct
type Config struct {
	Site       Site       `toml:"site"`
	Fetcher    Fetcher    `toml:"fetcher"`
	Navigation Navigation `toml:"navigation"`
	Session    Session    `toml:"session"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Site: Site{
			ContentSelector: "main",
			PageExtension:   ".html",
			RootPage:        "index.html",
		},
		Fetcher: Fetcher{
			UserAgent:      "sitenav/1.0 (partial navigation)",
			TimeoutSeconds: 30,
			MaxBodyBytes:   5 << 20,
			Mode:           ModeHTTP,
		},
		Navigation: Navigation{
			TimeoutSeconds: 15,
		},
		Session: Session{
			Restore: false,
		},
	}
}

// NavigationTimeout returns the per-navigation timeout; zero means none.
func (c *Config) NavigationTimeout() time.Duration {
	if c.Navigation.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Navigation.TimeoutSeconds) * time.Second
}

// Validate checks values that would otherwise fail deep inside the engine.
func (c *Config) Validate() error {
	var errs []error
	if _, err := cascadia.Compile(c.Site.ContentSelector); err != nil {
		errs = append(errs, fmt.Errorf("site.content_selector %q: %w", c.Site.ContentSelector, err))
	}
	if !strings.HasPrefix(c.Site.PageExtension, ".") {
		errs = append(errs, fmt.Errorf("site.page_extension %q must start with a dot", c.Site.PageExtension))
	}
	if c.Site.RootPage == "" || strings.Contains(c.Site.RootPage, "/") {
		errs = append(errs, fmt.Errorf("site.root_page %q must be a file name", c.Site.RootPage))
	}
	switch c.Fetcher.Mode {
	case ModeHTTP, ModeBrowser:
	default:
		errs = append(errs, fmt.Errorf("fetcher.mode %q must be %q or %q", c.Fetcher.Mode, ModeHTTP, ModeBrowser))
	}
	if c.Fetcher.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("fetcher.max_body_bytes must not be negative"))
	}
	return errors.Join(errs...)
}

// configDir returns the configuration directory path.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sitenav"), nil
}

// ConfigPath returns the path to the user's config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads configuration, layering user config on top of defaults.
// Returns the default config if no user config exists.
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return Default(), nil // Return defaults if we can't determine path
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile layers the TOML file at path on top of defaults. Unlike Load, a
// missing file is an error.
func LoadFile(path string) (*Config, error) {
	userCfg, err := loadFromTOML(path)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	cfg := merge(Default(), userCfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// loadFromTOML loads a TOML config file and returns the config.
func loadFromTOML(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}
	return &cfg, nil
}

// merge layers user config on top of defaults.
// Only non-zero values from user config override defaults.
func merge(defaults, user *Config) *Config {
	result := *defaults

	// Site
	mergeString(&result.Site.ContentSelector, user.Site.ContentSelector)
	mergeString(&result.Site.PageExtension, user.Site.PageExtension)
	mergeString(&result.Site.RootPage, user.Site.RootPage)

	// Fetcher
	mergeString(&result.Fetcher.UserAgent, user.Fetcher.UserAgent)
	if user.Fetcher.TimeoutSeconds != 0 {
		result.Fetcher.TimeoutSeconds = user.Fetcher.TimeoutSeconds
	}
	if user.Fetcher.MaxBodyBytes != 0 {
		result.Fetcher.MaxBodyBytes = user.Fetcher.MaxBodyBytes
	}
	mergeString(&result.Fetcher.Mode, user.Fetcher.Mode)
	mergeString(&result.Fetcher.ChromePath, user.Fetcher.ChromePath)

	// Navigation
	if user.Navigation.TimeoutSeconds != 0 {
		result.Navigation.TimeoutSeconds = user.Navigation.TimeoutSeconds
	}

	// Session
	// Note: false can't be told apart from unset, so restore only turns on
	if user.Session.Restore {
		result.Session.Restore = true
	}
	mergeString(&result.Session.Path, user.Session.Path)

	return &result
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// DefaultTOML returns the default configuration as a TOML string.
// Used by `sitenav config` to generate a user config file.
func DefaultTOML() string {
	return `# sitenav configuration
# Save to ~/.config/sitenav/config.toml and customize
# Only include settings you want to change from defaults

[site]
content_selector = "main"     # Container replaced on every navigation
page_extension = ".html"      # Only links ending in this are intercepted
root_page = "index.html"      # Loaded when history returns to the site root

[fetcher]
user_agent = "sitenav/1.0 (partial navigation)"
timeout_seconds = 30
max_body_bytes = 5242880
mode = "http"                 # "http" or "browser" (headless Chrome)
chrome_path = ""              # Path to Chrome/Chromium (empty = auto-detect)

[navigation]
timeout_seconds = 15          # Per navigation; negative disables

[session]
restore = false               # Restore history on startup
path = ""                     # Empty = default session file
`
}
