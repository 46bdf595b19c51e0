// internal/config/config.go
//
// This package handles configuration and the boostify home directory.
// Every user gets a ~/.boostify/ folder (or $BOOSTIFY_HOME) holding the
// config file, the session store and the logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// HomeDirName is the directory we create under the user's home.
	HomeDirName = ".boostify"

	// HomeEnv overrides the home directory location.
	HomeEnv = "BOOSTIFY_HOME"

	envPrefix = "BOOSTIFY"

	DefaultBaseURL = "https://boostify-back-end.vercel.app"
	DefaultTimeout = 15 * time.Second

	ThemeLight = "light"
	ThemeDark  = "dark"
)

const defaultConfigYAML = `# boostify configuration
version: 1

api:
  base_url: https://boostify-back-end.vercel.app
  timeout: 15s

# light or dark. ctrl+t in the app toggles and saves this value.
theme: light

display:
  # IANA zone name used to show attendance times, or Local.
  timezone: Local
  locale: en

live_report:
  # Keep the date filter applied when switching pages.
  preserve_filter: false
`

// APIConfig describes the remote attendance backend.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DisplayConfig controls how timestamps and numbers are rendered.
type DisplayConfig struct {
	Timezone string `yaml:"timezone"`
	Locale   string `yaml:"locale"`
}

// LiveReportConfig captures live report preferences.
type LiveReportConfig struct {
	PreserveFilter bool `yaml:"preserve_filter"`
}

// FileConfig models config.yaml.
type FileConfig struct {
	Version    int              `yaml:"version"`
	API        APIConfig        `yaml:"api"`
	Theme      string           `yaml:"theme"`
	Display    DisplayConfig    `yaml:"display"`
	LiveReport LiveReportConfig `yaml:"live_report"`
}

// envOverrides are read with the BOOSTIFY_ prefix. Zero values mean unset.
type envOverrides struct {
	APIURL     string        `envconfig:"API_URL"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT"`
	Theme      string        `envconfig:"THEME"`
	Timezone   string        `envconfig:"TIMEZONE"`
}

// Config holds the runtime configuration for boostify.
type Config struct {
	// HomeDir is ~/.boostify or $BOOSTIFY_HOME
	HomeDir string

	File FileConfig
}

// ResolveHome returns the directory boostify keeps its files in.
func ResolveHome() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(HomeEnv)); dir != "" {
		return filepath.Clean(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home: %w", err)
	}
	return filepath.Join(home, HomeDirName), nil
}

// InitDir creates the home directory structure.
//
// Structure created:
// ~/.boostify/
// ├── config.yaml   <- written with defaults on first run
// ├── session.yaml  <- written by the session store after sign-in
// └── logs/
func InitDir(homeDir string) error {
	if err := os.MkdirAll(filepath.Join(homeDir, "logs"), 0o700); err != nil {
		return err
	}
	return ensureConfigFile(filepath.Join(homeDir, "config.yaml"))
}

// Load reads config.yaml from homeDir and applies environment overrides.
func Load(homeDir string) (*Config, error) {
	cfg := &Config{
		HomeDir: homeDir,
		File:    defaultFileConfig(),
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigPath returns the on-disk location for the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.HomeDir, "config.yaml")
}

// SessionPath returns the path of the persisted credential store.
func (c *Config) SessionPath() string {
	return filepath.Join(c.HomeDir, "session.yaml")
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.HomeDir, "logs")
}

// LogPath returns the logbook file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "boostify.log")
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.File.API.BaseURL, "/")
}

// Timeout returns the HTTP timeout for API calls.
func (c *Config) Timeout() time.Duration {
	return c.File.API.Timeout
}

// Theme returns the configured theme name.
func (c *Config) Theme() string {
	return c.File.Theme
}

// Location resolves display.timezone. Unknown zones fall back to time.Local.
func (c *Config) Location() *time.Location {
	name := strings.TrimSpace(c.File.Display.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// Locale returns the BCP-47 tag used for number formatting.
func (c *Config) Locale() string {
	return c.File.Display.Locale
}

// PreserveLiveFilter reports whether the live report keeps its filter across pages.
func (c *Config) PreserveLiveFilter() bool {
	return c.File.LiveReport.PreserveFilter
}

// SetTheme updates the theme and persists the value back to config.yaml.
func (c *Config) SetTheme(name string) error {
	name = normalizeTheme(name)
	if name != ThemeLight && name != ThemeDark {
		return fmt.Errorf("config: theme must be %q or %q", ThemeLight, ThemeDark)
	}
	c.File.Theme = name
	return c.save()
}

func (c *Config) loadFile() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultFileConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.File = parsed
	return nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	if v := strings.TrimSpace(env.APIURL); v != "" {
		c.File.API.BaseURL = v
	}
	if env.APITimeout > 0 {
		c.File.API.Timeout = env.APITimeout
	}
	if v := strings.TrimSpace(env.Theme); v != "" {
		c.File.Theme = v
	}
	if v := strings.TrimSpace(env.Timezone); v != "" {
		c.File.Display.Timezone = v
	}
	c.File.normalize()
	if err := c.File.validate(); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Version: 1,
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Theme: ThemeLight,
		Display: DisplayConfig{
			Timezone: "Local",
			Locale:   "en",
		},
	}
}

func (fc *FileConfig) applyDefaults() {
	if fc.Version == 0 {
		fc.Version = 1
	}
	if strings.TrimSpace(fc.API.BaseURL) == "" {
		fc.API.BaseURL = DefaultBaseURL
	}
	if fc.API.Timeout <= 0 {
		fc.API.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(fc.Display.Locale) == "" {
		fc.Display.Locale = "en"
	}
}

func (fc *FileConfig) normalize() {
	fc.API.BaseURL = strings.TrimRight(strings.TrimSpace(fc.API.BaseURL), "/")
	fc.Theme = normalizeTheme(fc.Theme)
	if fc.Theme == "" {
		fc.Theme = ThemeLight
	}
	fc.Display.Timezone = strings.TrimSpace(fc.Display.Timezone)
	fc.Display.Locale = strings.TrimSpace(fc.Display.Locale)
}

func (fc *FileConfig) validate() error {
	if fc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	u, err := url.Parse(fc.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL")
	}
	if fc.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	switch fc.Theme {
	case ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("theme must be %q or %q", ThemeLight, ThemeDark)
	}
	return nil
}

func normalizeTheme(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o600)
}

func (c *Config) save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.File.applyDefaults()
	c.File.normalize()
	if err := c.File.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.HomeDir, 0o700); err != nil {
		return fmt.Errorf("config: ensure home dir: %w", err)
	}
	data, err := yaml.Marshal(c.File)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ConfigPath(), data, 0o600); err != nil {
		return fmt.Errorf("config: write config: %w", err)
	}
	return nil
}
