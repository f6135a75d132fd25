package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ibeckermayer/icebreaker/internal/types"
)

// AppName names the per-user config and cache directories.
const AppName = "icebreaker"

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "ICEBREAKER_CONFIG"

// Config holds all application configuration
type Config struct {
	Version   int             `toml:"version"`
	Browser   BrowserConfig   `toml:"browser"`
	Relay     RelayConfig     `toml:"relay"`
	Providers ProvidersConfig `toml:"providers"`
	Selection SelectionConfig `toml:"selection"`
	Logging   LoggingConfig   `toml:"logging"`
	Debug     DebugConfig     `toml:"debug"`
	Watch     WatchConfig     `toml:"watch"`
}

type BrowserConfig struct {
	// RemoteURL attaches to a running browser's DevTools endpoint instead of
	// launching one, e.g. "ws://127.0.0.1:9222".
	RemoteURL          string `toml:"remote_url"`
	Headless           bool   `toml:"headless"`
	WaitTimeoutSeconds int    `toml:"wait_timeout_seconds"`
	PollIntervalMillis int    `toml:"poll_interval_millis"`
}

type RelayConfig struct {
	PostCount int      `toml:"post_count"`
	Hosts     []string `toml:"hosts"`
}

type ProviderConfig struct {
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	BaseURL     string  `toml:"base_url"`
}

type ProvidersConfig struct {
	Claude ProviderConfig `toml:"claude"`
	Gemini ProviderConfig `toml:"gemini"`
}

type SelectionConfig struct {
	Provider string `toml:"provider"`
	Style    string `toml:"style"`
	Persona  string `toml:"persona"`
}

type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type DebugConfig struct {
	// SaveExchanges writes every prompt/response pair to the cache dir.
	SaveExchanges bool `toml:"save_exchanges"`
}

type WatchConfig struct {
	Schedule string `toml:"schedule"`
	Timezone string `toml:"timezone"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Browser: BrowserConfig{
			Headless:           true,
			WaitTimeoutSeconds: 15,
			PollIntervalMillis: 500,
		},
		Relay: RelayConfig{
			PostCount: 20,
			Hosts:     []string{"x.com", "twitter.com"},
		},
		Providers: ProvidersConfig{
			Claude: ProviderConfig{
				Model:       "claude-3-5-sonnet-20241022",
				MaxTokens:   1000,
				Temperature: 0.8,
			},
			Gemini: ProviderConfig{
				Model:       "gemini-1.5-flash",
				MaxTokens:   1000,
				Temperature: 0.9,
			},
		},
		Selection: SelectionConfig{
			Provider: string(types.ProviderGemini),
			Style:    string(types.StyleCasual),
			Persona:  string(types.PersonaFemale),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Schedule: "*/5 * * * *",
			Timezone: "Local",
		},
	}
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	var errs []error
	if c.Browser.WaitTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("browser.wait_timeout_seconds must be positive, got %d", c.Browser.WaitTimeoutSeconds))
	}
	if c.Relay.PostCount < 0 {
		errs = append(errs, fmt.Errorf("relay.post_count must not be negative, got %d", c.Relay.PostCount))
	}
	if len(c.Relay.Hosts) == 0 {
		errs = append(errs, errors.New("relay.hosts must not be empty"))
	}
	if _, err := c.Selection.Parse(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Watch.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Selection is a parsed SelectionConfig.
type Selection struct {
	Provider types.ProviderID
	Style    types.Style
	Persona  types.Persona
}

// Parse converts the configured names into their enum values.
func (s SelectionConfig) Parse() (Selection, error) {
	provider, perr := types.ParseProvider(s.Provider)
	style, serr := types.ParseStyle(s.Style)
	persona, aerr := types.ParsePersona(s.Persona)
	if err := errors.Join(perr, serr, aerr); err != nil {
		return Selection{}, fmt.Errorf("invalid selection: %w", err)
	}
	return Selection{Provider: provider, Style: style, Persona: persona}, nil
}

// WaitTimeout is the page readiness bound.
func (b BrowserConfig) WaitTimeout() time.Duration {
	return time.Duration(b.WaitTimeoutSeconds) * time.Second
}

// PollInterval is how often a browser page is re-checked for changes.
func (b BrowserConfig) PollInterval() time.Duration {
	return time.Duration(b.PollIntervalMillis) * time.Millisecond
}

// Location resolves the watch timezone. "" and "Local" mean the system zone.
func (w WatchConfig) Location() (*time.Location, error) {
	if w.Timezone == "" || strings.EqualFold(w.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid watch.timezone: %w", err)
	}
	return loc, nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// CacheDir returns the platform-appropriate cache directory.
// On macOS this is ~/Library/Caches/icebreaker/
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// DataPath returns the path of the sqlite database holding credentials and cookies.
func DataPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "icebreaker.db"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from disk. Keys missing from the file keep their defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrCreate loads the config, writing the defaults on first run.
// created reports whether a new file was written.
func LoadOrCreate() (cfg *Config, created bool, err error) {
	cfg, err = Load()
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	cfg = Default()
	if err := cfg.Save(); err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
