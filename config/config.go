package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alorle/iptv-player/internal/catalog"
)

// TokenPlaceholder is replaced by the profile token in the playlist URL.
const TokenPlaceholder = "{token}"

// Config holds the complete application configuration
type Config struct {
	// HTTP server settings
	HTTP struct {
		Address         string        `yaml:"address"`
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
	} `yaml:"http"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	// Remote user-data service
	Backend struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"backend"`

	Profile struct {
		Token string `yaml:"token"`
	} `yaml:"profile"`

	Playlist struct {
		URL           string        `yaml:"url"`
		Timeout       time.Duration `yaml:"timeout"`
		ProxyTemplate string        `yaml:"proxy_template"`
		ProxyTimeout  time.Duration `yaml:"proxy_timeout"`
		LogoBase      string        `yaml:"logo_base"`
		CacheDir      string        `yaml:"cache_dir"`
		CacheTTL      time.Duration `yaml:"cache_ttl"`
	} `yaml:"playlist"`

	Classifier struct {
		LiveBrands []string `yaml:"live_brands"`
	} `yaml:"classifier"`

	Playback struct {
		ProxyEndpoint     string        `yaml:"proxy_endpoint"`
		HLSMaxAttempts    int           `yaml:"hls_max_attempts"`
		DirectMaxAttempts int           `yaml:"direct_max_attempts"`
		HLSBackoff        time.Duration `yaml:"hls_backoff"`
		DirectBackoff     time.Duration `yaml:"direct_backoff"`
		LoadTimeout       time.Duration `yaml:"load_timeout"`
		TickInterval      time.Duration `yaml:"tick_interval"`
		SkipStep          float64       `yaml:"skip_step"`
		RelayTimeout      time.Duration `yaml:"relay_timeout"`
	} `yaml:"playback"`

	Progress struct {
		SaveInterval  time.Duration `yaml:"save_interval"`
		EndMargin     float64       `yaml:"end_margin"`
		RemoteTimeout time.Duration `yaml:"remote_timeout"`
	} `yaml:"progress"`

	Catalog struct {
		Locale    string `yaml:"locale"`
		Window    int    `yaml:"window"`
		Increment int    `yaml:"increment"`
	} `yaml:"catalog"`

	DB struct {
		Path string `yaml:"path"`
	} `yaml:"db"`

	Resilience ResilienceConfig `yaml:"resilience"`
}

var logLevels = []string{"DEBUG", "INFO", "WARN", "ERROR"}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTP.Address == "" {
		errors = append(errors, "HTTP address is required")
	}
	if c.HTTP.Port == "" {
		errors = append(errors, "HTTP port is required")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errors = append(errors, "HTTP shutdown timeout must be positive")
	}

	validLevel := false
	for _, l := range logLevels {
		validLevel = validLevel || c.Log.Level == l
	}
	if !validLevel {
		errors = append(errors, "Log level must be one of: "+strings.Join(logLevels, ", "))
	}

	if c.Backend.BaseURL != "" {
		if err := validateAbsoluteURL(c.Backend.BaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("Backend base URL: %v", err))
		}
	}
	if c.Backend.Timeout <= 0 {
		errors = append(errors, "Backend timeout must be positive")
	}

	if c.Playlist.URL == "" {
		errors = append(errors, "Playlist URL is required")
	} else if err := validateAbsoluteURL(strings.ReplaceAll(c.Playlist.URL, TokenPlaceholder, "x")); err != nil {
		errors = append(errors, fmt.Sprintf("Playlist URL: %v", err))
	}
	if c.Playlist.Timeout <= 0 || c.Playlist.ProxyTimeout <= 0 {
		errors = append(errors, "Playlist timeouts must be positive")
	}
	if c.Playlist.CacheDir == "" {
		errors = append(errors, "Playlist cache directory is required")
	}

	if c.Playback.HLSMaxAttempts <= 0 || c.Playback.DirectMaxAttempts <= 0 {
		errors = append(errors, "Playback attempt bounds must be positive")
	}
	if c.Playback.HLSBackoff <= 0 || c.Playback.DirectBackoff <= 0 {
		errors = append(errors, "Playback backoffs must be positive")
	}
	if c.Playback.TickInterval <= 0 {
		errors = append(errors, "Playback tick interval must be positive")
	}
	if c.Playback.SkipStep <= 0 {
		errors = append(errors, "Playback skip step must be positive")
	}
	if c.Playback.ProxyEndpoint != "" && !strings.Contains(c.Playback.ProxyEndpoint, "?") {
		errors = append(errors, "Playback proxy endpoint must carry a query string or the {url} placeholder")
	}

	if c.Progress.SaveInterval <= 0 || c.Progress.RemoteTimeout <= 0 {
		errors = append(errors, "Progress intervals must be positive")
	}

	if c.Catalog.Window <= 0 || c.Catalog.Increment <= 0 {
		errors = append(errors, "Catalog window and increment must be positive")
	}

	if c.DB.Path == "" {
		errors = append(errors, "Database path is required")
	}

	if err := c.Resilience.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("Resilience config: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Default returns a Config with sensible default values
func Default() *Config {
	cfg := &Config{}

	cfg.HTTP.Address = "127.0.0.1"
	cfg.HTTP.Port = "8080"
	cfg.HTTP.ShutdownTimeout = 10 * time.Second
	cfg.HTTP.WriteTimeout = 10 * time.Second

	cfg.Log.Level = "INFO"

	cfg.Backend.BaseURL = "http://127.0.0.1:8012"
	cfg.Backend.Timeout = 10 * time.Second

	cfg.Playlist.URL = "http://127.0.0.1:8012/api/playlist.php?token=" + TokenPlaceholder
	cfg.Playlist.Timeout = 15 * time.Second
	cfg.Playlist.ProxyTemplate = "https://api.allorigins.win/raw?url={url}"
	cfg.Playlist.ProxyTimeout = 20 * time.Second
	cfg.Playlist.LogoBase = "http://myservicego.info:80"
	cfg.Playlist.CacheDir = "cache"
	cfg.Playlist.CacheTTL = 6 * time.Hour

	cfg.Classifier.LiveBrands = append([]string(nil), catalog.DefaultLiveBrands...)

	cfg.Playback.ProxyEndpoint = "http://127.0.0.1:8080/proxy?url={url}"
	cfg.Playback.HLSMaxAttempts = 3
	cfg.Playback.DirectMaxAttempts = 2
	cfg.Playback.HLSBackoff = 2 * time.Second
	cfg.Playback.DirectBackoff = time.Second
	cfg.Playback.LoadTimeout = 30 * time.Second
	cfg.Playback.TickInterval = 250 * time.Millisecond
	cfg.Playback.SkipStep = 10
	cfg.Playback.RelayTimeout = 15 * time.Second

	cfg.Progress.SaveInterval = 10 * time.Second
	cfg.Progress.EndMargin = 10
	cfg.Progress.RemoteTimeout = 5 * time.Second

	cfg.Catalog.Locale = "es"
	cfg.Catalog.Window = 24
	cfg.Catalog.Increment = 24

	cfg.DB.Path = "iptv-player.db"

	cfg.Resilience = DefaultResilienceConfig()

	return cfg
}

// PlaylistURL returns the playlist URL for a profile token.
func (c *Config) PlaylistURL(token string) string {
	return strings.ReplaceAll(c.Playlist.URL, TokenPlaceholder, url.QueryEscape(token))
}

// ListenAddr returns the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.HTTP.Address + ":" + c.HTTP.Port
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load loads configuration from a file (if provided) and applies environment variable overrides
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg = Default()
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) error {
	p := &envParser{}

	p.parseString("HTTP_ADDRESS", &cfg.HTTP.Address)
	p.parseString("HTTP_PORT", &cfg.HTTP.Port)
	p.parseDuration("HTTP_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout)
	p.parseDuration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout)

	p.parseEnum("LOG_LEVEL", &cfg.Log.Level, logLevels)

	p.parseString("BACKEND_BASE_URL", &cfg.Backend.BaseURL)
	p.parseDuration("BACKEND_TIMEOUT", &cfg.Backend.Timeout)

	p.parseString("PROFILE_TOKEN", &cfg.Profile.Token)

	p.parseString("PLAYLIST_URL", &cfg.Playlist.URL)
	p.parseDuration("PLAYLIST_TIMEOUT", &cfg.Playlist.Timeout)
	p.parseString("PLAYLIST_PROXY_TEMPLATE", &cfg.Playlist.ProxyTemplate)
	p.parseDuration("PLAYLIST_PROXY_TIMEOUT", &cfg.Playlist.ProxyTimeout)
	p.parseString("PLAYLIST_LOGO_BASE", &cfg.Playlist.LogoBase)
	p.parseDuration("PLAYLIST_CACHE_TTL", &cfg.Playlist.CacheTTL)
	if val := os.Getenv("PLAYLIST_CACHE_DIR"); val != "" {
		absPath, err := validateCacheDir(val)
		if err != nil {
			p.errors = append(p.errors, fmt.Sprintf("PLAYLIST_CACHE_DIR: %v", err))
		} else {
			cfg.Playlist.CacheDir = absPath
		}
	}

	p.parseList("CLASSIFIER_LIVE_BRANDS", &cfg.Classifier.LiveBrands)

	p.parseString("PLAYBACK_PROXY_ENDPOINT", &cfg.Playback.ProxyEndpoint)
	p.parseInt("PLAYBACK_HLS_MAX_ATTEMPTS", &cfg.Playback.HLSMaxAttempts)
	p.parseInt("PLAYBACK_DIRECT_MAX_ATTEMPTS", &cfg.Playback.DirectMaxAttempts)
	p.parseDuration("PLAYBACK_HLS_BACKOFF", &cfg.Playback.HLSBackoff)
	p.parseDuration("PLAYBACK_DIRECT_BACKOFF", &cfg.Playback.DirectBackoff)
	p.parseDuration("PLAYBACK_LOAD_TIMEOUT", &cfg.Playback.LoadTimeout)
	p.parseDuration("PLAYBACK_TICK_INTERVAL", &cfg.Playback.TickInterval)
	p.parseFloat("PLAYBACK_SKIP_STEP", &cfg.Playback.SkipStep)
	p.parseDuration("PLAYBACK_RELAY_TIMEOUT", &cfg.Playback.RelayTimeout)

	p.parseDuration("PROGRESS_SAVE_INTERVAL", &cfg.Progress.SaveInterval)
	p.parseFloat("PROGRESS_END_MARGIN", &cfg.Progress.EndMargin)
	p.parseDuration("PROGRESS_REMOTE_TIMEOUT", &cfg.Progress.RemoteTimeout)

	p.parseString("CATALOG_LOCALE", &cfg.Catalog.Locale)
	p.parseInt("CATALOG_WINDOW", &cfg.Catalog.Window)
	p.parseInt("CATALOG_INCREMENT", &cfg.Catalog.Increment)

	p.parseString("DB_PATH", &cfg.DB.Path)

	cfg.Resilience.applyEnv(p)

	return p.err()
}

// validateCacheDir validates and normalizes the cache directory path
func validateCacheDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("cache directory cannot be empty")
	}

	if !filepath.IsAbs(dir) {
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve absolute path for cache dir: %w", err)
		}
		return absPath, nil
	}

	return dir, nil
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
