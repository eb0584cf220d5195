package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the NHK Easy News scraper
type Config struct {
	// Scraper settings (feed endpoint, article cap, timeouts)
	Scraper ScraperConfig `yaml:"scraper" json:"scraper"`

	// Browser-based token acquisition settings
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for the session client
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ScraperConfig holds settings for article discovery and extraction
type ScraperConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	FeedURL     string        `yaml:"feed_url" json:"feed_url"`
	MaxArticles int           `yaml:"max_articles" json:"max_articles"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
}

// AuthConfig holds settings for the consent-flow token bootstrap
type AuthConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	EntryURL          string        `yaml:"entry_url" json:"entry_url"`
	CookieName        string        `yaml:"cookie_name" json:"cookie_name"`
	CookieDomain      string        `yaml:"cookie_domain" json:"cookie_domain"`
	Headless          bool          `yaml:"headless" json:"headless"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	Locale            string        `yaml:"locale" json:"locale"`
	Timezone          string        `yaml:"timezone" json:"timezone"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	DialogTimeout     time.Duration `yaml:"dialog_timeout" json:"dialog_timeout"`
	QuiesceTimeout    time.Duration `yaml:"quiesce_timeout" json:"quiesce_timeout"`
	SettleDelay       time.Duration `yaml:"settle_delay" json:"settle_delay"`
	ScreenshotPath    string        `yaml:"screenshot_path" json:"screenshot_path"`
	PageDumpPath      string        `yaml:"page_dump_path" json:"page_dump_path"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds the session client retry policy.
// Retries are disabled by default: a failed fetch at the discovery or
// extraction level is handled by that step's own recovery path.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// OutputConfig holds output locations
type OutputConfig struct {
	DataFile  string `yaml:"data_file" json:"data_file"`
	ImagesDir string `yaml:"images_dir" json:"images_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			BaseURL:     "https://news.web.nhk/news/easy/",
			FeedURL:     "https://news.web.nhk/news/easy/news-list.json",
			MaxArticles: 10,
			Timeout:     30 * time.Second,
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
		Auth: AuthConfig{
			Enabled:           true,
			EntryURL:          "https://news.web.nhk/news/easy/",
			CookieName:        "z_at",
			CookieDomain:      ".web.nhk",
			Headless:          true,
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			Locale:            "ja-JP",
			Timezone:          "Asia/Tokyo",
			NavigationTimeout: 30 * time.Second,
			DialogTimeout:     10 * time.Second,
			QuiesceTimeout:    30 * time.Second,
			SettleDelay:       3 * time.Second,
			ScreenshotPath:    "/tmp/nhk_auth_error.png",
			PageDumpPath:      "/tmp/nhk_page.html",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Retry: RetryConfig{
			Enabled:     false,
			MaxAttempts: 1,
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
		},
		Output: OutputConfig{
			DataFile:  "data/articles.json",
			ImagesDir: "docs/images",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("NHKEASY_BASE_URL"); baseURL != "" {
		c.Scraper.BaseURL = baseURL
	}
	if feedURL := os.Getenv("NHKEASY_FEED_URL"); feedURL != "" {
		c.Scraper.FeedURL = feedURL
	}
	if maxArticles := os.Getenv("NHKEASY_MAX_ARTICLES"); maxArticles != "" {
		var val int
		fmt.Sscanf(maxArticles, "%d", &val)
		if val > 0 {
			c.Scraper.MaxArticles = val
		}
	}
	if userAgent := os.Getenv("NHKEASY_USER_AGENT"); userAgent != "" {
		c.Scraper.UserAgent = userAgent
	}

	if headless := os.Getenv("NHKEASY_HEADLESS"); headless != "" {
		c.Auth.Headless = strings.ToLower(headless) != "false"
	}
	if authEnabled := os.Getenv("NHKEASY_AUTH_ENABLED"); authEnabled != "" {
		c.Auth.Enabled = strings.ToLower(authEnabled) != "false"
	}

	if rpm := os.Getenv("NHKEASY_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if dataFile := os.Getenv("NHKEASY_DATA_FILE"); dataFile != "" {
		c.Output.DataFile = dataFile
	}
	if imagesDir := os.Getenv("NHKEASY_IMAGES_DIR"); imagesDir != "" {
		c.Output.ImagesDir = imagesDir
	}

	if logLevel := os.Getenv("NHKEASY_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".nhkeasy.yaml",
		".nhkeasy.yml",
		"config.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "nhkeasy", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "nhkeasy", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".nhkeasy.yaml"),
		filepath.Join(os.Getenv("HOME"), ".nhkeasy.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Scraper.BaseURL == "" {
		errs = append(errs, errors.New("scraper base URL is required"))
	}
	if c.Scraper.FeedURL == "" {
		errs = append(errs, errors.New("scraper feed URL is required"))
	}
	if c.Scraper.MaxArticles <= 0 {
		errs = append(errs, errors.New("max articles must be positive"))
	}
	if c.Scraper.Timeout <= 0 {
		errs = append(errs, errors.New("scraper timeout must be positive"))
	}

	if c.Auth.Enabled {
		if c.Auth.EntryURL == "" {
			errs = append(errs, errors.New("auth entry URL is required"))
		}
		if c.Auth.CookieName == "" {
			errs = append(errs, errors.New("auth cookie name is required"))
		}
		if c.Auth.NavigationTimeout <= 0 {
			errs = append(errs, errors.New("auth navigation timeout must be positive"))
		}
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Retry.Enabled && c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive when retries are enabled"))
	}

	if c.Output.DataFile == "" {
		errs = append(errs, errors.New("output data file is required"))
	}
	if c.Output.ImagesDir == "" {
		errs = append(errs, errors.New("images directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence:
// defaults, then config file, then environment variables.
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignored when missing)
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, err
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
