// Package config provides the configuration structure for the translate-tts-service.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"

	"github.com/book-expert/translate-tts-service/internal/tts/ttsutils"
)

// Defaults applied to zero-valued fields.
const (
	DefaultBaseURL        = "https://translate.google.com"
	DefaultLanguage       = "en"
	DefaultTimeoutSeconds = 30
	DefaultWorkers        = 2
	DefaultListenAddr     = ":8080"
	DefaultOutputDir      = "output"
	DefaultLogsDir        = "logs"
)

// Static errors.
var (
	ErrWorkersRange   = errors.New("workers must be at least 1")
	ErrTimeoutRange   = errors.New("timeout_seconds must be at least 1")
	ErrNegativeTTL    = errors.New("key_cache_ttl_seconds must not be negative")
	ErrNegativeRate   = errors.New("requests_per_second must not be negative")
	ErrBaseURLMissing = errors.New("base_url cannot be empty")
	ErrNATSIncomplete = errors.New("nats requires text_processed_subject and audio_object_store_bucket")
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                    string `toml:"url"`
	TextProcessedSubject   string `toml:"text_processed_subject"`
	AudioObjectStoreBucket string `toml:"audio_object_store_bucket"`
}

// TranslateConfig holds the settings for the translation service's speech
// endpoint and its key pair page.
type TranslateConfig struct {
	BaseURL            string  `toml:"base_url"`
	KeyPageURL         string  `toml:"key_page_url"`
	UserAgent          string  `toml:"user_agent"`
	DefaultLanguage    string  `toml:"default_language"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
	KeyCacheTTLSeconds int     `toml:"key_cache_ttl_seconds"`
	Workers            int     `toml:"workers"`
	RequestsPerSecond  float64 `toml:"requests_per_second"`
}

// HTTPConfig holds the configuration for the HTTP API.
type HTTPConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	OutputDir   string `toml:"output_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS      NATSConfig      `toml:"nats"`
	Translate TranslateConfig `toml:"translate"`
	HTTP      HTTPConfig      `toml:"http"`
	Paths     PathsConfig     `toml:"paths"`
}

// Load loads the configuration through the central configurator.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finalize(&cfg)
}

// LoadFile loads the configuration from a TOML file on disk.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	var cfg Config

	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}

	return finalize(&cfg)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()

	return cfg
}

func finalize(cfg *Config) (*Config, error) {
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Translate.BaseURL == "" {
		c.Translate.BaseURL = DefaultBaseURL
	}

	if c.Translate.KeyPageURL == "" {
		c.Translate.KeyPageURL = c.Translate.BaseURL
	}

	if c.Translate.DefaultLanguage == "" {
		c.Translate.DefaultLanguage = DefaultLanguage
	}

	if c.Translate.TimeoutSeconds == 0 {
		c.Translate.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.Translate.Workers == 0 {
		c.Translate.Workers = DefaultWorkers
	}

	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = DefaultListenAddr
	}

	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = DefaultOutputDir
	}

	if c.Paths.BaseLogsDir == "" {
		c.Paths.BaseLogsDir = DefaultLogsDir
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Translate.BaseURL == "" {
		return ErrBaseURLMissing
	}

	if c.Translate.Workers < 1 {
		return fmt.Errorf("%w: got %d", ErrWorkersRange, c.Translate.Workers)
	}

	if c.Translate.TimeoutSeconds < 1 {
		return fmt.Errorf("%w: got %d", ErrTimeoutRange, c.Translate.TimeoutSeconds)
	}

	if c.Translate.KeyCacheTTLSeconds < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeTTL, c.Translate.KeyCacheTTLSeconds)
	}

	if c.Translate.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: got %f", ErrNegativeRate, c.Translate.RequestsPerSecond)
	}

	if c.NATS.URL != "" && (c.NATS.TextProcessedSubject == "" || c.NATS.AudioObjectStoreBucket == "") {
		return ErrNATSIncomplete
	}

	return nil
}

// Timeout returns the per-request HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Translate.TimeoutSeconds) * time.Second
}

// KeyCacheTTL returns how long a fetched key pair is reused. Zero means every
// request fetches a fresh pair.
func (c *Config) KeyCacheTTL() time.Duration {
	return time.Duration(c.Translate.KeyCacheTTLSeconds) * time.Second
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.BaseLogsDir} {
		err := ttsutils.EnsureDir(dir)
		if err != nil {
			return err
		}
	}

	return nil
}
