// Package config loads application configuration with precedence ENV > file > defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration for the cutroom daemon.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`

	LogLevel   string `yaml:"log_level"`
	LogService string `yaml:"log_service"`

	// Render provider settings.
	ProviderURL     string        `yaml:"provider_url"`
	ProviderKey     string        `yaml:"provider_key"`
	Region          string        `yaml:"region"`
	SiteName        string        `yaml:"site_name"`
	FunctionMemory  int           `yaml:"function_memory_mb"`
	FunctionTimeout int           `yaml:"function_timeout_seconds"`
	PollInterval    time.Duration `yaml:"poll_interval"`

	// Transcription service settings.
	TranscribeURL string `yaml:"transcribe_url"`
	TranscribeKey string `yaml:"transcribe_key"`

	// Media storage settings.
	StorageBaseURL string `yaml:"storage_base_url"`

	// Rate limiting for the HTTP API.
	RateLimitRPM int `yaml:"rate_limit_rpm"`

	// Tracing settings.
	TracingEnabled    bool    `yaml:"tracing_enabled"`
	TracingExporter   string  `yaml:"tracing_exporter"`
	TracingEndpoint   string  `yaml:"tracing_endpoint"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate"`

	Version string `yaml:"-"`
}

// Defaults returns a configuration populated with default values.
func Defaults() Config {
	return Config{
		ListenAddr:      ":8080",
		DataDir:         "/var/lib/cutroom",
		LogLevel:        "info",
		LogService:      "cutroom",
		Region:          "us-east-1",
		SiteName:        "cutroom-site",
		FunctionMemory:  2048,
		FunctionTimeout: 120,
		PollInterval:    2500 * time.Millisecond,
		RateLimitRPM:    120,

		TracingExporter:   "grpc",
		TracingEndpoint:   "localhost:4317",
		TracingSampleRate: 1,
	}
}

// Loader loads configuration from an optional YAML file plus environment overrides.
type Loader struct {
	path    string
	version string
}

// NewLoader creates a Loader for the given config file path (may be empty).
func NewLoader(path, version string) *Loader {
	return &Loader{path: path, version: version}
}

// Load resolves the effective configuration: defaults, then file, then environment.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", l.path, err)
		}
	}

	applyEnv(&cfg)
	cfg.Version = l.version

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ListenAddr = ParseString("CUTROOM_LISTEN", cfg.ListenAddr)
	cfg.DataDir = ParseString("CUTROOM_DATA", cfg.DataDir)
	cfg.LogLevel = ParseString("CUTROOM_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("CUTROOM_LOG_SERVICE", cfg.LogService)
	cfg.ProviderURL = ParseString("CUTROOM_PROVIDER_URL", cfg.ProviderURL)
	cfg.ProviderKey = ParseString("CUTROOM_PROVIDER_KEY", cfg.ProviderKey)
	cfg.Region = ParseString("CUTROOM_REGION", cfg.Region)
	cfg.SiteName = ParseString("CUTROOM_SITE_NAME", cfg.SiteName)
	cfg.FunctionMemory = ParseInt("CUTROOM_FUNCTION_MEMORY_MB", cfg.FunctionMemory)
	cfg.FunctionTimeout = ParseInt("CUTROOM_FUNCTION_TIMEOUT_S", cfg.FunctionTimeout)
	cfg.PollInterval = ParseDuration("CUTROOM_POLL_INTERVAL", cfg.PollInterval)
	cfg.TranscribeURL = ParseString("CUTROOM_TRANSCRIBE_URL", cfg.TranscribeURL)
	cfg.TranscribeKey = ParseString("CUTROOM_TRANSCRIBE_KEY", cfg.TranscribeKey)
	cfg.StorageBaseURL = ParseString("CUTROOM_STORAGE_URL", cfg.StorageBaseURL)
	cfg.RateLimitRPM = ParseInt("CUTROOM_RATE_LIMIT_RPM", cfg.RateLimitRPM)
	cfg.TracingEnabled = ParseBool("CUTROOM_TRACING_ENABLED", cfg.TracingEnabled)
	cfg.TracingExporter = ParseString("CUTROOM_TRACING_EXPORTER", cfg.TracingExporter)
	cfg.TracingEndpoint = ParseString("CUTROOM_TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.TracingSampleRate = ParseFloat("CUTROOM_TRACING_SAMPLE_RATE", cfg.TracingSampleRate)
}

// Validate checks the configuration for values that would break startup.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is empty")
	}
	if c.Region == "" {
		return fmt.Errorf("render region is empty")
	}
	if c.SiteName == "" {
		return fmt.Errorf("site name is empty")
	}
	if c.FunctionMemory <= 0 {
		return fmt.Errorf("function memory must be positive, got %d", c.FunctionMemory)
	}
	if c.FunctionTimeout <= 0 {
		return fmt.Errorf("function timeout must be positive, got %d", c.FunctionTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	for name, raw := range map[string]string{
		"provider URL":   c.ProviderURL,
		"transcribe URL": c.TranscribeURL,
		"storage URL":    c.StorageBaseURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("unsupported %s scheme %q", name, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("%s %q is missing host", name, raw)
		}
	}
	return nil
}
