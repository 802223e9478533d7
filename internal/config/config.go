// Package config loads the server configuration from an optional YAML file
// and environment variables. Environment variables override YAML values.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr        = ":8080"
	DefaultUpstreamURL = "https://graphql-pokemon2.vercel.app/"
)

// Config holds the server configuration.
type Config struct {
	Addr            string        `yaml:"addr"`
	UpstreamURL     string        `yaml:"upstream_url"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	PollWait        time.Duration `yaml:"poll_wait"`
	RenderWait      time.Duration `yaml:"render_wait"`
	LookupLogDSN    string        `yaml:"lookup_log_dsn"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() *Config {
	return &Config{
		Addr:            DefaultAddr,
		UpstreamURL:     DefaultUpstreamURL,
		CacheTTL:        10 * time.Minute,
		SessionTTL:      30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		PollWait:        20 * time.Second,
		RenderWait:      5 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
		MetricsEnabled:  true,
	}
}

// Load reads path (when non-empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("POKEDEX_ADDR"); v != "" {
		c.Addr = v
	}
	if p := os.Getenv("PORT"); p != "" { // Heroku-style
		c.Addr = ":" + p
	}
	if v := os.Getenv("POKEDEX_UPSTREAM_URL"); v != "" {
		c.UpstreamURL = v
	}
	if v := os.Getenv("POKEDEX_LOOKUP_LOG_DSN"); v != "" {
		c.LookupLogDSN = v
	} else if v := os.Getenv("DATABASE_URL"); v != "" {
		c.LookupLogDSN = v
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"POKEDEX_UPSTREAM_TIMEOUT", &c.UpstreamTimeout},
		{"POKEDEX_CACHE_TTL", &c.CacheTTL},
		{"POKEDEX_SESSION_TTL", &c.SessionTTL},
		{"POKEDEX_CLEANUP_INTERVAL", &c.CleanupInterval},
		{"POKEDEX_POLL_WAIT", &c.PollWait},
		{"POKEDEX_RENDER_WAIT", &c.RenderWait},
	}
	for _, d := range durations {
		v := strings.TrimSpace(os.Getenv(d.env))
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.env, v, err)
		}
		*d.dst = parsed
	}

	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		c.RateLimitRPS = rps
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BURST %q: %w", v, err)
		}
		c.RateLimitBurst = burst
	}
	if v := strings.TrimSpace(os.Getenv("POKEDEX_METRICS_ENABLED")); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid POKEDEX_METRICS_ENABLED %q: %w", v, err)
		}
		c.MetricsEnabled = enabled
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required (set POKEDEX_ADDR or yaml)")
	}
	if c.UpstreamURL == "" {
		return errors.New("upstream_url is required (set POKEDEX_UPSTREAM_URL or yaml)")
	}
	u, err := url.Parse(c.UpstreamURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("upstream_url must be an absolute http(s) URL, got %q", c.UpstreamURL)
	}
	if c.UpstreamTimeout < 0 {
		return errors.New("upstream_timeout must not be negative")
	}
	if c.CacheTTL < 0 {
		return errors.New("cache_ttl must not be negative (0 disables the cache)")
	}
	if c.SessionTTL < time.Minute {
		return errors.New("session_ttl must be at least 1 minute")
	}
	if c.CleanupInterval < time.Second {
		return errors.New("cleanup_interval must be at least 1 second")
	}
	if c.PollWait <= 0 || c.PollWait > time.Minute {
		return errors.New("poll_wait must be between 0 and 1 minute")
	}
	if c.RenderWait < 0 {
		return errors.New("render_wait must not be negative")
	}
	if c.RateLimitRPS < 0 {
		return errors.New("rate_limit_rps must not be negative (0 disables rate limiting)")
	}
	if c.RateLimitBurst < 0 {
		return errors.New("rate_limit_burst must not be negative")
	}
	return nil
}

// WriteTimeout is the HTTP server write timeout. It leaves room for a full
// long-poll window on top of the usual 15 seconds.
func (c *Config) WriteTimeout() time.Duration {
	return c.PollWait + 15*time.Second
}
