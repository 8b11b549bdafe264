package config

import (
	"time"

	"github.com/storycard/storycard/internal/core/throttle"
)

// Config represents the complete application configuration. Values come from
// built-in defaults, an optional YAML file, then STORYCARD_* environment variables
// and command flags.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	YouTube  YouTubeConfig  `mapstructure:"youtube"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Render   RenderConfig   `mapstructure:"render"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// AdminToken enables the bearer-authenticated signal endpoint when set.
	AdminToken string `mapstructure:"admin_token"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated exporter port; /metrics on the main port proxies it.
	Port int `mapstructure:"port"`
}

// YouTubeConfig configures the metadata providers.
type YouTubeConfig struct {
	// APIKey enables the keyed provider. YOUTUBE_API_KEY is honored as well.
	APIKey         string        `mapstructure:"api_key"`
	DataAPIBaseURL string        `mapstructure:"data_api_base_url"`
	OEmbedURL      string        `mapstructure:"oembed_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// ThrottleRule is one fixed-window limit.
type ThrottleRule struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// ThrottleConfig holds the per-route limits.
type ThrottleConfig struct {
	Metadata ThrottleRule `mapstructure:"metadata"`
	Proxy    ThrottleRule `mapstructure:"proxy"`
	Story    ThrottleRule `mapstructure:"story"`
}

// ProxyConfig configures the image proxy.
type ProxyConfig struct {
	MaxBytes int64         `mapstructure:"max_bytes"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RenderConfig configures story export.
type RenderConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	Filename    string        `mapstructure:"filename"`
}

// Policy turns the rule into a named throttle policy, keeping base for unset fields.
func (r ThrottleRule) Policy(base throttle.Policy) throttle.Policy {
	p := base
	if r.Limit > 0 {
		p.Limit = r.Limit
	}
	if r.Window > 0 {
		p.Window = r.Window
	}
	return p
}
