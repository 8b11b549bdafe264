// Package config provides centralized configuration management for storycard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/storycard/storycard/internal/appid"
	"github.com/storycard/storycard/internal/core/imageproxy"
	"github.com/storycard/storycard/internal/core/story"
	"github.com/storycard/storycard/internal/core/throttle"
	"github.com/storycard/storycard/internal/core/youtube"
)

// APIKeyEnv is read when youtube.api_key is not configured.
const APIKeyEnv = "YOUTUBE_API_KEY"

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Configure wires env handling and defaults into v. Nested keys map to
// PREFIX_SECTION_KEY, e.g. STORYCARD_THROTTLE_STORY_LIMIT.
func Configure(v *viper.Viper, envPrefix string) {
	v.SetEnvPrefix(strings.TrimSuffix(envPrefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.admin_token", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Metadata providers
	v.SetDefault("youtube.api_key", "")
	v.SetDefault("youtube.data_api_base_url", youtube.DefaultDataAPIBaseURL)
	v.SetDefault("youtube.oembed_url", youtube.DefaultOEmbedURL)
	v.SetDefault("youtube.timeout", "10s")

	// Throttle defaults
	setRuleDefaults(v, "throttle.metadata", throttle.MetadataPolicy)
	setRuleDefaults(v, "throttle.proxy", throttle.ProxyPolicy)
	setRuleDefaults(v, "throttle.story", throttle.StoryPolicy)

	// Image proxy
	v.SetDefault("proxy.max_bytes", imageproxy.DefaultMaxBytes)
	v.SetDefault("proxy.timeout", imageproxy.DefaultTimeout)

	// Story export
	v.SetDefault("render.settle_delay", story.DefaultSettleDelay.String())
	v.SetDefault("render.filename", story.Filename)
}

func setRuleDefaults(v *viper.Viper, key string, p throttle.Policy) {
	v.SetDefault(key+".limit", p.Limit)
	v.SetDefault(key+".window", p.Window.String())
}

// Load decodes v into a typed Config, validates it and stores it for GetConfig.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, fmt.Errorf("config: nil viper instance")
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.YouTube.APIKey) == "" {
		cfg.YouTube.APIKey = strings.TrimSpace(os.Getenv(APIKeyEnv))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port out of range: %d", c.Metrics.Port)
	}
	rules := map[string]ThrottleRule{
		"throttle.metadata": c.Throttle.Metadata,
		"throttle.proxy":    c.Throttle.Proxy,
		"throttle.story":    c.Throttle.Story,
	}
	for key, rule := range rules {
		if rule.Limit < 0 {
			return fmt.Errorf("%s.limit must not be negative", key)
		}
		if rule.Window < 0 {
			return fmt.Errorf("%s.window must not be negative", key)
		}
	}
	if c.Proxy.MaxBytes < 0 {
		return fmt.Errorf("proxy.max_bytes must not be negative")
	}
	if c.Render.SettleDelay < 0 {
		return fmt.Errorf("render.settle_delay must not be negative")
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appid.ConfigName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}
