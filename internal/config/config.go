// Package config loads the service settings from configs/config.yml with
// SMARTENV_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"smart_environment/internal/buffer"
	"smart_environment/internal/insight"
	"smart_environment/internal/models"
	"smart_environment/internal/provider"
	"smart_environment/internal/service"
)

const envPrefix = "SMARTENV"

// DefaultLocalURL is the NodeMCU endpoint polled when no providers are configured.
const DefaultLocalURL = "http://192.168.0.10/data.json"

type Config struct {
	Port       string                    `mapstructure:"port"`
	Log        LogConfig                 `mapstructure:"log"`
	DB         DBConfig                  `mapstructure:"db"`
	HTTP       HTTPConfig                `mapstructure:"http"`
	Auth       AuthConfig                `mapstructure:"auth"`
	Polling    PollingConfig             `mapstructure:"polling"`
	Buffer     BufferConfig              `mapstructure:"buffer"`
	Journal    JournalConfig             `mapstructure:"journal"`
	Resolver   ResolverConfig            `mapstructure:"resolver"`
	Simulation provider.SimulationConfig `mapstructure:"simulation"`
	Insight    insight.Thresholds        `mapstructure:"insight"`
	Cache      CacheConfig               `mapstructure:"cache"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type HTTPConfig struct {
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type PollingConfig struct {
	Interval           time.Duration `mapstructure:"interval"`
	Mode               string        `mapstructure:"mode"`
	AutoStart          bool          `mapstructure:"auto_start"`
	StaleAfterFailures int           `mapstructure:"stale_after_failures"`
}

type BufferConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type JournalConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// ResolverConfig lists the live-mode providers; rank decides precedence.
type ResolverConfig struct {
	Providers []provider.Descriptor `mapstructure:"providers"`
	Breaker   service.BreakerConfig `mapstructure:"breaker"`
}

type CacheConfig struct {
	Name           string        `mapstructure:"name"`
	Manifest       []string      `mapstructure:"manifest"`
	Origin         string        `mapstructure:"origin"` // directory or http(s) base URL
	PopulateOnMiss bool          `mapstructure:"populate_on_miss"`
	InstallTimeout time.Duration `mapstructure:"install_timeout"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads the file at path (yaml, json or toml by extension). An empty
// path searches ./configs and . for config.yml.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := decodeProviderSimulations(v, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every scalar key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	th := insight.DefaultThresholds()

	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "app.db")

	v.SetDefault("http.read_header_timeout", 5*time.Second)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("polling.interval", 5*time.Second)
	v.SetDefault("polling.mode", string(models.ModeLive))
	v.SetDefault("polling.auto_start", true)
	v.SetDefault("polling.stale_after_failures", 3)

	v.SetDefault("buffer.capacity", buffer.DefaultCapacity)
	v.SetDefault("journal.capacity", service.DefaultJournalCapacity)

	v.SetDefault("resolver.breaker.max_failures", 0)
	v.SetDefault("resolver.breaker.reset_timeout", 30*time.Second)

	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.qualitative", false)
	simulationDefaults(v, "simulation")

	v.SetDefault("insight.heat_c", th.HeatC)
	v.SetDefault("insight.cold_c", th.ColdC)
	v.SetDefault("insight.poor_aqi", th.PoorAQI)
	v.SetDefault("insight.dry_pct", th.DryPct)
	v.SetDefault("insight.humid_pct", th.HumidPct)

	v.SetDefault("cache.name", service.DefaultCacheName)
	v.SetDefault("cache.origin", "web")
	v.SetDefault("cache.populate_on_miss", true)
	v.SetDefault("cache.install_timeout", 30*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// simulationDefaults registers the stock walk under prefix so only keys
// missing from the file are defaulted.
func simulationDefaults(v *viper.Viper, prefix string) {
	d := provider.DefaultSimulationConfig()
	for key, val := range map[string]float64{
		"start_temp_c":       d.StartTempC,
		"start_humidity_pct": d.StartHumPct,
		"start_aqi":          d.StartAQI,
		"temp_step":          d.TempStep,
		"humidity_step":      d.HumStep,
		"aqi_step":           d.AQIStep,
		"min_temp_c":         d.MinTempC,
		"max_temp_c":         d.MaxTempC,
		"min_humidity_pct":   d.MinHumPct,
		"max_humidity_pct":   d.MaxHumPct,
		"max_aqi":            d.MaxAQI,
		"qualitative_cutoff": d.QualitativeCutoff,
	} {
		v.SetDefault(prefix+"."+key, val)
	}
}

// decodeProviderSimulations decodes the simulation block of each simulated
// provider again with the stock walk as defaults. Viper cannot default keys
// inside list items.
func decodeProviderSimulations(v *viper.Viper, cfg *Config) error {
	raw, ok := v.Get("resolver.providers").([]any)
	if !ok {
		return nil
	}
	for i, item := range raw {
		if i >= len(cfg.Resolver.Providers) || cfg.Resolver.Providers[i].Kind != provider.KindSimulated {
			continue
		}
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		sub := viper.New()
		simulationDefaults(sub, "simulation")
		if err := sub.MergeConfigMap(m); err != nil {
			return fmt.Errorf("decode provider %d simulation: %w", i, err)
		}
		var block struct {
			Simulation provider.SimulationConfig `mapstructure:"simulation"`
		}
		if err := sub.Unmarshal(&block); err != nil {
			return fmt.Errorf("decode provider %d simulation: %w", i, err)
		}
		cfg.Resolver.Providers[i].Simulation = block.Simulation
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DB.Path == "" {
		c.DB.Path = "app.db"
	}
	if c.Buffer.Capacity <= 0 {
		c.Buffer.Capacity = buffer.DefaultCapacity
	}
	if c.Journal.Capacity <= 0 {
		c.Journal.Capacity = service.DefaultJournalCapacity
	}
	if len(c.Insight.PoorLabels) == 0 {
		c.Insight.PoorLabels = insight.DefaultThresholds().PoorLabels
	}
	if len(c.Cache.Manifest) == 0 {
		c.Cache.Manifest = append([]string(nil), service.DefaultManifest...)
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if len(c.Resolver.Providers) == 0 {
		c.Resolver.Providers = []provider.Descriptor{{
			Name: "local",
			Kind: provider.KindHTTPJSON,
			Rank: 10,
			URL:  DefaultLocalURL,
		}}
	}
	for i := range c.Resolver.Providers {
		c.Resolver.Providers[i].ApplyDefaults()
	}
}

func (c *Config) validate() error {
	if _, err := models.ParseMode(c.Polling.Mode); err != nil {
		return fmt.Errorf("polling.mode: %w", err)
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("polling.interval must be positive, got %s", c.Polling.Interval)
	}
	if c.Polling.StaleAfterFailures <= 0 {
		return fmt.Errorf("polling.stale_after_failures must be positive, got %d", c.Polling.StaleAfterFailures)
	}
	if c.Insight.ColdC >= c.Insight.HeatC {
		return fmt.Errorf("insight.cold_c (%v) must be below insight.heat_c (%v)", c.Insight.ColdC, c.Insight.HeatC)
	}
	if c.Insight.DryPct >= c.Insight.HumidPct {
		return fmt.Errorf("insight.dry_pct (%v) must be below insight.humid_pct (%v)", c.Insight.DryPct, c.Insight.HumidPct)
	}
	if err := c.Insight.NormalizePoorLabels(); err != nil {
		return fmt.Errorf("insight.%w", err)
	}
	if c.Resolver.Breaker.MaxFailures < 0 {
		return fmt.Errorf("resolver.breaker.max_failures must not be negative")
	}

	names := make(map[string]struct{}, len(c.Resolver.Providers))
	for i, d := range c.Resolver.Providers {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("resolver.providers[%d]: %w", i, err)
		}
		if _, dup := names[d.Name]; dup {
			return fmt.Errorf("resolver.providers[%d]: duplicate name %q", i, d.Name)
		}
		names[d.Name] = struct{}{}
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	if c.Cache.Name == "" {
		return fmt.Errorf("cache.name is required")
	}
	if c.Cache.Origin == "" {
		return fmt.Errorf("cache.origin is required")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	return nil
}

// Mode returns the validated initial polling mode.
func (c *Config) Mode() models.Mode {
	m, _ := models.ParseMode(c.Polling.Mode)
	return m
}
