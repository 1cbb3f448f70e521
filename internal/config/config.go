// Package config loads and validates site configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Site       SiteConfig       `mapstructure:"site"`
	Loader     LoaderConfig     `mapstructure:"loader"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Reporting  ReportingConfig  `mapstructure:"reporting"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	LinkCheck  LinkCheckConfig  `mapstructure:"linkcheck"`
	Vitals     VitalsConfig     `mapstructure:"vitals"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// SiteConfig holds brand metadata used by templates, the sitemap and the manifest.
type SiteConfig struct {
	Name        string `mapstructure:"name"`
	BaseURL     string `mapstructure:"base_url"`
	Description string `mapstructure:"description"`
	ThemeColor  string `mapstructure:"theme_color"`
}

// LoaderConfig tunes the first-visit loading animation.
type LoaderConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	SessionKey     string `mapstructure:"session_key"`
	FrameMillis    int    `mapstructure:"frame_ms"`
	HoldMillis     int    `mapstructure:"hold_ms"`
	UnmountMillis  int    `mapstructure:"unmount_ms"`
	MaxStreamTicks int    `mapstructure:"max_stream_ticks"`
}

// SchedulingConfig describes the third-party scheduling widget.
type SchedulingConfig struct {
	DefaultLink           string `mapstructure:"default_link"`
	DefaultNamespace      string `mapstructure:"default_namespace"`
	EmbedScriptURL        string `mapstructure:"embed_script_url"`
	IframeBaseURL         string `mapstructure:"iframe_base_url"`
	BrandColor            string `mapstructure:"brand_color"`
	Layout                string `mapstructure:"layout"`
	PreloadTimeoutSeconds int    `mapstructure:"preload_timeout_seconds"`
}

// MetricsConfig sizes the in-memory metrics collection endpoint.
type MetricsConfig struct {
	Capacity        int `mapstructure:"capacity"`
	DefaultLimit    int `mapstructure:"default_limit"`
	SlowThresholdMs int `mapstructure:"slow_threshold_ms"`
	// SubmitRPS throttles POST /api/metrics per client IP; zero disables it.
	SubmitRPS   float64 `mapstructure:"submit_rps"`
	SubmitBurst int     `mapstructure:"submit_burst"`
}

// ReportingConfig controls how recorder payloads are buffered and forwarded.
type ReportingConfig struct {
	BufferSize     int    `mapstructure:"buffer_size"`
	MaxBatch       int    `mapstructure:"max_batch"`
	MaxWaitMillis  int    `mapstructure:"max_wait_ms"`
	CollectorURL   string `mapstructure:"collector_url"`
	LogPayloads    bool   `mapstructure:"log_payloads"`
	SinkTimeoutSec int    `mapstructure:"sink_timeout_seconds"`
}

// PubSubConfig holds metadata for the optional analytics topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// TracingConfig toggles the OpenTelemetry tracer provider and its OTLP exporter.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// LinkCheckConfig governs the sitemap crawler.
type LinkCheckConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	Parallelism    int    `mapstructure:"parallelism"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// VitalsConfig governs the headless page timing sweep.
type VitalsConfig struct {
	UserAgent         string  `mapstructure:"user_agent"`
	NavTimeoutSeconds int     `mapstructure:"nav_timeout_seconds"`
	QPS               float64 `mapstructure:"qps"`
	ViewportWidth     int     `mapstructure:"viewport_width"`
	ViewportHeight    int     `mapstructure:"viewport_height"`
	ExecPath          string  `mapstructure:"exec_path"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ZEROVO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("site.name", "Zerovo Labs")
	v.SetDefault("site.base_url", "https://zerovolabs.in")
	v.SetDefault("site.description", "AI Automation & Custom Software Development")
	v.SetDefault("site.theme_color", "#0a1929")
	v.SetDefault("loader.enabled", true)
	v.SetDefault("loader.session_key", "zerovo_loader_shown")
	v.SetDefault("loader.frame_ms", 16)
	v.SetDefault("loader.hold_ms", 500)
	v.SetDefault("loader.unmount_ms", 1000)
	v.SetDefault("loader.max_stream_ticks", 20000)
	v.SetDefault("scheduling.default_link", "ravi-zerovo/30min")
	v.SetDefault("scheduling.default_namespace", "30min")
	v.SetDefault("scheduling.embed_script_url", "https://app.cal.com/embed/embed.js")
	v.SetDefault("scheduling.iframe_base_url", "https://cal.com")
	v.SetDefault("scheduling.brand_color", "#38bdf8")
	v.SetDefault("scheduling.layout", "month_view")
	v.SetDefault("scheduling.preload_timeout_seconds", 0)
	v.SetDefault("metrics.capacity", 1000)
	v.SetDefault("metrics.default_limit", 100)
	v.SetDefault("metrics.slow_threshold_ms", 3000)
	v.SetDefault("metrics.submit_rps", 5.0)
	v.SetDefault("metrics.submit_burst", 20)
	v.SetDefault("reporting.buffer_size", 1024)
	v.SetDefault("reporting.max_batch", 50)
	v.SetDefault("reporting.max_wait_ms", 250)
	v.SetDefault("reporting.collector_url", "")
	v.SetDefault("reporting.log_payloads", true)
	v.SetDefault("reporting.sink_timeout_seconds", 5)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "zerovo-site")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.protocol", "http")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("linkcheck.user_agent", "zerovo-linkcheck/1.0")
	v.SetDefault("linkcheck.parallelism", 4)
	v.SetDefault("linkcheck.timeout_seconds", 15)
	v.SetDefault("vitals.user_agent", "zerovo-vitals/1.0")
	v.SetDefault("vitals.nav_timeout_seconds", 30)
	v.SetDefault("vitals.qps", 1.0)
	v.SetDefault("vitals.viewport_width", 1366)
	v.SetDefault("vitals.viewport_height", 768)
	v.SetDefault("vitals.exec_path", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Metrics.Capacity <= 0 {
		return fmt.Errorf("metrics.capacity must be > 0")
	}
	if c.Metrics.DefaultLimit <= 0 {
		return fmt.Errorf("metrics.default_limit must be > 0")
	}
	if c.Loader.Enabled && c.Loader.SessionKey == "" {
		return fmt.Errorf("loader.session_key must be set when the loader is enabled")
	}
	if c.Loader.FrameMillis <= 0 {
		return fmt.Errorf("loader.frame_ms must be > 0")
	}
	if c.Scheduling.DefaultLink == "" {
		return fmt.Errorf("scheduling.default_link must be set")
	}
	if c.Scheduling.PreloadTimeoutSeconds < 0 {
		return fmt.Errorf("scheduling.preload_timeout_seconds must be >= 0")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
	}
	if c.Vitals.QPS < 0 {
		return fmt.Errorf("vitals.qps must be >= 0")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is configured")
	}
	return nil
}

// FrameInterval converts loader.frame_ms into a duration.
func (c LoaderConfig) FrameInterval() time.Duration {
	return time.Duration(c.FrameMillis) * time.Millisecond
}

// HoldDelay converts loader.hold_ms into a duration.
func (c LoaderConfig) HoldDelay() time.Duration {
	return time.Duration(c.HoldMillis) * time.Millisecond
}

// UnmountDelay converts loader.unmount_ms into a duration.
func (c LoaderConfig) UnmountDelay() time.Duration {
	return time.Duration(c.UnmountMillis) * time.Millisecond
}

// RequestTimeout returns the per-request handler budget.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// PreloadTimeout returns the widget preload budget; zero means unbounded.
func (c SchedulingConfig) PreloadTimeout() time.Duration {
	return time.Duration(c.PreloadTimeoutSeconds) * time.Second
}

// SlowThreshold is the load time above which a sample is logged as slow.
func (c MetricsConfig) SlowThreshold() time.Duration {
	return time.Duration(c.SlowThresholdMs) * time.Millisecond
}

// NavTimeout bounds a single vitals navigation.
func (c VitalsConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}

// Timeout bounds each link check request.
func (c LinkCheckConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
