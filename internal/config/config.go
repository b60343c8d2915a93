package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	DBPath    string          `mapstructure:"db_path" yaml:"db_path"`
	OutputDir string          `mapstructure:"output_dir" yaml:"output_dir"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Tools     ToolsConfig     `mapstructure:"tools" yaml:"tools"`
	APIs      APIConfig       `mapstructure:"apis" yaml:"apis"`
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`
	Probe     ProbeConfig     `mapstructure:"probe" yaml:"probe"`
	Jobs      JobsConfig      `mapstructure:"jobs" yaml:"jobs"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Notify    NotifyConfig    `mapstructure:"notify" yaml:"notify"`
	Scope     ScopeConfig     `mapstructure:"scope" yaml:"scope"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Listen         string   `mapstructure:"listen" yaml:"listen"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	Debug          bool     `mapstructure:"debug" yaml:"debug"`
	// EnableClear exposes POST /api/debug/clear-database
	EnableClear bool `mapstructure:"enable_clear" yaml:"enable_clear"`
}

// LogConfig controls logrus output
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	Output     string `mapstructure:"output" yaml:"output"`
	FilePath   string `mapstructure:"file_path" yaml:"file_path"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ToolConfig represents configuration for a single tool
type ToolConfig struct {
	Path    string `mapstructure:"path" yaml:"path"`
	Threads int    `mapstructure:"threads" yaml:"threads"`
	Timeout string `mapstructure:"timeout" yaml:"timeout"`
}

// TimeoutOr parses Timeout, returning fallback when it is empty or invalid.
func (t ToolConfig) TimeoutOr(fallback time.Duration) time.Duration {
	if t.Timeout == "" {
		return fallback
	}
	d, err := time.ParseDuration(t.Timeout)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ToolsConfig contains configuration for all external tools
type ToolsConfig struct {
	Subfinder ToolConfig `mapstructure:"subfinder" yaml:"subfinder"`
	Sublist3r ToolConfig `mapstructure:"sublist3r" yaml:"sublist3r"`
	Httpx     ToolConfig `mapstructure:"httpx" yaml:"httpx"`
	Gau       ToolConfig `mapstructure:"gau" yaml:"gau"`
	Naabu     ToolConfig `mapstructure:"naabu" yaml:"naabu"`
	// ProbeTTL is how long tool availability results are cached.
	ProbeTTL time.Duration `mapstructure:"probe_ttl" yaml:"probe_ttl"`
}

// APIConfig configures the passive web API sources
type APIConfig struct {
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	ChaosKey  string        `mapstructure:"chaos_key" yaml:"chaos_key"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// RatePerSecond bounds outbound API requests across all sources.
	RatePerSecond float64 `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	Burst         int     `mapstructure:"burst" yaml:"burst"`
}

// DiscoveryConfig controls subdomain fan-out
type DiscoveryConfig struct {
	// FilterMode is "permissive" or "contains".
	FilterMode  string `mapstructure:"filter_mode" yaml:"filter_mode"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	Preset      string `mapstructure:"preset" yaml:"preset"`
}

// ProbeConfig controls live host probing
type ProbeConfig struct {
	// Strategy is "httpx" or "direct".
	Strategy    string        `mapstructure:"strategy" yaml:"strategy"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
}

// JobsConfig controls the in-memory job registry
type JobsConfig struct {
	Retention     time.Duration `mapstructure:"retention" yaml:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Heartbeat     time.Duration `mapstructure:"heartbeat" yaml:"heartbeat"`
}

// RedisConfig enables mirroring job snapshots into a Redis stream
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Stream   string `mapstructure:"stream" yaml:"stream"`
}

// NotifyConfig configures the completion webhook
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
}

// ScopeConfig restricts which targets may be scanned
type ScopeConfig struct {
	AllowedDomains []string `mapstructure:"allowed_domains" yaml:"allowed_domains"`
	AllowedCIDRs   []string `mapstructure:"allowed_cidrs" yaml:"allowed_cidrs"`
}

// Load reads configuration from a YAML file layered over DefaultConfig.
// If path is empty, searches for reconaug.yaml in the current directory,
// ./configs and ~/.config/reconaug/. A missing file is not an error;
// environment variables prefixed with RECONAUG_ override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("reconaug")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("reconaug")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "reconaug"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every default so env overrides and partial files
// still resolve to a complete config.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("output_dir", d.OutputDir)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.debug", d.Server.Debug)
	v.SetDefault("server.enable_clear", d.Server.EnableClear)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.file_path", d.Log.FilePath)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)

	for name, tool := range map[string]ToolConfig{
		"subfinder": d.Tools.Subfinder,
		"sublist3r": d.Tools.Sublist3r,
		"httpx":     d.Tools.Httpx,
		"gau":       d.Tools.Gau,
		"naabu":     d.Tools.Naabu,
	} {
		v.SetDefault("tools."+name+".path", tool.Path)
		v.SetDefault("tools."+name+".threads", tool.Threads)
		v.SetDefault("tools."+name+".timeout", tool.Timeout)
	}
	v.SetDefault("tools.probe_ttl", d.Tools.ProbeTTL)

	v.SetDefault("apis.user_agent", d.APIs.UserAgent)
	v.SetDefault("apis.chaos_key", d.APIs.ChaosKey)
	v.SetDefault("apis.timeout", d.APIs.Timeout)
	v.SetDefault("apis.rate_per_second", d.APIs.RatePerSecond)
	v.SetDefault("apis.burst", d.APIs.Burst)

	v.SetDefault("discovery.filter_mode", d.Discovery.FilterMode)
	v.SetDefault("discovery.concurrency", d.Discovery.Concurrency)
	v.SetDefault("discovery.preset", d.Discovery.Preset)

	v.SetDefault("probe.strategy", d.Probe.Strategy)
	v.SetDefault("probe.timeout", d.Probe.Timeout)
	v.SetDefault("probe.concurrency", d.Probe.Concurrency)

	v.SetDefault("jobs.retention", d.Jobs.Retention)
	v.SetDefault("jobs.sweep_interval", d.Jobs.SweepInterval)
	v.SetDefault("jobs.poll_interval", d.Jobs.PollInterval)
	v.SetDefault("jobs.heartbeat", d.Jobs.Heartbeat)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.stream", d.Redis.Stream)

	v.SetDefault("notify.webhook_url", d.Notify.WebhookURL)
	v.SetDefault("scope.allowed_domains", d.Scope.AllowedDomains)
	v.SetDefault("scope.allowed_cidrs", d.Scope.AllowedCIDRs)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path cannot be empty"))
	}

	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir cannot be empty"))
	}

	switch c.Discovery.FilterMode {
	case "permissive", "contains":
	default:
		errs = append(errs, fmt.Errorf("discovery.filter_mode must be permissive or contains, got %q", c.Discovery.FilterMode))
	}

	if c.Discovery.Concurrency <= 0 {
		errs = append(errs, errors.New("discovery.concurrency must be positive"))
	}

	switch c.Probe.Strategy {
	case "httpx", "direct":
	default:
		errs = append(errs, fmt.Errorf("probe.strategy must be httpx or direct, got %q", c.Probe.Strategy))
	}

	if c.Probe.Timeout <= 0 {
		errs = append(errs, errors.New("probe.timeout must be positive"))
	}

	if c.APIs.Timeout <= 0 {
		errs = append(errs, errors.New("apis.timeout must be positive"))
	}

	if c.APIs.RatePerSecond <= 0 {
		errs = append(errs, errors.New("apis.rate_per_second must be positive"))
	}

	if c.Jobs.Retention <= 0 || c.Jobs.SweepInterval <= 0 || c.Jobs.PollInterval <= 0 {
		errs = append(errs, errors.New("jobs retention, sweep_interval and poll_interval must be positive"))
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
