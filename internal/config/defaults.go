package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		DBPath:    "reconaug.db",
		OutputDir: "output",
		Server: ServerConfig{
			Listen:         "127.0.0.1:5000",
			AllowedOrigins: []string{"http://localhost:5000", "http://127.0.0.1:5000"},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   "logs/reconaug.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
		Tools: ToolsConfig{
			Subfinder: ToolConfig{Path: "subfinder", Threads: 50, Timeout: "10m"},
			Sublist3r: ToolConfig{Path: "sublist3r", Timeout: "10m"},
			Httpx:     ToolConfig{Path: "httpx", Threads: 50, Timeout: "10m"},
			Gau:       ToolConfig{Path: "gau", Threads: 50, Timeout: "3m"},
			Naabu:     ToolConfig{Path: "naabu", Threads: 50, Timeout: "10m"},
			ProbeTTL:  time.Minute,
		},
		APIs: APIConfig{
			UserAgent:     "reconaug/0.1",
			Timeout:       30 * time.Second,
			RatePerSecond: 5,
			Burst:         10,
		},
		Discovery: DiscoveryConfig{
			FilterMode:  "permissive",
			Concurrency: 4,
			Preset:      "full",
		},
		Probe: ProbeConfig{
			Strategy:    "httpx",
			Timeout:     5 * time.Second,
			Concurrency: 50,
		},
		Jobs: JobsConfig{
			Retention:     time.Hour,
			SweepInterval: 5 * time.Minute,
			PollInterval:  time.Second,
			Heartbeat:     15 * time.Second,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Stream: "reconaug:jobs",
		},
		Scope: ScopeConfig{
			AllowedDomains: []string{},
			AllowedCIDRs:   []string{},
		},
	}
}

// WriteDefault writes a default configuration to the specified path
func WriteDefault(path string) error {
	cfg := DefaultConfig()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
