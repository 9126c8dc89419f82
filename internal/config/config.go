package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Auth      AuthConfig      `koanf:"auth"`
	LLM       LLMConfig       `koanf:"llm"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	Limits    LimitsConfig    `koanf:"limits"`
	Memory    MemoryConfig    `koanf:"memory"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type AuthConfig struct {
	APIKey string `koanf:"api_key"`
}

type LLMConfig struct {
	Region      string  `koanf:"region"`
	ModelID     string  `koanf:"model_id"`
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
}

type ArtifactsConfig struct {
	Dir         string `koanf:"dir"`
	DatasetsDir string `koanf:"datasets_dir"`
}

type LimitsConfig struct {
	MaxRowsPerTable   int    `koanf:"max_rows_per_table"`
	MaxConcurrentJobs int    `koanf:"max_concurrent_jobs"`
	JobMaxAge         string `koanf:"job_max_age"`
	CleanupInterval   string `koanf:"cleanup_interval"`
}

type MemoryConfig struct {
	Path string `koanf:"path"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// JobMaxAgeDuration parses the configured retention window, defaulting to 12h.
func (l LimitsConfig) JobMaxAgeDuration() time.Duration {
	d, err := time.ParseDuration(l.JobMaxAge)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}

// CleanupIntervalDuration parses the sweep cadence, defaulting to 1h.
func (l LimitsConfig) CleanupIntervalDuration() time.Duration {
	d, err := time.ParseDuration(l.CleanupInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Load reads config from TOML file (if provided) then overlays env vars.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	// 2. Load TOML config file if provided
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, err
		}
	}

	// 3. Load env vars: DF_SERVER_PORT -> server.port
	// Only set env vars that have non-empty values to avoid overriding TOML config.
	if err := k.Load(env.ProviderWithValue("DF_", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		mapped := strings.Replace(
			strings.ToLower(strings.TrimPrefix(key, "DF_")),
			"_", ".", -1,
		)
		return mapped, value
	}), nil); err != nil {
		return nil, err
	}

	// 4. Handle env vars whose names contain underscores themselves
	if v := os.Getenv("DF_AUTH_API_KEY"); v != "" {
		k.Set("auth.api_key", v)
	}
	if v := os.Getenv("DF_LLM_MODEL_ID"); v != "" {
		k.Set("llm.model_id", v)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if cfg.Artifacts.DatasetsDir == "" {
		cfg.Artifacts.DatasetsDir = cfg.Artifacts.Dir + "/datasets"
	}

	return &cfg, nil
}
