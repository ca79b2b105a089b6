package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/newsrag/internal/domain"
)

// Config holds the newsrag API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Backends  BackendsConfig  `yaml:"backends"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Cache     CacheConfig     `yaml:"cache"`
	Trace     TraceConfig     `yaml:"trace"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// BackendsConfig holds connection settings for every article store.
// A backend with an empty config section is simply not registered.
type BackendsConfig struct {
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Cassandra  CassandraConfig  `yaml:"cassandra"`
}

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Addrs    []string `yaml:"addrs"`
	Database string   `yaml:"database"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Table    string   `yaml:"table"`
}

// Enabled reports whether the section is configured.
func (c ClickHouseConfig) Enabled() bool { return len(c.Addrs) > 0 }

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// Enabled reports whether the section is configured.
func (c PostgresConfig) Enabled() bool { return c.DSN != "" }

// CassandraConfig holds Cassandra connection settings.
type CassandraConfig struct {
	Hosts    []string `yaml:"hosts"`
	Port     int      `yaml:"port"`
	Keyspace string   `yaml:"keyspace"`
	Table    string   `yaml:"table"`
}

// Enabled reports whether the section is configured.
func (c CassandraConfig) Enabled() bool { return len(c.Hosts) > 0 }

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Provider   string `yaml:"provider"` // label for metrics, e.g. "openai"
}

// LLMConfig holds chat model settings. Provider selects the generator
// implementation: anthropic or openai.
type LLMConfig struct {
	Provider  string          `yaml:"provider"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
}

// AnthropicConfig holds Anthropic Messages API settings.
type AnthropicConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// OpenAIConfig holds OpenAI chat completion settings.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// CacheConfig holds the embedding cache (Redis) settings. Optional:
// with no addrs the cache decorator is skipped.
type CacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"`
}

// Enabled reports whether the cache is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// TraceConfig holds run-trace recorder settings. The trace store reuses
// the ClickHouse connection settings from Backends when its own section
// is empty.
type TraceConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Table      string `yaml:"table"`
	BufferSize int    `yaml:"buffer_size"`
}

// PipelineConfig holds RAG pipeline and batch runner settings.
type PipelineConfig struct {
	MaxArticles int `yaml:"max_articles"`
	MaxWorkers  int `yaml:"max_workers"`
	MaxBatch    int `yaml:"max_batch_size"`
	MaxQueries  int `yaml:"max_queries"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Batch requests fan out to many LLM calls; the write timeout
		// must cover the slowest full batch, not a single call.
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Backends.ClickHouse.Table == "" {
		c.Backends.ClickHouse.Table = "guardian_articles"
	}
	if c.Backends.Postgres.Table == "" {
		c.Backends.Postgres.Table = "articles"
	}
	if c.Backends.Cassandra.Port <= 0 {
		c.Backends.Cassandra.Port = 9042
	}
	if c.Backends.Cassandra.Table == "" {
		c.Backends.Cassandra.Table = "articles"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "anthropic"
	}
	if c.LLM.Anthropic.Model == "" {
		c.LLM.Anthropic.Model = "claude-3-5-sonnet-latest"
	}
	if c.LLM.Anthropic.MaxTokens <= 0 {
		c.LLM.Anthropic.MaxTokens = 1024
	}
	if c.LLM.Anthropic.Temperature <= 0 {
		c.LLM.Anthropic.Temperature = 0.1
	}
	if c.LLM.Anthropic.TimeoutSec <= 0 {
		c.LLM.Anthropic.TimeoutSec = 60
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4o-mini"
	}
	if c.LLM.OpenAI.MaxTokens <= 0 {
		c.LLM.OpenAI.MaxTokens = 1024
	}
	if c.LLM.OpenAI.Temperature <= 0 {
		c.LLM.OpenAI.Temperature = 0.1
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 24 * 3600
	}
	if c.Trace.Table == "" {
		c.Trace.Table = "llm_runs"
	}
	if c.Trace.BufferSize <= 0 {
		c.Trace.BufferSize = 256
	}
	if c.Pipeline.MaxArticles <= 0 {
		c.Pipeline.MaxArticles = 5
	}
	if c.Pipeline.MaxWorkers <= 0 {
		c.Pipeline.MaxWorkers = 10
	}
	if c.Pipeline.MaxBatch <= 0 {
		c.Pipeline.MaxBatch = 100
	}
	if c.Pipeline.MaxQueries <= 0 {
		c.Pipeline.MaxQueries = 50
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if !c.Backends.ClickHouse.Enabled() && !c.Backends.Postgres.Enabled() && !c.Backends.Cassandra.Enabled() {
		return fmt.Errorf("at least one backend must be configured (one of %v)", domain.Backends())
	}
	switch c.LLM.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("llm.provider must be \"anthropic\" or \"openai\", got %q", c.LLM.Provider)
	}
	if c.Trace.Enabled && !c.Backends.ClickHouse.Enabled() {
		return fmt.Errorf("trace.enabled requires the clickhouse backend (traces are stored there)")
	}
	if c.Pipeline.MaxWorkers > 10 {
		return fmt.Errorf("pipeline.max_workers must not exceed 10, got %d", c.Pipeline.MaxWorkers)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
