// Package config loads engine configuration from config.yaml with
// environment variable overrides. Secrets only come from the
// environment (yaml:"-" fields).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/asksql-labs/asksql-engine/pkg/pipeline"
	"github.com/asksql-labs/asksql-engine/pkg/retry"
)

// Config holds all configuration for the engine.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Log        LogConfig        `yaml:"log"`
	Datasource DatasourceConfig `yaml:"datasource"`
	AI         AIConfig         `yaml:"ai"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	MCP        MCPConfig        `yaml:"mcp"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"` // "json" or "console"
}

// DatasourceConfig names the database queries run against.
type DatasourceConfig struct {
	Dialect  string `yaml:"dialect" env:"DS_DIALECT" env-default:"postgres"` // "postgres" or "mssql"
	Host     string `yaml:"host" env:"DS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DS_PORT" env-default:"0"` // 0 uses the dialect default
	User     string `yaml:"user" env:"DS_USER"`
	Password string `yaml:"-" env:"DS_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DS_DATABASE"`
	SSLMode  string `yaml:"ssl_mode" env:"DS_SSLMODE" env-default:""`
	Encrypt  string `yaml:"encrypt" env:"DS_ENCRYPT" env-default:""` // mssql only
}

// AIConfig points at the completion service.
type AIConfig struct {
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"` // "openai" or "anthropic"
	Endpoint string `yaml:"endpoint" env:"AI_ENDPOINT" env-default:""`       // custom base URL, empty for provider default
	Model    string `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
}

// PipelineConfig bounds the translation loop.
type PipelineConfig struct {
	MaxRows            int  `yaml:"max_rows" env:"PIPELINE_MAX_ROWS" env-default:"1000"`
	RetryBudget        int  `yaml:"retry_budget" env:"PIPELINE_RETRY_BUDGET" env-default:"3"`
	AllowMutations     bool `yaml:"allow_mutations" env:"PIPELINE_ALLOW_MUTATIONS" env-default:"false"`
	StatementTimeoutMs int  `yaml:"statement_timeout_ms" env:"PIPELINE_STATEMENT_TIMEOUT_MS" env-default:"30000"`

	// TransientRetries is the number of in-attempt backoff retries when
	// the completion service is unavailable. Zero makes a transient
	// failure consume a pipeline attempt instead.
	TransientRetries int `yaml:"transient_retries" env:"PIPELINE_TRANSIENT_RETRIES" env-default:"0"`
}

// Options converts the section into pipeline options.
func (c *PipelineConfig) Options() pipeline.Options {
	opts := pipeline.Options{
		MaxRows:          c.MaxRows,
		RetryBudget:      c.RetryBudget,
		AllowMutations:   c.AllowMutations,
		StatementTimeout: time.Duration(c.StatementTimeoutMs) * time.Millisecond,
	}
	if c.TransientRetries > 0 {
		cfg := retry.DefaultConfig()
		cfg.MaxRetries = c.TransientRetries
		opts.TransientRetry = cfg
	}
	return opts
}

// MCPConfig controls the Model Context Protocol surface. Enabled mounts
// the streamable HTTP transport at /mcp; Stdio serves the protocol over
// stdin/stdout instead of running the HTTP server at all.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"false"`
	Stdio   bool `yaml:"stdio" env:"MCP_STDIO" env-default:"false"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml is fine; the environment alone is
// used then. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Datasource.Dialect {
	case "postgres", "mssql":
	default:
		return fmt.Errorf("unsupported datasource dialect %q", c.Datasource.Dialect)
	}
	if c.Pipeline.MaxRows < 1 {
		return fmt.Errorf("pipeline.max_rows must be >= 1")
	}
	if c.Pipeline.RetryBudget < 0 {
		return fmt.Errorf("pipeline.retry_budget must be >= 0")
	}
	return nil
}

// Redacted renders the configuration as YAML for startup logging.
// Secrets never appear: they are yaml:"-" fields and are replaced with
// a marker when set.
func (c *Config) Redacted() string {
	clone := *c
	out, err := yaml.Marshal(&clone)
	if err != nil {
		return fmt.Sprintf("(unrenderable config: %v)", err)
	}

	var markers string
	if c.Datasource.Password != "" {
		markers += "datasource password: [set]\n"
	}
	if c.AI.APIKey != "" {
		markers += "ai api key: [set]\n"
	}
	return string(out) + markers
}
