package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/faucetdb/driftguard/internal/callsite"
	"github.com/faucetdb/driftguard/internal/engine"
	"github.com/faucetdb/driftguard/internal/naming"
	"github.com/faucetdb/driftguard/internal/similarity"
	"github.com/faucetdb/driftguard/internal/source"
)

// DefaultFileName is the configuration file looked up in the working directory.
const DefaultFileName = "driftguard.yaml"

// YAMLConfig represents the top-level driftguard configuration file.
type YAMLConfig struct {
	Inputs      InputsConfig        `yaml:"inputs"`
	Naming      naming.Rules        `yaml:"naming"`
	Matching    MatchingConfig      `yaml:"matching"`
	Recognizers callsite.Vocabulary `yaml:"recognizers"`
	Engine      EngineConfig        `yaml:"engine"`
	Server      ServerConfig        `yaml:"server"`
	Store       StoreConfig         `yaml:"store"`
	Logging     LoggingConfig       `yaml:"logging"`
}

// InputsConfig lists the default paths of each input kind. Flags override it.
type InputsConfig struct {
	Schema     []string `yaml:"schema"`
	Procedures []string `yaml:"procedures"`
	Handlers   []string `yaml:"handlers"`
	Routes     []string `yaml:"routes"`
	// Service names a registered database used as the live schema source.
	Service string `yaml:"service"`
}

// MatchingConfig tunes name similarity suggestions.
type MatchingConfig struct {
	Threshold      float64 `yaml:"threshold"`
	MaxSuggestions int     `yaml:"max_suggestions"`
}

// EngineConfig controls parsing.
type EngineConfig struct {
	// Schemas lists the schema qualifiers whose tables are kept.
	Schemas     []string `yaml:"schemas"`
	Concurrency int      `yaml:"concurrency"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Host            string     `yaml:"host"`
	Port            int        `yaml:"port"`
	MaxBodySize     string     `yaml:"max_body_size"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	// Root confines request paths; relative paths resolve against it.
	Root      string     `yaml:"root"`
	JWTSecret string     `yaml:"jwt_secret"`
	JWTExpiry string     `yaml:"jwt_expiry"`
	CORS      CORSConfig `yaml:"cors"`
	RateLimit int        `yaml:"rate_limit"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
	Methods []string `yaml:"methods"`
}

// StoreConfig locates the state database. An empty DataDir keeps state in memory.
type StoreConfig struct {
	DataDir string `yaml:"data_dir"`
	Project string `yaml:"project"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file on top of the
// defaults. Environment variables referenced as ${VAR_NAME} in the file are
// expanded before parsing.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseYAMLConfig(data)
}

// ParseYAMLConfig parses configuration bytes on top of the defaults.
func ParseYAMLConfig(data []byte) (*YAMLConfig, error) {
	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	// Recognizers merge field by field, so they are decoded apart from the rest.
	cfg.Recognizers = callsite.Vocabulary{}
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.Recognizers = callsite.DefaultVocabulary().Merge(cfg.Recognizers)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot work with.
func (c *YAMLConfig) Validate() error {
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 1 {
		return fmt.Errorf("matching.threshold must be between 0 and 1, got %v", c.Matching.Threshold)
	}
	if c.Matching.MaxSuggestions < 0 {
		return fmt.Errorf("matching.max_suggestions must not be negative")
	}
	if c.Engine.Concurrency < 0 {
		return fmt.Errorf("engine.concurrency must not be negative")
	}
	if _, err := c.Server.BodyLimit(); err != nil {
		return err
	}
	for _, d := range []string{c.Server.ShutdownTimeout, c.Server.JWTExpiry} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid duration %q: %w", d, err)
		}
	}
	return nil
}

// BodyLimit parses MaxBodySize ("512KB", "1MB", "1 MiB"). Empty means no
// limit.
func (s ServerConfig) BodyLimit() (int64, error) {
	if s.MaxBodySize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s.MaxBodySize)
	if err != nil {
		return 0, fmt.Errorf("invalid server.max_body_size %q: %w", s.MaxBodySize, err)
	}
	return int64(n), nil
}

// Shutdown returns the graceful shutdown timeout, or fallback when unset.
func (s ServerConfig) Shutdown(fallback time.Duration) time.Duration {
	return durationOr(s.ShutdownTimeout, fallback)
}

// TokenTTL returns the lifetime of issued tokens, or fallback when unset.
func (s ServerConfig) TokenTTL(fallback time.Duration) time.Duration {
	return durationOr(s.JWTExpiry, fallback)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}

// EngineOptions converts the configuration into engine options.
func (c *YAMLConfig) EngineOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.Schemas = c.Engine.Schemas
	if c.Engine.Concurrency > 0 {
		opts.Concurrency = c.Engine.Concurrency
	}
	opts.Vocabulary = c.Recognizers
	opts.Rules = c.Naming
	opts.Threshold = c.Matching.Threshold
	opts.MaxSuggestions = c.Matching.MaxSuggestions
	return opts
}

// EngineInputs returns the configured input paths.
func (c *YAMLConfig) EngineInputs() engine.Inputs {
	return engine.Inputs{
		Schema:     c.Inputs.Schema,
		Procedures: c.Inputs.Procedures,
		Handlers:   c.Inputs.Handlers,
		Routes:     c.Inputs.Routes,
	}
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Inputs: InputsConfig{
			Schema:   []string{"schema"},
			Handlers: []string{"handlers"},
		},
		Naming: naming.DefaultRules(),
		Matching: MatchingConfig{
			Threshold:      similarity.DefaultThreshold,
			MaxSuggestions: 3,
		},
		Recognizers: callsite.DefaultVocabulary(),
		Engine: EngineConfig{
			Schemas:     []string{"public"},
			Concurrency: source.DefaultConcurrency,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8484,
			MaxBodySize:     "1MB",
			ShutdownTimeout: "15s",
			JWTExpiry:       "24h",
			CORS: CORSConfig{
				Origins: []string{"*"},
				Methods: []string{"GET", "POST"},
			},
			RateLimit: 120,
		},
		Store: StoreConfig{
			Project: "default",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	data, err := yaml.Marshal(DefaultYAMLConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
