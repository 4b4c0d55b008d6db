package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultOracleTimeout      = 60 * time.Second
	DefaultOracleMaxRetries   = 2
	DefaultMinPlotLength      = 50
	DefaultMaxParagraphs      = 10
	DefaultRetention          = 7 * 24 * time.Hour
	DefaultVerificationPolicy = "fail-open"
	DefaultAPIKeyEnvGemini    = "GEMINI_API_KEY"
	DefaultAPIKeyEnvOpenAI    = "OPENAI_API_KEY"
)

type ProjectConfig struct {
	Project  string         `yaml:"project"`
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Story    StoryConfig    `yaml:"story"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
	// Name is the mongodb database. SQL backends take it from the DSN.
	Name string `yaml:"name"`
}

type OracleConfig struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries *int          `yaml:"max_retries"`
}

type StoryConfig struct {
	MinPlotLength         int           `yaml:"min_plot_length"`
	MaxParagraphs         *int          `yaml:"max_paragraphs"`
	Retention             time.Duration `yaml:"retention"`
	VerificationPolicy    string        `yaml:"verification_policy"`
	RegenerateAfterAccept *bool         `yaml:"regenerate_after_accept"`
	Templates             string        `yaml:"templates"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.Oracle.Provider == "" {
		cfg.Oracle.Provider = "gemini"
	}
	if cfg.Oracle.APIKeyEnv == "" {
		switch cfg.Oracle.Provider {
		case "openai":
			cfg.Oracle.APIKeyEnv = DefaultAPIKeyEnvOpenAI
		default:
			cfg.Oracle.APIKeyEnv = DefaultAPIKeyEnvGemini
		}
	}
	if cfg.Oracle.Timeout == 0 {
		cfg.Oracle.Timeout = DefaultOracleTimeout
	}
	if cfg.Oracle.MaxRetries == nil {
		n := DefaultOracleMaxRetries
		cfg.Oracle.MaxRetries = &n
	}
	if cfg.Story.MinPlotLength == 0 {
		cfg.Story.MinPlotLength = DefaultMinPlotLength
	}
	if cfg.Story.MaxParagraphs == nil {
		n := DefaultMaxParagraphs
		cfg.Story.MaxParagraphs = &n
	}
	if cfg.Story.Retention == 0 {
		cfg.Story.Retention = DefaultRetention
	}
	if cfg.Story.VerificationPolicy == "" {
		cfg.Story.VerificationPolicy = DefaultVerificationPolicy
	}
	if cfg.Story.RegenerateAfterAccept == nil {
		regenerate := true
		cfg.Story.RegenerateAfterAccept = &regenerate
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	if _, err := StoreKind(cfg.Database.DSN); err != nil {
		return err
	}

	switch cfg.Oracle.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unsupported oracle provider: %s", cfg.Oracle.Provider)
	}
	if cfg.Oracle.Timeout < 0 {
		return fmt.Errorf("oracle timeout must not be negative")
	}
	if *cfg.Oracle.MaxRetries < 0 {
		return fmt.Errorf("oracle max_retries must not be negative")
	}

	if cfg.Story.MinPlotLength < 0 {
		return fmt.Errorf("story min_plot_length must not be negative")
	}
	if *cfg.Story.MaxParagraphs < 0 {
		return fmt.Errorf("story max_paragraphs must not be negative")
	}
	if cfg.Story.Retention < 0 {
		return fmt.Errorf("story retention must not be negative")
	}
	switch cfg.Story.VerificationPolicy {
	case "fail-open", "fail-closed":
	default:
		return fmt.Errorf("unsupported verification policy: %s", cfg.Story.VerificationPolicy)
	}

	return nil
}

// StoreKind maps a DSN scheme to a backend name: memory, sqlite, postgres
// or mongo.
func StoreKind(dsn string) (string, error) {
	scheme, _, ok := strings.Cut(dsn, "://")
	if !ok {
		return "", fmt.Errorf("database dsn has no scheme: %q", dsn)
	}
	switch strings.ToLower(scheme) {
	case "memory":
		return "memory", nil
	case "sqlite":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mongodb", "mongodb+srv":
		return "mongo", nil
	default:
		return "", fmt.Errorf("unsupported database scheme: %s", scheme)
	}
}

// APIKey reads the oracle key from the configured environment variable.
func (c OracleConfig) APIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(c.APIKeyEnv))
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", c.APIKeyEnv)
	}
	return key, nil
}
