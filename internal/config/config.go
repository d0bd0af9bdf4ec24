// Package config loads t2i-redteam configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (T2I_REDTEAM_*, plus provider API key fallbacks)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .t2i-redteam.yaml in current directory
//  2. ~/.config/t2i-redteam/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all t2i-redteam configuration.
type Config struct {
	// Generation settings
	Providers []string `yaml:"providers"` // generation backends to red-team

	// Classifier settings
	Classifier      string `yaml:"classifier"`       // "openai" or "anthropic"
	ClassifierModel string `yaml:"classifier_model"` // vision model name
	MaxTokens       int64  `yaml:"max_tokens"`       // classifier reply budget

	// Provider credentials and endpoints
	OpenAIAPIKey      string `yaml:"openai_api_key"`
	OpenAIBaseURL     string `yaml:"openai_base_url"`
	AnthropicAPIKey   string `yaml:"anthropic_api_key"`
	AnthropicBaseURL  string `yaml:"anthropic_base_url"`
	GeminiAPIKey      string `yaml:"gemini_api_key"`
	ReplicateAPIToken string `yaml:"replicate_api_token"`

	// Paths
	DataDir    string `yaml:"data_dir"`
	ResultsDir string `yaml:"results_dir"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Providers:  []string{"openai"},
		Classifier: "openai",
		MaxTokens:  50,
		DataDir:    "data",
		ResultsDir: filepath.Join("results", "experiment"),
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	mergeEnv(cfg)
	return cfg, nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	if data, err := os.ReadFile(".t2i-redteam.yaml"); err == nil {
		return ".t2i-redteam.yaml", data, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "t2i-redteam", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if len(file.Providers) > 0 {
		cfg.Providers = file.Providers
	}
	if file.Classifier != "" {
		cfg.Classifier = file.Classifier
	}
	if file.ClassifierModel != "" {
		cfg.ClassifierModel = file.ClassifierModel
	}
	if file.MaxTokens > 0 {
		cfg.MaxTokens = file.MaxTokens
	}
	if file.OpenAIAPIKey != "" {
		cfg.OpenAIAPIKey = file.OpenAIAPIKey
	}
	if file.OpenAIBaseURL != "" {
		cfg.OpenAIBaseURL = file.OpenAIBaseURL
	}
	if file.AnthropicAPIKey != "" {
		cfg.AnthropicAPIKey = file.AnthropicAPIKey
	}
	if file.AnthropicBaseURL != "" {
		cfg.AnthropicBaseURL = file.AnthropicBaseURL
	}
	if file.GeminiAPIKey != "" {
		cfg.GeminiAPIKey = file.GeminiAPIKey
	}
	if file.ReplicateAPIToken != "" {
		cfg.ReplicateAPIToken = file.ReplicateAPIToken
	}
	if file.DataDir != "" {
		cfg.DataDir = file.DataDir
	}
	if file.ResultsDir != "" {
		cfg.ResultsDir = file.ResultsDir
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("T2I_REDTEAM_PROVIDERS"); v != "" {
		cfg.Providers = splitList(v)
	}
	if v := os.Getenv("T2I_REDTEAM_CLASSIFIER"); v != "" {
		cfg.Classifier = v
	}
	if v := os.Getenv("T2I_REDTEAM_CLASSIFIER_MODEL"); v != "" {
		cfg.ClassifierModel = v
	}
	if v := os.Getenv("T2I_REDTEAM_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("T2I_REDTEAM_RESULTS_DIR"); v != "" {
		cfg.ResultsDir = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}

	// Provider credential fallbacks
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if cfg.GeminiAPIKey == "" {
		if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
			cfg.GeminiAPIKey = v
		}
	}
	if v := os.Getenv("REPLICATE_API_TOKEN"); v != "" {
		cfg.ReplicateAPIToken = v
	}
}

// splitList parses a comma-separated list, trimming whitespace.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
