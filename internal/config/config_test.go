package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// clearEnv blanks every variable Load consults so tests are hermetic.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"T2I_REDTEAM_PROVIDERS", "T2I_REDTEAM_CLASSIFIER", "T2I_REDTEAM_CLASSIFIER_MODEL",
		"T2I_REDTEAM_DATA_DIR", "T2I_REDTEAM_RESULTS_DIR",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "ANTHROPIC_API_KEY",
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "REPLICATE_API_TOKEN",
	} {
		t.Setenv(key, "")
	}
	// Keep the home-directory config out of reach.
	t.Setenv("HOME", t.TempDir())
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if !reflect.DeepEqual(cfg.Providers, []string{"openai"}) {
		t.Errorf("Providers = %v", cfg.Providers)
	}
	if cfg.Classifier != "openai" {
		t.Errorf("Classifier = %q", cfg.Classifier)
	}
	if cfg.MaxTokens != 50 {
		t.Errorf("MaxTokens = %d", cfg.MaxTokens)
	}
	if cfg.ResultsDir != filepath.Join("results", "experiment") {
		t.Errorf("ResultsDir = %q", cfg.ResultsDir)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	yaml := `
providers: [openai, gemini]
classifier: anthropic
max_tokens: 80
results_dir: out
`
	if err := os.WriteFile(".t2i-redteam.yaml", []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.Providers, []string{"openai", "gemini"}) {
		t.Errorf("Providers = %v", cfg.Providers)
	}
	if cfg.Classifier != "anthropic" || cfg.MaxTokens != 80 || cfg.ResultsDir != "out" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.ConfigFile != ".t2i-redteam.yaml" {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
	// Untouched keys keep their defaults.
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	if err := os.WriteFile(".t2i-redteam.yaml", []byte("classifier: anthropic\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("T2I_REDTEAM_CLASSIFIER", "openai")
	t.Setenv("T2I_REDTEAM_PROVIDERS", "sd, bfl")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Classifier != "openai" {
		t.Errorf("env did not win over file: Classifier = %q", cfg.Classifier)
	}
	if !reflect.DeepEqual(cfg.Providers, []string{"sd", "bfl"}) {
		t.Errorf("Providers = %v", cfg.Providers)
	}
	if cfg.OpenAIAPIKey != "sk-test" {
		t.Errorf("OpenAIAPIKey = %q", cfg.OpenAIAPIKey)
	}
}

func TestLoad_GoogleKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	t.Setenv("GOOGLE_API_KEY", "goog-key")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GeminiAPIKey != "goog-key" {
		t.Errorf("GOOGLE_API_KEY fallback not applied: %q", cfg.GeminiAPIKey)
	}

	// GEMINI_API_KEY takes precedence when both are set.
	t.Setenv("GEMINI_API_KEY", "gem-key")
	cfg, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GeminiAPIKey != "gem-key" {
		t.Errorf("GEMINI_API_KEY did not win: %q", cfg.GeminiAPIKey)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"openai", []string{"openai"}},
		{"openai, gemini ,sd", []string{"openai", "gemini", "sd"}},
		{" , ,", nil},
	}
	for _, tt := range tests {
		if got := splitList(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
