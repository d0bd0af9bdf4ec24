package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Natulko/STCA-text-to-image-public/internal/config"
	"github.com/Natulko/STCA-text-to-image-public/internal/experiment"
	"github.com/Natulko/STCA-text-to-image-public/internal/generation"
	telem "github.com/Natulko/STCA-text-to-image-public/internal/otel"
	"github.com/Natulko/STCA-text-to-image-public/internal/safety"
)

// Version is injected by the linker at release time.
var Version = "dev"

var (
	// Global flags.
	flagClassifier      string
	flagClassifierModel string
)

var rootCmd = &cobra.Command{
	Use:   "t2i-redteam",
	Short: "Red-team image-generation providers for content-safety behavior",
	Long: `t2i-redteam feeds adversarial and softened prompt variants to
image-generation providers, classifies every generated image with a vision
model, and reports how each provider's moderation held up: hard punts
(generation refused), soft punts (generated but benign), and jailbreaks
(generated and unsafe).

API keys are read from the environment or a .env file (OPENAI_API_KEY,
ANTHROPIC_API_KEY, GEMINI_API_KEY, REPLICATE_API_TOKEN).`,
}

// Execute runs the root command.
func Execute() {
	// Credentials commonly live in a .env next to the prompt data.
	_ = godotenv.Load()
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagClassifier, "classifier", "",
		"safety classifier backend: openai, anthropic (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagClassifierModel, "classifier-model", "",
		"vision model for the safety classifier (default: gpt-4o / claude-sonnet-4-5)")
}

// loadConfig resolves the effective configuration, with flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagClassifier != "" {
		cfg.Classifier = flagClassifier
	}
	if flagClassifierModel != "" {
		cfg.ClassifierModel = flagClassifierModel
	}
	return cfg, nil
}

// getGenerator builds the generation client for a provider name.
func getGenerator(ctx context.Context, cfg *config.Config, name string) (generation.Generator, error) {
	switch name {
	case generation.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("no OpenAI API key found. Set OPENAI_API_KEY")
		}
		return generation.NewOpenAIGenerator(generation.OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
		}), nil
	case generation.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("no Gemini API key found. Set GEMINI_API_KEY or GOOGLE_API_KEY")
		}
		return generation.NewGeminiGenerator(ctx, generation.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
		})
	case generation.ProviderSD:
		if cfg.ReplicateAPIToken == "" {
			return nil, fmt.Errorf("no Replicate API token found. Set REPLICATE_API_TOKEN")
		}
		return generation.NewSDGenerator(generation.ReplicateConfig{APIToken: cfg.ReplicateAPIToken}), nil
	case generation.ProviderFlux:
		if cfg.ReplicateAPIToken == "" {
			return nil, fmt.Errorf("no Replicate API token found. Set REPLICATE_API_TOKEN")
		}
		return generation.NewFluxGenerator(generation.ReplicateConfig{APIToken: cfg.ReplicateAPIToken}), nil
	default:
		return nil, generation.ErrUnknownProvider(name)
	}
}

// getClassifier builds the configured safety classifier.
func getClassifier(cfg *config.Config) (safety.Classifier, error) {
	switch cfg.Classifier {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("no OpenAI API key found. Set OPENAI_API_KEY")
		}
		return safety.NewOpenAIClassifier(safety.OpenAIConfig{
			BaseURL:   cfg.OpenAIBaseURL,
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.ClassifierModel,
			MaxTokens: cfg.MaxTokens,
		}), nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("no Anthropic API key found. Set ANTHROPIC_API_KEY")
		}
		return safety.NewAnthropicClassifier(safety.AnthropicConfig{
			BaseURL:   cfg.AnthropicBaseURL,
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.ClassifierModel,
			MaxTokens: cfg.MaxTokens,
		}), nil
	default:
		return nil, fmt.Errorf("unknown classifier %q (supported: openai, anthropic)", cfg.Classifier)
	}
}

// getProviders builds the provider set for an experiment run.
func getProviders(ctx context.Context, cfg *config.Config, names []string) ([]experiment.Provider, error) {
	providers := make([]experiment.Provider, 0, len(names))
	for _, name := range names {
		gen, err := getGenerator(ctx, cfg, name)
		if err != nil {
			return nil, err
		}
		providers = append(providers, experiment.Provider{
			Name:       name,
			PrettyName: generation.PrettyName(name),
			Generator:  gen,
		})
	}
	return providers, nil
}

// initTelemetry initializes OTEL; a no-op Telemetry when no endpoint is set.
func initTelemetry(ctx context.Context, cfg *config.Config) *telem.Telemetry {
	telem.Version = Version
	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: otel init failed: %v\n", err)
		return nil
	}
	return tel
}
