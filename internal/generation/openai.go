package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIGenerator generates images through the OpenAI Images API (DALL-E 3).
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// OpenAIConfig holds configuration for the OpenAI generation backend.
type OpenAIConfig struct {
	// BaseURL overrides the API endpoint.
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the image model name. Defaults to dall-e-3.
	Model string
}

// NewOpenAIGenerator creates a DALL-E generation client.
func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	var opts []option.RequestOption
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	model := cfg.Model
	if model == "" {
		model = "dall-e-3"
	}

	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Provider returns "openai".
func (g *OpenAIGenerator) Provider() string { return ProviderOpenAI }

// Model returns the image model name.
func (g *OpenAIGenerator) Model() string { return g.model }

var genTracer = otel.Tracer("t2i-redteam/generation")

// Generate requests a 1024x1024 vivid image for the prompt. A
// content-policy block from the moderation layer comes back as a rejected
// Result; every other API failure is a provider error.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (*Result, error) {
	ctx, span := genTracer.Start(ctx, "generate_image "+g.model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "generate_image"),
			attribute.String("gen_ai.provider.name", "openai"),
			attribute.String("gen_ai.request.model", g.model),
		),
	)
	defer span.End()

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:   openai.ImageModel(g.model),
		Prompt:  prompt,
		Size:    openai.ImageGenerateParamsSize1024x1024,
		Quality: openai.ImageGenerateParamsQualityStandard,
		Style:   openai.ImageGenerateParamsStyleVivid,
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) && isModerationCode(apierr.Code) {
			span.SetAttributes(attribute.String("gen_ai.response.finish_reasons", "content_filter"))
			return &Result{Rejected: true, Reason: apierr.Message}, nil
		}
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("openai image generation failed: %w", err)
	}

	if len(resp.Data) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("openai image generation returned no data")
	}

	return &Result{URL: resp.Data[0].URL}, nil
}

// isModerationCode reports whether an OpenAI error code signals a safety
// block rather than an operational fault.
func isModerationCode(code string) bool {
	switch code {
	case "content_policy_violation", "moderation_blocked":
		return true
	default:
		return false
	}
}
