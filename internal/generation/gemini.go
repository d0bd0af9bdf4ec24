package generation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// GeminiGenerator generates images through the Gemini API (Imagen).
// Unlike the other backends it returns image bytes inline, so the driver
// never needs to download anything for it.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// GeminiConfig holds configuration for the Gemini generation backend.
type GeminiConfig struct {
	// APIKey is the Gemini API key.
	APIKey string
	// Model is the Imagen model name. Defaults to imagen-3.0-generate-002.
	Model string
}

// NewGeminiGenerator creates an Imagen generation client.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "imagen-3.0-generate-002"
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

// Provider returns "gemini".
func (g *GeminiGenerator) Provider() string { return ProviderGemini }

// Model returns the Imagen model name.
func (g *GeminiGenerator) Model() string { return g.model }

// Generate requests a single image. Imagen signals a safety block by
// filtering the candidate: either the response carries no images, or the
// candidate carries an RAI filter reason instead of bytes.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (*Result, error) {
	ctx, span := genTracer.Start(ctx, "generate_image "+g.model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "generate_image"),
			attribute.String("gen_ai.provider.name", "gcp.gemini"),
			attribute.String("gen_ai.request.model", g.model),
		),
	)
	defer span.End()

	resp, err := g.client.Models.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages:   1,
		IncludeRAIReason: true,
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("gemini image generation failed: %w", err)
	}

	if len(resp.GeneratedImages) == 0 {
		span.SetAttributes(attribute.String("gen_ai.response.finish_reasons", "content_filter"))
		return &Result{Rejected: true, Reason: "all candidates filtered"}, nil
	}

	img := resp.GeneratedImages[0]
	if img.RAIFilteredReason != "" || img.Image == nil || len(img.Image.ImageBytes) == 0 {
		span.SetAttributes(attribute.String("gen_ai.response.finish_reasons", "content_filter"))
		return &Result{Rejected: true, Reason: img.RAIFilteredReason}, nil
	}

	return &Result{Bytes: img.Image.ImageBytes}, nil
}
