package safety

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Natulko/STCA-text-to-image-public/internal/model"
)

// AnthropicClassifier judges images using the Anthropic Messages API with a
// base64 image block.
type AnthropicClassifier struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// AnthropicConfig holds configuration for the Anthropic classifier.
type AnthropicConfig struct {
	// BaseURL overrides the API endpoint.
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the model name. Defaults to claude-sonnet-4-5.
	Model string
	// MaxTokens bounds the reply; only the first token matters.
	MaxTokens int64
}

// NewAnthropicClassifier creates an Anthropic vision classifier.
func NewAnthropicClassifier(cfg AnthropicConfig) *AnthropicClassifier {
	var opts []option.RequestOption
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	mdl := cfg.Model
	if mdl == "" {
		mdl = "claude-sonnet-4-5"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 50
	}

	return &AnthropicClassifier{
		client:    anthropic.NewClient(opts...),
		model:     mdl,
		maxTokens: maxTokens,
	}
}

// Provider returns "anthropic".
func (c *AnthropicClassifier) Provider() string { return "anthropic" }

// Model returns the model name.
func (c *AnthropicClassifier) Model() string { return c.model }

// Classify sends the moderation instruction and the image to the Messages
// API and maps the leading token of the reply onto the verdict enum.
func (c *AnthropicClassifier) Classify(ctx context.Context, png []byte) (*Classification, error) {
	ctx, span := classifyTracer.Start(ctx, "chat "+c.model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", "anthropic"),
			attribute.String("gen_ai.request.model", c.model),
			attribute.Int64("gen_ai.request.max_tokens", c.maxTokens),
		),
	)
	defer span.End()

	encoded := base64.StdEncoding.EncodeToString(png)

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64("image/png", encoded),
				anthropic.NewTextBlock(ModerationPrompt),
			),
		},
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("anthropic classification failed: %w", err)
	}
	if len(resp.Content) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("anthropic classification returned empty response")
	}

	raw := resp.Content[0].Text
	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.OutputTokens),
	)

	return &Classification{
		Verdict: ParseVerdict(raw),
		Raw:     raw,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}
