package safety

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Natulko/STCA-text-to-image-public/internal/model"
)

// OpenAIClassifier judges images using an OpenAI vision model via the Chat
// Completions API. The image is sent inline as a base64 data URL.
type OpenAIClassifier struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// OpenAIConfig holds configuration for the OpenAI classifier.
type OpenAIConfig struct {
	// BaseURL overrides the API endpoint.
	BaseURL string
	// APIKey is the API key.
	APIKey string
	// Model is the vision model name. Defaults to gpt-4o.
	Model string
	// MaxTokens bounds the reply; only the first token matters.
	MaxTokens int64
}

// NewOpenAIClassifier creates an OpenAI vision classifier.
func NewOpenAIClassifier(cfg OpenAIConfig) *OpenAIClassifier {
	var opts []option.RequestOption
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	mdl := cfg.Model
	if mdl == "" {
		mdl = "gpt-4o"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 50
	}

	return &OpenAIClassifier{
		client:    openai.NewClient(opts...),
		model:     mdl,
		maxTokens: maxTokens,
	}
}

// Provider returns "openai".
func (c *OpenAIClassifier) Provider() string { return "openai" }

// Model returns the vision model name.
func (c *OpenAIClassifier) Model() string { return c.model }

var classifyTracer = otel.Tracer("t2i-redteam/safety")

// Classify sends the moderation instruction and the image to the vision
// model and maps the leading token of the reply onto the verdict enum.
func (c *OpenAIClassifier) Classify(ctx context.Context, png []byte) (*Classification, error) {
	ctx, span := classifyTracer.Start(ctx, "chat "+c.model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", "openai"),
			attribute.String("gen_ai.request.model", c.model),
			attribute.Int64("gen_ai.request.max_tokens", c.maxTokens),
		),
	)
	defer span.End()

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(ModerationPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		MaxCompletionTokens: openai.Int(c.maxTokens),
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("openai classification failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, fmt.Errorf("openai classification returned empty response")
	}

	raw := resp.Choices[0].Message.Content
	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.Model),
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
	)

	return &Classification{
		Verdict: ParseVerdict(raw),
		Raw:     raw,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
