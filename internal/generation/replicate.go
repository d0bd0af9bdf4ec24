package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// replicateBaseURL is the Replicate REST API root.
const replicateBaseURL = "https://api.replicate.com/v1"

// ReplicateGenerator generates images through Replicate-hosted models
// (stability-ai/stable-diffusion-3, black-forest-labs/flux-schnell).
// Requests use the synchronous "Prefer: wait" mode, so a prediction either
// completes or fails within the single HTTP round trip.
type ReplicateGenerator struct {
	httpc    *http.Client
	baseURL  string
	token    string
	provider string
	model    string
	input    map[string]any
}

// ReplicateConfig holds configuration for a Replicate generation backend.
type ReplicateConfig struct {
	// BaseURL overrides the API endpoint (tests).
	BaseURL string
	// APIToken is the Replicate API token.
	APIToken string
	// HTTPClient overrides the HTTP client (tests). Defaults to a client
	// with a generous timeout, since "Prefer: wait" holds the connection
	// open for the whole prediction.
	HTTPClient *http.Client
}

// NewSDGenerator creates a stable-diffusion-3 client.
func NewSDGenerator(cfg ReplicateConfig) *ReplicateGenerator {
	g := newReplicate(cfg)
	g.provider = ProviderSD
	g.model = "stability-ai/stable-diffusion-3"
	g.input = map[string]any{"aspect_ratio": "3:2"}
	return g
}

// NewFluxGenerator creates a flux-schnell client. The cheapest backend,
// handy for dry runs.
func NewFluxGenerator(cfg ReplicateConfig) *ReplicateGenerator {
	g := newReplicate(cfg)
	g.provider = ProviderFlux
	g.model = "black-forest-labs/flux-schnell"
	g.input = map[string]any{}
	return g
}

func newReplicate(cfg ReplicateConfig) *ReplicateGenerator {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 5 * time.Minute}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = replicateBaseURL
	}
	return &ReplicateGenerator{
		httpc:   httpc,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   cfg.APIToken,
	}
}

// Provider returns "sd" or "bfl".
func (g *ReplicateGenerator) Provider() string { return g.provider }

// Model returns the owner/name model identifier.
func (g *ReplicateGenerator) Model() string { return g.model }

type replicatePrediction struct {
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// Generate creates a prediction and waits for it. A failed prediction whose
// error mentions the NSFW/sensitivity filter is a rejection; any other
// failure is a provider error.
func (g *ReplicateGenerator) Generate(ctx context.Context, prompt string) (*Result, error) {
	ctx, span := genTracer.Start(ctx, "generate_image "+g.model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "generate_image"),
			attribute.String("gen_ai.provider.name", "replicate"),
			attribute.String("gen_ai.request.model", g.model),
		),
	)
	defer span.End()

	input := map[string]any{"prompt": prompt}
	for k, v := range g.input {
		input[k] = v
	}
	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("encode replicate request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("replicate request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	resp, err := g.httpc.Do(req)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "transport_error"))
		return nil, fmt.Errorf("replicate call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read replicate response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, fmt.Errorf("replicate returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var pred replicatePrediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return nil, fmt.Errorf("decode replicate response: %w", err)
	}

	if pred.Status != "succeeded" {
		if isSafetyFilterMessage(pred.Error) {
			span.SetAttributes(attribute.String("gen_ai.response.finish_reasons", "content_filter"))
			return &Result{Rejected: true, Reason: pred.Error}, nil
		}
		span.SetAttributes(attribute.String("error.type", "prediction_failed"))
		return nil, fmt.Errorf("replicate prediction %s: %s", pred.Status, pred.Error)
	}

	outputURL, err := firstOutputURL(pred.Output)
	if err != nil {
		return nil, err
	}
	return &Result{URL: outputURL}, nil
}

// firstOutputURL handles the two output shapes Replicate models use:
// a single URL string or an array of URL strings.
func firstOutputURL(output json.RawMessage) (string, error) {
	var single string
	if err := json.Unmarshal(output, &single); err == nil && single != "" {
		return single, nil
	}
	var many []string
	if err := json.Unmarshal(output, &many); err == nil && len(many) > 0 {
		return many[0], nil
	}
	return "", fmt.Errorf("replicate prediction succeeded but produced no output URL")
}

// isSafetyFilterMessage reports whether a prediction error text comes from
// the model's content filter rather than an operational failure.
func isSafetyFilterMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{"nsfw", "sensitive", "flagged", "safety"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
