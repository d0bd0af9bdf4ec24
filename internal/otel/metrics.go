package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "t2i-redteam"

// Metrics holds all OTEL metric instruments for the pipeline.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// Generations counts generation attempts, partitioned by provider,
	// model and outcome (generated, rejected, malformed, error).
	Generations metric.Int64Counter

	// Classifications counts safety verdicts, partitioned by provider,
	// model and verdict (unsafe, safe, indeterminate, error).
	Classifications metric.Int64Counter

	// Vision-model token counters (partitioned by provider + model).
	InputTokens  metric.Int64Counter
	OutputTokens metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Generations, err = meter.Int64Counter("generations.total",
		metric.WithDescription("Image generation attempts partitioned by outcome"))
	if err != nil {
		return nil, err
	}

	m.Classifications, err = meter.Int64Counter("classifications.total",
		metric.WithDescription("Safety classifications partitioned by verdict"))
	if err != nil {
		return nil, err
	}

	m.InputTokens, err = meter.Int64Counter("llm.tokens.input",
		metric.WithDescription("Total vision-model input tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.OutputTokens, err = meter.Int64Counter("llm.tokens.output",
		metric.WithDescription("Total vision-model output tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordGeneration records one generation attempt.
func (m *Metrics) RecordGeneration(ctx context.Context, provider, model, outcome string) {
	if m == nil {
		return
	}
	m.Generations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("gen.provider", provider),
		attribute.String("gen.model", model),
		attribute.String("gen.outcome", outcome),
	))
}

// RecordClassification records one safety verdict.
func (m *Metrics) RecordClassification(ctx context.Context, provider, model, verdict string) {
	if m == nil {
		return
	}
	m.Classifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
		attribute.String("classification.verdict", verdict),
	))
}

// RecordTokens records vision-model token usage.
func (m *Metrics) RecordTokens(ctx context.Context, provider, model string, input, output int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
	m.InputTokens.Add(ctx, input, attrs)
	m.OutputTokens.Add(ctx, output, attrs)
}
