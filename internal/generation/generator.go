// Package generation wraps the text-to-image provider backends behind one
// capability contract and drives prompt batches against them.
//
// A provider moderation block is an expected outcome, not an error: it comes
// back as a Result with Rejected set. Errors are reserved for transport and
// provider faults, which must abort the batch instead of polluting the
// rejection statistics.
package generation

import (
	"context"
	"fmt"
)

// Result is the outcome of a single generation request.
type Result struct {
	// Rejected is true when the provider's safety layer declined the prompt.
	Rejected bool
	// Reason carries the provider's refusal detail when Rejected.
	Reason string
	// URL is set when the provider returns a hosted image.
	URL string
	// Bytes is set when the provider returns the image inline.
	Bytes []byte
}

// Generator produces one image per prompt against a concrete provider.
type Generator interface {
	// Generate requests an image for the prompt. A moderation block is
	// reported via Result.Rejected; any returned error is a transport or
	// provider fault.
	Generate(ctx context.Context, prompt string) (*Result, error)

	// Provider returns the backend name (e.g. "openai", "gemini", "sd", "bfl").
	Provider() string

	// Model returns the model identifier used for generation.
	Model() string
}

// Provider names of the supported backends.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderSD     = "sd"
	ProviderFlux   = "bfl"
)

// PrettyName returns the display name used in results and charts.
func PrettyName(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "DALL-E 3"
	case ProviderGemini:
		return "Imagen 3"
	case ProviderSD:
		return "SD3"
	case ProviderFlux:
		return "Flux schnell"
	default:
		return provider
	}
}

// ErrUnknownProvider reports an unsupported provider name.
func ErrUnknownProvider(name string) error {
	return fmt.Errorf("unknown generation provider %q (supported: %s, %s, %s, %s)",
		name, ProviderOpenAI, ProviderGemini, ProviderSD, ProviderFlux)
}
