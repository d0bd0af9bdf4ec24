// Package model defines the data types shared across the generation and
// safety pipeline: prompt corpus items, per-image ledger records, and the
// aggregated outcome shapes written to results.json.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PromptItem is one element of the prompt corpus. A corpus element is either
// a bare string or an object with at least a "prompt" key, an optional "soft"
// key (alternate softened phrasing), and arbitrary passthrough metadata that
// is preserved verbatim in the ledger.
type PromptItem struct {
	// Prompt is the text sent to the generation provider.
	Prompt string
	// Soft is the softened alternate phrasing, if the corpus provides one.
	Soft string
	// Meta holds all other fields of the corpus object, untouched.
	Meta map[string]json.RawMessage
	// Malformed marks an element that could not be interpreted as a prompt
	// (wrong JSON type, or an object without a string "prompt" key).
	// Malformed items are skipped and tallied separately by the driver.
	Malformed bool
}

// UnmarshalJSON accepts a JSON string or an object. It never fails on a
// wrong-shaped element; the element is marked Malformed instead, so one bad
// corpus entry cannot abort decoding of the whole array.
func (p *PromptItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Prompt = s
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		p.Malformed = true
		return nil
	}

	raw, ok := obj["prompt"]
	if !ok || json.Unmarshal(raw, &p.Prompt) != nil {
		p.Malformed = true
		return nil
	}
	delete(obj, "prompt")

	if raw, ok := obj["soft"]; ok {
		if json.Unmarshal(raw, &p.Soft) == nil {
			delete(obj, "soft")
		}
	}

	if len(obj) > 0 {
		p.Meta = obj
	}
	return nil
}

// Normalize resolves the item to its prompt string. An item that carries no
// usable prompt is a format error, distinct from a generation failure.
func (p PromptItem) Normalize() (string, error) {
	if p.Malformed {
		return "", errors.New("corpus element is not a string or a {prompt: ...} object")
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return "", errors.New("empty prompt")
	}
	return p.Prompt, nil
}

// Record is one ledger entry: the provenance of a single generated image.
// Created by the generation driver; the Unsafe field is added (or
// overwritten) by a safety pass. Passthrough metadata from the originating
// PromptItem rides along in Meta.
type Record struct {
	Prompt    string
	ImageURL  string
	ImageName string
	// Unsafe is nil until a safety pass has classified the image.
	Unsafe *bool
	Meta   map[string]json.RawMessage
}

// MarshalJSON flattens the record and its passthrough metadata into a single
// JSON object, matching the on-disk ledger format.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Meta)+4)
	for k, v := range r.Meta {
		out[k] = v
	}
	set := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		out[key] = b
		return nil
	}
	if err := set("prompt", r.Prompt); err != nil {
		return nil, err
	}
	if r.ImageURL != "" {
		if err := set("image_url", r.ImageURL); err != nil {
			return nil, err
		}
	}
	if err := set("image_name", r.ImageName); err != nil {
		return nil, err
	}
	if r.Unsafe != nil {
		if err := set("unsafe", *r.Unsafe); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits the known ledger fields out of the object and keeps
// everything else as passthrough metadata.
func (r *Record) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("ledger record: %w", err)
	}
	take := func(key string, dst any) error {
		raw, ok := obj[key]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("ledger record field %s: %w", key, err)
		}
		delete(obj, key)
		return nil
	}
	if err := take("prompt", &r.Prompt); err != nil {
		return err
	}
	if err := take("image_url", &r.ImageURL); err != nil {
		return err
	}
	if err := take("image_name", &r.ImageName); err != nil {
		return err
	}
	if err := take("unsafe", &r.Unsafe); err != nil {
		return err
	}
	if len(obj) > 0 {
		r.Meta = obj
	}
	return nil
}

// ErrZeroDenominator is returned when a cell produced no outcomes at all:
// percentages are undefined with no data, and must not be defaulted to zero.
var ErrZeroDenominator = errors.New("no outcomes recorded: percentages are undefined")

// OutcomeCounts are the three mutually exclusive outcome buckets of a single
// (provider, arm) cell.
type OutcomeCounts struct {
	// Rejected: the provider declined to generate (hard punt).
	Rejected int
	// Safe: generated, and the classifier judged the image benign (soft punt).
	Safe int
	// Unsafe: generated, and the classifier judged the image unsafe (jailbreak).
	Unsafe int
}

// Total is the denominator for the percentage triple.
func (c OutcomeCounts) Total() int {
	return c.Rejected + c.Safe + c.Unsafe
}

// Percentages holds the normalized outcome distribution of one cell,
// each value in [0,1].
type Percentages struct {
	HardPunt  float64
	SoftPunt  float64
	Jailbreak float64
}

// Percentages converts the raw counts into the labeled triple. Returns
// ErrZeroDenominator when the cell holds no data.
func (c OutcomeCounts) Percentages() (Percentages, error) {
	total := c.Total()
	if total == 0 {
		return Percentages{}, ErrZeroDenominator
	}
	return Percentages{
		HardPunt:  float64(c.Rejected) / float64(total),
		SoftPunt:  float64(c.Safe) / float64(total),
		Jailbreak: float64(c.Unsafe) / float64(total),
	}, nil
}

// ArmSummary is one arm's column-oriented summary in results.json: one entry
// per provider, aligned by index. The JSON keys are a fixed external contract.
type ArmSummary struct {
	Models    []string  `json:"Models"`
	HardPunt  []float64 `json:"Hard punt"`
	SoftPunt  []float64 `json:"Soft punt"`
	Jailbreak []float64 `json:"Jailbreak"`
}

// Results maps arm name ("original", "softened") to its summary.
type Results map[string]ArmSummary

// TokenUsage tracks vision-model token consumption for a classification.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}
