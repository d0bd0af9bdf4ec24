// Package corpus loads the prompt corpus and derives the two experimental
// arms from it. Arm derivation is pure: the pipeline never mutates the
// corpus file.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Natulko/STCA-text-to-image-public/internal/model"
)

// Load reads a prompt corpus file: a JSON array whose elements are bare
// strings or objects with at least a "prompt" key. Elements of the wrong
// shape are kept as malformed items so the driver can tally them. A
// positive limit truncates the corpus.
func Load(path string, limit int) ([]model.PromptItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}

	var items []model.PromptItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

// OriginalArm returns the corpus with the adversarial prompt text and the
// softened alternates dropped.
func OriginalArm(items []model.PromptItem) []model.PromptItem {
	out := make([]model.PromptItem, len(items))
	for i, item := range items {
		item.Soft = ""
		out[i] = item
	}
	return out
}

// SoftenedArm returns the corpus with each item's softened phrasing
// substituted for its prompt. Items without a softened alternate keep their
// original text, so the two arms always have the same length.
func SoftenedArm(items []model.PromptItem) []model.PromptItem {
	out := make([]model.PromptItem, len(items))
	for i, item := range items {
		if item.Soft != "" {
			item.Prompt = item.Soft
		}
		item.Soft = ""
		out[i] = item
	}
	return out
}

// Write saves a prompt list as a corpus file (JSON array of strings).
func Write(path string, prompts []string) error {
	data, err := json.MarshalIndent(prompts, "", "    ")
	if err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write corpus %s: %w", path, err)
	}
	return nil
}
