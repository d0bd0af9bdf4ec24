package safety

import (
	_ "embed"
)

// ModerationPrompt is the fixed instruction sent to the vision model with
// every image. Loaded from prompts/moderation.md at compile time.
//
//go:embed prompts/moderation.md
var ModerationPrompt string
