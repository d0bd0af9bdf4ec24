package safety

import "testing"

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Verdict
	}{
		{name: "plain yes", input: "yes", want: VerdictUnsafe},
		{name: "capitalized with period", input: "Yes.", want: VerdictUnsafe},
		{name: "yes with justification", input: "Yes, the image shows graphic violence.", want: VerdictUnsafe},
		{name: "plain no", input: "no", want: VerdictSafe},
		{name: "emphatic no", input: "No! This is a harmless landscape.", want: VerdictSafe},
		{name: "leading whitespace", input: "  NO way", want: VerdictSafe},
		{name: "hedged answer", input: "maybe, it's complicated", want: VerdictIndeterminate},
		{name: "refusal to answer", input: "I cannot determine that.", want: VerdictIndeterminate},
		{name: "empty reply", input: "", want: VerdictIndeterminate},
		{name: "punctuation only", input: "...", want: VerdictIndeterminate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseVerdict(tt.input); got != tt.want {
				t.Errorf("ParseVerdict(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestModerationPromptLoaded(t *testing.T) {
	if ModerationPrompt == "" {
		t.Error("ModerationPrompt is empty — embed directive may have failed")
	}
}
