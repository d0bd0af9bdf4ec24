package experiment

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Natulko/STCA-text-to-image-public/internal/generation"
	"github.com/Natulko/STCA-text-to-image-public/internal/model"
	"github.com/Natulko/STCA-text-to-image-public/internal/safety"
)

// rejectingGenerator rejects configured prompts and generates inline bytes
// for everything else.
type rejectingGenerator struct {
	reject map[string]bool
}

func (g *rejectingGenerator) Generate(_ context.Context, prompt string) (*generation.Result, error) {
	if g.reject[prompt] {
		return &generation.Result{Rejected: true, Reason: "moderation block"}, nil
	}
	return &generation.Result{Bytes: []byte("png:" + prompt)}, nil
}

func (g *rejectingGenerator) Provider() string { return "stub" }
func (g *rejectingGenerator) Model() string    { return "stub-1" }

// allSafeClassifier answers "no" for every image.
type allSafeClassifier struct{}

func (allSafeClassifier) Classify(context.Context, []byte) (*safety.Classification, error) {
	return &safety.Classification{Verdict: safety.VerdictSafe, Raw: "no"}, nil
}

func (allSafeClassifier) Provider() string { return "stub" }
func (allSafeClassifier) Model() string    { return "stub-vision" }

func TestExperiment_TwoArmComparison(t *testing.T) {
	root := filepath.Join(t.TempDir(), "experiment")

	// Both arms carry two prompts; the second one is rejected either way,
	// and the surviving image classifies as safe. Each cell should come
	// out as half hard punt, half soft punt, no jailbreak.
	exp := &Experiment{
		Providers: []Provider{{
			Name:       "stub",
			PrettyName: "Stub 1",
			Generator:  &rejectingGenerator{reject: map[string]bool{"B": true}},
		}},
		Arms: []Arm{
			{Name: "original", Prompts: []model.PromptItem{{Prompt: "A", Soft: "A-softened"}, {Prompt: "B"}}},
			{Name: "softened", Prompts: []model.PromptItem{{Prompt: "A-softened"}, {Prompt: "B"}}},
		},
		Classifier: allSafeClassifier{},
		RootDir:    root,
	}

	results, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for _, arm := range []string{"original", "softened"} {
		summary, ok := results[arm]
		if !ok {
			t.Fatalf("results missing %q arm: %v", arm, results)
		}
		if len(summary.Models) != 1 || summary.Models[0] != "Stub 1" {
			t.Fatalf("%s arm models = %v", arm, summary.Models)
		}
		if summary.HardPunt[0] != 0.5 || summary.SoftPunt[0] != 0.5 || summary.Jailbreak[0] != 0 {
			t.Fatalf("%s arm = hard %v soft %v jail %v, want 0.5/0.5/0",
				arm, summary.HardPunt[0], summary.SoftPunt[0], summary.Jailbreak[0])
		}
	}

	// One directory per cell, named <provider>_<arm>.
	for _, cell := range []string{"stub_original", "stub_softened"} {
		if _, err := os.Stat(filepath.Join(root, cell, "prompts.json")); err != nil {
			t.Errorf("cell directory %q missing its ledger: %v", cell, err)
		}
	}
}

func TestExperiment_ResultsKeysMatchReportContract(t *testing.T) {
	root := filepath.Join(t.TempDir(), "experiment")
	exp := &Experiment{
		Providers: []Provider{{
			Name:       "stub",
			PrettyName: "Stub 1",
			Generator:  &rejectingGenerator{},
		}},
		Arms:       []Arm{{Name: "original", Prompts: []model.PromptItem{{Prompt: "A"}}}},
		Classifier: allSafeClassifier{},
		RootDir:    root,
	}

	results, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(results)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"Models"`, `"Hard punt"`, `"Soft punt"`, `"Jailbreak"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("serialized results missing %s key: %s", key, data)
		}
	}
}

func TestExperiment_WritesManifest(t *testing.T) {
	root := filepath.Join(t.TempDir(), "experiment")
	exp := &Experiment{
		Providers: []Provider{{
			Name:       "stub",
			PrettyName: "Stub 1",
			Generator:  &rejectingGenerator{},
		}},
		Arms:       []Arm{{Name: "original", Prompts: []model.PromptItem{{Prompt: "A"}}}},
		Classifier: allSafeClassifier{},
		RootDir:    root,
	}

	if _, err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(root, "manifest.json"))
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.RunID == "" {
		t.Error("manifest missing run id")
	}
	if len(m.Cells) != 1 {
		t.Fatalf("manifest cells = %d, want 1", len(m.Cells))
	}
	cell := m.Cells[0]
	if cell.Provider != "stub" || cell.Arm != "original" || cell.Safe != 1 {
		t.Fatalf("unexpected cell: %+v", cell)
	}
}

func TestExperiment_EmptyCellFailsWithCellName(t *testing.T) {
	root := filepath.Join(t.TempDir(), "experiment")
	exp := &Experiment{
		Providers: []Provider{{
			Name:       "stub",
			PrettyName: "Stub 1",
			Generator:  &rejectingGenerator{},
		}},
		// Every prompt is malformed, so the cell produces zero outcomes
		// and its percentages are undefined.
		Arms:       []Arm{{Name: "original", Prompts: []model.PromptItem{{Malformed: true}}}},
		Classifier: allSafeClassifier{},
		RootDir:    root,
	}

	_, err := exp.Run(context.Background())
	if !errors.Is(err, model.ErrZeroDenominator) {
		t.Fatalf("expected ErrZeroDenominator, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "stub_original") {
		t.Fatalf("error does not name the failing cell: %v", err)
	}
}
