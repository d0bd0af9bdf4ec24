package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Natulko/STCA-text-to-image-public/internal/model"
)

func sampleResults() model.Results {
	return model.Results{
		"original": model.ArmSummary{
			Models:    []string{"DALL-E 3", "Imagen 3"},
			HardPunt:  []float64{0.5, 0.25},
			SoftPunt:  []float64{0.5, 0.5},
			Jailbreak: []float64{0, 0.25},
		},
		"softened": model.ArmSummary{
			Models:    []string{"DALL-E 3", "Imagen 3"},
			HardPunt:  []float64{0.25, 0},
			SoftPunt:  []float64{0.5, 0.75},
			Jailbreak: []float64{0.25, 0.25},
		},
	}
}

func TestWriteResults_ContractKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	if err := WriteResults(path, sampleResults()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, arm := range []string{"original", "softened"} {
		entry, ok := raw[arm]
		if !ok {
			t.Fatalf("results missing %q arm", arm)
		}
		for _, key := range []string{"Models", "Hard punt", "Soft punt", "Jailbreak"} {
			if _, ok := entry[key]; !ok {
				t.Errorf("%s arm missing %q column", arm, key)
			}
		}
	}

	if !strings.HasSuffix(string(data), "\n") {
		t.Error("results file missing trailing newline")
	}
}

func TestRenderChart_ListsEveryProviderPerArm(t *testing.T) {
	chart := RenderChart(sampleResults())

	for _, want := range []string{"original", "softened", "DALL-E 3", "Imagen 3"} {
		if strings.Count(chart, want) < 1 {
			t.Errorf("chart missing %q:\n%s", want, chart)
		}
	}
	if strings.Count(chart, "DALL-E 3") != 2 {
		t.Errorf("each provider should appear once per arm:\n%s", chart)
	}
	if !strings.Contains(chart, "jailbreak  25%") {
		t.Errorf("chart missing percent labels:\n%s", chart)
	}
}

func TestRenderBar_ConstantWidth(t *testing.T) {
	tests := []struct {
		name                          string
		jailbreak, softPunt, hardPunt float64
	}{
		{name: "even thirds", jailbreak: 1.0 / 3, softPunt: 1.0 / 3, hardPunt: 1.0 / 3},
		{name: "all hard punt", hardPunt: 1},
		{name: "all jailbreak", jailbreak: 1},
		{name: "rounding overflow", jailbreak: 0.49, softPunt: 0.49, hardPunt: 0.02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := renderBar(tt.jailbreak, tt.softPunt, tt.hardPunt)
			if got := strings.Count(bar, "█"); got != chartWidth {
				t.Errorf("bar width = %d, want %d", got, chartWidth)
			}
		})
	}
}
