// Package experiment orchestrates the full red-team run: every generation
// provider crossed with both prompt arms, each cell generated, classified,
// and reduced to its outcome percentages.
package experiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Natulko/STCA-text-to-image-public/internal/generation"
	"github.com/Natulko/STCA-text-to-image-public/internal/ledger"
	"github.com/Natulko/STCA-text-to-image-public/internal/model"
	telem "github.com/Natulko/STCA-text-to-image-public/internal/otel"
	"github.com/Natulko/STCA-text-to-image-public/internal/safety"
)

// Provider is one generation backend under test.
type Provider struct {
	// Name keys the cell directory (e.g. "openai").
	Name string
	// PrettyName is the display name used in results and charts.
	PrettyName string
	// Generator is the backend client.
	Generator generation.Generator
}

// Arm is one prompt-variant condition.
type Arm struct {
	// Name keys the results entry ("original", "softened").
	Name string
	// Prompts is the arm's derived prompt list.
	Prompts []model.PromptItem
}

// CellResult holds the raw counts of one (provider, arm) cell, recorded in
// the run manifest alongside the normalized results.
type CellResult struct {
	Provider string `json:"provider"`
	Arm      string `json:"arm"`
	Dir      string `json:"dir"`
	Rejected int    `json:"rejected"`
	Safe     int    `json:"safe"`
	Unsafe   int    `json:"unsafe"`
}

// Manifest records one experiment run.
type Manifest struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Cells      []CellResult `json:"cells"`
}

// Experiment runs the generation and safety drivers for every cell and
// assembles the comparison result.
type Experiment struct {
	Providers  []Provider
	Arms       []Arm
	Classifier safety.Classifier
	// RootDir is the results root; it is reset at the start of a run and
	// receives one subdirectory per cell, named <provider>_<arm>.
	RootDir string
	// HTTPClient downloads hosted images. Optional.
	HTTPClient *http.Client
	// Metrics records pipeline outcomes. Optional.
	Metrics *telem.Metrics
	// Out receives progress output. Defaults to io.Discard.
	Out io.Writer
}

// Run executes every cell sequentially and returns the normalized results
// keyed by arm. A provider fault or an empty cell (zero outcomes, so
// percentages are undefined) fails the experiment.
func (e *Experiment) Run(ctx context.Context) (model.Results, error) {
	out := e.Out
	if out == nil {
		out = io.Discard
	}

	if err := ledger.ResetDir(e.RootDir); err != nil {
		return nil, err
	}

	manifest := Manifest{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	results := make(model.Results, len(e.Arms))
	for _, arm := range e.Arms {
		summary := model.ArmSummary{
			Models:    make([]string, 0, len(e.Providers)),
			HardPunt:  make([]float64, 0, len(e.Providers)),
			SoftPunt:  make([]float64, 0, len(e.Providers)),
			Jailbreak: make([]float64, 0, len(e.Providers)),
		}

		for _, p := range e.Providers {
			dir := filepath.Join(e.RootDir, fmt.Sprintf("%s_%s", p.Name, arm.Name))
			fmt.Fprintf(out, "\n=== %s / %s arm ===\n", p.PrettyName, arm.Name)

			cell, err := e.runCell(ctx, p, arm, dir)
			if err != nil {
				return nil, fmt.Errorf("cell %s_%s: %w", p.Name, arm.Name, err)
			}
			manifest.Cells = append(manifest.Cells, cell)

			counts := model.OutcomeCounts{Rejected: cell.Rejected, Safe: cell.Safe, Unsafe: cell.Unsafe}
			pct, err := counts.Percentages()
			if err != nil {
				return nil, fmt.Errorf("cell %s_%s: %w", p.Name, arm.Name, err)
			}

			summary.Models = append(summary.Models, p.PrettyName)
			summary.HardPunt = append(summary.HardPunt, pct.HardPunt)
			summary.SoftPunt = append(summary.SoftPunt, pct.SoftPunt)
			summary.Jailbreak = append(summary.Jailbreak, pct.Jailbreak)
		}

		results[arm.Name] = summary
	}

	manifest.FinishedAt = time.Now().UTC()
	if err := e.writeManifest(manifest); err != nil {
		return nil, err
	}
	return results, nil
}

// runCell generates then classifies one (provider, arm) directory.
func (e *Experiment) runCell(ctx context.Context, p Provider, arm Arm, dir string) (CellResult, error) {
	cell := CellResult{Provider: p.Name, Arm: arm.Name, Dir: dir}

	genDriver := &generation.Driver{
		Gen:        p.Generator,
		HTTPClient: e.HTTPClient,
		Metrics:    e.Metrics,
		Out:        e.Out,
	}
	_, rejected, err := genDriver.Run(ctx, arm.Prompts, dir)
	if err != nil {
		return cell, err
	}
	cell.Rejected = rejected

	safetyDriver := &safety.Driver{
		Classifier: e.Classifier,
		Metrics:    e.Metrics,
		Out:        e.Out,
	}
	unsafeCount, safeCount, err := safetyDriver.Run(ctx, dir)
	if err != nil {
		// A directory where every prompt was rejected has no ledger and
		// nothing to classify; that cell still has a valid rejected count.
		if errors.Is(err, ledger.ErrNotFound) {
			if e.Out != nil {
				fmt.Fprintf(e.Out, "no ledger in %s, skipping safety pass\n", dir)
			}
			return cell, nil
		}
		return cell, err
	}
	cell.Unsafe = unsafeCount
	cell.Safe = safeCount
	return cell, nil
}

func (e *Experiment) writeManifest(m Manifest) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(e.RootDir, "manifest.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
