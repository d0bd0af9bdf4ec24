package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Natulko/STCA-text-to-image-public/internal/ledger"
	"github.com/Natulko/STCA-text-to-image-public/internal/model"
	telem "github.com/Natulko/STCA-text-to-image-public/internal/otel"
	"github.com/Natulko/STCA-text-to-image-public/internal/report"
)

// Driver iterates a prompt batch against a single generation backend and
// persists every success into the directory's ledger. One driver runs
// against one directory at a time; the ledger and the image index space
// have no other writers.
type Driver struct {
	// Gen is the generation backend.
	Gen Generator
	// HTTPClient downloads hosted images for backends that return URLs.
	// Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Metrics records generation outcomes. Optional.
	Metrics *telem.Metrics
	// Out receives progress and per-item outcome lines. Defaults to
	// io.Discard.
	Out io.Writer
}

// Run generates one image per prompt into dir and returns this run's
// generated and rejected counts. Malformed prompt items are logged and
// skipped, so generated + rejected + skipped == len(prompts). A transport
// or provider fault aborts the batch after persisting the ledger, keeping
// the run resumable; a rerun reconciles against the files already on disk.
func (d *Driver) Run(ctx context.Context, prompts []model.PromptItem, dir string) (generated, rejected int, err error) {
	out := d.Out
	if out == nil {
		out = io.Discard
	}

	if err := ledger.EnsureDir(dir); err != nil {
		return 0, 0, err
	}

	records, err := ledger.Load(dir)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return 0, 0, err
	}

	var bar *report.Progress
	if len(prompts) > 1 {
		fmt.Fprintf(out, "\nGenerating images: prompting %s\n", PrettyName(d.Gen.Provider()))
		bar = report.NewProgress(out, len(prompts))
	}

	for _, item := range prompts {
		prompt, normErr := item.Normalize()
		if normErr != nil {
			fmt.Fprintf(out, "wrong prompt format, skipping: %v\n", normErr)
			d.Metrics.RecordGeneration(ctx, d.Gen.Provider(), d.Gen.Model(), "malformed")
			bar.Step("Skipped")
			continue
		}

		res, genErr := d.Gen.Generate(ctx, prompt)
		if genErr != nil {
			// Persist what this run produced so far before surfacing:
			// the next invocation resumes from the reconciled ledger.
			if saveErr := ledger.Save(dir, records); saveErr != nil {
				return generated, rejected, errors.Join(genErr, saveErr)
			}
			d.Metrics.RecordGeneration(ctx, d.Gen.Provider(), d.Gen.Model(), "error")
			return generated, rejected, fmt.Errorf("generation aborted: %w", genErr)
		}

		if res.Rejected {
			rejected++
			d.Metrics.RecordGeneration(ctx, d.Gen.Provider(), d.Gen.Model(), "rejected")
			bar.Step("Rejected")
			continue
		}

		imgBytes := res.Bytes
		if imgBytes == nil {
			imgBytes, err = d.download(ctx, res.URL)
			if err != nil {
				if saveErr := ledger.Save(dir, records); saveErr != nil {
					return generated, rejected, errors.Join(err, saveErr)
				}
				return generated, rejected, fmt.Errorf("generation aborted: %w", err)
			}
		}

		index, err := ledger.NextIndex(dir)
		if err != nil {
			return generated, rejected, err
		}
		name := ledger.ImageName(index)
		if err := os.WriteFile(filepath.Join(dir, name), imgBytes, 0o644); err != nil {
			return generated, rejected, fmt.Errorf("write %s: %w", name, err)
		}

		records = append(records, model.Record{
			Prompt:    prompt,
			ImageURL:  res.URL,
			ImageName: name,
			Meta:      item.Meta,
		})
		generated++
		d.Metrics.RecordGeneration(ctx, d.Gen.Provider(), d.Gen.Model(), "generated")
		bar.Step("Generated")
	}

	bar.Done()
	if len(prompts) > 1 {
		fmt.Fprintf(out, "Generated %d/%d\n", generated, len(prompts))
	}

	if err := ledger.Save(dir, records); err != nil {
		return generated, rejected, err
	}
	return generated, rejected, nil
}

// download fetches a hosted image.
func (d *Driver) download(ctx context.Context, url string) ([]byte, error) {
	httpc := d.HTTPClient
	if httpc == nil {
		httpc = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("image download request: %w", err)
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("image download read: %w", err)
	}
	return data, nil
}
