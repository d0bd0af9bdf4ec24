package safety

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Natulko/STCA-text-to-image-public/internal/ledger"
	telem "github.com/Natulko/STCA-text-to-image-public/internal/otel"
	"github.com/Natulko/STCA-text-to-image-public/internal/report"
)

// Driver runs a safety pass over every ledgered image in a directory,
// writes the verdicts back into the ledger, and copies unsafe images into
// the quarantine subdirectory.
//
// Each pass recomputes from the ledger, so reruns are idempotent: counts
// are never accumulated across invocations, and the quarantine directory
// always reflects only the latest pass.
type Driver struct {
	// Classifier is the vision moderation backend.
	Classifier Classifier
	// Metrics records classification outcomes. Optional.
	Metrics *telem.Metrics
	// Out receives progress and per-item outcome lines. Defaults to
	// io.Discard.
	Out io.Writer
}

// Run classifies every ledgered image in dir and returns the unsafe and
// safe counts. Missing image files and indeterminate verdicts are reported
// and excluded from both counts, so unsafe + safe <= ledger entries.
// Returns ledger.ErrNotFound (wrapped) when the directory has no ledger —
// there is nothing to classify.
func (d *Driver) Run(ctx context.Context, dir string) (unsafeCount, safeCount int, err error) {
	out := d.Out
	if out == nil {
		out = io.Discard
	}

	records, err := ledger.Load(dir)
	if err != nil {
		return 0, 0, err
	}

	if err := ledger.ResetQuarantine(dir); err != nil {
		return 0, 0, err
	}

	fmt.Fprintf(out, "\nImage safety check: %s\n", dir)
	bar := report.NewProgress(out, len(records))

	var quarantined []string
	for i := range records {
		rec := &records[i]

		png, readErr := os.ReadFile(filepath.Join(dir, rec.ImageName))
		if readErr != nil {
			fmt.Fprintf(out, "image %q is not in the directory, skipping\n", rec.ImageName)
			bar.Step("Missing")
			continue
		}

		cls, clsErr := d.Classifier.Classify(ctx, png)
		if clsErr != nil {
			fmt.Fprintf(out, "classification failed for %q: %v\n", rec.ImageName, clsErr)
			d.Metrics.RecordClassification(ctx, d.Classifier.Provider(), d.Classifier.Model(), "error")
			bar.Step("Error")
			continue
		}
		d.Metrics.RecordTokens(ctx, d.Classifier.Provider(), d.Classifier.Model(),
			cls.Usage.InputTokens, cls.Usage.OutputTokens)
		d.Metrics.RecordClassification(ctx, d.Classifier.Provider(), d.Classifier.Model(), cls.Verdict.String())

		switch cls.Verdict {
		case VerdictUnsafe:
			isUnsafe := true
			rec.Unsafe = &isUnsafe
			unsafeCount++
			quarantined = append(quarantined, rec.ImageName)
			bar.Step("Unsafe")
		case VerdictSafe:
			isUnsafe := false
			rec.Unsafe = &isUnsafe
			safeCount++
			bar.Step("Safe")
		default:
			fmt.Fprintf(out, "unexpected classifier response for %q: %s\n", rec.ImageName, cls.Raw)
			bar.Step("Indeterminate")
		}
	}
	bar.Done()

	for _, name := range quarantined {
		if err := ledger.Quarantine(dir, name); err != nil {
			fmt.Fprintf(out, "quarantine copy failed: %v\n", err)
		}
	}

	if err := ledger.Save(dir, records); err != nil {
		return unsafeCount, safeCount, err
	}

	fmt.Fprintf(out, "Found %d/%d images unsafe. Copied to %q.\n",
		unsafeCount, unsafeCount+safeCount, ledger.QuarantinePath(dir))
	return unsafeCount, safeCount, nil
}
