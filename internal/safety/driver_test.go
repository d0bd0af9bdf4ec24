package safety

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Natulko/STCA-text-to-image-public/internal/ledger"
	"github.com/Natulko/STCA-text-to-image-public/internal/model"
)

// stubClassifier returns a fixed verdict per image content.
type stubClassifier struct {
	verdicts map[string]Verdict
	calls    int
}

func (s *stubClassifier) Classify(_ context.Context, png []byte) (*Classification, error) {
	s.calls++
	v, ok := s.verdicts[string(png)]
	if !ok {
		return &Classification{Verdict: VerdictIndeterminate, Raw: "maybe, it's complicated"}, nil
	}
	return &Classification{Verdict: v, Raw: v.String()}, nil
}

func (s *stubClassifier) Provider() string { return "stub" }
func (s *stubClassifier) Model() string    { return "stub-vision" }

// seedDirectory writes one image per content string and a matching ledger.
func seedDirectory(t *testing.T, dir string, contents ...string) {
	t.Helper()
	var records []model.Record
	for i, content := range contents {
		name := ledger.ImageName(i)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		records = append(records, model.Record{Prompt: "p" + name, ImageName: name})
	}
	if err := ledger.Save(dir, records); err != nil {
		t.Fatal(err)
	}
}

func TestDriver_CountsAndQuarantine(t *testing.T) {
	dir := t.TempDir()
	seedDirectory(t, dir, "bad", "fine", "fine2")

	driver := &Driver{Classifier: &stubClassifier{verdicts: map[string]Verdict{
		"bad":   VerdictUnsafe,
		"fine":  VerdictSafe,
		"fine2": VerdictSafe,
	}}}

	unsafeCount, safeCount, err := driver.Run(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if unsafeCount != 1 || safeCount != 2 {
		t.Fatalf("got unsafe=%d safe=%d, want 1/2", unsafeCount, safeCount)
	}

	// Unsafe image copied, original left in place.
	if _, err := os.Stat(filepath.Join(ledger.QuarantinePath(dir), "image_0.png")); err != nil {
		t.Fatal("unsafe image not quarantined")
	}
	if _, err := os.Stat(filepath.Join(dir, "image_0.png")); err != nil {
		t.Fatal("quarantine removed the original")
	}

	// Verdicts written back into the ledger.
	records, err := ledger.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Unsafe == nil || !*records[0].Unsafe {
		t.Fatal("unsafe verdict not persisted")
	}
	if records[1].Unsafe == nil || *records[1].Unsafe {
		t.Fatal("safe verdict not persisted")
	}
}

func TestDriver_IndeterminateExcludedFromBothCounts(t *testing.T) {
	dir := t.TempDir()
	seedDirectory(t, dir, "bad", "odd", "fine")

	driver := &Driver{Classifier: &stubClassifier{verdicts: map[string]Verdict{
		"bad":  VerdictUnsafe,
		"fine": VerdictSafe,
		// "odd" intentionally unmapped: the stub answers indeterminate.
	}}}

	unsafeCount, safeCount, err := driver.Run(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if unsafeCount != 1 || safeCount != 1 {
		t.Fatalf("got unsafe=%d safe=%d, want 1/1 with the ambiguous image excluded", unsafeCount, safeCount)
	}

	records, err := ledger.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if records[1].Unsafe != nil {
		t.Fatal("indeterminate image must keep its verdict field absent")
	}
}

func TestDriver_IdempotentAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	seedDirectory(t, dir, "bad", "fine")

	classifier := &stubClassifier{verdicts: map[string]Verdict{
		"bad":  VerdictUnsafe,
		"fine": VerdictSafe,
	}}
	driver := &Driver{Classifier: classifier}

	u1, s1, err := driver.Run(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	u2, s2, err := driver.Run(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if u1 != u2 || s1 != s2 {
		t.Fatalf("counts drifted across runs: (%d,%d) then (%d,%d)", u1, s1, u2, s2)
	}

	// Quarantine reflects only the latest pass: exactly one copy.
	entries, err := os.ReadDir(ledger.QuarantinePath(dir))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("quarantine accumulated across runs: %d entries", len(entries))
	}
}

func TestDriver_StaleEntryDroppedBeforeClassification(t *testing.T) {
	dir := t.TempDir()
	seedDirectory(t, dir, "fine", "gone")
	if err := os.Remove(filepath.Join(dir, "image_1.png")); err != nil {
		t.Fatal(err)
	}

	classifier := &stubClassifier{verdicts: map[string]Verdict{"fine": VerdictSafe}}
	driver := &Driver{Classifier: classifier}

	unsafeCount, safeCount, err := driver.Run(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if unsafeCount != 0 || safeCount != 1 {
		t.Fatalf("got unsafe=%d safe=%d, want 0/1", unsafeCount, safeCount)
	}
	if classifier.calls != 1 {
		t.Fatalf("classifier called %d times, want 1 (stale entry must be dropped at load)", classifier.calls)
	}
}

func TestDriver_MissingLedgerSurfaced(t *testing.T) {
	driver := &Driver{Classifier: &stubClassifier{}}
	_, _, err := driver.Run(context.Background(), t.TempDir())
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ledger.ErrNotFound, got %v", err)
	}
}
