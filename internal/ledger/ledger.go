// Package ledger manages the per-directory provenance file (prompts.json)
// that maps each generated image to its originating prompt and verdict, and
// allocates image file indices within a directory.
//
// The filesystem is the source of truth for image existence; the ledger is
// the source of truth for metadata. Load reconciles the two by dropping
// entries whose backing file is gone. The whole file is rewritten on Save;
// there is no append protocol, so the unit of durability is one driver run.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/Natulko/STCA-text-to-image-public/internal/model"
)

// FileName is the ledger file name inside each image directory.
const FileName = "prompts.json"

// QuarantineDirName is the subdirectory that receives copies of images a
// safety pass judged unsafe.
const QuarantineDirName = "unsafe"

// ErrNotFound is returned by Load when the directory has no ledger file.
var ErrNotFound = errors.New("ledger file not found")

var imagePattern = regexp.MustCompile(`^image_(\d+)\.png$`)

// ImageName returns the canonical file name for an image index.
func ImageName(index int) string {
	return fmt.Sprintf("image_%d.png", index)
}

// existingIndices scans dir for files named image_<n>.png and returns the
// set of indices in use.
func existingIndices(dir string) (map[int]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	indices := make(map[int]bool)
	for _, e := range entries {
		m := imagePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		indices[n] = true
	}
	return indices, nil
}

// NextIndex returns the smallest non-negative integer n such that
// image_<n>.png does not exist in dir. Allocation is not reserved: the
// caller must write the file before allocating again. Safe only under the
// pipeline's single-writer-per-directory rule.
func NextIndex(dir string) (int, error) {
	used, err := existingIndices(dir)
	if err != nil {
		return 0, err
	}
	i := 0
	for used[i] {
		i++
	}
	return i, nil
}

// Load reads and reconciles the ledger for dir. Entries whose image file no
// longer exists on disk are dropped silently; the next Save persists the
// pruned list. Returns ErrNotFound when the ledger file is absent.
func Load(dir string) ([]model.Record, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	kept := records[:0]
	for _, r := range records {
		if r.ImageName == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, r.ImageName)); err != nil {
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}

// Save rewrites the full ledger file for dir, pretty-printed.
func Save(dir string, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// EnsureDir creates dir if it does not exist yet.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// ResetDir deletes dir and recreates it empty. Used once per experiment run
// on the results root.
func ResetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return EnsureDir(dir)
}

// QuarantinePath returns the quarantine subdirectory for dir.
func QuarantinePath(dir string) string {
	return filepath.Join(dir, QuarantineDirName)
}

// ResetQuarantine deletes and recreates the quarantine subdirectory so that
// each safety pass reflects only the current run, not accumulated history.
func ResetQuarantine(dir string) error {
	return ResetDir(QuarantinePath(dir))
}

// Quarantine copies an image into the quarantine subdirectory. The original
// stays in place.
func Quarantine(dir, imageName string) error {
	src, err := os.Open(filepath.Join(dir, imageName))
	if err != nil {
		return fmt.Errorf("open %s: %w", imageName, err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(QuarantinePath(dir), imageName))
	if err != nil {
		return fmt.Errorf("create quarantine copy of %s: %w", imageName, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %s to quarantine: %w", imageName, err)
	}
	return nil
}
