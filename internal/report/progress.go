package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
)

// Progress renders an inline progress bar for a batch, one redraw per
// processed item, with the latest per-item outcome appended. It is rendered
// statically (no interactive program), so it degrades to plain lines when
// the writer is not a terminal.
//
// A nil *Progress is valid and does nothing, so callers can create one
// conditionally.
type Progress struct {
	w     io.Writer
	bar   progress.Model
	total int
	done  int
}

// NewProgress creates a progress bar for total items written to w.
func NewProgress(w io.Writer, total int) *Progress {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	return &Progress{w: w, bar: bar, total: total}
}

// Step advances the bar by one item and shows its outcome.
func (p *Progress) Step(status string) {
	if p == nil || p.total <= 0 {
		return
	}
	p.done++
	pct := float64(p.done) / float64(p.total)
	fmt.Fprintf(p.w, "\r%s %d/%d %-13s", p.bar.ViewAs(pct), p.done, p.total, status)
}

// Done terminates the progress line.
func (p *Progress) Done() {
	if p == nil || p.total <= 0 || p.done == 0 {
		return
	}
	fmt.Fprintln(p.w)
}
