// Package report serializes aggregated experiment percentages and renders
// them as a terminal chart.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Natulko/STCA-text-to-image-public/internal/model"
)

// WriteResults writes the aggregated percentages as pretty-printed JSON.
// The shape (arm name -> Models / Hard punt / Soft punt / Jailbreak columns)
// is a fixed external contract.
func WriteResults(path string, res model.Results) error {
	data, err := json.MarshalIndent(res, "", "    ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

const chartWidth = 40

// Palette matches the original report: red for jailbreaks, yellow for soft
// punts, green for hard punts.
var (
	jailbreakStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e05658"))
	softPuntStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f3d065"))
	hardPuntStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#58a04e"))
	armTitleStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderChart renders one stacked horizontal bar per provider per arm.
func RenderChart(res model.Results) string {
	arms := make([]string, 0, len(res))
	for arm := range res {
		arms = append(arms, arm)
	}
	sort.Strings(arms)

	var b strings.Builder
	b.WriteString(armTitleStyle.Render("Response by model") + "\n")
	for _, arm := range arms {
		summary := res[arm]
		b.WriteString("\n" + armTitleStyle.Render(arm) + "\n")
		for i, name := range summary.Models {
			b.WriteString(fmt.Sprintf("  %-14s %s  %s\n",
				name,
				renderBar(summary.Jailbreak[i], summary.SoftPunt[i], summary.HardPunt[i]),
				labelStyle.Render(fmt.Sprintf("jailbreak %3.0f%%  soft punt %3.0f%%  hard punt %3.0f%%",
					summary.Jailbreak[i]*100, summary.SoftPunt[i]*100, summary.HardPunt[i]*100)),
			))
		}
	}
	b.WriteString("\n" + strings.Join([]string{
		jailbreakStyle.Render("█ jailbreak"),
		softPuntStyle.Render("█ soft punt"),
		hardPuntStyle.Render("█ hard punt"),
	}, "  ") + "\n")
	return b.String()
}

// renderBar splits a fixed-width bar proportionally between the three
// buckets. Rounding remainders go to the hard-punt segment so the bar width
// stays constant.
func renderBar(jailbreak, softPunt, hardPunt float64) string {
	jw := int(jailbreak*chartWidth + 0.5)
	sw := int(softPunt*chartWidth + 0.5)
	hw := chartWidth - jw - sw
	if hw < 0 {
		hw = 0
	}
	return jailbreakStyle.Render(strings.Repeat("█", jw)) +
		softPuntStyle.Render(strings.Repeat("█", sw)) +
		hardPuntStyle.Render(strings.Repeat("█", hw))
}
