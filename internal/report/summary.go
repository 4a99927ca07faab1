package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"eisim-progress/internal/analysis"
	"eisim-progress/internal/model"
)

// RenderMarkdown builds a human-readable summary of a run: one table row
// per scenario with its last platform total and smoothed value.
func RenderMarkdown(m *Manifest, results *model.Results, trends []analysis.Trend) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Training progress\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", m.RunID)
	fmt.Fprintf(&b, "- Source: `%s`\n", m.SourceDir)
	fmt.Fprintf(&b, "- Episodes: %d\n", len(results.Episodes))
	fmt.Fprintf(&b, "- Agents: %s\n", strings.Join(results.Agents, ", "))
	fmt.Fprintf(&b, "- Moving average window: %d\n\n", m.Window)

	b.WriteString("| Scenario | Final total return | Final SMA | Best episode |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, tr := range trends {
		final, smoothed, best := 0.0, 0.0, 0
		if n := len(tr.TotalReturns); n > 0 {
			final = tr.TotalReturns[n-1]
			smoothed = tr.Smoothed[n-1]
			for i, v := range tr.TotalReturns {
				if v > tr.TotalReturns[best] {
					best = i
				}
			}
			best++
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d |\n",
			tr.Scenario, FormatMillions(final), FormatMillions(smoothed), best)
	}
	return []byte(b.String())
}

// RenderHTML converts Markdown to a standalone HTML page.
func RenderHTML(markdown []byte) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := md.Convert(markdown, &body); err != nil {
		return nil, err
	}
	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Training progress</title></head><body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body></html>\n")
	return page.Bytes(), nil
}
