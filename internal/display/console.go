// Package display renders user-facing CLI output: merge summaries, result
// tables and failure diagnostics.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Console writes human-oriented lines, coloured when the writer is a TTY.
type Console struct {
	out   io.Writer
	color bool

	green  *color.Color
	yellow *color.Color
	red    *color.Color
	bold   *color.Color
}

func NewConsole(out io.Writer) *Console {
	c := &Console{
		out:    out,
		color:  isTerminal(out),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed, color.Bold),
		bold:   color.New(color.Bold),
	}
	for _, col := range []*color.Color{c.green, c.yellow, c.red, c.bold} {
		if c.color {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *Console) Successf(format string, args ...any) {
	fmt.Fprintln(c.out, c.green.Sprint("✓ ")+fmt.Sprintf(format, args...))
}

func (c *Console) Infof(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) Headingf(format string, args ...any) {
	fmt.Fprintln(c.out, c.bold.Sprintf(format, args...))
}

func (c *Console) Failf(format string, args ...any) {
	fmt.Fprintln(c.out, c.red.Sprint("✗ ")+fmt.Sprintf(format, args...))
}

// Warning is a titled warning with optional detail lines.
type Warning struct {
	Title   string
	Message string
	Paths   []string
}

func (c *Console) Warn(w Warning) {
	var b strings.Builder
	b.WriteString(c.yellow.Sprint("⚠ Warning: " + w.Title))
	b.WriteString("\n")
	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}
	for i, p := range w.Paths {
		b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, p))
	}
	fmt.Fprint(c.out, b.String())
}

// Table prints rows as aligned columns; the first row is the header.
func (c *Console) Table(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, r := range rows {
		for i, cell := range r {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	for ri, r := range rows {
		var b strings.Builder
		for i, cell := range r {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(fmt.Sprintf("%-*s", widths[i], cell))
		}
		line := strings.TrimRight(b.String(), " ")
		if ri == 0 {
			line = c.bold.Sprint(line)
		}
		fmt.Fprintln(c.out, line)
	}
}
