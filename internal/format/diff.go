package format

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// DiffResult represents the difference between a document and its formatted form
type DiffResult struct {
	Original  string
	Formatted string
	Changed   bool
}

// Diff compares original and formatted text
func Diff(original, formatted string) *DiffResult {
	return &DiffResult{
		Original:  original,
		Formatted: formatted,
		Changed:   original != formatted,
	}
}

// lineChange is one line that differs; an empty side means the line is absent
type lineChange struct {
	line      int // 1-based
	original  string
	formatted string
}

// changes pairs lines by number. Query documents are short, so a positional
// comparison is enough to show what moved.
func (d *DiffResult) changes() []lineChange {
	originalLines := strings.Split(d.Original, "\n")
	formattedLines := strings.Split(d.Formatted, "\n")

	var out []lineChange
	for i := 0; i < max(len(originalLines), len(formattedLines)); i++ {
		var orig, form string
		if i < len(originalLines) {
			orig = originalLines[i]
		}
		if i < len(formattedLines) {
			form = formattedLines[i]
		}
		if orig != form {
			out = append(out, lineChange{line: i + 1, original: orig, formatted: form})
		}
	}
	return out
}

// String returns a human-readable diff with color highlighting
func (d *DiffResult) String() string {
	if !d.Changed {
		return color.GreenString("No changes needed")
	}

	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	var buf bytes.Buffer
	for _, c := range d.changes() {
		cyan.Fprintf(&buf, "@@ Line %d @@\n", c.line)
		if c.original != "" {
			red.Fprintf(&buf, "- %s\n", c.original)
		}
		if c.formatted != "" {
			green.Fprintf(&buf, "+ %s\n", c.formatted)
		}
	}
	return buf.String()
}

// UnifiedDiff returns the changes in unified diff notation
func (d *DiffResult) UnifiedDiff(filename string) string {
	if !d.Changed {
		return ""
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- a/%s\n", filename)
	fmt.Fprintf(&buf, "+++ b/%s\n", filename)
	for _, c := range d.changes() {
		fmt.Fprintf(&buf, "@@ -%d +%d @@\n", c.line, c.line)
		if c.original != "" {
			fmt.Fprintf(&buf, "-%s\n", c.original)
		}
		if c.formatted != "" {
			fmt.Fprintf(&buf, "+%s\n", c.formatted)
		}
	}
	return buf.String()
}

// Stats summarizes the changes
func (d *DiffResult) Stats() string {
	if !d.Changed {
		return "No changes"
	}

	added, removed, changed := 0, 0, 0
	for _, c := range d.changes() {
		switch {
		case c.original == "":
			added++
		case c.formatted == "":
			removed++
		default:
			changed++
		}
	}
	return fmt.Sprintf("%d lines changed, %d added, %d removed", changed, added, removed)
}
