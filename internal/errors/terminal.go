package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	headerColor  = color.New(color.FgRed, color.Bold)
	arrowColor   = color.New(color.FgCyan)
	gutterColor  = color.New(color.FgBlue)
	contextColor = color.New(color.FgHiBlack)
	markerColor  = color.New(color.FgRed)
)

// SourceContext holds the lines surrounding an error
type SourceContext struct {
	Lines     []string `json:"lines"`
	FirstLine int      `json:"first_line"` // 1-based number of Lines[0]
	Highlight int      `json:"highlight"`  // index into Lines
	Start     int      `json:"start"`      // 0-based column
	End       int      `json:"end"`
}

// ExtractContext returns up to 3 lines before and after the error location
func ExtractContext(loc SourceLocation, source string) SourceContext {
	lines := strings.Split(source, "\n")
	if loc.Line < 1 || loc.Line > len(lines) {
		return SourceContext{}
	}

	idx := loc.Line - 1
	first := max(0, idx-3)
	last := min(len(lines), idx+4)

	start := max(0, loc.Column-1)
	end := start + max(1, loc.Length)

	return SourceContext{
		Lines:     append([]string(nil), lines[first:last]...),
		FirstLine: first + 1,
		Highlight: idx - first,
		Start:     start,
		End:       end,
	}
}

// FormatForTerminal renders the error with the source lines around it
func (e *Error) FormatForTerminal(source string) string {
	var sb strings.Builder

	sb.WriteString(headerColor.Sprintf("error[%s]", e.Code))
	sb.WriteString(": " + e.Message + "\n")

	file := e.Location.File
	if file == "" {
		file = e.Path
	}
	if !e.Location.IsZero() {
		if file == "" {
			file = "<input>"
		}
		sb.WriteString(fmt.Sprintf("  %s %s:%d:%d\n", arrowColor.Sprint("-->"), file, e.Location.Line, e.Location.Column))
	} else if file != "" {
		sb.WriteString(fmt.Sprintf("  %s %s\n", arrowColor.Sprint("-->"), file))
	}

	if e.Err != nil {
		sb.WriteString(fmt.Sprintf("  cause: %v\n", e.Err))
	}

	if source == "" || e.Location.IsZero() {
		return sb.String()
	}

	ctx := ExtractContext(e.Location, source)
	if len(ctx.Lines) == 0 {
		return sb.String()
	}

	sb.WriteString(gutterColor.Sprint("   |") + "\n")
	for i, line := range ctx.Lines {
		num := fmt.Sprintf("%3d", ctx.FirstLine+i)
		if i != ctx.Highlight {
			sb.WriteString(contextColor.Sprint(num) + gutterColor.Sprint(" | ") + line + "\n")
			continue
		}
		sb.WriteString(gutterColor.Sprint(num+" | ") + line + "\n")
		sb.WriteString(gutterColor.Sprint("    | ") + strings.Repeat(" ", ctx.Start))
		sb.WriteString(markerColor.Sprint(strings.Repeat("^", ctx.End-ctx.Start)) + "\n")
	}
	sb.WriteString(gutterColor.Sprint("   |") + "\n")

	return sb.String()
}
