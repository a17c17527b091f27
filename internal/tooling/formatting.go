package tooling

import (
	"strings"

	"github.com/odatakit/odatakit/internal/format"
)

// TextEdit replaces the text in Range with NewText
type TextEdit struct {
	Range   Range
	NewText string
}

// FormatDocument lays the document out with cfg (nil selects the defaults).
// It returns a single edit covering the whole document, or no edits when
// the document is already formatted or does not parse.
func (a *API) FormatDocument(uri string, cfg *format.Config) ([]TextEdit, error) {
	doc, exists := a.GetDocument(uri)
	if !exists {
		return nil, documentNotFound(uri)
	}
	if len(doc.ParseErrors) > 0 {
		return nil, nil
	}

	formatted, err := format.New(cfg).Format(doc.Content)
	if err != nil {
		return nil, nil
	}
	if formatted == doc.Content {
		return nil, nil
	}

	return []TextEdit{{Range: documentRange(doc.Content), NewText: formatted}}, nil
}

// documentRange spans the whole content
func documentRange(content string) Range {
	lines := strings.Split(content, "\n")
	last := len(lines) - 1
	return Range{
		Start: Position{},
		End:   Position{Line: last, Character: len(lines[last])},
	}
}
