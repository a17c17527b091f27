// Package ast defines the syntax tree produced by parsing an OData query document.
package ast

import "strings"

// Position is a location in a query document
type Position struct {
	Offset int // Byte offset (0-indexed)
	Line   int // Line number (1-indexed)
	Column int // Column number (1-indexed)
}

// Span is a half-open range [Start, End) of a query document
type Span struct {
	Start Position
	End   Position
}

// Contains reports whether offset lies within the span. The end offset is
// included so that a cursor placed right after the text still hits it.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset <= s.End.Offset
}

// Node is the base interface for all syntax tree nodes
type Node interface {
	Location() Span
	node()
}

// SyntaxTree is the result of parsing a query document
type SyntaxTree struct {
	Text string
	Root *QueryNode
}

// QueryNode is the root node of a query document
type QueryNode struct {
	// ServiceRoot is the URL preceding the first '?', with surrounding
	// whitespace and comment lines removed.
	ServiceRoot     string
	ServiceRootSpan Span
	HasQuery        bool // a '?' was present
	Options         []*QueryOptionNode
	Comments        []*CommentNode
	Loc             Span
}

func (q *QueryNode) node() {}

// Location returns the span of the whole document
func (q *QueryNode) Location() Span {
	return q.Loc
}

// QueryOptionNode is a single name=value query option
type QueryOptionNode struct {
	Name      string
	Value     string // value fragments joined with a single space
	System    bool   // name starts with '$'
	NameSpan  Span
	ValueSpan Span
	Loc       Span
}

func (o *QueryOptionNode) node() {}

// Location returns the span from the option name to the end of its value
func (o *QueryOptionNode) Location() Span {
	return o.Loc
}

// Key returns the normalized option name used for duplicate detection
func (o *QueryOptionNode) Key() string {
	return strings.ToLower(o.Name)
}

// CommentNode is a `//` comment line
type CommentNode struct {
	Text string // comment text without the leading //
	Loc  Span
}

func (c *CommentNode) node() {}

// Location returns the span of the comment
func (c *CommentNode) Location() Span {
	return c.Loc
}

// Option returns the first option with the given name, ignoring case
func (t *SyntaxTree) Option(name string) *QueryOptionNode {
	if t == nil || t.Root == nil {
		return nil
	}
	for _, opt := range t.Root.Options {
		if strings.EqualFold(opt.Name, name) {
			return opt
		}
	}
	return nil
}

// OptionAt returns the option whose span contains offset, or nil
func (t *SyntaxTree) OptionAt(offset int) *QueryOptionNode {
	if t == nil || t.Root == nil {
		return nil
	}
	for _, opt := range t.Root.Options {
		if opt.Loc.Contains(offset) {
			return opt
		}
	}
	return nil
}

// InServiceRoot reports whether offset lies within the service root
func (t *SyntaxTree) InServiceRoot(offset int) bool {
	if t == nil || t.Root == nil {
		return false
	}
	return t.Root.ServiceRootSpan.Contains(offset)
}

// OffsetOf converts a 0-based line and character into a byte offset of text.
// Positions past the end of a line clamp to the line end.
func OffsetOf(text string, line, character int) int {
	offset := 0
	for l := 0; l < line; l++ {
		i := strings.IndexByte(text[offset:], '\n')
		if i < 0 {
			return len(text)
		}
		offset += i + 1
	}

	lineEnd := strings.IndexByte(text[offset:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text) - offset
	}
	if character > lineEnd {
		character = lineEnd
	}
	if character < 0 {
		character = 0
	}
	return offset + character
}

// PositionOf converts a byte offset of text into a Position
func PositionOf(text string, offset int) Position {
	if offset > len(text) {
		offset = len(text)
	}
	line := 1 + strings.Count(text[:offset], "\n")
	col := offset + 1
	if i := strings.LastIndexByte(text[:offset], '\n'); i >= 0 {
		col = offset - i
	}
	return Position{Offset: offset, Line: line, Column: col}
}

// Combined renders the document as a single-line query: the service root,
// then the options joined by '&'. Comments are dropped.
func (t *SyntaxTree) Combined() string {
	if t == nil || t.Root == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(t.Root.ServiceRoot)
	if !t.Root.HasQuery {
		return b.String()
	}
	b.WriteByte('?')
	for i, opt := range t.Root.Options {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(opt.Name)
		b.WriteByte('=')
		b.WriteString(opt.Value)
	}
	return b.String()
}
