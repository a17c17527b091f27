// Package format lays out OData query documents: the service root on its own
// line, then one option per line introduced by '?' or '&'. Comment lines are
// kept in front of the option they preceded.
package format

import (
	"bytes"
	"os"
	"strings"

	"github.com/odatakit/odatakit/internal/errors"
	"github.com/odatakit/odatakit/internal/query/ast"
	"github.com/odatakit/odatakit/internal/query/parser"
)

// Formatter formats query documents
type Formatter struct {
	config *Config
	buf    *bytes.Buffer
}

// New creates a new Formatter with the given configuration
func New(config *Config) *Formatter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Formatter{
		config: config,
		buf:    new(bytes.Buffer),
	}
}

// Format formats a query document. Documents with syntax errors are not
// formatted; the first error is returned.
func (f *Formatter) Format(source string) (string, error) {
	tree, errs := parser.New(source).Parse()
	if len(errs) > 0 {
		return "", errs[0]
	}

	f.buf.Reset()
	f.formatTree(tree)
	return f.buf.String(), nil
}

// FormatFile formats the query document at path
func FormatFile(path string, config *Config) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewIOError(path, err)
	}

	formatted, err := New(config).Format(string(content))
	if e, ok := errors.As(err); ok {
		return "", e.WithPath(path)
	}
	return formatted, err
}

func (f *Formatter) formatTree(tree *ast.SyntaxTree) {
	root := tree.Root
	comments := root.Comments
	indent := strings.Repeat(" ", f.config.IndentSize)

	// header comments stay above the service root
	next := 0
	for ; next < len(comments) && comments[next].Loc.Start.Offset < root.ServiceRootSpan.Start.Offset; next++ {
		f.writeComment("", comments[next])
	}

	f.buf.WriteString(root.ServiceRoot)
	f.buf.WriteByte('\n')

	for i, opt := range root.Options {
		for ; next < len(comments) && comments[next].Loc.Start.Offset < opt.Loc.Start.Offset; next++ {
			f.writeComment(indent, comments[next])
		}
		sep := "&"
		if i == 0 {
			sep = "?"
		}
		f.writeOption(indent, sep, opt)
	}

	for ; next < len(comments); next++ {
		f.writeComment(indent, comments[next])
	}
}

func (f *Formatter) writeComment(indent string, c *ast.CommentNode) {
	f.buf.WriteString(indent)
	f.buf.WriteString("//")
	if c.Text != "" {
		f.buf.WriteByte(' ')
		f.buf.WriteString(c.Text)
	}
	f.buf.WriteByte('\n')
}

func (f *Formatter) writeOption(indent, sep string, opt *ast.QueryOptionNode) {
	head := indent + sep + opt.Name + "="

	parts := []string{opt.Value}
	if f.config.WrapWidth > 0 && len(head)+len(opt.Value) > f.config.WrapWidth {
		parts = splitLogical(opt.Value)
	}

	f.buf.WriteString(head)
	f.buf.WriteString(parts[0])
	f.buf.WriteByte('\n')
	for _, part := range parts[1:] {
		f.buf.WriteString(indent)
		f.buf.WriteString(indent)
		f.buf.WriteString(part)
		f.buf.WriteByte('\n')
	}
}

// splitLogical cuts value before every "and" or "or" operator that is not
// inside parentheses or a string literal. Joining the parts with a single
// space gives back value.
func splitLogical(value string) []string {
	var parts []string
	depth := 0
	inString := false
	start := 0

	for i := 0; i < len(value); i++ {
		switch c := value[i]; {
		case c == '\'':
			// '' inside a literal toggles twice
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == ' ' && depth == 0:
			rest := value[i:]
			if strings.HasPrefix(rest, " and ") || strings.HasPrefix(rest, " or ") {
				parts = append(parts, value[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, value[start:])
}
