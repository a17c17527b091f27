package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "syntax error with position",
			err:  NewSyntaxError(ErrMissingEquals, "expected '=' after option name", 3, 5, 7),
			want: "3:5: E004: expected '=' after option name",
		},
		{
			name: "syntax error with file",
			err:  NewSyntaxError(ErrMissingEquals, "expected '='", 3, 5, 1).WithPath("query.odata"),
			want: "query.odata:3:5: E004: expected '='",
		},
		{
			name: "io error",
			err:  NewIOError("/tmp/missing.xml", fs.ErrNotExist),
			want: "/tmp/missing.xml: E200: Metadata file not found: file does not exist",
		},
		{
			name: "config error",
			err:  NewConfigError(ErrInvalidMapEntry, "map entry 0 has no url"),
			want: "E300: map entry 0 has no url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestNewIOError_Codes(t *testing.T) {
	assert.Equal(t, ErrFileNotFound, NewIOError("a.xml", fmt.Errorf("open: %w", fs.ErrNotExist)).Code)
	assert.Equal(t, ErrFileUnreadable, NewIOError("a.xml", fs.ErrPermission).Code)
}

func TestKindPredicates(t *testing.T) {
	syntax := NewSyntaxError(ErrEmptyDocument, "empty", 1, 1, 0)
	wrapped := fmt.Errorf("parse query: %w", syntax)

	assert.True(t, IsSyntax(wrapped))
	assert.False(t, IsIO(wrapped))
	assert.False(t, IsXMLParse(wrapped))

	ioErr := fmt.Errorf("load: %w", NewIOError("x.xml", fs.ErrNotExist))
	assert.True(t, IsIO(ioErr))
	assert.True(t, stderrors.Is(ioErr, fs.ErrNotExist))

	assert.True(t, IsXMLParse(NewXMLParseError(ErrMalformedXML, "bad", 1, 1, nil)))
	assert.True(t, IsConfig(NewConfigError(ErrInvalidConfig, "bad")))
	assert.False(t, IsSyntax(fmt.Errorf("plain")))
}

func TestError_MarshalJSON(t *testing.T) {
	err := NewXMLParseError(ErrMissingDataService, "no DataServices element", 2, 3, nil).WithPath("meta.xml")

	data, jerr := json.Marshal(err)
	require.NoError(t, jerr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "xml", decoded["kind"])
	assert.Equal(t, "E102", decoded["code"])
	assert.Equal(t, "meta.xml", decoded["path"])
	assert.NotContains(t, decoded, "cause")
}

func TestExtractContext(t *testing.T) {
	source := "l1\nl2\nl3\nl4\nl5\nl6\nl7\nl8\nl9"

	ctx := ExtractContext(SourceLocation{Line: 5, Column: 2, Length: 0}, source)
	assert.Equal(t, []string{"l2", "l3", "l4", "l5", "l6", "l7", "l8"}, ctx.Lines)
	assert.Equal(t, 2, ctx.FirstLine)
	assert.Equal(t, 3, ctx.Highlight)
	assert.Equal(t, 1, ctx.Start)
	assert.Equal(t, 2, ctx.End)

	top := ExtractContext(SourceLocation{Line: 1, Column: 1, Length: 2}, source)
	assert.Equal(t, 0, top.Highlight)
	assert.Len(t, top.Lines, 4)

	assert.Empty(t, ExtractContext(SourceLocation{Line: 42}, source).Lines)
}

func TestError_FormatForTerminal(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	source := "https://host/svc\n  ?$top=1\n  &$filter=Name eq 'x"
	err := NewSyntaxError(ErrUnterminatedString, "unterminated string literal", 3, 20, 2)

	out := err.FormatForTerminal(source)
	assert.Contains(t, out, "error[E005]: unterminated string literal")
	assert.Contains(t, out, "--> <input>:3:20")
	assert.Contains(t, out, "  3 |   &$filter=Name eq 'x")

	lines := strings.Split(out, "\n")
	var marker string
	for _, l := range lines {
		if strings.Contains(l, "^") {
			marker = l
		}
	}
	assert.Equal(t, "    | "+strings.Repeat(" ", 19)+"^^", marker)
}
