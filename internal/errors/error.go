package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
)

// Kind classifies an error by the layer that produced it
type Kind int

const (
	KindSyntax Kind = iota
	KindXMLParse
	KindIO
	KindConfig
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindXMLParse:
		return "xml"
	case KindIO:
		return "io"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Kind
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// SourceLocation represents a 1-based location in a source text
type SourceLocation struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Length int    `json:"length"`
}

// IsZero reports whether the location carries no position
func (l SourceLocation) IsZero() bool {
	return l.Line == 0 && l.Column == 0
}

// Error is the error type returned by every odatakit package
type Error struct {
	Kind     Kind
	Code     string
	Message  string
	Location SourceLocation
	Path     string // file involved, for IO and XML errors
	Err      error  // underlying cause
}

// Error implements the error interface
func (e *Error) Error() string {
	file := e.Location.File
	if file == "" {
		file = e.Path
	}

	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	switch {
	case !e.Location.IsZero() && file != "":
		return fmt.Sprintf("%s:%d:%d: %s: %s", file, e.Location.Line, e.Location.Column, e.Code, msg)
	case !e.Location.IsZero():
		return fmt.Sprintf("%d:%d: %s: %s", e.Location.Line, e.Location.Column, e.Code, msg)
	case file != "":
		return fmt.Sprintf("%s: %s: %s", file, e.Code, msg)
	default:
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler
func (e *Error) MarshalJSON() ([]byte, error) {
	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(struct {
		Kind     Kind           `json:"kind"`
		Code     string         `json:"code"`
		Message  string         `json:"message"`
		Location SourceLocation `json:"location"`
		Path     string         `json:"path,omitempty"`
		Cause    string         `json:"cause,omitempty"`
	}{
		Kind:     e.Kind,
		Code:     e.Code,
		Message:  e.Message,
		Location: e.Location,
		Path:     e.Path,
		Cause:    cause,
	})
}

// NewSyntaxError creates a query syntax error at a 1-based line and column
func NewSyntaxError(code, message string, line, column, length int) *Error {
	return &Error{
		Kind:     KindSyntax,
		Code:     code,
		Message:  message,
		Location: SourceLocation{Line: line, Column: column, Length: length},
	}
}

// NewXMLParseError creates a metadata XML error
func NewXMLParseError(code, message string, line, column int, cause error) *Error {
	return &Error{
		Kind:     KindXMLParse,
		Code:     code,
		Message:  message,
		Location: SourceLocation{Line: line, Column: column},
		Err:      cause,
	}
}

// NewIOError creates an error for a file that could not be read
func NewIOError(path string, cause error) *Error {
	code := ErrFileUnreadable
	if stderrors.Is(cause, fs.ErrNotExist) {
		code = ErrFileNotFound
	}
	return &Error{
		Kind:    KindIO,
		Code:    code,
		Message: Describe(code),
		Path:    path,
		Err:     cause,
	}
}

// NewConfigError creates a configuration error
func NewConfigError(code, message string) *Error {
	return &Error{
		Kind:    KindConfig,
		Code:    code,
		Message: message,
	}
}

// WithPath returns a copy of the error that names the file involved
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	cp.Location.File = path
	return &cp
}

// As finds the first *Error in err's chain
func As(err error) (*Error, bool) {
	var target *Error
	if stderrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func isKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// IsSyntax reports whether err is a query syntax error
func IsSyntax(err error) bool { return isKind(err, KindSyntax) }

// IsXMLParse reports whether err is a metadata XML error
func IsXMLParse(err error) bool { return isKind(err, KindXMLParse) }

// IsIO reports whether err is a metadata file read error
func IsIO(err error) bool { return isKind(err, KindIO) }

// IsConfig reports whether err is a configuration error
func IsConfig(err error) bool { return isKind(err, KindConfig) }
