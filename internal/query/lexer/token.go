package lexer

import "fmt"

// TokenType represents the type of a token in an OData query document
type TokenType int

const (
	// TOKEN_EOF marks the end of the token stream.
	TOKEN_EOF TokenType = iota
	// TOKEN_ERROR represents a lexical error encountered during scanning.
	TOKEN_ERROR
	// TOKEN_COMMENT holds a whole `//` comment line.
	TOKEN_COMMENT

	// TOKEN_ROOT is one whitespace-free fragment of the service root URL.
	TOKEN_ROOT
	// TOKEN_QUESTION separates the service root from the query options.
	TOKEN_QUESTION
	// TOKEN_AMPERSAND separates query options.
	TOKEN_AMPERSAND
	// TOKEN_NAME is a query option name, e.g. $filter or a custom option.
	TOKEN_NAME
	// TOKEN_EQUALS separates an option name from its value.
	TOKEN_EQUALS
	// TOKEN_VALUE is the part of an option value written on a single line.
	TOKEN_VALUE
)

// TokenTypeNames maps token types to their string representations
var TokenTypeNames = map[TokenType]string{
	TOKEN_EOF:       "EOF",
	TOKEN_ERROR:     "ERROR",
	TOKEN_COMMENT:   "COMMENT",
	TOKEN_ROOT:      "ROOT",
	TOKEN_QUESTION:  "QUESTION",
	TOKEN_AMPERSAND: "AMPERSAND",
	TOKEN_NAME:      "NAME",
	TOKEN_EQUALS:    "EQUALS",
	TOKEN_VALUE:     "VALUE",
}

// String returns the string representation of a token type
func (t TokenType) String() string {
	if name, ok := TokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a lexical token
type Token struct {
	Type   TokenType // The type of the token
	Lexeme string    // The raw text of the token
	Offset int       // Byte offset of the first character (0-indexed)
	Line   int       // Line number (1-indexed)
	Column int       // Column number (1-indexed)
}

// End returns the byte offset just past the token
func (t Token) End() int {
	return t.Offset + len(t.Lexeme)
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("%s '%s' at %d:%d", t.Type.String(), t.Lexeme, t.Line, t.Column)
}

// LexError represents a lexical error
type LexError struct {
	Code    string // Error code from internal/errors
	Message string // Error message
	Line    int    // Line number where error occurred
	Column  int    // Column number where error occurred
	Length  int    // Length of the offending text
}

// Error implements the error interface
func (e LexError) Error() string {
	return fmt.Sprintf("Lexical error at %d:%d: %s", e.Line, e.Column, e.Message)
}
