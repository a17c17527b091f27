// Package lexer tokenizes OData query documents.
//
// A document is a service root URL followed by `?` and `&`-joined
// `name=value` options. Any part may be broken across lines and lines whose
// first non-blank text is `//` are comments. The lexer is modal: it scans the
// service root until the first `?`, then alternates between option names and
// option values.
package lexer

import (
	"fmt"

	"github.com/odatakit/odatakit/internal/errors"
)

type mode int

const (
	modeRoot mode = iota
	modeName
	modeValue
)

// Lexer tokenizes an OData query document.
//
// Lexer instances are NOT thread-safe; create one per document via New().
type Lexer struct {
	source    string
	start     int // Start position of current token
	startLine int
	startCol  int
	current   int // Current position in source
	line      int // Current line number (1-indexed)
	column    int // Current column number (1-indexed)
	mode      mode
	tokens  []Token
	errors  []LexError

	// paren depth of the option value being scanned, reset at each '='
	depth     int
	depthLine int
	depthCol  int
}

// New creates a new Lexer for the given document text
func New(source string) *Lexer {
	return &Lexer{
		source: source,
		line:   1,
		column: 1,
		mode:   modeRoot,
		tokens: make([]Token, 0),
		errors: make([]LexError, 0),
	}
}

// ScanTokens tokenizes the entire document and returns tokens and errors
func (l *Lexer) ScanTokens() ([]Token, []LexError) {
	for !l.isAtEnd() {
		l.skipBlank()
		if l.isAtEnd() {
			break
		}
		l.start, l.startLine, l.startCol = l.current, l.line, l.column
		if l.atLineStart() && l.peek() == '/' && l.peekNext() == '/' {
			l.comment()
			continue
		}

		switch l.mode {
		case modeRoot:
			l.scanRoot()
		case modeName:
			l.scanName()
		case modeValue:
			l.scanValue()
		}
	}

	l.closeValue()

	l.tokens = append(l.tokens, Token{
		Type:   TOKEN_EOF,
		Offset: l.current,
		Line:   l.line,
		Column: l.column,
	})

	return l.tokens, l.errors
}

// scanRoot scans a service root fragment or the '?' that ends the root
func (l *Lexer) scanRoot() {
	if l.match('?') {
		l.addToken(TOKEN_QUESTION)
		l.mode = modeName
		return
	}

	for !l.isAtEnd() && !isBlank(l.peek()) && l.peek() != '?' {
		l.advance()
	}
	l.addToken(TOKEN_ROOT)
}

// scanName scans an option name, '=' or '&'
func (l *Lexer) scanName() {
	switch {
	case l.match('&'):
		l.addToken(TOKEN_AMPERSAND)
	case l.match('='):
		l.addToken(TOKEN_EQUALS)
		l.mode = modeValue
		l.depth = 0
	default:
		for !l.isAtEnd() && !isBlank(l.peek()) && l.peek() != '=' && l.peek() != '&' {
			l.advance()
		}
		l.addToken(TOKEN_NAME)
	}
}

// scanValue scans the rest of an option value on the current line
func (l *Lexer) scanValue() {
	if l.match('&') {
		l.closeValue()
		l.addToken(TOKEN_AMPERSAND)
		l.mode = modeName
		return
	}

	end := l.current
	for !l.isAtEnd() && l.peek() != '\n' && l.peek() != '&' {
		c := l.peek()
		switch c {
		case '\'':
			if !l.quoted() {
				return
			}
			end = l.current
			continue
		case '(':
			if l.depth == 0 {
				l.depthLine, l.depthCol = l.line, l.column
			}
			l.depth++
		case ')':
			if l.depth == 0 {
				l.errorAt(errors.ErrUnbalancedParens, "unexpected ')' in option value", l.line, l.column, 1)
			} else {
				l.depth--
			}
		}
		l.advance()
		if !isBlank(c) {
			end = l.current
		}
	}

	// trailing blanks are not part of the value
	l.addTokenTo(TOKEN_VALUE, end)
}

// quoted consumes a single-quoted string literal; a doubled quote escapes a quote.
// String literals cannot span lines.
func (l *Lexer) quoted() bool {
	line, col, offset := l.line, l.column, l.current
	l.advance() // opening '

	for !l.isAtEnd() && l.peek() != '\n' {
		if l.peek() == '\'' {
			l.advance()
			if l.peek() == '\'' {
				l.advance()
				continue
			}
			return true
		}
		l.advance()
	}

	l.errorAt(errors.ErrUnterminatedString,
		fmt.Sprintf("unterminated string literal starting at %d:%d", line, col), line, col, l.current-offset)
	l.addTokenTo(TOKEN_VALUE, trimRight(l.source, l.start, l.current))
	return false
}

// closeValue reports parentheses left open by the value being scanned
func (l *Lexer) closeValue() {
	if l.mode == modeValue && l.depth > 0 {
		l.errorAt(errors.ErrUnbalancedParens, "unclosed '(' in option value", l.depthLine, l.depthCol, 1)
		l.depth = 0
	}
}

// comment consumes a `//` comment line
func (l *Lexer) comment() {
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
	l.addTokenTo(TOKEN_COMMENT, trimRight(l.source, l.start, l.current))
}

// skipBlank skips spaces, tabs and line breaks
func (l *Lexer) skipBlank() {
	for !l.isAtEnd() && isBlank(l.peek()) {
		l.advance()
	}
}

// atLineStart reports whether only blanks precede the current position on its line
func (l *Lexer) atLineStart() bool {
	for i := l.current - 1; i >= 0; i-- {
		switch l.source[i] {
		case '\n':
			return true
		case ' ', '\t', '\r':
			continue
		default:
			return false
		}
	}
	return true
}

// Helper methods

// isAtEnd checks if we've reached the end of the source
func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.source)
}

// advance consumes and returns the current character, tracking line and column
func (l *Lexer) advance() byte {
	if l.isAtEnd() {
		return 0
	}
	c := l.source[l.current]
	l.current++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

// match checks if the current character matches expected and consumes it
func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.source[l.current] != expected {
		return false
	}
	l.advance()
	return true
}

// peek returns the current character without consuming it
func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.current]
}

// peekNext returns the next character without consuming
func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.source) {
		return 0
	}
	return l.source[l.current+1]
}

// addToken adds a token spanning start..current
func (l *Lexer) addToken(tokenType TokenType) {
	l.addTokenTo(tokenType, l.current)
}

// addTokenTo adds a token for source[start:to]
func (l *Lexer) addTokenTo(tokenType TokenType, to int) {
	l.tokens = append(l.tokens, Token{
		Type:   tokenType,
		Lexeme: l.source[l.start:to],
		Offset: l.start,
		Line:   l.startLine,
		Column: l.startCol,
	})
}

// errorAt records a lexical error
func (l *Lexer) errorAt(code, message string, line, column, length int) {
	l.errors = append(l.errors, LexError{
		Code:    code,
		Message: message,
		Line:    line,
		Column:  column,
		Length:  length,
	})
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func trimRight(s string, from, to int) int {
	for to > from && isBlank(s[to-1]) {
		to--
	}
	return to
}
