// Package parser turns OData query documents into syntax trees.
package parser

import (
	"sort"

	"github.com/odatakit/odatakit/internal/errors"
	"github.com/odatakit/odatakit/internal/query/lexer"
)

// fromLexError converts a lexical error into a syntax error
func fromLexError(e lexer.LexError) *errors.Error {
	return errors.NewSyntaxError(e.Code, e.Message, e.Line, e.Column, e.Length)
}

// newTokenError creates a syntax error located at a token
func newTokenError(code, message string, tok lexer.Token) *errors.Error {
	return errors.NewSyntaxError(code, message, tok.Line, tok.Column, len(tok.Lexeme))
}

// sortErrors orders errors by their position in the document
func sortErrors(errs []*errors.Error) {
	sort.SliceStable(errs, func(i, j int) bool {
		a, b := errs[i].Location, errs[j].Location
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}
