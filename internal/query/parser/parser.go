package parser

import (
	"fmt"
	"strings"

	"github.com/odatakit/odatakit/internal/errors"
	"github.com/odatakit/odatakit/internal/query/ast"
	"github.com/odatakit/odatakit/internal/query/lexer"
)

// Parser transforms the token stream of a query document into a SyntaxTree
type Parser struct {
	text     string
	tokens   []lexer.Token
	comments []lexer.Token
	current  int
	errors   []*errors.Error
	seen     map[string]bool // system options already parsed
}

// New creates a parser for the given document text
func New(text string) *Parser {
	tokens, lexErrors := lexer.New(text).ScanTokens()

	p := &Parser{
		text:   text,
		tokens: make([]lexer.Token, 0, len(tokens)),
		errors: make([]*errors.Error, 0, len(lexErrors)),
		seen:   make(map[string]bool),
	}
	for _, tok := range tokens {
		if tok.Type == lexer.TOKEN_COMMENT {
			p.comments = append(p.comments, tok)
			continue
		}
		p.tokens = append(p.tokens, tok)
	}
	for _, e := range lexErrors {
		p.errors = append(p.errors, fromLexError(e))
	}
	return p
}

// Parse parses text and returns the tree or the first syntax error.
// The returned error is an *errors.Error of kind errors.KindSyntax.
func Parse(text string) (*ast.SyntaxTree, error) {
	tree, errs := New(text).Parse()
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return tree, nil
}

// Parse parses the document. The tree is always returned, even when errors
// were found, so editors can keep working with the parts that did parse.
func (p *Parser) Parse() (*ast.SyntaxTree, []*errors.Error) {
	root := &ast.QueryNode{
		Options: make([]*ast.QueryOptionNode, 0),
		Loc: ast.Span{
			Start: ast.Position{Offset: 0, Line: 1, Column: 1},
			End:   ast.PositionOf(p.text, len(p.text)),
		},
	}

	for _, c := range p.comments {
		root.Comments = append(root.Comments, &ast.CommentNode{
			Text: strings.TrimSpace(strings.TrimPrefix(c.Lexeme, "//")),
			Loc:  tokenSpan(c),
		})
	}

	p.parseServiceRoot(root)

	if p.match(lexer.TOKEN_QUESTION) {
		root.HasQuery = true
		p.parseOptions(root)
	}

	if !p.isAtEnd() {
		tok := p.peek()
		p.error(newTokenError(errors.ErrInvalidOptionName, fmt.Sprintf("unexpected '%s'", tok.Lexeme), tok))
	}

	sortErrors(p.errors)
	return &ast.SyntaxTree{Text: p.text, Root: root}, p.errors
}

// parseServiceRoot joins the root fragments that precede '?'. Fragments on
// separate lines are concatenated; fragments on one line mean the URL
// contains whitespace.
func (p *Parser) parseServiceRoot(root *ast.QueryNode) {
	var sb strings.Builder
	var first, last lexer.Token

	for p.check(lexer.TOKEN_ROOT) {
		tok := p.advance()
		if sb.Len() == 0 {
			first = tok
		} else if tok.Line == last.Line {
			p.error(newTokenError(errors.ErrWhitespaceInRoot,
				"service root must not contain whitespace", tok))
		}
		sb.WriteString(tok.Lexeme)
		last = tok
	}

	if sb.Len() == 0 {
		tok := p.peek()
		if tok.Type == lexer.TOKEN_EOF {
			p.error(errors.NewSyntaxError(errors.ErrEmptyDocument, "query document is empty", 1, 1, 0))
		} else {
			p.error(newTokenError(errors.ErrEmptyDocument, "expected service root before '?'", tok))
		}
		return
	}

	root.ServiceRoot = sb.String()
	root.ServiceRootSpan = ast.Span{Start: tokenStart(first), End: tokenEnd(last)}
}

// parseOptions parses `option ( '&' option )*` after the '?'
func (p *Parser) parseOptions(root *ast.QueryNode) {
	if p.isAtEnd() {
		return
	}

	for {
		if opt := p.parseOption(); opt != nil {
			root.Options = append(root.Options, opt)
		}
		if !p.match(lexer.TOKEN_AMPERSAND) {
			return
		}
	}
}

// parseOption parses a single name=value option
func (p *Parser) parseOption() *ast.QueryOptionNode {
	if !p.check(lexer.TOKEN_NAME) {
		tok := p.peek()
		msg := "expected query option name"
		if tok.Type == lexer.TOKEN_EOF {
			msg = "expected query option name after '&'"
			if prev := p.previous(); prev.Type == lexer.TOKEN_AMPERSAND {
				tok = prev
			}
		}
		p.error(newTokenError(errors.ErrMissingOptionName, msg, tok))
		p.synchronize()
		return nil
	}

	name := p.advance()
	if i := strings.IndexFunc(name.Lexeme, func(r rune) bool { return !isNameChar(r) }); i >= 0 {
		p.error(errors.NewSyntaxError(errors.ErrInvalidOptionName,
			fmt.Sprintf("invalid character %q in query option name", name.Lexeme[i]),
			name.Line, name.Column+i, 1))
	}

	if !p.check(lexer.TOKEN_EQUALS) {
		p.error(newTokenError(errors.ErrMissingEquals,
			fmt.Sprintf("expected '=' after query option name '%s'", name.Lexeme), name))
		p.synchronize()
		return nil
	}
	equals := p.advance()

	opt := &ast.QueryOptionNode{
		Name:     name.Lexeme,
		System:   strings.HasPrefix(name.Lexeme, "$"),
		NameSpan: tokenSpan(name),
	}
	p.checkSystemOption(opt, name)

	var parts []string
	valueStart, valueEnd := tokenEnd(equals), tokenEnd(equals)
	for p.check(lexer.TOKEN_VALUE) {
		tok := p.advance()
		if len(parts) == 0 {
			valueStart = tokenStart(tok)
		}
		if tok.Lexeme != "" {
			parts = append(parts, tok.Lexeme)
		}
		valueEnd = tokenEnd(tok)
	}

	opt.Value = strings.Join(parts, " ")
	opt.ValueSpan = ast.Span{Start: valueStart, End: valueEnd}
	opt.Loc = ast.Span{Start: tokenStart(name), End: valueEnd}
	return opt
}

// checkSystemOption rejects unknown and repeated $-options
func (p *Parser) checkSystemOption(opt *ast.QueryOptionNode, name lexer.Token) {
	if !opt.System {
		return
	}
	if _, ok := LookupSystemOption(opt.Name); !ok {
		p.error(newTokenError(errors.ErrUnknownSystemOption,
			fmt.Sprintf("unknown system query option '%s'", opt.Name), name))
		return
	}
	if p.seen[opt.Key()] {
		p.error(newTokenError(errors.ErrDuplicateSystemOption,
			fmt.Sprintf("system query option '%s' is specified more than once", opt.Name), name))
		return
	}
	p.seen[opt.Key()] = true
}

// synchronize skips to the next '&' so the following option can be parsed
func (p *Parser) synchronize() {
	for !p.isAtEnd() && !p.check(lexer.TOKEN_AMPERSAND) {
		p.advance()
	}
}

func isNameChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r == '_' || r == '$' || r == '@' || r == '.' || r == '-' || r == '%' || r == '~'
}

// Helper methods

// peek returns the current token without consuming it
func (p *Parser) peek() lexer.Token {
	if p.current >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current]
}

// previous returns the most recently consumed token
func (p *Parser) previous() lexer.Token {
	if p.current == 0 {
		return lexer.Token{Type: lexer.TOKEN_EOF}
	}
	return p.tokens[p.current-1]
}

// advance consumes the current token and returns it
func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

// check returns true if the current token matches the given type
func (p *Parser) check(tokenType lexer.TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == tokenType
}

// match consumes the token if it matches the given type
func (p *Parser) match(tokenType lexer.TokenType) bool {
	if p.check(tokenType) {
		p.advance()
		return true
	}
	return false
}

// isAtEnd returns true if we've reached the end of the token stream
func (p *Parser) isAtEnd() bool {
	return p.current >= len(p.tokens) || p.tokens[p.current].Type == lexer.TOKEN_EOF
}

// error records a syntax error
func (p *Parser) error(err *errors.Error) {
	p.errors = append(p.errors, err)
}

func tokenStart(tok lexer.Token) ast.Position {
	return ast.Position{Offset: tok.Offset, Line: tok.Line, Column: tok.Column}
}

func tokenEnd(tok lexer.Token) ast.Position {
	return ast.Position{Offset: tok.End(), Line: tok.Line, Column: tok.Column + len(tok.Lexeme)}
}

func tokenSpan(tok lexer.Token) ast.Span {
	return ast.Span{Start: tokenStart(tok), End: tokenEnd(tok)}
}
