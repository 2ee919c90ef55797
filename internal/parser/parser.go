// Package parser holds the token cursor shared by the single-pass compiler:
// one token of lookahead, error reporting and panic-mode recovery.
package parser

import (
	"github.com/funvibe/glox/internal/diagnostics"
	"github.com/funvibe/glox/internal/lexer"
	"github.com/funvibe/glox/internal/token"
	"github.com/hashicorp/go-multierror"
)

type Parser struct {
	l *lexer.Lexer

	Current  token.Token
	Previous token.Token

	hadError  bool
	panicMode bool
	errs      *multierror.Error
}

// New creates a parser over source. Call Advance once to prime Current.
func New(source string) *Parser {
	return &Parser{
		l:    lexer.New(source),
		errs: &multierror.Error{ErrorFormat: diagnostics.FormatList},
	}
}

// Advance shifts Current into Previous and scans the next non-error token.
// Error tokens are reported on the way.
func (p *Parser) Advance() {
	p.Previous = p.Current
	for {
		p.Current = p.l.NextToken()
		if p.Current.Type != token.ERROR {
			break
		}
		p.ErrorAtCurrent(p.Current.Lexeme)
	}
}

// Consume advances past a token of type t or reports message at Current.
func (p *Parser) Consume(t token.TokenType, message string) {
	if p.Current.Type == t {
		p.Advance()
		return
	}
	p.ErrorAtCurrent(message)
}

func (p *Parser) Check(t token.TokenType) bool {
	return p.Current.Type == t
}

// Match consumes Current if it has type t.
func (p *Parser) Match(t token.TokenType) bool {
	if !p.Check(t) {
		return false
	}
	p.Advance()
	return true
}

// Error reports at the previous token.
func (p *Parser) Error(message string) {
	p.errorAt(p.Previous, message)
}

func (p *Parser) ErrorAtCurrent(message string) {
	p.errorAt(p.Current, message)
}

// errorAt records a diagnostic unless the parser is already panicking,
// which suppresses cascades until Synchronize.
func (p *Parser) errorAt(tok token.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	p.errs = multierror.Append(p.errs, diagnostics.NewTokenError(tok, message))
}

// Synchronize skips tokens until a likely statement boundary.
func (p *Parser) Synchronize() {
	p.panicMode = false

	for p.Current.Type != token.EOF {
		if p.Previous.Type == token.SEMICOLON {
			return
		}
		switch p.Current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.Advance()
	}
}

func (p *Parser) HadError() bool {
	return p.hadError
}

func (p *Parser) PanicMode() bool {
	return p.panicMode
}

// Errors returns every diagnostic reported so far, or nil.
func (p *Parser) Errors() error {
	return p.errs.ErrorOrNil()
}
