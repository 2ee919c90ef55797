package lexer

import (
	"github.com/funvibe/glox/internal/token"
)

// Lexer turns source text into tokens on demand.
// Lexemes are substrings of the input, so no text is copied.
type Lexer struct {
	input   string
	start   int // start of the lexeme being scanned
	current int // next byte to read
	line    int
}

func New(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// NextToken scans and returns the next token. Once the input is
// exhausted it keeps returning EOF.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()
	l.start = l.current

	if l.isAtEnd() {
		return l.makeToken(token.EOF)
	}

	ch := l.advance()

	if isDigit(ch) {
		return l.readNumber()
	}
	if isLetter(ch) {
		return l.readIdentifier()
	}

	switch ch {
	case '(':
		return l.makeToken(token.LEFT_PAREN)
	case ')':
		return l.makeToken(token.RIGHT_PAREN)
	case '{':
		return l.makeToken(token.LEFT_BRACE)
	case '}':
		return l.makeToken(token.RIGHT_BRACE)
	case ';':
		return l.makeToken(token.SEMICOLON)
	case ',':
		return l.makeToken(token.COMMA)
	case '.':
		return l.makeToken(token.DOT)
	case '-':
		return l.makeToken(token.MINUS)
	case '+':
		return l.makeToken(token.PLUS)
	case '/':
		return l.makeToken(token.SLASH)
	case '*':
		return l.makeToken(token.STAR)
	case '!':
		return l.makeToken(l.pick('=', token.BANG_EQUAL, token.BANG))
	case '=':
		return l.makeToken(l.pick('=', token.EQUAL_EQUAL, token.EQUAL))
	case '<':
		return l.makeToken(l.pick('=', token.LESS_EQUAL, token.LESS))
	case '>':
		return l.makeToken(l.pick('=', token.GREATER_EQUAL, token.GREATER))
	case '"':
		return l.readString()
	}

	return l.errorToken("Unexpected character.")
}

// Line returns the line the cursor is on.
func (l *Lexer) Line() int {
	return l.line
}

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.input)
}

func (l *Lexer) advance() byte {
	ch := l.input[l.current]
	l.current++
	return ch
}

func (l *Lexer) peekChar() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.input[l.current]
}

func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.input) {
		return 0
	}
	return l.input[l.current+1]
}

// pick consumes expected if it is next and returns matched, else single
func (l *Lexer) pick(expected byte, matched, single token.TokenType) token.TokenType {
	if l.isAtEnd() || l.input[l.current] != expected {
		return single
	}
	l.current++
	return matched
}

func (l *Lexer) makeToken(t token.TokenType) token.Token {
	return token.Token{Type: t, Lexeme: l.input[l.start:l.current], Line: l.line}
}

func (l *Lexer) errorToken(message string) token.Token {
	return token.Token{Type: token.ERROR, Lexeme: message, Line: l.line}
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		switch l.peekChar() {
		case '\n':
			l.line++
			l.current++
		case ' ', '\r', '\t':
			l.current++
		case '/':
			if l.peekNext() != '/' {
				return
			}
			for l.peekChar() != '\n' && !l.isAtEnd() {
				l.current++
			}
		default:
			return
		}
	}
}

// readString scans a string literal. There are no escape sequences;
// the lexeme keeps its quotes.
func (l *Lexer) readString() token.Token {
	for l.peekChar() != '"' && !l.isAtEnd() {
		if l.peekChar() == '\n' {
			l.line++
		}
		l.current++
	}

	if l.isAtEnd() {
		return l.errorToken("Unterminated string.")
	}

	l.current++ // closing quote
	return l.makeToken(token.STRING)
}

func (l *Lexer) readNumber() token.Token {
	for isDigit(l.peekChar()) {
		l.current++
	}

	// A fractional part needs at least one digit after the dot.
	if l.peekChar() == '.' && isDigit(l.peekNext()) {
		l.current++
		for isDigit(l.peekChar()) {
			l.current++
		}
	}

	return l.makeToken(token.NUMBER)
}

func (l *Lexer) readIdentifier() token.Token {
	for isLetter(l.peekChar()) || isDigit(l.peekChar()) {
		l.current++
	}
	return l.makeToken(token.LookupIdent(l.input[l.start:l.current]))
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
