package ember

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const EOF rune = -1

type stateFunc func(l *Lexer) stateFunc

// Lexer turns source text into a token stream. It never fails: malformed
// input is reported through the diagnostics and emitted as TokenInvalid.
type Lexer struct {
	src   string
	diags *Diagnostics

	pos       int
	line, col int

	start    int
	startLoc Location

	tokens []Token
}

func NewLexer(source string, diags *Diagnostics) *Lexer {
	return &Lexer{
		src:   source,
		diags: diags,
		line:  1,
		col:   1,
	}
}

// Lex tokenizes source. The result always ends with a TokenEOF.
func Lex(source string, diags *Diagnostics) []Token {
	return NewLexer(source, diags).Run()
}

func (l *Lexer) Run() []Token {
	for state := defaultState; state != nil; {
		state = state(l)
	}

	return l.tokens
}

func defaultState(l *Lexer) stateFunc {
	for {
		if l.diags.Halted() {
			l.mark()
			return l.emit(TokenEOF)
		}

		switch r := l.peek(); {
		case r == EOF:
			l.mark()
			return l.emit(TokenEOF)
		case isWhitespace(r):
			l.next()
			continue
		case l.hasPrefix("//"):
			return lineCommentState
		case l.hasPrefix("/*"):
			return blockCommentState
		case l.operatorLen() > 0:
			return operatorState
		case r == '\'':
			return charState
		case r == '"':
			return stringState
		case '0' <= r && r <= '9':
			return numberState
		case r == '_' || unicode.IsLetter(r):
			return identifierState
		default:
			l.mark()
			l.next()
			return l.invalid("invalid character %q", r)
		}
	}
}

func isWhitespace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ':
		return true
	}

	return false
}

func lineCommentState(l *Lexer) stateFunc {
	for r := l.peek(); r != '\n' && r != EOF; r = l.peek() {
		l.next()
	}

	return defaultState
}

func blockCommentState(l *Lexer) stateFunc {
	l.mark()
	l.next() // Skip the opening /*
	l.next()

	for !l.hasPrefix("*/") {
		if l.next() == EOF {
			l.diags.Errorf(l.startLoc, "unterminated block comment")
			return defaultState
		}
	}

	l.next()
	l.next()
	return defaultState
}

// operatorLen returns the length of the longest operator at the current
// position, or 0.
func (l *Lexer) operatorLen() int {
	rest := l.src[l.pos:]
	for n := maxOperatorLen; n > 0; n-- {
		if len(rest) < n {
			continue
		}

		if _, ok := operatorTable[rest[:n]]; ok {
			return n
		}
	}

	return 0
}

func operatorState(l *Lexer) stateFunc {
	l.mark()

	n := l.operatorLen()
	for i := 0; i < n; i++ {
		l.next()
	}

	return l.emit(operatorTable[l.src[l.start:l.pos]])
}

func identifierState(l *Lexer) stateFunc {
	l.mark()
	for r := l.peek(); r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r); r = l.peek() {
		l.next()
	}

	return l.emit(classifyWord(l.src[l.start:l.pos]))
}

// numberState consumes the whole literal run first and validates it in one
// go, so that a malformed literal yields exactly one invalid token.
func numberState(l *Lexer) stateFunc {
	l.mark()

	radix := radixPrefix(l.src[l.pos:])
	if radix != 10 {
		l.next()
		l.next()
	}

	for {
		r := l.peek()
		switch {
		case r == '\'' || r == '.' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			l.next()

			if r < utf8.RuneSelf && isExponentMarker(byte(r), radix) {
				if s := l.peek(); s == '+' || s == '-' {
					l.next()
				}
			}
			continue
		}

		break
	}

	num, err := parseNumber(l.src[l.start:l.pos])
	if err != nil {
		return l.invalid("%s", err)
	}

	if num.isFloat {
		tok := l.token(TokenFloatLiteral)
		tok.Float = num.Float
		return l.push(tok)
	}

	tok := l.token(TokenIntLiteral)
	tok.Int = num.Int
	return l.push(tok)
}

func charState(l *Lexer) stateFunc {
	l.mark()
	l.next() // Skip the leading quote

	var c rune
	switch r := l.peek(); r {
	case '\'':
		l.next()
		return l.invalid("empty char literal")
	case EOF, '\n':
		return l.invalid("unterminated char literal")
	case '\\':
		l.next()

		var err error
		if c, err = l.escape(); err != nil {
			l.skipTo('\'')
			return l.invalid("%s", err)
		}
	default:
		c = l.next()
	}

	if l.peek() != '\'' {
		if l.skipTo('\'') {
			return l.invalid("char literal must contain exactly one character")
		}

		return l.invalid("unterminated char literal")
	}
	l.next()

	if c > 0xFF {
		return l.invalid("character %q does not fit in a char", c)
	}

	tok := l.token(TokenCharLiteral)
	tok.Int = uint64(c)
	tok.Text = string(c)
	return l.push(tok)
}

func stringState(l *Lexer) stateFunc {
	l.mark()
	l.next() // Skip the leading double-quote

	var str strings.Builder
	var firstErr error
	for {
		switch r := l.peek(); r {
		case EOF, '\n':
			return l.invalid("unterminated string literal")
		case '"':
			l.next()

			if firstErr != nil {
				return l.invalid("%s", firstErr)
			}

			tok := l.token(TokenStringLiteral)
			tok.Text = str.String()
			return l.push(tok)
		case '\\':
			l.next()

			c, err := l.escape()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			str.WriteRune(c)
		default:
			str.WriteRune(l.next())
		}
	}
}

// escape decodes an escape sequence whose backslash has been consumed.
func (l *Lexer) escape() (rune, error) {
	r := l.peek()
	if r == EOF || r == '\n' {
		return 0, fmt.Errorf("unterminated escape sequence")
	}
	l.next()

	switch r {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '0':
		return 0, nil
	case 'a':
		return '\a', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'v':
		return '\v', nil
	case '\\', '\'', '"':
		return r, nil
	case 'x':
		var v rune
		for i := 0; i < 2; i++ {
			h := l.peek()
			if h == EOF || h >= utf8.RuneSelf {
				return 0, fmt.Errorf("\\x escape needs two hexadecimal digits")
			}

			d, ok := digitValue(byte(h), 16)
			if !ok {
				return 0, fmt.Errorf("\\x escape needs two hexadecimal digits")
			}
			l.next()
			v = v<<4 | rune(d)
		}

		return v, nil
	}

	return r, fmt.Errorf("unknown escape sequence '\\%c'", r)
}

// skipTo consumes runes up to and including stop, without crossing a line.
// It reports whether stop was found.
func (l *Lexer) skipTo(stop rune) bool {
	for r := l.peek(); r != EOF && r != '\n'; r = l.peek() {
		l.next()
		if r == stop {
			return true
		}
	}

	return false
}

func (l *Lexer) invalid(format string, args ...interface{}) stateFunc {
	l.diags.Errorf(l.startLoc, format, args...)
	return l.emit(TokenInvalid)
}

func (l *Lexer) mark() {
	l.start = l.pos
	l.startLoc = Location{Line: l.line, Column: l.col}
}

func (l *Lexer) token(kind TokenKind) Token {
	return Token{
		Kind:   kind,
		Lexeme: l.src[l.start:l.pos],
		Loc:    l.startLoc,
	}
}

func (l *Lexer) emit(kind TokenKind) stateFunc {
	return l.push(l.token(kind))
}

func (l *Lexer) push(tok Token) stateFunc {
	l.tokens = append(l.tokens, tok)
	if tok.Kind == TokenEOF {
		return nil
	}

	return defaultState
}

func (l *Lexer) hasPrefix(s string) bool {
	return strings.HasPrefix(l.src[l.pos:], s)
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return EOF
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.src) {
		return EOF
	}

	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}

	return r
}
