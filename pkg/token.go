package ember

import (
	"fmt"
	"sort"
)

type TokenKind int

const (
	TokenInvalid TokenKind = iota
	TokenEOF

	TokenIdentifier
	TokenType // data-type keyword: int, double, ...

	// Control keywords
	TokenFn
	TokenLet
	TokenReturn

	// Literals
	TokenIntLiteral
	TokenFloatLiteral
	TokenCharLiteral
	TokenStringLiteral
	TokenBoolLiteral

	// Operators and punctuation
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenAssign
	TokenEqual
	TokenNotEqual
	TokenLess
	TokenLessEqual
	TokenGreater
	TokenGreaterEqual
	TokenShiftLeft
	TokenShiftRight
	TokenShiftLeftAssign
	TokenShiftRightAssign
	TokenPlusAssign
	TokenMinusAssign
	TokenStarAssign
	TokenSlashAssign
	TokenAmpersand
	TokenAndAnd
	TokenPipe
	TokenOrOr
	TokenCaret
	TokenBang
	TokenTilde
	TokenArrow
	TokenOpenParentheses
	TokenCloseParentheses
	TokenOpenCurly
	TokenCloseCurly
	TokenOpenBracket
	TokenCloseBracket
	TokenComma
	TokenSemicolon
	TokenColon
	TokenDot
)

var tokenNames = map[TokenKind]string{
	TokenInvalid:       "invalid token",
	TokenEOF:           "end of file",
	TokenIdentifier:    "identifier",
	TokenType:          "type name",
	TokenFn:            "'fn'",
	TokenLet:           "'let'",
	TokenReturn:        "'return'",
	TokenIntLiteral:    "integer literal",
	TokenFloatLiteral:  "float literal",
	TokenCharLiteral:   "char literal",
	TokenStringLiteral: "string literal",
	TokenBoolLiteral:   "bool literal",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}

	for op, kind := range operatorTable {
		if kind == k {
			return "'" + op + "'"
		}
	}

	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// operatorTable maps every punctuation/operator spelling to its kind. Lookups
// try the longest spelling first.
var operatorTable = map[string]TokenKind{
	"+":   TokenPlus,
	"-":   TokenMinus,
	"*":   TokenStar,
	"/":   TokenSlash,
	"%":   TokenPercent,
	"=":   TokenAssign,
	"==":  TokenEqual,
	"!=":  TokenNotEqual,
	"<":   TokenLess,
	"<=":  TokenLessEqual,
	">":   TokenGreater,
	">=":  TokenGreaterEqual,
	"<<":  TokenShiftLeft,
	">>":  TokenShiftRight,
	"<<=": TokenShiftLeftAssign,
	">>=": TokenShiftRightAssign,
	"+=":  TokenPlusAssign,
	"-=":  TokenMinusAssign,
	"*=":  TokenStarAssign,
	"/=":  TokenSlashAssign,
	"&":   TokenAmpersand,
	"&&":  TokenAndAnd,
	"|":   TokenPipe,
	"||":  TokenOrOr,
	"^":   TokenCaret,
	"!":   TokenBang,
	"~":   TokenTilde,
	"->":  TokenArrow,
	"(":   TokenOpenParentheses,
	")":   TokenCloseParentheses,
	"{":   TokenOpenCurly,
	"}":   TokenCloseCurly,
	"[":   TokenOpenBracket,
	"]":   TokenCloseBracket,
	",":   TokenComma,
	";":   TokenSemicolon,
	":":   TokenColon,
	".":   TokenDot,
}

const maxOperatorLen = 3

type keyword struct {
	word string
	kind TokenKind
}

// keywordTable must stay sorted by word.
var keywordTable = []keyword{
	{"false", TokenBoolLiteral},
	{"fn", TokenFn},
	{"let", TokenLet},
	{"return", TokenReturn},
	{"true", TokenBoolLiteral},
}

// typeNameTable must stay sorted.
var typeNameTable = []string{
	"bool",
	"char",
	"double",
	"float",
	"int",
	"long",
	"quad",
	"short",
	"void",
}

// classifyWord decides whether a word is a keyword, a type name or a plain
// identifier.
func classifyWord(word string) TokenKind {
	i := sort.Search(len(keywordTable), func(i int) bool {
		return keywordTable[i].word >= word
	})
	if i < len(keywordTable) && keywordTable[i].word == word {
		return keywordTable[i].kind
	}

	j := sort.SearchStrings(typeNameTable, word)
	if j < len(typeNameTable) && typeNameTable[j] == word {
		return TokenType
	}

	return TokenIdentifier
}

// Location is a 1-based line and column (in runes) inside a source file.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

type Token struct {
	Kind   TokenKind
	Lexeme string
	Loc    Location

	// Decoded literal payloads.
	Int   uint64
	Float float64
	Text  string
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return t.Kind.String()
	}

	return fmt.Sprintf("%s %q", t.Kind, t.Lexeme)
}
