package ember

import "fmt"

// Parser is a recursive descent parser with precedence climbing for binary
// operators. Syntax errors are reported through the diagnostics; the parser
// then inserts a placeholder node and resynchronizes on the next ';' or '}'.
type Parser struct {
	tokens []Token
	pos    int
	diags  *Diagnostics

	lastErrLine int
}

func NewParser(tokens []Token, diags *Diagnostics) *Parser {
	return &Parser{
		tokens: tokens,
		diags:  diags,
	}
}

func Parse(tokens []Token, diags *Diagnostics) *AST {
	return NewParser(tokens, diags).Run()
}

func (p *Parser) Run() *AST {
	return &AST{
		Filename:   p.diags.Path(),
		Statements: p.statements(TokenEOF),
	}
}

// statements parses until the terminator (left unconsumed) or end of file.
func (p *Parser) statements(terminator TokenKind) []Stmt {
	var stmts []Stmt
	for tok := p.peek(); tok.Kind != terminator && tok.Kind != TokenEOF; tok = p.peek() {
		if p.diags.Halted() {
			break
		}

		if tok.Kind == TokenSemicolon {
			p.next() // Empty statement
			continue
		}

		start := p.pos
		stmts = append(stmts, p.statement())

		if p.pos == start {
			// Always make progress, e.g. on a stray '}' at top level
			p.next()
		}
	}

	return stmts
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		if len(p.tokens) == 0 {
			return Token{Kind: TokenEOF}
		}

		return p.tokens[len(p.tokens)-1]
	}

	return p.tokens[p.pos]
}

func (p *Parser) next() Token {
	tok := p.peek()
	if tok.Kind != TokenEOF && p.pos < len(p.tokens) {
		p.pos++
	}

	return tok
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) consume(kind TokenKind) bool {
	if !p.check(kind) {
		return false
	}

	p.next()
	return true
}

// expect consumes a token of the given kind, or reports that it is missing
// and leaves the input untouched.
func (p *Parser) expect(kind TokenKind) (Token, bool) {
	tok := p.peek()
	if tok.Kind != kind {
		p.errorf(tok.Loc, "expected %s, found %s", kind, describe(tok))
		return tok, false
	}

	return p.next(), true
}

func describe(tok Token) string {
	switch tok.Kind {
	case TokenEOF:
		return "end of file"
	case TokenIdentifier, TokenType, TokenIntLiteral, TokenFloatLiteral, TokenBoolLiteral, TokenInvalid:
		return fmt.Sprintf("%s '%s'", tok.Kind, tok.Lexeme)
	}

	return tok.Kind.String()
}

// errorf reports a syntax error. Only the first error of a line is reported,
// follow-up errors are almost always noise.
func (p *Parser) errorf(loc Location, format string, args ...interface{}) {
	if loc.Line != 0 && loc.Line == p.lastErrLine {
		return
	}

	p.lastErrLine = loc.Line
	p.diags.Errorf(loc, format, args...)
}

func (p *Parser) badExpr(loc Location, format string, args ...interface{}) Expr {
	msg := fmt.Sprintf(format, args...)
	p.errorf(loc, "%s", msg)

	return &BadExpr{Loc: loc, Error: msg}
}

// badStmt skips the rest of a broken statement.
func (p *Parser) badStmt(loc Location, msg string) Stmt {
	p.sync()
	return &BadStmt{Loc: loc, Error: msg}
}

func (p *Parser) sync() {
	for {
		switch p.peek().Kind {
		case TokenEOF, TokenCloseCurly:
			return
		case TokenSemicolon:
			p.next()
			return
		}

		p.next()
	}
}

func (p *Parser) statement() Stmt {
	switch tok := p.peek(); tok.Kind {
	case TokenFn:
		return p.funcDecl()
	case TokenLet:
		return p.letDecl()
	case TokenType:
		return p.typedDecl()
	case TokenReturn:
		return p.returnStmt()
	default:
		return p.exprStmt()
	}
}

// endStmt expects the closing semicolon of a simple statement.
func (p *Parser) endStmt(stmt Stmt) Stmt {
	if _, ok := p.expect(TokenSemicolon); !ok {
		return p.badStmt(stmt.GetLocation(), "missing ';'")
	}

	return stmt
}

func (p *Parser) typeSpec() (*TypeSpec, bool) {
	tok, ok := p.expect(TokenType)
	if !ok {
		return nil, false
	}

	spec := &TypeSpec{Name: tok.Lexeme, Loc: tok.Loc}
	for p.consume(TokenStar) {
		spec.Pointers++
	}

	return spec, true
}

// let name [: type] [= expr];
func (p *Parser) letDecl() Stmt {
	start := p.next().Loc // let keyword

	name, ok := p.expect(TokenIdentifier)
	if !ok {
		return p.badStmt(start, "bad variable declaration")
	}

	decl := &VariableDecl{Loc: start, Name: name.Lexeme}
	if p.consume(TokenColon) {
		if decl.Type, ok = p.typeSpec(); !ok {
			return p.badStmt(start, "bad variable type")
		}
	}

	if p.consume(TokenAssign) {
		decl.Value = p.expr()
	}

	return p.endStmt(decl)
}

// type name [= expr];
func (p *Parser) typedDecl() Stmt {
	start := p.peek().Loc

	typ, _ := p.typeSpec()
	name, ok := p.expect(TokenIdentifier)
	if !ok {
		return p.badStmt(start, "bad variable declaration")
	}

	decl := &VariableDecl{Loc: start, Name: name.Lexeme, Type: typ}
	if p.consume(TokenAssign) {
		decl.Value = p.expr()
	}

	return p.endStmt(decl)
}

// fn name(param: type, ...) [-> type] (; | { stmt* })
func (p *Parser) funcDecl() Stmt {
	start := p.next().Loc // fn keyword

	name, ok := p.expect(TokenIdentifier)
	if !ok {
		return p.badStmt(start, "expected function name")
	}

	decl := FuncDecl{Loc: start, Name: name.Lexeme}
	if _, ok := p.expect(TokenOpenParentheses); !ok {
		return p.badStmt(start, "bad function declaration")
	}

	for !p.check(TokenCloseParentheses) {
		param, ok := p.param()
		if !ok {
			return p.badStmt(start, "bad parameter list")
		}
		decl.Params = append(decl.Params, param)

		if !p.consume(TokenComma) {
			break
		}
	}

	if _, ok := p.expect(TokenCloseParentheses); !ok {
		return p.badStmt(start, "bad parameter list")
	}

	if p.consume(TokenArrow) {
		if decl.Return, ok = p.typeSpec(); !ok {
			return p.badStmt(start, "bad return type")
		}
	}

	if p.consume(TokenSemicolon) {
		return &decl
	}

	if _, ok := p.expect(TokenOpenCurly); !ok {
		return p.badStmt(start, "expected function body")
	}

	def := &FuncDef{
		FuncDecl: decl,
		Body:     p.statements(TokenCloseCurly),
	}

	if _, ok := p.expect(TokenCloseCurly); !ok {
		return &BadStmt{Loc: start, Error: "unclosed function body"}
	}

	return def
}

func (p *Parser) param() (Param, bool) {
	name, ok := p.expect(TokenIdentifier)
	if !ok {
		return Param{}, false
	}

	if _, ok := p.expect(TokenColon); !ok {
		return Param{}, false
	}

	typ, ok := p.typeSpec()
	if !ok {
		return Param{}, false
	}

	return Param{Loc: name.Loc, Name: name.Lexeme, Type: *typ}, true
}

func (p *Parser) returnStmt() Stmt {
	start := p.next().Loc // return keyword

	ret := &ReturnStmt{Loc: start}
	if !p.check(TokenSemicolon) {
		ret.Value = p.expr()
	}

	return p.endStmt(ret)
}

func (p *Parser) exprStmt() Stmt {
	start := p.peek().Loc
	return p.endStmt(&ExprStmt{Loc: start, Expr: p.expr()})
}

func (p *Parser) expr() Expr {
	return p.binaryExpr(0)
}

func precedence(kind TokenKind) int {
	switch kind {
	case TokenAssign:
		return 5
	case TokenPlus, TokenMinus:
		return 10
	case TokenStar, TokenSlash:
		return 20
	}

	return 0
}

func rightAssociative(kind TokenKind) bool {
	return kind == TokenAssign
}

// binaryExpr consumes operators binding tighter than minPrec and builds a
// left-deepening tree, except for right-associative operators.
func (p *Parser) binaryExpr(minPrec int) Expr {
	lhs := p.unaryExpr()

	for {
		op := p.peek()
		prec := precedence(op.Kind)
		if prec == 0 || prec <= minPrec {
			return lhs
		}
		p.next()

		nextMin := prec
		if rightAssociative(op.Kind) {
			nextMin = prec - 1
		}

		lhs = &BinaryExpr{
			Loc:       op.Loc,
			Operation: BinaryOp(op.Lexeme),
			Op1:       lhs,
			Op2:       p.binaryExpr(nextMin),
		}
	}
}

func (p *Parser) unaryExpr() Expr {
	switch tok := p.peek(); tok.Kind {
	case TokenAmpersand:
		p.next()
		return &AddressOf{Loc: tok.Loc, Operand: p.unaryExpr()}
	case TokenStar:
		p.next()
		return &Dereference{Loc: tok.Loc, Operand: p.unaryExpr()}
	case TokenMinus, TokenPlus:
		p.next()
		return signed(tok, p.unaryExpr())
	}

	return p.primary()
}

// signed folds a leading sign into a numeric literal, or rewrites -x as 0 - x.
func signed(sign Token, operand Expr) Expr {
	negate := sign.Kind == TokenMinus

	switch e := operand.(type) {
	case *IntLiteral:
		e.Loc = sign.Loc
		if negate {
			e.Negative = !e.Negative
		}
		return e
	case *FloatLiteral:
		e.Loc = sign.Loc
		if negate {
			e.Value = -e.Value
		}
		return e
	case *BadExpr:
		return e
	}

	if !negate {
		return operand
	}

	return &BinaryExpr{
		Loc:       sign.Loc,
		Operation: BinarySubtraction,
		Op1:       &IntLiteral{Loc: sign.Loc},
		Op2:       operand,
	}
}

func (p *Parser) primary() Expr {
	tok := p.peek()

	switch tok.Kind {
	case TokenOpenParentheses:
		return p.parenthesisedExpression()
	case TokenIdentifier:
		p.next()
		if p.check(TokenOpenParentheses) {
			return p.funcCall(tok)
		}

		return &Identifier{Loc: tok.Loc, Name: tok.Lexeme}
	case TokenIntLiteral:
		p.next()
		return &IntLiteral{Loc: tok.Loc, Value: tok.Int}
	case TokenFloatLiteral:
		p.next()
		return &FloatLiteral{Loc: tok.Loc, Value: tok.Float}
	case TokenCharLiteral:
		p.next()
		return &CharLiteral{Loc: tok.Loc, Value: byte(tok.Int)}
	case TokenBoolLiteral:
		p.next()
		return &BoolLiteral{Loc: tok.Loc, Value: tok.Lexeme == "true"}
	case TokenStringLiteral:
		p.next()
		return &StringLiteral{Loc: tok.Loc, Value: tok.Text}
	case TokenInvalid:
		p.next()
		return p.badExpr(tok.Loc, "invalid token '%s'", tok.Lexeme)
	case TokenSemicolon, TokenCloseParentheses, TokenCloseCurly, TokenEOF:
		// Left for the enclosing statement to resynchronize on
		return p.badExpr(tok.Loc, "expected expression, found %s", describe(tok))
	}

	p.next() // Skip the offending token
	return p.badExpr(tok.Loc, "unexpected %s in expression", describe(tok))
}

func (p *Parser) parenthesisedExpression() Expr {
	p.next() // Skip (

	exp := p.expr()
	if tok, ok := p.expect(TokenCloseParentheses); !ok {
		return &BadExpr{Loc: tok.Loc, Error: "expected closing parenthesis"}
	}

	return exp
}

func (p *Parser) funcCall(name Token) Expr {
	p.next() // Skip (

	call := &FuncCall{Loc: name.Loc, Name: name.Lexeme}
	for !p.check(TokenCloseParentheses) && !p.check(TokenEOF) {
		call.Args = append(call.Args, p.expr())

		if !p.consume(TokenComma) {
			break
		}
	}

	if tok, ok := p.expect(TokenCloseParentheses); !ok {
		return &BadExpr{Loc: tok.Loc, Error: "bad function call"}
	}

	return call
}
