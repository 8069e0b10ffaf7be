package ember

type AST struct {
	Filename   string
	Statements []Stmt
}

// Expr is the closed set of expression nodes. Every implementation lives in
// this file.
type Expr interface {
	GetLocation() Location
	exprNode()
}

// Stmt is the closed set of statement nodes.
type Stmt interface {
	GetLocation() Location
	stmtNode()
}

// TypeSpec is a type as written in the source: a type name followed by
// pointer levels.
type TypeSpec struct {
	Name     string
	Pointers int
	Loc      Location
}

// BadExpr stands in for an expression the parser could not make sense of.
type BadExpr struct {
	Loc   Location
	Error string
}

type IntLiteral struct {
	Loc      Location
	Value    uint64
	Negative bool
}

type FloatLiteral struct {
	Loc   Location
	Value float64
}

type CharLiteral struct {
	Loc   Location
	Value byte
}

type BoolLiteral struct {
	Loc   Location
	Value bool
}

type StringLiteral struct {
	Loc   Location
	Value string
}

type Identifier struct {
	Loc  Location
	Name string
}

type BinaryOp string

const (
	BinaryAssignment     BinaryOp = "="
	BinaryAddition       BinaryOp = "+"
	BinarySubtraction    BinaryOp = "-"
	BinaryMultiplication BinaryOp = "*"
	BinaryDivision       BinaryOp = "/"
)

type BinaryExpr struct {
	Loc       Location
	Operation BinaryOp
	Op1       Expr
	Op2       Expr
}

type AddressOf struct {
	Loc     Location
	Operand Expr
}

type Dereference struct {
	Loc     Location
	Operand Expr
}

type FuncCall struct {
	Loc  Location
	Name string
	Args []Expr
}

func (e *BadExpr) GetLocation() Location       { return e.Loc }
func (e *IntLiteral) GetLocation() Location    { return e.Loc }
func (e *FloatLiteral) GetLocation() Location  { return e.Loc }
func (e *CharLiteral) GetLocation() Location   { return e.Loc }
func (e *BoolLiteral) GetLocation() Location   { return e.Loc }
func (e *StringLiteral) GetLocation() Location { return e.Loc }
func (e *Identifier) GetLocation() Location    { return e.Loc }
func (e *BinaryExpr) GetLocation() Location    { return e.Loc }
func (e *AddressOf) GetLocation() Location     { return e.Loc }
func (e *Dereference) GetLocation() Location   { return e.Loc }
func (e *FuncCall) GetLocation() Location      { return e.Loc }

func (*BadExpr) exprNode()       {}
func (*IntLiteral) exprNode()    {}
func (*FloatLiteral) exprNode()  {}
func (*CharLiteral) exprNode()   {}
func (*BoolLiteral) exprNode()   {}
func (*StringLiteral) exprNode() {}
func (*Identifier) exprNode()    {}
func (*BinaryExpr) exprNode()    {}
func (*AddressOf) exprNode()     {}
func (*Dereference) exprNode()   {}
func (*FuncCall) exprNode()      {}

// BadStmt stands in for a statement the parser had to skip.
type BadStmt struct {
	Loc   Location
	Error string
}

// VariableDecl covers both `let name: type = value;` and `type name = value;`.
// Type and Value may each be nil, but not both.
type VariableDecl struct {
	Loc   Location
	Name  string
	Type  *TypeSpec
	Value Expr
}

type Param struct {
	Loc  Location
	Name string
	Type TypeSpec
}

// FuncDecl is a function signature. Return is nil when the source omits it,
// which means void.
type FuncDecl struct {
	Loc    Location
	Name   string
	Params []Param
	Return *TypeSpec
}

type FuncDef struct {
	FuncDecl
	Body []Stmt
}

// ReturnStmt has a nil Value for a bare `return;`.
type ReturnStmt struct {
	Loc   Location
	Value Expr
}

type ExprStmt struct {
	Loc  Location
	Expr Expr
}

func (s *BadStmt) GetLocation() Location      { return s.Loc }
func (s *VariableDecl) GetLocation() Location { return s.Loc }
func (s *FuncDecl) GetLocation() Location     { return s.Loc }
func (s *FuncDef) GetLocation() Location      { return s.Loc }
func (s *ReturnStmt) GetLocation() Location   { return s.Loc }
func (s *ExprStmt) GetLocation() Location     { return s.Loc }

func (*BadStmt) stmtNode()      {}
func (*VariableDecl) stmtNode() {}
func (*FuncDecl) stmtNode()     {}
func (*FuncDef) stmtNode()      {}
func (*ReturnStmt) stmtNode()   {}
func (*ExprStmt) stmtNode()     {}
