package ember

import "math"

// Generator walks an AST once and emits typed instructions into a Module.
// A Generator serves a single compilation unit.
type Generator struct {
	mod    *Module
	diags  *Diagnostics
	scopes *ScopeStack

	// b is nil outside of function bodies, where only constant expressions
	// can be generated.
	b *FuncBuilder
}

func NewGenerator(mod *Module, diags *Diagnostics) *Generator {
	return &Generator{
		mod:    mod,
		diags:  diags,
		scopes: NewScopeStack(),
	}
}

// Generate emits every top level statement of the AST. The Module is only
// returned when the unit has no errors.
func (g *Generator) Generate(ast *AST) (*Module, error) {
	for _, stmt := range ast.Statements {
		if g.diags.Halted() {
			break
		}

		mark := len(g.mod.Globals)
		if err := g.topLevel(stmt); err != nil {
			g.mod.Globals = g.mod.Globals[:mark]
			g.diags.ReportError(err)
		}
	}

	if err := g.diags.Err(); err != nil {
		return nil, err
	}

	g.diags.Infof("generated %d functions and %d globals", len(g.mod.Functions), len(g.mod.Globals))
	return g.mod, nil
}

func (g *Generator) topLevel(stmt Stmt) error {
	switch s := stmt.(type) {
	case *VariableDecl:
		return g.variableDecl(s)
	case *FuncDecl:
		_, err := g.declareFunc(s)
		return err
	case *FuncDef:
		return g.function(s)
	case *ReturnStmt:
		return semanticErrorf(s.Loc, "return outside of a function")
	case *ExprStmt:
		return semanticErrorf(s.Loc, "expression statement outside of a function")
	case *BadStmt:
		return semanticErrorf(s.Loc, "invalid statement")
	}

	return internalErrorf(stmt.GetLocation(), "unexpected statement %T", stmt)
}

func (g *Generator) statement(stmt Stmt) error {
	switch s := stmt.(type) {
	case *VariableDecl:
		return g.variableDecl(s)
	case *ReturnStmt:
		return g.returnStmt(s)
	case *ExprStmt:
		_, err := g.rvalue(s.Expr)
		return err
	case *FuncDecl, *FuncDef:
		return semanticErrorf(s.GetLocation(), "functions can only be declared at the top level")
	case *BadStmt:
		return semanticErrorf(s.Loc, "invalid statement")
	}

	return internalErrorf(stmt.GetLocation(), "unexpected statement %T", stmt)
}

func (g *Generator) resolveType(spec TypeSpec) (Type, error) {
	t, ok := LookupType(spec.Name, spec.Pointers)
	if !ok {
		return Type{}, &UndefinedError{Loc: spec.Loc, What: "type", Name: spec.Name}
	}

	return t, nil
}

func (g *Generator) signature(decl *FuncDecl) ([]*FuncParam, Type, error) {
	ret := Void
	if decl.Return != nil {
		var err error
		if ret, err = g.resolveType(*decl.Return); err != nil {
			return nil, Type{}, err
		}
	}

	params := make([]*FuncParam, 0, len(decl.Params))
	seen := make(map[string]bool)
	for _, p := range decl.Params {
		typ, err := g.resolveType(p.Type)
		if err != nil {
			return nil, Type{}, err
		}

		if typ.IsVoid() {
			return nil, Type{}, semanticErrorf(p.Loc, "parameter %s declared void", p.Name)
		}

		if seen[p.Name] {
			return nil, Type{}, &RedefinitionError{Loc: p.Loc, What: "parameter", Name: p.Name}
		}
		seen[p.Name] = true

		params = append(params, &FuncParam{Name: p.Name, Type: typ})
	}

	return params, ret, nil
}

// declareFunc registers a function signature. Declaring a function again is
// allowed as long as the signature matches.
func (g *Generator) declareFunc(decl *FuncDecl) (*Function, error) {
	params, ret, err := g.signature(decl)
	if err != nil {
		return nil, err
	}

	if prev := g.mod.Function(decl.Name); prev != nil {
		sig := FuncSignature{Return: ret}
		for _, p := range params {
			sig.Params = append(sig.Params, p.Type)
		}

		if !prev.Signature().Equals(sig) {
			return nil, semanticErrorf(decl.Loc, "conflicting declaration of %s: %s, previously %s",
				decl.Name, sig, prev.Signature())
		}

		return prev, nil
	}

	if g.mod.Global(decl.Name) != nil {
		return nil, &RedefinitionError{Loc: decl.Loc, What: "symbol", Name: decl.Name}
	}

	fn := g.mod.NewFunction(decl.Name, ret, params...)
	fn.Loc = decl.Loc

	return fn, nil
}

func (g *Generator) function(def *FuncDef) error {
	fn, err := g.declareFunc(&def.FuncDecl)
	if err != nil {
		return err
	}

	if fn.Defined {
		return &RedefinitionError{Loc: def.Loc, What: "function", Name: def.Name}
	}

	// Parameter names come from the definition, not from earlier declarations.
	params, _, _ := g.signature(&def.FuncDecl)
	fn.Params = params
	fn.Defined = true
	fn.Loc = def.Loc

	prevBuilder := g.b
	g.b = NewFuncBuilder(fn)
	g.scopes.Push()

	defer func() {
		g.scopes.Pop()
		g.b = prevBuilder
	}()

	for i, p := range fn.Params {
		slot := g.b.Alloca(p.Type)
		g.b.Store(g.b.Param(i), slot)

		sym := &Symbol{Name: p.Name, Type: p.Type, Loc: def.Params[i].Loc, Storage: slot}
		if err := g.scopes.Declare(sym); err != nil {
			return err
		}
	}

	for _, stmt := range def.Body {
		if g.diags.Halted() {
			break
		}

		if g.b.Terminated() {
			g.diags.Warnf(stmt.GetLocation(), "unreachable code after return")
			break
		}

		// A failed statement leaves nothing behind, including the string
		// literals it interned.
		mark, globals := len(fn.Body), len(g.mod.Globals)
		if err := g.statement(stmt); err != nil {
			fn.Body = fn.Body[:mark]
			g.mod.Globals = g.mod.Globals[:globals]
			g.diags.ReportError(err)
		}
	}

	if !g.b.Terminated() {
		g.defaultTerminator()
	}

	g.diags.Debugf("generated function %s %s", fn.Name, fn.Signature())
	return Verify(g.mod, fn)
}

// defaultTerminator closes a body that falls off its end.
func (g *Generator) defaultTerminator() {
	ret := g.b.Function().Return
	switch {
	case ret.IsVoid():
		g.b.Ret(nil)
	case ret.IsNumeric() || ret.IsPointer():
		g.b.Ret(zeroValue(ret))
	default:
		g.b.Unreachable()
	}
}

func zeroValue(t Type) Constant {
	switch {
	case t.IsFloat():
		return &FloatConst{Typ: t}
	case t.IsPointer():
		return &NullConst{Typ: t}
	}

	return &IntConst{Typ: t}
}

func (g *Generator) variableDecl(decl *VariableDecl) error {
	var typ Type
	if decl.Type != nil {
		var err error
		if typ, err = g.resolveType(*decl.Type); err != nil {
			return err
		}
	}

	var init Value
	switch {
	case decl.Value != nil:
		v, err := g.value(decl.Value)
		if err != nil {
			return err
		}

		if decl.Type == nil {
			typ = v.Type()
		}

		if init, err = Cast(g.b, decl.Value.GetLocation(), v, typ); err != nil {
			return err
		}
	case decl.Type == nil:
		return semanticErrorf(decl.Loc, "cannot infer the type of %s without an initializer", decl.Name)
	}

	if typ.IsVoid() {
		return semanticErrorf(decl.Loc, "variable %s declared void", decl.Name)
	}

	sym := &Symbol{Name: decl.Name, Type: typ, Loc: decl.Loc}
	if typ.IsPointer() {
		sym.Pointee = g.pointeeOf(decl.Value)
	}

	if g.scopes.IsGlobal() {
		return g.globalDecl(sym, init)
	}

	if err := g.scopes.Declare(sym); err != nil {
		return err
	}

	if init == nil {
		init = zeroValue(typ)
	}

	slot := g.b.Alloca(typ)
	g.b.Store(init, slot)
	sym.Storage = slot

	return nil
}

func (g *Generator) globalDecl(sym *Symbol, init Value) error {
	var c Constant
	if init != nil {
		var ok bool
		if c, ok = init.(Constant); !ok {
			return internalErrorf(sym.Loc, "global %s has a non constant initializer %s", sym.Name, init)
		}
	}

	if g.mod.Function(sym.Name) != nil {
		return &RedefinitionError{Loc: sym.Loc, What: "symbol", Name: sym.Name}
	}

	if err := g.scopes.Declare(sym); err != nil {
		return err
	}

	glob := g.mod.NewGlobal(sym.Name, sym.Type, c)
	sym.Storage = &GlobalAddr{Global: glob}
	sym.Global = true

	g.diags.Debugf("generated global %s %s", sym.Name, sym.Type)
	return nil
}

// pointeeOf finds the named variable a pointer initializer refers to.
func (g *Generator) pointeeOf(init Expr) *SymbolKey {
	switch e := init.(type) {
	case *AddressOf:
		if id, ok := e.Operand.(*Identifier); ok {
			if sym, ok := g.scopes.Lookup(id.Name); ok {
				key := sym.Key()
				return &key
			}
		}
	case *Identifier:
		if sym, ok := g.scopes.Lookup(e.Name); ok && sym.Pointee != nil {
			key := *sym.Pointee
			return &key
		}
	}

	return nil
}

func (g *Generator) returnStmt(ret *ReturnStmt) error {
	fn := g.b.Function()

	if ret.Value == nil {
		if !fn.Return.IsVoid() {
			return semanticErrorf(ret.Loc, "missing return value in function %s returning %s", fn.Name, fn.Return)
		}

		g.b.Ret(nil)
		return nil
	}

	if fn.Return.IsVoid() {
		return semanticErrorf(ret.Loc, "void function %s cannot return a value", fn.Name)
	}

	v, err := g.value(ret.Value)
	if err != nil {
		return err
	}

	if v, err = Cast(g.b, ret.Value.GetLocation(), v, fn.Return); err != nil {
		return err
	}

	g.b.Ret(v)
	return nil
}

func (g *Generator) lookup(id *Identifier) (*Symbol, error) {
	sym, ok := g.scopes.Lookup(id.Name)
	if !ok {
		return nil, &UndefinedError{Loc: id.Loc, What: "identifier", Name: id.Name}
	}

	return sym, nil
}

// value generates expr in rvalue mode and requires it to produce a value.
func (g *Generator) value(expr Expr) (Value, error) {
	v, err := g.rvalue(expr)
	if err != nil {
		return nil, err
	}

	if v == nil {
		return nil, semanticErrorf(expr.GetLocation(), "void value used in an expression")
	}

	return v, nil
}

// rvalue generates the value of expr. Calls to void functions yield nil.
func (g *Generator) rvalue(expr Expr) (Value, error) {
	switch e := expr.(type) {
	case *IntLiteral:
		return intLiteral(e)
	case *FloatLiteral:
		return &FloatConst{Typ: Double, Value: e.Value}, nil
	case *CharLiteral:
		return &IntConst{Typ: Char, Value: wrapInt(int64(e.Value), Char)}, nil
	case *BoolLiteral:
		if e.Value {
			return &IntConst{Typ: Bool, Value: 1}, nil
		}
		return &IntConst{Typ: Bool}, nil
	case *StringLiteral:
		return &GlobalAddr{Global: g.mod.NewString(e.Value), Decay: true}, nil
	case *Identifier:
		return g.identifier(e)
	case *BinaryExpr:
		return g.binaryExpression(e)
	case *AddressOf:
		return g.lvalue(e.Operand)
	case *Dereference:
		return g.dereference(e)
	case *FuncCall:
		return g.functionCall(e)
	case *BadExpr:
		return nil, semanticErrorf(e.Loc, "invalid expression")
	}

	return nil, internalErrorf(expr.GetLocation(), "unexpected expression %T", expr)
}

// lvalue generates the address of expr without loading from it.
func (g *Generator) lvalue(expr Expr) (Value, error) {
	switch e := expr.(type) {
	case *Identifier:
		sym, err := g.lookup(e)
		if err != nil {
			return nil, err
		}
		return sym.Storage, nil
	case *Dereference:
		return g.pointer(e)
	case *BadExpr:
		return nil, semanticErrorf(e.Loc, "invalid expression")
	}

	return nil, semanticErrorf(expr.GetLocation(), "expression is not addressable")
}

func intLiteral(e *IntLiteral) (*IntConst, error) {
	limit32, limit64 := uint64(math.MaxInt32), uint64(math.MaxInt64)
	if e.Negative {
		limit32++
		limit64++
	}

	v := int64(e.Value)
	if e.Negative {
		v = -v
	}

	switch {
	case e.Value <= limit32:
		return &IntConst{Typ: Int, Value: v}, nil
	case e.Value <= limit64:
		return &IntConst{Typ: Long, Value: v}, nil
	}

	return nil, semanticErrorf(e.Loc, "integer literal out of range for long")
}

func (g *Generator) identifier(id *Identifier) (Value, error) {
	sym, err := g.lookup(id)
	if err != nil {
		return nil, err
	}

	if g.b == nil {
		return nil, notConstant(id.Loc)
	}

	return g.b.Load(sym.Storage), nil
}

func (g *Generator) binaryExpression(expr *BinaryExpr) (Value, error) {
	if expr.Operation == BinaryAssignment {
		if g.b == nil {
			return nil, notConstant(expr.Loc)
		}

		dst, err := g.lvalue(expr.Op1)
		if err != nil {
			return nil, err
		}

		v, err := g.value(expr.Op2)
		if err != nil {
			return nil, err
		}

		return Assign(g.b, expr.Loc, dst, v)
	}

	l, err := g.value(expr.Op1)
	if err != nil {
		return nil, err
	}

	r, err := g.value(expr.Op2)
	if err != nil {
		return nil, err
	}

	return Arith(g.b, expr.Loc, expr.Operation, l, r)
}

// pointer generates the address a dereference reads or writes.
func (g *Generator) pointer(expr *Dereference) (Value, error) {
	if g.b == nil {
		return nil, notConstant(expr.Loc)
	}

	ptr, err := g.value(expr.Operand)
	if err != nil {
		return nil, err
	}

	t := ptr.Type()
	switch {
	case !t.IsPointer():
		return nil, semanticErrorf(expr.Loc, "cannot dereference non-pointer type %s", t)
	case t.Elem.IsVoid():
		return nil, semanticErrorf(expr.Loc, "cannot dereference a void pointer")
	}

	if err := g.checkPointee(expr.Operand); err != nil {
		return nil, err
	}

	return ptr, nil
}

// checkPointee verifies that a pointer variable initialized from another
// variable does not outlive it.
func (g *Generator) checkPointee(operand Expr) error {
	id, ok := operand.(*Identifier)
	if !ok {
		return nil
	}

	sym, ok := g.scopes.Lookup(id.Name)
	if !ok || sym.Pointee == nil {
		return nil
	}

	_, err := g.scopes.Resolve(*sym.Pointee, id.Loc)
	return err
}

func (g *Generator) dereference(expr *Dereference) (Value, error) {
	ptr, err := g.pointer(expr)
	if err != nil {
		return nil, err
	}

	return g.b.Load(ptr), nil
}

func (g *Generator) functionCall(call *FuncCall) (Value, error) {
	callee := g.mod.Function(call.Name)
	if callee == nil {
		return nil, &UndefinedError{Loc: call.Loc, What: "function", Name: call.Name}
	}

	if len(call.Args) != len(callee.Params) {
		return nil, semanticErrorf(call.Loc, "%s expects %d arguments, got %d",
			call.Name, len(callee.Params), len(call.Args))
	}

	if g.b == nil {
		return nil, notConstant(call.Loc)
	}

	args := make([]Value, len(call.Args))
	for i, arg := range call.Args {
		v, err := g.value(arg)
		if err != nil {
			return nil, err
		}

		if args[i], err = Cast(g.b, arg.GetLocation(), v, callee.Params[i].Type); err != nil {
			return nil, err
		}
	}

	return g.b.Call(callee, args...), nil
}
