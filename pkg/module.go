package ember

import (
	"fmt"
	"strconv"
	"strings"
)

// Module is the backend-agnostic output of a compilation unit. It is only
// ever appended to.
type Module struct {
	Name      string
	Functions []*Function
	Globals   []*Global

	strings int
}

func NewModule(name string) *Module {
	return &Module{Name: name}
}

func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}

	return nil
}

func (m *Module) Global(name string) *Global {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}

	return nil
}

func (m *Module) NewFunction(name string, ret Type, params ...*FuncParam) *Function {
	f := &Function{Name: name, Return: ret, Params: params}
	m.Functions = append(m.Functions, f)

	return f
}

func (m *Module) NewGlobal(name string, typ Type, init Constant) *Global {
	g := &Global{Name: name, Type: typ, Init: init}
	m.Globals = append(m.Globals, g)

	return g
}

// NewString stores a NUL terminated string literal in a private constant
// global.
func (m *Module) NewString(text string) *Global {
	m.strings++

	init := &StringConst{Value: text}
	g := m.NewGlobal(".str."+strconv.Itoa(m.strings), init.Type(), init)
	g.Constant = true

	return g
}

func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %s\n", m.Name)

	for _, g := range m.Globals {
		sb.WriteString(g.String())
		sb.WriteByte('\n')
	}

	for _, f := range m.Functions {
		sb.WriteString(f.String())
	}

	return sb.String()
}

type Global struct {
	Name string
	Type Type

	// Init is nil for a zero initialized global.
	Init     Constant
	Constant bool
}

func (g *Global) String() string {
	init := "zeroinitializer"
	if g.Init != nil {
		init = g.Init.String()
	}

	kind := "global"
	if g.Constant {
		kind = "constant"
	}

	return fmt.Sprintf("@%s = %s %s %s", g.Name, kind, g.Type, init)
}

type FuncParam struct {
	Name string
	Type Type
}

type Function struct {
	Name   string
	Return Type
	Params []*FuncParam
	Body   []Instruction
	Loc    Location

	// Defined is set once the function has a body; functions that are only
	// declared are external.
	Defined    bool
	Terminated bool
}

func (f *Function) Signature() FuncSignature {
	sig := FuncSignature{Return: f.Return}
	for _, p := range f.Params {
		sig.Params = append(sig.Params, p.Type)
	}

	return sig
}

func (f *Function) String() string {
	var sb strings.Builder

	keyword := "declare"
	if f.Defined {
		keyword = "define"
	}

	fmt.Fprintf(&sb, "%s %s @%s(", keyword, f.Return, f.Name)
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %%%s", p.Type, p.Name)
	}
	sb.WriteString(")")

	if !f.Defined {
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(" {\n")
	for _, inst := range f.Body {
		sb.WriteString("  ")
		sb.WriteString(inst.String())
		sb.WriteByte('\n')
	}
	sb.WriteString("}\n")

	return sb.String()
}

// Value is an operand of an instruction: a constant or a reference to
// storage or to an earlier instruction's result.
type Value interface {
	Type() Type
	String() string
	valueNode()
}

// Constant is a Value known at compile time. Only constants may initialize
// globals.
type Constant interface {
	Value
	constantNode()
}

type IntConst struct {
	Typ   Type
	Value int64
}

type FloatConst struct {
	Typ   Type
	Value float64
}

type NullConst struct {
	Typ Type
}

// StringConst is the NUL terminated contents of a string literal global.
type StringConst struct {
	Value string
}

// GlobalAddr is the address of a global. With Decay set, it is the address
// of the first element of an array global.
type GlobalAddr struct {
	Global *Global
	Decay  bool
}

// BitcastConst reinterprets a constant address as another pointer type.
type BitcastConst struct {
	X   Constant
	Typ Type
}

// Slot is a stack slot created by an Alloca.
type Slot struct {
	ID   int
	Elem Type
}

// Temp is the result of an instruction.
type Temp struct {
	ID  int
	Typ Type
}

// ParamRef is an incoming function argument.
type ParamRef struct {
	Index int
	Param *FuncParam
}

func (c *IntConst) Type() Type    { return c.Typ }
func (c *FloatConst) Type() Type  { return c.Typ }
func (c *NullConst) Type() Type   { return c.Typ }
func (c *StringConst) Type() Type { return ArrayOf(Char, len(c.Value)+1) }
func (c *GlobalAddr) Type() Type {
	if c.Decay && c.Global.Type.Kind == KindArray {
		return PointerTo(*c.Global.Type.Elem)
	}

	return PointerTo(c.Global.Type)
}
func (c *BitcastConst) Type() Type { return c.Typ }
func (s *Slot) Type() Type         { return PointerTo(s.Elem) }
func (t *Temp) Type() Type         { return t.Typ }
func (p *ParamRef) Type() Type     { return p.Param.Type }

func (c *IntConst) String() string    { return fmt.Sprintf("%s %d", c.Typ, c.Value) }
func (c *FloatConst) String() string  { return fmt.Sprintf("%s %g", c.Typ, c.Value) }
func (c *NullConst) String() string   { return fmt.Sprintf("%s null", c.Typ) }
func (c *StringConst) String() string { return strconv.Quote(c.Value) }
func (c *GlobalAddr) String() string {
	if c.Decay {
		return fmt.Sprintf("%s elem(@%s)", c.Type(), c.Global.Name)
	}

	return fmt.Sprintf("%s @%s", c.Type(), c.Global.Name)
}
func (c *BitcastConst) String() string {
	return fmt.Sprintf("bitcast (%s) to %s", c.X, c.Typ)
}
func (s *Slot) String() string     { return fmt.Sprintf("%s %%s%d", s.Type(), s.ID) }
func (t *Temp) String() string     { return fmt.Sprintf("%s %%t%d", t.Typ, t.ID) }
func (p *ParamRef) String() string { return fmt.Sprintf("%s %%%s", p.Param.Type, p.Param.Name) }

func (*IntConst) valueNode()     {}
func (*FloatConst) valueNode()   {}
func (*NullConst) valueNode()    {}
func (*StringConst) valueNode()  {}
func (*GlobalAddr) valueNode()   {}
func (*BitcastConst) valueNode() {}
func (*Slot) valueNode()         {}
func (*Temp) valueNode()         {}
func (*ParamRef) valueNode()     {}

func (*IntConst) constantNode()     {}
func (*FloatConst) constantNode()   {}
func (*NullConst) constantNode()    {}
func (*StringConst) constantNode()  {}
func (*GlobalAddr) constantNode()   {}
func (*BitcastConst) constantNode() {}

// Instruction is the closed set of IR instructions.
type Instruction interface {
	String() string
	instructionNode()
}

type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
)

func (op ArithOp) String() string {
	return [...]string{"add", "sub", "mul", "div"}[op]
}

type CastOp int

const (
	CastTrunc CastOp = iota
	CastZExt
	CastSExt
	CastSIToFP
	CastUIToFP
	CastFPToSI
	CastFPToBool
	CastFPExt
	CastFPTrunc
	CastBitcast
)

func (op CastOp) String() string {
	return [...]string{
		"trunc", "zext", "sext", "sitofp", "uitofp", "fptosi", "fptobool", "fpext", "fptrunc", "bitcast",
	}[op]
}

type Alloca struct {
	Result *Slot
}

type Store struct {
	Val Value
	Dst Value
}

type Load struct {
	Result *Temp
	Src    Value
}

// ArithInst is a typed arithmetic operation; both operands have the result type.
type ArithInst struct {
	Result *Temp
	Op     ArithOp
	X, Y   Value
}

type Convert struct {
	Result *Temp
	Op     CastOp
	X      Value
}

// Offset moves a pointer by Index elements; Scale is the element size in
// bytes.
type Offset struct {
	Result *Temp
	Base   Value
	Index  Value
	Scale  int
}

// Call has a nil Result when the callee returns void.
type Call struct {
	Result *Temp
	Callee string
	Args   []Value
}

// Ret has a nil Val in void functions.
type Ret struct {
	Val Value
}

type Unreachable struct{}

func (i *Alloca) String() string {
	return fmt.Sprintf("%%s%d = alloca %s", i.Result.ID, i.Result.Elem)
}

func (i *Store) String() string {
	return fmt.Sprintf("store %s, %s", i.Val, i.Dst)
}

func (i *Load) String() string {
	return fmt.Sprintf("%%t%d = load %s, %s", i.Result.ID, i.Result.Typ, i.Src)
}

func (i *ArithInst) String() string {
	return fmt.Sprintf("%%t%d = %s %s, %s", i.Result.ID, i.Op, i.X, i.Y)
}

func (i *Convert) String() string {
	return fmt.Sprintf("%%t%d = %s %s to %s", i.Result.ID, i.Op, i.X, i.Result.Typ)
}

func (i *Offset) String() string {
	return fmt.Sprintf("%%t%d = offset %s, %s x %d", i.Result.ID, i.Base, i.Index, i.Scale)
}

func (i *Call) String() string {
	args := make([]string, len(i.Args))
	for j, arg := range i.Args {
		args[j] = arg.String()
	}

	call := fmt.Sprintf("call @%s(%s)", i.Callee, strings.Join(args, ", "))
	if i.Result == nil {
		return call
	}

	return fmt.Sprintf("%%t%d = %s %s", i.Result.ID, i.Result.Typ, call)
}

func (i *Ret) String() string {
	if i.Val == nil {
		return "ret void"
	}

	return "ret " + i.Val.String()
}

func (i *Unreachable) String() string {
	return "unreachable"
}

func (*Alloca) instructionNode()      {}
func (*Store) instructionNode()       {}
func (*Load) instructionNode()        {}
func (*ArithInst) instructionNode()   {}
func (*Convert) instructionNode()     {}
func (*Offset) instructionNode()      {}
func (*Call) instructionNode()        {}
func (*Ret) instructionNode()         {}
func (*Unreachable) instructionNode() {}

func IsTerminator(inst Instruction) bool {
	switch inst.(type) {
	case *Ret, *Unreachable:
		return true
	}

	return false
}
