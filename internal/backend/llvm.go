package backend

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"go.ember.dev/pkg"
)

// Lower translates a Module into an LLVM module.
func Lower(m *ember.Module) (*ir.Module, error) {
	l := &lowerer{
		mod:     ir.NewModule(),
		globals: make(map[*ember.Global]*ir.Global),
		funcs:   make(map[string]*ir.Func),
	}
	l.mod.SourceFilename = m.Name

	// Globals and functions are all created up front since initializers and
	// calls may refer to later ones.
	for _, g := range m.Globals {
		glob := l.mod.NewGlobal(g.Name, lowerType(g.Type))
		if g.Constant {
			glob.Immutable = true
			glob.Linkage = enum.LinkagePrivate
		}
		l.globals[g] = glob
	}

	for _, f := range m.Functions {
		params := make([]*ir.Param, len(f.Params))
		for i, p := range f.Params {
			params[i] = ir.NewParam(p.Name, lowerType(p.Type))
		}
		l.funcs[f.Name] = l.mod.NewFunc(f.Name, lowerType(f.Return), params...)
	}

	for _, g := range m.Globals {
		init, err := l.initializer(g)
		if err != nil {
			return nil, err
		}
		l.globals[g].Init = init
	}

	for _, f := range m.Functions {
		if !f.Defined {
			continue
		}

		if err := l.function(f); err != nil {
			return nil, errors.Wrapf(err, "lowering %s", f.Name)
		}
	}

	return l.mod, nil
}

// EmitTextIR renders a Module as textual LLVM IR.
func EmitTextIR(m *ember.Module) ([]byte, error) {
	mod, err := Lower(m)
	if err != nil {
		return nil, err
	}

	return []byte(mod.String()), nil
}

type lowerer struct {
	mod     *ir.Module
	globals map[*ember.Global]*ir.Global
	funcs   map[string]*ir.Func
}

func lowerType(t ember.Type) types.Type {
	switch t.Kind {
	case ember.KindBool:
		return types.I1
	case ember.KindChar:
		return types.I8
	case ember.KindShort:
		return types.I16
	case ember.KindInt:
		return types.I32
	case ember.KindLong:
		return types.I64
	case ember.KindFloat:
		return types.Float
	case ember.KindDouble:
		return types.Double
	case ember.KindQuad:
		return types.FP128
	case ember.KindPointer:
		if t.Elem.IsVoid() {
			return types.NewPointer(types.I8)
		}
		return types.NewPointer(lowerType(*t.Elem))
	case ember.KindArray:
		return types.NewArray(uint64(t.Len), lowerType(*t.Elem))
	}

	return types.Void
}

func (l *lowerer) initializer(g *ember.Global) (constant.Constant, error) {
	if g.Init == nil {
		return constant.NewZeroInitializer(lowerType(g.Type)), nil
	}

	return l.constant(g.Init)
}

func (l *lowerer) constant(c ember.Constant) (constant.Constant, error) {
	switch c := c.(type) {
	case *ember.IntConst:
		return constant.NewInt(lowerType(c.Typ).(*types.IntType), c.Value), nil
	case *ember.FloatConst:
		return constant.NewFloat(lowerType(c.Typ).(*types.FloatType), c.Value), nil
	case *ember.NullConst:
		return constant.NewNull(lowerType(c.Typ).(*types.PointerType)), nil
	case *ember.StringConst:
		return constant.NewCharArrayFromString(c.Value + "\x00"), nil
	case *ember.GlobalAddr:
		glob, ok := l.globals[c.Global]
		if !ok {
			return nil, errors.Errorf("unknown global %s", c.Global.Name)
		}

		if !c.Decay || c.Global.Type.Kind != ember.KindArray {
			return glob, nil
		}

		zero := constant.NewInt(types.I64, 0)
		return constant.NewGetElementPtr(lowerType(c.Global.Type), glob, zero, zero), nil
	case *ember.BitcastConst:
		x, err := l.constant(c.X)
		if err != nil {
			return nil, err
		}
		return constant.NewBitCast(x, lowerType(c.Typ)), nil
	}

	return nil, errors.Errorf("unsupported constant %s", c)
}

// funcLowerer holds the values of one function body.
type funcLowerer struct {
	*lowerer

	fn    *ir.Func
	block *ir.Block
	slots map[int]value.Value
	temps map[int]value.Value
}

func (l *lowerer) function(f *ember.Function) error {
	fn := l.funcs[f.Name]
	fl := &funcLowerer{
		lowerer: l,
		fn:      fn,
		block:   fn.NewBlock(""),
		slots:   make(map[int]value.Value),
		temps:   make(map[int]value.Value),
	}

	for _, inst := range f.Body {
		if err := fl.instruction(inst); err != nil {
			return err
		}
	}

	return nil
}

func (fl *funcLowerer) value(v ember.Value) (value.Value, error) {
	switch v := v.(type) {
	case *ember.Slot:
		if s, ok := fl.slots[v.ID]; ok {
			return s, nil
		}
	case *ember.Temp:
		if t, ok := fl.temps[v.ID]; ok {
			return t, nil
		}
	case *ember.ParamRef:
		if v.Index < len(fl.fn.Params) {
			return fl.fn.Params[v.Index], nil
		}
	case ember.Constant:
		return fl.constant(v)
	}

	return nil, errors.Errorf("undefined value %s", v)
}

func (fl *funcLowerer) values(vals ...ember.Value) ([]value.Value, error) {
	out := make([]value.Value, len(vals))
	for i, v := range vals {
		var err error
		if out[i], err = fl.value(v); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (fl *funcLowerer) instruction(inst ember.Instruction) error {
	b := fl.block

	switch i := inst.(type) {
	case *ember.Alloca:
		fl.slots[i.Result.ID] = b.NewAlloca(lowerType(i.Result.Elem))
	case *ember.Store:
		ops, err := fl.values(i.Val, i.Dst)
		if err != nil {
			return err
		}
		b.NewStore(ops[0], ops[1])
	case *ember.Load:
		src, err := fl.value(i.Src)
		if err != nil {
			return err
		}
		fl.temps[i.Result.ID] = b.NewLoad(lowerType(i.Result.Typ), src)
	case *ember.ArithInst:
		ops, err := fl.values(i.X, i.Y)
		if err != nil {
			return err
		}
		fl.temps[i.Result.ID] = fl.arith(i.Op, i.Result.Typ.IsFloat(), ops[0], ops[1])
	case *ember.Convert:
		x, err := fl.value(i.X)
		if err != nil {
			return err
		}
		fl.temps[i.Result.ID] = fl.convert(i.Op, x, lowerType(i.Result.Typ))
	case *ember.Offset:
		ops, err := fl.values(i.Base, i.Index)
		if err != nil {
			return err
		}
		elem := lowerType(*i.Base.Type().Elem)
		if i.Base.Type().Elem.IsVoid() {
			elem = types.I8
		}
		fl.temps[i.Result.ID] = b.NewGetElementPtr(elem, ops[0], ops[1])
	case *ember.Call:
		callee, ok := fl.funcs[i.Callee]
		if !ok {
			return errors.Errorf("call to unknown function %s", i.Callee)
		}
		args, err := fl.values(i.Args...)
		if err != nil {
			return err
		}
		call := b.NewCall(callee, args...)
		if i.Result != nil {
			fl.temps[i.Result.ID] = call
		}
	case *ember.Ret:
		if i.Val == nil {
			b.NewRet(nil)
			return nil
		}
		v, err := fl.value(i.Val)
		if err != nil {
			return err
		}
		b.NewRet(v)
	case *ember.Unreachable:
		b.NewUnreachable()
	default:
		return errors.Errorf("unsupported instruction %s", inst)
	}

	return nil
}

func (fl *funcLowerer) arith(op ember.ArithOp, float bool, x, y value.Value) value.Value {
	b := fl.block

	switch {
	case op == ember.OpAdd && float:
		return b.NewFAdd(x, y)
	case op == ember.OpAdd:
		return b.NewAdd(x, y)
	case op == ember.OpSub && float:
		return b.NewFSub(x, y)
	case op == ember.OpSub:
		return b.NewSub(x, y)
	case op == ember.OpMul && float:
		return b.NewFMul(x, y)
	case op == ember.OpMul:
		return b.NewMul(x, y)
	case float:
		return b.NewFDiv(x, y)
	}

	return b.NewSDiv(x, y)
}

func (fl *funcLowerer) convert(op ember.CastOp, x value.Value, to types.Type) value.Value {
	b := fl.block

	switch op {
	case ember.CastTrunc:
		return b.NewTrunc(x, to)
	case ember.CastZExt:
		return b.NewZExt(x, to)
	case ember.CastSExt:
		return b.NewSExt(x, to)
	case ember.CastSIToFP:
		return b.NewSIToFP(x, to)
	case ember.CastUIToFP:
		return b.NewUIToFP(x, to)
	case ember.CastFPToSI:
		return b.NewFPToSI(x, to)
	case ember.CastFPToBool:
		return b.NewFCmp(enum.FPredUNE, x, constant.NewFloat(x.Type().(*types.FloatType), 0))
	case ember.CastFPExt:
		return b.NewFPExt(x, to)
	case ember.CastFPTrunc:
		return b.NewFPTrunc(x, to)
	}

	return b.NewBitCast(x, to)
}
