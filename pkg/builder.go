package ember

// FuncBuilder appends instructions to the body of one function.
type FuncBuilder struct {
	fn    *Function
	temps int
	slots int
}

func NewFuncBuilder(fn *Function) *FuncBuilder {
	return &FuncBuilder{fn: fn}
}

func (b *FuncBuilder) Function() *Function {
	return b.fn
}

func (b *FuncBuilder) Terminated() bool {
	return b.fn.Terminated
}

func (b *FuncBuilder) emit(inst Instruction) {
	b.fn.Body = append(b.fn.Body, inst)
	if IsTerminator(inst) {
		b.fn.Terminated = true
	}
}

func (b *FuncBuilder) temp(t Type) *Temp {
	b.temps++
	return &Temp{ID: b.temps, Typ: t}
}

func (b *FuncBuilder) Param(i int) *ParamRef {
	return &ParamRef{Index: i, Param: b.fn.Params[i]}
}

func (b *FuncBuilder) Alloca(elem Type) *Slot {
	b.slots++
	slot := &Slot{ID: b.slots, Elem: elem}
	b.emit(&Alloca{Result: slot})

	return slot
}

func (b *FuncBuilder) Store(val, dst Value) {
	b.emit(&Store{Val: val, Dst: dst})
}

// Load reads the element a pointer-typed value refers to.
func (b *FuncBuilder) Load(src Value) *Temp {
	t := b.temp(*src.Type().Elem)
	b.emit(&Load{Result: t, Src: src})

	return t
}

func (b *FuncBuilder) Arith(op ArithOp, x, y Value) *Temp {
	t := b.temp(x.Type())
	b.emit(&ArithInst{Result: t, Op: op, X: x, Y: y})

	return t
}

func (b *FuncBuilder) Convert(op CastOp, x Value, to Type) *Temp {
	t := b.temp(to)
	b.emit(&Convert{Result: t, Op: op, X: x})

	return t
}

func (b *FuncBuilder) Offset(base, index Value) *Temp {
	t := b.temp(base.Type())
	b.emit(&Offset{Result: t, Base: base, Index: index, Scale: base.Type().Elem.Size()})

	return t
}

// Call returns nil for void callees.
func (b *FuncBuilder) Call(callee *Function, args ...Value) Value {
	call := &Call{Callee: callee.Name, Args: args}
	if !callee.Return.IsVoid() {
		call.Result = b.temp(callee.Return)
	}
	b.emit(call)

	if call.Result == nil {
		return nil
	}

	return call.Result
}

func (b *FuncBuilder) Ret(val Value) {
	b.emit(&Ret{Val: val})
}

func (b *FuncBuilder) Unreachable() {
	b.emit(&Unreachable{})
}
