package ember

// Verify checks the structure of a defined function: a single terminator
// closing the body, operands defined before use and consistent operand
// types. Any failure is an internal error.
func Verify(mod *Module, fn *Function) error {
	v := &verifier{
		mod:   mod,
		fn:    fn,
		temps: make(map[int]bool),
		slots: make(map[int]bool),
	}

	return v.run()
}

type verifier struct {
	mod   *Module
	fn    *Function
	temps map[int]bool
	slots map[int]bool
}

func (v *verifier) errorf(format string, args ...interface{}) error {
	return internalErrorf(v.fn.Loc, "in %s: "+format, append([]interface{}{v.fn.Name}, args...)...)
}

func (v *verifier) run() error {
	if !v.fn.Defined {
		return v.errorf("function has no body")
	}

	if len(v.fn.Body) == 0 {
		return v.errorf("empty body")
	}

	last := len(v.fn.Body) - 1
	for i, inst := range v.fn.Body {
		if IsTerminator(inst) != (i == last) {
			if i == last {
				return v.errorf("body does not end in a terminator")
			}
			return v.errorf("terminator %q before the end of the body", inst)
		}

		if err := v.instruction(inst); err != nil {
			return err
		}
	}

	return nil
}

// operand checks that a value is available at this point of the body.
func (v *verifier) operand(val Value) error {
	switch o := val.(type) {
	case nil:
		return v.errorf("missing operand")
	case *Temp:
		if !v.temps[o.ID] {
			return v.errorf("%s used before it is defined", o)
		}
	case *Slot:
		if !v.slots[o.ID] {
			return v.errorf("%s used before it is allocated", o)
		}
	case *ParamRef:
		if o.Index >= len(v.fn.Params) || v.fn.Params[o.Index] != o.Param {
			return v.errorf("%s is not a parameter", o)
		}
	}

	return nil
}

func (v *verifier) define(t *Temp) error {
	if v.temps[t.ID] {
		return v.errorf("%s defined twice", t)
	}

	v.temps[t.ID] = true
	return nil
}

func (v *verifier) instruction(inst Instruction) error {
	switch i := inst.(type) {
	case *Alloca:
		if i.Result.Elem.IsVoid() {
			return v.errorf("alloca of void")
		}
		v.slots[i.Result.ID] = true
		return nil
	case *Store:
		if err := v.operands(i.Val, i.Dst); err != nil {
			return err
		}
		if dst := i.Dst.Type(); !dst.IsPointer() || !dst.Elem.Equals(i.Val.Type()) {
			return v.errorf("store of %s into %s", i.Val.Type(), dst)
		}
		return nil
	case *Load:
		if err := v.operand(i.Src); err != nil {
			return err
		}
		if src := i.Src.Type(); !src.IsPointer() || !src.Elem.Equals(i.Result.Typ) {
			return v.errorf("load of %s from %s", i.Result.Typ, src)
		}
		return v.define(i.Result)
	case *ArithInst:
		if err := v.operands(i.X, i.Y); err != nil {
			return err
		}
		t := i.Result.Typ
		if !t.IsNumeric() || !i.X.Type().Equals(t) || !i.Y.Type().Equals(t) {
			return v.errorf("%s of %s and %s yielding %s", i.Op, i.X.Type(), i.Y.Type(), t)
		}
		return v.define(i.Result)
	case *Convert:
		if err := v.operand(i.X); err != nil {
			return err
		}
		if op, ok := CastOpFor(i.X.Type(), i.Result.Typ); !ok || op != i.Op {
			return v.errorf("%s from %s to %s", i.Op, i.X.Type(), i.Result.Typ)
		}
		return v.define(i.Result)
	case *Offset:
		if err := v.operands(i.Base, i.Index); err != nil {
			return err
		}
		base := i.Base.Type()
		if !base.IsPointer() || !i.Index.Type().Equals(Long) || !i.Result.Typ.Equals(base) {
			return v.errorf("offset of %s by %s", base, i.Index.Type())
		}
		if i.Scale != base.Elem.Size() {
			return v.errorf("offset of %s scaled by %d", base, i.Scale)
		}
		return v.define(i.Result)
	case *Call:
		return v.call(i)
	case *Ret:
		if i.Val == nil {
			if !v.fn.Return.IsVoid() {
				return v.errorf("ret void in function returning %s", v.fn.Return)
			}
			return nil
		}
		if err := v.operand(i.Val); err != nil {
			return err
		}
		if !i.Val.Type().Equals(v.fn.Return) {
			return v.errorf("ret %s in function returning %s", i.Val.Type(), v.fn.Return)
		}
		return nil
	case *Unreachable:
		return nil
	}

	return v.errorf("unknown instruction %T", inst)
}

func (v *verifier) operands(vals ...Value) error {
	for _, val := range vals {
		if err := v.operand(val); err != nil {
			return err
		}
	}

	return nil
}

func (v *verifier) call(call *Call) error {
	callee := v.mod.Function(call.Callee)
	if callee == nil {
		return v.errorf("call to unknown function %s", call.Callee)
	}

	if len(call.Args) != len(callee.Params) {
		return v.errorf("call to %s with %d arguments", call.Callee, len(call.Args))
	}

	for j, arg := range call.Args {
		if err := v.operand(arg); err != nil {
			return err
		}
		if !arg.Type().Equals(callee.Params[j].Type) {
			return v.errorf("argument %d of %s is %s, want %s", j, call.Callee, arg.Type(), callee.Params[j].Type)
		}
	}

	switch {
	case call.Result == nil && !callee.Return.IsVoid():
		return v.errorf("result of %s dropped from the call", call.Callee)
	case call.Result != nil && !call.Result.Typ.Equals(callee.Return):
		return v.errorf("call to %s yields %s, want %s", call.Callee, call.Result.Typ, callee.Return)
	case call.Result != nil:
		return v.define(call.Result)
	}

	return nil
}
